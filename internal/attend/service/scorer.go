package service

import (
	"strings"

	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/domain"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/geo"
)

// ScoringConfig holds the channel weights and sensor thresholds. Weights
// should sum to 1; a missing sensor simply contributes zero through its
// weight rather than erroring.
type ScoringConfig struct {
	TokenWeight    float64
	RadioWeight    float64
	NetworkWeight  float64
	PositionWeight float64

	Threshold float64 // confidence at or above which a holder is present

	RSSIFloor     int // readings weaker than this are ignored
	MinBeaconHits int // fewer accepted readings than this scores zero
}

func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		TokenWeight:    0.4,
		RadioWeight:    0.3,
		NetworkWeight:  0.2,
		PositionWeight: 0.1,
		Threshold:      0.6,
		RSSIFloor:      -70,
		MinBeaconHits:  2,
	}
}

// Scorer combines the token check with radio, network, and position evidence
// into a single confidence value.
type Scorer struct {
	cfg ScoringConfig
}

func NewScorer(cfg ScoringConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

func (s *Scorer) Threshold() float64 { return s.cfg.Threshold }

// Score computes the weighted confidence for one verification attempt.
// tokenValid false short-circuits: no amount of sensor evidence can carry
// an attempt whose token failed.
func (s *Scorer) Score(tokenValid bool, snap domain.SensorSnapshot, room domain.RoomProfile) domain.ChannelScores {
	scores := domain.ChannelScores{
		Radio:    s.radioScore(snap.Beacons, room.Beacons),
		Network:  s.networkScore(snap.Network, room),
		Position: s.positionScore(snap.Position, room),
	}
	if tokenValid {
		scores.Token = 1
	}
	return scores
}

// Confidence folds channel scores into the weighted sum.
func (s *Scorer) Confidence(scores domain.ChannelScores) float64 {
	return s.cfg.TokenWeight*scores.Token +
		s.cfg.RadioWeight*scores.Radio +
		s.cfg.NetworkWeight*scores.Network +
		s.cfg.PositionWeight*scores.Position
}

// radioScore averages two ratios: how many of the holder's readings hit a
// registered beacon, and how many registered beacons were seen at all.
func (s *Scorer) radioScore(readings []domain.BeaconReading, registered []string) float64 {
	if len(registered) == 0 || len(readings) == 0 {
		return 0
	}

	known := make(map[string]bool, len(registered))
	for _, addr := range registered {
		known[normalizeMAC(addr)] = true
	}

	var accepted, hits int
	covered := make(map[string]bool)
	for _, r := range readings {
		if r.RSSI < s.cfg.RSSIFloor {
			continue
		}
		accepted++
		addr := normalizeMAC(r.Address)
		if known[addr] {
			hits++
			covered[addr] = true
		}
	}

	if accepted < s.cfg.MinBeaconHits {
		return 0
	}

	hitRatio := float64(hits) / float64(accepted)
	coverage := float64(len(covered)) / float64(len(registered))
	return (hitRatio + coverage) / 2
}

// networkScore is a strict BSSID equality check. SSIDs are trivially
// spoofable so they carry no score on their own.
func (s *Scorer) networkScore(net *domain.NetworkIdentity, room domain.RoomProfile) float64 {
	if net == nil || room.WifiBSSID == "" {
		return 0
	}
	if normalizeMAC(net.BSSID) == normalizeMAC(room.WifiBSSID) {
		return 1
	}
	return 0
}

// positionScore decays linearly from 1 at the room anchor to 0 at the
// geofence edge. Outside the fence scores zero.
func (s *Scorer) positionScore(pos *domain.Position, room domain.RoomProfile) float64 {
	if pos == nil || room.GeofenceRadius <= 0 {
		return 0
	}
	d := geo.Distance(pos.Latitude, pos.Longitude, room.Latitude, room.Longitude)
	if d > room.GeofenceRadius {
		return 0
	}
	score := 1 - d/room.GeofenceRadius
	if score < 0 {
		return 0
	}
	return score
}

func normalizeMAC(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
