package service

import (
	"testing"

	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/domain"
	"github.com/stretchr/testify/require"
)

var testRoom = domain.RoomProfile{
	ID:             "room-1",
	Name:           "Lab 2.14",
	WifiSSID:       "campus-net",
	WifiBSSID:      "AA:BB:CC:DD:EE:FF",
	Beacons:        []string{"11:11:11:11:11:11", "22:22:22:22:22:22"},
	Latitude:       -27.4975,
	Longitude:      153.0137,
	GeofenceRadius: 30,
}

func TestScorer_FullEvidenceScoresAboveThreshold(t *testing.T) {
	t.Parallel()

	s := NewScorer(DefaultScoringConfig())
	snap := domain.SensorSnapshot{
		Beacons: []domain.BeaconReading{
			{Address: "11:11:11:11:11:11", RSSI: -50},
			{Address: "22:22:22:22:22:22", RSSI: -60},
		},
		Network:  &domain.NetworkIdentity{SSID: "campus-net", BSSID: "aa:bb:cc:dd:ee:ff"},
		Position: &domain.Position{Latitude: testRoom.Latitude, Longitude: testRoom.Longitude},
	}

	scores := s.Score(true, snap, testRoom)
	require.Equal(t, float64(1), scores.Token)
	require.Equal(t, float64(1), scores.Radio)
	require.Equal(t, float64(1), scores.Network)
	require.InDelta(t, 1, scores.Position, 1e-9)

	conf := s.Confidence(scores)
	require.InDelta(t, 1, conf, 1e-9)
	require.GreaterOrEqual(t, conf, s.Threshold())
}

func TestScorer_MissingSensorsScoreZeroWithoutError(t *testing.T) {
	t.Parallel()

	s := NewScorer(DefaultScoringConfig())
	scores := s.Score(true, domain.SensorSnapshot{}, testRoom)

	require.Equal(t, float64(1), scores.Token)
	require.Zero(t, scores.Radio)
	require.Zero(t, scores.Network)
	require.Zero(t, scores.Position)

	// Token weight alone (0.4) is below the default threshold.
	require.Less(t, s.Confidence(scores), s.Threshold())
}

func TestScorer_RadioFloorAndMinHits(t *testing.T) {
	t.Parallel()

	s := NewScorer(DefaultScoringConfig())

	t.Run("weak readings are ignored", func(t *testing.T) {
		snap := domain.SensorSnapshot{
			Beacons: []domain.BeaconReading{
				{Address: "11:11:11:11:11:11", RSSI: -90},
				{Address: "22:22:22:22:22:22", RSSI: -85},
			},
		}
		scores := s.Score(true, snap, testRoom)
		require.Zero(t, scores.Radio)
	})

	t.Run("one strong reading is below the hit minimum", func(t *testing.T) {
		snap := domain.SensorSnapshot{
			Beacons: []domain.BeaconReading{
				{Address: "11:11:11:11:11:11", RSSI: -40},
			},
		}
		scores := s.Score(true, snap, testRoom)
		require.Zero(t, scores.Radio)
	})

	t.Run("partial coverage averages hit ratio and coverage", func(t *testing.T) {
		snap := domain.SensorSnapshot{
			Beacons: []domain.BeaconReading{
				{Address: "11:11:11:11:11:11", RSSI: -40},
				{Address: "11:11:11:11:11:11", RSSI: -45},
				{Address: "99:99:99:99:99:99", RSSI: -50},
			},
		}
		scores := s.Score(true, snap, testRoom)
		// hit ratio 2/3, coverage 1/2
		require.InDelta(t, (2.0/3.0+0.5)/2, scores.Radio, 1e-9)
	})
}

func TestScorer_NetworkIsStrictBSSIDEquality(t *testing.T) {
	t.Parallel()

	s := NewScorer(DefaultScoringConfig())

	match := domain.SensorSnapshot{Network: &domain.NetworkIdentity{SSID: "other-ssid", BSSID: "AA:bb:CC:dd:EE:ff"}}
	require.Equal(t, float64(1), s.Score(true, match, testRoom).Network)

	spoof := domain.SensorSnapshot{Network: &domain.NetworkIdentity{SSID: "campus-net", BSSID: "00:00:00:00:00:01"}}
	require.Zero(t, s.Score(true, spoof, testRoom).Network)
}

func TestScorer_PositionDecaysToGeofenceEdge(t *testing.T) {
	t.Parallel()

	s := NewScorer(DefaultScoringConfig())

	// Roughly 15m east of the anchor: one degree of longitude at this
	// latitude is about 98.9km.
	mid := domain.SensorSnapshot{Position: &domain.Position{
		Latitude:  testRoom.Latitude,
		Longitude: testRoom.Longitude + 15.0/98900,
	}}
	scores := s.Score(true, mid, testRoom)
	require.InDelta(t, 0.5, scores.Position, 0.05)

	far := domain.SensorSnapshot{Position: &domain.Position{
		Latitude:  testRoom.Latitude + 1,
		Longitude: testRoom.Longitude,
	}}
	require.Zero(t, s.Score(true, far, testRoom).Position)
}

func TestScorer_InvalidTokenZeroesTokenChannel(t *testing.T) {
	t.Parallel()

	s := NewScorer(DefaultScoringConfig())
	snap := domain.SensorSnapshot{
		Network: &domain.NetworkIdentity{BSSID: testRoom.WifiBSSID},
	}
	scores := s.Score(false, snap, testRoom)
	require.Zero(t, scores.Token)
	require.Equal(t, float64(1), scores.Network)
}
