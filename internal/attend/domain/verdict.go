package domain

import "time"

// Attendance outcomes.
const (
	AttendancePresent = "present"
	AttendancePending = "pending"
	AttendanceFailed  = "failed"
)

// Reason classifies why a verification attempt was rejected (or, for
// failed-confidence attempts, why the verdict is negative).
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonMalformed       Reason = "malformed"
	ReasonBadSignature    Reason = "bad_signature"
	ReasonSessionNotFound Reason = "session_not_found"
	ReasonNotActive       Reason = "session_not_active"
	ReasonMismatch        Reason = "token_mismatch"
	ReasonClockSkew       Reason = "clock_skew"
	ReasonExpired         Reason = "expired"
	ReasonLowConfidence   Reason = "low_confidence"
	ReasonAlreadyMarked   Reason = "already_marked"
)

// ChannelScores are the per-channel contributions, each in [0,1].
type ChannelScores struct {
	Token    float64 `json:"token"`
	Radio    float64 `json:"radio"`
	Network  float64 `json:"network"`
	Position float64 `json:"position"`
}

// Verdict is the final decision for one verification attempt. Immutable
// once emitted.
type Verdict struct {
	Matched    bool          `json:"matched"`
	Confidence float64       `json:"confidence"`
	Reason     Reason        `json:"reason,omitempty"`
	Scores     ChannelScores `json:"scores"`
	Notes      string        `json:"notes,omitempty"`
}

// AttendanceRecord is the ledger row for a holder's final verdict in a
// session.
type AttendanceRecord struct {
	ID          string
	SessionID   string
	HolderID    string
	Status      string
	Confidence  float64
	TokenValid  bool
	RadioScore  float64
	WifiScore   float64
	GPSScore    float64
	SubmittedAt time.Time
}

// ScanLog is the audit record for one verification attempt. The scanned
// token is stored as a fingerprint, not raw, so logs cannot be replayed.
type ScanLog struct {
	ID               string
	SessionID        string
	HolderID         string
	TokenFingerprint string
	DeviceID         string
	WifiSSID         string
	WifiBSSID        string
	GPSLatitude      float64
	GPSLongitude     float64
	GPSAccuracy      float64
	BeaconCount      int
	Notes            string
	ScannedAt        time.Time
}
