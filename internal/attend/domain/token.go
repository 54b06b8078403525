package domain

// TokenUpdate is the authoritative rotation state for a session: the
// two live tokens of the overlap window plus their timing. One is
// produced per rotation tick and replaces the prior state wholesale;
// PreviousToken is carried for exactly one rotation interval.
type TokenUpdate struct {
	SessionID         string
	CurrentToken      string
	PreviousToken     string
	CurrentTimestamp  int64
	PreviousTimestamp int64
	CurrentExpiry     int64
	PreviousExpiry    int64
	Sequence          int64
	Status            string
}
