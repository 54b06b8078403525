package relayclient

import (
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/pkg/tokencache"
)

// Relay message types.
const (
	TypeQRUpdate         = "qr_update"
	TypeAttendanceUpdate = "attendance_update"
	TypeSessionStatus    = "session_status"
)

// Message is one relay push. Which fields are populated depends on Type;
// unknown fields from newer servers are ignored.
type Message struct {
	Type string `json:"type"`

	// qr_update
	SessionID         string `json:"session_id,omitempty"`
	QRToken           string `json:"qr_token,omitempty"`
	PreviousToken     string `json:"previous_token,omitempty"`
	SequenceNumber    int64  `json:"sequence_number,omitempty"`
	Timestamp         int64  `json:"timestamp,omitempty"`
	PreviousTimestamp int64  `json:"previous_timestamp,omitempty"`
	Expiry            int64  `json:"expiry,omitempty"`
	PreviousExpiry    int64  `json:"previous_expiry,omitempty"`

	// qr_update and session_status
	Status string `json:"status,omitempty"`

	// attendance_update
	TotalPresent int `json:"total_present,omitempty"`
	TotalFailed  int `json:"total_failed,omitempty"`
	TotalPending int `json:"total_pending,omitempty"`
	Total        int `json:"total,omitempty"`
}

// CacheUpdate converts a qr_update or session_status message into the
// holder cache's update form. The second return is false for other
// message types. A session_status message carries no tokens; the cache
// keeps its pair and only records the terminal status.
func (m Message) CacheUpdate() (tokencache.Update, bool) {
	switch m.Type {
	case TypeQRUpdate:
	case TypeSessionStatus:
		return tokencache.Update{
			SessionID: m.SessionID,
			Status:    m.Status,
		}, true
	default:
		return tokencache.Update{}, false
	}
	return tokencache.Update{
		SessionID:         m.SessionID,
		CurrentToken:      m.QRToken,
		PreviousToken:     m.PreviousToken,
		CurrentTimestamp:  m.Timestamp,
		PreviousTimestamp: m.PreviousTimestamp,
		CurrentExpiry:     m.Expiry,
		PreviousExpiry:    m.PreviousExpiry,
		Sequence:          m.SequenceNumber,
		Status:            m.Status,
	}, true
}
