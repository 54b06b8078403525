package domain

import "time"

// Session lifecycle states.
const (
	SessionActive    = "active"
	SessionExpired   = "expired"
	SessionCompleted = "completed"
)

// Principal roles.
const (
	RoleHost   = "host"
	RoleHolder = "holder"
)

// Session is one attendance-taking run: a host opens it, tokens rotate
// while it is active, holders submit verification attempts against it.
type Session struct {
	ID                string
	HostID            string
	ClassID           string
	RoomID            string
	SubjectID         string
	Status            string
	Sequence          int64  // last minted rotation sequence
	CurrentToken      string // last minted wire token
	ExpectedAttendees int
	StartedAt         time.Time
	RotatedAt         *time.Time // wall time of the last rotation tick
	EndedAt           *time.Time
}

// Account is a credentialed principal (host or holder). Password hashes
// are argon2id PHC strings.
type Account struct {
	ID           string
	Username     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}
