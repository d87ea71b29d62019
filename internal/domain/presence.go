package domain

import (
	"errors"
	"strings"
	"time"
)

// MaxVisitorIDLength is the longest accepted visitor id after trimming
const MaxVisitorIDLength = 128

// ErrInvalidVisitorID is returned when a visitor id is empty after trimming
// or exceeds MaxVisitorIDLength
var ErrInvalidVisitorID = errors.New("invalid visitor id")

// HeartbeatRequest represents the body of a heartbeat call
type HeartbeatRequest struct {
	ID string `json:"id"`
}

// OnlineSnapshot represents the current presence state reported to clients
type OnlineSnapshot struct {
	Online        int   `json:"online"`
	TotalVisitors int64 `json:"totalVisitors"`
	WindowSeconds int   `json:"windowSeconds"`
}

// PresenceSnapshot represents a snapshot of counter state stored in PostgreSQL
type PresenceSnapshot struct {
	ID            int64     `json:"id" db:"id"`
	TotalVisitors int64     `json:"total_visitors" db:"total_visitors"`
	OnlineCount   int64     `json:"online_count" db:"online_count"`
	SnapshotDate  time.Time `json:"snapshot_date" db:"snapshot_date"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// ValidateVisitorID trims the raw id and checks the length constraints.
// Returns the normalized id, or ErrInvalidVisitorID.
func ValidateVisitorID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > MaxVisitorIDLength {
		return "", ErrInvalidVisitorID
	}
	return id, nil
}
