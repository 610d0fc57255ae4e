package entities

import (
	"strings"
	"time"
)

type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "scheduled"
	SessionStatusOpen      SessionStatus = "open"
	SessionStatusClosed    SessionStatus = "closed"
	SessionStatusArchived  SessionStatus = "archived"
)

// VotingSession bounds one scrutiny: a fixed option set decided before the
// session opens and open/close events that gate casting and tallying.
type VotingSession struct {
	SessionID string
	Name      string
	Options   []string
	Status    SessionStatus
	OpensAt   time.Time
	EndsAt    *time.Time
	ClosedAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AcceptsBallots reports whether a cast may proceed right now.
func (s VotingSession) AcceptsBallots(now time.Time) bool {
	if s.Status != SessionStatusOpen {
		return false
	}
	if s.EndsAt != nil && s.EndsAt.UTC().Before(now.UTC()) {
		return false
	}
	return true
}

// HasOption checks membership in the session's fixed option set.
func (s VotingSession) HasOption(option string) bool {
	option = strings.TrimSpace(option)
	for _, candidate := range s.Options {
		if candidate == option {
			return true
		}
	}
	return false
}
