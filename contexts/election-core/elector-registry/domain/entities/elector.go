package entities

import "time"

// Elector is one entry on the electoral roll. VotingCode is the clear
// credential the registry checks at cast time; VerificationHash is the
// SHA-256 digest of the verification code handed to the elector exactly once
// at registration. The clear verification code is never persisted.
// VotedSessionID records which session consumed the has-voted flag so a
// session reset restores only its own voters.
type Elector struct {
	ElectorID        string
	DisplayName      string
	VotingCode       string
	VerificationHash string
	HasVoted         bool
	VotedSessionID   string
	VotedAt          *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Eligible reports whether the elector may still appear in a cast attempt.
// Registration is the only eligibility gate; revocation is not supported
// during a running session.
func (e Elector) Eligible() bool {
	return e.ElectorID != ""
}
