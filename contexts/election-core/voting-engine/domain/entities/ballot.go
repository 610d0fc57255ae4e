package entities

import "time"

// Ballot is one sealed urn entry. It carries no elector identity: the
// payload and the authority signature are both encrypted to the teller key,
// and the handle is only usable for bookkeeping, never for voter lookup.
type Ballot struct {
	BallotID        string
	SessionID       string
	Position        int
	SealedPayload   string
	SealedSignature string
	RecordedAt      time.Time
}

// BallotPayloadSeparator joins choice, verification code, and salt inside
// the sealed payload.
const BallotPayloadSeparator = "||"
