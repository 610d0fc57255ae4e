package ports

import (
	"context"
	"time"

	"scrutin/contexts/election-core/voting-engine/domain/entities"
	contractsv1 "scrutin/contracts/gen/events/v1"
)

type SessionRepository interface {
	SaveSession(ctx context.Context, session entities.VotingSession) error
	GetSession(ctx context.Context, sessionID string) (entities.VotingSession, error)
	ListSessions(ctx context.Context) ([]entities.VotingSession, error)
	ListExpiredOpenSessions(ctx context.Context, now time.Time) ([]entities.VotingSession, error)
}

// BallotStore is the read side of the urn. Snapshot returns a stable copy in
// recording order so tallying never iterates a mutating collection.
type BallotStore interface {
	Snapshot(ctx context.Context, sessionID string) ([]entities.Ballot, error)
	CountBallots(ctx context.Context, sessionID string) (int, error)
}

// CastLedger is the single atomic commit point of a cast: it flips the
// elector's has-voted flag, assigns the ballot its urn position, and appends
// the outbox event, all visible together or not at all. Under concurrent
// casts for one elector exactly one call succeeds; the others fail with
// ErrAlreadyVoted. ResetSession clears the session's urn and restores every
// flag in the same atomic fashion.
type CastLedger interface {
	RecordCast(ctx context.Context, electorID string, ballot entities.Ballot, event EventEnvelope) (entities.Ballot, error)
	ResetSession(ctx context.Context, sessionID string, resetAt time.Time) error
}

// ElectorGate is the registry contract the engine consults before
// committing a cast. VerifyVotingCode checks the clear voting code handed
// out at registration; a cast without it never reaches the ledger.
type ElectorGate interface {
	Eligible(ctx context.Context, electorID string) (bool, error)
	HasVoted(ctx context.Context, electorID string) (bool, error)
	VerifyVotingCode(ctx context.Context, electorID string, code string) (bool, error)
}

// SealedEnvelope carries the encrypted ballot payload and the authority's
// blind signature, both hex encoded.
type SealedEnvelope struct {
	Payload   string
	Signature string
}

// BallotSealer blind-signs and seals a clear ballot payload. Sealing happens
// outside the cast critical section.
type BallotSealer interface {
	SealBallot(ctx context.Context, payload string) (SealedEnvelope, error)
}

type EventEnvelope = contractsv1.Envelope

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
