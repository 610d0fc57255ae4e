package ports

import (
	"context"
	"time"

	"scrutin/contexts/election-core/tally-engine/domain/entities"
	votingentities "scrutin/contexts/election-core/voting-engine/domain/entities"
	contractsv1 "scrutin/contracts/gen/events/v1"
)

// BallotSource reads a stable snapshot of one session's urn.
type BallotSource interface {
	Snapshot(ctx context.Context, sessionID string) ([]votingentities.Ballot, error)
}

// SessionSource resolves sessions and their option sets.
type SessionSource interface {
	GetSession(ctx context.Context, sessionID string) (votingentities.VotingSession, error)
}

// BallotOpener decrypts a sealed envelope with the teller key and checks the
// authority's blind signature. signatureValid=false with a nil error means
// the envelope opened but carries a forged or missing signature.
type BallotOpener interface {
	OpenBallot(ctx context.Context, sealedPayload string, sealedSignature string) (payload string, signatureValid bool, err error)
}

// CredentialVerifier checks an elector verification code against the
// registry's stored hashes. Only the hash is ever compared; the tally never
// learns which elector a code belongs to.
type CredentialVerifier interface {
	VerifyBallotCredential(ctx context.Context, code string) (bool, error)
}

type ResultStore interface {
	SaveCertifiedResult(ctx context.Context, result entities.CertifiedResult) error
	GetCertifiedResult(ctx context.Context, sessionID string) (entities.CertifiedResult, error)
}

// EventDedupStore reserves consumed event IDs so a redelivered close event
// certifies at most once. Replayed is true when the ID was already reserved.
type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string) (replayed bool, err error)
}

type EventEnvelope = contractsv1.Envelope

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}

type Clock interface {
	Now() time.Time
}
