package ports

import (
	"context"
	"time"

	"scrutin/contexts/election-core/elector-registry/domain/entities"
)

// ElectorRepository is the registry's view of the election ledger. MarkVoted
// must be a compare-and-set: concurrent calls for one elector succeed exactly
// once and every other call fails with ErrAlreadyVoted. The session that
// consumed the flag is recorded so only that session's reset restores it.
type ElectorRepository interface {
	SaveElector(ctx context.Context, elector entities.Elector) error
	GetElector(ctx context.Context, electorID string) (entities.Elector, error)
	ListElectors(ctx context.Context) ([]entities.Elector, error)
	MarkVoted(ctx context.Context, electorID string, sessionID string, votedAt time.Time) error
	CountVoted(ctx context.Context) (int, error)
	HasVerificationHash(ctx context.Context, hash string) (bool, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
