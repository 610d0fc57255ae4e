package queries

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"scrutin/contexts/election-core/elector-registry/domain/entities"
	domainerrors "scrutin/contexts/election-core/elector-registry/domain/errors"
	"scrutin/contexts/election-core/elector-registry/ports"
	"scrutin/internal/shared/blindsig"
)

// RollQueries answers read-side questions about the electoral roll. These are
// the eligibility checks the voting engine runs before committing a cast and
// the credential check the tally engine runs during scrutiny.
type RollQueries struct {
	Electors ports.ElectorRepository
}

// Eligible reports whether electorID is on the roll. Unknown ids answer
// false with no error; infrastructure failures surface as errors.
func (q RollQueries) Eligible(ctx context.Context, electorID string) (bool, error) {
	_, err := q.Electors.GetElector(ctx, strings.TrimSpace(electorID))
	if err != nil {
		if errors.Is(err, domainerrors.ErrElectorNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// HasVoted reports the current flag for a known elector.
func (q RollQueries) HasVoted(ctx context.Context, electorID string) (bool, error) {
	elector, err := q.Electors.GetElector(ctx, strings.TrimSpace(electorID))
	if err != nil {
		return false, err
	}
	return elector.HasVoted, nil
}

// GetElector returns one roll entry.
func (q RollQueries) GetElector(ctx context.Context, electorID string) (entities.Elector, error) {
	return q.Electors.GetElector(ctx, strings.TrimSpace(electorID))
}

// ListElectors returns the full roll in registration order.
func (q RollQueries) ListElectors(ctx context.Context) ([]entities.Elector, error) {
	return q.Electors.ListElectors(ctx)
}

// CountVoted counts electors whose flag is set. The tally sum property is
// checked against this figure.
func (q RollQueries) CountVoted(ctx context.Context) (int, error) {
	return q.Electors.CountVoted(ctx)
}

// VerifyBallotCredential checks a clear verification code against the hashed
// roll credentials without learning which elector it belongs to.
func (q RollQueries) VerifyBallotCredential(ctx context.Context, code string) (bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return false, nil
	}
	return q.Electors.HasVerificationHash(ctx, blindsig.HashCode(code))
}

// VerifyVotingCode checks the clear voting code held on the roll for one
// elector. Unknown electors answer false with no error so the gate stays
// uniform for forged and missing identities alike.
func (q RollQueries) VerifyVotingCode(ctx context.Context, electorID string, code string) (bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return false, nil
	}
	elector, err := q.Electors.GetElector(ctx, strings.TrimSpace(electorID))
	if err != nil {
		if errors.Is(err, domainerrors.ErrElectorNotFound) {
			return false, nil
		}
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(elector.VotingCode), []byte(code)) == 1, nil
}
