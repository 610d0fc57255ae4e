package queries

import (
	"context"
	"strings"

	"scrutin/contexts/election-core/tally-engine/domain/entities"
	domainerrors "scrutin/contexts/election-core/tally-engine/domain/errors"
	"scrutin/contexts/election-core/tally-engine/ports"
)

// ResultQueries serves certified results written by the certification worker.
type ResultQueries struct {
	Results ports.ResultStore
}

func (q ResultQueries) CertifiedResult(ctx context.Context, sessionID string) (entities.CertifiedResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return entities.CertifiedResult{}, domainerrors.ErrInvalidTallyInput
	}
	return q.Results.GetCertifiedResult(ctx, sessionID)
}
