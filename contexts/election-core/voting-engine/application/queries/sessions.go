package queries

import (
	"context"
	"strings"

	"scrutin/contexts/election-core/voting-engine/domain/entities"
	"scrutin/contexts/election-core/voting-engine/ports"
)

// SessionQueries answers read-side questions about sessions and the urn.
type SessionQueries struct {
	Sessions ports.SessionRepository
	Ballots  ports.BallotStore
}

// SessionState couples a session with its current urn depth.
type SessionState struct {
	Session     entities.VotingSession
	BallotCount int
}

func (q SessionQueries) GetSession(ctx context.Context, sessionID string) (SessionState, error) {
	session, err := q.Sessions.GetSession(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		return SessionState{}, err
	}
	count, err := q.Ballots.CountBallots(ctx, session.SessionID)
	if err != nil {
		return SessionState{}, err
	}
	return SessionState{
		Session:     session,
		BallotCount: count,
	}, nil
}

func (q SessionQueries) ListSessions(ctx context.Context) ([]SessionState, error) {
	sessions, err := q.Sessions.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	states := make([]SessionState, 0, len(sessions))
	for _, session := range sessions {
		count, err := q.Ballots.CountBallots(ctx, session.SessionID)
		if err != nil {
			return nil, err
		}
		states = append(states, SessionState{
			Session:     session,
			BallotCount: count,
		})
	}
	return states, nil
}

// ListBallots exposes the anonymized urn: sealed envelopes in recording
// order, with no trace of who cast them.
func (q SessionQueries) ListBallots(ctx context.Context, sessionID string) ([]entities.Ballot, error) {
	session, err := q.Sessions.GetSession(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		return nil, err
	}
	return q.Ballots.Snapshot(ctx, session.SessionID)
}
