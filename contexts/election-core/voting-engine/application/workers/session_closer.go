package workers

import (
	"context"
	"log/slog"
	"time"

	application "scrutin/contexts/election-core/voting-engine/application"
	"scrutin/contexts/election-core/voting-engine/application/commands"
	"scrutin/contexts/election-core/voting-engine/ports"
)

// SessionCloser retires open sessions whose scheduled end has passed, so
// casting stops without an operator issuing the close call.
type SessionCloser struct {
	Sessions  ports.SessionRepository
	Lifecycle commands.SessionUseCase
	Clock     ports.Clock
	Logger    *slog.Logger
}

// RunOnce closes every expired open session through the regular lifecycle
// path so close events still reach the outbox.
func (c SessionCloser) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	now := time.Now().UTC()
	if c.Clock != nil {
		now = c.Clock.Now().UTC()
	}

	expired, err := c.Sessions.ListExpiredOpenSessions(ctx, now)
	if err != nil {
		logger.Error("session closer list failed",
			"event", "voting_session_closer_list_failed",
			"module", "election-core/voting-engine",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	for _, session := range expired {
		if _, err := c.Lifecycle.CloseSession(ctx, session.SessionID); err != nil {
			logger.Error("session closer close failed",
				"event", "voting_session_closer_close_failed",
				"module", "election-core/voting-engine",
				"layer", "worker",
				"session_id", session.SessionID,
				"error", err.Error(),
			)
			return err
		}
		logger.Info("expired session closed",
			"event", "voting_session_expired_closed",
			"module", "election-core/voting-engine",
			"layer", "worker",
			"session_id", session.SessionID,
		)
	}
	return nil
}
