package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "scrutin/contexts/election-core/voting-engine/application"
	"scrutin/contexts/election-core/voting-engine/domain/entities"
	domainerrors "scrutin/contexts/election-core/voting-engine/domain/errors"
	"scrutin/contexts/election-core/voting-engine/ports"
)

// maxOptionLen keeps the choice||code||salt payload under the signing
// modulus at the 512-bit key floor: 24 option bytes plus separators,
// a 12-char credential, and a 16-char salt stay below 64 bytes.
const maxOptionLen = 24

// OpenSessionCommand opens a voting session with its fixed option set.
type OpenSessionCommand struct {
	Name    string
	Options []string
	EndsAt  *time.Time
}

// SessionUseCase owns the session lifecycle: open, close, and reset. Option
// sets are immutable once the session is open.
type SessionUseCase struct {
	Sessions ports.SessionRepository
	Ledger   ports.CastLedger
	Outbox   ports.OutboxWriter
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger
}

// OpenSession validates the option set and opens a fresh session.
func (uc SessionUseCase) OpenSession(ctx context.Context, cmd OpenSessionCommand) (entities.VotingSession, error) {
	logger := application.ResolveLogger(uc.Logger)
	name := strings.TrimSpace(cmd.Name)
	options := normalizeOptions(cmd.Options)
	if name == "" || len(options) < 2 || longestOption(options) > maxOptionLen {
		logger.Warn("session open validation failed",
			"event", "voting_session_open_validation_failed",
			"module", "election-core/voting-engine",
			"layer", "application",
			"option_count", len(options),
		)
		return entities.VotingSession{}, domainerrors.ErrInvalidSessionInput
	}

	sessionID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.VotingSession{}, err
	}
	now := uc.now()
	session := entities.VotingSession{
		SessionID: sessionID,
		Name:      name,
		Options:   options,
		Status:    entities.SessionStatusOpen,
		OpensAt:   now,
		EndsAt:    cmd.EndsAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.Sessions.SaveSession(ctx, session); err != nil {
		return entities.VotingSession{}, err
	}
	if err := uc.appendSessionEvent(ctx, "election.session.opened", session, now, map[string]any{
		"options": options,
	}); err != nil {
		return entities.VotingSession{}, err
	}
	logger.Info("voting session opened",
		"event", "voting_session_opened",
		"module", "election-core/voting-engine",
		"layer", "application",
		"session_id", sessionID,
		"option_count", len(options),
	)
	return session, nil
}

// CloseSession ends casting for the session. Closing an already-closed
// session fails with ErrVotingClosed; a close is never undone except by a
// full reset.
func (uc SessionUseCase) CloseSession(ctx context.Context, sessionID string) (entities.VotingSession, error) {
	logger := application.ResolveLogger(uc.Logger)
	session, err := uc.Sessions.GetSession(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		return entities.VotingSession{}, err
	}
	if session.Status != entities.SessionStatusOpen {
		return entities.VotingSession{}, domainerrors.ErrVotingClosed
	}

	now := uc.now()
	closedAt := now
	session.Status = entities.SessionStatusClosed
	session.ClosedAt = &closedAt
	session.UpdatedAt = now
	if err := uc.Sessions.SaveSession(ctx, session); err != nil {
		return entities.VotingSession{}, err
	}
	if err := uc.appendSessionEvent(ctx, "election.session.closed", session, now, nil); err != nil {
		return entities.VotingSession{}, err
	}
	logger.Info("voting session closed",
		"event", "voting_session_closed",
		"module", "election-core/voting-engine",
		"layer", "application",
		"session_id", session.SessionID,
	)
	return session, nil
}

// ResetSession clears the urn, restores every has-voted flag, and reopens
// the session. This is the only path on which ballots are removed or flags
// go back to false.
func (uc SessionUseCase) ResetSession(ctx context.Context, sessionID string) (entities.VotingSession, error) {
	logger := application.ResolveLogger(uc.Logger)
	session, err := uc.Sessions.GetSession(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		return entities.VotingSession{}, err
	}

	now := uc.now()
	if err := uc.Ledger.ResetSession(ctx, session.SessionID, now); err != nil {
		logger.Error("session reset ledger failure",
			"event", "voting_session_reset_failed",
			"module", "election-core/voting-engine",
			"layer", "application",
			"session_id", session.SessionID,
			"error", err.Error(),
		)
		return entities.VotingSession{}, err
	}
	session.Status = entities.SessionStatusOpen
	session.ClosedAt = nil
	session.UpdatedAt = now
	if err := uc.Sessions.SaveSession(ctx, session); err != nil {
		return entities.VotingSession{}, err
	}
	if err := uc.appendSessionEvent(ctx, "election.session.reset", session, now, nil); err != nil {
		return entities.VotingSession{}, err
	}
	logger.Info("voting session reset",
		"event", "voting_session_reset",
		"module", "election-core/voting-engine",
		"layer", "application",
		"session_id", session.SessionID,
	)
	return session, nil
}

func (uc SessionUseCase) appendSessionEvent(
	ctx context.Context,
	eventType string,
	session entities.VotingSession,
	occurredAt time.Time,
	metadata map[string]any,
) error {
	// Outbox is optional for pure read/test wiring, so nil is treated as no-op.
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	data := map[string]any{
		"session_id":  session.SessionID,
		"status":      string(session.Status),
		"occurred_at": occurredAt.Format(time.RFC3339),
	}
	for key, value := range metadata {
		data[key] = value
	}
	envelope, err := newElectionEnvelope(eventID, eventType, session.SessionID, occurredAt, data)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}

func (uc SessionUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func normalizeOptions(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	options := make([]string, 0, len(raw))
	for _, option := range raw {
		option = strings.TrimSpace(option)
		if option == "" {
			continue
		}
		if _, dup := seen[option]; dup {
			continue
		}
		seen[option] = struct{}{}
		options = append(options, option)
	}
	return options
}

func longestOption(options []string) int {
	longest := 0
	for _, option := range options {
		if len(option) > longest {
			longest = len(option)
		}
	}
	return longest
}
