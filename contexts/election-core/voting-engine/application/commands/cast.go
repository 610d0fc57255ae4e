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
	"scrutin/internal/shared/blindsig"
)

const ballotSaltByteLen = 8

// CastBallotCommand is the write-model input for casting. VotingCode is the
// clear credential the registry checks before the ballot is sealed.
// VerificationCode travels into the sealed payload and is only ever checked
// as a hash during scrutiny.
type CastBallotCommand struct {
	SessionID        string
	ElectorID        string
	Option           string
	VotingCode       string
	VerificationCode string
}

// CastBallotResult returns the recorded ballot handle. The handle supports
// bookkeeping only; nothing links it back to the elector.
type CastBallotResult struct {
	Ballot entities.Ballot
}

// CastUseCase orchestrates ballot casting: option and session validation,
// eligibility, voting-code, and double-vote checks through the registry
// gate, sealing outside the critical section, and the ledger's atomic
// commit.
type CastUseCase struct {
	Sessions ports.SessionRepository
	Ledger   ports.CastLedger
	Gate     ports.ElectorGate
	Sealer   ports.BallotSealer
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger
}

// CastBallot validates, seals, and commits one ballot. Failures are final:
// no state changes on any error path, and concurrent casts for the same
// elector resolve to exactly one recorded ballot.
func (uc CastUseCase) CastBallot(ctx context.Context, cmd CastBallotCommand) (CastBallotResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	sessionID := strings.TrimSpace(cmd.SessionID)
	electorID := strings.TrimSpace(cmd.ElectorID)
	option := strings.TrimSpace(cmd.Option)
	votingCode := strings.TrimSpace(cmd.VotingCode)

	logger.Info("ballot cast processing started",
		"event", "voting_cast_started",
		"module", "election-core/voting-engine",
		"layer", "application",
		"session_id", sessionID,
	)
	if sessionID == "" || electorID == "" || option == "" || votingCode == "" {
		logger.Warn("ballot cast validation failed",
			"event", "voting_cast_validation_failed",
			"module", "election-core/voting-engine",
			"layer", "application",
			"session_id", sessionID,
		)
		return CastBallotResult{}, domainerrors.ErrInvalidCastInput
	}

	now := uc.now()
	session, err := uc.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return CastBallotResult{}, err
	}
	if !session.AcceptsBallots(now) {
		return CastBallotResult{}, domainerrors.ErrVotingClosed
	}
	if !session.HasOption(option) {
		logger.Warn("ballot cast rejected for unknown option",
			"event", "voting_cast_invalid_option",
			"module", "election-core/voting-engine",
			"layer", "application",
			"session_id", sessionID,
		)
		return CastBallotResult{}, domainerrors.ErrInvalidOption
	}

	eligible, err := uc.Gate.Eligible(ctx, electorID)
	if err != nil {
		logger.Error("ballot cast registry lookup failed",
			"event", "voting_cast_registry_lookup_failed",
			"module", "election-core/voting-engine",
			"layer", "application",
			"session_id", sessionID,
			"error", err.Error(),
		)
		return CastBallotResult{}, err
	}
	if !eligible {
		return CastBallotResult{}, domainerrors.ErrIneligibleElector
	}
	codeValid, err := uc.Gate.VerifyVotingCode(ctx, electorID, votingCode)
	if err != nil {
		return CastBallotResult{}, err
	}
	if !codeValid {
		logger.Warn("ballot cast rejected for bad voting code",
			"event", "voting_cast_invalid_voting_code",
			"module", "election-core/voting-engine",
			"layer", "application",
			"session_id", sessionID,
		)
		return CastBallotResult{}, domainerrors.ErrInvalidVotingCode
	}
	// Fast-path rejection; the ledger re-checks under its own exclusion so a
	// racing duplicate still loses at commit time.
	voted, err := uc.Gate.HasVoted(ctx, electorID)
	if err != nil {
		return CastBallotResult{}, err
	}
	if voted {
		return CastBallotResult{}, domainerrors.ErrAlreadyVoted
	}

	envelope, err := uc.seal(ctx, option, strings.TrimSpace(cmd.VerificationCode))
	if err != nil {
		logger.Error("ballot sealing failed",
			"event", "voting_cast_seal_failed",
			"module", "election-core/voting-engine",
			"layer", "application",
			"session_id", sessionID,
			"error", err.Error(),
		)
		return CastBallotResult{}, domainerrors.ErrSealingFailed
	}

	ballotID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return CastBallotResult{}, err
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return CastBallotResult{}, err
	}
	ballot := entities.Ballot{
		BallotID:        ballotID,
		SessionID:       sessionID,
		SealedPayload:   envelope.Payload,
		SealedSignature: envelope.Signature,
		RecordedAt:      now,
	}
	event, err := newElectionEnvelope(eventID, "election.ballot.recorded", sessionID, now, map[string]any{
		"ballot_id":   ballotID,
		"session_id":  sessionID,
		"occurred_at": now.Format(time.RFC3339),
	})
	if err != nil {
		return CastBallotResult{}, err
	}

	recorded, err := uc.Ledger.RecordCast(ctx, electorID, ballot, event)
	if err != nil {
		logger.Warn("ballot cast commit rejected",
			"event", "voting_cast_commit_rejected",
			"module", "election-core/voting-engine",
			"layer", "application",
			"session_id", sessionID,
			"error", err.Error(),
		)
		return CastBallotResult{}, err
	}

	logger.Info("ballot recorded",
		"event", "voting_ballot_recorded",
		"module", "election-core/voting-engine",
		"layer", "application",
		"session_id", sessionID,
		"ballot_id", recorded.BallotID,
		"position", recorded.Position,
	)
	return CastBallotResult{Ballot: recorded}, nil
}

// seal builds the choice||code||salt payload and runs the blind-sign and
// seal protocol against the ballot authority.
func (uc CastUseCase) seal(ctx context.Context, option string, verificationCode string) (ports.SealedEnvelope, error) {
	salt, err := blindsig.RandomCode(ballotSaltByteLen)
	if err != nil {
		return ports.SealedEnvelope{}, err
	}
	payload := strings.Join([]string{option, verificationCode, salt}, entities.BallotPayloadSeparator)
	return uc.Sealer.SealBallot(ctx, payload)
}

func (uc CastUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}
