package queries

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "scrutin/contexts/election-core/tally-engine/application"
	"scrutin/contexts/election-core/tally-engine/domain/entities"
	domainerrors "scrutin/contexts/election-core/tally-engine/domain/errors"
	"scrutin/contexts/election-core/tally-engine/ports"
	votingentities "scrutin/contexts/election-core/voting-engine/domain/entities"
)

// TallyUseCase opens urns and counts ballots. Every run works on a snapshot,
// so repeated tallies over an unchanged urn yield identical results. With
// AllowRunningTally unset a tally over an open session fails with
// ErrSessionStillOpen.
type TallyUseCase struct {
	Sessions          ports.SessionSource
	Ballots           ports.BallotSource
	Opener            ports.BallotOpener
	Credentials       ports.CredentialVerifier
	Clock             ports.Clock
	AllowRunningTally bool
	Logger            *slog.Logger
}

// Tally counts the session's urn and returns the result without the
// rejection log.
func (uc TallyUseCase) Tally(ctx context.Context, sessionID string) (entities.TallyResult, error) {
	report, err := uc.Scrutiny(ctx, sessionID)
	if err != nil {
		return entities.TallyResult{}, err
	}
	return report.Result, nil
}

// Scrutiny opens every envelope in the urn: decrypt with the teller key,
// verify the authority signature, parse the choice, and check the elector
// verification code against the registry hashes. Rejected envelopes land in
// the report's rejection log with their urn position only.
func (uc TallyUseCase) Scrutiny(ctx context.Context, sessionID string) (entities.ScrutinyReport, error) {
	logger := application.ResolveLogger(uc.Logger)
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return entities.ScrutinyReport{}, domainerrors.ErrInvalidTallyInput
	}

	session, err := uc.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return entities.ScrutinyReport{}, err
	}
	final := session.Status != votingentities.SessionStatusOpen
	if !final && !uc.AllowRunningTally {
		return entities.ScrutinyReport{}, domainerrors.ErrSessionStillOpen
	}

	ballots, err := uc.Ballots.Snapshot(ctx, session.SessionID)
	if err != nil {
		return entities.ScrutinyReport{}, err
	}

	startedAt := uc.now()
	logger.Info("scrutiny started",
		"event", "tally_scrutiny_started",
		"module", "election-core/tally-engine",
		"layer", "application",
		"session_id", session.SessionID,
		"ballot_count", len(ballots),
	)

	counts := make(map[string]int, len(session.Options))
	for _, option := range session.Options {
		counts[option] = 0
	}
	seenCredentials := make(map[string]struct{}, len(ballots))
	rejections := make([]entities.ScrutinyRejection, 0)
	accepted := 0

	for _, ballot := range ballots {
		reason, option, err := uc.examine(ctx, session, ballot, seenCredentials)
		if err != nil {
			return entities.ScrutinyReport{}, err
		}
		if reason != "" {
			rejections = append(rejections, entities.ScrutinyRejection{
				Position: ballot.Position,
				BallotID: ballot.BallotID,
				Reason:   reason,
			})
			logger.Warn("ballot rejected during scrutiny",
				"event", "tally_ballot_rejected",
				"module", "election-core/tally-engine",
				"layer", "application",
				"session_id", session.SessionID,
				"position", ballot.Position,
				"reason", reason,
			)
			continue
		}
		counts[option]++
		accepted++
	}

	orderedCounts := make([]entities.OptionCount, 0, len(session.Options))
	for _, option := range session.Options {
		orderedCounts = append(orderedCounts, entities.OptionCount{
			Option: option,
			Count:  counts[option],
		})
	}
	finishedAt := uc.now()
	report := entities.ScrutinyReport{
		SessionID: session.SessionID,
		Result: entities.TallyResult{
			SessionID:    session.SessionID,
			Counts:       orderedCounts,
			TotalBallots: len(ballots),
			Accepted:     accepted,
			Rejected:     len(rejections),
			Final:        final,
			ComputedAt:   finishedAt,
		},
		Rejections: rejections,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	}

	logger.Info("scrutiny finished",
		"event", "tally_scrutiny_finished",
		"module", "election-core/tally-engine",
		"layer", "application",
		"session_id", session.SessionID,
		"accepted", accepted,
		"rejected", len(rejections),
		"final", final,
	)
	return report, nil
}

// examine returns a non-empty rejection reason or the accepted option. An
// error is returned only for infrastructure failures; fraudulent envelopes
// are rejections, not errors.
func (uc TallyUseCase) examine(
	ctx context.Context,
	session votingentities.VotingSession,
	ballot votingentities.Ballot,
	seenCredentials map[string]struct{},
) (string, string, error) {
	payload, signatureValid, err := uc.Opener.OpenBallot(ctx, ballot.SealedPayload, ballot.SealedSignature)
	if err != nil {
		return entities.RejectionUnreadableEnvelope, "", nil
	}
	if !signatureValid {
		return entities.RejectionInvalidSignature, "", nil
	}

	parts := strings.Split(payload, votingentities.BallotPayloadSeparator)
	if len(parts) != 3 {
		return entities.RejectionMalformedPayload, "", nil
	}
	option := strings.TrimSpace(parts[0])
	credential := strings.TrimSpace(parts[1])
	if option == "" || credential == "" {
		return entities.RejectionMalformedPayload, "", nil
	}
	if !session.HasOption(option) {
		return entities.RejectionUnknownOption, "", nil
	}

	known, err := uc.Credentials.VerifyBallotCredential(ctx, credential)
	if err != nil {
		return "", "", err
	}
	if !known {
		return entities.RejectionUnknownCredential, "", nil
	}
	if _, dup := seenCredentials[credential]; dup {
		return entities.RejectionDuplicateCredential, "", nil
	}
	seenCredentials[credential] = struct{}{}
	return "", option, nil
}

func (uc TallyUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}
