package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "scrutin/contexts/election-core/elector-registry/application"
	"scrutin/contexts/election-core/elector-registry/domain/entities"
	domainerrors "scrutin/contexts/election-core/elector-registry/domain/errors"
	"scrutin/contexts/election-core/elector-registry/ports"
	"scrutin/internal/shared/blindsig"
)

const credentialByteLen = 6

// RegisterElectorCommand is the write-model input for roll registration.
type RegisterElectorCommand struct {
	DisplayName string
}

// RegisterResult carries the stored elector plus the one-time clear
// verification code. The code appears here and nowhere else; the registry
// keeps only its hash.
type RegisterResult struct {
	Elector          entities.Elector
	VerificationCode string
}

// RegistryUseCase orchestrates roll mutations: registration, seeding, and the
// monotonic has-voted transition.
type RegistryUseCase struct {
	Electors ports.ElectorRepository
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger
}

// RegisterElector adds one elector to the roll and issues both credentials.
func (uc RegistryUseCase) RegisterElector(ctx context.Context, cmd RegisterElectorCommand) (RegisterResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	name := strings.TrimSpace(cmd.DisplayName)
	if name == "" {
		logger.Warn("elector registration validation failed",
			"event", "registry_register_validation_failed",
			"module", "election-core/elector-registry",
			"layer", "application",
		)
		return RegisterResult{}, domainerrors.ErrInvalidElectorInput
	}

	electorID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return RegisterResult{}, err
	}
	votingCode, err := blindsig.RandomCode(credentialByteLen)
	if err != nil {
		return RegisterResult{}, domainerrors.ErrCodeIssuance
	}
	verificationCode, err := blindsig.RandomCode(credentialByteLen)
	if err != nil {
		return RegisterResult{}, domainerrors.ErrCodeIssuance
	}

	now := uc.now()
	elector := entities.Elector{
		ElectorID:        electorID,
		DisplayName:      name,
		VotingCode:       votingCode,
		VerificationHash: blindsig.HashCode(verificationCode),
		HasVoted:         false,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := uc.Electors.SaveElector(ctx, elector); err != nil {
		logger.Error("elector registration save failed",
			"event", "registry_register_save_failed",
			"module", "election-core/elector-registry",
			"layer", "application",
			"elector_id", electorID,
			"error", err.Error(),
		)
		return RegisterResult{}, err
	}
	logger.Info("elector registered",
		"event", "registry_elector_registered",
		"module", "election-core/elector-registry",
		"layer", "application",
		"elector_id", electorID,
	)
	return RegisterResult{
		Elector:          elector,
		VerificationCode: verificationCode,
	}, nil
}

// SeedElectors registers count placeholder electors, mirroring scrutiny
// bootstrap for demos and tests.
func (uc RegistryUseCase) SeedElectors(ctx context.Context, count int) ([]RegisterResult, error) {
	if count <= 0 {
		return nil, domainerrors.ErrInvalidElectorInput
	}
	results := make([]RegisterResult, 0, count)
	for i := 1; i <= count; i++ {
		result, err := uc.RegisterElector(ctx, RegisterElectorCommand{
			DisplayName: fmt.Sprintf("Citizen %d", i),
		})
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// MarkVoted flips the has-voted flag exactly once and records the consuming
// session. It is exposed for callers that already hold the voting engine's
// casting guarantees; the flag never transitions back outside a reset of
// that same session.
func (uc RegistryUseCase) MarkVoted(ctx context.Context, electorID string, sessionID string) error {
	logger := application.ResolveLogger(uc.Logger)
	electorID = strings.TrimSpace(electorID)
	sessionID = strings.TrimSpace(sessionID)
	if electorID == "" || sessionID == "" {
		return domainerrors.ErrInvalidElectorInput
	}
	if err := uc.Electors.MarkVoted(ctx, electorID, sessionID, uc.now()); err != nil {
		logger.Warn("mark voted rejected",
			"event", "registry_mark_voted_rejected",
			"module", "election-core/elector-registry",
			"layer", "application",
			"elector_id", electorID,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("elector marked as voted",
		"event", "registry_elector_marked_voted",
		"module", "election-core/elector-registry",
		"layer", "application",
		"elector_id", electorID,
	)
	return nil
}

func (uc RegistryUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}
