package unit

import (
	"context"
	"errors"
	"fmt"
	"testing"

	registryerrors "scrutin/contexts/election-core/elector-registry/domain/errors"
	registryhttp "scrutin/contexts/election-core/elector-registry/transport/http"
)

func TestRegisterElectorIssuesOneTimeCodes(t *testing.T) {
	app := newElectionApp(t)
	resp := registerElector(t, app, "Ada")

	if resp.ElectorID == "" {
		t.Fatalf("expected a generated elector id")
	}
	if resp.VotingCode == "" || resp.VerificationCode == "" {
		t.Fatalf("expected both credentials issued at registration")
	}
	if resp.VotingCode == resp.VerificationCode {
		t.Fatalf("voting and verification codes must differ")
	}

	voter, err := app.Registry.Handler.GetElectorHandler(context.Background(), resp.ElectorID)
	if err != nil {
		t.Fatalf("get elector failed: %v", err)
	}
	if voter.HasVoted {
		t.Fatalf("fresh elector must not be marked as having voted")
	}
}

func TestRegisterElectorRequiresDisplayName(t *testing.T) {
	app := newElectionApp(t)
	_, err := app.Registry.Handler.RegisterElectorHandler(context.Background(), registryhttp.RegisterElectorRequest{
		DisplayName: "   ",
	})
	if !errors.Is(err, registryerrors.ErrInvalidElectorInput) {
		t.Fatalf("expected ErrInvalidElectorInput, got %v", err)
	}
}

func TestSeedElectorsNamesCitizens(t *testing.T) {
	app := newElectionApp(t)
	resp, err := app.Registry.Handler.SeedElectorsHandler(context.Background(), registryhttp.SeedElectorsRequest{
		Count: 5,
	})
	if err != nil {
		t.Fatalf("seed electors failed: %v", err)
	}
	if len(resp.Electors) != 5 {
		t.Fatalf("expected 5 seeded electors, got %d", len(resp.Electors))
	}
	for i, elector := range resp.Electors {
		want := fmt.Sprintf("Citizen %d", i+1)
		if elector.DisplayName != want {
			t.Fatalf("expected seeded name %q, got %q", want, elector.DisplayName)
		}
	}

	roll, err := app.Registry.Handler.ListElectorsHandler(context.Background())
	if err != nil {
		t.Fatalf("list electors failed: %v", err)
	}
	if len(roll.Electors) != 5 {
		t.Fatalf("expected 5 electors on the roll, got %d", len(roll.Electors))
	}
	if roll.VotedCount != 0 {
		t.Fatalf("expected voted count 0 on a fresh roll, got %d", roll.VotedCount)
	}
}

func TestRollHidesCredentials(t *testing.T) {
	app := newElectionApp(t)
	registered := registerElector(t, app, "Ada")

	roll, err := app.Registry.Handler.ListElectorsHandler(context.Background())
	if err != nil {
		t.Fatalf("list electors failed: %v", err)
	}
	if len(roll.Electors) != 1 {
		t.Fatalf("expected 1 elector, got %d", len(roll.Electors))
	}
	// ElectorResponse carries no code fields at all; check the roll still
	// resolves the registered elector.
	if roll.Electors[0].ElectorID != registered.ElectorID {
		t.Fatalf("roll does not contain the registered elector")
	}
}

func TestUnknownElectorLookup(t *testing.T) {
	app := newElectionApp(t)
	_, err := app.Registry.Handler.GetElectorHandler(context.Background(), "ghost-1")
	if !errors.Is(err, registryerrors.ErrElectorNotFound) {
		t.Fatalf("expected ErrElectorNotFound, got %v", err)
	}
}

func TestVerifyBallotCredential(t *testing.T) {
	app := newElectionApp(t)
	registered := registerElector(t, app, "Ada")

	known, err := app.Registry.Roll.VerifyBallotCredential(context.Background(), registered.VerificationCode)
	if err != nil {
		t.Fatalf("verify credential failed: %v", err)
	}
	if !known {
		t.Fatalf("expected issued verification code to be recognized")
	}

	known, err = app.Registry.Roll.VerifyBallotCredential(context.Background(), "FFFFFF")
	if err != nil {
		t.Fatalf("verify forged credential failed: %v", err)
	}
	if known {
		t.Fatalf("expected forged verification code to be rejected")
	}
}
