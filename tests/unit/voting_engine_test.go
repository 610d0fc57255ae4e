package unit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	registryhttp "scrutin/contexts/election-core/elector-registry/transport/http"
	votingerrors "scrutin/contexts/election-core/voting-engine/domain/errors"
	votinghttp "scrutin/contexts/election-core/voting-engine/transport/http"
	"scrutin/internal/app/bootstrap"
)

const testKeyBits = 512

func newElectionApp(t *testing.T) *bootstrap.InMemoryApp {
	t.Helper()
	app, err := bootstrap.BuildInMemory(testKeyBits, false, nil)
	if err != nil {
		t.Fatalf("build in-memory app failed: %v", err)
	}
	return app
}

func registerElector(t *testing.T, app *bootstrap.InMemoryApp, name string) registryhttp.RegisterElectorResponse {
	t.Helper()
	resp, err := app.Registry.Handler.RegisterElectorHandler(context.Background(), registryhttp.RegisterElectorRequest{
		DisplayName: name,
	})
	if err != nil {
		t.Fatalf("register elector %q failed: %v", name, err)
	}
	return resp
}

func openSession(t *testing.T, app *bootstrap.InMemoryApp, options ...string) votinghttp.SessionResponse {
	t.Helper()
	resp, err := app.Voting.Handler.OpenSessionHandler(context.Background(), votinghttp.OpenSessionRequest{
		Name:    "test ballot",
		Options: options,
	})
	if err != nil {
		t.Fatalf("open session failed: %v", err)
	}
	return resp
}

func castBallot(
	app *bootstrap.InMemoryApp,
	sessionID string,
	elector registryhttp.RegisterElectorResponse,
	option string,
) (votinghttp.CastBallotResponse, error) {
	return app.Voting.Handler.CastBallotHandler(context.Background(), sessionID, votinghttp.CastBallotRequest{
		ElectorID:        elector.ElectorID,
		VotingCode:       elector.VotingCode,
		VerificationCode: elector.VerificationCode,
		Option:           option,
	})
}

func TestCastBallotSealsEnvelope(t *testing.T) {
	app := newElectionApp(t)
	elector := registerElector(t, app, "Ada")
	session := openSession(t, app, "Rose", "Tulipe")

	cast, err := castBallot(app, session.SessionID, elector, "Rose")
	if err != nil {
		t.Fatalf("cast ballot failed: %v", err)
	}
	if cast.Position != 1 {
		t.Fatalf("expected urn position 1, got %d", cast.Position)
	}

	state, err := app.Voting.Handler.GetSessionHandler(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("get session failed: %v", err)
	}
	if state.BallotCount != 1 {
		t.Fatalf("expected 1 ballot in urn, got %d", state.BallotCount)
	}

	urn, err := app.Voting.Handler.ListBallotsHandler(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("list ballots failed: %v", err)
	}
	if len(urn.Ballots) != 1 {
		t.Fatalf("expected 1 sealed ballot, got %d", len(urn.Ballots))
	}
	if strings.Contains(urn.Ballots[0].SealedPayload, "Rose") {
		t.Fatalf("sealed payload leaks the chosen option")
	}
	if strings.Contains(urn.Ballots[0].SealedPayload, elector.ElectorID) {
		t.Fatalf("sealed payload leaks the elector identity")
	}

	voter, err := app.Registry.Handler.GetElectorHandler(context.Background(), elector.ElectorID)
	if err != nil {
		t.Fatalf("get elector failed: %v", err)
	}
	if !voter.HasVoted {
		t.Fatalf("expected elector marked as having voted")
	}
}

func TestDoubleCastRejected(t *testing.T) {
	app := newElectionApp(t)
	elector := registerElector(t, app, "Ada")
	session := openSession(t, app, "Rose", "Tulipe")

	if _, err := castBallot(app, session.SessionID, elector, "Rose"); err != nil {
		t.Fatalf("first cast failed: %v", err)
	}
	_, err := castBallot(app, session.SessionID, elector, "Tulipe")
	if !errors.Is(err, votingerrors.ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted, got %v", err)
	}

	state, err := app.Voting.Handler.GetSessionHandler(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("get session failed: %v", err)
	}
	if state.BallotCount != 1 {
		t.Fatalf("expected urn unchanged after rejected cast, got %d ballots", state.BallotCount)
	}
}

func TestCastUnknownOptionRejected(t *testing.T) {
	app := newElectionApp(t)
	elector := registerElector(t, app, "Ada")
	session := openSession(t, app, "Rose", "Tulipe")

	_, err := castBallot(app, session.SessionID, elector, "Orchidee")
	if !errors.Is(err, votingerrors.ErrInvalidOption) {
		t.Fatalf("expected ErrInvalidOption, got %v", err)
	}

	voter, err := app.Registry.Handler.GetElectorHandler(context.Background(), elector.ElectorID)
	if err != nil {
		t.Fatalf("get elector failed: %v", err)
	}
	if voter.HasVoted {
		t.Fatalf("rejected cast must not mark the elector as having voted")
	}
}

func TestCastIneligibleElectorRejected(t *testing.T) {
	app := newElectionApp(t)
	session := openSession(t, app, "Rose", "Tulipe")

	_, err := castBallot(app, session.SessionID, registryhttp.RegisterElectorResponse{
		ElectorID:        "ghost-1",
		VotingCode:       "ABCDEF",
		VerificationCode: "ABCDEF",
	}, "Rose")
	if !errors.Is(err, votingerrors.ErrIneligibleElector) {
		t.Fatalf("expected ErrIneligibleElector, got %v", err)
	}
}

func TestCastRequiresVotingCode(t *testing.T) {
	app := newElectionApp(t)
	elector := registerElector(t, app, "Ada")
	session := openSession(t, app, "Rose", "Tulipe")

	forged := elector
	forged.VotingCode = "000000000000"
	if _, err := castBallot(app, session.SessionID, forged, "Rose"); !errors.Is(err, votingerrors.ErrInvalidVotingCode) {
		t.Fatalf("expected ErrInvalidVotingCode for a wrong code, got %v", err)
	}

	blank := elector
	blank.VotingCode = "  "
	if _, err := castBallot(app, session.SessionID, blank, "Rose"); !errors.Is(err, votingerrors.ErrInvalidCastInput) {
		t.Fatalf("expected ErrInvalidCastInput for a missing code, got %v", err)
	}

	voter, err := app.Registry.Handler.GetElectorHandler(context.Background(), elector.ElectorID)
	if err != nil {
		t.Fatalf("get elector failed: %v", err)
	}
	if voter.HasVoted {
		t.Fatalf("rejected credential must not consume the vote")
	}
	if _, err := castBallot(app, session.SessionID, elector, "Rose"); err != nil {
		t.Fatalf("cast with the issued code failed: %v", err)
	}
}

func TestCastAfterCloseRejected(t *testing.T) {
	app := newElectionApp(t)
	elector := registerElector(t, app, "Ada")
	session := openSession(t, app, "Rose", "Tulipe")

	if _, err := app.Voting.Handler.CloseSessionHandler(context.Background(), session.SessionID); err != nil {
		t.Fatalf("close session failed: %v", err)
	}
	if _, err := castBallot(app, session.SessionID, elector, "Rose"); !errors.Is(err, votingerrors.ErrVotingClosed) {
		t.Fatalf("expected ErrVotingClosed, got %v", err)
	}
	if _, err := app.Voting.Handler.CloseSessionHandler(context.Background(), session.SessionID); !errors.Is(err, votingerrors.ErrVotingClosed) {
		t.Fatalf("expected ErrVotingClosed on double close, got %v", err)
	}
}

func TestResetEmptiesUrnAndRestoresRoll(t *testing.T) {
	app := newElectionApp(t)
	elector := registerElector(t, app, "Ada")
	session := openSession(t, app, "Rose", "Tulipe")

	if _, err := castBallot(app, session.SessionID, elector, "Rose"); err != nil {
		t.Fatalf("cast failed: %v", err)
	}
	if _, err := app.Voting.Handler.CloseSessionHandler(context.Background(), session.SessionID); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if _, err := app.Voting.Handler.ResetSessionHandler(context.Background(), session.SessionID); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	state, err := app.Voting.Handler.GetSessionHandler(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("get session failed: %v", err)
	}
	if state.BallotCount != 0 {
		t.Fatalf("expected empty urn after reset, got %d ballots", state.BallotCount)
	}
	if state.Status != "open" {
		t.Fatalf("expected session reopened after reset, got %s", state.Status)
	}

	voter, err := app.Registry.Handler.GetElectorHandler(context.Background(), elector.ElectorID)
	if err != nil {
		t.Fatalf("get elector failed: %v", err)
	}
	if voter.HasVoted {
		t.Fatalf("expected has-voted flag cleared by reset")
	}
	if _, err := castBallot(app, session.SessionID, elector, "Tulipe"); err != nil {
		t.Fatalf("cast after reset failed: %v", err)
	}
}

func TestConcurrentCastsRecordExactlyOneBallot(t *testing.T) {
	app := newElectionApp(t)
	elector := registerElector(t, app, "Ada")
	session := openSession(t, app, "Rose", "Tulipe")

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := castBallot(app, session.SessionID, elector, "Rose")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		if !errors.Is(err, votingerrors.ErrAlreadyVoted) {
			t.Fatalf("unexpected concurrent cast error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one successful cast, got %d", succeeded)
	}

	state, err := app.Voting.Handler.GetSessionHandler(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("get session failed: %v", err)
	}
	if state.BallotCount != 1 {
		t.Fatalf("expected exactly one ballot in urn, got %d", state.BallotCount)
	}
}

func TestOpenSessionValidation(t *testing.T) {
	app := newElectionApp(t)
	_, err := app.Voting.Handler.OpenSessionHandler(context.Background(), votinghttp.OpenSessionRequest{
		Name:    "lonely option",
		Options: []string{"Rose", "Rose", "  "},
	})
	if !errors.Is(err, votingerrors.ErrInvalidSessionInput) {
		t.Fatalf("expected ErrInvalidSessionInput for deduplicated single option, got %v", err)
	}

	_, err = app.Voting.Handler.OpenSessionHandler(context.Background(), votinghttp.OpenSessionRequest{
		Name:    "oversized option",
		Options: []string{"Rose", strings.Repeat("x", 25)},
	})
	if !errors.Is(err, votingerrors.ErrInvalidSessionInput) {
		t.Fatalf("expected ErrInvalidSessionInput for an oversized option, got %v", err)
	}
}

func TestResetRestoresOnlyItsOwnVoters(t *testing.T) {
	app := newElectionApp(t)
	elector := registerElector(t, app, "Ada")
	sessionA := openSession(t, app, "Rose", "Tulipe")
	sessionB := openSession(t, app, "Pour", "Contre")

	if _, err := castBallot(app, sessionA.SessionID, elector, "Rose"); err != nil {
		t.Fatalf("cast in first session failed: %v", err)
	}
	if _, err := app.Voting.Handler.ResetSessionHandler(context.Background(), sessionB.SessionID); err != nil {
		t.Fatalf("reset of the other session failed: %v", err)
	}

	// The other session's reset must not hand the elector a second ballot.
	if _, err := castBallot(app, sessionA.SessionID, elector, "Tulipe"); !errors.Is(err, votingerrors.ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted after unrelated reset, got %v", err)
	}
	state, err := app.Voting.Handler.GetSessionHandler(context.Background(), sessionA.SessionID)
	if err != nil {
		t.Fatalf("get session failed: %v", err)
	}
	if state.BallotCount != 1 {
		t.Fatalf("expected untouched urn to hold 1 ballot, got %d", state.BallotCount)
	}

	if _, err := app.Voting.Handler.ResetSessionHandler(context.Background(), sessionA.SessionID); err != nil {
		t.Fatalf("reset of the voted session failed: %v", err)
	}
	if _, err := castBallot(app, sessionA.SessionID, elector, "Tulipe"); err != nil {
		t.Fatalf("cast after own-session reset failed: %v", err)
	}
}
