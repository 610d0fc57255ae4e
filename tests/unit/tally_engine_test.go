package unit

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	tallyworkers "scrutin/contexts/election-core/tally-engine/application/workers"
	tallyerrors "scrutin/contexts/election-core/tally-engine/domain/errors"
	votingentities "scrutin/contexts/election-core/voting-engine/domain/entities"
	contractsv1 "scrutin/contracts/gen/events/v1"
	"scrutin/internal/app/bootstrap"
)

func TestTallyCountsEachBallotOnce(t *testing.T) {
	app := newElectionApp(t)
	session := openSession(t, app, "Rose", "Tulipe", "Orchidee")

	electorA := registerElector(t, app, "Ada")
	electorB := registerElector(t, app, "Blaise")
	if _, err := castBallot(app, session.SessionID, electorA, "Rose"); err != nil {
		t.Fatalf("cast A failed: %v", err)
	}
	if _, err := castBallot(app, session.SessionID, electorB, "Tulipe"); err != nil {
		t.Fatalf("cast B failed: %v", err)
	}
	if _, err := app.Voting.Handler.CloseSessionHandler(context.Background(), session.SessionID); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	tally, err := app.Tally.Handler.TallyHandler(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("tally failed: %v", err)
	}
	if tally.TotalBallots != 2 || tally.Accepted != 2 || tally.Rejected != 0 {
		t.Fatalf("unexpected tally totals: %+v", tally)
	}
	want := map[string]int{"Rose": 1, "Tulipe": 1, "Orchidee": 0}
	if len(tally.Counts) != 3 {
		t.Fatalf("expected every option in the counts, got %d entries", len(tally.Counts))
	}
	for _, count := range tally.Counts {
		if want[count.Option] != count.Count {
			t.Fatalf("option %s: expected %d, got %d", count.Option, want[count.Option], count.Count)
		}
	}
	if !tally.Final {
		t.Fatalf("tally over a closed session must be final")
	}
}

func TestTallyIsIdempotent(t *testing.T) {
	app := newElectionApp(t)
	session := openSession(t, app, "Rose", "Tulipe")

	for i, option := range []string{"Rose", "Rose", "Tulipe", "Rose", "Tulipe"} {
		elector := registerElector(t, app, "Citizen "+string(rune('A'+i)))
		if _, err := castBallot(app, session.SessionID, elector, option); err != nil {
			t.Fatalf("cast %d failed: %v", i, err)
		}
	}
	if _, err := app.Voting.Handler.CloseSessionHandler(context.Background(), session.SessionID); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	first, err := app.Tally.Handler.TallyHandler(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("first tally failed: %v", err)
	}
	second, err := app.Tally.Handler.TallyHandler(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("second tally failed: %v", err)
	}
	if !reflect.DeepEqual(first.Counts, second.Counts) {
		t.Fatalf("tally over an unchanged urn must be stable: %+v vs %+v", first.Counts, second.Counts)
	}
	if first.Accepted != 5 || first.TotalBallots != 5 {
		t.Fatalf("expected 5 accepted ballots, got %+v", first)
	}
	voted, err := app.Registry.Roll.CountVoted(context.Background())
	if err != nil {
		t.Fatalf("count voted failed: %v", err)
	}
	if voted != first.Accepted {
		t.Fatalf("accepted ballots (%d) must equal voted electors (%d)", first.Accepted, voted)
	}
	if len(first.Winners) != 1 || first.Winners[0] != "Rose" {
		t.Fatalf("expected Rose as sole winner, got %v", first.Winners)
	}
}

func TestTallyBlockedWhileSessionOpen(t *testing.T) {
	app := newElectionApp(t)
	session := openSession(t, app, "Rose", "Tulipe")

	_, err := app.Tally.Handler.TallyHandler(context.Background(), session.SessionID)
	if !errors.Is(err, tallyerrors.ErrSessionStillOpen) {
		t.Fatalf("expected ErrSessionStillOpen, got %v", err)
	}
}

func TestRunningTallyWhenEnabled(t *testing.T) {
	app, err := bootstrap.BuildInMemory(testKeyBits, true, nil)
	if err != nil {
		t.Fatalf("build in-memory app failed: %v", err)
	}
	session := openSession(t, app, "Rose", "Tulipe")
	elector := registerElector(t, app, "Ada")
	if _, err := castBallot(app, session.SessionID, elector, "Rose"); err != nil {
		t.Fatalf("cast failed: %v", err)
	}

	tally, err := app.Tally.Handler.TallyHandler(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("running tally failed: %v", err)
	}
	if tally.Final {
		t.Fatalf("running tally over an open session must not be final")
	}
	if tally.Accepted != 1 {
		t.Fatalf("expected 1 accepted ballot, got %d", tally.Accepted)
	}
}

func TestScrutinyRejectsForgedCredential(t *testing.T) {
	app := newElectionApp(t)
	session := openSession(t, app, "Rose", "Tulipe")

	honest := registerElector(t, app, "Ada")
	cheat := registerElector(t, app, "Mallory")
	cheat.VerificationCode = "DEADBEEF"

	if _, err := castBallot(app, session.SessionID, honest, "Rose"); err != nil {
		t.Fatalf("honest cast failed: %v", err)
	}
	if _, err := castBallot(app, session.SessionID, cheat, "Tulipe"); err != nil {
		t.Fatalf("cheating cast must still be accepted into the urn: %v", err)
	}
	if _, err := app.Voting.Handler.CloseSessionHandler(context.Background(), session.SessionID); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	report, err := app.Tally.Handler.ScrutinyHandler(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("scrutiny failed: %v", err)
	}
	if report.Result.Accepted != 1 || report.Result.Rejected != 1 {
		t.Fatalf("expected 1 accepted and 1 rejected ballot, got %+v", report.Result)
	}
	if len(report.Rejections) != 1 {
		t.Fatalf("expected one rejection entry, got %d", len(report.Rejections))
	}
	if report.Rejections[0].Reason != "unknown_verification_code" {
		t.Fatalf("unexpected rejection reason %q", report.Rejections[0].Reason)
	}
}

func TestCertificationConsumerCertifiesOnce(t *testing.T) {
	app := newElectionApp(t)
	session := openSession(t, app, "Rose", "Tulipe")
	elector := registerElector(t, app, "Ada")
	if _, err := castBallot(app, session.SessionID, elector, "Rose"); err != nil {
		t.Fatalf("cast failed: %v", err)
	}
	if _, err := app.Voting.Handler.CloseSessionHandler(context.Background(), session.SessionID); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	consumer := tallyworkers.CertificationConsumer{
		Dedup:   app.Tally.Store,
		Tally:   app.Tally.Tally,
		Results: app.Tally.Store,
		Clock:   app.Tally.Store,
	}
	data, err := json.Marshal(map[string]any{"session_id": session.SessionID})
	if err != nil {
		t.Fatalf("marshal event data failed: %v", err)
	}
	event := contractsv1.Envelope{
		EventID:    "event-1",
		EventType:  "election.session.closed",
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}

	if err := consumer.HandleSessionClosed(context.Background(), event); err != nil {
		t.Fatalf("certification failed: %v", err)
	}
	result, err := app.Tally.Handler.CertifiedResultHandler(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("certified result lookup failed: %v", err)
	}
	if result.Report.Result.Accepted != 1 {
		t.Fatalf("expected 1 accepted ballot in certified result, got %d", result.Report.Result.Accepted)
	}

	// Redelivery of the same event id is absorbed by the dedup store.
	if err := consumer.HandleSessionClosed(context.Background(), event); err != nil {
		t.Fatalf("replayed certification errored: %v", err)
	}
	replayed, err := app.Tally.Handler.CertifiedResultHandler(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("certified result lookup after replay failed: %v", err)
	}
	if !replayed.CertifiedAt.Equal(result.CertifiedAt) {
		t.Fatalf("replayed event must not re-certify the result")
	}
}

func TestScrutinyRejectsTamperedEnvelopes(t *testing.T) {
	app := newElectionApp(t)
	session := openSession(t, app, "Rose", "Tulipe")

	honest := registerElector(t, app, "Ada")
	if _, err := castBallot(app, session.SessionID, honest, "Rose"); err != nil {
		t.Fatalf("honest cast failed: %v", err)
	}
	urn, err := app.Voting.Handler.ListBallotsHandler(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("urn listing failed: %v", err)
	}
	sealedPayload := urn.Ballots[0].SealedPayload

	// An envelope that is not even valid hex.
	garbler := registerElector(t, app, "Eve")
	if _, err := app.Ledger.RecordCast(context.Background(), garbler.ElectorID, votingentities.Ballot{
		BallotID:        "garbled",
		SessionID:       session.SessionID,
		SealedPayload:   "not-hex",
		SealedSignature: "not-hex",
		RecordedAt:      time.Now().UTC(),
	}, contractsv1.Envelope{EventID: "evt-garbled", EventType: "election.ballot.recorded"}); err != nil {
		t.Fatalf("inserting garbled ballot failed: %v", err)
	}

	// A well-formed envelope whose signature slot holds the wrong value.
	forger := registerElector(t, app, "Mallory")
	if _, err := app.Ledger.RecordCast(context.Background(), forger.ElectorID, votingentities.Ballot{
		BallotID:        "forged",
		SessionID:       session.SessionID,
		SealedPayload:   sealedPayload,
		SealedSignature: sealedPayload,
		RecordedAt:      time.Now().UTC(),
	}, contractsv1.Envelope{EventID: "evt-forged", EventType: "election.ballot.recorded"}); err != nil {
		t.Fatalf("inserting forged ballot failed: %v", err)
	}

	if _, err := app.Voting.Handler.CloseSessionHandler(context.Background(), session.SessionID); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	report, err := app.Tally.Handler.ScrutinyHandler(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("scrutiny failed: %v", err)
	}
	if report.Result.Accepted != 1 || report.Result.Rejected != 2 {
		t.Fatalf("expected 1 accepted and 2 rejected ballots, got %+v", report.Result)
	}
	reasons := make(map[string]bool, len(report.Rejections))
	for _, rejection := range report.Rejections {
		reasons[rejection.Reason] = true
	}
	if !reasons["unreadable_envelope"] || !reasons["invalid_authority_signature"] {
		t.Fatalf("unexpected rejection reasons %v", reasons)
	}
}

func TestCertifiedResultMissing(t *testing.T) {
	app := newElectionApp(t)
	session := openSession(t, app, "Rose", "Tulipe")
	_, err := app.Tally.Handler.CertifiedResultHandler(context.Background(), session.SessionID)
	if !errors.Is(err, tallyerrors.ErrResultNotCertified) {
		t.Fatalf("expected ErrResultNotCertified, got %v", err)
	}
}
