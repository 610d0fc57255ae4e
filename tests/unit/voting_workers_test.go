package unit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"scrutin/contexts/election-core/voting-engine/application/workers"
	"scrutin/contexts/election-core/voting-engine/ports"
)

type capturingPublisher struct {
	mu        sync.Mutex
	published []ports.EventEnvelope
	topics    []string
}

func (p *capturingPublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, event)
	p.topics = append(p.topics, topic)
	return nil
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string, ports.EventEnvelope) error {
	return errors.New("broker unavailable")
}

func TestOutboxRelayPublishesAndAcks(t *testing.T) {
	app := newElectionApp(t)
	session := openSession(t, app, "Rose", "Tulipe")
	elector := registerElector(t, app, "Ada")
	if _, err := castBallot(app, session.SessionID, elector, "Rose"); err != nil {
		t.Fatalf("cast failed: %v", err)
	}

	publisher := &capturingPublisher{}
	relay := workers.OutboxRelay{
		Outbox:    app.Ledger,
		Publisher: publisher,
		Clock:     app.Ledger,
	}
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("relay run failed: %v", err)
	}
	if len(publisher.published) != 2 {
		t.Fatalf("expected the opened and recorded events, got %d", len(publisher.published))
	}
	seen := make(map[string]bool, len(publisher.topics))
	for _, topic := range publisher.topics {
		seen[topic] = true
	}
	if !seen["election.session.opened"] || !seen["election.ballot.recorded"] {
		t.Fatalf("unexpected topics %v", publisher.topics)
	}

	// Acked rows must not be republished.
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("second relay run failed: %v", err)
	}
	if len(publisher.published) != 2 {
		t.Fatalf("acked rows were republished: %d events", len(publisher.published))
	}
}

func TestOutboxRelayKeepsRowsPendingOnPublishFailure(t *testing.T) {
	app := newElectionApp(t)
	session := openSession(t, app, "Rose", "Tulipe")
	elector := registerElector(t, app, "Ada")
	if _, err := castBallot(app, session.SessionID, elector, "Rose"); err != nil {
		t.Fatalf("cast failed: %v", err)
	}

	broken := workers.OutboxRelay{
		Outbox:    app.Ledger,
		Publisher: failingPublisher{},
		Clock:     app.Ledger,
	}
	if err := broken.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected publish failure to surface")
	}

	publisher := &capturingPublisher{}
	relay := workers.OutboxRelay{
		Outbox:    app.Ledger,
		Publisher: publisher,
		Clock:     app.Ledger,
	}
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("retry run failed: %v", err)
	}
	if len(publisher.published) != 2 {
		t.Fatalf("expected both rows still pending after failure, got %d", len(publisher.published))
	}
}
