package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "scrutin/contexts/election-core/tally-engine/application"
	"scrutin/contexts/election-core/tally-engine/application/queries"
	"scrutin/contexts/election-core/tally-engine/domain/entities"
	"scrutin/contexts/election-core/tally-engine/ports"
)

const (
	sessionClosedTopic     = "election.session.closed"
	defaultCertificationCG = "tally-engine-certification-cg"
)

// CertificationConsumer reacts to session close events: it runs a full
// scrutiny over the closed urn and freezes the report as the session's
// certified result. Redelivered events are absorbed by the dedup store.
type CertificationConsumer struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Tally         queries.TallyUseCase
	Results       ports.ResultStore
	Clock         ports.Clock
	ConsumerGroup string
	Disabled      bool
	Logger        *slog.Logger
}

func (c CertificationConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	if c.Disabled {
		logger.Info("certification consumer disabled by feature flag",
			"event", "tally_certification_consumer_disabled",
			"module", "election-core/tally-engine",
			"layer", "worker",
		)
		return nil
	}
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultCertificationCG
	}
	if err := c.Subscriber.Subscribe(ctx, sessionClosedTopic, group, c.HandleSessionClosed); err != nil {
		logger.Error("certification consumer subscribe failed",
			"event", "tally_certification_consumer_subscribe_failed",
			"module", "election-core/tally-engine",
			"layer", "worker",
			"topic", sessionClosedTopic,
			"consumer_group", group,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("certification consumer subscription active",
		"event", "tally_certification_consumer_started",
		"module", "election-core/tally-engine",
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

func (c CertificationConsumer) HandleSessionClosed(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	replayed, err := c.Dedup.ReserveEvent(ctx, event.EventID)
	if err != nil {
		logger.Error("session close dedupe failed",
			"event", "tally_session_closed_dedupe_failed",
			"module", "election-core/tally-engine",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	if replayed {
		logger.Debug("session close replay skipped",
			"event", "tally_session_closed_replayed",
			"module", "election-core/tally-engine",
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}

	var payload struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("session close payload decode failed",
			"event", "tally_session_closed_decode_failed",
			"module", "election-core/tally-engine",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}

	report, err := c.Tally.Scrutiny(ctx, payload.SessionID)
	if err != nil {
		logger.Error("certification scrutiny failed",
			"event", "tally_certification_scrutiny_failed",
			"module", "election-core/tally-engine",
			"layer", "worker",
			"event_id", event.EventID,
			"session_id", strings.TrimSpace(payload.SessionID),
			"error", err.Error(),
		)
		return err
	}
	result := entities.CertifiedResult{
		SessionID:   report.SessionID,
		Report:      report,
		EventID:     event.EventID,
		CertifiedAt: c.now(),
	}
	if err := c.Results.SaveCertifiedResult(ctx, result); err != nil {
		logger.Error("certified result save failed",
			"event", "tally_certified_result_save_failed",
			"module", "election-core/tally-engine",
			"layer", "worker",
			"event_id", event.EventID,
			"session_id", report.SessionID,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("session result certified",
		"event", "tally_session_result_certified",
		"module", "election-core/tally-engine",
		"layer", "worker",
		"event_id", event.EventID,
		"session_id", report.SessionID,
		"accepted", report.Result.Accepted,
		"rejected", report.Result.Rejected,
	)
	return nil
}

func (c CertificationConsumer) now() time.Time {
	now := time.Now().UTC()
	if c.Clock != nil {
		now = c.Clock.Now().UTC()
	}
	return now
}
