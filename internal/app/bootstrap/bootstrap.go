package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	electorregistry "scrutin/contexts/election-core/elector-registry"
	tallyengine "scrutin/contexts/election-core/tally-engine"
	tallymemory "scrutin/contexts/election-core/tally-engine/adapters/memory"
	tallypostgres "scrutin/contexts/election-core/tally-engine/adapters/postgres"
	tallyworkers "scrutin/contexts/election-core/tally-engine/application/workers"
	votingengine "scrutin/contexts/election-core/voting-engine"
	cryptoadapter "scrutin/contexts/election-core/voting-engine/adapters/crypto"
	votingmemory "scrutin/contexts/election-core/voting-engine/adapters/memory"
	votingpostgres "scrutin/contexts/election-core/voting-engine/adapters/postgres"
	votingworkers "scrutin/contexts/election-core/voting-engine/application/workers"
	"scrutin/internal/platform/config"
	"scrutin/internal/platform/db"
	"scrutin/internal/platform/httpserver"
	"scrutin/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres      *db.Postgres
	outboxRelay   votingworkers.OutboxRelay
	sessionCloser votingworkers.SessionCloser
	certification tallyworkers.CertificationConsumer
	relayEnabled  bool
	closerEnabled bool
	pollInterval  time.Duration
	logger        *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	authority, err := cryptoadapter.NewAuthority(cfg.AuthorityKeyBits, logger)
	if err != nil {
		return nil, err
	}

	ledger := votingpostgres.NewRepository(pg.DB, logger)
	registryModule := electorregistry.NewModule(electorregistry.Dependencies{
		Electors: ledger,
		Clock:    votingpostgres.SystemClock{},
		IDGen:    votingpostgres.UUIDGenerator{},
		Logger:   logger,
	})
	votingModule := votingengine.NewModule(votingengine.Dependencies{
		Sessions: ledger,
		Ballots:  ledger,
		Ledger:   ledger,
		Gate:     registryModule.Roll,
		Sealer:   authority,
		Outbox:   ledger,
		Clock:    votingpostgres.SystemClock{},
		IDGen:    votingpostgres.UUIDGenerator{},
		Logger:   logger,
	})
	tallyRepo := tallypostgres.NewRepository(pg.DB, logger)
	tallyModule := tallyengine.NewModule(tallyengine.Dependencies{
		Sessions:          ledger,
		Ballots:           ledger,
		Opener:            authority,
		Credentials:       registryModule.Roll,
		Results:           tallyRepo,
		Clock:             votingpostgres.SystemClock{},
		AllowRunningTally: cfg.EnableRunningTally,
		Logger:            logger,
	})

	if cfg.SeedElectorCount > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := registryModule.Registry.SeedElectors(ctx, cfg.SeedElectorCount); err != nil {
			logger.Warn("elector seeding failed",
				"event", "bootstrap_seed_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"count", cfg.SeedElectorCount,
				"error", err.Error(),
			)
		}
	}

	server := httpserver.New(registryModule, votingModule, tallyModule, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	authority, err := cryptoadapter.NewAuthority(cfg.AuthorityKeyBits, logger)
	if err != nil {
		return nil, err
	}

	ledger := votingpostgres.NewRepository(pg.DB, logger)
	registryModule := electorregistry.NewModule(electorregistry.Dependencies{
		Electors: ledger,
		Clock:    votingpostgres.SystemClock{},
		IDGen:    votingpostgres.UUIDGenerator{},
		Logger:   logger,
	})
	votingModule := votingengine.NewModule(votingengine.Dependencies{
		Sessions: ledger,
		Ballots:  ledger,
		Ledger:   ledger,
		Gate:     registryModule.Roll,
		Sealer:   authority,
		Outbox:   ledger,
		Clock:    votingpostgres.SystemClock{},
		IDGen:    votingpostgres.UUIDGenerator{},
		Logger:   logger,
	})
	tallyRepo := tallypostgres.NewRepository(pg.DB, logger)
	tallyModule := tallyengine.NewModule(tallyengine.Dependencies{
		Sessions:          ledger,
		Ballots:           ledger,
		Opener:            authority,
		Credentials:       registryModule.Roll,
		Results:           tallyRepo,
		Clock:             votingpostgres.SystemClock{},
		AllowRunningTally: true,
		Logger:            logger,
	})

	return &WorkerApp{
		postgres: pg,
		outboxRelay: votingworkers.OutboxRelay{
			Outbox:    ledger,
			Publisher: kafka,
			Clock:     votingpostgres.SystemClock{},
			BatchSize: 100,
			Logger:    logger,
		},
		sessionCloser: votingworkers.SessionCloser{
			Sessions:  ledger,
			Lifecycle: votingModule.Sessions,
			Clock:     votingpostgres.SystemClock{},
			Logger:    logger,
		},
		certification: tallyworkers.CertificationConsumer{
			Subscriber: kafka,
			Dedup:      tallyRepo,
			Tally:      tallyModule.Tally,
			Results:    tallyRepo,
			Clock:      votingpostgres.SystemClock{},
			Disabled:   !cfg.EnableCertificationConsumer,
			Logger:     logger,
		},
		relayEnabled:  cfg.EnableOutboxRelay,
		closerEnabled: cfg.EnableSessionCloser,
		pollInterval:  2 * time.Second,
		logger:        logger,
	}, nil
}

// InMemoryApp wires all three modules over one in-memory ledger. Used by
// tests and local development without postgres.
type InMemoryApp struct {
	Registry electorregistry.Module
	Voting   votingengine.Module
	Tally    tallyengine.Module
	Ledger   *votingmemory.Store
	Server   *httpserver.Server
}

func BuildInMemory(keyBits int, allowRunningTally bool, logger *slog.Logger) (*InMemoryApp, error) {
	if logger == nil {
		logger = slog.Default()
	}
	authority, err := cryptoadapter.NewAuthority(keyBits, logger)
	if err != nil {
		return nil, err
	}

	ledger := votingmemory.NewStore()
	registryModule := electorregistry.NewModule(electorregistry.Dependencies{
		Electors: ledger,
		Clock:    ledger,
		IDGen:    ledger,
		Logger:   logger,
	})
	votingModule := votingengine.NewModule(votingengine.Dependencies{
		Sessions: ledger,
		Ballots:  ledger,
		Ledger:   ledger,
		Gate:     registryModule.Roll,
		Sealer:   authority,
		Outbox:   ledger,
		Clock:    ledger,
		IDGen:    ledger,
		Logger:   logger,
	})
	votingModule.Store = ledger
	tallyStore := tallymemory.NewStore()
	tallyModule := tallyengine.NewModule(tallyengine.Dependencies{
		Sessions:          ledger,
		Ballots:           ledger,
		Opener:            authority,
		Credentials:       registryModule.Roll,
		Results:           tallyStore,
		Clock:             tallyStore,
		AllowRunningTally: allowRunningTally,
		Logger:            logger,
	})
	tallyModule.Store = tallyStore

	server := httpserver.New(registryModule, votingModule, tallyModule, logger, "")
	return &InMemoryApp{
		Registry: registryModule,
		Voting:   votingModule,
		Tally:    tallyModule,
		Ledger:   ledger,
		Server:   server,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.certification.Start(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if w.closerEnabled {
			if err := w.sessionCloser.RunOnce(ctx); err != nil {
				return err
			}
		}
		if w.relayEnabled {
			if err := w.outboxRelay.RunOnce(ctx); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
