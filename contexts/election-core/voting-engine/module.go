package votingengine

import (
	"log/slog"

	httpadapter "scrutin/contexts/election-core/voting-engine/adapters/http"
	"scrutin/contexts/election-core/voting-engine/adapters/memory"
	"scrutin/contexts/election-core/voting-engine/application/commands"
	"scrutin/contexts/election-core/voting-engine/application/queries"
	"scrutin/contexts/election-core/voting-engine/ports"
)

type Module struct {
	Handler  httpadapter.Handler
	Casts    commands.CastUseCase
	Sessions commands.SessionUseCase
	Queries  queries.SessionQueries
	Store    *memory.Store
}

type Dependencies struct {
	Sessions ports.SessionRepository
	Ballots  ports.BallotStore
	Ledger   ports.CastLedger
	Gate     ports.ElectorGate
	Sealer   ports.BallotSealer
	Outbox   ports.OutboxWriter
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger
}

func NewModule(deps Dependencies) Module {
	castUseCase := commands.CastUseCase{
		Sessions: deps.Sessions,
		Ledger:   deps.Ledger,
		Gate:     deps.Gate,
		Sealer:   deps.Sealer,
		Clock:    deps.Clock,
		IDGen:    deps.IDGen,
		Logger:   deps.Logger,
	}
	sessionUseCase := commands.SessionUseCase{
		Sessions: deps.Sessions,
		Ledger:   deps.Ledger,
		Outbox:   deps.Outbox,
		Clock:    deps.Clock,
		IDGen:    deps.IDGen,
		Logger:   deps.Logger,
	}
	sessionQueries := queries.SessionQueries{
		Sessions: deps.Sessions,
		Ballots:  deps.Ballots,
	}
	return Module{
		Handler: httpadapter.Handler{
			Casts:    castUseCase,
			Sessions: sessionUseCase,
			Queries:  sessionQueries,
			Logger:   deps.Logger,
		},
		Casts:    castUseCase,
		Sessions: sessionUseCase,
		Queries:  sessionQueries,
	}
}

// NewInMemoryModule wires the engine onto a fresh in-memory ledger. The gate
// and sealer still come from outside because they belong to the registry and
// the ballot authority.
func NewInMemoryModule(gate ports.ElectorGate, sealer ports.BallotSealer, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Sessions: store,
		Ballots:  store,
		Ledger:   store,
		Gate:     gate,
		Sealer:   sealer,
		Outbox:   store,
		Clock:    store,
		IDGen:    store,
		Logger:   logger,
	})
	module.Store = store
	return module
}
