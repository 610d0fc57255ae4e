package electorregistry

import (
	"log/slog"

	httpadapter "scrutin/contexts/election-core/elector-registry/adapters/http"
	"scrutin/contexts/election-core/elector-registry/application/commands"
	"scrutin/contexts/election-core/elector-registry/application/queries"
	"scrutin/contexts/election-core/elector-registry/ports"
)

type Module struct {
	Handler  httpadapter.Handler
	Registry commands.RegistryUseCase
	Roll     queries.RollQueries
}

type Dependencies struct {
	Electors ports.ElectorRepository
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger
}

func NewModule(deps Dependencies) Module {
	registry := commands.RegistryUseCase{
		Electors: deps.Electors,
		Clock:    deps.Clock,
		IDGen:    deps.IDGen,
		Logger:   deps.Logger,
	}
	roll := queries.RollQueries{
		Electors: deps.Electors,
	}
	return Module{
		Handler: httpadapter.Handler{
			Registry: registry,
			Roll:     roll,
			Logger:   deps.Logger,
		},
		Registry: registry,
		Roll:     roll,
	}
}
