package tallyengine

import (
	"log/slog"

	httpadapter "scrutin/contexts/election-core/tally-engine/adapters/http"
	"scrutin/contexts/election-core/tally-engine/adapters/memory"
	"scrutin/contexts/election-core/tally-engine/application/queries"
	"scrutin/contexts/election-core/tally-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Tally   queries.TallyUseCase
	Results queries.ResultQueries
	Store   *memory.Store
}

type Dependencies struct {
	Sessions          ports.SessionSource
	Ballots           ports.BallotSource
	Opener            ports.BallotOpener
	Credentials       ports.CredentialVerifier
	Results           ports.ResultStore
	Clock             ports.Clock
	AllowRunningTally bool
	Logger            *slog.Logger
}

func NewModule(deps Dependencies) Module {
	tallyUseCase := queries.TallyUseCase{
		Sessions:          deps.Sessions,
		Ballots:           deps.Ballots,
		Opener:            deps.Opener,
		Credentials:       deps.Credentials,
		Clock:             deps.Clock,
		AllowRunningTally: deps.AllowRunningTally,
		Logger:            deps.Logger,
	}
	resultQueries := queries.ResultQueries{
		Results: deps.Results,
	}
	return Module{
		Handler: httpadapter.Handler{
			Tally:   tallyUseCase,
			Results: resultQueries,
			Logger:  deps.Logger,
		},
		Tally:   tallyUseCase,
		Results: resultQueries,
	}
}

// NewInMemoryModule keeps certified results in memory. Sources still come
// from outside because the urn and the roll belong to the other modules.
func NewInMemoryModule(deps Dependencies) Module {
	store := memory.NewStore()
	deps.Results = store
	if deps.Clock == nil {
		deps.Clock = store
	}
	module := NewModule(deps)
	module.Store = store
	return module
}
