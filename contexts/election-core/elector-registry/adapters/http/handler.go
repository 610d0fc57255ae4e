package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"scrutin/contexts/election-core/elector-registry/application/commands"
	"scrutin/contexts/election-core/elector-registry/application/queries"
	"scrutin/contexts/election-core/elector-registry/domain/entities"
	httptransport "scrutin/contexts/election-core/elector-registry/transport/http"
)

type Handler struct {
	Registry commands.RegistryUseCase
	Roll     queries.RollQueries
	Logger   *slog.Logger
}

func (h Handler) RegisterElectorHandler(ctx context.Context, req httptransport.RegisterElectorRequest) (httptransport.RegisterElectorResponse, error) {
	result, err := h.Registry.RegisterElector(ctx, commands.RegisterElectorCommand{
		DisplayName: req.DisplayName,
	})
	if err != nil {
		return httptransport.RegisterElectorResponse{}, err
	}
	return mapRegistration(result), nil
}

func (h Handler) SeedElectorsHandler(ctx context.Context, req httptransport.SeedElectorsRequest) (httptransport.SeedElectorsResponse, error) {
	results, err := h.Registry.SeedElectors(ctx, req.Count)
	if err != nil {
		return httptransport.SeedElectorsResponse{}, err
	}
	items := make([]httptransport.RegisterElectorResponse, 0, len(results))
	for _, result := range results {
		items = append(items, mapRegistration(result))
	}
	return httptransport.SeedElectorsResponse{Electors: items}, nil
}

func (h Handler) GetElectorHandler(ctx context.Context, electorID string) (httptransport.ElectorResponse, error) {
	elector, err := h.Roll.GetElector(ctx, electorID)
	if err != nil {
		return httptransport.ElectorResponse{}, err
	}
	return mapElector(elector), nil
}

func (h Handler) ListElectorsHandler(ctx context.Context) (httptransport.RollResponse, error) {
	electors, err := h.Roll.ListElectors(ctx)
	if err != nil {
		return httptransport.RollResponse{}, err
	}
	voted, err := h.Roll.CountVoted(ctx)
	if err != nil {
		return httptransport.RollResponse{}, err
	}
	items := make([]httptransport.ElectorResponse, 0, len(electors))
	for _, elector := range electors {
		items = append(items, mapElector(elector))
	}
	return httptransport.RollResponse{
		Electors:   items,
		VotedCount: voted,
	}, nil
}

func mapRegistration(result commands.RegisterResult) httptransport.RegisterElectorResponse {
	return httptransport.RegisterElectorResponse{
		ElectorID:        result.Elector.ElectorID,
		DisplayName:      result.Elector.DisplayName,
		VotingCode:       result.Elector.VotingCode,
		VerificationCode: result.VerificationCode,
	}
}

func mapElector(elector entities.Elector) httptransport.ElectorResponse {
	resp := httptransport.ElectorResponse{
		ElectorID:   elector.ElectorID,
		DisplayName: elector.DisplayName,
		HasVoted:    elector.HasVoted,
	}
	if elector.VotedAt != nil {
		resp.VotedAt = elector.VotedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
