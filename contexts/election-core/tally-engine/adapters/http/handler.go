package httpadapter

import (
	"context"
	"log/slog"

	"scrutin/contexts/election-core/tally-engine/application/queries"
	"scrutin/contexts/election-core/tally-engine/domain/entities"
	httptransport "scrutin/contexts/election-core/tally-engine/transport/http"
)

type Handler struct {
	Tally   queries.TallyUseCase
	Results queries.ResultQueries
	Logger  *slog.Logger
}

func (h Handler) TallyHandler(ctx context.Context, sessionID string) (httptransport.TallyResponse, error) {
	result, err := h.Tally.Tally(ctx, sessionID)
	if err != nil {
		return httptransport.TallyResponse{}, err
	}
	return mapTally(result), nil
}

func (h Handler) ScrutinyHandler(ctx context.Context, sessionID string) (httptransport.ScrutinyResponse, error) {
	report, err := h.Tally.Scrutiny(ctx, sessionID)
	if err != nil {
		return httptransport.ScrutinyResponse{}, err
	}
	return mapScrutiny(report), nil
}

func (h Handler) CertifiedResultHandler(ctx context.Context, sessionID string) (httptransport.CertifiedResultResponse, error) {
	result, err := h.Results.CertifiedResult(ctx, sessionID)
	if err != nil {
		return httptransport.CertifiedResultResponse{}, err
	}
	return httptransport.CertifiedResultResponse{
		SessionID:   result.SessionID,
		Report:      mapScrutiny(result.Report),
		CertifiedAt: result.CertifiedAt,
	}, nil
}

func mapTally(result entities.TallyResult) httptransport.TallyResponse {
	counts := make([]httptransport.OptionCountItem, 0, len(result.Counts))
	for _, count := range result.Counts {
		counts = append(counts, httptransport.OptionCountItem{
			Option: count.Option,
			Count:  count.Count,
		})
	}
	return httptransport.TallyResponse{
		SessionID:    result.SessionID,
		Counts:       counts,
		TotalBallots: result.TotalBallots,
		Accepted:     result.Accepted,
		Rejected:     result.Rejected,
		Winners:      result.Winners(),
		Final:        result.Final,
		ComputedAt:   result.ComputedAt,
	}
}

func mapScrutiny(report entities.ScrutinyReport) httptransport.ScrutinyResponse {
	rejections := make([]httptransport.RejectionItem, 0, len(report.Rejections))
	for _, rejection := range report.Rejections {
		rejections = append(rejections, httptransport.RejectionItem{
			Position: rejection.Position,
			BallotID: rejection.BallotID,
			Reason:   rejection.Reason,
		})
	}
	return httptransport.ScrutinyResponse{
		SessionID:  report.SessionID,
		Result:     mapTally(report.Result),
		Rejections: rejections,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
	}
}
