package httpadapter

import (
	"context"
	"log/slog"

	"scrutin/contexts/election-core/voting-engine/application/commands"
	"scrutin/contexts/election-core/voting-engine/application/queries"
	"scrutin/contexts/election-core/voting-engine/domain/entities"
	httptransport "scrutin/contexts/election-core/voting-engine/transport/http"
)

type Handler struct {
	Casts    commands.CastUseCase
	Sessions commands.SessionUseCase
	Queries  queries.SessionQueries
	Logger   *slog.Logger
}

func (h Handler) OpenSessionHandler(ctx context.Context, req httptransport.OpenSessionRequest) (httptransport.SessionResponse, error) {
	session, err := h.Sessions.OpenSession(ctx, commands.OpenSessionCommand{
		Name:    req.Name,
		Options: req.Options,
		EndsAt:  req.EndsAt,
	})
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	return mapSession(session, 0), nil
}

func (h Handler) CloseSessionHandler(ctx context.Context, sessionID string) (httptransport.SessionResponse, error) {
	session, err := h.Sessions.CloseSession(ctx, sessionID)
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	count, err := h.Queries.GetSession(ctx, session.SessionID)
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	return mapSession(count.Session, count.BallotCount), nil
}

func (h Handler) ResetSessionHandler(ctx context.Context, sessionID string) (httptransport.SessionResponse, error) {
	session, err := h.Sessions.ResetSession(ctx, sessionID)
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	return mapSession(session, 0), nil
}

func (h Handler) GetSessionHandler(ctx context.Context, sessionID string) (httptransport.SessionResponse, error) {
	state, err := h.Queries.GetSession(ctx, sessionID)
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	return mapSession(state.Session, state.BallotCount), nil
}

func (h Handler) ListSessionsHandler(ctx context.Context) (httptransport.SessionListResponse, error) {
	states, err := h.Queries.ListSessions(ctx)
	if err != nil {
		return httptransport.SessionListResponse{}, err
	}
	sessions := make([]httptransport.SessionResponse, 0, len(states))
	for _, state := range states {
		sessions = append(sessions, mapSession(state.Session, state.BallotCount))
	}
	return httptransport.SessionListResponse{Sessions: sessions}, nil
}

func (h Handler) CastBallotHandler(
	ctx context.Context,
	sessionID string,
	req httptransport.CastBallotRequest,
) (httptransport.CastBallotResponse, error) {
	result, err := h.Casts.CastBallot(ctx, commands.CastBallotCommand{
		SessionID:        sessionID,
		ElectorID:        req.ElectorID,
		Option:           req.Option,
		VotingCode:       req.VotingCode,
		VerificationCode: req.VerificationCode,
	})
	if err != nil {
		return httptransport.CastBallotResponse{}, err
	}
	return httptransport.CastBallotResponse{
		BallotID:   result.Ballot.BallotID,
		SessionID:  result.Ballot.SessionID,
		Position:   result.Ballot.Position,
		RecordedAt: result.Ballot.RecordedAt,
	}, nil
}

func (h Handler) ListBallotsHandler(ctx context.Context, sessionID string) (httptransport.BallotListResponse, error) {
	ballots, err := h.Queries.ListBallots(ctx, sessionID)
	if err != nil {
		return httptransport.BallotListResponse{}, err
	}
	items := make([]httptransport.BallotResponse, 0, len(ballots))
	for _, ballot := range ballots {
		items = append(items, httptransport.BallotResponse{
			BallotID:        ballot.BallotID,
			Position:        ballot.Position,
			SealedPayload:   ballot.SealedPayload,
			SealedSignature: ballot.SealedSignature,
			RecordedAt:      ballot.RecordedAt,
		})
	}
	return httptransport.BallotListResponse{SessionID: sessionID, Ballots: items}, nil
}

func mapSession(session entities.VotingSession, ballotCount int) httptransport.SessionResponse {
	return httptransport.SessionResponse{
		SessionID:   session.SessionID,
		Name:        session.Name,
		Options:     session.Options,
		Status:      string(session.Status),
		OpensAt:     session.OpensAt,
		EndsAt:      session.EndsAt,
		ClosedAt:    session.ClosedAt,
		BallotCount: ballotCount,
		CreatedAt:   session.CreatedAt,
		UpdatedAt:   session.UpdatedAt,
	}
}
