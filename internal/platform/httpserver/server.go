package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	electorregistry "scrutin/contexts/election-core/elector-registry"
	registryerrors "scrutin/contexts/election-core/elector-registry/domain/errors"
	registryhttp "scrutin/contexts/election-core/elector-registry/transport/http"
	tallyengine "scrutin/contexts/election-core/tally-engine"
	tallyerrors "scrutin/contexts/election-core/tally-engine/domain/errors"
	tallyhttp "scrutin/contexts/election-core/tally-engine/transport/http"
	votingengine "scrutin/contexts/election-core/voting-engine"
	votingerrors "scrutin/contexts/election-core/voting-engine/domain/errors"
	votinghttp "scrutin/contexts/election-core/voting-engine/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "scrutin/internal/platform/httpserver/docs"
)

type Server struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	addr     string
	registry electorregistry.Module
	voting   votingengine.Module
	tally    tallyengine.Module
}

func New(
	registry electorregistry.Module,
	voting votingengine.Module,
	tally tallyengine.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:      http.NewServeMux(),
		logger:   logger,
		addr:     addr,
		registry: registry,
		voting:   voting,
		tally:    tally,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the mux for httptest wiring.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/election/v1/electors", s.handleRegisterElector)
	s.mux.HandleFunc("POST /api/election/v1/electors/seed", s.handleSeedElectors)
	s.mux.HandleFunc("GET /api/election/v1/electors", s.handleListElectors)
	s.mux.HandleFunc("GET /api/election/v1/electors/{elector_id}", s.handleGetElector)

	s.mux.HandleFunc("POST /api/election/v1/sessions", s.handleOpenSession)
	s.mux.HandleFunc("GET /api/election/v1/sessions", s.handleListSessions)
	s.mux.HandleFunc("GET /api/election/v1/sessions/{session_id}", s.handleGetSession)
	s.mux.HandleFunc("POST /api/election/v1/sessions/{session_id}/close", s.handleCloseSession)
	s.mux.HandleFunc("POST /api/election/v1/sessions/{session_id}/reset", s.handleResetSession)
	s.mux.HandleFunc("POST /api/election/v1/sessions/{session_id}/ballots", s.handleCastBallot)
	s.mux.HandleFunc("GET /api/election/v1/sessions/{session_id}/ballots", s.handleListBallots)

	s.mux.HandleFunc("GET /api/election/v1/sessions/{session_id}/tally", s.handleTally)
	s.mux.HandleFunc("GET /api/election/v1/sessions/{session_id}/scrutiny", s.handleScrutiny)
	s.mux.HandleFunc("GET /api/election/v1/sessions/{session_id}/result", s.handleCertifiedResult)
}

func (s *Server) handleRegisterElector(w http.ResponseWriter, r *http.Request) {
	var req registryhttp.RegisterElectorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.registry.Handler.RegisterElectorHandler(r.Context(), req)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleSeedElectors(w http.ResponseWriter, r *http.Request) {
	var req registryhttp.SeedElectorsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRegistryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.registry.Handler.SeedElectorsHandler(r.Context(), req)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListElectors(w http.ResponseWriter, r *http.Request) {
	resp, err := s.registry.Handler.ListElectorsHandler(r.Context())
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetElector(w http.ResponseWriter, r *http.Request) {
	electorID := r.PathValue("elector_id")
	resp, err := s.registry.Handler.GetElectorHandler(r.Context(), electorID)
	if err != nil {
		writeRegistryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req votinghttp.OpenSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeVotingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.voting.Handler.OpenSessionHandler(r.Context(), req)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.ListSessionsHandler(r.Context())
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	resp, err := s.voting.Handler.GetSessionHandler(r.Context(), sessionID)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	resp, err := s.voting.Handler.CloseSessionHandler(r.Context(), sessionID)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	resp, err := s.voting.Handler.ResetSessionHandler(r.Context(), sessionID)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastBallot(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	var req votinghttp.CastBallotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeVotingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.voting.Handler.CastBallotHandler(r.Context(), sessionID, req)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListBallots(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	resp, err := s.voting.Handler.ListBallotsHandler(r.Context(), sessionID)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTally(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	resp, err := s.tally.Handler.TallyHandler(r.Context(), sessionID)
	if err != nil {
		writeTallyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleScrutiny(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	resp, err := s.tally.Handler.ScrutinyHandler(r.Context(), sessionID)
	if err != nil {
		writeTallyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCertifiedResult(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	resp, err := s.tally.Handler.CertifiedResultHandler(r.Context(), sessionID)
	if err != nil {
		writeTallyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeRegistryDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registryerrors.ErrElectorNotFound):
		writeRegistryError(w, http.StatusNotFound, "elector_not_found", err.Error())
	case errors.Is(err, registryerrors.ErrInvalidElectorInput):
		writeRegistryError(w, http.StatusBadRequest, "invalid_elector_input", err.Error())
	case errors.Is(err, registryerrors.ErrAlreadyVoted):
		writeRegistryError(w, http.StatusConflict, "already_voted", err.Error())
	case errors.Is(err, registryerrors.ErrCodeIssuance):
		writeRegistryError(w, http.StatusConflict, "code_issuance_failed", err.Error())
	default:
		writeRegistryError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeVotingDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, votingerrors.ErrSessionNotFound):
		writeVotingError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, votingerrors.ErrInvalidCastInput),
		errors.Is(err, votingerrors.ErrInvalidSessionInput):
		writeVotingError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, votingerrors.ErrInvalidOption):
		writeVotingError(w, http.StatusUnprocessableEntity, "invalid_option", err.Error())
	case errors.Is(err, votingerrors.ErrIneligibleElector):
		writeVotingError(w, http.StatusForbidden, "ineligible_elector", err.Error())
	case errors.Is(err, votingerrors.ErrInvalidVotingCode):
		writeVotingError(w, http.StatusForbidden, "invalid_voting_code", err.Error())
	case errors.Is(err, votingerrors.ErrAlreadyVoted):
		writeVotingError(w, http.StatusConflict, "already_voted", err.Error())
	case errors.Is(err, votingerrors.ErrVotingClosed):
		writeVotingError(w, http.StatusConflict, "voting_closed", err.Error())
	case errors.Is(err, votingerrors.ErrConflict):
		writeVotingError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, votingerrors.ErrSealingFailed):
		writeVotingError(w, http.StatusInternalServerError, "sealing_failed", err.Error())
	default:
		writeVotingError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeTallyDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, votingerrors.ErrSessionNotFound):
		writeTallyError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, tallyerrors.ErrSessionStillOpen):
		writeTallyError(w, http.StatusConflict, "session_still_open", err.Error())
	case errors.Is(err, tallyerrors.ErrResultNotCertified):
		writeTallyError(w, http.StatusNotFound, "result_not_certified", err.Error())
	case errors.Is(err, tallyerrors.ErrInvalidTallyInput):
		writeTallyError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeTallyError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeRegistryError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, registryhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeVotingError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, votinghttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeTallyError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, tallyhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
