package worker

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/ecosketch/ecosketch/internal/orchestrator"
)

type createSessionRequest struct {
	UserPrompt string `json:"userPrompt"`
}

type refineRequest struct {
	UserFeedback string `json:"userFeedback"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeOrchestratorError maps the orchestrator error taxonomy to HTTP status
// codes.
func writeOrchestratorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, orchestrator.ErrInvalidInput),
		errors.Is(err, orchestrator.ErrPreconditionFailed):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeBody(r *http.Request, v interface{}) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()
	return json.NewDecoder(r.Body).Decode(v)
}

func sessionID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (s *Service) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sess, err := s.orch.CreateSession(r.Context(), req.UserPrompt)
	if err != nil {
		s.stats.RecordFailure("create")
		writeOrchestratorError(w, err)
		return
	}

	s.stats.RecordSessionCreated()
	writeJSON(w, http.StatusOK, sess)
}

func (s *Service) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.orch.ListSessions(r.Context())
	if err != nil {
		writeOrchestratorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Service) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	sess, err := s.orch.GetSession(r.Context(), id)
	if err != nil {
		writeOrchestratorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Service) handleGenerateDescription(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	sess, err := s.orch.GenerateDescription(r.Context(), id)
	if err != nil {
		s.stats.RecordFailure("describe")
		writeOrchestratorError(w, err)
		return
	}

	s.stats.RecordDescriptionGenerated()
	writeJSON(w, http.StatusOK, sess)
}

func (s *Service) handleRefineDescription(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	var req refineRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sess, err := s.orch.RefineDescription(r.Context(), id, req.UserFeedback)
	if err != nil {
		s.stats.RecordFailure("refine")
		writeOrchestratorError(w, err)
		return
	}

	s.stats.RecordRefinement()
	writeJSON(w, http.StatusOK, sess)
}

func (s *Service) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	sess, err := s.orch.GenerateImage(r.Context(), id)
	if err != nil {
		s.stats.RecordFailure("image")
		writeOrchestratorError(w, err)
		return
	}

	s.stats.RecordImageGenerated()
	writeJSON(w, http.StatusOK, sess)
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]bool{"ready": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

func (s *Service) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

func (s *Service) handleStats(w http.ResponseWriter, _ *http.Request) {
	snap := s.stats.Snapshot()
	snap.SSEClients = s.sseBroadcaster.ClientCount()
	snap.Version = s.version
	writeJSON(w, http.StatusOK, snap)
}
