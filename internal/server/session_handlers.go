package server

import (
	"errors"
	"net/http"
	"strconv"

	"appscout/internal/core"
	"appscout/internal/pipeline"
	"appscout/internal/render"
	"appscout/internal/store"

	"github.com/go-chi/chi/v5"
)

// CreateSessionRequest is the body of POST /api/sessions
type CreateSessionRequest struct {
	Keywords []core.DiscoveredKeyword `json:"keywords" validate:"required,min=1"`
	Country  string                   `json:"country"`
	Scores   []pipeline.ScoreEntry    `json:"scores" validate:"required,min=1"`
	TopN     int                      `json:"topN" validate:"gte=0"`
}

// CreateSessionResponse reports the finished session
type CreateSessionResponse struct {
	Session *core.Session   `json:"session"`
	Stats   *pipeline.Stats `json:"stats,omitempty"`
}

func (s *Server) sessionsEnabled(w http.ResponseWriter) bool {
	if s.deps.Sessions == nil {
		s.respondError(w, http.StatusNotImplemented, "session storage is not configured")
		return false
	}
	return true
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if !s.sessionsEnabled(w) {
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	sessions, err := s.deps.Sessions.List(r.Context(), limit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, sessions)
}

func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) (*core.Session, bool) {
	if !s.sessionsEnabled(w) {
		return nil, false
	}
	session, err := s.deps.Sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return session, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if session, ok := s.loadSession(w, r); ok {
		s.respondJSON(w, http.StatusOK, session)
	}
}

func (s *Server) handleSessionReport(w http.ResponseWriter, r *http.Request) {
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	page, err := render.HTMLPage("App Opportunity Report", render.SessionReport(session))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(page))
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessionsEnabled(w) {
		return
	}
	if s.deps.Runner == nil {
		s.respondError(w, http.StatusNotImplemented, "pipeline runner is not configured")
		return
	}

	var req CreateSessionRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	country := req.Country
	if country == "" {
		country = s.deps.Country
	}
	topN := req.TopN
	if topN == 0 {
		topN = s.deps.TopN
	}

	session := core.NewSession(country, req.Keywords)
	stats, err := s.deps.Runner.Run(r.Context(), session, pipeline.NewStaticScorer(req.Scores), topN)
	if err != nil {
		s.log.Error().Err(err).Str("session_id", session.ID).Msg("Session run failed")
		s.respondJSON(w, http.StatusBadGateway, CreateSessionResponse{Session: session})
		return
	}
	s.respondJSON(w, http.StatusCreated, CreateSessionResponse{Session: session, Stats: stats})
}

func (s *Server) handleReanalyze(w http.ResponseWriter, r *http.Request) {
	if s.deps.Runner == nil {
		s.respondError(w, http.StatusNotImplemented, "pipeline runner is not configured")
		return
	}
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	err := s.deps.Runner.Reanalyze(r.Context(), session, chi.URLParam(r, "clusterID"))
	if errors.Is(err, pipeline.ErrUnknownCluster) {
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, session)
}
