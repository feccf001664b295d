package server

import (
	"net/http"
	"time"

	"appscout/internal/clustering"
	"appscout/internal/core"
)

// HealthResponse is returned by /health
type HealthResponse struct {
	Status string            `json:"status"`
	Uptime string            `json:"uptime"`
	Checks map[string]string `json:"checks"`
}

var serverStartTime = time.Now()

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"sessions": "disabled"}
	if s.deps.Sessions != nil {
		if _, err := s.deps.Sessions.List(r.Context(), 1); err != nil {
			checks["sessions"] = "error"
			s.respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status: "unhealthy",
				Uptime: time.Since(serverStartTime).Round(time.Second).String(),
				Checks: checks,
			})
			return
		}
		checks["sessions"] = "ok"
	}

	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Uptime: time.Since(serverStartTime).Round(time.Second).String(),
		Checks: checks,
	})
}

// ClusterRequest is the body of POST /api/clusters
type ClusterRequest struct {
	Keywords []core.DiscoveredKeyword `json:"keywords" validate:"required,min=1"`
}

func (s *Server) handleClusterKeywords(w http.ResponseWriter, r *http.Request) {
	var req ClusterRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	clusters, err := s.deps.Clusterer.ClusterKeywords(r.Context(), req.Keywords)
	if err != nil {
		s.log.Error().Err(err).Int("keywords", len(req.Keywords)).Msg("Clustering request failed")
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, clusters)
}

// MergeRequest is the body of POST /api/clusters/merge
type MergeRequest struct {
	A    core.Cluster `json:"a"`
	B    core.Cluster `json:"b"`
	Name string       `json:"name" validate:"required"`
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req MergeRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, clustering.Merge(req.A, req.B, req.Name))
}

// SplitRequest is the body of POST /api/clusters/split
type SplitRequest struct {
	Cluster  core.Cluster `json:"cluster"`
	Keywords []string     `json:"keywords" validate:"required,min=1"`
	Name     string       `json:"name" validate:"required"`
}

// SplitResponse holds both halves of a split
type SplitResponse struct {
	Original  core.Cluster `json:"original"`
	Extracted core.Cluster `json:"extracted"`
}

func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	var req SplitRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	original, extracted := clustering.Split(req.Cluster, req.Keywords, req.Name)
	s.respondJSON(w, http.StatusOK, SplitResponse{Original: original, Extracted: extracted})
}

// RenameRequest is the body of POST /api/clusters/rename
type RenameRequest struct {
	Cluster core.Cluster `json:"cluster"`
	Name    string       `json:"name" validate:"required"`
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, clustering.Rename(req.Cluster, req.Name))
}

// RemoveRequest is the body of POST /api/clusters/remove
type RemoveRequest struct {
	Clusters []core.Cluster `json:"clusters" validate:"required"`
	ID       string         `json:"id" validate:"required"`
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	var req RemoveRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, clustering.Remove(req.Clusters, req.ID))
}

// GapRequest is the body of POST /api/gap-analyses
type GapRequest struct {
	Scores  []core.ClusterScore `json:"scores" validate:"required,min=1"`
	Country string              `json:"country"`
	TopN    int                 `json:"topN" validate:"gte=0"`
}

func (s *Server) handleGapAnalyses(w http.ResponseWriter, r *http.Request) {
	var req GapRequest
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

	analyses, err := s.deps.Analyzer.AnalyzeTopClusters(r.Context(), req.Scores, country, topN)
	if err != nil {
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, analyses)
}

// RecommendationRequest is the body of POST /api/recommendations
type RecommendationRequest struct {
	Scores   []core.ClusterScore `json:"scores" validate:"required,min=1"`
	Analyses []core.GapAnalysis  `json:"analyses" validate:"required"`
	Country  string              `json:"country"`
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	var req RecommendationRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	country := req.Country
	if country == "" {
		country = s.deps.Country
	}

	recs, err := s.deps.Recommender.GenerateRecommendations(r.Context(), req.Scores, req.Analyses, country)
	if err != nil {
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, recs)
}
