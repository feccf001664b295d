package core

import (
	"errors"
	"fmt"
	"time"
)

// SessionStatus is the stage a research session is in.
type SessionStatus string

const (
	StatusDiscovering SessionStatus = "discovering"
	StatusClustering  SessionStatus = "clustering"
	StatusScoring     SessionStatus = "scoring"
	StatusAnalyzing   SessionStatus = "analyzing"
	StatusComplete    SessionStatus = "complete"
	StatusFailed      SessionStatus = "failed"
)

// ErrInvalidTransition is returned when a session is moved backwards or skips a stage.
var ErrInvalidTransition = errors.New("invalid session transition")

var nextStatus = map[SessionStatus]SessionStatus{
	StatusDiscovering: StatusClustering,
	StatusClustering:  StatusScoring,
	StatusScoring:     StatusAnalyzing,
	StatusAnalyzing:   StatusComplete,
}

// Session holds the outputs of each pipeline stage for one research run.
type Session struct {
	ID              string              `json:"id"`
	Status          SessionStatus       `json:"status"`
	Country         string              `json:"country"`
	Keywords        []DiscoveredKeyword `json:"keywords"`
	Clusters        []Cluster           `json:"clusters"`
	Scores          []ClusterScore      `json:"scores"`
	GapAnalyses     []GapAnalysis       `json:"gapAnalyses"`
	Recommendations []Recommendation    `json:"recommendations"`
	Error           string              `json:"error,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

// NewSession creates a session in the discovering state.
func NewSession(country string, keywords []DiscoveredKeyword) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        NewID(),
		Status:    StatusDiscovering,
		Country:   country,
		Keywords:  keywords,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Advance moves the session to the next stage. Only the single forward step
// is allowed, except that any non-terminal session may fail.
func (s *Session) Advance(to SessionStatus) error {
	if to == StatusFailed && s.Status != StatusComplete {
		s.Status = to
		s.UpdatedAt = time.Now().UTC()
		return nil
	}
	if nextStatus[s.Status] != to {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, to)
	}
	s.Status = to
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Fail records err and moves the session to the failed state.
func (s *Session) Fail(err error) {
	if err != nil {
		s.Error = err.Error()
	}
	_ = s.Advance(StatusFailed)
}

// Done reports whether the session reached a terminal state.
func (s *Session) Done() bool {
	return s.Status == StatusComplete || s.Status == StatusFailed
}
