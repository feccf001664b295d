// Package stage holds the execution helpers shared by the LLM-backed
// pipeline stages: the catch-and-degrade executor and the paced
// sequential iterator used by batch helpers.
package stage

import (
	"context"

	"appscout/internal/extract"
	"appscout/internal/llm"
	"appscout/internal/logger"
	"appscout/internal/metrics"
)

// Spec describes one prompted-extraction call.
type Spec[T any] struct {
	Stage    string
	Build    func() llm.Request
	Parse    func(text string) (T, error)
	Fallback func(err error) T // nil means errors propagate to the caller
}

// Run builds the request, calls the model and parses the response.
// When spec.Fallback is set, any failure (HTTP, transport, parse or
// validation) is logged and converted into the fallback value and Run
// returns a nil error. Without a fallback the error is returned as is.
func Run[T any](ctx context.Context, completer llm.Completer, spec Spec[T]) (T, error) {
	req := spec.Build()
	if req.Stage == "" {
		req.Stage = spec.Stage
	}

	text, err := completer.Complete(ctx, req)
	if err == nil {
		var out T
		out, err = spec.Parse(text)
		if err == nil {
			metrics.RecordStage(spec.Stage, metrics.OutcomeOK)
			return out, nil
		}
	}

	if spec.Fallback == nil {
		metrics.RecordStage(spec.Stage, metrics.OutcomeFailed)
		var zero T
		return zero, err
	}

	logger.Warn("Stage degraded to fallback result",
		"stage", spec.Stage,
		"kind", extract.Kind(err),
		"error", err.Error())
	metrics.RecordStage(spec.Stage, metrics.OutcomeDegraded)
	return spec.Fallback(err), nil
}
