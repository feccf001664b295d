// Package extract implements the protocol shared by every LLM-backed stage:
// strip an optional code fence from the response, decode the remaining JSON,
// and run a structural check before any typed record leaves the package.
package extract

import (
	"errors"
	"fmt"
	"strings"

	"appscout/internal/llm"
	"appscout/internal/logger"

	"github.com/goccy/go-json"
)

// ParseError means the response was not valid JSON after fence stripping.
type ParseError struct {
	Stage string
	Raw   string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: failed to parse LLM response as JSON: %v", e.Stage, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError means the JSON decoded but did not have the required shape.
type ValidationError struct {
	Stage string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid LLM response structure: %v", e.Stage, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Error kinds reported by Kind.
const (
	KindNone       = ""
	KindHTTP       = "http"
	KindParse      = "parse"
	KindValidation = "validation"
	KindTransport  = "transport"
)

// Kind classifies an error coming out of an LLM stage.
func Kind(err error) string {
	if err == nil {
		return KindNone
	}
	var parseErr *ParseError
	var validationErr *ValidationError
	switch {
	case errors.As(err, &parseErr):
		return KindParse
	case errors.As(err, &validationErr):
		return KindValidation
	}
	if _, ok := llm.AsHTTPError(err); ok {
		return KindHTTP
	}
	return KindTransport
}

// StripFences removes a leading ``` or ```json fence line and a trailing ``` fence.
func StripFences(text string) string {
	clean := strings.TrimSpace(text)
	if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```")
		// Language tag, e.g. ```json or ```JSON
		if len(clean) >= 4 && strings.EqualFold(clean[:4], "json") {
			clean = clean[4:]
		}
		clean = strings.TrimSpace(clean)
	}
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}

// Parse decodes an LLM response into T and runs check on the result.
// check may be nil. On failure the zero T is returned together with a
// *ParseError or *ValidationError naming stage.
func Parse[T any](stage, text string, check func(*T) error) (T, error) {
	var out T
	clean := StripFences(text)
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		logger.Warn("Unparseable LLM response", "stage", stage, "raw", text)
		var zero T
		return zero, &ParseError{Stage: stage, Raw: text, Err: err}
	}
	if check != nil {
		if err := check(&out); err != nil {
			logger.Warn("LLM response failed validation", "stage", stage, "error", err.Error())
			var zero T
			return zero, &ValidationError{Stage: stage, Err: err}
		}
	}
	return out, nil
}
