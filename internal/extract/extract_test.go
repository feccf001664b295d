package extract

import (
	"errors"
	"fmt"
	"testing"

	"appscout/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Clusters []struct {
		Name     string   `json:"name" validate:"required"`
		Keywords []string `json:"keywords" validate:"required"`
		Theme    string   `json:"theme" validate:"required"`
	} `json:"clusters" validate:"required,dive"`
}

func checkPayload(p *payload) error { return Struct(p) }

const body = `{"clusters":[{"name":"Photo","keywords":["photo editor"],"theme":"Editing"}]}`

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", body, body},
		{"json fence", "```json\n" + body + "\n```", body},
		{"upper json fence", "```JSON\n" + body + "\n```", body},
		{"generic fence", "```\n" + body + "\n```", body},
		{"surrounding whitespace", "\n\n  ```json\n" + body + "\n```  \n", body},
		{"trailing fence only", body + "\n```", body},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFences(tt.in))
		})
	}
}

func TestParse_FencedAndBareAreIdentical(t *testing.T) {
	fenced, err := Parse("clustering", "```json\n"+body+"\n```", checkPayload)
	require.NoError(t, err)
	bare, err := Parse("clustering", body, checkPayload)
	require.NoError(t, err)

	assert.Equal(t, bare, fenced)
	require.Len(t, bare.Clusters, 1)
	assert.Equal(t, "Photo", bare.Clusters[0].Name)
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := Parse("gap analysis", "Sure! Here is your analysis: {", checkPayload)
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "gap analysis", parseErr.Stage)
	assert.Contains(t, parseErr.Raw, "Sure!")
	assert.Contains(t, err.Error(), "gap analysis")
	assert.Equal(t, KindParse, Kind(err))
}

func TestParse_ValidationFailure(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"missing clusters", `{"groups":[]}`},
		{"empty name", `{"clusters":[{"name":"","keywords":[],"theme":"t"}]}`},
		{"missing keywords", `{"clusters":[{"name":"n","theme":"t"}]}`},
		{"missing theme", `{"clusters":[{"name":"n","keywords":["a"]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Parse("clustering", tt.in, checkPayload)
			require.Error(t, err)
			assert.Equal(t, KindValidation, Kind(err))
			assert.Nil(t, out.Clusters)
		})
	}
}

func TestParse_EmptyKeywordArrayIsValid(t *testing.T) {
	_, err := Parse("clustering", `{"clusters":[{"name":"n","keywords":[],"theme":"t"}]}`, checkPayload)
	assert.NoError(t, err)
}

func TestParse_NilCheck(t *testing.T) {
	out, err := Parse[map[string]any]("any", `{"a":1}`, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, out["a"])
}

func TestStruct_UsesJSONNames(t *testing.T) {
	err := Struct(&payload{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clusters")
}

func TestKind(t *testing.T) {
	assert.Equal(t, KindNone, Kind(nil))
	assert.Equal(t, KindHTTP, Kind(fmt.Errorf("wrapped: %w", &llm.HTTPError{Status: 500})))
	assert.Equal(t, KindTransport, Kind(errors.New("connection reset")))
}
