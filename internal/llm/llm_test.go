package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMessagesServer(t *testing.T, handler http.HandlerFunc) *MessagesClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewMessagesClient(MessagesConfig{
		APIKey:    "test-key",
		BaseURL:   srv.URL,
		Model:     "test-model",
		MaxTokens: 1000,
		Timeout:   5 * time.Second,
	})
	require.NoError(t, err)
	return client
}

func TestMessagesClient_Complete(t *testing.T) {
	client := newMessagesServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, DefaultMessagesVersion, r.Header.Get("anthropic-version"))
		assert.Equal(t, "application/json", r.Header.Get("content-type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req messagesRequest
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, 1000, req.MaxTokens)
		assert.Equal(t, "be terse", req.System)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "hello", req.Messages[0].Content)

		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"ok\":"},{"type":"text","text":"true}"}]}`))
	})

	text, err := client.Complete(context.Background(), Request{System: "be terse", User: "hello"})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, text)
}

func TestMessagesClient_HTTPError(t *testing.T) {
	client := newMessagesServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("overloaded"))
	})

	_, err := client.Complete(context.Background(), Request{User: "hello"})
	require.Error(t, err)

	httpErr, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.Status)
	assert.Equal(t, "overloaded", httpErr.Body)
}

func TestMessagesClient_EmptyContent(t *testing.T) {
	client := newMessagesServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	})

	_, err := client.Complete(context.Background(), Request{User: "hello"})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestMessagesClient_EmptyPrompt(t *testing.T) {
	client := newMessagesServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	_, err := client.Complete(context.Background(), Request{})
	assert.Error(t, err)
}

func TestNewMessagesClient_RequiresKey(t *testing.T) {
	_, err := NewMessagesClient(MessagesConfig{})
	assert.Error(t, err)
}

func TestTracedClient_PassesThrough(t *testing.T) {
	inner := CompleterFunc(func(ctx context.Context, req Request) (string, error) {
		return "stage=" + req.Stage, nil
	})
	traced := NewTracedClient(inner)

	text, err := traced.Complete(context.Background(), Request{Stage: "clustering", User: "x"})
	require.NoError(t, err)
	assert.Equal(t, "stage=clustering", text)
	assert.Equal(t, "custom", traced.Name())
}

func TestBreakerClient_OpensAfterFailures(t *testing.T) {
	calls := 0
	inner := CompleterFunc(func(ctx context.Context, req Request) (string, error) {
		calls++
		return "", &HTTPError{Provider: "test", Status: 500, Body: "boom"}
	})
	b := NewBreakerClient(inner, BreakerSettings{FailureThreshold: 2, OpenTimeout: time.Minute})

	for i := 0; i < 2; i++ {
		_, err := b.Complete(context.Background(), Request{User: "x"})
		require.Error(t, err)
	}
	assert.Equal(t, "open", b.State())

	_, err := b.Complete(context.Background(), Request{User: "x"})
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, 2, calls)
}

func TestBreakerClient_ClientErrorsDoNotTrip(t *testing.T) {
	inner := CompleterFunc(func(ctx context.Context, req Request) (string, error) {
		return "", &HTTPError{Provider: "test", Status: 400, Body: "bad request"}
	})
	b := NewBreakerClient(inner, BreakerSettings{FailureThreshold: 1, OpenTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		_, err := b.Complete(context.Background(), Request{User: "x"})
		require.Error(t, err)
	}
	assert.Equal(t, "closed", b.State())
}
