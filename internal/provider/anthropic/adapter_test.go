package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oryx-ai/conductor/internal/core/domain"
	"github.com/oryx-ai/conductor/internal/core/ports"
)

func newTestAdapter(t *testing.T, baseURL string) *Adapter {
	t.Helper()
	p, err := NewAdapter(domain.ProviderConfig{
		ID:         "anthropic-test",
		Type:       "anthropic",
		BaseURL:    baseURL,
		Credential: "ak-test",
	})
	require.NoError(t, err)
	return p.(*Adapter)
}

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "ak-test", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, defaultMaxTokens, req.MaxTokens)
		assert.Contains(t, req.System, "formal tone")
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"model": "claude-sonnet-4-5",
			"content": [{"type": "text", "text": "certainly"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 2}
		}`))
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	got, err := a.Complete(context.Background(), "say hi", domain.ModelParams{Tone: "formal"})
	require.NoError(t, err)
	assert.Equal(t, "certainly", got.Text)
	assert.Equal(t, 12, got.Usage.TotalTokens)
}

func TestStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("event: message_start\n"))
		w.Write([]byte("data: {\"type\":\"message_start\"}\n\n"))
		w.Write([]byte("data: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"cer\"}}\n\n"))
		w.Write([]byte("data: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"tainly\"}}\n\n"))
		w.Write([]byte("data: {\"type\":\"message_stop\"}\n\n"))
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	ch, err := a.Stream(context.Background(), "say hi", domain.ModelParams{})
	require.NoError(t, err)

	var text string
	var done bool
	for chunk := range ch {
		require.NoError(t, chunk.Err)
		text += chunk.Text
		done = done || chunk.Done
	}
	assert.Equal(t, "certainly", text)
	assert.True(t, done)
}

func TestStreamUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"par\"}}\n\n"))
		w.Write([]byte("data: {\"type\":\"error\",\"error\":{\"message\":\"overloaded\"}}\n\n"))
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	ch, err := a.Stream(context.Background(), "say hi", domain.ModelParams{})
	require.NoError(t, err)

	var streamErr error
	for chunk := range ch {
		if chunk.Err != nil {
			streamErr = chunk.Err
		}
	}
	require.Error(t, streamErr)
	assert.Contains(t, streamErr.Error(), "anthropic stream failed")
}

func TestValidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "ak-test" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": {"message": "invalid x-api-key"}}`))
			return
		}
		w.Write([]byte(`{"data": []}`))
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	assert.Equal(t, ports.KeyValid, a.Validate(context.Background(), "ak-test"))
	assert.Equal(t, ports.KeyInvalid, a.Validate(context.Background(), "wrong"))
}
