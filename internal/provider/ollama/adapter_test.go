package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oryx-ai/conductor/internal/core/domain"
	"github.com/oryx-ai/conductor/internal/core/ports"
)

func newTestAdapter(t *testing.T, baseURL string) *Adapter {
	t.Helper()
	a, err := NewAdapter(domain.ProviderConfig{
		ID:      "ollama-test",
		Type:    "ollama",
		BaseURL: baseURL,
		Model:   "tinydolphin",
	})
	require.NoError(t, err)
	return a.(*Adapter)
}

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tinydolphin", req.Model)
		assert.Equal(t, "Say hi", req.Prompt)
		assert.False(t, req.Stream)
		require.NotNil(t, req.Options)
		assert.Equal(t, 0.5, req.Options.Temperature)

		_ = json.NewEncoder(w).Encode(response{
			Model:           "tinydolphin",
			Response:        "Hi!",
			Done:            true,
			PromptEvalCount: 4,
			EvalCount:       2,
		})
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	comp, err := a.Complete(context.Background(), "Say hi", domain.ModelParams{Temperature: 0.5})
	require.NoError(t, err)

	assert.Equal(t, "Hi!", comp.Text)
	assert.Equal(t, "tinydolphin", comp.Model)
	assert.Equal(t, 6, comp.Usage.TotalTokens)
}

func TestStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		// Newline-delimited JSON, not SSE.
		_, _ = w.Write([]byte(`{"response":"Hel","done":false}` + "\n"))
		_, _ = w.Write([]byte(`{"response":"lo","done":false}` + "\n"))
		_, _ = w.Write([]byte(`{"response":"","done":true}` + "\n"))
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	ch, err := a.Stream(context.Background(), "Say hello", domain.ModelParams{})
	require.NoError(t, err)

	var text string
	var done bool
	for chunk := range ch {
		require.NoError(t, chunk.Err)
		if chunk.Done {
			done = true
			continue
		}
		text += chunk.Text
	}
	assert.Equal(t, "Hello", text)
	assert.True(t, done)
}

func TestValidateIgnoresKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	assert.Equal(t, ports.KeyValid, a.Validate(context.Background(), ""))
	assert.Equal(t, ports.KeyValid, a.Validate(context.Background(), "ignored"))
}

func TestValidateUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	a := newTestAdapter(t, srv.URL)
	a.client = &http.Client{Timeout: time.Second}
	assert.Equal(t, ports.KeyUnreachable, a.Validate(context.Background(), ""))
}
