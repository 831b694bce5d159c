package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oryx-ai/conductor/internal/core/domain"
	"github.com/oryx-ai/conductor/internal/core/ports"
)

func newTestAdapter(t *testing.T, baseURL string) *Adapter {
	t.Helper()
	p, err := NewAdapter(domain.ProviderConfig{
		ID:         "openai-test",
		Type:       "openai",
		BaseURL:    baseURL,
		Credential: "sk-test",
	})
	require.NoError(t, err)
	return p.(*Adapter)
}

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Contains(t, req.Messages[0].Content, "json format")
		assert.Equal(t, "say hi", req.Messages[1].Content)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"model": "gpt-4o-mini",
			"choices": [{"message": {"content": "hi there"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 3, "total_tokens": 8}
		}`))
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	got, err := a.Complete(context.Background(), "say hi", domain.ModelParams{Format: "json"})
	require.NoError(t, err)
	assert.Equal(t, "hi there", got.Text)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, 8, got.Usage.TotalTokens)
}

func TestCompleteUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "rate limited"}}`))
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	_, err := a.Complete(context.Background(), "say hi", domain.ModelParams{})
	require.Error(t, err)

	var derr *domain.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, http.StatusBadGateway, derr.Code)
}

func TestStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"hel\"}}]}\n\n"))
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n"))
		w.Write([]byte("data: not-json\n\n"))
		w.Write([]byte("data: [DONE]\n\n"))
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
	assert.Equal(t, "hello", text)
	assert.True(t, done)
}

// A consumer that cancels mid-stream and walks away must not strand the
// streaming goroutine on its final channel send.
func TestStreamAbandonedAfterCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fl, _ := w.(http.Flusher)
		for i := 0; i < 200; i++ {
			w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n\n"))
			if fl != nil {
				fl.Flush()
			}
		}
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	before := runtime.NumGoroutine()

	for i := 0; i < 10; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		ch, err := a.Stream(ctx, "say hi", domain.ModelParams{})
		require.NoError(t, err)
		<-ch
		cancel()
	}

	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+3
	}, 2*time.Second, 50*time.Millisecond, "stream goroutines never exited")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    ports.KeyStatus
	}{
		{
			name: "valid key",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/models", r.URL.Path)
				w.Write([]byte(`{"data": []}`))
			},
			want: ports.KeyValid,
		},
		{
			name: "rejected key",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error": {"message": "invalid api key"}}`))
			},
			want: ports.KeyInvalid,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			a := newTestAdapter(t, srv.URL)
			assert.Equal(t, tt.want, a.Validate(context.Background(), "sk-test"))
		})
	}
}

func TestValidateUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	a := newTestAdapter(t, srv.URL)
	assert.Equal(t, ports.KeyUnreachable, a.Validate(context.Background(), "sk-test"))
}
