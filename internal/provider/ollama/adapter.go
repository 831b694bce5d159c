package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/oryx-ai/conductor/internal/core/domain"
	"github.com/oryx-ai/conductor/internal/core/ports"
	"github.com/oryx-ai/conductor/internal/httpclient"
	"github.com/oryx-ai/conductor/internal/provider"
)

func init() {
	provider.Register("ollama", NewAdapter)
}

const defaultModel = "llama3.2"

// Adapter talks to a local Ollama daemon. There is no API key; Validate
// only checks reachability.
type Adapter struct {
	cfg    domain.ProviderConfig
	client httpclient.HTTPClient
}

func NewAdapter(cfg domain.ProviderConfig) (ports.Provider, error) {
	a := &Adapter{client: &http.Client{Timeout: 120 * time.Second}}
	if err := a.Initialize(cfg); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Adapter) ID() string   { return a.cfg.ID }
func (a *Adapter) Type() string { return "ollama" }

func (a *Adapter) Initialize(cfg domain.ProviderConfig) error {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	a.cfg = cfg
	return nil
}

type options struct {
	Temperature float64  `json:"temperature,omitempty"`
	TopP        float64  `json:"top_p,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type request struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	System  string   `json:"system,omitempty"`
	Stream  bool     `json:"stream"`
	Options *options `json:"options,omitempty"`
}

type response struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

func (a *Adapter) buildRequest(prompt string, params domain.ModelParams, stream bool) request {
	req := request{
		Model:  a.cfg.Model,
		Prompt: prompt,
		Stream: stream,
	}
	if params.Temperature != 0 || params.TopP != 0 || params.MaxTokens != 0 || len(params.Stop) > 0 {
		req.Options = &options{
			Temperature: params.Temperature,
			TopP:        params.TopP,
			NumPredict:  params.MaxTokens,
			Stop:        params.Stop,
		}
	}
	var system []string
	if params.Format != "" {
		system = append(system, "Respond in "+params.Format+" format.")
	}
	if params.Tone != "" {
		system = append(system, "Use a "+params.Tone+" tone.")
	}
	if params.Language != "" {
		system = append(system, "Respond in "+params.Language+".")
	}
	req.System = strings.Join(system, " ")
	return req
}

func (a *Adapter) Complete(ctx context.Context, prompt string, params domain.ModelParams) (*ports.Completion, error) {
	url := strings.TrimRight(a.cfg.BaseURL, "/") + "/api/generate"

	var resp response
	if err := httpclient.SendRequest(ctx, a.client, "POST", url, nil, a.buildRequest(prompt, params, false), &resp); err != nil {
		return nil, domain.ProviderError(fmt.Sprintf("ollama completion failed for %q", a.cfg.ID), err)
	}

	return &ports.Completion{
		Text:  resp.Response,
		Model: resp.Model,
		Usage: domain.TokenUsage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
	}, nil
}

func (a *Adapter) Stream(ctx context.Context, prompt string, params domain.ModelParams) (<-chan ports.StreamChunk, error) {
	// Ollama streams newline-delimited JSON objects rather than SSE.
	url := strings.TrimRight(a.cfg.BaseURL, "/") + "/api/generate"
	ch := make(chan ports.StreamChunk)

	go func() {
		defer close(ch)

		err := httpclient.StreamRequest(ctx, a.client, "POST", url, nil, a.buildRequest(prompt, params, true), func(line string) error {
			var chunk response
			if err := json.Unmarshal([]byte(line), &chunk); err != nil {
				return nil
			}
			if chunk.Response != "" {
				select {
				case ch <- ports.StreamChunk{Text: chunk.Response}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
		// Terminal sends must not block a goroutine forever when the
		// consumer walked away.
		if err != nil {
			select {
			case ch <- ports.StreamChunk{Err: domain.ProviderError(fmt.Sprintf("ollama stream failed for %q", a.cfg.ID), err)}:
			case <-ctx.Done():
			}
			return
		}
		select {
		case ch <- ports.StreamChunk{Done: true}:
		case <-ctx.Done():
		}
	}()

	return ch, nil
}

func (a *Adapter) Validate(ctx context.Context, _ string) ports.KeyStatus {
	url := strings.TrimRight(a.cfg.BaseURL, "/") + "/api/tags"

	if err := httpclient.SendRequest(ctx, a.client, "GET", url, nil, nil, nil); err != nil {
		return ports.KeyUnreachable
	}
	return ports.KeyValid
}
