package anthropic

import (
	"context"
	"encoding/json"
	"errors"
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
	provider.Register("anthropic", NewAdapter)
}

const (
	defaultModel     = "claude-sonnet-4-5"
	defaultVersion   = "2023-06-01"
	defaultMaxTokens = 4096
)

type Adapter struct {
	cfg    domain.ProviderConfig
	client httpclient.HTTPClient
}

func NewAdapter(cfg domain.ProviderConfig) (ports.Provider, error) {
	a := &Adapter{client: &http.Client{Timeout: 60 * time.Second}}
	if err := a.Initialize(cfg); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Adapter) ID() string   { return a.cfg.ID }
func (a *Adapter) Type() string { return "anthropic" }

func (a *Adapter) Initialize(cfg domain.ProviderConfig) error {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	a.cfg = cfg
	return nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	System      string    `json:"system,omitempty"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature,omitempty"`
	TopP        float64   `json:"top_p,omitempty"`
	Stop        []string  `json:"stop_sequences,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

type content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type response struct {
	Content    []content `json:"content"`
	Model      string    `json:"model"`
	StopReason string    `json:"stop_reason"`
	Usage      usage     `json:"usage"`
}

type streamEvent struct {
	Type  string `json:"type"`
	Delta *struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta,omitempty"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (a *Adapter) buildRequest(prompt string, params domain.ModelParams, stream bool) request {
	req := request{
		Model:       a.cfg.Model,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
		TopP:        params.TopP,
		Stop:        params.Stop,
		Stream:      stream,
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = defaultMaxTokens
	}
	// Scope hints land on the system prompt; Anthropic has a first-class
	// field for it.
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
	req.Messages = []message{{Role: "user", Content: prompt}}
	return req
}

func (a *Adapter) headers(key string) map[string]string {
	version := a.cfg.Extra["version"]
	if version == "" {
		version = defaultVersion
	}
	return map[string]string{
		"x-api-key":         key,
		"anthropic-version": version,
	}
}

func (a *Adapter) Complete(ctx context.Context, prompt string, params domain.ModelParams) (*ports.Completion, error) {
	url := strings.TrimRight(a.cfg.BaseURL, "/") + "/messages"

	var resp response
	if err := httpclient.SendRequest(ctx, a.client, "POST", url, a.headers(a.cfg.Credential), a.buildRequest(prompt, params, false), &resp); err != nil {
		return nil, domain.ProviderError(fmt.Sprintf("anthropic completion failed for %q", a.cfg.ID), err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &ports.Completion{
		Text:  text.String(),
		Model: resp.Model,
		Usage: domain.TokenUsage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}

func (a *Adapter) Stream(ctx context.Context, prompt string, params domain.ModelParams) (<-chan ports.StreamChunk, error) {
	url := strings.TrimRight(a.cfg.BaseURL, "/") + "/messages"
	ch := make(chan ports.StreamChunk)

	go func() {
		defer close(ch)

		err := httpclient.StreamRequest(ctx, a.client, "POST", url, a.headers(a.cfg.Credential), a.buildRequest(prompt, params, true), func(line string) error {
			payload, ok := strings.CutPrefix(line, "data: ")
			if !ok {
				return nil
			}
			var event streamEvent
			if err := json.Unmarshal([]byte(payload), &event); err != nil {
				return nil
			}
			if event.Type == "error" && event.Error != nil {
				return fmt.Errorf("anthropic stream error: %s", event.Error.Message)
			}
			if event.Type == "content_block_delta" && event.Delta != nil && event.Delta.Text != "" {
				select {
				case ch <- ports.StreamChunk{Text: event.Delta.Text}:
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
			case ch <- ports.StreamChunk{Err: domain.ProviderError(fmt.Sprintf("anthropic stream failed for %q", a.cfg.ID), err)}:
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

func (a *Adapter) Validate(ctx context.Context, key string) ports.KeyStatus {
	// A minimal request; auth failures come back as 401, which the helper
	// surfaces as an UpstreamError.
	url := strings.TrimRight(a.cfg.BaseURL, "/") + "/models"

	err := httpclient.SendRequest(ctx, a.client, "GET", url, a.headers(key), nil, nil)
	if err == nil {
		return ports.KeyValid
	}
	var ue *httpclient.UpstreamError
	if errors.As(err, &ue) {
		return ports.KeyInvalid
	}
	return ports.KeyUnreachable
}
