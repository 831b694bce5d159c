package openai

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
	provider.Register("openai", NewAdapter)
}

const defaultModel = "gpt-4o-mini"

// Adapter speaks the OpenAI chat-completions dialect. It also serves any
// OpenAI-compatible endpoint (DeepSeek and friends) via BaseURL.
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
func (a *Adapter) Type() string { return "openai" }

func (a *Adapter) Initialize(cfg domain.ProviderConfig) error {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	a.cfg = cfg
	return nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model            string        `json:"model"`
	Messages         []chatMessage `json:"messages"`
	Temperature      float64       `json:"temperature,omitempty"`
	TopP             float64       `json:"top_p,omitempty"`
	MaxTokens        int           `json:"max_tokens,omitempty"`
	FrequencyPenalty float64       `json:"frequency_penalty,omitempty"`
	PresencePenalty  float64       `json:"presence_penalty,omitempty"`
	Stop             []string      `json:"stop,omitempty"`
	Stream           bool          `json:"stream,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (a *Adapter) buildRequest(prompt string, params domain.ModelParams, stream bool) chatRequest {
	req := chatRequest{
		Model:            a.cfg.Model,
		Temperature:      params.Temperature,
		TopP:             params.TopP,
		MaxTokens:        params.MaxTokens,
		FrequencyPenalty: params.FrequencyPenalty,
		PresencePenalty:  params.PresencePenalty,
		Stop:             params.Stop,
		Stream:           stream,
	}
	if system := systemHint(params); system != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: system})
	}
	req.Messages = append(req.Messages, chatMessage{Role: "user", Content: prompt})
	return req
}

// systemHint maps scope-derived hints onto a system message; OpenAI has no
// first-class parameters for them.
func systemHint(params domain.ModelParams) string {
	var parts []string
	if params.Format != "" {
		parts = append(parts, "Respond in "+params.Format+" format.")
	}
	if params.Tone != "" {
		parts = append(parts, "Use a "+params.Tone+" tone.")
	}
	if params.Language != "" {
		parts = append(parts, "Respond in "+params.Language+".")
	}
	return strings.Join(parts, " ")
}

func (a *Adapter) headers() map[string]string {
	h := map[string]string{"Authorization": "Bearer " + a.cfg.Credential}
	if org, ok := a.cfg.Extra["organization"]; ok {
		h["OpenAI-Organization"] = org
	}
	return h
}

func (a *Adapter) Complete(ctx context.Context, prompt string, params domain.ModelParams) (*ports.Completion, error) {
	url := strings.TrimRight(a.cfg.BaseURL, "/") + "/chat/completions"

	var resp chatResponse
	if err := httpclient.SendRequest(ctx, a.client, "POST", url, a.headers(), a.buildRequest(prompt, params, false), &resp); err != nil {
		return nil, domain.ProviderError(fmt.Sprintf("openai completion failed for %q", a.cfg.ID), err)
	}
	if len(resp.Choices) == 0 {
		return nil, domain.ProviderError(fmt.Sprintf("openai returned no choices for %q", a.cfg.ID), nil)
	}

	return &ports.Completion{
		Text:  resp.Choices[0].Message.Content,
		Model: resp.Model,
		Usage: domain.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func (a *Adapter) Stream(ctx context.Context, prompt string, params domain.ModelParams) (<-chan ports.StreamChunk, error) {
	url := strings.TrimRight(a.cfg.BaseURL, "/") + "/chat/completions"
	ch := make(chan ports.StreamChunk)

	go func() {
		defer close(ch)

		err := httpclient.StreamRequest(ctx, a.client, "POST", url, a.headers(), a.buildRequest(prompt, params, true), func(line string) error {
			payload, ok := strings.CutPrefix(line, "data: ")
			if !ok {
				return nil
			}
			if payload == "[DONE]" {
				return nil
			}
			var event chatResponse
			if err := json.Unmarshal([]byte(payload), &event); err != nil {
				return nil // tolerate malformed keep-alive lines
			}
			if len(event.Choices) > 0 && event.Choices[0].Delta.Content != "" {
				select {
				case ch <- ports.StreamChunk{Text: event.Choices[0].Delta.Content}:
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
			case ch <- ports.StreamChunk{Err: domain.ProviderError(fmt.Sprintf("openai stream failed for %q", a.cfg.ID), err)}:
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
	url := strings.TrimRight(a.cfg.BaseURL, "/") + "/models"
	headers := map[string]string{"Authorization": "Bearer " + key}

	err := httpclient.SendRequest(ctx, a.client, "GET", url, headers, nil, nil)
	if err == nil {
		return ports.KeyValid
	}
	var ue *httpclient.UpstreamError
	if errors.As(err, &ue) {
		return ports.KeyInvalid
	}
	return ports.KeyUnreachable
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func (a *Adapter) Embed(ctx context.Context, text string) ([]float64, error) {
	url := strings.TrimRight(a.cfg.BaseURL, "/") + "/embeddings"

	model := a.cfg.Extra["embedding_model"]
	if model == "" {
		model = "text-embedding-3-small"
	}

	var resp embedResponse
	if err := httpclient.SendRequest(ctx, a.client, "POST", url, a.headers(), embedRequest{Model: model, Input: []string{text}}, &resp); err != nil {
		return nil, domain.ProviderError(fmt.Sprintf("openai embedding failed for %q", a.cfg.ID), err)
	}
	if len(resp.Data) == 0 {
		return nil, domain.ProviderError(fmt.Sprintf("openai returned no embedding for %q", a.cfg.ID), nil)
	}
	return resp.Data[0].Embedding, nil
}
