package google

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
	provider.Register("google", NewAdapter)
}

const defaultModel = "gemini-2.0-flash"

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
func (a *Adapter) Type() string { return "google" }

func (a *Adapter) Initialize(cfg domain.ProviderConfig) error {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	a.cfg = cfg
	return nil
}

type part struct {
	Text string `json:"text"`
}

type genContent struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64  `json:"temperature,omitempty"`
	TopP            float64  `json:"topP,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

type request struct {
	Contents          []genContent      `json:"contents"`
	SystemInstruction *genContent       `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type candidate struct {
	Content      genContent `json:"content"`
	FinishReason string     `json:"finishReason"`
}

type response struct {
	Candidates    []candidate   `json:"candidates"`
	UsageMetadata usageMetadata `json:"usageMetadata"`
	ModelVersion  string        `json:"modelVersion"`
}

func (a *Adapter) buildRequest(prompt string, params domain.ModelParams) request {
	req := request{
		Contents: []genContent{{Role: "user", Parts: []part{{Text: prompt}}}},
	}
	if params.Temperature != 0 || params.TopP != 0 || params.MaxTokens != 0 || len(params.Stop) > 0 {
		req.GenerationConfig = &generationConfig{
			Temperature:     params.Temperature,
			TopP:            params.TopP,
			MaxOutputTokens: params.MaxTokens,
			StopSequences:   params.Stop,
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
	if len(system) > 0 {
		req.SystemInstruction = &genContent{Parts: []part{{Text: strings.Join(system, " ")}}}
	}
	return req
}

func (a *Adapter) endpoint(method, key string) string {
	return fmt.Sprintf("%s/models/%s:%s?key=%s",
		strings.TrimRight(a.cfg.BaseURL, "/"), a.cfg.Model, method, key)
}

func collectText(resp *response) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			text.WriteString(p.Text)
		}
	}
	return text.String()
}

func (a *Adapter) Complete(ctx context.Context, prompt string, params domain.ModelParams) (*ports.Completion, error) {
	var resp response
	if err := httpclient.SendRequest(ctx, a.client, "POST", a.endpoint("generateContent", a.cfg.Credential), nil, a.buildRequest(prompt, params), &resp); err != nil {
		return nil, domain.ProviderError(fmt.Sprintf("google completion failed for %q", a.cfg.ID), err)
	}

	model := resp.ModelVersion
	if model == "" {
		model = a.cfg.Model
	}
	return &ports.Completion{
		Text:  collectText(&resp),
		Model: model,
		Usage: domain.TokenUsage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		},
	}, nil
}

func (a *Adapter) Stream(ctx context.Context, prompt string, params domain.ModelParams) (<-chan ports.StreamChunk, error) {
	// streamGenerateContent with alt=sse emits one SSE data line per chunk.
	url := a.endpoint("streamGenerateContent", a.cfg.Credential) + "&alt=sse"
	ch := make(chan ports.StreamChunk)

	go func() {
		defer close(ch)

		err := httpclient.StreamRequest(ctx, a.client, "POST", url, nil, a.buildRequest(prompt, params), func(line string) error {
			payload, ok := strings.CutPrefix(line, "data: ")
			if !ok {
				return nil
			}
			var chunk response
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				return nil
			}
			if text := collectText(&chunk); text != "" {
				select {
				case ch <- ports.StreamChunk{Text: text}:
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
			case ch <- ports.StreamChunk{Err: domain.ProviderError(fmt.Sprintf("google stream failed for %q", a.cfg.ID), err)}:
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
	url := fmt.Sprintf("%s/models?key=%s&pageSize=1", strings.TrimRight(a.cfg.BaseURL, "/"), key)

	err := httpclient.SendRequest(ctx, a.client, "GET", url, nil, nil, nil)
	if err == nil {
		return ports.KeyValid
	}
	var ue *httpclient.UpstreamError
	if errors.As(err, &ue) {
		return ports.KeyInvalid
	}
	return ports.KeyUnreachable
}
