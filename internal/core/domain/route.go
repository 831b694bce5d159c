package domain

import "time"

// RouteState names a step in the per-request routing state machine.
type RouteState string

const (
	StateClassifying RouteState = "classifying"
	StateSelecting   RouteState = "selecting_candidate"
	StateInvoking    RouteState = "invoking"
	StateSuccess     RouteState = "success"
	StateExhausted   RouteState = "exhausted"
)

// RouteRequest asks the Router to execute one prompt.
type RouteRequest struct {
	// ID correlates logs and usage records; generated when empty.
	ID     string
	Prompt string
	// Scope frames the request; optional.
	Scope *Scope
	// Analysis, when pre-computed by the caller, skips classification.
	Analysis *PromptAnalysis
	// MaxRetries bounds real provider attempts. Zero means "try every
	// candidate once".
	MaxRetries int
}

// TokenUsage is the token accounting a provider reports, when it does.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// RouteResult is the structured outcome of one Route call. Provider-level
// failures never escape as Go errors; an exhausted candidate list yields
// Success=false with the last error carried as data.
type RouteResult struct {
	RequestID     string         `json:"request_id,omitempty"`
	Success       bool           `json:"success"`
	Result        string         `json:"result,omitempty"`
	ProviderID    string         `json:"provider_id,omitempty"`
	FallbacksUsed []string       `json:"fallbacks_used"`
	Analysis      *PromptAnalysis `json:"analysis,omitempty"`
	Usage         TokenUsage     `json:"usage"`
	LatencyMS     int64          `json:"latency_ms"`
	Err           error          `json:"-"`
	ErrorMessage  string         `json:"error,omitempty"`
}

// UsageRecord is the optional per-request usage log persisted by the Router.
type UsageRecord struct {
	RequestID  string
	PromptHash string
	ScopeID    string
	ProviderID string
	Success    bool
	Fallbacks  []string
	LatencyMS  int64
	Usage      TokenUsage
	Timestamp  time.Time
}
