package api

import "github.com/oryx-ai/conductor/internal/core/domain"

// RouteResponse is the terminal answer for one routed prompt. Provider
// exhaustion is reported here with success=false, never as an HTTP error.
type RouteResponse struct {
	RequestID     string                 `json:"request_id"`
	Success       bool                   `json:"success"`
	Result        string                 `json:"result,omitempty"`
	ProviderID    string                 `json:"provider_id,omitempty"`
	FallbacksUsed []string               `json:"fallbacks_used,omitempty"`
	Analysis      *domain.PromptAnalysis `json:"analysis,omitempty"`
	Usage         domain.TokenUsage      `json:"usage"`
	LatencyMS     int64                  `json:"latency_ms"`
	Error         string                 `json:"error,omitempty"`
}

func RouteResponseFrom(res *domain.RouteResult) RouteResponse {
	return RouteResponse{
		RequestID:     res.RequestID,
		Success:       res.Success,
		Result:        res.Result,
		ProviderID:    res.ProviderID,
		FallbacksUsed: res.FallbacksUsed,
		Analysis:      res.Analysis,
		Usage:         res.Usage,
		LatencyMS:     res.LatencyMS,
		Error:         res.ErrorMessage,
	}
}

// StreamChunkResponse is one SSE event on the streaming route endpoint.
// A restart event tells the client to discard partial output; the next
// chunks come from a fresh provider attempt.
type StreamChunkResponse struct {
	Chunk      string         `json:"chunk,omitempty"`
	ProviderID string         `json:"provider_id,omitempty"`
	Restart    bool           `json:"restart,omitempty"`
	Result     *RouteResponse `json:"result,omitempty"`
}

// TranscriptResponse carries a speech-to-text result.
type TranscriptResponse struct {
	Text string `json:"text"`
}

// ErrorResponse is the minimal error shape for auth and rate-limit rejections.
type ErrorResponse struct {
	Message string `json:"message"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
