package ports

import (
	"context"

	"github.com/oryx-ai/conductor/internal/core/domain"
)

// KeyStatus is the tri-state outcome of a credential check. The registry's
// public surface still collapses this to a bool (invalid and unreachable both
// read as false); the distinction is kept here so the conflation lives at a
// single documented call site.
type KeyStatus int

const (
	KeyInvalid KeyStatus = iota
	KeyValid
	KeyUnreachable
)

// Completion is one non-streamed provider response.
type Completion struct {
	Text  string
	Model string
	Usage domain.TokenUsage
}

// StreamChunk is one element of a provider's lazy completion stream. A chunk
// with Err set terminates the stream; Done marks clean completion.
type StreamChunk struct {
	Text string
	Done bool
	Err  error
}

// Provider is the capability contract every vendor adapter implements.
type Provider interface {
	ID() string
	Type() string // e.g. "openai", "anthropic"

	// Initialize binds a credential and vendor config to the adapter.
	Initialize(cfg domain.ProviderConfig) error

	// Validate checks a credential against the vendor endpoint.
	Validate(ctx context.Context, key string) KeyStatus

	// Complete executes one prompt and blocks for the full response.
	Complete(ctx context.Context, prompt string, params domain.ModelParams) (*Completion, error)
}

// Streamer is the optional streaming capability. The channel is finite and
// non-restartable; a mid-stream error fails the whole candidate.
type Streamer interface {
	Stream(ctx context.Context, prompt string, params domain.ModelParams) (<-chan StreamChunk, error)
}

// Embedder is the optional embedding capability.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}
