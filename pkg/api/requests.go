package api

import "github.com/oryx-ai/conductor/internal/core/domain"

// RouteRequest asks the router to classify and dispatch a prompt.
type RouteRequest struct {
	Prompt string `json:"prompt" binding:"required"`

	// ScopeID selects a stored scope; empty means route without one.
	ScopeID string `json:"scope_id,omitempty"`

	// MaxRetries caps provider fallbacks for this request; 0 means the
	// server default.
	MaxRetries int `json:"max_retries,omitempty" binding:"omitempty,min=0,max=10"`
}

// CreateScopeRequest creates a scope. The id is server-assigned.
type CreateScopeRequest struct {
	Name           string                 `json:"name" binding:"required"`
	Type           string                 `json:"type,omitempty" binding:"omitempty,oneof=chat template essay custom"`
	Context        domain.ScopeContext    `json:"context"`
	LLMPreferences domain.LLMPreferences  `json:"llm_preferences"`
	TemplateID     string                 `json:"template_id,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// UpdateScopeRequest is a partial scope update; absent fields are untouched.
type UpdateScopeRequest struct {
	Name           *string                 `json:"name,omitempty"`
	Type           *string                 `json:"type,omitempty" binding:"omitempty,oneof=chat template essay custom"`
	Context        *domain.ContextPatch    `json:"context,omitempty"`
	LLMPreferences *domain.PreferencesPatch `json:"llm_preferences,omitempty"`
	TemplateID     *string                 `json:"template_id,omitempty"`
	Metadata       map[string]interface{}  `json:"metadata,omitempty"`
}

// RuleRequest creates or replaces a classification rule.
type RuleRequest struct {
	ID            string   `json:"id" binding:"required"`
	Category      string   `json:"category" binding:"required"`
	Patterns      []string `json:"patterns,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
	Weight        float64  `json:"weight" binding:"required,gt=0"`
	LLMMapping    []string `json:"llm_mapping,omitempty"`
	MinConfidence float64  `json:"min_confidence,omitempty" binding:"omitempty,min=0"`
}

// RegisterProviderRequest registers a model back-end. The api_key is write-only;
// no read path ever returns it.
type RegisterProviderRequest struct {
	ID            string             `json:"id" binding:"required"`
	Type          string             `json:"type" binding:"required,oneof=openai anthropic google ollama"`
	Name          string             `json:"name" binding:"required"`
	Description   string             `json:"description,omitempty"`
	Capabilities  []string           `json:"capabilities,omitempty"`
	DefaultParams domain.ModelParams `json:"default_params"`
	Enabled       bool               `json:"enabled"`
	Cost          domain.ProviderCost `json:"cost"`
	BaseURL       string             `json:"base_url,omitempty"`
	Model         string             `json:"model,omitempty"`
	Extra         map[string]string  `json:"extra,omitempty"`
	APIKey        string             `json:"api_key,omitempty"`
}

// UpdateProviderRequest shallow-merges onto a registered provider.
type UpdateProviderRequest struct {
	Name          *string              `json:"name,omitempty"`
	Description   *string              `json:"description,omitempty"`
	Capabilities  *[]string            `json:"capabilities,omitempty"`
	DefaultParams *domain.ModelParams  `json:"default_params,omitempty"`
	Enabled       *bool                `json:"enabled,omitempty"`
	Cost          *domain.ProviderCost `json:"cost,omitempty"`
	BaseURL       *string              `json:"base_url,omitempty"`
	Model         *string              `json:"model,omitempty"`
	Extra         map[string]string    `json:"extra,omitempty"`
}

// SetAPIKeyRequest swaps the stored credential for a provider.
type SetAPIKeyRequest struct {
	APIKey string `json:"api_key" binding:"required"`
}

// SynthesizeRequest turns text into audio.
type SynthesizeRequest struct {
	Text   string  `json:"text" binding:"required"`
	Voice  string  `json:"voice,omitempty"`
	Format string  `json:"format,omitempty" binding:"omitempty,oneof=mp3 opus aac flac wav pcm"`
	Speed  float64 `json:"speed,omitempty" binding:"omitempty,min=0.25,max=4"`
}
