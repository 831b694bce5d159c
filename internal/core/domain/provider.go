package domain

// ModelParams are the invocation parameters sent to a provider, seeded from
// the provider's defaults and overridden by scope-derived hints.
type ModelParams struct {
	Temperature      float64  `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
	TopP             float64  `json:"top_p" yaml:"top_p" mapstructure:"top_p"`
	MaxTokens        int      `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
	FrequencyPenalty float64  `json:"frequency_penalty,omitempty" yaml:"frequency_penalty" mapstructure:"frequency_penalty"`
	PresencePenalty  float64  `json:"presence_penalty,omitempty" yaml:"presence_penalty" mapstructure:"presence_penalty"`
	Stop             []string `json:"stop,omitempty" yaml:"stop" mapstructure:"stop"`

	// Scope-derived hints; vendor adapters map these onto provider-specific
	// parameter names (system prompt fragments for most vendors).
	Format   string `json:"format,omitempty" yaml:"-" mapstructure:"-"`
	Tone     string `json:"tone,omitempty" yaml:"-" mapstructure:"-"`
	Language string `json:"language,omitempty" yaml:"-" mapstructure:"-"`
}

// ProviderCost is per-token pricing metadata.
type ProviderCost struct {
	PromptTokenCost     float64 `json:"prompt_token_cost" yaml:"prompt_token_cost" mapstructure:"prompt_token_cost"`
	CompletionTokenCost float64 `json:"completion_token_cost" yaml:"completion_token_cost" mapstructure:"completion_token_cost"`
	Currency            string  `json:"currency" yaml:"currency" mapstructure:"currency"`
}

// ProviderConfig describes one model back-end.
type ProviderConfig struct {
	ID           string            `json:"id" yaml:"id" mapstructure:"id"`
	Type         string            `json:"type" yaml:"type" mapstructure:"type"`
	Name         string            `json:"name" yaml:"name" mapstructure:"name"`
	Description  string            `json:"description,omitempty" yaml:"description" mapstructure:"description"`
	Capabilities []string          `json:"capabilities" yaml:"capabilities" mapstructure:"capabilities"`
	DefaultParams ModelParams      `json:"default_params" yaml:"default_params" mapstructure:"default_params"`
	Enabled      bool              `json:"is_enabled" yaml:"enabled" mapstructure:"enabled"`
	Cost         ProviderCost      `json:"cost" yaml:"cost" mapstructure:"cost"`
	BaseURL      string            `json:"base_url,omitempty" yaml:"base_url" mapstructure:"base_url"`
	Model        string            `json:"model,omitempty" yaml:"model" mapstructure:"model"`
	Extra        map[string]string `json:"extra,omitempty" yaml:"extra" mapstructure:"extra"`

	// Credential is tenant- or platform-scoped and never logged or returned
	// to callers. Registry reads scrub it.
	Credential string `json:"-" yaml:"api_key" mapstructure:"api_key"`
}

// HasCapability reports whether the provider declares the given capability
// tag ("text", "code", "vision", "embeddings").
func (p ProviderConfig) HasCapability(tag string) bool {
	for _, c := range p.Capabilities {
		if c == tag {
			return true
		}
	}
	return false
}

// ProviderPatch is a partial ProviderConfig for shallow-merge updates.
// The id is immutable and has no patch field.
type ProviderPatch struct {
	Name          *string           `json:"name,omitempty"`
	Description   *string           `json:"description,omitempty"`
	Capabilities  *[]string         `json:"capabilities,omitempty"`
	DefaultParams *ModelParams      `json:"default_params,omitempty"`
	Enabled       *bool             `json:"is_enabled,omitempty"`
	Cost          *ProviderCost     `json:"cost,omitempty"`
	BaseURL       *string           `json:"base_url,omitempty"`
	Model         *string           `json:"model,omitempty"`
	Extra         map[string]string `json:"extra,omitempty"`
}
