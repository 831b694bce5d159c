package domain

import "time"

// ScopeType enumerates the kinds of scopes the dashboard creates.
type ScopeType string

const (
	ScopeChat     ScopeType = "chat"
	ScopeTemplate ScopeType = "template"
	ScopeEssay    ScopeType = "essay"
	ScopeCustom   ScopeType = "custom"
)

// ValidScopeType reports whether t is one of the enumerated scope types.
func ValidScopeType(t ScopeType) bool {
	switch t {
	case ScopeChat, ScopeTemplate, ScopeEssay, ScopeCustom:
		return true
	}
	return false
}

// ScopeContext carries the task framing a scope applies to every prompt
// routed under it.
type ScopeContext struct {
	Goals              []string `json:"goals"`
	Constraints        []string `json:"constraints"`
	Sources            []string `json:"sources,omitempty"`
	Format             string   `json:"format,omitempty"`
	CustomInstructions string   `json:"custom_instructions,omitempty"`
	Tone               string   `json:"tone,omitempty"`
	Language           string   `json:"language,omitempty"`
}

// LLMPreferences pins or bans providers for everything routed under a scope.
type LLMPreferences struct {
	Preferred []string `json:"preferred"`
	Excluded  []string `json:"excluded"`
	Fallback  []string `json:"fallback,omitempty"`
}

// Scope is a named bundle of goals, constraints, and provider preferences.
type Scope struct {
	ID             string                 `json:"id"`
	Type           ScopeType              `json:"type"`
	Name           string                 `json:"name"`
	Context        ScopeContext           `json:"context"`
	LLMPreferences LLMPreferences         `json:"llm_preferences"`
	TemplateID     string                 `json:"template_id,omitempty"`
	Metadata       map[string]interface{} `json:"metadata"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// ContextPatch is a partial ScopeContext; nil fields are left untouched on
// update, set fields overwrite.
type ContextPatch struct {
	Goals              *[]string `json:"goals,omitempty"`
	Constraints        *[]string `json:"constraints,omitempty"`
	Sources            *[]string `json:"sources,omitempty"`
	Format             *string   `json:"format,omitempty"`
	CustomInstructions *string   `json:"custom_instructions,omitempty"`
	Tone               *string   `json:"tone,omitempty"`
	Language           *string   `json:"language,omitempty"`
}

// PreferencesPatch is a partial LLMPreferences with the same merge rules as
// ContextPatch.
type PreferencesPatch struct {
	Preferred *[]string `json:"preferred,omitempty"`
	Excluded  *[]string `json:"excluded,omitempty"`
	Fallback  *[]string `json:"fallback,omitempty"`
}

// ScopeUpdate describes a partial update. Context, LLMPreferences, and
// Metadata merge shallowly; every other field is replaced wholesale when set.
type ScopeUpdate struct {
	Type           *ScopeType             `json:"type,omitempty"`
	Name           *string                `json:"name,omitempty"`
	TemplateID     *string                `json:"template_id,omitempty"`
	Context        *ContextPatch          `json:"context,omitempty"`
	LLMPreferences *PreferencesPatch      `json:"llm_preferences,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// ScopeFilter narrows a scope listing. Scalar fields match exactly; Contains
// is substring-matched against the serialized context/preferences/metadata.
type ScopeFilter struct {
	Type     ScopeType
	Name     string
	Contains string
}
