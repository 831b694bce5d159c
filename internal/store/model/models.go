package model

import (
	"encoding/json"
	"time"

	"github.com/oryx-ai/conductor/internal/core/domain"
)

// ScopeRecord is the durable shape of a domain.Scope. Nested bundles are
// stored as JSON columns; the store stays schema-light on purpose.
type ScopeRecord struct {
	ID              string    `db:"id" json:"id"`
	Type            string    `db:"type" json:"type"`
	Name            string    `db:"name" json:"name"`
	ContextJSON     string    `db:"context_json" json:"-"`
	PreferencesJSON string    `db:"preferences_json" json:"-"`
	TemplateID      string    `db:"template_id" json:"template_id"`
	MetadataJSON    string    `db:"metadata_json" json:"-"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// ScopeRecordFrom flattens a domain scope for storage.
func ScopeRecordFrom(s *domain.Scope) (*ScopeRecord, error) {
	ctxJSON, err := json.Marshal(s.Context)
	if err != nil {
		return nil, err
	}
	prefJSON, err := json.Marshal(s.LLMPreferences)
	if err != nil {
		return nil, err
	}
	metaJSON, err := json.Marshal(s.Metadata)
	if err != nil {
		return nil, err
	}
	return &ScopeRecord{
		ID:              s.ID,
		Type:            string(s.Type),
		Name:            s.Name,
		ContextJSON:     string(ctxJSON),
		PreferencesJSON: string(prefJSON),
		TemplateID:      s.TemplateID,
		MetadataJSON:    string(metaJSON),
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}, nil
}

// ToDomain rehydrates the record into a domain scope.
func (r *ScopeRecord) ToDomain() (*domain.Scope, error) {
	s := &domain.Scope{
		ID:         r.ID,
		Type:       domain.ScopeType(r.Type),
		Name:       r.Name,
		TemplateID: r.TemplateID,
		Metadata:   map[string]interface{}{},
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.ContextJSON != "" {
		if err := json.Unmarshal([]byte(r.ContextJSON), &s.Context); err != nil {
			return nil, err
		}
	}
	if r.PreferencesJSON != "" {
		if err := json.Unmarshal([]byte(r.PreferencesJSON), &s.LLMPreferences); err != nil {
			return nil, err
		}
	}
	if r.MetadataJSON != "" {
		if err := json.Unmarshal([]byte(r.MetadataJSON), &s.Metadata); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// RuleRecord is the durable shape of a classification rule.
type RuleRecord struct {
	ID             string    `db:"id" json:"id"`
	Category       string    `db:"category" json:"category"`
	PatternsJSON   string    `db:"patterns_json" json:"-"`
	KeywordsJSON   string    `db:"keywords_json" json:"-"`
	Weight         float64   `db:"weight" json:"weight"`
	LLMMappingJSON string    `db:"llm_mapping_json" json:"-"`
	MinConfidence  float64   `db:"min_confidence" json:"min_confidence"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

func RuleRecordFrom(rule domain.ClassificationRule) (*RuleRecord, error) {
	patterns, err := json.Marshal(rule.Patterns)
	if err != nil {
		return nil, err
	}
	keywords, err := json.Marshal(rule.Keywords)
	if err != nil {
		return nil, err
	}
	mapping, err := json.Marshal(rule.LLMMapping)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &RuleRecord{
		ID:             rule.ID,
		Category:       string(rule.Category),
		PatternsJSON:   string(patterns),
		KeywordsJSON:   string(keywords),
		Weight:         rule.Weight,
		LLMMappingJSON: string(mapping),
		MinConfidence:  rule.MinConfidence,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (r *RuleRecord) ToDomain() (domain.ClassificationRule, error) {
	rule := domain.ClassificationRule{
		ID:            r.ID,
		Category:      domain.Category(r.Category),
		Weight:        r.Weight,
		MinConfidence: r.MinConfidence,
	}
	if r.PatternsJSON != "" {
		if err := json.Unmarshal([]byte(r.PatternsJSON), &rule.Patterns); err != nil {
			return rule, err
		}
	}
	if r.KeywordsJSON != "" {
		if err := json.Unmarshal([]byte(r.KeywordsJSON), &rule.Keywords); err != nil {
			return rule, err
		}
	}
	if r.LLMMappingJSON != "" {
		if err := json.Unmarshal([]byte(r.LLMMappingJSON), &rule.LLMMapping); err != nil {
			return rule, err
		}
	}
	return rule, nil
}

// ProviderRecord mirrors the registry's catalogue entries. The credential is
// stored separately from anything the API ever returns.
type ProviderRecord struct {
	ID               string    `db:"id" json:"id"`
	Type             string    `db:"type" json:"type"`
	Name             string    `db:"name" json:"name"`
	Description      string    `db:"description" json:"description"`
	CapabilitiesJSON string    `db:"capabilities_json" json:"-"`
	ParamsJSON       string    `db:"params_json" json:"-"`
	CostJSON         string    `db:"cost_json" json:"-"`
	BaseURL          string    `db:"base_url" json:"base_url"`
	Model            string    `db:"model" json:"model"`
	Credential       string    `db:"credential" json:"-"`
	IsEnabled        bool      `db:"is_enabled" json:"is_enabled"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

func ProviderRecordFrom(cfg domain.ProviderConfig) (*ProviderRecord, error) {
	caps, err := json.Marshal(cfg.Capabilities)
	if err != nil {
		return nil, err
	}
	params, err := json.Marshal(cfg.DefaultParams)
	if err != nil {
		return nil, err
	}
	cost, err := json.Marshal(cfg.Cost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &ProviderRecord{
		ID:               cfg.ID,
		Type:             cfg.Type,
		Name:             cfg.Name,
		Description:      cfg.Description,
		CapabilitiesJSON: string(caps),
		ParamsJSON:       string(params),
		CostJSON:         string(cost),
		BaseURL:          cfg.BaseURL,
		Model:            cfg.Model,
		Credential:       cfg.Credential,
		IsEnabled:        cfg.Enabled,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func (r *ProviderRecord) ToDomain() (domain.ProviderConfig, error) {
	cfg := domain.ProviderConfig{
		ID:          r.ID,
		Type:        r.Type,
		Name:        r.Name,
		Description: r.Description,
		BaseURL:     r.BaseURL,
		Model:       r.Model,
		Credential:  r.Credential,
		Enabled:     r.IsEnabled,
	}
	if r.CapabilitiesJSON != "" {
		if err := json.Unmarshal([]byte(r.CapabilitiesJSON), &cfg.Capabilities); err != nil {
			return cfg, err
		}
	}
	if r.ParamsJSON != "" {
		if err := json.Unmarshal([]byte(r.ParamsJSON), &cfg.DefaultParams); err != nil {
			return cfg, err
		}
	}
	if r.CostJSON != "" {
		if err := json.Unmarshal([]byte(r.CostJSON), &cfg.Cost); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// UsageLog captures one completed route attempt.
type UsageLog struct {
	ID               string    `db:"id" json:"id"`
	RequestID        string    `db:"request_id" json:"request_id"`
	PromptHash       string    `db:"prompt_hash" json:"prompt_hash"`
	ScopeID          string    `db:"scope_id" json:"scope_id"`
	ProviderID       string    `db:"provider_id" json:"provider_id"`
	Success          bool      `db:"success" json:"success"`
	FallbacksJSON    string    `db:"fallbacks_json" json:"-"`
	LatencyMS        int64     `db:"latency_ms" json:"latency_ms"`
	PromptTokens     int       `db:"prompt_tokens" json:"prompt_tokens"`
	CompletionTokens int       `db:"completion_tokens" json:"completion_tokens"`
	TotalTokens      int       `db:"total_tokens" json:"total_tokens"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// DailyStats is an aggregated usage row grouped by day.
type DailyStats struct {
	Date          string  `db:"date" json:"date"`
	TotalRequests int     `db:"total_requests" json:"total_requests"`
	TotalTokens   int64   `db:"total_tokens" json:"total_tokens"`
	SuccessRate   float64 `db:"success_rate" json:"success_rate"`
	AvgLatency    float64 `db:"avg_latency" json:"avg_latency"`
}
