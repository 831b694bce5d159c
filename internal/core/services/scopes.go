package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oryx-ai/conductor/internal/core/domain"
	"github.com/oryx-ai/conductor/internal/store"
	"github.com/oryx-ai/conductor/internal/store/model"
)

// ScopeManager owns scope CRUD: durable storage behind an in-memory read
// cache hydrated at startup. While the process lives the cache is the source
// of truth; staleness across processes is accepted.
type ScopeManager struct {
	mu     sync.RWMutex
	cache  map[string]*domain.Scope
	repo   store.Repository
	logger *zap.Logger
}

// NewScopeManager hydrates the cache from durable storage.
func NewScopeManager(ctx context.Context, repo store.Repository, logger *zap.Logger) (*ScopeManager, error) {
	m := &ScopeManager{
		cache:  make(map[string]*domain.Scope),
		repo:   repo,
		logger: logger,
	}

	recs, err := repo.Scopes().List(ctx)
	if err != nil {
		return nil, domain.PersistenceError("failed to load scopes", err)
	}
	for i := range recs {
		s, err := recs[i].ToDomain()
		if err != nil {
			logger.Warn("skipping unreadable scope record", zap.String("id", recs[i].ID), zap.Error(err))
			continue
		}
		m.cache[s.ID] = s
	}

	logger.Info("scope cache hydrated", zap.Int("scopes", len(m.cache)))
	return m, nil
}

// Create fills unset fields with defaults, assigns a fresh id, persists, and
// only then inserts into the cache (no partial visibility on store failure).
func (m *ScopeManager) Create(ctx context.Context, partial domain.Scope) (*domain.Scope, error) {
	now := time.Now().UTC()
	s := partial
	s.ID = uuid.New().String()
	s.CreatedAt = now
	s.UpdatedAt = now

	if s.Type == "" {
		s.Type = domain.ScopeCustom
	}
	if !domain.ValidScopeType(s.Type) {
		return nil, domain.ValidationError(map[string]string{
			"type": fmt.Sprintf("must be one of chat, template, essay, custom; got %q", s.Type),
		})
	}
	if s.Context.Goals == nil {
		s.Context.Goals = []string{}
	}
	if s.Context.Constraints == nil {
		s.Context.Constraints = []string{}
	}
	if s.LLMPreferences.Preferred == nil {
		s.LLMPreferences.Preferred = []string{}
	}
	if s.LLMPreferences.Excluded == nil {
		s.LLMPreferences.Excluded = []string{}
	}
	if s.LLMPreferences.Fallback == nil {
		s.LLMPreferences.Fallback = []string{}
	}
	if s.Metadata == nil {
		s.Metadata = map[string]interface{}{}
	}

	rec, err := model.ScopeRecordFrom(&s)
	if err != nil {
		return nil, domain.InternalError("failed to serialize scope", err)
	}
	if err := m.repo.Scopes().Insert(ctx, rec); err != nil {
		return nil, domain.PersistenceError("failed to persist scope", err)
	}

	m.mu.Lock()
	m.cache[s.ID] = &s
	m.mu.Unlock()

	m.logger.Debug("scope created", zap.String("id", s.ID), zap.String("type", string(s.Type)))
	return copyScope(&s), nil
}

// Update merges context/preferences/metadata shallowly, replaces all other
// fields that are set, persists, then updates the cache. On store failure the
// cache is left untouched and the error propagates.
func (m *ScopeManager) Update(ctx context.Context, id string, upd domain.ScopeUpdate) (*domain.Scope, error) {
	m.mu.RLock()
	existing, ok := m.cache[id]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.NotFoundError(fmt.Sprintf("scope %q not found", id))
	}

	next := copyScope(existing)
	if upd.Type != nil {
		if !domain.ValidScopeType(*upd.Type) {
			return nil, domain.ValidationError(map[string]string{
				"type": fmt.Sprintf("must be one of chat, template, essay, custom; got %q", *upd.Type),
			})
		}
		next.Type = *upd.Type
	}
	if upd.Name != nil {
		next.Name = *upd.Name
	}
	if upd.TemplateID != nil {
		next.TemplateID = *upd.TemplateID
	}
	if upd.Context != nil {
		mergeContext(&next.Context, upd.Context)
	}
	if upd.LLMPreferences != nil {
		mergePreferences(&next.LLMPreferences, upd.LLMPreferences)
	}
	for k, v := range upd.Metadata {
		next.Metadata[k] = v
	}
	next.UpdatedAt = time.Now().UTC()

	rec, err := model.ScopeRecordFrom(next)
	if err != nil {
		return nil, domain.InternalError("failed to serialize scope", err)
	}
	if err := m.repo.Scopes().Update(ctx, rec); err != nil {
		return nil, domain.PersistenceError("failed to persist scope update", err)
	}

	m.mu.Lock()
	m.cache[id] = next
	m.mu.Unlock()

	return copyScope(next), nil
}

// Get is a cache lookup only; no store round-trip. Returns nil for unknown
// ids.
func (m *ScopeManager) Get(id string) *domain.Scope {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.cache[id]
	if !ok {
		return nil
	}
	return copyScope(s)
}

// Delete removes the scope from store and cache; reports whether it existed.
func (m *ScopeManager) Delete(ctx context.Context, id string) (bool, error) {
	existed, err := m.repo.Scopes().Delete(ctx, id)
	if err != nil {
		return false, domain.PersistenceError("failed to delete scope", err)
	}

	m.mu.Lock()
	_, cached := m.cache[id]
	delete(m.cache, id)
	m.mu.Unlock()

	return existed || cached, nil
}

// Validate performs the structural check: enumerated type, at least one
// goal. Referential integrity of template or provider ids is the Router's
// concern, not this one's.
func (m *ScopeManager) Validate(s *domain.Scope) bool {
	if s == nil || s.ID == "" {
		return false
	}
	if !domain.ValidScopeType(s.Type) {
		return false
	}
	return len(s.Context.Goals) > 0
}

// List scans the cache. Scalar filter fields match exactly; Contains is a
// substring match against the serialized context/preferences/metadata
// (intentionally loose).
func (m *ScopeManager) List(filter domain.ScopeFilter) []*domain.Scope {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.Scope, 0, len(m.cache))
	for _, s := range m.cache {
		if filter.Type != "" && s.Type != filter.Type {
			continue
		}
		if filter.Name != "" && s.Name != filter.Name {
			continue
		}
		if filter.Contains != "" && !scopeContains(s, filter.Contains) {
			continue
		}
		out = append(out, copyScope(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func scopeContains(s *domain.Scope, needle string) bool {
	blob, err := json.Marshal(struct {
		C domain.ScopeContext
		P domain.LLMPreferences
		M map[string]interface{}
	}{s.Context, s.LLMPreferences, s.Metadata})
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(blob)), strings.ToLower(needle))
}

func mergeContext(dst *domain.ScopeContext, patch *domain.ContextPatch) {
	if patch.Goals != nil {
		dst.Goals = append([]string(nil), *patch.Goals...)
	}
	if patch.Constraints != nil {
		dst.Constraints = append([]string(nil), *patch.Constraints...)
	}
	if patch.Sources != nil {
		dst.Sources = append([]string(nil), *patch.Sources...)
	}
	if patch.Format != nil {
		dst.Format = *patch.Format
	}
	if patch.CustomInstructions != nil {
		dst.CustomInstructions = *patch.CustomInstructions
	}
	if patch.Tone != nil {
		dst.Tone = *patch.Tone
	}
	if patch.Language != nil {
		dst.Language = *patch.Language
	}
}

func mergePreferences(dst *domain.LLMPreferences, patch *domain.PreferencesPatch) {
	if patch.Preferred != nil {
		dst.Preferred = append([]string(nil), *patch.Preferred...)
	}
	if patch.Excluded != nil {
		dst.Excluded = append([]string(nil), *patch.Excluded...)
	}
	if patch.Fallback != nil {
		dst.Fallback = append([]string(nil), *patch.Fallback...)
	}
}

// copyStrings clones a slice while keeping empty slices empty rather
// than nil, so defaulted fields still serialize as [].
func copyStrings(src []string) []string {
	if src == nil {
		return nil
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

func copyScope(s *domain.Scope) *domain.Scope {
	out := *s
	out.Context.Goals = copyStrings(s.Context.Goals)
	out.Context.Constraints = copyStrings(s.Context.Constraints)
	out.Context.Sources = copyStrings(s.Context.Sources)
	out.LLMPreferences.Preferred = copyStrings(s.LLMPreferences.Preferred)
	out.LLMPreferences.Excluded = copyStrings(s.LLMPreferences.Excluded)
	out.LLMPreferences.Fallback = copyStrings(s.LLMPreferences.Fallback)
	out.Metadata = make(map[string]interface{}, len(s.Metadata))
	for k, v := range s.Metadata {
		out.Metadata[k] = v
	}
	return &out
}
