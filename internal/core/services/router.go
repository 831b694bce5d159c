package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oryx-ai/conductor/internal/core/domain"
	"github.com/oryx-ai/conductor/internal/core/ports"
	"github.com/oryx-ai/conductor/internal/store"
	"github.com/oryx-ai/conductor/internal/store/cache"
	"github.com/oryx-ai/conductor/internal/store/model"
)

// RouterConfig tunes the routing engine.
type RouterConfig struct {
	// DefaultProvider is the system-wide last resort when no candidate can
	// be derived from analysis, scope, or capability match.
	DefaultProvider string
	// AttemptTimeout bounds each candidate invocation. Zero means no
	// per-attempt bound. There is intentionally no total budget across
	// attempts; callers cap total latency through ctx.
	AttemptTimeout time.Duration
	// AnalysisCacheTTL controls the prompt-analysis cache. Zero disables
	// caching.
	AnalysisCacheTTL time.Duration
}

// Router executes a prompt against the best available provider with ordered
// fallback. Candidates are tried strictly in order, one at a time; no
// parallel speculation.
type Router struct {
	classifier *Classifier
	registry   *Registry
	usage      store.UsageRepository
	cache      cache.CacheService
	cfg        RouterConfig
	logger     *zap.Logger
}

// NewRouter wires the routing engine. usage and analysisCache may be nil.
func NewRouter(classifier *Classifier, registry *Registry, usage store.UsageRepository, analysisCache cache.CacheService, cfg RouterConfig, logger *zap.Logger) *Router {
	return &Router{
		classifier: classifier,
		registry:   registry,
		usage:      usage,
		cache:      analysisCache,
		cfg:        cfg,
		logger:     logger,
	}
}

// StreamEvent is one element of the Router's streaming output. Restart marks
// a mid-stream candidate failure: the caller must discard everything emitted
// for the previous candidate. The terminal event carries Result and nothing
// else.
type StreamEvent struct {
	Chunk      string
	ProviderID string
	Restart    bool
	Result     *domain.RouteResult
}

// Route runs the request through the per-request state machine:
// CLASSIFYING → SELECTING_CANDIDATE → INVOKING → (SUCCESS | retry | EXHAUSTED).
// Provider failures never surface as errors; the result is always
// structured.
func (r *Router) Route(ctx context.Context, req domain.RouteRequest) *domain.RouteResult {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	start := time.Now()

	var (
		state      = domain.StateClassifying
		analysis   *domain.PromptAnalysis
		candidates []string
		idx        int
		attempts   int
		fallbacks  = []string{}
		lastErr    error
		current    string
		adapter    ports.Provider
		cfg        domain.ProviderConfig
	)

	for {
		switch state {
		case domain.StateClassifying:
			analysis = req.Analysis
			if analysis == nil {
				analysis = r.analyze(ctx, req.Prompt, req.Scope)
			}
			candidates = r.buildCandidates(analysis, req.Scope)
			state = domain.StateSelecting

		case domain.StateSelecting:
			maxAttempts := req.MaxRetries
			if maxAttempts <= 0 {
				maxAttempts = len(candidates)
			}
			if idx >= len(candidates) || attempts >= maxAttempts {
				state = domain.StateExhausted
				continue
			}
			current = candidates[idx]
			idx++

			var ok bool
			cfg, ok = r.registry.configFor(current)
			if !ok || !cfg.Enabled {
				// Missing/disabled candidates don't burn the retry budget
				// but are still visible in the fallback trail.
				fallbacks = append(fallbacks, current)
				continue
			}
			adapter, ok = r.registry.AdapterFor(current)
			if !ok {
				fallbacks = append(fallbacks, current)
				continue
			}
			state = domain.StateInvoking

		case domain.StateInvoking:
			attempts++
			params := mergeParams(cfg.DefaultParams, req.Scope)

			actx := ctx
			var cancel context.CancelFunc
			if r.cfg.AttemptTimeout > 0 {
				actx, cancel = context.WithTimeout(ctx, r.cfg.AttemptTimeout)
			}
			comp, err := adapter.Complete(actx, req.Prompt, params)
			if cancel != nil {
				cancel()
			}

			if err != nil || comp == nil || strings.TrimSpace(comp.Text) == "" {
				if err == nil {
					err = domain.ProviderError(fmt.Sprintf("provider %q returned an empty result", current), nil)
				}
				lastErr = err
				fallbacks = append(fallbacks, current)
				r.logger.Warn("candidate failed, advancing",
					zap.String("request", req.ID),
					zap.String("provider", current),
					zap.Error(err),
				)
				state = domain.StateSelecting
				continue
			}

			result := &domain.RouteResult{
				RequestID:     req.ID,
				Success:       true,
				Result:        comp.Text,
				ProviderID:    current,
				FallbacksUsed: fallbacks,
				Analysis:      analysis,
				Usage:         comp.Usage,
				LatencyMS:     time.Since(start).Milliseconds(),
			}
			r.logUsage(req, result)
			return result

		case domain.StateExhausted:
			result := &domain.RouteResult{
				RequestID:     req.ID,
				Success:       false,
				FallbacksUsed: fallbacks,
				Analysis:      analysis,
				LatencyMS:     time.Since(start).Milliseconds(),
				Err:           lastErr,
			}
			if lastErr != nil {
				result.ErrorMessage = lastErr.Error()
			} else {
				result.ErrorMessage = "no eligible provider"
			}
			r.logUsage(req, result)
			return result
		}
	}
}

// Stream is the streaming variant. Chunks are forwarded as they arrive;
// success is only committed when a candidate's stream completes cleanly. A
// mid-stream failure fails the whole candidate: a Restart event is emitted
// and the next candidate starts from scratch.
func (r *Router) Stream(ctx context.Context, req domain.RouteRequest) <-chan StreamEvent {
	out := make(chan StreamEvent)

	go func() {
		defer close(out)

		if req.ID == "" {
			req.ID = uuid.New().String()
		}
		start := time.Now()

		analysis := req.Analysis
		if analysis == nil {
			analysis = r.analyze(ctx, req.Prompt, req.Scope)
		}
		candidates := r.buildCandidates(analysis, req.Scope)

		maxAttempts := req.MaxRetries
		if maxAttempts <= 0 {
			maxAttempts = len(candidates)
		}

		fallbacks := []string{}
		var lastErr error
		attempts := 0

		for _, id := range candidates {
			if attempts >= maxAttempts {
				break
			}
			cfg, ok := r.registry.configFor(id)
			if !ok || !cfg.Enabled {
				fallbacks = append(fallbacks, id)
				continue
			}
			adapter, ok := r.registry.AdapterFor(id)
			if !ok {
				fallbacks = append(fallbacks, id)
				continue
			}
			streamer, ok := adapter.(ports.Streamer)
			if !ok {
				// Candidate cannot stream; not a real attempt.
				fallbacks = append(fallbacks, id)
				continue
			}

			attempts++
			params := mergeParams(cfg.DefaultParams, req.Scope)
			ch, err := streamer.Stream(ctx, req.Prompt, params)
			if err != nil {
				lastErr = err
				fallbacks = append(fallbacks, id)
				continue
			}

			var full strings.Builder
			failed := false
			emitted := false
			for chunk := range ch {
				if chunk.Err != nil {
					lastErr = chunk.Err
					failed = true
					break
				}
				if chunk.Done {
					break
				}
				full.WriteString(chunk.Text)
				emitted = true
				select {
				case out <- StreamEvent{Chunk: chunk.Text, ProviderID: id}:
				case <-ctx.Done():
					return
				}
			}

			if failed {
				fallbacks = append(fallbacks, id)
				if emitted {
					// Tell the caller to drop the partial output.
					select {
					case out <- StreamEvent{Restart: true, ProviderID: id}:
					case <-ctx.Done():
						return
					}
				}
				continue
			}

			result := &domain.RouteResult{
				RequestID:     req.ID,
				Success:       true,
				Result:        full.String(),
				ProviderID:    id,
				FallbacksUsed: fallbacks,
				Analysis:      analysis,
				LatencyMS:     time.Since(start).Milliseconds(),
			}
			r.logUsage(req, result)
			select {
			case out <- StreamEvent{Result: result}:
			case <-ctx.Done():
			}
			return
		}

		result := &domain.RouteResult{
			RequestID:     req.ID,
			Success:       false,
			FallbacksUsed: fallbacks,
			Analysis:      analysis,
			LatencyMS:     time.Since(start).Milliseconds(),
			Err:           lastErr,
		}
		if lastErr != nil {
			result.ErrorMessage = lastErr.Error()
		} else {
			result.ErrorMessage = "no eligible provider"
		}
		r.logUsage(req, result)
		select {
		case out <- StreamEvent{Result: result}:
		case <-ctx.Done():
		}
	}()

	return out
}

// analyze classifies the prompt, with an optional cache keyed by prompt hash
// and scope id.
func (r *Router) analyze(ctx context.Context, prompt string, scope *domain.Scope) *domain.PromptAnalysis {
	if r.cache == nil || r.cfg.AnalysisCacheTTL <= 0 {
		return r.classifier.AnalyzePrompt(prompt, scope)
	}

	key := "analysis:" + promptHash(prompt)
	if scope != nil {
		key += ":" + scope.ID
	}

	var cached domain.PromptAnalysis
	if err := r.cache.Get(ctx, key, &cached); err == nil {
		return &cached
	}

	analysis := r.classifier.AnalyzePrompt(prompt, scope)
	if err := r.cache.Set(ctx, key, analysis, r.cfg.AnalysisCacheTTL); err != nil {
		r.logger.Debug("analysis cache write failed", zap.Error(err))
	}
	return analysis
}

// buildCandidates assembles the ordered provider list:
//  1. classifier suggestions, eligibility unchecked: the selection loop
//     skips disabled or unregistered ids so they still show up in the
//     fallback trail
//  2. scope-preferred ids prepended, scope fallback ids appended
//  3. if empty, all enabled providers ordered by capability match
//  4. if still empty, the configured system-wide default
//
// Scope exclusions are honored throughout.
func (r *Router) buildCandidates(analysis *domain.PromptAnalysis, scope *domain.Scope) []string {
	candidates := append([]string(nil), analysis.SuggestedLLMs...)

	if scope != nil {
		if len(scope.LLMPreferences.Preferred) > 0 {
			candidates = prepend(scope.LLMPreferences.Preferred, candidates)
		}
		candidates = appendUnique(candidates, scope.LLMPreferences.Fallback)
	}

	if len(candidates) == 0 {
		candidates = r.byCapability(analysis.PrimaryCategory)
	}
	if len(candidates) == 0 && r.cfg.DefaultProvider != "" {
		candidates = []string{r.cfg.DefaultProvider}
	}

	if scope != nil && len(scope.LLMPreferences.Excluded) > 0 {
		candidates = exclude(candidates, scope.LLMPreferences.Excluded)
	}
	return candidates
}

// byCapability orders all enabled providers by declared capability match
// with the primary category.
func (r *Router) byCapability(category domain.Category) []string {
	tag := "text"
	switch category {
	case domain.CategoryCode, domain.CategoryTechnical:
		tag = "code"
	}

	matched := []string{}
	rest := []string{}
	for _, cfg := range r.registry.AvailableLLMs() {
		if cfg.HasCapability(tag) {
			matched = append(matched, cfg.ID)
		} else {
			rest = append(rest, cfg.ID)
		}
	}
	return append(matched, rest...)
}

func (r *Router) logUsage(req domain.RouteRequest, result *domain.RouteResult) {
	if r.usage == nil {
		return
	}

	scopeID := ""
	if req.Scope != nil {
		scopeID = req.Scope.ID
	}
	rec := domain.UsageRecord{
		RequestID:  req.ID,
		PromptHash: promptHash(req.Prompt),
		ScopeID:    scopeID,
		ProviderID: result.ProviderID,
		Success:    result.Success,
		Fallbacks:  result.FallbacksUsed,
		LatencyMS:  result.LatencyMS,
		Usage:      result.Usage,
		Timestamp:  time.Now().UTC(),
	}

	// Usage logging is observability, not correctness; a store hiccup must
	// not fail the route.
	logCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.usage.Log(logCtx, usageLogFrom(rec)); err != nil {
		r.logger.Warn("usage log write failed",
			zap.String("request", req.ID), zap.Error(err))
	}
}

func usageLogFrom(rec domain.UsageRecord) *model.UsageLog {
	fallbacks := "[]"
	if len(rec.Fallbacks) > 0 {
		parts := make([]string, len(rec.Fallbacks))
		for i, f := range rec.Fallbacks {
			parts[i] = fmt.Sprintf("%q", f)
		}
		fallbacks = "[" + strings.Join(parts, ",") + "]"
	}
	return &model.UsageLog{
		ID:               uuid.New().String(),
		RequestID:        rec.RequestID,
		PromptHash:       rec.PromptHash,
		ScopeID:          rec.ScopeID,
		ProviderID:       rec.ProviderID,
		Success:          rec.Success,
		FallbacksJSON:    fallbacks,
		LatencyMS:        rec.LatencyMS,
		PromptTokens:     rec.Usage.PromptTokens,
		CompletionTokens: rec.Usage.CompletionTokens,
		TotalTokens:      rec.Usage.TotalTokens,
		CreatedAt:        rec.Timestamp,
	}
}

// mergeParams layers scope-derived hints over the provider defaults.
func mergeParams(defaults domain.ModelParams, scope *domain.Scope) domain.ModelParams {
	params := defaults
	if scope == nil {
		return params
	}
	if scope.Context.Format != "" {
		params.Format = scope.Context.Format
	}
	if scope.Context.Tone != "" {
		params.Tone = scope.Context.Tone
	}
	if scope.Context.Language != "" {
		params.Language = scope.Context.Language
	}
	return params
}

func promptHash(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

func prepend(front, rest []string) []string {
	out := make([]string, 0, len(front)+len(rest))
	seen := make(map[string]bool)
	for _, id := range front {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range rest {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func appendUnique(base, extra []string) []string {
	seen := make(map[string]bool, len(base))
	for _, id := range base {
		seen[id] = true
	}
	for _, id := range extra {
		if !seen[id] {
			seen[id] = true
			base = append(base, id)
		}
	}
	return base
}

func exclude(ids, excluded []string) []string {
	drop := make(map[string]bool, len(excluded))
	for _, id := range excluded {
		drop[id] = true
	}
	out := ids[:0]
	for _, id := range ids {
		if !drop[id] {
			out = append(out, id)
		}
	}
	return out
}
