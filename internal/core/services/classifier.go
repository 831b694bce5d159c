// Package services holds the orchestration core: prompt classification,
// scope management, the provider catalogue, and the routing engine.
package services

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/oryx-ai/conductor/internal/core/domain"
	"github.com/oryx-ai/conductor/internal/core/ports"
)

// specializationThreshold is the confidence above which code/technical/
// academic prompts are flagged as needing a specialized model.
const specializationThreshold = 0.7

type compiledRule struct {
	rule     domain.ClassificationRule
	patterns []*regexp.Regexp
}

// Classifier scores prompts against a mutable rule set and produces a
// PromptAnalysis. Analysis itself is pure with respect to the rule set; the
// rule set is the only mutable state and is owned by this instance.
type Classifier struct {
	mu       sync.RWMutex
	rules    map[string]*compiledRule
	registry ports.ProviderRegistry
	logger   *zap.Logger
}

// NewClassifier compiles the given rules. The registry is consulted only by
// MatchLLMs and may be nil in tests that don't cross that boundary.
func NewClassifier(rules []domain.ClassificationRule, registry ports.ProviderRegistry, logger *zap.Logger) (*Classifier, error) {
	c := &Classifier{
		rules:    make(map[string]*compiledRule),
		registry: registry,
		logger:   logger,
	}
	for _, r := range rules {
		if err := c.AddRule(r); err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.ID, err)
		}
	}
	return c, nil
}

// AddRule validates, compiles, and installs a rule.
func (c *Classifier) AddRule(rule domain.ClassificationRule) error {
	if rule.ID == "" {
		return domain.ValidationError(map[string]string{"id": "must not be empty"})
	}
	if rule.Weight <= 0 {
		return domain.ValidationError(map[string]string{"weight": "must be greater than zero"})
	}

	compiled, err := compilePatterns(rule.Patterns)
	if err != nil {
		return domain.BadRequestError(fmt.Sprintf("invalid pattern in rule %q: %v", rule.ID, err))
	}

	if rule.MinConfidence > rule.Weight {
		// A floor above the weight means the rule can never fire on a
		// single hit; flagged as a smell, not rejected.
		c.logger.Warn("rule min_confidence exceeds weight; rule may never fire",
			zap.String("rule", rule.ID),
			zap.Float64("min_confidence", rule.MinConfidence),
			zap.Float64("weight", rule.Weight),
		)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.rules[rule.ID]; exists {
		return domain.BadRequestError(fmt.Sprintf("rule %q already exists", rule.ID))
	}
	c.rules[rule.ID] = &compiledRule{rule: rule, patterns: compiled}
	return nil
}

// UpdateRule replaces an existing rule; unknown ids fail with NotFound.
func (c *Classifier) UpdateRule(id string, rule domain.ClassificationRule) error {
	if rule.Weight <= 0 {
		return domain.ValidationError(map[string]string{"weight": "must be greater than zero"})
	}
	compiled, err := compilePatterns(rule.Patterns)
	if err != nil {
		return domain.BadRequestError(fmt.Sprintf("invalid pattern in rule %q: %v", id, err))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.rules[id]; !exists {
		return domain.NotFoundError(fmt.Sprintf("rule %q not found", id))
	}
	rule.ID = id
	c.rules[id] = &compiledRule{rule: rule, patterns: compiled}
	return nil
}

// RemoveRule deletes a rule; unknown ids fail with NotFound.
func (c *Classifier) RemoveRule(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.rules[id]; !exists {
		return domain.NotFoundError(fmt.Sprintf("rule %q not found", id))
	}
	delete(c.rules, id)
	return nil
}

// Rules returns a snapshot of the rule set, ordered by id.
func (c *Classifier) Rules() []domain.ClassificationRule {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.ClassificationRule, 0, len(c.rules))
	for _, cr := range c.rules {
		out = append(out, cr.rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AnalyzePrompt maps a prompt plus optional scope to a PromptAnalysis. An
// empty prompt is not an error: it yields the permissive conversation/0
// default.
func (c *Classifier) AnalyzePrompt(prompt string, scope *domain.Scope) *domain.PromptAnalysis {
	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return &domain.PromptAnalysis{
			PrimaryCategory:     domain.CategoryConversation,
			SecondaryCategories: []domain.Category{},
			Confidence:          0,
			SuggestedLLMs:       []string{},
		}
	}

	lowered := strings.ToLower(trimmed)
	// Normalizing by prompt length keeps long prompts from racking up hits
	// on every rule.
	norm := 1 + math.Log1p(float64(len(strings.Fields(trimmed))))

	type ruleScore struct {
		rule  domain.ClassificationRule
		score float64
	}

	c.mu.RLock()
	ruleIDs := make([]string, 0, len(c.rules))
	for id := range c.rules {
		ruleIDs = append(ruleIDs, id)
	}
	sort.Strings(ruleIDs) // deterministic evaluation order

	var fired []ruleScore
	trace := make(map[string]interface{})
	for _, id := range ruleIDs {
		cr := c.rules[id]
		hits := 0
		for _, re := range cr.patterns {
			if re.MatchString(trimmed) {
				hits++
			}
		}
		for _, kw := range cr.rule.Keywords {
			if strings.Contains(lowered, strings.ToLower(kw)) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		score := float64(hits) * cr.rule.Weight / norm
		if score < cr.rule.MinConfidence {
			continue
		}
		fired = append(fired, ruleScore{rule: cr.rule, score: score})
		trace[id] = score
	}
	c.mu.RUnlock()

	categories := make(map[domain.Category]float64)
	for _, rs := range fired {
		categories[rs.rule.Category] += rs.score
	}

	analysis := &domain.PromptAnalysis{
		PrimaryCategory:     domain.CategoryConversation,
		SecondaryCategories: []domain.Category{},
		SuggestedLLMs:       []string{},
		Features:            extractFeatures(trimmed),
		Metadata:            map[string]interface{}{"rule_trace": trace},
	}

	if len(categories) == 0 {
		analysis.Features.Creativity = adjustCreativity(analysis.Features.Creativity, analysis.PrimaryCategory)
		return analysis
	}

	ordered := make([]domain.Category, 0, len(categories))
	for cat := range categories {
		ordered = append(ordered, cat)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if categories[ordered[i]] != categories[ordered[j]] {
			return categories[ordered[i]] > categories[ordered[j]]
		}
		return ordered[i] < ordered[j]
	})

	analysis.PrimaryCategory = ordered[0]
	analysis.SecondaryCategories = ordered[1:]
	analysis.Confidence = clamp01(categories[ordered[0]])

	// Suggested providers come from the rules backing the primary category,
	// strongest rule first.
	primaryRules := make([]ruleScore, 0, len(fired))
	for _, rs := range fired {
		if rs.rule.Category == analysis.PrimaryCategory {
			primaryRules = append(primaryRules, rs)
		}
	}
	sort.SliceStable(primaryRules, func(i, j int) bool {
		if primaryRules[i].rule.Weight != primaryRules[j].rule.Weight {
			return primaryRules[i].rule.Weight > primaryRules[j].rule.Weight
		}
		return primaryRules[i].rule.ID < primaryRules[j].rule.ID
	})

	seen := make(map[string]bool)
	for _, rs := range primaryRules {
		for _, llm := range rs.rule.LLMMapping {
			if !seen[llm] {
				seen[llm] = true
				analysis.SuggestedLLMs = append(analysis.SuggestedLLMs, llm)
			}
		}
	}

	if scope != nil {
		analysis.SuggestedLLMs = applyPreferences(analysis.SuggestedLLMs, scope.LLMPreferences)
	}

	switch analysis.PrimaryCategory {
	case domain.CategoryCode, domain.CategoryTechnical, domain.CategoryAcademic:
		analysis.RequiresSpecialization = analysis.Confidence >= specializationThreshold
	}

	analysis.Features.Creativity = adjustCreativity(analysis.Features.Creativity, analysis.PrimaryCategory)
	return analysis
}

// MatchLLMs filters an analysis' suggestions to providers currently enabled
// in the registry.
func (c *Classifier) MatchLLMs(analysis *domain.PromptAnalysis) []string {
	if c.registry == nil {
		return analysis.SuggestedLLMs
	}
	out := make([]string, 0, len(analysis.SuggestedLLMs))
	for _, id := range analysis.SuggestedLLMs {
		if cfg, ok := c.registry.LLMByID(id); ok && cfg.Enabled {
			out = append(out, id)
		}
	}
	return out
}

// applyPreferences moves preferred ids to the front (stable) and drops
// excluded ids entirely.
func applyPreferences(llms []string, prefs domain.LLMPreferences) []string {
	excluded := make(map[string]bool, len(prefs.Excluded))
	for _, id := range prefs.Excluded {
		excluded[id] = true
	}
	preferred := make(map[string]bool, len(prefs.Preferred))
	for _, id := range prefs.Preferred {
		preferred[id] = true
	}

	front := make([]string, 0, len(llms))
	rest := make([]string, 0, len(llms))
	for _, id := range llms {
		if excluded[id] {
			continue
		}
		if preferred[id] {
			front = append(front, id)
		} else {
			rest = append(rest, id)
		}
	}
	return append(front, rest...)
}

func compilePatterns(sources []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(sources))
	for _, src := range sources {
		re, err := regexp.Compile(src)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
