package services

import "github.com/oryx-ai/conductor/internal/core/domain"

// DefaultRules is the rule set installed when the store holds none. Weights
// are tuned so a single clear signal on a short prompt clears the 0.7
// specialization bar.
func DefaultRules() []domain.ClassificationRule {
	return []domain.ClassificationRule{
		{
			ID:       "code-write",
			Category: domain.CategoryCode,
			Patterns: []string{
				`(?i)\b(write|create|implement|generate|build|fix|debug|refactor)\b.*\b(function|class|method|script|code|program|bug|test)\b`,
			},
			Keywords:      []string{"function", "code", "script", "implement", "algorithm", "compile", "stack trace"},
			Weight:        1.0,
			LLMMapping:    []string{"anthropic", "openai", "deepseek"},
			MinConfidence: 0.05,
		},
		{
			ID:       "code-language",
			Category: domain.CategoryCode,
			Patterns: []string{
				`(?i)\b(python|javascript|typescript|golang|rust|java|c#|c\+\+|ruby|php|swift|kotlin|sql)\b`,
			},
			Keywords:      []string{"python", "javascript", "typescript", "golang", "rust", "sql"},
			Weight:        0.9,
			LLMMapping:    []string{"anthropic", "deepseek", "openai"},
			MinConfidence: 0.05,
		},
		{
			ID:       "analysis-general",
			Category: domain.CategoryAnalysis,
			Patterns: []string{
				`(?i)\b(analyze|analyse|compare|evaluate|assess|summarize|summarise)\b`,
			},
			Keywords:      []string{"analysis", "pros and cons", "trade-off", "breakdown", "insights"},
			Weight:        0.8,
			LLMMapping:    []string{"anthropic", "openai", "google"},
			MinConfidence: 0.05,
		},
		{
			ID:       "creative-writing",
			Category: domain.CategoryCreative,
			Patterns: []string{
				`(?i)\b(story|poem|novel|lyrics|screenplay|haiku)\b`,
				`(?i)\b(imagine|invent|compose|brainstorm)\b`,
			},
			Keywords:      []string{"creative", "fictional", "character", "plot", "once upon"},
			Weight:        0.8,
			LLMMapping:    []string{"anthropic", "openai"},
			MinConfidence: 0.05,
		},
		{
			ID:       "translation",
			Category: domain.CategoryTranslation,
			Patterns: []string{
				`(?i)\btranslate\b`,
				`(?i)\b(in|into|to) (english|spanish|french|german|japanese|chinese|korean|italian|portuguese|russian)\b`,
			},
			Keywords:      []string{"translate", "translation"},
			Weight:        0.9,
			LLMMapping:    []string{"google", "openai", "anthropic"},
			MinConfidence: 0.05,
		},
		{
			ID:       "technical-infra",
			Category: domain.CategoryTechnical,
			Patterns: []string{
				`(?i)\b(kubernetes|docker|terraform|nginx|postgres|redis|kafka|grpc|oauth)\b`,
				`(?i)\b(configure|deploy|provision|scale)\b.*\b(cluster|server|service|pipeline|instance)\b`,
			},
			Keywords:      []string{"deployment", "infrastructure", "devops", "architecture", "load balancer"},
			Weight:        0.9,
			LLMMapping:    []string{"anthropic", "openai"},
			MinConfidence: 0.05,
		},
		{
			ID:       "academic",
			Category: domain.CategoryAcademic,
			Patterns: []string{
				`(?i)\b(thesis|dissertation|citation|peer.review|literature review|hypothesis)\b`,
			},
			Keywords:      []string{"academic", "research paper", "bibliography", "journal", "abstract"},
			Weight:        0.9,
			LLMMapping:    []string{"anthropic", "openai", "google"},
			MinConfidence: 0.05,
		},
		{
			ID:       "conversation-greeting",
			Category: domain.CategoryConversation,
			Patterns: []string{
				`(?i)^(hi|hello|hey|good (morning|afternoon|evening))\b`,
			},
			Keywords:      []string{"hello", "thanks", "how are you", "please"},
			Weight:        0.6,
			LLMMapping:    []string{"anthropic", "openai", "ollama"},
			MinConfidence: 0.05,
		},
	}
}
