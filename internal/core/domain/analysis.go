package domain

// Category is the coarse classification of a prompt.
type Category string

const (
	CategoryConversation Category = "conversation"
	CategoryCode         Category = "code"
	CategoryAnalysis     Category = "analysis"
	CategoryCreative     Category = "creative"
	CategoryTranslation  Category = "translation"
	CategoryTechnical    Category = "technical"
	CategoryAcademic     Category = "academic"
	CategoryCustom       Category = "custom"
)

// PromptFeatures are heuristic signals computed independently of the rule
// engine. Complexity, Creativity, and TechnicalLevel are normalized to [0,1];
// ExpectedLength is a raw token estimate and LanguageCount a script count.
type PromptFeatures struct {
	Complexity     float64 `json:"complexity"`
	Creativity     float64 `json:"creativity"`
	TechnicalLevel float64 `json:"technical_level"`
	LanguageCount  int     `json:"language_count"`
	ExpectedLength int     `json:"expected_length"`
}

// PromptAnalysis is the classifier's verdict for one prompt. It is produced
// fresh per request and never persisted.
type PromptAnalysis struct {
	PrimaryCategory        Category               `json:"primary_category"`
	SecondaryCategories    []Category             `json:"secondary_categories"`
	Confidence             float64                `json:"confidence"`
	SuggestedLLMs          []string               `json:"suggested_llms"`
	RequiresSpecialization bool                   `json:"requires_specialization"`
	Features               PromptFeatures         `json:"features"`
	Metadata               map[string]interface{} `json:"metadata,omitempty"`
}

// ClassificationRule maps prompt patterns and keywords to a category and the
// providers suited to it.
type ClassificationRule struct {
	ID            string   `json:"id"`
	Category      Category `json:"category"`
	Patterns      []string `json:"patterns"`
	Keywords      []string `json:"keywords"`
	Weight        float64  `json:"weight"`
	LLMMapping    []string `json:"llm_mapping"`
	MinConfidence float64  `json:"min_confidence"`
}
