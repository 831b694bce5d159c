package services

import (
	"math"
	"strings"
	"unicode"

	"github.com/oryx-ai/conductor/internal/core/domain"
)

// avgCharsPerToken is the coarse constant behind the token estimate.
const avgCharsPerToken = 4

// technicalJargon feeds the technical-level heuristic. Hits are substring
// matches on the lowered prompt.
var technicalJargon = []string{
	"algorithm", "api", "async", "backend", "binary", "compile", "concurrency",
	"database", "debug", "dependency", "deploy", "encryption", "endpoint",
	"framework", "kernel", "latency", "middleware", "protocol", "query",
	"refactor", "regression", "runtime", "schema", "sdk", "server", "thread",
	"throughput", "tokenizer", "vector",
}

// creativeVerbs hint at imperative/narrative intent.
var creativeVerbs = []string{
	"imagine", "invent", "compose", "write a story", "write a poem", "narrate",
	"brainstorm", "dream up", "once upon", "fictional", "creative",
}

// extractFeatures computes the heuristic feature block independently of the
// rule engine. These are coarse signals, not real NLP.
func extractFeatures(prompt string) domain.PromptFeatures {
	lowered := strings.ToLower(prompt)
	words := strings.Fields(prompt)

	var f domain.PromptFeatures
	f.ExpectedLength = len(prompt) / avgCharsPerToken
	if f.ExpectedLength == 0 && len(prompt) > 0 {
		f.ExpectedLength = 1
	}

	sentences := countSentences(prompt)
	avgWordLen := 0.0
	for _, w := range words {
		avgWordLen += float64(len(w))
	}
	if len(words) > 0 {
		avgWordLen /= float64(len(words))
	}

	// Longer sentences and longer words read as more complex.
	f.Complexity = clamp01(math.Log1p(float64(sentences))/4 + (avgWordLen-3)/10)

	jargonHits := 0
	for _, term := range technicalJargon {
		if strings.Contains(lowered, term) {
			jargonHits++
		}
	}
	f.TechnicalLevel = clamp01(float64(jargonHits)/4 + (avgWordLen-4)/12)

	for _, verb := range creativeVerbs {
		if strings.Contains(lowered, verb) {
			f.Creativity += 0.25
		}
	}
	f.Creativity = clamp01(f.Creativity)

	f.LanguageCount = countScripts(prompt)
	return f
}

// adjustCreativity raises the creativity signal when the rule engine ended
// at the creative category.
func adjustCreativity(base float64, primary domain.Category) float64 {
	if primary == domain.CategoryCreative {
		return clamp01(base + 0.4)
	}
	return base
}

func countSentences(s string) int {
	n := 0
	inTerminator := false
	for _, r := range s {
		switch r {
		case '.', '!', '?':
			if !inTerminator {
				n++
				inTerminator = true
			}
		default:
			inTerminator = false
		}
	}
	if n == 0 && strings.TrimSpace(s) != "" {
		n = 1
	}
	return n
}

// countScripts counts distinct writing scripts among the prompt's letters.
// A coarse heuristic, not language detection: "hola" and "hello" are one
// script, mixed Latin/Cyrillic counts as two.
func countScripts(s string) int {
	scripts := map[string]bool{}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		switch {
		case unicode.Is(unicode.Latin, r):
			scripts["latin"] = true
		case unicode.Is(unicode.Cyrillic, r):
			scripts["cyrillic"] = true
		case unicode.Is(unicode.Greek, r):
			scripts["greek"] = true
		case unicode.Is(unicode.Han, r):
			scripts["han"] = true
		case unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r):
			scripts["kana"] = true
		case unicode.Is(unicode.Hangul, r):
			scripts["hangul"] = true
		case unicode.Is(unicode.Arabic, r):
			scripts["arabic"] = true
		case unicode.Is(unicode.Hebrew, r):
			scripts["hebrew"] = true
		case unicode.Is(unicode.Devanagari, r):
			scripts["devanagari"] = true
		case unicode.Is(unicode.Thai, r):
			scripts["thai"] = true
		default:
			scripts["other"] = true
		}
	}
	return len(scripts)
}
