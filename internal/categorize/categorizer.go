// Package categorize assigns taxonomy categories to candidate expenses:
// the extractor's guess when it matches the taxonomy with enough
// confidence, a lexical match against the user's history otherwise, and
// the reserved Uncategorized bucket as the floor. It never fails, so
// categorization uncertainty can never block persistence.
package categorize

import (
	"strings"
	"unicode"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

// Default gates for accepting the model's guess and the history fallback.
const (
	DefaultGuessThreshold = 0.6
	DefaultMinSimilarity  = 0.34
)

// Method records how an assignment was decided.
type Method string

// Assignment methods.
const (
	MethodGuess         Method = "GUESS_MATCH"
	MethodHistory       Method = "HISTORY_MATCH"
	MethodUncategorized Method = "UNCATEGORIZED"
)

// Assignment is the categorizer's decision for one candidate.
type Assignment struct {
	Category   string
	Method     Method
	Confidence float64
}

// Categorizer resolves category assignments against a taxonomy snapshot.
type Categorizer struct {
	guessThreshold float64
	minSimilarity  float64
}

// New creates a categorizer. Zero thresholds select the defaults.
func New(guessThreshold, minSimilarity float64) *Categorizer {
	if guessThreshold <= 0 {
		guessThreshold = DefaultGuessThreshold
	}
	if minSimilarity <= 0 {
		minSimilarity = DefaultMinSimilarity
	}
	return &Categorizer{
		guessThreshold: guessThreshold,
		minSimilarity:  minSimilarity,
	}
}

// Categorize picks a category for the candidate.
func (c *Categorizer) Categorize(candidate model.CandidateExpense, taxonomy []model.Category, history []model.ExpenseRecord) Assignment {
	active := activeNames(taxonomy)

	// Direct accept: the guess names a taxonomy entry (by name or anchor
	// keyword) and the extractor was confident enough.
	if candidate.CategoryGuess != "" {
		if match := matchTaxonomy(candidate.CategoryGuess, taxonomy); match != "" {
			confidence := candidate.FieldConfidence(model.FieldCategory)
			if confidence >= c.guessThreshold {
				return Assignment{Category: match, Method: MethodGuess, Confidence: confidence}
			}
		}
	}

	// Fallback: nearest lexical match against the user's history,
	// restricted to categories still active in the taxonomy.
	if best, score := c.nearestHistory(candidate.Description, history, active); best != "" {
		return Assignment{Category: best, Method: MethodHistory, Confidence: score}
	}

	return Assignment{Category: model.UncategorizedName, Method: MethodUncategorized, Confidence: 0}
}

func activeNames(taxonomy []model.Category) map[string]bool {
	names := make(map[string]bool, len(taxonomy))
	for _, cat := range taxonomy {
		if cat.IsActive {
			names[cat.Name] = true
		}
	}
	return names
}

// matchTaxonomy returns the canonical category name a term refers to,
// or empty when nothing matches.
func matchTaxonomy(term string, taxonomy []model.Category) string {
	for _, cat := range taxonomy {
		if cat.IsActive && cat.Matches(term) {
			return cat.Name
		}
	}
	return ""
}

func (c *Categorizer) nearestHistory(description string, history []model.ExpenseRecord, active map[string]bool) (string, float64) {
	target := tokenize(description)
	if len(target) == 0 {
		return "", 0
	}

	var bestCategory string
	var bestScore float64
	for _, record := range history {
		if !active[record.Category] {
			continue
		}
		score := jaccard(target, tokenize(record.Description))
		if score > bestScore {
			bestScore = score
			bestCategory = record.Category
		}
	}

	if bestScore < c.minSimilarity {
		return "", 0
	}
	return bestCategory, bestScore
}

// tokenize lowercases and splits on non-letters/digits, dropping one- and
// two-character noise words.
func tokenize(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(word) > 2 {
			tokens[word] = true
		}
	}
	return tokens
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for token := range a {
		if b[token] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
