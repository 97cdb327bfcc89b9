package model

import (
	"strings"
	"time"
)

// UncategorizedName is the reserved category assigned when no taxonomy
// entry clears the similarity floor. It always exists and is never archived.
const UncategorizedName = "Uncategorized"

// Category represents a taxonomy entry for expense classification.
type Category struct {
	CreatedAt time.Time
	Name      string
	Parent    string // optional parent for hierarchical taxonomies
	Anchors   []string
	ID        int
	IsActive  bool
}

// Matches reports whether a name or keyword refers to this category.
// Matching is case-insensitive against the full category name, the
// individual words of the name, and the anchor keywords, so a guess of
// "Food" lands on "Food & Dining".
func (c Category) Matches(term string) bool {
	term = strings.TrimSpace(strings.ToLower(term))
	if term == "" {
		return false
	}
	name := strings.ToLower(c.Name)
	if name == term {
		return true
	}
	for _, word := range strings.Fields(name) {
		if len(word) > 2 && word == term {
			return true
		}
	}
	for _, anchor := range c.Anchors {
		if strings.ToLower(anchor) == term {
			return true
		}
	}
	return false
}

// ExpenseRecord is a historical (description, category) pair used by the
// categorizer's lexical fallback.
type ExpenseRecord struct {
	Description string
	Category    string
}
