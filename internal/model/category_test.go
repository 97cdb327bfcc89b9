package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryMatches(t *testing.T) {
	cat := Category{
		Name:    "Food & Dining",
		Anchors: []string{"restaurant", "lunch"},
	}

	tests := []struct {
		name string
		term string
		want bool
	}{
		{name: "full name", term: "Food & Dining", want: true},
		{name: "full name case-insensitive", term: "food & dining", want: true},
		{name: "first name word", term: "Food", want: true},
		{name: "second name word", term: "dining", want: true},
		{name: "anchor keyword", term: "restaurant", want: true},
		{name: "anchor case-insensitive", term: "LUNCH", want: true},
		{name: "ampersand alone", term: "&", want: false},
		{name: "unrelated term", term: "taxi", want: false},
		{name: "empty term", term: "", want: false},
		{name: "whitespace only", term: "   ", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cat.Matches(tt.term))
		})
	}
}
