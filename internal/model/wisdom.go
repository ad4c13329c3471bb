// Package model defines the core data types shared by the advisor packages.
package model

import (
	"encoding/json"
	"fmt"
)

// WisdomCategory classifies a wisdom record. The set is closed.
type WisdomCategory string

const (
	CategoryMentalModel   WisdomCategory = "mental_model"
	CategoryQuote         WisdomCategory = "quote"
	CategoryPrinciple     WisdomCategory = "principle"
	CategoryStory         WisdomCategory = "story"
	CategorySpeechExcerpt WisdomCategory = "speech_excerpt"
	CategoryBookExcerpt   WisdomCategory = "book_excerpt"
)

// ValidWisdomCategories are the allowed wisdom categories.
var ValidWisdomCategories = map[WisdomCategory]bool{
	CategoryMentalModel:   true,
	CategoryQuote:         true,
	CategoryPrinciple:     true,
	CategoryStory:         true,
	CategorySpeechExcerpt: true,
	CategoryBookExcerpt:   true,
}

// Valid reports whether c is one of the known categories.
func (c WisdomCategory) Valid() bool { return ValidWisdomCategories[c] }

// ParseWisdomCategory converts s to a WisdomCategory or returns an error.
func ParseWisdomCategory(s string) (WisdomCategory, error) {
	c := WisdomCategory(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown wisdom category %q", s)
	}
	return c, nil
}

// UnmarshalJSON rejects category strings outside the closed set.
func (c *WisdomCategory) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseWisdomCategory(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// WisdomRecord is one retrievable unit of advisory content.
// Content is the text that gets embedded.
type WisdomRecord struct {
	ID            string         `json:"id"`
	Category      WisdomCategory `json:"category"`
	Title         string         `json:"title"`
	Content       string         `json:"content"`
	Source        string         `json:"source"`
	Tags          []string       `json:"tags"`
	RelatedModels []string       `json:"related_models"`
	Year          *int           `json:"year"`
}

// HasAnyTag reports whether r carries at least one of tags.
func (r WisdomRecord) HasAnyTag(tags []string) bool {
	for _, want := range tags {
		for _, have := range r.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// ScoredRecord is a search hit. Distance is 1 - cosine similarity.
type ScoredRecord struct {
	WisdomRecord
	Distance   float64 `json:"distance"`
	ModelMatch bool    `json:"model_match,omitempty"`
}
