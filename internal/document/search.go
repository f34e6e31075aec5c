package document

import (
	"fmt"
	"regexp"
)

// MatchRange is one search hit in absolute document positions, half-open.
type MatchRange struct {
	From int
	To   int
}

// Searcher is the free-text search backend consumed by the selector
// resolver. Patterns arrive as regular expression source; literal searches
// are pre-escaped by the caller so a backend never reinterprets delimiter
// syntax.
type Searcher interface {
	// Search returns every match of pattern in text as absolute-position
	// ranges, in ascending order.
	Search(text, pattern string, caseSensitive bool) ([]MatchRange, error)
}

// RegexSearcher implements Searcher with the standard regexp engine.
type RegexSearcher struct{}

// NewRegexSearcher creates a new RegexSearcher.
func NewRegexSearcher() *RegexSearcher {
	return &RegexSearcher{}
}

// Search returns every non-overlapping match of pattern in text.
func (s *RegexSearcher) Search(text, pattern string, caseSensitive bool) ([]MatchRange, error) {
	if !caseSensitive {
		pattern = "(?i)" + pattern
	}
	// (?s) lets an explicit pattern cross block separators.
	re, err := regexp.Compile("(?s)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid search pattern: %w", err)
	}

	idx := re.FindAllStringIndex(text, -1)
	matches := make([]MatchRange, 0, len(idx))
	for _, pair := range idx {
		if pair[0] == pair[1] {
			continue // zero-width matches are never useful mutation targets
		}
		matches = append(matches, MatchRange{From: pair[0], To: pair[1]})
	}
	return matches, nil
}
