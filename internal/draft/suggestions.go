package draft

import (
	"slices"
	"strings"
	"sync"

	"github.com/antzucaro/matchr"
)

// defaultSimilarityThreshold is the Jaro-Winkler score above which two
// keywords are treated as near-duplicates ("cooking" vs "cookin").
const defaultSimilarityThreshold = 0.92

// Suggestions tracks AI-proposed keywords that the user has not yet accepted
// into the draft. Proposals merge as a set union, with near-duplicate
// filtering so successive extraction rounds don't pile up trivial variants of
// the same label.
//
// Suggestions is safe for concurrent use: a recognizer-initiated session end
// can replace the draft from the dictation pump goroutine while the UI reads
// or accepts suggestions.
type Suggestions struct {
	mu        sync.Mutex
	items     []string
	threshold float64
}

// NewSuggestions returns an empty suggestion pool.
func NewSuggestions() *Suggestions {
	return &Suggestions{threshold: defaultSimilarityThreshold}
}

// Merge unions proposed keywords into the pool. A proposal is dropped when it
// is blank, already present, near-identical to an existing suggestion, or
// already one of the draft's accepted keywords.
func (s *Suggestions) Merge(proposed []string, accepted []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, kw := range proposed {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if s.nearDuplicate(kw, accepted) || s.nearDuplicate(kw, s.items) {
			continue
		}
		s.items = append(s.items, kw)
	}
}

// Take removes and returns kw from the pool, reporting whether it was present.
// Used when the user accepts a suggestion chip.
func (s *Suggestions) Take(kw string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.Index(s.items, kw)
	if i < 0 {
		return false
	}
	s.items = slices.Delete(s.items, i, i+1)
	return true
}

// Items returns the current suggestions in proposal order.
func (s *Suggestions) Items() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// Reset clears the pool for a new draft.
func (s *Suggestions) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

// nearDuplicate reports whether kw matches any existing label, exactly
// (case-insensitive) or by string similarity. Jaro-Winkler only applies to
// multi-rune Latin-ish labels; short CJK keywords differ meaningfully in a
// single rune, so they are compared exactly.
func (s *Suggestions) nearDuplicate(kw string, existing []string) bool {
	kwLower := strings.ToLower(kw)
	for _, e := range existing {
		eLower := strings.ToLower(e)
		if kwLower == eLower {
			return true
		}
		if len([]rune(kwLower)) < 4 || len([]rune(eLower)) < 4 {
			continue
		}
		if matchr.JaroWinkler(kwLower, eLower, false) >= s.threshold {
			return true
		}
	}
	return false
}
