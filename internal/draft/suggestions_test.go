package draft

import (
	"slices"
	"testing"
)

func TestSuggestions_MergeUnions(t *testing.T) {
	t.Parallel()

	s := NewSuggestions()
	s.Merge([]string{"travel", "food"}, nil)
	s.Merge([]string{"food", "museum"}, nil)

	if got := s.Items(); !slices.Equal(got, []string{"travel", "food", "museum"}) {
		t.Errorf("Items() = %v", got)
	}
}

func TestSuggestions_SkipsAcceptedKeywords(t *testing.T) {
	t.Parallel()

	s := NewSuggestions()
	s.Merge([]string{"travel", "hiking"}, []string{"travel"})

	if got := s.Items(); !slices.Equal(got, []string{"hiking"}) {
		t.Errorf("Items() = %v", got)
	}
}

func TestSuggestions_FiltersNearDuplicates(t *testing.T) {
	t.Parallel()

	s := NewSuggestions()
	s.Merge([]string{"cooking"}, nil)
	s.Merge([]string{"Cooking", "cookings", "gardening"}, nil)

	if got := s.Items(); !slices.Equal(got, []string{"cooking", "gardening"}) {
		t.Errorf("Items() = %v, want trivial variants filtered", got)
	}
}

func TestSuggestions_ShortCJKComparedExactly(t *testing.T) {
	t.Parallel()

	// Single-rune differences are meaningful in short CJK labels; similarity
	// filtering must not collapse them.
	s := NewSuggestions()
	s.Merge([]string{"读书", "读报"}, nil)

	if got := s.Items(); !slices.Equal(got, []string{"读书", "读报"}) {
		t.Errorf("Items() = %v", got)
	}
}

func TestSuggestions_TakeRemoves(t *testing.T) {
	t.Parallel()

	s := NewSuggestions()
	s.Merge([]string{"travel", "food"}, nil)

	if !s.Take("travel") {
		t.Fatal("Take returned false for present suggestion")
	}
	if s.Take("travel") {
		t.Error("Take returned true for already-taken suggestion")
	}
	if got := s.Items(); !slices.Equal(got, []string{"food"}) {
		t.Errorf("Items() = %v", got)
	}
}

func TestSuggestions_MergeDropsBlank(t *testing.T) {
	t.Parallel()

	s := NewSuggestions()
	s.Merge([]string{"", "  ", "valid"}, nil)

	if got := s.Items(); !slices.Equal(got, []string{"valid"}) {
		t.Errorf("Items() = %v", got)
	}
}
