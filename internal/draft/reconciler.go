package draft

import (
	"slices"
	"strings"

	"github.com/voxjot/voxjot/pkg/provider/assist"
	"github.com/voxjot/voxjot/pkg/types"
)

// Mode selects how analysis results merge with the current draft.
type Mode int

const (
	// ModeInitial produces a fresh draft from a first-time capture.
	ModeInitial Mode = iota

	// ModeReanalysis merges updated analysis into an existing draft without
	// discarding user-added keywords or fields the analysis does not cover.
	ModeReanalysis
)

// Reconcile merges an analysis result into the current draft and returns the
// updated draft as a whole value.
//
// ModeInitial builds a new draft: the topic comes from the media title when a
// media kind was detected, the analyzed topic otherwise; keywords start from
// the kind's seed label alone (AI-proposed keywords stay in the suggestion
// pool until the user accepts them).
//
// ModeReanalysis replaces topic, content, category, kind, and media metadata
// from the analysis, but keywords grow additively (existing ∪ seed) and
// identity, timestamp, original image, and chat history are left untouched.
func Reconcile(current Draft, a assist.Analysis, mode Mode) Draft {
	if mode == ModeInitial {
		d := New()
		applyAnalysis(&d, a)
		d.Keywords = seedKeywords(nil, d.Kind)
		return d
	}

	d := current
	applyAnalysis(&d, a)
	d.Keywords = seedKeywords(current.Keywords, d.Kind)
	return d
}

// applyAnalysis writes the analysis-covered fields into d.
func applyAnalysis(d *Draft, a assist.Analysis) {
	kind := a.Kind
	if !kind.IsValid() {
		kind = types.KindNote
	}
	d.Kind = kind
	d.Category = a.Category

	if kind.IsMedia() && a.Media != nil {
		media := *a.Media
		d.Media = &media
		d.Topic = media.Title
	} else {
		d.Kind = types.KindNote
		d.Media = nil
		d.Topic = a.Topic
	}

	// An image-only capture analyzes with empty content; keep whatever the
	// draft already holds rather than blanking it.
	if strings.TrimSpace(a.Content) != "" {
		d.Content = a.Content
	}
}

// seedKeywords unions existing keywords with the kind's seed label, preserving
// order and the keyword cap. Existing keywords are never removed.
func seedKeywords(existing []string, kind types.RecordKind) []string {
	out := slices.Clone(existing)
	seed := kind.SeedKeyword()
	if seed == "" || slices.Contains(out, seed) {
		return out
	}
	if len(out) >= types.MaxKeywords {
		return out
	}
	return append(out, seed)
}
