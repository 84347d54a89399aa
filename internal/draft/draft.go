// Package draft holds the in-progress record under active editing and the
// reconciliation rules that merge AI analysis into it without losing user
// input.
//
// A Draft is a Record with every field optional. Exactly one draft is active
// at a time; it is created on capture, mutated by edits and analysis results,
// and consumed once by Finalize or discarded. Mutating operations return a new
// Draft value so readers never observe a half-applied update.
package draft

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/voxjot/voxjot/pkg/types"
)

// ErrKeywordLimit is returned when adding a keyword to a draft that already
// holds types.MaxKeywords.
var ErrKeywordLimit = fmt.Errorf("draft: keyword limit of %d reached", types.MaxKeywords)

// Defaults applied by Finalize for fields the user never filled in.
const (
	// DefaultCategory labels records with no analysis-assigned category.
	DefaultCategory = "other"

	// FallbackTopic is used when a draft has neither a topic nor content to
	// derive one from.
	FallbackTopic = "untitled"

	// finalizeTopicRunes is how much content Finalize clips into a default topic.
	finalizeTopicRunes = 12

	// dictationTopicRunes is how much dictated content seeds the draft topic.
	dictationTopicRunes = 10
)

// Draft is the single in-progress record under active editing.
type Draft struct {
	// ID is assigned at draft creation and survives into the finalized record.
	ID string

	// Persisted marks a draft opened from an already-saved record. Deleting a
	// persisted draft requires user confirmation; an unsaved one does not.
	Persisted bool

	Timestamp     time.Time
	Kind          types.RecordKind
	Content       string
	Topic         string
	Keywords      []string
	Category      string
	Media         *types.MediaMeta
	OriginalImage []byte
	Chat          []types.ChatMessage
}

// New creates an empty draft with a fresh identity and the current time.
func New() Draft {
	return Draft{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Kind:      types.KindNote,
	}
}

// NewFromDictation creates a draft seeded from a dictated (and possibly
// proofread) transcript. The topic is clipped from the leading content with a
// trailing ellipsis, matching how a capture appears in the journal list.
func NewFromDictation(content string) Draft {
	d := New()
	d.Content = content
	d.Topic = types.ClipRunes(content, dictationTopicRunes) + "…"
	return d
}

// NewFromRecord opens an existing record for editing.
func NewFromRecord(r types.Record) Draft {
	return Draft{
		ID:            r.ID,
		Persisted:     true,
		Timestamp:     r.Timestamp,
		Kind:          r.Kind,
		Content:       r.Content,
		Topic:         r.Topic,
		Keywords:      slices.Clone(r.Keywords),
		Category:      r.Category,
		Media:         cloneMedia(r.Media),
		OriginalImage: slices.Clone(r.OriginalImage),
		Chat:          slices.Clone(r.Chat),
	}
}

// AddKeyword returns a copy of d with kw appended. Re-adding an existing
// keyword is a no-op (no duplicate is created). Exceeding types.MaxKeywords
// returns ErrKeywordLimit with the draft unchanged.
func AddKeyword(d Draft, kw string) (Draft, error) {
	kw = strings.TrimSpace(kw)
	if kw == "" {
		return d, errors.New("draft: keyword must not be blank")
	}
	if slices.Contains(d.Keywords, kw) {
		return d, nil
	}
	if len(d.Keywords) >= types.MaxKeywords {
		return d, ErrKeywordLimit
	}
	out := d
	out.Keywords = append(slices.Clone(d.Keywords), kw)
	return out, nil
}

// RemoveKeyword returns a copy of d without kw. Removing an absent keyword is
// a no-op.
func RemoveKeyword(d Draft, kw string) Draft {
	kw = strings.TrimSpace(kw)
	i := slices.Index(d.Keywords, kw)
	if i < 0 {
		return d
	}
	out := d
	out.Keywords = slices.Delete(slices.Clone(d.Keywords), i, i+1)
	return out
}

// Finalize consumes the draft and produces an immutable Record ready for
// store sync, applying defaults for any still-missing required field and
// attaching the current chat transcript.
func Finalize(d Draft, chat []types.ChatMessage) types.Record {
	r := types.Record{
		ID:            d.ID,
		Timestamp:     d.Timestamp,
		Kind:          d.Kind,
		Content:       d.Content,
		Topic:         strings.TrimSpace(d.Topic),
		Keywords:      dedup(d.Keywords),
		Category:      d.Category,
		Media:         cloneMedia(d.Media),
		OriginalImage: slices.Clone(d.OriginalImage),
		Chat:          slices.Clone(chat),
	}

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	if !r.Kind.IsValid() {
		r.Kind = types.KindNote
	}
	if r.Topic == "" {
		if c := strings.TrimSpace(r.Content); c != "" {
			r.Topic = types.ClipRunes(c, finalizeTopicRunes)
		} else {
			r.Topic = FallbackTopic
		}
	}
	if r.Category == "" {
		r.Category = DefaultCategory
	}
	// Exactly one of {media present, kind == note} holds at save time.
	if !r.Kind.IsMedia() {
		r.Media = nil
	} else if r.Media == nil {
		r.Kind = types.KindNote
	}

	return r
}

// dedup trims and deduplicates keywords, preserving first-seen order and the
// MaxKeywords cap.
func dedup(keywords []string) []string {
	var out []string
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" || slices.Contains(out, kw) {
			continue
		}
		out = append(out, kw)
		if len(out) == types.MaxKeywords {
			break
		}
	}
	return out
}

func cloneMedia(m *types.MediaMeta) *types.MediaMeta {
	if m == nil {
		return nil
	}
	cp := *m
	return &cp
}
