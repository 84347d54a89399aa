// Package types defines the shared data model used across all Voxjot packages.
//
// These types form the lingua franca between the capture pipeline, the AI
// assist layer, and the journal store. Each package defines its own domain
// types, but cross-cutting data structures live here to avoid circular imports.
package types

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxKeywords is the per-record keyword cap enforced at mutation time.
const MaxKeywords = 5

// RecordKind classifies a journal record.
type RecordKind string

const (
	// KindNote is a plain journal note with no media metadata.
	KindNote RecordKind = "note"

	// KindBook is a reading log entry carrying book metadata.
	KindBook RecordKind = "book"

	// KindMovie is a viewing log entry carrying movie metadata.
	KindMovie RecordKind = "movie"

	// KindMusic is a listening log entry carrying music metadata.
	KindMusic RecordKind = "music"
)

// IsValid reports whether k is a recognised record kind.
func (k RecordKind) IsValid() bool {
	switch k {
	case KindNote, KindBook, KindMovie, KindMusic:
		return true
	}
	return false
}

// IsMedia reports whether k is one of the media kinds (book, movie, music).
func (k RecordKind) IsMedia() bool {
	return k == KindBook || k == KindMovie || k == KindMusic
}

// SeedKeyword returns the fixed keyword label automatically attached to
// records of a media kind. Returns "" for KindNote and unknown kinds.
func (k RecordKind) SeedKeyword() string {
	switch k {
	case KindBook:
		return "book"
	case KindMovie:
		return "movie"
	case KindMusic:
		return "music"
	}
	return ""
}

// MediaMeta holds the metadata block attached to book/movie/music records.
// A record of kind note never carries one.
type MediaMeta struct {
	// Title is the work's title.
	Title string `json:"title"`

	// Creator is the author, director, or artist.
	Creator string `json:"creator,omitempty"`

	// Genre is a free-text genre label.
	Genre string `json:"genre,omitempty"`

	// CoverImage is an optional cover image URL or data URI.
	CoverImage string `json:"coverImage,omitempty"`

	// RegionOrYear is the publication region or year, as reported by analysis.
	RegionOrYear string `json:"regionOrYear,omitempty"`
}

// ChatRole identifies the author of a chat message.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn of the per-record assistant conversation.
type ChatMessage struct {
	Role      ChatRole  `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Record is a persisted unit of capture. Records are immutable once produced
// by finalization; edits go through a draft and replace the whole record at
// commit time.
//
// The persisted schema is additive-only: new optional fields default to their
// zero value on read, and there is no version field or migration path.
type Record struct {
	// ID is the opaque stable identifier assigned at creation.
	ID string `json:"id"`

	// Timestamp is the record's effective time. User-editable after capture.
	Timestamp time.Time `json:"timestamp"`

	// Kind classifies the record. Exactly one of {Kind == note, Media != nil}
	// holds at save time.
	Kind RecordKind `json:"kind"`

	// Content is the free-text body. May be empty for image-only captures.
	Content string `json:"content"`

	// Topic is the short title/subject line.
	Topic string `json:"topic"`

	// Keywords holds up to MaxKeywords deduplicated labels. Order carries no
	// meaning.
	Keywords []string `json:"keywords,omitempty"`

	// Category is a single enumerated label (e.g. "life", "work", "other").
	Category string `json:"category"`

	// Media is present only when Kind != KindNote.
	Media *MediaMeta `json:"media,omitempty"`

	// OriginalImage is the raw captured image, when the record originated
	// from a photo capture. In practice either this or Media.CoverImage
	// populates the record's visual, not both.
	OriginalImage []byte `json:"originalImage,omitempty"`

	// Chat is the ordered assistant conversation attached to this record.
	Chat []ChatMessage `json:"chat,omitempty"`
}

// HasKeyword reports whether kw is already present in r.Keywords.
// Comparison is exact after whitespace trimming.
func (r Record) HasKeyword(kw string) bool {
	return slices.Contains(r.Keywords, strings.TrimSpace(kw))
}

// ClipRunes returns the first n runes of s. Unlike a byte slice, this is safe
// for multi-byte text (journal content is frequently CJK).
func ClipRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
