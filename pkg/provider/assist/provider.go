// Package assist defines the Provider interface for the generative-AI service
// behind the capture pipeline: content analysis, proofreading, keyword
// extraction, and per-record chat.
//
// Providers wrap a remote LLM API and expose the four operations the pipeline
// consumes. Every operation may fail; failure handling (deterministic
// fallback values, never uncaught errors into the UI layer) is the
// responsibility of the orchestrator in internal/assist, not of providers.
// Providers have exactly one boundary obligation: dynamic model output is
// validated into the strict Analysis union here, and malformed payloads
// become ordinary errors rather than half-populated results.
//
// Implementations must be safe for concurrent use.
package assist

import (
	"context"

	"github.com/voxjot/voxjot/pkg/types"
)

// Analysis is the structured result of analysing a capture. It is a strict
// tagged union over the record kinds: when IsMedia is true, Kind is one of
// the media kinds and Media is non-nil with a non-empty title; otherwise
// Kind is KindNote and Media is nil.
type Analysis struct {
	// IsMedia reports whether the capture was recognised as a media log
	// entry (book, movie, music).
	IsMedia bool

	// Kind is the detected record kind. KindNote when IsMedia is false.
	Kind types.RecordKind

	// Topic is the generated short title for the capture.
	Topic string

	// Content is the cleaned-up body text. For image-only captures this is
	// the model's description of the image.
	Content string

	// Category is the single enumerated category label.
	Category string

	// Keywords are AI-proposed keywords. They become suggestions, not draft
	// keywords, until the user accepts them.
	Keywords []string

	// Media holds the media metadata block. Non-nil exactly when IsMedia.
	Media *types.MediaMeta
}

// Provider is the abstraction over the generative-AI backend.
type Provider interface {
	// Analyze structures raw capture text (and optionally a captured image)
	// into an Analysis. Either text or image may be empty/nil, not both.
	Analyze(ctx context.Context, text string, image []byte) (Analysis, error)

	// Proofread returns a cleaned-up version of dictated text: punctuation,
	// fillers, obvious mis-recognitions. It must not summarise or rewrite.
	Proofread(ctx context.Context, text string) (string, error)

	// ExtractKeywords proposes up to a handful of short keywords for text.
	ExtractKeywords(ctx context.Context, text string) ([]string, error)

	// Chat answers a user message about a record. recordContext is a plain
	// rendering of the record (topic, content, metadata); history is the
	// prior conversation in order.
	Chat(ctx context.Context, recordContext string, history []types.ChatMessage, message string) (string, error)
}
