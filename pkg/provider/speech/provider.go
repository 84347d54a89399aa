// Package speech defines the Recognizer interface for streaming
// speech-to-text backends.
//
// A recognizer wraps a real-time transcription service (e.g. Deepgram, or a
// local whisper.cpp model) and exposes a uniform streaming interface. The
// central abstraction is SessionHandle: once opened, a session accepts raw PCM
// audio and emits a stream of ResultEvent values. Each event carries an
// ordered list of result groups, each flagged final or interim, together with
// the index of the first group that changed since the previous event.
// Recognizers re-send revised interim hypotheses, so interim text must be
// treated as a replacement, never an append.
//
// Implementations must be safe for concurrent use.
package speech

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by StartStream when no recognition capability
// exists on this platform or configuration (no backend configured, missing
// model, missing credentials). Callers report it to the user once and
// otherwise do nothing.
var ErrUnavailable = errors.New("speech recognition is not available")

// StreamConfig describes the audio format and recognition behaviour for a new
// session.
type StreamConfig struct {
	// SampleRate is the audio sample rate in Hz (16000 is the usual STT rate).
	SampleRate int

	// Channels is the number of audio channels. 1 = mono. Implementors may
	// downmix internally.
	Channels int

	// Language is the BCP-47 language tag for recognition (e.g. "zh-CN",
	// "en-US"). Empty lets the backend auto-detect, if supported.
	Language string

	// Continuous keeps the session open across pauses instead of ending after
	// the first final result.
	Continuous bool

	// InterimResults requests low-latency interim hypotheses in addition to
	// final results.
	InterimResults bool

	// Keywords is a list of vocabulary hints that increase recognition
	// probability for uncommon words (names, titles).
	Keywords []string
}

// Alternative is one ranked transcription hypothesis inside a result group.
type Alternative struct {
	// Transcript is the hypothesised text.
	Transcript string

	// Confidence is the hypothesis confidence (0.0–1.0). Zero when the
	// backend does not report confidence.
	Confidence float64
}

// ResultGroup is one entry of a recognizer's internal result buffer: a set of
// ranked alternatives for one stretch of speech, flagged final once the
// recognizer has committed to it.
type ResultGroup struct {
	// Final marks this group as authoritative. Interim groups are replaced
	// wholesale by later events.
	Final bool

	// Alternatives is ordered best-first and is never empty in a valid event.
	Alternatives []Alternative
}

// Best returns the top-ranked transcript of the group, or "" when the group
// has no alternatives.
func (g ResultGroup) Best() string {
	if len(g.Alternatives) == 0 {
		return ""
	}
	return g.Alternatives[0].Transcript
}

// ResultEvent is a single recognition event. Results holds the groups from
// ResultIndex onward of the recognizer's internal buffer; earlier groups are
// unchanged since the previous event. Events for one session are delivered in
// increasing ResultIndex order.
type ResultEvent struct {
	ResultIndex int
	Results     []ResultGroup
}

// SessionHandle represents an open recognition session.
//
// The Results channel is closed when the session ends, whether by an explicit
// Stop/Close or by the backend terminating the session on its own (timeout,
// network loss). Recognition errors inside a session are logged by the
// implementation and are non-fatal; they never surface through Results.
//
// All methods must be safe for concurrent use.
type SessionHandle interface {
	// SendAudio delivers a chunk of raw 16-bit little-endian PCM audio. The
	// chunk must match the SampleRate and Channels agreed in StreamConfig.
	// Calling SendAudio after the session ended returns an error.
	SendAudio(chunk []byte) error

	// Results returns the read-only event stream. Closed when the session
	// ends. A final result may still be delivered after Stop is called;
	// consumers that need the complete transcript must keep draining until
	// the channel closes or a grace period elapses.
	Results() <-chan ResultEvent

	// Stop requests a graceful end: pending audio is flushed and in-flight
	// finals are delivered before Results closes. Calling Stop more than once
	// is safe.
	Stop() error

	// Close releases the session immediately without waiting for pending
	// results. Safe to call after Stop.
	Close() error
}

// Recognizer is the abstraction over any streaming speech-to-text backend.
type Recognizer interface {
	// StartStream opens a new recognition session. Returns ErrUnavailable
	// (possibly wrapped) when recognition cannot be provided at all, and
	// other errors for transient session-establishment failures.
	StartStream(ctx context.Context, cfg StreamConfig) (SessionHandle, error)
}
