// Package whisper provides a local whisper.cpp-backed speech recognizer using
// the whisper.cpp CGO bindings. The whisper.cpp static library (libwhisper.a)
// and headers (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH environment variables.
//
// whisper.cpp is a batch (non-streaming) transcription engine, so the
// recognizer cannot emit true low-latency interims. It buffers incoming PCM
// audio, applies an energy-based silence detector to segment utterances, and
// emits one final result group per committed utterance. Dictation built on
// top of it still works: the confirmed transcript simply grows in utterance
// steps instead of word steps.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/voxjot/voxjot/pkg/provider/speech"
)

const (
	// bitsPerSample is fixed at 16 for the 16-bit signed little-endian PCM
	// audio that whisper.cpp expects.
	bitsPerSample = 16

	// defaultRMSThreshold is the root-mean-square energy level (in 16-bit PCM
	// units) below which audio is considered silent. The maximum possible
	// value for 16-bit audio is 32 767; 300 corresponds to near-silence.
	defaultRMSThreshold = 300.0

	defaultLanguage            = "en"
	defaultSampleRate          = 16000
	defaultSilenceThresholdMs  = 500
	defaultMaxBufferDurationMs = 10_000
)

// Compile-time assertion that Recognizer satisfies speech.Recognizer.
var _ speech.Recognizer = (*Recognizer)(nil)

// Recognizer implements speech.Recognizer using whisper.cpp Go bindings
// (CGO). The model is loaded once at startup and shared across all sessions.
type Recognizer struct {
	model    whisperlib.Model
	language string

	sampleRate          int
	silenceThresholdMs  int
	maxBufferDurationMs int
}

// Option is a functional option for configuring a Recognizer.
type Option func(*Recognizer)

// WithLanguage sets the BCP-47 language code for transcription
// (e.g., "en", "zh"). Defaults to "en".
func WithLanguage(lang string) Option {
	return func(r *Recognizer) { r.language = lang }
}

// WithSampleRate sets the audio sample rate in Hz. This must match the
// actual sample rate of PCM data delivered via SendAudio. Defaults to 16000.
func WithSampleRate(rate int) Option {
	return func(r *Recognizer) { r.sampleRate = rate }
}

// WithSilenceThresholdMs sets the consecutive-silence duration (ms) that
// triggers a flush of the accumulated speech buffer to whisper.cpp. Defaults
// to 500 ms.
func WithSilenceThresholdMs(ms int) Option {
	return func(r *Recognizer) { r.silenceThresholdMs = ms }
}

// WithMaxBufferDurationMs sets the maximum buffered audio duration (ms)
// before a forced flush. Defaults to 10 000 ms (10 s).
func WithMaxBufferDurationMs(ms int) Option {
	return func(r *Recognizer) { r.maxBufferDurationMs = ms }
}

// New creates a Recognizer that loads the whisper.cpp model from the given
// file path. The model is loaded once and shared across all concurrent
// sessions. The caller must call Close when the recognizer is no longer
// needed.
func New(modelPath string, opts ...Option) (*Recognizer, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("whisper: %w: modelPath must not be empty", speech.ErrUnavailable)
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	r := &Recognizer{
		model:               model,
		language:            defaultLanguage,
		sampleRate:          defaultSampleRate,
		silenceThresholdMs:  defaultSilenceThresholdMs,
		maxBufferDurationMs: defaultMaxBufferDurationMs,
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Close releases the whisper model. Must be called when the recognizer is no
// longer needed.
func (r *Recognizer) Close() error {
	if r.model != nil {
		return r.model.Close()
	}
	return nil
}

// StartStream opens a new transcription session. The returned SessionHandle
// is ready to accept audio immediately. It respects cfg.SampleRate,
// cfg.Channels, and cfg.Language; if those are zero/empty the
// recognizer-level defaults apply.
//
// Each session creates its own whisper.cpp context from the shared model, so
// multiple sessions can run concurrently without interference.
func (r *Recognizer) StartStream(ctx context.Context, cfg speech.StreamConfig) (speech.SessionHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("whisper: context already cancelled: %w", err)
	}

	lang := cfg.Language
	if lang == "" {
		lang = r.language
	}
	sr := cfg.SampleRate
	if sr <= 0 {
		sr = r.sampleRate
	}
	ch := cfg.Channels
	if ch <= 0 {
		ch = 1
	}

	s := &session{
		model:               r.model,
		language:            lang,
		sampleRate:          sr,
		channels:            ch,
		silenceThresholdMs:  r.silenceThresholdMs,
		maxBufferDurationMs: r.maxBufferDurationMs,

		audioCh: make(chan []byte, 256),
		events:  make(chan speech.ResultEvent, 64),
		done:    make(chan struct{}),
	}

	s.wg.Add(1)
	go s.processLoop(ctx)

	return s, nil
}

// ---- session ----------------------------------------------------------------

// session is a live whisper transcription session using the CGO bindings.
// It implements speech.SessionHandle. All mutable state that drives silence
// detection and buffering is confined to the processLoop goroutine.
type session struct {
	// immutable configuration (set once in StartStream)
	model               whisperlib.Model
	language            string
	sampleRate          int
	channels            int
	silenceThresholdMs  int
	maxBufferDurationMs int

	audioCh chan []byte
	events  chan speech.ResultEvent

	// lifecycle
	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup

	// finalized counts committed result groups; only touched from processLoop.
	finalized int
}

// SendAudio queues a chunk of raw 16-bit little-endian signed PCM audio for
// silence analysis and buffering.
func (s *session) SendAudio(chunk []byte) error {
	select {
	case <-s.done:
		return errors.New("whisper: session is closed")
	default:
	}
	select {
	case s.audioCh <- chunk:
		return nil
	case <-s.done:
		return errors.New("whisper: session is closed")
	}
}

// Results returns the read-only event stream.
func (s *session) Results() <-chan speech.ResultEvent { return s.events }

// Stop flushes any pending speech audio and closes the event stream.
// Whisper inference is local, so the graceful path and the immediate path
// coincide.
func (s *session) Stop() error { return s.Close() }

// Close terminates the session, flushes any pending speech audio, closes the
// Results channel, and releases all associated resources.
func (s *session) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
	return nil
}

// processLoop is the single goroutine responsible for silence detection,
// audio buffering, and native inference dispatch.
func (s *session) processLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.events)

	var (
		buffer    []byte
		hadSpeech bool
		silenceMs int
	)

	bytesPerMs := s.sampleRate * s.channels * (bitsPerSample / 8) / 1000
	if bytesPerMs <= 0 {
		bytesPerMs = 32
	}
	maxBufferBytes := s.maxBufferDurationMs * bytesPerMs

	doFlush := func() {
		if len(buffer) == 0 || !hadSpeech {
			buffer = nil
			hadSpeech = false
			silenceMs = 0
			return
		}

		pcm := buffer
		buffer = nil
		hadSpeech = false
		silenceMs = 0

		text, err := s.infer(pcm)
		if err != nil {
			slog.Error("whisper inference failed", "error", err)
			return
		}
		if text == "" {
			return
		}

		ev := speech.ResultEvent{
			ResultIndex: s.finalized,
			Results: []speech.ResultGroup{{
				Final:        true,
				Alternatives: []speech.Alternative{{Transcript: text}},
			}},
		}
		s.finalized++

		select {
		case s.events <- ev:
		default:
		}
	}

	for {
		select {
		case <-ctx.Done():
			doFlush()
			return

		case <-s.done:
			doFlush()
			return

		case chunk, ok := <-s.audioCh:
			if !ok {
				doFlush()
				return
			}

			rms := computeRMS(chunk)
			chunkMs := chunkDurationMs(chunk, s.sampleRate, s.channels)

			if rms < defaultRMSThreshold {
				if hadSpeech {
					silenceMs += chunkMs
					buffer = append(buffer, chunk...)
					if silenceMs >= s.silenceThresholdMs {
						doFlush()
					}
				}
			} else {
				hadSpeech = true
				silenceMs = 0
				buffer = append(buffer, chunk...)
				if maxBufferBytes > 0 && len(buffer) >= maxBufferBytes {
					doFlush()
				}
			}
		}
	}
}

// infer converts the buffered PCM audio to float32, runs whisper.cpp
// inference using a fresh context, and returns the concatenated text.
func (s *session) infer(pcm []byte) (string, error) {
	// Convert PCM to float32 mono samples.
	samples := pcmToFloat32Mono(pcm, s.channels)

	// Create a new whisper context for this inference. Each context is NOT
	// thread-safe, but the model can be shared across goroutines.
	wctx, err := s.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: create context: %w", err)
	}

	if err := wctx.SetLanguage(s.language); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", s.language, "error", err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process audio: %w", err)
	}

	// Collect segments.
	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " "), nil
}

// Compile-time assertion that session satisfies speech.SessionHandle.
var _ speech.SessionHandle = (*session)(nil)
