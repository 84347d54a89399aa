// Package dictation owns the start/stop lifecycle of voice capture sessions.
//
// Two logical channels exist: the primary press-to-talk channel that feeds the
// capture pipeline, and an inline channel that dictates into a specific text
// field. The underlying recognition resource is exclusive, so starting either
// channel releases the other first.
package dictation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/voxjot/voxjot/internal/observe"
	"github.com/voxjot/voxjot/internal/transcript"
	"github.com/voxjot/voxjot/pkg/provider/speech"
)

// DefaultGraceDelay bounds how long StopPrimary waits for the recognizer to
// deliver in-flight final results after stop is issued. Reading the transcript
// immediately truncates whatever the recognizer had not yet flushed.
const DefaultGraceDelay = 300 * time.Millisecond

// UnavailableMessage is shown to the user when no recognition backend exists.
const UnavailableMessage = "speech recognition is not available on this device"

// State describes which channel, if any, is currently capturing.
type State string

const (
	StateIdle            State = "idle"
	StateListening       State = "listening"
	StateInlineListening State = "inline_listening"
)

// TextTarget is an editable text field that inline dictation writes into.
// The controller captures the target's text as a prefix at session start and
// overwrites the full value on every update, so revised hypotheses never
// duplicate text.
type TextTarget interface {
	Text() string
	SetText(s string)
}

type channelKind int

const (
	channelPrimary channelKind = iota
	channelInline
)

// session is one live recognition stream bound to a channel.
type session struct {
	kind   channelKind
	handle speech.SessionHandle
	acc    *transcript.Accumulator
	target TextTarget
	prefix string

	// ended is closed when the recognizer's result channel closes.
	ended chan struct{}

	started time.Time

	// stopping is set under the controller mutex before an explicit stop, so
	// the pump loop can tell a requested end from a recognizer-initiated one.
	stopping bool
}

// Controller manages dictation sessions over a single shared recognizer.
// All exported methods are safe for concurrent use.
type Controller struct {
	mu     sync.Mutex
	active *session

	recognizer speech.Recognizer
	language   string
	sampleRate int
	graceDelay time.Duration
	logger     *slog.Logger
	metrics    *observe.Metrics

	// notify delivers one-line user-visible messages (capability absence).
	notify func(msg string)
	// onTranscript receives the primary channel's final effective transcript,
	// on explicit stop and on abrupt recognizer-initiated end alike. Never
	// called with a blank transcript.
	onTranscript func(ctx context.Context, text string)
	// onUpdate receives the primary channel's live effective transcript.
	onUpdate func(text string)

	notifiedUnavailable bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithGraceDelay overrides DefaultGraceDelay.
func WithGraceDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.graceDelay = d
		}
	}
}

// WithLanguage sets the recognition language tag (e.g. "zh-CN").
func WithLanguage(lang string) Option {
	return func(c *Controller) { c.language = lang }
}

// WithSampleRate sets the capture sample rate in Hz.
func WithSampleRate(hz int) Option {
	return func(c *Controller) { c.sampleRate = hz }
}

// WithNotifier sets the user-message callback.
func WithNotifier(fn func(msg string)) Option {
	return func(c *Controller) { c.notify = fn }
}

// WithTranscriptHandler sets the handler for the primary channel's final
// transcript.
func WithTranscriptHandler(fn func(ctx context.Context, text string)) Option {
	return func(c *Controller) { c.onTranscript = fn }
}

// WithUpdateHandler sets the handler for the primary channel's live transcript.
func WithUpdateHandler(fn func(text string)) Option {
	return func(c *Controller) { c.onUpdate = fn }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithMetrics overrides the default metrics instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Controller) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewController creates a Controller over the given recognizer.
// recognizer may be nil when the platform has no recognition capability; every
// start attempt then reports UnavailableMessage once and does nothing.
func NewController(recognizer speech.Recognizer, opts ...Option) *Controller {
	c := &Controller{
		recognizer: recognizer,
		graceDelay: DefaultGraceDelay,
		sampleRate: 16000,
		logger:     slog.Default(),
		metrics:    observe.DefaultMetrics(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State reports which channel is currently capturing.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.active == nil:
		return StateIdle
	case c.active.kind == channelInline:
		return StateInlineListening
	default:
		return StateListening
	}
}

// StartPrimary begins a press-to-talk capture session. It is a no-op if the
// primary channel is already listening. An active inline session is stopped
// first since the recognition resource is exclusive.
func (c *Controller) StartPrimary(ctx context.Context) error {
	return c.start(ctx, channelPrimary, nil)
}

// StopPrimary ends the primary capture session. It is a no-op if the primary
// channel is not listening. The recognizer may deliver its last final result
// after stop is issued, so the controller waits up to the grace delay for the
// stream to drain before reading the transcript. A whitespace-only transcript
// is discarded without side effect; otherwise the transcript handler runs
// synchronously before StopPrimary returns.
func (c *Controller) StopPrimary(ctx context.Context) error {
	c.mu.Lock()
	s := c.active
	if s == nil || s.kind != channelPrimary {
		c.mu.Unlock()
		return nil
	}
	s.stopping = true
	c.mu.Unlock()

	text := c.finish(ctx, s)
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if c.onTranscript != nil {
		c.onTranscript(ctx, text)
	}
	return nil
}

// StartInline begins dictation into target. It is a no-op if an inline session
// is already active. An active primary session is stopped first; its
// transcript still flows through the transcript handler so no input is lost.
func (c *Controller) StartInline(ctx context.Context, target TextTarget) error {
	if target == nil {
		return fmt.Errorf("dictation: inline target must not be nil")
	}
	return c.start(ctx, channelInline, target)
}

// StopInline ends the inline session and releases the recognition resource.
// No AI call is triggered; the target keeps whatever text was last written.
func (c *Controller) StopInline(ctx context.Context) error {
	c.mu.Lock()
	s := c.active
	if s == nil || s.kind != channelInline {
		c.mu.Unlock()
		return nil
	}
	s.stopping = true
	c.mu.Unlock()

	c.finish(ctx, s)
	return nil
}

// start acquires the recognition resource for the given channel, stopping any
// other active channel first.
func (c *Controller) start(ctx context.Context, kind channelKind, target TextTarget) error {
	c.mu.Lock()
	if s := c.active; s != nil {
		if s.kind == kind {
			c.mu.Unlock()
			return nil
		}
		// The other channel holds the exclusive resource; release it with
		// full stop semantics before acquiring.
		s.stopping = true
		c.mu.Unlock()
		text := c.finish(ctx, s)
		if s.kind == channelPrimary && strings.TrimSpace(text) != "" && c.onTranscript != nil {
			c.onTranscript(ctx, text)
		}
		c.mu.Lock()
	}

	if c.recognizer == nil {
		c.mu.Unlock()
		c.reportUnavailable()
		return nil
	}

	cfg := speech.StreamConfig{
		SampleRate:     c.sampleRate,
		Channels:       1,
		Language:       c.language,
		Continuous:     true,
		InterimResults: true,
	}
	handle, err := c.recognizer.StartStream(ctx, cfg)
	if err != nil {
		c.mu.Unlock()
		if errors.Is(err, speech.ErrUnavailable) {
			c.reportUnavailable()
			return nil
		}
		return fmt.Errorf("dictation: start recognition stream: %w", err)
	}

	s := &session{
		kind:    kind,
		handle:  handle,
		target:  target,
		ended:   make(chan struct{}),
		started: time.Now(),
	}
	if kind == channelInline {
		s.prefix = target.Text()
	}
	s.acc = transcript.NewAccumulator(func(effective string) {
		c.publish(s, effective)
	})

	c.active = s
	c.mu.Unlock()

	go c.pump(s)

	c.metrics.DictationStarted(ctx, channelName(kind))
	c.logger.Info("dictation started", "channel", channelName(kind))
	return nil
}

// finish drains the session after an explicit stop and returns the final
// effective transcript. Safe to call at most once per session.
func (c *Controller) finish(ctx context.Context, s *session) string {
	s.handle.Stop()

	// Absorb in-flight final results. The stream usually closes well before
	// the grace delay elapses; the timer only bounds a recognizer that never
	// acknowledges the stop.
	select {
	case <-s.ended:
	case <-time.After(c.graceDelay):
	case <-ctx.Done():
	}

	text := s.acc.Drain()
	if err := s.handle.Close(); err != nil {
		c.logger.Warn("dictation: close recognition stream", "err", err)
	}

	c.mu.Lock()
	if c.active == s {
		c.active = nil
	}
	c.mu.Unlock()

	c.metrics.DictationEnded(ctx, channelName(s.kind), time.Since(s.started).Seconds())
	c.logger.Info("dictation stopped", "channel", channelName(s.kind), "chars", len(text))
	return text
}

// pump feeds recognizer events into the session's accumulator until the
// stream ends. A stream that ends without a requested stop (platform timeout,
// recognizer error) is an abrupt termination: state returns to Idle, the
// inline target reference is dropped, and a primary transcript is still
// handed off so the captured speech is not lost.
func (c *Controller) pump(s *session) {
	for ev := range s.handle.Results() {
		s.acc.Process(ev)
	}
	close(s.ended)

	c.mu.Lock()
	if c.active != s || s.stopping {
		c.mu.Unlock()
		return
	}
	c.active = nil
	c.mu.Unlock()

	c.metrics.DictationEnded(context.Background(), channelName(s.kind), time.Since(s.started).Seconds())
	c.logger.Warn("dictation ended by recognizer", "channel", channelName(s.kind))

	text := s.acc.Drain()
	_ = s.handle.Close()
	if s.kind == channelPrimary && strings.TrimSpace(text) != "" && c.onTranscript != nil {
		c.onTranscript(context.Background(), text)
	}
}

// publish routes a live effective transcript to its channel's sink.
func (c *Controller) publish(s *session, effective string) {
	if s.kind == channelInline {
		// Overwrite rather than append so repeated hypotheses for the same
		// audio never duplicate text after the captured prefix.
		s.target.SetText(s.prefix + effective)
		return
	}
	if c.onUpdate != nil {
		c.onUpdate(effective)
	}
}

// reportUnavailable surfaces the capability-absence message once; later
// attempts silently do nothing.
func (c *Controller) reportUnavailable() {
	c.mu.Lock()
	already := c.notifiedUnavailable
	c.notifiedUnavailable = true
	c.mu.Unlock()
	if already {
		return
	}
	c.logger.Warn("dictation: recognition unavailable")
	if c.notify != nil {
		c.notify(UnavailableMessage)
	}
}

func channelName(k channelKind) string {
	if k == channelInline {
		return "inline"
	}
	return "primary"
}
