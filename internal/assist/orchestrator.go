// Package assist sequences the external AI operations used by the capture
// pipeline and converts their failures into deterministic degraded values.
//
// Every operation exposes a loading flag so a UI can show progress without
// blocking unrelated actions, and no operation ever propagates an error to
// its caller: analysis degrades to a fixed placeholder result, proofreading
// passes the original text through, keyword extraction yields nothing, and
// chat answers with a fixed apology.
package assist

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/voxjot/voxjot/internal/observe"
	provider "github.com/voxjot/voxjot/pkg/provider/assist"
	"github.com/voxjot/voxjot/pkg/types"
)

// Degraded values returned when an assist call fails. Callers treat these as
// ordinary results, never as errors to handle.
const (
	// FailedAnalysisTopic labels a record whose analysis could not complete.
	FailedAnalysisTopic = "analysis failed"

	// FailedAnalysisKeyword marks the degraded analysis result.
	FailedAnalysisKeyword = "error"

	// FailedAnalysisContent stands in when the capture had no text to fall
	// back to (image-only capture whose analysis failed).
	FailedAnalysisContent = "could not analyze this entry"

	// ChatErrorReply is appended as the assistant's message when chat fails.
	ChatErrorReply = "Sorry, something went wrong. Please try again."
)

// Orchestrator coordinates the four assist operations. All methods are safe
// for concurrent use.
type Orchestrator struct {
	backend provider.Provider
	metrics *observe.Metrics
	logger  *slog.Logger

	analyzing    atomic.Int32
	proofreading atomic.Int32
	extracting   atomic.Int32
	chatting     atomic.Int32

	// tokens tracks the newest analysis request issued per draft, so results
	// that arrive after a newer request (or after the draft was replaced) can
	// be discarded instead of merging into the wrong draft.
	mu     sync.Mutex
	tokens map[string]uint64
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMetrics wires metric recording. Defaults to observe.DefaultMetrics().
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// NewOrchestrator creates an Orchestrator over the given assist backend,
// which is typically a resilience.AssistFallback chaining several providers.
func NewOrchestrator(backend provider.Provider, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		backend: backend,
		logger:  slog.Default(),
		tokens:  make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = observe.DefaultMetrics()
	}
	return o
}

// Analyzing reports whether an analysis call is in flight.
func (o *Orchestrator) Analyzing() bool { return o.analyzing.Load() > 0 }

// Proofreading reports whether a proofread call is in flight.
func (o *Orchestrator) Proofreading() bool { return o.proofreading.Load() > 0 }

// ExtractingKeywords reports whether a keyword extraction call is in flight.
func (o *Orchestrator) ExtractingKeywords() bool { return o.extracting.Load() > 0 }

// Chatting reports whether a chat call is in flight.
func (o *Orchestrator) Chatting() bool { return o.chatting.Load() > 0 }

// BeginAnalysis issues a request token for an analysis against the given
// draft. Only the most recently issued token per draft is current.
func (o *Orchestrator) BeginAnalysis(draftID string) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tokens[draftID]++
	return o.tokens[draftID]
}

// IsCurrent reports whether token is still the newest analysis request for
// the draft. Callers check this before merging an analysis result; a stale
// token means the user re-triggered analysis or moved on, and the result
// must be dropped.
func (o *Orchestrator) IsCurrent(draftID string, token uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.tokens[draftID] == token
}

// ForgetDraft clears token bookkeeping for a draft that was saved or
// discarded. Any analysis still in flight for it becomes stale.
func (o *Orchestrator) ForgetDraft(draftID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.tokens, draftID)
}

// Analyze classifies the capture. On failure it returns the deterministic
// degraded result: a plain note with a failure topic, the original text (or a
// fixed placeholder when there was none), one error keyword, and the default
// category.
func (o *Orchestrator) Analyze(ctx context.Context, text string, image []byte) provider.Analysis {
	o.analyzing.Add(1)
	defer o.analyzing.Add(-1)

	ctx, span := observe.StartSpan(ctx, "assist.analyze")
	defer span.End()

	start := time.Now()
	result, err := o.backend.Analyze(ctx, text, image)
	o.metrics.RecordAssist(ctx, "analyze", time.Since(start).Seconds(), err != nil)
	if err != nil {
		o.logger.Warn("assist: analyze failed, using degraded result", "err", err)
		return degradedAnalysis(text)
	}
	return result
}

// Proofread cleans up a transcript. Failure returns the original text
// unchanged: proofreading is best-effort and never destroys input.
func (o *Orchestrator) Proofread(ctx context.Context, text string) string {
	o.proofreading.Add(1)
	defer o.proofreading.Add(-1)

	ctx, span := observe.StartSpan(ctx, "assist.proofread")
	defer span.End()

	start := time.Now()
	out, err := o.backend.Proofread(ctx, text)
	o.metrics.RecordAssist(ctx, "proofread", time.Since(start).Seconds(), err != nil)
	if err != nil {
		o.logger.Warn("assist: proofread failed, passing text through", "err", err)
		return text
	}
	return out
}

// SuggestKeywords proposes keywords for the text. Failure yields an empty
// list.
func (o *Orchestrator) SuggestKeywords(ctx context.Context, text string) []string {
	o.extracting.Add(1)
	defer o.extracting.Add(-1)

	ctx, span := observe.StartSpan(ctx, "assist.keywords")
	defer span.End()

	start := time.Now()
	kws, err := o.backend.ExtractKeywords(ctx, text)
	o.metrics.RecordAssist(ctx, "keywords", time.Since(start).Seconds(), err != nil)
	if err != nil {
		o.logger.Warn("assist: keyword extraction failed", "err", err)
		return nil
	}
	return kws
}

// AnalyzeWithKeywords runs analysis and keyword extraction in parallel; the
// two calls are independent and both degrade independently.
func (o *Orchestrator) AnalyzeWithKeywords(ctx context.Context, text string, image []byte) (provider.Analysis, []string) {
	var (
		analysis provider.Analysis
		keywords []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		analysis = o.Analyze(gctx, text, image)
		return nil
	})
	g.Go(func() error {
		keywords = o.SuggestKeywords(gctx, text)
		return nil
	})
	_ = g.Wait() // both branches degrade internally and never error
	return analysis, keywords
}

// Chat answers a question about a record. Failure returns ChatErrorReply,
// which the caller appends as an ordinary assistant message.
func (o *Orchestrator) Chat(ctx context.Context, recordContext string, history []types.ChatMessage, message string) string {
	o.chatting.Add(1)
	defer o.chatting.Add(-1)

	ctx, span := observe.StartSpan(ctx, "assist.chat")
	defer span.End()

	start := time.Now()
	reply, err := o.backend.Chat(ctx, recordContext, history, message)
	o.metrics.RecordAssist(ctx, "chat", time.Since(start).Seconds(), err != nil)
	if err != nil {
		o.logger.Warn("assist: chat failed", "err", err)
		return ChatErrorReply
	}
	return reply
}

// degradedAnalysis builds the fixed fallback analysis for text.
func degradedAnalysis(text string) provider.Analysis {
	content := text
	if content == "" {
		content = FailedAnalysisContent
	}
	return provider.Analysis{
		IsMedia:  false,
		Kind:     types.KindNote,
		Topic:    FailedAnalysisTopic,
		Content:  content,
		Category: "other",
		Keywords: []string{FailedAnalysisKeyword},
	}
}
