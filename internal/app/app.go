// Package app wires all Voxjot subsystems into a running capture core.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems (journal store, semantic index, assist orchestrator, dictation
// controller), the exported methods implement the capture flow, and Shutdown
// tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithStore, WithIndex, etc.). When an option is not provided, New creates
// real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voxjot/voxjot/internal/assist"
	"github.com/voxjot/voxjot/internal/config"
	"github.com/voxjot/voxjot/internal/dictation"
	"github.com/voxjot/voxjot/internal/draft"
	"github.com/voxjot/voxjot/internal/journal"
	"github.com/voxjot/voxjot/internal/observe"
	"github.com/voxjot/voxjot/internal/search"
	provider "github.com/voxjot/voxjot/pkg/provider/assist"
	"github.com/voxjot/voxjot/pkg/provider/embeddings"
	"github.com/voxjot/voxjot/pkg/provider/speech"
	"github.com/voxjot/voxjot/pkg/types"
)

// nowFn stamps chat messages; overridable in tests.
var nowFn = time.Now

// ErrConfirmRequired is returned by Delete when the active draft corresponds
// to a persisted record and the caller has not confirmed the deletion.
var ErrConfirmRequired = errors.New("app: deleting a saved record requires confirmation")

// ErrNoDraft is returned by draft-scoped operations when no draft is active.
var ErrNoDraft = errors.New("app: no active draft")

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured; the corresponding feature degrades per its
// contract (dictation reports unavailability once, assist operations return
// their deterministic fallback values, search stays substring-only).
// Populated by main.go via the config registry.
type Providers struct {
	Recognizer speech.Recognizer
	Assist     provider.Provider
	Embedder   embeddings.Provider
}

// App owns all subsystem lifetimes and implements the capture flow: dictate →
// proofread → draft → analyze/edit/chat → save → journal.
//
// At most one draft is active at a time; it is exclusively owned by the
// current editing session and replaced as a whole value on every mutation.
type App struct {
	cfg *config.Config

	journal     *journal.Sync
	store       journal.Store
	index       search.Index
	orch        *assist.Orchestrator
	dict        *dictation.Controller
	suggestions *draft.Suggestions

	// notify delivers one-line user-visible messages (toasts).
	notify func(msg string)
	// onEdit is invoked when a new draft is ready for editing (capture
	// finished or an existing record was opened).
	onEdit func(d draft.Draft)
	// onDraft is invoked after every draft replacement so the UI can
	// re-render. Called with the new whole value.
	onDraft func(d draft.Draft)

	logger  *slog.Logger
	metrics *observe.Metrics

	mu       sync.Mutex
	current  draft.Draft
	hasDraft bool

	// closers are called in order during Shutdown.
	closers  []func() error
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a journal store instead of creating one from config.
func WithStore(s journal.Store) Option {
	return func(a *App) { a.store = s }
}

// WithIndex injects a semantic index instead of creating one from config.
func WithIndex(idx search.Index) Option {
	return func(a *App) { a.index = idx }
}

// WithNotifier sets the user-message callback.
func WithNotifier(fn func(msg string)) Option {
	return func(a *App) { a.notify = fn }
}

// WithEditHandler sets the callback invoked when a draft is ready for editing.
func WithEditHandler(fn func(d draft.Draft)) Option {
	return func(a *App) { a.onEdit = fn }
}

// WithDraftHandler sets the callback invoked after every draft replacement.
func WithDraftHandler(fn func(d draft.Draft)) Option {
	return func(a *App) { a.onDraft = fn }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMetrics overrides the default metrics instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) {
		if m != nil {
			a.metrics = m
		}
	}
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry). Use Option functions
// to inject test doubles for any subsystem.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:         cfg,
		suggestions: draft.NewSuggestions(),
		logger:      slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	if err := a.initJournal(ctx); err != nil {
		return nil, fmt.Errorf("app: init journal: %w", err)
	}
	if err := a.initIndex(ctx, providers.Embedder); err != nil {
		return nil, fmt.Errorf("app: init index: %w", err)
	}
	a.initAssist(providers.Assist)
	a.initDictation(providers.Recognizer)

	return a, nil
}

// initJournal sets up the journal store per config (or uses an injected one)
// and hydrates the in-memory record list.
func (a *App) initJournal(ctx context.Context) error {
	if a.store == nil {
		switch a.cfg.Storage.Backend {
		case config.StoragePostgres:
			pool, err := pgxpool.New(ctx, a.cfg.Storage.PostgresDSN)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			pg := journal.NewPostgresStore(pool,
				journal.WithStorageKey(a.cfg.Storage.StorageKey),
				journal.WithPostgresLogger(a.logger),
			)
			if err := pg.Migrate(ctx); err != nil {
				pool.Close()
				return err
			}
			a.store = pg
			a.closers = append(a.closers, func() error {
				pool.Close()
				return nil
			})
		default:
			a.store = journal.NewMemStore()
		}
	}

	a.journal = journal.NewSync(a.store,
		journal.WithSyncMetrics(a.metrics),
		journal.WithSyncLogger(a.logger),
	)
	return a.journal.Load(ctx)
}

// initIndex sets up the semantic index when search is enabled and an embedder
// is configured. Without either, semantic queries return ErrNoIndex.
func (a *App) initIndex(ctx context.Context, embedder embeddings.Provider) error {
	if a.index != nil || !a.cfg.Search.Enabled || embedder == nil {
		return nil
	}

	if a.cfg.Storage.Backend == config.StoragePostgres {
		idx, err := search.NewPostgresIndex(ctx, a.cfg.Storage.PostgresDSN, embedder)
		if err != nil {
			return err
		}
		a.index = idx
		a.closers = append(a.closers, func() error {
			idx.Close()
			return nil
		})
		return nil
	}

	a.index = search.NewMemoryIndex(embedder)
	return nil
}

// initAssist builds the pipeline orchestrator. A nil backend makes every
// operation degrade to its deterministic fallback value.
func (a *App) initAssist(backend provider.Provider) {
	if backend == nil {
		backend = unavailableAssist{}
	}
	a.orch = assist.NewOrchestrator(backend,
		assist.WithMetrics(a.metrics),
		assist.WithLogger(a.logger),
	)
}

// initDictation builds the dictation controller and routes its transcript
// into the capture flow.
func (a *App) initDictation(recognizer speech.Recognizer) {
	a.dict = dictation.NewController(recognizer,
		dictation.WithGraceDelay(a.cfg.Speech.GraceDelay),
		dictation.WithLanguage(a.cfg.Speech.Language),
		dictation.WithSampleRate(a.cfg.Speech.SampleRate),
		dictation.WithNotifier(a.userNotify),
		dictation.WithTranscriptHandler(a.handleTranscript),
		dictation.WithLogger(a.logger),
		dictation.WithMetrics(a.metrics),
	)
}

// ─── Capture ─────────────────────────────────────────────────────────────────

// StartDictation begins a primary press-to-talk session.
func (a *App) StartDictation(ctx context.Context) error {
	return a.dict.StartPrimary(ctx)
}

// StopDictation ends the primary session. When the transcript is non-blank it
// flows through proofreading into a fresh draft and the edit handler fires
// before StopDictation returns.
func (a *App) StopDictation(ctx context.Context) error {
	return a.dict.StopPrimary(ctx)
}

// StartInlineDictation begins dictating into target (composer body or chat
// input). Any primary session is stopped first with full handoff semantics.
func (a *App) StartInlineDictation(ctx context.Context, target dictation.TextTarget) error {
	return a.dict.StartInline(ctx, target)
}

// StopInlineDictation ends the inline session without any AI call.
func (a *App) StopInlineDictation(ctx context.Context) error {
	return a.dict.StopInline(ctx)
}

// DictationState reports which dictation channel is active.
func (a *App) DictationState() dictation.State {
	return a.dict.State()
}

// handleTranscript receives the final effective transcript of a primary
// session: proofread (best-effort, never destroys input), build a draft, and
// hand it to the edit view.
func (a *App) handleTranscript(ctx context.Context, raw string) {
	polished := a.orch.Proofread(ctx, raw)
	d := draft.NewFromDictation(polished)

	a.replaceDraft(d, true)
}

// CaptureImage creates a draft from a picked photo and runs the initial
// analysis on it. The draft is handed to the edit view immediately; the
// analysis result merges in when it arrives, unless the user has navigated to
// a different draft by then.
func (a *App) CaptureImage(ctx context.Context, image []byte) draft.Draft {
	d := draft.New()
	d.OriginalImage = image
	a.replaceDraft(d, true)

	a.analyze(ctx, d, draft.ModeInitial)
	return a.snapshot()
}

// NewNote creates a blank draft for manual composition.
func (a *App) NewNote() draft.Draft {
	d := draft.New()
	a.replaceDraft(d, true)
	return d
}

// OpenRecord loads a persisted record into a draft for editing.
func (a *App) OpenRecord(id string) (draft.Draft, error) {
	rec, ok := a.journal.Get(id)
	if !ok {
		return draft.Draft{}, fmt.Errorf("app: record %q not found", id)
	}
	d := draft.NewFromRecord(rec)
	a.replaceDraft(d, true)
	return d, nil
}

// ─── Draft editing ───────────────────────────────────────────────────────────

// Draft returns a copy of the active draft, if any.
func (a *App) Draft() (draft.Draft, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current, a.hasDraft
}

// UpdateDraft replaces the active draft with the edited value. The ID must
// match the active draft; a stale update from an abandoned edit is rejected.
func (a *App) UpdateDraft(d draft.Draft) error {
	a.mu.Lock()
	if !a.hasDraft || a.current.ID != d.ID {
		a.mu.Unlock()
		return ErrNoDraft
	}
	a.current = d
	a.mu.Unlock()

	if a.onDraft != nil {
		a.onDraft(d)
	}
	return nil
}

// Reanalyze re-runs analysis on the active draft. Topic, content, category,
// kind, and media metadata are replaced by the new result; keywords grow
// additively and user-added ones are never dropped. The result is discarded
// when the user has moved to another draft before it arrives.
func (a *App) Reanalyze(ctx context.Context) error {
	a.mu.Lock()
	if !a.hasDraft {
		a.mu.Unlock()
		return ErrNoDraft
	}
	d := a.current
	a.mu.Unlock()

	a.analyze(ctx, d, draft.ModeReanalysis)
	return nil
}

// analyze runs analysis + keyword extraction and merges the outcome into the
// draft identified by d.ID, guarded against stale application.
func (a *App) analyze(ctx context.Context, d draft.Draft, mode draft.Mode) {
	token := a.orch.BeginAnalysis(d.ID)
	analysis, proposed := a.orch.AnalyzeWithKeywords(ctx, d.Content, d.OriginalImage)

	a.mu.Lock()
	if !a.orch.IsCurrent(d.ID, token) || !a.hasDraft || a.current.ID != d.ID {
		a.mu.Unlock()
		a.logger.Debug("dropping stale analysis result", "draft", d.ID)
		return
	}

	merged := draft.Reconcile(a.current, analysis, mode)
	if mode == draft.ModeInitial {
		// Reconcile built a fresh draft; carry the capture identity over so
		// the stale-result guard and the edit session stay bound to it.
		merged.ID = a.current.ID
		merged.Timestamp = a.current.Timestamp
		merged.OriginalImage = a.current.OriginalImage
	}
	a.current = merged
	a.mu.Unlock()

	a.suggestions.Merge(proposed, merged.Keywords)
	if a.onDraft != nil {
		a.onDraft(merged)
	}
}

// Suggestions returns the AI-proposed keywords not yet accepted by the user.
func (a *App) Suggestions() []string {
	return a.suggestions.Items()
}

// AcceptSuggestion moves a suggested keyword into the draft's keywords. When
// the keyword cap is reached the suggestion stays selectable and the user is
// notified.
func (a *App) AcceptSuggestion(kw string) error {
	a.mu.Lock()
	if !a.hasDraft {
		a.mu.Unlock()
		return ErrNoDraft
	}
	updated, err := draft.AddKeyword(a.current, kw)
	if err != nil {
		a.mu.Unlock()
		if errors.Is(err, draft.ErrKeywordLimit) {
			a.userNotify(fmt.Sprintf("keyword limit of %d reached", types.MaxKeywords))
		}
		return err
	}
	a.current = updated
	a.mu.Unlock()

	a.suggestions.Take(kw)
	if a.onDraft != nil {
		a.onDraft(updated)
	}
	return nil
}

// AddKeyword adds a user-typed keyword to the active draft.
func (a *App) AddKeyword(kw string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.hasDraft {
		return ErrNoDraft
	}
	updated, err := draft.AddKeyword(a.current, kw)
	if err != nil {
		if errors.Is(err, draft.ErrKeywordLimit) {
			a.userNotify(fmt.Sprintf("keyword limit of %d reached", types.MaxKeywords))
		}
		return err
	}
	a.current = updated
	return nil
}

// RemoveKeyword removes a keyword from the active draft.
func (a *App) RemoveKeyword(kw string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.hasDraft {
		return ErrNoDraft
	}
	a.current = draft.RemoveKeyword(a.current, kw)
	return nil
}

// Chat sends a user message about the active draft to the assistant and
// appends both turns to the draft's chat history. Failures surface as the
// assistant's error reply, never as an error to the caller.
func (a *App) Chat(ctx context.Context, message string) (string, error) {
	a.mu.Lock()
	if !a.hasDraft {
		a.mu.Unlock()
		return "", ErrNoDraft
	}
	d := a.current
	history := d.Chat
	a.mu.Unlock()

	reply := a.orch.Chat(ctx, d.Content, history, message)

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.hasDraft || a.current.ID != d.ID {
		// The user navigated away mid-call; drop the exchange.
		return reply, nil
	}
	a.current.Chat = append(a.current.Chat,
		types.ChatMessage{Role: types.RoleUser, Text: message, Timestamp: nowFn()},
		types.ChatMessage{Role: types.RoleAssistant, Text: reply, Timestamp: nowFn()},
	)
	return reply, nil
}

// ─── Persistence ─────────────────────────────────────────────────────────────

// Save finalizes the active draft, commits the record to the journal, and
// clears the editing session. The save captures whatever state the draft holds
// at this instant; in-flight analysis results for it are discarded afterwards.
func (a *App) Save(ctx context.Context) (types.Record, error) {
	a.mu.Lock()
	if !a.hasDraft {
		a.mu.Unlock()
		return types.Record{}, ErrNoDraft
	}
	d := a.current
	a.mu.Unlock()

	rec := draft.Finalize(d, d.Chat)
	if err := a.journal.Commit(ctx, rec); err != nil {
		a.userNotify("saving failed; your entry is kept in memory — try again")
		return types.Record{}, err
	}

	// Best-effort: the journal is the source of truth, a failed index write
	// only degrades semantic search for this record.
	if a.index != nil {
		if err := a.index.IndexRecord(ctx, rec); err != nil {
			a.logger.Warn("indexing saved record failed", "record", rec.ID, "err", err)
		}
	}

	a.clearDraft(d.ID)
	return rec, nil
}

// Delete discards the active draft. A draft that was never saved is discarded
// unconditionally. A draft backed by a persisted record requires confirmed to
// be true; otherwise ErrConfirmRequired is returned and nothing changes.
func (a *App) Delete(ctx context.Context, confirmed bool) error {
	a.mu.Lock()
	if !a.hasDraft {
		a.mu.Unlock()
		return ErrNoDraft
	}
	d := a.current
	a.mu.Unlock()

	if !d.Persisted {
		a.clearDraft(d.ID)
		return nil
	}
	if !confirmed {
		return ErrConfirmRequired
	}

	if err := a.journal.Delete(ctx, d.ID); err != nil {
		return err
	}
	if a.index != nil {
		if err := a.index.Remove(ctx, d.ID); err != nil {
			a.logger.Warn("removing record from index failed", "record", d.ID, "err", err)
		}
	}
	a.clearDraft(d.ID)
	return nil
}

// Discard abandons the active draft without touching the journal (navigate
// away). In-flight analysis results for it will be dropped.
func (a *App) Discard() {
	a.mu.Lock()
	if !a.hasDraft {
		a.mu.Unlock()
		return
	}
	id := a.current.ID
	a.mu.Unlock()
	a.clearDraft(id)
}

// ─── Queries ─────────────────────────────────────────────────────────────────

// Records returns the ordered record list.
func (a *App) Records() []types.Record {
	return a.journal.List()
}

// Search returns records matching the query as a case-insensitive substring.
func (a *App) Search(query string) []types.Record {
	return a.journal.Search(query)
}

// SemanticSearch returns the records closest in meaning to the query. Falls
// back to substring search when no semantic index is configured.
func (a *App) SemanticSearch(ctx context.Context, query string, topK int) ([]types.Record, error) {
	if a.index == nil {
		return a.journal.Search(query), nil
	}
	matches, err := a.index.Query(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	records := make([]types.Record, 0, len(matches))
	for _, m := range matches {
		if rec, ok := a.journal.Get(m.RecordID); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// StorageReady probes the journal store with a round trip. Used as a
// readiness check; for the memory backend it always succeeds.
func (a *App) StorageReady(ctx context.Context) error {
	_, err := a.store.Load(ctx)
	return err
}

// Journal exposes the record store sync, for read-only surfaces (MCP server).
func (a *App) Journal() *journal.Sync {
	return a.journal
}

// Assist exposes the orchestrator's loading flags for UI progress display.
func (a *App) Assist() *assist.Orchestrator {
	return a.orch
}

// ─── Lifecycle ───────────────────────────────────────────────────────────────

// Shutdown stops any live dictation session and releases all resources. Safe
// to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	a.stopOnce.Do(func() {
		if err := a.dict.StopPrimary(ctx); err != nil {
			errs = append(errs, err)
		}
		if err := a.dict.StopInline(ctx); err != nil {
			errs = append(errs, err)
		}
		for _, closer := range a.closers {
			if err := closer(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

// ─── Internals ───────────────────────────────────────────────────────────────

// replaceDraft installs d as the active draft. Any previous draft's pending
// analysis is forgotten so a stale result cannot merge into the newcomer.
func (a *App) replaceDraft(d draft.Draft, edit bool) {
	a.mu.Lock()
	if a.hasDraft && a.current.ID != d.ID {
		a.orch.ForgetDraft(a.current.ID)
	}
	a.current = d
	a.hasDraft = true
	a.mu.Unlock()

	a.suggestions.Reset()
	if edit && a.onEdit != nil {
		a.onEdit(d)
	}
}

// clearDraft ends the editing session for the draft with the given ID.
func (a *App) clearDraft(id string) {
	a.mu.Lock()
	if a.hasDraft && a.current.ID == id {
		a.current = draft.Draft{}
		a.hasDraft = false
	}
	a.mu.Unlock()

	a.orch.ForgetDraft(id)
	a.suggestions.Reset()
}

// snapshot returns the active draft value.
func (a *App) snapshot() draft.Draft {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

func (a *App) userNotify(msg string) {
	if a.notify != nil {
		a.notify(msg)
	}
}

// unavailableAssist satisfies the assist provider interface when no backend is
// configured; every call errors, which the orchestrator converts into its
// deterministic fallback values.
type unavailableAssist struct{}

var errNoAssist = errors.New("app: no assist backend configured")

func (unavailableAssist) Analyze(context.Context, string, []byte) (provider.Analysis, error) {
	return provider.Analysis{}, errNoAssist
}

func (unavailableAssist) Proofread(context.Context, string) (string, error) {
	return "", errNoAssist
}

func (unavailableAssist) ExtractKeywords(context.Context, string) ([]string, error) {
	return nil, errNoAssist
}

func (unavailableAssist) Chat(context.Context, string, []types.ChatMessage, string) (string, error) {
	return "", errNoAssist
}
