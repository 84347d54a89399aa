package journal

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/voxjot/voxjot/internal/observe"
	"github.com/voxjot/voxjot/pkg/types"
)

// Sync merges finalized records into the persisted ordered record list and
// writes the whole list through to a [Store] on every mutation.
//
// The list in memory is authoritative between writes: a failed write leaves
// the in-memory mutation in place (it is retried implicitly by the next
// successful write) and only the error is surfaced to the caller.
type Sync struct {
	store   Store
	metrics *observe.Metrics
	logger  *slog.Logger

	mu      sync.RWMutex
	records []types.Record
}

// SyncOption configures a [Sync].
type SyncOption func(*Sync)

// WithSyncMetrics overrides the default metrics instance.
func WithSyncMetrics(m *observe.Metrics) SyncOption {
	return func(s *Sync) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithSyncLogger sets the logger for store failures.
func WithSyncLogger(logger *slog.Logger) SyncOption {
	return func(s *Sync) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSync creates a [Sync] over the given store. Call [Sync.Load] before the
// first mutation to hydrate the in-memory list.
func NewSync(store Store, opts ...SyncOption) *Sync {
	s := &Sync{
		store:   store,
		metrics: observe.DefaultMetrics(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load hydrates the in-memory list from the store. Calling it again replaces
// the in-memory list with the persisted state, discarding unwritten changes.
func (s *Sync) Load(ctx context.Context) error {
	records, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("journal: sync load: %w", err)
	}

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()
	return nil
}

// Commit merges one record into the list: a record whose ID matches an
// existing entry replaces that entry at its original position, a novel ID
// appends at the end. The whole list is then written through to the store.
func (s *Sync) Commit(ctx context.Context, record types.Record) error {
	if record.ID == "" {
		return fmt.Errorf("journal: commit: record has no id")
	}

	ctx, span := observe.StartSpan(ctx, "journal.commit")
	defer span.End()

	s.mu.Lock()
	op := "insert"
	idx := slices.IndexFunc(s.records, func(r types.Record) bool {
		return r.ID == record.ID
	})
	if idx >= 0 {
		op = "update"
		s.records[idx] = record
	} else {
		s.records = append(s.records, record)
	}
	snapshot := slices.Clone(s.records)
	s.mu.Unlock()

	s.metrics.RecordCommit(ctx, op)
	return s.write(ctx, snapshot)
}

// Delete removes the record with the given ID. Deleting an unknown ID is a
// no-op and does not touch the store. The caller is responsible for any user
// confirmation before calling.
func (s *Sync) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := slices.IndexFunc(s.records, func(r types.Record) bool {
		return r.ID == id
	})
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	s.records = slices.Delete(s.records, idx, idx+1)
	snapshot := slices.Clone(s.records)
	s.mu.Unlock()

	s.metrics.RecordCommit(ctx, "delete")
	return s.write(ctx, snapshot)
}

// Get returns the record with the given ID and whether it exists.
func (s *Sync) Get(id string) (types.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.ID == id {
			return r, true
		}
	}
	return types.Record{}, false
}

// List returns a snapshot of the ordered record list.
func (s *Sync) List() []types.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records)
}

// Search returns records whose content, topic, or keywords contain the query
// as a case-insensitive substring, in list order. A blank query matches all.
func (s *Sync) Search(query string) []types.Record {
	query = strings.ToLower(strings.TrimSpace(query))

	s.mu.RLock()
	defer s.mu.RUnlock()

	if query == "" {
		return slices.Clone(s.records)
	}

	var matched []types.Record
	for _, r := range s.records {
		if recordMatches(r, query) {
			matched = append(matched, r)
		}
	}
	return matched
}

func (s *Sync) write(ctx context.Context, records []types.Record) error {
	err := s.store.Save(ctx, records)
	s.metrics.RecordStoreWrite(ctx, err)
	if err != nil {
		s.logger.Error("journal write failed", "records", len(records), "error", err)
		return fmt.Errorf("journal: write: %w", err)
	}
	return nil
}

func recordMatches(r types.Record, lowerQuery string) bool {
	if strings.Contains(strings.ToLower(r.Content), lowerQuery) {
		return true
	}
	if strings.Contains(strings.ToLower(r.Topic), lowerQuery) {
		return true
	}
	for _, kw := range r.Keywords {
		if strings.Contains(strings.ToLower(kw), lowerQuery) {
			return true
		}
	}
	return false
}
