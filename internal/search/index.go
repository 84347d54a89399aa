// Package search maintains a semantic index over journal records so the
// assistant and the MCP surface can retrieve entries by meaning rather than
// exact substring.
//
// Indexing is best-effort: a failed index write never blocks a record commit.
// The journal blob remains the source of truth; the index can always be
// rebuilt from it.
package search

import (
	"context"
	"strings"

	"github.com/voxjot/voxjot/pkg/types"
)

// Match is one semantic search hit.
type Match struct {
	// RecordID identifies the matched record in the journal.
	RecordID string

	// Topic is the record's topic at index time, for display without a
	// journal lookup.
	Topic string

	// Distance is the cosine distance between the query and the record
	// embedding. Smaller is more similar.
	Distance float64
}

// Index stores record embeddings and answers nearest-neighbour queries.
type Index interface {
	// IndexRecord embeds and upserts one record. A record indexed twice is
	// completely replaced.
	IndexRecord(ctx context.Context, record types.Record) error

	// Remove drops a record from the index. Removing an unknown ID is a
	// no-op.
	Remove(ctx context.Context, id string) error

	// Query returns the topK records closest to the query text, most
	// similar first.
	Query(ctx context.Context, query string, topK int) ([]Match, error)
}

// embeddingText flattens the searchable fields of a record into the string
// that gets embedded. Keywords are included so a query like "sci-fi" lands
// near records tagged with it even when the body never uses the word.
func embeddingText(r types.Record) string {
	parts := []string{r.Topic, r.Content}
	if r.Media != nil {
		parts = append(parts, r.Media.Title, r.Media.Creator)
	}
	parts = append(parts, r.Keywords...)

	var b strings.Builder
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(p)
	}
	return b.String()
}
