package search

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/voxjot/voxjot/pkg/provider/embeddings"
	"github.com/voxjot/voxjot/pkg/types"
)

// MemoryIndex is an in-process [Index] that scans all stored embeddings on
// every query. It backs the memory storage mode, where journals are small
// enough that brute-force cosine distance beats carrying a database.
type MemoryIndex struct {
	embedder embeddings.Provider

	mu      sync.RWMutex
	entries map[string]memEntry
}

type memEntry struct {
	topic     string
	embedding []float32
}

// Compile-time interface check.
var _ Index = (*MemoryIndex)(nil)

// NewMemoryIndex returns an empty [MemoryIndex] using the given embedder.
func NewMemoryIndex(embedder embeddings.Provider) *MemoryIndex {
	return &MemoryIndex{
		embedder: embedder,
		entries:  make(map[string]memEntry),
	}
}

// IndexRecord implements [Index].
func (s *MemoryIndex) IndexRecord(ctx context.Context, record types.Record) error {
	text := embeddingText(record)
	if text == "" {
		return s.Remove(ctx, record.ID)
	}

	embedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("search: embed record %q: %w", record.ID, err)
	}

	s.mu.Lock()
	s.entries[record.ID] = memEntry{topic: record.Topic, embedding: embedding}
	s.mu.Unlock()
	return nil
}

// Remove implements [Index].
func (s *MemoryIndex) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

// Query implements [Index].
func (s *MemoryIndex) Query(ctx context.Context, query string, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 5
	}
	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search: embed query: %w", err)
	}

	s.mu.RLock()
	matches := make([]Match, 0, len(s.entries))
	for id, e := range s.entries {
		matches = append(matches, Match{
			RecordID: id,
			Topic:    e.topic,
			Distance: cosineDistance(embedding, e.embedding),
		})
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].RecordID < matches[j].RecordID
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// cosineDistance returns 1 - cosine similarity, matching pgvector's <=>
// operator. Mismatched or zero-magnitude vectors yield the maximum distance.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
