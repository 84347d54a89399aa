// Package mock provides a test double for the embeddings.Provider interface.
//
// Use Provider to return pre-canned embedding vectors without a live model
// and to verify that the correct texts are submitted for embedding.
package mock

import (
	"context"
	"sync"

	"github.com/voxjot/voxjot/pkg/provider/embeddings"
)

// Provider is a mock implementation of embeddings.Provider.
type Provider struct {
	mu sync.Mutex

	// EmbedResult is returned by Embed. If nil, a zero-length slice is returned.
	EmbedResult []float32

	// EmbedErr, if non-nil, is returned as the error from Embed.
	EmbedErr error

	// EmbedBatchResult is returned by EmbedBatch. If nil, a slice of nil slices
	// matching the input length is returned.
	EmbedBatchResult [][]float32

	// EmbedBatchErr, if non-nil, is returned as the error from EmbedBatch.
	EmbedBatchErr error

	// DimensionsValue is returned by Dimensions.
	DimensionsValue int

	// ModelIDValue is returned by ModelID.
	ModelIDValue string

	// EmbedTexts records every text passed to Embed, in order.
	EmbedTexts []string

	// EmbedBatchCalls records a copy of every slice passed to EmbedBatch.
	EmbedBatchCalls [][]string
}

var _ embeddings.Provider = (*Provider)(nil)

// Embed records the call and returns EmbedResult, EmbedErr.
func (p *Provider) Embed(_ context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.EmbedTexts = append(p.EmbedTexts, text)
	return p.EmbedResult, p.EmbedErr
}

// EmbedBatch records the call and returns EmbedBatchResult, EmbedBatchErr.
func (p *Provider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]string, len(texts))
	copy(cp, texts)
	p.EmbedBatchCalls = append(p.EmbedBatchCalls, cp)
	if p.EmbedBatchErr != nil {
		return nil, p.EmbedBatchErr
	}
	if p.EmbedBatchResult != nil {
		return p.EmbedBatchResult, nil
	}
	return make([][]float32, len(texts)), nil
}

// Dimensions returns DimensionsValue.
func (p *Provider) Dimensions() int {
	return p.DimensionsValue
}

// ModelID returns ModelIDValue.
func (p *Provider) ModelID() string {
	return p.ModelIDValue
}
