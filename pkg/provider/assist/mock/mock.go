// Package mock provides a test double for the assist.Provider interface.
//
// Each operation returns the corresponding Result/Err pair and records its
// calls, so tests can script success, failure, and slow responses per
// operation independently.
package mock

import (
	"context"
	"sync"

	"github.com/voxjot/voxjot/pkg/provider/assist"
	"github.com/voxjot/voxjot/pkg/types"
)

// Provider is a scriptable implementation of assist.Provider.
type Provider struct {
	mu sync.Mutex

	AnalyzeResult assist.Analysis
	AnalyzeErr    error
	// AnalyzeFn, when non-nil, overrides AnalyzeResult/AnalyzeErr entirely.
	AnalyzeFn func(ctx context.Context, text string, image []byte) (assist.Analysis, error)

	ProofreadResult string
	ProofreadErr    error
	// ProofreadFn, when non-nil, overrides ProofreadResult/ProofreadErr.
	ProofreadFn func(ctx context.Context, text string) (string, error)

	KeywordsResult []string
	KeywordsErr    error

	ChatResult string
	ChatErr    error

	AnalyzeCalls   []string
	ProofreadCalls []string
	KeywordsCalls  []string
	ChatCalls      []string
}

// Compile-time interface check.
var _ assist.Provider = (*Provider)(nil)

// Analyze implements assist.Provider.
func (p *Provider) Analyze(ctx context.Context, text string, image []byte) (assist.Analysis, error) {
	p.mu.Lock()
	p.AnalyzeCalls = append(p.AnalyzeCalls, text)
	fn := p.AnalyzeFn
	res, err := p.AnalyzeResult, p.AnalyzeErr
	p.mu.Unlock()
	if fn != nil {
		return fn(ctx, text, image)
	}
	return res, err
}

// Proofread implements assist.Provider.
func (p *Provider) Proofread(ctx context.Context, text string) (string, error) {
	p.mu.Lock()
	p.ProofreadCalls = append(p.ProofreadCalls, text)
	fn := p.ProofreadFn
	res, err := p.ProofreadResult, p.ProofreadErr
	p.mu.Unlock()
	if fn != nil {
		return fn(ctx, text)
	}
	return res, err
}

// ExtractKeywords implements assist.Provider.
func (p *Provider) ExtractKeywords(ctx context.Context, text string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.KeywordsCalls = append(p.KeywordsCalls, text)
	return p.KeywordsResult, p.KeywordsErr
}

// Chat implements assist.Provider.
func (p *Provider) Chat(ctx context.Context, recordContext string, history []types.ChatMessage, message string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ChatCalls = append(p.ChatCalls, message)
	return p.ChatResult, p.ChatErr
}
