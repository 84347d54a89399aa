package resilience

import (
	"context"

	"github.com/voxjot/voxjot/pkg/provider/assist"
	"github.com/voxjot/voxjot/pkg/types"
)

// AssistFallback implements [assist.Provider] with automatic failover across
// multiple assist backends. Each backend has its own circuit breaker; when the
// primary fails or its breaker is open, the next healthy fallback is tried.
//
// AssistFallback surfaces errors only when every backend fails — the
// deterministic degraded values the capture pipeline promises on failure are
// applied one layer up, by the orchestrator.
type AssistFallback struct {
	group *FallbackGroup[assist.Provider]
}

var _ assist.Provider = (*AssistFallback)(nil)

// NewAssistFallback creates an [AssistFallback] with primary as the preferred
// backend.
func NewAssistFallback(primary assist.Provider, primaryName string, cfg FallbackConfig) *AssistFallback {
	return &AssistFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional assist backend.
func (f *AssistFallback) AddFallback(name string, backend assist.Provider) {
	f.group.AddFallback(name, backend)
}

// Analyze implements assist.Provider with failover.
func (f *AssistFallback) Analyze(ctx context.Context, text string, image []byte) (assist.Analysis, error) {
	return ExecuteWithResult(f.group, func(p assist.Provider) (assist.Analysis, error) {
		return p.Analyze(ctx, text, image)
	})
}

// Proofread implements assist.Provider with failover.
func (f *AssistFallback) Proofread(ctx context.Context, text string) (string, error) {
	return ExecuteWithResult(f.group, func(p assist.Provider) (string, error) {
		return p.Proofread(ctx, text)
	})
}

// ExtractKeywords implements assist.Provider with failover.
func (f *AssistFallback) ExtractKeywords(ctx context.Context, text string) ([]string, error) {
	return ExecuteWithResult(f.group, func(p assist.Provider) ([]string, error) {
		return p.ExtractKeywords(ctx, text)
	})
}

// Chat implements assist.Provider with failover.
func (f *AssistFallback) Chat(ctx context.Context, recordContext string, history []types.ChatMessage, message string) (string, error) {
	return ExecuteWithResult(f.group, func(p assist.Provider) (string, error) {
		return p.Chat(ctx, recordContext, history, message)
	})
}
