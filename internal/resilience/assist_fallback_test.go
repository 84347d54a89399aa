package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/voxjot/voxjot/pkg/provider/assist"
	"github.com/voxjot/voxjot/pkg/provider/assist/mock"
	"github.com/voxjot/voxjot/pkg/types"
)

func TestAssistFallback_FailsOverPerOperation(t *testing.T) {
	t.Parallel()

	primary := &mock.Provider{
		ProofreadErr: errBackend,
		AnalyzeErr:   errBackend,
	}
	secondary := &mock.Provider{
		ProofreadResult: "clean text",
		AnalyzeResult:   assist.Analysis{Kind: types.KindNote, Topic: "t", Content: "c"},
	}

	f := NewAssistFallback(primary, "openai", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 5},
	})
	f.AddFallback("anyllm", secondary)

	got, err := f.Proofread(context.Background(), "raw text")
	if err != nil {
		t.Fatalf("Proofread: %v", err)
	}
	if got != "clean text" {
		t.Errorf("Proofread = %q", got)
	}
	if len(primary.ProofreadCalls) != 1 || len(secondary.ProofreadCalls) != 1 {
		t.Errorf("calls = %d/%d, want both backends tried once",
			len(primary.ProofreadCalls), len(secondary.ProofreadCalls))
	}

	a, err := f.Analyze(context.Background(), "raw text", nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.Topic != "t" {
		t.Errorf("Analyze topic = %q", a.Topic)
	}
}

func TestAssistFallback_AllBackendsFailing(t *testing.T) {
	t.Parallel()

	primary := &mock.Provider{KeywordsErr: errBackend}
	f := NewAssistFallback(primary, "openai", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 5},
	})

	if _, err := f.ExtractKeywords(context.Background(), "text"); err == nil {
		t.Fatal("ExtractKeywords returned nil with every backend failing")
	}
}

func TestAssistFallback_OpenBreakerSkipsPrimary(t *testing.T) {
	t.Parallel()

	primary := &mock.Provider{ChatErr: errBackend}
	secondary := &mock.Provider{ChatResult: "hello"}

	f := NewAssistFallback(primary, "openai", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour},
	})
	f.AddFallback("anyllm", secondary)

	for i := 0; i < 3; i++ {
		if _, err := f.Chat(context.Background(), "ctx", nil, "hi"); err != nil {
			t.Fatalf("Chat #%d: %v", i, err)
		}
	}

	// Two failures open the primary's breaker; the third round must not reach it.
	if len(primary.ChatCalls) != 2 {
		t.Errorf("primary called %d times, want 2", len(primary.ChatCalls))
	}
	if len(secondary.ChatCalls) != 3 {
		t.Errorf("secondary called %d times, want 3", len(secondary.ChatCalls))
	}
}
