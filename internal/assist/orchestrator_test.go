package assist

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/voxjot/voxjot/internal/observe"
	provider "github.com/voxjot/voxjot/pkg/provider/assist"
	"github.com/voxjot/voxjot/pkg/provider/assist/mock"
	"github.com/voxjot/voxjot/pkg/types"
)

var errDown = errors.New("backend down")

func newOrchestrator(t *testing.T, backend provider.Provider) *Orchestrator {
	t.Helper()
	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return NewOrchestrator(backend, WithMetrics(m))
}

func TestAnalyze_DegradedResultOnFailure(t *testing.T) {
	t.Parallel()

	o := newOrchestrator(t, &mock.Provider{AnalyzeErr: errDown})

	got := o.Analyze(context.Background(), "去超市买了苹果和牛奶", nil)

	if got.IsMedia || got.Kind != types.KindNote {
		t.Errorf("degraded result = %+v, want plain note", got)
	}
	if got.Content != "去超市买了苹果和牛奶" {
		t.Errorf("Content = %q, want original text preserved", got.Content)
	}
	if got.Topic != FailedAnalysisTopic {
		t.Errorf("Topic = %q", got.Topic)
	}
	if !slices.Equal(got.Keywords, []string{FailedAnalysisKeyword}) {
		t.Errorf("Keywords = %v", got.Keywords)
	}
	if got.Category != "other" {
		t.Errorf("Category = %q", got.Category)
	}
}

func TestAnalyze_DegradedResultForImageOnlyCapture(t *testing.T) {
	t.Parallel()

	o := newOrchestrator(t, &mock.Provider{AnalyzeErr: errDown})

	got := o.Analyze(context.Background(), "", []byte{0xFF, 0xD8})
	if got.Content != FailedAnalysisContent {
		t.Errorf("Content = %q, want placeholder for empty capture", got.Content)
	}
}

func TestProofread_PassthroughOnFailure(t *testing.T) {
	t.Parallel()

	o := newOrchestrator(t, &mock.Provider{ProofreadErr: errDown})

	if got := o.Proofread(context.Background(), "raw dictated text"); got != "raw dictated text" {
		t.Errorf("Proofread = %q, failure must never destroy input", got)
	}
}

func TestSuggestKeywords_EmptyOnFailure(t *testing.T) {
	t.Parallel()

	o := newOrchestrator(t, &mock.Provider{KeywordsErr: errDown})

	if got := o.SuggestKeywords(context.Background(), "text"); len(got) != 0 {
		t.Errorf("SuggestKeywords = %v, want empty", got)
	}
}

func TestChat_SentinelOnFailure(t *testing.T) {
	t.Parallel()

	o := newOrchestrator(t, &mock.Provider{ChatErr: errDown})

	got := o.Chat(context.Background(), "record ctx", nil, "what happened?")
	if got != ChatErrorReply {
		t.Errorf("Chat = %q, want %q", got, ChatErrorReply)
	}
}

func TestAnalyzeWithKeywords_RunsBothAndDegradesIndependently(t *testing.T) {
	t.Parallel()

	backend := &mock.Provider{
		AnalyzeResult: provider.Analysis{Kind: types.KindNote, Topic: "t", Content: "c"},
		KeywordsErr:   errDown,
	}
	o := newOrchestrator(t, backend)

	analysis, keywords := o.AnalyzeWithKeywords(context.Background(), "text", nil)

	if analysis.Topic != "t" {
		t.Errorf("analysis = %+v", analysis)
	}
	if len(keywords) != 0 {
		t.Errorf("keywords = %v, want empty on extraction failure", keywords)
	}
	if len(backend.AnalyzeCalls) != 1 || len(backend.KeywordsCalls) != 1 {
		t.Errorf("calls = %d/%d, want one each", len(backend.AnalyzeCalls), len(backend.KeywordsCalls))
	}
}

func TestLoadingFlags(t *testing.T) {
	t.Parallel()

	inCall := make(chan struct{})
	release := make(chan struct{})
	backend := &mock.Provider{
		ProofreadFn: func(context.Context, string) (string, error) {
			close(inCall)
			<-release
			return "done", nil
		},
	}
	o := newOrchestrator(t, backend)

	if o.Proofreading() {
		t.Fatal("Proofreading true before any call")
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		o.Proofread(context.Background(), "x")
	}()

	<-inCall
	if !o.Proofreading() {
		t.Error("Proofreading false while call in flight")
	}
	close(release)
	wg.Wait()
	if o.Proofreading() {
		t.Error("Proofreading true after call returned")
	}
}

func TestAnalysisTokens(t *testing.T) {
	t.Parallel()

	o := newOrchestrator(t, &mock.Provider{})

	t1 := o.BeginAnalysis("draft-1")
	if !o.IsCurrent("draft-1", t1) {
		t.Fatal("freshly issued token is not current")
	}

	t2 := o.BeginAnalysis("draft-1")
	if o.IsCurrent("draft-1", t1) {
		t.Error("superseded token still current")
	}
	if !o.IsCurrent("draft-1", t2) {
		t.Error("newest token not current")
	}

	// Tokens are per draft.
	other := o.BeginAnalysis("draft-2")
	if !o.IsCurrent("draft-1", t2) || !o.IsCurrent("draft-2", other) {
		t.Error("token bookkeeping leaked across drafts")
	}

	o.ForgetDraft("draft-1")
	if o.IsCurrent("draft-1", t2) {
		t.Error("token survived ForgetDraft")
	}
}
