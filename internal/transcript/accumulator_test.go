package transcript

import (
	"testing"

	"github.com/voxjot/voxjot/pkg/provider/speech"
)

func interimEvent(index int, texts ...string) speech.ResultEvent {
	ev := speech.ResultEvent{ResultIndex: index}
	for _, t := range texts {
		ev.Results = append(ev.Results, speech.ResultGroup{
			Alternatives: []speech.Alternative{{Transcript: t}},
		})
	}
	return ev
}

func finalEvent(index int, text string) speech.ResultEvent {
	return speech.ResultEvent{
		ResultIndex: index,
		Results: []speech.ResultGroup{
			{Final: true, Alternatives: []speech.Alternative{{Transcript: text}}},
		},
	}
}

func TestAccumulator_InterimReplacedNotAppended(t *testing.T) {
	t.Parallel()

	a := NewAccumulator(nil)
	a.Process(interimEvent(0, "went to"))
	a.Process(interimEvent(0, "went to the store"))

	if got := a.Effective(); got != "went to the store" {
		t.Errorf("Effective() = %q, want revised hypothesis only", got)
	}
}

func TestAccumulator_FinalAppendsAndClearsProvisional(t *testing.T) {
	t.Parallel()

	a := NewAccumulator(nil)
	a.Process(interimEvent(0, "went to the store"))
	a.Process(finalEvent(0, "went to the store. "))
	a.Process(interimEvent(1, "bought apples"))

	if got := a.Effective(); got != "went to the store. bought apples" {
		t.Errorf("Effective() = %q", got)
	}
	if got := a.Confirmed(); got != "went to the store. " {
		t.Errorf("Confirmed() = %q", got)
	}
}

func TestAccumulator_MixedFinalAndInterimInOneEvent(t *testing.T) {
	t.Parallel()

	a := NewAccumulator(nil)
	a.Process(speech.ResultEvent{
		ResultIndex: 0,
		Results: []speech.ResultGroup{
			{Final: true, Alternatives: []speech.Alternative{{Transcript: "first part. "}}},
			{Alternatives: []speech.Alternative{{Transcript: "second hyp"}}},
		},
	})

	if got := a.Effective(); got != "first part. second hyp" {
		t.Errorf("Effective() = %q", got)
	}

	// A later event with a revised hypothesis must not duplicate the final.
	a.Process(interimEvent(1, "second hypothesis"))
	if got := a.Effective(); got != "first part. second hypothesis" {
		t.Errorf("Effective() after revision = %q", got)
	}
}

func TestAccumulator_StopBeforeAnyFinalKeepsInterim(t *testing.T) {
	t.Parallel()

	a := NewAccumulator(nil)
	a.Process(interimEvent(0, "去超市买了苹果和牛奶"))

	// The user released the button before the recognizer finalized anything.
	if got := a.Drain(); got != "去超市买了苹果和牛奶" {
		t.Errorf("Drain() = %q, interim text must survive an early stop", got)
	}
	if got := a.Effective(); got != "" {
		t.Errorf("Effective() after Drain = %q, want empty", got)
	}
}

func TestAccumulator_BestAlternativeWins(t *testing.T) {
	t.Parallel()

	a := NewAccumulator(nil)
	a.Process(speech.ResultEvent{
		Results: []speech.ResultGroup{
			{
				Final: true,
				Alternatives: []speech.Alternative{
					{Transcript: "recognize speech", Confidence: 0.9},
					{Transcript: "wreck a nice beach", Confidence: 0.4},
				},
			},
		},
	})

	if got := a.Confirmed(); got != "recognize speech" {
		t.Errorf("Confirmed() = %q", got)
	}
}

func TestAccumulator_UpdateCallbackSeesEffective(t *testing.T) {
	t.Parallel()

	var seen []string
	a := NewAccumulator(func(effective string) {
		seen = append(seen, effective)
	})

	a.Process(interimEvent(0, "hel"))
	a.Process(interimEvent(0, "hello"))
	a.Process(finalEvent(0, "hello world"))

	want := []string{"hel", "hello", "hello world"}
	if len(seen) != len(want) {
		t.Fatalf("callback fired %d times, want %d", len(seen), len(want))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("callback[%d] = %q, want %q", i, seen[i], want[i])
		}
	}
}

func TestAccumulator_Reset(t *testing.T) {
	t.Parallel()

	a := NewAccumulator(nil)
	a.Process(finalEvent(0, "stale session text"))
	a.Reset()

	if got := a.Effective(); got != "" {
		t.Errorf("Effective() after Reset = %q, want empty", got)
	}
}
