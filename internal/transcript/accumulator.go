// Package transcript tracks confirmed and provisional speech-recognition text
// across one dictation session.
//
// Recognizers deliver a stream of result events. Entries flagged final are
// stable and never revised; interim entries are hypotheses that each new event
// replaces wholesale. The accumulator keeps the two apart so that revised
// hypotheses never duplicate or erase already-confirmed text.
package transcript

import (
	"strings"
	"sync"

	"github.com/voxjot/voxjot/pkg/provider/speech"
)

// Accumulator merges streaming recognition events into an effective
// transcript: everything confirmed so far plus the newest unconfirmed
// hypothesis.
//
// All methods are safe for concurrent use.
type Accumulator struct {
	mu          sync.Mutex
	confirmed   strings.Builder
	provisional string
	onUpdate    func(effective string)
}

// NewAccumulator creates an empty accumulator. onUpdate, if non-nil, is
// invoked with the current effective transcript after every processed event.
// It is called with the accumulator's lock held, so it must not call back
// into the accumulator.
func NewAccumulator(onUpdate func(effective string)) *Accumulator {
	return &Accumulator{onUpdate: onUpdate}
}

// Process applies one recognition event.
//
// Final entries are appended to the confirmed text in delivery order. All
// interim entries in the event are concatenated and replace the previous
// provisional text, since recognizers re-send revised hypotheses for the same
// spoken audio rather than deltas.
func (a *Accumulator) Process(ev speech.ResultEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var interim strings.Builder
	for _, group := range ev.Results {
		best := group.Best()
		if best == "" {
			continue
		}
		if group.Final {
			a.confirmed.WriteString(best)
		} else {
			interim.WriteString(best)
		}
	}
	a.provisional = interim.String()

	if a.onUpdate != nil {
		a.onUpdate(a.confirmed.String() + a.provisional)
	}
}

// Effective returns the confirmed text plus the latest provisional text.
// A session stopped before any final entry arrived still yields its interim
// text here; callers reading only confirmed text would lose that input.
func (a *Accumulator) Effective() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.confirmed.String() + a.provisional
}

// Confirmed returns only the finalized text.
func (a *Accumulator) Confirmed() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.confirmed.String()
}

// Reset discards all accumulated text, returning the accumulator to its
// initial state for reuse by a new session.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.confirmed.Reset()
	a.provisional = ""
}

// Drain returns the effective transcript and resets the accumulator in one
// step. Used at session end to hand off the final text exactly once.
func (a *Accumulator) Drain() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.confirmed.String() + a.provisional
	a.confirmed.Reset()
	a.provisional = ""
	return out
}
