// Package mock provides test doubles for the speech package interfaces.
//
// Use Recognizer to verify that the caller starts sessions with the expected
// StreamConfig. Use Session to feed scripted ResultEvent values and inspect
// which audio chunks were delivered.
//
// Example:
//
//	sess := mock.NewSession()
//	rec := &mock.Recognizer{Session: sess}
//	handle, _ := rec.StartStream(ctx, cfg)
//	sess.Emit(speech.ResultEvent{...})
//	sess.End()
package mock

import (
	"context"
	"sync"

	"github.com/voxjot/voxjot/pkg/provider/speech"
)

// StartStreamCall records a single invocation of Recognizer.StartStream.
type StartStreamCall struct {
	// Ctx is the context passed to StartStream.
	Ctx context.Context
	// Cfg is the StreamConfig passed to StartStream.
	Cfg speech.StreamConfig
}

// Recognizer is a mock implementation of speech.Recognizer.
type Recognizer struct {
	mu sync.Mutex

	// Session is the SessionHandle returned by StartStream. If nil,
	// StartStream returns a fresh Session.
	Session speech.SessionHandle

	// StartStreamErr, if non-nil, is returned as the error from StartStream.
	// Set to speech.ErrUnavailable to simulate capability absence.
	StartStreamErr error

	// StartStreamCalls records every call to StartStream.
	StartStreamCalls []StartStreamCall
}

// StartStream records the call and returns Session, StartStreamErr.
func (r *Recognizer) StartStream(ctx context.Context, cfg speech.StreamConfig) (speech.SessionHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.StartStreamCalls = append(r.StartStreamCalls, StartStreamCall{Ctx: ctx, Cfg: cfg})
	if r.StartStreamErr != nil {
		return nil, r.StartStreamErr
	}
	if r.Session != nil {
		return r.Session, nil
	}
	return NewSession(), nil
}

// Ensure Recognizer implements speech.Recognizer at compile time.
var _ speech.Recognizer = (*Recognizer)(nil)

// Session is a scriptable implementation of speech.SessionHandle. Tests emit
// events with Emit and terminate the stream with End; Stop and Close also
// terminate the stream, mimicking a well-behaved backend.
type Session struct {
	mu sync.Mutex

	events chan speech.ResultEvent
	ended  bool

	// SendAudioErr, if non-nil, is returned by every SendAudio call.
	SendAudioErr error

	// AudioChunks records copies of every chunk passed to SendAudio.
	AudioChunks [][]byte

	// StopCalls counts invocations of Stop.
	StopCalls int

	// CloseCalls counts invocations of Close.
	CloseCalls int

	// HoldOpenOnStop keeps the Results channel open after Stop, simulating a
	// backend whose last final event arrives asynchronously. Tests then call
	// Emit and End themselves.
	HoldOpenOnStop bool
}

// NewSession returns a Session with a buffered event stream.
func NewSession() *Session {
	return &Session{events: make(chan speech.ResultEvent, 32)}
}

// Emit delivers ev to the session's Results channel. Emit after End panics,
// like a real closed stream would.
func (s *Session) Emit(ev speech.ResultEvent) {
	s.events <- ev
}

// End closes the Results channel, simulating session termination (explicit or
// recognizer-initiated). Safe to call more than once.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.ended = true
		close(s.events)
	}
}

// SendAudio implements speech.SessionHandle.
func (s *Session) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SendAudioErr != nil {
		return s.SendAudioErr
	}
	cp := make([]byte, len(chunk))
	copy(cp, chunk)
	s.AudioChunks = append(s.AudioChunks, cp)
	return nil
}

// Results implements speech.SessionHandle.
func (s *Session) Results() <-chan speech.ResultEvent { return s.events }

// Stop implements speech.SessionHandle. Unless HoldOpenOnStop is set, it ends
// the stream.
func (s *Session) Stop() error {
	s.mu.Lock()
	s.StopCalls++
	hold := s.HoldOpenOnStop
	s.mu.Unlock()
	if !hold {
		s.End()
	}
	return nil
}

// Close implements speech.SessionHandle.
func (s *Session) Close() error {
	s.mu.Lock()
	s.CloseCalls++
	s.mu.Unlock()
	s.End()
	return nil
}

// Ensure Session implements speech.SessionHandle at compile time.
var _ speech.SessionHandle = (*Session)(nil)
