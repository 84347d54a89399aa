// Package deepgram provides a Deepgram-backed speech recognizer using the
// Deepgram streaming WebSocket API. It implements the speech.Recognizer
// interface.
//
// Deepgram emits one utterance hypothesis per Results message, revised until
// the message is flagged final. The session maps this onto the speech event
// contract by keeping a running count of finalized result groups: each
// outgoing event carries ResultIndex = number of groups finalized so far, and
// a single group holding the current (interim or final) hypothesis.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/coder/websocket"

	"github.com/voxjot/voxjot/pkg/provider/speech"
)

const (
	deepgramEndpoint  = "wss://api.deepgram.com/v1/listen"
	defaultModel      = "nova-3"
	defaultLanguage   = "en"
	defaultSampleRate = 16000
)

// Option is a functional option for configuring the Deepgram Recognizer.
type Option func(*Recognizer)

// WithModel sets the Deepgram model to use (e.g., "nova-3", "base").
func WithModel(model string) Option {
	return func(r *Recognizer) {
		r.model = model
	}
}

// WithLanguage sets the BCP-47 language code for recognition (e.g., "en", "zh-CN").
func WithLanguage(language string) Option {
	return func(r *Recognizer) {
		r.language = language
	}
}

// WithSampleRate sets the recognizer-level default audio sample rate in Hz.
func WithSampleRate(rate int) Option {
	return func(r *Recognizer) {
		r.sampleRate = rate
	}
}

// Recognizer implements speech.Recognizer backed by the Deepgram streaming API.
type Recognizer struct {
	apiKey     string
	model      string
	language   string
	sampleRate int
}

// Compile-time interface check.
var _ speech.Recognizer = (*Recognizer)(nil)

// New creates a new Deepgram Recognizer. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Recognizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepgram: %w: apiKey must not be empty", speech.ErrUnavailable)
	}
	r := &Recognizer{
		apiKey:     apiKey,
		model:      defaultModel,
		language:   defaultLanguage,
		sampleRate: defaultSampleRate,
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// StartStream opens a streaming recognition session with Deepgram.
// It respects cfg.SampleRate, cfg.Language, cfg.InterimResults, and cfg.Keywords.
func (r *Recognizer) StartStream(ctx context.Context, cfg speech.StreamConfig) (speech.SessionHandle, error) {
	wsURL, err := r.buildURL(cfg)
	if err != nil {
		return nil, fmt.Errorf("deepgram: build URL: %w", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+r.apiKey)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return nil, fmt.Errorf("deepgram: dial: %w", err)
	}

	sess := &session{
		conn:   conn,
		events: make(chan speech.ResultEvent, 64),
		audio:  make(chan []byte, 256),
		done:   make(chan struct{}),
	}

	sess.wg.Add(2)
	go sess.readLoop(ctx)
	go sess.writeLoop(ctx)

	return sess, nil
}

// buildURL constructs the Deepgram streaming endpoint URL for the given config.
func (r *Recognizer) buildURL(cfg speech.StreamConfig) (string, error) {
	u, err := url.Parse(deepgramEndpoint)
	if err != nil {
		return "", err
	}

	lang := cfg.Language
	if lang == "" {
		lang = r.language
	}
	sr := cfg.SampleRate
	if sr == 0 {
		sr = r.sampleRate
	}

	q := u.Query()
	q.Set("model", r.model)
	q.Set("language", lang)
	q.Set("punctuate", "true")
	q.Set("interim_results", strconv.FormatBool(cfg.InterimResults))
	q.Set("sample_rate", strconv.Itoa(sr))
	if cfg.Channels > 0 {
		q.Set("channels", strconv.Itoa(cfg.Channels))
	}

	for _, kw := range cfg.Keywords {
		q.Add("keywords", kw)
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ---- session ----

// deepgramResponse is the JSON structure returned by Deepgram for a Results event.
type deepgramResponse struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// session is a live Deepgram streaming session. It implements speech.SessionHandle.
type session struct {
	conn   *websocket.Conn
	events chan speech.ResultEvent
	audio  chan []byte

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup

	// finalized counts the result groups committed so far; it is only
	// touched from readLoop.
	finalized int
}

// SendAudio queues a PCM audio chunk for delivery to Deepgram.
func (s *session) SendAudio(chunk []byte) error {
	select {
	case <-s.done:
		return errors.New("deepgram: session is closed")
	default:
	}
	select {
	case s.audio <- chunk:
		return nil
	case <-s.done:
		return errors.New("deepgram: session is closed")
	}
}

// Results returns the channel of recognition events.
func (s *session) Results() <-chan speech.ResultEvent { return s.events }

// Stop asks Deepgram to flush pending audio and finalize in-flight results.
// The Results channel closes once the server ends the stream.
func (s *session) Stop() error {
	// CloseStream flushes server-side buffers and delivers remaining finals
	// before the connection is torn down.
	return s.conn.Write(context.Background(), websocket.MessageText, []byte(`{"type":"CloseStream"}`))
}

// Close terminates the session immediately.
func (s *session) Close() error {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.Write(context.Background(), websocket.MessageText, []byte(`{"type":"CloseStream"}`))
		s.wg.Wait()
		s.conn.Close(websocket.StatusNormalClosure, "session closed")
	})
	return nil
}

// writeLoop reads from the audio channel and sends binary messages to Deepgram.
func (s *session) writeLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case chunk, ok := <-s.audio:
			if !ok {
				return
			}
			if err := s.conn.Write(ctx, websocket.MessageBinary, chunk); err != nil {
				return
			}
		case <-s.done:
			// Drain the audio channel before exiting.
			for {
				select {
				case chunk, ok := <-s.audio:
					if !ok {
						return
					}
					_ = s.conn.Write(ctx, websocket.MessageBinary, chunk)
				default:
					return
				}
			}
		}
	}
}

// readLoop receives JSON messages from Deepgram and dispatches ResultEvents.
func (s *session) readLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.events)

	for {
		_, msg, err := s.conn.Read(ctx)
		if err != nil {
			// Normal close or context cancellation — the closed events
			// channel is the end-of-session signal for consumers.
			return
		}

		group, ok := parseResponse(msg)
		if !ok {
			continue
		}

		ev := speech.ResultEvent{
			ResultIndex: s.finalized,
			Results:     []speech.ResultGroup{group},
		}
		if group.Final {
			s.finalized++
		}

		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

// parseResponse parses a raw Deepgram WebSocket message into a ResultGroup.
// Returns (group, true) on success, or (zero, false) if the message should be
// ignored. Malformed messages are logged and skipped; recognition errors are
// non-fatal by contract.
func parseResponse(data []byte) (speech.ResultGroup, bool) {
	var resp deepgramResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		slog.Debug("deepgram: skipping unparseable message", "err", err)
		return speech.ResultGroup{}, false
	}
	if resp.Type != "Results" {
		return speech.ResultGroup{}, false
	}
	if len(resp.Channel.Alternatives) == 0 {
		return speech.ResultGroup{}, false
	}

	group := speech.ResultGroup{Final: resp.IsFinal}
	for _, alt := range resp.Channel.Alternatives {
		group.Alternatives = append(group.Alternatives, speech.Alternative{
			Transcript: alt.Transcript,
			Confidence: alt.Confidence,
		})
	}
	return group, true
}
