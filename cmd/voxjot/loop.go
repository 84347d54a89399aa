package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/voxjot/voxjot/internal/app"
	"github.com/voxjot/voxjot/internal/dictation"
	"github.com/voxjot/voxjot/internal/draft"
	"github.com/voxjot/voxjot/pkg/types"
)

// captureLoop is the line-oriented terminal frontend: plain text becomes the
// active draft's content, slash commands drive the capture flow.
type captureLoop struct {
	app  *app.App
	out  io.Writer
	in   io.Reader
	chat chatInput
}

// chatInput is the pending chat message. Inline dictation writes into it from
// the recognition goroutine, so access is locked.
type chatInput struct {
	mu   sync.Mutex
	text string
}

func (c *chatInput) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

func (c *chatInput) SetText(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = s
}

var _ dictation.TextTarget = (*chatInput)(nil)

func newCaptureLoop(a *app.App, in io.Reader, out io.Writer) *captureLoop {
	return &captureLoop{app: a, in: in, out: out}
}

// Run reads lines until EOF, /quit, or context cancellation.
func (l *captureLoop) Run(ctx context.Context) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(l.in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return <-scanErr
			}
			quit, err := l.handle(ctx, strings.TrimSpace(line))
			if err != nil {
				fmt.Fprintf(l.out, "error: %v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

func (l *captureLoop) handle(ctx context.Context, line string) (quit bool, err error) {
	switch {
	case line == "":
		return false, nil
	case strings.HasPrefix(line, "/"):
		return l.command(ctx, line)
	default:
		return false, l.capture(line)
	}
}

// capture routes plain text into the active draft, creating one if needed.
func (l *captureLoop) capture(text string) error {
	d, ok := l.app.Draft()
	if !ok {
		d = l.app.NewNote()
	}
	if d.Content == "" {
		d.Content = text
	} else {
		d.Content += "\n" + text
	}
	if err := l.app.UpdateDraft(d); err != nil {
		return err
	}
	fmt.Fprintln(l.out, "· captured")
	return nil
}

func (l *captureLoop) command(ctx context.Context, line string) (quit bool, err error) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/q", "/exit":
		return true, nil

	case "/help":
		l.printHelp()

	case "/dictate":
		if err := l.app.StartDictation(ctx); err != nil {
			return false, err
		}
		fmt.Fprintln(l.out, "· listening — /stop to finish")

	case "/dictate-chat":
		if err := l.app.StartInlineDictation(ctx, &l.chat); err != nil {
			return false, err
		}
		fmt.Fprintln(l.out, "· listening — speech lands in the chat input, /stop then /chat to send")

	case "/stop":
		if l.app.DictationState() == dictation.StateInlineListening {
			if err := l.app.StopInlineDictation(ctx); err != nil {
				return false, err
			}
			if text := l.chat.Text(); strings.TrimSpace(text) != "" {
				fmt.Fprintf(l.out, "chat input: %s\n", text)
			}
			return false, nil
		}
		return false, l.app.StopDictation(ctx)

	case "/new":
		d := l.app.NewNote()
		fmt.Fprintf(l.out, "· new draft %s\n", shortID(d.ID))

	case "/open":
		if arg == "" {
			return false, errors.New("usage: /open <record-id>")
		}
		d, err := l.app.OpenRecord(arg)
		if err != nil {
			return false, err
		}
		l.printDraft(d)

	case "/show":
		d, ok := l.app.Draft()
		if !ok {
			return false, app.ErrNoDraft
		}
		l.printDraft(d)

	case "/topic":
		if arg == "" {
			return false, errors.New("usage: /topic <text>")
		}
		d, ok := l.app.Draft()
		if !ok {
			return false, app.ErrNoDraft
		}
		d.Topic = arg
		return false, l.app.UpdateDraft(d)

	case "/reanalyze":
		if err := l.app.Reanalyze(ctx); err != nil {
			return false, err
		}
		if d, ok := l.app.Draft(); ok {
			l.printDraft(d)
		}
		if sugg := l.app.Suggestions(); len(sugg) > 0 {
			fmt.Fprintf(l.out, "  suggested: %s (accept with /accept <kw>)\n", strings.Join(sugg, ", "))
		}

	case "/accept":
		if arg == "" {
			return false, errors.New("usage: /accept <keyword>")
		}
		return false, l.app.AcceptSuggestion(arg)

	case "/kw":
		if arg == "" {
			return false, errors.New("usage: /kw <keyword> or /kw -<keyword>")
		}
		if rest, ok := strings.CutPrefix(arg, "-"); ok {
			return false, l.app.RemoveKeyword(rest)
		}
		return false, l.app.AddKeyword(arg)

	case "/chat":
		if arg == "" {
			arg = strings.TrimSpace(l.chat.Text())
		}
		if arg == "" {
			return false, errors.New("usage: /chat <message> (or /dictate-chat first)")
		}
		l.chat.SetText("")
		reply, err := l.app.Chat(ctx, arg)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(l.out, "assistant: %s\n", reply)

	case "/save":
		rec, err := l.app.Save(ctx)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(l.out, "· saved %s (%s)\n", shortID(rec.ID), rec.Topic)

	case "/delete":
		err := l.app.Delete(ctx, arg == "yes")
		if errors.Is(err, app.ErrConfirmRequired) {
			fmt.Fprintln(l.out, "this entry is saved — repeat as `/delete yes` to remove it permanently")
			return false, nil
		}
		if err != nil {
			return false, err
		}
		fmt.Fprintln(l.out, "· deleted")

	case "/discard":
		l.app.Discard()
		fmt.Fprintln(l.out, "· discarded")

	case "/list":
		l.printRecords(l.app.Records())

	case "/search":
		if arg == "" {
			return false, errors.New("usage: /search <query>")
		}
		l.printRecords(l.app.Search(arg))

	case "/semantic":
		if arg == "" {
			return false, errors.New("usage: /semantic <query>")
		}
		records, err := l.app.SemanticSearch(ctx, arg, 5)
		if err != nil {
			return false, err
		}
		l.printRecords(records)

	default:
		return false, fmt.Errorf("unknown command %s — try /help", cmd)
	}
	return false, nil
}

func (l *captureLoop) printHelp() {
	fmt.Fprint(l.out, `plain text        add to the active draft (creates one if needed)
/dictate, /stop   start / finish voice dictation
/dictate-chat     dictate into the chat input (/stop, then /chat sends it)
/new              start a blank draft
/open <id>        open a saved record for editing
/show             print the active draft
/topic <text>     set the draft topic
/reanalyze        re-run AI analysis on the draft
/accept <kw>      accept a suggested keyword
/kw <kw>          add a keyword   (/kw -<kw> removes it)
/chat <msg>       ask the assistant about the draft
/save             commit the draft to the journal
/delete [yes]     delete the draft (saved records need "yes")
/discard          abandon the draft without saving
/list             list journal records
/search <q>       substring search
/semantic <q>     semantic search
/quit             exit
`)
}

func (l *captureLoop) printDraft(d draft.Draft) {
	fmt.Fprintf(l.out, "draft %s  [%s]\n", shortID(d.ID), d.Kind)
	fmt.Fprintf(l.out, "  topic   : %s\n", d.Topic)
	if d.Media != nil {
		fmt.Fprintf(l.out, "  media   : %s — %s\n", d.Media.Title, d.Media.Creator)
	}
	if len(d.Keywords) > 0 {
		fmt.Fprintf(l.out, "  keywords: %s\n", strings.Join(d.Keywords, ", "))
	}
	if d.Content != "" {
		fmt.Fprintf(l.out, "  %s\n", d.Content)
	}
}

func (l *captureLoop) printRecords(records []types.Record) {
	if len(records) == 0 {
		fmt.Fprintln(l.out, "(no records)")
		return
	}
	for _, r := range records {
		fmt.Fprintf(l.out, "%s  %s  %-7s %s\n",
			shortID(r.ID), r.Timestamp.Format("2006-01-02 15:04"), r.Kind, r.Topic)
	}
}

// shortID trims a UUID to its first group for display.
func shortID(id string) string {
	if i := strings.Index(id, "-"); i > 0 {
		return id[:i]
	}
	return id
}
