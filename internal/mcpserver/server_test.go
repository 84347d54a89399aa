package mcpserver

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/voxjot/voxjot/internal/journal"
	"github.com/voxjot/voxjot/pkg/types"
)

func newJournal(t *testing.T, records ...types.Record) *journal.Sync {
	t.Helper()
	ctx := context.Background()
	j := journal.NewSync(journal.NewMemStore())
	if err := j.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, r := range records {
		if err := j.Commit(ctx, r); err != nil {
			t.Fatalf("Commit %s: %v", r.ID, err)
		}
	}
	return j
}

func record(id, topic, content string, keywords ...string) types.Record {
	return types.Record{
		ID:        id,
		Timestamp: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Kind:      types.KindNote,
		Topic:     topic,
		Content:   content,
		Keywords:  keywords,
		Category:  "life",
	}
}

func TestListRecords(t *testing.T) {
	t.Parallel()
	j := newJournal(t,
		record("r1", "morning", "went for a run"),
		record("r2", "lunch", "pasta with friends"),
		record("r3", "evening", "read before bed"),
	)
	s := New(j, "test")

	t.Run("default limit returns everything", func(t *testing.T) {
		t.Parallel()
		_, out, err := s.listRecords(context.Background(), nil, listArgs{})
		if err != nil {
			t.Fatalf("listRecords: %v", err)
		}
		if out.Total != 3 || len(out.Records) != 3 {
			t.Fatalf("got total=%d records=%d, want 3/3", out.Total, len(out.Records))
		}
		if out.Records[0].ID != "r1" {
			t.Errorf("first record = %s, want commit order preserved", out.Records[0].ID)
		}
	})

	t.Run("limit serves the newest tail", func(t *testing.T) {
		t.Parallel()
		_, out, err := s.listRecords(context.Background(), nil, listArgs{Limit: 2})
		if err != nil {
			t.Fatalf("listRecords: %v", err)
		}
		if out.Total != 3 {
			t.Errorf("Total = %d, want the full journal size", out.Total)
		}
		if len(out.Records) != 2 || out.Records[0].ID != "r2" || out.Records[1].ID != "r3" {
			t.Errorf("records = %+v, want the last two", out.Records)
		}
	})
}

func TestListRecordsClipsExcerpt(t *testing.T) {
	t.Parallel()
	long := ""
	for i := 0; i < 40; i++ {
		long += "很长的内容" // 5 runes per repeat
	}
	j := newJournal(t, record("r1", "long", long))
	s := New(j, "test")

	_, out, err := s.listRecords(context.Background(), nil, listArgs{})
	if err != nil {
		t.Fatalf("listRecords: %v", err)
	}
	if got := len([]rune(out.Records[0].Excerpt)); got != excerptRunes {
		t.Errorf("excerpt is %d runes, want %d", got, excerptRunes)
	}
}

func TestSearchRecords(t *testing.T) {
	t.Parallel()
	j := newJournal(t,
		record("r1", "Dune notes", "finished the first book", "sci-fi"),
		record("r2", "groceries", "apples and milk"),
	)
	s := New(j, "test")

	_, out, err := s.searchRecords(context.Background(), nil, searchArgs{Query: "sci-fi"})
	if err != nil {
		t.Fatalf("searchRecords: %v", err)
	}
	if out.Total != 1 || out.Records[0].ID != "r1" {
		t.Errorf("search by keyword = %+v, want only r1", out.Records)
	}
}

func TestGetRecord(t *testing.T) {
	t.Parallel()
	rec := record("r1", "Dune notes", "finished the first book")
	rec.Chat = []types.ChatMessage{
		{Role: types.RoleUser, Text: "who wrote it?", Timestamp: rec.Timestamp},
		{Role: types.RoleAssistant, Text: "Frank Herbert.", Timestamp: rec.Timestamp},
	}
	j := newJournal(t, rec)
	s := New(j, "test")

	t.Run("found", func(t *testing.T) {
		t.Parallel()
		_, out, err := s.getRecord(context.Background(), nil, getArgs{ID: "r1"})
		if err != nil {
			t.Fatalf("getRecord: %v", err)
		}
		if out.Content != "finished the first book" {
			t.Errorf("Content = %q", out.Content)
		}
		if len(out.Chat) != 2 || out.Chat[1].Text != "Frank Herbert." {
			t.Errorf("Chat = %+v, want both turns", out.Chat)
		}
	})

	t.Run("unknown id errors", func(t *testing.T) {
		t.Parallel()
		_, _, err := s.getRecord(context.Background(), nil, getArgs{ID: "nope"})
		if err == nil {
			t.Fatal("getRecord with unknown ID succeeded, want error")
		}
	})
}

func TestListRecordsLargeJournal(t *testing.T) {
	t.Parallel()
	var records []types.Record
	for i := 0; i < defaultListLimit+10; i++ {
		records = append(records, record(fmt.Sprintf("r%03d", i), "entry", "body"))
	}
	j := newJournal(t, records...)
	s := New(j, "test")

	_, out, err := s.listRecords(context.Background(), nil, listArgs{})
	if err != nil {
		t.Fatalf("listRecords: %v", err)
	}
	if len(out.Records) != defaultListLimit {
		t.Errorf("returned %d records, want the default cap %d", len(out.Records), defaultListLimit)
	}
	if out.Records[len(out.Records)-1].ID != "r059" {
		t.Errorf("last record = %s, want the newest entry", out.Records[len(out.Records)-1].ID)
	}
}
