// Package mcpserver exposes the journal over the Model Context Protocol so
// external assistants can consult it.
//
// The server is strictly read-only: it serves list/search/get tools backed by
// the journal's in-memory record list and never mutates it. Transport is
// stdio, matching how MCP hosts spawn tool servers.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/voxjot/voxjot/internal/journal"
	"github.com/voxjot/voxjot/pkg/types"
)

// serverName identifies this server to MCP hosts.
const serverName = "voxjot-journal"

// defaultListLimit bounds list_records output when the caller gives no limit.
const defaultListLimit = 50

// Server wraps a journal view in an MCP server.
type Server struct {
	journal *journal.Sync
	logger  *slog.Logger
	mcp     *mcp.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New builds a Server over the given journal view and registers its tools.
func New(j *journal.Sync, version string, opts ...Option) *Server {
	s := &Server{
		journal: j,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{Name: serverName, Version: version}, nil)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_records",
		Description: "List journal records, newest entries last. Returns at most `limit` records (default 50).",
	}, s.listRecords)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_records",
		Description: "Search journal records by a case-insensitive substring over topic, content, and keywords.",
	}, s.searchRecords)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_record",
		Description: "Fetch one journal record by its ID, including its chat history.",
	}, s.getRecord)
	return s
}

// Run serves MCP over stdio until ctx is cancelled or the host disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server listening on stdio", "server", serverName)
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcpserver: run: %w", err)
	}
	return nil
}

// ─── Tool payloads ───────────────────────────────────────────────────────────

// RecordSummary is the compact record shape returned by list and search. The
// body is clipped so a long journal does not flood the host's context window.
type RecordSummary struct {
	ID        string   `json:"id"`
	Timestamp string   `json:"timestamp"`
	Kind      string   `json:"kind"`
	Topic     string   `json:"topic"`
	Excerpt   string   `json:"excerpt"`
	Keywords  []string `json:"keywords,omitempty"`
	Category  string   `json:"category"`
}

// RecordDetail is the full record shape returned by get_record.
type RecordDetail struct {
	RecordSummary
	Content string           `json:"content"`
	Media   *types.MediaMeta `json:"media,omitempty"`
	Chat    []chatTurn       `json:"chat,omitempty"`
}

type chatTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// excerptRunes is how much content a summary carries.
const excerptRunes = 120

func summarize(r types.Record) RecordSummary {
	return RecordSummary{
		ID:        r.ID,
		Timestamp: r.Timestamp.Format("2006-01-02 15:04"),
		Kind:      string(r.Kind),
		Topic:     r.Topic,
		Excerpt:   types.ClipRunes(r.Content, excerptRunes),
		Keywords:  r.Keywords,
		Category:  r.Category,
	}
}

func detail(r types.Record) RecordDetail {
	d := RecordDetail{
		RecordSummary: summarize(r),
		Content:       r.Content,
		Media:         r.Media,
	}
	for _, m := range r.Chat {
		d.Chat = append(d.Chat, chatTurn{Role: string(m.Role), Text: m.Text})
	}
	return d
}

// ─── Tool handlers ───────────────────────────────────────────────────────────

type listArgs struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of records to return"`
}

type listResult struct {
	Total   int             `json:"total"`
	Records []RecordSummary `json:"records"`
}

func (s *Server) listRecords(ctx context.Context, req *mcp.CallToolRequest, args listArgs) (*mcp.CallToolResult, listResult, error) {
	records := s.journal.List()
	limit := args.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	out := listResult{Total: len(records)}
	// Newest records sit at the tail of the journal; serve from the end.
	start := len(records) - limit
	if start < 0 {
		start = 0
	}
	for _, r := range records[start:] {
		out.Records = append(out.Records, summarize(r))
	}
	return nil, out, nil
}

type searchArgs struct {
	Query string `json:"query" jsonschema:"substring to match against topic, content, and keywords"`
}

func (s *Server) searchRecords(ctx context.Context, req *mcp.CallToolRequest, args searchArgs) (*mcp.CallToolResult, listResult, error) {
	records := s.journal.Search(args.Query)
	out := listResult{Total: len(records)}
	for _, r := range records {
		out.Records = append(out.Records, summarize(r))
	}
	return nil, out, nil
}

type getArgs struct {
	ID string `json:"id" jsonschema:"record ID as returned by list_records or search_records"`
}

func (s *Server) getRecord(ctx context.Context, req *mcp.CallToolRequest, args getArgs) (*mcp.CallToolResult, RecordDetail, error) {
	rec, ok := s.journal.Get(args.ID)
	if !ok {
		return nil, RecordDetail{}, fmt.Errorf("mcpserver: record %q not found", args.ID)
	}
	return nil, detail(rec), nil
}
