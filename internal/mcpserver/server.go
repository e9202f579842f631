// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the work log tools to a chat assistant via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/worklog/internal/logdate"
	"github.com/starford/worklog/internal/models"
	"github.com/starford/worklog/internal/worklog"
)

// Service is the part of worklog.Service the tools call.
type Service interface {
	CheckLogs(ctx context.Context, headless bool) (*models.CheckReport, error)
	PublishNote(ctx context.Context, req worklog.PublishRequest) (*worklog.PublishResponse, error)
	PublishMissing(ctx context.Context, headless bool) ([]models.SyncResult, error)
	GenerateDraft(ctx context.Context, req worklog.GenerateRequest) (*models.Draft, error)
	ListDrafts(dir string) ([]models.DraftMetadata, error)
	ReadDraft(path string) (*models.Draft, error)
	SyncHistory(limit, offset int) ([]models.SyncResult, int, error)
	Options() worklog.Options
}

var _ Service = (*worklog.Service)(nil)

// Server wraps the MCP server with the work log tools.
type Server struct {
	mcp       *server.MCPServer
	svc       Service
	formatSet logdate.FormatSet
	now       func() time.Time
}

// New creates a new MCP server with all tools registered.
func New(svc Service, formatSet logdate.FormatSet, version string) *Server {
	s := &Server{svc: svc, formatSet: formatSet, now: time.Now}

	s.mcp = server.NewMCPServer(
		"Worklog",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("check_logs",
		mcp.WithDescription("Check which workdays of the current week (Monday to today) have no work log "+
			"in the Xuexitong notes list. Returns missing dates as YYYYMMDD."),
		mcp.WithBoolean("headless", mcp.Description("Run the browser without a window (defaults to config)")),
	), s.checkLogs)

	s.mcp.AddTool(mcp.NewTool("publish_note",
		mcp.WithDescription("Publish a Markdown work log to Xuexitong notes. The title defaults to "+
			"'工作日志 YYYY-MM-DD' for the given date (today when omitted)."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown body of the log")),
		mcp.WithString("title", mcp.Description("Note title; see the worklog://title-format resource")),
		mcp.WithString("date", mcp.Description("Date the log covers, YYYY-MM-DD or YYYYMMDD")),
		mcp.WithBoolean("headless", mcp.Description("Run the browser without a window (defaults to config)")),
		mcp.WithBoolean("silent", mcp.Description("Suppress the notification sound")),
	), s.publishNote)

	s.mcp.AddTool(mcp.NewTool("generate_log",
		mcp.WithDescription("Generate a daily or weekly work log draft from git commits and store it."),
		mcp.WithString("kind", mcp.Enum(string(models.DraftDaily), string(models.DraftWeekly)),
			mcp.Description("daily (default) or weekly")),
		mcp.WithString("date", mcp.Description("Day the log covers, YYYY-MM-DD (today when omitted)")),
		mcp.WithBoolean("overwrite", mcp.Description("Replace an existing draft")),
	), s.generateLog)

	s.mcp.AddTool(mcp.NewTool("publish_missing",
		mcp.WithDescription("Check the current week and publish a log for every missing workday, "+
			"generating drafts where needed. Publishes run one at a time."),
		mcp.WithBoolean("headless", mcp.Description("Run the browser without a window (defaults to config)")),
	), s.publishMissing)

	s.mcp.AddTool(mcp.NewTool("list_drafts",
		mcp.WithDescription("List stored work log drafts."),
		mcp.WithString("dir", mcp.Description("Optional sub-directory: daily or weekly")),
	), s.listDrafts)

	s.mcp.AddTool(mcp.NewTool("read_draft",
		mcp.WithDescription("Read a stored work log draft."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Draft path, e.g. daily/2026-01-28.md")),
	), s.readDraft)

	s.mcp.AddTool(mcp.NewTool("sync_history",
		mcp.WithDescription("List recent publish attempts, newest first."),
		mcp.WithNumber("limit", mcp.Description("Page size (default 20)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
	), s.syncHistory)

	s.mcp.AddResource(
		mcp.NewResource(TitleFormatURI, "Work Log Title Format",
			mcp.WithResourceDescription("Date renderings that make a note title count as a work log."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readTitleFormatResource,
	)

	return s
}

// Serve runs the stdio transport over in/out until ctx is cancelled or in
// is closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) headless(req mcp.CallToolRequest) bool {
	return req.GetBool("headless", s.svc.Options().Headless)
}

func (s *Server) checkLogs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.svc.CheckLogs(ctx, s.headless(req))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(report)
}

func (s *Server) publishNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resp, err := s.svc.PublishNote(ctx, worklog.PublishRequest{
		Content:      content,
		Title:        req.GetString("title", ""),
		Date:         req.GetString("date", ""),
		Headless:     s.headless(req),
		SilentNotify: req.GetBool("silent", false),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	msg := fmt.Sprintf("published: %s", resp.Title)
	if resp.Unchanged {
		msg += " (content unchanged since the last publish)"
	}
	return mcp.NewToolResultText(msg), nil
}

func (s *Server) generateLog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	draft, err := s.svc.GenerateDraft(ctx, worklog.GenerateRequest{
		Kind:      models.DraftKind(req.GetString("kind", string(models.DraftDaily))),
		Date:      req.GetString("date", ""),
		Overwrite: req.GetBool("overwrite", false),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(draft)
}

func (s *Server) publishMissing(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	results, err := s.svc.PublishMissing(ctx, s.headless(req))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no missing logs"), nil
	}
	return jsonResult(results)
}

func (s *Server) listDrafts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metas, err := s.svc.ListDrafts(req.GetString("dir", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	paths := make([]string, 0, len(metas))
	for _, m := range metas {
		paths = append(paths, m.Path)
	}
	if len(paths) == 0 {
		return mcp.NewToolResultText("no drafts"), nil
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) readDraft(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	draft, err := s.svc.ReadDraft(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", path, err)), nil
	}
	return jsonResult(draft)
}

func (s *Server) syncHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, total, err := s.svc.SyncHistory(req.GetInt("limit", 20), req.GetInt("offset", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if items == nil {
		items = []models.SyncResult{}
	}
	return jsonResult(map[string]any{"syncs": items, "total": total})
}

func (s *Server) readTitleFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      TitleFormatURI,
			MIMEType: "text/markdown",
			Text:     TitleFormatContract(s.formatSet, s.now()),
		},
	}, nil
}
