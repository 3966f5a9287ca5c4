// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the archive to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/qarchive/internal/document"
	"github.com/starford/qarchive/internal/models"
	"github.com/starford/qarchive/internal/search"
	"github.com/starford/qarchive/internal/workspace"
)

// DocumentFormatURI is the resource URI of DocumentFormat.
const DocumentFormatURI = "qarchive://document-format"

// WorkspaceSource yields the active workspace. The API service implements
// it, so a settings change is picked up by the next tool call.
type WorkspaceSource interface {
	Workspace() *workspace.Workspace
}

// Server wraps the MCP server with the archive tools.
type Server struct {
	mcp *server.MCPServer
	src WorkspaceSource
}

// New creates a new MCP server with all archive tools registered.
func New(src WorkspaceSource, version string) *Server {
	s := &Server{src: src}

	s.mcp = server.NewMCPServer(
		"qarchive",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_threads",
		mcp.WithDescription("List all conversation threads with their names and item counts."),
	), s.listThreads)

	s.mcp.AddTool(mcp.NewTool("get_thread",
		mcp.WithDescription("Get every Q&A pair of a thread, in thread order."),
		mcp.WithString("thread_id", mcp.Required(), mcp.Description("Thread ID (e.g. thread_20260211_154708)")),
	), s.getThread)

	s.mcp.AddTool(mcp.NewTool("search_conversations",
		mcp.WithDescription("Search all archived conversations. Matching is a case-insensitive substring test."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Text to look for")),
		mcp.WithString("mode",
			mcp.Description("full-text matches title, question and answer; tags matches any single tag"),
			mcp.Enum(string(search.FullText), string(search.Tags)),
		),
	), s.searchConversations)

	s.mcp.AddTool(mcp.NewTool("get_conversation",
		mcp.WithDescription("Get a single Q&A pair by its ID."),
		mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation ID (e.g. 20260211_1553)")),
	), s.getConversation)

	// Resource: document format.
	s.mcp.AddResource(
		mcp.NewResource(DocumentFormatURI, "Document Format",
			mcp.WithResourceDescription("How archived Q&A pairs and threads are stored on disk."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDocumentFormat,
	)

	return s
}

// Serve runs the MCP protocol on in/out until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func render(p models.QAPair) (string, error) {
	data, err := document.EncodePair(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *Server) listThreads(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	threads, err := s.src.Workspace().Threads.Load(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if threads.Len() == 0 {
		return mcp.NewToolResultText("No conversation threads."), nil
	}

	var b strings.Builder
	b.WriteString("Available Conversation Threads:\n\n")
	for p := threads.Oldest(); p != nil; p = p.Next() {
		fmt.Fprintf(&b, "**%s**: %s\n  - %d conversations\n\n", p.Key, p.Value.Name, len(p.Value.Items))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) getThread(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("thread_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ws := s.src.Workspace()
	threads, err := ws.Threads.Load(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	th, ok := threads.Get(id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("thread %s not found", id)), nil
	}
	pairs, err := ws.Pairs.ListAll(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", th.Name)
	for _, item := range th.Items {
		// Dangling items are skipped.
		p, ok := pairs.Get(item)
		if !ok {
			continue
		}
		doc, err := render(p)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		b.WriteString(doc)
		b.WriteString("\n\n---\n\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) searchConversations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mode, err := search.ParseMode(req.GetString("mode", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	hits, err := s.src.Workspace().Search.Find(ctx, query, mode)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(hits) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No conversations found matching %q", query)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d conversation(s) matching %q:\n\n", len(hits), query)
	for _, p := range hits {
		doc, err := render(p)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n---\n\n", filepath.Base(p.Filepath), doc)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) getConversation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("conversation_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, ok, err := s.src.Workspace().Pairs.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("conversation %s not found", id)), nil
	}
	doc, err := render(p)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(doc), nil
}

func (s *Server) readDocumentFormat(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      DocumentFormatURI,
			MIMEType: "text/markdown",
			Text:     DocumentFormat,
		},
	}, nil
}
