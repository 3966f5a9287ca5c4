package mcpserver

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/qarchive/internal/models"
	"github.com/starford/qarchive/internal/testutil"
	"github.com/starford/qarchive/internal/workspace"
)

type fixedSource struct {
	ws *workspace.Workspace
}

func (f fixedSource) Workspace() *workspace.Workspace { return f.ws }

func testServer(t *testing.T) (*Server, *workspace.Workspace) {
	t.Helper()
	ws := testutil.TestWorkspace(t,
		workspace.WithClock(testutil.FixedClock(time.Date(2026, 2, 11, 15, 53, 7, 0, time.UTC))))
	return New(fixedSource{ws: ws}, "test"), ws
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool := srv.MCPServer().GetTool(name)
	if tool == nil {
		t.Fatalf("unknown tool: %s", name)
	}
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := tool.Handler(context.Background(), req)
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func seed(t *testing.T, ws *workspace.Workspace) (string, []string) {
	t.Helper()
	ctx := context.Background()
	var ids []string
	for _, d := range []models.QACreateData{
		{Title: "Closures", Source: "claude", Tags: []string{"go"}, Question: "What is a closure?", Answer: "A function value in Go."},
		{Title: "Maps", Source: "web", Tags: []string{"python"}, Question: "Are maps ordered?", Answer: "Not in Go."},
	} {
		p, err := ws.Pairs.Create(ctx, d)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, p.ID)
	}
	th, err := ws.Threads.CreateThread(ctx, "Go basics")
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{ids[1], "dangling", ids[0]} {
		if err := ws.Threads.AddToThread(ctx, th, id); err != nil {
			t.Fatal(err)
		}
	}
	return th, ids
}

func TestToolsRegistered(t *testing.T) {
	srv, _ := testServer(t)
	tools := srv.MCPServer().ListTools()
	for _, name := range []string{"list_threads", "get_thread", "search_conversations", "get_conversation"} {
		if _, ok := tools[name]; !ok {
			t.Errorf("tool %s not registered", name)
		}
	}
}

func TestListThreads(t *testing.T) {
	srv, ws := testServer(t)
	if got := resultText(callTool(t, srv, "list_threads", nil)); got != "No conversation threads." {
		t.Errorf("empty list = %q", got)
	}

	th, _ := seed(t, ws)
	got := resultText(callTool(t, srv, "list_threads", nil))
	if !strings.Contains(got, "**"+th+"**: Go basics\n  - 3 conversations") {
		t.Errorf("list = %q", got)
	}
}

func TestGetThread(t *testing.T) {
	srv, ws := testServer(t)
	th, _ := seed(t, ws)

	got := resultText(callTool(t, srv, "get_thread", map[string]any{"thread_id": th}))
	if !strings.HasPrefix(got, "# Go basics\n\n---\n") {
		t.Errorf("thread should open with its name and the first document, got %q", got)
	}
	maps := strings.Index(got, "Are maps ordered?")
	closures := strings.Index(got, "What is a closure?")
	if maps < 0 || closures < 0 || maps > closures {
		t.Errorf("documents missing or out of thread order:\n%s", got)
	}
	if n := strings.Count(got, "\n\n---\n\n"); n != 2 {
		t.Errorf("separators = %d, want 2", n)
	}

	r := callTool(t, srv, "get_thread", map[string]any{"thread_id": "thread_missing"})
	if !r.IsError {
		t.Error("expected error for missing thread")
	}
}

func TestSearchConversations(t *testing.T) {
	srv, ws := testServer(t)
	seed(t, ws)

	got := resultText(callTool(t, srv, "search_conversations", map[string]any{"query": "GO"}))
	if !strings.HasPrefix(got, `Found 2 conversation(s) matching "GO"`) {
		t.Errorf("full-text search = %q", got)
	}

	got = resultText(callTool(t, srv, "search_conversations", map[string]any{"query": "python", "mode": "tags"}))
	if !strings.HasPrefix(got, `Found 1 conversation(s)`) || !strings.Contains(got, "## 20260211_1553_01_web_Are_maps_ordered.md") {
		t.Errorf("tag search = %q", got)
	}

	got = resultText(callTool(t, srv, "search_conversations", map[string]any{"query": "rust"}))
	if got != `No conversations found matching "rust"` {
		t.Errorf("no-hit search = %q", got)
	}

	r := callTool(t, srv, "search_conversations", map[string]any{"query": "x", "mode": "fuzzy"})
	if !r.IsError {
		t.Error("expected error for unknown mode")
	}
}

func TestGetConversation(t *testing.T) {
	srv, ws := testServer(t)
	_, ids := seed(t, ws)

	got := resultText(callTool(t, srv, "get_conversation", map[string]any{"conversation_id": ids[0]}))
	if !strings.HasPrefix(got, "---\nid: ") || !strings.Contains(got, "## Question\nWhat is a closure?") {
		t.Errorf("conversation = %q", got)
	}

	r := callTool(t, srv, "get_conversation", map[string]any{"conversation_id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing conversation")
	}
	r = callTool(t, srv, "get_conversation", map[string]any{})
	if !r.IsError {
		t.Error("expected error for missing argument")
	}
}

func TestDocumentFormatResource(t *testing.T) {
	srv, _ := testServer(t)
	contents, err := srv.readDocumentFormat(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != DocumentFormatURI || !strings.Contains(tc.Text, "## Answer") {
		t.Errorf("resource = %+v", contents[0])
	}
}
