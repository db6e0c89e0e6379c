// Package mcpserver exposes document chat as MCP tools so that agents can
// upload a document, open a chat thread, ask questions and read history.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rhuss/docchat/pkg/api"
	"github.com/rhuss/docchat/pkg/chat"
	"github.com/rhuss/docchat/pkg/debug"
	"github.com/rhuss/docchat/pkg/storage"
)

// Version is reported to MCP clients.
const Version = "v1.0.0"

// Option configures the tool server.
type Option func(*tools)

// WithStore records every answered question in the transcript store.
func WithStore(store storage.TranscriptStore) Option {
	return func(t *tools) { t.store = store }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *tools) { t.logger = logger }
}

// WithBaseDir resolves relative document paths against dir.
func WithBaseDir(dir string) Option {
	return func(t *tools) { t.baseDir = dir }
}

type tools struct {
	backend chat.Backend
	store   storage.TranscriptStore
	logger  *slog.Logger
	baseDir string
}

// ProcessDocumentInput is the input of the process_document tool.
type ProcessDocumentInput struct {
	Path string `json:"path" jsonschema:"path of the document file to upload"`
}

// StartSessionInput is the input of the start_session tool.
type StartSessionInput struct {
	AssetID string `json:"asset_id" jsonschema:"asset ID returned by process_document"`
}

// AskInput is the input of the ask tool.
type AskInput struct {
	ChatThreadID string `json:"chat_thread_id" jsonschema:"chat thread ID returned by start_session"`
	Query        string `json:"query" jsonschema:"question about the document"`
}

// HistoryInput is the input of the history tool.
type HistoryInput struct {
	ChatThreadID string `json:"chat_thread_id" jsonschema:"chat thread ID returned by start_session"`
}

// New creates an MCP server exposing the process_document, start_session,
// ask and history tools backed by backend.
func New(backend chat.Backend, opts ...Option) *mcp.Server {
	t := &tools{backend: backend, logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}

	server := mcp.NewServer(
		&mcp.Implementation{Name: "docchat", Version: Version},
		nil,
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "process_document",
		Description: "Upload a local document for question answering. Returns its asset ID.",
	}, t.processDocument)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "start_session",
		Description: "Open a chat thread on a processed document. Returns the chat thread ID.",
	}, t.startSession)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask",
		Description: "Ask a question about the document of a chat thread and return the full answer.",
	}, t.ask)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "history",
		Description: "List the questions and answers of a chat thread.",
	}, t.history)

	return server
}

func (t *tools) processDocument(ctx context.Context, _ *mcp.CallToolRequest, in ProcessDocumentInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(in.Path) == "" {
		return errorResult(api.NewInvalidRequestError("path", "path is required")), nil, nil
	}
	path := in.Path
	if !filepath.IsAbs(path) && t.baseDir != "" {
		path = filepath.Join(t.baseDir, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return errorResult(fmt.Errorf("opening document: %w", err)), nil, nil
	}
	defer f.Close()

	assetID, err := t.backend.ProcessDocument(ctx, filepath.Base(path), f)
	if err != nil {
		return errorResult(err), nil, nil
	}
	t.logger.Info("document processed", "path", path, "asset", assetID)
	return textResult("asset_id: " + assetID), nil, nil
}

func (t *tools) startSession(ctx context.Context, _ *mcp.CallToolRequest, in StartSessionInput) (*mcp.CallToolResult, any, error) {
	threadID, err := t.backend.StartSession(ctx, in.AssetID)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return textResult("chat_thread_id: " + threadID), nil, nil
}

func (t *tools) ask(ctx context.Context, _ *mcp.CallToolRequest, in AskInput) (*mcp.CallToolResult, any, error) {
	debug.Log("mcp", "ask", "thread", in.ChatThreadID, "query", debug.Truncate(in.Query, 64))
	answer, err := t.backend.SendMessage(ctx, in.ChatThreadID, in.Query, nil)
	if err != nil {
		return errorResult(err), nil, nil
	}
	if t.store != nil {
		turn := api.Turn{UserMessage: in.Query, AgentResponse: answer}
		if serr := t.store.AppendTurn(ctx, in.ChatThreadID, turn); serr != nil {
			t.logger.Warn("failed to record turn", "thread", in.ChatThreadID, "error", serr)
		}
	}
	return textResult(answer), nil, nil
}

func (t *tools) history(ctx context.Context, _ *mcp.CallToolRequest, in HistoryInput) (*mcp.CallToolResult, any, error) {
	turns, err := t.backend.History(ctx, in.ChatThreadID)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return textResult(formatHistory(turns)), nil, nil
}

// formatHistory renders turns as numbered plain text.
func formatHistory(turns []api.Turn) string {
	if len(turns) == 0 {
		return "No questions asked yet."
	}
	var b strings.Builder
	for i, turn := range turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Question %d: %s\nAnswer: %s", i+1, turn.UserMessage, turn.AgentResponse)
	}
	return b.String()
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// errorResult reports err to the calling agent as a tool error rather than
// a protocol error, so the agent can read the message and react.
func errorResult(err error) *mcp.CallToolResult {
	msg := err.Error()
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		msg = apiErr.Message
		if apiErr.Type == api.ErrorTypeRateLimited && apiErr.RetryAfter > 0 {
			msg += fmt.Sprintf(" (retry after %s)", apiErr.RetryAfter.Round(time.Second))
		}
	}
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}

// ServeStdio runs server over stdin/stdout until ctx is done or the client
// disconnects.
func ServeStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler serves server over streamable HTTP, with a health check.
func HTTPHandler(server *mcp.Server) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})
	return mux
}
