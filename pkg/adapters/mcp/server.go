// Package mcp exposes story sessions as Model Context Protocol tools, so an
// assistant can play a story turn by turn.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/inkwell"
	"github.com/aretw0/inkwell/internal/presentation/graph"
	"github.com/aretw0/inkwell/pkg/domain"
	"github.com/aretw0/inkwell/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// GraphURI is the resource holding the Mermaid flowchart of the story.
const GraphURI = "inkwell://graph"

// PlaythroughResult is the output of every playback tool: the text produced since
// the previous call and what the player may do next.
type PlaythroughResult struct {
	SessionID string                `json:"session_id" jsonschema_description:"The session to pass to the next call"`
	Lines     []string              `json:"lines" jsonschema_description:"Story lines produced by this call"`
	Choices   []domain.ChoiceOption `json:"choices,omitempty" jsonschema_description:"Choices to pick from with the choose tool"`
	Ended     bool                  `json:"ended" jsonschema_description:"Indicates that the story is over"`
}

// StartArgs are the arguments of the start_story tool.
type StartArgs struct {
	Knot      string         `json:"knot,omitempty"`
	Variables map[string]any `json:"variables,omitempty"`
}

// SessionArgs identify a running session.
type SessionArgs struct {
	SessionID string `json:"session_id"`
}

// ChooseArgs are the arguments of the choose tool.
type ChooseArgs struct {
	SessionID string `json:"session_id"`
	Index     *int   `json:"index"`
}

// Server wraps a story engine and its sessions and exposes them as an MCP Server.
type Server struct {
	engine    *inkwell.Engine
	sessions  *session.Manager
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(engine *inkwell.Engine, sessions *session.Manager) *Server {
	s := &Server{
		engine:    engine,
		sessions:  sessions,
		logger:    engine.Logger(),
		mcpServer: server.NewMCPServer("inkwell-mcp", strings.TrimSpace(inkwell.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the protocol over server-sent events at addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	startTool := mcp.NewTool("start_story",
		mcp.WithDescription("Start a new playthrough and read it up to the first choice."),
		mcp.WithString("knot", mcp.Description("Knot or knot.stitch to start at (optional)")),
		mcp.WithObject("variables", mcp.Description("Overrides for declared variables (optional)")),
		mcp.WithOutputSchema[PlaythroughResult](),
	)
	s.mcpServer.AddTool(startTool, mcp.NewStructuredToolHandler(s.handleStart))

	continueTool := mcp.NewTool("continue_story",
		mcp.WithDescription("Read a playthrough up to its next choice or its end."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session returned by start_story")),
		mcp.WithOutputSchema[PlaythroughResult](),
	)
	s.mcpServer.AddTool(continueTool, mcp.NewStructuredToolHandler(s.handleContinue))

	chooseTool := mcp.NewTool("choose",
		mcp.WithDescription("Take one of the presented choices and read on."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session returned by start_story")),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Zero-based index of the choice")),
		mcp.WithOutputSchema[PlaythroughResult](),
	)
	s.mcpServer.AddTool(chooseTool, mcp.NewStructuredToolHandler(s.handleChoose))

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the story flow as a Mermaid flowchart."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(graph.GenerateMermaid(s.engine.Story(), nil)), nil
	})
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest, args StartArgs) (PlaythroughResult, error) {
	vars := make(map[string]domain.Value, len(args.Variables))
	for name, raw := range args.Variables {
		v, err := domain.ValueOf(raw)
		if err != nil {
			return PlaythroughResult{}, fmt.Errorf("variable %q: %w", name, err)
		}
		vars[name] = v
	}
	id, _, err := s.sessions.Create(ctx, args.Knot, vars)
	if err != nil {
		return PlaythroughResult{}, fmt.Errorf("start failed: %w", err)
	}
	return s.readOn(ctx, id)
}

func (s *Server) handleContinue(ctx context.Context, request mcp.CallToolRequest, args SessionArgs) (PlaythroughResult, error) {
	if args.SessionID == "" {
		return PlaythroughResult{}, errors.New("session_id is required")
	}
	return s.readOn(ctx, args.SessionID)
}

func (s *Server) handleChoose(ctx context.Context, request mcp.CallToolRequest, args ChooseArgs) (PlaythroughResult, error) {
	if args.SessionID == "" || args.Index == nil {
		return PlaythroughResult{}, errors.New("session_id and index are required")
	}
	if _, err := s.sessions.Select(ctx, args.SessionID, *args.Index); err != nil {
		return PlaythroughResult{}, fmt.Errorf("choose failed: %w", err)
	}
	return s.readOn(ctx, args.SessionID)
}

func (s *Server) readOn(ctx context.Context, sessionID string) (PlaythroughResult, error) {
	lines, step, _, err := s.sessions.Continue(ctx, sessionID)
	if err != nil {
		return PlaythroughResult{}, fmt.Errorf("continue failed: %w", err)
	}
	res := PlaythroughResult{
		SessionID: sessionID,
		Lines:     make([]string, 0, len(lines)),
		Choices:   step.Choices,
		Ended:     step.Kind == domain.StepEnded,
	}
	for _, l := range lines {
		res.Lines = append(res.Lines, l.Text)
	}
	s.logger.Debug("mcp playthrough", "session_id", sessionID, "lines", len(lines), "ended", res.Ended)
	return res, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Story flowchart",
		mcp.WithMIMEType("text/vnd.mermaid"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      GraphURI,
				MIMEType: "text/vnd.mermaid",
				Text:     graph.GenerateMermaid(s.engine.Story(), nil),
			},
		}, nil
	})
}
