package cli

import (
	"context"
	"fmt"

	"github.com/aretw0/inkwell/internal/config"
	"github.com/aretw0/inkwell/pkg/adapters/mcp"
	"github.com/aretw0/inkwell/pkg/session"
)

// MCPOptions configures the Model Context Protocol server.
type MCPOptions struct {
	StoryPath string
	// SSEAddr serves over HTTP server-sent events instead of stdio.
	SSEAddr string
	// BaseURL is the public URL announced to SSE clients.
	BaseURL string
}

// NewMCPServer builds the MCP adapter over the configured store.
// The returned closer releases the store.
func NewMCPServer(ctx context.Context, cfg config.Config, storyPath string) (*mcp.Server, func() error, error) {
	// Stdout carries the protocol, so logs must never go there.
	logger := cfg.Logger()
	engine, err := createEngine(storyPath, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	p, err := OpenPersistence(ctx, cfg.Store)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	mgrOpts := []session.Option{session.WithLogger(logger), session.WithLockTTL(cfg.Store.LockTTL)}
	if p.Locker != nil {
		mgrOpts = append(mgrOpts, session.WithLocker(p.Locker))
	}
	return mcp.NewServer(engine, session.NewManager(engine, p.Store, mgrOpts...)), p.Close, nil
}

// ServeMCP runs the MCP server until the client disconnects or ctx is cancelled.
func ServeMCP(ctx context.Context, cfg config.Config, opts MCPOptions) error {
	srv, closeStore, err := NewMCPServer(ctx, cfg, opts.StoryPath)
	if err != nil {
		return err
	}
	defer closeStore()

	if opts.SSEAddr == "" {
		return handleExecutionError(srv.ServeStdio())
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost" + opts.SSEAddr
	}
	return srv.ServeSSE(ctx, opts.SSEAddr, baseURL)
}
