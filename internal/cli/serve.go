package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/aretw0/inkwell/internal/config"
	httpAdapter "github.com/aretw0/inkwell/pkg/adapters/http"
	"github.com/aretw0/inkwell/pkg/observability"
	"github.com/aretw0/inkwell/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ShutdownTimeout bounds how long outstanding requests may run after a stop signal.
const ShutdownTimeout = 5 * time.Second

// ServeOptions configures the HTTP server.
type ServeOptions struct {
	StoryPath string
	// Addr overrides the configured listen address.
	Addr string
	// Ready, when set, receives the bound address once the server listens.
	Ready func(addr string)
	Out   io.Writer
}

// Serve exposes sessions of a story over HTTP until ctx is cancelled.
func Serve(ctx context.Context, cfg config.Config, opts ServeOptions) error {
	logger := cfg.Logger()
	if opts.Out == nil {
		opts.Out = io.Discard
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	engine, err := createEngine(opts.StoryPath, cfg, logger, metrics.Hooks())
	if err != nil {
		return err
	}

	p, err := OpenPersistence(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer p.Close()

	mgrOpts := []session.Option{session.WithLogger(logger), session.WithLockTTL(cfg.Store.LockTTL)}
	if p.Locker != nil {
		mgrOpts = append(mgrOpts, session.WithLocker(p.Locker))
	}
	sessions := session.NewManager(engine, p.Store, mgrOpts...)

	handler := httpAdapter.NewHandler(engine, sessions,
		httpAdapter.WithLogger(logger),
		httpAdapter.WithMetrics(reg),
	)

	addr := opts.Addr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		fmt.Fprintf(opts.Out, "Starting Inkwell Server on %s\n", ln.Addr())
		fmt.Fprintf(opts.Out, "Serving story: %s (%s store)\n", opts.StoryPath, cfg.Store.Driver)
		serverErrors <- srv.Serve(ln)
	}()
	if opts.Ready != nil {
		opts.Ready(ln.Addr().String())
	}

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		fmt.Fprintln(opts.Out, "\nStart shutdown...")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown did not complete", "timeout", ShutdownTimeout, "err", err)
			if err := srv.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("error killing server: %w", err)
			}
		}
		fmt.Fprintln(opts.Out, "Inkwell Server stopped gracefully")
		return nil
	}
}
