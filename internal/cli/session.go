package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"github.com/aretw0/inkwell"
	"github.com/aretw0/inkwell/internal/config"
	"github.com/aretw0/inkwell/internal/logging"
	"github.com/aretw0/inkwell/internal/presentation/tui"
	"github.com/aretw0/inkwell/pkg/domain"
	"github.com/aretw0/inkwell/pkg/runner"
)

// RunSession plays a story in the terminal, resuming opts.SessionID when it exists.
func RunSession(ctx context.Context, cfg config.Config, opts RunOptions) error {
	opts.streams()
	logger := cfg.Logger()
	if opts.Debug {
		logger = logging.NewWriter(opts.Stderr, cfg.LogFormat, slog.LevelDebug)
	}

	if !opts.JSON && !opts.Quiet {
		tui.PrintBanner(opts.Stdout, inkwell.Version)
	}

	engine, err := createEngine(opts.StoryPath, cfg, logger)
	if err != nil {
		return err
	}

	store := cfg.Store
	if opts.SessionID != "" {
		store = durable(store)
	}
	p, err := OpenPersistence(ctx, store)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer p.Close()

	rt, resumed, err := hydrate(ctx, engine, p, cfg, opts)
	if err != nil {
		return handleExecutionError(fmt.Errorf("failed to init session: %w", err))
	}
	if resumed && !opts.JSON && !opts.Quiet {
		printSystemMessage(opts.Stderr, "Resuming session '%s' at %s", opts.SessionID, location(rt.State()))
	}
	logger.Debug("session ready", "session_id", opts.SessionID, "resumed", resumed, "knot", rt.State().Knot)

	handler, err := newHandler(opts)
	if err != nil {
		return err
	}
	r := runner.NewRunner(
		runner.WithInputHandler(handler),
		runner.WithLogger(logger),
		runner.WithSession(p.Store, opts.SessionID),
	)

	runErr := r.Run(ctx, rt)
	if opts.SessionID != "" && !opts.JSON && !opts.Quiet && !rt.Ended() {
		printSystemMessage(opts.Stderr, "Session '%s' saved. Resume with --session %s", opts.SessionID, opts.SessionID)
	}
	return handleExecutionError(runErr)
}

// durable replaces the memory driver, which would forget the session on exit, with files.
func durable(store config.StoreConfig) config.StoreConfig {
	if store.Driver == config.DriverMemory || store.Driver == "" {
		store.Driver = config.DriverFile
	}
	return store
}

func hydrate(ctx context.Context, engine *inkwell.Engine, p *Persistence, cfg config.Config, opts RunOptions) (*inkwell.Runtime, bool, error) {
	if opts.SessionID != "" {
		state, err := p.Store.Load(ctx, opts.SessionID)
		switch {
		case err == nil:
			rt, err := engine.Restore(state)
			return rt, err == nil, err
		case !errors.Is(err, domain.ErrSessionNotFound):
			return nil, false, err
		}
	}

	vars := make(map[string]any, len(cfg.Variables)+len(opts.Variables))
	maps.Copy(vars, cfg.Variables)
	maps.Copy(vars, opts.Variables)
	rt, err := engine.Start(ctx, opts.Knot, inkwell.WithVariables(vars))
	return rt, false, err
}

func newHandler(opts RunOptions) (runner.IOHandler, error) {
	if opts.JSON {
		return runner.NewJSONHandler(opts.Stdin, opts.Stdout), nil
	}
	textOpts := []runner.TextHandlerOption{runner.WithTags(opts.Tags)}
	if opts.Markdown {
		render, err := tui.NewMarkdownRenderer()
		if err != nil {
			return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
		}
		textOpts = append(textOpts, runner.WithTextHandlerRenderer(render))
	}
	return runner.NewTextHandler(opts.Stdin, opts.Stdout, textOpts...), nil
}

func location(st *domain.State) string {
	if st.Status == domain.StatusEnded {
		return domain.TargetEnd
	}
	if key := domain.VisitKey(st.Knot, st.Stitch); key != "" {
		return key
	}
	return "the beginning"
}
