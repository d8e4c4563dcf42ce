package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/inkwell"
	"github.com/aretw0/inkwell/pkg/domain"
	"github.com/aretw0/inkwell/pkg/ports"
)

// Runner plays a story through an IOHandler until it ends or the player leaves.
// This allows for easy testing and integration with different frontends (CLI, JSON, etc).
type Runner struct {
	// Handler is the strategy for IO. Defaults to a TextHandler on Stdin/Stdout.
	Handler IOHandler

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	// Store and SessionID make the playthrough resumable. See WithSession.
	Store     ports.StateStore
	SessionID string

	exits map[string]bool
}

// DefaultExitCommands leave a playthrough when typed at a choice prompt.
var DefaultExitCommands = []string{"exit", "quit"}

// NewRunner creates a new Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(os.Stdin, os.Stdout)
	}
	if r.Logger == nil {
		r.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if r.exits == nil {
		WithExitCommands(DefaultExitCommands...)(r)
	}
	return r
}

// Run pulls steps from the playthrough until the story ends, the player types an
// exit command, or the input is exhausted. The last state is saved in every case.
// Context cancellation stops the loop with the context error.
func (r *Runner) Run(ctx context.Context, rt *inkwell.Runtime) error {
	for {
		if err := ctx.Err(); err != nil {
			r.save(context.WithoutCancel(ctx), rt)
			return err
		}

		step, err := rt.Advance(ctx)
		if err != nil {
			r.save(context.WithoutCancel(ctx), rt)
			return fmt.Errorf("advance error: %w", err)
		}

		switch step.Kind {
		case domain.StepLine:
			if err := r.Handler.Line(ctx, *step.Line); err != nil {
				return fmt.Errorf("output error: %w", err)
			}

		case domain.StepEnded:
			if err := r.save(ctx, rt); err != nil {
				return err
			}
			if err := r.Handler.End(ctx); err != nil {
				return fmt.Errorf("output error: %w", err)
			}
			return nil

		case domain.StepChoices:
			// Save before asking so that a resumed session presents the same choices.
			if err := r.save(ctx, rt); err != nil {
				return err
			}
			if err := r.Handler.Choices(ctx, step.Choices); err != nil {
				return fmt.Errorf("output error: %w", err)
			}
			quit, err := r.choose(ctx, rt, step.Choices)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
			if err := r.save(ctx, rt); err != nil {
				return err
			}
		}
	}
}

// choose reads answers until one selects a choice. It reports true when the player left.
func (r *Runner) choose(ctx context.Context, rt *inkwell.Runtime, choices []domain.ChoiceOption) (bool, error) {
	for {
		val, err := r.Handler.Input(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				r.Logger.Debug("input closed", "session_id", r.SessionID)
				return true, nil
			}
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			return false, fmt.Errorf("input error: %w", err)
		}

		if r.exits[strings.ToLower(strings.TrimSpace(val))] {
			return true, nil
		}

		index, err := ParseChoice(val, choices)
		if err != nil {
			if err := r.Handler.SystemOutput(ctx, err.Error()); err != nil {
				return false, fmt.Errorf("output error: %w", err)
			}
			continue
		}
		if err := rt.Select(ctx, index); err != nil {
			return false, fmt.Errorf("select error: %w", err)
		}
		r.Logger.Debug("choice taken", "session_id", r.SessionID, "index", index)
		return false, nil
	}
}

func (r *Runner) save(ctx context.Context, rt *inkwell.Runtime) error {
	if r.Store == nil || r.SessionID == "" {
		return nil
	}
	state := rt.State()
	if err := r.Store.Save(ctx, r.SessionID, state); err != nil {
		return fmt.Errorf("critical persistence error: %w", err)
	}
	r.Logger.Debug("state saved", "session_id", r.SessionID, "knot", state.Knot, "status", state.Status)
	return nil
}
