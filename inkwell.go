package inkwell

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/inkwell/internal/compiler"
	"github.com/aretw0/inkwell/internal/runtime"
	"github.com/aretw0/inkwell/pkg/domain"
	"github.com/aretw0/inkwell/pkg/ports"
	"github.com/mitchellh/mapstructure"
)

// Engine is the high-level entry point for the Inkwell library.
// It holds a parsed story and is safe to share between playthroughs.
type Engine struct {
	runtime  *runtime.Engine
	story    *domain.Story
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	maxSteps int
	Name     string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMaxSteps bounds how many nodes one Advance may walk before it reports a loop.
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		e.maxSteps = n
	}
}

// WithName labels the story in logs and metrics.
func WithName(name string) Option {
	return func(e *Engine) {
		e.Name = name
	}
}

// New parses source and prepares an engine for it.
// Every parse and resolution error of the document is returned at once; use
// domain.Errors to split them.
func New(source string, opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("story", eng.Name)
	}

	story, err := compiler.Compile(source)
	if err != nil {
		eng.logger.Error("story rejected", "errors", len(domain.Errors(err)))
		return nil, err
	}
	eng.story = story
	eng.logger.Info("story compiled",
		"knots", len(story.Order),
		"variables", len(story.Variables),
	)

	eng.runtime = runtime.NewEngine(story,
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithMaxSteps(eng.maxSteps),
	)
	return eng, nil
}

// Load reads a story file and calls New. The file name becomes the story name
// unless WithName is given.
func Load(path string, opts ...Option) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read story: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return New(string(data), append([]Option{WithName(name)}, opts...)...)
}

// Story returns the parsed story graph.
func (e *Engine) Story() *domain.Story {
	return e.story
}

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

// StartOption configures a new playthrough.
type StartOption func(*startConfig) error

type startConfig struct {
	vars map[string]domain.Value
}

// WithVariables overrides declared variables for the playthrough.
// Values must be booleans, numbers or strings.
func WithVariables(vars map[string]any) StartOption {
	return func(c *startConfig) error {
		for name, raw := range vars {
			v, err := domain.ValueOf(raw)
			if err != nil {
				return fmt.Errorf("variable %q: %w", name, err)
			}
			c.vars[name] = v
		}
		return nil
	}
}

// WithVariablesFrom overrides declared variables from the fields of a struct.
// Field names are mapped with `mapstructure` tags.
func WithVariablesFrom(src any) StartOption {
	return func(c *startConfig) error {
		var vars map[string]any
		if err := mapstructure.Decode(src, &vars); err != nil {
			return fmt.Errorf("failed to decode variables: %w", err)
		}
		return WithVariables(vars)(c)
	}
}

// Start begins a playthrough at knot, which may be empty for the default start,
// a knot name, or "knot.stitch".
func (e *Engine) Start(ctx context.Context, knot string, opts ...StartOption) (*Runtime, error) {
	cfg := &startConfig{vars: map[string]domain.Value{}}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	st, err := e.runtime.Start(ctx, knot, cfg.vars)
	if err != nil {
		return nil, err
	}
	return &Runtime{engine: e, state: st}, nil
}

// Restore resumes a playthrough from a saved state. The state must belong to this story.
func (e *Engine) Restore(state *domain.State) (*Runtime, error) {
	if err := e.runtime.Check(state); err != nil {
		return nil, err
	}
	return &Runtime{engine: e, state: state.Clone()}, nil
}

// Advance is the stateless form of Runtime.Advance. The input state is never modified.
func (e *Engine) Advance(ctx context.Context, state *domain.State) (domain.Step, *domain.State, error) {
	return e.runtime.Advance(ctx, state)
}

// Select is the stateless form of Runtime.Select. The input state is never modified.
func (e *Engine) Select(ctx context.Context, state *domain.State, index int) (*domain.State, error) {
	return e.runtime.Select(ctx, state, index)
}

// NewState creates the state of a fresh playthrough without wrapping it in a Runtime.
func (e *Engine) NewState(ctx context.Context, knot string, vars map[string]domain.Value) (*domain.State, error) {
	return e.runtime.Start(ctx, knot, vars)
}

// Check verifies that a state, for instance one loaded from storage, belongs to this story.
func (e *Engine) Check(state *domain.State) error {
	return e.runtime.Check(state)
}

var _ ports.StatelessEngine = (*Engine)(nil)
