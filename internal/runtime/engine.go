package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/aretw0/inkwell/pkg/domain"
	"go.uber.org/multierr"
)

// DefaultMaxSteps bounds how many nodes a single Advance may walk without producing output.
const DefaultMaxSteps = 10000

// Engine is the core state machine runner.
// It holds no playthrough data: every operation takes a State and returns a new one,
// leaving the input untouched, so one Engine serves any number of playthroughs.
type Engine struct {
	story    *domain.Story
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	maxSteps int
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger. A nil logger keeps the default.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithMaxSteps sets the loop detection limit. Values below 1 keep the default.
func WithMaxSteps(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// NewEngine creates an engine over a compiled story.
func NewEngine(story *domain.Story, opts ...EngineOption) *Engine {
	e := &Engine{
		story:    story,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Story returns the compiled story the engine plays.
func (e *Engine) Story() *domain.Story {
	return e.story
}

// Start creates the initial state at target, which is empty for the default start,
// a knot name, or a knot.stitch pair. vars overrides declared variables.
func (e *Engine) Start(ctx context.Context, target string, vars map[string]domain.Value) (*domain.State, error) {
	addr, err := e.locate(target)
	if err != nil {
		return nil, err
	}
	overrides, err := e.overrides(vars)
	if err != nil {
		return nil, err
	}

	st := domain.NewState(addr.Knot, addr.Stitch)
	st.Variables = overrides
	r := &run{e: e, ctx: ctx, st: st}
	r.enter(addr, true)
	r.flush()

	e.logger.DebugContext(ctx, "playthrough started", "knot", st.Knot, "stitch", st.Stitch)
	return st, nil
}

// locate resolves a start target.
func (e *Engine) locate(target string) (domain.Address, error) {
	if target == "" {
		if root, ok := e.story.Knot(domain.RootKnot); ok && len(root.Root.Content) > 0 {
			return domain.Address{Knot: domain.RootKnot}, nil
		}
		if len(e.story.Order) == 0 {
			return domain.Address{}, fmt.Errorf("%w: story has no content", domain.ErrUnknownKnot)
		}
		return domain.Address{Knot: e.story.Order[0]}, nil
	}
	knot, stitch := domain.SplitPath(target)
	if knot == domain.RootKnot {
		return domain.Address{}, fmt.Errorf("%w: %q", domain.ErrUnknownKnot, target)
	}
	if _, ok := e.story.Stitch(knot, stitch); !ok {
		return domain.Address{}, fmt.Errorf("%w: %q", domain.ErrUnknownKnot, target)
	}
	return domain.Address{Knot: knot, Stitch: stitch}, nil
}

// overrides checks host supplied values against the declared variables.
func (e *Engine) overrides(vars map[string]domain.Value) (map[string]domain.Value, error) {
	if len(vars) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make(map[string]domain.Value, len(vars))
	var errs error
	for _, name := range names {
		v := vars[name]
		decl, ok := e.story.Variables[name]
		switch {
		case !ok:
			errs = multierr.Append(errs, &domain.ResolutionError{Kind: domain.ResolveOverride, Name: name, Msg: "not declared"})
		case decl.Kind() == domain.KindFloat && v.Kind() == domain.KindInt:
			out[name] = domain.FloatValue(v.Float())
		case decl.Kind() != v.Kind():
			errs = multierr.Append(errs, &domain.ResolutionError{
				Kind: domain.ResolveOverride,
				Name: name,
				Msg:  fmt.Sprintf("declared as %s, got %s", decl.Kind(), v.Kind()),
			})
		default:
			out[name] = v
		}
	}
	if errs != nil {
		return nil, errs
	}
	return out, nil
}

// Advance produces the next step of the playthrough.
// In awaiting_choice it presents the stored choice set again; once ended it keeps returning the end.
func (e *Engine) Advance(ctx context.Context, state *domain.State) (domain.Step, *domain.State, error) {
	switch state.Status {
	case domain.StatusEnded:
		return domain.Step{Kind: domain.StepEnded}, state, nil
	case domain.StatusAwaitingChoice:
		return domain.Step{Kind: domain.StepChoices, Choices: options(state.Presented)}, state, nil
	}

	r := e.newRun(ctx, state)
	step, err := r.advance()
	if err != nil {
		return domain.Step{}, state, err
	}
	r.flush()
	return step, r.st, nil
}

// Select takes the presented choice at index. The choice content, if any, is the next line.
func (e *Engine) Select(ctx context.Context, state *domain.State, index int) (*domain.State, error) {
	if state.Status != domain.StatusAwaitingChoice {
		return state, domain.ErrNotAwaitingChoice
	}
	if index < 0 || index >= len(state.Presented) {
		return state, &domain.SelectionError{Index: index, Available: len(state.Presented)}
	}

	r := e.newRun(ctx, state)
	blocks, err := r.blocks()
	if err != nil {
		return state, err
	}
	b := blocks[len(blocks)-1]
	node := r.st.Presented[index].Node
	if node < 0 || node >= len(b) {
		return state, fmt.Errorf("%w: presented choice %d is out of range", domain.ErrInvalidState, node)
	}
	if _, ok := b[node].(*domain.Choice); !ok {
		return state, fmt.Errorf("%w: presented node %d is not a choice", domain.ErrInvalidState, node)
	}

	r.st.Status = domain.StatusAtLine
	r.st.Presented = nil
	if err := r.take(b, node, false); err != nil {
		return state, err
	}
	r.flush()
	return r.st, nil
}

// Check verifies that a state, for instance one loaded from storage, fits the story.
func (e *Engine) Check(state *domain.State) error {
	if state == nil {
		return fmt.Errorf("%w: nil state", domain.ErrInvalidState)
	}
	if state.Status == domain.StatusEnded {
		return nil
	}
	r := &run{e: e, st: state}
	blocks, err := r.blocks()
	if err != nil {
		return err
	}
	b := blocks[len(blocks)-1]
	for _, p := range state.Presented {
		if p.Node < 0 || p.Node >= len(b) {
			return fmt.Errorf("%w: presented choice %d is out of range", domain.ErrInvalidState, p.Node)
		}
		if _, ok := b[p.Node].(*domain.Choice); !ok {
			return fmt.Errorf("%w: presented node %d is not a choice", domain.ErrInvalidState, p.Node)
		}
	}
	for name := range state.Variables {
		if _, ok := e.story.Variables[name]; !ok {
			return fmt.Errorf("%w: override of undeclared variable %q", domain.ErrInvalidState, name)
		}
	}
	return nil
}

func options(presented []domain.PresentedChoice) []domain.ChoiceOption {
	out := make([]domain.ChoiceOption, len(presented))
	for i, p := range presented {
		out[i] = domain.ChoiceOption{Index: i, Text: p.Text, Tags: p.Tags}
	}
	return out
}

// run is the working context of one engine call. It mutates a private clone of the
// state and buffers hook events until the call is known to succeed.
type run struct {
	e      *Engine
	ctx    context.Context
	st     *domain.State
	events []func(context.Context)
	steps  int

	// counted holds alternative spans resolved without advancing their counters.
	counted map[string]bool
	// peeking marks a look-ahead copy whose results are thrown away.
	peeking bool
}

func (e *Engine) newRun(ctx context.Context, state *domain.State) *run {
	return &run{e: e, ctx: ctx, st: state.Clone()}
}

func (r *run) emit(fn func(context.Context)) {
	r.events = append(r.events, fn)
}

var discard = slog.New(slog.DiscardHandler)

func (r *run) log() *slog.Logger {
	if r.peeking {
		return discard
	}
	return r.e.logger
}

func (r *run) flush() {
	for _, fn := range r.events {
		fn(r.ctx)
	}
	r.events = nil
}

func (r *run) emitKnotEnter(knot, stitch string, visits int) {
	hook := r.e.hooks.OnKnotEnter
	if hook == nil {
		return
	}
	ev := &domain.KnotEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventKnotEnter},
		Knot:      knot,
		Stitch:    stitch,
		Visits:    visits,
	}
	r.emit(func(ctx context.Context) { hook(ctx, ev) })
}

func (r *run) emitLine(line domain.Line) {
	hook := r.e.hooks.OnLine
	if hook == nil {
		return
	}
	ev := &domain.LineEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventLine},
		Knot:      r.st.Knot,
		Text:      line.Text,
		Tags:      line.Tags,
	}
	r.emit(func(ctx context.Context) { hook(ctx, ev) })
}

func (r *run) emitChoice(c *domain.Choice, text string) {
	hook := r.e.hooks.OnChoice
	if hook == nil {
		return
	}
	ev := &domain.ChoiceEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventChoice},
		Knot:      r.st.Knot,
		ChoiceID:  c.ID,
		Text:      text,
		Fallback:  c.Fallback,
	}
	r.emit(func(ctx context.Context) { hook(ctx, ev) })
}

func (r *run) emitEnd() {
	hook := r.e.hooks.OnEnd
	if hook == nil {
		return
	}
	ev := &domain.EndEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventEnd},
		Knot:      r.st.Knot,
	}
	r.emit(func(ctx context.Context) { hook(ctx, ev) })
}
