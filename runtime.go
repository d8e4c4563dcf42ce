package inkwell

import (
	"context"

	"github.com/aretw0/inkwell/pkg/domain"
)

// Runtime is one playthrough of a story. It keeps the current state and replaces it
// only when a call succeeds. A Runtime is not safe for concurrent use; pkg/session
// serialises access when playthroughs are shared.
type Runtime struct {
	engine *Engine
	state  *domain.State
}

// Advance returns the next step: a line, the current choice set, or the end.
func (r *Runtime) Advance(ctx context.Context) (domain.Step, error) {
	step, next, err := r.engine.runtime.Advance(ctx, r.state)
	if err != nil {
		return domain.Step{}, err
	}
	r.state = next
	return step, nil
}

// Select picks a presented choice by its index in the last choice set.
func (r *Runtime) Select(ctx context.Context, index int) error {
	next, err := r.engine.runtime.Select(ctx, r.state, index)
	if err != nil {
		return err
	}
	r.state = next
	return nil
}

// Continue advances until the story stops producing lines and returns the lines read
// together with the step that stopped it: a choice set or the end.
func (r *Runtime) Continue(ctx context.Context) ([]domain.Line, domain.Step, error) {
	var lines []domain.Line
	for {
		step, err := r.Advance(ctx)
		if err != nil {
			return lines, domain.Step{}, err
		}
		if step.Kind != domain.StepLine {
			return lines, step, nil
		}
		lines = append(lines, *step.Line)
	}
}

// State returns a copy of the current playthrough state, ready to be saved.
func (r *Runtime) State() *domain.State {
	return r.state.Clone()
}

// Ended reports whether the story has reached its end.
func (r *Runtime) Ended() bool {
	return r.state.Status == domain.StatusEnded
}

// Engine returns the engine the playthrough runs on.
func (r *Runtime) Engine() *Engine {
	return r.engine
}
