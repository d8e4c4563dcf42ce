package ports

import (
	"context"

	"github.com/aretw0/inkwell/pkg/domain"
)

// StatelessEngine defines the interface for story players that do not keep playthrough state.
// This is the primary interface used by adapters (e.g., HTTP, session manager) that manage state externally or per-request.
type StatelessEngine interface {
	// NewState creates the state of a fresh playthrough starting at knot ("" for the default start).
	NewState(ctx context.Context, knot string, vars map[string]domain.Value) (*domain.State, error)

	// Advance produces the next step and the state after it.
	Advance(ctx context.Context, state *domain.State) (domain.Step, *domain.State, error)

	// Select takes a presented choice and returns the state after it.
	Select(ctx context.Context, state *domain.State, index int) (*domain.State, error)

	// Check verifies that a loaded state belongs to the story.
	Check(state *domain.State) error

	// Story returns the parsed story for introspection.
	Story() *domain.Story
}
