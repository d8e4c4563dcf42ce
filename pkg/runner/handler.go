package runner

import (
	"context"

	"github.com/aretw0/inkwell/pkg/domain"
)

// IOHandler defines the strategy for interacting with the player.
// This allows switching between Text (CLI) and JSON (Structured) modes.
type IOHandler interface {
	// Line presents one line of narrative.
	Line(ctx context.Context, line domain.Line) error

	// Choices presents the current choice set.
	Choices(ctx context.Context, choices []domain.ChoiceOption) error

	// Input reads a response from the player.
	Input(ctx context.Context) (string, error)

	// End notifies the player that the story is over.
	End(ctx context.Context) error

	// SystemOutput presents a meta-message to the player (e.g. an invalid selection).
	// This is distinct from story content.
	SystemOutput(ctx context.Context, msg string) error
}
