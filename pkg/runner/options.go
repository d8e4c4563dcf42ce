package runner

import (
	"log/slog"
	"strings"

	"github.com/aretw0/inkwell/pkg/ports"
)

// Option configures a Runner.
type Option func(*Runner)

// WithSession saves the playthrough to store under id whenever it waits for
// the player and when it stops. Without it a run is not persisted.
func WithSession(store ports.StateStore, id string) Option {
	return func(r *Runner) {
		r.Store = store
		r.SessionID = id
	}
}

// WithLogger sets the debug logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithInputHandler replaces the default terminal handler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithExitCommands sets the answers that leave the playthrough, compared
// without case. An empty list disables leaving by command.
func WithExitCommands(cmds ...string) Option {
	return func(r *Runner) {
		r.exits = make(map[string]bool, len(cmds))
		for _, c := range cmds {
			r.exits[strings.ToLower(strings.TrimSpace(c))] = true
		}
	}
}
