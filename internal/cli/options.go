package cli

import (
	"io"
	"os"
)

// RunOptions configures an interactive playthrough started from the command line.
type RunOptions struct {
	StoryPath string
	// SessionID makes the playthrough resumable. The state is saved after every choice.
	SessionID string
	// Knot overrides the start location ("knot" or "knot.stitch").
	Knot string
	// Variables override declared variables, on top of the configured defaults.
	Variables map[string]any

	JSON     bool
	Quiet    bool
	Markdown bool
	Tags     bool
	Debug    bool

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func (o *RunOptions) streams() {
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
}
