package domain

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrNotAwaitingChoice is returned by Select when no choice set is being presented.
var ErrNotAwaitingChoice = errors.New("not awaiting a choice")

// ErrOutOfChoices is returned when a choice point has neither visible choices nor a fallback.
var ErrOutOfChoices = errors.New("out of choices")

// ErrUnknownKnot is returned when a start location does not exist in the story.
var ErrUnknownKnot = errors.New("unknown knot")

// ErrInvalidState is returned when a state cannot be decoded or does not fit the story.
var ErrInvalidState = errors.New("invalid state")

// ParseError reports malformed source.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// ResolutionKind names what could not be resolved.
type ResolutionKind string

const (
	ResolveDivert   ResolutionKind = "divert"
	ResolveName     ResolutionKind = "name"
	ResolveOverride ResolutionKind = "override"
)

// ResolutionError reports a divert target or a name that does not exist.
type ResolutionError struct {
	Line int
	Kind ResolutionKind
	Name string
	// Knot is the knot the reference was written in.
	Knot string
	// Msg optionally refines the reason.
	Msg string
}

func (e *ResolutionError) Error() string {
	var what string
	switch e.Kind {
	case ResolveDivert:
		what = fmt.Sprintf("unknown divert target %q", e.Name)
	case ResolveOverride:
		what = fmt.Sprintf("invalid variable override %q", e.Name)
	default:
		what = fmt.Sprintf("unknown name %q", e.Name)
	}
	if e.Msg != "" {
		what += ": " + e.Msg
	}
	if e.Line == 0 {
		return what
	}
	if e.Knot != "" {
		return fmt.Sprintf("line %d (knot %s): %s", e.Line, e.Knot, what)
	}
	return fmt.Sprintf("line %d: %s", e.Line, what)
}

// SelectionError reports a choice index outside the presented set.
type SelectionError struct {
	Index     int
	Available int
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("invalid choice %d: %d choices available", e.Index, e.Available)
}

// EvalError reports an expression that cannot be evaluated, such as a type mismatch.
type EvalError struct {
	Pos Pos
	Msg string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("eval %s: %s", e.Pos, e.Msg)
}

// LoopError reports a single Advance that walked too many nodes without producing output.
type LoopError struct {
	Steps  int
	Knot   string
	Stitch string
}

func (e *LoopError) Error() string {
	return fmt.Sprintf("no output after %d steps (last at %s)", e.Steps, VisitKey(e.Knot, e.Stitch))
}

// Errors splits an aggregated error into its parts.
func Errors(err error) []error {
	return multierr.Errors(err)
}
