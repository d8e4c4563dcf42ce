package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// Status defines where a playthrough stands between calls.
type Status string

const (
	StatusAtLine         Status = "at_line"         // Ready to produce the next line
	StatusAwaitingChoice Status = "awaiting_choice" // A choice set was presented, waiting for Select
	StatusEnded          Status = "ended"           // A terminal divert or the end of the root block was reached
)

// State represents the serialisable snapshot of a playthrough.
// Restoring a State against the same Story reproduces the playthrough exactly.
type State struct {
	Status Status `json:"status"`

	// Knot and Stitch locate the block being played. Stitch is empty for the knot's own content.
	Knot   string `json:"knot"`
	Stitch string `json:"stitch,omitempty"`

	// Stack holds one cursor per entered block, outermost first. The first entry indexes the
	// stitch block, deeper entries index the blocks of entered choices and gathers.
	Stack []int `json:"stack"`

	// Sequences counts how many times each alternative span was shown, keyed by span ID.
	Sequences map[string]int `json:"sequences,omitempty"`

	// Visits counts entries into knots and stitches, keyed by VisitKey.
	Visits map[string]int `json:"visits,omitempty"`

	// Consumed holds the IDs of non-sticky choices that were already selected.
	Consumed map[string]bool `json:"consumed,omitempty"`

	// Presented is the choice set offered while awaiting a choice.
	Presented []PresentedChoice `json:"presented,omitempty"`

	// Pending is the content line of the last selected choice, emitted by the next Advance.
	Pending *Line `json:"pending,omitempty"`

	// Variables holds host overrides of declared variables.
	Variables map[string]Value `json:"variables,omitempty"`
}

// PresentedChoice is one entry of the presented set.
type PresentedChoice struct {
	// Node is the index of the choice in the current block.
	Node int      `json:"node"`
	Text string   `json:"text"`
	Tags []string `json:"tags,omitempty"`
}

// NewState creates a clean state positioned at the start of a knot or stitch.
func NewState(knot, stitch string) *State {
	return &State{
		Status:    StatusAtLine,
		Knot:      knot,
		Stitch:    stitch,
		Stack:     []int{0},
		Sequences: make(map[string]int),
		Visits:    make(map[string]int),
		Consumed:  make(map[string]bool),
	}
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	c.Stack = slices.Clone(s.Stack)
	c.Sequences = cloneMap(s.Sequences)
	c.Visits = cloneMap(s.Visits)
	c.Consumed = cloneMap(s.Consumed)
	c.Variables = maps.Clone(s.Variables)
	if s.Presented != nil {
		c.Presented = make([]PresentedChoice, len(s.Presented))
		for i, p := range s.Presented {
			p.Tags = slices.Clone(p.Tags)
			c.Presented[i] = p
		}
	}
	if s.Pending != nil {
		l := *s.Pending
		l.Tags = slices.Clone(l.Tags)
		c.Pending = &l
	}
	return &c
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return make(map[K]V)
	}
	return maps.Clone(m)
}

// Encode serialises the state to JSON.
func (s *State) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// DecodeState parses a state produced by Encode.
func DecodeState(data []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if err := s.check(); err != nil {
		return nil, err
	}
	if s.Sequences == nil {
		s.Sequences = make(map[string]int)
	}
	if s.Visits == nil {
		s.Visits = make(map[string]int)
	}
	if s.Consumed == nil {
		s.Consumed = make(map[string]bool)
	}
	return &s, nil
}

func (s *State) check() error {
	switch s.Status {
	case StatusAtLine, StatusEnded:
	case StatusAwaitingChoice:
		if len(s.Presented) == 0 {
			return fmt.Errorf("%w: awaiting a choice with no presented choices", ErrInvalidState)
		}
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidState, s.Status)
	}
	if s.Status != StatusEnded && len(s.Stack) == 0 {
		return fmt.Errorf("%w: empty location stack", ErrInvalidState)
	}
	for _, c := range s.Stack {
		if c < 0 {
			return fmt.Errorf("%w: negative cursor %d", ErrInvalidState, c)
		}
	}
	return nil
}
