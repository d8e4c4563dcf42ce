package domain

import (
	"fmt"
	"strings"
)

// Reserved divert targets that end the story.
const (
	TargetEnd  = "END"
	TargetDone = "DONE"
)

// RootKnot is the name of the implicit knot holding content written before the first knot header.
const RootKnot = ""

// Pos is a source position. Line is 1-based, Col is the 1-based byte column.
type Pos struct {
	Line int `json:"line"`
	Col  int `json:"col"`
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Story is the parsed graph. It is immutable after compilation and safe to share
// between any number of playthroughs.
type Story struct {
	// Knots maps knot names to knots. Content before the first knot header lives
	// under RootKnot.
	Knots map[string]*Knot

	// Order lists named knots in declaration order.
	Order []string

	// Variables holds the declared initial values.
	Variables map[string]Value
}

// NewStory creates an empty story.
func NewStory() *Story {
	return &Story{
		Knots:     make(map[string]*Knot),
		Variables: make(map[string]Value),
	}
}

// Knot returns the knot with the given name.
func (s *Story) Knot(name string) (*Knot, bool) {
	k, ok := s.Knots[name]
	return k, ok
}

// Stitch resolves a knot and stitch pair. An empty stitch name is the knot's default stitch.
func (s *Story) Stitch(knot, stitch string) (*Stitch, bool) {
	k, ok := s.Knots[knot]
	if !ok {
		return nil, false
	}
	if stitch == "" {
		return k.Root, true
	}
	st, ok := k.Stitches[stitch]
	return st, ok
}

// Knot is a top-level named section of the story.
type Knot struct {
	Name string
	Tags []string
	Pos  Pos

	// Root holds the content written directly under the knot header.
	Root *Stitch

	Stitches    map[string]*Stitch
	StitchOrder []string
}

// NewKnot creates a knot with an empty default stitch.
func NewKnot(name string, pos Pos) *Knot {
	return &Knot{
		Name:     name,
		Pos:      pos,
		Root:     &Stitch{Knot: name, Pos: pos},
		Stitches: make(map[string]*Stitch),
	}
}

// Entry returns the stitch name playback starts from when the knot itself is targeted.
// A knot without default content starts at its first stitch.
func (k *Knot) Entry() string {
	if len(k.Root.Content) == 0 && len(k.StitchOrder) > 0 {
		return k.StitchOrder[0]
	}
	return ""
}

// Stitch is a named sub-section of a knot.
type Stitch struct {
	Knot    string
	Name    string
	Pos     Pos
	Content Block
}

// Address identifies a resolved divert destination.
type Address struct {
	Knot     string `json:"knot,omitempty"`
	Stitch   string `json:"stitch,omitempty"`
	Terminal bool   `json:"terminal,omitempty"`
}

func (a Address) String() string {
	switch {
	case a.Terminal:
		return TargetEnd
	case a.Stitch != "":
		return a.Knot + "." + a.Stitch
	default:
		return a.Knot
	}
}

// VisitKey returns the key used for visit counting of a knot or stitch.
func VisitKey(knot, stitch string) string {
	if stitch == "" {
		return knot
	}
	return knot + "." + stitch
}

// SplitPath splits "knot.stitch" into its parts. The stitch part is empty when absent.
func SplitPath(path string) (knot, stitch string) {
	knot, stitch, _ = strings.Cut(path, ".")
	return knot, stitch
}

// IsTerminal reports whether a raw divert target is one of the reserved end markers.
func IsTerminal(target string) bool {
	return target == TargetEnd || target == TargetDone
}
