package domain

// NodeKind names the variant of a Node.
type NodeKind string

const (
	NodeText   NodeKind = "text"
	NodeChoice NodeKind = "choice"
	NodeGather NodeKind = "gather"
	NodeDivert NodeKind = "divert"
)

// Block is an ordered sequence of nodes. Order is playback order.
type Block []Node

// Node is a closed sum type over *Text, *Choice, *Gather and *Divert.
// Consumers switch on the concrete type.
type Node interface {
	Kind() NodeKind
	Position() Pos
	node()
}

// Text is a line of narrative.
type Text struct {
	Markup Markup
	Tags   []string
	Pos    Pos

	// GlueBegin and GlueEnd are set by a leading or trailing "<>".
	GlueBegin bool
	GlueEnd   bool
}

// Choice is a branch offered to the player.
type Choice struct {
	// ID is the stable identity used to remember consumed choices.
	ID string

	// Selection is the text shown in the choice list.
	Selection Markup
	// Content is the text appended to the narrative once chosen.
	Content Markup

	Depth      int
	Sticky     bool
	Fallback   bool
	Conditions []Expr
	Tags       []string
	Pos        Pos

	// Block is only reached when the choice is selected.
	Block Block
}

// Gather rejoins the choice branches opened at its depth or deeper.
type Gather struct {
	Depth int
	Pos   Pos
	Block Block
}

// Divert jumps to another knot or stitch, or ends the story.
type Divert struct {
	// Target is the address as written in the source.
	Target string
	// Address is filled in by validation.
	Address   Address
	Condition Expr
	Pos       Pos
}

func (*Text) Kind() NodeKind   { return NodeText }
func (*Choice) Kind() NodeKind { return NodeChoice }
func (*Gather) Kind() NodeKind { return NodeGather }
func (*Divert) Kind() NodeKind { return NodeDivert }

func (n *Text) Position() Pos   { return n.Pos }
func (n *Choice) Position() Pos { return n.Pos }
func (n *Gather) Position() Pos { return n.Pos }
func (n *Divert) Position() Pos { return n.Pos }

func (*Text) node()   {}
func (*Choice) node() {}
func (*Gather) node() {}
func (*Divert) node() {}

// Inner returns the nested block of a Choice or Gather, and false for other nodes.
func Inner(n Node) (Block, bool) {
	switch v := n.(type) {
	case *Choice:
		return v.Block, true
	case *Gather:
		return v.Block, true
	default:
		return nil, false
	}
}

// Walk visits every node of the block depth-first, in playback order.
func Walk(b Block, fn func(Node)) {
	for _, n := range b {
		fn(n)
		if inner, ok := Inner(n); ok {
			Walk(inner, fn)
		}
	}
}
