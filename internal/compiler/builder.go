package compiler

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/aretw0/inkwell/pkg/domain"
	"go.uber.org/multierr"
)

// frame is an open block on the weave stack. level is the choice depth whose content
// goes into block: 0 for the stitch itself, d for the body of a depth-d choice.
type frame struct {
	level int
	block *domain.Block
}

type builder struct {
	story  *domain.Story
	knot   *domain.Knot
	frames []frame

	// tags waits for the next content line.
	tags []string
	// header is set right after a knot header, where tag-only lines belong to the knot.
	header bool

	varLines map[string]int
	errs     error
}

func newBuilder() *builder {
	s := domain.NewStory()
	root := domain.NewKnot(domain.RootKnot, domain.Pos{Line: 1, Col: 1})
	s.Knots[domain.RootKnot] = root
	b := &builder{story: s, varLines: make(map[string]int)}
	b.enter(root, root.Root)
	return b
}

func (b *builder) fail(line int, format string, args ...any) {
	b.errs = multierr.Append(b.errs, &domain.ParseError{Line: line, Msg: fmt.Sprintf(format, args...)})
}

func (b *builder) enter(k *domain.Knot, st *domain.Stitch) {
	b.knot = k
	b.frames = []frame{{level: 0, block: &st.Content}}
	b.tags = nil
	b.header = false
}

func (b *builder) top() frame { return b.frames[len(b.frames)-1] }

// popTo closes every frame deeper than level.
func (b *builder) popTo(level int) {
	for len(b.frames) > 1 && b.top().level > level {
		b.frames = b.frames[:len(b.frames)-1]
	}
}

func (b *builder) add(l Line) {
	switch l.Kind {
	case LineEmpty:
		return
	case LineTags:
		if b.header {
			b.knot.Tags = append(b.knot.Tags, l.Tags...)
		} else {
			b.tags = append(b.tags, l.Tags...)
		}
		return
	case LineVar:
		b.variable(l)
		return
	case LineKnot:
		b.knotHeader(l)
		return
	case LineStitch:
		b.stitchHeader(l)
		return
	}

	b.header = false
	tags := append(b.tags, l.Tags...)
	b.tags = nil

	switch l.Kind {
	case LineChoice:
		b.choice(l, tags)
	case LineGather:
		b.gather(l, tags)
	default:
		b.content(b.top().block, l, tags)
	}
}

func (b *builder) variable(l Line) {
	if _, dup := b.story.Variables[l.Name]; dup {
		b.fail(l.No, "duplicate variable %q (first declared on line %d)", l.Name, b.varLines[l.Name])
		return
	}
	b.story.Variables[l.Name] = l.Value
	b.varLines[l.Name] = l.No
}

func (b *builder) knotHeader(l Line) {
	k := domain.NewKnot(l.Name, domain.Pos{Line: l.No, Col: l.Col})
	k.Tags = append(b.tags, l.Tags...)
	switch _, dup := b.story.Knots[l.Name]; {
	case domain.IsTerminal(l.Name):
		b.fail(l.No, "%q is a reserved name", l.Name)
	case dup:
		b.fail(l.No, "duplicate knot %q", l.Name)
	default:
		b.story.Knots[l.Name] = k
		b.story.Order = append(b.story.Order, l.Name)
	}
	// A rejected header still opens a detached knot so its content is checked but dropped.
	b.enter(k, k.Root)
	b.header = true
}

func (b *builder) stitchHeader(l Line) {
	st := &domain.Stitch{Knot: b.knot.Name, Name: l.Name, Pos: domain.Pos{Line: l.No, Col: l.Col}}
	switch _, dup := b.knot.Stitches[l.Name]; {
	case b.knot.Name == domain.RootKnot:
		b.fail(l.No, "stitch %q is outside of a knot", l.Name)
	case domain.IsTerminal(l.Name):
		b.fail(l.No, "%q is a reserved name", l.Name)
	case dup:
		b.fail(l.No, "duplicate stitch %q in knot %q", l.Name, b.knot.Name)
	default:
		b.knot.Stitches[l.Name] = st
		b.knot.StitchOrder = append(b.knot.StitchOrder, l.Name)
	}
	b.enter(b.knot, st)
	b.tags = l.Tags
}

func (b *builder) choice(l Line, tags []string) {
	if l.Depth > b.top().level+1 {
		b.fail(l.No, "choice of depth %d is nested in a depth %d block", l.Depth, b.top().level)
		return
	}
	b.popTo(l.Depth - 1)
	pos := domain.Pos{Line: l.No, Col: l.Col}
	c := &domain.Choice{
		ID:         pos.String(),
		Selection:  l.Selection,
		Content:    l.Content,
		Depth:      l.Depth,
		Sticky:     l.Sticky,
		Fallback:   l.Fallback,
		Conditions: l.Conditions,
		Tags:       tags,
		Pos:        pos,
	}
	parent := b.top().block
	*parent = append(*parent, c)
	c.Block = append(c.Block, diverts(l)...)
	b.frames = append(b.frames, frame{level: l.Depth, block: &c.Block})
}

func (b *builder) gather(l Line, tags []string) {
	if l.Depth-1 > b.top().level {
		b.fail(l.No, "gather of depth %d has no choices to collect", l.Depth)
		return
	}
	b.popTo(l.Depth - 1)
	g := &domain.Gather{Depth: l.Depth, Pos: domain.Pos{Line: l.No, Col: l.Col}}
	parent := b.top().block
	*parent = append(*parent, g)
	b.frames = append(b.frames, frame{level: l.Depth - 1, block: &g.Block})
	b.content(&g.Block, l, tags)
}

// content appends the text and divert parts of a line to blk.
func (b *builder) content(blk *domain.Block, l Line, tags []string) {
	if len(l.Text) > 0 {
		*blk = append(*blk, &domain.Text{
			Markup:    l.Text,
			Tags:      tags,
			Pos:       domain.Pos{Line: l.No, Col: l.Col},
			GlueBegin: l.GlueBegin,
			GlueEnd:   l.GlueEnd,
		})
	} else if len(tags) > 0 {
		b.tags = tags
	}
	*blk = append(*blk, diverts(l)...)
}

// diverts expands a line's divert. A conditional divert with an else branch becomes two
// guarded diverts, the second one taken when the condition does not hold.
func diverts(l Line) []domain.Node {
	if l.Divert == nil {
		return nil
	}
	nodes := []domain.Node{&domain.Divert{Target: l.Divert.Path, Condition: l.Condition, Pos: l.Divert.Pos}}
	if l.Else != nil {
		nodes = append(nodes, &domain.Divert{
			Target:    l.Else.Path,
			Condition: &domain.Unary{Op: "not", X: l.Condition, Pos: l.Else.Pos},
			Pos:       l.Else.Pos,
		})
	}
	return nodes
}

// finish runs the checks that need the whole document.
func (b *builder) finish() {
	names := make([]string, 0, len(b.varLines))
	for name := range b.varLines {
		names = append(names, name)
	}
	slices.SortFunc(names, func(x, y string) int { return cmp.Compare(b.varLines[x], b.varLines[y]) })
	for _, name := range names {
		if _, ok := b.story.Knots[name]; ok {
			b.fail(b.varLines[name], "variable %q has the same name as a knot", name)
		}
	}
}
