package runtime

import (
	"fmt"
	"strings"

	"github.com/aretw0/inkwell/pkg/domain"
)

// advance walks nodes from the current location until something is produced.
func (r *run) advance() (domain.Step, error) {
	st := r.st
	for {
		if p := st.Pending; p != nil {
			st.Pending = nil
			line := *p
			line.Glue = line.Glue || r.glueAhead()
			r.emitLine(line)
			return domain.Step{Kind: domain.StepLine, Line: &line}, nil
		}

		r.steps++
		if r.steps > r.e.maxSteps {
			return domain.Step{}, &domain.LoopError{Steps: r.e.maxSteps, Knot: st.Knot, Stitch: st.Stitch}
		}
		if err := r.ctx.Err(); err != nil {
			return domain.Step{}, err
		}

		blocks, err := r.blocks()
		if err != nil {
			return domain.Step{}, err
		}
		top := len(st.Stack) - 1
		b, cur := blocks[top], st.Stack[top]

		if cur >= len(b) {
			if top == 0 {
				r.end()
				return domain.Step{Kind: domain.StepEnded}, nil
			}
			r.pop(blocks[top-1])
			continue
		}

		switch n := b[cur].(type) {
		case *domain.Text:
			text, err := r.resolve(n.Markup)
			if err != nil {
				return domain.Step{}, err
			}
			st.Stack[top]++
			line := domain.Line{Text: text, Tags: n.Tags, GlueBefore: n.GlueBegin}
			line.Glue = n.GlueEnd || r.glueAhead()
			r.emitLine(line)
			return domain.Step{Kind: domain.StepLine, Line: &line}, nil

		case *domain.Gather:
			st.Stack = append(st.Stack, 0)

		case *domain.Divert:
			if n.Condition != nil {
				ok, err := r.truthy(n.Condition)
				if err != nil {
					return domain.Step{}, err
				}
				if !ok {
					st.Stack[top]++
					continue
				}
			}
			if n.Address.Terminal {
				r.end()
				return domain.Step{Kind: domain.StepEnded}, nil
			}
			r.enter(n.Address, false)

		case *domain.Choice:
			step, ok, err := r.choicePoint(b, cur)
			if err != nil {
				return domain.Step{}, err
			}
			if ok {
				return step, nil
			}
		}
	}
}

// pop leaves a finished choice or gather block. A finished choice branch continues
// after the whole choice set it belongs to.
func (r *run) pop(parent domain.Block) {
	st := r.st
	st.Stack = st.Stack[:len(st.Stack)-1]
	i := len(st.Stack) - 1
	if _, ok := parent[st.Stack[i]].(*domain.Choice); ok {
		st.Stack[i] = skipChoices(parent, st.Stack[i])
		return
	}
	st.Stack[i]++
}

func skipChoices(b domain.Block, i int) int {
	for i < len(b) {
		if _, ok := b[i].(*domain.Choice); !ok {
			break
		}
		i++
	}
	return i
}

// glueAhead reports whether the next line the playthrough will produce starts with glue.
// It walks a throwaway copy of the state, so diverts, gathers and finished branches are
// followed without touching counters or firing hooks. A choice set, the end or an error
// in between means no glue.
func (r *run) glueAhead() bool {
	if r.peeking {
		return false
	}
	peek := &run{e: r.e, ctx: r.ctx, st: r.st.Clone(), peeking: true}
	step, err := peek.advance()
	return err == nil && step.Kind == domain.StepLine && step.Line.GlueBefore
}

// choicePoint presents the choice set starting at cur. When nothing is visible it takes
// the first available fallback and reports ok=false so the walk goes on.
func (r *run) choicePoint(b domain.Block, cur int) (domain.Step, bool, error) {
	st := r.st
	end := skipChoices(b, cur)
	fallback := -1
	var presented []domain.PresentedChoice

	for i := cur; i < end; i++ {
		c := b[i].(*domain.Choice)
		if !c.Sticky && st.Consumed[c.ID] {
			continue
		}
		ok, err := r.conditions(c)
		if err != nil {
			return domain.Step{}, false, err
		}
		if !ok {
			continue
		}
		if c.Fallback {
			if fallback < 0 {
				fallback = i
			}
			continue
		}
		text, err := r.resolve(c.Selection)
		if err != nil {
			return domain.Step{}, false, err
		}
		presented = append(presented, domain.PresentedChoice{Node: i, Text: strings.TrimSpace(text), Tags: c.Tags})
	}

	if len(presented) > 0 {
		st.Status = domain.StatusAwaitingChoice
		st.Presented = presented
		return domain.Step{Kind: domain.StepChoices, Choices: options(presented)}, true, nil
	}
	if fallback >= 0 {
		r.log().DebugContext(r.ctx, "fallback choice taken", "knot", st.Knot, "choice", b[fallback].(*domain.Choice).ID)
		return domain.Step{}, false, r.take(b, fallback, true)
	}
	return domain.Step{}, false, fmt.Errorf("%w at %s (line %d)",
		domain.ErrOutOfChoices, domain.VisitKey(st.Knot, st.Stitch), b[cur].Position().Line)
}

func (r *run) conditions(c *domain.Choice) (bool, error) {
	for _, cond := range c.Conditions {
		ok, err := r.truthy(cond)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// take enters the choice at index i of the current block.
func (r *run) take(b domain.Block, i int, fallback bool) error {
	st := r.st
	c := b[i].(*domain.Choice)
	if !fallback {
		// The list text already counted the spans it shares with the content.
		r.counted = alternatives(c.Selection)
		defer func() { r.counted = nil }()
	}
	text, err := r.resolve(c.Content)
	if err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if !c.Sticky {
		st.Consumed[c.ID] = true
	}
	if text != "" {
		st.Pending = &domain.Line{Text: text, Tags: c.Tags}
	}
	top := len(st.Stack) - 1
	st.Stack[top] = i
	st.Stack = append(st.Stack, 0)
	if !fallback {
		r.log().DebugContext(r.ctx, "choice selected", "knot", st.Knot, "choice", c.ID)
	}
	r.emitChoice(c, text)
	return nil
}

// enter moves to a knot or stitch. Entering a knot by name, or from another knot,
// counts a knot visit; entering a stitch counts a stitch visit.
func (r *run) enter(addr domain.Address, start bool) {
	st := r.st
	k, _ := r.e.story.Knot(addr.Knot)
	stitch := addr.Stitch
	knotVisit := start || addr.Stitch == "" || addr.Knot != st.Knot
	if stitch == "" && k != nil {
		stitch = k.Entry()
	}
	if !start {
		r.log().DebugContext(r.ctx, "divert", "from", domain.VisitKey(st.Knot, st.Stitch), "to", domain.VisitKey(addr.Knot, stitch))
	}

	st.Knot, st.Stitch = addr.Knot, stitch
	st.Stack = []int{0}

	if addr.Knot == domain.RootKnot {
		return
	}
	if knotVisit {
		st.Visits[addr.Knot]++
	}
	if stitch != "" {
		st.Visits[domain.VisitKey(addr.Knot, stitch)]++
	}
	r.emitKnotEnter(addr.Knot, stitch, st.Visits[domain.VisitKey(addr.Knot, stitch)])
}

func (r *run) end() {
	r.st.Status = domain.StatusEnded
	r.st.Presented = nil
	r.log().DebugContext(r.ctx, "story ended", "knot", r.st.Knot)
	r.emitEnd()
}

// blocks returns the block behind each cursor of the location stack, outermost first.
func (r *run) blocks() ([]domain.Block, error) {
	st := r.st
	stitch, ok := r.e.story.Stitch(st.Knot, st.Stitch)
	if !ok {
		return nil, fmt.Errorf("%w: unknown location %q", domain.ErrInvalidState, domain.VisitKey(st.Knot, st.Stitch))
	}
	if len(st.Stack) == 0 {
		return nil, fmt.Errorf("%w: empty location stack", domain.ErrInvalidState)
	}
	out := make([]domain.Block, len(st.Stack))
	b := stitch.Content
	for i, cur := range st.Stack {
		out[i] = b
		if i == len(st.Stack)-1 {
			break
		}
		if cur < 0 || cur >= len(b) {
			return nil, fmt.Errorf("%w: cursor %d out of range", domain.ErrInvalidState, cur)
		}
		inner, ok := domain.Inner(b[cur])
		if !ok {
			return nil, fmt.Errorf("%w: cursor %d does not open a block", domain.ErrInvalidState, cur)
		}
		b = inner
	}
	if cur := st.Stack[len(st.Stack)-1]; cur < 0 {
		return nil, fmt.Errorf("%w: negative cursor", domain.ErrInvalidState)
	}
	return out, nil
}
