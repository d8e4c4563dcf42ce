package compiler

import (
	"github.com/aretw0/inkwell/pkg/domain"
	"go.uber.org/multierr"
)

// Validate resolves every divert target and every name used in an expression, filling in
// Divert.Address and Ref.Kind/Key. It walks the whole story and reports every failure.
func Validate(s *domain.Story) error {
	v := &validator{story: s, seen: make(map[*domain.Ref]bool)}
	knots := append([]string{domain.RootKnot}, s.Order...)
	for _, name := range knots {
		k := s.Knots[name]
		v.block(k, k.Root.Content)
		for _, sn := range k.StitchOrder {
			v.block(k, k.Stitches[sn].Content)
		}
	}
	return v.errs
}

type validator struct {
	story *domain.Story
	// seen skips refs shared between a choice's list and narrative text.
	seen map[*domain.Ref]bool
	errs error
}

func (v *validator) block(k *domain.Knot, b domain.Block) {
	domain.Walk(b, func(n domain.Node) {
		switch n := n.(type) {
		case *domain.Text:
			v.markup(k, n.Markup)
		case *domain.Choice:
			for _, c := range n.Conditions {
				v.expr(k, c)
			}
			v.markup(k, n.Selection)
			v.markup(k, n.Content)
		case *domain.Divert:
			if n.Condition != nil {
				v.expr(k, n.Condition)
			}
			addr, ok := ResolveTarget(v.story, k.Name, n.Target)
			if !ok {
				v.errs = multierr.Append(v.errs, &domain.ResolutionError{
					Line: n.Pos.Line,
					Kind: domain.ResolveDivert,
					Name: n.Target,
					Knot: k.Name,
				})
				return
			}
			n.Address = addr
		}
	})
}

func (v *validator) markup(k *domain.Knot, m domain.Markup) {
	m.WalkExprs(func(e domain.Expr) { v.expr(k, e) })
}

func (v *validator) expr(k *domain.Knot, e domain.Expr) {
	domain.WalkRefs(e, func(r *domain.Ref) {
		if v.seen[r] {
			return
		}
		v.seen[r] = true
		kind, key, ok := resolveName(v.story, k, r.Name)
		if !ok {
			v.errs = multierr.Append(v.errs, &domain.ResolutionError{
				Line: r.Pos.Line,
				Kind: domain.ResolveName,
				Name: r.Name,
				Knot: k.Name,
			})
			return
		}
		r.Kind, r.Key = kind, key
	})
}

// ResolveTarget resolves a divert target written inside knot: a stitch of that knot first,
// then a knot, then a knot.stitch pair, then END or DONE.
func ResolveTarget(s *domain.Story, knot, target string) (domain.Address, bool) {
	name, stitch := domain.SplitPath(target)
	if stitch == "" {
		if k, ok := s.Knots[knot]; ok && knot != domain.RootKnot {
			if _, ok := k.Stitches[name]; ok {
				return domain.Address{Knot: knot, Stitch: name}, true
			}
		}
		if _, ok := s.Knots[name]; ok && name != domain.RootKnot {
			return domain.Address{Knot: name}, true
		}
		if domain.IsTerminal(name) {
			return domain.Address{Terminal: true}, true
		}
		return domain.Address{}, false
	}
	if name == domain.RootKnot {
		return domain.Address{}, false
	}
	if _, ok := s.Stitch(name, stitch); ok {
		return domain.Address{Knot: name, Stitch: stitch}, true
	}
	return domain.Address{}, false
}

// resolveName binds an expression name to a variable or to the visit count of a
// knot or stitch.
func resolveName(s *domain.Story, k *domain.Knot, name string) (domain.RefKind, string, bool) {
	if _, ok := s.Variables[name]; ok {
		return domain.RefVariable, name, true
	}
	knot, stitch := domain.SplitPath(name)
	if stitch != "" {
		if _, ok := s.Stitch(knot, stitch); ok && knot != domain.RootKnot {
			return domain.RefVisits, name, true
		}
		return domain.RefUnresolved, "", false
	}
	if _, ok := k.Stitches[name]; ok {
		return domain.RefVisits, domain.VisitKey(k.Name, name), true
	}
	if _, ok := s.Knots[name]; ok && name != domain.RootKnot {
		return domain.RefVisits, name, true
	}
	return domain.RefUnresolved, "", false
}
