package runtime

import (
	"strings"

	"github.com/aretw0/inkwell/pkg/domain"
)

// resolve renders markup to text against the working state.
// Alternatives advance their counters as a side effect; callers discard the whole
// working state on error, so partial increments never leak. Spans listed in
// r.counted were advanced earlier in the same visit and reuse that count.
func (r *run) resolve(m domain.Markup) (string, error) {
	var sb strings.Builder
	if err := r.write(&sb, m); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (r *run) write(sb *strings.Builder, m domain.Markup) error {
	for _, span := range m {
		switch v := span.(type) {
		case *domain.Literal:
			sb.WriteString(v.Text)
		case *domain.Interpolation:
			val, err := r.eval(v.Expr)
			if err != nil {
				return err
			}
			sb.WriteString(val.String())
		case *domain.Conditional:
			ok, err := r.truthy(v.Condition)
			if err != nil {
				return err
			}
			branch := v.Else
			if ok {
				branch = v.Then
			}
			if err := r.write(sb, branch); err != nil {
				return err
			}
		case *domain.Alternative:
			count := r.st.Sequences[v.ID]
			if r.counted[v.ID] {
				count = max(count-1, 0)
			} else {
				r.st.Sequences[v.ID] = count + 1
			}
			if i := v.Pick(count); i >= 0 {
				if err := r.write(sb, v.Items[i]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// alternatives collects the IDs of every alternative span in m, nested ones included.
func alternatives(m domain.Markup) map[string]bool {
	ids := make(map[string]bool)
	var walk func(domain.Markup)
	walk = func(m domain.Markup) {
		for _, span := range m {
			switch v := span.(type) {
			case *domain.Conditional:
				walk(v.Then)
				walk(v.Else)
			case *domain.Alternative:
				ids[v.ID] = true
				for _, item := range v.Items {
					walk(item)
				}
			}
		}
	}
	walk(m)
	return ids
}
