// Package compiler turns story source into a validated domain.Story.
//
// Compilation runs in three stages: every line is classified on its own, the builder
// assembles knots, stitches and the nested choice/gather weave, and a validation pass
// resolves divert targets and expression names once the whole graph is known.
package compiler

import (
	"strings"

	"github.com/aretw0/inkwell/pkg/domain"
	"go.uber.org/multierr"
)

// Compile parses source into a story. Every error of the document is returned at once,
// combined with multierr; a story is only returned when there are none.
func Compile(source string) (*domain.Story, error) {
	b := newBuilder()
	for i, raw := range strings.Split(source, "\n") {
		l, err := ClassifyLine(i+1, raw)
		if err != nil {
			b.errs = multierr.Append(b.errs, err)
			continue
		}
		b.add(l)
	}
	b.finish()
	if b.errs != nil {
		return nil, b.errs
	}
	if err := Validate(b.story); err != nil {
		return nil, err
	}
	return b.story, nil
}
