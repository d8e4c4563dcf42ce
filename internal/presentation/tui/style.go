package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// Styles decorates playback output. Colours are only emitted when the writer is a
// terminal that supports them.
type Styles struct {
	out *termenv.Output
}

// NewStyles detects the colour profile of w.
func NewStyles(w io.Writer, opts ...termenv.OutputOption) *Styles {
	return &Styles{out: termenv.NewOutput(w, opts...)}
}

// Choice renders a numbered choice. Numbers start at 1.
func (s *Styles) Choice(number int, text string) string {
	n := s.out.String(fmt.Sprintf("%d)", number)).Foreground(s.out.Color("#818cf8")).Bold()
	return fmt.Sprintf("%s %s", n, text)
}

// Tags renders line tags as "# a # b".
func (s *Styles) Tags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return s.out.String("# " + strings.Join(tags, " # ")).Faint().String()
}

// System renders a message that is not part of the story.
func (s *Styles) System(msg string) string {
	return s.out.String("[" + msg + "]").Italic().Foreground(s.out.Color("#fb7185")).String()
}

// End renders the end of story marker.
func (s *Styles) End() string {
	return s.out.String("THE END").Bold().String()
}
