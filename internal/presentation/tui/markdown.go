package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// NewMarkdownRenderer returns a function that renders story lines as markdown, so that
// *emphasis* and `code` written in the story show up styled in the terminal.
func NewMarkdownRenderer() (func(string) (string, error), error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(0),
	)
	if err != nil {
		return nil, err
	}
	return func(text string) (string, error) {
		out, err := r.Render(text)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(out), nil
	}, nil
}
