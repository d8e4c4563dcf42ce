package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Inkwell banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	// Ink blue fading into violet
	rows := []struct {
		text  string
		color string
	}{
		{" _       _                   _ _ ", "#60a5fa"},
		{"(_)_ __ | | ____      _____| | |", "#818cf8"},
		{"| | '_ \\| |/ /\\ \\ /\\ / / _ \\ | |", "#a78bfa"},
		{"| | | | |   <  \\ V  V /  __/ | |", "#c084fc"},
		{"|_|_| |_|_|\\_\\  \\_/\\_/ \\___|_|_|", "#e879f9"},
	}

	fmt.Fprintln(w)
	for _, r := range rows {
		fmt.Fprintln(w, out.String(r.text).Foreground(out.Color(r.color)))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, out.String("v"+v).Faint())
	}
	fmt.Fprintln(w)
}
