package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/inkwell/internal/presentation/tui"
	"github.com/aretw0/inkwell/pkg/domain"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// ContentRenderer transforms a line before it is written, for instance to render markdown.
type ContentRenderer func(string) (string, error)

// TextHandler implements the standard text-based interface.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer

	styles   *tui.Styles
	showTags bool
	// echo repeats answers read from a pipe so that transcripts show them.
	echo bool
	// glued is set while the last line asked to be joined with the next one.
	glued bool

	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithTags prints line tags after the line text.
func WithTags(show bool) TextHandlerOption {
	return func(h *TextHandler) {
		h.showTags = show
	}
}

// WithColorProfile overrides the detected colour profile of the writer.
func WithColorProfile(p termenv.Profile) TextHandlerOption {
	return func(h *TextHandler) {
		h.styles = tui.NewStyles(h.Writer, termenv.WithProfile(p))
	}
}

// WithEcho forces echoing of answers, which is otherwise enabled only when the
// reader is not a terminal.
func WithEcho(echo bool) TextHandlerOption {
	return func(h *TextHandler) {
		h.echo = echo
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
		echo:   !isTerminal(r),
	}
	h.styles = tui.NewStyles(w)

	for _, opt := range opts {
		opt(h)
	}
	return h
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')

		// If we got text (even with EOF), send it
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}

		if err != nil {
			if err == io.EOF {
				close(h.inputChan)
				return
			}
			h.inputChan <- inputResult{err: err}
			// Backoff for non-fatal errors to prevent CPU spikes on persistent failure
			time.Sleep(50 * time.Millisecond)
		}
	}
}

// Line writes one line. A glued line is followed by the next one on the same row.
func (h *TextHandler) Line(ctx context.Context, line domain.Line) error {
	output := line.Text
	if h.Renderer != nil {
		if rendered, err := h.Renderer(output); err == nil {
			output = rendered
		}
	}
	if h.showTags && len(line.Tags) > 0 {
		output += " " + h.styles.Tags(line.Tags)
	}

	h.glued = line.Glue
	if line.Glue {
		_, err := fmt.Fprint(h.Writer, output)
		return err
	}
	_, err := fmt.Fprintln(h.Writer, output)
	return err
}

func (h *TextHandler) breakGlue() {
	if h.glued {
		fmt.Fprintln(h.Writer)
		h.glued = false
	}
}

func (h *TextHandler) Choices(ctx context.Context, choices []domain.ChoiceOption) error {
	h.breakGlue()
	for i, c := range choices {
		if _, err := fmt.Fprintln(h.Writer, h.styles.Choice(i+1, c.Text)); err != nil {
			return err
		}
	}
	return nil
}

func (h *TextHandler) Input(ctx context.Context) (string, error) {
	// Ensure the pump is running
	h.initPump()

	for {
		// Only show prompt if context is not yet done
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
			fmt.Fprint(h.Writer, "> ")
		}

		select {
		case <-ctx.Done():
			// Important: don't print anything here, just exit silently
			return "", ctx.Err()
		case res, ok := <-h.inputChan:
			if !ok {
				return "", io.EOF
			}
			if res.err != nil {
				return "", res.err
			}
			text := strings.TrimSpace(res.text)
			if h.echo {
				fmt.Fprintln(h.Writer, text)
			}

			clean, err := SanitizeInput(text)
			if err != nil {
				// User Feedback: Prompt retry
				fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
				continue
			}
			return clean, nil
		}
	}
}

func (h *TextHandler) End(ctx context.Context) error {
	h.breakGlue()
	_, err := fmt.Fprintf(h.Writer, "\n%s\n", h.styles.End())
	return err
}

func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	h.breakGlue()
	_, err := fmt.Fprintln(h.Writer, h.styles.System(msg))
	return err
}
