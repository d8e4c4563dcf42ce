package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/aretw0/inkwell/pkg/domain"
)

// JSONHandler implements the IOHandler interface for structured JSON-Lines communication.
// Every step is written as one domain.Step object. Answers are read one per line, either
// as a JSON number or string or as raw text.
type JSONHandler struct {
	Reader  *bufio.Reader
	Encoder *json.Encoder
}

// Message is a non-story notice written by the JSONHandler.
type Message struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Encoder: json.NewEncoder(w),
	}
}

func (h *JSONHandler) Line(ctx context.Context, line domain.Line) error {
	return h.Encoder.Encode(domain.Step{Kind: domain.StepLine, Line: &line})
}

func (h *JSONHandler) Choices(ctx context.Context, choices []domain.ChoiceOption) error {
	return h.Encoder.Encode(domain.Step{Kind: domain.StepChoices, Choices: choices})
}

func (h *JSONHandler) End(ctx context.Context) error {
	return h.Encoder.Encode(domain.Step{Kind: domain.StepEnded})
}

func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.Encoder.Encode(Message{Kind: "system", Message: msg})
}

func (h *JSONHandler) Input(ctx context.Context) (string, error) {
	text, err := h.Reader.ReadString('\n')
	if err != nil && (err != io.EOF || text == "") {
		return "", err
	}
	text = strings.TrimSpace(text)

	// Unquote a JSON string, keep numbers and raw text as written
	var val string
	if err := json.Unmarshal([]byte(text), &val); err == nil {
		text = val
	}
	return SanitizeInput(text)
}
