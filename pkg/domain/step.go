package domain

import "strings"

// StepKind tells what an Advance call produced.
type StepKind string

const (
	StepLine    StepKind = "line"
	StepChoices StepKind = "choices"
	StepEnded   StepKind = "ended"
)

// Step is the result of a single Advance.
type Step struct {
	Kind    StepKind       `json:"kind"`
	Line    *Line          `json:"line,omitempty"`
	Choices []ChoiceOption `json:"choices,omitempty"`
}

// Line is a resolved line of narrative.
type Line struct {
	Text string   `json:"text"`
	Tags []string `json:"tags,omitempty"`

	// Glue asks the host to join this line with the next one without a line break.
	// It is also set when the next line opens with glue, across diverts and gathers.
	Glue bool `json:"glue,omitempty"`
	// GlueBefore marks a line that opened with glue and joins the previous one.
	GlueBefore bool `json:"glue_before,omitempty"`
}

// ChoiceOption is a choice as shown to the player. Index is the value to pass to Select.
type ChoiceOption struct {
	Index int      `json:"index"`
	Text  string   `json:"text"`
	Tags  []string `json:"tags,omitempty"`
}

// JoinLines concatenates lines into a paragraph, using a newline between lines unless
// glue joins them from either side.
func JoinLines(lines []Line) string {
	var sb strings.Builder
	for i, l := range lines {
		sb.WriteString(l.Text)
		if i < len(lines)-1 && !l.Glue && !lines[i+1].GlueBefore {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
