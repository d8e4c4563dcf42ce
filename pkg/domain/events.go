package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventKnotEnter EventType = "knot_enter"
	EventLine      EventType = "line"
	EventChoice    EventType = "choice"
	EventEnd       EventType = "end"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// KnotEvent is emitted when a divert or start enters a knot or stitch.
type KnotEvent struct {
	EventBase
	Knot   string `json:"knot"`
	Stitch string `json:"stitch,omitempty"`
	Visits int    `json:"visits"`
}

// LineEvent is emitted for every line returned by Advance.
type LineEvent struct {
	EventBase
	Knot string   `json:"knot"`
	Text string   `json:"text"`
	Tags []string `json:"tags,omitempty"`
}

// ChoiceEvent is emitted when a choice is taken, either by Select or as a fallback.
type ChoiceEvent struct {
	EventBase
	Knot     string `json:"knot"`
	ChoiceID string `json:"choice_id"`
	Text     string `json:"text"`
	Fallback bool   `json:"fallback,omitempty"`
}

// EndEvent is emitted once when the story ends.
type EndEvent struct {
	EventBase
	Knot string `json:"knot"`
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks only fire for calls that succeed.
type LifecycleHooks struct {
	OnKnotEnter func(context.Context, *KnotEvent)
	OnLine      func(context.Context, *LineEvent)
	OnChoice    func(context.Context, *ChoiceEvent)
	OnEnd       func(context.Context, *EndEvent)
}
