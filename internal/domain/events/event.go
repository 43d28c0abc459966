package events

import "time"

// Kind classifies an acquisition event.
type Kind string

const (
	KindTriggerLocked Kind = "trigger_locked"
	KindTriggerLost   Kind = "trigger_lost"
	KindResize        Kind = "resize"
	KindMalformed     Kind = "malformed"
	KindSettings      Kind = "settings"
	KindSource        Kind = "source"
)

// Event is one notable state change of the acquisition loop.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      Kind      `json:"kind"`
	Channel   int       `json:"channel"` // -1 when not channel specific
	Index     int       `json:"index,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}
