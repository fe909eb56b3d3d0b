package events

import "time"

// Kind identifies a normalized event variant.
type Kind string

// Event is implemented by every member of the normalized union.
type Event interface {
	Kind() Kind
	Timestamp() time.Time
}

// Base carries the fields shared by all events.
type Base struct {
	kind      Kind
	timestamp time.Time
}

// NewBase creates the shared event base with the current time.
func NewBase(kind Kind) Base {
	return Base{kind: kind, timestamp: time.Now()}
}

// Kind returns the event's variant tag.
func (b Base) Kind() Kind {
	return b.kind
}

// Timestamp returns the event's creation time.
func (b Base) Timestamp() time.Time {
	return b.timestamp
}
