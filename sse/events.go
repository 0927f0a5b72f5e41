package sse

import "time"

// Event types emitted by the package itself.
const (
	// EventTypeConnected is sent when a client successfully connects.
	EventTypeConnected = "connected"
	// EventTypeKeepAlive is used for keep-alive comments.
	EventTypeKeepAlive = "keepalive"
	// EventTypeMessage is the default type of events without one.
	EventTypeMessage = "message"
	// EventTypeLagged is the last event of a stream the hub evicted for
	// falling behind. Reconnecting replays what was missed.
	EventTypeLagged = "lagged"
)

// DefaultKeepAlive is the interval between keep-alive comments. It stays
// below typical proxy idle timeouts.
const DefaultKeepAlive = 30 * time.Second

// Event is one server-sent event.
type Event struct {
	// ID is written as the SSE id field when positive. Events with an ID at
	// or below the last replayed one are skipped.
	ID int64
	// Type is written as the SSE event field. Empty means "message".
	Type string
	// Data is written as the SSE data field. It must not contain newlines.
	Data []byte
	// Final ends the stream after this event is written.
	Final bool
}

// Broadcaster sends events to every client whose ID matches a pattern.
type Broadcaster interface {
	Broadcast(pattern string, ev Event)
}
