package sse

import "sync/atomic"

const clientBuffer = 256

// Client is one open event stream. Its channel is closed by the hub, either
// on unregister or when the client falls too far behind.
type Client struct {
	id       string
	metadata map[string]string
	events   chan Event
	lagged   atomic.Bool
}

type ClientOption func(*Client)

// WithMetadata is echoed back to the client in its connected event.
func WithMetadata(key, value string) ClientOption {
	return func(c *Client) { c.metadata[key] = value }
}

func NewClient(id string, opts ...ClientOption) *Client {
	c := &Client{
		id:       id,
		metadata: map[string]string{},
		events:   make(chan Event, clientBuffer),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ID() string                  { return c.id }
func (c *Client) Metadata() map[string]string { return c.metadata }
func (c *Client) Events() <-chan Event        { return c.events }

// Lagged reports whether the hub dropped the client for not keeping up.
func (c *Client) Lagged() bool { return c.lagged.Load() }

// Send queues ev without blocking. It returns false when the buffer is full.
func (c *Client) Send(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	default:
		return false
	}
}
