package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/mediascribe/logger"
)

// ConnectedEvent is sent when a client successfully connects.
type ConnectedEvent struct {
	ClientID string            `json:"client_id"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// LastEventIDHeader carries the last event ID a reconnecting EventSource saw.
const LastEventIDHeader = "Last-Event-ID"

// LastEventID returns the ID from the request's Last-Event-ID header, or 0
// when it is absent or not a positive integer.
func LastEventID(r *http.Request) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(r.Header.Get(LastEventIDHeader)), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

type streamOptions struct {
	clientOpts []ClientOption
	replay     func() []Event
	keepAlive  time.Duration
}

// StreamOption configures ServeSSE.
type StreamOption func(*streamOptions)

// WithClientOptions passes options to the registered client.
func WithClientOptions(opts ...ClientOption) StreamOption {
	return func(o *streamOptions) { o.clientOpts = append(o.clientOpts, opts...) }
}

// WithReplay writes the events returned by fn before any live event. fn is
// called after the client is registered, so nothing published in between
// is lost; live events already covered by the replay are skipped by ID.
func WithReplay(fn func() []Event) StreamOption {
	return func(o *streamOptions) { o.replay = fn }
}

// WithKeepAlive overrides DefaultKeepAlive.
func WithKeepAlive(d time.Duration) StreamOption {
	return func(o *streamOptions) { o.keepAlive = d }
}

// ServeSSE runs the SSE connection of one client until the request context
// ends, the hub stops or evicts the client, or a final event is written.
// Events with an ID at or below the request's Last-Event-ID are not sent
// again; if one of them was final the stream ends right away.
func ServeSSE(hub *Hub, w http.ResponseWriter, r *http.Request, clientID string, opts ...StreamOption) {
	log := logger.Get("sse")
	o := streamOptions{keepAlive: DefaultKeepAlive}
	for _, opt := range opts {
		opt(&o)
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Error("streaming not supported", logger.Fields("client_id", clientID))
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// SSE connections outlive the server's write timeout.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		log.Debug("could not disable write deadline", logger.Fields("client_id", clientID, logger.FieldError, err.Error()))
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	client := NewClient(clientID, o.clientOpts...)
	if !hub.Register(client) {
		http.Error(w, "event stream is shutting down", http.StatusServiceUnavailable)
		return
	}
	defer hub.Unregister(client)

	connected, _ := json.Marshal(ConnectedEvent{ClientID: clientID, Metadata: client.Metadata()})
	_ = writeEvent(w, Event{Type: EventTypeConnected, Data: connected})
	flusher.Flush()
	log.Debug("client connected", logger.Fields("client_id", clientID, "remote_addr", r.RemoteAddr))

	lastID := LastEventID(r)
	if o.replay != nil {
		for _, ev := range o.replay() {
			if ev.ID > 0 && ev.ID <= lastID {
				if ev.Final {
					flusher.Flush()
					return
				}
				continue
			}
			if err := writeEvent(w, ev); err != nil {
				return
			}
			if ev.ID > lastID {
				lastID = ev.ID
			}
			if ev.Final {
				flusher.Flush()
				return
			}
		}
		flusher.Flush()
	}

	keepAlive := time.NewTicker(o.keepAlive)
	defer keepAlive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Debug("client disconnected", logger.Fields("client_id", clientID, "reason", ctx.Err().Error()))
			return
		case ev, ok := <-client.Events():
			if !ok {
				if client.Lagged() {
					_ = writeEvent(w, Event{Type: EventTypeLagged, Data: []byte(`{"reconnect":true}`)})
					flusher.Flush()
				}
				return
			}
			if ev.ID > 0 && ev.ID <= lastID {
				if ev.Final {
					return
				}
				continue
			}
			if err := writeEvent(w, ev); err != nil {
				return
			}
			flusher.Flush()
			if ev.ID > lastID {
				lastID = ev.ID
			}
			if ev.Final {
				return
			}
		case <-keepAlive.C:
			// Lines starting with ':' are comments.
			if _, err := fmt.Fprintf(w, ": %s %d\n\n", EventTypeKeepAlive, time.Now().Unix()); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, ev Event) error {
	if ev.ID > 0 {
		if _, err := fmt.Fprintf(w, "id: %d\n", ev.ID); err != nil {
			return err
		}
	}
	typ := ev.Type
	if typ == "" {
		typ = EventTypeMessage
	}
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", typ, ev.Data)
	return err
}
