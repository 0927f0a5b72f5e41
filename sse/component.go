package sse

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/mediascribe/component"
)

// Component runs a Hub for the lifetime of the service.
type Component struct {
	hub     *Hub
	path    string
	mu      sync.Mutex
	running bool
	exited  chan struct{}
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates a component around a fresh Hub. path is the route
// clients subscribe on, shown in the startup summary.
func NewComponent(path string) *Component {
	return &Component{hub: NewHub(), path: path}
}

// Hub returns the underlying Hub.
func (c *Component) Hub() *Hub { return c.hub }

// Name returns the component name.
func (c *Component) Name() string { return "sse" }

// Start runs the hub loop in the background.
func (c *Component) Start(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return fmt.Errorf("sse: hub already running")
	}
	c.running = true
	c.exited = make(chan struct{})
	go func() {
		defer close(c.exited)
		c.hub.Run()
	}()
	return nil
}

// Stop closes every subscriber and waits for the loop to exit or ctx to end.
func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil
	}
	c.hub.Stop()
	c.running = false
	select {
	case <-c.exited:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("sse: hub did not stop: %w", ctx.Err())
	}
}

// Health is unhealthy until the hub loop runs, since events published
// before then would never be delivered.
func (c *Component) Health(_ context.Context) component.Health {
	c.mu.Lock()
	running := c.running
	c.mu.Unlock()
	if !running {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "hub not running"}
	}
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d clients connected", c.hub.ClientCount()),
	}
}

// Describe returns infrastructure summary info for the bootstrap display.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Job Event Stream",
		Type:    "sse",
		Details: fmt.Sprintf("GET %s", c.path),
	}
}
