package workspace

import (
	"context"
	"fmt"
	"os"

	"github.com/kbukum/mediascribe/component"
)

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component sweeps stale workspaces on start and reports the root as
// unhealthy when it is no longer writable.
type Component struct {
	m *Manager
}

// NewComponent wraps m for registration with a component.Registry.
func NewComponent(m *Manager) *Component {
	return &Component{m: m}
}

// Name returns the component name.
func (c *Component) Name() string { return "workspaces" }

// Start removes workspaces left behind by a previous process.
func (c *Component) Start(context.Context) error {
	c.m.SweepStale()
	return nil
}

// Stop does nothing; jobs release their own workspaces.
func (c *Component) Stop(context.Context) error { return nil }

// Health checks the root directory.
func (c *Component) Health(context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	info, err := os.Stat(c.m.Root())
	switch {
	case err != nil:
		h.Status, h.Message = component.StatusUnhealthy, err.Error()
	case !info.IsDir():
		h.Status, h.Message = component.StatusUnhealthy, c.m.Root()+" is not a directory"
	default:
		h.Message = fmt.Sprintf("%d active", c.m.Active())
	}
	return h
}

// Describe returns infrastructure summary info for the bootstrap display.
func (c *Component) Describe() component.Description {
	return component.Description{Name: "Workspaces", Type: "storage", Details: c.m.Root()}
}
