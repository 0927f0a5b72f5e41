package acquire

import (
	"context"
	"fmt"
	"strings"

	"github.com/kbukum/mediascribe/component"
	"github.com/kbukum/mediascribe/logger"
	"github.com/kbukum/mediascribe/provider"
)

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component reports adapter availability and closes adapters holding
// resources on shutdown. It takes the unwrapped adapters, since middleware
// wrappers do not forward Close.
type Component struct {
	adapters []Adapter
	log      *logger.Logger
}

// NewComponent creates the component.
func NewComponent(adapters ...Adapter) *Component {
	return &Component{adapters: adapters, log: logger.Get("acquire")}
}

// Name returns the component name.
func (c *Component) Name() string { return "acquisition" }

// Start is a no-op; adapters are ready once constructed.
func (c *Component) Start(context.Context) error { return nil }

// Stop closes every adapter that implements provider.Closeable.
func (c *Component) Stop(ctx context.Context) error {
	var firstErr error
	for _, a := range c.adapters {
		if err := provider.CloseIfCloseable(ctx, a); err != nil {
			c.log.Warn("closing adapter failed", logger.MergeWithError(logger.Fields(logger.FieldAdapter, a.Name()), err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Health is degraded while any adapter is unavailable, e.g. a missing
// yt-dlp binary, and unhealthy when none is available.
func (c *Component) Health(ctx context.Context) component.Health {
	var missing []string
	for _, a := range c.adapters {
		if !a.IsAvailable(ctx) {
			missing = append(missing, a.Name())
		}
	}
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy, Message: fmt.Sprintf("%d adapters", len(c.adapters))}
	switch {
	case len(c.adapters) == 0 || len(missing) == len(c.adapters):
		h.Status = component.StatusUnhealthy
		h.Message = "no adapter available"
	case len(missing) > 0:
		h.Status = component.StatusDegraded
		h.Message = "unavailable: " + strings.Join(missing, ", ")
	}
	return h
}

// Describe lists the adapters for the startup summary.
func (c *Component) Describe() component.Description {
	names := make([]string, 0, len(c.adapters))
	for _, a := range c.adapters {
		names = append(names, a.Name())
	}
	return component.Description{Name: "Acquisition", Type: "acquire", Details: strings.Join(names, ", ")}
}
