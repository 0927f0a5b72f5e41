package transcription

import (
	"context"
	"fmt"
	"strings"

	"github.com/kbukum/mediascribe/component"
	"github.com/kbukum/mediascribe/logger"
	"github.com/kbukum/mediascribe/source"
)

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component preloads models on start and releases engines on stop.
type Component struct {
	cache   *Cache
	preload []source.Selector
	log     *logger.Logger
}

// NewComponent wraps cache for registration with a component.Registry.
func NewComponent(cache *Cache, preload ...source.Selector) *Component {
	return &Component{cache: cache, preload: preload, log: logger.Get("transcription")}
}

// Name returns the component name.
func (c *Component) Name() string { return "models" }

// Start loads the preload selectors. A failed preload is logged and the
// model is loaded again on first use.
func (c *Component) Start(ctx context.Context) error {
	if err := c.cache.Preload(ctx, c.preload...); err != nil {
		c.log.Warn("model preload failed", logger.MergeWithError(nil, err))
	}
	return nil
}

// Stop closes every loaded engine.
func (c *Component) Stop(ctx context.Context) error {
	return c.cache.Close(ctx)
}

// Health reports the backend as degraded while it cannot load models.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy, Message: c.summary()}
	if !c.cache.Available(ctx) {
		h.Status = component.StatusDegraded
		h.Message = c.cache.Backend() + " backend is unavailable"
	}
	return h
}

// Describe returns infrastructure summary info for the bootstrap display.
func (c *Component) Describe() component.Description {
	return component.Description{Name: "Model Cache", Type: "models", Details: c.summary()}
}

func (c *Component) summary() string {
	loaded := c.cache.Loaded()
	names := make([]string, 0, len(loaded))
	for _, e := range loaded {
		names = append(names, string(e.Selector))
	}
	return fmt.Sprintf("backend=%s loaded=%s", c.cache.Backend(), strings.Join(names, ","))
}
