package acquire

import (
	"github.com/kbukum/mediascribe/logger"
	"github.com/kbukum/mediascribe/observability"
	"github.com/kbukum/mediascribe/provider"
)

const serviceName = "acquire"

// NewRegistry registers adapters wrapped in the standard middleware:
// tracing and logging outermost, then metrics, then resilience.
func NewRegistry(cfg Config, metrics *observability.Metrics, adapters ...Adapter) (*provider.Registry[Adapter], error) {
	reg := provider.NewRegistry[Adapter]()
	stack := provider.Chain(
		provider.WithTracing[Request, *Artifact](serviceName),
		provider.WithLogging[Request, *Artifact](logger.Get(serviceName)),
		provider.WithMetrics[Request, *Artifact](serviceName, metrics),
		provider.WithResilienceMiddleware[Request, *Artifact](cfg.Resilience),
	)
	for _, a := range adapters {
		if a == nil {
			continue
		}
		if err := reg.Register(stack(a)); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
