package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/kbukum/mediascribe/component"
)

const componentName = "http-server"

var (
	_ component.Component     = (*ServerComponent)(nil)
	_ component.Describable   = (*ServerComponent)(nil)
	_ component.RouteProvider = (*ServerComponent)(nil)
)

// ServerComponent registers the job API server with the component registry.
// It is registered last so it stops first and no new jobs arrive while the
// workers behind it drain.
type ServerComponent struct {
	server *Server
}

func NewComponent(s *Server) *ServerComponent {
	return &ServerComponent{server: s}
}

func (sc *ServerComponent) Name() string { return componentName }

func (sc *ServerComponent) Start(ctx context.Context) error {
	return sc.server.Start(ctx)
}

func (sc *ServerComponent) Stop(ctx context.Context) error {
	return sc.server.Stop(ctx)
}

// Health is unhealthy before Start, after Stop, and when the listener died
// on its own.
func (sc *ServerComponent) Health(context.Context) component.Health {
	serving, err := sc.server.state()
	switch {
	case err != nil:
		return component.Health{Name: componentName, Status: component.StatusUnhealthy, Message: "listener failed: " + err.Error()}
	case !serving:
		return component.Health{Name: componentName, Status: component.StatusUnhealthy, Message: "not serving"}
	}
	return component.Health{Name: componentName, Status: component.StatusHealthy, Message: "listening on " + sc.server.Addr()}
}

func (sc *ServerComponent) Describe() component.Description {
	cfg := sc.server.config
	details := fmt.Sprintf("%s:%d, h2c", cfg.Host, cfg.Port)
	if cfg.Jobs.MaxConcurrent > 0 {
		details += fmt.Sprintf(", %d concurrent jobs", cfg.Jobs.MaxConcurrent)
	}
	return component.Description{
		Name:    "Job API",
		Type:    "server",
		Details: details,
		Port:    cfg.Port,
	}
}

// Routes lists the mounted routes for the startup summary. Event streams
// and system endpoints are labeled.
func (sc *ServerComponent) Routes() []component.Route {
	mounted := sc.server.engine.Routes()
	sortRoutes(mounted)

	routes := make([]component.Route, 0, len(mounted))
	for _, r := range mounted {
		handler := formatHandlerName(r.Handler)
		switch {
		case systemPaths[r.Path]:
			handler += " (system)"
		case strings.HasSuffix(r.Path, "/events"):
			handler += " (stream)"
		}
		routes = append(routes, component.Route{Method: r.Method, Path: r.Path, Handler: handler})
	}
	return routes
}
