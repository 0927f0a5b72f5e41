package bootstrap

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kbukum/mediascribe/component"
)

// Summary renders the startup report of an App.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
}

// NewSummary creates a new bootstrap summary.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// Render writes the summary to w. Infrastructure comes from components
// implementing component.Describable, routes from component.RouteProvider,
// and the health section from a live check of every component.
func (s *Summary) Render(w io.Writer, registry *component.Registry) {
	version := s.version
	if version == "" {
		version = "dev"
	}
	fmt.Fprintf(w, "\n%s %s started in %.2fs\n\n", s.serviceName, version, s.startupDuration.Seconds())
	if registry == nil {
		return
	}

	var descs []component.Description
	var routes []component.Route
	for _, c := range registry.All() {
		if d, ok := c.(component.Describable); ok {
			descs = append(descs, d.Describe())
		}
		if rp, ok := c.(component.RouteProvider); ok {
			routes = append(routes, rp.Routes()...)
		}
	}

	if len(descs) > 0 {
		fmt.Fprintf(w, "Infrastructure\n")
		for i, d := range descs {
			details := d.Details
			if d.Port > 0 && !strings.Contains(details, fmt.Sprintf(":%d", d.Port)) {
				details = fmt.Sprintf("%s (:%d)", details, d.Port)
			}
			fmt.Fprintf(w, "   %s [%s] %s: %s\n", treePrefix(i, len(descs)), d.Type, d.Name, details)
		}
		fmt.Fprintf(w, "\n")
	}

	if len(routes) > 0 {
		fmt.Fprintf(w, "Routes (%d)\n", len(routes))
		for i, r := range routes {
			fmt.Fprintf(w, "   %s %-7s %s -> %s\n", treePrefix(i, len(routes)), r.Method, r.Path, r.Handler)
		}
		fmt.Fprintf(w, "\n")
	}

	health := registry.HealthAll(context.Background())
	if len(health) == 0 {
		fmt.Fprintf(w, "   └── No components registered\n\n")
		return
	}
	fmt.Fprintf(w, "Health\n")
	healthy := 0
	for i, h := range health {
		msg := ""
		if h.Message != "" {
			msg = " (" + h.Message + ")"
		}
		if h.Status == component.StatusHealthy {
			healthy++
		}
		fmt.Fprintf(w, "   %s %s %s: %s%s\n", treePrefix(i, len(health)), healthStatusIcon(h.Status), h.Name, h.Status, msg)
	}
	if healthy == len(health) {
		fmt.Fprintf(w, "\nAll components healthy (%d/%d)\n\n", healthy, len(health))
	} else {
		fmt.Fprintf(w, "\nSome components have issues (%d/%d healthy)\n\n", healthy, len(health))
	}
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func healthStatusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}
