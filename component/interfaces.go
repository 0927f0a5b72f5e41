package component

import "context"

// Component is a long-lived part of a mediascribe process: the workspace
// root, the acquisition adapters, the model cache, the event hub and the
// HTTP server. The registry starts them in registration order and stops
// them in reverse.
type Component interface {
	// Name is unique within a registry and keys per-component log levels.
	Name() string
	Start(ctx context.Context) error
	// Stop must return once ctx is done even if cleanup is incomplete.
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Describable components get a line in the startup summary.
type Describable interface {
	Describe() Description
}

// Description is one startup summary line, e.g. {"Model Cache", "models",
// "backend=whisper loaded=base,small", 0}. An empty Name falls back to the
// component's Name().
type Description struct {
	Name    string
	Type    string
	Details string
	Port    int
}

// RouteProvider components list their HTTP routes in the startup summary.
type RouteProvider interface {
	Routes() []Route
}

type Route struct {
	Method  string
	Path    string
	Handler string
}
