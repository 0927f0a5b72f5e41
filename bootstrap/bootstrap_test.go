package bootstrap

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/mediascribe/component"
	"github.com/kbukum/mediascribe/config"
	"github.com/kbukum/mediascribe/logger"
)

type testConfig struct {
	config.ServiceConfig
}

type mockComponent struct {
	name     string
	startErr error
	stopErr  error
	health   component.Health
	started  bool
	stopped  bool
	order    *[]string
}

func (m *mockComponent) Name() string { return m.name }

func (m *mockComponent) Start(context.Context) error {
	m.started = true
	if m.order != nil {
		*m.order = append(*m.order, "start:"+m.name)
	}
	return m.startErr
}

func (m *mockComponent) Stop(context.Context) error {
	m.stopped = true
	if m.order != nil {
		*m.order = append(*m.order, "stop:"+m.name)
	}
	return m.stopErr
}

func (m *mockComponent) Health(context.Context) component.Health { return m.health }

type describedComponent struct {
	mockComponent
}

func (d *describedComponent) Describe() component.Description {
	return component.Description{Name: "Workspaces", Type: "storage", Details: "/tmp/mediascribe"}
}

func (d *describedComponent) Routes() []component.Route {
	return []component.Route{{Method: "POST", Path: "/v1/jobs", Handler: "API.createJob"}}
}

func newTestConfig(name, version string) *testConfig {
	return &testConfig{ServiceConfig: config.ServiceConfig{Name: name, Version: version, Environment: "development"}}
}

func newTestApp(t *testing.T, opts ...Option) (*App[*testConfig], *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	opts = append([]Option{WithLogger(logger.Nop()), WithSummaryOutput(&out)}, opts...)
	app, err := NewApp(newTestConfig("mediascribe", "1.0.0"), opts...)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	return app, &out
}

func healthy(name string) *mockComponent {
	return &mockComponent{name: name, health: component.Health{Name: name, Status: component.StatusHealthy}}
}

func TestNewApp(t *testing.T) {
	app, _ := newTestApp(t)
	if app.Name != "mediascribe" || app.Version != "1.0.0" {
		t.Errorf("unexpected identity %q %q", app.Name, app.Version)
	}
	if app.Components == nil || app.Logger == nil || app.Summary == nil {
		t.Error("expected registry, logger and summary")
	}
	if app.Cfg.Environment != "development" {
		t.Errorf("expected typed config access, got %q", app.Cfg.Environment)
	}
	if app.gracefulTimeout != 15*time.Second {
		t.Errorf("expected default 15s timeout, got %v", app.gracefulTimeout)
	}
}

func TestNewAppValidation(t *testing.T) {
	cfg := &testConfig{ServiceConfig: config.ServiceConfig{Name: "svc", Environment: "qa"}}
	if _, err := NewApp(cfg, WithLogger(logger.Nop())); err == nil {
		t.Error("expected error for invalid environment")
	}
}

func TestNewAppOptions(t *testing.T) {
	app, _ := newTestApp(t, WithGracefulTimeout(5*time.Second))
	if app.gracefulTimeout != 5*time.Second {
		t.Errorf("expected 5s, got %v", app.gracefulTimeout)
	}
}

func TestRegisterComponentDuplicate(t *testing.T) {
	app, _ := newTestApp(t)
	if err := app.RegisterComponent(healthy("models")); err != nil {
		t.Fatalf("RegisterComponent failed: %v", err)
	}
	if err := app.RegisterComponent(healthy("models")); err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestHookErrorStopsExecution(t *testing.T) {
	secondCalled := false
	err := runHooks(context.Background(), []Hook{
		func(context.Context) error { return fmt.Errorf("fail") },
		func(context.Context) error { secondCalled = true; return nil },
	})
	if err == nil || err.Error() != "hook 0: fail" {
		t.Errorf("expected hook 0 error, got %v", err)
	}
	if secondCalled {
		t.Error("second hook must not run after the first fails")
	}
}

func TestReadyCheck(t *testing.T) {
	tests := []struct {
		name    string
		status  component.HealthStatus
		wantErr bool
	}{
		{"healthy", component.StatusHealthy, false},
		{"degraded", component.StatusDegraded, true},
		{"unhealthy", component.StatusUnhealthy, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := newTestApp(t)
			app.RegisterComponent(healthy("workspaces"))
			app.RegisterComponent(&mockComponent{name: "models", health: component.Health{Name: "models", Status: tt.status, Message: "backend"}})
			err := app.ReadyCheck(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("ReadyCheck() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), "models="+string(tt.status)+"(backend)") {
				t.Errorf("error should name the component, got %v", err)
			}
			if err != nil && strings.Contains(err.Error(), "workspaces") {
				t.Errorf("healthy components must not be listed, got %v", err)
			}
		})
	}
}

func TestRunTaskLifecycleOrder(t *testing.T) {
	app, out := newTestApp(t)
	var order []string
	app.RegisterComponent(&mockComponent{name: "workspaces", order: &order})
	app.RegisterComponent(&mockComponent{name: "models", order: &order})
	app.OnReady(func(context.Context) error { order = append(order, "onReady"); return nil })
	app.OnStop(func(context.Context) error { order = append(order, "onStop"); return nil })

	err := app.RunTask(context.Background(), func(context.Context) error {
		order = append(order, "task")
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}

	want := "start:workspaces,start:models,onReady,task,onStop,stop:models,stop:workspaces"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("lifecycle order\n got: %s\nwant: %s", got, want)
	}
	if out.Len() != 0 {
		t.Errorf("RunTask should not print a summary, got %q", out.String())
	}
}

func TestRunTaskErrors(t *testing.T) {
	t.Run("task error wins", func(t *testing.T) {
		app, _ := newTestApp(t)
		app.RegisterComponent(&mockComponent{name: "models", stopErr: fmt.Errorf("close failed")})
		err := app.RunTask(context.Background(), func(context.Context) error { return fmt.Errorf("task error") })
		if err == nil || err.Error() != "task error" {
			t.Errorf("expected task error, got %v", err)
		}
	})
	t.Run("stop error reported", func(t *testing.T) {
		app, _ := newTestApp(t)
		app.RegisterComponent(&mockComponent{name: "models", stopErr: fmt.Errorf("close failed")})
		err := app.RunTask(context.Background(), func(context.Context) error { return nil })
		if err == nil || !strings.Contains(err.Error(), "close failed") {
			t.Errorf("expected stop error, got %v", err)
		}
	})
	t.Run("hook and stop errors joined", func(t *testing.T) {
		app, _ := newTestApp(t)
		app.RegisterComponent(&mockComponent{name: "models", stopErr: fmt.Errorf("close failed")})
		app.OnStop(func(context.Context) error { return fmt.Errorf("flush failed") })
		err := app.RunTask(context.Background(), func(context.Context) error { return nil })
		if err == nil || !strings.Contains(err.Error(), "close failed") || !strings.Contains(err.Error(), "flush failed") {
			t.Errorf("expected both shutdown errors, got %v", err)
		}
	})
	t.Run("ready hook error skips task", func(t *testing.T) {
		app, _ := newTestApp(t)
		app.OnReady(func(context.Context) error { return fmt.Errorf("bad wiring") })
		ran := false
		err := app.RunTask(context.Background(), func(context.Context) error { ran = true; return nil })
		if err == nil || !strings.Contains(err.Error(), "onReady hook failed: hook 0: bad wiring") {
			t.Errorf("expected ready hook error, got %v", err)
		}
		if ran {
			t.Error("task must not run")
		}
	})
}

func TestRunTaskComponentStartErrorStopsStarted(t *testing.T) {
	app, _ := newTestApp(t)
	first := healthy("workspaces")
	broken := &mockComponent{name: "models", startErr: fmt.Errorf("no backend")}
	app.RegisterComponent(first)
	app.RegisterComponent(broken)

	err := app.RunTask(context.Background(), func(context.Context) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "initialization failed") {
		t.Fatalf("expected initialization error, got %v", err)
	}
	if !first.stopped {
		t.Error("components started before the failure should be stopped")
	}
	if broken.stopped {
		t.Error("the failed component was never started and must not be stopped")
	}
}

func TestRunTaskCancellation(t *testing.T) {
	app, _ := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	err := app.RunTask(ctx, func(taskCtx context.Context) error {
		cancel()
		<-taskCtx.Done()
		return taskCtx.Err()
	})
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	app, out := newTestApp(t)
	comp := healthy("workspaces")
	app.RegisterComponent(comp)

	ctx, cancel := context.WithCancel(context.Background())
	app.OnReady(func(context.Context) error { cancel(); return nil })

	if err := app.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !comp.started || !comp.stopped {
		t.Errorf("expected component started and stopped, got %+v", comp)
	}
	if !strings.Contains(out.String(), "mediascribe 1.0.0 started") {
		t.Errorf("expected startup summary, got %q", out.String())
	}
}

func TestSummaryRender(t *testing.T) {
	reg := component.NewRegistry()
	reg.Register(&describedComponent{mockComponent{name: "workspaces", health: component.Health{Name: "workspaces", Status: component.StatusHealthy, Message: "0 active"}}})
	reg.Register(&mockComponent{name: "models", health: component.Health{Name: "models", Status: component.StatusDegraded, Message: "backend unavailable"}})

	s := NewSummary("mediascribe", "")
	s.SetStartupDuration(1500 * time.Millisecond)
	var out bytes.Buffer
	s.Render(&out, reg)

	got := out.String()
	for _, want := range []string{
		"mediascribe dev started in 1.50s",
		"[storage] Workspaces: /tmp/mediascribe",
		"POST    /v1/jobs -> API.createJob",
		"workspaces: healthy (0 active)",
		"models: degraded (backend unavailable)",
		"Some components have issues (1/2 healthy)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q:\n%s", want, got)
		}
	}
}

func TestSummaryRenderNilRegistry(t *testing.T) {
	var out bytes.Buffer
	NewSummary("mediascribe", "1.0.0").Render(&out, nil)
	if !strings.Contains(out.String(), "mediascribe 1.0.0 started") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestTreePrefix(t *testing.T) {
	if treePrefix(0, 2) != "├──" || treePrefix(1, 2) != "└──" {
		t.Error("unexpected tree prefixes")
	}
}
