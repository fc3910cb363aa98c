package needlekit_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/danpasecinic/needlekit"
)

const (
	serviceA needlekit.Key = "svc.a"
	serviceB needlekit.Key = "svc.b"
)

// servicesModule binds two services, b depending on a, next to the App.
func servicesModule(ev *events, a, b *Service) *needlekit.Module {
	a.events, b.events = ev, ev
	return appModule().
		ProvideValue(serviceA, a).
		ProvideValue(serviceB, b, needlekit.WithDependencies(serviceA))
}

func TestLifecycleStartStop(t *testing.T) {
	t.Parallel()

	ev := &events{}
	app := resolve(t, compose(t, servicesModule(ev, &Service{Name: "a"}, &Service{Name: "b"})))
	ctx := context.Background()

	if app.Lifecycle.Running() {
		t.Fatal("lifecycle must not run before Start")
	}
	if err := app.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !app.Lifecycle.Running() {
		t.Error("expected lifecycle to run after Start")
	}
	if err := app.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	want := []string{"start:a", "start:b", "stop:b", "stop:a"}
	if got := ev.get(); !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestLifecycleStartFailureRollsBack(t *testing.T) {
	t.Parallel()

	ev := &events{}
	failing := &Service{Name: "b", startErr: errors.New("port in use")}
	app := resolve(t, compose(t, servicesModule(ev, &Service{Name: "a"}, failing)))

	err := app.Start(context.Background())
	if !needlekit.IsStartupFailed(err) {
		t.Fatalf("expected StartupFailed, got %v", err)
	}
	if app.Lifecycle.Running() {
		t.Error("lifecycle must not run after a failed start")
	}

	want := []string{"start:a", "stop:a"}
	if got := ev.get(); !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestLifecycleStopErrors(t *testing.T) {
	t.Parallel()

	ev := &events{}
	a := &Service{Name: "a", stopErr: errors.New("flush failed")}
	app := resolve(t, compose(t, servicesModule(ev, a, &Service{Name: "b"})))
	ctx := context.Background()

	if err := app.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	err := app.Shutdown(ctx)
	if !needlekit.IsShutdownFailed(err) {
		t.Fatalf("expected ShutdownFailed, got %v", err)
	}

	want := []string{"start:a", "start:b", "stop:b", "stop:a"}
	if got := ev.get(); !slices.Equal(got, want) {
		t.Errorf("every service must be stopped, expected %v, got %v", want, got)
	}
}

func TestLifecycleDoubleStart(t *testing.T) {
	t.Parallel()

	app := resolve(t, compose(t, servicesModule(&events{}, &Service{Name: "a"}, &Service{Name: "b"})))
	ctx := context.Background()

	if err := app.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := app.Start(ctx); !needlekit.IsStartupFailed(err) {
		t.Errorf("expected second Start to fail, got %v", err)
	}
	if err := app.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if err := app.Start(ctx); err != nil {
		t.Errorf("expected restart after Shutdown, got %v", err)
	}
	_ = app.Shutdown(ctx)
}

func TestLifecycleStopWithoutStart(t *testing.T) {
	t.Parallel()

	ev := &events{}
	app := resolve(t, compose(t, servicesModule(ev, &Service{Name: "a"}, &Service{Name: "b"})))

	if err := app.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown before Start must be a no-op, got %v", err)
	}
	if len(ev.get()) != 0 {
		t.Errorf("expected no lifecycle events, got %v", ev.get())
	}
}

func TestLifecyclePerCallNotManaged(t *testing.T) {
	t.Parallel()

	ev := &events{}
	m := appModule().Provide(
		requestKey, func(context.Context, needlekit.Resolver) (any, error) {
			return &Service{Name: "request", events: ev}, nil
		}, needlekit.WithScope(needlekit.PerCall),
	)
	app := resolve(t, compose(t, m))
	ctx := context.Background()

	if err := app.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	_ = app.Shutdown(ctx)

	if len(ev.get()) != 0 {
		t.Errorf("per-call instances must not be started, got %v", ev.get())
	}
}
