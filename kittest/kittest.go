// Package kittest wires embedded write servers into Go tests.
package kittest

import (
	"context"
	"sync/atomic"

	"github.com/danpasecinic/needlekit"
	"github.com/danpasecinic/needlekit/embedded"
)

type TB interface {
	Helper()
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Cleanup(f func())
}

// TestServer is a write server whose shutdown is registered with the test.
type TestServer struct {
	*embedded.WriteServer
	tb TB
}

// Build builds b and fails the test on error. The server is shut down when
// the test ends.
func Build(tb TB, b *embedded.WriteServerBuilder) *TestServer {
	tb.Helper()

	ws, err := b.Build(context.Background())
	if err != nil {
		tb.Fatalf("failed to build write server: %v", err)
		return nil
	}

	tb.Cleanup(func() {
		if err := ws.Shutdown(context.Background()); err != nil {
			tb.Fatalf("failed to shut down write server: %v", err)
		}
	})

	return &TestServer{WriteServer: ws, tb: tb}
}

// Start builds b and starts the result.
func Start(tb TB, b *embedded.WriteServerBuilder) *TestServer {
	tb.Helper()

	ts := Build(tb, b)
	if ts != nil {
		ts.RequireStart(context.Background())
	}
	return ts
}

func (ts *TestServer) RequireStart(ctx context.Context) {
	ts.tb.Helper()

	if err := ts.Start(ctx); err != nil {
		ts.tb.Fatalf("failed to start write server: %v", err)
	}
}

func (ts *TestServer) RequireShutdown(ctx context.Context) {
	ts.tb.Helper()

	if err := ts.Shutdown(ctx); err != nil {
		ts.tb.Fatalf("failed to shut down write server: %v", err)
	}
}

func (ts *TestServer) RequireReady(ctx context.Context) {
	ts.tb.Helper()

	if err := ts.Lifecycle().Ready(ctx); err != nil {
		ts.tb.Fatalf("write server is not ready: %v", err)
	}
}

func (ts *TestServer) RequireNoWarnings() {
	ts.tb.Helper()

	if warnings := ts.Warnings(); len(warnings) > 0 {
		ts.tb.Fatalf("expected no extension warnings, got %v", warnings)
	}
}

// MustCompose composes b without resolving it.
func MustCompose(tb TB, b *embedded.WriteServerBuilder) *needlekit.BindingSet {
	tb.Helper()

	c, err := b.Compose()
	if err != nil {
		tb.Fatalf("failed to compose write server: %v", err)
		return nil
	}
	return c.Bindings
}

func AssertBound(tb TB, set *needlekit.BindingSet, keys ...needlekit.Key) {
	tb.Helper()

	for _, key := range keys {
		if !set.Has(key) {
			tb.Fatalf("expected %s to be bound", key)
		}
	}
}

func AssertNotBound(tb TB, set *needlekit.BindingSet, keys ...needlekit.Key) {
	tb.Helper()

	for _, key := range keys {
		if set.Has(key) {
			tb.Fatalf("expected %s to be unbound", key)
		}
	}
}

// AssertOrigin fails unless key is bound by a binding of the given origin.
func AssertOrigin(tb TB, set *needlekit.BindingSet, key needlekit.Key, origin needlekit.Origin) {
	tb.Helper()

	b, ok := set.Get(key)
	if !ok {
		tb.Fatalf("expected %s to be bound", key)
		return
	}
	if b.Origin != origin {
		tb.Fatalf("expected %s to come from a %s binding, got %s", key, origin, b.Origin)
	}
}

// ScriptedExtension is an extension provider whose outcome is fixed up
// front. It counts how often it was loaded.
type ScriptedExtension struct {
	name     string
	profiles []needlekit.Profile
	module   *needlekit.Module
	err      error
	panics   bool
	loads    atomic.Int32
}

var _ needlekit.ExtensionProvider = (*ScriptedExtension)(nil)

// Extension loads module.
func Extension(name string, module *needlekit.Module, profiles ...needlekit.Profile) *ScriptedExtension {
	return &ScriptedExtension{name: name, module: module, profiles: profiles}
}

// FailingExtension fails to load with err.
func FailingExtension(name string, err error, profiles ...needlekit.Profile) *ScriptedExtension {
	return &ScriptedExtension{name: name, err: err, profiles: profiles}
}

// PanickingExtension panics while loading.
func PanickingExtension(name string, profiles ...needlekit.Profile) *ScriptedExtension {
	return &ScriptedExtension{name: name, panics: true, profiles: profiles}
}

func (e *ScriptedExtension) Name() string {
	return e.name
}

func (e *ScriptedExtension) Profiles() []needlekit.Profile {
	return e.profiles
}

func (e *ScriptedExtension) Load() (*needlekit.Module, error) {
	e.loads.Add(1)
	if e.panics {
		panic("extension " + e.name + " panicked")
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.module, nil
}

func (e *ScriptedExtension) Loads() int {
	return int(e.loads.Load())
}

// Extensions registers providers under the write server extension contract.
func Extensions(providers ...needlekit.ExtensionProvider) *needlekit.ExtensionRegistry {
	return needlekit.NewExtensionRegistry().Register(embedded.ExtensionContract, providers...)
}
