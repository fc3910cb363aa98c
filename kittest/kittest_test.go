package kittest_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpasecinic/needlekit"
	"github.com/danpasecinic/needlekit/config"
	"github.com/danpasecinic/needlekit/embedded"
	"github.com/danpasecinic/needlekit/kittest"
)

type fakeTB struct {
	failures []string
	cleanups []func()
}

func (f *fakeTB) Helper() {}

func (f *fakeTB) Fatal(args ...any) {
	f.failures = append(f.failures, fmt.Sprint(args...))
}

func (f *fakeTB) Fatalf(format string, args ...any) {
	f.failures = append(f.failures, fmt.Sprintf(format, args...))
}

func (f *fakeTB) Cleanup(fn func()) {
	f.cleanups = append(f.cleanups, fn)
}

func (f *fakeTB) runCleanups() {
	for i := len(f.cleanups) - 1; i >= 0; i-- {
		f.cleanups[i]()
	}
}

func builder() *embedded.WriteServerBuilder {
	return embedded.NewWriteServerBuilder().
		WithConfiguration(config.Default()).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestStart(t *testing.T) {
	t.Parallel()

	ts := kittest.Start(t, builder().WithAdminUI(true))
	ts.RequireReady(context.Background())
	ts.RequireNoWarnings()
	assert.True(t, ts.Lifecycle().Running())
}

func TestBuild_ShutsDownOnCleanup(t *testing.T) {
	t.Parallel()

	tb := &fakeTB{}
	ts := kittest.Build(tb, builder())
	require.NotNil(t, ts)
	ts.RequireStart(context.Background())
	require.True(t, ts.Lifecycle().Running())

	tb.runCleanups()
	assert.False(t, ts.Lifecycle().Running())
	assert.Empty(t, tb.failures)
}

func TestBuild_FailureIsReported(t *testing.T) {
	t.Parallel()

	tb := &fakeTB{}
	ts := kittest.Build(tb, builder().WithNetworkFaults(true))

	assert.Nil(t, ts)
	require.Len(t, tb.failures, 1)
	assert.Contains(t, tb.failures[0], "network router")
}

func TestBindingAssertions(t *testing.T) {
	t.Parallel()

	set := kittest.MustCompose(t, builder().WithAdminUI(true))
	kittest.AssertBound(t, set, embedded.AdminKey, embedded.ServerKey)
	kittest.AssertNotBound(t, set, embedded.ReplicationPeersKey)
	kittest.AssertOrigin(t, set, embedded.AdminKey, needlekit.OriginConditional)
	kittest.AssertOrigin(t, set, embedded.ServerKey, needlekit.OriginOverride)

	tb := &fakeTB{}
	kittest.AssertBound(tb, set, embedded.ReplicationPeersKey)
	kittest.AssertNotBound(tb, set, embedded.AdminKey)
	kittest.AssertOrigin(tb, set, embedded.AdminKey, needlekit.OriginCore)
	assert.Len(t, tb.failures, 3)
}

func TestScriptedExtensions(t *testing.T) {
	t.Parallel()

	audit := kittest.Extension("audit", needlekit.NewModule("audit").ProvideValue("ext.audit", true))
	broken := kittest.FailingExtension("broken", errors.New("no license"))
	panicking := kittest.PanickingExtension("panicking")
	reader := kittest.Extension(
		"reader", needlekit.NewModule("reader").ProvideValue("ext.reader", true), needlekit.Profile("Read"),
	)

	b := builder().WithExt(true).WithExtensionRegistry(kittest.Extensions(audit, broken, panicking, reader))
	ts := kittest.Build(t, b)

	kittest.AssertBound(t, ts.Bindings(), "ext.audit")
	kittest.AssertNotBound(t, ts.Bindings(), "ext.reader")
	assert.Len(t, ts.Warnings(), 2)

	kittest.Build(t, b)
	assert.Equal(t, 2, audit.Loads())
	assert.Equal(t, 2, broken.Loads())
	assert.Equal(t, 2, panicking.Loads())
	assert.Zero(t, reader.Loads())
}
