package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	assert.ErrorIs(t, r.Register(InstanceInfo{}), ErrMissingInstanceID)

	require.NoError(t, r.Register(InstanceInfo{ID: "b", App: "billing"}))
	require.NoError(t, r.Register(InstanceInfo{ID: "a", App: "auth", Status: StatusDown}))
	assert.Equal(t, 2, r.Size())

	info, ok := r.Get("b")
	require.True(t, ok)
	assert.Equal(t, StatusUp, info.Status)

	snapshot := r.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "a", snapshot[0].ID)
	assert.Equal(t, "b", snapshot[1].ID)

	assert.True(t, r.Unregister("a"))
	assert.False(t, r.Unregister("a"))
	assert.Equal(t, 1, r.Size())
}
