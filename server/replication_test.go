package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplicationService_TracksPeers(t *testing.T) {
	t.Parallel()

	feed := make(chan ChangeNotification)
	var seen []ChangeKind
	svc := NewReplicationService(
		NewReplicationPeers(feed), nil,
		WithEventObserver(func(n ChangeNotification) { seen = append(seen, n.Kind) }),
	)

	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))
	assert.Error(t, svc.Start(ctx))

	a := Server{Host: "10.0.0.1", Port: 7003}
	b := Server{Host: "10.0.0.2", Port: 7003}
	feed <- AddNotification(b)
	feed <- AddNotification(a)
	feed <- DeleteNotification(b)

	require.Eventually(t, func() bool { return svc.Events() == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []Server{a}, svc.Peers())

	require.NoError(t, svc.Stop(ctx))
	assert.Equal(t, []ChangeKind{ChangeAdd, ChangeAdd, ChangeDelete}, seen)
}

func TestReplicationService_CompletedFeed(t *testing.T) {
	t.Parallel()

	svc := NewReplicationService(NoReplicationPeers(), nil)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx))
	require.NoError(t, svc.Stop(ctx))
	assert.Empty(t, svc.Peers())
	assert.Zero(t, svc.Events())
}

func TestReplicationService_StopWithoutStart(t *testing.T) {
	t.Parallel()

	svc := NewReplicationService(NoReplicationPeers(), nil)
	assert.NoError(t, svc.Stop(context.Background()))
}

func TestReplicationService_StopEndsConsumption(t *testing.T) {
	t.Parallel()

	feed := make(chan ChangeNotification)
	peers := NewReplicationPeers(feed)
	svc := NewReplicationService(peers, nil)

	require.NoError(t, svc.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, svc.Stop(ctx))

	feed <- AddNotification(Server{Host: "h", Port: 1})
	require.Eventually(t, func() bool { return peers.Seen() == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, svc.Events())
	assert.Empty(t, svc.Peers())
}

func TestReplicationService_ShutdownTimeout(t *testing.T) {
	t.Parallel()

	feed := make(chan ChangeNotification, 1)
	release := make(chan struct{})
	svc := NewReplicationService(
		NewReplicationPeers(feed), nil,
		WithShutdownTimeout(20*time.Millisecond),
		WithEventObserver(func(ChangeNotification) { <-release }),
	)
	defer close(release)

	require.NoError(t, svc.Start(context.Background()))
	feed <- AddNotification(Server{Host: "h", Port: 1})
	require.Eventually(t, func() bool { return svc.Events() == 1 }, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, svc.Stop(context.Background()), context.DeadlineExceeded)
}

func TestReplicationPeers_EverySubscriberSeesWholeStream(t *testing.T) {
	t.Parallel()

	feed := make(chan ChangeNotification)
	peers := NewReplicationPeers(feed)

	first := NewReplicationService(peers, nil, WithPeerBuffer(4))
	second := NewReplicationService(peers, nil)

	ctx := context.Background()
	require.NoError(t, first.Start(ctx))
	require.NoError(t, second.Start(ctx))

	for port := 1; port <= 10; port++ {
		feed <- AddNotification(Server{Host: "10.0.0.1", Port: port})
	}
	require.Eventually(t, func() bool { return first.Events() == 10 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return second.Events() == 10 }, time.Second, 5*time.Millisecond)

	late := NewReplicationService(peers, nil)
	require.NoError(t, late.Start(ctx))
	require.Eventually(t, func() bool { return late.Events() == 10 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, first.Peers(), late.Peers())

	for _, svc := range []*ReplicationService{first, second, late} {
		require.NoError(t, svc.Stop(ctx))
	}
}

func TestReplicationPeers_SubscriptionClosesOnCompletion(t *testing.T) {
	t.Parallel()

	feed := make(chan ChangeNotification, 2)
	feed <- AddNotification(Server{Host: "a", Port: 1})
	feed <- DeleteNotification(Server{Host: "a", Port: 1})
	close(feed)

	peers := NewReplicationPeers(feed)
	assert.Zero(t, peers.Seen())

	var kinds []ChangeKind
	for n := range peers.Subscribe(context.Background(), 0) {
		kinds = append(kinds, n.Kind)
	}
	assert.Equal(t, []ChangeKind{ChangeAdd, ChangeDelete}, kinds)
	assert.Equal(t, 2, peers.Seen())
}
