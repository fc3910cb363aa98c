package server

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

// ReplicationService keeps the current set of replication peers by consuming
// the peer feed in the background between Start and Stop.
type ReplicationService struct {
	peers           *ReplicationPeers
	logger          *slog.Logger
	onEvent         func(ChangeNotification)
	buffer          int
	shutdownTimeout time.Duration

	mu      sync.RWMutex
	current map[string]Server
	events  int
	cancel  context.CancelFunc
	done    chan struct{}
}

type ReplicationOption func(*ReplicationService)

// WithEventObserver is called for every consumed notification.
func WithEventObserver(fn func(ChangeNotification)) ReplicationOption {
	return func(s *ReplicationService) {
		s.onEvent = fn
	}
}

// WithPeerBuffer bounds the number of delivered but unprocessed peer
// changes.
func WithPeerBuffer(n int) ReplicationOption {
	return func(s *ReplicationService) {
		s.buffer = n
	}
}

// WithShutdownTimeout caps how long Stop waits for the consumer to exit.
// Zero leaves the caller's context as the only limit.
func WithShutdownTimeout(d time.Duration) ReplicationOption {
	return func(s *ReplicationService) {
		s.shutdownTimeout = d
	}
}

func NewReplicationService(peers *ReplicationPeers, logger *slog.Logger, opts ...ReplicationOption) *ReplicationService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ReplicationService{
		peers:   peers,
		logger:  logger,
		current: make(map[string]Server),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ReplicationService) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return errors.New("replication service already started")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx, s.peers.Subscribe(ctx, s.buffer), s.done)
	return nil
}

func (s *ReplicationService) run(ctx context.Context, feed <-chan ChangeNotification, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-feed:
			if !ok {
				s.logger.Debug("replication peer feed completed")
				return
			}
			s.apply(n)
		}
	}
}

func (s *ReplicationService) apply(n ChangeNotification) {
	s.mu.Lock()
	switch n.Kind {
	case ChangeAdd:
		s.current[n.Data.String()] = n.Data
	case ChangeDelete:
		delete(s.current, n.Data.String())
	}
	s.events++
	s.mu.Unlock()

	s.logger.Debug("replication peer change", "kind", n.Kind, "peer", n.Data)
	if s.onEvent != nil {
		s.onEvent(n)
	}
}

// Stop ends consumption of the feed and waits for the consumer to exit, for
// ctx to expire or for the shutdown timeout to elapse.
func (s *ReplicationService) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()
	if s.shutdownTimeout > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, s.shutdownTimeout)
		defer stop()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Peers returns the known peers ordered by address.
func (s *ReplicationService) Peers() []Server {
	s.mu.RLock()
	defer s.mu.RUnlock()

	peers := make([]Server, 0, len(s.current))
	for _, p := range s.current {
		peers = append(peers, p)
	}
	slices.SortFunc(peers, func(a, b Server) int { return strings.Compare(a.String(), b.String()) })
	return peers
}

func (s *ReplicationService) Events() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.events
}

func (s *ReplicationService) PeerBuffer() int {
	return s.buffer
}

func (s *ReplicationService) ShutdownTimeout() time.Duration {
	return s.shutdownTimeout
}
