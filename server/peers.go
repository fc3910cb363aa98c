package server

import (
	"context"
	"sync"
)

// ReplicationPeers fans one feed of replication peer changes out to any
// number of subscribers. Every subscriber receives the whole stream from its
// first element, so servers built from the same feed all see the same peers.
// The source is not read until the first subscription.
type ReplicationPeers struct {
	source <-chan ChangeNotification
	pump   sync.Once

	mu       sync.Mutex
	history  []ChangeNotification
	complete bool
	changed  chan struct{}
}

func NewReplicationPeers(source <-chan ChangeNotification) *ReplicationPeers {
	return &ReplicationPeers{
		source:  source,
		changed: make(chan struct{}),
	}
}

// NoReplicationPeers is a feed that is already complete.
func NoReplicationPeers() *ReplicationPeers {
	source := make(chan ChangeNotification)
	close(source)
	return NewReplicationPeers(source)
}

// Subscribe streams every change, past and future, until the source
// completes or ctx ends. The returned channel is closed in both cases;
// buffer sets its capacity.
func (p *ReplicationPeers) Subscribe(ctx context.Context, buffer int) <-chan ChangeNotification {
	p.pump.Do(func() { go p.drain() })

	if buffer < 0 {
		buffer = 0
	}
	out := make(chan ChangeNotification, buffer)
	go p.relay(ctx, out)
	return out
}

func (p *ReplicationPeers) drain() {
	for n := range p.source {
		p.mu.Lock()
		p.history = append(p.history, n)
		close(p.changed)
		p.changed = make(chan struct{})
		p.mu.Unlock()
	}

	p.mu.Lock()
	p.complete = true
	close(p.changed)
	p.mu.Unlock()
}

func (p *ReplicationPeers) relay(ctx context.Context, out chan<- ChangeNotification) {
	defer close(out)

	for next := 0; ; {
		p.mu.Lock()
		pending := p.history[next:]
		complete := p.complete
		changed := p.changed
		p.mu.Unlock()

		for _, n := range pending {
			select {
			case out <- n:
				next++
			case <-ctx.Done():
				return
			}
		}
		if len(pending) > 0 {
			continue
		}
		if complete {
			return
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return
		}
	}
}

// Seen returns the number of changes read from the source so far.
func (p *ReplicationPeers) Seen() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.history)
}
