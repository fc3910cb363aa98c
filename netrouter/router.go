// Package netrouter simulates network conditions for embedded servers.
package netrouter

import (
	"fmt"
	"slices"
	"sync"

	"golang.org/x/time/rate"
)

// Router is the fault-injection handle a test hands to the builder. Every
// listening port of a routed transport is bridged through it, and every
// accepted connection is admitted or dropped by it.
type Router interface {
	Bridge(port int) error
	RemoveBridge(port int)
	Admit(port int) bool
}

type Stats struct {
	Admitted int
	Rejected int
}

type link struct {
	up      bool
	limiter *rate.Limiter
	stats   Stats
}

// Memory is an in-process Router. Links start up; Disconnect drops every new
// connection on a port until Connect is called.
type Memory struct {
	mu    sync.Mutex
	links map[int]*link
	limit rate.Limit
	burst int
}

type Option func(*Memory)

// WithAcceptRate throttles accepted connections per bridged port.
func WithAcceptRate(limit rate.Limit, burst int) Option {
	return func(m *Memory) {
		m.limit = limit
		m.burst = burst
	}
}

var _ Router = (*Memory)(nil)

func NewMemory(opts ...Option) *Memory {
	m := &Memory{
		links: make(map[int]*link),
		limit: rate.Inf,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Bridge(port int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.links[port]; exists {
		return fmt.Errorf("port %d is already bridged", port)
	}
	m.links[port] = &link{
		up:      true,
		limiter: rate.NewLimiter(m.limit, m.burst),
	}
	return nil
}

func (m *Memory) RemoveBridge(port int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.links, port)
}

// Admit reports whether a connection to port may proceed. Ports that were
// never bridged have no route.
func (m *Memory) Admit(port int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, exists := m.links[port]
	if !exists {
		return false
	}
	if !l.up || !l.limiter.Allow() {
		l.stats.Rejected++
		return false
	}
	l.stats.Admitted++
	return true
}

func (m *Memory) Disconnect(port int) {
	m.setLink(port, false)
}

func (m *Memory) Connect(port int) {
	m.setLink(port, true)
}

func (m *Memory) DisconnectAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, l := range m.links {
		l.up = false
	}
}

func (m *Memory) ConnectAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, l := range m.links {
		l.up = true
	}
}

func (m *Memory) setLink(port int, up bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if l, exists := m.links[port]; exists {
		l.up = up
	}
}

// Bridges returns the bridged ports in ascending order.
func (m *Memory) Bridges() []int {
	m.mu.Lock()
	defer m.mu.Unlock()

	ports := make([]int, 0, len(m.links))
	for p := range m.links {
		ports = append(ports, p)
	}
	slices.Sort(ports)
	return ports
}

func (m *Memory) Stats(port int) Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	if l, exists := m.links[port]; exists {
		return l.stats
	}
	return Stats{}
}
