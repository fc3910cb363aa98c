package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"

	"github.com/danpasecinic/needlekit/config"
)

// Channel names the endpoint a connection arrived on.
type Channel string

const (
	RegistrationChannel Channel = "registration"
	InterestChannel     Channel = "interest"
	ReplicationChannel  Channel = "replication"
)

var channels = []Channel{RegistrationChannel, InterestChannel, ReplicationChannel}

type Ports struct {
	Registration int
	Interest     int
	Replication  int
}

// WriteTransport is the network face of a write server.
type WriteTransport interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Ports() Ports
}

type ConnHandler func(channel Channel, conn net.Conn)

type TransportOption func(*TCPTransport)

// WithConnHandler replaces the default handler, which closes every
// connection it is given.
func WithConnHandler(h ConnHandler) TransportOption {
	return func(t *TCPTransport) {
		t.handler = h
	}
}

// WithAdmission drops connections for which admit returns false.
func WithAdmission(admit func(port int) bool) TransportOption {
	return func(t *TCPTransport) {
		t.admit = admit
	}
}

// WithPortHooks is told about every port once it is listening and again once
// it is closed. An error from onListen aborts Start.
func WithPortHooks(onListen func(port int) error, onClose func(port int)) TransportOption {
	return func(t *TCPTransport) {
		t.onListen = onListen
		t.onClose = onClose
	}
}

func WithAcceptObserver(fn func(channel Channel, admitted bool)) TransportOption {
	return func(t *TCPTransport) {
		t.onAccept = fn
	}
}

// TCPTransport listens on the registration, interest and replication ports.
type TCPTransport struct {
	cfg    config.TransportConfig
	logger *slog.Logger

	handler  ConnHandler
	admit    func(port int) bool
	onListen func(port int) error
	onClose  func(port int)
	onAccept func(channel Channel, admitted bool)

	mu        sync.Mutex
	listeners map[Channel]net.Listener
	hooked    map[Channel]bool
	ports     Ports
	wg        sync.WaitGroup
}

var _ WriteTransport = (*TCPTransport)(nil)

func NewTCPTransport(cfg config.TransportConfig, logger *slog.Logger, opts ...TransportOption) *TCPTransport {
	if logger == nil {
		logger = slog.Default()
	}
	t := &TCPTransport{
		cfg:     cfg,
		logger:  logger,
		handler: func(_ Channel, conn net.Conn) { _ = conn.Close() },
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *TCPTransport) configuredPort(ch Channel) int {
	switch ch {
	case RegistrationChannel:
		return t.cfg.RegistrationPort
	case InterestChannel:
		return t.cfg.InterestPort
	default:
		return t.cfg.ReplicationPort
	}
}

func (t *TCPTransport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.listeners != nil {
		return errors.New("transport already started")
	}
	t.listeners = make(map[Channel]net.Listener, len(channels))
	t.hooked = make(map[Channel]bool, len(channels))

	var lc net.ListenConfig
	for _, ch := range channels {
		addr := net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.configuredPort(ch)))
		ln, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			t.closeLocked()
			return fmt.Errorf("listen %s on %s: %w", ch, addr, err)
		}

		port := ln.Addr().(*net.TCPAddr).Port
		t.listeners[ch] = ln
		t.setPort(ch, port)

		if t.onListen != nil {
			if err := t.onListen(port); err != nil {
				t.closeLocked()
				return fmt.Errorf("register %s port %d: %w", ch, port, err)
			}
			t.hooked[ch] = true
		}

		t.logger.Debug("transport listening", "channel", ch, "port", port)
		t.wg.Add(1)
		go t.acceptLoop(ch, port, ln)
	}
	return nil
}

func (t *TCPTransport) setPort(ch Channel, port int) {
	switch ch {
	case RegistrationChannel:
		t.ports.Registration = port
	case InterestChannel:
		t.ports.Interest = port
	default:
		t.ports.Replication = port
	}
}

func (t *TCPTransport) acceptLoop(ch Channel, port int, ln net.Listener) {
	defer t.wg.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				t.logger.Warn("transport accept failed", "channel", ch, "error", err)
			}
			return
		}

		admitted := t.admit == nil || t.admit(port)
		if t.onAccept != nil {
			t.onAccept(ch, admitted)
		}
		if !admitted {
			t.logger.Debug("connection dropped", "channel", ch, "remote", conn.RemoteAddr())
			_ = conn.Close()
			continue
		}

		go t.handler(ch, conn)
	}
}

// Stop closes every listener and waits for the accept loops to exit.
func (t *TCPTransport) Stop(ctx context.Context) error {
	t.mu.Lock()
	t.closeLocked()
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *TCPTransport) closeLocked() {
	for ch, ln := range t.listeners {
		port := ln.Addr().(*net.TCPAddr).Port
		_ = ln.Close()
		if t.onClose != nil && t.hooked[ch] {
			t.onClose(port)
		}
		t.logger.Debug("transport closed", "channel", ch, "port", port)
	}
	t.listeners = nil
	t.hooked = nil
	t.ports = Ports{}
}

func (t *TCPTransport) Ports() Ports {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.ports
}

// ReadinessCheck fails until every endpoint is listening.
func (t *TCPTransport) ReadinessCheck(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.listeners) != len(channels) {
		return errors.New("transport is not listening")
	}
	return nil
}
