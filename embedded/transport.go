package embedded

import (
	"log/slog"

	"github.com/danpasecinic/needlekit/config"
	"github.com/danpasecinic/needlekit/netrouter"
	"github.com/danpasecinic/needlekit/server"
)

// RoutedTransport is a TCP transport whose ports are bridged through a
// network router, so a test can cut or throttle them.
type RoutedTransport struct {
	*server.TCPTransport
	router netrouter.Router
}

func NewRoutedTransport(
	cfg config.TransportConfig,
	router netrouter.Router,
	logger *slog.Logger,
	opts ...server.TransportOption,
) *RoutedTransport {
	opts = append(
		opts,
		server.WithPortHooks(router.Bridge, router.RemoveBridge),
		server.WithAdmission(router.Admit),
	)
	return &RoutedTransport{
		TCPTransport: server.NewTCPTransport(cfg, logger, opts...),
		router:       router,
	}
}

func (t *RoutedTransport) Router() netrouter.Router {
	return t.router
}
