package embedded

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/danpasecinic/needlekit"
	"github.com/danpasecinic/needlekit/admin"
	"github.com/danpasecinic/needlekit/config"
	"github.com/danpasecinic/needlekit/metrics"
	"github.com/danpasecinic/needlekit/server"
)

// WriteServer is the root instance of a build. The caller owns it: Start
// brings every managed component up in dependency order and Shutdown takes
// them down in reverse.
type WriteServer struct {
	id          uuid.UUID
	cfg         *config.WriteServerConfig
	logger      *slog.Logger
	lifecycle   needlekit.Lifecycle
	bindings    *needlekit.BindingSet
	transport   server.WriteTransport
	registry    *server.Registry
	replication *server.ReplicationService
	admin       *admin.Server
	metrics     *metrics.Collector
	warnings    error
}

var _ needlekit.RootInstance = (*WriteServer)(nil)

func writeServerDependencies() []needlekit.BindingOption {
	return []needlekit.BindingOption{
		needlekit.WithDependencies(
			needlekit.LifecycleKey, needlekit.BindingsKey,
			ConfigKey, LoggerKey, MetricsKey, RegistryKey, TransportKey, ReplicationServiceKey,
		),
	}
}

func writeServerFactory(warnings error) needlekit.Factory {
	return func(ctx context.Context, r needlekit.Resolver) (any, error) {
		s := &WriteServer{
			id:       uuid.New(),
			warnings: warnings,
		}

		var err error
		if s.lifecycle, err = needlekit.Resolve[needlekit.Lifecycle](ctx, r, needlekit.LifecycleKey); err != nil {
			return nil, err
		}
		if s.bindings, err = needlekit.Resolve[*needlekit.BindingSet](ctx, r, needlekit.BindingsKey); err != nil {
			return nil, err
		}
		if s.cfg, err = needlekit.Resolve[*config.WriteServerConfig](ctx, r, ConfigKey); err != nil {
			return nil, err
		}
		if s.logger, err = needlekit.Resolve[*slog.Logger](ctx, r, LoggerKey); err != nil {
			return nil, err
		}
		if s.metrics, err = needlekit.Resolve[*metrics.Collector](ctx, r, MetricsKey); err != nil {
			return nil, err
		}
		if s.registry, err = needlekit.Resolve[*server.Registry](ctx, r, RegistryKey); err != nil {
			return nil, err
		}
		if s.transport, err = needlekit.Resolve[server.WriteTransport](ctx, r, TransportKey); err != nil {
			return nil, err
		}
		if s.replication, err = needlekit.Resolve[*server.ReplicationService](ctx, r, ReplicationServiceKey); err != nil {
			return nil, err
		}

		adminServer, err := needlekit.ResolveOptional[*admin.Server](ctx, r, AdminKey)
		if err != nil {
			return nil, err
		}
		s.admin = adminServer.OrElse(nil)

		s.logger = s.logger.With("server", s.cfg.ServerName, "instance", s.id.String())
		return s, nil
	}
}

func (s *WriteServer) Start(ctx context.Context) error {
	if err := s.lifecycle.Start(ctx); err != nil {
		return err
	}

	attrs := []any{"ports", s.transport.Ports()}
	if s.admin != nil {
		attrs = append(attrs, "admin_port", s.admin.Port())
	}
	s.logger.Info("write server started", attrs...)
	return nil
}

func (s *WriteServer) Shutdown(ctx context.Context) error {
	if err := s.lifecycle.Stop(ctx); err != nil {
		return err
	}
	s.logger.Info("write server stopped")
	return nil
}

func (s *WriteServer) ID() uuid.UUID {
	return s.id
}

func (s *WriteServer) Config() *config.WriteServerConfig {
	return s.cfg
}

func (s *WriteServer) Lifecycle() needlekit.Lifecycle {
	return s.lifecycle
}

// Bindings is the effective binding set the server was resolved from.
func (s *WriteServer) Bindings() *needlekit.BindingSet {
	return s.bindings
}

func (s *WriteServer) Transport() server.WriteTransport {
	return s.transport
}

func (s *WriteServer) Registry() *server.Registry {
	return s.registry
}

func (s *WriteServer) Replication() *server.ReplicationService {
	return s.replication
}

// Admin returns the administrative interface, which is only bound when the
// build enabled it.
func (s *WriteServer) Admin() (*admin.Server, bool) {
	return s.admin, s.admin != nil
}

func (s *WriteServer) Metrics() *metrics.Collector {
	return s.metrics
}

// Warnings lists the extension providers that failed to load during the
// build.
func (s *WriteServer) Warnings() []error {
	return multierr.Errors(s.warnings)
}
