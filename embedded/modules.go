package embedded

import (
	"context"
	"log/slog"

	"github.com/danpasecinic/needlekit"
	"github.com/danpasecinic/needlekit/admin"
	"github.com/danpasecinic/needlekit/config"
	"github.com/danpasecinic/needlekit/metrics"
	"github.com/danpasecinic/needlekit/netrouter"
	"github.com/danpasecinic/needlekit/server"
)

// ConfigurationModule binds the configuration a build was started with.
func ConfigurationModule(cfg *config.WriteServerConfig) *needlekit.Module {
	return needlekit.ModuleProvideValue(needlekit.NewModule("configuration"), ConfigKey, cfg)
}

// CommonServerModule binds the capabilities every server role shares.
func CommonServerModule(logger *slog.Logger, collector *metrics.Collector) *needlekit.Module {
	m := needlekit.NewModule("common-server")
	needlekit.ModuleProvideValue(m, LoggerKey, logger)
	needlekit.ModuleProvideValue(m, MetricsKey, collector)
	needlekit.ModuleProvide(
		m, RegistryKey, func(context.Context, needlekit.Resolver) (*server.Registry, error) {
			return server.NewRegistry(), nil
		},
	)
	return m
}

// WriteServerModule binds the write server's transport, its replication
// service and the root instance.
func WriteServerModule() *needlekit.Module {
	m := needlekit.NewModule("write-server")
	needlekit.ModuleProvide(
		m, TransportKey, func(ctx context.Context, r needlekit.Resolver) (server.WriteTransport, error) {
			cfg, logger, collector, err := transportDeps(ctx, r)
			if err != nil {
				return nil, err
			}
			return server.NewTCPTransport(cfg.Transport, logger, connectionObserver(collector)), nil
		},
		needlekit.WithDependencies(ConfigKey, LoggerKey, MetricsKey),
	)
	needlekit.ModuleProvide(
		m, ReplicationServiceKey, func(ctx context.Context, r needlekit.Resolver) (*server.ReplicationService, error) {
			cfg, err := needlekit.Resolve[*config.WriteServerConfig](ctx, r, ConfigKey)
			if err != nil {
				return nil, err
			}
			peers, err := needlekit.Resolve[*server.ReplicationPeers](ctx, r, ReplicationPeersKey)
			if err != nil {
				return nil, err
			}
			logger, err := needlekit.Resolve[*slog.Logger](ctx, r, LoggerKey)
			if err != nil {
				return nil, err
			}
			collector, err := needlekit.Resolve[*metrics.Collector](ctx, r, MetricsKey)
			if err != nil {
				return nil, err
			}
			observer := server.WithEventObserver(
				func(n server.ChangeNotification) { collector.ObservePeerEvent(n.Kind.String()) },
			)
			return server.NewReplicationService(
				peers, logger, observer,
				server.WithPeerBuffer(cfg.Replication.PeerBuffer),
				server.WithShutdownTimeout(cfg.Replication.ShutdownTimeout),
			), nil
		},
		needlekit.WithDependencies(ConfigKey, ReplicationPeersKey, LoggerKey, MetricsKey),
	)
	m.Provide(ServerKey, writeServerFactory(nil), writeServerDependencies()...)
	return m
}

// AdminModule binds the administrative HTTP interface on port.
func AdminModule(port int) *needlekit.Module {
	m := needlekit.NewModule("admin")
	needlekit.ModuleProvide(
		m, AdminKey, func(ctx context.Context, r needlekit.Resolver) (*admin.Server, error) {
			cfg, err := needlekit.Resolve[*config.WriteServerConfig](ctx, r, ConfigKey)
			if err != nil {
				return nil, err
			}
			logger, err := needlekit.Resolve[*slog.Logger](ctx, r, LoggerKey)
			if err != nil {
				return nil, err
			}
			lifecycle, err := needlekit.Resolve[needlekit.Lifecycle](ctx, r, needlekit.LifecycleKey)
			if err != nil {
				return nil, err
			}
			bindings, err := needlekit.Resolve[*needlekit.BindingSet](ctx, r, needlekit.BindingsKey)
			if err != nil {
				return nil, err
			}
			replication, err := needlekit.Resolve[*server.ReplicationService](ctx, r, ReplicationServiceKey)
			if err != nil {
				return nil, err
			}
			registry, err := needlekit.Resolve[*server.Registry](ctx, r, RegistryKey)
			if err != nil {
				return nil, err
			}
			collector, err := needlekit.Resolve[*metrics.Collector](ctx, r, MetricsKey)
			if err != nil {
				return nil, err
			}

			deps := admin.Deps{
				Lifecycle: lifecycle,
				Bindings:  bindings,
				Peers:     replication,
				Registry:  registry,
				Metrics:   collector.Handler(),
			}
			return admin.New(cfg.Transport.Host, port, deps, logger.With("component", "admin")), nil
		},
		needlekit.WithDependencies(
			ConfigKey, LoggerKey, needlekit.LifecycleKey, needlekit.BindingsKey,
			ReplicationServiceKey, RegistryKey, MetricsKey,
		),
	)
	return m
}

// NetworkRouterModule replaces the transport with one routed through router.
func NetworkRouterModule(router netrouter.Router) *needlekit.Module {
	m := needlekit.NewModule("network-router")
	needlekit.ModuleProvide(
		m, TransportKey, func(ctx context.Context, r needlekit.Resolver) (server.WriteTransport, error) {
			cfg, logger, collector, err := transportDeps(ctx, r)
			if err != nil {
				return nil, err
			}
			return NewRoutedTransport(cfg.Transport, router, logger, connectionObserver(collector)), nil
		},
		needlekit.WithDependencies(ConfigKey, LoggerKey, MetricsKey),
	)
	return m
}

// ReplicationPeersModule binds the caller's replication peer feed. The feed
// is shared by every server it is bound into and is not read until a
// replication service starts.
func ReplicationPeersModule(peers *server.ReplicationPeers) *needlekit.Module {
	return needlekit.NewModule("replication-peers").ProvideValue(ReplicationPeersKey, peers)
}

// WriteProfileDefaults are layered in by the resolver for the write profile
// when the composed set leaves their keys unbound.
func WriteProfileDefaults() *needlekit.Module {
	m := needlekit.NewModule("write-profile-defaults")
	needlekit.ModuleProvide(
		m, ReplicationPeersKey, func(context.Context, needlekit.Resolver) (*server.ReplicationPeers, error) {
			return server.NoReplicationPeers(), nil
		},
	)
	return m
}

// rootOverrides binds the root instance with the diagnostics of one build.
func rootOverrides(warnings error) *needlekit.Module {
	return needlekit.NewModule("root-overrides").
		Provide(ServerKey, writeServerFactory(warnings), writeServerDependencies()...)
}

func transportDeps(
	ctx context.Context,
	r needlekit.Resolver,
) (*config.WriteServerConfig, *slog.Logger, *metrics.Collector, error) {
	cfg, err := needlekit.Resolve[*config.WriteServerConfig](ctx, r, ConfigKey)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := needlekit.Resolve[*slog.Logger](ctx, r, LoggerKey)
	if err != nil {
		return nil, nil, nil, err
	}
	collector, err := needlekit.Resolve[*metrics.Collector](ctx, r, MetricsKey)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger.With("component", "transport"), collector, nil
}

func connectionObserver(collector *metrics.Collector) server.TransportOption {
	return server.WithAcceptObserver(
		func(ch server.Channel, admitted bool) {
			collector.ObserveConnection(string(ch), admitted)
		},
	)
}
