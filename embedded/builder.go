package embedded

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/danpasecinic/needlekit"
	"github.com/danpasecinic/needlekit/config"
	"github.com/danpasecinic/needlekit/metrics"
	"github.com/danpasecinic/needlekit/netrouter"
	"github.com/danpasecinic/needlekit/server"
)

// WriteServerBuilder accumulates the options of an embedded write server.
// Setters only record state; Build does the work and may be called any
// number of times, each call producing an independent server.
type WriteServerBuilder struct {
	cfg      *config.WriteServerConfig
	source   config.Source
	logger   *slog.Logger
	resolver needlekit.LifecycleResolver

	adminUI bool

	ext        bool
	extensions *needlekit.ExtensionRegistry

	networkFaults bool
	router        netrouter.Router

	replication bool
	peers       *server.ReplicationPeers

	overrides []*needlekit.Module
}

func NewWriteServerBuilder() *WriteServerBuilder {
	return &WriteServerBuilder{}
}

// WithConfiguration sets an explicit configuration. Without one, Build loads
// the configuration source.
func (b *WriteServerBuilder) WithConfiguration(cfg *config.WriteServerConfig) *WriteServerBuilder {
	b.cfg = cfg
	return b
}

// WithConfigSource replaces the default EUREKA2_* environment source.
func (b *WriteServerBuilder) WithConfigSource(source config.Source) *WriteServerBuilder {
	b.source = source
	return b
}

func (b *WriteServerBuilder) WithAdminUI(enabled bool) *WriteServerBuilder {
	b.adminUI = enabled
	return b
}

// WithExt turns extension discovery on. It needs an extension registry.
func (b *WriteServerBuilder) WithExt(enabled bool) *WriteServerBuilder {
	b.ext = enabled
	return b
}

func (b *WriteServerBuilder) WithExtensionRegistry(registry *needlekit.ExtensionRegistry) *WriteServerBuilder {
	b.extensions = registry
	return b
}

// WithNetworkRouter routes the transport through router.
func (b *WriteServerBuilder) WithNetworkRouter(router netrouter.Router) *WriteServerBuilder {
	b.router = router
	return b
}

// WithNetworkFaults requires a network router to be set.
func (b *WriteServerBuilder) WithNetworkFaults(enabled bool) *WriteServerBuilder {
	b.networkFaults = enabled
	return b
}

// WithReplicationPeers sets the replication peer feed. Every server built
// from b receives the whole stream; the feed is only read once a server
// starts.
func (b *WriteServerBuilder) WithReplicationPeers(feed <-chan server.ChangeNotification) *WriteServerBuilder {
	if feed == nil {
		b.peers = nil
		return b
	}
	b.peers = server.NewReplicationPeers(feed)
	return b
}

// WithReplicationPeerFeed shares an existing peer feed, for servers built
// from different builders.
func (b *WriteServerBuilder) WithReplicationPeerFeed(peers *server.ReplicationPeers) *WriteServerBuilder {
	b.peers = peers
	return b
}

// WithReplication requires a replication peer feed to be set.
func (b *WriteServerBuilder) WithReplication(enabled bool) *WriteServerBuilder {
	b.replication = enabled
	return b
}

// WithOverride binds key to factory ahead of anything the modules bind. A
// later override of the same key wins.
func (b *WriteServerBuilder) WithOverride(
	key needlekit.Key,
	factory needlekit.Factory,
	opts ...needlekit.BindingOption,
) *WriteServerBuilder {
	b.overrides = append(b.overrides, needlekit.NewModule("test-overrides").Provide(key, factory, opts...))
	return b
}

func (b *WriteServerBuilder) WithOverrideValue(key needlekit.Key, value any) *WriteServerBuilder {
	b.overrides = append(b.overrides, needlekit.NewModule("test-overrides").ProvideValue(key, value))
	return b
}

func (b *WriteServerBuilder) WithLogger(logger *slog.Logger) *WriteServerBuilder {
	b.logger = logger
	return b
}

// WithLifecycleResolver replaces the default injector.
func (b *WriteServerBuilder) WithLifecycleResolver(resolver needlekit.LifecycleResolver) *WriteServerBuilder {
	b.resolver = resolver
	return b
}

// Composition is the outcome of composing one build, before resolution.
type Composition struct {
	Bindings *needlekit.BindingSet
	Warnings error
	Config   *config.WriteServerConfig
	Metrics  *metrics.Collector
}

// Compose validates the builder state, loads the configuration, discovers
// extensions and merges every module into the effective binding set.
func (b *WriteServerBuilder) Compose() (*Composition, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := b.loadConfig()
	if err != nil {
		return nil, err
	}

	var (
		extensions []*needlekit.Module
		warnings   error
	)
	if b.ext {
		discovery := needlekit.NewDiscovery(b.extensions, ExtensionContract, WriteProfile, logger)
		extensions, warnings = discovery.Discover()
	}

	collector := metrics.NewCollector(metrics.DefaultNamespace)

	core := []*needlekit.Module{
		ConfigurationModule(cfg),
		CommonServerModule(logger, collector),
		WriteServerModule(),
	}
	conditional := []needlekit.Conditional{
		needlekit.When(b.adminUI, AdminModule(cfg.Transport.WebAdminPort)),
		needlekit.When(b.router != nil, NetworkRouterModule(b.router)),
		needlekit.When(b.peers != nil, ReplicationPeersModule(b.peers)),
	}

	overrides, err := needlekit.NewOverrides(append([]*needlekit.Module{rootOverrides(warnings)}, b.overrides...)...)
	if err != nil {
		return nil, err
	}

	set, err := needlekit.NewComposer(logger).Compose(core, conditional, overrides, extensions)
	if err != nil {
		return nil, err
	}

	return &Composition{
		Bindings: set,
		Warnings: warnings,
		Config:   cfg,
		Metrics:  collector,
	}, nil
}

// Build composes and resolves a new write server. The server is not
// started.
func (b *WriteServerBuilder) Build(ctx context.Context) (*WriteServer, error) {
	composition, err := b.Compose()
	if err != nil {
		return nil, err
	}

	root, err := b.lifecycleResolver(composition).Resolve(ctx, composition.Bindings, WriteProfile)
	if err != nil {
		return nil, err
	}

	ws, ok := root.(*WriteServer)
	if !ok {
		return nil, needlekit.NewResolutionFailure(ServerKey, fmt.Errorf("root instance is %T, not *embedded.WriteServer", root))
	}
	return ws, nil
}

func (b *WriteServerBuilder) validate() error {
	if b.networkFaults && b.router == nil {
		return needlekit.NewMissingRequiredParameter("network fault injection", "network router")
	}
	if b.replication && b.peers == nil {
		return needlekit.NewMissingRequiredParameter("replication", "replication peer feed")
	}
	if b.ext && b.extensions == nil {
		return needlekit.NewMissingRequiredParameter("extension discovery", "extension registry")
	}
	return nil
}

func (b *WriteServerBuilder) loadConfig() (*config.WriteServerConfig, error) {
	source := b.source
	if b.cfg != nil {
		source = config.Static(b.cfg)
	} else if source == nil {
		source = config.DefaultSource()
	}

	cfg, err := source.Load()
	if err != nil {
		return nil, needlekit.NewConfigurationFailed(source.Name(), err)
	}
	return cfg, nil
}

func (b *WriteServerBuilder) lifecycleResolver(c *Composition) needlekit.LifecycleResolver {
	if b.resolver != nil {
		return b.resolver
	}

	opts := []needlekit.Option{
		needlekit.WithProfileDefaults(WriteProfile, WriteProfileDefaults()),
	}
	if b.logger != nil {
		opts = append(opts, needlekit.WithLogger(b.logger))
	}
	opts = append(opts, c.Metrics.InjectorOptions()...)
	return needlekit.NewInjector(ServerKey, opts...)
}
