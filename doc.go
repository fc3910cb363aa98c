// Package needlekit composes modules of capability bindings into one effective
// binding set and hands it to a lifecycle resolver that produces a single
// running root instance.
//
// It exists to stand up a fully wired server inside one process, typically
// from an integration test, while letting the caller toggle optional features
// and replace individual components.
//
// # Modules
//
// A module groups bindings from capability keys to factories:
//
//	const ConfigKey needlekit.Key = "app.config"
//
//	var ConfigModule = needlekit.NewModule("config").
//	    ProvideValue(ConfigKey, &Config{Port: 8080})
//
//	needlekit.ModuleProvide(ServerModule, ServerKey,
//	    func(ctx context.Context, r needlekit.Resolver) (*Server, error) {
//	        cfg, err := needlekit.Resolve[*Config](ctx, r, ConfigKey)
//	        if err != nil {
//	            return nil, err
//	        }
//	        return NewServer(cfg), nil
//	    },
//	    needlekit.WithDependencies(ConfigKey),
//	)
//
// Produce returns a fresh binding set on every call, so a module value can be
// reused across any number of compositions.
//
// # Composition
//
// The Composer applies a fixed precedence chain:
//
//	set, err := needlekit.NewComposer(logger).Compose(
//	    []*needlekit.Module{ConfigModule, ServerModule},
//	    []needlekit.Conditional{needlekit.When(admin, AdminModule)},
//	    overrides,
//	    extensions,
//	)
//
// Core modules form the base. A triggered conditional module replaces a core
// binding for the same key. Overrides always win. Extensions may only add
// keys nothing else bound; any collision is a CompositionConflict. The
// returned set is sealed.
//
// # Extensions
//
// Extension providers are registered on an explicit ExtensionRegistry under a
// contract and are rediscovered on every composition:
//
//	registry := needlekit.NewExtensionRegistry().
//	    Register(contract, needlekit.ProviderFunc("audit", loadAudit))
//
//	modules, warnings := needlekit.NewDiscovery(registry, contract, profile, logger).Discover()
//
// A provider that fails or panics becomes an ExtensionLoadWarning and the
// remaining providers still load.
//
// # Resolution and Lifecycle
//
// The Injector turns a sealed set into a root instance:
//
//	inj := needlekit.NewInjector(ServerKey,
//	    needlekit.WithProfileDefaults(profile, DefaultsModule),
//	    needlekit.WithLogger(logger),
//	)
//	root, err := inj.Resolve(ctx, set, profile)
//
// Every singleton is created once, in dependency order. Components
// implementing Starter and Stopper are driven by the Lifecycle bound under
// LifecycleKey; HealthChecker and ReadinessChecker feed its health reports.
// All resolution failures carry the ResolutionFailure code.
//
// # Diagnostics
//
//	needlekit.PrintBindings(set)          // table to stdout
//	needlekit.FprintBindingsDOT(w, set)   // Graphviz DOT of declared dependencies
//
// # Metrics Observers
//
// Resolve, start and stop timings are reported per key:
//
//	needlekit.NewInjector(root,
//	    needlekit.WithResolveObserver(func(key needlekit.Key, d time.Duration, err error) {
//	        collector.ObserveResolve(key, d, err)
//	    }),
//	)
package needlekit
