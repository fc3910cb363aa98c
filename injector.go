package needlekit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/danpasecinic/needlekit/internal/container"
)

// LifecycleResolver turns an effective binding set into a running root
// instance.
type LifecycleResolver interface {
	Resolve(ctx context.Context, set *BindingSet, profile Profile) (RootInstance, error)
}

// Injector is the default LifecycleResolver. Every Resolve call gets its own
// instance store, so no singleton is ever shared between two calls.
type Injector struct {
	root   Key
	config *injectorConfig
}

var _ LifecycleResolver = (*Injector)(nil)

func NewInjector(root Key, opts ...Option) *Injector {
	cfg := &injectorConfig{
		logger:   slog.Default(),
		defaults: make(map[Profile][]*Module),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &Injector{
		root:   root,
		config: cfg,
	}
}

func (i *Injector) Root() Key {
	return i.root
}

// Resolve registers the built-in capabilities, every binding of set and the
// profile defaults for keys set leaves unbound, validates declared
// dependencies, builds every singleton once and returns the root. set is
// never modified. Every failure is a ResolutionFailure.
func (i *Injector) Resolve(ctx context.Context, set *BindingSet, profile Profile) (RootInstance, error) {
	c := container.New(
		&container.Config{
			Logger:    i.config.logger,
			OnResolve: i.resolveHooks(),
			OnStart:   i.startHooks(),
			OnStop:    i.stopHooks(),
		},
	)
	adapter := &resolverAdapter{container: c}

	builtins := map[Key]any{
		LifecycleKey: &containerLifecycle{container: c},
		BindingsKey:  set,
		ProfileKey:   profile,
	}
	for _, key := range []Key{LifecycleKey, BindingsKey, ProfileKey} {
		if err := c.RegisterValue(string(key), builtins[key]); err != nil {
			return nil, errResolutionFailed(key, err)
		}
	}

	for b := range set.All() {
		if err := i.register(c, adapter, b); err != nil {
			return nil, err
		}
	}

	if err := i.layerDefaults(c, adapter, set, profile); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, errResolutionFailed(i.root, classifyValidation(err))
	}

	if !c.Has(string(i.root)) {
		return nil, errResolutionFailed(i.root, errServiceNotFound(i.root))
	}
	c.SetUnmanaged(string(i.root))

	if err := c.InstantiateAll(ctx); err != nil {
		return nil, errResolutionFailed(i.root, err)
	}

	instance, err := c.Resolve(ctx, string(i.root))
	if err != nil {
		return nil, errResolutionFailed(i.root, err)
	}

	root, ok := instance.(RootInstance)
	if !ok {
		return nil, errResolutionFailed(i.root, errTypeMismatch(i.root, "needlekit.RootInstance", instance))
	}

	i.config.logger.Debug(
		"resolved root instance",
		"root", i.root, "profile", profile, "bindings", set.Len(), "instances", len(c.Created()),
	)
	return root, nil
}

func classifyValidation(err error) error {
	switch {
	case errors.Is(err, container.ErrCircularDependency):
		return newError(ErrCodeCircularDependency, "declared dependencies form a cycle", err)
	case errors.Is(err, container.ErrMissingDependency):
		return newError(ErrCodeServiceNotFound, "declared dependencies are not bound", err)
	default:
		return err
	}
}

func (i *Injector) register(c *container.Container, adapter *resolverAdapter, b Binding) error {
	if isReserved(b.Key) {
		return errResolutionFailed(b.Key, errReservedKey(b.Key))
	}

	deps := make([]string, len(b.Dependencies))
	for j, d := range b.Dependencies {
		deps[j] = string(d)
	}

	if err := c.Register(string(b.Key), adapter.wrap(b.Factory), deps, b.Scope); err != nil {
		return errResolutionFailed(b.Key, err)
	}
	return nil
}

func (i *Injector) layerDefaults(c *container.Container, adapter *resolverAdapter, set *BindingSet, profile Profile) error {
	defaults := NewBindingSet()
	for _, m := range i.config.defaults[profile] {
		produced, err := m.Produce()
		if err != nil {
			return errResolutionFailed(i.root, err)
		}
		for b := range produced.withOrigin(OriginDefault).All() {
			if err := defaults.Add(b); err != nil {
				return errResolutionFailed(b.Key, err)
			}
		}
	}

	for b := range defaults.All() {
		if set.Has(b.Key) {
			continue
		}
		i.config.logger.Debug("layering profile default", "key", b.Key, "module", b.Module, "profile", profile)
		if err := i.register(c, adapter, b); err != nil {
			return err
		}
	}
	return nil
}

func (i *Injector) resolveHooks() []container.ResolveHook {
	hooks := make([]container.ResolveHook, 0, len(i.config.onResolve))
	for _, h := range i.config.onResolve {
		hooks = append(hooks, func(key string, d time.Duration, err error) { h(Key(key), d, err) })
	}
	return hooks
}

func (i *Injector) startHooks() []container.LifecycleHook {
	hooks := make([]container.LifecycleHook, 0, len(i.config.onStart))
	for _, h := range i.config.onStart {
		hooks = append(hooks, func(key string, d time.Duration, err error) { h(Key(key), d, err) })
	}
	return hooks
}

func (i *Injector) stopHooks() []container.LifecycleHook {
	hooks := make([]container.LifecycleHook, 0, len(i.config.onStop))
	for _, h := range i.config.onStop {
		hooks = append(hooks, func(key string, d time.Duration, err error) { h(Key(key), d, err) })
	}
	return hooks
}
