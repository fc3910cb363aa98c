package needlekit

import (
	"context"
	"slices"

	"github.com/danpasecinic/needlekit/internal/scope"
)

// Provider is the typed form of Factory.
type Provider[T any] func(ctx context.Context, r Resolver) (T, error)

type BindingOption func(*bindingConfig)

type bindingConfig struct {
	scope        scope.Scope
	dependencies []Key
}

func WithScope(s Scope) BindingOption {
	return func(cfg *bindingConfig) {
		cfg.scope = s
	}
}

// WithDependencies declares the capabilities a binding needs. Declared
// dependencies are validated before anything is built and decide the
// instantiation order.
func WithDependencies(keys ...Key) BindingOption {
	return func(cfg *bindingConfig) {
		for _, k := range keys {
			if !slices.Contains(cfg.dependencies, k) {
				cfg.dependencies = append(cfg.dependencies, k)
			}
		}
	}
}

func ModuleProvide[T any](m *Module, key Key, provider Provider[T], opts ...BindingOption) *Module {
	return m.Provide(
		key, func(ctx context.Context, r Resolver) (any, error) {
			return provider(ctx, r)
		}, opts...,
	)
}

func ModuleProvideValue[T any](m *Module, key Key, value T, opts ...BindingOption) *Module {
	return m.ProvideValue(key, value, opts...)
}
