package needlekit

import (
	"context"
	"fmt"
)

// Module is a named, reusable producer of bindings. Parameterised modules
// are built by functions that close over their arguments.
type Module struct {
	name       string
	entries    []bindingEntry
	submodules []*Module
}

type bindingEntry struct {
	key     Key
	factory Factory
	opts    []BindingOption
}

func NewModule(name string) *Module {
	return &Module{
		name: name,
	}
}

func (m *Module) Name() string {
	return m.name
}

func (m *Module) Provide(key Key, factory Factory, opts ...BindingOption) *Module {
	m.entries = append(
		m.entries, bindingEntry{
			key:     key,
			factory: factory,
			opts:    opts,
		},
	)
	return m
}

// ProvideValue binds key to an existing value. The value is shared by every
// set the module produces, so it should be owned by the caller.
func (m *Module) ProvideValue(key Key, value any, opts ...BindingOption) *Module {
	return m.Provide(
		key, func(context.Context, Resolver) (any, error) {
			return value, nil
		}, opts...,
	)
}

// Bind makes key resolve to whatever target resolves to.
func (m *Module) Bind(key, target Key, opts ...BindingOption) *Module {
	opts = append(opts, WithDependencies(target))
	return m.Provide(
		key, func(ctx context.Context, r Resolver) (any, error) {
			return r.Resolve(ctx, target)
		}, opts...,
	)
}

func (m *Module) Include(submodule *Module) *Module {
	m.submodules = append(m.submodules, submodule)
	return m
}

// Produce returns a fresh binding set: submodules first, then the module's
// own bindings in declaration order. A key bound twice is a
// CompositionConflict.
func (m *Module) Produce() (*BindingSet, error) {
	set := NewBindingSet()
	if err := m.produceInto(set); err != nil {
		return nil, err
	}
	return set, nil
}

func (m *Module) produceInto(set *BindingSet) error {
	for _, sub := range m.submodules {
		if err := sub.produceInto(set); err != nil {
			return err
		}
	}

	for _, e := range m.entries {
		if e.factory == nil {
			return newError(ErrCodeProviderFailed, fmt.Sprintf("module %s has a nil factory", m.name), nil).
				WithKey(e.key)
		}

		cfg := &bindingConfig{}
		for _, opt := range e.opts {
			opt(cfg)
		}

		b := Binding{
			Key:          e.key,
			Factory:      e.factory,
			Scope:        cfg.scope,
			Dependencies: cfg.dependencies,
			Module:       m.name,
		}
		if err := set.Add(b); err != nil {
			return err
		}
	}
	return nil
}
