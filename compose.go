package needlekit

import (
	"log/slog"
)

// Conditional is a module that only contributes when its trigger holds at
// compose time.
type Conditional struct {
	Module  *Module
	Trigger func() bool
}

func When(enabled bool, m *Module) Conditional {
	return Conditional{
		Module:  m,
		Trigger: func() bool { return enabled },
	}
}

func WhenFunc(trigger func() bool, m *Module) Conditional {
	return Conditional{
		Module:  m,
		Trigger: trigger,
	}
}

func (c Conditional) active() bool {
	return c.Module != nil && c.Trigger != nil && c.Trigger()
}

// Composer merges module outputs into one effective binding set.
type Composer struct {
	logger *slog.Logger
}

func NewComposer(logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{logger: logger}
}

// Compose applies the precedence chain core < conditional <= override, then
// lets extensions add capabilities that nothing else bound:
//
//  1. core modules, in order; a key bound twice is a CompositionConflict
//  2. triggered conditional modules; a key already bound by core is
//     replaced in place, a key bound by another conditional module conflicts
//  3. overrides; every key is force-set and always wins
//  4. extensions; any key already present is a CompositionConflict
//
// The returned set is sealed. overrides is only read.
func (c *Composer) Compose(
	core []*Module,
	conditional []Conditional,
	overrides *BindingSet,
	extensions []*Module,
) (*BindingSet, error) {
	set := NewBindingSet()

	for _, m := range core {
		produced, err := m.Produce()
		if err != nil {
			return nil, err
		}
		for b := range produced.withOrigin(OriginCore).All() {
			if err := set.Add(b); err != nil {
				return nil, err
			}
		}
	}

	for _, cond := range conditional {
		if !cond.active() {
			if cond.Module != nil {
				c.logger.Debug("skipping conditional module", "module", cond.Module.Name())
			}
			continue
		}

		produced, err := cond.Module.Produce()
		if err != nil {
			return nil, err
		}
		for b := range produced.withOrigin(OriginConditional).All() {
			existing, bound := set.Get(b.Key)
			if bound && existing.Origin != OriginCore {
				return nil, errDuplicateBinding(b.Key, existing.source(), b.source())
			}
			if bound {
				c.logger.Debug(
					"conditional module replaces core binding",
					"key", b.Key, "module", b.Module, "replaced", existing.Module,
				)
			}
			set.put(b)
		}
	}

	if overrides != nil {
		for b := range overrides.All() {
			b.Origin = OriginOverride
			if previous, replaced := set.put(b); replaced {
				c.logger.Debug("override applied", "key", b.Key, "replaced", previous.source())
			}
		}
	}

	for _, m := range extensions {
		produced, err := m.Produce()
		if err != nil {
			return nil, err
		}
		for b := range produced.withOrigin(OriginExtension).All() {
			if existing, bound := set.Get(b.Key); bound {
				return nil, errExtensionConflict(b.Key, m.Name(), existing.source())
			}
			set.put(b)
		}
	}

	return set.seal(), nil
}

// NewOverrides merges override modules into one override list. Unlike
// composition, a later module silently wins over an earlier one for the same
// key, so test code can override the defaults a builder installs.
func NewOverrides(modules ...*Module) (*BindingSet, error) {
	set := NewBindingSet()
	for _, m := range modules {
		produced, err := m.Produce()
		if err != nil {
			return nil, err
		}
		for b := range produced.withOrigin(OriginOverride).All() {
			set.put(b)
		}
	}
	return set, nil
}
