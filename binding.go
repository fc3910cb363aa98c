package needlekit

import (
	"context"
	"iter"
)

// Factory builds the implementation of a capability.
type Factory func(ctx context.Context, r Resolver) (any, error)

// Origin records which composition stage contributed a binding.
type Origin uint8

const (
	OriginCore Origin = iota
	OriginConditional
	OriginOverride
	OriginExtension
	OriginDefault
)

func (o Origin) String() string {
	switch o {
	case OriginCore:
		return "core"
	case OriginConditional:
		return "conditional"
	case OriginOverride:
		return "override"
	case OriginExtension:
		return "extension"
	case OriginDefault:
		return "default"
	default:
		return "unknown"
	}
}

type Binding struct {
	Key          Key
	Factory      Factory
	Scope        Scope
	Dependencies []Key
	// Module is the name of the module that produced the binding.
	Module string
	Origin Origin
}

func (b Binding) source() string {
	return b.Origin.String() + " module " + b.Module
}

// BindingSet is an ordered collection of bindings indexed by key. Order is
// kept for diagnostics only. A sealed set rejects every mutation.
type BindingSet struct {
	bindings []Binding
	index    map[Key]int
	sealed   bool
}

func NewBindingSet() *BindingSet {
	return &BindingSet{
		index: make(map[Key]int),
	}
}

// Add appends b. A key that is already present is a CompositionConflict.
func (s *BindingSet) Add(b Binding) error {
	if s.sealed {
		return errSealed(b.Key)
	}
	if i, exists := s.index[b.Key]; exists {
		return errDuplicateBinding(b.Key, s.bindings[i].source(), b.source())
	}
	s.index[b.Key] = len(s.bindings)
	s.bindings = append(s.bindings, b)
	return nil
}

// put stores b, replacing any binding with the same key in place. It reports
// the binding that was replaced.
func (s *BindingSet) put(b Binding) (Binding, bool) {
	if i, exists := s.index[b.Key]; exists {
		previous := s.bindings[i]
		s.bindings[i] = b
		return previous, true
	}
	s.index[b.Key] = len(s.bindings)
	s.bindings = append(s.bindings, b)
	return Binding{}, false
}

func (s *BindingSet) Get(key Key) (Binding, bool) {
	i, exists := s.index[key]
	if !exists {
		return Binding{}, false
	}
	return s.bindings[i], true
}

func (s *BindingSet) Has(key Key) bool {
	_, exists := s.index[key]
	return exists
}

func (s *BindingSet) Len() int {
	return len(s.bindings)
}

func (s *BindingSet) Keys() []Key {
	keys := make([]Key, len(s.bindings))
	for i, b := range s.bindings {
		keys[i] = b.Key
	}
	return keys
}

func (s *BindingSet) All() iter.Seq[Binding] {
	return func(yield func(Binding) bool) {
		for _, b := range s.bindings {
			if !yield(b) {
				return
			}
		}
	}
}

func (s *BindingSet) Sealed() bool {
	return s.sealed
}

func (s *BindingSet) seal() *BindingSet {
	s.sealed = true
	return s
}

func (s *BindingSet) withOrigin(origin Origin) *BindingSet {
	for i := range s.bindings {
		s.bindings[i].Origin = origin
	}
	return s
}
