package needlekit

import (
	"context"
	"fmt"

	"github.com/danpasecinic/needlekit/internal/container"
)

// Resolver is what factories use to reach other capabilities of the same
// resolve call.
type Resolver interface {
	Resolve(ctx context.Context, key Key) (any, error)
	Has(key Key) bool
}

type resolverAdapter struct {
	container *container.Container
}

func (r *resolverAdapter) Resolve(ctx context.Context, key Key) (any, error) {
	if !r.container.Has(string(key)) {
		return nil, errServiceNotFound(key)
	}
	return r.container.Resolve(ctx, string(key))
}

func (r *resolverAdapter) Has(key Key) bool {
	return r.container.Has(string(key))
}

// wrap lets the internal container call factories written against the
// public Resolver.
func (r *resolverAdapter) wrap(factory Factory) container.ProviderFunc {
	return func(ctx context.Context, _ container.Resolver) (any, error) {
		return factory(ctx, r)
	}
}

func Resolve[T any](ctx context.Context, r Resolver, key Key) (T, error) {
	var zero T

	instance, err := r.Resolve(ctx, key)
	if err != nil {
		return zero, err
	}

	typed, ok := instance.(T)
	if !ok {
		return zero, errTypeMismatch(key, typeName[T](), instance)
	}
	return typed, nil
}

func typeName[T any]() string {
	return fmt.Sprintf("%T", (*T)(nil))[1:]
}

func MustResolve[T any](ctx context.Context, r Resolver, key Key) T {
	v, err := Resolve[T](ctx, r, key)
	if err != nil {
		panic(err)
	}
	return v
}

type Optional[T any] struct {
	value   T
	present bool
}

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.present
}

func (o Optional[T]) Value() T {
	return o.value
}

func (o Optional[T]) Present() bool {
	return o.present
}

func (o Optional[T]) OrElse(defaultValue T) T {
	if o.present {
		return o.value
	}
	return defaultValue
}

func Some[T any](value T) Optional[T] {
	return Optional[T]{value: value, present: true}
}

func None[T any]() Optional[T] {
	return Optional[T]{}
}

// ResolveOptional resolves key when it is bound. An unbound key yields None;
// a bound key that fails to build is still an error.
func ResolveOptional[T any](ctx context.Context, r Resolver, key Key) (Optional[T], error) {
	if !r.Has(key) {
		return None[T](), nil
	}

	v, err := Resolve[T](ctx, r, key)
	if err != nil {
		return None[T](), err
	}
	return Some(v), nil
}
