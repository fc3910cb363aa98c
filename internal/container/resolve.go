package container

import (
	"context"
	"fmt"
	"time"

	"github.com/danpasecinic/needlekit/internal/scope"
)

func (c *Container) Resolve(ctx context.Context, key string) (any, error) {
	start := time.Now()

	c.resolvingMu.Lock()
	if c.resolving[key] {
		c.resolvingMu.Unlock()
		err := fmt.Errorf("circular resolution detected for: %s", key)
		c.callResolveHooks(key, time.Since(start), err)
		return nil, err
	}
	c.resolving[key] = true
	c.resolvingMu.Unlock()

	defer func() {
		c.resolvingMu.Lock()
		delete(c.resolving, key)
		c.resolvingMu.Unlock()
	}()

	c.mu.RLock()
	entry, exists := c.registry.Get(key)
	c.mu.RUnlock()

	if !exists {
		err := fmt.Errorf("service not found: %s", key)
		c.callResolveHooks(key, time.Since(start), err)
		return nil, err
	}

	var (
		result any
		err    error
	)
	switch entry.Scope {
	case scope.PerCall:
		result, err = c.resolvePerCall(ctx, key, entry)
	default:
		result, err = c.resolveSingleton(ctx, key, entry)
	}

	c.callResolveHooks(key, time.Since(start), err)
	return result, err
}

func (c *Container) callResolveHooks(key string, duration time.Duration, err error) {
	for _, hook := range c.onResolve {
		hook(key, duration, err)
	}
}

func (c *Container) resolveSingleton(ctx context.Context, key string, entry *ServiceEntry) (any, error) {
	if instance, ok := c.registry.GetInstance(key); ok {
		return instance, nil
	}

	instance, err := c.construct(ctx, key, entry)
	if err != nil {
		return nil, err
	}

	c.registry.SetInstance(key, instance)

	c.mu.Lock()
	c.created = append(c.created, key)
	c.mu.Unlock()

	return instance, nil
}

func (c *Container) resolvePerCall(ctx context.Context, key string, entry *ServiceEntry) (any, error) {
	return c.construct(ctx, key, entry)
}

func (c *Container) construct(ctx context.Context, key string, entry *ServiceEntry) (any, error) {
	for _, dep := range entry.Dependencies {
		if _, err := c.Resolve(ctx, dep); err != nil {
			return nil, fmt.Errorf("failed to resolve dependency %s for %s: %w", dep, key, err)
		}
	}

	instance, err := entry.Provider(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("provider failed for %s: %w", key, err)
	}
	return instance, nil
}

// InstantiateAll builds every singleton in declared dependency order.
func (c *Container) InstantiateAll(ctx context.Context) error {
	order, err := c.graph.StartupOrder()
	if err != nil {
		return fmt.Errorf("failed to determine instantiation order: %w", err)
	}

	for _, key := range order {
		entry, exists := c.registry.Get(key)
		if !exists || entry.Scope != scope.Singleton || entry.Instantiated {
			continue
		}
		if _, err := c.Resolve(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
