package container

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/multierr"
)

type Starter interface {
	Start(ctx context.Context) error
}

type Stopper interface {
	Stop(ctx context.Context) error
}

// Start runs Start on every managed singleton in creation order. When one
// fails, the services already started are stopped again in reverse order.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateNew && c.state != StateStopped {
		c.mu.Unlock()
		return fmt.Errorf("container already started")
	}
	c.state = StateStarting
	order := slices.Clone(c.created)
	c.started = c.started[:0]
	c.mu.Unlock()

	for _, key := range order {
		if err := c.startService(ctx, key); err != nil {
			rollbackErr := c.stopStarted(ctx)

			c.mu.Lock()
			c.state = StateStopped
			c.mu.Unlock()

			return multierr.Append(err, rollbackErr)
		}
	}

	c.mu.Lock()
	c.state = StateRunning
	c.mu.Unlock()

	return nil
}

func (c *Container) startService(ctx context.Context, key string) error {
	entry, exists := c.registry.Get(key)
	if !exists || entry.Unmanaged {
		return nil
	}

	instance, ok := c.registry.GetInstance(key)
	if !ok {
		return nil
	}

	starter, ok := instance.(Starter)
	if !ok {
		c.markStarted(key)
		return nil
	}

	start := time.Now()
	c.logger.Debug("starting service", "service", key)

	var startErr error
	if err := starter.Start(ctx); err != nil {
		startErr = fmt.Errorf("start failed for %s: %w", key, err)
	} else {
		c.markStarted(key)
	}

	c.callLifecycleHooks(c.onStart, key, time.Since(start), startErr)
	return startErr
}

func (c *Container) markStarted(key string) {
	c.mu.Lock()
	c.started = append(c.started, key)
	c.mu.Unlock()
}

// Stop runs Stop on every started service in reverse start order. All
// services are attempted; their errors are combined.
func (c *Container) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return nil
	}
	c.state = StateStopping
	c.mu.Unlock()

	err := c.stopStarted(ctx)

	c.mu.Lock()
	c.state = StateStopped
	c.mu.Unlock()

	return err
}

func (c *Container) stopStarted(ctx context.Context) error {
	c.mu.Lock()
	order := slices.Clone(c.started)
	c.started = c.started[:0]
	c.mu.Unlock()

	slices.Reverse(order)

	var errs error
	for _, key := range order {
		instance, ok := c.registry.GetInstance(key)
		if !ok {
			continue
		}
		stopper, ok := instance.(Stopper)
		if !ok {
			continue
		}

		start := time.Now()
		c.logger.Debug("stopping service", "service", key)

		var stopErr error
		if err := stopper.Stop(ctx); err != nil {
			stopErr = fmt.Errorf("stop failed for %s: %w", key, err)
			errs = multierr.Append(errs, stopErr)
		}
		c.callLifecycleHooks(c.onStop, key, time.Since(start), stopErr)
	}
	return errs
}

func (c *Container) callLifecycleHooks(hooks []LifecycleHook, key string, duration time.Duration, err error) {
	for _, hook := range hooks {
		hook(key, duration, err)
	}
}
