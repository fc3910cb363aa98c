package container

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type ReadinessChecker interface {
	ReadinessCheck(ctx context.Context) error
}

type CheckResult struct {
	Key     string
	Err     error
	Latency time.Duration
}

// CheckHealth runs every HealthChecker among the built singletons
// concurrently. Results are ordered by key.
func (c *Container) CheckHealth(ctx context.Context) []CheckResult {
	return c.runChecks(
		ctx, func(instance any) (func(context.Context) error, bool) {
			hc, ok := instance.(HealthChecker)
			if !ok {
				return nil, false
			}
			return hc.HealthCheck, true
		},
	)
}

func (c *Container) CheckReadiness(ctx context.Context) []CheckResult {
	return c.runChecks(
		ctx, func(instance any) (func(context.Context) error, bool) {
			rc, ok := instance.(ReadinessChecker)
			if !ok {
				return nil, false
			}
			return rc.ReadinessCheck, true
		},
	)
}

func (c *Container) runChecks(ctx context.Context, pick func(any) (func(context.Context) error, bool)) []CheckResult {
	var (
		results []CheckResult
		mu      sync.Mutex
		wg      sync.WaitGroup
	)

	for _, key := range c.Created() {
		instance, ok := c.registry.GetInstance(key)
		if !ok {
			continue
		}
		check, ok := pick(instance)
		if !ok {
			continue
		}

		wg.Add(1)
		go func(k string, check func(context.Context) error) {
			defer wg.Done()

			start := time.Now()
			err := check(ctx)

			mu.Lock()
			results = append(results, CheckResult{Key: k, Err: err, Latency: time.Since(start)})
			mu.Unlock()
		}(key, check)
	}

	wg.Wait()
	slices.SortFunc(results, func(a, b CheckResult) int { return strings.Compare(a.Key, b.Key) })
	return results
}
