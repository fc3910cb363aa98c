package needlekit

import (
	"context"
	"time"

	"github.com/danpasecinic/needlekit/internal/container"
)

// RootInstance is the single object a resolve call hands back. The caller
// owns it and must shut it down.
type RootInstance interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Starter and Stopper are detected on singleton instances; the Lifecycle
// calls them in dependency order.
type Starter = container.Starter

type Stopper = container.Stopper

type HealthChecker = container.HealthChecker

type ReadinessChecker = container.ReadinessChecker

// Lifecycle drives the services of one resolve call. It is bound under
// LifecycleKey so the root instance can depend on it.
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) []HealthReport
	Live(ctx context.Context) error
	Ready(ctx context.Context) error
	Running() bool
}

type HealthStatus string

const (
	HealthStatusUp   HealthStatus = "up"
	HealthStatusDown HealthStatus = "down"
)

type HealthReport struct {
	Name    string
	Status  HealthStatus
	Error   error
	Latency time.Duration
}

type containerLifecycle struct {
	container *container.Container
}

func (l *containerLifecycle) Start(ctx context.Context) error {
	if err := l.container.Start(ctx); err != nil {
		return errStartupFailed(err)
	}
	return nil
}

func (l *containerLifecycle) Stop(ctx context.Context) error {
	if err := l.container.Stop(ctx); err != nil {
		return errShutdownFailed(err)
	}
	return nil
}

func (l *containerLifecycle) Running() bool {
	return l.container.State() == container.StateRunning
}

func (l *containerLifecycle) Health(ctx context.Context) []HealthReport {
	return toReports(l.container.CheckHealth(ctx))
}

func (l *containerLifecycle) Live(ctx context.Context) error {
	return firstDown(l.container.CheckHealth(ctx))
}

func (l *containerLifecycle) Ready(ctx context.Context) error {
	return firstDown(l.container.CheckReadiness(ctx))
}

func toReports(results []container.CheckResult) []HealthReport {
	reports := make([]HealthReport, 0, len(results))
	for _, r := range results {
		report := HealthReport{
			Name:    r.Key,
			Status:  HealthStatusUp,
			Latency: r.Latency,
		}
		if r.Err != nil {
			report.Status = HealthStatusDown
			report.Error = r.Err
		}
		reports = append(reports, report)
	}
	return reports
}

func firstDown(results []container.CheckResult) error {
	for _, r := range results {
		if r.Err != nil {
			return errHealthCheckFailed(Key(r.Key), r.Err)
		}
	}
	return nil
}
