package container

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/danpasecinic/needlekit/internal/graph"
	"github.com/danpasecinic/needlekit/internal/scope"
)

type State int

const (
	StateNew State = iota
	StateStarting
	StateRunning
	StateStopping
	StateStopped
)

type ResolveHook func(key string, duration time.Duration, err error)

type LifecycleHook func(key string, duration time.Duration, err error)

// Container is the instance store of a single resolve call. Registration and
// instantiation happen on one goroutine; only the lifecycle and health
// methods are expected to be called concurrently afterwards.
type Container struct {
	mu       sync.RWMutex
	registry *Registry
	graph    *graph.Graph
	logger   *slog.Logger
	state    State

	// created lists singleton keys in the order their instances were built,
	// which always places a dependency before its consumers.
	created []string
	started []string

	resolving   map[string]bool
	resolvingMu sync.Mutex

	onResolve []ResolveHook
	onStart   []LifecycleHook
	onStop    []LifecycleHook
}

type Config struct {
	Logger    *slog.Logger
	OnResolve []ResolveHook
	OnStart   []LifecycleHook
	OnStop    []LifecycleHook
}

func New(cfg *Config) *Container {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Container{
		registry:  NewRegistry(),
		graph:     graph.New(),
		logger:    logger,
		resolving: make(map[string]bool),
		onResolve: cfg.OnResolve,
		onStart:   cfg.OnStart,
		onStop:    cfg.OnStop,
	}
}

func (c *Container) Register(key string, provider ProviderFunc, dependencies []string, s scope.Scope) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.registry.Has(key) {
		return fmt.Errorf("service already registered: %s", key)
	}

	c.registry.Register(key, provider, dependencies, s)
	c.graph.AddNode(key, dependencies)
	return nil
}

func (c *Container) RegisterValue(key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.registry.Has(key) {
		return fmt.Errorf("service already registered: %s", key)
	}

	c.registry.RegisterValue(key, value)
	c.graph.AddNode(key, nil)
	return nil
}

func (c *Container) SetUnmanaged(key string) {
	c.registry.SetUnmanaged(key)
}

func (c *Container) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.registry.Has(key)
}

func (c *Container) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := c.registry.Keys()
	slices.Sort(keys)
	return keys
}

func (c *Container) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.registry.Size()
}

func (c *Container) GetInstance(key string) (any, bool) {
	return c.registry.GetInstance(key)
}

func (c *Container) Created() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return slices.Clone(c.created)
}

var (
	ErrMissingDependency  = errors.New("missing dependencies")
	ErrCircularDependency = errors.New("circular dependency detected")
)

// Validate checks that every declared dependency is registered and that the
// declared dependencies are acyclic.
func (c *Container) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if missing := c.graph.Missing(); len(missing) > 0 {
		parts := make([]string, 0, len(missing))
		for _, key := range c.graph.Nodes() {
			if deps, ok := missing[key]; ok {
				parts = append(parts, fmt.Sprintf("%s requires %s", key, strings.Join(deps, ", ")))
			}
		}
		return fmt.Errorf("%w: %s", ErrMissingDependency, strings.Join(parts, "; "))
	}

	if cycle := c.graph.FindCycle(); cycle != nil {
		return fmt.Errorf("%w: %s", ErrCircularDependency, strings.Join(cycle, " -> "))
	}

	return nil
}

func (c *Container) Graph() *graph.Graph {
	return c.graph
}

func (c *Container) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}
