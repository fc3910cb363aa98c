package needlekit_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/danpasecinic/needlekit"
)

const (
	configKey   needlekit.Key = "config"
	databaseKey needlekit.Key = "database"
	cacheKey    needlekit.Key = "cache"
	serverKey   needlekit.Key = "server"
	requestKey  needlekit.Key = "request"
)

const testProfile needlekit.Profile = "Test"

type Config struct {
	Port int
	Host string
}

type Database struct {
	Config *Config
	Name   string
}

// events records the order services are started and stopped in.
type events struct {
	mu   sync.Mutex
	list []string
}

func (e *events) add(s string) {
	e.mu.Lock()
	e.list = append(e.list, s)
	e.mu.Unlock()
}

func (e *events) get() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.list...)
}

type Service struct {
	Name     string
	events   *events
	startErr error
	stopErr  error
}

func (s *Service) Start(context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	s.events.add("start:" + s.Name)
	return nil
}

func (s *Service) Stop(context.Context) error {
	s.events.add("stop:" + s.Name)
	return s.stopErr
}

// App is the root instance used by the injector tests.
type App struct {
	Lifecycle needlekit.Lifecycle
	Database  *Database
}

func (a *App) Start(ctx context.Context) error {
	return a.Lifecycle.Start(ctx)
}

func (a *App) Shutdown(ctx context.Context) error {
	return a.Lifecycle.Stop(ctx)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func valueFactory(v any) needlekit.Factory {
	return func(context.Context, needlekit.Resolver) (any, error) {
		return v, nil
	}
}

func provideApp(m *needlekit.Module) *needlekit.Module {
	return needlekit.ModuleProvide(
		m, serverKey, func(ctx context.Context, r needlekit.Resolver) (*App, error) {
			lc, err := needlekit.Resolve[needlekit.Lifecycle](ctx, r, needlekit.LifecycleKey)
			if err != nil {
				return nil, err
			}
			db, err := needlekit.Resolve[*Database](ctx, r, databaseKey)
			if err != nil {
				return nil, err
			}
			return &App{Lifecycle: lc, Database: db}, nil
		}, needlekit.WithDependencies(needlekit.LifecycleKey, databaseKey),
	)
}

func provideDatabase(m *needlekit.Module, name string) *needlekit.Module {
	return needlekit.ModuleProvide(
		m, databaseKey, func(ctx context.Context, r needlekit.Resolver) (*Database, error) {
			cfg, err := needlekit.Resolve[*Config](ctx, r, configKey)
			if err != nil {
				return nil, err
			}
			return &Database{Config: cfg, Name: name}, nil
		}, needlekit.WithDependencies(configKey),
	)
}

// appModule binds config, database and the App root.
func appModule() *needlekit.Module {
	m := needlekit.NewModule("app")
	needlekit.ModuleProvideValue(m, configKey, &Config{Port: 8080, Host: "localhost"})
	provideDatabase(m, "primary")
	return provideApp(m)
}

func compose(t *testing.T, core ...*needlekit.Module) *needlekit.BindingSet {
	t.Helper()

	set, err := needlekit.NewComposer(quietLogger()).Compose(core, nil, nil, nil)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	return set
}
