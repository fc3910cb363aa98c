package needlekit

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"sync"

	"go.uber.org/multierr"
)

// ExtensionContract names the kind of extension a provider implements.
type ExtensionContract string

// ExtensionProvider supplies one extension module.
type ExtensionProvider interface {
	Name() string
	// Profiles lists the profiles the extension applies to. An empty list
	// applies to every profile.
	Profiles() []Profile
	Load() (*Module, error)
}

type providerFunc struct {
	name     string
	profiles []Profile
	load     func() (*Module, error)
}

func (p *providerFunc) Name() string { return p.name }

func (p *providerFunc) Profiles() []Profile { return p.profiles }

func (p *providerFunc) Load() (*Module, error) { return p.load() }

// ProviderFunc adapts a load function to ExtensionProvider.
func ProviderFunc(name string, load func() (*Module, error), profiles ...Profile) ExtensionProvider {
	return &providerFunc{name: name, profiles: profiles, load: load}
}

// ExtensionRegistry is the explicit replacement for process-wide service
// lookup. Its lifetime belongs to whoever creates it, usually the test
// harness; providers must be registered before the first build.
type ExtensionRegistry struct {
	mu        sync.RWMutex
	providers map[ExtensionContract][]ExtensionProvider
}

func NewExtensionRegistry() *ExtensionRegistry {
	return &ExtensionRegistry{
		providers: make(map[ExtensionContract][]ExtensionProvider),
	}
}

func (r *ExtensionRegistry) Register(contract ExtensionContract, providers ...ExtensionProvider) *ExtensionRegistry {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers[contract] = append(r.providers[contract], providers...)
	return r
}

// Providers returns the providers of contract in registration order.
func (r *ExtensionRegistry) Providers(contract ExtensionContract) []ExtensionProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.providers[contract])
}

// Discovery scans a registry for the extensions of one contract that apply
// to one profile.
type Discovery struct {
	registry *ExtensionRegistry
	contract ExtensionContract
	profile  Profile
	logger   *slog.Logger
}

func NewDiscovery(registry *ExtensionRegistry, contract ExtensionContract, profile Profile, logger *slog.Logger) *Discovery {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discovery{
		registry: registry,
		contract: contract,
		profile:  profile,
		logger:   logger,
	}
}

// Modules lazily loads each matching provider. A provider that fails,
// panics or returns a malformed module yields an ExtensionLoadWarning in
// place of a module and the scan continues.
func (d *Discovery) Modules() iter.Seq2[*Module, error] {
	return func(yield func(*Module, error) bool) {
		if d.registry == nil {
			return
		}
		for _, p := range d.registry.Providers(d.contract) {
			m, applies, err := load(p, d.profile)
			if !applies {
				continue
			}
			if err != nil {
				if !yield(nil, errExtensionLoad(providerName(p), err)) {
					return
				}
				continue
			}
			if !yield(m, nil) {
				return
			}
		}
	}
}

// Discover drains Modules. The warnings are combined with multierr; a nil
// error means every provider loaded.
func (d *Discovery) Discover() ([]*Module, error) {
	var (
		modules  []*Module
		warnings error
	)
	for m, err := range d.Modules() {
		if err != nil {
			d.logger.Warn("extension provider failed", "contract", d.contract, "error", err)
			warnings = multierr.Append(warnings, err)
			continue
		}
		d.logger.Debug("extension discovered", "contract", d.contract, "module", m.Name())
		modules = append(modules, m)
	}
	return modules, warnings
}

var errNoModule = errors.New("provider returned no module")

func appliesTo(p ExtensionProvider, profile Profile) bool {
	profiles := p.Profiles()
	return len(profiles) == 0 || slices.Contains(profiles, profile)
}

// load runs every call into the provider under recover. The module is
// produced once so that a malformed module is reported here and not at
// composition.
func load(p ExtensionProvider, profile Profile) (m *Module, applies bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			m, applies = nil, true
			err = fmt.Errorf("panic during load: %v", rec)
		}
	}()

	if !appliesTo(p, profile) {
		return nil, false, nil
	}

	m, err = p.Load()
	if err != nil {
		return nil, true, err
	}
	if m == nil {
		return nil, true, errNoModule
	}
	if _, err := m.Produce(); err != nil {
		return nil, true, err
	}
	return m, true, nil
}

func providerName(p ExtensionProvider) (name string) {
	defer func() {
		if recover() != nil {
			name = fmt.Sprintf("%T", p)
		}
	}()
	return p.Name()
}
