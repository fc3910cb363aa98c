package server

import (
	"errors"
	"slices"
	"strings"
	"sync"
)

type InstanceStatus string

const (
	StatusUp   InstanceStatus = "UP"
	StatusDown InstanceStatus = "DOWN"
)

// InstanceInfo is an entry of the registry.
type InstanceInfo struct {
	ID      string
	App     string
	Address Server
	Status  InstanceStatus
}

var ErrMissingInstanceID = errors.New("instance id is required")

// Registry is the in-memory store of registered instances.
type Registry struct {
	mu        sync.RWMutex
	instances map[string]InstanceInfo
}

func NewRegistry() *Registry {
	return &Registry{
		instances: make(map[string]InstanceInfo),
	}
}

// Register adds or replaces an instance.
func (r *Registry) Register(info InstanceInfo) error {
	if info.ID == "" {
		return ErrMissingInstanceID
	}
	if info.Status == "" {
		info.Status = StatusUp
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.instances[info.ID] = info
	return nil
}

func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.instances[id]; !exists {
		return false
	}
	delete(r.instances, id)
	return true
}

func (r *Registry) Get(id string) (InstanceInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, exists := r.instances[id]
	return info, exists
}

func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.instances)
}

// Snapshot returns every instance ordered by ID.
func (r *Registry) Snapshot() []InstanceInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]InstanceInfo, 0, len(r.instances))
	for _, info := range r.instances {
		out = append(out, info)
	}
	slices.SortFunc(out, func(a, b InstanceInfo) int { return strings.Compare(a.ID, b.ID) })
	return out
}
