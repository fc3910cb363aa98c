package graph

import (
	"slices"
	"sync"
)

// Graph holds declared dependency edges between capability keys. Iteration
// is always in sorted key order so that derived orders are reproducible.
type Graph struct {
	mu    sync.RWMutex
	edges map[string][]string
}

func New() *Graph {
	return &Graph{
		edges: make(map[string][]string),
	}
}

func (g *Graph) AddNode(id string, dependencies []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	deps := make([]string, len(dependencies))
	copy(deps, dependencies)
	g.edges[id] = deps
}

func (g *Graph) HasNode(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, exists := g.edges[id]
	return exists
}

func (g *Graph) Dependencies(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	deps, exists := g.edges[id]
	if !exists {
		return nil
	}
	return slices.Clone(deps)
}

func (g *Graph) Dependents(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var dependents []string
	for _, nodeID := range g.sortedNodes() {
		if slices.Contains(g.edges[nodeID], id) {
			dependents = append(dependents, nodeID)
		}
	}
	return dependents
}

func (g *Graph) Nodes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.sortedNodes()
}

func (g *Graph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.edges)
}

// Missing reports, per node, the declared dependencies that are not nodes of
// the graph.
func (g *Graph) Missing() map[string][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	missing := make(map[string][]string)
	for _, id := range g.sortedNodes() {
		for _, dep := range g.edges[id] {
			if _, exists := g.edges[dep]; !exists {
				missing[id] = append(missing[id], dep)
			}
		}
	}
	return missing
}

func (g *Graph) sortedNodes() []string {
	nodes := make([]string, 0, len(g.edges))
	for id := range g.edges {
		nodes = append(nodes, id)
	}
	slices.Sort(nodes)
	return nodes
}
