package graph

import (
	"errors"
	"slices"
)

var ErrCycleDetected = errors.New("cycle detected in graph")

// TopologicalSort orders nodes so that every node comes after its
// dependencies. Ties are broken by key order. Edges to unknown nodes are
// ignored.
func (g *Graph) TopologicalSort() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	dependents := make(map[string][]string, len(g.edges))
	inDegree := make(map[string]int, len(g.edges))

	nodes := g.sortedNodes()
	for _, id := range nodes {
		for _, dep := range g.edges[id] {
			if _, exists := g.edges[dep]; exists {
				dependents[dep] = append(dependents[dep], id)
				inDegree[id]++
			}
		}
	}

	var ready []string
	for _, id := range nodes {
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	sorted := make([]string, 0, len(nodes))
	for len(ready) > 0 {
		node := ready[0]
		ready = ready[1:]
		sorted = append(sorted, node)

		var released []string
		for _, dependent := range dependents[node] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				released = append(released, dependent)
			}
		}
		slices.Sort(released)
		ready = append(ready, released...)
	}

	if len(sorted) != len(nodes) {
		return nil, ErrCycleDetected
	}
	return sorted, nil
}

func (g *Graph) StartupOrder() ([]string, error) {
	return g.TopologicalSort()
}

func (g *Graph) ShutdownOrder() ([]string, error) {
	sorted, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}
	slices.Reverse(sorted)
	return sorted, nil
}

// ResolutionOrder returns target and its transitive dependencies, dependencies
// first.
func (g *Graph) ResolutionOrder(target string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, exists := g.edges[target]; !exists {
		return []string{target}, nil
	}

	visited := make(map[string]bool)
	visiting := make(map[string]bool)
	var order []string

	var visit func(id string) error
	visit = func(id string) error {
		if visiting[id] {
			return ErrCycleDetected
		}
		if visited[id] {
			return nil
		}
		visiting[id] = true

		for _, dep := range g.edges[id] {
			if _, exists := g.edges[dep]; !exists {
				continue
			}
			if err := visit(dep); err != nil {
				return err
			}
		}

		visiting[id] = false
		visited[id] = true
		order = append(order, id)
		return nil
	}

	if err := visit(target); err != nil {
		return nil, err
	}
	return order, nil
}
