package graph

// FindCycle returns the first dependency cycle found, closed on its first
// node (a -> b -> a), or nil when the graph is acyclic.
func (g *Graph) FindCycle() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(g.edges))
	var path []string

	var visit func(id string) []string
	visit = func(id string) []string {
		color[id] = gray
		path = append(path, id)

		for _, dep := range g.edges[id] {
			if _, exists := g.edges[dep]; !exists {
				continue
			}
			switch color[dep] {
			case gray:
				for i, p := range path {
					if p == dep {
						cycle := make([]string, 0, len(path)-i+1)
						cycle = append(cycle, path[i:]...)
						return append(cycle, dep)
					}
				}
			case white:
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}

		path = path[:len(path)-1]
		color[id] = black
		return nil
	}

	for _, id := range g.sortedNodes() {
		if color[id] == white {
			if cycle := visit(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

func (g *Graph) HasCycle() bool {
	return g.FindCycle() != nil
}
