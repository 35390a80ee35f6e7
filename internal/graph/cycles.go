package graph

import (
	"cmp"
	"slices"
)

// FindCycles returns all strongly connected components with more than
// one node, plus single nodes with a self-loop, found via Tarjan's
// algorithm. The recursion-stack membership check guarantees
// termination even on self-referential or mutually-referential files.
// Results are deterministic: nodes are visited in sorted order.
func (g *Graph) FindCycles() [][]string {
	var (
		index    int
		stack    []string
		onStack  = make(map[string]bool)
		indices  = make(map[string]int)
		lowlinks = make(map[string]int)
		cycles   [][]string
	)

	var strongConnect func(path string)
	strongConnect = func(path string) {
		indices[path] = index
		lowlinks[path] = index
		index++
		stack = append(stack, path)
		onStack[path] = true

		for _, dep := range g.edges[path] {
			if _, visited := indices[dep]; !visited {
				strongConnect(dep)
				lowlinks[path] = min(lowlinks[path], lowlinks[dep])
			} else if onStack[dep] {
				lowlinks[path] = min(lowlinks[path], indices[dep])
			}
		}

		if lowlinks[path] == indices[path] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == path {
					break
				}
			}
			if len(scc) > 1 {
				slices.Reverse(scc)
				cycles = append(cycles, scc)
			} else if slices.Contains(g.edges[scc[0]], scc[0]) {
				cycles = append(cycles, scc)
			}
		}
	}

	sorted := make([]string, 0, len(g.nodes))
	for path := range g.nodes {
		sorted = append(sorted, path)
	}
	slices.SortFunc(sorted, func(a, b string) int {
		return cmp.Compare(a, b)
	})

	for _, path := range sorted {
		if _, visited := indices[path]; !visited {
			strongConnect(path)
		}
	}

	return cycles
}

// HasCycles reports whether the graph contains any cycles.
func (g *Graph) HasCycles() bool {
	return len(g.FindCycles()) > 0
}
