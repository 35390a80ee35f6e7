// Package graph provides the directed file-inclusion graph used for
// circular-include detection.
package graph

import (
	"slices"
)

// Graph is a directed graph of file paths with forward edges.
type Graph struct {
	nodes map[string]struct{}
	edges map[string][]string
}

// New returns a graph with no nodes or edges.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]struct{}),
		edges: make(map[string][]string),
	}
}

// AddNode registers a path. Duplicate calls are no-ops.
func (g *Graph) AddNode(path string) {
	g.nodes[path] = struct{}{}
}

// AddEdge records that "from" includes "to". Missing nodes are created
// implicitly. Duplicate edges are ignored.
func (g *Graph) AddEdge(from, to string) {
	g.nodes[from] = struct{}{}
	g.nodes[to] = struct{}{}

	if slices.Contains(g.edges[from], to) {
		return
	}
	g.edges[from] = append(g.edges[from], to)
}

// Includes returns the paths that "from" includes (forward edges).
func (g *Graph) Includes(from string) []string {
	return g.edges[from]
}

// HasNode reports whether the path exists in the graph.
func (g *Graph) HasNode(path string) bool {
	_, ok := g.nodes[path]
	return ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}
