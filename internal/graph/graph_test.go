package graph

import (
	"testing"

	"github.com/structviz/godsl/internal/testutil"
)

func TestEmptyGraph(t *testing.T) {
	g := New()
	testutil.Equal(t, 0, g.Len(), "empty graph size")
	testutil.False(t, g.HasCycles(), "empty graph has no cycles")
}

func TestAddNode(t *testing.T) {
	g := New()
	g.AddNode("a.dsl")
	g.AddNode("a.dsl")

	testutil.Equal(t, 1, g.Len(), "duplicate AddNode is a no-op")
	testutil.True(t, g.HasNode("a.dsl"), "node present")
	testutil.False(t, g.HasNode("b.dsl"), "node absent")
}

func TestAddEdgeImplicitNodes(t *testing.T) {
	g := New()
	g.AddEdge("a.dsl", "b.dsl")

	testutil.Equal(t, 2, g.Len(), "edge creates both nodes")
	testutil.SliceEqual(t, []string{"b.dsl"}, g.Includes("a.dsl"), "forward edge")
	testutil.Len(t, g.Includes("b.dsl"), 0, "no reverse edge")
}

func TestDuplicateEdge(t *testing.T) {
	g := New()
	g.AddEdge("a.dsl", "b.dsl")
	g.AddEdge("a.dsl", "b.dsl")

	testutil.Len(t, g.Includes("a.dsl"), 1, "duplicate edge ignored")
}

func TestAcyclicChain(t *testing.T) {
	g := New()
	g.AddEdge("a.dsl", "b.dsl")
	g.AddEdge("b.dsl", "c.dsl")
	g.AddEdge("a.dsl", "c.dsl")

	testutil.False(t, g.HasCycles(), "diamond chain is acyclic")
	testutil.Len(t, g.FindCycles(), 0, "no cycles found")
}

func TestSelfLoop(t *testing.T) {
	g := New()
	g.AddEdge("a.dsl", "a.dsl")

	cycles := g.FindCycles()
	testutil.Len(t, cycles, 1, "self-loop is a cycle")
	testutil.SliceEqual(t, []string{"a.dsl"}, cycles[0], "cycle members")
}

func TestMutualCycle(t *testing.T) {
	g := New()
	g.AddEdge("a.dsl", "b.dsl")
	g.AddEdge("b.dsl", "a.dsl")

	cycles := g.FindCycles()
	testutil.Len(t, cycles, 1, "one cycle")
	testutil.Len(t, cycles[0], 2, "two members")
	testutil.True(t, g.HasCycles(), "HasCycles")
}

func TestLongCycle(t *testing.T) {
	g := New()
	g.AddEdge("a.dsl", "b.dsl")
	g.AddEdge("b.dsl", "c.dsl")
	g.AddEdge("c.dsl", "d.dsl")
	g.AddEdge("d.dsl", "a.dsl")

	cycles := g.FindCycles()
	testutil.Len(t, cycles, 1, "one cycle")
	testutil.Len(t, cycles[0], 4, "four members")
}

func TestCycleAndBranch(t *testing.T) {
	// A cycle plus an acyclic branch: only the cycle is reported.
	g := New()
	g.AddEdge("a.dsl", "b.dsl")
	g.AddEdge("b.dsl", "a.dsl")
	g.AddEdge("a.dsl", "shared.dsl")
	g.AddEdge("other.dsl", "shared.dsl")

	cycles := g.FindCycles()
	testutil.Len(t, cycles, 1, "only the cycle is reported")
	testutil.Len(t, cycles[0], 2, "cycle members")
}

func TestDeterministicOrder(t *testing.T) {
	build := func() [][]string {
		g := New()
		g.AddEdge("z.dsl", "y.dsl")
		g.AddEdge("y.dsl", "z.dsl")
		g.AddEdge("b.dsl", "a.dsl")
		g.AddEdge("a.dsl", "b.dsl")
		return g.FindCycles()
	}

	first := build()
	second := build()

	testutil.Len(t, first, 2, "two cycles")
	for i := range first {
		testutil.SliceEqual(t, first[i], second[i], "cycle %d stable across runs", i)
	}
}
