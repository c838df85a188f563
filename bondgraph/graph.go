// Package bondgraph implements the connectivity of a trajectory's atoms as an
// undirected gonum graph, with one node per atom (node id == atom id) and one edge per bond.
package bondgraph

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"
)

// Graph is the bond graph of a set of atoms. It implements gonum's graph.Undirected
// through the embedded UndirectedGraph.
type Graph struct {
	*simple.UndirectedGraph
	natoms int
}

// New returns a graph with natoms atoms and no bonds.
func New(natoms int) *Graph {
	g := simple.NewUndirectedGraph()
	for i := 0; i < natoms; i++ {
		g.AddNode(simple.Node(i))
	}
	return &Graph{UndirectedGraph: g, natoms: natoms}
}

// AddBond adds a bond between atoms a and b. Adding the same bond twice
// has no effect. It returns an error for a self bond or an atom out of range.
func (G *Graph) AddBond(a, b int) error {
	if a == b {
		return fmt.Errorf("bondgraph: atom %d can't be bonded to itself", a)
	}
	if a < 0 || b < 0 || a >= G.natoms || b >= G.natoms {
		return fmt.Errorf("bondgraph: bond %d-%d out of range for %d atoms", a, b, G.natoms)
	}
	G.SetEdge(G.NewEdge(simple.Node(a), simple.Node(b)))
	return nil
}

// Degree returns the number of bonds of atom id.
func (G *Graph) Degree(id int) int {
	return G.From(int64(id)).Len()
}

// Components returns the connected components of the graph. Each component
// is sorted by atom id, and the components are sorted by their lowest id.
// Atoms without bonds form single-atom components.
func (G *Graph) Components() [][]int {
	cc := topo.ConnectedComponents(G.UndirectedGraph)
	ret := make([][]int, 0, len(cc))
	for _, c := range cc {
		ids := make([]int, len(c))
		for i, n := range c {
			ids[i] = int(n.ID())
		}
		sort.Ints(ids)
		ret = append(ret, ids)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i][0] < ret[j][0] })
	return ret
}

// Walk traverses, breadth-first, the component that contains root. visit
// is called once per reached atom, in traversal order, with the atom from which
// it was reached (parent), or -1 for the root. When visit is called for
// an atom, it has already been called for the atom's parent.
func (G *Graph) Walk(root int, visit func(parent, child int)) {
	reached := make(map[int64]bool)
	parents := make(map[int64]int64)
	reached[int64(root)] = true
	visit(-1, root)
	bf := traverse.BreadthFirst{
		Traverse: func(e graph.Edge) bool {
			from, to := e.From().ID(), e.To().ID()
			if reached[to] {
				from, to = to, from
			}
			if !reached[from] || reached[to] {
				return true //nothing to record, the traversal will skip it.
			}
			if _, ok := parents[to]; !ok {
				parents[to] = from
			}
			return true
		},
		Visit: func(n graph.Node) {
			id := n.ID()
			if reached[id] {
				return
			}
			reached[id] = true
			visit(int(parents[id]), int(id))
		},
	}
	bf.Walk(G.UndirectedGraph, simple.Node(root), nil)
}
