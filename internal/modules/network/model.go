// README: Road network graph model; immutable after construction.
package network

import (
	"errors"
	"fmt"
	"sort"

	"taxisim/internal/types"
)

var (
	ErrEmptyGraph  = errors.New("graph has no nodes")
	ErrBadEdge     = errors.New("edge references unknown node")
	ErrBadEdgeTime = errors.New("edge travel time must be positive")
)

// Edge is an undirected connection between two nodes. Time is the travel
// time in simulation time units; Length is the physical length and is kept
// for data tooling only.
type Edge struct {
	U      types.NodeID
	V      types.NodeID
	Length float64
	Time   int
}

type arc struct {
	to   types.NodeID
	time int
}

// Graph is an undirected weighted road network with node coordinates.
// Node ids are dense integers 0..n-1.
type Graph struct {
	coords []types.Point
	adj    [][]arc
	edges  int
}

// NewGraph builds a graph from node coordinates (index = node id) and an
// edge list. Adjacency lists are sorted by neighbor id so traversals are
// deterministic.
func NewGraph(coords []types.Point, edges []Edge) (*Graph, error) {
	if len(coords) == 0 {
		return nil, ErrEmptyGraph
	}
	g := &Graph{
		coords: append([]types.Point(nil), coords...),
		adj:    make([][]arc, len(coords)),
	}
	n := types.NodeID(len(coords))
	for _, e := range edges {
		if e.U < 0 || e.U >= n || e.V < 0 || e.V >= n {
			return nil, fmt.Errorf("%w: (%d,%d)", ErrBadEdge, e.U, e.V)
		}
		if e.Time <= 0 {
			return nil, fmt.Errorf("%w: (%d,%d) time=%d", ErrBadEdgeTime, e.U, e.V, e.Time)
		}
		g.adj[e.U] = append(g.adj[e.U], arc{to: e.V, time: e.Time})
		g.adj[e.V] = append(g.adj[e.V], arc{to: e.U, time: e.Time})
		g.edges++
	}
	for i := range g.adj {
		sort.Slice(g.adj[i], func(a, b int) bool { return g.adj[i][a].to < g.adj[i][b].to })
	}
	return g, nil
}

// NumNodes returns the node count.
func (g *Graph) NumNodes() int { return len(g.coords) }

// NumEdges returns the undirected edge count.
func (g *Graph) NumEdges() int { return g.edges }

// Coord returns the coordinate of a node.
func (g *Graph) Coord(n types.NodeID) (types.Point, bool) {
	if n < 0 || int(n) >= len(g.coords) {
		return types.Point{}, false
	}
	return g.coords[n], true
}
