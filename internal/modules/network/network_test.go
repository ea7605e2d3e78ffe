// README: Road network tests on a small grid (paths, reachable sets,
// nearest node, cache behavior).
package network

import (
	"math/rand"
	"testing"

	"taxisim/internal/types"
)

const (
	gridCols = 5
	gridRows = 4
)

// newGridGraph builds a 4x5 grid, nodes 0..19 row-major, every edge time 1.
// Node i sits at coordinate (i%5, i/5).
func newGridGraph(t *testing.T) *Graph {
	t.Helper()
	coords := make([]types.Point, gridCols*gridRows)
	var edges []Edge
	for row := 0; row < gridRows; row++ {
		for col := 0; col < gridCols; col++ {
			id := types.NodeID(row*gridCols + col)
			coords[id] = types.Point{X: float64(col), Y: float64(row)}
			if col+1 < gridCols {
				edges = append(edges, Edge{U: id, V: id + 1, Length: 1, Time: 1})
			}
			if row+1 < gridRows {
				edges = append(edges, Edge{U: id, V: id + gridCols, Length: 1, Time: 1})
			}
		}
	}
	g, err := NewGraph(coords, edges)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	return g
}

func newGridNetwork(t *testing.T, seed int64, opts ...Option) *Network {
	t.Helper()
	return New(newGridGraph(t), rand.New(rand.NewSource(seed)), opts...)
}

func TestNewGraphValidation(t *testing.T) {
	if _, err := NewGraph(nil, nil); err != ErrEmptyGraph {
		t.Fatalf("empty graph error = %v, want ErrEmptyGraph", err)
	}
	coords := []types.Point{{X: 0, Y: 0}, {X: 1, Y: 0}}
	if _, err := NewGraph(coords, []Edge{{U: 0, V: 5, Time: 1}}); err == nil {
		t.Fatal("edge to unknown node accepted")
	}
	if _, err := NewGraph(coords, []Edge{{U: 0, V: 1, Time: 0}}); err == nil {
		t.Fatal("zero edge time accepted")
	}
}

func TestShortestPathGrid(t *testing.T) {
	n := newGridNetwork(t, 1)

	route := n.ShortestPath(0, 6, 10)
	if len(route) == 0 {
		t.Fatal("no route from 0 to 6")
	}
	if route[0] != (RoutePoint{Node: 0, Time: 10}) {
		t.Fatalf("route start = %+v, want node 0 at t=10", route[0])
	}
	last := route[len(route)-1]
	if last.Node != 6 || last.Time != 12 {
		t.Fatalf("route end = %+v, want node 6 at t=12", last)
	}
	for i := 1; i < len(route); i++ {
		if route[i].Time != route[i-1].Time+1 {
			t.Fatalf("non-unit step at %d: %+v -> %+v", i, route[i-1], route[i])
		}
	}
}

func TestShortestPathSameNode(t *testing.T) {
	n := newGridNetwork(t, 1)
	route := n.ShortestPath(3, 3, 5)
	if len(route) != 1 || route[0] != (RoutePoint{Node: 3, Time: 5}) {
		t.Fatalf("same-node route = %v, want single point (3, 5)", route)
	}
}

func TestShortestPathDeterministic(t *testing.T) {
	a := newGridNetwork(t, 1)
	b := newGridNetwork(t, 99)
	// many equal-cost paths exist from corner to corner; the tie-break must
	// not depend on the rng
	r1 := a.ShortestPath(0, 19, 0)
	r2 := b.ShortestPath(0, 19, 0)
	if len(r1) != len(r2) {
		t.Fatalf("route lengths differ: %d vs %d", len(r1), len(r2))
	}
	for i := range r1 {
		if r1[i] != r2[i] {
			t.Fatalf("routes diverge at %d: %+v vs %+v", i, r1[i], r2[i])
		}
	}
}

func TestNodesWithin(t *testing.T) {
	n := newGridNetwork(t, 1)
	got := n.NodesWithin(0, 2)
	want := []types.NodeID{1, 2, 5, 6, 10}
	if len(got) != len(want) {
		t.Fatalf("NodesWithin(0, 2) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("NodesWithin(0, 2) = %v, want %v", got, want)
		}
	}
}

func TestRandomNodeWithinStaysInBudget(t *testing.T) {
	n := newGridNetwork(t, 7)
	for i := 0; i < 50; i++ {
		node, ok := n.RandomNodeWithin(0, 2)
		if !ok {
			t.Fatal("no reachable node from 0")
		}
		if node == 0 {
			t.Fatal("origin returned as candidate")
		}
		if tt, ok := n.ShortestTravelTime(0, node); !ok || tt > 2 {
			t.Fatalf("candidate %d has travel time %d, want <= 2", node, tt)
		}
	}
}

func TestNearestNode(t *testing.T) {
	n := newGridNetwork(t, 1)
	cases := []struct {
		x, y float64
		want types.NodeID
	}{
		{0, 0, 0},
		{2.2, 1.1, 7},
		{4.4, 3.3, 19},
		{1.9, 0.2, 2},
	}
	for _, tc := range cases {
		if got := n.NearestNode(tc.x, tc.y); got != tc.want {
			t.Errorf("NearestNode(%v, %v) = %d, want %d", tc.x, tc.y, got, tc.want)
		}
	}
}

func TestShortestTravelTimeUsesCache(t *testing.T) {
	cache := NewMapCache()
	n := newGridNetwork(t, 1, WithTravelTimeCache(cache))

	tt, ok := n.ShortestTravelTime(0, 19)
	if !ok || tt != 7 {
		t.Fatalf("travel time 0->19 = %d/%v, want 7/true", tt, ok)
	}
	if cached, ok := cache.Get(0, 19); !ok || cached != 7 {
		t.Fatalf("cache entry = %d/%v, want 7/true", cached, ok)
	}

	// poison the cache to prove the second lookup is served from it
	cache.Put(0, 19, 42)
	if tt, _ := n.ShortestTravelTime(0, 19); tt != 42 {
		t.Fatalf("second lookup = %d, want cached 42", tt)
	}
}

func TestShortestTravelTimeUnreachable(t *testing.T) {
	coords := []types.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 9, Y: 9}}
	g, err := NewGraph(coords, []Edge{{U: 0, V: 1, Length: 1, Time: 1}})
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	cache := NewMapCache()
	n := New(g, rand.New(rand.NewSource(1)), WithTravelTimeCache(cache))

	if _, ok := n.ShortestTravelTime(0, 2); ok {
		t.Fatal("isolated node reported reachable")
	}
	// the miss is cached as the -1 sentinel and stays a miss
	if v, ok := cache.Get(0, 2); !ok || v != -1 {
		t.Fatalf("cache sentinel = %d/%v, want -1/true", v, ok)
	}
	if _, ok := n.ShortestTravelTime(0, 2); ok {
		t.Fatal("cached unreachable pair reported reachable")
	}
}

func TestRandomNodeSeededReplay(t *testing.T) {
	a := newGridNetwork(t, 42)
	b := newGridNetwork(t, 42)
	for i := 0; i < 20; i++ {
		if na, nb := a.RandomNode(), b.RandomNode(); na != nb {
			t.Fatalf("draw %d differs: %d vs %d", i, na, nb)
		}
	}
}
