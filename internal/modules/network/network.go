// README: Road network service: random sampling, reachable sets, and
// time-dependent shortest paths.
package network

import (
	"container/heap"
	"math/rand"
	"sort"

	"taxisim/internal/types"
)

// RoutePoint is one step of a concrete route plan: the node and the
// simulation time at which the vehicle arrives there.
type RoutePoint struct {
	Node types.NodeID `json:"position"`
	Time int          `json:"timestamp"`
}

// Route is a finite sequence of route points with non-decreasing times,
// starting at the origin at departure time and ending at the destination.
type Route []RoutePoint

// Network wraps an immutable Graph with the operations the simulator needs.
// It owns no randomness of its own; the engine-wide rng is injected so that
// seeded runs replay exactly.
type Network struct {
	g     *Graph
	rng   *rand.Rand
	kd    *kdTree
	cache TravelTimeCache
}

// Option configures a Network.
type Option func(*Network)

// WithTravelTimeCache installs a shared travel-time cache consulted before
// running a shortest-path search.
func WithTravelTimeCache(c TravelTimeCache) Option {
	return func(n *Network) { n.cache = c }
}

// New creates a network service over g drawing randomness from rng.
func New(g *Graph, rng *rand.Rand, opts ...Option) *Network {
	n := &Network{g: g, rng: rng}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Graph exposes the underlying immutable graph.
func (n *Network) Graph() *Graph { return n.g }

// Coord returns the coordinate of a node.
func (n *Network) Coord(node types.NodeID) (types.Point, bool) { return n.g.Coord(node) }

// RandomNode returns a uniformly random node.
func (n *Network) RandomNode() types.NodeID {
	return types.NodeID(n.rng.Intn(n.g.NumNodes()))
}

// NodesWithin returns every node reachable from origin with cumulative
// travel time <= budget, excluding origin itself, in ascending node order.
func (n *Network) NodesWithin(origin types.NodeID, budget int) []types.NodeID {
	if origin < 0 || int(origin) >= n.g.NumNodes() {
		return nil
	}
	dist := map[types.NodeID]int{origin: 0}
	pq := &nodeQueue{{node: origin, dist: 0}}
	for pq.Len() > 0 {
		item := heap.Pop(pq).(nodeItem)
		if d, ok := dist[item.node]; ok && item.dist > d {
			continue
		}
		for _, a := range n.g.adj[item.node] {
			nd := item.dist + a.time
			if nd > budget {
				continue
			}
			if d, ok := dist[a.to]; !ok || nd < d {
				dist[a.to] = nd
				heap.Push(pq, nodeItem{node: a.to, dist: nd})
			}
		}
	}
	out := make([]types.NodeID, 0, len(dist)-1)
	for node := range dist {
		if node != origin {
			out = append(out, node)
		}
	}
	sortNodeIDs(out)
	return out
}

// RandomNodeWithin picks a node uniformly from the reachable set of origin
// under the given time budget. The second return is false when no node
// qualifies.
func (n *Network) RandomNodeWithin(origin types.NodeID, budget int) (types.NodeID, bool) {
	reachable := n.NodesWithin(origin, budget)
	if len(reachable) == 0 {
		return 0, false
	}
	return reachable[n.rng.Intn(len(reachable))], true
}

// NearestNode returns the node with minimum Euclidean distance to (x, y).
// The spatial index is built lazily on first use.
func (n *Network) NearestNode(x, y float64) types.NodeID {
	if n.kd == nil {
		n.kd = newKDTree(n.g.coords)
	}
	return n.kd.nearest(types.Point{X: x, Y: y})
}

// ShortestPath returns the fastest route from source to target departing at
// startTime, as (node, arrival time) pairs. The first entry is
// (source, startTime). An empty route means no path exists.
func (n *Network) ShortestPath(source, target types.NodeID, startTime int) Route {
	nodes, _ := n.dijkstra(source, target)
	if nodes == nil {
		return nil
	}
	route := make(Route, 0, len(nodes))
	t := startTime
	route = append(route, RoutePoint{Node: nodes[0], Time: t})
	for i := 0; i+1 < len(nodes); i++ {
		t += n.arcTime(nodes[i], nodes[i+1])
		route = append(route, RoutePoint{Node: nodes[i+1], Time: t})
	}
	return route
}

// ShortestTravelTime returns the minimum travel time from source to target.
// ok is false when target is unreachable.
func (n *Network) ShortestTravelTime(source, target types.NodeID) (tt int, ok bool) {
	if n.cache != nil {
		if tt, ok := n.cache.Get(source, target); ok {
			return tt, tt >= 0
		}
	}
	nodes, total := n.dijkstra(source, target)
	if n.cache != nil {
		stored := total
		if nodes == nil {
			stored = -1 // sentinel for unreachable
		}
		n.cache.Put(source, target, stored)
	}
	if nodes == nil {
		return 0, false
	}
	return total, true
}

func (n *Network) arcTime(u, v types.NodeID) int {
	for _, a := range n.g.adj[u] {
		if a.to == v {
			return a.time
		}
	}
	return 0
}

// dijkstra runs a standard shortest-path search on the time weights and
// returns the node sequence plus total time, or nil when unreachable.
// Ties are resolved by node id so results are deterministic.
func (n *Network) dijkstra(source, target types.NodeID) ([]types.NodeID, int) {
	size := n.g.NumNodes()
	if source < 0 || int(source) >= size || target < 0 || int(target) >= size {
		return nil, 0
	}
	if source == target {
		return []types.NodeID{source}, 0
	}
	const unvisited = -1
	dist := make([]int, size)
	prev := make([]types.NodeID, size)
	for i := range dist {
		dist[i] = unvisited
		prev[i] = unvisited
	}
	dist[source] = 0
	pq := &nodeQueue{{node: source, dist: 0}}
	for pq.Len() > 0 {
		item := heap.Pop(pq).(nodeItem)
		if dist[item.node] != unvisited && item.dist > dist[item.node] {
			continue
		}
		if item.node == target {
			break
		}
		for _, a := range n.g.adj[item.node] {
			nd := item.dist + a.time
			if dist[a.to] == unvisited || nd < dist[a.to] {
				dist[a.to] = nd
				prev[a.to] = item.node
				heap.Push(pq, nodeItem{node: a.to, dist: nd})
			}
		}
	}
	if dist[target] == unvisited {
		return nil, 0
	}
	var nodes []types.NodeID
	for at := target; at != unvisited; at = prev[at] {
		nodes = append(nodes, at)
		if at == source {
			break
		}
	}
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
	return nodes, dist[target]
}

type nodeItem struct {
	node types.NodeID
	dist int
}

type nodeQueue []nodeItem

func (q nodeQueue) Len() int { return len(q) }
func (q nodeQueue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].node < q[j].node
}
func (q nodeQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x any)        { *q = append(*q, x.(nodeItem)) }
func (q *nodeQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

func sortNodeIDs(nodes []types.NodeID) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
}
