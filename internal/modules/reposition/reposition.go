// README: Repositioning strategies for idle taxis: random, cluster, demand,
// balanced, and the advisor-backed variant.
package reposition

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"

	"taxisim/internal/modules/fleet"
	"taxisim/internal/modules/network"
	"taxisim/internal/types"
)

// DefaultMaxTravelTime bounds the per-taxi candidate set: only nodes
// reachable within this travel time are considered as destinations.
const DefaultMaxTravelTime = 60

const (
	// defaultClusters is the k for the cluster strategy's k-means.
	defaultClusters = 5
	// defaultTopFraction selects the top share of highest-demand nodes for
	// the demand strategy.
	defaultTopFraction = 0.2
	// kmeansIterations caps Lloyd's iterations; candidate sets are small.
	kmeansIterations = 20
)

const (
	StrategyRandom   = "random"
	StrategyCluster  = "cluster"
	StrategyDemand   = "demand"
	StrategyBalanced = "balanced"
	StrategyAdvisor  = "advisor"
)

var ErrUnknownStrategy = errors.New("unknown reposition strategy")

// CandidateNode describes one reachable destination offered to the advisor.
type CandidateNode struct {
	Node       types.NodeID
	Coord      types.Point
	TravelTime int
}

// TaxiPosition locates another repositioning taxi for the advisor prompt.
type TaxiPosition struct {
	TaxiID types.TaxiID
	Node   types.NodeID
	Coord  types.Point
}

// AdvisorRequest is everything an external advisor sees for one taxi.
type AdvisorRequest struct {
	TaxiID     types.TaxiID
	Position   types.NodeID
	Coord      types.Point
	Now        int
	Candidates []CandidateNode
	OtherTaxis []TaxiPosition
}

// Advisor suggests a destination node for one taxi. Any error (or a node
// outside the candidate set) falls back to a random candidate.
type Advisor interface {
	SuggestNode(ctx context.Context, req AdvisorRequest) (types.NodeID, error)
}

// Options tune a Strategy. Zero values select defaults.
type Options struct {
	MaxTravelTime    int
	Clusters         int
	TopFraction      float64
	HistoricalDemand map[types.NodeID]int
	Advisor          Advisor
}

// Strategy plans repositioning moves for idle taxis. It keeps no state
// across ticks.
type Strategy struct {
	name          string
	rng           *rand.Rand
	maxTravelTime int
	clusters      int
	topFraction   float64
	demand        map[types.NodeID]int
	advisor       Advisor
}

// NewStrategy validates the name and applies option defaults.
func NewStrategy(name string, rng *rand.Rand, opts Options) (*Strategy, error) {
	switch name {
	case StrategyRandom, StrategyCluster, StrategyDemand, StrategyBalanced, StrategyAdvisor:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	s := &Strategy{
		name:          name,
		rng:           rng,
		maxTravelTime: opts.MaxTravelTime,
		clusters:      opts.Clusters,
		topFraction:   opts.TopFraction,
		demand:        opts.HistoricalDemand,
		advisor:       opts.Advisor,
	}
	if s.maxTravelTime <= 0 {
		s.maxTravelTime = DefaultMaxTravelTime
	}
	if s.clusters <= 0 {
		s.clusters = defaultClusters
	}
	if s.topFraction <= 0 || s.topFraction > 1 {
		s.topFraction = defaultTopFraction
	}
	return s, nil
}

// Name returns the configured strategy name.
func (s *Strategy) Name() string { return s.name }

// Plan produces at most one move per idle taxi. Taxis with no reachable
// candidate stay idle this tick.
func (s *Strategy) Plan(ctx context.Context, idle []*fleet.Taxi, net *network.Network, now int) []fleet.Move {
	idle = onlyIdle(idle)
	if len(idle) == 0 {
		return nil
	}

	candidates := make(map[types.TaxiID][]types.NodeID, len(idle))
	for _, t := range idle {
		nodes := net.NodesWithin(t.Position, s.maxTravelTime)
		if len(nodes) == 0 {
			log.Printf("taxi %d has no reachable node within %d time units", t.ID, s.maxTravelTime)
		}
		candidates[t.ID] = nodes
	}

	var targets map[types.TaxiID]types.NodeID
	switch s.name {
	case StrategyCluster:
		targets = s.planCluster(idle, candidates, net)
	case StrategyDemand:
		targets = s.planDemand(idle, candidates)
	case StrategyBalanced:
		targets = s.planBalanced(idle, candidates, net)
	case StrategyAdvisor:
		targets = s.planAdvisor(ctx, idle, candidates, net, now)
	default:
		targets = s.planRandom(idle, candidates)
	}

	var plan []fleet.Move
	for _, t := range idle {
		dest, ok := targets[t.ID]
		if !ok {
			continue
		}
		route := net.ShortestPath(t.Position, dest, now)
		if len(route) == 0 {
			continue
		}
		plan = append(plan, fleet.Move{TaxiID: t.ID, Destination: dest, Route: route})
	}
	return plan
}

// planRandom picks a uniformly random candidate per taxi.
func (s *Strategy) planRandom(idle []*fleet.Taxi, candidates map[types.TaxiID][]types.NodeID) map[types.TaxiID]types.NodeID {
	targets := make(map[types.TaxiID]types.NodeID)
	for _, t := range idle {
		nodes := candidates[t.ID]
		if len(nodes) == 0 {
			continue
		}
		targets[t.ID] = nodes[s.rng.Intn(len(nodes))]
	}
	return targets
}

// planCluster spreads taxis over k-means clusters of the candidate nodes,
// round-robin by taxi order. With fewer taxis than clusters it degrades to
// random.
func (s *Strategy) planCluster(idle []*fleet.Taxi, candidates map[types.TaxiID][]types.NodeID, net *network.Network) map[types.TaxiID]types.NodeID {
	if len(idle) < s.clusters {
		return s.planRandom(idle, candidates)
	}

	allNodes := unionNodes(candidates)
	points := make([]types.Point, 0, len(allNodes))
	nodes := make([]types.NodeID, 0, len(allNodes))
	for _, node := range allNodes {
		coord, ok := net.Coord(node)
		if !ok {
			continue
		}
		points = append(points, coord)
		nodes = append(nodes, node)
	}
	if len(points) == 0 {
		return s.planRandom(idle, candidates)
	}

	k := s.clusters
	if k > len(points) {
		k = len(points)
	}
	labels := kMeans(points, k, s.rng, kmeansIterations)

	clusterNodes := make(map[int]map[types.NodeID]bool, k)
	for i, label := range labels {
		if clusterNodes[label] == nil {
			clusterNodes[label] = make(map[types.NodeID]bool)
		}
		clusterNodes[label][nodes[i]] = true
	}

	targets := make(map[types.TaxiID]types.NodeID)
	for i, t := range idle {
		own := candidates[t.ID]
		if len(own) == 0 {
			continue
		}
		cluster := clusterNodes[i%k]
		var inCluster []types.NodeID
		for _, node := range own {
			if cluster[node] {
				inCluster = append(inCluster, node)
			}
		}
		pool := inCluster
		if len(pool) == 0 {
			pool = own
		}
		targets[t.ID] = pool[s.rng.Intn(len(pool))]
	}
	return targets
}

// planDemand targets the top fraction of highest-demand nodes; taxis whose
// candidates miss the high-demand set get a random candidate.
func (s *Strategy) planDemand(idle []*fleet.Taxi, candidates map[types.TaxiID][]types.NodeID) map[types.TaxiID]types.NodeID {
	if len(s.demand) == 0 {
		log.Printf("no historical demand data, falling back to random repositioning")
		return s.planRandom(idle, candidates)
	}

	type nodeDemand struct {
		node  types.NodeID
		count int
	}
	ranked := make([]nodeDemand, 0, len(s.demand))
	for node, count := range s.demand {
		ranked = append(ranked, nodeDemand{node: node, count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].node < ranked[j].node
	})
	top := int(float64(len(ranked)) * s.topFraction)
	if top < 1 {
		top = 1
	}
	highDemand := make(map[types.NodeID]bool, top)
	for _, nd := range ranked[:top] {
		highDemand[nd.node] = true
	}

	targets := make(map[types.TaxiID]types.NodeID)
	for _, t := range idle {
		own := candidates[t.ID]
		if len(own) == 0 {
			continue
		}
		var hot []types.NodeID
		for _, node := range own {
			if highDemand[node] {
				hot = append(hot, node)
			}
		}
		pool := hot
		if len(pool) == 0 {
			pool = own
		}
		targets[t.ID] = pool[s.rng.Intn(len(pool))]
	}
	return targets
}

// planBalanced greedily maximizes spatial spread: the first taxi picks at
// random, each later taxi picks the candidate farthest (in minimum
// Euclidean distance) from all destinations chosen so far.
func (s *Strategy) planBalanced(idle []*fleet.Taxi, candidates map[types.TaxiID][]types.NodeID, net *network.Network) map[types.TaxiID]types.NodeID {
	if len(idle) <= 1 {
		return s.planRandom(idle, candidates)
	}

	targets := make(map[types.TaxiID]types.NodeID)
	var chosen []types.Point
	for _, t := range idle {
		own := candidates[t.ID]
		if len(own) == 0 {
			continue
		}
		if len(chosen) == 0 {
			node := own[s.rng.Intn(len(own))]
			targets[t.ID] = node
			if coord, ok := net.Coord(node); ok {
				chosen = append(chosen, coord)
			}
			continue
		}
		bestNode := types.NodeID(-1)
		bestSpread := -1.0
		for _, node := range own {
			coord, ok := net.Coord(node)
			if !ok {
				continue
			}
			minDist := -1.0
			for _, p := range chosen {
				d := coord.DistanceTo(p)
				if minDist < 0 || d < minDist {
					minDist = d
				}
			}
			if minDist > bestSpread {
				bestSpread = minDist
				bestNode = node
			}
		}
		if bestNode < 0 {
			// no candidate had a coordinate; fall back to random
			bestNode = own[s.rng.Intn(len(own))]
		}
		targets[t.ID] = bestNode
		if coord, ok := net.Coord(bestNode); ok {
			chosen = append(chosen, coord)
		}
	}
	return targets
}

// planAdvisor asks the external advisor per taxi, validating the answer
// against the candidate set. Any failure degrades to a random candidate.
func (s *Strategy) planAdvisor(ctx context.Context, idle []*fleet.Taxi, candidates map[types.TaxiID][]types.NodeID, net *network.Network, now int) map[types.TaxiID]types.NodeID {
	if s.advisor == nil {
		log.Printf("no advisor configured, falling back to random repositioning")
		return s.planRandom(idle, candidates)
	}

	targets := make(map[types.TaxiID]types.NodeID)
	for _, t := range idle {
		own := candidates[t.ID]
		if len(own) == 0 {
			continue
		}
		req := AdvisorRequest{
			TaxiID:   t.ID,
			Position: t.Position,
			Now:      now,
		}
		if coord, ok := net.Coord(t.Position); ok {
			req.Coord = coord
		}
		for _, node := range own {
			cn := CandidateNode{Node: node}
			if coord, ok := net.Coord(node); ok {
				cn.Coord = coord
			}
			if tt, ok := net.ShortestTravelTime(t.Position, node); ok {
				cn.TravelTime = tt
			}
			req.Candidates = append(req.Candidates, cn)
		}
		for _, other := range idle {
			if other.ID == t.ID {
				continue
			}
			tp := TaxiPosition{TaxiID: other.ID, Node: other.Position}
			if coord, ok := net.Coord(other.Position); ok {
				tp.Coord = coord
			}
			req.OtherTaxis = append(req.OtherTaxis, tp)
		}

		node, err := s.advisor.SuggestNode(ctx, req)
		if err != nil || !containsNode(own, node) {
			if err != nil {
				log.Printf("advisor failed for taxi %d: %v", t.ID, err)
			}
			node = own[s.rng.Intn(len(own))]
		}
		targets[t.ID] = node
	}
	return targets
}

func onlyIdle(taxis []*fleet.Taxi) []*fleet.Taxi {
	var idle []*fleet.Taxi
	for _, t := range taxis {
		if t.Status == fleet.StatusIdle {
			idle = append(idle, t)
		}
	}
	return idle
}

func unionNodes(candidates map[types.TaxiID][]types.NodeID) []types.NodeID {
	seen := make(map[types.NodeID]bool)
	var nodes []types.NodeID
	for _, list := range candidates {
		for _, node := range list {
			if !seen[node] {
				seen[node] = true
				nodes = append(nodes, node)
			}
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
	return nodes
}

func containsNode(nodes []types.NodeID, node types.NodeID) bool {
	for _, n := range nodes {
		if n == node {
			return true
		}
	}
	return false
}
