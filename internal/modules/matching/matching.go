// README: Matching strategies: pure functions from a cost matrix to
// (taxi, order) pairs.
package matching

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"

	"taxisim/internal/types"
)

// DefaultMaxPickupTime caps how far (in travel time) the nearest strategy
// will send a taxi to a pickup.
const DefaultMaxPickupTime = 300

const (
	StrategyRandom  = "random"
	StrategyNearest = "nearest"
	StrategyBatch   = "batch"
)

var ErrUnknownStrategy = errors.New("unknown matching strategy")

// CostMatrix maps idle taxi id -> candidate order id -> travel time from
// the taxi's position to the order's pickup node. Unreachable pairs are
// omitted, never stored.
type CostMatrix map[types.TaxiID]map[types.OrderID]int

// Pair is one matched (taxi, order) assignment.
type Pair struct {
	TaxiID  types.TaxiID
	OrderID types.OrderID
}

// Strategy selects assignments from a cost matrix. It holds no state across
// ticks; the rng is the engine-wide seeded source.
type Strategy struct {
	name          string
	rng           *rand.Rand
	maxPickupTime int
}

// NewStrategy validates the strategy name. maxPickupTime <= 0 selects the
// default. The batch strategy is a documented alias of nearest until a
// global-optimum matcher lands; the alias is logged once here.
func NewStrategy(name string, rng *rand.Rand, maxPickupTime int) (*Strategy, error) {
	if maxPickupTime <= 0 {
		maxPickupTime = DefaultMaxPickupTime
	}
	switch name {
	case StrategyRandom, StrategyNearest:
	case StrategyBatch:
		log.Printf("batch matching not implemented, falling back to nearest")
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return &Strategy{name: name, rng: rng, maxPickupTime: maxPickupTime}, nil
}

// Name returns the configured strategy name.
func (s *Strategy) Name() string { return s.name }

// Match returns matched pairs; each taxi and each order appears at most
// once.
func (s *Strategy) Match(costs CostMatrix) []Pair {
	if len(costs) == 0 {
		return nil
	}
	switch s.name {
	case StrategyRandom:
		return s.matchRandom(costs)
	default:
		return s.matchNearest(costs)
	}
}

// matchRandom shuffles taxis and orders, then gives each taxi the first
// still-unassigned order present in its row.
func (s *Strategy) matchRandom(costs CostMatrix) []Pair {
	taxiIDs := sortedTaxiIDs(costs)
	orderIDs := sortedOrderIDs(costs)
	if len(orderIDs) == 0 {
		return nil
	}
	s.rng.Shuffle(len(taxiIDs), func(i, j int) { taxiIDs[i], taxiIDs[j] = taxiIDs[j], taxiIDs[i] })
	s.rng.Shuffle(len(orderIDs), func(i, j int) { orderIDs[i], orderIDs[j] = orderIDs[j], orderIDs[i] })

	assignedOrders := make(map[types.OrderID]bool)
	var matches []Pair
	for _, taxiID := range taxiIDs {
		row := costs[taxiID]
		for _, orderID := range orderIDs {
			if assignedOrders[orderID] {
				continue
			}
			if _, ok := row[orderID]; ok {
				matches = append(matches, Pair{TaxiID: taxiID, OrderID: orderID})
				assignedOrders[orderID] = true
				break
			}
		}
	}
	return matches
}

// matchNearest assigns each order (ascending id) the unassigned taxi with
// minimum cost, subject to the pickup-time cap. Cost ties go to the lowest
// taxi id.
func (s *Strategy) matchNearest(costs CostMatrix) []Pair {
	taxiIDs := sortedTaxiIDs(costs)
	orderIDs := sortedOrderIDs(costs)

	assignedTaxis := make(map[types.TaxiID]bool)
	var matches []Pair
	for _, orderID := range orderIDs {
		bestTaxi := types.TaxiID(-1)
		bestCost := 0
		for _, taxiID := range taxiIDs {
			if assignedTaxis[taxiID] {
				continue
			}
			cost, ok := costs[taxiID][orderID]
			if !ok || cost > s.maxPickupTime {
				continue
			}
			if bestTaxi < 0 || cost < bestCost {
				bestTaxi = taxiID
				bestCost = cost
			}
		}
		if bestTaxi >= 0 {
			matches = append(matches, Pair{TaxiID: bestTaxi, OrderID: orderID})
			assignedTaxis[bestTaxi] = true
		}
	}
	return matches
}

func sortedTaxiIDs(costs CostMatrix) []types.TaxiID {
	ids := make([]types.TaxiID, 0, len(costs))
	for id := range costs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func sortedOrderIDs(costs CostMatrix) []types.OrderID {
	seen := make(map[types.OrderID]bool)
	var ids []types.OrderID
	for _, row := range costs {
		for id := range row {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
