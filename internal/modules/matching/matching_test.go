// README: Matching strategy tests (nearest, random, batch alias).
package matching

import (
	"math/rand"
	"testing"

	"taxisim/internal/types"
)

func newTestStrategy(t *testing.T, name string, maxPickupTime int) *Strategy {
	t.Helper()
	s, err := NewStrategy(name, rand.New(rand.NewSource(1)), maxPickupTime)
	if err != nil {
		t.Fatalf("NewStrategy(%s): %v", name, err)
	}
	return s
}

func TestNewStrategyUnknownName(t *testing.T) {
	if _, err := NewStrategy("greedy", rand.New(rand.NewSource(1)), 0); err == nil {
		t.Fatal("unknown strategy accepted")
	}
}

func TestNearestPicksMinimumCost(t *testing.T) {
	s := newTestStrategy(t, StrategyNearest, 0)
	costs := CostMatrix{
		1: {100: 50, 101: 10},
		2: {100: 5, 101: 60},
	}
	matches := s.Match(costs)
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	// order 100 first: taxi 2 wins at cost 5; order 101 then takes taxi 1
	want := []Pair{{TaxiID: 2, OrderID: 100}, {TaxiID: 1, OrderID: 101}}
	for i := range want {
		if matches[i] != want[i] {
			t.Fatalf("matches = %v, want %v", matches, want)
		}
	}
}

func TestNearestRespectsPickupCap(t *testing.T) {
	s := newTestStrategy(t, StrategyNearest, 30)
	costs := CostMatrix{
		1: {100: 31},
		2: {100: 45},
	}
	if matches := s.Match(costs); len(matches) != 0 {
		t.Fatalf("matches over the cap = %v, want none", matches)
	}
}

func TestNearestTieBreaksLowestTaxiID(t *testing.T) {
	s := newTestStrategy(t, StrategyNearest, 0)
	costs := CostMatrix{
		5: {100: 7},
		2: {100: 7},
		9: {100: 7},
	}
	matches := s.Match(costs)
	if len(matches) != 1 || matches[0].TaxiID != 2 {
		t.Fatalf("matches = %v, want taxi 2 on the tie", matches)
	}
}

func TestNearestEachIDAtMostOnce(t *testing.T) {
	s := newTestStrategy(t, StrategyNearest, 0)
	costs := CostMatrix{
		1: {100: 1, 101: 1, 102: 1},
	}
	matches := s.Match(costs)
	if len(matches) != 1 {
		t.Fatalf("single taxi produced %d matches, want 1", len(matches))
	}
}

func TestRandomSeededReplay(t *testing.T) {
	costs := CostMatrix{
		1: {100: 1, 101: 2},
		2: {100: 3, 102: 4},
		3: {101: 5, 102: 6},
	}
	a := newTestStrategy(t, StrategyRandom, 0).Match(costs)
	b := newTestStrategy(t, StrategyRandom, 0).Match(costs)
	if len(a) != len(b) {
		t.Fatalf("run lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("runs diverge at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
	seen := make(map[types.OrderID]bool)
	for _, p := range a {
		if seen[p.OrderID] {
			t.Fatalf("order %d matched twice", p.OrderID)
		}
		seen[p.OrderID] = true
	}
}

func TestBatchFallsBackToNearest(t *testing.T) {
	costs := CostMatrix{
		1: {100: 50},
		2: {100: 5},
	}
	batch := newTestStrategy(t, StrategyBatch, 0).Match(costs)
	nearest := newTestStrategy(t, StrategyNearest, 0).Match(costs)
	if len(batch) != len(nearest) || batch[0] != nearest[0] {
		t.Fatalf("batch = %v, nearest = %v, want identical", batch, nearest)
	}
}

func TestMatchEmptyMatrix(t *testing.T) {
	s := newTestStrategy(t, StrategyNearest, 0)
	if matches := s.Match(nil); matches != nil {
		t.Fatalf("matches on empty matrix = %v, want nil", matches)
	}
}
