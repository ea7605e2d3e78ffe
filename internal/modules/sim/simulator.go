// README: Simulation engine: owns the tick loop, wires network, order book,
// fleet, matching, and repositioning together.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"taxisim/internal/modules/analysis"
	"taxisim/internal/modules/fleet"
	"taxisim/internal/modules/matching"
	"taxisim/internal/modules/network"
	"taxisim/internal/modules/order"
	"taxisim/internal/modules/reposition"
	"taxisim/internal/types"
)

var (
	ErrBadTimeWindow = errors.New("time window must be positive")
	ErrBadTaxiCount  = errors.New("taxi count must be positive")
)

// Config enumerates every knob of one simulation run. Zero thresholds select
// the package defaults.
type Config struct {
	StartTime          int
	TimeWindow         int
	TaxiCount          int
	MatchStrategy      string
	RepositionStrategy string
	WaitingThreshold   int
	MaxPickupTime      int
	MaxRepositionTime  int
	Seed               int64
	ExportOrders       bool
	ExportFleet        bool
}

// Validate checks the structural fields. Strategy names are validated by
// their own constructors.
func (c Config) Validate() error {
	if c.TimeWindow <= 0 {
		return fmt.Errorf("%w: %d", ErrBadTimeWindow, c.TimeWindow)
	}
	if c.TaxiCount <= 0 {
		return fmt.Errorf("%w: %d", ErrBadTaxiCount, c.TaxiCount)
	}
	return nil
}

// Simulator advances the world in fixed time windows. It is single-threaded
// and not re-entrant; all randomness flows from one seeded source so equal
// seeds replay exactly.
type Simulator struct {
	cfg     Config
	rng     *rand.Rand
	net     *network.Network
	book    *order.Book
	fleet   *fleet.Fleet
	matcher *matching.Strategy
	repos   *reposition.Strategy

	currentTime int
	clock       func() time.Time
}

// Option configures a Simulator beyond its Config.
type Option func(*options)

type options struct {
	clock     func() time.Time
	cache     network.TravelTimeCache
	advisor   reposition.Advisor
	demand    map[types.NodeID]int
	positions []types.NodeID
}

// WithClock injects the wall clock used for export metadata. Fixed clocks
// make repeated runs byte-identical.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithTravelTimeCache installs a shared travel-time cache on the network.
func WithTravelTimeCache(c network.TravelTimeCache) Option {
	return func(o *options) { o.cache = c }
}

// WithAdvisor installs the external advisor for the advisor reposition
// strategy.
func WithAdvisor(a reposition.Advisor) Option {
	return func(o *options) { o.advisor = a }
}

// WithHistoricalDemand supplies the node demand counts used by the demand
// reposition strategy.
func WithHistoricalDemand(d map[types.NodeID]int) Option {
	return func(o *options) { o.demand = d }
}

// WithTaxiPositions pins the initial taxi positions instead of sampling
// them, overriding TaxiCount with len(positions).
func WithTaxiPositions(positions []types.NodeID) Option {
	return func(o *options) { o.positions = append([]types.NodeID(nil), positions...) }
}

// New builds a simulator over the graph and order records. Taxis are placed
// at uniformly random nodes with ids 1..TaxiCount; orders requesting before
// StartTime are discarded.
func New(cfg Config, g *network.Graph, records []order.Record, opts ...Option) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = time.Now
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	// cost matrices repeat (position, pickup) pairs across ticks; memoize
	// travel times in-process unless a shared cache is injected
	cache := o.cache
	if cache == nil {
		cache = network.NewMapCache()
	}
	net := network.New(g, rng, network.WithTravelTimeCache(cache))

	matcher, err := matching.NewStrategy(cfg.MatchStrategy, rng, cfg.MaxPickupTime)
	if err != nil {
		return nil, err
	}
	repos, err := reposition.NewStrategy(cfg.RepositionStrategy, rng, reposition.Options{
		MaxTravelTime:    cfg.MaxRepositionTime,
		HistoricalDemand: o.demand,
		Advisor:          o.advisor,
	})
	if err != nil {
		return nil, err
	}

	positions := o.positions
	if positions == nil {
		positions = make([]types.NodeID, cfg.TaxiCount)
		for i := range positions {
			positions[i] = net.RandomNode()
		}
	}

	return &Simulator{
		cfg:         cfg,
		rng:         rng,
		net:         net,
		book:        order.NewBook(records, cfg.StartTime, cfg.WaitingThreshold),
		fleet:       fleet.New(positions),
		matcher:     matcher,
		repos:       repos,
		currentTime: cfg.StartTime,
		clock:       o.clock,
	}, nil
}

// CurrentTime returns the simulation time at the last completed tick.
func (s *Simulator) CurrentTime() int { return s.currentTime }

// Network exposes the road network service.
func (s *Simulator) Network() *network.Network { return s.net }

// Fleet exposes the fleet manager.
func (s *Simulator) Fleet() *fleet.Fleet { return s.fleet }

// Orders exposes the order book.
func (s *Simulator) Orders() *order.Book { return s.book }

// Step executes one tick: advance time, move every vehicle, match waiting
// orders to idle taxis, reposition the rest. A tick always completes.
func (s *Simulator) Step(ctx context.Context) {
	s.currentTime += s.cfg.TimeWindow
	now := s.currentTime

	events := s.fleet.AdvanceAll(now)
	s.book.ApplyTransitions(events)

	idle := s.fleet.IdleTaxis()
	waiting := s.book.WaitingOrders(now)
	if len(idle) > 0 && len(waiting) > 0 {
		costs := s.buildCostMatrix(idle, waiting)
		for _, pair := range s.matcher.Match(costs) {
			s.dispatch(pair, now)
		}
	}

	idle = s.fleet.IdleTaxis()
	if len(idle) > 0 {
		plan := s.repos.Plan(ctx, idle, s.net, now)
		s.fleet.Reposition(plan)
	}
}

// buildCostMatrix computes travel time from every idle taxi to every waiting
// order's pickup node. Unreachable pairs are omitted.
func (s *Simulator) buildCostMatrix(idle []*fleet.Taxi, waiting []*order.Order) matching.CostMatrix {
	costs := make(matching.CostMatrix, len(idle))
	for _, t := range idle {
		row := make(map[types.OrderID]int, len(waiting))
		for _, o := range waiting {
			if tt, ok := s.net.ShortestTravelTime(t.Position, o.PickupNode); ok {
				row[o.ID] = tt
			}
		}
		if len(row) > 0 {
			costs[t.ID] = row
		}
	}
	return costs
}

// dispatch records the assignment and hands the taxi the combined
// pickup+delivery route. The delivery leg departs when the pickup leg
// arrives, so the shared pickup node appears in both legs.
func (s *Simulator) dispatch(pair matching.Pair, now int) {
	t, ok := s.fleet.Get(pair.TaxiID)
	if !ok {
		return
	}
	o := s.book.Get(pair.OrderID)
	if o == nil {
		return
	}
	leg1 := s.net.ShortestPath(t.Position, o.PickupNode, now)
	if len(leg1) == 0 {
		return
	}
	leg2 := s.net.ShortestPath(o.PickupNode, o.DropoffNode, leg1[len(leg1)-1].Time)
	if len(leg2) == 0 {
		return
	}
	if !s.book.Assign(o.ID, t.ID, now) {
		return
	}
	combined := make(network.Route, 0, len(leg1)+len(leg2))
	combined = append(combined, leg1...)
	combined = append(combined, leg2...)
	s.fleet.Assign(t.ID, o.ID, o.PickupNode, combined)
}

// Result bundles one run's exports and metrics report.
type Result struct {
	Orders map[string]order.ExportRecord
	Fleet  fleet.Export
	Report analysis.Metrics
}

// Run executes untilStep ticks and returns the exports and metrics.
func (s *Simulator) Run(ctx context.Context, untilStep int) Result {
	for i := 0; i < untilStep; i++ {
		s.Step(ctx)
	}
	return s.Collect()
}

// Collect builds the result for the ticks executed so far.
func (s *Simulator) Collect() Result {
	orders := s.book.Export(s.cfg.StartTime, s.currentTime)
	return Result{
		Orders: orders,
		Fleet:  s.fleet.ExportHistory(s.clock()),
		Report: analysis.Analyze(orders),
	}
}
