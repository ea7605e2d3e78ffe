// README: CLI driver; loads the road network and orders, runs the
// simulation, writes exports, and prints the metrics report.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"taxisim/internal/ai"
	"taxisim/internal/config"
	"taxisim/internal/data"
	"taxisim/internal/modules/network"
	"taxisim/internal/modules/order"
	"taxisim/internal/modules/reposition"
	"taxisim/internal/modules/sim"
	"taxisim/internal/types"
)

type cliConfig struct {
	GraphPath    string
	OrdersPath   string
	RawOrders    bool
	Speed        float64
	Steps        int
	OrdersOut    string
	FleetOut     string
	Sim          config.SimConfig
	GeminiAPIKey string
}

func main() {
	cfg := loadConfig()

	ctx := context.Background()

	graph, err := data.LoadGraphML(cfg.GraphPath, cfg.Speed)
	if err != nil {
		log.Fatalf("load graph: %v", err)
	}
	log.Printf("loaded graph: %d nodes, %d edges", graph.NumNodes(), graph.NumEdges())

	simCfg := sim.Config{
		StartTime:          cfg.Sim.StartTime,
		TimeWindow:         cfg.Sim.TimeWindow,
		TaxiCount:          cfg.Sim.TaxiCount,
		MatchStrategy:      cfg.Sim.MatchStrategy,
		RepositionStrategy: cfg.Sim.RepositionStrategy,
		WaitingThreshold:   cfg.Sim.WaitingThreshold,
		MaxPickupTime:      cfg.Sim.MaxPickupTime,
		MaxRepositionTime:  cfg.Sim.MaxRepositionTime,
		Seed:               cfg.Sim.Seed,
		ExportOrders:       cfg.OrdersOut != "",
		ExportFleet:        cfg.FleetOut != "",
	}

	records, err := loadOrders(cfg, graph)
	if err != nil {
		log.Fatalf("load orders: %v", err)
	}
	log.Printf("loaded %d orders", len(records))

	opts := []sim.Option{
		sim.WithHistoricalDemand(pickupDemand(records)),
	}
	if cfg.Sim.RepositionStrategy == reposition.StrategyAdvisor {
		if cfg.GeminiAPIKey == "" {
			log.Fatal("GEMINI_API_KEY is required for the advisor strategy")
		}
		advisor, err := ai.NewGeminiAdvisor(ctx, cfg.GeminiAPIKey)
		if err != nil {
			log.Fatalf("advisor init: %v", err)
		}
		defer advisor.Close()
		opts = append(opts, sim.WithAdvisor(advisor))
	}

	s, err := sim.New(simCfg, graph, records, opts...)
	if err != nil {
		log.Fatalf("simulator init: %v", err)
	}

	result := s.Run(ctx, cfg.Steps)

	if simCfg.ExportOrders {
		if err := result.WriteOrdersJSON(cfg.OrdersOut); err != nil {
			log.Fatalf("write orders export: %v", err)
		}
		log.Printf("orders export written to %s", cfg.OrdersOut)
	}
	if simCfg.ExportFleet {
		if err := result.WriteFleetJSON(cfg.FleetOut); err != nil {
			log.Fatalf("write fleet export: %v", err)
		}
		log.Printf("fleet export written to %s", cfg.FleetOut)
	}

	fmt.Print(result.Report.Format())
}

// loadOrders reads either the node-based order table or, with -raw-orders,
// the coordinate table snapped onto the network.
func loadOrders(cfg cliConfig, g *network.Graph) ([]order.Record, error) {
	if !cfg.RawOrders {
		return data.LoadOrders(cfg.OrdersPath)
	}
	net := network.New(g, rand.New(rand.NewSource(cfg.Sim.Seed)))
	return data.MatchOrdersToNetwork(cfg.OrdersPath, net)
}

// pickupDemand counts orders per pickup node; the demand reposition
// strategy treats these counts as historical demand.
func pickupDemand(records []order.Record) map[types.NodeID]int {
	demand := make(map[types.NodeID]int)
	for _, r := range records {
		demand[r.PickupNode]++
	}
	return demand
}

func loadConfig() cliConfig {
	env, _ := config.Load()
	var cfg cliConfig
	flag.StringVar(&cfg.GraphPath, "graph", "data/network.graphml", "GraphML road network path")
	flag.StringVar(&cfg.OrdersPath, "orders", "data/orders.csv", "order CSV path")
	flag.BoolVar(&cfg.RawOrders, "raw-orders", false, "orders CSV carries coordinates instead of node ids")
	flag.Float64Var(&cfg.Speed, "speed", data.DefaultSpeed, "fallback speed for edges without a time attribute")
	flag.IntVar(&cfg.Steps, "steps", 100, "number of ticks to run")
	flag.StringVar(&cfg.OrdersOut, "orders-out", "orders.json", "order export path (empty disables)")
	flag.StringVar(&cfg.FleetOut, "fleet-out", "fleet.json", "fleet export path (empty disables)")
	flag.IntVar(&cfg.Sim.StartTime, "start", env.Sim.StartTime, "simulation start time")
	flag.IntVar(&cfg.Sim.TimeWindow, "window", env.Sim.TimeWindow, "tick size in time units")
	flag.IntVar(&cfg.Sim.TaxiCount, "taxis", env.Sim.TaxiCount, "fleet size")
	flag.StringVar(&cfg.Sim.MatchStrategy, "match", env.Sim.MatchStrategy, "matching strategy: random|nearest|batch")
	flag.StringVar(&cfg.Sim.RepositionStrategy, "reposition", env.Sim.RepositionStrategy, "reposition strategy: random|cluster|demand|balanced|advisor")
	flag.IntVar(&cfg.Sim.WaitingThreshold, "waiting-threshold", env.Sim.WaitingThreshold, "waiting timeout before cancellation")
	flag.IntVar(&cfg.Sim.MaxPickupTime, "max-pickup", env.Sim.MaxPickupTime, "max travel time to a pickup")
	flag.IntVar(&cfg.Sim.MaxRepositionTime, "max-reposition", env.Sim.MaxRepositionTime, "max travel time for repositioning")
	flag.Int64Var(&cfg.Sim.Seed, "seed", env.Sim.Seed, "random seed")
	flag.Parse()
	cfg.GeminiAPIKey = env.AI.GeminiKey
	if cfg.GraphPath == "" || cfg.OrdersPath == "" {
		flag.Usage()
		os.Exit(2)
	}
	return cfg
}
