// README: Entry point; loads config, wires the runner and stores, starts
// the HTTP server.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"taxisim/internal/ai"
	"taxisim/internal/config"
	"taxisim/internal/data"
	httptransport "taxisim/internal/http"
	"taxisim/internal/infra"
	"taxisim/internal/modules/network"
	"taxisim/internal/modules/sim"
	"taxisim/internal/store"
)

func main() {
	graphPath := flag.String("graph", "data/network.graphml", "GraphML road network path")
	ordersPath := flag.String("orders", "data/orders.csv", "order CSV path")
	withDB := flag.Bool("db", false, "persist runs to Postgres")
	withRedis := flag.Bool("redis", false, "use the shared Redis travel-time cache")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	graph, err := data.LoadGraphML(*graphPath, data.DefaultSpeed)
	if err != nil {
		log.Fatalf("load graph: %v", err)
	}
	records, err := data.LoadOrders(*ordersPath)
	if err != nil {
		log.Fatalf("load orders: %v", err)
	}
	log.Printf("loaded graph with %d nodes and %d orders", graph.NumNodes(), len(records))

	var runnerOpts []sim.Option

	if *withRedis {
		redisClient := infra.NewRedis(cfg.Redis.Addr)
		cache := network.NewRedisCache(ctx, redisClient, cfg.Redis.CachePrefix)
		runnerOpts = append(runnerOpts, sim.WithTravelTimeCache(cache))
	}

	if cfg.AI.GeminiKey != "" {
		advisor, err := ai.NewGeminiAdvisor(ctx, cfg.AI.GeminiKey)
		if err != nil {
			log.Fatalf("advisor init: %v", err)
		}
		defer advisor.Close()
		runnerOpts = append(runnerOpts, sim.WithAdvisor(advisor))
	}

	var runStore *store.Store
	if *withDB {
		dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			log.Fatal(err)
		}
		defer dbPool.Close()
		runStore = store.NewStore(dbPool)
	}

	runner := sim.NewRunner(graph, records, runnerOpts...)

	handler := httptransport.NewServer(httptransport.ServerDeps{
		Runner: runner,
		Store:  runStore,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler.Routes()}

	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	log.Printf("listening on %s", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
