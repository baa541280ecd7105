package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	"waste-route-service/internal/adapters/cache"
	"waste-route-service/internal/adapters/events"
	"waste-route-service/internal/adapters/memory"
	"waste-route-service/internal/adapters/repositories"
	"waste-route-service/internal/api"
	"waste-route-service/internal/config"
	"waste-route-service/internal/domain"
	"waste-route-service/internal/platform/db"
	"waste-route-service/internal/platform/metrics"
	"waste-route-service/internal/ports"
	"waste-route-service/internal/services"

	"github.com/redis/go-redis/v9"
)

type stores struct {
	requests ports.RequestRepository
	catalog  ports.DisposalSiteCatalog
	routes   ports.RouteRepository
}

// main is the application composition root.
// It wires concrete adapters (Postgres or in-memory, Redis, RabbitMQ) behind
// ports and starts the HTTP server.
func main() {
	cfg := config.Load()
	metrics.RegisterDefault()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var st stores
	if cfg.DatabaseURL != "" {
		database, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatal(err)
		}
		defer database.Close()

		// Initialize schema and seed demo data on startup for local runs.
		if err := initAndSeed(database, cfg.SeedRequestsPath, cfg.SeedSitesPath); err != nil {
			log.Fatal(err)
		}

		st = stores{
			requests: repositories.NewPostgresRequestRepository(database),
			catalog:  repositories.NewPostgresDisposalSiteRepository(database),
			routes:   repositories.NewPostgresRouteRepository(database),
		}
		log.Println("storage=postgres")
	} else {
		st = memoryStores(cfg.SeedRequestsPath, cfg.SeedSitesPath)
		log.Println("storage=memory (DATABASE_URL not set)")
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("parse REDIS_URL: %v", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Printf("redis unreachable, catalog reads will fall through: %v", err)
		}
		cancel()

		catalogCache := cache.NewRedisDisposalSiteCache(rdb, st.catalog, cfg.RedisCatalogTTL)
		// The catalog was just seeded; drop any snapshot from a previous run.
		if err := catalogCache.Invalidate(ctx); err != nil {
			log.Printf("catalog cache invalidate failed: %v", err)
		}
		st.catalog = catalogCache
		log.Printf("catalog cache=redis ttl=%s", cfg.RedisCatalogTTL)
	}

	var publisher ports.RoutePublisher = events.LogPublisher{}
	if cfg.AMQPURL != "" {
		amqpPub, err := events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Fatal(err)
		}
		defer amqpPub.Close()
		publisher = amqpPub
		log.Printf("events=amqp exchange=%s", cfg.AMQPExchange)
	}

	defaults := services.RouteOptions{
		AverageSpeedKmh:       cfg.AverageSpeedKmh,
		ServiceMinutesPerStop: cfg.ServiceMinutesPerStop,
		DisposalMinutes:       cfg.DisposalMinutes,
	}
	if err := defaults.Validate(); err != nil {
		log.Fatalf("invalid route defaults: %v", err)
	}

	var depot *domain.Coordinates
	if cfg.DepotSet {
		depot = &domain.Coordinates{Lat: cfg.DepotLat, Lng: cfg.DepotLng}
		if err := depot.Validate(); err != nil {
			log.Fatalf("invalid depot: %v", err)
		}
	}

	router := api.NewRouter(api.Deps{
		Requests: st.requests,
		Catalog:  st.catalog,
		Planner: &services.CollectionPlanner{
			Requests:    st.requests,
			Sites:       st.catalog,
			Routes:      st.routes,
			Publisher:   publisher,
			MaxRequests: cfg.MaxRouteRequests,
		},
		Tracker: &services.RouteTracker{
			Routes:    st.routes,
			Requests:  st.requests,
			Publisher: publisher,
		},
		Defaults:       defaults,
		DefaultStart:   depot,
		MaxRequests:    cfg.MaxRouteRequests,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening addr=:%s", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server stopped: %v", err)
		}
	case <-ctx.Done():
		log.Println("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("graceful shutdown failed: %v", err)
		}
	}
}

func initAndSeed(database *sql.DB, requestsPath, sitesPath string) error {
	if err := repositories.InitSchema(database); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	if err := repositories.SeedFromFiles(database, requestsPath, sitesPath); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	return nil
}

// memoryStores builds in-process stores from the seed files. Missing or
// invalid seeds leave the corresponding store empty.
func memoryStores(requestsPath, sitesPath string) stores {
	requests, err := repositories.LoadRequestSeeds(requestsPath)
	if err != nil {
		log.Printf("no request seeds loaded: %v", err)
	}
	sites, err := repositories.LoadSiteSeeds(sitesPath)
	if err != nil {
		log.Printf("no disposal site seeds loaded: %v", err)
	}

	log.Printf("seeded memory stores requests=%d disposal_sites=%d", len(requests), len(sites))
	return stores{
		requests: memory.NewRequestStore(requests...),
		catalog:  memory.NewDisposalSiteStore(sites...),
		routes:   memory.NewRouteStore(),
	}
}
