package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"
	"waste-route-service/internal/adapters/cache"
	"waste-route-service/internal/adapters/repositories"
	"waste-route-service/internal/config"
	"waste-route-service/internal/platform/db"

	"github.com/redis/go-redis/v9"
)

// dbtool prepares a Postgres database: schema first, then seed requests and
// the disposal-site catalog. Safe to re-run; seeds are upserted.
func main() {
	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close()

	if err := initAndSeed(database, cfg.SeedRequestsPath, cfg.SeedSitesPath); err != nil {
		log.Fatal(err)
	}

	if cfg.RedisURL != "" {
		if err := invalidateCatalogCache(cfg.RedisURL); err != nil {
			log.Fatal(err)
		}
		log.Println("Disposal site cache invalidated.")
	}
}

// invalidateCatalogCache drops the cached catalog so servers pick up the
// reseeded sites on their next read instead of after the TTL.
func invalidateCatalogCache(redisURL string) error {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := cache.NewRedisDisposalSiteCache(rdb, nil, 0).Invalidate(ctx); err != nil {
		return fmt.Errorf("invalidate catalog cache: %w", err)
	}
	return nil
}

func initAndSeed(database *sql.DB, requestsPath, sitesPath string) error {
	log.Println("Initializing database schema...")
	if err := repositories.InitSchema(database); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")

	log.Printf("Seeding database requests=%s sites=%s ...", requestsPath, sitesPath)
	if err := repositories.SeedFromFiles(database, requestsPath, sitesPath); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	log.Println("Seeding complete.")

	return nil
}
