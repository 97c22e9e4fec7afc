package main

import (
	"context"
	"flag"
	"log"
	"time"

	"gym-membership/internal/config"
	"gym-membership/internal/infra/db/postgres"
	"gym-membership/internal/infra/redis"
)

// This script wipes Postgres and Redis so manual end-to-end runs start from
// a predictable state. Run cmd/seed afterwards for catalog data.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	confirm := flag.Bool("yes", false, "confirm that all data should be deleted")
	flag.Parse()

	if !*confirm {
		log.Fatal("refusing to wipe data without -yes")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	// --- Connect to Postgres ---
	pool, err := postgres.NewPgxPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pool.Close()

	// --- Connect to Redis ---
	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer redisClient.Close()

	log.Println("--- Starting E2E Environment Setup ---")

	// 1. Cached plans, rate-limit counters and stale locks all live in Redis.
	log.Println("[1/2] Wiping Redis...")
	if err := redisClient.FlushDB(ctx); err != nil {
		log.Fatalf("failed to flush redis: %v", err)
	}

	// 2. Clean the database completely.
	log.Println("[2/2] Wiping all existing database data...")
	_, err = pool.Exec(ctx, `
		TRUNCATE
			subscription_events, payments, coupons, users, plans, payment_settings
		RESTART IDENTITY CASCADE;
	`)
	if err != nil {
		log.Fatalf("failed to truncate tables: %v", err)
	}

	log.Println("--- E2E Environment Setup Complete, run cmd/seed next ---")
}
