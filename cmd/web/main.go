package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gorilla/sessions"
	"github.com/joho/godotenv"

	"movedin-web/core"
)

func main() {
	_ = godotenv.Load()
	cfg := core.Load()
	ctx := context.Background()

	logCloser, err := core.SetupLogging(cfg, "web.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	db, err := core.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	redisClient, err := core.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer redisClient.Close()

	articles := core.NewPgArticleRepository(db)
	if err := core.SyncContentDir(ctx, articles, cfg.ContentDir); err != nil {
		log.Fatalf("content sync failed: %v", err)
	}

	// Gorilla cookie store for session management.
	store := sessions.NewCookieStore([]byte(cfg.SessionKey))

	leads := core.NewPgLeadRepository(db)
	queue := core.NewRedisQueue(redisClient)
	vendor := core.NewHTTPVendorAPIClient(cfg.VendorAPIURL)
	creds := core.NewSessionCredentialStore(cfg)
	metrics := core.NewMetricsService(redisClient)

	router := core.NewRouter(cfg, store, creds, vendor, articles, leads, queue, metrics)

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("starting web server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
