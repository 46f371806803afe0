package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"netsentry/internal/config"
	"netsentry/internal/policy"
)

func main() {
	configFile := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	flag.Parse()

	log.Println("Starting ns-policy...")

	// 1. Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Open the policy store, seeding defaults on first run
	store, err := policy.NewFileStore(cfg.Policy.StorePath)
	if err != nil {
		log.Fatalf("Failed to open policy store: %v", err)
	}

	handler := policy.NewAPIHandler(store)

	server := &http.Server{
		Addr:    cfg.Policy.ListenAddr,
		Handler: handler.Router(),
	}

	go func() {
		log.Printf("Policy API listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", server.Addr, err)
		}
	}()

	// 3. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Policy API shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Policy API exited.")
}
