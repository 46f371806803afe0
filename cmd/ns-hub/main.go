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

	"netsentry/internal/anomaly"
	"netsentry/internal/config"
	"netsentry/internal/hub"
	"netsentry/internal/metrics"
)

func main() {
	configFile := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	flag.Parse()

	log.Println("Starting ns-hub...")

	// 1. Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	writeTimeout, err := time.ParseDuration(cfg.Hub.WriteTimeout)
	if err != nil {
		log.Fatalf("Invalid hub write timeout: %v", err)
	}

	// 2. Load the fitted artifacts. The hub does not serve without a model.
	det, err := anomaly.Load(cfg.Model.Dir)
	if err != nil {
		log.Fatalf("Failed to load model artifacts from %s: %v", cfg.Model.Dir, err)
	}
	log.Printf("Model loaded from %s (fitted %s, threshold %.6f)",
		cfg.Model.Dir, det.Summary.FittedAt, det.Summary.Offset)

	// 3. Assemble the hub and its HTTP surface
	m := metrics.New()
	h := hub.New(hub.NewRegistry(), m, cfg.Hub.SubscriberBuffer)
	h.Start()

	server := hub.NewServer(h, m, det, cfg.Model.Dir, cfg.Hub.SubscriberBuffer, writeTimeout)

	// 4. Optional NATS ingest bridge
	var bridge *hub.Bridge
	if cfg.Hub.NATSIngest {
		bridge = hub.NewBridge(h, cfg.NATS)
		if err := bridge.Start(); err != nil {
			log.Fatalf("Failed to start NATS ingest bridge: %v", err)
		}
	}

	httpServer := &http.Server{
		Addr:    cfg.Hub.ListenAddr,
		Handler: server.Router(),
	}

	go func() {
		log.Printf("Hub listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", httpServer.Addr, err)
		}
	}()

	// 5. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Hub shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	if bridge != nil {
		bridge.Stop()
	}
	h.Stop()
	log.Println("Hub exited.")
}
