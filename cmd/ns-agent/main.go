package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"netsentry/internal/anomaly"
	"netsentry/internal/config"
	"netsentry/internal/emitter"
	"netsentry/internal/model"
	"netsentry/internal/monitor"
)

func main() {
	configFile := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	flag.Parse()

	log.Println("Starting ns-agent...")

	// 1. Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	interval, err := time.ParseDuration(cfg.Agent.Interval)
	if err != nil {
		log.Fatalf("Invalid agent interval: %v", err)
	}
	sendTimeout, err := time.ParseDuration(cfg.Agent.SendTimeout)
	if err != nil {
		log.Fatalf("Invalid agent send timeout: %v", err)
	}

	host := cfg.Agent.Host
	if host == "" {
		host, err = os.Hostname()
		if err != nil {
			log.Fatalf("Failed to resolve hostname: %v", err)
		}
	}

	// 2. Build the event transport
	var sender model.Sender
	switch cfg.Agent.Transport {
	case "http":
		sender = emitter.NewHTTPSender(cfg.Agent.HubURL, sendTimeout)
		log.Printf("Reporting to %s over HTTP", cfg.Agent.HubURL)
	case "nats":
		pub, err := emitter.NewPublisher(cfg.NATS)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer pub.Close()
		sender = pub
	default:
		log.Fatalf("Unknown transport '%s' (want http or nats)", cfg.Agent.Transport)
	}

	// 3. Optional inline scoring with locally loaded artifacts
	var scorer model.Scorer
	if cfg.Agent.ScoreInline {
		det, err := anomaly.Load(cfg.Model.Dir)
		if err != nil {
			log.Fatalf("Inline scoring enabled but artifacts unusable: %v", err)
		}
		scorer = det
		log.Printf("Inline scoring enabled (model fitted %s)", det.Summary.FittedAt)
	}

	em := emitter.New(host, sender, scorer)
	collector := monitor.NewCollector(interval, em.Emit)

	// 4. Run until interrupted. An enumeration failure terminates the agent.
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Shutdown signal received, stopping collector...")
		cancel()
	}()

	if err := collector.Run(ctx); err != nil {
		log.Fatalf("Collector terminated: %v", err)
	}
	log.Println("Shutdown complete.")
}
