package main

import (
	"context"
	"flag"
	"log"

	"netsentry/internal/anomaly"
	"netsentry/internal/config"
	"netsentry/internal/corpus"
	"netsentry/internal/model"
)

func main() {
	configFile := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	source := flag.String("source", "generate", "Corpus source: 'generate', 'csv' or 'clickhouse'")
	flag.Parse()

	log.Println("Starting ns-train...")

	// 1. Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Acquire the training corpus
	var features []model.FeatureVector
	switch *source {
	case "generate":
		log.Printf("Generating synthetic corpus (%d samples, %.0f%% anomalous)...",
			cfg.Training.Samples, cfg.Training.Contamination*100)
		features = corpus.Generate(corpus.Options{
			Samples:       cfg.Training.Samples,
			Contamination: cfg.Training.Contamination,
			Seed:          cfg.Training.Seed,
		})
		if err := corpus.WriteCSV(cfg.Training.CSVPath, features); err != nil {
			log.Fatalf("Failed to save dataset: %v", err)
		}
		log.Printf("Dataset saved at %s", cfg.Training.CSVPath)

		if cfg.ClickHouse.Enabled {
			store, err := corpus.NewClickHouseStore(cfg.ClickHouse)
			if err != nil {
				log.Fatalf("Failed to open ClickHouse corpus store: %v", err)
			}
			defer store.Close()
			if err := store.Insert(context.Background(), features); err != nil {
				log.Fatalf("Failed to persist corpus to ClickHouse: %v", err)
			}
		}
	case "csv":
		features, err = corpus.ReadCSV(cfg.Training.CSVPath)
		if err != nil {
			log.Fatalf("Failed to load dataset: %v", err)
		}
		log.Printf("Loaded %d samples from %s", len(features), cfg.Training.CSVPath)
	case "clickhouse":
		store, err := corpus.NewClickHouseStore(cfg.ClickHouse)
		if err != nil {
			log.Fatalf("Failed to open ClickHouse corpus store: %v", err)
		}
		defer store.Close()
		features, err = store.LoadAll(context.Background())
		if err != nil {
			log.Fatalf("Failed to load corpus from ClickHouse: %v", err)
		}
		log.Printf("Loaded %d samples from ClickHouse", len(features))
	default:
		log.Fatalf("Unknown corpus source '%s' (want generate, csv or clickhouse)", *source)
	}

	// 3. Fit the detector
	log.Println("Training isolation forest...")
	det, err := anomaly.Fit(features, anomaly.FitOptions{
		Trees:         cfg.Training.Trees,
		SubsampleSize: cfg.Training.SubsampleSize,
		Contamination: cfg.Training.Contamination,
		Seed:          cfg.Training.Seed,
	})
	if err != nil {
		log.Fatalf("Training failed: %v", err)
	}
	log.Printf("Training complete: %d trees, subsample %d, threshold %.6f",
		det.Summary.Trees, det.Summary.SubsampleSize, det.Summary.Offset)

	// 4. Score the training set for the fit report
	anomalies := 0
	for _, v := range features {
		if _, label, err := det.Score(v); err == nil && label == model.LabelAnomaly {
			anomalies++
		}
	}
	log.Printf("Training set: %d of %d points read as anomalous", anomalies, len(features))

	// 5. Persist the artifacts
	if err := det.Save(cfg.Model.Dir); err != nil {
		log.Fatalf("Failed to save artifacts: %v", err)
	}
	log.Printf("Model and scaler saved in %s/", cfg.Model.Dir)
}
