package main

import (
	"context"
	"os"
	"time"

	"immograph/config"
	"immograph/geocode"
	"immograph/services"
	"immograph/sources"
	"immograph/storage"
	"immograph/utils"
)

func main() {
	cfg := config.Load()
	logger := utils.NewLogger(utils.ParseLevel(cfg.LogLevel))

	logger.Info("=== Listing ingestion starting ===")

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration: %v", err)
		os.Exit(1)
	}

	rules, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		logger.Error("Failed to load rules: %v", err)
		os.Exit(1)
	}

	ctx := context.Background()

	sink, err := storage.NewNeo4jSink(ctx, storage.Neo4jConfig{
		URI:      cfg.Neo4jURI,
		User:     cfg.Neo4jUser,
		Password: cfg.Neo4jPassword,
		Database: cfg.Neo4jDatabase,
	}, cfg.BatchSize, logger)
	if err != nil {
		logger.Error("Failed to connect to Neo4j: %v", err)
		os.Exit(1)
	}
	defer sink.Close(ctx)

	feed := sources.NewFeedReader()
	raws, err := feed.ReadFile(cfg.FeedPath)
	if err != nil {
		logger.Error("Failed to read feed: %v", err)
		os.Exit(1)
	}
	if len(raws) == 0 {
		logger.Error("Feed %s contains no records. Exiting.", cfg.FeedPath)
		os.Exit(1)
	}
	logger.Info("Loaded %d raw listings from %s", len(raws), cfg.FeedPath)

	if cfg.RawCSVPath != "" {
		csvWriter, err := storage.NewCSVWriter(cfg.RawCSVPath)
		if err != nil {
			logger.Error("Failed to create CSV writer: %v", err)
			os.Exit(1)
		}
		if err := csvWriter.WriteRaw(raws); err != nil {
			logger.Error("CSV snapshot failed: %v", err)
		} else {
			logger.Info("Raw listings snapshot saved to %s", cfg.RawCSVPath)
		}
		csvWriter.Close()
	}

	geocoder := geocode.NewClient(
		cfg.NominatimURL,
		cfg.ContactEmail,
		time.Duration(cfg.GeocodeTimeout)*time.Millisecond,
		time.Duration(cfg.RateLimitMs)*time.Millisecond,
		cfg.MaxRetries,
		logger,
	)

	pipeline := services.NewPipeline(
		services.NewNormalizer(rules),
		services.NewResolver(geocoder, logger),
		services.NewValidator(rules),
		services.NewDeduplicator(rules, logger),
		sink,
		logger,
	)

	report, err := pipeline.Run(ctx, raws)
	pipeline.PrintSummary(report)
	if err != nil {
		logger.Error("Run finished with error: %v", err)
		os.Exit(1)
	}

	logger.Info("Run %s complete: %d/%d listings stored", report.RunID, report.Accepted, report.Consumed)
}
