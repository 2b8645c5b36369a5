package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/config"
	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/fetcher"
	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/geoip"
	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/history"
	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/logger"
	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/pipeline"
	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/prober"
	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/sink"
	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/source"
	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 0. Setup
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Setup(cfg.LogLevel)

	sources, err := source.Load(cfg.SourcesPath)
	if err != nil {
		return fmt.Errorf("sources file: %w", err)
	}

	geoDB, err := geoip.Open(cfg.GeoIPCityPath, cfg.GeoIPASNPath)
	if err != nil {
		return fmt.Errorf("geoip: %w", err)
	}
	defer geoDB.Close()

	store, err := history.Open(cfg.HistoryPath, slog.Default())
	if err != nil {
		return err
	}

	fmt.Printf("Loaded %d sources. Starting run...\n", len(sources))

	// 1. Wire the pipeline
	f := fetcher.New(fetcher.Options{
		Attempts:         cfg.FetchAttempts,
		BackoffBase:      cfg.BackoffBase,
		BackoffJitter:    cfg.BackoffJitter,
		RequestTimeout:   cfg.RequestTimeout,
		ConnectTimeout:   cfg.ConnectTimeout,
		MaxBodyBytes:     cfg.MaxBodyBytes,
		BreakerThreshold: cfg.BreakerThreshold,
		BreakerCooldown:  cfg.BreakerCooldown,
		AllowPrivate:     cfg.AllowPrivateSources,
	}, slog.Default())
	pr := prober.New(cfg.ConnectTimeout, geoDB, slog.Default())
	pipe := pipeline.New(cfg, f, pr, store)
	rc := pipeline.NewRunContext(slog.Default())

	ctx := context.Background()

	// 2. Optional Telegram channel scrapes feed in as raw text
	var extraTexts []string
	if len(cfg.TelegramChannels) > 0 {
		scraper := telegram.NewScraper(cfg.TelegramTimeout)
		for _, ch := range cfg.TelegramChannels {
			text, err := scraper.Channel(ctx, ch)
			if err != nil {
				slog.Warn("telegram_scrape_failed", "channel", ch, "error", err)
				continue
			}
			extraTexts = append(extraTexts, text)
		}
	}

	// 3. Run
	start := time.Now()
	results, stats := pipe.Run(ctx, rc, sources, extraTexts)

	// 4. Persist and export
	if err := store.Save(); err != nil {
		slog.Error("history_save_failed", "error", err)
	}
	if cfg.PruneSources {
		removed, err := source.Prune(cfg.SourcesPath, pipe.Fetcher().ConsecutiveFailures, cfg.PruneAfter)
		if err != nil {
			slog.Warn("source_prune_failed", "error", err)
		} else if removed > 0 {
			fmt.Printf("Pruned %d dead sources from %s\n", removed, cfg.SourcesPath)
		}
	}

	if err := sink.WriteText(cfg.OutputPath, results); err != nil {
		return fmt.Errorf("write %s: %w", cfg.OutputPath, err)
	}
	if cfg.JSONLOutputPath != "" {
		if err := sink.WriteJSONL(cfg.JSONLOutputPath, results); err != nil {
			return fmt.Errorf("write %s: %w", cfg.JSONLOutputPath, err)
		}
	}
	if cfg.YAMLOutputPath != "" {
		if err := sink.WriteYAML(cfg.YAMLOutputPath, results); err != nil {
			return fmt.Errorf("write %s: %w", cfg.YAMLOutputPath, err)
		}
	}

	// 5. Summary: the run reports what it produced, it never hard-fails
	// because some sources or probes died.
	fmt.Printf("\n--- Run Complete in %s ---\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("Sources checked : %d (failed: %d, skipped: %d)\n", stats.SourcesChecked, stats.SourcesFailed, stats.SourcesSkipped)
	fmt.Printf("Configs fetched : %d (parse failures: %d)\n", stats.ConfigsFetched, stats.ParseFailures)
	fmt.Printf("Duplicates      : %d removed\n", stats.DuplicatesRemoved)
	fmt.Printf("Reachable       : %d of %d probed\n", stats.ConfigsReachable, stats.ConfigsProbed)
	fmt.Printf("Final set       : %d configs -> %s\n", len(results), cfg.OutputPath)
	return nil
}
