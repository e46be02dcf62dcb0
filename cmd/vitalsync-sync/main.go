package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/claude/vitalsync/internal/config"
	"github.com/claude/vitalsync/internal/dates"
	"github.com/claude/vitalsync/internal/garmin"
	"github.com/claude/vitalsync/internal/ingest"
	"github.com/claude/vitalsync/internal/metrics"
	"github.com/claude/vitalsync/internal/report"
	"github.com/claude/vitalsync/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	userID := flag.Int64("user", 0, "user ID to sync (required)")
	startStr := flag.String("start", "", "start date (YYYY-MM-DD)")
	endStr := flag.String("end", "", "end date (YYYY-MM-DD)")
	days := flag.Int("days", 7, "number of days when start or end is omitted")
	force := flag.Bool("force", false, "refetch days that already have data")
	printReport := flag.Bool("report", false, "print a markdown report for the range after syncing")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *userID <= 0 {
		fmt.Fprintf(os.Stderr, "Usage: vitalsync-sync -config config.yaml -user 42 [-start YYYY-MM-DD] [-end YYYY-MM-DD] [-days N] [-force] [-report]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	var start, end *dates.Date
	if *startStr != "" {
		d, err := dates.Parse(*startStr)
		if err != nil {
			log.Error("invalid start date", "error", err)
			os.Exit(1)
		}
		start = &d
	}
	if *endStr != "" {
		d, err := dates.Parse(*endStr)
		if err != nil {
			log.Error("invalid end date", "error", err)
			os.Exit(1)
		}
		end = &d
	}

	span := dates.ResolveRange(start, end, *days, dates.Of(time.Now()))
	if len(span) == 0 {
		log.Error("empty date range")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	store, err := storage.Open(cfg.Data.Dir, log)
	if err != nil {
		log.Error("failed to open data store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	sessions := garmin.NewSessionProvider(cfg.Garmin.TokenDir, cfg.Garmin.BaseURL, cfg.Garmin.Timeout(), log)
	orchestrator := ingest.New(store, sessions, log)

	ctx := context.Background()
	result, err := orchestrator.EnsureRange(ctx, *userID, span[0], span[len(span)-1], nil, *force)
	if err != nil {
		log.Error("sync failed", "error", err)
		os.Exit(1)
	}

	log.Info("sync complete",
		"user", *userID,
		"start", span[0].String(),
		"end", span[len(span)-1].String(),
		"days_requested", result.DaysRequested,
		"days_missing", result.DaysMissing,
		"days_stored", result.DaysStored,
		"fetch_attempts", result.FetchAttempts,
	)
	for _, f := range result.FailedDates {
		log.Warn("date failed", "date", f.Date.String(), "reason", f.Reason)
	}

	if *printReport {
		extractor := metrics.NewExtractor(store, log)
		reports := report.NewGenerator(extractor, log)

		md, err := reports.Markdown(ctx, *userID, span[0], span[len(span)-1])
		if err != nil {
			log.Error("report failed", "error", err)
			os.Exit(1)
		}
		fmt.Print(md)
	}
}
