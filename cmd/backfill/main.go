// Command backfill refines a historical date range one day at a time,
// oldest first, and prints each run's result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/quake-data-etl/internal/app"
	"github.com/couchcryptid/quake-data-etl/internal/config"
	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
)

func main() {
	start := flag.String("start", "", "first day to refine (YYYY-MM-DD)")
	end := flag.String("end", "", "day after the last day to refine (YYYY-MM-DD)")
	flag.Parse()

	if err := run(*start, *end); err != nil {
		fmt.Fprintln(os.Stderr, "backfill:", err)
		os.Exit(1)
	}
}

func run(start, end string) error {
	_ = godotenv.Load()

	window, err := domain.ParseDateRange(start, end)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// stdout carries the results.
	logger := observability.NewLoggerTo(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck // process is exiting

	enc := json.NewEncoder(os.Stdout)
	for _, day := range window.Days() {
		res, err := a.Coordinator.Run(ctx, day)
		if encErr := enc.Encode(res); encErr != nil {
			return encErr
		}
		if err != nil {
			return err
		}
	}
	return nil
}
