package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcheron/trackfolio/internal/app"
	"github.com/mcheron/trackfolio/internal/common"
	"github.com/mcheron/trackfolio/internal/services/aggregator"
)

func main() {
	configPath := flag.String("config", "", "path to trackfolio.toml (defaults to TRACKFOLIO_CONFIG)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		common.LoadVersionFromFile()
		fmt.Println(common.GetFullVersion())
		return
	}

	a, err := app.NewApp(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	common.PrintBanner(a.Config, a.Logger)

	// Cancel the run on interrupt so a half-finished computation never
	// reaches storage.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		a.Logger.Warn().Msg("Interrupt received, cancelling run")
		cancel()
	}()

	start := time.Now()
	result, err := a.Aggregator.Run(ctx)
	if err != nil {
		a.Logger.Fatal().Err(err).Msg("Run failed")
	}

	rows := aggregator.Rows(result)
	entities := aggregator.Entities(result)

	persistCtx, persistCancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer persistCancel()

	if err := a.Storage.PerformanceStore().Replace(persistCtx, entities, rows); err != nil {
		a.Logger.Fatal().Err(err).Msg("Failed to persist performance rows")
	}

	a.Logger.Info().
		Str("run_id", result.RunID).
		Int("tickers", len(result.Tickers)).
		Int("excluded", len(result.Excluded)).
		Int("rows", len(rows)).
		Dur("elapsed", time.Since(start)).
		Msg("Run complete")

	for _, excl := range result.Excluded {
		a.Logger.Warn().
			Str("ticker", excl.Ticker).
			Str("reason", excl.Reason).
			Msg("Ticker excluded from this run")
	}

	common.PrintShutdownBanner(a.Logger)
}
