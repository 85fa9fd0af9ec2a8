// bybitarc downloads Bybit public market-data archives and republishes
// them as compressed Parquet files.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nssanta/bybitarc/internal/errors"
	"github.com/nssanta/bybitarc/internal/loader"
	"github.com/nssanta/bybitarc/internal/logging"
	"github.com/nssanta/bybitarc/internal/plan"
	"github.com/nssanta/bybitarc/internal/runner"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// CLI flags
	cfgPath := flag.String("config", "", "config file path (optional)")
	dataset := flag.String("dataset", "orderbook", "dataset: orderbook, trades or klines")
	symbols := flag.String("symbols", "BTCUSDT", "comma-separated symbol list")
	startDate := flag.String("start", "", "start date YYYY-MM-DD (required)")
	endDate := flag.String("end", "", "end date YYYY-MM-DD, inclusive (required)")
	interval := flag.String("interval", "1", "klines interval in minutes")
	outputDir := flag.String("output", "", "output directory (overrides config)")
	workers := flag.Int("workers", 0, "worker pool size (overrides config)")
	minDisk := flag.Float64("min-disk", -1, "minimum free disk space in GB (overrides config)")
	stagger := flag.Float64("stagger", -1, "max random worker start delay in seconds (overrides config)")
	compression := flag.String("compression", "", "parquet codec: zstd, snappy, lz4, gzip, none (overrides config)")
	dryRun := flag.Bool("dry-run", false, "print planned (URL, destination) pairs without any I/O")
	noVerify := flag.Bool("no-verify", false, "skip read-back row count verification after publish")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	logJSON := flag.Bool("log-json", false, "log in JSON format")
	flag.Parse()

	logging.Init(parseLevel(*logLevel), *logJSON)
	log := logging.Component("main")
	log.Info("bybitarc starting", "version", Version)

	// Load config
	cfg := loader.DefaultConfig()
	if *cfgPath != "" {
		loaded, err := loader.Load(*cfgPath)
		if err != nil {
			log.Error("load config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// CLI overrides
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *workers > 0 {
		cfg.Pool.Workers = *workers
	}
	if *minDisk >= 0 {
		cfg.Disk.MinFreeGB = *minDisk
	}
	if *stagger >= 0 {
		cfg.Pool.StaggerSec = *stagger
	}
	if *compression != "" {
		cfg.Sink.Compression = *compression
	}
	if *noVerify {
		cfg.Verify = false
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	spec, err := buildSpec(cfg, *dataset, *symbols, *startDate, *endDate, *interval)
	if err != nil {
		log.Error("invalid arguments", "error", err)
		os.Exit(1)
	}

	if *dryRun {
		printPlan(spec)
		return
	}

	// SIGINT/SIGTERM cancel the run; in-flight tasks stop with it.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("run parameters",
		"dataset", spec.Dataset.String(),
		"symbols", strings.Join(spec.Symbols, ","),
		"start", spec.Start.Format(plan.DateFormat),
		"end", spec.End.Format(plan.DateFormat),
		"output", cfg.OutputDir,
		"workers", cfg.Pool.Workers,
		"stagger_sec", cfg.Pool.StaggerSec,
		"min_disk_gb", cfg.Disk.MinFreeGB)

	started := time.Now()
	summary, runErr := runner.New(cfg, spec).Run(ctx)
	printSummary(spec, summary, time.Since(started))

	switch {
	case errors.Is(runErr, errors.ErrDiskFull):
		log.Warn("run halted: disk space below minimum")
		os.Exit(1)
	case runErr != nil:
		log.Warn("run interrupted", "error", runErr)
		os.Exit(1)
	case summary.Totals.Failed > 0:
		os.Exit(1)
	}
}

// buildSpec validates the date range and symbols into a planning spec.
func buildSpec(cfg *loader.Config, dataset, symbols, start, end, interval string) (*plan.Spec, error) {
	ds, err := plan.ParseDataset(dataset)
	if err != nil {
		return nil, err
	}

	if start == "" || end == "" {
		return nil, fmt.Errorf("-start and -end are required")
	}
	startT, err := time.Parse(plan.DateFormat, start)
	if err != nil {
		return nil, fmt.Errorf("parse start date: %w", err)
	}
	endT, err := time.Parse(plan.DateFormat, end)
	if err != nil {
		return nil, fmt.Errorf("parse end date: %w", err)
	}
	if endT.Before(startT) {
		return nil, fmt.Errorf("end date is before start date")
	}

	var syms []string
	for _, s := range strings.Split(symbols, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			syms = append(syms, s)
		}
	}
	if len(syms) == 0 {
		return nil, fmt.Errorf("no symbols given")
	}

	return &plan.Spec{
		Dataset:          ds,
		Symbols:          syms,
		Start:            startT,
		End:              endT,
		Interval:         interval,
		OutputDir:        cfg.OutputDir,
		OrderbookBaseURL: cfg.Source.OrderbookBaseURL,
		BulkBaseURL:      cfg.Source.BulkBaseURL,
	}, nil
}

// printPlan lists every planned (URL, destination) pair without touching
// the network or the disk.
func printPlan(spec *plan.Spec) {
	for _, symbol := range spec.Symbols {
		for task := range spec.Tasks(symbol) {
			fmt.Printf("  %s\n", task.SourceURL)
			fmt.Printf("    -> %s\n", task.DestPath)
		}
	}
}

// printSummary writes the final per-symbol and overall report.
func printSummary(spec *plan.Spec, s *runner.Summary, elapsed time.Duration) {
	fmt.Println(strings.Repeat("=", 60))
	for _, symbol := range spec.Symbols {
		st, ok := s.PerSymbol[symbol]
		if !ok {
			continue
		}
		fmt.Printf("%-12s success=%d failed=%d not_found=%d skipped=%d records=%d bytes=%d\n",
			symbol, st.Success, st.Failed, st.NotFound, st.Skipped, st.Records, st.Bytes)
	}
	fmt.Println(strings.Repeat("-", 60))
	t := s.Totals
	fmt.Printf("total        success=%d failed=%d not_found=%d skipped=%d records=%d bytes=%d parse_errors=%d\n",
		t.Success, t.Failed, t.NotFound, t.Skipped, t.Records, t.Bytes, t.ParseErrors)
	fmt.Printf("elapsed      %.1fm (task p50=%s p95=%s)\n",
		elapsed.Minutes(), s.ElapsedP50.Round(time.Millisecond), s.ElapsedP95.Round(time.Millisecond))
	if s.DiskConstrained {
		fmt.Println("halted: disk space below configured minimum")
	}
	for _, f := range s.Failures {
		fmt.Printf("failed: %s %s (%s)\n", f.Task.Symbol, f.Task.DateString(), f.Detail)
	}
	fmt.Println(strings.Repeat("=", 60))
}

// parseLevel maps a level name to a slog level.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
