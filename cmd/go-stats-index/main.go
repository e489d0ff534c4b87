// Package main provides the go-stats-index CLI entry point.
//
// go-stats-index builds a byte-offset index over a block statistics file in
// the background, serves random-access (frame, type) loads from it, and
// aggregates the loaded records into per-block-size histograms.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vidstats/go-stats-index/internal/aggregate"
	"github.com/vidstats/go-stats-index/internal/config"
	"github.com/vidstats/go-stats-index/internal/export"
	"github.com/vidstats/go-stats-index/internal/logging"
	"github.com/vidstats/go-stats-index/internal/metrics"
	"github.com/vidstats/go-stats-index/internal/statfile"
	"github.com/vidstats/go-stats-index/internal/stats"
	"github.com/vidstats/go-stats-index/internal/tui"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/go-stats-index
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) > 1 {
		arg := os.Args[1]
		if arg == "-version" || arg == "--version" || arg == "version" {
			fmt.Printf("go-stats-index %s\n", version)
			return 0
		}
	}

	cfg, err := config.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return 1
	}

	// When the dashboard is enabled, suppress logs so they do not interfere
	// with terminal rendering.
	var logger *slog.Logger
	if cfg.TUIEnabled {
		logger = logging.NewLoggerWithWriter(io.Discard, "json", "info")
	} else {
		logger = logging.NewLogger(cfg.LogFormat, "info", cfg.Verbose)
	}
	logging.SetDefault(logger)

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	logger.Info("starting",
		"version", version,
		"file", cfg.FilePath,
		"frame", cfg.Frame,
		"frame_end", cfg.FrameEnd,
		"type", cfg.TypeName,
		"metrics_addr", cfg.MetricsAddr,
	)

	if !cfg.TUIEnabled {
		printBanner(cfg)
	}

	file, err := statfile.Open(cfg.FilePath, statfile.Options{
		Logger:      logger,
		EventBuffer: cfg.EventBuffer,
	})
	if err != nil {
		logger.Error("open_failed", "file", cfg.FilePath, "error", err)
		fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", cfg.FilePath, err)
		return 1
	}
	defer file.Close()

	collector := metrics.NewCollector(metrics.CollectorConfig{
		Version:      version,
		Path:         cfg.FilePath,
		SequenceName: file.SequenceName(),
		FileSize:     file.Size(),
	})

	server := metrics.NewServer(cfg.MetricsAddr, logger)
	if err := server.Start(); err != nil {
		logger.Error("metrics_server_failed", "error", err)
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := file.StartIndexing(ctx); err != nil {
		logger.Error("indexing_start_failed", "error", err)
		return 1
	}

	aggregator := stats.NewAggregator(file)

	// Sampling loop: scan-rate samples and metric updates once per second.
	samplerDone := make(chan struct{})
	go func() {
		defer close(samplerDone)
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				file.SampleScanRate()
				recordMetrics(collector, aggregator.Snapshot())
			}
		}
	}()

	if cfg.TUIEnabled {
		runDashboard(ctx, cfg, file, aggregator, logger)
	} else {
		waitForIndexing(ctx, file, logger)
	}

	stop()
	file.StopIndexing()
	<-samplerDone
	recordMetrics(collector, aggregator.Snapshot())

	if errMsg := file.LastError(); errMsg != "" {
		logger.Error("run_finished_with_error", "error", errMsg)
		if !cfg.TUIEnabled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", errMsg)
		}
	}

	if err := runQuery(cfg, file, logger); err != nil {
		logger.Error("aggregation_failed", "error", err)
		fmt.Fprintf(os.Stderr, "Aggregation error: %v\n", err)
		return 1
	}

	if cfg.MetricsDump != "" {
		if err := dumpMetrics(cfg.MetricsDump); err != nil {
			logger.Error("metrics_dump_failed", "error", err)
			return 1
		}
		logger.Info("metrics_dumped", "path", cfg.MetricsDump)
	}

	if file.LastError() != "" {
		return 1
	}
	return 0
}

// runDashboard runs the live terminal dashboard until the user quits or the
// context is cancelled.
func runDashboard(ctx context.Context, cfg *config.Config, file *statfile.File, aggregator *stats.Aggregator, logger *slog.Logger) {
	model := tui.New(tui.Config{
		Source:       aggregator,
		MetricsAddr:  cfg.MetricsAddr,
		TickInterval: cfg.TickInterval,
	})
	p := tea.NewProgram(model, tea.WithAltScreen())

	go func() {
		<-ctx.Done()
		tui.SendQuit(p)
	}()

	if _, err := p.Run(); err != nil {
		logger.Error("dashboard_failed", "error", err)
	}
}

// waitForIndexing consumes indexer events until the scan completes, fails,
// or the context is cancelled. Events are lossy, so completion is also
// polled.
func waitForIndexing(ctx context.Context, file *statfile.File, logger *slog.Logger) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev := <-file.Events():
			switch ev.Kind {
			case statfile.EventProgress:
				logger.Debug("indexing_progress", "frame", ev.Frame, "percent", ev.Progress)
			case statfile.EventCompleted:
				return
			case statfile.EventFailed:
				return
			}

		case <-ticker.C:
			if !file.IndexingRunning() {
				return
			}
		}
	}
}

// runQuery aggregates the configured frame range and writes the requested
// export artifacts.
func runQuery(cfg *config.Config, file *statfile.File, logger *slog.Logger) error {
	end := cfg.FrameEnd
	if end < 0 {
		end = cfg.Frame
	}
	if file.Index().Len() == 0 {
		logger.Info("no_indexed_data", "frame", cfg.Frame)
		return nil
	}

	data, err := aggregate.CollectRange(file, cfg.TypeName, cfg.Frame, end)
	if err != nil {
		return err
	}

	digest := aggregate.NewValueDigest()
	digest.AddCollected(data)
	if digest.Count() > 0 {
		logger.Info("value_distribution",
			"frames", fmt.Sprintf("%d..%d", cfg.Frame, end),
			"samples", digest.Count(),
			"p50", digest.Quantile(0.50),
			"p95", digest.Quantile(0.95),
			"p99", digest.Quantile(0.99),
		)
	}

	if cfg.ChartOut != "" {
		title := cfg.TypeName
		if title == "" {
			title = "all types"
		}
		if err := writeFile(cfg.ChartOut, func(w io.Writer) error {
			return export.WriteChart(w, title, data)
		}); err != nil {
			return err
		}
		logger.Info("chart_written", "path", cfg.ChartOut)
	}

	if cfg.CSVOut != "" {
		if err := writeFile(cfg.CSVOut, func(w io.Writer) error {
			return export.WriteCSV(w, data)
		}); err != nil {
			return err
		}
		logger.Info("csv_written", "path", cfg.CSVOut)
	}

	return nil
}

func dumpMetrics(path string) error {
	return writeFile(path, func(w io.Writer) error {
		return export.WriteMetricsText(w, prometheus.DefaultGatherer)
	})
}

func writeFile(path string, write func(io.Writer) error) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// recordMetrics translates a snapshot into collector updates.
func recordMetrics(c *metrics.Collector, s stats.Snapshot) {
	var parseErrors int64
	if s.LastError != "" {
		parseErrors = 1
	}
	c.RecordStats(&metrics.IndexStatsUpdate{
		ProgressPercent: s.Progress,
		Complete:        s.Complete,
		LinesScanned:    s.LinesScanned,
		BytesScanned:    s.ScanRates.TotalBytes,
		ScanRate10s:     s.ScanRates.Avg10s,
		FramesIndexed:   s.FrameCount,
		IndexEntries:    s.IndexEntries,
		TypeCount:       len(s.Types),
		RecordsLoaded:   s.RecordsLoaded,
		ParseErrors:     parseErrors,
	})
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config) {
	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════════════╗")
	fmt.Println("║                         go-stats-index                            ║")
	fmt.Println("║     Background indexing for block statistics files                ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  File:        %s\n", cfg.FilePath)
	if cfg.FrameEnd >= 0 {
		fmt.Printf("  Frames:      %d..%d\n", cfg.Frame, cfg.FrameEnd)
	} else {
		fmt.Printf("  Frame:       %d\n", cfg.Frame)
	}
	if cfg.TypeName != "" {
		fmt.Printf("  Type:        %s\n", cfg.TypeName)
	}
	fmt.Printf("  Metrics:     http://%s/metrics\n", cfg.MetricsAddr)
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop.")
	fmt.Println()
}
