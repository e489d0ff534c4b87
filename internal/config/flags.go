package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// ParseFlags parses command-line flags and returns a Config.
func ParseFlags() (*Config, error) {
	cfg := DefaultConfig()

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `go-stats-index - background indexing and aggregation for block statistics files

Usage:
  go-stats-index [flags] <STATS_FILE>

Aggregation Flags:
`)
		printFlagCategory([]string{"frame", "frame-end", "type"})

		fmt.Fprintf(os.Stderr, "\nExport:\n")
		printFlagCategory([]string{"chart-out", "csv-out", "dump-metrics"})

		fmt.Fprintf(os.Stderr, "\nObservability:\n")
		printFlagCategory([]string{"metrics", "v", "log-format"})

		fmt.Fprintf(os.Stderr, "\nDashboard:\n")
		printFlagCategory([]string{"tui", "tick"})

		fmt.Fprintf(os.Stderr, "\nEngine:\n")
		printFlagCategory([]string{"event-buffer"})

		fmt.Fprintf(os.Stderr, `
Examples:
  # Index a file and watch progress on the dashboard
  go-stats-index stats.csv

  # Aggregate frame 10 of one type, write the histogram chart
  go-stats-index -frame 10 -type "MV L0" -chart-out hist.html -tui=false stats.csv

  # Aggregate a frame range to CSV
  go-stats-index -frame 0 -frame-end 99 -csv-out hist.csv -tui=false stats.csv

`)
	}

	// Aggregation
	flag.IntVar(&cfg.Frame, "frame", cfg.Frame, "Frame to aggregate")
	flag.IntVar(&cfg.FrameEnd, "frame-end", cfg.FrameEnd, "Last frame of the aggregation range (-1 = single frame)")
	flag.StringVar(&cfg.TypeName, "type", cfg.TypeName, "Statistic type name to aggregate (empty = all types)")

	// Export
	flag.StringVar(&cfg.ChartOut, "chart-out", cfg.ChartOut, "Write the aggregation as an HTML bar-chart page to this path")
	flag.StringVar(&cfg.CSVOut, "csv-out", cfg.CSVOut, "Write the aggregation as CSV to this path")
	flag.StringVar(&cfg.MetricsDump, "dump-metrics", cfg.MetricsDump, "Write final metrics in Prometheus text format to this path")

	// Observability
	flag.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Prometheus metrics address")
	flag.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, `Log format: "json" or "text"`)

	// Dashboard
	flag.BoolVar(&cfg.TUIEnabled, "tui", cfg.TUIEnabled, "Enable live terminal dashboard (use -tui=false to disable)")
	flag.DurationVar(&cfg.TickInterval, "tick", cfg.TickInterval, "Dashboard refresh interval")

	// Engine
	flag.IntVar(&cfg.EventBuffer, "event-buffer", cfg.EventBuffer, "Indexer event channel capacity")

	flag.Parse()

	// Positional argument: statistics file path
	args := flag.Args()
	if len(args) >= 1 {
		cfg.FilePath = args[0]
	}

	return cfg, nil
}

// printFlagCategory prints flags matching the given names (helper for usage).
func printFlagCategory(names []string) {
	flag.VisitAll(func(f *flag.Flag) {
		for _, name := range names {
			if f.Name == name {
				fmt.Fprintf(os.Stderr, "  -%s %s\n    \t%s", f.Name, flagType(f), f.Usage)
				if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" && f.DefValue != "0s" {
					fmt.Fprintf(os.Stderr, " (default %s)", f.DefValue)
				}
				fmt.Fprintln(os.Stderr)
				return
			}
		}
	})
}

// flagType returns a type hint for the flag value.
func flagType(f *flag.Flag) string {
	switch f.DefValue {
	case "true", "false":
		return ""
	}

	if strings.HasSuffix(f.DefValue, "s") || strings.HasSuffix(f.DefValue, "m") || strings.HasSuffix(f.DefValue, "h") {
		return "duration"
	}

	if _, err := fmt.Sscanf(f.DefValue, "%d", new(int)); err == nil {
		return "int"
	}

	return "string"
}
