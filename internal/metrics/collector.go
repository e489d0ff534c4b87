// Package metrics provides Prometheus metrics for go-stats-index.
//
// All metrics describe one indexing run: scan progress and throughput, the
// size of the offset index being built, and the load path's record counts.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	statsIndexInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stats_index_info",
			Help: "Information about the indexed statistics file (value always 1)",
		},
		[]string{"version", "path", "sequence"},
	)

	statsIndexFileSizeBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stats_index_file_size_bytes",
			Help: "Size of the statistics file being indexed",
		},
	)

	statsIndexProgressPercent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stats_index_progress_percent",
			Help: "Background indexing progress (0 to 100)",
		},
	)

	statsIndexComplete = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stats_index_complete",
			Help: "Whether the background scan has finished (0 or 1)",
		},
	)

	statsIndexElapsedSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stats_index_elapsed_seconds",
			Help: "Seconds since indexing started",
		},
	)
)

var (
	statsIndexLinesScannedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stats_index_lines_scanned_total",
			Help: "Total data lines examined by the background scan",
		},
	)

	statsIndexBytesScannedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stats_index_bytes_scanned_total",
			Help: "Total bytes read by the background scan",
		},
	)

	statsIndexScanBytesPerSec = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stats_index_scan_bytes_per_second",
			Help: "Scan throughput averaged over the last 10 seconds",
		},
	)

	statsIndexFramesIndexed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stats_index_frames_indexed",
			Help: "Distinct frames with at least one index entry",
		},
	)

	statsIndexEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stats_index_entries",
			Help: "Total (frame, type) offset entries in the index",
		},
	)

	statsIndexTypesRegistered = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stats_index_types_registered",
			Help: "Statistic types declared in the file header",
		},
	)
)

var (
	statsIndexRecordsLoadedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stats_index_records_loaded_total",
			Help: "Total records decoded into the frame caches",
		},
	)

	statsIndexLoadDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "stats_index_load_duration_seconds",
			Help: "Duration of single (frame, type) cache loads",
			Buckets: []float64{
				0.0005, 0.001, 0.0025, 0.005, 0.01,
				0.025, 0.05, 0.1, 0.25, 0.5, 1.0,
			},
		},
	)

	statsIndexParseErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stats_index_parse_errors_total",
			Help: "Total parse and structural errors encountered",
		},
	)
)

// Collector manages the Prometheus metrics for one indexing run.
type Collector struct {
	startTime time.Time

	// Counters are cumulative; snapshots carry absolute totals, so deltas
	// are tracked here.
	mu                sync.Mutex
	prevLinesScanned  int64
	prevBytesScanned  int64
	prevRecordsLoaded int64
	prevParseErrors   int64
}

// CollectorConfig holds the static labels for the info metric.
type CollectorConfig struct {
	Version      string
	Path         string
	SequenceName string
	FileSize     int64
}

// NewCollector creates a collector registered on the default registry.
func NewCollector(cfg CollectorConfig) *Collector {
	return NewCollectorWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry creates a collector on a custom registry.
// Useful for testing.
func NewCollectorWithRegistry(cfg CollectorConfig, registry prometheus.Registerer) *Collector {
	c := &Collector{
		startTime: time.Now(),
	}

	registry.MustRegister(
		statsIndexInfo,
		statsIndexFileSizeBytes,
		statsIndexProgressPercent,
		statsIndexComplete,
		statsIndexElapsedSeconds,

		statsIndexLinesScannedTotal,
		statsIndexBytesScannedTotal,
		statsIndexScanBytesPerSec,
		statsIndexFramesIndexed,
		statsIndexEntries,
		statsIndexTypesRegistered,

		statsIndexRecordsLoadedTotal,
		statsIndexLoadDurationSeconds,
		statsIndexParseErrorsTotal,
	)

	statsIndexInfo.WithLabelValues(cfg.Version, cfg.Path, cfg.SequenceName).Set(1)
	statsIndexFileSizeBytes.Set(float64(cfg.FileSize))

	return c
}

// IndexStatsUpdate holds one snapshot of the indexing run. This is a subset
// of stats.Snapshot to avoid circular imports.
type IndexStatsUpdate struct {
	ProgressPercent float64
	Complete        bool

	LinesScanned int64
	BytesScanned int64
	ScanRate10s  float64

	FramesIndexed int
	IndexEntries  int
	TypeCount     int
	RecordsLoaded int64
	ParseErrors   int64
}

// RecordStats updates all metrics from a snapshot.
func (c *Collector) RecordStats(u *IndexStatsUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	statsIndexProgressPercent.Set(u.ProgressPercent)
	if u.Complete {
		statsIndexComplete.Set(1)
	} else {
		statsIndexComplete.Set(0)
	}
	statsIndexElapsedSeconds.Set(time.Since(c.startTime).Seconds())

	if d := u.LinesScanned - c.prevLinesScanned; d > 0 {
		statsIndexLinesScannedTotal.Add(float64(d))
	}
	c.prevLinesScanned = u.LinesScanned

	if d := u.BytesScanned - c.prevBytesScanned; d > 0 {
		statsIndexBytesScannedTotal.Add(float64(d))
	}
	c.prevBytesScanned = u.BytesScanned

	statsIndexScanBytesPerSec.Set(u.ScanRate10s)
	statsIndexFramesIndexed.Set(float64(u.FramesIndexed))
	statsIndexEntries.Set(float64(u.IndexEntries))
	statsIndexTypesRegistered.Set(float64(u.TypeCount))

	if d := u.RecordsLoaded - c.prevRecordsLoaded; d > 0 {
		statsIndexRecordsLoadedTotal.Add(float64(d))
	}
	c.prevRecordsLoaded = u.RecordsLoaded

	if d := u.ParseErrors - c.prevParseErrors; d > 0 {
		statsIndexParseErrorsTotal.Add(float64(d))
	}
	c.prevParseErrors = u.ParseErrors
}

// RecordLoadDuration records the duration of one cache load.
func (c *Collector) RecordLoadDuration(d time.Duration) {
	statsIndexLoadDurationSeconds.Observe(d.Seconds())
}
