// Package stats assembles point-in-time snapshots of an indexing run for
// the dashboard, the metrics collector, and the end-of-run summary.
package stats

import (
	"time"

	"github.com/vidstats/go-stats-index/internal/statfile"
	"github.com/vidstats/go-stats-index/internal/timeseries"
)

// TypeSummary describes one header-declared statistic type for display.
type TypeSummary struct {
	ID      int
	Name    string
	Shape   string
	Indexed bool
}

// Snapshot is one point-in-time view of the run.
type Snapshot struct {
	Path         string
	SizeBytes    int64
	SequenceName string
	FrameSize    statfile.FrameSize
	FrameRate    float64

	SortOrder    statfile.SortOrder
	Progress     float64
	Complete     bool
	Running      bool
	MaxFrame     int
	FrameCount   int
	IndexEntries int

	Types []TypeSummary

	LinesScanned  int64
	RecordsLoaded int64
	ScanRates     timeseries.Rates

	// BlockOutsideFrame is -1 unless some frame contained a block exceeding
	// the registered frame size.
	BlockOutsideFrame int
	LastError         string

	Elapsed time.Duration
}

// Aggregator produces Snapshots for one open file.
type Aggregator struct {
	file  *statfile.File
	start time.Time
}

// NewAggregator creates an aggregator; elapsed time counts from now.
func NewAggregator(file *statfile.File) *Aggregator {
	return &Aggregator{
		file:  file,
		start: time.Now(),
	}
}

// Snapshot assembles the current state.
func (a *Aggregator) Snapshot() Snapshot {
	info := a.file.Info()

	s := Snapshot{
		Path:         info.Path,
		SizeBytes:    info.SizeBytes,
		SequenceName: info.SequenceName,
		FrameSize:    info.FrameSize,
		FrameRate:    info.FrameRate,

		SortOrder:    info.SortOrder,
		Progress:     info.Progress,
		Complete:     info.Complete,
		Running:      info.Running,
		MaxFrame:     info.MaxFrame,
		FrameCount:   info.MaxFrame + 1,
		IndexEntries: info.IndexEntries,

		LinesScanned:  a.file.LinesScanned(),
		RecordsLoaded: a.file.RecordsLoaded(),
		ScanRates:     a.file.ScanRates(),

		BlockOutsideFrame: info.BlockOutsideFrame,
		LastError:         info.LastError,

		Elapsed: time.Since(a.start),
	}

	idx := a.file.Index()
	for _, t := range a.file.Types() {
		indexed := false
		for _, frame := range idx.Frames() {
			if idx.Has(frame, t.ID) {
				indexed = true
				break
			}
		}
		s.Types = append(s.Types, TypeSummary{
			ID:      t.ID,
			Name:    t.Name,
			Shape:   t.ShapeName(),
			Indexed: indexed,
		})
	}

	return s
}
