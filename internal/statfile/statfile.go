// Package statfile implements the statistics file indexing and random-access
// cache engine.
//
// A statistics file is a ';'-delimited text file: a '%'-prefixed header
// declaring statistic types, followed by one line per block:
//
//	frame;posX;posY;width;height;typeID;value0[;value1[;value2;value3]]
//
// Open reads the header synchronously. StartIndexing scans the whole file
// once in the background, building a byte-offset index keyed by
// (frame, type) and detecting the physical record ordering. LoadFrameType
// then serves random-access loads by seeking straight to an indexed offset
// and decoding only the record run that belongs to the requested frame.
package statfile

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"
	"sync/atomic"

	"github.com/vidstats/go-stats-index/internal/timeseries"
)

// EventKind classifies indexer notifications.
type EventKind int

const (
	// EventProgress reports a new fractional progress value.
	EventProgress EventKind = iota

	// EventFrameIndexed reports that a frame gained its first index entry.
	// A display layer showing that frame may want to redraw.
	EventFrameIndexed

	// EventCompleted reports that the scan finished the whole file.
	EventCompleted

	// EventFailed reports that the scan stopped on an error. The partial
	// index built so far remains valid and loadable.
	EventFailed
)

// Event is one indexer notification. Events are delivered on a bounded
// channel with non-blocking sends: a slow consumer loses intermediate
// events, never blocks the scan.
type Event struct {
	Kind     EventKind
	Frame    int
	Progress float64
}

// Options configures Open.
type Options struct {
	// Logger for structured diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// EventBuffer is the capacity of the Events channel. Defaults to 64.
	EventBuffer int
}

// File is one open statistics file: its header-declared types, the offset
// index being built in the background, and the per-type record caches.
//
// Concurrency model: the indexer owns its separately opened read handle and
// only appends to the index. LoadFrameType serializes all loads behind one
// mutex per File. Close cancels the indexer and waits for it to stop before
// releasing shared state.
type File struct {
	path   string
	logger *slog.Logger

	// Foreground handle, used by the header reader and the loader.
	file *os.File
	size int64

	types     *TypeRegistry
	seqName   string
	frameSize FrameSize
	frameRate float64

	index     *OffsetIndex
	sortOrder atomic.Int32 // SortOrder
	maxFrame  atomic.Int64
	progress  atomic.Uint64 // math.Float64bits
	complete  atomic.Bool

	linesScanned  atomic.Int64
	recordsLoaded atomic.Int64

	// blockOutsideFrame is the first frame whose block exceeded the
	// registered frame size, or -1. Latched once, never updated again.
	blockOutsideFrame atomic.Int64

	loadMu     sync.Mutex
	cache      *FrameCache
	chartCache *FrameCache

	errMu   sync.Mutex
	lastErr string

	events  chan Event
	scanned *timeseries.ScanTracker

	taskMu  sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running atomic.Bool
}

// Open opens a statistics file and reads its header synchronously. The
// returned File has its types registered but no index yet; call
// StartIndexing to build it.
func Open(path string, opts Options) (*File, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	eventBuffer := opts.EventBuffer
	if eventBuffer <= 0 {
		eventBuffer = 64
	}

	f := &File{
		path:       path,
		logger:     logger,
		types:      NewTypeRegistry(),
		index:      NewOffsetIndex(),
		cache:      NewFrameCache(),
		chartCache: NewFrameCache(),
		events:     make(chan Event, eventBuffer),
		scanned:    timeseries.NewScanTracker(),
	}
	f.blockOutsideFrame.Store(-1)

	if err := f.open(); err != nil {
		return nil, err
	}
	if err := f.readHeader(); err != nil {
		// Header failures are reportable state, not a failed Open: the file
		// info panel shows the message, whatever types parsed stay usable.
		f.setError(fmt.Sprintf("error while parsing meta data: %v", err))
	}
	return f, nil
}

// open (re)opens the foreground handle and records the file size.
func (f *File) open() error {
	in, err := os.Open(f.path)
	if err != nil {
		return err
	}
	fi, err := in.Stat()
	if err != nil {
		in.Close()
		return err
	}
	if f.file != nil {
		f.file.Close()
	}
	f.file = in
	f.size = fi.Size()
	return nil
}

// readHeader clears previously registered types and parses the header region
// through the foreground handle.
func (f *File) readHeader() error {
	f.types.Clear()
	if _, err := f.file.Seek(0, 0); err != nil {
		return err
	}

	h, err := ReadHeader(f.file)
	for _, t := range h.Types {
		f.types.Add(t)
	}
	f.seqName = h.SequenceName
	if h.FrameSize.Valid() {
		f.frameSize = h.FrameSize
	}
	if h.FrameRate > 0 {
		f.frameRate = h.FrameRate
	}

	f.logger.Debug("header_parsed",
		"path", f.path,
		"types", f.types.Len(),
		"frame_size", fmt.Sprintf("%dx%d", f.frameSize.Width, f.frameSize.Height),
		"frame_rate", f.frameRate,
	)
	return err
}

// StartIndexing launches the background scan. Returns an error if a scan is
// already running. The scan stops when it finishes the file, hits an error,
// or ctx is cancelled.
func (f *File) StartIndexing(ctx context.Context) error {
	f.taskMu.Lock()
	defer f.taskMu.Unlock()

	if f.running.Load() {
		return fmt.Errorf("indexing already running for %s", f.path)
	}

	scanCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.done = make(chan struct{})
	f.running.Store(true)

	go func() {
		defer close(f.done)
		defer f.running.Store(false)
		f.runIndexer(scanCtx)
	}()
	return nil
}

// StopIndexing cancels a running scan and waits for it to stop.
func (f *File) StopIndexing() {
	f.taskMu.Lock()
	cancel, done := f.cancel, f.done
	f.taskMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Close stops any running scan, waits for it, and closes the file handles.
// No background work outlives the File.
func (f *File) Close() error {
	f.StopIndexing()

	f.loadMu.Lock()
	defer f.loadMu.Unlock()
	if f.file != nil {
		err := f.file.Close()
		f.file = nil
		return err
	}
	return nil
}

// Reload discards all derived state (types, index, caches, errors), re-reads
// the header, and restarts indexing. Used when the file on disk changed.
func (f *File) Reload(ctx context.Context) error {
	f.StopIndexing()

	f.loadMu.Lock()
	f.index.Clear()
	f.cache.Clear()
	f.chartCache.Clear()
	f.sortOrder.Store(int32(SortGrouped))
	f.maxFrame.Store(0)
	f.progress.Store(0)
	f.complete.Store(false)
	f.linesScanned.Store(0)
	f.recordsLoaded.Store(0)
	f.blockOutsideFrame.Store(-1)
	f.clearError()
	f.scanned.Reset()

	err := f.open()
	if err == nil {
		if herr := f.readHeader(); herr != nil {
			f.setError(fmt.Sprintf("error while parsing meta data: %v", herr))
		}
	}
	f.loadMu.Unlock()
	if err != nil {
		f.setError(fmt.Sprintf("error reopening file: %v", err))
		return err
	}

	return f.StartIndexing(ctx)
}

// Events returns the indexer notification channel.
func (f *File) Events() <-chan Event {
	return f.events
}

// Path returns the file path.
func (f *File) Path() string { return f.path }

// Size returns the file size in bytes at open time.
func (f *File) Size() int64 { return f.size }

// Types returns copies of the registered statistic types.
func (f *File) Types() []StatType { return f.types.Types() }

// TypeByID returns the registered type, or nil.
func (f *File) TypeByID(id int) *StatType { return f.types.ByID(id) }

// TypeByName returns the registered type with the display name, or nil.
func (f *File) TypeByName(name string) *StatType { return f.types.ByName(name) }

// SequenceName returns the name from the seq-specs directive, if any.
func (f *File) SequenceName() string { return f.seqName }

// FrameSize returns the registered sequence frame size (zero if absent).
func (f *File) FrameSize() FrameSize { return f.frameSize }

// FrameRate returns the header-declared frame rate (zero if absent).
func (f *File) FrameRate() float64 { return f.frameRate }

// SortOrder returns the detected physical record ordering. Until the scan
// observes a disambiguating transition this is SortGrouped.
func (f *File) SortOrder() SortOrder {
	return SortOrder(f.sortOrder.Load())
}

// MaxFrame returns the highest frame number seen by the scan so far.
func (f *File) MaxFrame() int {
	return int(f.maxFrame.Load())
}

// FrameCount returns the frame-count bound derived from the running max
// frame number (max + 1).
func (f *File) FrameCount() int {
	return f.MaxFrame() + 1
}

// Index exposes the offset index for read access.
func (f *File) Index() *OffsetIndex { return f.index }

// Records returns the display cache entry for a type (nil if not loaded).
func (f *File) Records(typeID int) *TypeRecords {
	return f.cache.Get(typeID)
}

// ChartRecords returns the aggregation cache entry for a type. The loader
// keeps it in lockstep with the display cache so chart/export consumers do
// not contend with redraw consumers.
func (f *File) ChartRecords(typeID int) *TypeRecords {
	return f.chartCache.Get(typeID)
}

// IsIndexingComplete reports whether the scan finished the whole file.
func (f *File) IsIndexingComplete() bool {
	return f.complete.Load()
}

// IndexingRunning reports whether the background scan is active.
func (f *File) IndexingRunning() bool {
	return f.running.Load()
}

// Progress returns the scan progress in percent (0..100). Advisory.
func (f *File) Progress() float64 {
	return math.Float64frombits(f.progress.Load())
}

func (f *File) setProgress(pct float64) {
	f.progress.Store(math.Float64bits(pct))
}

// LinesScanned returns the number of lines the indexer has consumed.
func (f *File) LinesScanned() int64 { return f.linesScanned.Load() }

// RecordsLoaded returns the total records decoded by LoadFrameType calls.
func (f *File) RecordsLoaded() int64 { return f.recordsLoaded.Load() }

// ScanRates returns windowed scan throughput for the background indexer.
func (f *File) ScanRates() timeseries.Rates {
	return f.scanned.Rates()
}

// SampleScanRate snapshots the scan byte counter into the rate tracker.
// Call about once per second while indexing runs.
func (f *File) SampleScanRate() {
	f.scanned.RecordSample()
}

// BlockOutsideFrame returns the first frame containing a block outside the
// registered frame size, or -1 if none was seen.
func (f *File) BlockOutsideFrame() int {
	return int(f.blockOutsideFrame.Load())
}

// LastError returns the stored parsing error message, or "".
func (f *File) LastError() string {
	f.errMu.Lock()
	defer f.errMu.Unlock()
	return f.lastErr
}

func (f *File) setError(msg string) {
	f.errMu.Lock()
	f.lastErr = msg
	f.errMu.Unlock()
	f.logger.Error("parse_error", "path", f.path, "error", msg)
}

func (f *File) clearError() {
	f.errMu.Lock()
	f.lastErr = ""
	f.errMu.Unlock()
}

// emit delivers an event without ever blocking the indexer.
func (f *File) emit(ev Event) {
	select {
	case f.events <- ev:
	default:
		// Slow consumer: drop. Progress is advisory and the next event
		// carries fresher state anyway.
	}
}

// Info returns a point-in-time summary for file-info panels and logs.
type Info struct {
	Path         string
	SizeBytes    int64
	SequenceName string
	FrameSize    FrameSize
	FrameRate    float64
	SortOrder    SortOrder
	Progress     float64
	Complete     bool
	Running      bool
	MaxFrame     int
	TypeCount    int
	IndexEntries int
	// BlockOutsideFrame is -1 unless a block exceeded the frame size.
	BlockOutsideFrame int
	LastError         string
}

// Info snapshots the file state.
func (f *File) Info() Info {
	return Info{
		Path:              f.path,
		SizeBytes:         f.size,
		SequenceName:      f.seqName,
		FrameSize:         f.frameSize,
		FrameRate:         f.frameRate,
		SortOrder:         f.SortOrder(),
		Progress:          f.Progress(),
		Complete:          f.complete.Load(),
		Running:           f.running.Load(),
		MaxFrame:          f.MaxFrame(),
		TypeCount:         f.types.Len(),
		IndexEntries:      f.index.Len(),
		BlockOutsideFrame: f.BlockOutsideFrame(),
		LastError:         f.LastError(),
	}
}
