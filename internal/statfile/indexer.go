package statfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// parseBufferSize is the chunk size for the background scan. It must stay
// well under 2^31 so every position inside one buffer window is addressable
// with 32-bit arithmetic.
const parseBufferSize = 1 << 20

// runIndexer is the background task body. It scans the file once, extracting
// the byte position where each (frame, type) group starts, so later loads
// can seek straight there instead of re-scanning the whole file.
func (f *File) runIndexer(ctx context.Context) {
	err := f.scanPositions(ctx)
	switch {
	case err == nil:
		// Publish the final frame bound and mark the scan done. The chart
		// cache is already consistent with the display cache (the loader
		// keeps them in lockstep), so aggregation can run immediately.
		f.setProgress(100)
		f.complete.Store(true)
		f.emit(Event{Kind: EventCompleted, Frame: f.MaxFrame(), Progress: 100})
		f.logger.Info("indexing_complete",
			"path", f.path,
			"frames", f.FrameCount(),
			"entries", f.index.Len(),
			"sort_order", f.SortOrder().String(),
		)

	case errors.Is(err, context.Canceled):
		// Cancelled: exit promptly, no final progress or frame bound.
		f.logger.Debug("indexing_cancelled", "path", f.path)

	default:
		// Keep the partial index: offsets found so far stay servable.
		f.setError(fmt.Sprintf("error while parsing meta data: %v", err))
		f.emit(Event{Kind: EventFailed, Progress: f.Progress()})
	}
}

// scanState is the per-scan transition state threaded through indexLine.
type scanState struct {
	lastFrame    int
	lastType     int
	seenAny      bool
	sortingFixed bool
}

// scanPositions streams the file through a fixed-size buffer, reassembling
// lines across chunk boundaries, and records the start offset of every new
// (frame, type) group. Cancellation is polled once per buffer fill.
func (f *File) scanPositions(ctx context.Context) error {
	// Open the file again: the foreground handle is seeked around by the
	// loader and must not be disturbed.
	in, err := os.Open(f.path)
	if err != nil {
		return err
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return err
	}
	total := fi.Size()

	var (
		buf       = make([]byte, parseBufferSize)
		line      = make([]byte, 0, 256)
		bufStart  int64
		lineStart int64
		st        = scanState{lastFrame: -1, lastType: -1}
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, rerr := io.ReadFull(in, buf)
		if n > 0 {
			f.scanned.AddBytes(int64(n))
		}

		for i := 0; i < n; i++ {
			if buf[i] != '\n' {
				line = append(line, buf[i])
				continue
			}
			if len(line) > 0 {
				if err := f.indexLine(string(line), lineStart, &st, total); err != nil {
					return err
				}
			}
			line = line[:0]
			lineStart = bufStart + int64(i) + 1
		}
		bufStart += int64(n)

		if rerr != nil {
			if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
				break
			}
			return rerr
		}
	}

	// A trailing line without a newline is parsed like any other: the
	// loader's frame-change stop condition relies on every data line being
	// indexed under its frame.
	if len(line) > 0 {
		if err := f.indexLine(string(line), lineStart, &st, total); err != nil {
			return err
		}
	}
	return nil
}

// indexLine applies the per-data-line transition logic:
//
//  1. first data line: record the offset, initialize lastFrame/lastType;
//  2. same frame, new type: first evidence of interleaving — latch the sort
//     order (only once for the whole file) and record the offset if new;
//  3. new frame: validate contiguity against the latched order, record the
//     offset, and refresh progress.
//
// Any later line repeating the current (frame, type) is a continuation of
// the same group and needs no index entry.
func (f *File) indexLine(line string, offset int64, st *scanState, total int64) error {
	fields := SplitLine(line)
	if fields[0] == "" || isComment(fields[0]) {
		return nil
	}
	f.linesScanned.Add(1)

	frame, err := fieldInt(fields, 0)
	if err != nil {
		return err
	}
	typeID, err := fieldInt(fields, 5)
	if err != nil {
		return err
	}

	switch {
	case !st.seenAny:
		f.index.Set(frame, typeID, offset)
		st.seenAny = true
		st.lastFrame, st.lastType = frame, typeID
		f.noteFrame(frame)

	case typeID != st.lastType && frame == st.lastFrame:
		// A type change inside one frame can only happen in an interleaved
		// file. Only the first such transition is allowed to decide the
		// order; afterwards the order is frozen.
		if !st.sortingFixed {
			f.sortOrder.Store(int32(SortInterleaved))
			st.sortingFixed = true
		}
		st.lastType = typeID
		if f.index.Set(frame, typeID, offset) {
			f.emit(Event{Kind: EventFrameIndexed, Frame: frame, Progress: f.Progress()})
		}

	case frame != st.lastFrame:
		if !st.sortingFixed {
			st.sortingFixed = true
		}

		if f.SortOrder() == SortInterleaved {
			// Interleaved files keep each frame's block contiguous, so a
			// frame we are entering must never have been indexed before.
			if f.index.HasFrame(frame) {
				return fmt.Errorf("%w: data for frame %d must be contiguous in an interleaved file", ErrStructural, frame)
			}
		} else {
			// Grouped files never revisit a type for a frame already seen.
			if f.index.Has(frame, typeID) {
				return fmt.Errorf("%w: data for type %d must be contiguous in a type-grouped file (frame %d revisited)", ErrStructural, typeID, frame)
			}
		}

		st.lastFrame, st.lastType = frame, typeID
		f.index.Set(frame, typeID, offset)
		f.noteFrame(frame)

		if total > 0 {
			f.setProgress(float64(offset) * 100 / float64(total))
		}
		f.emit(Event{Kind: EventProgress, Frame: frame, Progress: f.Progress()})
	}

	return nil
}

// noteFrame updates the running max frame number and notifies consumers that
// the frame gained its first index entry.
func (f *File) noteFrame(frame int) {
	for {
		cur := f.maxFrame.Load()
		if int64(frame) <= cur || f.maxFrame.CompareAndSwap(cur, int64(frame)) {
			break
		}
	}
	f.emit(Event{Kind: EventFrameIndexed, Frame: frame, Progress: f.Progress()})
}
