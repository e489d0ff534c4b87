package statfile

import (
	"bufio"
	"fmt"
	"io"
)

// LoadFrameType loads the records of one (frame, type) pair into the display
// cache and, in lockstep, the chart cache.
//
// All loads for this File serialize on one mutex: redraw and export paths
// both call in here and must not interleave their seeks on the shared
// foreground handle.
//
// A missing index entry is not an error: an empty record set is installed,
// which to the caller is indistinguishable from "no data for this frame" —
// intentionally so, because the index may still be under construction.
func (f *File) LoadFrameType(frame, typeID int) error {
	f.loadMu.Lock()
	defer f.loadMu.Unlock()

	if f.file == nil {
		return fmt.Errorf("statistics file %s is closed", f.path)
	}

	if !f.index.Has(frame, typeID) {
		f.cache.Replace(typeID, &TypeRecords{})
		f.chartCache.Replace(typeID, &TypeRecords{})
		return nil
	}

	start, _ := f.index.Get(frame, typeID)
	if f.SortOrder() == SortInterleaved {
		// Records of different types are physically interleaved within the
		// frame's contiguous block. Start at the block's true beginning or
		// the scan would miss records of the requested type that precede
		// this type's first-seen offset.
		start, _ = f.index.MinOffset(frame)
	}

	if _, err := f.file.Seek(start, io.SeekStart); err != nil {
		f.setError(fmt.Sprintf("error while loading frame %d: %v", frame, err))
		return err
	}

	if err := f.decodeRun(bufio.NewReader(f.file), frame, typeID); err != nil {
		f.setError(fmt.Sprintf("error while parsing: %v", err))
		return err
	}
	return nil
}

// decodeRun reads and decodes data lines until the run belonging to the
// requested frame (and, for grouped files, type) ends.
func (f *File) decodeRun(r *bufio.Reader, frame, typeID int) error {
	grouped := f.SortOrder() == SortGrouped

	// Each type touched by this load gets a fresh record set exactly once,
	// so a reload rebuilds rather than merges.
	fresh := map[int]*TypeRecords{}
	recordsFor := func(id int) *TypeRecords {
		recs, ok := fresh[id]
		if !ok {
			recs = &TypeRecords{}
			fresh[id] = recs
			f.cache.Replace(id, recs)
		}
		return recs
	}
	recordsFor(typeID)

	for {
		line, rerr := r.ReadString('\n')
		if line == "" && rerr != nil {
			break
		}

		fields := SplitLine(line)
		if fields[0] == "" || isComment(fields[0]) {
			if rerr != nil {
				break
			}
			continue
		}

		lineFrame, err := fieldInt(fields, 0)
		if err != nil {
			return err
		}
		lineType, err := fieldInt(fields, 5)
		if err != nil {
			return err
		}

		// A new frame always ends the run. A new type ends it only for
		// grouped files; interleaved files mix types within the frame block
		// and the scan must keep going.
		if lineFrame != frame {
			break
		}
		if grouped && lineType != typeID {
			break
		}

		if err := f.decodeRecord(recordsFor(lineType), frame, lineType, fields); err != nil {
			return err
		}

		if rerr != nil {
			break
		}
	}

	// Publish identical content to the chart cache so export consumers
	// never block on, or observe half of, a display-path load.
	for id, recs := range fresh {
		cp := *recs
		f.chartCache.Replace(id, &cp)
	}
	return nil
}

// decodeRecord classifies one data line by its payload columns and appends
// the decoded record: 1 value column is a scalar, 2 a vector, 4 a line
// segment (which overrides the vector classification).
func (f *File) decodeRecord(recs *TypeRecords, frame, typeID int, fields []string) error {
	v0, err := fieldInt(fields, 6)
	if err != nil {
		return err
	}

	var (
		v1, v2, v3 int
		vectorData bool
		lineData   bool
	)
	if len(fields) > 7 {
		if v1, err = fieldInt(fields, 7); err != nil {
			return err
		}
		vectorData = true
	}
	if len(fields) > 8 {
		if v2, err = fieldInt(fields, 8); err != nil {
			return err
		}
		if v3, err = fieldInt(fields, 9); err != nil {
			return err
		}
		lineData = true
		vectorData = false
	}

	posX, err := fieldInt(fields, 1)
	if err != nil {
		return err
	}
	posY, err := fieldInt(fields, 2)
	if err != nil {
		return err
	}
	width, err := fieldInt(fields, 3)
	if err != nil {
		return err
	}
	height, err := fieldInt(fields, 4)
	if err != nil {
		return err
	}
	block := Block{X: posX, Y: posY, W: width, H: height}

	// Warn once, for the first offending frame only, if a block exceeds
	// the registered frame size.
	if f.frameSize.Valid() && f.blockOutsideFrame.Load() == -1 &&
		(posX+width > f.frameSize.Width || posY+height > f.frameSize.Height) {
		f.blockOutsideFrame.CompareAndSwap(-1, int64(frame))
	}

	// Vector/line classification additionally requires the registered type
	// to carry vector data; anything else decodes as a scalar value.
	hasVector := true
	if st := f.types.ByID(typeID); st != nil {
		hasVector = st.HasVectorData
	}

	switch {
	case vectorData && hasVector:
		recs.Vectors = append(recs.Vectors, VectorRecord{Block: block, DX: v0, DY: v1})
	case lineData && hasVector:
		recs.Lines = append(recs.Lines, LineRecord{Block: block, X1: v0, Y1: v1, X2: v2, Y2: v3})
	default:
		recs.Values = append(recs.Values, ValueRecord{Block: block, Value: v0})
	}
	f.recordsLoaded.Add(1)
	return nil
}
