package statfile

import (
	"sort"
	"sync"
)

// SortOrder is the physical record ordering of a statistics file.
//
// It is determined once, from the first disambiguating transition seen
// during the linear scan, and frozen thereafter. Later data that contradicts
// the latched order is a structural error, never a reason to re-evaluate.
type SortOrder int

const (
	// SortGrouped: all frames of one type are stored contiguously before
	// the next type. This is the default until interleaving is observed.
	SortGrouped SortOrder = iota

	// SortInterleaved: all types of one frame are stored contiguously
	// before the next frame.
	SortInterleaved
)

func (s SortOrder) String() string {
	switch s {
	case SortInterleaved:
		return "interleaved"
	default:
		return "grouped"
	}
}

// OffsetIndex maps (frame, type) to the byte offset of the first line of
// that group. Entries are append-only: the first-seen offset wins and is
// never overwritten. The index grows while the background indexer runs and
// is read concurrently by the loader; a missing key simply means "not yet
// indexed / no data".
type OffsetIndex struct {
	mu     sync.RWMutex
	frames map[int]map[int]int64
	count  int
}

// NewOffsetIndex returns an empty index.
func NewOffsetIndex() *OffsetIndex {
	return &OffsetIndex{frames: make(map[int]map[int]int64)}
}

// Set records the offset for (frame, typeID) if no entry exists yet.
// Returns true if the entry was added, false if one was already present.
func (x *OffsetIndex) Set(frame, typeID int, offset int64) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	types, ok := x.frames[frame]
	if !ok {
		types = make(map[int]int64)
		x.frames[frame] = types
	}
	if _, exists := types[typeID]; exists {
		return false
	}
	types[typeID] = offset
	x.count++
	return true
}

// Get returns the offset recorded for (frame, typeID).
func (x *OffsetIndex) Get(frame, typeID int) (int64, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	off, ok := x.frames[frame][typeID]
	return off, ok
}

// Has reports whether (frame, typeID) has an entry.
func (x *OffsetIndex) Has(frame, typeID int) bool {
	_, ok := x.Get(frame, typeID)
	return ok
}

// HasFrame reports whether any type of the frame has an entry.
func (x *OffsetIndex) HasFrame(frame int) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.frames[frame]) > 0
}

// MinOffset returns the smallest offset recorded for any type of the frame.
// For interleaved files this is the true start of the frame's contiguous
// block, which is where a load must begin scanning.
func (x *OffsetIndex) MinOffset(frame int) (int64, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	types := x.frames[frame]
	if len(types) == 0 {
		return 0, false
	}
	first := true
	var min int64
	for _, off := range types {
		if first || off < min {
			min = off
			first = false
		}
	}
	return min, true
}

// TypesForFrame returns the type IDs indexed for a frame, ascending.
func (x *OffsetIndex) TypesForFrame(frame int) []int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	ids := make([]int, 0, len(x.frames[frame]))
	for id := range x.frames[frame] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Frames returns all indexed frame numbers, ascending.
func (x *OffsetIndex) Frames() []int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	frames := make([]int, 0, len(x.frames))
	for f := range x.frames {
		frames = append(frames, f)
	}
	sort.Ints(frames)
	return frames
}

// FrameCount returns the number of frames with at least one entry.
func (x *OffsetIndex) FrameCount() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.frames)
}

// Len returns the total number of (frame, type) entries.
func (x *OffsetIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.count
}

// Snapshot returns a deep copy of the index, safe to read without locking.
func (x *OffsetIndex) Snapshot() map[int]map[int]int64 {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make(map[int]map[int]int64, len(x.frames))
	for frame, types := range x.frames {
		cp := make(map[int]int64, len(types))
		for id, off := range types {
			cp[id] = off
		}
		out[frame] = cp
	}
	return out
}

// Clear drops all entries. Called on reload before a fresh scan.
func (x *OffsetIndex) Clear() {
	x.mu.Lock()
	x.frames = make(map[int]map[int]int64)
	x.count = 0
	x.mu.Unlock()
}
