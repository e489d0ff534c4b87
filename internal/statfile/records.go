package statfile

import "sync"

// Block is the rectangle a record applies to, in frame coordinates.
type Block struct {
	X, Y, W, H int
}

// ValueRecord is a scalar per-block statistic.
type ValueRecord struct {
	Block Block
	Value int
}

// VectorRecord is a 2-component per-block statistic (e.g. a motion vector).
type VectorRecord struct {
	Block  Block
	DX, DY int
}

// LineRecord is a line segment given by two endpoint offsets.
type LineRecord struct {
	Block          Block
	X1, Y1, X2, Y2 int
}

// TypeRecords holds the decoded records of one statistic type for the most
// recently loaded frame.
type TypeRecords struct {
	Values  []ValueRecord
	Vectors []VectorRecord
	Lines   []LineRecord
}

// Len returns the total number of decoded records.
func (r *TypeRecords) Len() int {
	return len(r.Values) + len(r.Vectors) + len(r.Lines)
}

// FrameCache is a per-type container of decoded records. Entries are
// replaced wholesale when a frame/type is (re)loaded; entries for types not
// touched by the latest load may be stale until explicitly cleared.
//
// Safe for concurrent use: the loader writes under the File's load lock,
// consumers read through Get which copies the pointer under the cache lock.
type FrameCache struct {
	mu     sync.RWMutex
	byType map[int]*TypeRecords
}

// NewFrameCache returns an empty cache.
func NewFrameCache() *FrameCache {
	return &FrameCache{byType: make(map[int]*TypeRecords)}
}

// Replace installs a fresh (possibly empty) record set for a type,
// discarding whatever was cached for it before.
func (c *FrameCache) Replace(typeID int, recs *TypeRecords) {
	c.mu.Lock()
	c.byType[typeID] = recs
	c.mu.Unlock()
}

// Get returns the cached records for a type, or nil if nothing was loaded.
// The returned value must be treated as read-only.
func (c *FrameCache) Get(typeID int) *TypeRecords {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byType[typeID]
}

// Clear drops all cached entries.
func (c *FrameCache) Clear() {
	c.mu.Lock()
	c.byType = make(map[int]*TypeRecords)
	c.mu.Unlock()
}
