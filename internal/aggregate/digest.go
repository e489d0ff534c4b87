package aggregate

import (
	"github.com/influxdata/tdigest"
)

// ValueDigest wraps a t-digest over scalar histogram entries so callers can
// report percentiles of a statistic's value distribution without retaining
// every sample.
type ValueDigest struct {
	td    *tdigest.TDigest
	count int64
}

// NewValueDigest returns an empty digest at the standard compression.
func NewValueDigest() *ValueDigest {
	return &ValueDigest{
		td: tdigest.NewWithCompression(100),
	}
}

// AddCollected feeds every scalar bucket of the collected data into the
// digest, weighted by its count. Vector buckets carry no scalar magnitude
// and are skipped.
func (d *ValueDigest) AddCollected(data []CollectedData) {
	for _, cd := range data {
		if cd.Kind != KindValue {
			continue
		}
		for _, vc := range cd.Values {
			if vc.Count <= 0 {
				continue
			}
			d.td.Add(float64(vc.Value), float64(vc.Count))
			d.count += int64(vc.Count)
		}
	}
}

// Quantile returns the estimated value at q in [0, 1]. NaN when empty.
func (d *ValueDigest) Quantile(q float64) float64 {
	return d.td.Quantile(q)
}

// Count returns the total weight added so far.
func (d *ValueDigest) Count() int64 {
	return d.count
}
