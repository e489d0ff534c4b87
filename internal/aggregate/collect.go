// Package aggregate reshapes cached per-frame statistics records into
// per-block-size histograms for chart and export consumers.
//
// Records bucket under a "WIDTHxHEIGHT" label. Scalar records count
// occurrences per value, vector records count occurrences per displacement
// point. Line-shaped records are not aggregated. Output labels are ordered
// ascending by the integer prefix of the label (4x4 before 16x16 before
// 64x64), not lexicographically.
package aggregate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vidstats/go-stats-index/internal/statfile"
)

// Kind distinguishes the two bucket payloads.
type Kind int

const (
	// KindValue buckets scalar records by exact value.
	KindValue Kind = iota

	// KindVector buckets vector records by exact displacement point.
	KindVector
)

func (k Kind) String() string {
	if k == KindVector {
		return "vector"
	}
	return "value"
}

// ValueCount is one scalar histogram entry.
type ValueCount struct {
	Value int
	Count int
}

// Point is a vector displacement.
type Point struct {
	X, Y int
}

// PointCount is one vector histogram entry.
type PointCount struct {
	Point Point
	Count int
}

// CollectedData is the aggregation for one block-size label. Exactly one of
// Values/Points is populated, per Kind.
type CollectedData struct {
	Label  string
	Kind   Kind
	Values []ValueCount
	Points []PointCount
}

// Source is the loader-facing surface the aggregator needs; *statfile.File
// implements it.
type Source interface {
	LoadFrameType(frame, typeID int) error
	ChartRecords(typeID int) *statfile.TypeRecords
	Types() []statfile.StatType
}

// Collect aggregates one frame. typeName selects a single statistic type by
// display name; the empty string aggregates every registered type.
func Collect(src Source, typeName string, frame int) ([]CollectedData, error) {
	values := map[string]map[int]int{}
	points := map[string]map[Point]int{}

	matched := false
	for _, t := range src.Types() {
		if typeName != "" && t.Name != typeName {
			continue
		}
		matched = true

		if err := src.LoadFrameType(frame, t.ID); err != nil {
			return nil, err
		}
		recs := src.ChartRecords(t.ID)
		if recs == nil {
			continue
		}

		if t.HasValueData {
			for _, v := range recs.Values {
				label := blockLabel(v.Block)
				if values[label] == nil {
					values[label] = map[int]int{}
				}
				values[label][v.Value]++
			}
		}
		if t.HasVectorData {
			for _, v := range recs.Vectors {
				label := blockLabel(v.Block)
				if points[label] == nil {
					points[label] = map[Point]int{}
				}
				points[label][Point{X: v.DX, Y: v.DY}]++
			}
		}

		if typeName != "" {
			break
		}
	}
	if typeName != "" && !matched {
		return nil, fmt.Errorf("unknown statistic type %q", typeName)
	}

	return assemble(values, points), nil
}

// CollectRange aggregates every frame in [first, last] and merges the
// per-frame results by label and by value/point key, summing counts. A
// degenerate single-frame range returns the single-frame aggregation
// directly.
func CollectRange(src Source, typeName string, first, last int) ([]CollectedData, error) {
	if first == last {
		return Collect(src, typeName, first)
	}
	if first > last {
		return nil, fmt.Errorf("invalid frame range %d..%d", first, last)
	}

	values := map[string]map[int]int{}
	points := map[string]map[Point]int{}

	for frame := first; frame <= last; frame++ {
		frameData, err := Collect(src, typeName, frame)
		if err != nil {
			return nil, err
		}
		for _, cd := range frameData {
			switch cd.Kind {
			case KindValue:
				if values[cd.Label] == nil {
					values[cd.Label] = map[int]int{}
				}
				for _, vc := range cd.Values {
					values[cd.Label][vc.Value] += vc.Count
				}
			case KindVector:
				if points[cd.Label] == nil {
					points[cd.Label] = map[Point]int{}
				}
				for _, pc := range cd.Points {
					points[cd.Label][pc.Point] += pc.Count
				}
			}
		}
	}

	return assemble(values, points), nil
}

// assemble converts the bucket maps into ordered CollectedData: value labels
// first, then vector labels, each ascending by label prefix; entries within
// a label ascending by value / by (x, y).
func assemble(values map[string]map[int]int, points map[string]map[Point]int) []CollectedData {
	out := make([]CollectedData, 0, len(values)+len(points))

	for _, label := range sortedLabels(keysOf(values)) {
		bucket := values[label]
		cd := CollectedData{Label: label, Kind: KindValue}
		for _, v := range sortedInts(bucket) {
			cd.Values = append(cd.Values, ValueCount{Value: v, Count: bucket[v]})
		}
		out = append(out, cd)
	}

	for _, label := range sortedLabels(keysOfPoints(points)) {
		bucket := points[label]
		cd := CollectedData{Label: label, Kind: KindVector}
		pts := make([]Point, 0, len(bucket))
		for p := range bucket {
			pts = append(pts, p)
		}
		sort.Slice(pts, func(i, j int) bool {
			if pts[i].X != pts[j].X {
				return pts[i].X < pts[j].X
			}
			return pts[i].Y < pts[j].Y
		})
		for _, p := range pts {
			cd.Points = append(cd.Points, PointCount{Point: p, Count: bucket[p]})
		}
		out = append(out, cd)
	}

	return out
}

// blockLabel formats a block's size as its bucket label.
func blockLabel(b statfile.Block) string {
	return fmt.Sprintf("%dx%d", b.W, b.H)
}

// labelPrefix parses the integer before the 'x' separator. Labels without a
// numeric prefix sort last.
func labelPrefix(label string) int {
	head, _, _ := strings.Cut(label, "x")
	n, err := strconv.Atoi(head)
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return n
}

// sortedLabels orders labels ascending by their integer prefix, breaking
// ties lexicographically for determinism.
func sortedLabels(labels []string) []string {
	sort.Slice(labels, func(i, j int) bool {
		pi, pj := labelPrefix(labels[i]), labelPrefix(labels[j])
		if pi != pj {
			return pi < pj
		}
		return labels[i] < labels[j]
	})
	return labels
}

func keysOf(m map[string]map[int]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func keysOfPoints(m map[string]map[Point]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func sortedInts(m map[int]int) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
