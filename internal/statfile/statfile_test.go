package statfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeStatsFile(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stats.csv")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func waitIndexed(t *testing.T, f *File) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for f.IndexingRunning() {
		if time.Now().After(deadline) {
			t.Fatal("indexing did not finish in time")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func openAndIndex(t *testing.T, path string) *File {
	t.Helper()
	f, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { f.Close() })

	if err := f.StartIndexing(context.Background()); err != nil {
		t.Fatalf("StartIndexing: %v", err)
	}
	waitIndexed(t, f)
	return f
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "nope.csv"), Options{}); err == nil {
		t.Fatal("Open succeeded for a missing file")
	}
}

func TestOpenBadHeaderKeepsFileUsable(t *testing.T) {
	path := writeStatsFile(t,
		"%;type;0;QP;map",
		"%;type;5", // missing name column
	)
	f, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	if f.LastError() == "" {
		t.Error("LastError empty after malformed header")
	}
	// The type finalized before the bad directive survives.
	if got := f.TypeByName("QP"); got == nil {
		t.Error("QP type not registered")
	}
}

func TestIndexGroupedFile(t *testing.T) {
	path := writeStatsFile(t,
		"%;type;0;QP;map",
		"%;type;1;MVec;vector",
		"0;0;0;8;8;0;10",
		"0;8;0;8;8;0;20",
		"1;0;0;8;8;0;30",
		"0;0;0;8;8;1;4;5",
		"1;0;0;8;8;1;6;7",
	)
	f := openAndIndex(t, path)

	if f.LastError() != "" {
		t.Fatalf("LastError = %q", f.LastError())
	}
	if !f.IsIndexingComplete() {
		t.Fatal("indexing not complete")
	}
	if f.SortOrder() != SortGrouped {
		t.Errorf("SortOrder = %v, want grouped", f.SortOrder())
	}
	if f.Progress() != 100 {
		t.Errorf("Progress = %v, want 100", f.Progress())
	}
	if f.MaxFrame() != 1 || f.FrameCount() != 2 {
		t.Errorf("MaxFrame=%d FrameCount=%d, want 1, 2", f.MaxFrame(), f.FrameCount())
	}

	idx := f.Index()
	for _, key := range []struct{ frame, typeID int }{
		{0, 0}, {1, 0}, {0, 1}, {1, 1},
	} {
		if !idx.Has(key.frame, key.typeID) {
			t.Errorf("index missing (%d,%d)", key.frame, key.typeID)
		}
	}

	// Entries point at the first line of each group, in file order.
	off00, _ := idx.Get(0, 0)
	off10, _ := idx.Get(1, 0)
	off01, _ := idx.Get(0, 1)
	if !(off00 < off10 && off10 < off01) {
		t.Errorf("offsets out of order: %d %d %d", off00, off10, off01)
	}
}

func TestIndexInterleavedFile(t *testing.T) {
	path := writeStatsFile(t,
		"%;type;0;QP;map",
		"%;type;1;MVec;vector",
		"0;0;0;8;8;0;10",
		"0;0;0;8;8;1;4;5",
		"0;8;0;8;8;0;20",
		"1;0;0;8;8;0;30",
		"1;0;0;8;8;1;6;7",
	)
	f := openAndIndex(t, path)

	if f.LastError() != "" {
		t.Fatalf("LastError = %q", f.LastError())
	}
	if f.SortOrder() != SortInterleaved {
		t.Errorf("SortOrder = %v, want interleaved", f.SortOrder())
	}

	// Loading one type of an interleaved frame starts at the frame's first
	// line and decodes every type in the block.
	if err := f.LoadFrameType(0, 1); err != nil {
		t.Fatalf("LoadFrameType: %v", err)
	}
	mv := f.Records(1)
	if mv == nil || len(mv.Vectors) != 1 {
		t.Fatalf("type 1 records = %+v, want 1 vector", mv)
	}
	if mv.Vectors[0].DX != 4 || mv.Vectors[0].DY != 5 {
		t.Errorf("vector = %+v, want (4,5)", mv.Vectors[0])
	}
	// Type 0 records of the same frame were decoded in the same pass,
	// including the one preceding type 1's first-seen offset.
	qp := f.Records(0)
	if qp == nil || len(qp.Values) != 2 {
		t.Fatalf("type 0 records = %+v, want 2 values", qp)
	}
	if qp.Values[0].Value != 10 || qp.Values[1].Value != 20 {
		t.Errorf("values = %+v, want 10 then 20", qp.Values)
	}
}

func TestLoadGroupedStopsAtTypeBoundary(t *testing.T) {
	path := writeStatsFile(t,
		"%;type;0;QP;map",
		"%;type;1;MVec;vector",
		"0;0;0;8;8;0;10",
		"0;8;0;8;8;0;20",
		"1;0;0;8;8;0;30",
		"0;0;0;8;8;1;4;5",
		"1;0;0;8;8;1;6;7",
	)
	f := openAndIndex(t, path)

	if err := f.LoadFrameType(0, 0); err != nil {
		t.Fatalf("LoadFrameType: %v", err)
	}
	qp := f.Records(0)
	if qp == nil || len(qp.Values) != 2 {
		t.Fatalf("records = %+v, want 2 values", qp)
	}
	if qp.Values[0].Block != (Block{X: 0, Y: 0, W: 8, H: 8}) {
		t.Errorf("block = %+v", qp.Values[0].Block)
	}

	// The chart cache carries identical content.
	chart := f.ChartRecords(0)
	if chart == nil || len(chart.Values) != 2 {
		t.Fatalf("chart records = %+v, want 2 values", chart)
	}

	// Frame 1 of the same type decodes only its own run.
	if err := f.LoadFrameType(1, 0); err != nil {
		t.Fatalf("LoadFrameType: %v", err)
	}
	qp = f.Records(0)
	if len(qp.Values) != 1 || qp.Values[0].Value != 30 {
		t.Errorf("frame 1 records = %+v, want single value 30", qp.Values)
	}
}

func TestLoadLineRecords(t *testing.T) {
	path := writeStatsFile(t,
		"%;type;2;GeoPart;line",
		"0;0;0;16;16;2;1;2;10;11",
	)
	f := openAndIndex(t, path)

	if err := f.LoadFrameType(0, 2); err != nil {
		t.Fatalf("LoadFrameType: %v", err)
	}
	recs := f.Records(2)
	if recs == nil || len(recs.Lines) != 1 {
		t.Fatalf("records = %+v, want 1 line", recs)
	}
	l := recs.Lines[0]
	if l.X1 != 1 || l.Y1 != 2 || l.X2 != 10 || l.Y2 != 11 {
		t.Errorf("line = %+v, want (1,2)-(10,11)", l)
	}
}

func TestLoadMissingEntryInstallsEmpty(t *testing.T) {
	path := writeStatsFile(t,
		"%;type;0;QP;map",
		"0;0;0;8;8;0;10",
	)
	f := openAndIndex(t, path)

	if err := f.LoadFrameType(99, 0); err != nil {
		t.Fatalf("LoadFrameType: %v", err)
	}
	recs := f.Records(0)
	if recs == nil || recs.Len() != 0 {
		t.Errorf("records = %+v, want installed empty set", recs)
	}
}

func TestStructuralErrorGroupedRevisit(t *testing.T) {
	path := writeStatsFile(t,
		"%;type;0;QP;map",
		"0;0;0;8;8;0;1",
		"1;0;0;8;8;0;2",
		"0;8;0;8;8;0;3",
	)
	f := openAndIndex(t, path)

	if f.IsIndexingComplete() {
		t.Error("indexing reported complete despite structural error")
	}
	if !strings.Contains(f.LastError(), "contiguous") {
		t.Errorf("LastError = %q, want contiguity violation", f.LastError())
	}

	// The partial index stays servable.
	if err := f.LoadFrameType(0, 0); err != nil {
		t.Fatalf("LoadFrameType after failed scan: %v", err)
	}
	recs := f.Records(0)
	if recs == nil || len(recs.Values) != 1 || recs.Values[0].Value != 1 {
		t.Errorf("records = %+v, want single value 1", recs)
	}
}

func TestStructuralErrorInterleavedRevisit(t *testing.T) {
	path := writeStatsFile(t,
		"%;type;0;QP;map",
		"%;type;1;MVec;vector",
		"0;0;0;8;8;0;1",
		"0;0;0;8;8;1;2;2",
		"1;0;0;8;8;0;3",
		"0;8;0;8;8;0;4",
	)
	f := openAndIndex(t, path)

	if f.SortOrder() != SortInterleaved {
		t.Errorf("SortOrder = %v, want interleaved", f.SortOrder())
	}
	if !strings.Contains(f.LastError(), "contiguous") {
		t.Errorf("LastError = %q, want contiguity violation", f.LastError())
	}
}

func TestMalformedDataLineFailsScan(t *testing.T) {
	path := writeStatsFile(t,
		"%;type;0;QP;map",
		"0;0;0;8;8;0;1",
		"0;0;0",
	)
	f := openAndIndex(t, path)

	if f.IsIndexingComplete() {
		t.Error("indexing reported complete despite malformed line")
	}
	if !strings.Contains(f.LastError(), "error while parsing meta data") {
		t.Errorf("LastError = %q", f.LastError())
	}
}

func TestMalformedRecordFailsLoad(t *testing.T) {
	// Six columns: enough for the indexer (frame and type), too short for
	// the loader's value column.
	path := writeStatsFile(t,
		"%;type;0;QP;map",
		"0;0;0;8;8;0",
	)
	f := openAndIndex(t, path)
	if f.LastError() != "" {
		t.Fatalf("scan error: %q", f.LastError())
	}

	if err := f.LoadFrameType(0, 0); err == nil {
		t.Fatal("LoadFrameType succeeded on malformed record")
	}
	if f.LastError() == "" {
		t.Error("LastError not set by failed load")
	}
}

func TestBlockOutsideFrameLatchedOnce(t *testing.T) {
	path := writeStatsFile(t,
		"%;seq-specs;clip;0;16;16;0",
		"%;type;0;QP;map",
		"0;0;0;16;16;0;1",
		"1;8;8;16;16;0;2",
		"2;8;8;16;16;0;3",
	)
	f := openAndIndex(t, path)

	if f.BlockOutsideFrame() != -1 {
		t.Fatalf("latched before any load: %d", f.BlockOutsideFrame())
	}

	if err := f.LoadFrameType(0, 0); err != nil {
		t.Fatal(err)
	}
	if f.BlockOutsideFrame() != -1 {
		t.Errorf("in-bounds frame latched: %d", f.BlockOutsideFrame())
	}

	if err := f.LoadFrameType(1, 0); err != nil {
		t.Fatal(err)
	}
	if f.BlockOutsideFrame() != 1 {
		t.Errorf("BlockOutsideFrame = %d, want 1", f.BlockOutsideFrame())
	}

	// Later offenders do not move the latch.
	if err := f.LoadFrameType(2, 0); err != nil {
		t.Fatal(err)
	}
	if f.BlockOutsideFrame() != 1 {
		t.Errorf("latch moved to %d", f.BlockOutsideFrame())
	}
}

func TestCancelledScanLeavesNoError(t *testing.T) {
	path := writeStatsFile(t,
		"%;type;0;QP;map",
		"0;0;0;8;8;0;1",
		"1;0;0;8;8;0;2",
	)
	f, err := Open(path, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := f.StartIndexing(ctx); err != nil {
		t.Fatal(err)
	}
	waitIndexed(t, f)

	if f.IsIndexingComplete() {
		t.Error("cancelled scan reported complete")
	}
	if f.LastError() != "" {
		t.Errorf("cancelled scan stored error: %q", f.LastError())
	}

	// A fresh scan finishes the job.
	if err := f.StartIndexing(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitIndexed(t, f)
	if !f.IsIndexingComplete() {
		t.Error("restarted scan did not complete")
	}
	if !f.Index().Has(1, 0) {
		t.Error("index incomplete after restart")
	}
}

func TestStartIndexingTwiceFails(t *testing.T) {
	path := writeStatsFile(t,
		"%;type;0;QP;map",
		"0;0;0;8;8;0;1",
	)
	f, err := Open(path, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := f.StartIndexing(ctx); err != nil {
		t.Fatal(err)
	}
	// Either the scan is still running (second start must fail) or it
	// already finished (second start is legal); only assert the first case.
	if f.IndexingRunning() {
		if err := f.StartIndexing(ctx); err == nil {
			t.Error("second StartIndexing succeeded while running")
		}
	}
	waitIndexed(t, f)
}

func TestCompletionEvent(t *testing.T) {
	path := writeStatsFile(t,
		"%;type;0;QP;map",
		"0;0;0;8;8;0;1",
		"1;0;0;8;8;0;2",
	)
	f := openAndIndex(t, path)

	var sawCompleted bool
	for {
		select {
		case ev := <-f.Events():
			if ev.Kind == EventCompleted {
				if ev.Progress != 100 {
					t.Errorf("completion progress = %v, want 100", ev.Progress)
				}
				sawCompleted = true
			}
		default:
			if !sawCompleted {
				t.Error("no EventCompleted delivered")
			}
			return
		}
	}
}

func TestReindexIsDeterministic(t *testing.T) {
	lines := []string{
		"%;type;0;QP;map",
		"%;type;1;MVec;vector",
		"0;0;0;8;8;0;10",
		"0;8;0;8;8;0;20",
		"1;0;0;8;8;0;30",
		"0;0;0;8;8;1;4;5",
		"1;0;0;8;8;1;6;7",
	}
	f1 := openAndIndex(t, writeStatsFile(t, lines...))
	f2 := openAndIndex(t, writeStatsFile(t, lines...))

	s1, s2 := f1.Index().Snapshot(), f2.Index().Snapshot()
	if len(s1) != len(s2) {
		t.Fatalf("frame counts differ: %d vs %d", len(s1), len(s2))
	}
	for frame, types := range s1 {
		for id, off := range types {
			if s2[frame][id] != off {
				t.Errorf("offset (%d,%d): %d vs %d", frame, id, off, s2[frame][id])
			}
		}
	}
	if f1.SortOrder() != f2.SortOrder() {
		t.Errorf("sort orders differ: %v vs %v", f1.SortOrder(), f2.SortOrder())
	}
}

func TestReload(t *testing.T) {
	path := writeStatsFile(t,
		"%;type;0;QP;map",
		"0;0;0;8;8;0;1",
	)
	f := openAndIndex(t, path)
	if err := f.LoadFrameType(0, 0); err != nil {
		t.Fatal(err)
	}
	if f.RecordsLoaded() == 0 {
		t.Fatal("no records loaded before reload")
	}

	next := strings.Join([]string{
		"%;type;3;Depth;map",
		"0;0;0;8;8;3;7",
		"1;0;0;8;8;3;8",
		"2;0;0;8;8;3;9",
	}, "\n") + "\n"
	if err := os.WriteFile(path, []byte(next), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := f.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	waitIndexed(t, f)

	if f.TypeByName("QP") != nil {
		t.Error("stale type survived reload")
	}
	if f.TypeByName("Depth") == nil {
		t.Error("new type not registered after reload")
	}
	if f.MaxFrame() != 2 {
		t.Errorf("MaxFrame = %d, want 2", f.MaxFrame())
	}
	if f.RecordsLoaded() != 0 {
		t.Errorf("RecordsLoaded = %d, want 0 after reload", f.RecordsLoaded())
	}
	if f.Records(0) != nil {
		t.Error("stale cache entry survived reload")
	}
}

func TestCloseStopsLoads(t *testing.T) {
	path := writeStatsFile(t,
		"%;type;0;QP;map",
		"0;0;0;8;8;0;1",
	)
	f := openAndIndex(t, path)

	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := f.LoadFrameType(0, 0); err == nil {
		t.Error("LoadFrameType succeeded after Close")
	}
}
