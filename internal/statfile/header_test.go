package statfile

import (
	"errors"
	"strings"
	"testing"
)

func TestReadHeader(t *testing.T) {
	input := strings.Join([]string{
		"%;syntax-version;v1.01",
		"%;seq-specs;BQMall;0;832;480;60",
		"%;type;9;MVec;vector",
		"%;vectorColor;0;0;255;255",
		"%;scaleFactor;4",
		"%;type;0;QP;map",
		"%;mapColor;30;255;0;0;255",
		"0;0;0;8;8;0;30",
	}, "\n") + "\n"

	h, err := ReadHeader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}

	if h.SequenceName != "BQMall" {
		t.Errorf("SequenceName = %q, want BQMall", h.SequenceName)
	}
	if h.FrameSize != (FrameSize{Width: 832, Height: 480}) {
		t.Errorf("FrameSize = %+v, want 832x480", h.FrameSize)
	}
	if h.FrameRate != 60 {
		t.Errorf("FrameRate = %v, want 60", h.FrameRate)
	}

	if len(h.Types) != 2 {
		t.Fatalf("len(Types) = %d, want 2", len(h.Types))
	}

	mv := h.Types[0]
	if mv.ID != 9 || mv.Name != "MVec" {
		t.Errorf("type 0 = %d %q, want 9 MVec", mv.ID, mv.Name)
	}
	if !mv.HasVectorData || mv.HasValueData {
		t.Errorf("MVec shape: vector=%v value=%v, want vector only", mv.HasVectorData, mv.HasValueData)
	}
	if mv.VectorScale != 4 {
		t.Errorf("MVec VectorScale = %d, want 4", mv.VectorScale)
	}
	if mv.VectorColor != (RGBA{0, 0, 255, 255}) {
		t.Errorf("MVec VectorColor = %+v", mv.VectorColor)
	}

	qp := h.Types[1]
	if qp.ID != 0 || qp.Name != "QP" {
		t.Errorf("type 1 = %d %q, want 0 QP", qp.ID, qp.Name)
	}
	if !qp.HasValueData {
		t.Error("QP should carry value data")
	}
	if qp.ColMapper.Kind != MappingMap {
		t.Errorf("QP mapper kind = %v, want MappingMap", qp.ColMapper.Kind)
	}
	if got := qp.ColMapper.ColorMap[30]; got != (RGBA{255, 0, 0, 255}) {
		t.Errorf("mapColor[30] = %+v", got)
	}
}

func TestReadHeaderEOFFinalizesLastType(t *testing.T) {
	input := "%;type;5;Depth;range\n%;range;0;10;0;255;0;255;0;255;0;255"

	h, err := ReadHeader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if len(h.Types) != 1 {
		t.Fatalf("len(Types) = %d, want 1", len(h.Types))
	}

	d := h.Types[0]
	if d.Name != "Depth" || !d.HasValueData {
		t.Errorf("type = %+v, want value-shaped Depth", d)
	}
	if d.ColMapper.Kind != MappingRange || d.ColMapper.Min != 0 || d.ColMapper.Max != 10 {
		t.Errorf("range mapper = %+v", d.ColMapper)
	}
	if d.ColMapper.MinColor != (RGBA{0, 0, 0, 0}) || d.ColMapper.MaxColor != (RGBA{255, 255, 255, 255}) {
		t.Errorf("range colors = %+v / %+v", d.ColMapper.MinColor, d.ColMapper.MaxColor)
	}
}

func TestReadHeaderLineShape(t *testing.T) {
	h, err := ReadHeader(strings.NewReader("%;type;2;GeoPart;line\n0;0;0;8;8;2;0;0;8;8\n"))
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if len(h.Types) != 1 {
		t.Fatalf("len(Types) = %d, want 1", len(h.Types))
	}
	lt := h.Types[0]
	if !lt.HasVectorData || lt.ArrowHead != ArrowHeadNone {
		t.Errorf("line type = vector=%v arrowhead=%v, want vector with no arrowhead", lt.HasVectorData, lt.ArrowHead)
	}
	if lt.ShapeName() != "line" {
		t.Errorf("ShapeName = %q, want line", lt.ShapeName())
	}
}

func TestReadHeaderMalformedDirective(t *testing.T) {
	// The second type directive is missing its name column. The first type
	// was finalized before the bad row and must survive.
	input := "%;type;0;QP;map\n%;type;5\n"

	h, err := ReadHeader(strings.NewReader(input))
	if !errors.Is(err, ErrMalformedRow) {
		t.Fatalf("error = %v, want ErrMalformedRow", err)
	}
	if len(h.Types) != 1 || h.Types[0].Name != "QP" {
		t.Errorf("Types = %+v, want the finalized QP type", h.Types)
	}
}

func TestReadHeaderSeqSpecsInvalidSizeIgnored(t *testing.T) {
	h, err := ReadHeader(strings.NewReader("%;seq-specs;clip;0;0;0;0\n"))
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if h.SequenceName != "clip" {
		t.Errorf("SequenceName = %q, want clip", h.SequenceName)
	}
	if h.FrameSize.Valid() {
		t.Errorf("FrameSize = %+v, want invalid", h.FrameSize)
	}
	if h.FrameRate != 0 {
		t.Errorf("FrameRate = %v, want 0", h.FrameRate)
	}
}
