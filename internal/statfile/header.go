// Header parsing for statistics files.
//
// The header is the leading run of '%'-prefixed lines. Each line is a
// ';'-separated directive whose second field names it:
//
//	%;type;0;QP;map
//	%;mapColor;30;255;0;0;255
//	%;type;9;MVec;vector
//	%;vectorColor;0;0;255;255
//	%;scaleFactor;4
//	%;seq-specs;BQMall;0;832;480;60
//
// A "type" directive finalizes the previous in-progress type and begins a
// new one; the first non-comment line finalizes the last type and ends the
// header (the data region starts there).
package statfile

import (
	"bufio"
	"io"
)

// Header is the result of reading a statistics file header: the declared
// statistic types plus, if a seq-specs directive was present, the default
// sequence frame size and frame rate.
type Header struct {
	Types []StatType

	SequenceName string
	FrameSize    FrameSize
	FrameRate    float64
}

// ReadHeader consumes header lines from r until the first non-comment line
// or EOF. Directive rows that are too short for their positional layout
// abort parsing with ErrMalformedRow; the types finalized before the bad
// row are still returned.
func ReadHeader(r io.Reader) (*Header, error) {
	h := &Header{}
	br := bufio.NewReader(r)

	var (
		cur        StatType
		typeActive bool
	)
	finalize := func() {
		cur.SetInitialState()
		h.Types = append(h.Types, cur)
		cur = NewStatType()
		typeActive = false
	}

	for {
		line, err := br.ReadString('\n')
		if len(line) == 0 && err != nil {
			if err == io.EOF {
				break
			}
			return h, err
		}

		fields := SplitLine(line)
		if fields[0] == "" {
			if err == io.EOF {
				break
			}
			continue
		}

		if !isComment(fields[0]) {
			// First data line: the header is over. The line itself belongs
			// to the indexer, which scans the file from the start anyway.
			if typeActive {
				finalize()
			}
			return h, nil
		}

		directive, derr := field(fields, 1)
		if derr != nil {
			return h, derr
		}

		if directive == "type" && typeActive {
			finalize()
		}

		if perr := applyDirective(h, &cur, &typeActive, directive, fields); perr != nil {
			return h, perr
		}

		if err == io.EOF {
			break
		}
	}

	if typeActive {
		finalize()
	}
	return h, nil
}

// applyDirective mutates the in-progress type (or the header itself) for one
// recognized directive. Unrecognized directives are ignored.
func applyDirective(h *Header, cur *StatType, typeActive *bool, directive string, fields []string) error {
	switch directive {
	case "type":
		*cur = NewStatType()
		id, err := fieldInt(fields, 2)
		if err != nil {
			return err
		}
		name, err := field(fields, 3)
		if err != nil {
			return err
		}
		cur.ID = id
		cur.Name = name

		// The 5th column selects the shape: map/range carry scalar values,
		// vector/line carry vectors (line suppresses the arrowhead).
		if len(fields) >= 5 {
			switch fields[4] {
			case "map", "range":
				cur.HasValueData = true
				cur.RenderValueData = true
			case "vector", "line":
				cur.HasVectorData = true
				cur.RenderVectorData = true
				if fields[4] == "line" {
					cur.ArrowHead = ArrowHeadNone
				}
			}
		}
		*typeActive = true

	case "mapColor":
		id, err := fieldInt(fields, 2)
		if err != nil {
			return err
		}
		c, err := readRGBA(fields, 3)
		if err != nil {
			return err
		}
		if cur.ColMapper.ColorMap == nil {
			cur.ColMapper.ColorMap = make(map[int]RGBA)
		}
		cur.ColMapper.Kind = MappingMap
		cur.ColMapper.ColorMap[id] = c

	case "range":
		// min;max followed by channel-interleaved endpoint colors:
		// rMin;rMax;gMin;gMax;bMin;bMax;aMin;aMax.
		min, err := fieldInt(fields, 2)
		if err != nil {
			return err
		}
		max, err := fieldInt(fields, 3)
		if err != nil {
			return err
		}
		var minC, maxC RGBA
		chans := []struct {
			lo, hi *uint8
		}{
			{&minC.R, &maxC.R},
			{&minC.G, &maxC.G},
			{&minC.B, &maxC.B},
			{&minC.A, &maxC.A},
		}
		for i, ch := range chans {
			lo, err := fieldByte(fields, 4+2*i)
			if err != nil {
				return err
			}
			hi, err := fieldByte(fields, 5+2*i)
			if err != nil {
				return err
			}
			*ch.lo, *ch.hi = lo, hi
		}
		cur.ColMapper = ColorMapper{
			Kind:     MappingRange,
			Min:      min,
			Max:      max,
			MinColor: minC,
			MaxColor: maxC,
		}

	case "defaultRange":
		min, err := fieldInt(fields, 2)
		if err != nil {
			return err
		}
		max, err := fieldInt(fields, 3)
		if err != nil {
			return err
		}
		name, err := field(fields, 4)
		if err != nil {
			return err
		}
		cur.ColMapper = ColorMapper{
			Kind:      MappingPredefined,
			Min:       min,
			Max:       max,
			RangeName: name,
		}

	case "vectorColor":
		c, err := readRGBA(fields, 2)
		if err != nil {
			return err
		}
		cur.VectorColor = c

	case "gridColor":
		r, err := fieldByte(fields, 2)
		if err != nil {
			return err
		}
		g, err := fieldByte(fields, 3)
		if err != nil {
			return err
		}
		b, err := fieldByte(fields, 4)
		if err != nil {
			return err
		}
		cur.GridColor = RGBA{r, g, b, 255}

	case "scaleFactor":
		scale, err := fieldInt(fields, 2)
		if err != nil {
			return err
		}
		cur.VectorScale = scale

	case "scaleToBlockSize":
		v, err := field(fields, 2)
		if err != nil {
			return err
		}
		cur.ScaleToBlockSize = v == "1"

	case "seq-specs":
		name, err := field(fields, 2)
		if err != nil {
			return err
		}
		if _, err := field(fields, 3); err != nil { // layer id, unused
			return err
		}
		w, err := fieldInt(fields, 4)
		if err != nil {
			return err
		}
		ht, err := fieldInt(fields, 5)
		if err != nil {
			return err
		}
		h.SequenceName = name
		if w > 0 && ht > 0 {
			h.FrameSize = FrameSize{Width: w, Height: ht}
		}
		if rate, err := fieldFloat(fields, 6); err == nil && rate > 0 {
			h.FrameRate = rate
		} else if err != nil {
			return err
		}
	}

	return nil
}

// readRGBA reads four consecutive color channel columns starting at i.
func readRGBA(fields []string, i int) (RGBA, error) {
	var c RGBA
	for n, ch := range []*uint8{&c.R, &c.G, &c.B, &c.A} {
		v, err := fieldByte(fields, i+n)
		if err != nil {
			return RGBA{}, err
		}
		*ch = v
	}
	return c, nil
}
