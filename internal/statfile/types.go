package statfile

// RGBA is a color with an alpha channel, as declared by header directives.
type RGBA struct {
	R, G, B, A uint8
}

// ColorMappingKind selects how a statistic's values map to colors.
type ColorMappingKind int

const (
	// MappingNone means no color rule was declared.
	MappingNone ColorMappingKind = iota

	// MappingMap is a discrete id -> color table (from mapColor lines).
	MappingMap

	// MappingRange is a continuous gradient between two explicit colors.
	MappingRange

	// MappingPredefined is a named palette applied over a numeric range.
	MappingPredefined
)

// ColorMapper holds the color rule for one statistic type.
type ColorMapper struct {
	Kind ColorMappingKind

	// Discrete table (MappingMap).
	ColorMap map[int]RGBA

	// Numeric range (MappingRange and MappingPredefined).
	Min, Max int

	// Gradient endpoints (MappingRange).
	MinColor, MaxColor RGBA

	// Palette name (MappingPredefined).
	RangeName string
}

// ArrowHead selects the vector arrowhead rendering style.
type ArrowHead int

const (
	ArrowHeadArrow ArrowHead = iota
	ArrowHeadCircle
	ArrowHeadNone
)

// FrameSize is the sequence frame size declared by a seq-specs directive.
type FrameSize struct {
	Width, Height int
}

// Valid reports whether both dimensions are positive.
func (s FrameSize) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// StatType describes one category of per-block statistic, built from the
// file header. After the header finishes, SetInitialState freezes a snapshot
// of the defaults so interactive edits made by a display layer can be reset.
type StatType struct {
	ID   int
	Name string

	// Shape of the data: scalar block values and/or vectors (a "line" shaped
	// type is a vector type whose arrowhead is suppressed).
	HasValueData     bool
	RenderValueData  bool
	HasVectorData    bool
	RenderVectorData bool

	ColMapper ColorMapper

	VectorColor      RGBA
	GridColor        RGBA
	VectorScale      int
	ScaleToBlockSize bool
	ArrowHead        ArrowHead

	init *StatType
}

// NewStatType returns a StatType with rendering defaults applied.
func NewStatType() StatType {
	return StatType{
		VectorScale: 1,
		VectorColor: RGBA{0, 0, 0, 255},
		GridColor:   RGBA{0, 0, 0, 255},
	}
}

// SetInitialState snapshots the current state as the type's defaults.
// Called once when header parsing finalizes the type.
func (t *StatType) SetInitialState() {
	cp := *t
	cp.init = nil
	t.init = &cp
}

// InitialState returns the snapshot taken by SetInitialState. If no snapshot
// was taken the current state is returned.
func (t *StatType) InitialState() StatType {
	if t.init == nil {
		return *t
	}
	return *t.init
}

// ResetToInitial restores the state captured by SetInitialState.
func (t *StatType) ResetToInitial() {
	if t.init == nil {
		return
	}
	snap := t.init
	*t = *snap
	t.init = snap
}

// ShapeName returns a short human-readable shape description.
func (t *StatType) ShapeName() string {
	switch {
	case t.HasVectorData && t.ArrowHead == ArrowHeadNone:
		return "line"
	case t.HasVectorData:
		return "vector"
	case t.HasValueData:
		return "value"
	default:
		return "none"
	}
}

// TypeRegistry holds the statistic types declared by the file header, in
// registration order. Registering an ID twice replaces the earlier entry in
// place (later header data for a reused ID wins).
type TypeRegistry struct {
	order []int
	byID  map[int]*StatType
}

// NewTypeRegistry returns an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{byID: make(map[int]*StatType)}
}

// Clear removes all registered types. Called at the start of every header
// read so a reload starts from scratch.
func (r *TypeRegistry) Clear() {
	r.order = r.order[:0]
	r.byID = make(map[int]*StatType)
}

// Add registers a type, replacing any earlier registration of the same ID.
func (r *TypeRegistry) Add(t StatType) {
	if _, ok := r.byID[t.ID]; !ok {
		r.order = append(r.order, t.ID)
	}
	cp := t
	r.byID[t.ID] = &cp
}

// ByID returns the registered type, or nil.
func (r *TypeRegistry) ByID(id int) *StatType {
	return r.byID[id]
}

// ByName returns the first registered type with the given display name, or nil.
func (r *TypeRegistry) ByName(name string) *StatType {
	for _, id := range r.order {
		if t := r.byID[id]; t.Name == name {
			return t
		}
	}
	return nil
}

// Types returns copies of all registered types in registration order.
func (r *TypeRegistry) Types() []StatType {
	out := make([]StatType, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.byID[id])
	}
	return out
}

// Len returns the number of registered types.
func (r *TypeRegistry) Len() int {
	return len(r.order)
}
