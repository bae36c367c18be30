package compositor

// Layer is one clipped group of primitives. Layers render strictly in
// stack order; everything in a layer shares its clip bounds.
type Layer struct {
	// Bounds is the clip rectangle in logical coordinates.
	Bounds Rectangle

	Quads  []Quad
	Meshes []Mesh
	Text   []TextRun
	Images []Image
}

// IsEmpty reports whether the layer holds no primitives.
func (l *Layer) IsEmpty() bool {
	return len(l.Quads) == 0 && len(l.Meshes) == 0 && len(l.Text) == 0 && len(l.Images) == 0
}

// reset prepares the layer for reuse with new clip bounds, keeping the
// batch allocations.
func (l *Layer) reset(bounds Rectangle) {
	l.Bounds = bounds
	l.Quads = l.Quads[:0]
	l.Meshes = l.Meshes[:0]
	l.Text = l.Text[:0]
	l.Images = l.Images[:0]
}
