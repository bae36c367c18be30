package compositor

// Vertex is a mesh vertex with a per-vertex color.
type Vertex struct {
	Position Point
	Color    Color
}

// Mesh is an arbitrary triangle list, the escape hatch for shapes quads
// cannot express. Gradient, when set, overrides the vertex colors.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
	// Bounds is the clip-tested bounding box of the mesh in layer space.
	Bounds   Rectangle
	Gradient Gradient
}

// scaleAlpha applies group opacity to every vertex and the gradient.
func (m Mesh) scaleAlpha(f float32) Mesh {
	scaled := make([]Vertex, len(m.Vertices))
	for i, v := range m.Vertices {
		v.Color = v.Color.ScaleAlpha(f)
		scaled[i] = v
	}
	m.Vertices = scaled
	if m.Gradient != nil {
		m.Gradient = m.Gradient.ScaleAlpha(f)
	}
	return m
}
