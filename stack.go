package compositor

// Stack is the frame's layer stack. Layers live in a reusable backing
// slice; the first live layers are the frame's layers in render order.
// Primitive indices recorded by blur and fade state are positions in
// that order, which is why Merge is refused while such state exists.
type Stack struct {
	layers []Layer
	live   int

	// current receives primitives; previous remembers where pop_clip
	// returns to.
	current  int
	previous []int

	transformations []Transformation
}

// NewStack creates a stack with a single full-frame layer.
func NewStack(bounds Rectangle) *Stack {
	s := &Stack{}
	s.Reset(bounds)
	return s
}

// Reset clears the stack for a new frame clipped to bounds.
func (s *Stack) Reset(bounds Rectangle) {
	s.live = 0
	s.previous = s.previous[:0]
	s.transformations = append(s.transformations[:0], Identity)
	s.current = s.openLayer(bounds)
}

// openLayer reuses or appends a backing layer and returns its index.
func (s *Stack) openLayer(bounds Rectangle) int {
	if s.live < len(s.layers) {
		s.layers[s.live].reset(bounds)
	} else {
		s.layers = append(s.layers, Layer{Bounds: bounds})
	}
	idx := s.live
	s.live++
	return idx
}

// Transformation returns the current recording transformation.
func (s *Stack) Transformation() Transformation {
	return s.transformations[len(s.transformations)-1]
}

// PushTransformation composes t onto the current transformation for
// subsequently recorded primitives.
func (s *Stack) PushTransformation(t Transformation) {
	s.transformations = append(s.transformations, s.Transformation().Mul(t))
}

// PopTransformation restores the previous transformation. The base
// identity never pops.
func (s *Stack) PopTransformation() {
	if len(s.transformations) > 1 {
		s.transformations = s.transformations[:len(s.transformations)-1]
	}
}

// PushClip opens a new layer clipped to bounds (transformed, then
// intersected with the current clip) and directs primitives to it.
func (s *Stack) PushClip(bounds Rectangle) {
	clip := bounds.Transform(s.Transformation())
	if inner, ok := clip.Intersection(s.layers[s.current].Bounds); ok {
		clip = inner
	} else {
		clip = Rectangle{X: clip.X, Y: clip.Y}
	}
	s.previous = append(s.previous, s.current)
	s.current = s.openLayer(clip)
}

// PopClip directs primitives back to the layer that was current before
// the matching PushClip.
func (s *Stack) PopClip() {
	if n := len(s.previous); n > 0 {
		s.current = s.previous[n-1]
		s.previous = s.previous[:n-1]
	}
}

// Flush opens a fresh layer with the current clip so primitives
// recorded next land at a new absolute layer index.
func (s *Stack) Flush() {
	s.current = s.openLayer(s.layers[s.current].Bounds)
}

// Merge folds the top layer into the one below when both share clip
// bounds, reclaiming a layer index. Callers must not merge while blur
// regions or post-blur content reference absolute indices; use Flush
// instead.
func (s *Stack) Merge() {
	if s.live < 2 {
		return
	}
	top := &s.layers[s.live-1]
	below := &s.layers[s.live-2]
	if top.Bounds != below.Bounds || !top.IsEmpty() {
		return
	}
	if s.current == s.live-1 {
		s.current = s.live - 2
	}
	s.live--
}

// ActiveCount returns the number of live layers.
func (s *Stack) ActiveCount() int {
	return s.live
}

// Layers returns the live layers in render order. The slice aliases the
// stack's backing storage and is valid until the next Reset.
func (s *Stack) Layers() []Layer {
	return s.layers[:s.live]
}

// CurrentBounds returns the clip bounds primitives record against.
func (s *Stack) CurrentBounds() Rectangle {
	return s.layers[s.current].Bounds
}

// DrawQuad records a quad, transformed into layer space.
func (s *Stack) DrawQuad(q Quad) {
	q.Bounds = q.Bounds.Transform(s.Transformation())
	l := &s.layers[s.current]
	l.Quads = append(l.Quads, q)
}

// DrawText records a shaped text run, transformed into layer space.
func (s *Stack) DrawText(t TextRun) {
	t.Bounds = t.Bounds.Transform(s.Transformation())
	l := &s.layers[s.current]
	l.Text = append(l.Text, t)
}

// DrawImage records an image, transformed into layer space.
func (s *Stack) DrawImage(img Image) {
	img.Bounds = img.Bounds.Transform(s.Transformation())
	l := &s.layers[s.current]
	l.Images = append(l.Images, img)
}

// DrawMesh records a mesh, transformed into layer space. Vertex
// positions are copied so the caller's slice is not modified.
func (s *Stack) DrawMesh(m Mesh, t Transformation) {
	m.Bounds = m.Bounds.Transform(t)
	if !t.IsIdentity() {
		transformed := make([]Vertex, len(m.Vertices))
		for i, v := range m.Vertices {
			transformed[i] = Vertex{Position: t.Apply(v.Position), Color: v.Color}
		}
		m.Vertices = transformed
	}
	l := &s.layers[s.current]
	l.Meshes = append(l.Meshes, m)
}
