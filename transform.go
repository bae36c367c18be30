package compositor

// Transformation is a uniform scale followed by a translation. Layers
// compose these; rotation never appears in the compositing path, so a
// full matrix would be dead weight.
type Transformation struct {
	Scale float32
	X, Y  float32
}

// Identity is the no-op transformation.
var Identity = Transformation{Scale: 1}

// Translate creates a pure translation.
func Translate(x, y float32) Transformation {
	return Transformation{Scale: 1, X: x, Y: y}
}

// Scaled creates a pure uniform scale.
func Scaled(f float32) Transformation {
	return Transformation{Scale: f}
}

// Mul composes two transformations: the result applies u first, then t.
func (t Transformation) Mul(u Transformation) Transformation {
	return Transformation{
		Scale: t.Scale * u.Scale,
		X:     t.X + u.X*t.Scale,
		Y:     t.Y + u.Y*t.Scale,
	}
}

// Apply transforms a point.
func (t Transformation) Apply(p Point) Point {
	return Point{X: p.X*t.Scale + t.X, Y: p.Y*t.Scale + t.Y}
}

// IsIdentity reports whether the transformation does nothing.
func (t Transformation) IsIdentity() bool {
	return t == Identity
}
