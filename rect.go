package compositor

import "math"

// Rectangle is an axis-aligned rectangle in logical coordinates.
type Rectangle struct {
	X, Y          float32
	Width, Height float32
}

// Rect creates a Rectangle from origin and size.
func Rect(x, y, w, h float32) Rectangle {
	return Rectangle{X: x, Y: y, Width: w, Height: h}
}

// RectWithSize creates a Rectangle at the origin with the given size.
func RectWithSize(s Size) Rectangle {
	return Rectangle{Width: s.Width, Height: s.Height}
}

// Position returns the top-left corner.
func (r Rectangle) Position() Point {
	return Point{X: r.X, Y: r.Y}
}

// Size returns the rectangle's size.
func (r Rectangle) Size() Size {
	return Size{Width: r.Width, Height: r.Height}
}

// Center returns the geometric center.
func (r Rectangle) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// IsEmpty reports whether the rectangle has no area.
func (r Rectangle) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains reports whether p lies inside the rectangle.
func (r Rectangle) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

// Intersection returns the overlap of two rectangles and whether it is
// non-empty.
func (r Rectangle) Intersection(o Rectangle) (Rectangle, bool) {
	x1 := max32(r.X, o.X)
	y1 := max32(r.Y, o.Y)
	x2 := min32(r.X+r.Width, o.X+o.Width)
	y2 := min32(r.Y+r.Height, o.Y+o.Height)
	if x2 <= x1 || y2 <= y1 {
		return Rectangle{}, false
	}
	return Rectangle{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}, true
}

// Expand grows the rectangle by m on every side.
func (r Rectangle) Expand(m float32) Rectangle {
	return Rectangle{
		X:      r.X - m,
		Y:      r.Y - m,
		Width:  r.Width + 2*m,
		Height: r.Height + 2*m,
	}
}

// Scale multiplies origin and size by f, converting logical bounds to
// physical bounds when f is the viewport scale factor.
func (r Rectangle) Scale(f float32) Rectangle {
	return Rectangle{X: r.X * f, Y: r.Y * f, Width: r.Width * f, Height: r.Height * f}
}

// Transform applies t to the rectangle's origin and size.
func (r Rectangle) Transform(t Transformation) Rectangle {
	p := t.Apply(r.Position())
	return Rectangle{X: p.X, Y: p.Y, Width: r.Width * t.Scale, Height: r.Height * t.Scale}
}

// ScissorRect is a rectangle snapped to whole physical pixels, the form
// GPU scissor state accepts.
type ScissorRect struct {
	X, Y          uint32
	Width, Height uint32
}

// Snap rounds the rectangle outward-origin to whole physical pixels.
// Negative origins clamp to zero; the size never snaps below zero.
func (r Rectangle) Snap() ScissorRect {
	x := math.Floor(float64(r.X))
	y := math.Floor(float64(r.Y))
	w := math.Ceil(float64(r.X+r.Width)) - x
	h := math.Ceil(float64(r.Y+r.Height)) - y
	if x < 0 {
		w += x
		x = 0
	}
	if y < 0 {
		h += y
		y = 0
	}
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return ScissorRect{X: uint32(x), Y: uint32(y), Width: uint32(w), Height: uint32(h)}
}

// IsEmpty reports whether the scissor covers no pixels.
func (s ScissorRect) IsEmpty() bool {
	return s.Width == 0 || s.Height == 0
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
