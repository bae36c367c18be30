package compositor

import (
	"math"
	"sort"
)

// MaxStops is the number of color stops a gradient can carry. The packed
// wire format has room for exactly eight.
const MaxStops = 8

// ColorStop pairs a color with its fractional offset along the gradient.
type ColorStop struct {
	Offset float32
	Color  Color
}

// Gradient is a fill that interpolates between color stops. Linear,
// Radial and Conic are the only implementations.
type Gradient interface {
	// Pack resolves the gradient against bounds into the GPU wire format.
	Pack(bounds Rectangle) PackedGradient

	// ScaleAlpha returns a copy with every stop's alpha multiplied by f.
	ScaleAlpha(f float32) Gradient

	gradient()
}

// stops holds up to MaxStops color stops sorted by offset in a
// contiguous prefix. The zero value is empty.
type stops struct {
	list  [MaxStops]ColorStop
	count int
}

// add places a stop at the position binary search finds for its offset,
// overwriting whatever occupies that slot. Stops added in ascending
// offset order therefore accumulate; a stop at an existing offset
// replaces it. Offsets outside [0, 1] or non-finite are ignored with a
// warning. Adding to a full gradient past the last slot drops the stop.
func (s stops) add(offset float32, color Color) stops {
	f := float64(offset)
	if math.IsNaN(f) || math.IsInf(f, 0) || offset < 0 || offset > 1 {
		Logger().Warn("gradient color stop offset must be within [0, 1]", "offset", offset)
		return s
	}
	idx := sort.Search(s.count, func(i int) bool { return s.list[i].Offset >= offset })
	if idx < MaxStops {
		s.list[idx] = ColorStop{Offset: offset, Color: color}
		if idx == s.count {
			s.count++
		}
	}
	return s
}

func (s stops) scaleAlpha(f float32) stops {
	for i := 0; i < s.count; i++ {
		s.list[i].Color = s.list[i].Color.ScaleAlpha(f)
	}
	return s
}

// Stops returns the gradient's stops in offset order.
func (s stops) Stops() []ColorStop {
	return append([]ColorStop(nil), s.list[:s.count]...)
}

// Linear interpolates colors along a line through the bounds center at
// the given angle, in radians. Zero points up; angles grow clockwise.
type Linear struct {
	Angle float32
	stops stops
}

// NewLinear creates a linear gradient with no stops.
func NewLinear(angle float32) Linear {
	return Linear{Angle: angle}
}

// AddStop returns the gradient with a stop added; see stop ordering
// rules on Gradient.
func (l Linear) AddStop(offset float32, color Color) Linear {
	l.stops = l.stops.add(offset, color)
	return l
}

// AddStops folds AddStop over the given stops.
func (l Linear) AddStops(cs ...ColorStop) Linear {
	for _, s := range cs {
		l = l.AddStop(s.Offset, s.Color)
	}
	return l
}

// Stops returns the gradient's stops in offset order.
func (l Linear) Stops() []ColorStop { return l.stops.Stops() }

// ScaleAlpha implements Gradient.
func (l Linear) ScaleAlpha(f float32) Gradient {
	l.stops = l.stops.scaleAlpha(f)
	return l
}

func (Linear) gradient() {}

// Radial interpolates colors outward from a center. Center and radii
// are fractions of the bounds the gradient fills, so a Radial resolves
// to concrete pixels only at pack time.
type Radial struct {
	// Center of the gradient as fractions of the bounds size.
	Center Point
	// RadiusX and RadiusY as fractions of the bounds width and height.
	RadiusX, RadiusY float32

	stops stops
}

// NewRadial creates a radial gradient with no stops.
func NewRadial(center Point, radiusX, radiusY float32) Radial {
	return Radial{Center: center, RadiusX: radiusX, RadiusY: radiusY}
}

// AddStop returns the gradient with a stop added.
func (r Radial) AddStop(offset float32, color Color) Radial {
	r.stops = r.stops.add(offset, color)
	return r
}

// AddStops folds AddStop over the given stops.
func (r Radial) AddStops(cs ...ColorStop) Radial {
	for _, s := range cs {
		r = r.AddStop(s.Offset, s.Color)
	}
	return r
}

// Stops returns the gradient's stops in offset order.
func (r Radial) Stops() []ColorStop { return r.stops.Stops() }

// ScaleAlpha implements Gradient.
func (r Radial) ScaleAlpha(f float32) Gradient {
	r.stops = r.stops.scaleAlpha(f)
	return r
}

func (Radial) gradient() {}

// Conic sweeps colors around a center starting at the given angle.
// The center is a fraction of the bounds size.
type Conic struct {
	Center Point
	Angle  float32

	stops stops
}

// NewConic creates a conic gradient with no stops.
func NewConic(center Point, angle float32) Conic {
	return Conic{Center: center, Angle: angle}
}

// AddStop returns the gradient with a stop added.
func (c Conic) AddStop(offset float32, color Color) Conic {
	c.stops = c.stops.add(offset, color)
	return c
}

// AddStops folds AddStop over the given stops.
func (c Conic) AddStops(cs ...ColorStop) Conic {
	for _, s := range cs {
		c = c.AddStop(s.Offset, s.Color)
	}
	return c
}

// Stops returns the gradient's stops in offset order.
func (c Conic) Stops() []ColorStop { return c.stops.Stops() }

// ScaleAlpha implements Gradient.
func (c Conic) ScaleAlpha(f float32) Gradient {
	c.stops = c.stops.scaleAlpha(f)
	return c
}

func (Conic) gradient() {}
