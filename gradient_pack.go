package compositor

import (
	"encoding/binary"
	"math"
)

// PackedGradient is the gradient wire format consumed by the quad and
// mesh shaders: exactly 128 bytes, colors and offsets stored as half
// floats. Unused offset slots carry the sentinel 2.0 so the shader can
// stop without a separate stop count.
//
// Must match Gradient in quad.wgsl.
type PackedGradient struct {
	// Colors holds 8 colors, each packed as 4 f16 components into 2
	// u32s with the first component of a pair in the high 16 bits.
	Colors [8][2]uint32
	// Offsets holds 8 f16 offsets packed pairwise like Colors.
	Offsets [4]uint32
	// Direction is kind-specific: linear start.xy,end.xy; radial
	// center.xy,radius.xy; conic center.xy,angle,0. All in logical
	// coordinates resolved against the bounds at pack time.
	Direction [4]float32
	// Kind selects the interpolation: 0 linear, 1 radial, 2 conic.
	Kind uint32

	// pad aligns the struct to its 16-byte boundary and keeps the
	// serialized size at exactly 128 bytes.
	pad [7]uint32
}

const (
	gradientKindLinear uint32 = 0
	gradientKindRadial uint32 = 1
	gradientKindConic  uint32 = 2
)

// offsetSentinel marks unused stop slots; every real offset is <= 1.
const offsetSentinel float32 = 2.0

// PackedGradientSize is the byte length of the wire format.
const PackedGradientSize = 128

// Bytes serializes the gradient little-endian for buffer upload.
func (p PackedGradient) Bytes() [PackedGradientSize]byte {
	var out [PackedGradientSize]byte
	o := 0
	put := func(v uint32) {
		binary.LittleEndian.PutUint32(out[o:], v)
		o += 4
	}
	for _, c := range p.Colors {
		put(c[0])
		put(c[1])
	}
	for _, v := range p.Offsets {
		put(v)
	}
	for _, v := range p.Direction {
		put(math.Float32bits(v))
	}
	put(p.Kind)
	for range p.pad {
		put(0)
	}
	return out
}

// Pack implements Gradient.
func (l Linear) Pack(bounds Rectangle) PackedGradient {
	p := packStops(l.stops)
	start, end := linearPoints(l.Angle, bounds)
	p.Direction = [4]float32{start.X, start.Y, end.X, end.Y}
	p.Kind = gradientKindLinear
	return p
}

// Pack implements Gradient.
func (r Radial) Pack(bounds Rectangle) PackedGradient {
	p := packStops(r.stops)
	p.Direction = [4]float32{
		bounds.X + r.Center.X*bounds.Width,
		bounds.Y + r.Center.Y*bounds.Height,
		r.RadiusX * bounds.Width,
		r.RadiusY * bounds.Height,
	}
	p.Kind = gradientKindRadial
	return p
}

// Pack implements Gradient.
func (c Conic) Pack(bounds Rectangle) PackedGradient {
	p := packStops(c.stops)
	p.Direction = [4]float32{
		bounds.X + c.Center.X*bounds.Width,
		bounds.Y + c.Center.Y*bounds.Height,
		c.Angle,
		0,
	}
	p.Kind = gradientKindConic
	return p
}

func packStops(s stops) PackedGradient {
	var p PackedGradient
	var offsets [MaxStops]float32
	for i := range offsets {
		offsets[i] = offsetSentinel
	}
	for i := 0; i < s.count; i++ {
		c := s.list[i].Color
		p.Colors[i] = [2]uint32{packF16Pair(c.R, c.G), packF16Pair(c.B, c.A)}
		offsets[i] = s.list[i].Offset
	}
	for i := 0; i < MaxStops/2; i++ {
		p.Offsets[i] = packF16Pair(offsets[2*i], offsets[2*i+1])
	}
	return p
}

// linearPoints resolves an angle to the two endpoints of the gradient
// line through the bounds center, clipped to the bounds. Zero radians
// points up; the rotation by -pi/2 turns the angle into a direction
// vector in screen coordinates.
func linearPoints(angle float32, bounds Rectangle) (Point, Point) {
	a := float64(angle) - math.Pi/2
	r := Point{X: float32(math.Cos(a)), Y: float32(math.Sin(a))}
	center := bounds.Center()

	// Division by a zero component yields +Inf and loses to the other
	// axis in the min, which is exactly the axis-aligned case.
	dy := abs32((bounds.Y - center.Y) / r.Y)
	dx := abs32((bounds.X + bounds.Width - center.X) / r.X)
	d := min32(dy, dx)

	start := Point{X: center.X - r.X*d, Y: center.Y - r.Y*d}
	end := Point{X: center.X + r.X*d, Y: center.Y + r.Y*d}
	return start, end
}

// packF16Pair packs two float32s as half floats into one u32, first
// value in the high 16 bits.
func packF16Pair(a, b float32) uint32 {
	return uint32(float16Bits(a))<<16 | uint32(float16Bits(b))
}

// float16Bits converts a float32 to IEEE 754 binary16 bits with
// round-to-nearest-even, the same conversion GPUs perform.
func float16Bits(f float32) uint16 {
	b := math.Float32bits(f)
	sign := uint16(b>>16) & 0x8000
	exp := int32(b>>23&0xff) - 127 + 15
	mant := b & 0x7fffff

	switch {
	case int32(b>>23&0xff) == 0xff:
		// Inf and NaN.
		if mant != 0 {
			return sign | 0x7e00
		}
		return sign | 0x7c00
	case exp >= 0x1f:
		return sign | 0x7c00
	case exp <= 0:
		// Subnormal or underflow to zero.
		if exp < -10 {
			return sign
		}
		mant |= 0x800000
		shift := uint32(14 - exp)
		half := uint16(mant >> shift)
		rem := mant & (1<<shift - 1)
		mid := uint32(1) << (shift - 1)
		if rem > mid || (rem == mid && half&1 == 1) {
			half++
		}
		return sign | half
	default:
		half := sign | uint16(exp)<<10 | uint16(mant>>13)
		rem := mant & 0x1fff
		if rem > 0x1000 || (rem == 0x1000 && half&1 == 1) {
			// Rounding may carry into the exponent; the bit layout
			// makes the carried value correct, including overflow to
			// infinity.
			half++
		}
		return half
	}
}

func abs32(v float32) float32 {
	return float32(math.Abs(float64(v)))
}
