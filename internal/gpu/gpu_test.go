//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"math"
	"testing"

	compositor "github.com/gogpu/compositor"
)

func f32At(b []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}

func TestPutF32PutU32(t *testing.T) {
	buf := make([]byte, 8)
	putF32(buf, 0, 1.5)
	putU32(buf, 4, 0xdeadbeef)

	if got := f32At(buf, 0); got != 1.5 {
		t.Errorf("putF32 roundtrip = %v, want 1.5", got)
	}
	if got := binary.LittleEndian.Uint32(buf[4:]); got != 0xdeadbeef {
		t.Errorf("putU32 roundtrip = %#08x", got)
	}
}

func TestBlurUniformsBytes(t *testing.T) {
	u := blurUniforms{
		quadBounds:   [4]float32{0.1, 0.2, 0.3, 0.4},
		clipBounds:   [4]float32{0.5, 0.6, 0.7, 0.8},
		params:       [4]float32{20, 1, 800, 600},
		borderRadius: [4]float32{4, 0, 4, 0},
	}
	b := u.bytes()
	if len(b) != 64 {
		t.Fatalf("len = %d, want 64", len(b))
	}

	checks := []struct {
		off  int
		want float32
	}{
		{0, 0.1}, {12, 0.4},
		{16, 0.5}, {28, 0.8},
		{32, 20}, {36, 1}, {40, 800}, {44, 600},
		{48, 4}, {52, 0}, {56, 4}, {60, 0},
	}
	for _, c := range checks {
		if got := f32At(b, c.off); got != c.want {
			t.Errorf("byte %d = %v, want %v", c.off, got, c.want)
		}
	}
}

func TestAppendSolidInstanceLayout(t *testing.T) {
	q := compositor.Quad{
		Bounds:           compositor.Rect(10, 20, 30, 40),
		BorderRadius:     [4]float32{1, 2, 3, 4},
		BorderWidth:      2,
		BorderColor:      compositor.RGBA(0, 0, 0, 1),
		ShadowColor:      compositor.RGBA(0, 0, 0, 0.5),
		ShadowOffset:     compositor.Pt(5, 6),
		ShadowBlurRadius: 8,
	}
	data := appendSolidInstance(nil, q, compositor.RGBA(1, 0, 0, 1))

	if len(data) != solidStride {
		t.Fatalf("len = %d, want %d", len(data), solidStride)
	}
	checks := []struct {
		name string
		off  int
		want float32
	}{
		{"color r", 0, 1},
		{"color a", 12, 1},
		{"bounds x", 16, 10},
		{"bounds h", 28, 40},
		{"border color a", 44, 1},
		{"border radius tl", 48, 1},
		{"border radius bl", 60, 4},
		{"border width", 64, 2},
		{"shadow color a", 80, 0.5},
		{"shadow offset x", 84, 5},
		{"shadow offset y", 88, 6},
		{"shadow blur", 92, 8},
	}
	for _, c := range checks {
		if got := f32At(data, c.off); got != c.want {
			t.Errorf("%s at %d = %v, want %v", c.name, c.off, got, c.want)
		}
	}
}

func TestAppendGradientInstanceLayout(t *testing.T) {
	g := compositor.NewLinear(0).
		AddStop(0, compositor.RGB(1, 0, 0)).
		AddStop(1, compositor.RGB(0, 0, 1))
	q := compositor.Quad{Bounds: compositor.Rect(0, 0, 100, 50), BorderWidth: 3}

	data := appendGradientInstance(nil, q, g)
	if len(data) != gradientStride {
		t.Fatalf("len = %d, want %d", len(data), gradientStride)
	}

	// The first 128 bytes are the packed gradient.
	packed := g.Pack(q.Bounds).Bytes()
	for i := 0; i < compositor.PackedGradientSize; i++ {
		if data[i] != packed[i] {
			t.Fatalf("packed gradient differs at byte %d", i)
		}
	}

	// Quad fields follow at the packed gradient boundary.
	if got := f32At(data, 128+8); got != 100 {
		t.Errorf("bounds width = %v, want 100", got)
	}
	if got := f32At(data, 128+48); got != 3 {
		t.Errorf("border width = %v, want 3", got)
	}
}

func TestGrowBufferUploadEmptyIsNoop(t *testing.T) {
	b := newGrowBuffer("test", 0)
	if err := b.upload(nil, nil, nil); err != nil {
		t.Fatalf("empty upload: %v", err)
	}
	if b.buf != nil || b.size != 0 {
		t.Error("empty upload allocated a buffer")
	}
}

func TestMinMax32(t *testing.T) {
	if min32(1, 2) != 1 || min32(2, 1) != 1 {
		t.Error("min32 wrong")
	}
	if max32(1, 2) != 2 || max32(2, 1) != 2 {
		t.Error("max32 wrong")
	}
}
