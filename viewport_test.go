package compositor

import (
	"math"
	"testing"
)

func TestViewportLogicalSize(t *testing.T) {
	tests := []struct {
		name          string
		width, height uint32
		scale         float32
		want          Size
	}{
		{"scale 1", 800, 600, 1, Size{Width: 800, Height: 600}},
		{"scale 2", 800, 600, 2, Size{Width: 400, Height: 300}},
		{"fractional scale rounds up", 1000, 1000, 1.5, Size{Width: 667, Height: 667}},
		{"zero scale falls back to 1", 320, 240, 0, Size{Width: 320, Height: 240}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewViewport(tt.width, tt.height, tt.scale)
			if got := v.LogicalSize(); got != tt.want {
				t.Errorf("LogicalSize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestViewportProjection(t *testing.T) {
	tests := []struct {
		name  string
		v     Viewport
		x, y  float32
		wantX float32
		wantY float32
	}{
		{"top-left", NewViewport(200, 100, 1), 0, 0, -1, 1},
		{"bottom-right", NewViewport(200, 100, 1), 200, 100, 1, -1},
		{"center", NewViewport(200, 100, 1), 100, 50, 0, 0},
		// The matrix maps physical pixels regardless of scale factor.
		{"scaled bottom-right", NewViewport(400, 200, 2), 400, 200, 1, -1},
		{"scaled center", NewViewport(400, 200, 2), 200, 100, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Column-major: clip = M * (x, y, 0, 1).
			m := tt.v.Projection()
			gx := m[0]*tt.x + m[4]*tt.y + m[12]
			gy := m[1]*tt.x + m[5]*tt.y + m[13]
			if math.Abs(float64(gx-tt.wantX)) > 1e-6 || math.Abs(float64(gy-tt.wantY)) > 1e-6 {
				t.Errorf("project(%v, %v) = (%v, %v), want (%v, %v)",
					tt.x, tt.y, gx, gy, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestViewportScissorBounds(t *testing.T) {
	v := NewViewport(1920, 1080, 2)
	want := ScissorRect{Width: 1920, Height: 1080}
	if got := v.ScissorBounds(); got != want {
		t.Errorf("ScissorBounds() = %+v, want %+v", got, want)
	}
}
