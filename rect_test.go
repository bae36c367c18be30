package compositor

import "testing"

func TestRectangleIntersection(t *testing.T) {
	tests := []struct {
		name   string
		a, b   Rectangle
		want   Rectangle
		wantOK bool
	}{
		{
			name:   "full overlap",
			a:      Rect(0, 0, 100, 100),
			b:      Rect(25, 25, 50, 50),
			want:   Rect(25, 25, 50, 50),
			wantOK: true,
		},
		{
			name:   "partial overlap",
			a:      Rect(0, 0, 50, 50),
			b:      Rect(25, 25, 50, 50),
			want:   Rect(25, 25, 25, 25),
			wantOK: true,
		},
		{
			name:   "disjoint",
			a:      Rect(0, 0, 10, 10),
			b:      Rect(20, 20, 10, 10),
			wantOK: false,
		},
		{
			name:   "touching edges",
			a:      Rect(0, 0, 10, 10),
			b:      Rect(10, 0, 10, 10),
			wantOK: false,
		},
		{
			name:   "identical",
			a:      Rect(5, 5, 20, 20),
			b:      Rect(5, 5, 20, 20),
			want:   Rect(5, 5, 20, 20),
			wantOK: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.a.Intersection(tt.b)
			if ok != tt.wantOK {
				t.Fatalf("Intersection ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("Intersection = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRectangleSnap(t *testing.T) {
	tests := []struct {
		name string
		r    Rectangle
		want ScissorRect
	}{
		{
			name: "integral",
			r:    Rect(10, 20, 30, 40),
			want: ScissorRect{X: 10, Y: 20, Width: 30, Height: 40},
		},
		{
			name: "fractional grows outward",
			r:    Rect(10.3, 20.7, 30.2, 40.1),
			want: ScissorRect{X: 10, Y: 20, Width: 31, Height: 41},
		},
		{
			name: "negative origin clamps and shrinks",
			r:    Rect(-5, -3, 20, 10),
			want: ScissorRect{X: 0, Y: 0, Width: 15, Height: 7},
		},
		{
			name: "fully negative collapses",
			r:    Rect(-50, -50, 20, 20),
			want: ScissorRect{X: 0, Y: 0, Width: 0, Height: 0},
		},
		{
			name: "zero size",
			r:    Rect(5, 5, 0, 0),
			want: ScissorRect{X: 5, Y: 5, Width: 0, Height: 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Snap(); got != tt.want {
				t.Errorf("Snap() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRectangleExpand(t *testing.T) {
	r := Rect(10, 10, 20, 20).Expand(5)
	want := Rect(5, 5, 30, 30)
	if r != want {
		t.Errorf("Expand(5) = %+v, want %+v", r, want)
	}
}

func TestRectangleScale(t *testing.T) {
	r := Rect(10, 20, 30, 40).Scale(2)
	want := Rect(20, 40, 60, 80)
	if r != want {
		t.Errorf("Scale(2) = %+v, want %+v", r, want)
	}
}

func TestRectangleContains(t *testing.T) {
	r := Rect(0, 0, 10, 10)
	if !r.Contains(Point{X: 0, Y: 0}) {
		t.Error("top-left corner should be inside")
	}
	if r.Contains(Point{X: 10, Y: 10}) {
		t.Error("bottom-right corner is exclusive")
	}
	if !r.Contains(Point{X: 9.99, Y: 9.99}) {
		t.Error("interior point should be inside")
	}
}

func TestScissorRectIsEmpty(t *testing.T) {
	if (ScissorRect{Width: 10, Height: 10}).IsEmpty() {
		t.Error("non-zero scissor reported empty")
	}
	if !(ScissorRect{Width: 0, Height: 10}).IsEmpty() {
		t.Error("zero-width scissor not reported empty")
	}
}
