package compositor

import "testing"

func TestTransformationMul(t *testing.T) {
	tests := []struct {
		name string
		t, u Transformation
		p    Point
		want Point
	}{
		{
			name: "identity composes to identity",
			t:    Identity,
			u:    Identity,
			p:    Point{X: 3, Y: 4},
			want: Point{X: 3, Y: 4},
		},
		{
			name: "translate then translate adds",
			t:    Translate(10, 20),
			u:    Translate(1, 2),
			p:    Point{},
			want: Point{X: 11, Y: 22},
		},
		{
			name: "scale applies to inner translation",
			t:    Scaled(2),
			u:    Translate(5, 5),
			p:    Point{},
			want: Point{X: 10, Y: 10},
		},
		{
			name: "translate then scale leaves translation",
			t:    Translate(10, 0),
			u:    Scaled(3),
			p:    Point{X: 1, Y: 1},
			want: Point{X: 13, Y: 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.t.Mul(tt.u).Apply(tt.p)
			if got != tt.want {
				t.Errorf("Mul.Apply(%+v) = %+v, want %+v", tt.p, got, tt.want)
			}
		})
	}
}

func TestTransformationMulMatchesSequentialApply(t *testing.T) {
	a := Translate(7, -3)
	b := Scaled(1.5)
	p := Point{X: 2, Y: 9}

	composed := a.Mul(b).Apply(p)
	sequential := a.Apply(b.Apply(p))
	if composed != sequential {
		t.Errorf("composed %+v != sequential %+v", composed, sequential)
	}
}

func TestTransformationIsIdentity(t *testing.T) {
	if !Identity.IsIdentity() {
		t.Error("Identity not identified")
	}
	if Translate(1, 0).IsIdentity() {
		t.Error("translation identified as identity")
	}
	if Scaled(2).IsIdentity() {
		t.Error("scale identified as identity")
	}
	if !Translate(0, 0).IsIdentity() {
		t.Error("zero translation should be identity")
	}
}

func TestRectangleTransform(t *testing.T) {
	r := Rect(10, 10, 20, 30).Transform(Transformation{Scale: 2, X: 5, Y: 5})
	want := Rect(25, 25, 40, 60)
	if r != want {
		t.Errorf("Transform = %+v, want %+v", r, want)
	}
}
