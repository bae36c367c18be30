package compositor

import "testing"

func TestQuadScaleAlpha(t *testing.T) {
	q := Quad{
		Bounds:      Rect(0, 0, 10, 10),
		Background:  RGBA(1, 0, 0, 0.8),
		BorderColor: RGBA(0, 0, 0, 1),
		ShadowColor: RGBA(0, 0, 0, 0.5),
	}
	s := q.scaleAlpha(0.5)

	if got := s.Background.(Color).A; got != 0.4 {
		t.Errorf("background alpha = %v, want 0.4", got)
	}
	if s.BorderColor.A != 0.5 {
		t.Errorf("border alpha = %v, want 0.5", s.BorderColor.A)
	}
	if s.ShadowColor.A != 0.25 {
		t.Errorf("shadow alpha = %v, want 0.25", s.ShadowColor.A)
	}
}

func TestQuadScaleAlphaGradientBackground(t *testing.T) {
	q := Quad{
		Bounds:     Rect(0, 0, 10, 10),
		Background: NewLinear(0).AddStop(0, RGBA(1, 0, 0, 1)).AddStop(1, RGBA(0, 0, 1, 0.5)),
	}
	s := q.scaleAlpha(0.5)

	g, ok := s.Background.(Linear)
	if !ok {
		t.Fatalf("background type changed: %T", s.Background)
	}
	stops := g.Stops()
	if stops[0].Color.A != 0.5 || stops[1].Color.A != 0.25 {
		t.Errorf("gradient alphas = %v, %v, want 0.5, 0.25", stops[0].Color.A, stops[1].Color.A)
	}
}

func TestQuadScaleAlphaNilBackground(t *testing.T) {
	q := Quad{Bounds: Rect(0, 0, 10, 10), BorderColor: RGBA(0, 0, 0, 1)}
	s := q.scaleAlpha(0.5)
	if s.Background != nil {
		t.Errorf("nil background became %T", s.Background)
	}
}

func TestMeshScaleAlphaCopiesVertices(t *testing.T) {
	m := Mesh{
		Vertices: []Vertex{{Position: Pt(0, 0), Color: RGBA(1, 1, 1, 1)}},
		Indices:  []uint32{0, 0, 0},
		Bounds:   Rect(0, 0, 1, 1),
	}
	s := m.scaleAlpha(0.5)

	if s.Vertices[0].Color.A != 0.5 {
		t.Errorf("scaled alpha = %v, want 0.5", s.Vertices[0].Color.A)
	}
	if m.Vertices[0].Color.A != 1 {
		t.Errorf("original vertex mutated: alpha = %v", m.Vertices[0].Color.A)
	}
}

func TestColorScaleAlphaAndComponents(t *testing.T) {
	c := RGBA(0.1, 0.2, 0.3, 0.8).ScaleAlpha(0.5)
	want := [4]float32{0.1, 0.2, 0.3, 0.4}
	if c.Components() != want {
		t.Errorf("Components() = %v, want %v", c.Components(), want)
	}
	if RGB(1, 1, 1).A != 1 {
		t.Error("RGB should be opaque")
	}
}
