package compositor

import (
	"fmt"
	"testing"
)

// fakeTexture satisfies Texture for renderer tests.
type fakeTexture struct {
	label         string
	width, height uint32
}

func (t *fakeTexture) Width() uint32  { return t.width }
func (t *fakeTexture) Height() uint32 { return t.height }

type fakePass struct {
	e *fakeEngine
}

func (p *fakePass) SetScissor(ScissorRect) {}
func (p *fakePass) End()                   { p.e.log("EndPass") }

// fakeEngine records the call sequence a Present produces so tests can
// assert batch indices and pass ordering without a GPU.
type fakeEngine struct {
	events []string

	copyable  bool
	createErr error
	created   []*fakeTexture
	destroyed []string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{copyable: true}
}

func (e *fakeEngine) log(format string, args ...any) {
	e.events = append(e.events, fmt.Sprintf(format, args...))
}

func (e *fakeEngine) BeginFrame()     { e.log("BeginFrame") }
func (e *fakeEngine) EndFrame() error { e.log("EndFrame"); return nil }

func (e *fakeEngine) PrepareQuads(quads []Quad, _ [16]float32, _ float32) {
	e.log("PrepareQuads n=%d", len(quads))
}

func (e *fakeEngine) PrepareMeshes(meshes []Mesh, _ [16]float32, _ float32) {
	e.log("PrepareMeshes n=%d", len(meshes))
}

func (e *fakeEngine) PrepareText(runs []TextRun, _ Rectangle, _ [16]float32, _ float32) {
	e.log("PrepareText n=%d", len(runs))
}

func (e *fakeEngine) PrepareImages(images []Image, _ [16]float32, _ float32) {
	e.log("PrepareImages n=%d", len(images))
}

func (e *fakeEngine) BeginPass(target Texture, clear *Color) RenderPass {
	name := "?"
	if t, ok := target.(*fakeTexture); ok {
		name = t.label
	}
	if clear != nil {
		e.log("BeginPass target=%s clear", name)
	} else {
		e.log("BeginPass target=%s load", name)
	}
	return &fakePass{e: e}
}

func (e *fakeEngine) RenderQuads(_ RenderPass, batch int, _ ScissorRect, quads []Quad) {
	e.log("RenderQuads batch=%d n=%d", batch, len(quads))
}

func (e *fakeEngine) RenderMeshes(_ Texture, batch int, _ Rectangle, meshes []Mesh, _ float32) int {
	e.log("RenderMeshes batch=%d n=%d", batch, len(meshes))
	return 1
}

func (e *fakeEngine) RenderText(_ RenderPass, firstGroup int, _ ScissorRect, runs []TextRun) int {
	e.log("RenderText first=%d n=%d", firstGroup, len(runs))
	return len(runs)
}

func (e *fakeEngine) RenderImages(_ RenderPass, batch int, _ ScissorRect) {
	e.log("RenderImages batch=%d", batch)
}

func (e *fakeEngine) CreateTexture(label string, width, height uint32, copyDst bool) (Texture, error) {
	if e.createErr != nil {
		return nil, e.createErr
	}
	e.log("CreateTexture %s copyDst=%v", label, copyDst)
	t := &fakeTexture{label: label, width: width, height: height}
	e.created = append(e.created, t)
	return t, nil
}

func (e *fakeEngine) DestroyTexture(t Texture) {
	if ft, ok := t.(*fakeTexture); ok {
		e.destroyed = append(e.destroyed, ft.label)
	}
}

func (e *fakeEngine) CanCopy(Texture) bool { return e.copyable }

func (e *fakeEngine) CopyTexture(src, dst Texture) {
	e.log("CopyTexture %s->%s", src.(*fakeTexture).label, dst.(*fakeTexture).label)
}

func (e *fakeEngine) RenderBlur(_, _, _ Texture, blur BackdropBlur, _ Viewport, passes int) {
	e.log("RenderBlur radius=%v passes=%d", blur.Radius, passes)
}

func (e *fakeEngine) BlitFull(_, _ Texture) { e.log("BlitFull") }

func (e *fakeEngine) BlitRegion(_, _ Texture, _ Rectangle, _ Viewport) { e.log("BlitRegion") }

func (e *fakeEngine) RenderFade(_, _ Texture, fade GradientFade, _ Viewport) {
	e.log("RenderFade dir=%d", fade.Direction)
}

func (e *fakeEngine) Trim() { e.log("Trim") }

func newTestRenderer() (*Renderer, *fakeEngine) {
	e := newFakeEngine()
	return NewRenderer(e, DefaultSettings()), e
}

func testTarget() *fakeTexture {
	return &fakeTexture{label: "target", width: 800, height: 600}
}

func testViewport() Viewport {
	return NewViewport(800, 600, 1)
}

func requireEvents(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d:\ngot:  %q\nwant: %q", len(got), len(want), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %q, want %q\nfull: %q", i, got[i], want[i], got)
		}
	}
}

func solidQuad(x, y, w, h float32) Quad {
	return Quad{Bounds: Rect(x, y, w, h), Background: RGB(1, 0, 0)}
}

func TestPresentSimpleFrame(t *testing.T) {
	r, e := newTestRenderer()
	r.Reset(Rect(0, 0, 800, 600))
	r.FillQuad(solidQuad(10, 10, 100, 50))
	r.DrawText(TextRun{Bounds: Rect(10, 70, 100, 20), Glyphs: []Glyph{{ID: 1}}, Size: 12})

	clear := RGB(0, 0, 0)
	if err := r.Present(testTarget(), &clear, testViewport()); err != nil {
		t.Fatalf("Present: %v", err)
	}

	requireEvents(t, e.events, []string{
		"BeginFrame",
		"PrepareQuads n=1",
		"PrepareText n=1",
		"BeginPass target=target clear",
		"RenderQuads batch=0 n=1",
		"RenderText first=0 n=1",
		"EndPass",
		"EndFrame",
		"Trim",
	})
}

func TestPresentBatchIndicesAcrossLayers(t *testing.T) {
	r, e := newTestRenderer()
	r.Reset(Rect(0, 0, 800, 600))
	r.FillQuad(solidQuad(0, 0, 10, 10))
	r.StartLayer(Rect(100, 100, 200, 200))
	r.FillQuad(solidQuad(100, 100, 10, 10))
	r.DrawImage(Image{Handle: 7, Bounds: Rect(100, 100, 64, 64), Opacity: 1})
	r.EndLayer()
	r.FillQuad(solidQuad(20, 20, 10, 10))

	if err := r.Present(testTarget(), nil, testViewport()); err != nil {
		t.Fatalf("Present: %v", err)
	}

	requireEvents(t, e.events, []string{
		"BeginFrame",
		"PrepareQuads n=2",
		"PrepareQuads n=1",
		"PrepareImages n=1",
		"BeginPass target=target load",
		"RenderQuads batch=0 n=2",
		"RenderQuads batch=1 n=1",
		"RenderImages batch=0",
		"EndPass",
		"EndFrame",
		"Trim",
	})
}

func TestPresentMeshSplitsPass(t *testing.T) {
	r, e := newTestRenderer()
	r.Reset(Rect(0, 0, 800, 600))
	r.FillQuad(solidQuad(0, 0, 10, 10))
	r.DrawMesh(Mesh{
		Vertices: []Vertex{{Position: Pt(0, 0)}, {Position: Pt(10, 0)}, {Position: Pt(0, 10)}},
		Indices:  []uint32{0, 1, 2},
		Bounds:   Rect(0, 0, 10, 10),
	})

	if err := r.Present(testTarget(), nil, testViewport()); err != nil {
		t.Fatalf("Present: %v", err)
	}

	requireEvents(t, e.events, []string{
		"BeginFrame",
		"PrepareQuads n=1",
		"PrepareMeshes n=1",
		"BeginPass target=target load",
		"RenderQuads batch=0 n=1",
		"EndPass",
		"RenderMeshes batch=0 n=1",
		"BeginPass target=target load",
		"EndPass",
		"EndFrame",
		"Trim",
	})
}

func TestPresentGradientFade(t *testing.T) {
	r, e := newTestRenderer()
	r.Reset(Rect(0, 0, 800, 600))
	r.FillQuad(solidQuad(0, 0, 10, 10))
	r.StartGradientFade(Rect(0, 0, 400, 300), FadeTopToBottom, 0.5, 1)
	r.FillQuad(solidQuad(50, 50, 10, 10))
	r.EndGradientFade()
	r.FillQuad(solidQuad(20, 20, 10, 10))

	if err := r.Present(testTarget(), nil, testViewport()); err != nil {
		t.Fatalf("Present: %v", err)
	}

	requireEvents(t, e.events, []string{
		"BeginFrame",
		"PrepareQuads n=1",
		"PrepareQuads n=1",
		"PrepareQuads n=1",
		"BeginPass target=target load",
		"RenderQuads batch=0 n=1",
		// The fade layer's batch 1 is skipped here and replayed below.
		"RenderQuads batch=2 n=1",
		"EndPass",
		"CreateTexture compositor.fade.offscreen copyDst=false",
		"BeginPass target=compositor.fade.offscreen clear",
		"EndPass",
		"BeginPass target=compositor.fade.offscreen load",
		"RenderQuads batch=1 n=1",
		"EndPass",
		"RenderFade dir=0",
		"EndFrame",
		"Trim",
	})
}

func TestPresentBackdropBlur(t *testing.T) {
	r, e := newTestRenderer()
	r.Reset(Rect(0, 0, 800, 600))
	r.FillQuad(solidQuad(0, 0, 800, 600))
	r.DrawBackdropBlur(Rect(100, 100, 200, 200), 20, [4]float32{})
	r.StartPostBlurLayer(Rect(100, 100, 200, 200))
	r.FillQuad(solidQuad(120, 120, 40, 40))
	r.EndPostBlurLayer()

	if err := r.Present(testTarget(), nil, testViewport()); err != nil {
		t.Fatalf("Present: %v", err)
	}

	requireEvents(t, e.events, []string{
		"BeginFrame",
		"PrepareQuads n=1",
		"PrepareQuads n=1",
		"BeginPass target=target load",
		"RenderQuads batch=0 n=1",
		// The post-blur layer's batch 1 is skipped in the main pass.
		"EndPass",
		"CreateTexture compositor.blur.scene_copy copyDst=true",
		"CreateTexture compositor.blur.intermediate copyDst=false",
		"CopyTexture target->compositor.blur.scene_copy",
		"RenderBlur radius=20 passes=6",
		"BeginPass target=target load",
		"RenderQuads batch=1 n=1",
		"EndPass",
		"EndFrame",
		"Trim",
	})
}

func TestPresentBlurWithoutCopySupport(t *testing.T) {
	r, e := newTestRenderer()
	e.copyable = false
	r.Reset(Rect(0, 0, 800, 600))
	r.FillQuad(solidQuad(0, 0, 800, 600))
	r.DrawBackdropBlur(Rect(100, 100, 200, 200), 10, [4]float32{})
	r.StartPostBlurLayer(Rect(100, 100, 200, 200))
	r.FillQuad(solidQuad(120, 120, 40, 40))
	r.EndPostBlurLayer()

	if err := r.Present(testTarget(), nil, testViewport()); err != nil {
		t.Fatalf("Present: %v", err)
	}

	// The backdrop renders into the scene copy, blits back, and blurs
	// from the copy; the target is never the source of a copy.
	requireEvents(t, e.events, []string{
		"BeginFrame",
		"PrepareQuads n=1",
		"PrepareQuads n=1",
		"CreateTexture compositor.blur.scene_copy copyDst=true",
		"CreateTexture compositor.blur.intermediate copyDst=false",
		"BeginPass target=compositor.blur.scene_copy load",
		"RenderQuads batch=0 n=1",
		"EndPass",
		"BlitFull",
		"RenderBlur radius=10 passes=6",
		"BeginPass target=target load",
		"RenderQuads batch=1 n=1",
		"EndPass",
		"EndFrame",
		"Trim",
	})
}

func TestPresentBlurPassesFromSettings(t *testing.T) {
	e := newFakeEngine()
	settings := DefaultSettings()
	settings.BlurPasses = 2
	r := NewRenderer(e, settings)

	r.Reset(Rect(0, 0, 800, 600))
	r.DrawBackdropBlur(Rect(0, 0, 100, 100), 8, [4]float32{})
	if err := r.Present(testTarget(), nil, testViewport()); err != nil {
		t.Fatalf("Present: %v", err)
	}

	found := false
	for _, ev := range e.events {
		if ev == "RenderBlur radius=8 passes=2" {
			found = true
		}
	}
	if !found {
		t.Fatalf("blur pass count not taken from settings: %q", e.events)
	}
}

func TestFadeReplaySkipsCulledLayers(t *testing.T) {
	// A layer clipped fully outside the viewport is never prepared, so
	// replay batch numbering must not count it either.
	r, e := newTestRenderer()
	r.Reset(Rect(0, 0, 800, 600))
	r.StartLayer(Rect(-500, -500, 100, 100))
	r.FillQuad(solidQuad(-500, -500, 100, 100))
	r.EndLayer()
	r.StartGradientFade(Rect(0, 0, 400, 300), FadeLeftToRight, 0.7, 1)
	r.FillQuad(solidQuad(10, 10, 10, 10))
	r.EndGradientFade()

	if err := r.Present(testTarget(), nil, testViewport()); err != nil {
		t.Fatalf("Present: %v", err)
	}

	found := false
	for _, ev := range e.events {
		if ev == "RenderQuads batch=0 n=1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("fade replay misnumbered its batch: %q", e.events)
	}
}

func TestOpacityStack(t *testing.T) {
	r, _ := newTestRenderer()
	r.Reset(Rect(0, 0, 100, 100))

	r.StartOpacity(0.5)
	r.StartOpacity(0.5)
	r.FillQuad(Quad{Bounds: Rect(0, 0, 10, 10), Background: RGBA(1, 0, 0, 1)})
	r.EndOpacity()
	r.FillQuad(Quad{Bounds: Rect(0, 0, 10, 10), Background: RGBA(1, 0, 0, 1)})
	r.EndOpacity()
	r.EndOpacity()
	r.FillQuad(Quad{Bounds: Rect(0, 0, 10, 10), Background: RGBA(1, 0, 0, 1)})

	quads := r.Layers()[0].Quads
	if got := quads[0].Background.(Color).A; got != 0.25 {
		t.Errorf("nested opacity alpha = %v, want 0.25", got)
	}
	if got := quads[1].Background.(Color).A; got != 0.5 {
		t.Errorf("popped opacity alpha = %v, want 0.5", got)
	}
	// The base opacity of 1 never pops, even with unbalanced Ends.
	if got := quads[2].Background.(Color).A; got != 1 {
		t.Errorf("base opacity alpha = %v, want 1", got)
	}
}

func TestDrawTextDefaultSize(t *testing.T) {
	r, _ := newTestRenderer()
	r.Reset(Rect(0, 0, 100, 100))
	r.DrawText(TextRun{Bounds: Rect(0, 0, 50, 20), Glyphs: []Glyph{{ID: 1}}})

	run := r.Layers()[0].Text[0]
	if run.Size != DefaultSettings().DefaultTextSize {
		t.Errorf("Size = %v, want default %v", run.Size, DefaultSettings().DefaultTextSize)
	}
}

func TestPostBlurLayerExpandsClip(t *testing.T) {
	r, _ := newTestRenderer()
	r.Reset(Rect(0, 0, 800, 600))
	r.StartPostBlurLayer(Rect(200, 200, 100, 100))
	r.FillQuad(solidQuad(210, 210, 10, 10))
	r.EndPostBlurLayer()

	layers := r.Layers()
	got := layers[len(layers)-1].Bounds
	want := Rect(100, 100, 300, 300)
	if got != want {
		t.Errorf("post-blur clip = %+v, want %+v", got, want)
	}
}

func TestPresentReusesCachedTextures(t *testing.T) {
	r, e := newTestRenderer()
	for frame := 0; frame < 2; frame++ {
		r.Reset(Rect(0, 0, 800, 600))
		r.DrawBackdropBlur(Rect(0, 0, 100, 100), 4, [4]float32{})
		if err := r.Present(testTarget(), nil, testViewport()); err != nil {
			t.Fatalf("Present: %v", err)
		}
	}

	if len(e.created) != 2 {
		t.Errorf("created %d textures across two frames, want 2", len(e.created))
	}
}
