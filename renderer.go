package compositor

// shadowMargin expands a post-blur layer's clip so drop shadows that
// extend past the blur region still render. Content further out is
// clipped, but typical shadows (offset plus blur radius under 100
// logical pixels) fit.
const shadowMargin float32 = 100

// Renderer records primitives into layers and composites them into a
// frame. It is the package's main entry point: widgets call the
// recording methods between Reset and Present, the host calls Present
// once per frame.
//
// A Renderer is not safe for concurrent use.
type Renderer struct {
	engine   Engine
	settings Settings

	layers       *Stack
	opacityStack []float32
	scaleHint    float32

	fade FadeState
	blur BlurState

	blurCache blurTextureCache
	fadeCache fadeTextureCache
}

// NewRenderer creates a renderer over an engine. The engine receives
// the package logger and follows later SetLogger calls.
func NewRenderer(engine Engine, settings Settings) *Renderer {
	propagateLogger(engine)
	return &Renderer{
		engine:       engine,
		settings:     settings,
		layers:       NewStack(Rectangle{}),
		opacityStack: []float32{1},
	}
}

// Settings returns the renderer's settings.
func (r *Renderer) Settings() Settings {
	return r.settings
}

// Reset clears all recorded state for a new frame clipped to bounds.
func (r *Renderer) Reset(bounds Rectangle) {
	r.layers.Reset(bounds)
	r.opacityStack = append(r.opacityStack[:0], 1)
	r.fade.Clear()
	r.blur.Clear()
}

// StartLayer opens a clipped layer for subsequent primitives.
func (r *Renderer) StartLayer(bounds Rectangle) {
	r.layers.PushClip(bounds)
}

// EndLayer closes the clipped layer opened by the matching StartLayer.
func (r *Renderer) EndLayer() {
	r.layers.PopClip()
}

// StartTransformation composes t onto the recording transformation.
func (r *Renderer) StartTransformation(t Transformation) {
	r.layers.PushTransformation(t)
}

// EndTransformation restores the previous transformation.
func (r *Renderer) EndTransformation() {
	r.layers.PopTransformation()
}

// StartOpacity pushes a group opacity. Nested opacities multiply; the
// value is clamped to [0, 1].
func (r *Renderer) StartOpacity(opacity float32) {
	r.opacityStack = append(r.opacityStack, r.currentOpacity()*clamp01(opacity))
}

// EndOpacity pops the innermost group opacity. The base value 1 never
// pops.
func (r *Renderer) EndOpacity() {
	if len(r.opacityStack) > 1 {
		r.opacityStack = r.opacityStack[:len(r.opacityStack)-1]
	}
}

func (r *Renderer) currentOpacity() float32 {
	return r.opacityStack[len(r.opacityStack)-1]
}

// FillQuad records a quad, applying the current group opacity to its
// background, border and shadow.
func (r *Renderer) FillQuad(q Quad) {
	if o := r.currentOpacity(); o < 1 {
		q = q.scaleAlpha(o)
	}
	r.layers.DrawQuad(q)
}

// DrawText records a shaped text run with the current group opacity.
func (r *Renderer) DrawText(run TextRun) {
	if run.Size <= 0 {
		run.Size = r.settings.DefaultTextSize
	}
	if o := r.currentOpacity(); o < 1 {
		run = run.scaleAlpha(o)
	}
	r.layers.DrawText(run)
}

// DrawImage records an image with the current group opacity.
func (r *Renderer) DrawImage(img Image) {
	if o := r.currentOpacity(); o < 1 {
		img = img.scaleAlpha(o)
	}
	r.layers.DrawImage(img)
}

// DrawMesh records a triangle mesh with the current group opacity.
func (r *Renderer) DrawMesh(m Mesh) {
	if o := r.currentOpacity(); o < 1 {
		m = m.scaleAlpha(o)
	}
	r.layers.DrawMesh(m, r.layers.Transformation())
}

// StartGradientFade begins collecting layers that will composite back
// with a directional alpha ramp. The current layer flushes first so the
// fade range starts at a fresh absolute index. Starting a fade while
// one is open replaces it.
func (r *Renderer) StartGradientFade(bounds Rectangle, direction FadeDirection, fadeStart, fadeEnd float32) {
	r.layers.Flush()
	fade := NewGradientFade(bounds, direction).
		WithFadeStart(fadeStart).
		WithFadeEnd(fadeEnd)
	r.fade.Start(fade, r.layers.ActiveCount()-1)
}

// EndGradientFade completes the open fade over the layers recorded
// since StartGradientFade.
func (r *Renderer) EndGradientFade() {
	r.layers.Flush()
	r.fade.End(r.layers.ActiveCount() - 1)
}

// DrawBackdropBlur records a blur of everything rendered underneath
// bounds at the current layer depth.
func (r *Renderer) DrawBackdropBlur(bounds Rectangle, radius float32, borderRadius [4]float32) {
	r.layers.Flush()
	blur := NewBackdropBlur(bounds, radius).WithBorderRadius(borderRadius)
	r.blur.AddRegion(blur, r.layers.ActiveCount())
}

// StartPostBlurLayer opens a layer whose content renders on top of the
// blurred backdrop instead of underneath it. The clip expands by
// shadowMargin so drop shadows survive.
func (r *Renderer) StartPostBlurLayer(bounds Rectangle) {
	r.layers.PushClip(bounds.Expand(shadowMargin))
	r.blur.StartPostBlur(bounds, r.layers.ActiveCount()-1)
}

// EndPostBlurLayer closes the layer opened by StartPostBlurLayer.
func (r *Renderer) EndPostBlurLayer() {
	currentLayer := r.layers.ActiveCount() - 1
	r.layers.PopClip()
	r.blur.EndPostBlur(currentLayer + 1)
}

// ScaleFactorHint records the host's scale factor for callers that
// inspect it alongside the recording transformation's scale.
func (r *Renderer) ScaleFactorHint(f float32) {
	r.scaleHint = f
}

// ScaleFactor returns the hinted scale factor combined with the current
// transformation scale, or 0 when no hint was given.
func (r *Renderer) ScaleFactor() float32 {
	if r.scaleHint == 0 {
		return 0
	}
	return r.scaleHint * r.layers.Transformation().Scale
}

// Layers exposes the recorded layers for inspection, valid until the
// next Reset.
func (r *Renderer) Layers() []Layer {
	return r.layers.Layers()
}

// Present composites the recorded frame onto target. A non-nil clear
// color clears the target first; nil loads its existing contents.
//
// When blur regions exist but the target cannot be the source of a
// texture copy (swapchain images on some platforms), the frame renders
// into the scene-copy texture instead and blits back, so blur still
// sees the backdrop.
func (r *Renderer) Present(target Texture, clear *Color, viewport Viewport) error {
	r.engine.BeginFrame()
	r.prepare(viewport)
	if r.blur.HasRegions() && !r.engine.CanCopy(target) {
		r.renderWithOffscreenBlur(target, clear, viewport)
	} else {
		r.render(target, clear, viewport)
		r.applyBackdropBlurs(target, viewport)
	}
	r.applyGradientFades(target, viewport)
	err := r.engine.EndFrame()
	r.engine.Trim()
	return err
}

// prepare uploads every layer's batches. Layers merge only when no
// blur state references absolute indices; merging renumbers layers,
// which would silently corrupt blur and post-blur bookkeeping.
func (r *Renderer) prepare(viewport Viewport) {
	if r.blur.HasRegions() || r.blur.HasPostBlurContent() {
		r.layers.Flush()
	} else {
		r.layers.Merge()
	}

	scaleFactor := viewport.ScaleFactor()
	projection := viewport.Projection()
	physicalBounds := RectWithSize(Size{
		Width:  float32(viewport.PhysicalWidth()),
		Height: float32(viewport.PhysicalHeight()),
	})

	for i := range r.layers.Layers() {
		layer := &r.layers.Layers()[i]
		if _, _, ok := visibleClip(layer, physicalBounds, scaleFactor); !ok {
			continue
		}
		if len(layer.Quads) > 0 {
			r.engine.PrepareQuads(layer.Quads, projection, scaleFactor)
		}
		if len(layer.Meshes) > 0 {
			r.engine.PrepareMeshes(layer.Meshes, projection, scaleFactor)
		}
		if len(layer.Images) > 0 {
			r.engine.PrepareImages(layer.Images, projection, scaleFactor)
		}
		if len(layer.Text) > 0 {
			r.engine.PrepareText(layer.Text, layer.Bounds, projection, scaleFactor)
		}
	}
}

// visibleClip intersects a layer's scaled bounds with the physical
// frame. Layers failing this test were never prepared, so callers must
// not advance batch counters for them.
func visibleClip(layer *Layer, physical Rectangle, scaleFactor float32) (Rectangle, ScissorRect, bool) {
	clip, ok := physical.Intersection(layer.Bounds.Scale(scaleFactor))
	if !ok {
		return Rectangle{}, ScissorRect{}, false
	}
	scissor := clip.Snap()
	if scissor.IsEmpty() {
		return Rectangle{}, ScissorRect{}, false
	}
	return clip, scissor, true
}

// batchCounters track per-kind batch indices across the layer walk.
// Skipped layers still advance them so replay passes address the same
// prepared batches the main pass would have. Only layers that passed
// visibleClip may be skipped; culled layers were never prepared.
type batchCounters struct {
	quads  int
	meshes int
	text   int
	images int
}

// skip advances the counters for a layer without drawing it. Meshes
// deliberately stay put: mesh batches are consumed only where drawn.
func (c *batchCounters) skip(layer *Layer) {
	if len(layer.Quads) > 0 {
		c.quads++
	}
	c.text += len(layer.Text)
	if len(layer.Images) > 0 {
		c.images++
	}
}

// render walks the layers in order and draws every layer that is not
// claimed by a fade region or a post-blur range; claimed layers render
// later in their compositing pass but still advance the counters.
func (r *Renderer) render(target Texture, clear *Color, viewport Viewport) {
	pass := r.engine.BeginPass(target, clear)

	var c batchCounters
	scaleFactor := viewport.ScaleFactor()
	physicalBounds := RectWithSize(Size{
		Width:  float32(viewport.PhysicalWidth()),
		Height: float32(viewport.PhysicalHeight()),
	})

	layers := r.layers.Layers()
	for idx := range layers {
		layer := &layers[idx]

		clip, scissor, ok := visibleClip(layer, physicalBounds, scaleFactor)
		if !ok {
			continue
		}
		if r.fade.IsLayerInFadeRegion(idx) || r.blur.IsLayerInPostBlur(idx) {
			c.skip(layer)
			continue
		}

		if len(layer.Quads) > 0 {
			r.engine.RenderQuads(pass, c.quads, scissor, layer.Quads)
			c.quads++
		}
		if len(layer.Meshes) > 0 {
			pass.End()
			c.meshes += r.engine.RenderMeshes(target, c.meshes, clip, layer.Meshes, scaleFactor)
			pass = r.engine.BeginPass(target, nil)
		}
		if len(layer.Images) > 0 {
			r.engine.RenderImages(pass, c.images, scissor)
			c.images++
		}
		if len(layer.Text) > 0 {
			c.text += r.engine.RenderText(pass, c.text, scissor, layer.Text)
		}
	}

	pass.End()
}

// applyBackdropBlurs captures the frame target, blurs each recorded
// region back onto it, then replays post-blur layers on top.
func (r *Renderer) applyBackdropBlurs(target Texture, viewport Viewport) {
	regions := r.blur.TakeRegions()
	if len(regions) == 0 {
		return
	}
	postBlur := r.blur.TakePostBlurContent()

	sceneCopy, intermediate, err := r.blurCache.get(r.engine, viewport.PhysicalWidth(), viewport.PhysicalHeight())
	if err != nil {
		Logger().Warn("backdrop blur skipped", "err", err)
		return
	}

	// The main pass skipped post-blur layers, so the target holds only
	// the backdrop here.
	r.engine.CopyTexture(target, sceneCopy)

	for _, region := range regions {
		r.engine.RenderBlur(sceneCopy, intermediate, target, region.Blur, viewport, r.settings.BlurPasses)
	}

	if len(postBlur) > 0 {
		r.renderPostBlurLayers(target, viewport, postBlur)
	}
}

// renderWithOffscreenBlur renders the backdrop into the scene-copy
// texture, blits it onto target, then blurs each region from the copy.
// Used when target cannot be the source of a texture copy.
func (r *Renderer) renderWithOffscreenBlur(target Texture, clear *Color, viewport Viewport) {
	sceneCopy, intermediate, err := r.blurCache.get(r.engine, viewport.PhysicalWidth(), viewport.PhysicalHeight())
	if err != nil {
		Logger().Warn("backdrop blur skipped", "err", err)
		r.blur.TakeRegions()
		r.blur.TakePostBlurContent()
		r.render(target, clear, viewport)
		return
	}

	r.render(sceneCopy, clear, viewport)

	regions := r.blur.TakeRegions()
	postBlur := r.blur.TakePostBlurContent()

	r.engine.BlitFull(sceneCopy, target)
	for _, region := range regions {
		r.engine.RenderBlur(sceneCopy, intermediate, target, region.Blur, viewport, r.settings.BlurPasses)
	}

	if len(postBlur) > 0 {
		r.renderPostBlurLayers(target, viewport, postBlur)
	}
}

// renderPostBlurLayers replays the layers inside post-blur ranges on
// top of the blurred backdrop, recomputing batch indices from scratch
// so they line up with what prepare uploaded.
func (r *Renderer) renderPostBlurLayers(target Texture, viewport Viewport, content []PostBlurRange) {
	scaleFactor := viewport.ScaleFactor()
	physicalBounds := RectWithSize(Size{
		Width:  float32(viewport.PhysicalWidth()),
		Height: float32(viewport.PhysicalHeight()),
	})

	pass := r.engine.BeginPass(target, nil)

	var c batchCounters
	layers := r.layers.Layers()
	for idx := range layers {
		layer := &layers[idx]

		clip, scissor, ok := visibleClip(layer, physicalBounds, scaleFactor)
		if !ok {
			continue
		}

		inRange := false
		for _, pb := range content {
			if idx >= pb.StartLayer && idx < pb.EndLayer {
				inRange = true
				break
			}
		}
		if !inRange {
			c.skip(layer)
			continue
		}

		if len(layer.Quads) > 0 {
			r.engine.RenderQuads(pass, c.quads, scissor, layer.Quads)
			c.quads++
		}
		if len(layer.Meshes) > 0 {
			pass.End()
			c.meshes += r.engine.RenderMeshes(target, c.meshes, clip, layer.Meshes, scaleFactor)
			pass = r.engine.BeginPass(target, nil)
		}
		if len(layer.Text) > 0 {
			c.text += r.engine.RenderText(pass, c.text, scissor, layer.Text)
		}
		if len(layer.Images) > 0 {
			r.engine.RenderImages(pass, c.images, scissor)
			c.images++
		}
	}

	pass.End()
}

// applyGradientFades replays each fade region's layers into a shared
// offscreen texture and composites it back with the region's alpha
// ramp.
func (r *Renderer) applyGradientFades(target Texture, viewport Viewport) {
	regions := r.fade.TakeRegions()
	if len(regions) == 0 {
		return
	}

	offscreen, err := r.fadeCache.get(r.engine, viewport.PhysicalWidth(), viewport.PhysicalHeight())
	if err != nil {
		Logger().Warn("gradient fade skipped", "err", err)
		return
	}

	scaleFactor := viewport.ScaleFactor()
	physicalBounds := RectWithSize(Size{
		Width:  float32(viewport.PhysicalWidth()),
		Height: float32(viewport.PhysicalHeight()),
	})
	layers := r.layers.Layers()

	for _, region := range regions {
		clearPass := r.engine.BeginPass(offscreen, &Transparent)
		clearPass.End()

		endIdx := min(region.EndLayer, len(layers))
		startIdx := min(region.StartLayer, endIdx)

		// Batch indices restart from the count of everything prepared
		// before the fade range, matching the main pass numbering.
		var c batchCounters
		for i := 0; i < startIdx; i++ {
			if _, _, ok := visibleClip(&layers[i], physicalBounds, scaleFactor); ok {
				c.skip(&layers[i])
			}
		}

		pass := r.engine.BeginPass(offscreen, nil)
		for idx := startIdx; idx < endIdx; idx++ {
			layer := &layers[idx]

			_, scissor, ok := visibleClip(layer, physicalBounds, scaleFactor)
			if !ok {
				continue
			}

			if len(layer.Quads) > 0 {
				r.engine.RenderQuads(pass, c.quads, scissor, layer.Quads)
				c.quads++
			}
			if len(layer.Images) > 0 {
				r.engine.RenderImages(pass, c.images, scissor)
				c.images++
			}
			if len(layer.Text) > 0 {
				c.text += r.engine.RenderText(pass, c.text, scissor, layer.Text)
			}
		}
		pass.End()

		r.engine.RenderFade(offscreen, target, region.Fade, viewport)
	}
}
