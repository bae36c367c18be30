package compositor

import "errors"

// ErrNoAdapter is returned by engine constructors when no usable GPU
// adapter can be opened.
var ErrNoAdapter = errors.New("compositor: no usable GPU adapter")

// Texture is an engine-owned color texture. The frame target and every
// cached offscreen texture pass through this interface; the engine
// asserts its own concrete type back out.
type Texture interface {
	Width() uint32
	Height() uint32
}

// RenderPass records draws into one color attachment. Passes come from
// Engine.BeginPass and must be ended before the next pass begins.
type RenderPass interface {
	SetScissor(r ScissorRect)
	End()
}

// Engine is the GPU backend behind a Renderer. The default
// implementation lives in internal/gpu on gogpu/wgpu's HAL; tests use a
// recording fake.
//
// All methods between BeginFrame and EndFrame record into one command
// stream submitted by EndFrame.
type Engine interface {
	BeginFrame()
	// EndFrame submits the recorded frame and blocks until the GPU
	// accepts it.
	EndFrame() error

	// Prepare methods upload one layer's batch, appending an internal
	// batch the matching Render method addresses by index.
	PrepareQuads(quads []Quad, projection [16]float32, scaleFactor float32)
	PrepareMeshes(meshes []Mesh, projection [16]float32, scaleFactor float32)
	PrepareText(runs []TextRun, bounds Rectangle, projection [16]float32, scaleFactor float32)
	PrepareImages(images []Image, projection [16]float32, scaleFactor float32)

	// BeginPass starts a pass on target. A nil clear color loads the
	// existing contents.
	BeginPass(target Texture, clear *Color) RenderPass

	// RenderQuads draws the prepared quad batch at the given index. The
	// quads slice is the one handed to PrepareQuads; the engine uses it
	// to split solid from gradient instances.
	RenderQuads(pass RenderPass, batch int, scissor ScissorRect, quads []Quad)
	// RenderMeshes draws outside the surrounding pass (the caller ends
	// it first), scissored to the physical clip rectangle, and returns
	// the number of mesh batches consumed.
	RenderMeshes(target Texture, batch int, clip Rectangle, meshes []Mesh, scaleFactor float32) int
	// RenderText draws the prepared groups for runs starting at
	// firstGroup and returns how many groups it consumed. PrepareText
	// creates one group per run.
	RenderText(pass RenderPass, firstGroup int, scissor ScissorRect, runs []TextRun) int
	RenderImages(pass RenderPass, batch int, scissor ScissorRect)

	// CreateTexture allocates a render-attachment texture that can also
	// be sampled. copyDst additionally allows copy-into, which the blur
	// scene copy needs.
	CreateTexture(label string, width, height uint32, copyDst bool) (Texture, error)
	DestroyTexture(t Texture)

	// CanCopy reports whether target supports being the source of a
	// texture copy. Swapchain targets on some platforms cannot.
	CanCopy(target Texture) bool
	CopyTexture(src, dst Texture)

	// RenderBlur runs the ping-pong blur of blur.Bounds from source
	// through intermediate onto target, passes box passes in total.
	RenderBlur(source, intermediate, target Texture, blur BackdropBlur, viewport Viewport, passes int)
	// BlitFull copies source onto target through the blur pipeline with
	// zero radius.
	BlitFull(source, target Texture)
	// BlitRegion copies one region of source onto target.
	BlitRegion(source, target Texture, region Rectangle, viewport Viewport)

	// RenderFade composites source onto target with fade's alpha ramp,
	// premultiplied-alpha blending, loading target contents.
	RenderFade(source, target Texture, fade GradientFade, viewport Viewport)

	// Trim releases per-frame staging resources after present.
	Trim()
}
