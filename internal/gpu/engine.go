//go:build !nogpu

package gpu

import (
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	compositor "github.com/gogpu/compositor"
)

// frameTimeout bounds how long EndFrame waits for the GPU.
const frameTimeout = 5 * time.Second

// deviceProvider is the structural interface a host context exposes to
// hand over its HAL device and queue. gogpu/gpucontext's Context
// satisfies it.
type deviceProvider interface {
	HalDevice() any
	HalQueue() any
}

// Engine renders prepared primitive batches through gogpu/wgpu's HAL.
// It implements the compositor.Engine interface.
//
// All methods must be called from the thread driving the frame; the
// engine serializes nothing itself.
type Engine struct {
	device hal.Device
	queue  hal.Queue
	format gputypes.TextureFormat

	// instance is only held when the engine opened the device itself.
	instance   hal.Instance
	ownsDevice bool

	quads  *quadPipeline
	meshes *meshPipeline
	text   *textPipeline
	images *imagePipeline
	blur   *blurPipeline
	fade   *fadePipeline

	encoder  hal.CommandEncoder
	encoding bool
	// frameErr holds the first recording error; EndFrame reports it.
	frameErr error
}

// NewEngine builds an engine on an already opened device and queue.
func NewEngine(device hal.Device, queue hal.Queue, format gputypes.TextureFormat) (*Engine, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("gpu: nil device or queue")
	}
	e := &Engine{device: device, queue: queue, format: format}
	if err := e.initPipelines(); err != nil {
		e.Destroy()
		return nil, err
	}
	return e, nil
}

// NewEngineFromProvider builds an engine from a host context that
// exposes its HAL device and queue, such as gpucontext.Context.
func NewEngineFromProvider(provider any, format gputypes.TextureFormat) (*Engine, error) {
	p, ok := provider.(deviceProvider)
	if !ok {
		return nil, fmt.Errorf("gpu: provider %T exposes no HAL device", provider)
	}
	device, ok := p.HalDevice().(hal.Device)
	if !ok {
		return nil, fmt.Errorf("gpu: provider device is %T, not hal.Device", p.HalDevice())
	}
	queue, ok := p.HalQueue().(hal.Queue)
	if !ok {
		return nil, fmt.Errorf("gpu: provider queue is %T, not hal.Queue", p.HalQueue())
	}
	return NewEngine(device, queue, format)
}

// NewHeadless opens its own device on the Vulkan backend, preferring
// a discrete GPU. Returns compositor.ErrNoAdapter when no adapter can
// be opened.
func NewHeadless() (*Engine, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan backend unavailable", compositor.ErrNoAdapter)
	}

	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("%w: create instance: %v", compositor.ErrNoAdapter, err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%w: no adapters enumerated", compositor.ErrNoAdapter)
	}

	selected := adapters[0]
	for _, a := range adapters {
		if a.Info.DeviceType == gputypes.DeviceTypeDiscreteGPU {
			selected = a
			break
		}
		if a.Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = a
		}
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("%w: open adapter: %v", compositor.ErrNoAdapter, err)
	}

	slogger().Info("GPU adapter selected",
		"name", selected.Info.Name,
		"type", selected.Info.DeviceType)

	e := &Engine{
		device:     openDev.Device,
		queue:      openDev.Queue,
		format:     gputypes.TextureFormatBGRA8Unorm,
		instance:   instance,
		ownsDevice: true,
	}
	if err := e.initPipelines(); err != nil {
		e.Destroy()
		return nil, err
	}
	return e, nil
}

func (e *Engine) initPipelines() error {
	var err error
	if e.quads, err = newQuadPipeline(e.device, e.queue, e.format); err != nil {
		return err
	}
	if e.meshes, err = newMeshPipeline(e.device, e.queue, e.format); err != nil {
		return err
	}
	if e.text, err = newTextPipeline(e.device, e.queue, e.format); err != nil {
		return err
	}
	if e.images, err = newImagePipeline(e.device, e.queue, e.format); err != nil {
		return err
	}
	if e.blur, err = newBlurPipeline(e.device, e.queue, e.format); err != nil {
		return err
	}
	if e.fade, err = newFadePipeline(e.device, e.queue, e.format); err != nil {
		return err
	}
	return nil
}

// SetLogger routes the package logger; compositor.SetLogger calls it
// through the loggerSetter registration.
func (e *Engine) SetLogger(l *slog.Logger) { setLogger(l) }

// Format returns the color format the engine's pipelines target.
func (e *Engine) Format() gputypes.TextureFormat { return e.format }

// UploadGlyphAtlas installs the glyph atlas text runs resolve against.
// Shaping and rasterization happen in the host; the atlas must be a
// square image.
func (e *Engine) UploadGlyphAtlas(img image.Image, glyphs map[uint64]GlyphInfo) error {
	return e.text.setAtlas(img, glyphs)
}

// UploadImage installs or replaces the pixels behind an image handle.
func (e *Engine) UploadImage(handle compositor.ImageHandle, img image.Image) error {
	return e.images.upload(handle, img)
}

// record saves the first error of the frame.
func (e *Engine) record(err error) {
	if err != nil && e.frameErr == nil {
		e.frameErr = err
	}
}

// BeginFrame implements compositor.Engine.
func (e *Engine) BeginFrame() {
	e.frameErr = nil

	encoder, err := e.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "compositor.frame",
	})
	if err != nil {
		e.record(fmt.Errorf("create command encoder: %w", err))
		return
	}
	if err := encoder.BeginEncoding("compositor.frame"); err != nil {
		e.record(fmt.Errorf("begin encoding: %w", err))
		return
	}
	e.encoder = encoder
	e.encoding = true

	e.quads.beginFrame()
	e.meshes.beginFrame()
	e.text.beginFrame()
	e.images.beginFrame()
}

// EndFrame implements compositor.Engine. It submits the recorded
// commands and blocks until the GPU signals completion, then releases
// the frame's transient resources.
func (e *Engine) EndFrame() error {
	if !e.encoding {
		if e.frameErr != nil {
			return e.frameErr
		}
		return fmt.Errorf("gpu: EndFrame without BeginFrame")
	}
	e.encoding = false

	if e.frameErr != nil {
		e.encoder.DiscardEncoding()
		e.encoder = nil
		e.releaseFrameResources()
		return e.frameErr
	}

	cmdBuf, err := e.encoder.EndEncoding()
	if err != nil {
		e.encoder = nil
		e.releaseFrameResources()
		return fmt.Errorf("end encoding: %w", err)
	}

	fence, err := e.device.CreateFence()
	if err != nil {
		e.device.FreeCommandBuffer(cmdBuf)
		e.encoder = nil
		e.releaseFrameResources()
		return fmt.Errorf("create fence: %w", err)
	}

	err = e.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1)
	if err != nil {
		e.device.DestroyFence(fence)
		e.device.FreeCommandBuffer(cmdBuf)
		e.encoder = nil
		e.releaseFrameResources()
		return fmt.Errorf("submit frame: %w", err)
	}

	done, err := e.device.Wait(fence, 1, frameTimeout)
	e.device.DestroyFence(fence)
	e.device.FreeCommandBuffer(cmdBuf)
	e.encoder = nil
	e.releaseFrameResources()
	if err != nil {
		return fmt.Errorf("wait for frame: %w", err)
	}
	if !done {
		return fmt.Errorf("gpu: frame timed out after %v", frameTimeout)
	}
	return nil
}

func (e *Engine) releaseFrameResources() {
	e.meshes.releaseFrameResources()
	e.blur.releaseFrameResources()
	e.fade.releaseFrameResources()
}

// PrepareQuads implements compositor.Engine.
func (e *Engine) PrepareQuads(quads []compositor.Quad, projection [16]float32, scaleFactor float32) {
	e.quads.prepare(quads, projection, scaleFactor)
}

// PrepareMeshes implements compositor.Engine.
func (e *Engine) PrepareMeshes(meshes []compositor.Mesh, projection [16]float32, scaleFactor float32) {
	e.meshes.prepare(meshes, projection, scaleFactor)
}

// PrepareText implements compositor.Engine.
func (e *Engine) PrepareText(runs []compositor.TextRun, bounds compositor.Rectangle, projection [16]float32, scaleFactor float32) {
	e.text.prepare(runs, bounds, projection, scaleFactor)
}

// PrepareImages implements compositor.Engine.
func (e *Engine) PrepareImages(images []compositor.Image, projection [16]float32, scaleFactor float32) {
	e.images.prepare(images, projection, scaleFactor)
}

// renderPass wraps a HAL pass encoder as a compositor.RenderPass.
type renderPass struct {
	enc hal.RenderPassEncoder
}

func (p *renderPass) SetScissor(r compositor.ScissorRect) {
	p.enc.SetScissorRect(r.X, r.Y, r.Width, r.Height)
}

func (p *renderPass) End() { p.enc.End() }

// BeginPass implements compositor.Engine.
func (e *Engine) BeginPass(target compositor.Texture, clear *compositor.Color) compositor.RenderPass {
	t, ok := target.(*Texture)
	if !ok || !e.encoding {
		return &nopPass{}
	}

	attachment := hal.RenderPassColorAttachment{
		View:    t.view,
		LoadOp:  gputypes.LoadOpLoad,
		StoreOp: gputypes.StoreOpStore,
	}
	if clear != nil {
		attachment.LoadOp = gputypes.LoadOpClear
		attachment.ClearValue = gputypes.Color{
			R: float64(clear.R),
			G: float64(clear.G),
			B: float64(clear.B),
			A: float64(clear.A),
		}
	}

	enc := e.encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label:            "compositor.layer_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{attachment},
	})
	return &renderPass{enc: enc}
}

// nopPass absorbs draws after a recording error so callers need no
// nil checks.
type nopPass struct{}

func (*nopPass) SetScissor(compositor.ScissorRect) {}
func (*nopPass) End()                              {}

// RenderQuads implements compositor.Engine.
func (e *Engine) RenderQuads(pass compositor.RenderPass, batch int, scissor compositor.ScissorRect, quads []compositor.Quad) {
	rp, ok := pass.(*renderPass)
	if !ok {
		return
	}
	e.quads.render(rp.enc, batch, scissor)
}

// RenderMeshes implements compositor.Engine. Meshes draw in their own
// pass; the caller has ended the surrounding one.
func (e *Engine) RenderMeshes(target compositor.Texture, batch int, clip compositor.Rectangle, meshes []compositor.Mesh, scaleFactor float32) int {
	t, ok := target.(*Texture)
	if !ok || !e.encoding {
		return 1
	}
	if err := e.meshes.render(e.encoder, t.view, batch, clip); err != nil {
		e.record(err)
	}
	return 1
}

// RenderText implements compositor.Engine.
func (e *Engine) RenderText(pass compositor.RenderPass, firstGroup int, scissor compositor.ScissorRect, runs []compositor.TextRun) int {
	rp, ok := pass.(*renderPass)
	if !ok {
		return len(runs)
	}
	return e.text.render(rp.enc, firstGroup, len(runs), scissor)
}

// RenderImages implements compositor.Engine.
func (e *Engine) RenderImages(pass compositor.RenderPass, batch int, scissor compositor.ScissorRect) {
	rp, ok := pass.(*renderPass)
	if !ok {
		return
	}
	e.images.render(rp.enc, batch, scissor)
}

// CreateTexture implements compositor.Engine.
func (e *Engine) CreateTexture(label string, width, height uint32, copyDst bool) (compositor.Texture, error) {
	return e.createTexture(label, width, height, copyDst)
}

// DestroyTexture implements compositor.Engine.
func (e *Engine) DestroyTexture(t compositor.Texture) {
	if tex, ok := t.(*Texture); ok {
		e.destroyTexture(tex)
	}
}

// CanCopy implements compositor.Engine. A texture can be the source
// of a copy when it carries a sampleable view; wrapped swapchain
// targets typically cannot.
func (e *Engine) CanCopy(target compositor.Texture) bool {
	t, ok := target.(*Texture)
	return ok && t.sampleable && t.view != nil
}

// CopyTexture implements compositor.Engine. The copy runs as a
// full-target blit through the blur shader with zero radius, which
// avoids needing copy usage bits on either texture.
func (e *Engine) CopyTexture(src, dst compositor.Texture) {
	s, okS := src.(*Texture)
	d, okD := dst.(*Texture)
	if !okS || !okD || !e.encoding {
		return
	}
	e.record(e.blur.blitFull(e.encoder, s.view, d.view, d.width, d.height))
}

// RenderBlur implements compositor.Engine.
func (e *Engine) RenderBlur(source, intermediate, target compositor.Texture, blur compositor.BackdropBlur, viewport compositor.Viewport, passes int) {
	s, okS := source.(*Texture)
	i, okI := intermediate.(*Texture)
	t, okT := target.(*Texture)
	if !okS || !okI || !okT || !e.encoding {
		return
	}
	e.record(e.blur.render(e.encoder, s.view, i.view, t.view, blur, viewport, passes))
}

// BlitFull implements compositor.Engine.
func (e *Engine) BlitFull(source, target compositor.Texture) {
	s, okS := source.(*Texture)
	t, okT := target.(*Texture)
	if !okS || !okT || !e.encoding {
		return
	}
	e.record(e.blur.blitFull(e.encoder, s.view, t.view, t.width, t.height))
}

// BlitRegion implements compositor.Engine.
func (e *Engine) BlitRegion(source, target compositor.Texture, region compositor.Rectangle, viewport compositor.Viewport) {
	s, okS := source.(*Texture)
	t, okT := target.(*Texture)
	if !okS || !okT || !e.encoding {
		return
	}
	e.record(e.blur.blitRegion(e.encoder, s.view, t.view, region, viewport))
}

// RenderFade implements compositor.Engine.
func (e *Engine) RenderFade(source, target compositor.Texture, fade compositor.GradientFade, viewport compositor.Viewport) {
	s, okS := source.(*Texture)
	t, okT := target.(*Texture)
	if !okS || !okT || !e.encoding {
		return
	}
	e.record(e.fade.render(e.encoder, s.view, t.view, fade, viewport))
}

// Trim implements compositor.Engine.
func (e *Engine) Trim() {
	e.quads.trim()
	e.meshes.trim()
	e.text.trim()
	e.images.trim()
}

// Destroy releases every GPU resource the engine holds. The engine
// must not be used afterwards.
func (e *Engine) Destroy() {
	if e.fade != nil {
		e.fade.destroy()
		e.fade = nil
	}
	if e.blur != nil {
		e.blur.destroy()
		e.blur = nil
	}
	if e.images != nil {
		e.images.destroy()
		e.images = nil
	}
	if e.text != nil {
		e.text.destroy()
		e.text = nil
	}
	if e.meshes != nil {
		e.meshes.destroy()
		e.meshes = nil
	}
	if e.quads != nil {
		e.quads.destroy()
		e.quads = nil
	}
	if e.ownsDevice {
		if e.device != nil {
			e.device.Destroy()
			e.device = nil
		}
		if e.instance != nil {
			e.instance.Destroy()
			e.instance = nil
		}
	}
}
