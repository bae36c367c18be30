//go:build !nogpu

// Package gpu exposes the HAL-backed engine implementation.
//
// The engine lives in an internal package; this package re-exports the
// constructors and the types hosts need to wire a window system or an
// offscreen target to the compositor:
//
//	engine, err := gpu.NewHeadless()
//	if err != nil { ... }
//	renderer := compositor.NewRenderer(engine, compositor.DefaultSettings())
//
// Hosts that already hold a GPU device, such as a gpucontext.Context,
// hand it over instead of opening a second one:
//
//	engine, err := gpu.NewEngineWithProvider(ctx, gputypes.TextureFormatBGRA8Unorm)
package gpu

import (
	"image"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	compositor "github.com/gogpu/compositor"
	gpuimpl "github.com/gogpu/compositor/internal/gpu"
)

// Engine is the HAL-backed compositor engine.
type Engine = gpuimpl.Engine

// Texture is the engine's texture handle.
type Texture = gpuimpl.Texture

// GlyphInfo locates a glyph in the atlas uploaded through
// Engine.UploadGlyphAtlas.
type GlyphInfo = gpuimpl.GlyphInfo

// NewEngine builds an engine on an already opened HAL device and
// queue, targeting the given color format.
func NewEngine(device hal.Device, queue hal.Queue, format gputypes.TextureFormat) (*Engine, error) {
	return gpuimpl.NewEngine(device, queue, format)
}

// NewEngineWithProvider builds an engine on a host-owned device. The
// provider must also expose HalDevice() any and HalQueue() any
// returning hal types, the way gogpu contexts do.
func NewEngineWithProvider(provider gpucontext.DeviceProvider, format gputypes.TextureFormat) (*Engine, error) {
	return gpuimpl.NewEngineFromProvider(provider, format)
}

// NewHeadless opens its own device, preferring a discrete GPU.
// Returns an error wrapping compositor.ErrNoAdapter when no GPU is
// available.
func NewHeadless() (*Engine, error) {
	return gpuimpl.NewHeadless()
}

// WrapTarget wraps a host-provided texture view, typically the
// current swapchain image, as a frame target. sampleable declares
// whether the view can be sampled, which backdrop blur needs.
func WrapTarget(tex hal.Texture, view hal.TextureView, width, height uint32, sampleable bool) *Texture {
	return gpuimpl.WrapTarget(tex, view, width, height, sampleable)
}

// UploadImage is a convenience wrapper for engine.UploadImage.
func UploadImage(engine *Engine, handle compositor.ImageHandle, img image.Image) error {
	return engine.UploadImage(handle, img)
}
