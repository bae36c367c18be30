// Package compositor implements a retained-mode GPU compositing core
// for the GoGPU ecosystem.
//
// # Overview
//
// Widgets record primitives (quads, text runs, images, meshes) into a
// stack of clipped layers. A Renderer batches the recorded primitives,
// draws them through GPU pipelines, and applies two compositing effects
// on top of the ordinary layer pass:
//
//   - Backdrop blur: a region of whatever is already on the frame target
//     is blurred in place using three box-blur passes per axis, with
//     optional rounded-corner masking on the final pass.
//   - Gradient fade: a range of layers is rendered into an offscreen
//     texture and composited back with a directional alpha ramp.
//
// # Collaborators
//
// The package deliberately stops at the compositing boundary. Text
// arrives as positioned glyph runs from an external shaper, images
// arrive decoded with a stable handle, and the host supplies the frame
// target (or a shared GPU device via gpucontext). Surface and swapchain
// management stay with the windowing layer.
//
// # GPU backend
//
// The default Engine implementation runs on gogpu/wgpu's HAL with WGSL
// shaders compiled through gogpu/naga. Construct it through the gpu
// sub-package: gpu.NewEngine (caller-owned device), gpu.NewHeadless
// (self-acquired adapter), or gpu.NewEngineWithProvider (shared device
// from a gpucontext.DeviceProvider).
//
// # Coordinate System
//
// Logical coordinates with origin at top-left, X right, Y down, angles
// in radians. The Viewport converts logical to physical pixels via its
// scale factor; scissor rectangles snap to physical pixels.
package compositor
