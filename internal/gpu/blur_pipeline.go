//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	compositor "github.com/gogpu/compositor"
)

// blurUniforms is the 64-byte uniform block consumed by blur.wgsl.
//
//	quad_bounds:   expanded quad in normalized coordinates
//	clip_bounds:   original region for the rounded clip
//	params:        radius, direction (0=H 1=V), texture width, texture height
//	border_radius: corner radii in physical pixels
type blurUniforms struct {
	quadBounds   [4]float32
	clipBounds   [4]float32
	params       [4]float32
	borderRadius [4]float32
}

func (u *blurUniforms) bytes() []byte {
	buf := make([]byte, 64)
	for i, v := range u.quadBounds {
		putF32(buf, i*4, v)
	}
	for i, v := range u.clipBounds {
		putF32(buf, 16+i*4, v)
	}
	for i, v := range u.params {
		putF32(buf, 32+i*4, v)
	}
	for i, v := range u.borderRadius {
		putF32(buf, 48+i*4, v)
	}
	return buf
}

// blurPipeline runs the separable box blur. A full blur is three box
// blurs, each split into a horizontal and a vertical pass, ping-ponged
// between the scene copy and an intermediate texture. The same shader
// with radius zero doubles as a plain blit.
type blurPipeline struct {
	device hal.Device
	queue  hal.Queue

	shader   hal.ShaderModule
	sampler  hal.Sampler
	pipeline hal.RenderPipeline
	// pipelineBlend applies alpha blending, used on the final pass
	// when the region has rounded corners.
	pipelineBlend  hal.RenderPipeline
	layout         hal.PipelineLayout
	constantLayout hal.BindGroupLayout
	textureLayout  hal.BindGroupLayout

	// transient uniform buffers and bind groups, released at frame end
	frameUniforms []*uniformBuffer
	frameBinds    []hal.BindGroup
}

func newBlurPipeline(device hal.Device, queue hal.Queue, format gputypes.TextureFormat) (*blurPipeline, error) {
	p := &blurPipeline{device: device, queue: queue}

	shader, err := compileShader(device, "compositor.blur.shader", blurShaderSource)
	if err != nil {
		return nil, err
	}
	p.shader = shader

	sampler, err := device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "compositor.blur.sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		p.destroy()
		return nil, fmt.Errorf("create blur sampler: %w", err)
	}
	p.sampler = sampler

	constantLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "compositor.blur.constant_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		p.destroy()
		return nil, fmt.Errorf("create blur constant layout: %w", err)
	}
	p.constantLayout = constantLayout

	textureLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "compositor.blur.texture_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
		},
	})
	if err != nil {
		p.destroy()
		return nil, fmt.Errorf("create blur texture layout: %w", err)
	}
	p.textureLayout = textureLayout

	layout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "compositor.blur.pipeline_layout",
		BindGroupLayouts: []hal.BindGroupLayout{constantLayout, textureLayout},
	})
	if err != nil {
		p.destroy()
		return nil, fmt.Errorf("create blur pipeline layout: %w", err)
	}
	p.layout = layout

	makePipeline := func(label string, blend *gputypes.BlendState) (hal.RenderPipeline, error) {
		return device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
			Label:  label,
			Layout: layout,
			Vertex: hal.VertexState{
				Module:     shader,
				EntryPoint: "vs_main",
			},
			Fragment: &hal.FragmentState{
				Module:     shader,
				EntryPoint: "fs_main",
				Targets: []gputypes.ColorTargetState{
					{
						Format:    format,
						Blend:     blend,
						WriteMask: gputypes.ColorWriteMaskAll,
					},
				},
			},
			Primitive: gputypes.PrimitiveState{
				Topology: gputypes.PrimitiveTopologyTriangleList,
				CullMode: gputypes.CullModeNone,
			},
			Multisample: gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
		})
	}

	pipeline, err := makePipeline("compositor.blur.pipeline", nil)
	if err != nil {
		p.destroy()
		return nil, fmt.Errorf("create blur pipeline: %w", err)
	}
	p.pipeline = pipeline

	blend := gputypes.BlendStatePremultiplied()
	pipelineBlend, err := makePipeline("compositor.blur.pipeline_blend", &blend)
	if err != nil {
		p.destroy()
		return nil, fmt.Errorf("create blur blend pipeline: %w", err)
	}
	p.pipelineBlend = pipelineBlend

	return p, nil
}

// pass runs one blur pass, sampling source into target. Uniform
// buffers are created per pass and released at frame end via
// releaseFrameResources.
func (p *blurPipeline) pass(
	encoder hal.CommandEncoder,
	source hal.TextureView,
	target hal.TextureView,
	uniforms *blurUniforms,
	useBlend bool,
) error {
	ub, err := newSamplerUniformBuffer(p.device, p.queue, p.constantLayout, p.sampler, "compositor.blur.uniforms", uniforms.bytes())
	if err != nil {
		return err
	}
	p.frameUniforms = append(p.frameUniforms, ub)

	texBind, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "compositor.blur.texture_bind",
		Layout: p.textureLayout,
		Entries: []gputypes.BindGroupEntry{
			{
				Binding:  0,
				Resource: gputypes.TextureViewBinding{TextureView: source.NativeHandle()},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create blur texture bind group: %w", err)
	}
	p.frameBinds = append(p.frameBinds, texBind)

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "compositor.blur.pass",
		ColorAttachments: []hal.RenderPassColorAttachment{
			{
				View:    target,
				LoadOp:  gputypes.LoadOpLoad,
				StoreOp: gputypes.StoreOpStore,
			},
		},
	})

	// Textures may be larger than the frame due to caching, so the
	// viewport is pinned to the content size.
	rp.SetViewport(0, 0, uniforms.params[2], uniforms.params[3], 0, 1)

	pipeline := p.pipeline
	if useBlend {
		pipeline = p.pipelineBlend
	}
	rp.SetPipeline(pipeline)
	rp.SetBindGroup(0, ub.bg, nil)
	rp.SetBindGroup(1, texBind, nil)
	rp.Draw(6, 1, 0, 0)
	rp.End()
	return nil
}

// render runs the full six-pass blur for one region. The result of
// the final vertical pass lands on target, clipped by the region's
// rounded corners.
func (p *blurPipeline) render(
	encoder hal.CommandEncoder,
	source, intermediate, target hal.TextureView,
	blur compositor.BackdropBlur,
	viewport compositor.Viewport,
	passes int,
) error {
	scale := viewport.ScaleFactor()
	texW := float32(viewport.PhysicalWidth())
	texH := float32(viewport.PhysicalHeight())

	bounds := blur.Bounds.Scale(scale)
	clipBounds := [4]float32{
		bounds.X / texW,
		bounds.Y / texH,
		bounds.Width / texW,
		bounds.Height / texH,
	}

	totalRadius := blur.Radius * scale

	// Three box blurs approximate a Gaussian to within a few percent,
	// and each box pass samples about one sigma outward, so 3*sigma of
	// padding covers the expanded sampling range.
	padding := totalRadius * 3
	expandedX := max32(bounds.X-padding, 0)
	expandedY := max32(bounds.Y-padding, 0)
	expandedRight := min32(bounds.X+bounds.Width+padding, texW)
	expandedBottom := min32(bounds.Y+bounds.Height+padding, texH)
	quadBounds := [4]float32{
		expandedX / texW,
		expandedY / texH,
		(expandedRight - expandedX) / texW,
		(expandedBottom - expandedY) / texH,
	}

	scaledBorderRadius := [4]float32{
		blur.BorderRadius[0] * scale,
		blur.BorderRadius[1] * scale,
		blur.BorderRadius[2] * scale,
		blur.BorderRadius[3] * scale,
	}
	hasBorderRadius := false
	for _, r := range scaledBorderRadius {
		if r > 0 {
			hasBorderRadius = true
		}
	}

	if passes < 2 {
		passes = 2
	}

	// Ping-pong between the scene copy and the intermediate texture,
	// alternating horizontal and vertical, and land the last vertical
	// pass on the real target with the rounded clip applied.
	for i := 0; i < passes; i++ {
		horizontal := i%2 == 0
		var src, dst hal.TextureView
		if horizontal {
			src, dst = source, intermediate
		} else {
			src, dst = intermediate, source
		}
		final := i == passes-1
		if final {
			dst = target
		}

		uniforms := blurUniforms{
			quadBounds: quadBounds,
			clipBounds: clipBounds,
			params:     [4]float32{totalRadius, directionValue(horizontal), texW, texH},
		}
		if final {
			uniforms.borderRadius = scaledBorderRadius
		}
		if err := p.pass(encoder, src, dst, &uniforms, final && hasBorderRadius); err != nil {
			return err
		}
	}
	return nil
}

func directionValue(horizontal bool) float32 {
	if horizontal {
		return 0
	}
	return 1
}

// blitFull copies the whole source into target using the blur shader
// with radius zero.
func (p *blurPipeline) blitFull(
	encoder hal.CommandEncoder,
	source, target hal.TextureView,
	width, height uint32,
) error {
	full := [4]float32{0, 0, 1, 1}
	uniforms := blurUniforms{
		quadBounds: full,
		clipBounds: full,
		params:     [4]float32{0, 0, float32(width), float32(height)},
	}
	return p.pass(encoder, source, target, &uniforms, false)
}

// blitRegion copies one region of source into target.
func (p *blurPipeline) blitRegion(
	encoder hal.CommandEncoder,
	source, target hal.TextureView,
	region compositor.Rectangle,
	viewport compositor.Viewport,
) error {
	texW := float32(viewport.PhysicalWidth())
	texH := float32(viewport.PhysicalHeight())
	scaled := region.Scale(viewport.ScaleFactor())
	normalized := [4]float32{
		scaled.X / texW,
		scaled.Y / texH,
		scaled.Width / texW,
		scaled.Height / texH,
	}

	slogger().Debug("blit region",
		"x", normalized[0], "y", normalized[1],
		"width", normalized[2], "height", normalized[3])

	uniforms := blurUniforms{
		quadBounds: normalized,
		clipBounds: normalized,
		params:     [4]float32{0, 0, texW, texH},
	}
	return p.pass(encoder, source, target, &uniforms, false)
}

// releaseFrameResources frees per-pass uniform buffers and bind
// groups after the frame's command buffer completed.
func (p *blurPipeline) releaseFrameResources() {
	for _, ub := range p.frameUniforms {
		ub.destroy(p.device)
	}
	p.frameUniforms = p.frameUniforms[:0]
	for _, bg := range p.frameBinds {
		p.device.DestroyBindGroup(bg)
	}
	p.frameBinds = p.frameBinds[:0]
}

func (p *blurPipeline) destroy() {
	p.releaseFrameResources()
	if p.pipelineBlend != nil {
		p.device.DestroyRenderPipeline(p.pipelineBlend)
		p.pipelineBlend = nil
	}
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.layout != nil {
		p.device.DestroyPipelineLayout(p.layout)
		p.layout = nil
	}
	if p.textureLayout != nil {
		p.device.DestroyBindGroupLayout(p.textureLayout)
		p.textureLayout = nil
	}
	if p.constantLayout != nil {
		p.device.DestroyBindGroupLayout(p.constantLayout)
		p.constantLayout = nil
	}
	if p.sampler != nil {
		p.device.DestroySampler(p.sampler)
		p.sampler = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}
