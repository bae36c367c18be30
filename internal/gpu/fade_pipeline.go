//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	compositor "github.com/gogpu/compositor"
)

// fadePipeline composites an offscreen texture onto the frame with a
// directional alpha ramp. The region's content is rendered into the
// offscreen texture first, then this pipeline samples it back with
// premultiplied blending.
type fadePipeline struct {
	device hal.Device
	queue  hal.Queue

	shader         hal.ShaderModule
	sampler        hal.Sampler
	pipeline       hal.RenderPipeline
	layout         hal.PipelineLayout
	constantLayout hal.BindGroupLayout
	textureLayout  hal.BindGroupLayout

	frameUniforms []*uniformBuffer
	frameBinds    []hal.BindGroup
}

func newFadePipeline(device hal.Device, queue hal.Queue, format gputypes.TextureFormat) (*fadePipeline, error) {
	p := &fadePipeline{device: device, queue: queue}

	shader, err := compileShader(device, "compositor.fade.shader", fadeShaderSource)
	if err != nil {
		return nil, err
	}
	p.shader = shader

	sampler, err := device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "compositor.fade.sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		p.destroy()
		return nil, fmt.Errorf("create fade sampler: %w", err)
	}
	p.sampler = sampler

	constantLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "compositor.fade.constant_layout",
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
		return nil, fmt.Errorf("create fade constant layout: %w", err)
	}
	p.constantLayout = constantLayout

	textureLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "compositor.fade.texture_layout",
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
		return nil, fmt.Errorf("create fade texture layout: %w", err)
	}
	p.textureLayout = textureLayout

	layout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "compositor.fade.pipeline_layout",
		BindGroupLayouts: []hal.BindGroupLayout{constantLayout, textureLayout},
	})
	if err != nil {
		p.destroy()
		return nil, fmt.Errorf("create fade pipeline layout: %w", err)
	}
	p.layout = layout

	blend := gputypes.BlendStatePremultiplied()
	pipeline, err := device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "compositor.fade.pipeline",
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
					Blend:     &blend,
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
	if err != nil {
		p.destroy()
		return nil, fmt.Errorf("create fade pipeline: %w", err)
	}
	p.pipeline = pipeline

	return p, nil
}

// render composites the faded region from source onto target.
func (p *fadePipeline) render(
	encoder hal.CommandEncoder,
	source, target hal.TextureView,
	fade compositor.GradientFade,
	viewport compositor.Viewport,
) error {
	texW := float32(viewport.PhysicalWidth())
	texH := float32(viewport.PhysicalHeight())
	bounds := fade.Bounds.Scale(viewport.ScaleFactor())

	data := make([]byte, 32)
	putF32(data, 0, bounds.X/texW)
	putF32(data, 4, bounds.Y/texH)
	putF32(data, 8, bounds.Width/texW)
	putF32(data, 12, bounds.Height/texH)
	putF32(data, 16, float32(fade.Direction))
	putF32(data, 20, fade.FadeStart)
	putF32(data, 24, fade.FadeEnd)
	putF32(data, 28, 0)

	ub, err := newSamplerUniformBuffer(p.device, p.queue, p.constantLayout, p.sampler, "compositor.fade.uniforms", data)
	if err != nil {
		return err
	}
	p.frameUniforms = append(p.frameUniforms, ub)

	texBind, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "compositor.fade.texture_bind",
		Layout: p.textureLayout,
		Entries: []gputypes.BindGroupEntry{
			{
				Binding:  0,
				Resource: gputypes.TextureViewBinding{TextureView: source.NativeHandle()},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create fade texture bind group: %w", err)
	}
	p.frameBinds = append(p.frameBinds, texBind)

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "compositor.fade.pass",
		ColorAttachments: []hal.RenderPassColorAttachment{
			{
				View:    target,
				LoadOp:  gputypes.LoadOpLoad,
				StoreOp: gputypes.StoreOpStore,
			},
		},
	})
	rp.SetPipeline(p.pipeline)
	rp.SetBindGroup(0, ub.bg, nil)
	rp.SetBindGroup(1, texBind, nil)
	rp.Draw(6, 1, 0, 0)
	rp.End()
	return nil
}

func (p *fadePipeline) releaseFrameResources() {
	for _, ub := range p.frameUniforms {
		ub.destroy(p.device)
	}
	p.frameUniforms = p.frameUniforms[:0]
	for _, bg := range p.frameBinds {
		p.device.DestroyBindGroup(bg)
	}
	p.frameBinds = p.frameBinds[:0]
}

func (p *fadePipeline) destroy() {
	p.releaseFrameResources()
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
