//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	compositor "github.com/gogpu/compositor"
)

const (
	// solidStride is the byte size of one solid quad instance.
	solidStride = 96
	// gradientStride is one packed gradient followed by the quad data.
	gradientStride = compositor.PackedGradientSize + 80
	// quadUniformSize holds the projection matrix, the scale factor
	// and padding to a 16-byte multiple.
	quadUniformSize = 80
)

// quadBatch records the instance ranges one layer contributed.
type quadBatch struct {
	solidOffset   uint32
	solidCount    uint32
	gradientOffset uint32
	gradientCount uint32
}

// quadPipeline draws rounded quads with borders and shadows. Solid
// and gradient backgrounds use separate pipelines over separate
// instance streams, both drawn as two triangles per instance.
type quadPipeline struct {
	device hal.Device
	queue  hal.Queue

	shader        hal.ShaderModule
	solid         hal.RenderPipeline
	gradient      hal.RenderPipeline
	layout        hal.PipelineLayout
	uniformLayout hal.BindGroupLayout

	uniforms    hal.Buffer
	uniformBind hal.BindGroup

	solidBuf    *growBuffer
	gradientBuf *growBuffer

	solidData    []byte
	gradientData []byte
	batches      []quadBatch
	uploaded     bool
}

func newQuadPipeline(device hal.Device, queue hal.Queue, format gputypes.TextureFormat) (*quadPipeline, error) {
	p := &quadPipeline{
		device:      device,
		queue:       queue,
		solidBuf:    newGrowBuffer("compositor.quad.solid_instances", gputypes.BufferUsageVertex),
		gradientBuf: newGrowBuffer("compositor.quad.gradient_instances", gputypes.BufferUsageVertex),
	}

	shader, err := compileShader(device, "compositor.quad.shader", quadShaderSource)
	if err != nil {
		return nil, err
	}
	p.shader = shader

	uniformLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "compositor.quad.uniform_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		p.destroy()
		return nil, fmt.Errorf("create quad uniform layout: %w", err)
	}
	p.uniformLayout = uniformLayout

	layout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "compositor.quad.pipeline_layout",
		BindGroupLayouts: []hal.BindGroupLayout{uniformLayout},
	})
	if err != nil {
		p.destroy()
		return nil, fmt.Errorf("create quad pipeline layout: %w", err)
	}
	p.layout = layout

	uniforms, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "compositor.quad.uniforms",
		Size:  quadUniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		p.destroy()
		return nil, fmt.Errorf("create quad uniform buffer: %w", err)
	}
	p.uniforms = uniforms

	uniformBind, err := device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "compositor.quad.uniform_bind",
		Layout: uniformLayout,
		Entries: []gputypes.BindGroupEntry{
			{
				Binding: 0,
				Resource: gputypes.BufferBinding{
					Buffer: uniforms.NativeHandle(),
					Offset: 0,
					Size:   quadUniformSize,
				},
			},
		},
	})
	if err != nil {
		p.destroy()
		return nil, fmt.Errorf("create quad uniform bind group: %w", err)
	}
	p.uniformBind = uniformBind

	premulBlend := gputypes.BlendStatePremultiplied()
	target := []gputypes.ColorTargetState{
		{Format: format, Blend: &premulBlend, WriteMask: gputypes.ColorWriteMaskAll},
	}
	primitive := gputypes.PrimitiveState{
		Topology: gputypes.PrimitiveTopologyTriangleList,
		CullMode: gputypes.CullModeNone,
	}
	multisample := gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF}

	solid, err := device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "compositor.quad.solid_pipeline",
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     shader,
			EntryPoint: "solid_vs_main",
			Buffers: []gputypes.VertexBufferLayout{
				{
					ArrayStride: solidStride,
					StepMode:    gputypes.VertexStepModeInstance,
					Attributes: []gputypes.VertexAttribute{
						{Format: gputypes.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 0},
						{Format: gputypes.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 1},
						{Format: gputypes.VertexFormatFloat32x4, Offset: 32, ShaderLocation: 2},
						{Format: gputypes.VertexFormatFloat32x4, Offset: 48, ShaderLocation: 3},
						{Format: gputypes.VertexFormatFloat32, Offset: 64, ShaderLocation: 4},
						{Format: gputypes.VertexFormatFloat32x4, Offset: 68, ShaderLocation: 5},
						{Format: gputypes.VertexFormatFloat32x2, Offset: 84, ShaderLocation: 6},
						{Format: gputypes.VertexFormatFloat32, Offset: 92, ShaderLocation: 7},
					},
				},
			},
		},
		Fragment: &hal.FragmentState{
			Module:     shader,
			EntryPoint: "solid_fs_main",
			Targets:    target,
		},
		Primitive:   primitive,
		Multisample: multisample,
	})
	if err != nil {
		p.destroy()
		return nil, fmt.Errorf("create solid quad pipeline: %w", err)
	}
	p.solid = solid

	gradient, err := device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "compositor.quad.gradient_pipeline",
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     shader,
			EntryPoint: "gradient_vs_main",
			Buffers: []gputypes.VertexBufferLayout{
				{
					ArrayStride: gradientStride,
					StepMode:    gputypes.VertexStepModeInstance,
					Attributes: []gputypes.VertexAttribute{
						{Format: gputypes.VertexFormatUint32x4, Offset: 0, ShaderLocation: 0},
						{Format: gputypes.VertexFormatUint32x4, Offset: 16, ShaderLocation: 1},
						{Format: gputypes.VertexFormatUint32x4, Offset: 32, ShaderLocation: 2},
						{Format: gputypes.VertexFormatUint32x4, Offset: 48, ShaderLocation: 3},
						{Format: gputypes.VertexFormatUint32x4, Offset: 64, ShaderLocation: 4},
						{Format: gputypes.VertexFormatFloat32x4, Offset: 80, ShaderLocation: 5},
						{Format: gputypes.VertexFormatUint32, Offset: 96, ShaderLocation: 6},
						{Format: gputypes.VertexFormatFloat32x4, Offset: 128, ShaderLocation: 7},
						{Format: gputypes.VertexFormatFloat32x4, Offset: 144, ShaderLocation: 8},
						{Format: gputypes.VertexFormatFloat32x4, Offset: 160, ShaderLocation: 9},
						{Format: gputypes.VertexFormatFloat32, Offset: 176, ShaderLocation: 10},
						{Format: gputypes.VertexFormatFloat32x4, Offset: 180, ShaderLocation: 11},
						{Format: gputypes.VertexFormatFloat32x2, Offset: 196, ShaderLocation: 12},
						{Format: gputypes.VertexFormatFloat32, Offset: 204, ShaderLocation: 13},
					},
				},
			},
		},
		Fragment: &hal.FragmentState{
			Module:     shader,
			EntryPoint: "gradient_fs_main",
			Targets:    target,
		},
		Primitive:   primitive,
		Multisample: multisample,
	})
	if err != nil {
		p.destroy()
		return nil, fmt.Errorf("create gradient quad pipeline: %w", err)
	}
	p.gradient = gradient

	return p, nil
}

func (p *quadPipeline) beginFrame() {
	p.solidData = p.solidData[:0]
	p.gradientData = p.gradientData[:0]
	p.batches = p.batches[:0]
	p.uploaded = false
}

// prepare records one layer's quads as a batch. The projection and
// scale factor apply to the whole frame; rewriting them per batch is
// harmless since every caller passes the same values.
func (p *quadPipeline) prepare(quads []compositor.Quad, projection [16]float32, scaleFactor float32) {
	uniforms := make([]byte, quadUniformSize)
	for i, v := range projection {
		putF32(uniforms, i*4, v)
	}
	putF32(uniforms, 64, scaleFactor)
	p.queue.WriteBuffer(p.uniforms, 0, uniforms)

	batch := quadBatch{
		solidOffset:    uint32(len(p.solidData) / solidStride),
		gradientOffset: uint32(len(p.gradientData) / gradientStride),
	}
	for _, q := range quads {
		switch bg := q.Background.(type) {
		case compositor.Color:
			p.solidData = appendSolidInstance(p.solidData, q, bg)
			batch.solidCount++
		case compositor.Gradient:
			p.gradientData = appendGradientInstance(p.gradientData, q, bg)
			batch.gradientCount++
		default:
			slogger().Warn("quad with unknown background dropped")
		}
	}
	p.batches = append(p.batches, batch)
}

// flush uploads the frame's instance data. Runs once per frame on the
// first render call; every prepare call precedes every render call.
func (p *quadPipeline) flush() error {
	if p.uploaded {
		return nil
	}
	if err := p.solidBuf.upload(p.device, p.queue, p.solidData); err != nil {
		return err
	}
	if err := p.gradientBuf.upload(p.device, p.queue, p.gradientData); err != nil {
		return err
	}
	p.uploaded = true
	return nil
}

func (p *quadPipeline) render(rp hal.RenderPassEncoder, batch int, scissor compositor.ScissorRect) {
	if batch < 0 || batch >= len(p.batches) {
		slogger().Warn("quad batch out of range", "batch", batch, "batches", len(p.batches))
		return
	}
	if err := p.flush(); err != nil {
		slogger().Error("quad instance upload failed", "error", err)
		return
	}
	b := p.batches[batch]

	rp.SetScissorRect(scissor.X, scissor.Y, scissor.Width, scissor.Height)

	if b.solidCount > 0 {
		rp.SetPipeline(p.solid)
		rp.SetBindGroup(0, p.uniformBind, nil)
		rp.SetVertexBuffer(0, p.solidBuf.buf, uint64(b.solidOffset)*solidStride)
		rp.Draw(6, b.solidCount, 0, 0)
	}
	if b.gradientCount > 0 {
		rp.SetPipeline(p.gradient)
		rp.SetBindGroup(0, p.uniformBind, nil)
		rp.SetVertexBuffer(0, p.gradientBuf.buf, uint64(b.gradientOffset)*gradientStride)
		rp.Draw(6, b.gradientCount, 0, 0)
	}
}

func (p *quadPipeline) trim() {
	p.solidBuf.trim(p.device)
	p.gradientBuf.trim(p.device)
}

func (p *quadPipeline) destroy() {
	p.solidBuf.destroy(p.device)
	p.gradientBuf.destroy(p.device)
	if p.uniformBind != nil {
		p.device.DestroyBindGroup(p.uniformBind)
		p.uniformBind = nil
	}
	if p.uniforms != nil {
		p.device.DestroyBuffer(p.uniforms)
		p.uniforms = nil
	}
	if p.gradient != nil {
		p.device.DestroyRenderPipeline(p.gradient)
		p.gradient = nil
	}
	if p.solid != nil {
		p.device.DestroyRenderPipeline(p.solid)
		p.solid = nil
	}
	if p.layout != nil {
		p.device.DestroyPipelineLayout(p.layout)
		p.layout = nil
	}
	if p.uniformLayout != nil {
		p.device.DestroyBindGroupLayout(p.uniformLayout)
		p.uniformLayout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}

// appendQuadFields serializes the fields shared by solid and gradient
// instances: bounds, border and shadow, 80 bytes.
func appendQuadFields(dst []byte, q compositor.Quad) []byte {
	var buf [80]byte
	putF32(buf[:], 0, q.Bounds.X)
	putF32(buf[:], 4, q.Bounds.Y)
	putF32(buf[:], 8, q.Bounds.Width)
	putF32(buf[:], 12, q.Bounds.Height)
	putF32(buf[:], 16, q.BorderColor.R)
	putF32(buf[:], 20, q.BorderColor.G)
	putF32(buf[:], 24, q.BorderColor.B)
	putF32(buf[:], 28, q.BorderColor.A)
	putF32(buf[:], 32, q.BorderRadius[0])
	putF32(buf[:], 36, q.BorderRadius[1])
	putF32(buf[:], 40, q.BorderRadius[2])
	putF32(buf[:], 44, q.BorderRadius[3])
	putF32(buf[:], 48, q.BorderWidth)
	putF32(buf[:], 52, q.ShadowColor.R)
	putF32(buf[:], 56, q.ShadowColor.G)
	putF32(buf[:], 60, q.ShadowColor.B)
	putF32(buf[:], 64, q.ShadowColor.A)
	putF32(buf[:], 68, q.ShadowOffset.X)
	putF32(buf[:], 72, q.ShadowOffset.Y)
	putF32(buf[:], 76, q.ShadowBlurRadius)
	return append(dst, buf[:]...)
}

func appendSolidInstance(dst []byte, q compositor.Quad, c compositor.Color) []byte {
	var color [16]byte
	putF32(color[:], 0, c.R)
	putF32(color[:], 4, c.G)
	putF32(color[:], 8, c.B)
	putF32(color[:], 12, c.A)
	dst = append(dst, color[:]...)
	return appendQuadFields(dst, q)
}

func appendGradientInstance(dst []byte, q compositor.Quad, g compositor.Gradient) []byte {
	packed := g.Pack(q.Bounds).Bytes()
	dst = append(dst, packed[:]...)
	return appendQuadFields(dst, q)
}
