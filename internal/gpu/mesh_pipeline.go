//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	compositor "github.com/gogpu/compositor"
)

const (
	// meshVertexStride is position plus color.
	meshVertexStride = 24
	// meshGradientVertexStride is position only; the gradient comes
	// from a uniform.
	meshGradientVertexStride = 8
	// meshUniformSize is the projection, scale factor and padding,
	// followed by the packed gradient for gradient meshes.
	meshUniformSize = 80 + compositor.PackedGradientSize
)

// meshBatch is one layer's triangle geometry. Indexed input is
// expanded to a flat vertex stream at prepare time, so draws need no
// index buffer.
type meshBatch struct {
	solidOffset   uint32
	solidCount    uint32
	gradientDraws []meshGradientDraw
}

type meshGradientDraw struct {
	offset uint32
	count  uint32
	packed [compositor.PackedGradientSize]byte
}

// meshPipeline draws arbitrary triangle geometry. Solid meshes carry
// per-vertex colors; gradient meshes resolve one gradient across the
// whole mesh via a per-draw uniform.
type meshPipeline struct {
	device hal.Device
	queue  hal.Queue

	shader        hal.ShaderModule
	solid         hal.RenderPipeline
	gradient      hal.RenderPipeline
	layout        hal.PipelineLayout
	uniformLayout hal.BindGroupLayout

	solidBuf    *growBuffer
	gradientBuf *growBuffer

	solidData    []byte
	gradientData []byte
	batches      []meshBatch
	uploaded     bool

	projection  [16]float32
	scaleFactor float32

	frameUniforms []*uniformBuffer
}

func newMeshPipeline(device hal.Device, queue hal.Queue, format gputypes.TextureFormat) (*meshPipeline, error) {
	p := &meshPipeline{
		device:      device,
		queue:       queue,
		solidBuf:    newGrowBuffer("compositor.mesh.solid_vertices", gputypes.BufferUsageVertex),
		gradientBuf: newGrowBuffer("compositor.mesh.gradient_vertices", gputypes.BufferUsageVertex),
	}

	shader, err := compileShader(device, "compositor.mesh.shader", meshShaderSource)
	if err != nil {
		return nil, err
	}
	p.shader = shader

	uniformLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "compositor.mesh.uniform_layout",
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
		return nil, fmt.Errorf("create mesh uniform layout: %w", err)
	}
	p.uniformLayout = uniformLayout

	layout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "compositor.mesh.pipeline_layout",
		BindGroupLayouts: []hal.BindGroupLayout{uniformLayout},
	})
	if err != nil {
		p.destroy()
		return nil, fmt.Errorf("create mesh pipeline layout: %w", err)
	}
	p.layout = layout

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
		Label:  "compositor.mesh.solid_pipeline",
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     shader,
			EntryPoint: "solid_vs_main",
			Buffers: []gputypes.VertexBufferLayout{
				{
					ArrayStride: meshVertexStride,
					StepMode:    gputypes.VertexStepModeVertex,
					Attributes: []gputypes.VertexAttribute{
						{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
						{Format: gputypes.VertexFormatFloat32x4, Offset: 8, ShaderLocation: 1},
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
		return nil, fmt.Errorf("create solid mesh pipeline: %w", err)
	}
	p.solid = solid

	gradient, err := device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "compositor.mesh.gradient_pipeline",
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     shader,
			EntryPoint: "gradient_vs_main",
			Buffers: []gputypes.VertexBufferLayout{
				{
					ArrayStride: meshGradientVertexStride,
					StepMode:    gputypes.VertexStepModeVertex,
					Attributes: []gputypes.VertexAttribute{
						{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
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
		return nil, fmt.Errorf("create gradient mesh pipeline: %w", err)
	}
	p.gradient = gradient

	return p, nil
}

func (p *meshPipeline) beginFrame() {
	p.solidData = p.solidData[:0]
	p.gradientData = p.gradientData[:0]
	p.batches = p.batches[:0]
	p.uploaded = false
}

// prepare expands one layer's meshes into flat vertex streams and
// records a batch.
func (p *meshPipeline) prepare(meshes []compositor.Mesh, projection [16]float32, scaleFactor float32) {
	p.projection = projection
	p.scaleFactor = scaleFactor

	batch := meshBatch{
		solidOffset: uint32(len(p.solidData) / meshVertexStride),
	}
	for _, m := range meshes {
		if len(m.Indices)%3 != 0 {
			slogger().Warn("mesh index count not a multiple of 3, dropped",
				"indices", len(m.Indices))
			continue
		}
		if m.Gradient != nil {
			draw := meshGradientDraw{
				offset: uint32(len(p.gradientData) / meshGradientVertexStride),
				packed: m.Gradient.Pack(m.Bounds).Bytes(),
			}
			for _, idx := range m.Indices {
				if int(idx) >= len(m.Vertices) {
					slogger().Warn("mesh index out of range", "index", idx)
					continue
				}
				v := m.Vertices[idx]
				var buf [meshGradientVertexStride]byte
				putF32(buf[:], 0, v.Position.X)
				putF32(buf[:], 4, v.Position.Y)
				p.gradientData = append(p.gradientData, buf[:]...)
				draw.count++
			}
			batch.gradientDraws = append(batch.gradientDraws, draw)
			continue
		}
		for _, idx := range m.Indices {
			if int(idx) >= len(m.Vertices) {
				slogger().Warn("mesh index out of range", "index", idx)
				continue
			}
			v := m.Vertices[idx]
			var buf [meshVertexStride]byte
			putF32(buf[:], 0, v.Position.X)
			putF32(buf[:], 4, v.Position.Y)
			putF32(buf[:], 8, v.Color.R)
			putF32(buf[:], 12, v.Color.G)
			putF32(buf[:], 16, v.Color.B)
			putF32(buf[:], 20, v.Color.A)
			p.solidData = append(p.solidData, buf[:]...)
			batch.solidCount++
		}
	}
	p.batches = append(p.batches, batch)
}

func (p *meshPipeline) flush() error {
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

// uniformData builds the mesh uniform block: projection, scale factor
// and padding, then the packed gradient (zeroed for solid draws).
func (p *meshPipeline) uniformData(packed []byte) []byte {
	data := make([]byte, meshUniformSize)
	for i, v := range p.projection {
		putF32(data, i*4, v)
	}
	putF32(data, 72, p.scaleFactor)
	copy(data[80:], packed)
	return data
}

// render draws one batch inside its own render pass on target,
// scissored to clip. The caller interrupted the main pass; this pass
// loads existing content.
func (p *meshPipeline) render(
	encoder hal.CommandEncoder,
	target hal.TextureView,
	batch int,
	clip compositor.Rectangle,
) error {
	if batch < 0 || batch >= len(p.batches) {
		return fmt.Errorf("mesh batch %d out of range", batch)
	}
	if err := p.flush(); err != nil {
		return err
	}
	b := p.batches[batch]
	if b.solidCount == 0 && len(b.gradientDraws) == 0 {
		return nil
	}

	scissor := clip.Snap()
	if scissor.IsEmpty() {
		return nil
	}

	// Bind groups for this batch's uniforms, released at frame end.
	solidUB, err := newUniformBuffer(p.device, p.queue, p.uniformLayout, "compositor.mesh.uniforms", p.uniformData(nil))
	if err != nil {
		return err
	}
	p.frameUniforms = append(p.frameUniforms, solidUB)

	gradientUBs := make([]*uniformBuffer, len(b.gradientDraws))
	for i, draw := range b.gradientDraws {
		ub, err := newUniformBuffer(p.device, p.queue, p.uniformLayout, "compositor.mesh.gradient_uniforms", p.uniformData(draw.packed[:]))
		if err != nil {
			return err
		}
		gradientUBs[i] = ub
		p.frameUniforms = append(p.frameUniforms, ub)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "compositor.mesh.pass",
		ColorAttachments: []hal.RenderPassColorAttachment{
			{
				View:    target,
				LoadOp:  gputypes.LoadOpLoad,
				StoreOp: gputypes.StoreOpStore,
			},
		},
	})
	rp.SetScissorRect(scissor.X, scissor.Y, scissor.Width, scissor.Height)

	if b.solidCount > 0 {
		rp.SetPipeline(p.solid)
		rp.SetBindGroup(0, solidUB.bg, nil)
		rp.SetVertexBuffer(0, p.solidBuf.buf, uint64(b.solidOffset)*meshVertexStride)
		rp.Draw(b.solidCount, 1, 0, 0)
	}
	for i, draw := range b.gradientDraws {
		if draw.count == 0 {
			continue
		}
		rp.SetPipeline(p.gradient)
		rp.SetBindGroup(0, gradientUBs[i].bg, nil)
		rp.SetVertexBuffer(0, p.gradientBuf.buf, uint64(draw.offset)*meshGradientVertexStride)
		rp.Draw(draw.count, 1, 0, 0)
	}
	rp.End()
	return nil
}

func (p *meshPipeline) releaseFrameResources() {
	for _, ub := range p.frameUniforms {
		ub.destroy(p.device)
	}
	p.frameUniforms = p.frameUniforms[:0]
}

func (p *meshPipeline) trim() {
	p.solidBuf.trim(p.device)
	p.gradientBuf.trim(p.device)
}

func (p *meshPipeline) destroy() {
	p.releaseFrameResources()
	p.solidBuf.destroy(p.device)
	p.gradientBuf.destroy(p.device)
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
