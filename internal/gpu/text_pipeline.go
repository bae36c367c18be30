//go:build !nogpu

package gpu

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	xdraw "golang.org/x/image/draw"

	compositor "github.com/gogpu/compositor"
)

const (
	// glyphStride is one glyph instance: position, size, atlas uv
	// origin and extent, color.
	glyphStride = 48
	// textUniformSize is the projection matrix plus padding.
	textUniformSize = 80
)

// GlyphInfo locates one glyph in the atlas and positions it relative
// to its pen position. Atlas coordinates are in pixels.
type GlyphInfo struct {
	AtlasX, AtlasY uint32
	Width, Height  uint32
	// Left and Top offset the glyph bitmap from the pen position, in
	// logical pixels.
	Left, Top float32
}

// textGroup is one prepared text run.
type textGroup struct {
	offset uint32
	count  uint32
}

// textPipeline draws glyph quads from a host-supplied atlas. Shaping
// and rasterization happen outside; the engine only composites.
type textPipeline struct {
	device hal.Device
	queue  hal.Queue
	format gputypes.TextureFormat

	shader        hal.ShaderModule
	pipeline      hal.RenderPipeline
	layout        hal.PipelineLayout
	uniformLayout hal.BindGroupLayout
	sampler       hal.Sampler

	uniforms hal.Buffer

	atlas       hal.Texture
	atlasView   hal.TextureView
	atlasSize   uint32
	glyphs      map[uint64]GlyphInfo
	atlasBind   hal.BindGroup
	atlasStale  bool

	instanceBuf  *growBuffer
	instanceData []byte
	groups       []textGroup
	uploaded     bool
}

func newTextPipeline(device hal.Device, queue hal.Queue, format gputypes.TextureFormat) (*textPipeline, error) {
	p := &textPipeline{
		device:      device,
		queue:       queue,
		format:      format,
		glyphs:      map[uint64]GlyphInfo{},
		instanceBuf: newGrowBuffer("compositor.text.instances", gputypes.BufferUsageVertex),
	}

	shader, err := compileShader(device, "compositor.text.shader", textShaderSource)
	if err != nil {
		return nil, err
	}
	p.shader = shader

	uniformLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "compositor.text.uniform_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		p.destroy()
		return nil, fmt.Errorf("create text uniform layout: %w", err)
	}
	p.uniformLayout = uniformLayout

	layout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "compositor.text.pipeline_layout",
		BindGroupLayouts: []hal.BindGroupLayout{uniformLayout},
	})
	if err != nil {
		p.destroy()
		return nil, fmt.Errorf("create text pipeline layout: %w", err)
	}
	p.layout = layout

	sampler, err := device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "compositor.text.sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		p.destroy()
		return nil, fmt.Errorf("create text sampler: %w", err)
	}
	p.sampler = sampler

	uniforms, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "compositor.text.uniforms",
		Size:  textUniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		p.destroy()
		return nil, fmt.Errorf("create text uniform buffer: %w", err)
	}
	p.uniforms = uniforms

	premulBlend := gputypes.BlendStatePremultiplied()
	pipeline, err := device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "compositor.text.pipeline",
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
			Buffers: []gputypes.VertexBufferLayout{
				{
					ArrayStride: glyphStride,
					StepMode:    gputypes.VertexStepModeInstance,
					Attributes: []gputypes.VertexAttribute{
						{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
						{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
						{Format: gputypes.VertexFormatFloat32x2, Offset: 16, ShaderLocation: 2},
						{Format: gputypes.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 3},
						{Format: gputypes.VertexFormatFloat32x4, Offset: 32, ShaderLocation: 4},
					},
				},
			},
		},
		Fragment: &hal.FragmentState{
			Module:     shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{Format: format, Blend: &premulBlend, WriteMask: gputypes.ColorWriteMaskAll},
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
		return nil, fmt.Errorf("create text pipeline: %w", err)
	}
	p.pipeline = pipeline

	return p, nil
}

// setAtlas uploads a new glyph atlas and its glyph table. The image
// is converted to RGBA regardless of its source format.
func (p *textPipeline) setAtlas(img image.Image, glyphs map[uint64]GlyphInfo) error {
	bounds := img.Bounds()
	if bounds.Dx() != bounds.Dy() {
		return fmt.Errorf("glyph atlas must be square, got %dx%d", bounds.Dx(), bounds.Dy())
	}
	size := uint32(bounds.Dx())

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Bounds().Min != (image.Point{}) {
		converted := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		xdraw.Draw(converted, converted.Bounds(), img, bounds.Min, xdraw.Src)
		rgba = converted
	}

	if p.atlas == nil || p.atlasSize != size {
		p.dropAtlas()
		tex, err := p.device.CreateTexture(&hal.TextureDescriptor{
			Label:         "compositor.text.atlas",
			Size:          hal.Extent3D{Width: size, Height: size, DepthOrArrayLayers: 1},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     gputypes.TextureDimension2D,
			Format:        gputypes.TextureFormatRGBA8Unorm,
			Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("create glyph atlas: %w", err)
		}
		view, err := p.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
			Label:         "compositor.text.atlas_view",
			Format:        gputypes.TextureFormatRGBA8Unorm,
			Dimension:     gputypes.TextureViewDimension2D,
			Aspect:        gputypes.TextureAspectAll,
			MipLevelCount: 1,
		})
		if err != nil {
			p.device.DestroyTexture(tex)
			return fmt.Errorf("create glyph atlas view: %w", err)
		}
		p.atlas = tex
		p.atlasView = view
		p.atlasSize = size
		p.atlasStale = true
	}

	p.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: p.atlas, MipLevel: 0},
		rgba.Pix,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: size * 4, RowsPerImage: size},
		&hal.Extent3D{Width: size, Height: size, DepthOrArrayLayers: 1},
	)

	p.glyphs = glyphs
	slogger().Debug("glyph atlas updated", "size", size, "glyphs", len(glyphs))
	return nil
}

// ensureBindGroup rebuilds the bind group after the atlas changed.
func (p *textPipeline) ensureBindGroup() error {
	if p.atlasBind != nil && !p.atlasStale {
		return nil
	}
	if p.atlasView == nil {
		return fmt.Errorf("no glyph atlas uploaded")
	}
	if p.atlasBind != nil {
		p.device.DestroyBindGroup(p.atlasBind)
		p.atlasBind = nil
	}
	bind, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "compositor.text.bind",
		Layout: p.uniformLayout,
		Entries: []gputypes.BindGroupEntry{
			{
				Binding: 0,
				Resource: gputypes.BufferBinding{
					Buffer: p.uniforms.NativeHandle(),
					Offset: 0,
					Size:   textUniformSize,
				},
			},
			{
				Binding:  1,
				Resource: gputypes.TextureViewBinding{TextureView: p.atlasView.NativeHandle()},
			},
			{
				Binding:  2,
				Resource: gputypes.SamplerBinding{Sampler: p.sampler.NativeHandle()},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create text bind group: %w", err)
	}
	p.atlasBind = bind
	p.atlasStale = false
	return nil
}

func (p *textPipeline) beginFrame() {
	p.instanceData = p.instanceData[:0]
	p.groups = p.groups[:0]
	p.uploaded = false
}

// prepare records one group per run. Glyphs without an atlas entry
// are skipped; the group still counts so render offsets stay aligned.
func (p *textPipeline) prepare(runs []compositor.TextRun, bounds compositor.Rectangle, projection [16]float32, scaleFactor float32) {
	data := make([]byte, textUniformSize)
	for i, v := range projection {
		putF32(data, i*4, v)
	}
	p.queue.WriteBuffer(p.uniforms, 0, data)

	for _, run := range runs {
		group := textGroup{offset: uint32(len(p.instanceData) / glyphStride)}
		for _, g := range run.Glyphs {
			info, ok := p.glyphs[g.ID]
			if !ok {
				continue
			}
			texel := 1 / float32(p.atlasSize)
			var buf [glyphStride]byte
			putF32(buf[:], 0, (bounds.X+g.X+info.Left)*scaleFactor)
			putF32(buf[:], 4, (bounds.Y+g.Y-info.Top)*scaleFactor)
			putF32(buf[:], 8, float32(info.Width)*scaleFactor)
			putF32(buf[:], 12, float32(info.Height)*scaleFactor)
			putF32(buf[:], 16, float32(info.AtlasX)*texel)
			putF32(buf[:], 20, float32(info.AtlasY)*texel)
			putF32(buf[:], 24, float32(info.Width)*texel)
			putF32(buf[:], 28, float32(info.Height)*texel)
			putF32(buf[:], 32, run.Color.R)
			putF32(buf[:], 36, run.Color.G)
			putF32(buf[:], 40, run.Color.B)
			putF32(buf[:], 44, run.Color.A)
			p.instanceData = append(p.instanceData, buf[:]...)
			group.count++
		}
		p.groups = append(p.groups, group)
	}
}

func (p *textPipeline) flush() error {
	if p.uploaded {
		return nil
	}
	if err := p.instanceBuf.upload(p.device, p.queue, p.instanceData); err != nil {
		return err
	}
	p.uploaded = true
	return nil
}

// render draws count groups starting at firstGroup and reports how
// many groups it consumed.
func (p *textPipeline) render(rp hal.RenderPassEncoder, firstGroup, count int, scissor compositor.ScissorRect) int {
	if count == 0 {
		return 0
	}
	if firstGroup < 0 || firstGroup+count > len(p.groups) {
		slogger().Warn("text group range out of bounds",
			"first", firstGroup, "count", count, "groups", len(p.groups))
		return 0
	}
	if err := p.flush(); err != nil {
		slogger().Error("text instance upload failed", "error", err)
		return count
	}
	if err := p.ensureBindGroup(); err != nil {
		slogger().Warn("text draw skipped", "error", err)
		return count
	}

	rp.SetScissorRect(scissor.X, scissor.Y, scissor.Width, scissor.Height)
	rp.SetPipeline(p.pipeline)
	rp.SetBindGroup(0, p.atlasBind, nil)
	for i := firstGroup; i < firstGroup+count; i++ {
		g := p.groups[i]
		if g.count == 0 {
			continue
		}
		rp.SetVertexBuffer(0, p.instanceBuf.buf, uint64(g.offset)*glyphStride)
		rp.Draw(6, g.count, 0, 0)
	}
	return count
}

func (p *textPipeline) trim() {
	p.instanceBuf.trim(p.device)
}

func (p *textPipeline) dropAtlas() {
	if p.atlasBind != nil {
		p.device.DestroyBindGroup(p.atlasBind)
		p.atlasBind = nil
	}
	if p.atlasView != nil {
		p.device.DestroyTextureView(p.atlasView)
		p.atlasView = nil
	}
	if p.atlas != nil {
		p.device.DestroyTexture(p.atlas)
		p.atlas = nil
	}
	p.atlasSize = 0
}

func (p *textPipeline) destroy() {
	p.dropAtlas()
	p.instanceBuf.destroy(p.device)
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.uniforms != nil {
		p.device.DestroyBuffer(p.uniforms)
		p.uniforms = nil
	}
	if p.sampler != nil {
		p.device.DestroySampler(p.sampler)
		p.sampler = nil
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
