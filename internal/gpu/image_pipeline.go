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
	// imageStride is one image instance: position, size, opacity and
	// the snap flag.
	imageStride = 24
	// imageUniformSize is the projection matrix plus padding.
	imageUniformSize = 80
	// imageTrimAge is how many frames an image may go unused before
	// trim evicts its texture.
	imageTrimAge = 2
)

// imageEntry is one uploaded image and its bind group.
type imageEntry struct {
	tex    hal.Texture
	view   hal.TextureView
	bind   hal.BindGroup
	width  uint32
	height uint32
	// unusedFrames counts trim calls since the last draw.
	unusedFrames int
}

type imageDraw struct {
	handle compositor.ImageHandle
	offset uint32
}

// imagePipeline draws uploaded raster images. Each handle maps to its
// own texture and bind group; uploads happen through UploadImage on
// the engine.
type imagePipeline struct {
	device hal.Device
	queue  hal.Queue

	shader        hal.ShaderModule
	pipeline      hal.RenderPipeline
	layout        hal.PipelineLayout
	uniformLayout hal.BindGroupLayout
	textureLayout hal.BindGroupLayout
	sampler       hal.Sampler

	uniforms    hal.Buffer
	uniformBind hal.BindGroup

	entries map[compositor.ImageHandle]*imageEntry

	instanceBuf  *growBuffer
	instanceData []byte
	batches      [][]imageDraw
	uploaded     bool
}

func newImagePipeline(device hal.Device, queue hal.Queue, format gputypes.TextureFormat) (*imagePipeline, error) {
	p := &imagePipeline{
		device:      device,
		queue:       queue,
		entries:     map[compositor.ImageHandle]*imageEntry{},
		instanceBuf: newGrowBuffer("compositor.image.instances", gputypes.BufferUsageVertex),
	}

	shader, err := compileShader(device, "compositor.image.shader", imageShaderSource)
	if err != nil {
		return nil, err
	}
	p.shader = shader

	uniformLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "compositor.image.uniform_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		p.destroy()
		return nil, fmt.Errorf("create image uniform layout: %w", err)
	}
	p.uniformLayout = uniformLayout

	textureLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "compositor.image.texture_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		p.destroy()
		return nil, fmt.Errorf("create image texture layout: %w", err)
	}
	p.textureLayout = textureLayout

	layout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "compositor.image.pipeline_layout",
		BindGroupLayouts: []hal.BindGroupLayout{uniformLayout, textureLayout},
	})
	if err != nil {
		p.destroy()
		return nil, fmt.Errorf("create image pipeline layout: %w", err)
	}
	p.layout = layout

	sampler, err := device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "compositor.image.sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		p.destroy()
		return nil, fmt.Errorf("create image sampler: %w", err)
	}
	p.sampler = sampler

	uniforms, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "compositor.image.uniforms",
		Size:  imageUniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		p.destroy()
		return nil, fmt.Errorf("create image uniform buffer: %w", err)
	}
	p.uniforms = uniforms

	uniformBind, err := device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "compositor.image.uniform_bind",
		Layout: uniformLayout,
		Entries: []gputypes.BindGroupEntry{
			{
				Binding: 0,
				Resource: gputypes.BufferBinding{
					Buffer: uniforms.NativeHandle(),
					Offset: 0,
					Size:   imageUniformSize,
				},
			},
		},
	})
	if err != nil {
		p.destroy()
		return nil, fmt.Errorf("create image uniform bind group: %w", err)
	}
	p.uniformBind = uniformBind

	premulBlend := gputypes.BlendStatePremultiplied()
	pipeline, err := device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "compositor.image.pipeline",
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
			Buffers: []gputypes.VertexBufferLayout{
				{
					ArrayStride: imageStride,
					StepMode:    gputypes.VertexStepModeInstance,
					Attributes: []gputypes.VertexAttribute{
						{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
						{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
						{Format: gputypes.VertexFormatFloat32, Offset: 16, ShaderLocation: 2},
						{Format: gputypes.VertexFormatUint32, Offset: 20, ShaderLocation: 3},
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
		return nil, fmt.Errorf("create image pipeline: %w", err)
	}
	p.pipeline = pipeline

	return p, nil
}

// upload creates or replaces the texture for handle.
func (p *imagePipeline) upload(handle compositor.ImageHandle, img image.Image) error {
	bounds := img.Bounds()
	w := uint32(bounds.Dx())
	h := uint32(bounds.Dy())
	if w == 0 || h == 0 {
		return fmt.Errorf("image %d is empty", handle)
	}

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Bounds().Min != (image.Point{}) {
		converted := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		xdraw.Draw(converted, converted.Bounds(), img, bounds.Min, xdraw.Src)
		rgba = converted
	}

	entry := p.entries[handle]
	if entry != nil && (entry.width != w || entry.height != h) {
		p.dropEntry(handle)
		entry = nil
	}
	if entry == nil {
		tex, err := p.device.CreateTexture(&hal.TextureDescriptor{
			Label:         fmt.Sprintf("compositor.image.%d", handle),
			Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     gputypes.TextureDimension2D,
			Format:        gputypes.TextureFormatRGBA8Unorm,
			Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("create image texture %d: %w", handle, err)
		}
		view, err := p.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
			Label:         fmt.Sprintf("compositor.image.%d_view", handle),
			Format:        gputypes.TextureFormatRGBA8Unorm,
			Dimension:     gputypes.TextureViewDimension2D,
			Aspect:        gputypes.TextureAspectAll,
			MipLevelCount: 1,
		})
		if err != nil {
			p.device.DestroyTexture(tex)
			return fmt.Errorf("create image texture view %d: %w", handle, err)
		}
		bind, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:  fmt.Sprintf("compositor.image.%d_bind", handle),
			Layout: p.textureLayout,
			Entries: []gputypes.BindGroupEntry{
				{
					Binding:  0,
					Resource: gputypes.TextureViewBinding{TextureView: view.NativeHandle()},
				},
				{
					Binding:  1,
					Resource: gputypes.SamplerBinding{Sampler: p.sampler.NativeHandle()},
				},
			},
		})
		if err != nil {
			p.device.DestroyTextureView(view)
			p.device.DestroyTexture(tex)
			return fmt.Errorf("create image bind group %d: %w", handle, err)
		}
		entry = &imageEntry{tex: tex, view: view, bind: bind, width: w, height: h}
		p.entries[handle] = entry
	}

	p.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: entry.tex, MipLevel: 0},
		rgba.Pix,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: w * 4, RowsPerImage: h},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	entry.unusedFrames = 0
	return nil
}

func (p *imagePipeline) beginFrame() {
	p.instanceData = p.instanceData[:0]
	p.batches = p.batches[:0]
	p.uploaded = false
}

// prepare records one layer's images as a batch. Images whose handle
// was never uploaded are skipped with a warning.
func (p *imagePipeline) prepare(images []compositor.Image, projection [16]float32, scaleFactor float32) {
	data := make([]byte, imageUniformSize)
	for i, v := range projection {
		putF32(data, i*4, v)
	}
	p.queue.WriteBuffer(p.uniforms, 0, data)

	var batch []imageDraw
	for _, img := range images {
		entry, ok := p.entries[img.Handle]
		if !ok {
			slogger().Warn("image handle not uploaded, skipped", "handle", img.Handle)
			continue
		}
		entry.unusedFrames = 0

		snap := uint32(0)
		if img.Snap {
			snap = 1
		}
		var buf [imageStride]byte
		putF32(buf[:], 0, img.Bounds.X*scaleFactor)
		putF32(buf[:], 4, img.Bounds.Y*scaleFactor)
		putF32(buf[:], 8, img.Bounds.Width*scaleFactor)
		putF32(buf[:], 12, img.Bounds.Height*scaleFactor)
		putF32(buf[:], 16, img.Opacity)
		putU32(buf[:], 20, snap)

		batch = append(batch, imageDraw{
			handle: img.Handle,
			offset: uint32(len(p.instanceData) / imageStride),
		})
		p.instanceData = append(p.instanceData, buf[:]...)
	}
	p.batches = append(p.batches, batch)
}

func (p *imagePipeline) flush() error {
	if p.uploaded {
		return nil
	}
	if err := p.instanceBuf.upload(p.device, p.queue, p.instanceData); err != nil {
		return err
	}
	p.uploaded = true
	return nil
}

func (p *imagePipeline) render(rp hal.RenderPassEncoder, batch int, scissor compositor.ScissorRect) {
	if batch < 0 || batch >= len(p.batches) {
		slogger().Warn("image batch out of range", "batch", batch, "batches", len(p.batches))
		return
	}
	draws := p.batches[batch]
	if len(draws) == 0 {
		return
	}
	if err := p.flush(); err != nil {
		slogger().Error("image instance upload failed", "error", err)
		return
	}

	rp.SetScissorRect(scissor.X, scissor.Y, scissor.Width, scissor.Height)
	rp.SetPipeline(p.pipeline)
	rp.SetBindGroup(0, p.uniformBind, nil)
	for _, d := range draws {
		entry, ok := p.entries[d.handle]
		if !ok {
			continue
		}
		rp.SetBindGroup(1, entry.bind, nil)
		rp.SetVertexBuffer(0, p.instanceBuf.buf, uint64(d.offset)*imageStride)
		rp.Draw(6, 1, 0, 0)
	}
}

// trim evicts textures that went unused for several frames and lets
// the instance buffer shrink.
func (p *imagePipeline) trim() {
	for handle, entry := range p.entries {
		entry.unusedFrames++
		if entry.unusedFrames > imageTrimAge {
			p.dropEntry(handle)
		}
	}
	p.instanceBuf.trim(p.device)
}

func (p *imagePipeline) dropEntry(handle compositor.ImageHandle) {
	entry, ok := p.entries[handle]
	if !ok {
		return
	}
	if entry.bind != nil {
		p.device.DestroyBindGroup(entry.bind)
	}
	if entry.view != nil {
		p.device.DestroyTextureView(entry.view)
	}
	if entry.tex != nil {
		p.device.DestroyTexture(entry.tex)
	}
	delete(p.entries, handle)
}

func (p *imagePipeline) destroy() {
	for handle := range p.entries {
		p.dropEntry(handle)
	}
	p.instanceBuf.destroy(p.device)
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.uniformBind != nil {
		p.device.DestroyBindGroup(p.uniformBind)
		p.uniformBind = nil
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
	if p.textureLayout != nil {
		p.device.DestroyBindGroupLayout(p.textureLayout)
		p.textureLayout = nil
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
