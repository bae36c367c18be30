//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Texture is the engine's texture handle, implementing
// compositor.Texture. Engine-created textures own their HAL objects;
// wrapped frame targets do not.
type Texture struct {
	tex  hal.Texture
	view hal.TextureView

	width, height uint32
	// sampleable textures carry TextureBinding usage and can be the
	// source of a blit.
	sampleable bool
	owned      bool
}

// Width implements compositor.Texture.
func (t *Texture) Width() uint32 { return t.width }

// Height implements compositor.Texture.
func (t *Texture) Height() uint32 { return t.height }

// WrapTarget wraps a host-provided texture view, typically the current
// swapchain image, so the renderer can present into it. sampleable
// declares whether the view carries texture binding usage; without it
// the target cannot be the source of a backdrop blur capture.
func WrapTarget(tex hal.Texture, view hal.TextureView, width, height uint32, sampleable bool) *Texture {
	return &Texture{
		tex:        tex,
		view:       view,
		width:      width,
		height:     height,
		sampleable: sampleable,
		owned:      false,
	}
}

// createTexture allocates a render-attachment texture that can also be
// sampled. copyDst additionally allows writes into it.
func (e *Engine) createTexture(label string, width, height uint32, copyDst bool) (*Texture, error) {
	usage := gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding
	if copyDst {
		usage |= gputypes.TextureUsageCopyDst
	}

	tex, err := e.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        e.format,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %s: %w", label, err)
	}

	view, err := e.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        e.format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		e.device.DestroyTexture(tex)
		return nil, fmt.Errorf("create texture view %s: %w", label, err)
	}

	return &Texture{
		tex:        tex,
		view:       view,
		width:      width,
		height:     height,
		sampleable: true,
		owned:      true,
	}, nil
}

func (e *Engine) destroyTexture(t *Texture) {
	if !t.owned {
		return
	}
	if t.view != nil {
		e.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		e.device.DestroyTexture(t.tex)
		t.tex = nil
	}
}
