package compositor

// blurTextureCache holds the two textures backdrop blur ping-pongs
// between. Textures are recreated whenever the requested size differs
// from the cached one; an exact match is required because the blur
// shader normalizes coordinates by the texture size.
type blurTextureCache struct {
	sceneCopy    Texture
	intermediate Texture
}

// get returns the scene-copy and intermediate textures for the given
// physical size, creating or recreating them as needed. The scene copy
// allows copy-into so the frame target can be captured.
func (c *blurTextureCache) get(e Engine, width, height uint32) (sceneCopy, intermediate Texture, err error) {
	if c.sceneCopy == nil || c.sceneCopy.Width() != width || c.sceneCopy.Height() != height {
		if c.sceneCopy != nil {
			Logger().Debug("recreating blur scene copy", "width", width, "height", height)
			e.DestroyTexture(c.sceneCopy)
			c.sceneCopy = nil
		}
		c.sceneCopy, err = e.CreateTexture("compositor.blur.scene_copy", width, height, true)
		if err != nil {
			return nil, nil, err
		}
	}
	if c.intermediate == nil || c.intermediate.Width() != width || c.intermediate.Height() != height {
		if c.intermediate != nil {
			e.DestroyTexture(c.intermediate)
			c.intermediate = nil
		}
		c.intermediate, err = e.CreateTexture("compositor.blur.intermediate", width, height, false)
		if err != nil {
			return nil, nil, err
		}
	}
	return c.sceneCopy, c.intermediate, nil
}

// fadeTextureCache holds the offscreen texture gradient fades replay
// into, shared by every fade region in a frame. Same exact-size policy
// as the blur cache.
type fadeTextureCache struct {
	offscreen Texture
}

func (c *fadeTextureCache) get(e Engine, width, height uint32) (Texture, error) {
	if c.offscreen != nil && c.offscreen.Width() == width && c.offscreen.Height() == height {
		return c.offscreen, nil
	}
	if c.offscreen != nil {
		Logger().Debug("recreating fade offscreen", "width", width, "height", height)
		e.DestroyTexture(c.offscreen)
		c.offscreen = nil
	}
	t, err := e.CreateTexture("compositor.fade.offscreen", width, height, false)
	if err != nil {
		return nil, err
	}
	c.offscreen = t
	return t, nil
}
