package compositor

// BackdropBlur describes a region whose backdrop, everything already
// rendered underneath it, gets blurred in place.
type BackdropBlur struct {
	// Bounds of the region in logical coordinates.
	Bounds Rectangle
	// Radius is the blur sigma in logical pixels.
	Radius float32
	// BorderRadius rounds the region's corners, ordered top-left,
	// top-right, bottom-right, bottom-left. Any non-zero corner makes
	// the final blur pass blend so the corners keep the backdrop.
	BorderRadius [4]float32
}

// NewBackdropBlur creates a blur region, clamping a negative radius to
// zero. A zero radius degenerates into a plain copy.
func NewBackdropBlur(bounds Rectangle, radius float32) BackdropBlur {
	return BackdropBlur{Bounds: bounds, Radius: max32(radius, 0)}
}

// WithBorderRadius returns the blur with rounded corners.
func (b BackdropBlur) WithBorderRadius(radius [4]float32) BackdropBlur {
	b.BorderRadius = radius
	return b
}

// rounded reports whether any corner radius is positive.
func (b BackdropBlur) rounded() bool {
	for _, r := range b.BorderRadius {
		if r > 0 {
			return true
		}
	}
	return false
}

// BlurRegion ties a blur to the absolute layer index at which it was
// recorded, so compositing happens at the right depth.
type BlurRegion struct {
	Blur       BackdropBlur
	LayerIndex int
}

// PostBlurRange marks layers recorded after a blur that must render on
// top of the blurred result instead of underneath it.
type PostBlurRange struct {
	Bounds     Rectangle
	StartLayer int
	EndLayer   int
}

// BlurState accumulates blur regions and post-blur ranges over one
// frame. Layer indices are absolute, so the layer stack must not merge
// layers while any state is pending.
type BlurState struct {
	regions   []BlurRegion
	completed []PostBlurRange
	active    *PostBlurRange
}

// AddRegion records a blur at the given absolute layer index.
func (s *BlurState) AddRegion(blur BackdropBlur, layerIndex int) {
	s.regions = append(s.regions, BlurRegion{Blur: blur, LayerIndex: layerIndex})
}

// HasRegions reports whether any blur is pending this frame.
func (s *BlurState) HasRegions() bool {
	return len(s.regions) > 0
}

// TakeRegions returns the pending blur regions and forgets them.
func (s *BlurState) TakeRegions() []BlurRegion {
	r := s.regions
	s.regions = nil
	return r
}

// StartPostBlur opens a post-blur range beginning at startLayer. An
// already open range is replaced.
func (s *BlurState) StartPostBlur(bounds Rectangle, startLayer int) {
	if s.active != nil {
		Logger().Debug("post-blur range replaced while open", "start", s.active.StartLayer)
	}
	s.active = &PostBlurRange{Bounds: bounds, StartLayer: startLayer}
}

// EndPostBlur completes the open range so it covers [start, endLayer).
// Without an open range it does nothing.
func (s *BlurState) EndPostBlur(endLayer int) {
	if s.active == nil {
		return
	}
	r := *s.active
	r.EndLayer = endLayer
	s.completed = append(s.completed, r)
	s.active = nil
}

// IsLayerInPostBlur reports whether the layer belongs to a completed
// range, or to the open range when the index is at or past its start.
func (s *BlurState) IsLayerInPostBlur(layerIndex int) bool {
	for _, r := range s.completed {
		if layerIndex >= r.StartLayer && layerIndex < r.EndLayer {
			return true
		}
	}
	return s.active != nil && layerIndex >= s.active.StartLayer
}

// HasPostBlurContent reports whether any completed range exists.
func (s *BlurState) HasPostBlurContent() bool {
	return len(s.completed) > 0
}

// TakePostBlurContent returns the completed ranges and forgets them.
func (s *BlurState) TakePostBlurContent() []PostBlurRange {
	c := s.completed
	s.completed = nil
	return c
}

// Clear drops all state at the start of a frame.
func (s *BlurState) Clear() {
	s.regions = s.regions[:0]
	s.completed = s.completed[:0]
	s.active = nil
}
