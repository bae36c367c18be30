package compositor

// FadeDirection selects which way a gradient fade's alpha ramp runs.
type FadeDirection uint8

const (
	FadeTopToBottom FadeDirection = iota
	FadeBottomToTop
	FadeLeftToRight
	FadeRightToLeft
	FadeCenterOut
	FadeEdgesIn
)

// FadeDirectionFromCode maps a wire code to a direction. Unknown codes
// fall back to FadeTopToBottom.
func FadeDirectionFromCode(code uint8) FadeDirection {
	if code > uint8(FadeEdgesIn) {
		return FadeTopToBottom
	}
	return FadeDirection(code)
}

// GradientFade composites a range of layers back onto the frame with a
// directional alpha ramp: fully opaque before FadeStart, fading to
// transparent at FadeEnd. Both are fractions of the bounds extent along
// the fade direction.
type GradientFade struct {
	Bounds    Rectangle
	Direction FadeDirection
	FadeStart float32
	FadeEnd   float32
}

// NewGradientFade creates a fade over bounds with the default ramp,
// opaque for the first 70% of the extent.
func NewGradientFade(bounds Rectangle, direction FadeDirection) GradientFade {
	return GradientFade{
		Bounds:    bounds,
		Direction: direction,
		FadeStart: 0.7,
		FadeEnd:   1.0,
	}
}

// WithFadeStart returns the fade with its ramp start clamped to [0, 1].
func (g GradientFade) WithFadeStart(f float32) GradientFade {
	g.FadeStart = clamp01(f)
	return g
}

// WithFadeEnd returns the fade with its ramp end clamped to [0, 1].
func (g GradientFade) WithFadeEnd(f float32) GradientFade {
	g.FadeEnd = clamp01(f)
	return g
}

// GradientFadeRegion is a completed fade covering the layer range
// [StartLayer, EndLayer).
type GradientFadeRegion struct {
	Fade       GradientFade
	StartLayer int
	EndLayer   int
}

type activeFade struct {
	fade       GradientFade
	startLayer int
}

// FadeState tracks the open fade and the completed fade regions for one
// frame. Layer indices are absolute, like BlurState's.
type FadeState struct {
	completed []GradientFadeRegion
	active    *activeFade
}

// Start opens a fade beginning at startLayer. Starting while a fade is
// open silently replaces it; the orphaned range is never composited.
func (s *FadeState) Start(fade GradientFade, startLayer int) {
	if s.active != nil {
		Logger().Debug("gradient fade replaced while open", "start", s.active.startLayer)
	}
	s.active = &activeFade{fade: fade, startLayer: startLayer}
}

// End completes the open fade so it covers [start, endLayer). Without
// an open fade it does nothing.
func (s *FadeState) End(endLayer int) {
	if s.active == nil {
		return
	}
	s.completed = append(s.completed, GradientFadeRegion{
		Fade:       s.active.fade,
		StartLayer: s.active.startLayer,
		EndLayer:   endLayer,
	})
	s.active = nil
}

// IsLayerInFadeRegion reports whether the layer belongs to a completed
// fade region. Such layers skip the main pass and render during fade
// compositing instead.
func (s *FadeState) IsLayerInFadeRegion(layerIndex int) bool {
	for _, r := range s.completed {
		if layerIndex >= r.StartLayer && layerIndex < r.EndLayer {
			return true
		}
	}
	return false
}

// HasRegions reports whether any completed fade exists.
func (s *FadeState) HasRegions() bool {
	return len(s.completed) > 0
}

// TakeRegions returns the completed fades and forgets them.
func (s *FadeState) TakeRegions() []GradientFadeRegion {
	r := s.completed
	s.completed = nil
	return r
}

// Clear drops all state at the start of a frame.
func (s *FadeState) Clear() {
	s.completed = s.completed[:0]
	s.active = nil
}
