package compositor

// Background fills a quad: either a Color or one of the Gradient kinds.
type Background interface {
	background()
}

func (Color) background()  {}
func (Linear) background() {}
func (Radial) background() {}
func (Conic) background()  {}

// Quad is a rounded rectangle with optional border and drop shadow, the
// workhorse primitive of widget rendering.
type Quad struct {
	// Bounds in logical coordinates, already transformed into layer
	// space when recorded through a Stack.
	Bounds Rectangle
	// Background fill; nil draws nothing but border and shadow.
	Background Background
	// BorderRadius per corner: top-left, top-right, bottom-right,
	// bottom-left.
	BorderRadius [4]float32
	BorderWidth  float32
	BorderColor  Color

	ShadowColor      Color
	ShadowOffset     Point
	ShadowBlurRadius float32
}

// scaleAlpha multiplies the alpha of background, border and shadow,
// applying group opacity at record time.
func (q Quad) scaleAlpha(f float32) Quad {
	switch b := q.Background.(type) {
	case Color:
		q.Background = b.ScaleAlpha(f)
	case Gradient:
		q.Background = b.ScaleAlpha(f).(Background)
	}
	q.BorderColor = q.BorderColor.ScaleAlpha(f)
	q.ShadowColor = q.ShadowColor.ScaleAlpha(f)
	return q
}
