package compositor

// Glyph is one shaped glyph: an atlas key plus its position relative to
// the run origin, both produced by the external shaper.
type Glyph struct {
	// ID identifies the glyph image in the engine's atlas, typically
	// font ID and glyph index combined by the shaper.
	ID uint64
	// X, Y position the glyph baseline origin within the run.
	X, Y float32
}

// TextRun is a batch of shaped glyphs sharing color and size. Shaping
// happens outside this package; a run arrives ready to draw.
type TextRun struct {
	Glyphs []Glyph
	// Bounds of the run in logical coordinates, transformed into layer
	// space when recorded.
	Bounds Rectangle
	Color  Color
	// Size is the font size in logical pixels, informing atlas scale
	// selection.
	Size float32
}

// scaleAlpha applies group opacity to the run color.
func (t TextRun) scaleAlpha(f float32) TextRun {
	t.Color = t.Color.ScaleAlpha(f)
	return t
}
