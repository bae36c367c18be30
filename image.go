package compositor

// ImageHandle identifies a decoded image across frames. Handles come
// from the host's image cache; the engine uses them as upload keys.
type ImageHandle uint64

// Image draws a decoded raster image into its bounds.
type Image struct {
	Handle ImageHandle
	// Bounds in logical coordinates, transformed into layer space when
	// recorded.
	Bounds Rectangle
	// Opacity in [0, 1]; group opacity multiplies in at record time.
	Opacity float32
	// Snap aligns the image to whole physical pixels to keep it sharp.
	Snap bool
}

// scaleAlpha applies group opacity.
func (i Image) scaleAlpha(f float32) Image {
	i.Opacity *= f
	return i
}
