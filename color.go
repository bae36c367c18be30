package compositor

// Color is a straight-alpha linear color with components in [0, 1].
// Components are float32 because every consumer is a GPU buffer.
type Color struct {
	R, G, B, A float32
}

// RGB creates an opaque color from RGB components.
func RGB(r, g, b float32) Color {
	return Color{R: r, G: g, B: b, A: 1}
}

// RGBA creates a color from RGBA components.
func RGBA(r, g, b, a float32) Color {
	return Color{R: r, G: g, B: b, A: a}
}

// Transparent is fully transparent black.
var Transparent = Color{}

// ScaleAlpha returns the color with its alpha multiplied by f.
func (c Color) ScaleAlpha(f float32) Color {
	c.A *= f
	return c
}

// Components returns the color as an array, the layout GPU buffers expect.
func (c Color) Components() [4]float32 {
	return [4]float32{c.R, c.G, c.B, c.A}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
