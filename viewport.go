package compositor

import "math"

// Viewport describes the frame target: its physical pixel size and the
// scale factor converting logical coordinates to physical ones.
type Viewport struct {
	physicalWidth  uint32
	physicalHeight uint32
	scaleFactor    float32
}

// NewViewport creates a viewport with the given physical size and scale
// factor. Scale factors below an epsilon fall back to 1.
func NewViewport(width, height uint32, scaleFactor float32) Viewport {
	if scaleFactor < 1e-6 {
		scaleFactor = 1
	}
	return Viewport{physicalWidth: width, physicalHeight: height, scaleFactor: scaleFactor}
}

// PhysicalWidth returns the target width in pixels.
func (v Viewport) PhysicalWidth() uint32 { return v.physicalWidth }

// PhysicalHeight returns the target height in pixels.
func (v Viewport) PhysicalHeight() uint32 { return v.physicalHeight }

// ScaleFactor returns the logical-to-physical scale factor.
func (v Viewport) ScaleFactor() float32 { return v.scaleFactor }

// LogicalSize returns the viewport size in logical coordinates.
func (v Viewport) LogicalSize() Size {
	return Size{
		Width:  float32(math.Ceil(float64(v.physicalWidth) / float64(v.scaleFactor))),
		Height: float32(math.Ceil(float64(v.physicalHeight) / float64(v.scaleFactor))),
	}
}

// LogicalBounds returns the viewport rectangle in logical coordinates.
func (v Viewport) LogicalBounds() Rectangle {
	return RectWithSize(v.LogicalSize())
}

// ScissorBounds returns the full-target scissor rectangle.
func (v Viewport) ScissorBounds() ScissorRect {
	return ScissorRect{Width: v.physicalWidth, Height: v.physicalHeight}
}

// Projection returns a column-major orthographic matrix mapping
// physical pixel coordinates to clip space, Y down. Pipelines scale
// logical positions by the scale factor before applying it.
func (v Viewport) Projection() [16]float32 {
	var m [16]float32
	m[0] = 2 / float32(v.physicalWidth)
	m[5] = -2 / float32(v.physicalHeight)
	m[10] = 1
	m[12] = -1
	m[13] = 1
	m[15] = 1
	return m
}
