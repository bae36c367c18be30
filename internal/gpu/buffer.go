//go:build !nogpu

package gpu

import (
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// growBuffer is a GPU buffer that grows geometrically when the frame's
// data no longer fits. Shrinking happens only through trim.
type growBuffer struct {
	buf   hal.Buffer
	size  uint64
	usage gputypes.BufferUsage
	label string

	// lastUsed tracks how much of the buffer the last upload needed,
	// so trim can release buffers that became oversized.
	lastUsed uint64
}

func newGrowBuffer(label string, usage gputypes.BufferUsage) *growBuffer {
	return &growBuffer{label: label, usage: usage | gputypes.BufferUsageCopyDst}
}

// upload writes data to the buffer, reallocating it when needed.
func (b *growBuffer) upload(device hal.Device, queue hal.Queue, data []byte) error {
	needed := uint64(len(data))
	b.lastUsed = needed
	if needed == 0 {
		return nil
	}
	if b.buf == nil || b.size < needed {
		if b.buf != nil {
			device.DestroyBuffer(b.buf)
			b.buf = nil
		}
		size := b.size
		if size == 0 {
			size = 4096
		}
		for size < needed {
			size *= 2
		}
		buf, err := device.CreateBuffer(&hal.BufferDescriptor{
			Label: b.label,
			Size:  size,
			Usage: b.usage,
		})
		if err != nil {
			return fmt.Errorf("create buffer %s: %w", b.label, err)
		}
		b.buf = buf
		b.size = size
	}
	queue.WriteBuffer(b.buf, 0, data)
	return nil
}

// trim releases the buffer when the last frame used less than a
// quarter of it. The next upload reallocates at a fitting size.
func (b *growBuffer) trim(device hal.Device) {
	if b.buf == nil || b.size <= 4096 {
		return
	}
	if b.lastUsed*4 < b.size {
		device.DestroyBuffer(b.buf)
		b.buf = nil
		b.size = 0
	}
}

func (b *growBuffer) destroy(device hal.Device) {
	if b.buf != nil {
		device.DestroyBuffer(b.buf)
		b.buf = nil
		b.size = 0
	}
}

// uniformBuffer is a fixed-size uniform buffer paired with its bind
// group. Blur and fade passes allocate one per pass and release them
// at frame end.
type uniformBuffer struct {
	buf hal.Buffer
	bg  hal.BindGroup
}

func newUniformBuffer(device hal.Device, queue hal.Queue, layout hal.BindGroupLayout, label string, data []byte) (*uniformBuffer, error) {
	buf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create uniform buffer %s: %w", label, err)
	}
	queue.WriteBuffer(buf, 0, data)

	bg, err := device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  label + "_bind",
		Layout: layout,
		Entries: []gputypes.BindGroupEntry{
			{
				Binding: 0,
				Resource: gputypes.BufferBinding{
					Buffer: buf.NativeHandle(),
					Offset: 0,
					Size:   uint64(len(data)),
				},
			},
		},
	})
	if err != nil {
		device.DestroyBuffer(buf)
		return nil, fmt.Errorf("create bind group %s: %w", label, err)
	}
	return &uniformBuffer{buf: buf, bg: bg}, nil
}

// newSamplerUniformBuffer builds a uniform buffer whose bind group
// also carries a sampler at binding 0, the layout shared by the blur
// and fade shaders.
func newSamplerUniformBuffer(device hal.Device, queue hal.Queue, layout hal.BindGroupLayout, sampler hal.Sampler, label string, data []byte) (*uniformBuffer, error) {
	buf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create uniform buffer %s: %w", label, err)
	}
	queue.WriteBuffer(buf, 0, data)

	bg, err := device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  label + "_bind",
		Layout: layout,
		Entries: []gputypes.BindGroupEntry{
			{
				Binding:  0,
				Resource: gputypes.SamplerBinding{Sampler: sampler.NativeHandle()},
			},
			{
				Binding: 1,
				Resource: gputypes.BufferBinding{
					Buffer: buf.NativeHandle(),
					Offset: 0,
					Size:   uint64(len(data)),
				},
			},
		},
	})
	if err != nil {
		device.DestroyBuffer(buf)
		return nil, fmt.Errorf("create bind group %s: %w", label, err)
	}
	return &uniformBuffer{buf: buf, bg: bg}, nil
}

func (u *uniformBuffer) destroy(device hal.Device) {
	if u.bg != nil {
		device.DestroyBindGroup(u.bg)
		u.bg = nil
	}
	if u.buf != nil {
		device.DestroyBuffer(u.buf)
		u.buf = nil
	}
}

func putF32(dst []byte, off int, v float32) {
	bits := math.Float32bits(v)
	dst[off] = byte(bits)
	dst[off+1] = byte(bits >> 8)
	dst[off+2] = byte(bits >> 16)
	dst[off+3] = byte(bits >> 24)
}

func putU32(dst []byte, off int, v uint32) {
	dst[off] = byte(v)
	dst[off+1] = byte(v >> 8)
	dst[off+2] = byte(v >> 16)
	dst[off+3] = byte(v >> 24)
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
