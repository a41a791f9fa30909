package exr

import (
	"encoding/binary"
	"math"

	"github.com/mrjoshuak/go-exredit/half"
)

// Buffer holds the samples of one channel as little-endian bytes in the
// channel's storage type, row by row. Keeping the stored encoding makes
// unmodified samples round trip bit for bit.
type Buffer struct {
	Type   PixelType
	Width  int
	Height int
	Data   []byte
}

// NewBuffer allocates a zeroed buffer.
func NewBuffer(t PixelType, width, height int) *Buffer {
	return &Buffer{Type: t, Width: width, Height: height, Data: make([]byte, width*height*t.Size())}
}

func (b *Buffer) offset(x, y int) int {
	return (y*b.Width + x) * b.Type.Size()
}

// InBounds reports whether (x, y) addresses a sample.
func (b *Buffer) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.Width && y < b.Height
}

// Float32At returns the sample at (x, y) widened to float32.
func (b *Buffer) Float32At(x, y int) float32 {
	o := b.offset(x, y)
	switch b.Type {
	case PixelTypeHalf:
		return half.FromBits(binary.LittleEndian.Uint16(b.Data[o:])).Float32()
	case PixelTypeFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(b.Data[o:]))
	}
	return float32(binary.LittleEndian.Uint32(b.Data[o:]))
}

// Uint32At returns the raw sample bits at (x, y) for uint channels, and
// the value converted to uint32 otherwise.
func (b *Buffer) Uint32At(x, y int) uint32 {
	if b.Type == PixelTypeUint {
		return binary.LittleEndian.Uint32(b.Data[b.offset(x, y):])
	}
	return toUint32(float64(b.Float32At(x, y)))
}

// SetFloat32 stores v at (x, y), narrowing to the buffer type. Uint
// samples are rounded and clamped to [0, 2^32-1].
func (b *Buffer) SetFloat32(x, y int, v float32) {
	b.SetFloat64(x, y, float64(v))
}

// SetFloat64 is SetFloat32 without the float32 round trip for uint samples.
func (b *Buffer) SetFloat64(x, y int, v float64) {
	o := b.offset(x, y)
	switch b.Type {
	case PixelTypeHalf:
		binary.LittleEndian.PutUint16(b.Data[o:], half.FromFloat64(v).Bits())
	case PixelTypeFloat:
		binary.LittleEndian.PutUint32(b.Data[o:], math.Float32bits(float32(v)))
	default:
		binary.LittleEndian.PutUint32(b.Data[o:], toUint32(v))
	}
}

func toUint32(v float64) uint32 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= math.MaxUint32:
		return math.MaxUint32
	}
	return uint32(math.Round(v))
}

// Fill sets every sample to v.
func (b *Buffer) Fill(v float64) {
	if v == 0 {
		clear(b.Data)
		return
	}
	size := b.Type.Size()
	if len(b.Data) < size {
		return
	}
	b.SetFloat64(0, 0, v)
	for o := size; o < len(b.Data); o += size {
		copy(b.Data[o:o+size], b.Data[:size])
	}
}

// Row returns the bytes of row y.
func (b *Buffer) Row(y int) []byte {
	n := b.Width * b.Type.Size()
	return b.Data[y*n : (y+1)*n]
}

// Float32s widens all samples into a new slice.
func (b *Buffer) Float32s() []float32 {
	out := make([]float32, b.Width*b.Height)
	switch b.Type {
	case PixelTypeHalf:
		half.DecodeLE(out, b.Data)
	case PixelTypeFloat:
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b.Data[4*i:]))
		}
	default:
		for i := range out {
			out[i] = float32(binary.LittleEndian.Uint32(b.Data[4*i:]))
		}
	}
	return out
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	c := *b
	c.Data = append([]byte(nil), b.Data...)
	return &c
}

// reframe returns a buffer of the given size whose sample (x, y) is this
// buffer's sample (x+dx, y+dy). Samples outside this buffer are zero.
func (b *Buffer) reframe(width, height, dx, dy int) *Buffer {
	out := NewBuffer(b.Type, width, height)
	size := b.Type.Size()
	for y := 0; y < height; y++ {
		sy := y + dy
		if sy < 0 || sy >= b.Height {
			continue
		}
		x0, x1 := max(0, -dx), min(width, b.Width-dx)
		if x0 >= x1 {
			continue
		}
		copy(out.Data[(y*width+x0)*size:(y*width+x1)*size], b.Data[(sy*b.Width+x0+dx)*size:])
	}
	return out
}
