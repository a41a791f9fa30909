// Package compression implements the OpenEXR chunk compression algorithms.
//
// Every codec works on one chunk: the scanlines (or tile rows) of a part
// packed line by line, and within a line channel by channel in name order,
// each channel contributing the little-endian samples it has on that line.
// Layout describes that packing for the codecs that need to know pixel
// types (PXR24, HTJ2K); byte-oriented codecs (RLE, ZIP) ignore it.
package compression

import "errors"

// ErrSizeMismatch is returned when decoded data does not have the expected
// length.
var ErrSizeMismatch = errors.New("compression: decoded size mismatch")

// Pixel types, numbered as in the OpenEXR channel list.
const (
	PixelUint  = 0
	PixelHalf  = 1
	PixelFloat = 2
)

// PixelSize returns the byte size of one sample of the given type.
func PixelSize(t int) int {
	if t == PixelHalf {
		return 2
	}
	return 4
}

// ChannelInfo describes one channel inside a chunk.
type ChannelInfo struct {
	Name      string
	Type      int
	Width     int // samples per line
	YSampling int
}

// Layout describes the packing of one chunk.
type Layout struct {
	Y        int // absolute y of the first line of the chunk
	Lines    int
	Channels []ChannelInfo
}

// Has reports whether channel c has samples on chunk line i.
func (l Layout) Has(c, i int) bool {
	ys := l.Channels[c].YSampling
	if ys <= 1 {
		return true
	}
	y := (l.Y + i) % ys
	return y == 0
}

// Size returns the uncompressed byte size of the chunk.
func (l Layout) Size() int {
	n := 0
	for i := 0; i < l.Lines; i++ {
		for c, ch := range l.Channels {
			if l.Has(c, i) {
				n += ch.Width * PixelSize(ch.Type)
			}
		}
	}
	return n
}
