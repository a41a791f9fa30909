package compression

import (
	"encoding/binary"
	"math"
)

// PXR24 narrows FLOAT samples to 24 bits, splits every sample into byte
// planes per line and channel, differences the planes and deflates the
// result. HALF and UINT samples are kept exactly.

// float24 rounds a float32 bit pattern to its top 24 bits.
func float24(bits uint32) uint32 {
	sign := bits & 0x80000000
	exp := bits & 0x7f800000
	man := bits & 0x007fffff

	if exp == 0x7f800000 {
		if man != 0 {
			// Keep NaNs NaN after dropping the low byte.
			man >>= 8
			if man == 0 {
				man = 1
			}
			return sign>>8 | exp>>8 | man
		}
		return sign>>8 | exp>>8
	}
	v := ((exp | man) + (man & 0x80)) >> 8
	if v >= 0x7f8000 {
		// Rounding reached infinity; truncate instead.
		v = (exp | man) >> 8
	}
	return sign>>8 | v
}

func pxr24PlaneBytes(t int) int {
	switch t {
	case PixelHalf:
		return 2
	case PixelFloat:
		return 3
	default:
		return 4
	}
}

func pxr24ScratchSize(l Layout) int {
	n := 0
	for i := 0; i < l.Lines; i++ {
		for c, ch := range l.Channels {
			if l.Has(c, i) {
				n += ch.Width * pxr24PlaneBytes(ch.Type)
			}
		}
	}
	return n
}

// PXR24Compress encodes raw, packed according to l.
func PXR24Compress(raw []byte, l Layout) ([]byte, error) {
	if len(raw) != l.Size() {
		return nil, ErrSizeMismatch
	}
	scratch := make([]byte, pxr24ScratchSize(l))
	in, out := 0, 0
	for i := 0; i < l.Lines; i++ {
		for c, ch := range l.Channels {
			if !l.Has(c, i) {
				continue
			}
			w := ch.Width
			planes := pxr24PlaneBytes(ch.Type)
			var prev uint32
			for x := 0; x < w; x++ {
				var v uint32
				switch ch.Type {
				case PixelHalf:
					v = uint32(binary.LittleEndian.Uint16(raw[in:]))
					in += 2
				case PixelFloat:
					v = float24(binary.LittleEndian.Uint32(raw[in:]))
					in += 4
				default:
					v = binary.LittleEndian.Uint32(raw[in:])
					in += 4
				}
				d := v - prev
				prev = v
				// Most significant plane first.
				for p := 0; p < planes; p++ {
					shift := uint(8 * (planes - 1 - p))
					scratch[out+p*w+x] = byte(d >> shift)
				}
			}
			out += w * planes
		}
	}
	return Deflate(scratch)
}

// PXR24Decompress reverses PXR24Compress. FLOAT samples come back with the
// low mantissa byte cleared.
func PXR24Decompress(data []byte, l Layout, size int) ([]byte, error) {
	if size != l.Size() {
		return nil, ErrSizeMismatch
	}
	scratch, err := Inflate(data, pxr24ScratchSize(l))
	if err != nil {
		return nil, err
	}
	dst := make([]byte, size)
	in, out := 0, 0
	for i := 0; i < l.Lines; i++ {
		for c, ch := range l.Channels {
			if !l.Has(c, i) {
				continue
			}
			w := ch.Width
			planes := pxr24PlaneBytes(ch.Type)
			var acc uint32
			for x := 0; x < w; x++ {
				var d uint32
				for p := 0; p < planes; p++ {
					d = d<<8 | uint32(scratch[in+p*w+x])
				}
				acc += d
				switch ch.Type {
				case PixelHalf:
					binary.LittleEndian.PutUint16(dst[out:], uint16(acc))
					out += 2
				case PixelFloat:
					binary.LittleEndian.PutUint32(dst[out:], acc<<8)
					out += 4
				default:
					binary.LittleEndian.PutUint32(dst[out:], acc)
					out += 4
				}
			}
			in += w * planes
		}
	}
	return dst, nil
}

// float24To32 expands a 24-bit value produced by float24.
func float24To32(v uint32) float32 { return math.Float32frombits(v << 8) }
