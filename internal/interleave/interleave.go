// Package interleave implements the byte reordering OpenEXR applies before
// its ZIP and RLE encoders.
//
// Bytes at even offsets are moved to the first half of the output and bytes
// at odd offsets to the second half, so the low and high bytes of 16-bit
// samples end up grouped:
//
//	[a0 a1 b0 b1 c0 c1] -> [a0 b0 c0 a1 b1 c1]
//
// For odd lengths the first half holds one extra byte.
package interleave

// Split writes the reordered form of src into dst, allocating dst when it
// is shorter than src, and returns it.
func Split(dst, src []byte) []byte {
	dst = grow(dst, len(src))
	half := (len(src) + 1) / 2
	lo, hi := dst[:half], dst[half:]
	for i := 0; i < len(src); i += 2 {
		lo[i/2] = src[i]
		if i+1 < len(src) {
			hi[i/2] = src[i+1]
		}
	}
	return dst
}

// Merge reverses Split.
func Merge(dst, src []byte) []byte {
	dst = grow(dst, len(src))
	half := (len(src) + 1) / 2
	lo, hi := src[:half], src[half:]
	for i := 0; i < len(src); i += 2 {
		dst[i] = lo[i/2]
		if i+1 < len(src) {
			dst[i+1] = hi[i/2]
		}
	}
	return dst
}

func grow(b []byte, n int) []byte {
	if cap(b) < n {
		return make([]byte, n)
	}
	return b[:n]
}
