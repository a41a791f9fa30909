// Package predictor implements the byte-delta predictor OpenEXR runs over
// interleaved data before ZIP and RLE compression.
//
// Each byte after the first is replaced by its difference from the previous
// byte plus 128, so flat regions become runs of 0x80.
package predictor

// Encode applies the predictor to data in place.
func Encode(data []byte) {
	if len(data) < 2 {
		return
	}
	prev := data[0]
	for i := 1; i < len(data); i++ {
		cur := data[i]
		data[i] = cur - prev + 128
		prev = cur
	}
}

// Decode reverses Encode in place.
func Decode(data []byte) {
	for i := 1; i < len(data); i++ {
		data[i] = data[i-1] + data[i] - 128
	}
}
