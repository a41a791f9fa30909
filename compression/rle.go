package compression

import (
	"errors"

	"github.com/mrjoshuak/go-exredit/internal/interleave"
	"github.com/mrjoshuak/go-exredit/internal/predictor"
)

// ErrRLECorrupted is returned for truncated or overrunning RLE streams.
var ErrRLECorrupted = errors.New("compression: corrupted RLE data")

const (
	rleMinRun = 3
	rleMaxRun = 127
)

// RLEEncode run-length encodes src.
//
// A non-negative count byte n is followed by one byte repeated n+1 times;
// a negative count byte -n is followed by n literal bytes.
func RLEEncode(src []byte) []byte {
	dst := make([]byte, 0, len(src)+len(src)/64+2)
	start := 0
	for start < len(src) {
		end := start + 1
		for end < len(src) && src[end] == src[start] && end-start-1 < rleMaxRun {
			end++
		}
		if end-start >= rleMinRun {
			dst = append(dst, byte(end-start-1), src[start])
			start = end
			continue
		}
		for end < len(src) && end-start < rleMaxRun && !runAhead(src, end) {
			end++
		}
		dst = append(dst, byte(-int8(end-start)))
		dst = append(dst, src[start:end]...)
		start = end
	}
	return dst
}

// runAhead reports whether a run of at least three equal bytes starts at i.
func runAhead(src []byte, i int) bool {
	return i+2 < len(src) && src[i] == src[i+1] && src[i+1] == src[i+2]
}

// RLEDecode expands src, which must decode to exactly size bytes.
func RLEDecode(src []byte, size int) ([]byte, error) {
	dst := make([]byte, 0, size)
	for i := 0; i < len(src); {
		n := int(int8(src[i]))
		i++
		if n < 0 {
			n = -n
			if i+n > len(src) {
				return nil, ErrRLECorrupted
			}
			if len(dst)+n > size {
				return nil, ErrSizeMismatch
			}
			dst = append(dst, src[i:i+n]...)
			i += n
			continue
		}
		if i >= len(src) {
			return nil, ErrRLECorrupted
		}
		if len(dst)+n+1 > size {
			return nil, ErrSizeMismatch
		}
		for k := 0; k <= n; k++ {
			dst = append(dst, src[i])
		}
		i++
	}
	if len(dst) != size {
		return nil, ErrSizeMismatch
	}
	return dst, nil
}

// RLECompress applies the OpenEXR RLE pipeline: byte split, predictor,
// run-length encoding.
func RLECompress(raw []byte) []byte {
	tmp := interleave.Split(nil, raw)
	predictor.Encode(tmp)
	return RLEEncode(tmp)
}

// RLEDecompress reverses RLECompress.
func RLEDecompress(data []byte, size int) ([]byte, error) {
	tmp, err := RLEDecode(data, size)
	if err != nil {
		return nil, err
	}
	predictor.Decode(tmp)
	return interleave.Merge(nil, tmp), nil
}
