package half

import (
	"encoding/binary"
	"sync"
)

var (
	tableOnce sync.Once
	table     []float32
)

// lookup returns the full 65536 entry widening table, built on first use.
func lookup() []float32 {
	tableOnce.Do(func() {
		table = make([]float32, 1<<16)
		for i := range table {
			table[i] = Half(i).Float32()
		}
	})
	return table
}

// DecodeLE widens little-endian half samples from src into dst and returns
// the number of values written, min(len(dst), len(src)/2).
func DecodeLE(dst []float32, src []byte) int {
	n := min(len(dst), len(src)/2)
	t := lookup()
	for i := 0; i < n; i++ {
		dst[i] = t[binary.LittleEndian.Uint16(src[2*i:])]
	}
	return n
}

// EncodeLE narrows src into little-endian half samples in dst and returns
// the number of values written, min(len(src), len(dst)/2).
func EncodeLE(dst []byte, src []float32) int {
	n := min(len(src), len(dst)/2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(dst[2*i:], uint16(FromFloat32(src[i])))
	}
	return n
}
