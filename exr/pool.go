package exr

import (
	"sync"
	"sync/atomic"
)

// bufferPool recycles the scratch buffers that hold one stored chunk while
// it is read or compressed. Buffers larger than the biggest class are
// allocated directly and dropped on put.
type bufferPool struct {
	pools  []*sync.Pool
	hits   atomic.Int64
	misses atomic.Int64
}

// Size classes match common chunk sizes.
var bufferSizes = []int{
	4 << 10,
	16 << 10,
	64 << 10,
	256 << 10,
	1 << 20,
	4 << 20,
}

var chunkBuffers = newBufferPool()

func newBufferPool() *bufferPool {
	p := &bufferPool{pools: make([]*sync.Pool, len(bufferSizes))}
	for i := range bufferSizes {
		p.pools[i] = &sync.Pool{}
	}
	return p
}

func sizeClass(size int) int {
	for i, s := range bufferSizes {
		if size <= s {
			return i
		}
	}
	return -1
}

// get returns a slice of length size.
func (p *bufferPool) get(size int) []byte {
	idx := sizeClass(size)
	if idx < 0 {
		p.misses.Add(1)
		return make([]byte, size)
	}
	if v := p.pools[idx].Get(); v != nil {
		p.hits.Add(1)
		return (*(v.(*[]byte)))[:size]
	}
	p.misses.Add(1)
	return make([]byte, size, bufferSizes[idx])
}

// put returns buf to its class. Slices that did not come from get are
// ignored.
func (p *bufferPool) put(buf []byte) {
	idx := sizeClass(cap(buf))
	if idx < 0 || cap(buf) != bufferSizes[idx] {
		return
	}
	buf = buf[:cap(buf)]
	p.pools[idx].Put(&buf)
}

func (p *bufferPool) stats() (hits, misses int64) {
	return p.hits.Load(), p.misses.Load()
}
