package exr

import "testing"

func TestBufferPoolGet(t *testing.T) {
	pool := newBufferPool()
	tests := []struct {
		size    int
		wantCap int
	}{
		{100, 4 << 10},
		{4096, 4 << 10},
		{5000, 16 << 10},
		{1 << 20, 1 << 20},
		{5 << 20, 5 << 20}, // larger than every class
	}
	for _, tt := range tests {
		buf := pool.get(tt.size)
		if len(buf) != tt.size || cap(buf) != tt.wantCap {
			t.Errorf("get(%d): len %d cap %d, want cap %d", tt.size, len(buf), cap(buf), tt.wantCap)
		}
		pool.put(buf)
	}
}

func TestBufferPoolIgnoresForeignSlices(t *testing.T) {
	pool := newBufferPool()
	pool.put(make([]byte, 100))
	pool.put(nil)
	if buf := pool.get(100); cap(buf) != 4<<10 {
		t.Errorf("cap = %d, foreign slice was pooled", cap(buf))
	}
}

func TestBufferPoolStats(t *testing.T) {
	pool := newBufferPool()
	buf := pool.get(1000)
	pool.put(buf)
	pool.get(2000)
	hits, misses := pool.stats()
	if hits+misses != 2 || misses < 1 {
		t.Errorf("hits %d misses %d", hits, misses)
	}
}

func TestSizeClass(t *testing.T) {
	for size, want := range map[int]int{0: 0, 4096: 0, 4097: 1, 4 << 20: 5, 4<<20 + 1: -1} {
		if got := sizeClass(size); got != want {
			t.Errorf("sizeClass(%d) = %d, want %d", size, got, want)
		}
	}
}
