package exr

import (
	"math"
	"testing"
)

func TestBufferTypes(t *testing.T) {
	for _, pt := range []PixelType{PixelTypeHalf, PixelTypeFloat, PixelTypeUint} {
		b := NewBuffer(pt, 3, 2)
		if len(b.Data) != 6*pt.Size() {
			t.Fatalf("%s: %d bytes", pt, len(b.Data))
		}
		b.SetFloat32(2, 1, 5)
		if v := b.Float32At(2, 1); v != 5 {
			t.Errorf("%s: got %v, want 5", pt, v)
		}
		if v := b.Float32At(1, 1); v != 0 {
			t.Errorf("%s: neighbour changed to %v", pt, v)
		}
	}
}

func TestBufferUintClamp(t *testing.T) {
	b := NewBuffer(PixelTypeUint, 4, 1)
	b.SetFloat64(0, 0, -3)
	b.SetFloat64(1, 0, 1e12)
	b.SetFloat64(2, 0, 2.6)
	b.SetFloat64(3, 0, math.NaN())
	want := []uint32{0, math.MaxUint32, 3, 0}
	for x, w := range want {
		if got := b.Uint32At(x, 0); got != w {
			t.Errorf("sample %d = %d, want %d", x, got, w)
		}
	}
}

func TestBufferHalfRounding(t *testing.T) {
	b := NewBuffer(PixelTypeHalf, 1, 1)
	b.SetFloat64(0, 0, 1.0/3)
	if v := b.Float32At(0, 0); math.Abs(float64(v)-1.0/3) > 1e-3 {
		t.Errorf("1/3 stored as %v", v)
	}
}

func TestBufferFillAndFloat32s(t *testing.T) {
	b := NewBuffer(PixelTypeHalf, 4, 4)
	b.Fill(0.5)
	for i, v := range b.Float32s() {
		if v != 0.5 {
			t.Fatalf("sample %d = %v", i, v)
		}
	}
	b.Fill(0)
	for _, v := range b.Data {
		if v != 0 {
			t.Fatal("Fill(0) left data")
		}
	}
}

func TestBufferReframe(t *testing.T) {
	b := NewBuffer(PixelTypeFloat, 4, 3)
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			b.SetFloat32(x, y, float32(10*y+x+1))
		}
	}
	// new window starts one pixel right and one up of the old one
	r := b.reframe(5, 3, 1, -1)
	tests := []struct {
		x, y int
		want float32
	}{
		{0, 0, 0},  // above the old buffer
		{0, 1, 2},  // old (1, 0)
		{2, 2, 14}, // old (3, 1)
		{3, 1, 0},  // right of the old buffer
		{4, 2, 0},
	}
	for _, tt := range tests {
		if got := r.Float32At(tt.x, tt.y); got != tt.want {
			t.Errorf("(%d, %d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
	c := b.Clone()
	c.SetFloat32(0, 0, -1)
	if b.Float32At(0, 0) == -1 {
		t.Error("Clone shares data")
	}
}
