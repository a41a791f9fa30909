package exr

import (
	"errors"
	"testing"
)

func TestBox2i(t *testing.T) {
	b := NewBox2i(-2, 3, 5, 10)
	if b.Width() != 8 || b.Height() != 8 {
		t.Errorf("size = %dx%d, want 8x8", b.Width(), b.Height())
	}
	if !b.Contains(-2, 3) || !b.Contains(5, 10) || b.Contains(6, 10) || b.Contains(5, 2) {
		t.Error("Contains is wrong at the edges")
	}
	if b.Area() != 64 {
		t.Errorf("Area = %d", b.Area())
	}
	if !NewBox2i(1, 0, 0, 0).IsEmpty() {
		t.Error("inverted box is not empty")
	}
}

func TestCompressionNames(t *testing.T) {
	for c := CompressionNone; c <= CompressionHTJ2K32; c++ {
		got, err := ParseCompression(c.String())
		if err != nil || got != c {
			t.Errorf("ParseCompression(%q) = %v, %v", c.String(), got, err)
		}
	}
	if c, err := ParseCompression("ZIP_COMPRESSION"); err != nil || c != CompressionZIP {
		t.Errorf("ZIP_COMPRESSION = %v, %v", c, err)
	}
	if _, err := ParseCompression("lzma"); !errors.Is(err, ErrUnparseable) {
		t.Errorf("lzma: err = %v", err)
	}
}

func TestScanlinesPerChunk(t *testing.T) {
	want := map[Compression]int{
		CompressionNone: 1, CompressionRLE: 1, CompressionZIPS: 1, CompressionZIP: 16,
		CompressionPIZ: 32, CompressionPXR24: 16, CompressionB44: 32, CompressionB44A: 32,
		CompressionDWAA: 32, CompressionDWAB: 256, CompressionHTJ2K256: 256, CompressionHTJ2K32: 32,
	}
	for c, n := range want {
		if got := c.ScanlinesPerChunk(); got != n {
			t.Errorf("%s: %d scanlines, want %d", c, got, n)
		}
	}
}

func TestLineOrderParse(t *testing.T) {
	for _, s := range []string{"decreasing_y", "DECREASING", " decreasing "} {
		if lo, err := ParseLineOrder(s); err != nil || lo != LineOrderDecreasing {
			t.Errorf("ParseLineOrder(%q) = %v, %v", s, lo, err)
		}
	}
}

func TestTimeCode(t *testing.T) {
	tc := TimeCode{TimeAndFlags: 0x12345620}
	if got := tc.String(); got != "12:34:56:20" {
		t.Errorf("String = %q", got)
	}
	tc.TimeAndFlags |= 1 << 6
	if !tc.DropFrame() {
		t.Error("drop frame flag not reported")
	}
}

func TestRational(t *testing.T) {
	if v := (Rational{24000, 1001}).Float64(); v < 23.97 || v > 23.98 {
		t.Errorf("24000/1001 = %v", v)
	}
	if v := (Rational{1, 0}).Float64(); v != 0 {
		t.Errorf("x/0 = %v", v)
	}
}
