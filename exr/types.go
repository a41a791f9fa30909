// Package exr models OpenEXR documents and reads and writes them.
//
// A Document is an ordered list of Parts. Each Part owns an ordered
// attribute Header, a list of Channels and, once decoded, one Buffer per
// channel holding the raw little-endian samples of the part's data window.
// Pixel chunks are compressed and decompressed through a Registry of
// Codecs keyed by the part's compression attribute; parts whose codec or
// layout is not available stay inspectable and are written back verbatim.
package exr

import (
	"fmt"
	"strings"
)

// V2i is a 2D integer vector.
type V2i struct{ X, Y int32 }

// V2f is a 2D float vector.
type V2f struct{ X, Y float32 }

// V2d is a 2D double vector.
type V2d struct{ X, Y float64 }

// V3i is a 3D integer vector.
type V3i struct{ X, Y, Z int32 }

// V3f is a 3D float vector.
type V3f struct{ X, Y, Z float32 }

// V3d is a 3D double vector.
type V3d struct{ X, Y, Z float64 }

// Box2i is an integer rectangle with inclusive corners.
type Box2i struct{ Min, Max V2i }

// NewBox2i returns the box spanning (x0, y0) to (x1, y1) inclusive.
func NewBox2i(x0, y0, x1, y1 int) Box2i {
	return Box2i{Min: V2i{int32(x0), int32(y0)}, Max: V2i{int32(x1), int32(y1)}}
}

// Width returns the number of columns.
func (b Box2i) Width() int { return int(b.Max.X) - int(b.Min.X) + 1 }

// Height returns the number of rows.
func (b Box2i) Height() int { return int(b.Max.Y) - int(b.Min.Y) + 1 }

// IsEmpty reports whether the box contains no pixels.
func (b Box2i) IsEmpty() bool { return b.Max.X < b.Min.X || b.Max.Y < b.Min.Y }

// Contains reports whether (x, y) lies inside the box.
func (b Box2i) Contains(x, y int) bool {
	return x >= int(b.Min.X) && x <= int(b.Max.X) && y >= int(b.Min.Y) && y <= int(b.Max.Y)
}

// Area returns the pixel count, zero for empty boxes.
func (b Box2i) Area() int64 {
	if b.IsEmpty() {
		return 0
	}
	return int64(b.Width()) * int64(b.Height())
}

func (b Box2i) String() string {
	return fmt.Sprintf("(%d %d) - (%d %d)", b.Min.X, b.Min.Y, b.Max.X, b.Max.Y)
}

// Box2f is a float rectangle.
type Box2f struct{ Min, Max V2f }

// Matrices are stored row-major.
type (
	M33f [9]float32
	M33d [9]float64
	M44f [16]float32
	M44d [16]float64
)

// FloatVector is a variable length list of floats.
type FloatVector []float32

// Rational is a fraction such as a frame rate.
type Rational struct {
	Num   int32
	Denom uint32
}

// Float64 returns the value of r, or 0 for a zero denominator.
func (r Rational) Float64() float64 {
	if r.Denom == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Denom)
}

// Chromaticities holds the CIE xy coordinates of the primaries and white
// point.
type Chromaticities struct {
	Red, Green, Blue, White V2f
}

// Rec709Chromaticities are the default primaries of OpenEXR images.
var Rec709Chromaticities = Chromaticities{
	Red:   V2f{0.6400, 0.3300},
	Green: V2f{0.3000, 0.6000},
	Blue:  V2f{0.1500, 0.0600},
	White: V2f{0.3127, 0.3290},
}

// TimeCode is an SMPTE time code in its packed form.
type TimeCode struct {
	TimeAndFlags uint32
	UserData     uint32
}

// Hours, Minutes, Seconds and Frame decode the BCD fields.
func (tc TimeCode) Hours() int   { return bcd(tc.TimeAndFlags>>24, 0x3f) }
func (tc TimeCode) Minutes() int { return bcd(tc.TimeAndFlags>>16, 0x7f) }
func (tc TimeCode) Seconds() int { return bcd(tc.TimeAndFlags>>8, 0x7f) }
func (tc TimeCode) Frame() int   { return bcd(tc.TimeAndFlags, 0x3f) }

// DropFrame reports the drop-frame flag.
func (tc TimeCode) DropFrame() bool { return tc.TimeAndFlags&(1<<6) != 0 }

func bcd(v, mask uint32) int {
	v &= mask
	return int(v>>4)*10 + int(v&0xf)
}

func (tc TimeCode) String() string {
	sep := ":"
	if tc.DropFrame() {
		sep = ";"
	}
	return fmt.Sprintf("%02d:%02d:%02d%s%02d", tc.Hours(), tc.Minutes(), tc.Seconds(), sep, tc.Frame())
}

// KeyCode identifies a film frame.
type KeyCode struct {
	FilmMfcCode   int32
	FilmType      int32
	Prefix        int32
	Count         int32
	PerfOffset    int32
	PerfsPerFrame int32
	PerfsPerCount int32
}

// Preview is a small RGBA8 thumbnail stored in the header.
type Preview struct {
	Width, Height uint32
	Pixels        []byte
}

// Compression identifies the chunk compression scheme of a part.
type Compression uint8

const (
	CompressionNone     Compression = 0
	CompressionRLE      Compression = 1
	CompressionZIPS     Compression = 2
	CompressionZIP      Compression = 3
	CompressionPIZ      Compression = 4
	CompressionPXR24    Compression = 5
	CompressionB44      Compression = 6
	CompressionB44A     Compression = 7
	CompressionDWAA     Compression = 8
	CompressionDWAB     Compression = 9
	CompressionHTJ2K256 Compression = 10
	CompressionHTJ2K32  Compression = 11
)

var compressionNames = [...]string{
	"none", "rle", "zips", "zip", "piz", "pxr24", "b44", "b44a", "dwaa", "dwab", "htj2k256", "htj2k32",
}

func (c Compression) String() string {
	if int(c) < len(compressionNames) {
		return compressionNames[c]
	}
	return fmt.Sprintf("compression(%d)", uint8(c))
}

// ParseCompression maps a name such as "zip" to its Compression.
func ParseCompression(s string) (Compression, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "_compression")
	for i, n := range compressionNames {
		if n == s {
			return Compression(i), nil
		}
	}
	return 0, fmt.Errorf("%w: compression %q", ErrUnparseable, s)
}

// ScanlinesPerChunk returns how many scanlines one chunk holds.
func (c Compression) ScanlinesPerChunk() int {
	switch c {
	case CompressionZIP, CompressionPXR24:
		return 16
	case CompressionPIZ, CompressionB44, CompressionB44A, CompressionDWAA, CompressionHTJ2K32:
		return 32
	case CompressionDWAB, CompressionHTJ2K256:
		return 256
	}
	return 1
}

// IsLossy reports whether the scheme can alter sample values.
func (c Compression) IsLossy() bool {
	switch c {
	case CompressionPXR24, CompressionB44, CompressionB44A, CompressionDWAA, CompressionDWAB:
		return true
	}
	return false
}

// LineOrder is the order scanline chunks are stored in.
type LineOrder uint8

const (
	LineOrderIncreasing LineOrder = 0
	LineOrderDecreasing LineOrder = 1
	LineOrderRandom     LineOrder = 2
)

var lineOrderNames = [...]string{"increasing_y", "decreasing_y", "random_y"}

func (lo LineOrder) String() string {
	if int(lo) < len(lineOrderNames) {
		return lineOrderNames[lo]
	}
	return fmt.Sprintf("lineOrder(%d)", uint8(lo))
}

// ParseLineOrder maps "increasing_y" (or "increasing") to its LineOrder.
func ParseLineOrder(s string) (LineOrder, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range lineOrderNames {
		if n == s || strings.TrimSuffix(n, "_y") == s {
			return LineOrder(i), nil
		}
	}
	return 0, fmt.Errorf("%w: line order %q", ErrUnparseable, s)
}

// EnvMap is the environment map projection of a part.
type EnvMap uint8

const (
	EnvMapLatLong EnvMap = 0
	EnvMapCube    EnvMap = 1
)

func (e EnvMap) String() string {
	switch e {
	case EnvMapLatLong:
		return "latlong"
	case EnvMapCube:
		return "cube"
	}
	return fmt.Sprintf("envmap(%d)", uint8(e))
}

// LevelMode selects single level, mipmapped or ripmapped tiles.
type LevelMode uint8

const (
	LevelOne    LevelMode = 0
	LevelMipmap LevelMode = 1
	LevelRipmap LevelMode = 2
)

// LevelRounding selects how level sizes are rounded.
type LevelRounding uint8

const (
	RoundDown LevelRounding = 0
	RoundUp   LevelRounding = 1
)

// TileDescription is the value of the "tiles" attribute.
type TileDescription struct {
	XSize, YSize uint32
	Mode         LevelMode
	Rounding     LevelRounding
}

func (td TileDescription) String() string {
	mode := [...]string{"one", "mipmap", "ripmap"}
	m := "unknown"
	if int(td.Mode) < len(mode) {
		m = mode[td.Mode]
	}
	return fmt.Sprintf("%dx%d %s", td.XSize, td.YSize, m)
}
