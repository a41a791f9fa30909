package exr

import (
	"bytes"
	"errors"
	"slices"
	"testing"

	"github.com/mrjoshuak/go-exredit/compression"
)

// identityCodec stores chunks unchanged. Tests register it under schemes
// the default registry lacks.
type identityCodec struct{}

func (identityCodec) Compress(raw []byte, _ ChunkLayout) ([]byte, error) { return raw, nil }

func (identityCodec) Decompress(data []byte, _ ChunkLayout, _ int) ([]byte, error) {
	return data, nil
}

// shortCodec always decodes one byte too few.
type shortCodec struct{}

func (shortCodec) Compress(raw []byte, _ ChunkLayout) ([]byte, error) { return raw, nil }

func (shortCodec) Decompress(data []byte, _ ChunkLayout, size int) ([]byte, error) {
	return make([]byte, size-1), nil
}

func TestRegistryDefaults(t *testing.T) {
	r := NewRegistry()
	want := []Compression{CompressionNone, CompressionRLE, CompressionZIPS, CompressionZIP,
		CompressionPXR24, CompressionHTJ2K256, CompressionHTJ2K32}
	if got := r.Schemes(); !slices.Equal(got, want) {
		t.Errorf("Schemes = %v, want %v", got, want)
	}
	for _, c := range []Compression{CompressionPIZ, CompressionB44, CompressionB44A, CompressionDWAA, CompressionDWAB} {
		if r.Supports(c) {
			t.Errorf("%s unexpectedly registered", c)
		}
	}
}

func TestRegistryUnsupported(t *testing.T) {
	r := NewRegistry()
	_, err := r.Decompress(CompressionPIZ, []byte{1}, 4, ChunkLayout{})
	var ce *CodecError
	if !errors.As(err, &ce) || ce.Kind != CodecUnsupported || ce.Scheme != CompressionPIZ {
		t.Fatalf("err = %v", err)
	}
	if !errors.Is(err, ErrUnsupportedCompression) {
		t.Error("errors.Is(ErrUnsupportedCompression) = false")
	}
	if _, err := r.Compress(CompressionDWAB, nil, ChunkLayout{}); !errors.Is(err, ErrUnsupportedCompression) {
		t.Errorf("Compress err = %v", err)
	}
}

func TestRegistrySizeMismatch(t *testing.T) {
	r := NewRegistry()
	r.Register(CompressionB44, shortCodec{})
	_, err := r.Decompress(CompressionB44, []byte{1, 2}, 8, ChunkLayout{})
	var ce *CodecError
	if !errors.As(err, &ce) || ce.Kind != CodecSizeMismatch || ce.Expected != 8 || ce.Actual != 7 {
		t.Fatalf("err = %v", err)
	}
	if !errors.Is(err, ErrSizeMismatch) {
		t.Error("errors.Is(ErrSizeMismatch) = false")
	}

	z, _ := compression.ZIPCompress(bytes.Repeat([]byte{7}, 100))
	if _, err := r.Decompress(CompressionZIP, z, 99, ChunkLayout{}); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("zip with wrong size: err = %v", err)
	}
}

func TestRegistryRoundTrip(t *testing.T) {
	r := NewRegistry()
	raw := bytes.Repeat([]byte{0, 60, 0, 60, 1, 2, 3, 4}, 64)
	l := ChunkLayout{Y: 0, Lines: 1, Channels: []compression.ChannelInfo{
		{Name: "R", Type: compression.PixelHalf, Width: 256, YSampling: 1},
	}}
	for _, c := range []Compression{CompressionNone, CompressionRLE, CompressionZIPS, CompressionZIP, CompressionPXR24} {
		packed, err := r.Compress(c, raw, l)
		if err != nil {
			t.Fatalf("%s: %v", c, err)
		}
		got, err := r.Decompress(c, packed, len(raw), l)
		if err != nil {
			t.Fatalf("%s: %v", c, err)
		}
		if !bytes.Equal(got, raw) {
			t.Errorf("%s: round trip differs", c)
		}
	}
}

func TestRegistryClone(t *testing.T) {
	r := NewRegistry()
	c := r.Clone()
	c.Register(CompressionPIZ, identityCodec{})
	c.Unregister(CompressionZIP)
	if r.Supports(CompressionPIZ) || !r.Supports(CompressionZIP) {
		t.Error("Clone shares the codec map")
	}
	if codec, ok := c.Lookup(CompressionPIZ); !ok || codec == nil {
		t.Error("registered codec not found")
	}
}

func TestRegistryHTJ2KChannels(t *testing.T) {
	r := NewRegistry()
	half := func(names ...string) ChunkLayout {
		l := ChunkLayout{Y: 0, Lines: 8}
		for _, n := range names {
			l.Channels = append(l.Channels, compression.ChannelInfo{Name: n, Type: compression.PixelHalf, Width: 16, YSampling: 1})
		}
		return l
	}
	for _, l := range []ChunkLayout{half("A", "Y"), half("B", "G", "R"), half("A", "B", "G", "R")} {
		raw := bytes.Repeat([]byte{0, 60}, l.Size()/2)
		for _, c := range []Compression{CompressionHTJ2K256, CompressionHTJ2K32} {
			packed, err := r.Compress(c, raw, l)
			if err != nil {
				t.Fatalf("%s %d channels: %v", c, len(l.Channels), err)
			}
			got, err := r.Decompress(c, packed, len(raw), l)
			if err != nil {
				t.Fatalf("%s %d channels: %v", c, len(l.Channels), err)
			}
			if len(got) != len(raw) {
				t.Errorf("%s %d channels: %d bytes, want %d", c, len(l.Channels), len(got), len(raw))
			}
		}
	}
}
