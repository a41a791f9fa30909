package exr

import (
	"bytes"
	"context"
	"slices"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
)

// testPart builds a part whose samples follow a per-channel pattern that
// is exact in every pixel type.
func testPart(t *testing.T, name string, spec PartSpec) *Part {
	t.Helper()
	p, err := NewPart(name, spec)
	if err != nil {
		t.Fatalf("NewPart: %v", err)
	}
	for c, ch := range p.Channels() {
		b := p.buffers[ch.Name]
		for y := 0; y < b.Height; y++ {
			for x := 0; x < b.Width; x++ {
				b.SetFloat64(x, y, float64((x+3*y+7*c)%64)/4)
			}
		}
	}
	return p
}

func rgbaSpec(w, h int, c Compression) PartSpec {
	return PartSpec{
		DataWindow:  NewBox2i(0, 0, w-1, h-1),
		Compression: c,
		Channels: []Channel{
			NewChannel("R", PixelTypeHalf),
			NewChannel("G", PixelTypeHalf),
			NewChannel("B", PixelTypeHalf),
			NewChannel("A", PixelTypeHalf),
		},
	}
}

func testDoc(t *testing.T, parts ...*Part) *Document {
	t.Helper()
	doc := NewDocument()
	for _, p := range parts {
		if err := doc.AddPart(p); err != nil {
			t.Fatalf("AddPart: %v", err)
		}
	}
	return doc
}

func saveAndOpen(t *testing.T, doc *Document, mode LoadMode) (billy.Filesystem, *Document) {
	t.Helper()
	fs := memfs.New()
	if err := WriteFile(context.Background(), fs, "/out/test.exr", doc, WriteOptions{}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := Open(context.Background(), fs, "/out/test.exr", ReadOptions{Mode: mode})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return fs, got
}

func readFile(t *testing.T, fs billy.Filesystem, path string) []byte {
	t.Helper()
	b, err := util.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("ReadFile %s: %v", path, err)
	}
	return b
}

// encodeBytes writes doc into memory.
func encodeBytes(t *testing.T, doc *Document, opts WriteOptions) []byte {
	t.Helper()
	fs := memfs.New()
	f, err := fs.Create("/mem.exr")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Encode(context.Background(), f, doc, opts); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	f.Close()
	return readFile(t, fs, "/mem.exr")
}

func comparePixels(t *testing.T, want, got *Part) {
	t.Helper()
	if a, b := want.Channels().Sorted().Names(), got.Channels().Sorted().Names(); !slices.Equal(a, b) {
		t.Fatalf("channels = %v, want %v", b, a)
	}
	for _, name := range want.Channels().Names() {
		wb, err := want.Buffer(name)
		if err != nil {
			t.Fatal(err)
		}
		gb, err := got.Buffer(name)
		if err != nil {
			t.Fatalf("channel %s: %v", name, err)
		}
		if wb.Width != gb.Width || wb.Height != gb.Height || wb.Type != gb.Type {
			t.Fatalf("channel %s: %dx%d %s, want %dx%d %s", name, gb.Width, gb.Height, gb.Type, wb.Width, wb.Height, wb.Type)
		}
		if !bytes.Equal(wb.Data, gb.Data) {
			t.Errorf("channel %s: samples differ", name)
		}
	}
}
