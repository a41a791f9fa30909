package exr

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/mrjoshuak/go-exredit/internal/xdr"
)

func decodeBytes(data []byte, opts ReadOptions) (*Document, error) {
	return Decode(context.Background(), bytes.NewReader(data), int64(len(data)), opts)
}

func wantDecodeError(t *testing.T, err error, kind DecodeErrorKind) *DecodeError {
	t.Helper()
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want DecodeError", err)
	}
	if de.Kind != kind {
		t.Fatalf("kind = %s, want %s (%v)", de.Kind, kind, err)
	}
	return de
}

func TestDecodeBadMagic(t *testing.T) {
	for _, data := range [][]byte{nil, {0x76, 0x2f}, []byte("not an exr file")} {
		_, err := decodeBytes(data, ReadOptions{})
		wantDecodeError(t, err, DecodeBadMagic)
		if !errors.Is(err, ErrBadMagic) {
			t.Errorf("errors.Is(ErrBadMagic) = false for %q", data)
		}
	}
}

func TestDecodeUnsupportedVersion(t *testing.T) {
	good := encodeBytes(t, testDoc(t, testPart(t, "", rgbaSpec(2, 2, CompressionNone))), WriteOptions{})
	for _, patch := range []func(b []byte){
		func(b []byte) { b[4] = 3 },
		func(b []byte) { b[6] = 0x10 },
	} {
		data := bytes.Clone(good)
		patch(data)
		_, err := decodeBytes(data, ReadOptions{})
		wantDecodeError(t, err, DecodeUnsupportedVersion)
	}
}

// rawHeader encodes a single-part file header from attrs, followed by an
// offset table of n zero entries.
func rawHeader(t *testing.T, attrs []Attribute, n int) []byte {
	t.Helper()
	w := xdr.NewWriter(0)
	w.WriteUint32(MagicNumber)
	w.WriteUint32(Version)
	for _, a := range attrs {
		if err := WriteAttribute(w, a); err != nil {
			t.Fatal(err)
		}
	}
	_ = w.WriteByte(0)
	w.WriteBytes(make([]byte, 8*n))
	return w.Bytes()
}

func TestDecodeMissingRequiredAttribute(t *testing.T) {
	h := defaultHeader(NewBox2i(0, 0, 3, 3), NewBox2i(0, 0, 3, 3), CompressionNone, LineOrderIncreasing)
	h.Remove(AttrScreenWindowWidth)
	_, err := decodeBytes(rawHeader(t, h.Attributes(), 4), ReadOptions{})
	de := wantDecodeError(t, err, DecodeUnknownRequiredAttribute)
	if de.Attribute != AttrScreenWindowWidth || de.Part != 0 {
		t.Errorf("error names part %d attribute %q", de.Part, de.Attribute)
	}
	if !strings.Contains(err.Error(), AttrScreenWindowWidth) {
		t.Errorf("message %q does not name the attribute", err)
	}
}

func TestDecodeMalformedHeaders(t *testing.T) {
	good := encodeBytes(t, testDoc(t, testPart(t, "", rgbaSpec(2, 2, CompressionNone))), WriteOptions{})
	_, err := decodeBytes(good[:40], ReadOptions{})
	wantDecodeError(t, err, DecodeMalformedHeader)

	h := defaultHeader(NewBox2i(0, 0, 3, 3), NewBox2i(0, 0, 3, 3), CompressionNone, LineOrderIncreasing)
	h.SetChannels(ChannelList{{Name: "C", Type: PixelTypeHalf, XSampling: 3, YSampling: 1}})
	_, err = decodeBytes(rawHeader(t, h.Attributes(), 4), ReadOptions{})
	de := wantDecodeError(t, err, DecodeMalformedHeader)
	if de.Attribute != AttrChannels || !errors.Is(err, ErrBadSampling) {
		t.Errorf("sampling error = %v", err)
	}

	h = defaultHeader(NewBox2i(5, 0, 3, 3), NewBox2i(0, 0, 3, 3), CompressionNone, LineOrderIncreasing)
	_, err = decodeBytes(rawHeader(t, h.Attributes(), 4), ReadOptions{})
	wantDecodeError(t, err, DecodeMalformedHeader)

	h = defaultHeader(NewBox2i(0, 0, 3, 3), NewBox2i(0, 0, 3, 3), CompressionNone, LineOrderIncreasing)
	h.set(Attribute{Name: AttrCompression, Type: TypeInt, Value: int32(3)})
	_, err = decodeBytes(rawHeader(t, h.Attributes(), 4), ReadOptions{})
	de = wantDecodeError(t, err, DecodeMalformedHeader)
	if de.Attribute != AttrCompression {
		t.Errorf("attribute = %q", de.Attribute)
	}
}

func TestDecodeMemoryLimit(t *testing.T) {
	h := defaultHeader(NewBox2i(0, 0, 99999, 99999), NewBox2i(0, 0, 3, 3), CompressionNone, LineOrderIncreasing)
	h.SetChannels(ChannelList{NewChannel("R", PixelTypeFloat)})
	h.SetChunkCount(0)
	data := rawHeader(t, h.Attributes(), 0)
	_, err := decodeBytes(data, ReadOptions{})
	var me *MemoryLimitExceededError
	if !errors.As(err, &me) || me.Requested != 4*100000*100000 {
		t.Fatalf("err = %v", err)
	}
}

func TestOpenLazyDecodesNothing(t *testing.T) {
	spec := rgbaSpec(64, 64, CompressionZIP)
	want := testPart(t, "", spec)
	fs := memfs.New()
	ctx := context.Background()
	if err := WriteFile(ctx, fs, "/lazy.exr", testDoc(t, want), WriteOptions{}); err != nil {
		t.Fatal(err)
	}
	doc, err := Open(ctx, fs, "/lazy.exr", ReadOptions{Mode: LoadLazy})
	if err != nil {
		t.Fatal(err)
	}
	p := doc.parts[0]
	if p.Loaded() || len(p.buffers) != 0 {
		t.Fatal("lazy open decoded pixels")
	}
	if p.DataWindow() != spec.DataWindow || len(p.Layers()) != 1 {
		t.Error("headers not available before decode")
	}
	if _, err := p.Sample("G", 63, 63); err != nil {
		t.Fatal(err)
	}
	if !p.Loaded() {
		t.Error("pixel access did not load the part")
	}
	comparePixels(t, want, p)
}

func TestDecodeCorruptChunk(t *testing.T) {
	data := encodeBytes(t, testDoc(t, testPart(t, "", rgbaSpec(32, 32, CompressionZIP))), WriteOptions{})
	for i := len(data) - 40; i < len(data); i++ {
		data[i] ^= 0x5a
	}
	_, err := decodeBytes(data, ReadOptions{Mode: LoadEager})
	wantDecodeError(t, err, DecodeCodecFailure)

	doc, err := decodeBytes(data, ReadOptions{Mode: LoadLazy})
	if err != nil {
		t.Fatalf("lazy open of a file with a bad chunk: %v", err)
	}
	err = doc.parts[0].Load(context.Background())
	de := wantDecodeError(t, err, DecodeCodecFailure)
	if de.Part != 0 {
		t.Errorf("part = %d", de.Part)
	}
}

func TestDecodeChunkOutsideFile(t *testing.T) {
	data := encodeBytes(t, testDoc(t, testPart(t, "", rgbaSpec(4, 4, CompressionNone))), WriteOptions{})
	_, err := decodeBytes(data[:len(data)-3], ReadOptions{Mode: LoadEager})
	wantDecodeError(t, err, DecodeCodecFailure)
}

func TestDecodeCancelled(t *testing.T) {
	data := encodeBytes(t, testDoc(t, testPart(t, "", rgbaSpec(8, 8, CompressionZIP))), WriteOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, mode := range []LoadMode{LoadEager, LoadLazy} {
		doc, err := Decode(ctx, bytes.NewReader(data), int64(len(data)), ReadOptions{Mode: mode})
		if doc != nil || !errors.Is(err, context.Canceled) {
			t.Errorf("%s: got %v, %v", mode, doc, err)
		}
	}
}

func TestDecodeLargeHeader(t *testing.T) {
	p := testPart(t, "", rgbaSpec(4, 4, CompressionZIP))
	big := strings.Repeat("x", 200<<10)
	if err := p.SetAttribute(Attribute{"comments", TypeString, big}); err != nil {
		t.Fatal(err)
	}
	fs := memfs.New()
	ctx := context.Background()
	if err := WriteFile(ctx, fs, "/big.exr", testDoc(t, p), WriteOptions{}); err != nil {
		t.Fatal(err)
	}
	doc, err := Open(ctx, fs, "/big.exr", ReadOptions{Mode: LoadEager})
	if err != nil {
		t.Fatal(err)
	}
	if a, _ := doc.parts[0].Attribute("comments"); a.Value != big {
		t.Error("large attribute not read back")
	}
	comparePixels(t, p, doc.parts[0])
}

// deepFile builds a single-part deep scanline file with one chunk.
func deepFile(t *testing.T) []byte {
	t.Helper()
	h := defaultHeader(NewBox2i(0, 0, 1, 0), NewBox2i(0, 0, 1, 0), CompressionNone, LineOrderIncreasing)
	h.SetChannels(ChannelList{NewChannel("Z", PixelTypeFloat)})
	h.SetType(PartDeepScanline)
	h.SetChunkCount(1)
	w := xdr.NewWriter(0)
	w.WriteUint32(MagicNumber)
	w.WriteUint32(Version | FlagDeep)
	for _, a := range h.Attributes() {
		if err := WriteAttribute(w, a); err != nil {
			t.Fatal(err)
		}
	}
	_ = w.WriteByte(0)
	table := w.Len()
	w.WriteUint64(0)
	chunk := w.Len()
	w.WriteInt32(0)  // y
	w.WriteUint64(8) // sample count table
	w.WriteUint64(8) // sample data
	w.WriteUint64(8)
	w.WriteInt32(1) // cumulative counts
	w.WriteInt32(2)
	w.WriteFloat32(1.5)
	w.WriteFloat32(2.5)
	if err := w.PutUint64At(table, uint64(chunk)); err != nil {
		t.Fatal(err)
	}
	return w.Bytes()
}

func TestDeepPartPreserved(t *testing.T) {
	in := deepFile(t)
	fs := memfs.New()
	ctx := context.Background()
	if err := util.WriteFile(fs, "/deep.exr", in, 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := Open(ctx, fs, "/deep.exr", ReadOptions{Mode: LoadEager})
	if err != nil {
		t.Fatal(err)
	}
	p := doc.parts[0]
	if p.Type() != PartDeepScanline || p.Readable() || !errors.Is(p.Err(), ErrUnsupportedLayout) {
		t.Fatalf("deep part: type %s readable %v err %v", p.Type(), p.Readable(), p.Err())
	}
	if err := WriteFile(ctx, fs, "/copy.exr", doc, WriteOptions{}); err != nil {
		t.Fatal(err)
	}
	if out := readFile(t, fs, "/copy.exr"); !bytes.Equal(in, out) {
		t.Errorf("deep file changed on save:\n% x\n% x", in, out)
	}
}
