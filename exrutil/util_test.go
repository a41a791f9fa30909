package exrutil

import (
	"context"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrjoshuak/go-exredit/exr"
	"github.com/mrjoshuak/go-exredit/exrmeta"
)

func gradientPart(t *testing.T, name string, w, h int, channels ...exr.Channel) *exr.Part {
	t.Helper()
	p, err := exr.NewPart(name, exr.PartSpec{
		DataWindow:  exr.NewBox2i(0, 0, w-1, h-1),
		Compression: exr.CompressionZIP,
		Channels:    channels,
	})
	require.NoError(t, err)
	for _, ch := range p.Channels() {
		for y := 0; y < h; y += int(ch.YSampling) {
			for x := 0; x < w; x += int(ch.XSampling) {
				require.NoError(t, p.SetSample(ch.Name, x, y, float64(x+y)/8))
			}
		}
	}
	return p
}

func writeDoc(t *testing.T, fs billy.Filesystem, path string, parts ...*exr.Part) {
	t.Helper()
	doc := exr.NewDocument()
	for _, p := range parts {
		require.NoError(t, doc.AddPart(p))
	}
	require.NoError(t, exr.WriteFile(context.Background(), fs, path, doc, exr.WriteOptions{}))
}

func TestGetFileInfo(t *testing.T) {
	fs := memfs.New()
	half := func(n string) exr.Channel { return exr.NewChannel(n, exr.PixelTypeHalf) }
	beauty := gradientPart(t, "beauty", 16, 8, half("R"), half("G"), half("B"), half("diffuse.R"))
	depth := gradientPart(t, "depth", 16, 8, exr.NewChannel("Z", exr.PixelTypeFloat))
	require.NoError(t, exrmeta.SetCryptomatte(depth, "CryptoObject", []string{"rock"}))
	writeDoc(t, fs, "/shot.exr", beauty, depth)

	info, err := GetFileInfo(context.Background(), fs, "/shot.exr")
	require.NoError(t, err)
	assert.True(t, info.Multipart)
	assert.Positive(t, info.FileSize)
	require.Len(t, info.Parts, 2)

	p0 := info.Parts[0]
	assert.Equal(t, "beauty", p0.Name)
	assert.Equal(t, exr.PartScanline, p0.Type)
	assert.Equal(t, 16, p0.Width)
	assert.Equal(t, 8, p0.Height)
	assert.Equal(t, exr.CompressionZIP, p0.Compression)
	assert.Equal(t, []string{"B", "G", "R", "diffuse.R"}, p0.Channels)
	assert.Equal(t, []string{"default", "diffuse"}, p0.Layers)
	assert.True(t, p0.Readable)
	assert.Nil(t, p0.Tiles)
	assert.Equal(t, []string{"Z"}, info.Parts[1].Channels)
	assert.Empty(t, p0.Cryptomattes)
	assert.Equal(t, []string{"CryptoObject"}, info.Parts[1].Cryptomattes)

	_, err = GetFileInfo(context.Background(), fs, "/missing.exr")
	assert.Error(t, err)
}

func TestExtractChannel(t *testing.T) {
	p := gradientPart(t, "", 4, 2, exr.NewChannel("Y", exr.PixelTypeFloat),
		exr.Channel{Name: "C", Type: exr.PixelTypeHalf, XSampling: 2, YSampling: 2})
	y, err := ExtractChannel(p, "Y")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0.125, 0.25, 0.375, 0.125, 0.25, 0.375, 0.5}, y)

	c, err := ExtractChannel(p, "C")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0.25, 0.25, 0, 0, 0.25, 0.25}, c)

	_, err = ExtractChannel(p, "nope")
	assert.ErrorIs(t, err, exr.ErrNoSuchChannel)

	m, err := ExtractChannels(p, "Y", "C")
	require.NoError(t, err)
	assert.Len(t, m, 2)
}

func TestCopyMetadata(t *testing.T) {
	src := gradientPart(t, "src", 2, 2, exr.NewChannel("Y", exr.PixelTypeHalf))
	require.NoError(t, src.SetAttribute(exr.Attribute{Name: "owner", Type: exr.TypeString, Value: "me"}))
	require.NoError(t, src.SetAttribute(exr.Attribute{Name: "utcOffset", Type: exr.TypeFloat, Value: float32(3600)}))
	dst := gradientPart(t, "dst", 4, 4, exr.NewChannel("Y", exr.PixelTypeHalf))
	require.NoError(t, CopyMetadata(src, dst))

	a, ok := dst.Attribute("owner")
	require.True(t, ok)
	assert.Equal(t, "me", a.Value)
	assert.Equal(t, "dst", dst.Name(), "structural attributes are not copied")
	assert.Equal(t, exr.NewBox2i(0, 0, 3, 3), dst.DataWindow())
	assert.True(t, IsStructural(exr.AttrChunkCount))
	assert.False(t, IsStructural("owner"))
}

func TestComparePixels(t *testing.T) {
	a := gradientPart(t, "", 4, 4, exr.NewChannel("R", exr.PixelTypeFloat), exr.NewChannel("G", exr.PixelTypeFloat))
	b := gradientPart(t, "", 4, 4, exr.NewChannel("R", exr.PixelTypeFloat), exr.NewChannel("Z", exr.PixelTypeFloat))
	diffs, err := ComparePixels(a, b, CompareOptions{})
	require.NoError(t, err)
	assert.Empty(t, diffs)

	require.NoError(t, b.SetSample("R", 1, 1, 10))
	require.NoError(t, b.SetSample("R", 2, 1, 0.375+1e-4))
	diffs, err = ComparePixels(a, b, CompareOptions{Tolerance: 1e-3})
	require.NoError(t, err)
	require.Len(t, diffs, 1)
	assert.Equal(t, "R", diffs[0].Channel)
	assert.Equal(t, 1, diffs[0].Count)
	assert.InDelta(t, 9.75, diffs[0].Max, 1e-6)

	c := gradientPart(t, "", 2, 2, exr.NewChannel("R", exr.PixelTypeFloat))
	_, err = ComparePixels(a, c, CompareOptions{})
	assert.ErrorIs(t, err, exr.ErrOutOfBounds)
}

func TestValidateFile(t *testing.T) {
	fs := memfs.New()
	ctx := context.Background()
	writeDoc(t, fs, "/ok.exr", gradientPart(t, "", 64, 64, exr.NewChannel("R", exr.PixelTypeHalf)))
	res, err := ValidateFile(ctx, fs, "/ok.exr", exr.ReadOptions{})
	require.NoError(t, err)
	assert.True(t, res.Valid())
	assert.Empty(t, res.Warnings)

	require.NoError(t, util.WriteFile(fs, "/junk.exr", []byte("definitely not an image"), 0o644))
	res, err = ValidateFile(ctx, fs, "/junk.exr", exr.ReadOptions{})
	require.NoError(t, err)
	assert.False(t, res.Valid())
	assert.Equal(t, -1, res.Errors[0].Part)

	data, err := util.ReadFile(fs, "/ok.exr")
	require.NoError(t, err)
	for i := len(data) - 16; i < len(data); i++ {
		data[i] = 0xff
	}
	require.NoError(t, util.WriteFile(fs, "/bad.exr", data, 0o644))
	res, err = ValidateFile(ctx, fs, "/bad.exr", exr.ReadOptions{})
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 0, res.Errors[0].Part)
	assert.Contains(t, res.Errors[0].String(), "part 0")

	_, err = ValidateFile(ctx, fs, "/missing.exr", exr.ReadOptions{})
	assert.Error(t, err)
}

func TestValidateWarnsAboutDataWindow(t *testing.T) {
	fs := memfs.New()
	p, err := exr.NewPart("", exr.PartSpec{
		DataWindow:    exr.NewBox2i(-2, -2, 5, 5),
		DisplayWindow: exr.NewBox2i(0, 0, 3, 3),
		Channels:      []exr.Channel{exr.NewChannel("R", exr.PixelTypeHalf)},
	})
	require.NoError(t, err)
	writeDoc(t, fs, "/overscan.exr", p)
	res, err := ValidateFile(context.Background(), fs, "/overscan.exr", exr.ReadOptions{})
	require.NoError(t, err)
	assert.True(t, res.Valid())
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0].Message, "outside display window")
}
