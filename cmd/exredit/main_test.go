package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/fatih/color"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrjoshuak/go-exredit/exr"
	"github.com/mrjoshuak/go-exredit/exrutil"
	"github.com/mrjoshuak/go-exredit/session"
)

func init() { color.NoColor = true }

func testConfig(t *testing.T) *MainConfig {
	t.Helper()
	cfg := &MainConfig{ctx: context.Background(), fs: memfs.New(), LogLevel: "error"}
	require.NoError(t, cfg.setup())
	return cfg
}

func writeGray(t *testing.T, cfg *MainConfig, path string, v float64) {
	t.Helper()
	s := session.New(cfg.fs, session.Options{})
	_, err := s.AddPart("", s.DefaultPartSpec(exr.NewBox2i(0, 0, 7, 7),
		exr.NewChannel("Y", exr.PixelTypeHalf), exr.NewChannel("diffuse.R", exr.PixelTypeHalf)))
	require.NoError(t, err)
	require.NoError(t, s.SetPixelValue(0, "Y", 2, 2, v))
	require.NoError(t, s.Save(context.Background(), path, true))
}

func TestSetupConfig(t *testing.T) {
	cfg := &MainConfig{ctx: context.Background(), fs: memfs.New()}
	require.NoError(t, util.WriteFile(cfg.fs, "/c.yaml", []byte("gamma: 1.5\nlogLevel: warn\n"), 0o644))
	cfg.ConfigFile = "/c.yaml"
	require.NoError(t, cfg.setup())
	assert.Equal(t, 1.5, cfg.cfg.Gamma)

	cfg.LogLevel = "shout"
	assert.Error(t, cfg.setup())
}

func TestInfo(t *testing.T) {
	cfg := testConfig(t)
	writeGray(t, cfg, "/a.exr", 1)
	info, err := exrutil.GetFileInfo(cfg.ctx, cfg.fs, "/a.exr")
	require.NoError(t, err)
	var buf bytes.Buffer
	writeInfo(&buf, info)
	out := buf.String()
	assert.Contains(t, out, "/a.exr")
	assert.Contains(t, out, "single-part, 1 parts")
	assert.Contains(t, out, "8x8")
	assert.Contains(t, out, "channels: Y, diffuse.R")
	assert.Contains(t, out, "layers: default, diffuse")
}

func TestSetAttrAndAttrs(t *testing.T) {
	cfg := testConfig(t)
	writeGray(t, cfg, "/a.exr", 1)
	s, err := cfg.open("/a.exr")
	require.NoError(t, err)
	require.NoError(t, setAttr(s, 0, "owner", exr.TypeString, "studio"))
	require.NoError(t, setAttr(s, 0, exr.AttrScreenWindowWidth, "", "3"))
	err = setAttr(s, 0, "frames", exr.TypeInt, "many")
	var ee *session.EditError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, session.EditTypeMismatch, ee.Kind)

	var buf bytes.Buffer
	require.NoError(t, save(cfg.ctx, &buf, s, "/b.exr", false))
	assert.Equal(t, "wrote /b.exr\n", buf.String())
	require.Error(t, save(cfg.ctx, &buf, s, "/a.exr", false))

	r, err := cfg.open("/b.exr")
	require.NoError(t, err)
	attrs, err := r.GetAttributes(0)
	require.NoError(t, err)
	buf.Reset()
	writeAttrs(&buf, attrs)
	assert.Contains(t, buf.String(), "owner")
	assert.Contains(t, buf.String(), "studio")
	assert.Regexp(t, `screenWindowWidth\s+float\s+3`, buf.String())
}

func TestCompress(t *testing.T) {
	cfg := testConfig(t)
	writeGray(t, cfg, "/a.exr", 1)
	s, err := cfg.open("/a.exr")
	require.NoError(t, err)
	require.NoError(t, compress(s, -1, exr.CompressionRLE))
	require.NoError(t, s.Save(cfg.ctx, "", false))

	r, err := cfg.open("/a.exr")
	require.NoError(t, err)
	assert.Equal(t, exr.CompressionRLE, r.ListParts()[0].Compression)
	assert.Error(t, compress(r, 3, exr.CompressionZIP))
}

func TestDiff(t *testing.T) {
	cfg := testConfig(t)
	writeGray(t, cfg, "/a.exr", 1)
	writeGray(t, cfg, "/b.exr", 0.5)
	a, err := cfg.open("/a.exr")
	require.NoError(t, err)
	b, err := cfg.open("/b.exr")
	require.NoError(t, err)

	var buf bytes.Buffer
	differs, err := diffSessions(&buf, a, a, true, exrutil.CompareOptions{})
	require.NoError(t, err)
	assert.False(t, differs)
	assert.Empty(t, buf.String())

	require.NoError(t, b.SetAttributeTyped(0, exr.Attribute{Name: "owner", Type: exr.TypeString, Value: "b"}))
	differs, err = diffSessions(&buf, a, b, true, exrutil.CompareOptions{})
	require.NoError(t, err)
	assert.True(t, differs)
	out := buf.String()
	assert.Contains(t, out, "part 0")
	assert.Contains(t, out, "+owner string b")
	assert.Contains(t, out, `channel "Y": 1 pixels differ (max 0.5)`)

	buf.Reset()
	differs, err = diffSessions(&buf, a, b, true, exrutil.CompareOptions{Tolerance: 1})
	require.NoError(t, err)
	assert.True(t, differs, "header still differs")
	assert.NotContains(t, buf.String(), "pixels differ")
}

func TestLineDiff(t *testing.T) {
	lines := lineDiff("a 1\nb 2\nc 3\n", "a 1\nb 4\nc 3\nd 5\n")
	assert.Equal(t, []string{"-b 2", "+b 4", "+d 5"}, lines)
	assert.Empty(t, lineDiff("same\n", "same\n"))
}

func TestWriteResult(t *testing.T) {
	var buf bytes.Buffer
	res := &exrutil.ValidationResult{
		Errors:   []exrutil.Problem{{Part: 0, Message: "bad chunk"}},
		Warnings: []exrutil.Problem{{Part: -1, Message: "odd"}},
	}
	writeResult(&buf, "x.exr", res, false)
	assert.Equal(t, "x.exr: INVALID\n  [ERROR] part 0: bad chunk\n  [WARNING] odd\n", buf.String())

	buf.Reset()
	writeResult(&buf, "y.exr", &exrutil.ValidationResult{Warnings: res.Warnings}, true)
	assert.Empty(t, buf.String())
}

func TestPreviewParams(t *testing.T) {
	cfg := &PreviewConfig{MainConfig: testConfig(t), Gamma: -1, Contrast: -1}
	assert.Equal(t, session.PreviewParams{Gamma: 2.2, Contrast: 1}, cfg.params())
	cfg.Gamma, cfg.Exposure = 1, 2
	assert.Equal(t, session.PreviewParams{Exposure: 2, Gamma: 1, Contrast: 1}, cfg.params())
}
