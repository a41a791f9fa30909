// Package exrutil provides file level helpers built on the exr package:
// summaries, structural validation, channel extraction and comparison.
//
//	info, err := exrutil.GetFileInfo(ctx, osfs.New("/"), "/shots/render.exr")
//	depth, err := exrutil.ExtractChannel(part, "Z")
package exrutil

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/go-git/go-billy/v5"

	"github.com/mrjoshuak/go-exredit/exr"
	"github.com/mrjoshuak/go-exredit/exrmeta"
)

// PartInfo summarizes one part.
type PartInfo struct {
	Index        int
	Name         string
	View         string
	Type         exr.PartType
	DataWindow   exr.Box2i
	Width        int
	Height       int
	Compression  exr.Compression
	Tiles        *exr.TileDescription
	Channels     []string
	Layers       []string
	HasPreview   bool
	Cryptomattes []string // Cryptomatte layer names
	Readable     bool
	Reason       string // why the part is not readable
}

// FileInfo summarizes a file.
type FileInfo struct {
	Path      string
	FileSize  int64
	Multipart bool
	Parts     []PartInfo
}

// GetFileInfo reads the headers of path. No pixels are decoded.
func GetFileInfo(ctx context.Context, fsys billy.Filesystem, path string) (*FileInfo, error) {
	fi, err := fsys.Stat(path)
	if err != nil {
		return nil, err
	}
	doc, err := exr.Open(ctx, fsys, path, exr.ReadOptions{Mode: exr.LoadLazy})
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	info := &FileInfo{Path: path, FileSize: fi.Size(), Multipart: doc.Len() > 1}
	for _, p := range doc.Parts() {
		info.Parts = append(info.Parts, DescribePart(p))
	}
	return info, nil
}

// DescribePart summarizes p.
func DescribePart(p *exr.Part) PartInfo {
	dw := p.DataWindow()
	pi := PartInfo{
		Index:       p.Index(),
		Name:        p.Name(),
		View:        p.Header().View(),
		Type:        p.Type(),
		DataWindow:  dw,
		Width:       dw.Width(),
		Height:      dw.Height(),
		Compression: p.Compression(),
		Channels:    p.Channels().Sorted().Names(),
		Readable:    p.Readable(),
	}
	for _, l := range p.Layers() {
		pi.Layers = append(pi.Layers, l.Label())
	}
	if td, ok := p.Header().Tiles(); ok {
		pi.Tiles = &td
	}
	_, pi.HasPreview = p.Attribute(exr.AttrPreview)
	crypto, _ := exrmeta.Cryptomattes(p.Header())
	for _, c := range crypto {
		pi.Cryptomattes = append(pi.Cryptomattes, c.Name)
	}
	if err := p.Err(); err != nil {
		pi.Reason = err.Error()
	}
	return pi
}

// ExtractChannel returns the named channel as one float32 per data window
// pixel. Subsampled channels are expanded.
func ExtractChannel(p *exr.Part, name string) ([]float32, error) {
	return p.Plane(name)
}

// ExtractChannels extracts several channels by name.
func ExtractChannels(p *exr.Part, names ...string) (map[string][]float32, error) {
	out := make(map[string][]float32, len(names))
	for _, name := range names {
		plane, err := p.Plane(name)
		if err != nil {
			return nil, err
		}
		out[name] = plane
	}
	return out, nil
}

// structural lists attributes that describe the pixel layout rather than
// the image.
var structural = []string{
	exr.AttrChannels, exr.AttrCompression, exr.AttrDataWindow, exr.AttrDisplayWindow,
	exr.AttrLineOrder, exr.AttrPixelAspectRatio, exr.AttrScreenWindowCenter,
	exr.AttrScreenWindowWidth, exr.AttrTiles, exr.AttrType, exr.AttrName,
	exr.AttrVersion, exr.AttrChunkCount,
}

// IsStructural reports whether name describes pixel layout.
func IsStructural(name string) bool { return slices.Contains(structural, name) }

// CopyMetadata copies every non-structural attribute of src to dst. It
// returns the attributes that dst rejected.
func CopyMetadata(src, dst *exr.Part) error {
	var errs []error
	for _, a := range src.Header().Attributes() {
		if IsStructural(a.Name) {
			continue
		}
		if err := dst.SetAttribute(a); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.Name, err))
		}
	}
	return errors.Join(errs...)
}

// CompareOptions configure ComparePixels.
type CompareOptions struct {
	Tolerance float64 // largest difference treated as equal
}

// ChannelDiff describes the pixels of one channel that differ.
type ChannelDiff struct {
	Channel string
	Count   int
	Max     float64
}

func (d ChannelDiff) String() string {
	return fmt.Sprintf("channel %q: %d pixels differ (max %g)", d.Channel, d.Count, d.Max)
}

// ComparePixels compares the channels two parts have in common. Parts
// with different data windows cannot be compared.
func ComparePixels(a, b *exr.Part, opts CompareOptions) ([]ChannelDiff, error) {
	if a.DataWindow() != b.DataWindow() {
		return nil, fmt.Errorf("%w: data windows %s and %s differ", exr.ErrOutOfBounds, a.DataWindow(), b.DataWindow())
	}
	var diffs []ChannelDiff
	for _, name := range a.Channels().Sorted().Names() {
		if _, ok := b.Channel(name); !ok {
			continue
		}
		pa, err := a.Plane(name)
		if err != nil {
			return nil, err
		}
		pb, err := b.Plane(name)
		if err != nil {
			return nil, err
		}
		d := ChannelDiff{Channel: name}
		for i := range pa {
			x, y := float64(pa[i]), float64(pb[i])
			if math.IsNaN(x) && math.IsNaN(y) {
				continue
			}
			if diff := math.Abs(x - y); diff > opts.Tolerance || math.IsNaN(diff) {
				d.Count++
				d.Max = math.Max(d.Max, diff)
			}
		}
		if d.Count > 0 {
			diffs = append(diffs, d)
		}
	}
	return diffs, nil
}
