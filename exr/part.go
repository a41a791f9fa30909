package exr

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"
)

// PartType is the value of the type attribute.
type PartType string

const (
	PartScanline     PartType = "scanlineimage"
	PartTiled        PartType = "tiledimage"
	PartDeepScanline PartType = "deepscanline"
	PartDeepTiled    PartType = "deeptile"
)

// IsDeep reports whether the part stores deep samples.
func (t PartType) IsDeep() bool {
	return t == PartDeepScanline || t == PartDeepTiled
}

// IsTiled reports whether the part stores tiles.
func (t PartType) IsTiled() bool {
	return t == PartTiled || t == PartDeepTiled
}

// derivedAttributes are regenerated from part state on save and cannot be
// set directly.
var derivedAttributes = []string{AttrChannels, AttrChunkCount, AttrType, AttrTiles, AttrVersion}

// IsDerived reports whether name is regenerated from part state on save.
func IsDerived(name string) bool {
	return slices.Contains(derivedAttributes, name)
}

// signature captures the fields that determine the stored chunk layout.
type signature struct {
	typ      PartType
	comp     Compression
	dw       Box2i
	channels string
	tiles    TileDescription
}

// Part is one image of a document: a header, a channel list and, once
// loaded, one sample buffer per channel.
type Part struct {
	doc      *Document
	index    int
	typ      PartType
	header   *Header
	channels ChannelList
	buffers  map[string]*Buffer

	loaded   bool
	readable bool
	err      error

	src   *chunkSource
	sig   signature
	dirty bool // samples or layout changed since the part was read

	registry *Registry
	logger   *slog.Logger
}

// PartSpec describes a new in-memory part.
type PartSpec struct {
	Type          PartType // scanline when empty
	DataWindow    Box2i
	DisplayWindow Box2i // DataWindow when empty
	Compression   Compression
	LineOrder     LineOrder
	Tiles         *TileDescription
	Channels      []Channel
}

// NewPart builds a loaded part with zeroed channels.
func NewPart(name string, spec PartSpec) (*Part, error) {
	if spec.Type == "" {
		spec.Type = PartScanline
	}
	if spec.Type.IsDeep() {
		return nil, fmt.Errorf("%w: cannot create %s parts", ErrUnsupportedLayout, spec.Type)
	}
	if spec.DataWindow.IsEmpty() {
		return nil, fmt.Errorf("%w: empty data window %s", ErrOutOfBounds, spec.DataWindow)
	}
	disp := spec.DisplayWindow
	if disp == (Box2i{}) || disp.IsEmpty() {
		disp = spec.DataWindow
	}
	h := defaultHeader(spec.DataWindow, disp, spec.Compression, spec.LineOrder)
	if name != "" {
		h.SetName(name)
	}
	if spec.Type == PartTiled {
		if spec.Tiles == nil || spec.Tiles.XSize == 0 || spec.Tiles.YSize == 0 {
			return nil, fmt.Errorf("%w: tiled part needs a tile size", ErrUnsupportedLayout)
		}
		if spec.Tiles.Mode != LevelOne {
			return nil, fmt.Errorf("%w: %s tiles", ErrUnsupportedLayout, spec.Tiles)
		}
		h.SetTiles(*spec.Tiles)
	}
	p := &Part{
		typ:      spec.Type,
		header:   h,
		buffers:  make(map[string]*Buffer),
		loaded:   true,
		readable: true,
		dirty:    true,
		registry: defaultRegistry,
		logger:   discardLogger,
	}
	for _, ch := range spec.Channels {
		if err := p.addChannel(ch, 0); err != nil {
			return nil, err
		}
	}
	p.syncHeader()
	return p, nil
}

// Index returns the position of the part in its document.
func (p *Part) Index() int { return p.index }

// Name returns the name attribute, or "".
func (p *Part) Name() string { return p.header.Name() }

func (p *Part) Type() PartType { return p.typ }

func (p *Part) DataWindow() Box2i { return p.header.DataWindow() }

func (p *Part) DisplayWindow() Box2i { return p.header.DisplayWindow() }

func (p *Part) Compression() Compression { return p.header.Compression() }

// Header returns a copy of the header with the derived attributes
// regenerated from part state.
func (p *Part) Header() *Header {
	p.syncHeader()
	return p.header.Clone()
}

// Attribute returns the named header attribute.
func (p *Part) Attribute(name string) (Attribute, bool) {
	p.syncHeader()
	return p.header.Get(name)
}

// Channels returns the channel list in insertion order.
func (p *Part) Channels() ChannelList { return slices.Clone(p.channels) }

// Channel returns the named channel.
func (p *Part) Channel(name string) (Channel, bool) {
	i := p.channels.Index(name)
	if i < 0 {
		return Channel{}, false
	}
	return p.channels[i], true
}

// Layers derives the layer grouping of the current channel list.
func (p *Part) Layers() []Layer { return DeriveLayers(p.channels.Names()) }

// Readable reports whether the part's pixels can be decoded.
func (p *Part) Readable() bool { return p.readable }

// Loaded reports whether the part's pixels are in memory.
func (p *Part) Loaded() bool { return p.loaded }

// Err returns the reason an unreadable part cannot be decoded.
func (p *Part) Err() error { return p.err }

// Load decodes the part's pixels if they are not loaded yet. The source
// file is open only for the duration of the call.
func (p *Part) Load(ctx context.Context) error {
	if p.loaded {
		return nil
	}
	if !p.readable {
		return p.err
	}
	r, c, err := p.src.open()
	if err != nil {
		return decodeErr(DecodeCodecFailure, p.index, err)
	}
	defer c.Close()
	return p.load(ctx, r)
}

func (p *Part) load(ctx context.Context, r io.ReaderAt) error {
	start := time.Now()
	p.logger.Debug("decoding part", "part", p.index, "name", p.Name(), "chunks", len(p.src.offsets))
	dw := p.DataWindow()
	sorted := p.channels.Sorted()
	bufs := make(map[string]*Buffer, len(sorted))
	for _, ch := range sorted {
		w, h := ch.sampleSize(dw)
		bufs[ch.Name] = NewBuffer(ch.Type, w, h)
	}
	g := p.geometry()
	comp := p.Compression()
	for i := range p.src.offsets {
		if i%16 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		l := g.layout(i, sorted)
		expected := l.Size()
		data, err := p.src.data(r, i, g)
		if err != nil {
			return decodeErr(DecodeCodecFailure, p.index, err)
		}
		raw := data
		if len(data) != expected {
			raw, err = p.registry.Decompress(comp, data, expected, l)
			if err != nil {
				chunkBuffers.put(data)
				return decodeErr(DecodeCodecFailure, p.index, fmt.Errorf("chunk %d: %w", i, err))
			}
		}
		g.unpackChunk(i, sorted, bufs, raw)
		chunkBuffers.put(data)
	}
	p.buffers = bufs
	p.loaded = true
	p.logger.Debug("decoded part", "part", p.index, "elapsed", time.Since(start))
	return nil
}

func (p *Part) geometry() geometry {
	var td *TileDescription
	if t, ok := p.header.Tiles(); ok && p.typ.IsTiled() {
		td = &t
	}
	return newGeometry(p.DataWindow(), p.Compression(), td)
}

// Buffer returns the samples of the named channel, loading the part on
// first access.
func (p *Part) Buffer(name string) (*Buffer, error) {
	if err := p.Load(context.Background()); err != nil {
		return nil, err
	}
	b, ok := p.buffers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q in part %d", ErrNoSuchChannel, name, p.index)
	}
	return b, nil
}

// sampleAt maps pixel (x, y) of the data window to the sample of ch that
// covers it.
func (p *Part) sampleAt(ch Channel, x, y int) (int, int, error) {
	dw := p.DataWindow()
	if !dw.Contains(x, y) {
		return 0, 0, fmt.Errorf("%w: (%d, %d) not in %s", ErrOutOfBounds, x, y, dw)
	}
	return (x - int(dw.Min.X)) / int(ch.XSampling), (y - int(dw.Min.Y)) / int(ch.YSampling), nil
}

// Sample returns the value of a channel at pixel (x, y).
func (p *Part) Sample(name string, x, y int) (float64, error) {
	b, err := p.Buffer(name)
	if err != nil {
		return 0, err
	}
	ch, _ := p.Channel(name)
	sx, sy, err := p.sampleAt(ch, x, y)
	if err != nil {
		return 0, err
	}
	if b.Type == PixelTypeUint {
		return float64(b.Uint32At(sx, sy)), nil
	}
	return float64(b.Float32At(sx, sy)), nil
}

// SetSample stores v at pixel (x, y) of a channel. Subsampled channels
// store it in the sample covering the pixel.
func (p *Part) SetSample(name string, x, y int, v float64) error {
	b, err := p.Buffer(name)
	if err != nil {
		return err
	}
	ch, _ := p.Channel(name)
	sx, sy, err := p.sampleAt(ch, x, y)
	if err != nil {
		return err
	}
	b.SetFloat64(sx, sy, v)
	p.touch()
	return nil
}

// Plane returns a channel expanded to one float32 per data-window pixel,
// row by row.
func (p *Part) Plane(name string) ([]float32, error) {
	b, err := p.Buffer(name)
	if err != nil {
		return nil, err
	}
	ch, _ := p.Channel(name)
	if !ch.Subsampled() {
		return b.Float32s(), nil
	}
	dw := p.DataWindow()
	w, h := dw.Width(), dw.Height()
	src := b.Float32s()
	out := make([]float32, w*h)
	xs, ys := int(ch.XSampling), int(ch.YSampling)
	for y := 0; y < h; y++ {
		row := src[(y/ys)*b.Width:]
		for x := 0; x < w; x++ {
			out[y*w+x] = row[x/xs]
		}
	}
	return out, nil
}

func (p *Part) ensureLoaded() error {
	if err := p.Load(context.Background()); err != nil {
		return fmt.Errorf("part %d: %w", p.index, err)
	}
	return nil
}

// AddChannel appends a channel filled with fill.
func (p *Part) AddChannel(ch Channel, fill float64) error {
	if err := p.ensureLoaded(); err != nil {
		return err
	}
	if err := p.addChannel(ch, fill); err != nil {
		return err
	}
	p.touch()
	return nil
}

func (p *Part) addChannel(ch Channel, fill float64) error {
	if p.channels.Index(ch.Name) >= 0 {
		return fmt.Errorf("%w: %q in part %d", ErrDuplicateChannel, ch.Name, p.index)
	}
	dw := p.DataWindow()
	if err := ch.Validate(dw); err != nil {
		return err
	}
	if p.typ.IsTiled() && ch.Subsampled() {
		return fmt.Errorf("%w: tiled parts cannot hold subsampled channel %s", ErrBadSampling, ch.Name)
	}
	w, h := ch.sampleSize(dw)
	b := NewBuffer(ch.Type, w, h)
	b.Fill(fill)
	p.channels = append(p.channels, ch)
	p.buffers[ch.Name] = b
	return nil
}

// RemoveChannel deletes a channel and its samples.
func (p *Part) RemoveChannel(name string) error {
	i := p.channels.Index(name)
	if i < 0 {
		return fmt.Errorf("%w: %q in part %d", ErrNoSuchChannel, name, p.index)
	}
	if err := p.ensureLoaded(); err != nil {
		return err
	}
	p.channels = slices.Delete(p.channels, i, i+1)
	delete(p.buffers, name)
	p.touch()
	return nil
}

// SetDataWindow moves the data window. Samples inside both windows keep
// their pixel position; new pixels are zero.
func (p *Part) SetDataWindow(dw Box2i) error {
	if dw.IsEmpty() {
		return fmt.Errorf("%w: empty data window %s", ErrOutOfBounds, dw)
	}
	old := p.DataWindow()
	if dw == old {
		return nil
	}
	if err := p.ensureLoaded(); err != nil {
		return err
	}
	for _, ch := range p.channels {
		if err := ch.Validate(dw); err != nil {
			return err
		}
	}
	for _, ch := range p.channels {
		w, h := ch.sampleSize(dw)
		dx := (int(dw.Min.X) - int(old.Min.X)) / int(ch.XSampling)
		dy := (int(dw.Min.Y) - int(old.Min.Y)) / int(ch.YSampling)
		p.buffers[ch.Name] = p.buffers[ch.Name].reframe(w, h, dx, dy)
	}
	p.header.SetDataWindow(dw)
	p.touch()
	return nil
}

// SetCompression changes the scheme used on the next save.
func (p *Part) SetCompression(c Compression) error {
	if c == p.Compression() {
		return nil
	}
	if err := p.ensureLoaded(); err != nil {
		return err
	}
	p.header.SetCompression(c)
	p.touch()
	return nil
}

// SetAttribute stores a header attribute. Derived attributes are
// rejected; dataWindow and compression go through SetDataWindow and
// SetCompression. An existing attribute keeps its type, and required or
// reserved names only take their FixedType.
func (p *Part) SetAttribute(a Attribute) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if IsDerived(a.Name) {
		return fmt.Errorf("%w: %s", ErrReadOnlyAttr, a.Name)
	}
	if t, ok := FixedType(a.Name); ok && a.Type != t {
		return fmt.Errorf("%w: %s must be %s, got %s", ErrTypeMismatch, a.Name, t, a.Type)
	}
	if old, ok := p.header.Get(a.Name); ok && old.Type != a.Type {
		return fmt.Errorf("%w: %s is %s, got %s", ErrTypeMismatch, a.Name, old.Type, a.Type)
	}
	switch a.Name {
	case AttrDataWindow:
		return p.SetDataWindow(a.Value.(Box2i))
	case AttrCompression:
		return p.SetCompression(a.Value.(Compression))
	case AttrDisplayWindow:
		if a.Value.(Box2i).IsEmpty() {
			return fmt.Errorf("%w: empty display window", ErrOutOfBounds)
		}
	case AttrName:
		if p.doc != nil {
			if q := p.doc.PartByName(a.Value.(string)); q != nil && q != p {
				return fmt.Errorf("%w: %q", ErrDuplicatePart, a.Value)
			}
		}
	}
	p.header.set(a)
	p.markDocDirty()
	return nil
}

// RemoveAttribute deletes an optional attribute. It reports false if the
// attribute did not exist.
func (p *Part) RemoveAttribute(name string) (bool, error) {
	if IsRequired(name) {
		return false, fmt.Errorf("%w: %s", ErrRequiredAttr, name)
	}
	if IsDerived(name) {
		return false, fmt.Errorf("%w: %s", ErrReadOnlyAttr, name)
	}
	if name == AttrName && p.doc != nil && p.doc.Len() > 1 {
		return false, fmt.Errorf("%w: multi-part files name every part", ErrRequiredAttr)
	}
	if !p.header.Remove(name) {
		return false, nil
	}
	p.markDocDirty()
	return true, nil
}

// touch records a change to samples or chunk layout.
func (p *Part) touch() {
	p.dirty = true
	p.markDocDirty()
}

func (p *Part) markDocDirty() {
	if p.doc != nil {
		p.doc.dirty = true
	}
}

// syncHeader regenerates the channel list attribute.
func (p *Part) syncHeader() {
	p.header.SetChannels(p.channels.Sorted())
}

func (p *Part) signature() signature {
	s := signature{typ: p.typ, comp: p.Compression(), dw: p.DataWindow()}
	s.channels = FormatValue(Attribute{Value: p.channels.Sorted()})
	if td, ok := p.header.Tiles(); ok {
		s.tiles = td
	}
	return s
}

// rawCopyable reports whether the stored chunks can be written back
// without decoding.
func (p *Part) rawCopyable() bool {
	return p.src != nil && !p.dirty && p.signature() == p.sig
}

// release drops buffers and the source of a closed document.
func (p *Part) release() {
	p.buffers = nil
	p.src = nil
	p.loaded = false
	p.readable = false
	p.err = ErrNotLoaded
}
