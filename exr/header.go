package exr

import (
	"fmt"
	"slices"
)

// Standard attribute names.
const (
	AttrChannels           = "channels"
	AttrCompression        = "compression"
	AttrDataWindow         = "dataWindow"
	AttrDisplayWindow      = "displayWindow"
	AttrLineOrder          = "lineOrder"
	AttrPixelAspectRatio   = "pixelAspectRatio"
	AttrScreenWindowCenter = "screenWindowCenter"
	AttrScreenWindowWidth  = "screenWindowWidth"
	AttrTiles              = "tiles"
	AttrName               = "name"
	AttrType               = "type"
	AttrChunkCount         = "chunkCount"
	AttrVersion            = "version"
	AttrView               = "view"
	AttrPreview            = "preview"
)

// RequiredAttributes must be present in every header.
var RequiredAttributes = []string{
	AttrChannels,
	AttrCompression,
	AttrDataWindow,
	AttrDisplayWindow,
	AttrLineOrder,
	AttrPixelAspectRatio,
	AttrScreenWindowCenter,
	AttrScreenWindowWidth,
}

// requiredTypes gives the attribute type each required attribute must have.
var requiredTypes = map[string]AttributeType{
	AttrChannels:           TypeChlist,
	AttrCompression:        TypeCompression,
	AttrDataWindow:         TypeBox2i,
	AttrDisplayWindow:      TypeBox2i,
	AttrLineOrder:          TypeLineOrder,
	AttrPixelAspectRatio:   TypeFloat,
	AttrScreenWindowCenter: TypeV2f,
	AttrScreenWindowWidth:  TypeFloat,
}

// reservedTypes fixes the type of optional attributes the package reads
// back with a specific value shape.
var reservedTypes = map[string]AttributeType{
	AttrName:    TypeString,
	AttrView:    TypeString,
	AttrPreview: TypePreview,
}

// FixedType returns the type a required or reserved attribute must have.
func FixedType(name string) (AttributeType, bool) {
	if t, ok := requiredTypes[name]; ok {
		return t, true
	}
	t, ok := reservedTypes[name]
	return t, ok
}

// IsRequired reports whether name is one of RequiredAttributes.
func IsRequired(name string) bool {
	return slices.Contains(RequiredAttributes, name)
}

// Header is an ordered attribute dictionary. Names are unique; Set on an
// existing name replaces the value in place.
type Header struct {
	attrs []Attribute
	index map[string]int
}

// NewHeader returns an empty header.
func NewHeader() *Header {
	return &Header{index: make(map[string]int)}
}

// Len returns the number of attributes.
func (h *Header) Len() int { return len(h.attrs) }

// Attributes returns a copy of the attributes in order.
func (h *Header) Attributes() []Attribute {
	return slices.Clone(h.attrs)
}

// Get returns the named attribute.
func (h *Header) Get(name string) (Attribute, bool) {
	i, ok := h.index[name]
	if !ok {
		return Attribute{}, false
	}
	return h.attrs[i], true
}

// Has reports whether the named attribute exists.
func (h *Header) Has(name string) bool {
	_, ok := h.index[name]
	return ok
}

// Set validates and stores a, keeping the position of an existing
// attribute of the same name.
func (h *Header) Set(a Attribute) error {
	if err := a.Validate(); err != nil {
		return err
	}
	h.set(a)
	return nil
}

func (h *Header) set(a Attribute) {
	if i, ok := h.index[a.Name]; ok {
		h.attrs[i] = a
		return
	}
	h.index[a.Name] = len(h.attrs)
	h.attrs = append(h.attrs, a)
}

// Remove deletes the named attribute and reports whether it existed.
func (h *Header) Remove(name string) bool {
	i, ok := h.index[name]
	if !ok {
		return false
	}
	h.attrs = slices.Delete(h.attrs, i, i+1)
	delete(h.index, name)
	for j := i; j < len(h.attrs); j++ {
		h.index[h.attrs[j].Name] = j
	}
	return true
}

// Clone returns a copy whose attribute list can be changed independently.
// Values are shared.
func (h *Header) Clone() *Header {
	c := &Header{attrs: slices.Clone(h.attrs), index: make(map[string]int, len(h.index))}
	for k, v := range h.index {
		c.index[k] = v
	}
	return c
}

// Missing returns the required attributes the header lacks.
func (h *Header) Missing() []string {
	var out []string
	for _, name := range RequiredAttributes {
		if !h.Has(name) {
			out = append(out, name)
		}
	}
	return out
}

func getAs[T any](h *Header, name string) (T, bool) {
	var zero T
	a, ok := h.Get(name)
	if !ok {
		return zero, false
	}
	v, ok := a.Value.(T)
	return v, ok
}

func (h *Header) DataWindow() Box2i {
	v, _ := getAs[Box2i](h, AttrDataWindow)
	return v
}

func (h *Header) SetDataWindow(b Box2i) {
	h.set(Attribute{Name: AttrDataWindow, Type: TypeBox2i, Value: b})
}

func (h *Header) DisplayWindow() Box2i {
	v, _ := getAs[Box2i](h, AttrDisplayWindow)
	return v
}

func (h *Header) SetDisplayWindow(b Box2i) {
	h.set(Attribute{Name: AttrDisplayWindow, Type: TypeBox2i, Value: b})
}

func (h *Header) Compression() Compression {
	v, _ := getAs[Compression](h, AttrCompression)
	return v
}

func (h *Header) SetCompression(c Compression) {
	h.set(Attribute{Name: AttrCompression, Type: TypeCompression, Value: c})
}

func (h *Header) LineOrder() LineOrder {
	v, _ := getAs[LineOrder](h, AttrLineOrder)
	return v
}

func (h *Header) SetLineOrder(lo LineOrder) {
	h.set(Attribute{Name: AttrLineOrder, Type: TypeLineOrder, Value: lo})
}

// PixelAspectRatio defaults to 1.
func (h *Header) PixelAspectRatio() float32 {
	if v, ok := getAs[float32](h, AttrPixelAspectRatio); ok {
		return v
	}
	return 1
}

func (h *Header) SetPixelAspectRatio(r float32) {
	h.set(Attribute{Name: AttrPixelAspectRatio, Type: TypeFloat, Value: r})
}

func (h *Header) ScreenWindowCenter() V2f {
	v, _ := getAs[V2f](h, AttrScreenWindowCenter)
	return v
}

func (h *Header) SetScreenWindowCenter(c V2f) {
	h.set(Attribute{Name: AttrScreenWindowCenter, Type: TypeV2f, Value: c})
}

// ScreenWindowWidth defaults to 1.
func (h *Header) ScreenWindowWidth() float32 {
	if v, ok := getAs[float32](h, AttrScreenWindowWidth); ok {
		return v
	}
	return 1
}

func (h *Header) SetScreenWindowWidth(w float32) {
	h.set(Attribute{Name: AttrScreenWindowWidth, Type: TypeFloat, Value: w})
}

func (h *Header) Channels() ChannelList {
	v, _ := getAs[ChannelList](h, AttrChannels)
	return v
}

func (h *Header) SetChannels(cl ChannelList) {
	h.set(Attribute{Name: AttrChannels, Type: TypeChlist, Value: cl})
}

// Tiles returns the tile description and whether the header has one.
func (h *Header) Tiles() (TileDescription, bool) {
	return getAs[TileDescription](h, AttrTiles)
}

func (h *Header) SetTiles(td TileDescription) {
	h.set(Attribute{Name: AttrTiles, Type: TypeTileDesc, Value: td})
}

// Name returns the part name, or "".
func (h *Header) Name() string {
	v, _ := getAs[string](h, AttrName)
	return v
}

func (h *Header) SetName(name string) {
	h.set(Attribute{Name: AttrName, Type: TypeString, Value: name})
}

// Type returns the value of the type attribute, or "".
func (h *Header) Type() string {
	v, _ := getAs[string](h, AttrType)
	return v
}

func (h *Header) SetType(t PartType) {
	h.set(Attribute{Name: AttrType, Type: TypeString, Value: string(t)})
}

// ChunkCount returns the chunkCount attribute if present.
func (h *Header) ChunkCount() (int, bool) {
	v, ok := getAs[int32](h, AttrChunkCount)
	return int(v), ok
}

func (h *Header) SetChunkCount(n int) {
	h.set(Attribute{Name: AttrChunkCount, Type: TypeInt, Value: int32(n)})
}

// View returns the view attribute of multi-view files, or "".
func (h *Header) View() string {
	v, _ := getAs[string](h, AttrView)
	return v
}

// defaultHeader holds every required attribute for a part with the given
// windows.
func defaultHeader(dw, disp Box2i, c Compression, lo LineOrder) *Header {
	h := NewHeader()
	h.SetChannels(ChannelList{})
	h.SetCompression(c)
	h.SetDataWindow(dw)
	h.SetDisplayWindow(disp)
	h.SetLineOrder(lo)
	h.SetPixelAspectRatio(1)
	h.SetScreenWindowCenter(V2f{})
	h.SetScreenWindowWidth(1)
	return h
}

// levelCount returns the number of levels along an axis of the given size.
func levelCount(size int, r LevelRounding) int {
	n := 0
	for s := size; s > 1; n++ {
		if r == RoundUp {
			s = (s + 1) / 2
		} else {
			s /= 2
		}
	}
	return n + 1
}

// levelSize returns the size of an axis at level l.
func levelSize(size, l int, r LevelRounding) int {
	for ; l > 0; l-- {
		if r == RoundUp {
			size = (size + 1) / 2
		} else {
			size /= 2
		}
	}
	return max(size, 1)
}

// tiledChunkCount returns the number of tiles in every level of a tiled
// part.
func tiledChunkCount(dw Box2i, td TileDescription) (int, error) {
	if td.XSize == 0 || td.YSize == 0 {
		return 0, fmt.Errorf("%w: tile size %dx%d", ErrMalformedHeader, td.XSize, td.YSize)
	}
	w, h := dw.Width(), dw.Height()
	tx, ty := int(td.XSize), int(td.YSize)
	tiles := func(lw, lh int) int {
		return ((lw + tx - 1) / tx) * ((lh + ty - 1) / ty)
	}
	switch td.Mode {
	case LevelOne:
		return tiles(w, h), nil
	case LevelMipmap:
		n := 0
		levels := max(levelCount(w, td.Rounding), levelCount(h, td.Rounding))
		for l := 0; l < levels; l++ {
			n += tiles(levelSize(w, l, td.Rounding), levelSize(h, l, td.Rounding))
		}
		return n, nil
	case LevelRipmap:
		n := 0
		for ly := 0; ly < levelCount(h, td.Rounding); ly++ {
			for lx := 0; lx < levelCount(w, td.Rounding); lx++ {
				n += tiles(levelSize(w, lx, td.Rounding), levelSize(h, ly, td.Rounding))
			}
		}
		return n, nil
	}
	return 0, fmt.Errorf("%w: level mode %d", ErrMalformedHeader, td.Mode)
}
