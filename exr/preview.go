package exr

import (
	"image"
	"image/draw"
	"math"

	"github.com/nfnt/resize"
)

// Composite holds the display planes of a layer, one float per data
// window pixel. Gray layers share one plane for R, G and B. A is nil for
// opaque layers.
type Composite struct {
	Width, Height int
	R, G, B, A    []float32
	Gray          bool
}

// Composite expands a layer for display: its R, G and B channels (and A
// when present) when it has all three, otherwise its first channel as gray.
func (p *Part) Composite(l Layer) (*Composite, error) {
	dw := p.DataWindow()
	c := &Composite{Width: dw.Width(), Height: dw.Height()}
	rn, okR := l.Channel("R")
	gn, okG := l.Channel("G")
	bn, okB := l.Channel("B")
	var err error
	if okR && okG && okB {
		if c.R, err = p.Plane(rn); err != nil {
			return nil, err
		}
		if c.G, err = p.Plane(gn); err != nil {
			return nil, err
		}
		if c.B, err = p.Plane(bn); err != nil {
			return nil, err
		}
		if an, ok := l.Channel("A"); ok {
			if c.A, err = p.Plane(an); err != nil {
				return nil, err
			}
		}
		return c, nil
	}
	if len(l.Channels) == 0 {
		return nil, ErrNoSuchChannel
	}
	if c.R, err = p.Plane(l.Channels[0]); err != nil {
		return nil, err
	}
	c.G, c.B, c.Gray = c.R, c.R, true
	return c, nil
}

// previewLayer picks the layer shown in embedded previews: the first layer
// with R, G and B channels, else the first layer.
func previewLayer(layers []Layer) (Layer, bool) {
	for _, l := range layers {
		_, r := l.Channel("R")
		_, g := l.Channel("G")
		_, b := l.Channel("B")
		if r && g && b {
			return l, true
		}
	}
	if len(layers) == 0 {
		return Layer{}, false
	}
	return layers[0], true
}

// GeneratePreview renders the part into a preview attribute value no
// larger than maxWidth by maxHeight. HDR values are tone mapped and
// encoded as sRGB. It returns nil for parts without channels.
func GeneratePreview(p *Part, maxWidth, maxHeight int) (*Preview, error) {
	l, ok := previewLayer(p.Layers())
	if !ok || maxWidth <= 0 || maxHeight <= 0 {
		return nil, nil
	}
	c, err := p.Composite(l)
	if err != nil {
		return nil, err
	}
	img := image.NewNRGBA(image.Rect(0, 0, c.Width, c.Height))
	for i := 0; i < c.Width*c.Height; i++ {
		a := uint8(255)
		if c.A != nil {
			a = floatToByte(c.A[i])
		}
		img.Pix[4*i+0] = floatToByte(linearToSRGB(toneMap(c.R[i])))
		img.Pix[4*i+1] = floatToByte(linearToSRGB(toneMap(c.G[i])))
		img.Pix[4*i+2] = floatToByte(linearToSRGB(toneMap(c.B[i])))
		img.Pix[4*i+3] = a
	}
	small := resize.Thumbnail(uint(maxWidth), uint(maxHeight), img, resize.Lanczos3)
	b := small.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), small, b.Min, draw.Src)
	return &Preview{Width: uint32(b.Dx()), Height: uint32(b.Dy()), Pixels: out.Pix}, nil
}

// PreviewImage wraps the pixels of a preview attribute in an image.
func PreviewImage(pv Preview) *image.NRGBA {
	w, h := int(pv.Width), int(pv.Height)
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	copy(img.Pix, pv.Pixels)
	return img
}

// toneMap compresses HDR values into [0,1) with the Reinhard curve.
func toneMap(v float32) float32 {
	if v <= 0 || v != v {
		return 0
	}
	if math.IsInf(float64(v), 1) {
		return 1
	}
	return v / (1 + v)
}

// linearToSRGB applies the sRGB transfer function.
func linearToSRGB(v float32) float32 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 1
	}
	if v <= 0.0031308 {
		return v * 12.92
	}
	return 1.055*float32(math.Pow(float64(v), 1.0/2.4)) - 0.055
}

func floatToByte(v float32) byte {
	if v <= 0 || v != v {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return byte(v*255 + 0.5)
}
