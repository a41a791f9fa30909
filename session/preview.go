package session

import (
	"fmt"
	"image"
	"math"

	"github.com/mrjoshuak/go-exredit/exr"
)

// Preview8 is an 8-bit single channel rendering of a channel, one byte
// per data window pixel.
type Preview8 struct {
	Width, Height int
	Pix           []uint8
}

// curve maps linear values to display values in [0, 1].
type curve struct {
	scale, invGamma float64
}

func newCurve(exposure, gamma float64) curve {
	gamma = min(max(gamma, 0.01), 10)
	return curve{scale: math.Exp2(exposure), invGamma: 1 / gamma}
}

func (c curve) apply(v float32) float64 {
	x := float64(v)
	if !(x > 0) {
		return 0
	}
	x = math.Pow(x*c.scale, c.invGamma)
	if x > 1 {
		return 1
	}
	return x
}

func to8(v float64) uint8 { return uint8(v * 255) }

// ApplyPreviewCurve renders a channel through the exposure and gamma
// curve. The channel's samples are not modified.
func (s *Session) ApplyPreviewCurve(part int, channel string, exposure, gamma float64) (*Preview8, error) {
	p, err := s.part(part)
	if err != nil {
		return nil, err
	}
	if _, ok := p.Channel(channel); !ok {
		return nil, classify(fmt.Errorf("%w: %q", exr.ErrNoSuchChannel, channel), part, channel, "")
	}
	plane, err := p.Plane(channel)
	if err != nil {
		return nil, classify(err, part, channel, "")
	}
	dw := p.DataWindow()
	c := newCurve(exposure, gamma)
	out := &Preview8{Width: dw.Width(), Height: dw.Height(), Pix: make([]uint8, len(plane))}
	for i, v := range plane {
		out.Pix[i] = to8(c.apply(v))
	}
	return out, nil
}

// PreviewParams are the display adjustments of GetPreview.
type PreviewParams struct {
	Exposure   float64
	Gamma      float64
	Brightness float64
	Contrast   float64
}

// adjust applies contrast around mid gray, then brightness.
func (pp PreviewParams) adjust(v float64) float64 {
	v = (v-0.5)*pp.Contrast + 0.5 + pp.Brightness
	return min(max(v, 0), 1)
}

// GetPreview renders a channel or a layer of a part. selection is a
// channel name or a layer name; exr.DefaultLayerLabel selects the
// channels without a layer prefix. Layers with R, G and B channels are
// shown in color, others show their first channel as gray. Alpha is not
// curved.
func (s *Session) GetPreview(part int, selection string, params PreviewParams) (*image.NRGBA, error) {
	p, err := s.part(part)
	if err != nil {
		return nil, err
	}
	var layer exr.Layer
	if _, ok := p.Channel(selection); ok {
		layer = exr.Layer{Channels: []string{selection}, Suffixes: []string{selection}}
	} else if l, ok := exr.FindLayer(p.Layers(), selection); ok {
		layer = l
	} else {
		return nil, classify(fmt.Errorf("%w: no channel or layer %q", exr.ErrNoSuchChannel, selection), part, selection, "")
	}
	comp, err := p.Composite(layer)
	if err != nil {
		return nil, classify(err, part, selection, "")
	}
	c := newCurve(params.Exposure, params.Gamma)
	img := image.NewNRGBA(image.Rect(0, 0, comp.Width, comp.Height))
	for i := range comp.Width * comp.Height {
		o := img.Pix[i*4 : i*4+4 : i*4+4]
		r := to8(params.adjust(c.apply(comp.R[i])))
		o[0] = r
		if comp.Gray {
			o[1], o[2] = r, r
		} else {
			o[1] = to8(params.adjust(c.apply(comp.G[i])))
			o[2] = to8(params.adjust(c.apply(comp.B[i])))
		}
		o[3] = 255
		if comp.A != nil {
			o[3] = to8(min(max(float64(comp.A[i]), 0), 1))
		}
	}
	return img, nil
}
