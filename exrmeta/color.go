package exrmeta

import (
	"errors"
	"fmt"
	"math"

	"github.com/mrjoshuak/go-exredit/exr"
)

// ACESChromaticities are the AP0 primaries with the D60 white point.
var ACESChromaticities = exr.Chromaticities{
	Red:   exr.V2f{X: 0.73470, Y: 0.26530},
	Green: exr.V2f{X: 0.00000, Y: 1.00000},
	Blue:  exr.V2f{X: 0.00010, Y: -0.07700},
	White: exr.V2f{X: 0.32168, Y: 0.33767},
}

// ACES conformance errors.
var (
	ErrACESCompression    = errors.New("exrmeta: ACES allows only NONE, PIZ or B44A compression")
	ErrACESChannels       = errors.New("exrmeta: ACES needs R,G,B or Y,RY,BY channels with optional A")
	ErrACESLayout         = errors.New("exrmeta: ACES images are single scanline parts")
	ErrACESChromaticities = errors.New("exrmeta: chromaticities are not ACES")
)

// SetChromaticities sets the primaries and white point of the RGB data.
func SetChromaticities(a Attributes, c exr.Chromaticities) error {
	return set(a, AttrChromaticities, exr.TypeChromaticities, c)
}

// Chromaticities returns the stored primaries, or Rec. 709 and false when
// the attribute is absent.
func Chromaticities(a Attributes) (exr.Chromaticities, bool) {
	if c, ok := get[exr.Chromaticities](a, AttrChromaticities); ok {
		return c, true
	}
	return exr.Rec709Chromaticities, false
}

// SetAdoptedNeutral sets the CIE xy coordinates that should appear
// neutral.
func SetAdoptedNeutral(a Attributes, xy exr.V2f) error {
	return set(a, AttrAdoptedNeutral, exr.TypeV2f, xy)
}

// AdoptedNeutral returns the adopted neutral, defaulting to the white
// point of the chromaticities.
func AdoptedNeutral(a Attributes) exr.V2f {
	if v, ok := get[exr.V2f](a, AttrAdoptedNeutral); ok {
		return v
	}
	c, _ := Chromaticities(a)
	return c.White
}

// SetWhiteLuminance sets the luminance in nits of RGB (1, 1, 1).
func SetWhiteLuminance(a Attributes, nits float32) error {
	return set(a, AttrWhiteLuminance, exr.TypeFloat, nits)
}

// WhiteLuminance returns the luminance of RGB (1, 1, 1), or 0.
func WhiteLuminance(a Attributes) float32 { return getFloat(a, AttrWhiteLuminance) }

// SetXDensity sets the horizontal output density in pixels per inch.
func SetXDensity(a Attributes, ppi float32) error {
	return set(a, AttrXDensity, exr.TypeFloat, ppi)
}

// XDensity returns the horizontal output density, or 0.
func XDensity(a Attributes) float32 { return getFloat(a, AttrXDensity) }

// ChromaticitiesEqual compares two sets of primaries within 1e-5.
func ChromaticitiesEqual(a, b exr.Chromaticities) bool {
	near := func(p, q exr.V2f) bool {
		return math.Abs(float64(p.X-q.X)) < 1e-5 && math.Abs(float64(p.Y-q.Y)) < 1e-5
	}
	return near(a.Red, b.Red) && near(a.Green, b.Green) && near(a.Blue, b.Blue) && near(a.White, b.White)
}

// CheckACES reports every way p departs from the ACES container rules.
// It returns nil for a conforming part.
func CheckACES(p *exr.Part) error {
	var errs []error
	if p.Type() != exr.PartScanline {
		errs = append(errs, fmt.Errorf("%w: part is %s", ErrACESLayout, p.Type()))
	}
	switch c := p.Compression(); c {
	case exr.CompressionNone, exr.CompressionPIZ, exr.CompressionB44A:
	default:
		errs = append(errs, fmt.Errorf("%w: part uses %s", ErrACESCompression, c))
	}
	if err := checkACESChannels(p.Channels()); err != nil {
		errs = append(errs, err)
	}
	if c, ok := Chromaticities(p); !ok || !ChromaticitiesEqual(c, ACESChromaticities) {
		errs = append(errs, ErrACESChromaticities)
	}
	return errors.Join(errs...)
}

func checkACESChannels(cl exr.ChannelList) error {
	has := func(n string) bool { return cl.Index(n) >= 0 }
	rgb := has("R") && has("G") && has("B")
	yc := has("Y") && has("RY") && has("BY")
	want := 3
	if has("A") {
		want = 4
	}
	if (!rgb && !yc) || len(cl) != want {
		return fmt.Errorf("%w: got %v", ErrACESChannels, cl.Names())
	}
	return nil
}
