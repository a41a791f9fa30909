package exr

import (
	"math"
	"testing"
)

func TestGeneratePreviewAspectRatio(t *testing.T) {
	tests := []struct {
		w, h         int
		wantW, wantH uint32
	}{
		{256, 128, 128, 64},
		{100, 400, 32, 128},
		{64, 48, 64, 48}, // never enlarged
	}
	for _, tt := range tests {
		p := testPart(t, "", rgbaSpec(tt.w, tt.h, CompressionNone))
		pv, err := GeneratePreview(p, 128, 128)
		if err != nil {
			t.Fatal(err)
		}
		if pv.Width != tt.wantW || pv.Height != tt.wantH {
			t.Errorf("%dx%d: preview %dx%d, want %dx%d", tt.w, tt.h, pv.Width, pv.Height, tt.wantW, tt.wantH)
		}
		if len(pv.Pixels) != int(pv.Width*pv.Height*4) {
			t.Errorf("%d pixel bytes", len(pv.Pixels))
		}
	}
}

func TestGeneratePreviewGray(t *testing.T) {
	p, err := NewPart("", PartSpec{
		DataWindow: NewBox2i(0, 0, 3, 3),
		Channels:   []Channel{NewChannel("Y", PixelTypeFloat)},
	})
	if err != nil {
		t.Fatal(err)
	}
	b, _ := p.Buffer("Y")
	b.Fill(1)
	pv, err := GeneratePreview(p, 8, 8)
	if err != nil {
		t.Fatal(err)
	}
	// Reinhard maps 1 to 0.5, which is 188 in sRGB.
	for i := 0; i < len(pv.Pixels); i += 4 {
		px := pv.Pixels[i : i+4]
		if px[0] != px[1] || px[1] != px[2] || px[0] < 186 || px[0] > 189 || px[3] != 255 {
			t.Fatalf("pixel %d = %v", i/4, px)
		}
	}
}

func TestGeneratePreviewNoChannels(t *testing.T) {
	p, err := NewPart("", PartSpec{DataWindow: NewBox2i(0, 0, 1, 1)})
	if err != nil {
		t.Fatal(err)
	}
	pv, err := GeneratePreview(p, 16, 16)
	if err != nil || pv != nil {
		t.Errorf("got %v, %v", pv, err)
	}
}

func TestCompositePicksRGBA(t *testing.T) {
	spec := rgbaSpec(4, 2, CompressionNone)
	spec.Channels = append(spec.Channels, NewChannel("diffuse.R", PixelTypeHalf))
	p := testPart(t, "", spec)
	layers := p.Layers()
	l, ok := previewLayer(layers)
	if !ok || l.Name != "" {
		t.Fatalf("preview layer = %+v", l)
	}
	c, err := p.Composite(l)
	if err != nil {
		t.Fatal(err)
	}
	if c.Gray || c.A == nil || len(c.R) != 8 {
		t.Errorf("composite gray=%v alpha=%v len=%d", c.Gray, c.A != nil, len(c.R))
	}
	diffuse, _ := FindLayer(layers, "diffuse")
	c, err = p.Composite(diffuse)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Gray || c.A != nil {
		t.Error("single channel layer not shown as gray")
	}
}

func TestToneMap(t *testing.T) {
	tests := []struct{ in, want float32 }{
		{0, 0},
		{-1, 0},
		{1, 0.5},
		{3, 0.75},
		{float32(math.Inf(1)), 1},
		{float32(math.NaN()), 0},
	}
	for _, tt := range tests {
		if got := toneMap(tt.in); got != tt.want {
			t.Errorf("toneMap(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLinearToSRGB(t *testing.T) {
	if linearToSRGB(0) != 0 || linearToSRGB(1) != 1 || linearToSRGB(2) != 1 {
		t.Error("endpoints not clamped")
	}
	if got := linearToSRGB(0.001); math.Abs(float64(got-0.01292)) > 1e-6 {
		t.Errorf("linear segment: %v", got)
	}
	if got := linearToSRGB(0.5); math.Abs(float64(got)-0.7354) > 1e-3 {
		t.Errorf("linearToSRGB(0.5) = %v", got)
	}
}

func TestPreviewImage(t *testing.T) {
	pv := Preview{Width: 2, Height: 1, Pixels: []byte{1, 2, 3, 4, 5, 6, 7, 8}}
	img := PreviewImage(pv)
	if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 1 {
		t.Fatalf("bounds %v", img.Bounds())
	}
	if c := img.NRGBAAt(1, 0); c.R != 5 || c.A != 8 {
		t.Errorf("pixel = %v", c)
	}
}
