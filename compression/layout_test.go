package compression

import "testing"

func TestLayoutHasAbsoluteLines(t *testing.T) {
	// A data window starting at y = -3 with a 2x2 subsampled channel holds
	// samples on the even absolute lines -2 and 0.
	l := Layout{Y: -3, Lines: 4, Channels: []ChannelInfo{
		{Name: "BY", Type: PixelHalf, Width: 2, YSampling: 2},
		{Name: "Y", Type: PixelHalf, Width: 4, YSampling: 1},
	}}
	var got []bool
	for i := 0; i < l.Lines; i++ {
		got = append(got, l.Has(0, i))
	}
	want := []bool{false, true, false, true}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Has = %v, want %v", got, want)
		}
	}
	if n := l.Size(); n != 2*2*2+4*4*2 {
		t.Errorf("Size = %d", n)
	}
}
