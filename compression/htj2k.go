package compression

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"slices"
	"strings"

	"github.com/mrjoshuak/go-jpeg2000"
)

// HTJ2K errors.
var (
	ErrHTJ2KCorrupted   = errors.New("compression: corrupted HTJ2K data")
	ErrHTJ2KMagic       = errors.New("compression: invalid HTJ2K magic number")
	ErrHTJ2KChannelMap  = errors.New("compression: invalid HTJ2K channel map")
	ErrHTJ2KUnsupported = errors.New("compression: HTJ2K layout not supported")
)

// An HTJ2K chunk starts with a small big-endian header: the magic "HT",
// the payload length, the component count and, per component, the index of
// the chunk channel it carries. The JPEG 2000 codestream follows.
const (
	htj2kMagic      uint16 = 0x4854
	htj2kHeaderSize        = 6
)

func appendHTJ2KHeader(dst []byte, channelMap []uint16) []byte {
	dst = binary.BigEndian.AppendUint16(dst, htj2kMagic)
	dst = binary.BigEndian.AppendUint32(dst, uint32(2+2*len(channelMap)))
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(channelMap)))
	for _, c := range channelMap {
		dst = binary.BigEndian.AppendUint16(dst, c)
	}
	return dst
}

// parseHTJ2KHeader returns the header length and the channel map.
func parseHTJ2KHeader(data []byte) (int, []uint16, error) {
	if len(data) < htj2kHeaderSize {
		return 0, nil, ErrHTJ2KCorrupted
	}
	if binary.BigEndian.Uint16(data) != htj2kMagic {
		return 0, nil, ErrHTJ2KMagic
	}
	plen := int(binary.BigEndian.Uint32(data[2:]))
	if plen > len(data)-htj2kHeaderSize {
		return 0, nil, ErrHTJ2KCorrupted
	}
	if plen < 2 {
		return 0, nil, ErrHTJ2KChannelMap
	}
	n := int(binary.BigEndian.Uint16(data[6:]))
	if plen < 2+2*n {
		return 0, nil, ErrHTJ2KChannelMap
	}
	m := make([]uint16, n)
	for i := range m {
		m[i] = binary.BigEndian.Uint16(data[8+2*i:])
	}
	return htj2kHeaderSize + plen, m, nil
}

// channelMap orders R, G, B first when a matching triple exists, so the
// encoder's colour transform applies to them.
func channelMap(chs []ChannelInfo) []uint16 {
	m := make([]uint16, 0, len(chs))
	rgb := [3]int{-1, -1, -1}
	for i, ch := range chs {
		suffix := ch.Name
		if k := strings.LastIndexByte(suffix, '.'); k >= 0 {
			suffix = suffix[k+1:]
		}
		var slot int
		switch strings.ToLower(suffix) {
		case "r", "red":
			slot = 0
		case "g", "green":
			slot = 1
		case "b", "blue":
			slot = 2
		default:
			continue
		}
		if rgb[slot] < 0 {
			rgb[slot] = i
		}
	}
	hasRGB := rgb[0] >= 0 && rgb[1] >= 0 && rgb[2] >= 0
	if hasRGB {
		for _, i := range rgb {
			m = append(m, uint16(i))
		}
	}
	for i := range chs {
		if hasRGB && slices.Contains(rgb[:], i) {
			continue
		}
		m = append(m, uint16(i))
	}
	return m
}

func htj2kCheck(l Layout) error {
	if len(l.Channels) == 0 || len(l.Channels) > 4 {
		return fmt.Errorf("%w: %d channels", ErrHTJ2KUnsupported, len(l.Channels))
	}
	w := l.Channels[0].Width
	for _, ch := range l.Channels {
		if ch.Type != PixelHalf {
			return fmt.Errorf("%w: channel %q is not half", ErrHTJ2KUnsupported, ch.Name)
		}
		if ch.Width != w || ch.YSampling > 1 {
			return fmt.Errorf("%w: channel %q is subsampled", ErrHTJ2KUnsupported, ch.Name)
		}
	}
	return nil
}

// HTJ2KCompress encodes a chunk of 1 to 4 full-resolution HALF channels
// losslessly with High-Throughput JPEG 2000 code blocks of blockSize.
func HTJ2KCompress(raw []byte, l Layout, blockSize int) ([]byte, error) {
	if err := htj2kCheck(l); err != nil {
		return nil, err
	}
	if len(raw) != l.Size() {
		return nil, ErrSizeMismatch
	}
	w, h, n := l.Channels[0].Width, l.Lines, len(l.Channels)
	cm := channelMap(l.Channels)

	// sample returns the 16-bit sample of chunk channel c at (x, y).
	sample := func(c, x, y int) uint16 {
		off := (y*n+c)*w*2 + x*2
		return binary.LittleEndian.Uint16(raw[off:])
	}

	var img image.Image
	if n == 1 {
		g := image.NewGray16(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				g.SetGray16(x, y, color.Gray16{Y: sample(0, x, y)})
			}
		}
		img = g
	} else {
		rgba := image.NewNRGBA64(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				v := [4]uint16{0, 0, 0, 0xffff}
				for comp, c := range cm {
					v[comp] = sample(int(c), x, y)
				}
				rgba.SetNRGBA64(x, y, color.NRGBA64{R: v[0], G: v[1], B: v[2], A: v[3]})
			}
		}
		img = rgba
	}

	var cs bytes.Buffer
	opts := &jpeg2000.Options{
		Format:         jpeg2000.FormatJ2K,
		Lossless:       true,
		HighThroughput: true,
		HTBlockWidth:   blockSize,
		HTBlockHeight:  blockSize,
		NumResolutions: 6,
	}
	if err := jpeg2000.Encode(&cs, img, opts); err != nil {
		return nil, fmt.Errorf("htj2k: encode: %w", err)
	}
	out := appendHTJ2KHeader(make([]byte, 0, 8+2*len(cm)+cs.Len()), cm)
	return append(out, cs.Bytes()...), nil
}

// HTJ2KDecompress reverses HTJ2KCompress. go-jpeg2000 rescales 16-bit
// components in int32, which is exact only up to 0x8000: half samples with
// the sign bit set can come back one unit closer to zero.
func HTJ2KDecompress(data []byte, l Layout, size int) ([]byte, error) {
	if err := htj2kCheck(l); err != nil {
		return nil, err
	}
	if size != l.Size() {
		return nil, ErrSizeMismatch
	}
	hdr, cm, err := parseHTJ2KHeader(data)
	if err != nil {
		return nil, err
	}
	n := len(l.Channels)
	if len(cm) != n {
		return nil, fmt.Errorf("%w: %d components for %d channels", ErrHTJ2KChannelMap, len(cm), n)
	}
	for _, c := range cm {
		if int(c) >= n {
			return nil, ErrHTJ2KChannelMap
		}
	}
	img, err := jpeg2000.Decode(bytes.NewReader(data[hdr:]))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHTJ2KCorrupted, err)
	}
	w, h := l.Channels[0].Width, l.Lines
	b := img.Bounds()
	if b.Dx() != w || b.Dy() != h {
		return nil, ErrSizeMismatch
	}

	dst := make([]byte, size)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			comps := components(img, b.Min.X+x, b.Min.Y+y)
			for comp, c := range cm {
				off := (y*n+int(c))*w*2 + x*2
				binary.LittleEndian.PutUint16(dst[off:], comps[comp])
			}
		}
	}
	return dst, nil
}

func components(img image.Image, x, y int) [4]uint16 {
	switch m := img.(type) {
	case *image.Gray16:
		v := m.Gray16At(x, y).Y
		return [4]uint16{v, v, v, 0xffff}
	case *image.NRGBA64:
		c := m.NRGBA64At(x, y)
		return [4]uint16{c.R, c.G, c.B, c.A}
	case *image.RGBA64:
		// Components are stored as decoded, not premultiplied.
		c := m.RGBA64At(x, y)
		return [4]uint16{c.R, c.G, c.B, c.A}
	}
	c := color.NRGBA64Model.Convert(img.At(x, y)).(color.NRGBA64)
	return [4]uint16{c.R, c.G, c.B, c.A}
}
