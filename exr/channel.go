package exr

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mrjoshuak/go-exredit/compression"
	"github.com/mrjoshuak/go-exredit/internal/xdr"
)

// PixelType is the storage type of a channel's samples.
type PixelType int32

const (
	PixelTypeUint  PixelType = compression.PixelUint
	PixelTypeHalf  PixelType = compression.PixelHalf
	PixelTypeFloat PixelType = compression.PixelFloat
)

func (t PixelType) String() string {
	switch t {
	case PixelTypeUint:
		return "uint"
	case PixelTypeHalf:
		return "half"
	case PixelTypeFloat:
		return "float"
	}
	return fmt.Sprintf("PixelType(%d)", int32(t))
}

// Size returns the size of one sample in bytes, or 0 for an invalid type.
func (t PixelType) Size() int {
	return compression.PixelSize(int(t))
}

// Valid reports whether t is one of the three defined types.
func (t PixelType) Valid() bool {
	return t >= PixelTypeUint && t <= PixelTypeFloat
}

// ParsePixelType accepts "uint", "half" and "float" (any case).
func ParsePixelType(s string) (PixelType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "uint", "uint32":
		return PixelTypeUint, nil
	case "half", "float16":
		return PixelTypeHalf, nil
	case "float", "float32":
		return PixelTypeFloat, nil
	}
	return 0, fmt.Errorf("%w: pixel type %q", ErrUnparseable, s)
}

// Channel describes one sample plane of a part.
type Channel struct {
	Name      string
	Type      PixelType
	XSampling int32
	YSampling int32
	PLinear   bool
}

// NewChannel returns a full resolution channel.
func NewChannel(name string, t PixelType) Channel {
	return Channel{Name: name, Type: t, XSampling: 1, YSampling: 1}
}

// Subsampled reports whether the channel stores fewer samples than pixels.
func (c Channel) Subsampled() bool {
	return c.XSampling != 1 || c.YSampling != 1
}

// Validate checks the channel against the data window it lives in.
func (c Channel) Validate(dw Box2i) error {
	if c.Name == "" {
		return fmt.Errorf("%w: empty channel name", ErrBadSampling)
	}
	if !c.Type.Valid() {
		return fmt.Errorf("%w: channel %s has pixel type %d", ErrBadSampling, c.Name, int32(c.Type))
	}
	if c.XSampling < 1 || c.YSampling < 1 {
		return fmt.Errorf("%w: channel %s sampling %dx%d", ErrBadSampling, c.Name, c.XSampling, c.YSampling)
	}
	xs, ys := int(c.XSampling), int(c.YSampling)
	if int(dw.Min.X)%xs != 0 || int(dw.Min.Y)%ys != 0 || dw.Width()%xs != 0 || dw.Height()%ys != 0 {
		return fmt.Errorf("%w: channel %s sampling %dx%d does not divide data window %s",
			ErrBadSampling, c.Name, xs, ys, dw)
	}
	return nil
}

// sampleSize returns the sample grid of the channel over dw.
func (c Channel) sampleSize(dw Box2i) (w, h int) {
	return dw.Width() / int(c.XSampling), dw.Height() / int(c.YSampling)
}

// ChannelList is the value of a chlist attribute.
type ChannelList []Channel

// Index returns the position of the named channel, or -1.
func (cl ChannelList) Index(name string) int {
	for i, c := range cl {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Names returns the channel names in list order.
func (cl ChannelList) Names() []string {
	names := make([]string, len(cl))
	for i, c := range cl {
		names[i] = c.Name
	}
	return names
}

// Sorted returns a copy ordered by name, the order used on disk.
func (cl ChannelList) Sorted() ChannelList {
	out := slices.Clone(cl)
	slices.SortFunc(out, func(a, b Channel) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// duplicate returns the first name that occurs twice, or "".
func (cl ChannelList) duplicate() string {
	seen := make(map[string]bool, len(cl))
	for _, c := range cl {
		if seen[c.Name] {
			return c.Name
		}
		seen[c.Name] = true
	}
	return ""
}

func readChannelList(r *xdr.Reader) (ChannelList, error) {
	cl := ChannelList{}
	for {
		name, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		if name == "" {
			return cl, nil
		}
		t, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		plinear, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if err := r.Skip(3); err != nil {
			return nil, err
		}
		xs, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		ys, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		cl = append(cl, Channel{Name: name, Type: PixelType(t), PLinear: plinear != 0, XSampling: xs, YSampling: ys})
	}
}

func writeChannelList(w *xdr.Writer, cl ChannelList) {
	for _, c := range cl {
		w.WriteString(c.Name)
		w.WriteInt32(int32(c.Type))
		var pl byte
		if c.PLinear {
			pl = 1
		}
		w.WriteBytes([]byte{pl, 0, 0, 0})
		w.WriteInt32(c.XSampling)
		w.WriteInt32(c.YSampling)
	}
	_ = w.WriteByte(0)
}
