package exr

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/mrjoshuak/go-exredit/internal/xdr"
)

// Attribute errors.
var (
	ErrAttributeShape  = errors.New("exr: attribute value does not match its type")
	ErrAttributeSize   = errors.New("exr: attribute size does not match its type")
	ErrReadOnlyAttr    = errors.New("exr: attribute is derived from part state")
	ErrRequiredAttr    = errors.New("exr: attribute is required")
	ErrAttributeExists = errors.New("exr: attribute already exists")
)

// AttributeType is the type string stored with every attribute.
type AttributeType string

const (
	TypeBox2i          AttributeType = "box2i"
	TypeBox2f          AttributeType = "box2f"
	TypeChlist         AttributeType = "chlist"
	TypeChromaticities AttributeType = "chromaticities"
	TypeCompression    AttributeType = "compression"
	TypeDouble         AttributeType = "double"
	TypeEnvmap         AttributeType = "envmap"
	TypeFloat          AttributeType = "float"
	TypeFloatVector    AttributeType = "floatvector"
	TypeInt            AttributeType = "int"
	TypeKeycode        AttributeType = "keycode"
	TypeLineOrder      AttributeType = "lineOrder"
	TypeM33f           AttributeType = "m33f"
	TypeM33d           AttributeType = "m33d"
	TypeM44f           AttributeType = "m44f"
	TypeM44d           AttributeType = "m44d"
	TypePreview        AttributeType = "preview"
	TypeRational       AttributeType = "rational"
	TypeString         AttributeType = "string"
	TypeStringVector   AttributeType = "stringvector"
	TypeTileDesc       AttributeType = "tiledesc"
	TypeTimecode       AttributeType = "timecode"
	TypeV2i            AttributeType = "v2i"
	TypeV2f            AttributeType = "v2f"
	TypeV2d            AttributeType = "v2d"
	TypeV3i            AttributeType = "v3i"
	TypeV3f            AttributeType = "v3f"
	TypeV3d            AttributeType = "v3d"
)

// Opaque holds the value bytes of an attribute whose type is not known.
// It is written back unchanged.
type Opaque []byte

// Attribute is one named, typed header value. Value holds the Go type
// listed for Type in KnownTypes, or Opaque for unknown types.
type Attribute struct {
	Name  string
	Type  AttributeType
	Value any
}

var shapes = map[AttributeType]reflect.Type{
	TypeBox2i:          reflect.TypeFor[Box2i](),
	TypeBox2f:          reflect.TypeFor[Box2f](),
	TypeChlist:         reflect.TypeFor[ChannelList](),
	TypeChromaticities: reflect.TypeFor[Chromaticities](),
	TypeCompression:    reflect.TypeFor[Compression](),
	TypeDouble:         reflect.TypeFor[float64](),
	TypeEnvmap:         reflect.TypeFor[EnvMap](),
	TypeFloat:          reflect.TypeFor[float32](),
	TypeFloatVector:    reflect.TypeFor[FloatVector](),
	TypeInt:            reflect.TypeFor[int32](),
	TypeKeycode:        reflect.TypeFor[KeyCode](),
	TypeLineOrder:      reflect.TypeFor[LineOrder](),
	TypeM33f:           reflect.TypeFor[M33f](),
	TypeM33d:           reflect.TypeFor[M33d](),
	TypeM44f:           reflect.TypeFor[M44f](),
	TypeM44d:           reflect.TypeFor[M44d](),
	TypePreview:        reflect.TypeFor[Preview](),
	TypeRational:       reflect.TypeFor[Rational](),
	TypeString:         reflect.TypeFor[string](),
	TypeStringVector:   reflect.TypeFor[[]string](),
	TypeTileDesc:       reflect.TypeFor[TileDescription](),
	TypeTimecode:       reflect.TypeFor[TimeCode](),
	TypeV2i:            reflect.TypeFor[V2i](),
	TypeV2f:            reflect.TypeFor[V2f](),
	TypeV2d:            reflect.TypeFor[V2d](),
	TypeV3i:            reflect.TypeFor[V3i](),
	TypeV3f:            reflect.TypeFor[V3f](),
	TypeV3d:            reflect.TypeFor[V3d](),
}

// IsKnown reports whether t is decoded into a typed value.
func (t AttributeType) IsKnown() bool {
	_, ok := shapes[t]
	return ok
}

// Validate checks that the value's Go type matches the type tag.
func (a Attribute) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("%w: empty name", ErrAttributeShape)
	}
	want, known := shapes[a.Type]
	if !known {
		if _, ok := a.Value.(Opaque); ok && a.Type != "" {
			return nil
		}
		return fmt.Errorf("%w: %s of unknown type %q needs an Opaque value", ErrAttributeShape, a.Name, a.Type)
	}
	if a.Value == nil || reflect.TypeOf(a.Value) != want {
		return fmt.Errorf("%w: %s is %s, value is %T", ErrAttributeShape, a.Name, a.Type, a.Value)
	}
	return nil
}

// fixedSizes lists the encoded size of every fixed-size type.
var fixedSizes = map[AttributeType]int{
	TypeBox2i: 16, TypeBox2f: 16, TypeChromaticities: 32, TypeCompression: 1,
	TypeDouble: 8, TypeEnvmap: 1, TypeFloat: 4, TypeInt: 4, TypeKeycode: 28,
	TypeLineOrder: 1, TypeM33f: 36, TypeM33d: 72, TypeM44f: 64, TypeM44d: 128,
	TypeRational: 8, TypeTileDesc: 9, TypeTimecode: 8, TypeV2i: 8, TypeV2f: 8,
	TypeV2d: 16, TypeV3i: 12, TypeV3f: 12, TypeV3d: 24,
}

// ReadAttribute reads one attribute record. It returns nil, nil at the
// empty name that terminates a header.
func ReadAttribute(r *xdr.Reader) (*Attribute, error) {
	name, err := r.ReadString()
	if err != nil || name == "" {
		return nil, err
	}
	typ, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	size, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	body, err := r.Slice(int(size))
	if err != nil {
		return nil, err
	}
	a := &Attribute{Name: name, Type: AttributeType(typ)}
	if want, ok := fixedSizes[a.Type]; ok && want != len(body) {
		return nil, fmt.Errorf("%w: %s (%s) has %d bytes, want %d", ErrAttributeSize, name, typ, len(body), want)
	}
	if a.Value, err = decodeValue(a.Type, body); err != nil {
		return nil, fmt.Errorf("%w: %s (%s): %v", ErrAttributeSize, name, typ, err)
	}
	return a, nil
}

func decodeValue(t AttributeType, body []byte) (any, error) {
	r := xdr.NewReader(body)
	switch t {
	case TypeString:
		return string(body), nil
	case TypeStringVector:
		var out []string
		for r.Len() > 0 {
			n, err := r.ReadInt32()
			if err != nil {
				return nil, err
			}
			b, err := r.ReadBytes(int(n))
			if err != nil {
				return nil, err
			}
			out = append(out, string(b))
		}
		if out == nil {
			out = []string{}
		}
		return out, nil
	case TypeFloatVector:
		if len(body)%4 != 0 {
			return nil, ErrAttributeSize
		}
		fv := make(FloatVector, len(body)/4)
		for i := range fv {
			fv[i], _ = r.ReadFloat32()
		}
		return fv, nil
	case TypeChlist:
		return readChannelList(r)
	case TypePreview:
		var p Preview
		var err error
		if p.Width, err = r.ReadUint32(); err != nil {
			return nil, err
		}
		if p.Height, err = r.ReadUint32(); err != nil {
			return nil, err
		}
		n := int64(p.Width) * int64(p.Height) * 4
		if n != int64(r.Len()) {
			return nil, ErrAttributeSize
		}
		p.Pixels, err = r.ReadBytes(int(n))
		return p, err
	case TypeCompression:
		b, err := r.ReadByte()
		return Compression(b), err
	case TypeLineOrder:
		b, err := r.ReadByte()
		return LineOrder(b), err
	case TypeEnvmap:
		b, err := r.ReadByte()
		return EnvMap(b), err
	case TypeTileDesc:
		var td TileDescription
		td.XSize, _ = r.ReadUint32()
		td.YSize, _ = r.ReadUint32()
		mode, err := r.ReadByte()
		td.Mode = LevelMode(mode & 0x0f)
		td.Rounding = LevelRounding(mode >> 4)
		return td, err
	case TypeInt:
		return r.ReadInt32()
	case TypeFloat:
		return r.ReadFloat32()
	case TypeDouble:
		return r.ReadFloat64()
	case TypeRational:
		n, _ := r.ReadInt32()
		d, err := r.ReadUint32()
		return Rational{Num: n, Denom: d}, err
	case TypeTimecode:
		a, _ := r.ReadUint32()
		b, err := r.ReadUint32()
		return TimeCode{TimeAndFlags: a, UserData: b}, err
	case TypeKeycode:
		var f [7]int32
		for i := range f {
			f[i], _ = r.ReadInt32()
		}
		return KeyCode{f[0], f[1], f[2], f[3], f[4], f[5], f[6]}, nil
	case TypeV2i, TypeV3i, TypeBox2i:
		var v [4]int32
		for i := 0; r.Len() > 0; i++ {
			v[i], _ = r.ReadInt32()
		}
		switch t {
		case TypeV2i:
			return V2i{v[0], v[1]}, nil
		case TypeV3i:
			return V3i{v[0], v[1], v[2]}, nil
		}
		return Box2i{V2i{v[0], v[1]}, V2i{v[2], v[3]}}, nil
	case TypeV2f, TypeV3f, TypeBox2f, TypeChromaticities, TypeM33f, TypeM44f:
		f := make([]float32, 0, 16)
		for r.Len() > 0 {
			v, _ := r.ReadFloat32()
			f = append(f, v)
		}
		switch t {
		case TypeV2f:
			return V2f{f[0], f[1]}, nil
		case TypeV3f:
			return V3f{f[0], f[1], f[2]}, nil
		case TypeBox2f:
			return Box2f{V2f{f[0], f[1]}, V2f{f[2], f[3]}}, nil
		case TypeChromaticities:
			return Chromaticities{V2f{f[0], f[1]}, V2f{f[2], f[3]}, V2f{f[4], f[5]}, V2f{f[6], f[7]}}, nil
		case TypeM33f:
			return M33f(f), nil
		}
		return M44f(f), nil
	case TypeV2d, TypeV3d, TypeM33d, TypeM44d:
		d := make([]float64, 0, 16)
		for r.Len() > 0 {
			v, _ := r.ReadFloat64()
			d = append(d, v)
		}
		switch t {
		case TypeV2d:
			return V2d{d[0], d[1]}, nil
		case TypeV3d:
			return V3d{d[0], d[1], d[2]}, nil
		case TypeM33d:
			return M33d(d), nil
		}
		return M44d(d), nil
	}
	return Opaque(append([]byte(nil), body...)), nil
}

// WriteAttribute appends the record for a to w.
func WriteAttribute(w *xdr.Writer, a Attribute) error {
	if err := a.Validate(); err != nil {
		return err
	}
	body := xdr.NewWriter(64)
	encodeValue(body, a.Value)
	w.WriteString(a.Name)
	w.WriteString(string(a.Type))
	w.WriteInt32(int32(body.Len()))
	w.WriteBytes(body.Bytes())
	return nil
}

func encodeValue(w *xdr.Writer, v any) {
	f32 := func(fs ...float32) {
		for _, f := range fs {
			w.WriteFloat32(f)
		}
	}
	f64 := func(fs ...float64) {
		for _, f := range fs {
			w.WriteFloat64(f)
		}
	}
	i32 := func(is ...int32) {
		for _, i := range is {
			w.WriteInt32(i)
		}
	}
	switch v := v.(type) {
	case Opaque:
		w.WriteBytes(v)
	case string:
		w.WriteBytes([]byte(v))
	case []string:
		for _, s := range v {
			w.WriteInt32(int32(len(s)))
			w.WriteBytes([]byte(s))
		}
	case FloatVector:
		f32(v...)
	case ChannelList:
		writeChannelList(w, v)
	case Preview:
		w.WriteUint32(v.Width)
		w.WriteUint32(v.Height)
		w.WriteBytes(v.Pixels)
	case Compression:
		_ = w.WriteByte(byte(v))
	case LineOrder:
		_ = w.WriteByte(byte(v))
	case EnvMap:
		_ = w.WriteByte(byte(v))
	case TileDescription:
		w.WriteUint32(v.XSize)
		w.WriteUint32(v.YSize)
		_ = w.WriteByte(byte(v.Mode)&0x0f | byte(v.Rounding)<<4)
	case int32:
		i32(v)
	case float32:
		f32(v)
	case float64:
		f64(v)
	case Rational:
		w.WriteInt32(v.Num)
		w.WriteUint32(v.Denom)
	case TimeCode:
		w.WriteUint32(v.TimeAndFlags)
		w.WriteUint32(v.UserData)
	case KeyCode:
		i32(v.FilmMfcCode, v.FilmType, v.Prefix, v.Count, v.PerfOffset, v.PerfsPerFrame, v.PerfsPerCount)
	case V2i:
		i32(v.X, v.Y)
	case V3i:
		i32(v.X, v.Y, v.Z)
	case Box2i:
		i32(v.Min.X, v.Min.Y, v.Max.X, v.Max.Y)
	case V2f:
		f32(v.X, v.Y)
	case V3f:
		f32(v.X, v.Y, v.Z)
	case Box2f:
		f32(v.Min.X, v.Min.Y, v.Max.X, v.Max.Y)
	case Chromaticities:
		f32(v.Red.X, v.Red.Y, v.Green.X, v.Green.Y, v.Blue.X, v.Blue.Y, v.White.X, v.White.Y)
	case M33f:
		f32(v[:]...)
	case M44f:
		f32(v[:]...)
	case V2d:
		f64(v.X, v.Y)
	case V3d:
		f64(v.X, v.Y, v.Z)
	case M33d:
		f64(v[:]...)
	case M44d:
		f64(v[:]...)
	}
}
