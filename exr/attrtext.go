package exr

import (
	"fmt"
	"strconv"
	"strings"
)

func ftoa32(v float32) string { return strconv.FormatFloat(float64(v), 'g', -1, 32) }
func ftoa64(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func join32(vs ...float32) string {
	s := make([]string, len(vs))
	for i, v := range vs {
		s[i] = ftoa32(v)
	}
	return strings.Join(s, ", ")
}

func join64(vs ...float64) string {
	s := make([]string, len(vs))
	for i, v := range vs {
		s[i] = ftoa64(v)
	}
	return strings.Join(s, ", ")
}

func rows[T any](vs []T, n int, join func(...T) string) string {
	var parts []string
	for i := 0; i+n <= len(vs); i += n {
		parts = append(parts, "["+join(vs[i:i+n]...)+"]")
	}
	return strings.Join(parts, ", ")
}

// FormatValue renders an attribute value as one line of text. Values of
// the types accepted by ParseValue format to text that parses back to the
// same value.
func FormatValue(a Attribute) string {
	switch v := a.Value.(type) {
	case string:
		return v
	case []string:
		q := make([]string, len(v))
		for i, s := range v {
			q[i] = strconv.Quote(s)
		}
		return "[" + strings.Join(q, ", ") + "]"
	case int32:
		return strconv.Itoa(int(v))
	case float32:
		return ftoa32(v)
	case float64:
		return ftoa64(v)
	case V2i:
		return fmt.Sprintf("(%d, %d)", v.X, v.Y)
	case V3i:
		return fmt.Sprintf("(%d, %d, %d)", v.X, v.Y, v.Z)
	case V2f:
		return "(" + join32(v.X, v.Y) + ")"
	case V3f:
		return "(" + join32(v.X, v.Y, v.Z) + ")"
	case V2d:
		return "(" + join64(v.X, v.Y) + ")"
	case V3d:
		return "(" + join64(v.X, v.Y, v.Z) + ")"
	case Box2i:
		return v.String()
	case Box2f:
		return "(" + join32(v.Min.X, v.Min.Y) + ") - (" + join32(v.Max.X, v.Max.Y) + ")"
	case M33f:
		return rows(v[:], 3, join32)
	case M44f:
		return rows(v[:], 4, join32)
	case M33d:
		return rows(v[:], 3, join64)
	case M44d:
		return rows(v[:], 4, join64)
	case FloatVector:
		return "[" + join32(v...) + "]"
	case Rational:
		return fmt.Sprintf("%d/%d", v.Num, v.Denom)
	case Compression:
		return v.String()
	case LineOrder:
		return v.String()
	case EnvMap:
		return v.String()
	case TileDescription:
		return v.String()
	case TimeCode:
		return v.String()
	case KeyCode:
		return fmt.Sprintf("mfc %d type %d prefix %d count %d offset %d perfs/frame %d perfs/count %d",
			v.FilmMfcCode, v.FilmType, v.Prefix, v.Count, v.PerfOffset, v.PerfsPerFrame, v.PerfsPerCount)
	case Chromaticities:
		return fmt.Sprintf("red (%s) green (%s) blue (%s) white (%s)",
			join32(v.Red.X, v.Red.Y), join32(v.Green.X, v.Green.Y),
			join32(v.Blue.X, v.Blue.Y), join32(v.White.X, v.White.Y))
	case ChannelList:
		s := make([]string, len(v))
		for i, c := range v {
			s[i] = c.Name + ":" + c.Type.String()
			if c.Subsampled() {
				s[i] += fmt.Sprintf("@%dx%d", c.XSampling, c.YSampling)
			}
		}
		return strings.Join(s, ", ")
	case Preview:
		return fmt.Sprintf("%dx%d preview", v.Width, v.Height)
	case Opaque:
		const limit = 16
		if len(v) > limit {
			return fmt.Sprintf("%x... (%d bytes)", []byte(v[:limit]), len(v))
		}
		return fmt.Sprintf("%x (%d bytes)", []byte(v), len(v))
	}
	return fmt.Sprint(a.Value)
}

var numberLabels = map[string]bool{"-": true, "red": true, "green": true, "blue": true, "white": true}

// numbers splits text into numeric tokens, ignoring brackets, commas and
// the labels FormatValue writes.
func numbers(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ',' || r == '(' || r == ')' || r == '[' || r == ']' || r == ';'
	})
	out := fields[:0]
	for _, f := range fields {
		if !numberLabels[strings.ToLower(f)] {
			out = append(out, f)
		}
	}
	return out
}

func parseN[T any](text string, n int, parse func(string) (T, error)) ([]T, error) {
	toks := numbers(text)
	if n >= 0 && len(toks) != n {
		return nil, fmt.Errorf("%w: want %d numbers, got %d in %q", ErrUnparseable, n, len(toks), text)
	}
	out := make([]T, len(toks))
	for i, t := range toks {
		v, err := parse(t)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrUnparseable, t, err)
		}
		out[i] = v
	}
	return out, nil
}

func atoi32(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	return int32(v), err
}

func atof32(s string) (float32, error) {
	v, err := strconv.ParseFloat(s, 32)
	return float32(v), err
}

func atof64(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

// ParseValue parses text into a value of type t. It accepts what
// FormatValue produces for the scalar, vector, box, matrix, string,
// stringvector, compression, lineOrder and rational types.
func ParseValue(t AttributeType, text string) (any, error) {
	text = strings.TrimSpace(text)
	switch t {
	case TypeString:
		return text, nil
	case TypeStringVector:
		return parseStrings(text)
	case TypeCompression:
		return ParseCompression(text)
	case TypeLineOrder:
		return ParseLineOrder(text)
	case TypeRational:
		num, den, ok := strings.Cut(text, "/")
		n, err := atoi32(strings.TrimSpace(num))
		if err != nil {
			return nil, fmt.Errorf("%w: rational %q", ErrUnparseable, text)
		}
		d := uint64(1)
		if ok {
			if d, err = strconv.ParseUint(strings.TrimSpace(den), 10, 32); err != nil {
				return nil, fmt.Errorf("%w: rational %q", ErrUnparseable, text)
			}
		}
		return Rational{Num: n, Denom: uint32(d)}, nil
	case TypeInt:
		v, err := parseN(text, 1, atoi32)
		if err != nil {
			return nil, err
		}
		return v[0], nil
	case TypeFloat:
		v, err := parseN(text, 1, atof32)
		if err != nil {
			return nil, err
		}
		return v[0], nil
	case TypeDouble:
		v, err := parseN(text, 1, atof64)
		if err != nil {
			return nil, err
		}
		return v[0], nil
	case TypeV2i, TypeV3i, TypeBox2i:
		n := map[AttributeType]int{TypeV2i: 2, TypeV3i: 3, TypeBox2i: 4}[t]
		v, err := parseN(text, n, atoi32)
		if err != nil {
			return nil, err
		}
		switch t {
		case TypeV2i:
			return V2i{v[0], v[1]}, nil
		case TypeV3i:
			return V3i{v[0], v[1], v[2]}, nil
		}
		return Box2i{V2i{v[0], v[1]}, V2i{v[2], v[3]}}, nil
	case TypeV2f, TypeV3f, TypeBox2f, TypeM33f, TypeM44f, TypeChromaticities, TypeFloatVector:
		n := map[AttributeType]int{TypeV2f: 2, TypeV3f: 3, TypeBox2f: 4, TypeM33f: 9, TypeM44f: 16,
			TypeChromaticities: 8, TypeFloatVector: -1}[t]
		v, err := parseN(text, n, atof32)
		if err != nil {
			return nil, err
		}
		switch t {
		case TypeV2f:
			return V2f{v[0], v[1]}, nil
		case TypeV3f:
			return V3f{v[0], v[1], v[2]}, nil
		case TypeBox2f:
			return Box2f{V2f{v[0], v[1]}, V2f{v[2], v[3]}}, nil
		case TypeM33f:
			return M33f(v), nil
		case TypeM44f:
			return M44f(v), nil
		case TypeChromaticities:
			return Chromaticities{V2f{v[0], v[1]}, V2f{v[2], v[3]}, V2f{v[4], v[5]}, V2f{v[6], v[7]}}, nil
		}
		return FloatVector(v), nil
	case TypeV2d, TypeV3d, TypeM33d, TypeM44d:
		n := map[AttributeType]int{TypeV2d: 2, TypeV3d: 3, TypeM33d: 9, TypeM44d: 16}[t]
		v, err := parseN(text, n, atof64)
		if err != nil {
			return nil, err
		}
		switch t {
		case TypeV2d:
			return V2d{v[0], v[1]}, nil
		case TypeV3d:
			return V3d{v[0], v[1], v[2]}, nil
		case TypeM33d:
			return M33d(v), nil
		}
		return M44d(v), nil
	}
	return nil, fmt.Errorf("%w: text input for %s attributes", ErrUnparseable, t)
}

// parseStrings reads a bracketed list of Go-quoted strings. A bare
// comma separated list is accepted too.
func parseStrings(text string) ([]string, error) {
	inner, ok := strings.CutPrefix(text, "[")
	if !ok {
		out := []string{}
		for _, s := range strings.Split(text, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	}
	inner, ok = strings.CutSuffix(inner, "]")
	if !ok {
		return nil, fmt.Errorf("%w: unterminated list %q", ErrUnparseable, text)
	}
	out := []string{}
	for {
		inner = strings.TrimLeft(inner, " \t,")
		if inner == "" {
			return out, nil
		}
		q, err := strconv.QuotedPrefix(inner)
		if err != nil {
			return nil, fmt.Errorf("%w: string list %q", ErrUnparseable, text)
		}
		s, _ := strconv.Unquote(q)
		out = append(out, s)
		inner = inner[len(q):]
	}
}
