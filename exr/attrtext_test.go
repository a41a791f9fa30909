package exr

import (
	"errors"
	"reflect"
	"testing"
)

func TestFormatParseRoundTrip(t *testing.T) {
	for _, a := range sampleAttributes() {
		switch a.Type {
		case TypeChlist, TypePreview, TypeTileDesc, TypeTimecode, TypeKeycode, TypeEnvmap, "myVendorType":
			continue
		}
		text := FormatValue(a)
		got, err := ParseValue(a.Type, text)
		if err != nil {
			t.Errorf("%s: ParseValue(%q): %v", a.Name, text, err)
			continue
		}
		if !reflect.DeepEqual(got, a.Value) {
			t.Errorf("%s: %q parsed to %#v, want %#v", a.Name, text, got, a.Value)
		}
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		a    Attribute
		want string
	}{
		{Attribute{Type: TypeBox2i, Value: NewBox2i(0, 0, 63, 63)}, "(0 0) - (63 63)"},
		{Attribute{Type: TypeV2f, Value: V2f{0.5, 1}}, "(0.5, 1)"},
		{Attribute{Type: TypeCompression, Value: CompressionZIP}, "zip"},
		{Attribute{Type: TypeStringVector, Value: []string{"a", "b,c"}}, `["a", "b,c"]`},
		{Attribute{Type: TypeChlist, Value: ChannelList{NewChannel("R", PixelTypeHalf), {Name: "RY", Type: PixelTypeHalf, XSampling: 2, YSampling: 2}}}, "R:half, RY:half@2x2"},
		{Attribute{Type: "blob", Value: Opaque{1, 2}}, "0102 (2 bytes)"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.a); got != tt.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tt.a.Value, got, tt.want)
		}
	}
}

func TestParseValueLenient(t *testing.T) {
	got, err := ParseValue(TypeStringVector, "left, right")
	if err != nil || !reflect.DeepEqual(got, []string{"left", "right"}) {
		t.Errorf("bare list = %v, %v", got, err)
	}
	got, err = ParseValue(TypeRational, "24")
	if err != nil || got != (Rational{24, 1}) {
		t.Errorf("rational without denominator = %v, %v", got, err)
	}
	got, err = ParseValue(TypeBox2i, "0 0 99 49")
	if err != nil || got != NewBox2i(0, 0, 99, 49) {
		t.Errorf("bare box = %v, %v", got, err)
	}
}

func TestParseValueErrors(t *testing.T) {
	bad := []struct {
		t    AttributeType
		text string
	}{
		{TypeInt, "1.5"},
		{TypeInt, "1 2"},
		{TypeV2f, "(1)"},
		{TypeFloat, "abc"},
		{TypeStringVector, `["open`},
		{TypeChlist, "R:half"},
		{TypeRational, "1/x"},
	}
	for _, b := range bad {
		if _, err := ParseValue(b.t, b.text); !errors.Is(err, ErrUnparseable) {
			t.Errorf("ParseValue(%s, %q) err = %v", b.t, b.text, err)
		}
	}
}
