package predictor

import (
	"bytes"
	"testing"
)

// TestEncodeFlat verifies a constant run encodes to the 0x80 bias.
func TestEncodeFlat(t *testing.T) {
	data := []byte{7, 7, 7, 7}
	Encode(data)
	want := []byte{7, 128, 128, 128}
	if !bytes.Equal(data, want) {
		t.Errorf("Encode = %v, want %v", data, want)
	}
}

func TestEncodeWraps(t *testing.T) {
	data := []byte{250, 4}
	Encode(data)
	// 4 - 250 + 128 wraps modulo 256 to 138.
	if data[1] != 138 {
		t.Errorf("delta = %d, want 138", data[1])
	}
}

func TestRoundTrip(t *testing.T) {
	src := make([]byte, 1000)
	for i := range src {
		src[i] = byte(i*i + 3*i)
	}
	data := append([]byte(nil), src...)
	Encode(data)
	Decode(data)
	if !bytes.Equal(data, src) {
		t.Error("Decode(Encode(x)) != x")
	}
}

func TestShortInputs(t *testing.T) {
	Encode(nil)
	Decode(nil)
	one := []byte{42}
	Encode(one)
	Decode(one)
	if one[0] != 42 {
		t.Errorf("single byte changed to %d", one[0])
	}
}
