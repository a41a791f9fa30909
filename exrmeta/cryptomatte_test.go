package exrmeta

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrjoshuak/go-exredit/exr"
)

func TestMurmur3(t *testing.T) {
	tests := []struct {
		data string
		seed uint32
		want uint32
	}{
		{"", 0, 0},
		{"", 1, 0x514e28b7},
		{"hello", 0, 0x248bfa47},
		{"Hello, world!", 0, 0xc0363e43},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Murmur3([]byte(tt.data), tt.seed), "%q seed %d", tt.data, tt.seed)
	}
}

func TestCryptomatteHashIsFiniteFloat(t *testing.T) {
	for _, name := range []string{"Hero", "Villain", "bunny", "default", "/obj/geo1", ""} {
		f := math.Float32frombits(CryptomatteHash(name))
		assert.False(t, math.IsNaN(float64(f)) || math.IsInf(float64(f), 0), name)
		exp := CryptomatteHash(name) >> 23 & 0xff
		assert.NotZero(t, exp, name)
		assert.NotEqual(t, uint32(0xff), exp, name)
	}
	assert.Equal(t, CryptomatteHash("Hero"), CryptomatteHash("Hero"))
	assert.NotEqual(t, CryptomatteHash("Hero"), CryptomatteHash("Villain"))
}

func TestCryptomatteRoundTrip(t *testing.T) {
	p := newPart(t, "CryptoObject00.R", "CryptoObject00.G")
	names := []string{"Hero", "Villain", "Ground"}
	require.NoError(t, SetCryptomatte(p, "CryptoObject", names))

	key := CryptomatteKey("CryptoObject")
	assert.Len(t, key, 7)
	name, ok := p.Attribute("cryptomatte/" + key + "/name")
	require.True(t, ok)
	assert.Equal(t, "CryptoObject", name.Value)

	layers, err := Cryptomattes(p.Header())
	require.NoError(t, err)
	require.Len(t, layers, 1)
	c := layers[0]
	assert.Equal(t, key, c.Key)
	assert.Equal(t, CryptomatteHashName, c.Hash)
	assert.Equal(t, CryptomatteConversion, c.Conversion)
	require.Len(t, c.Manifest, 3)
	assert.Equal(t, CryptomatteHash("Hero"), c.Manifest["Hero"])

	got, ok := c.Lookup(math.Float32frombits(CryptomatteHash("Villain")))
	assert.True(t, ok)
	assert.Equal(t, "Villain", got)
	_, ok = c.Lookup(0.5)
	assert.False(t, ok)
}

func TestCryptomatteBadManifest(t *testing.T) {
	p := newPart(t, "R")
	require.NoError(t, p.SetAttribute(exr.Attribute{Name: "cryptomatte/abc1234/name", Type: exr.TypeString, Value: "CryptoMaterial"}))
	require.NoError(t, p.SetAttribute(exr.Attribute{Name: "cryptomatte/abc1234/manifest", Type: exr.TypeString, Value: `{"steel":"zz"}`}))
	layers, err := Cryptomattes(p.Header())
	require.ErrorIs(t, err, ErrManifest)
	require.Len(t, layers, 1)
	assert.Equal(t, "CryptoMaterial", layers[0].Name)

	none, err := Cryptomattes(newPart(t, "R").Header())
	require.NoError(t, err)
	assert.Empty(t, none)
}
