package exrmeta

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"slices"
	"strconv"
	"strings"

	"github.com/mrjoshuak/go-exredit/exr"
)

// Cryptomatte attribute conventions.
const (
	CryptomattePrefix     = "cryptomatte"
	CryptomatteHashName   = "MurmurHash3_32"
	CryptomatteConversion = "uint32_to_float32"
)

// ErrManifest is returned for a Cryptomatte manifest that is not a JSON
// object of hex hashes.
var ErrManifest = errors.New("exrmeta: malformed cryptomatte manifest")

// Cryptomatte describes one Cryptomatte layer of a part.
type Cryptomatte struct {
	Key        string // 7 hex digits derived from Name
	Name       string // channel prefix of the layer, e.g. "CryptoObject"
	Hash       string
	Conversion string
	Manifest   map[string]uint32 // object name to ID
}

// Lookup returns the object name whose ID reinterpreted as float32 is id.
func (c Cryptomatte) Lookup(id float32) (string, bool) {
	want := math.Float32bits(id)
	for name, h := range c.Manifest {
		if h == want {
			return name, true
		}
	}
	return "", false
}

// Murmur3 is the 32-bit MurmurHash3 of data.
func Murmur3(data []byte, seed uint32) uint32 {
	const c1, c2 = 0xcc9e2d51, 0x1b873593
	h := seed
	n := len(data) / 4
	for i := range n {
		k := binary.LittleEndian.Uint32(data[i*4:])
		k = bits.RotateLeft32(k*c1, 15) * c2
		h = bits.RotateLeft32(h^k, 13)*5 + 0xe6546b64
	}
	var k uint32
	tail := data[n*4:]
	switch len(tail) {
	case 3:
		k ^= uint32(tail[2]) << 16
		fallthrough
	case 2:
		k ^= uint32(tail[1]) << 8
		fallthrough
	case 1:
		k ^= uint32(tail[0])
		h ^= bits.RotateLeft32(k*c1, 15) * c2
	}
	h ^= uint32(len(data))
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16
	return h
}

// CryptomatteHash returns the ID of an object name. IDs whose float32
// reading would be denormal, infinite or NaN have bit 23 flipped.
func CryptomatteHash(name string) uint32 {
	h := Murmur3([]byte(name), 0)
	if exp := h >> 23 & 0xff; exp == 0 || exp == 0xff {
		h ^= 1 << 23
	}
	return h
}

// CryptomatteKey returns the attribute key of a layer name.
func CryptomatteKey(layer string) string {
	return fmt.Sprintf("%08x", Murmur3([]byte(layer), 0))[:7]
}

// SetCryptomatte writes the metadata of a Cryptomatte layer holding the
// given object names.
func SetCryptomatte(a Attributes, layer string, names []string) error {
	manifest := make(map[string]string, len(names))
	for _, n := range names {
		manifest[n] = fmt.Sprintf("%08x", CryptomatteHash(n))
	}
	data, err := json.Marshal(manifest)
	if err != nil {
		return err
	}
	prefix := CryptomattePrefix + "/" + CryptomatteKey(layer) + "/"
	return errors.Join(
		set(a, prefix+"name", exr.TypeString, layer),
		set(a, prefix+"hash", exr.TypeString, CryptomatteHashName),
		set(a, prefix+"conversion", exr.TypeString, CryptomatteConversion),
		set(a, prefix+"manifest", exr.TypeString, string(data)),
	)
}

// Cryptomattes returns the Cryptomatte layers described in a header,
// ordered by key.
func Cryptomattes(h *exr.Header) ([]Cryptomatte, error) {
	byKey := map[string]*Cryptomatte{}
	var errs []error
	for _, attr := range h.Attributes() {
		rest, ok := strings.CutPrefix(attr.Name, CryptomattePrefix+"/")
		if !ok {
			continue
		}
		key, field, ok := strings.Cut(rest, "/")
		s, isString := attr.Value.(string)
		if !ok || !isString {
			continue
		}
		c := byKey[key]
		if c == nil {
			c = &Cryptomatte{Key: key}
			byKey[key] = c
		}
		switch field {
		case "name":
			c.Name = s
		case "hash":
			c.Hash = s
		case "conversion":
			c.Conversion = s
		case "manifest":
			m, err := parseManifest(s)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", attr.Name, err))
			}
			c.Manifest = m
		}
	}
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]Cryptomatte, len(keys))
	for i, k := range keys {
		out[i] = *byKey[k]
	}
	return out, errors.Join(errs...)
}

func parseManifest(s string) (map[string]uint32, error) {
	var raw map[string]string
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifest, err)
	}
	m := make(map[string]uint32, len(raw))
	for name, hex := range raw {
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q for %q", ErrManifest, hex, name)
		}
		m[name] = uint32(v)
	}
	return m, nil
}
