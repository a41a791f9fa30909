package exr

import (
	"errors"
	"slices"
	"sync"

	"github.com/mrjoshuak/go-exredit/compression"
)

// ChunkLayout describes the packing of one chunk for type-aware codecs.
type ChunkLayout = compression.Layout

// Codec compresses and decompresses the data of one chunk. Implementations
// must be safe for concurrent use.
type Codec interface {
	Compress(raw []byte, l ChunkLayout) ([]byte, error)
	Decompress(data []byte, l ChunkLayout, expectedSize int) ([]byte, error)
}

type noneCodec struct{}

func (noneCodec) Compress(raw []byte, _ ChunkLayout) ([]byte, error) { return raw, nil }

func (noneCodec) Decompress(data []byte, _ ChunkLayout, size int) ([]byte, error) {
	if len(data) != size {
		return nil, compression.ErrSizeMismatch
	}
	return data, nil
}

type rleCodec struct{}

func (rleCodec) Compress(raw []byte, _ ChunkLayout) ([]byte, error) {
	return compression.RLECompress(raw), nil
}

func (rleCodec) Decompress(data []byte, _ ChunkLayout, size int) ([]byte, error) {
	return compression.RLEDecompress(data, size)
}

type zipCodec struct{}

func (zipCodec) Compress(raw []byte, _ ChunkLayout) ([]byte, error) {
	return compression.ZIPCompress(raw)
}

func (zipCodec) Decompress(data []byte, _ ChunkLayout, size int) ([]byte, error) {
	return compression.ZIPDecompress(data, size)
}

type pxr24Codec struct{}

func (pxr24Codec) Compress(raw []byte, l ChunkLayout) ([]byte, error) {
	return compression.PXR24Compress(raw, l)
}

func (pxr24Codec) Decompress(data []byte, l ChunkLayout, size int) ([]byte, error) {
	return compression.PXR24Decompress(data, l, size)
}

type htj2kCodec struct{ blockSize int }

func (c htj2kCodec) Compress(raw []byte, l ChunkLayout) ([]byte, error) {
	return compression.HTJ2KCompress(raw, l, c.blockSize)
}

func (htj2kCodec) Decompress(data []byte, l ChunkLayout, size int) ([]byte, error) {
	return compression.HTJ2KDecompress(data, l, size)
}

// Registry maps compression schemes to codecs.
type Registry struct {
	mu     sync.RWMutex
	codecs map[Compression]Codec
}

// NewRegistry returns a registry holding the built-in codecs: NONE, RLE,
// ZIPS, ZIP, PXR24, HTJ2K256 and HTJ2K32.
func NewRegistry() *Registry {
	r := &Registry{codecs: make(map[Compression]Codec)}
	r.codecs[CompressionNone] = noneCodec{}
	r.codecs[CompressionRLE] = rleCodec{}
	r.codecs[CompressionZIPS] = zipCodec{}
	r.codecs[CompressionZIP] = zipCodec{}
	r.codecs[CompressionPXR24] = pxr24Codec{}
	r.codecs[CompressionHTJ2K256] = htj2kCodec{blockSize: 64}
	r.codecs[CompressionHTJ2K32] = htj2kCodec{blockSize: 32}
	return r
}

// defaultRegistry serves options that leave Registry nil. It is never
// modified.
var defaultRegistry = NewRegistry()

// Register installs c for scheme, replacing any existing codec.
func (r *Registry) Register(scheme Compression, c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[scheme] = c
}

// Unregister removes the codec for scheme.
func (r *Registry) Unregister(scheme Compression) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.codecs, scheme)
}

// Lookup returns the codec for scheme.
func (r *Registry) Lookup(scheme Compression) (Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codecs[scheme]
	return c, ok
}

// Supports reports whether scheme has a codec.
func (r *Registry) Supports(scheme Compression) bool {
	_, ok := r.Lookup(scheme)
	return ok
}

// Schemes returns the registered schemes in ascending order.
func (r *Registry) Schemes() []Compression {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Compression, 0, len(r.codecs))
	for s := range r.codecs {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// Clone returns an independent copy.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := &Registry{codecs: make(map[Compression]Codec, len(r.codecs))}
	for k, v := range r.codecs {
		c.codecs[k] = v
	}
	return c
}

func (r *Registry) codec(scheme Compression) (Codec, error) {
	c, ok := r.Lookup(scheme)
	if !ok {
		return nil, &CodecError{Kind: CodecUnsupported, Scheme: scheme}
	}
	return c, nil
}

// Compress compresses one chunk with the codec for scheme.
func (r *Registry) Compress(scheme Compression, raw []byte, l ChunkLayout) ([]byte, error) {
	c, err := r.codec(scheme)
	if err != nil {
		return nil, err
	}
	out, err := c.Compress(raw, l)
	if err != nil {
		return nil, &CodecError{Kind: CodecFailed, Scheme: scheme, Err: err}
	}
	return out, nil
}

// Decompress decompresses one chunk and checks that the result holds
// exactly expected bytes.
func (r *Registry) Decompress(scheme Compression, data []byte, expected int, l ChunkLayout) ([]byte, error) {
	c, err := r.codec(scheme)
	if err != nil {
		return nil, err
	}
	out, err := c.Decompress(data, l, expected)
	if err != nil {
		if errors.Is(err, compression.ErrSizeMismatch) {
			return nil, &CodecError{Kind: CodecSizeMismatch, Scheme: scheme, Expected: expected, Actual: len(out), Err: err}
		}
		return nil, &CodecError{Kind: CodecFailed, Scheme: scheme, Err: err}
	}
	if len(out) != expected {
		return nil, &CodecError{Kind: CodecSizeMismatch, Scheme: scheme, Expected: expected, Actual: len(out)}
	}
	return out, nil
}
