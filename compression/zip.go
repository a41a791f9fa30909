package compression

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"

	"github.com/mrjoshuak/go-exredit/internal/interleave"
	"github.com/mrjoshuak/go-exredit/internal/predictor"
)

// ErrZIPCorrupted is returned when the zlib stream cannot be inflated.
var ErrZIPCorrupted = errors.New("compression: corrupted ZIP data")

type deflater struct {
	w   *zlib.Writer
	buf bytes.Buffer
}

var deflaters = sync.Pool{
	New: func() any {
		d := &deflater{}
		d.w, _ = zlib.NewWriterLevel(&d.buf, zlib.DefaultCompression)
		return d
	},
}

// Deflate zlib-compresses src.
func Deflate(src []byte) ([]byte, error) {
	d := deflaters.Get().(*deflater)
	defer deflaters.Put(d)
	d.buf.Reset()
	d.w.Reset(&d.buf)
	if _, err := d.w.Write(src); err != nil {
		return nil, err
	}
	if err := d.w.Close(); err != nil {
		return nil, err
	}
	return bytes.Clone(d.buf.Bytes()), nil
}

// Inflate decompresses a zlib stream that must expand to exactly size bytes.
func Inflate(src []byte, size int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, ErrZIPCorrupted
	}
	defer zr.Close()

	dst := make([]byte, size)
	if _, err := io.ReadFull(zr, dst); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, ErrSizeMismatch
		}
		return nil, ErrZIPCorrupted
	}
	var probe [1]byte
	if n, _ := zr.Read(probe[:]); n > 0 {
		return nil, ErrSizeMismatch
	}
	return dst, nil
}

// ZIPCompress applies the OpenEXR ZIP pipeline used by both ZIPS and ZIP:
// byte split, predictor, zlib.
func ZIPCompress(raw []byte) ([]byte, error) {
	tmp := interleave.Split(nil, raw)
	predictor.Encode(tmp)
	return Deflate(tmp)
}

// ZIPDecompress reverses ZIPCompress.
func ZIPDecompress(data []byte, size int) ([]byte, error) {
	tmp, err := Inflate(data, size)
	if err != nil {
		return nil, err
	}
	predictor.Decode(tmp)
	return interleave.Merge(nil, tmp), nil
}
