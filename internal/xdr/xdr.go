// Package xdr reads and writes the little-endian primitives of the OpenEXR
// file format.
//
// Reader decodes from an in-memory slice with bounds checks on every call.
// Writer appends to a growable buffer and supports patching earlier bytes,
// which the container writer uses for offset tables.
package xdr

import (
	"encoding/binary"
	"errors"
	"math"
)

var (
	// ErrShortBuffer is returned when fewer bytes remain than requested.
	ErrShortBuffer = errors.New("xdr: buffer too short")

	// ErrNegativeSize is returned for negative lengths.
	ErrNegativeSize = errors.New("xdr: negative size")

	// ErrUnterminated is returned when a string has no null terminator.
	ErrUnterminated = errors.New("xdr: unterminated string")
)

var le = binary.LittleEndian

// Reader decodes little-endian values from a byte slice.
type Reader struct {
	buf []byte
	off int
}

// NewReader returns a Reader positioned at the start of buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int { return len(r.buf) - r.off }

// Pos returns the read offset.
func (r *Reader) Pos() int { return r.off }

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeSize
	}
	if n > r.Len() {
		return nil, ErrShortBuffer
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

// Skip advances past n bytes.
func (r *Reader) Skip(n int) error {
	_, err := r.take(n)
	return err
}

// ReadByte reads one byte.
func (r *Reader) ReadByte() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadBytes returns a copy of the next n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	b, err := r.take(n)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

// Slice returns the next n bytes without copying.
func (r *Reader) Slice(n int) ([]byte, error) {
	return r.take(n)
}

// ReadUint32 reads a little-endian uint32.
func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return le.Uint32(b), nil
}

// ReadInt32 reads a little-endian int32.
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

// ReadUint64 reads a little-endian uint64.
func (r *Reader) ReadUint64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return le.Uint64(b), nil
}

// ReadFloat32 reads an IEEE 754 single.
func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	return math.Float32frombits(v), err
}

// ReadFloat64 reads an IEEE 754 double.
func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadString reads a null-terminated string, consuming the terminator.
func (r *Reader) ReadString() (string, error) {
	for i := r.off; i < len(r.buf); i++ {
		if r.buf[i] == 0 {
			s := string(r.buf[r.off:i])
			r.off = i + 1
			return s, nil
		}
	}
	return "", ErrUnterminated
}

// Writer appends little-endian values to a growable buffer.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Len returns the number of bytes written.
func (w *Writer) Len() int { return len(w.buf) }

// Bytes returns the written bytes. The slice aliases the Writer.
func (w *Writer) Bytes() []byte { return w.buf }

// Reset discards the content but keeps the capacity.
func (w *Writer) Reset() { w.buf = w.buf[:0] }

// WriteByte appends one byte. It never fails.
func (w *Writer) WriteByte(b byte) error {
	w.buf = append(w.buf, b)
	return nil
}

// WriteBytes appends b.
func (w *Writer) WriteBytes(b []byte) { w.buf = append(w.buf, b...) }

// WriteUint32 appends a little-endian uint32.
func (w *Writer) WriteUint32(v uint32) { w.buf = le.AppendUint32(w.buf, v) }

// WriteInt32 appends a little-endian int32.
func (w *Writer) WriteInt32(v int32) { w.WriteUint32(uint32(v)) }

// WriteUint64 appends a little-endian uint64.
func (w *Writer) WriteUint64(v uint64) { w.buf = le.AppendUint64(w.buf, v) }

// WriteFloat32 appends an IEEE 754 single.
func (w *Writer) WriteFloat32(v float32) { w.WriteUint32(math.Float32bits(v)) }

// WriteFloat64 appends an IEEE 754 double.
func (w *Writer) WriteFloat64(v float64) { w.WriteUint64(math.Float64bits(v)) }

// WriteString appends s followed by a null terminator.
func (w *Writer) WriteString(s string) {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

// PutUint64At overwrites eight bytes at off, which must already be written.
func (w *Writer) PutUint64At(off int, v uint64) error {
	if off < 0 || off+8 > len(w.buf) {
		return ErrShortBuffer
	}
	le.PutUint64(w.buf[off:], v)
	return nil
}
