package exr

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/mrjoshuak/go-exredit/compression"
)

// geometry maps chunk numbers of a flat (scanline or single level tiled)
// part to pixel rectangles.
type geometry struct {
	dw     Box2i
	tiled  bool
	lines  int // scanlines per chunk
	tw, th int // tile size
	nx, ny int // tiles per row and column
}

func newGeometry(dw Box2i, c Compression, td *TileDescription) geometry {
	g := geometry{dw: dw, lines: c.ScanlinesPerChunk()}
	if td != nil {
		g.tiled = true
		g.tw, g.th = int(td.XSize), int(td.YSize)
		g.nx = (dw.Width() + g.tw - 1) / g.tw
		g.ny = (dw.Height() + g.th - 1) / g.th
	}
	return g
}

func (g geometry) count() int {
	if g.tiled {
		return g.nx * g.ny
	}
	return (g.dw.Height() + g.lines - 1) / g.lines
}

// rect returns the absolute pixel rectangle of chunk i.
func (g geometry) rect(i int) (x0, y0, w, h int) {
	minX, minY := int(g.dw.Min.X), int(g.dw.Min.Y)
	if g.tiled {
		tx, ty := i%g.nx, i/g.nx
		x0, y0 = minX+tx*g.tw, minY+ty*g.th
		return x0, y0, min(g.tw, g.dw.Width()-tx*g.tw), min(g.th, g.dw.Height()-ty*g.th)
	}
	y0 = minY + i*g.lines
	return minX, y0, g.dw.Width(), min(g.lines, int(g.dw.Max.Y)-y0+1)
}

// tile returns the tile coordinates of chunk i.
func (g geometry) tile(i int) (tx, ty int) {
	return i % g.nx, i / g.nx
}

// layout describes chunk i for the codecs. cl must be sorted by name.
func (g geometry) layout(i int, cl ChannelList) ChunkLayout {
	_, y0, w, h := g.rect(i)
	l := ChunkLayout{Y: y0, Lines: h, Channels: make([]compression.ChannelInfo, len(cl))}
	for c, ch := range cl {
		l.Channels[c] = compression.ChannelInfo{
			Name:      ch.Name,
			Type:      int(ch.Type),
			Width:     w / int(ch.XSampling),
			YSampling: int(ch.YSampling),
		}
	}
	return l
}

// hasLine reports whether a channel with vertical sampling ys stores
// absolute line y.
func hasLine(y, ys int) bool {
	return ys <= 1 || y%ys == 0
}

// packChunk gathers the samples of chunk i from bufs in file order.
func (g geometry) packChunk(i int, cl ChannelList, bufs map[string]*Buffer, dst []byte) []byte {
	x0, y0, w, h := g.rect(i)
	dst = dst[:0]
	for y := y0; y < y0+h; y++ {
		for _, ch := range cl {
			xs, ys := int(ch.XSampling), int(ch.YSampling)
			if !hasLine(y, ys) {
				continue
			}
			b := bufs[ch.Name]
			size := b.Type.Size()
			row := b.Row((y - int(g.dw.Min.Y)) / ys)
			sx := (x0 - int(g.dw.Min.X)) / xs
			dst = append(dst, row[sx*size:(sx+w/xs)*size]...)
		}
	}
	return dst
}

// unpackChunk scatters the raw samples of chunk i into bufs.
func (g geometry) unpackChunk(i int, cl ChannelList, bufs map[string]*Buffer, raw []byte) {
	x0, y0, w, h := g.rect(i)
	off := 0
	for y := y0; y < y0+h; y++ {
		for _, ch := range cl {
			xs, ys := int(ch.XSampling), int(ch.YSampling)
			if !hasLine(y, ys) {
				continue
			}
			b := bufs[ch.Name]
			size := b.Type.Size()
			row := b.Row((y - int(g.dw.Min.Y)) / ys)
			sx := (x0 - int(g.dw.Min.X)) / xs
			n := copy(row[sx*size:(sx+w/xs)*size], raw[off:])
			off += n
		}
	}
}

// chunkHead returns the size of the fixed fields that precede the data of
// a chunk of the given part type, excluding the part number.
func chunkHead(t PartType) int {
	switch t {
	case PartTiled:
		return 20
	case PartDeepScanline:
		return 28
	case PartDeepTiled:
		return 40
	}
	return 8
}

// chunkDataSize returns the number of bytes following the fixed fields in
// head.
func chunkDataSize(t PartType, head []byte) int64 {
	le := binary.LittleEndian
	switch t {
	case PartTiled:
		return int64(int32(le.Uint32(head[16:])))
	case PartDeepScanline:
		return int64(le.Uint64(head[4:])) + int64(le.Uint64(head[12:]))
	case PartDeepTiled:
		return int64(le.Uint64(head[16:])) + int64(le.Uint64(head[24:]))
	}
	return int64(int32(le.Uint32(head[4:])))
}

// chunkSource locates the stored chunks of a part inside a file.
type chunkSource struct {
	open      func() (io.ReaderAt, io.Closer, error)
	size      int64
	multipart bool
	part      int
	typ       PartType
	offsets   []uint64
}

// readAt fills buf from off. A full read that ends at EOF succeeds.
func readAt(r io.ReaderAt, buf []byte, off int64) error {
	n, err := r.ReadAt(buf, off)
	if n == len(buf) {
		return nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// readHead reads the part number and fixed fields of chunk i.
func (s *chunkSource) readHead(r io.ReaderAt, i int) (head []byte, data int64, err error) {
	off := int64(s.offsets[i])
	n := chunkHead(s.typ)
	pre := 0
	if s.multipart {
		pre = 4
	}
	if off <= 0 || off+int64(pre+n) > s.size {
		return nil, 0, fmt.Errorf("chunk %d: offset %d outside file", i, off)
	}
	buf := make([]byte, pre+n)
	if err := readAt(r, buf, off); err != nil {
		return nil, 0, fmt.Errorf("chunk %d: %w", i, err)
	}
	if s.multipart {
		if p := int(int32(binary.LittleEndian.Uint32(buf))); p != s.part {
			return nil, 0, fmt.Errorf("chunk %d: belongs to part %d", i, p)
		}
	}
	head = buf[pre:]
	size := chunkDataSize(s.typ, head)
	if size < 0 || off+int64(pre+n)+size > s.size {
		return nil, 0, fmt.Errorf("chunk %d: data size %d exceeds file", i, size)
	}
	return head, off + int64(pre+n), nil
}

// raw returns chunk i without its part number: fixed fields followed by
// the stored data.
func (s *chunkSource) raw(r io.ReaderAt, i int) ([]byte, error) {
	head, pos, err := s.readHead(r, i)
	if err != nil {
		return nil, err
	}
	size := chunkDataSize(s.typ, head)
	out := make([]byte, len(head)+int(size))
	copy(out, head)
	if err := readAt(r, out[len(head):], pos); err != nil {
		return nil, fmt.Errorf("chunk %d: %w", i, err)
	}
	return out, nil
}

// data reads the stored data of chunk i of a flat part into a pooled
// buffer after checking that the chunk covers the expected area.
func (s *chunkSource) data(r io.ReaderAt, i int, g geometry) ([]byte, error) {
	head, pos, err := s.readHead(r, i)
	if err != nil {
		return nil, err
	}
	le := binary.LittleEndian
	if g.tiled {
		tx, ty := g.tile(i)
		got := [4]int32{int32(le.Uint32(head)), int32(le.Uint32(head[4:])), int32(le.Uint32(head[8:])), int32(le.Uint32(head[12:]))}
		if got != [4]int32{int32(tx), int32(ty), 0, 0} {
			return nil, fmt.Errorf("chunk %d: tile (%d, %d, %d, %d), want (%d, %d, 0, 0)", i, got[0], got[1], got[2], got[3], tx, ty)
		}
	} else {
		_, y0, _, _ := g.rect(i)
		if y := int(int32(le.Uint32(head))); y != y0 {
			return nil, fmt.Errorf("chunk %d: starts at line %d, want %d", i, y, y0)
		}
	}
	buf := chunkBuffers.get(int(chunkDataSize(s.typ, head)))
	if err := readAt(r, buf, pos); err != nil {
		chunkBuffers.put(buf)
		return nil, fmt.Errorf("chunk %d: %w", i, err)
	}
	return buf, nil
}
