package exr

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/mrjoshuak/go-exredit/internal/xdr"
)

// DefaultPreviewSize bounds the longest side of an embedded preview.
const DefaultPreviewSize = 128

// maxShortName is the longest attribute or channel name allowed without
// the long names flag.
const maxShortName = 31

// WriteOptions configure Encode and the file writers.
type WriteOptions struct {
	Registry     *Registry
	Logger       *slog.Logger
	EmbedPreview bool
	PreviewSize  int
}

func (o WriteOptions) withDefaults() WriteOptions {
	if o.Registry == nil {
		o.Registry = defaultRegistry
	}
	if o.Logger == nil {
		o.Logger = discardLogger
	}
	if o.PreviewSize <= 0 {
		o.PreviewSize = DefaultPreviewSize
	}
	return o
}

// PartChunks records where the chunks of one part were written.
type PartChunks struct {
	Part    int
	Name    string
	Offsets []uint64
	Preview *Preview // embedded preview, if one was generated
}

type partPlan struct {
	p      *Part
	header *Header
	raw    bool
	geom   geometry
	sorted ChannelList
	count  int
}

// Encode writes doc to w. Offset tables are reserved after the headers and
// patched once every chunk of the file is written, so w must start at
// the beginning of the output.
func Encode(ctx context.Context, w io.WriteSeeker, doc *Document, opts WriteOptions) ([]PartChunks, error) {
	opts = opts.withDefaults()
	plans, flags, err := plan(ctx, doc, opts)
	if err != nil {
		return nil, err
	}
	multipart := flags&FlagMultipart != 0

	start, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, &EncodeError{Kind: EncodeIOFailure, Part: -1, Err: err}
	}
	bw := bufio.NewWriterSize(w, 64<<10)
	cw := &countingWriter{w: bw, n: start}

	hw := xdr.NewWriter(4096)
	hw.WriteUint32(MagicNumber)
	hw.WriteUint32(Version | flags)
	for i, pl := range plans {
		for _, a := range pl.header.Attributes() {
			if err := WriteAttribute(hw, a); err != nil {
				return nil, &EncodeError{Kind: EncodeIOFailure, Part: i, Err: err}
			}
		}
		_ = hw.WriteByte(0)
	}
	if multipart {
		_ = hw.WriteByte(0)
	}
	if _, err := cw.Write(hw.Bytes()); err != nil {
		return nil, &EncodeError{Kind: EncodeIOFailure, Part: -1, Err: err}
	}

	tables := make([]int64, len(plans))
	for i, pl := range plans {
		tables[i] = cw.n
		if _, err := cw.Write(make([]byte, 8*pl.count)); err != nil {
			return nil, &EncodeError{Kind: EncodeIOFailure, Part: i, Err: err}
		}
	}

	out := make([]PartChunks, len(plans))
	for i, pl := range plans {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		started := time.Now()
		var offsets []uint64
		if pl.raw {
			offsets, err = writeRawChunks(ctx, cw, pl, multipart)
		} else {
			offsets, err = writeChunks(ctx, cw, pl, opts.Registry, multipart)
		}
		if err != nil {
			return nil, err
		}
		out[i] = PartChunks{Part: i, Name: pl.header.Name(), Offsets: offsets}
		if opts.EmbedPreview {
			if pv, ok := getAs[Preview](pl.header, AttrPreview); ok {
				out[i].Preview = &pv
			}
		}
		opts.Logger.Debug("wrote part", "part", i, "chunks", len(offsets), "copied", pl.raw, "elapsed", time.Since(started))
	}
	if err := bw.Flush(); err != nil {
		return nil, &EncodeError{Kind: EncodeIOFailure, Part: -1, Err: err}
	}

	end := cw.n
	table := xdr.NewWriter(0)
	for i, pc := range out {
		table.Reset()
		for _, off := range pc.Offsets {
			table.WriteUint64(off)
		}
		if _, err := w.Seek(tables[i], io.SeekStart); err != nil {
			return nil, &EncodeError{Kind: EncodeIOFailure, Part: i, Err: err}
		}
		if _, err := w.Write(table.Bytes()); err != nil {
			return nil, &EncodeError{Kind: EncodeIOFailure, Part: i, Err: err}
		}
	}
	if _, err := w.Seek(end, io.SeekStart); err != nil {
		return nil, &EncodeError{Kind: EncodeIOFailure, Part: -1, Err: err}
	}
	return out, nil
}

// plan checks every part before anything is written and builds the
// headers with their derived attributes.
func plan(ctx context.Context, doc *Document, opts WriteOptions) ([]partPlan, uint32, error) {
	if doc.Len() == 0 {
		return nil, 0, &EncodeError{Kind: EncodeIOFailure, Part: -1, Err: errors.New("document has no parts")}
	}
	multipart := doc.Len() > 1
	var flags uint32
	if multipart {
		flags |= FlagMultipart
	}
	used := make(map[string]bool)
	for _, p := range doc.parts {
		used[p.Name()] = true
	}
	plans := make([]partPlan, doc.Len())
	for i, p := range doc.parts {
		pl := partPlan{p: p, raw: p.rawCopyable(), sorted: p.channels.Sorted()}
		if !pl.raw {
			if !p.loaded {
				if err := p.Load(ctx); err != nil {
					return nil, 0, &EncodeError{Kind: EncodeCodecFailure, Part: i, Err: err}
				}
			}
			if c := p.Compression(); !opts.Registry.Supports(c) {
				return nil, 0, &EncodeError{Kind: EncodeCodecFailure, Part: i, Err: &CodecError{Kind: CodecUnsupported, Scheme: c}}
			}
			pl.geom = p.geometry()
			pl.count = pl.geom.count()
		} else {
			pl.count = len(p.src.offsets)
		}

		h := p.header.Clone()
		h.SetChannels(pl.sorted)
		if multipart || p.typ != PartScanline || h.Has(AttrType) {
			h.SetType(p.typ)
		}
		if multipart || p.typ.IsDeep() || h.Has(AttrChunkCount) {
			h.SetChunkCount(pl.count)
		}
		if multipart && h.Name() == "" {
			h.SetName(uniqueName(used, i))
		}
		if opts.EmbedPreview && p.readable && !p.typ.IsDeep() {
			pv, err := GeneratePreview(p, opts.PreviewSize, opts.PreviewSize)
			if err != nil {
				return nil, 0, &EncodeError{Kind: EncodeCodecFailure, Part: i, Err: err}
			}
			if pv != nil {
				h.set(Attribute{Name: AttrPreview, Type: TypePreview, Value: *pv})
			}
		}

		switch {
		case p.typ.IsDeep():
			flags |= FlagDeep
		case p.typ.IsTiled() && !multipart:
			flags |= FlagTiled
		}
		if hasLongNames(h, pl.sorted) {
			flags |= FlagLongNames
		}
		pl.header = h
		plans[i] = pl
	}
	return plans, flags, nil
}

func uniqueName(used map[string]bool, i int) string {
	name := "part" + strconv.Itoa(i)
	for n := 1; used[name]; n++ {
		name = "part" + strconv.Itoa(i) + "_" + strconv.Itoa(n)
	}
	used[name] = true
	return name
}

func hasLongNames(h *Header, cl ChannelList) bool {
	for _, a := range h.Attributes() {
		if len(a.Name) > maxShortName || len(a.Type) > maxShortName {
			return true
		}
	}
	return slices.ContainsFunc(cl, func(c Channel) bool { return len(c.Name) > maxShortName })
}

// chunkOrder returns chunk numbers in the order they are stored.
func chunkOrder(n int, tiled bool, lo LineOrder) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if !tiled && lo == LineOrderDecreasing {
		slices.Reverse(order)
	}
	return order
}

func writeChunks(ctx context.Context, cw *countingWriter, pl partPlan, reg *Registry, multipart bool) ([]uint64, error) {
	p := pl.p
	comp := p.Compression()
	offsets := make([]uint64, pl.count)
	var scratch []byte
	head := xdr.NewWriter(24)
	for k, i := range chunkOrder(pl.count, pl.geom.tiled, p.header.LineOrder()) {
		if k%16 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		scratch = pl.geom.packChunk(i, pl.sorted, p.buffers, scratch)
		data := scratch
		packed, err := reg.Compress(comp, scratch, pl.geom.layout(i, pl.sorted))
		if err != nil {
			return nil, &EncodeError{Kind: EncodeCodecFailure, Part: p.index, Err: fmt.Errorf("chunk %d: %w", i, err)}
		}
		if len(packed) < len(scratch) {
			data = packed
		}
		head.Reset()
		if multipart {
			head.WriteInt32(int32(p.index))
		}
		if pl.geom.tiled {
			tx, ty := pl.geom.tile(i)
			head.WriteInt32(int32(tx))
			head.WriteInt32(int32(ty))
			head.WriteInt32(0)
			head.WriteInt32(0)
		} else {
			_, y0, _, _ := pl.geom.rect(i)
			head.WriteInt32(int32(y0))
		}
		head.WriteInt32(int32(len(data)))
		offsets[i] = uint64(cw.n)
		if _, err := cw.Write(head.Bytes()); err != nil {
			return nil, &EncodeError{Kind: EncodeIOFailure, Part: p.index, Err: err}
		}
		if _, err := cw.Write(data); err != nil {
			return nil, &EncodeError{Kind: EncodeIOFailure, Part: p.index, Err: err}
		}
	}
	return offsets, nil
}

// writeRawChunks copies stored chunks from the part's source file.
func writeRawChunks(ctx context.Context, cw *countingWriter, pl partPlan, multipart bool) ([]uint64, error) {
	p := pl.p
	r, c, err := p.src.open()
	if err != nil {
		return nil, &EncodeError{Kind: EncodeIOFailure, Part: p.index, Err: err}
	}
	defer c.Close()
	tiled := p.typ.IsTiled()
	offsets := make([]uint64, pl.count)
	var num [4]byte
	binary.LittleEndian.PutUint32(num[:], uint32(p.index))
	for k, i := range chunkOrder(pl.count, tiled, p.header.LineOrder()) {
		if k%16 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		chunk, err := p.src.raw(r, i)
		if err != nil {
			return nil, &EncodeError{Kind: EncodeIOFailure, Part: p.index, Err: err}
		}
		offsets[i] = uint64(cw.n)
		if multipart {
			if _, err := cw.Write(num[:]); err != nil {
				return nil, &EncodeError{Kind: EncodeIOFailure, Part: p.index, Err: err}
			}
		}
		if _, err := cw.Write(chunk); err != nil {
			return nil, &EncodeError{Kind: EncodeIOFailure, Part: p.index, Err: err}
		}
	}
	return offsets, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += int64(n)
	return n, err
}

// WriteFile writes doc to path and makes path the document's source. A
// partially written file is removed on failure. Writing over the current
// source goes through WriteFileAtomic.
func WriteFile(ctx context.Context, fsys billy.Filesystem, path string, doc *Document, opts WriteOptions) error {
	if doc.path != "" && filepath.Clean(doc.path) == filepath.Clean(path) {
		return WriteFileAtomic(ctx, fsys, path, doc, opts)
	}
	opts = opts.withDefaults()
	opts.Logger.Info("saving document", "path", path, "parts", doc.Len())
	f, err := fsys.Create(path)
	if err != nil {
		return &EncodeError{Kind: EncodeIOFailure, Part: -1, Err: err}
	}
	chunks, err := Encode(ctx, f, doc, opts)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = &EncodeError{Kind: EncodeIOFailure, Part: -1, Err: cerr}
	}
	if err != nil {
		_ = fsys.Remove(path)
		return err
	}
	if err := doc.rebind(fsys, path, chunks); err != nil {
		return err
	}
	opts.Logger.Info("saved document", "path", path)
	return nil
}

// WriteFileAtomic writes doc to a temporary file next to path and renames
// it over path, so path is never left partially written.
func WriteFileAtomic(ctx context.Context, fsys billy.Filesystem, path string, doc *Document, opts WriteOptions) error {
	opts = opts.withDefaults()
	opts.Logger.Info("saving document", "path", path, "parts", doc.Len(), "atomic", true)
	tmp, err := util.TempFile(fsys, filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err != nil {
		return &EncodeError{Kind: EncodeIOFailure, Part: -1, Err: err}
	}
	tmpName := tmp.Name()
	chunks, err := Encode(ctx, tmp, doc, opts)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = &EncodeError{Kind: EncodeIOFailure, Part: -1, Err: cerr}
	}
	if err == nil {
		opts.Logger.Debug("renaming temporary file", "from", tmpName, "to", path)
		if rerr := fsys.Rename(tmpName, path); rerr != nil {
			err = &EncodeError{Kind: EncodeIOFailure, Part: -1, Err: rerr}
		}
	}
	if err != nil {
		_ = fsys.Remove(tmpName)
		return err
	}
	if err := doc.rebind(fsys, path, chunks); err != nil {
		return err
	}
	opts.Logger.Info("saved document", "path", path)
	return nil
}

// rebind points every part at the chunks just written to path and clears
// the dirty state.
func (d *Document) rebind(fsys billy.Filesystem, path string, chunks []PartChunks) error {
	fi, err := fsys.Stat(path)
	if err != nil {
		return &EncodeError{Kind: EncodeIOFailure, Part: -1, Err: err}
	}
	open := func() (io.ReaderAt, io.Closer, error) {
		f, err := fsys.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return f, f, nil
	}
	multipart := len(d.parts) > 1
	for i, p := range d.parts {
		if multipart && p.Name() == "" {
			p.header.SetName(chunks[i].Name)
		}
		if pv := chunks[i].Preview; pv != nil {
			p.header.set(Attribute{Name: AttrPreview, Type: TypePreview, Value: *pv})
		}
		p.src = &chunkSource{open: open, size: fi.Size(), multipart: multipart, part: i, typ: p.typ, offsets: chunks[i].Offsets}
		p.sig = p.signature()
		p.dirty = false
	}
	d.fs, d.path, d.dirty = fsys, path, false
	return nil
}
