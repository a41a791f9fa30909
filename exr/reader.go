package exr

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-git/go-billy/v5"

	"github.com/mrjoshuak/go-exredit/internal/xdr"
)

// File layout constants.
const (
	MagicNumber = 20000630
	Version     = 2

	FlagTiled     = 0x200
	FlagLongNames = 0x400
	FlagDeep      = 0x800
	FlagMultipart = 0x1000

	knownFlags = FlagTiled | FlagLongNames | FlagDeep | FlagMultipart
)

// DefaultMaxPixelBytes bounds the decoded size of one part.
const DefaultMaxPixelBytes = 2 << 30

// LoadMode selects when pixels are decoded.
type LoadMode int

const (
	// LoadLazy decodes a part on first pixel access.
	LoadLazy LoadMode = iota
	// LoadEager decodes every readable part during Open.
	LoadEager
)

func (m LoadMode) String() string {
	if m == LoadEager {
		return "eager"
	}
	return "lazy"
}

// ReadOptions configure Open and Decode. The zero value reads lazily with
// the built-in codecs.
type ReadOptions struct {
	Mode          LoadMode
	Registry      *Registry
	Logger        *slog.Logger
	MaxPixelBytes int64
}

func (o ReadOptions) withDefaults() ReadOptions {
	if o.Registry == nil {
		o.Registry = defaultRegistry
	}
	if o.Logger == nil {
		o.Logger = discardLogger
	}
	if o.MaxPixelBytes <= 0 {
		o.MaxPixelBytes = DefaultMaxPixelBytes
	}
	return o
}

// Open reads the headers of the file at path. Pixels are decoded now in
// eager mode and on first access in lazy mode, when the file is reopened
// for the fetch.
func Open(ctx context.Context, fsys billy.Filesystem, path string, opts ReadOptions) (*Document, error) {
	fi, err := fsys.Stat(path)
	if err != nil {
		return nil, err
	}
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	open := func() (io.ReaderAt, io.Closer, error) {
		f, err := fsys.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return f, f, nil
	}
	doc, err := decode(ctx, f, fi.Size(), open, opts)
	if err != nil {
		return nil, err
	}
	doc.fs, doc.path = fsys, path
	return doc, nil
}

// Decode reads a document from r. In lazy mode r must stay readable for
// as long as parts may be loaded.
func Decode(ctx context.Context, r io.ReaderAt, size int64, opts ReadOptions) (*Document, error) {
	open := func() (io.ReaderAt, io.Closer, error) { return r, nopCloser{}, nil }
	return decode(ctx, r, size, open, opts)
}

func decode(ctx context.Context, r io.ReaderAt, size int64, open func() (io.ReaderAt, io.Closer, error), opts ReadOptions) (*Document, error) {
	opts = opts.withDefaults()
	headers, flags, pos, err := readHeaders(r, size)
	if err != nil {
		return nil, err
	}
	multipart := flags&FlagMultipart != 0
	doc := NewDocument()
	names := make(map[string]bool)
	for i, h := range headers {
		p, err := newReadPart(i, h, flags, opts)
		if err != nil {
			return nil, err
		}
		if multipart {
			name := h.Name()
			if names[name] {
				return nil, &DecodeError{Kind: DecodeMalformedHeader, Part: i, Attribute: AttrName, Err: ErrDuplicatePart}
			}
			names[name] = true
		}
		n, err := p.expectedChunks()
		if err != nil {
			return nil, &DecodeError{Kind: DecodeMalformedHeader, Part: i, Err: err}
		}
		if int64(n)*8 > size-pos {
			return nil, &DecodeError{Kind: DecodeMalformedHeader, Part: i, Err: fmt.Errorf("offset table of %d entries exceeds file", n)}
		}
		table := make([]byte, 8*n)
		if err := readAt(r, table, pos); err != nil {
			return nil, &DecodeError{Kind: DecodeMalformedHeader, Part: i, Err: err}
		}
		pos += int64(len(table))
		offsets := make([]uint64, n)
		for j := range offsets {
			offsets[j] = binary.LittleEndian.Uint64(table[8*j:])
		}
		p.src = &chunkSource{open: open, size: size, multipart: multipart, part: i, typ: p.typ, offsets: offsets}
		p.sig = p.signature()
		p.doc = doc
		doc.parts = append(doc.parts, p)
		opts.Logger.Debug("parsed part header", "part", i, "name", p.Name(), "type", p.typ,
			"compression", p.Compression(), "channels", len(p.channels))
		if !p.readable {
			opts.Logger.Warn("part is not readable", "part", i, "name", p.Name(), "reason", p.err)
		}
	}
	if opts.Mode == LoadEager {
		for _, p := range doc.parts {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if !p.readable {
				continue
			}
			if err := p.load(ctx, r); err != nil {
				return nil, err
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return doc, nil
}

// readHeaders parses the magic number, version and header blocks,
// reading more of the file until the headers fit. It returns the offset
// of the first offset table.
func readHeaders(r io.ReaderAt, size int64) ([]*Header, uint32, int64, error) {
	n := min(size, 64<<10)
	for {
		buf := make([]byte, n)
		if err := readAt(r, buf, 0); err != nil {
			return nil, 0, 0, decodeErr(DecodeMalformedHeader, -1, err)
		}
		headers, flags, pos, err := parseHeaders(buf)
		if truncated(err) {
			if n < size {
				n = min(size, 4*n)
				continue
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				err = decodeErr(DecodeMalformedHeader, -1, fmt.Errorf("truncated header: %w", err))
			}
		}
		return headers, flags, int64(pos), err
	}
}

// truncated reports whether parsing ran past the end of the buffer.
func truncated(err error) bool {
	return errors.Is(err, xdr.ErrShortBuffer) || errors.Is(err, xdr.ErrUnterminated)
}

func parseHeaders(buf []byte) ([]*Header, uint32, int, error) {
	r := xdr.NewReader(buf)
	magic, err := r.ReadUint32()
	if err != nil || magic != MagicNumber {
		return nil, 0, 0, decodeErr(DecodeBadMagic, -1, fmt.Errorf("magic %#x", magic))
	}
	version, err := r.ReadUint32()
	if err != nil {
		return nil, 0, 0, decodeErr(DecodeUnsupportedVersion, -1, err)
	}
	if version&0xff != Version || version&^(0xff|knownFlags) != 0 {
		return nil, 0, 0, decodeErr(DecodeUnsupportedVersion, -1, fmt.Errorf("version field %#x", version))
	}
	flags := version &^ 0xff
	if flags&FlagMultipart != 0 && flags&FlagTiled != 0 {
		return nil, 0, 0, decodeErr(DecodeUnsupportedVersion, -1, fmt.Errorf("tiled flag set on a multi-part file"))
	}
	var headers []*Header
	for {
		if flags&FlagMultipart != 0 && len(headers) > 0 {
			if r.Len() == 0 {
				return nil, 0, 0, decodeErr(DecodeMalformedHeader, len(headers), xdr.ErrShortBuffer)
			}
			if buf[r.Pos()] == 0 {
				_ = r.Skip(1)
				break
			}
		}
		h, err := parseHeader(r)
		if err != nil {
			if truncated(err) {
				return nil, 0, 0, err
			}
			return nil, 0, 0, &DecodeError{Kind: DecodeMalformedHeader, Part: len(headers), Err: err}
		}
		headers = append(headers, h)
		if flags&FlagMultipart == 0 {
			break
		}
	}
	return headers, flags, r.Pos(), nil
}

func parseHeader(r *xdr.Reader) (*Header, error) {
	h := NewHeader()
	for {
		a, err := ReadAttribute(r)
		if err != nil {
			return nil, err
		}
		if a == nil {
			return h, nil
		}
		h.set(*a)
	}
}

// newReadPart validates header i and builds its part. Problems that only
// prevent pixel access leave the part unreadable instead of failing.
func newReadPart(i int, h *Header, flags uint32, opts ReadOptions) (*Part, error) {
	if missing := h.Missing(); len(missing) > 0 {
		return nil, &DecodeError{Kind: DecodeUnknownRequiredAttribute, Part: i, Attribute: missing[0], Err: ErrMissingRequiredAttribute}
	}
	for _, name := range RequiredAttributes {
		a, _ := h.Get(name)
		if a.Type != requiredTypes[name] {
			return nil, &DecodeError{Kind: DecodeMalformedHeader, Part: i, Attribute: name,
				Err: fmt.Errorf("%w: %s has type %s, want %s", ErrAttributeShape, name, a.Type, requiredTypes[name])}
		}
		if err := a.Validate(); err != nil {
			return nil, &DecodeError{Kind: DecodeMalformedHeader, Part: i, Attribute: name, Err: err}
		}
	}
	multipart := flags&FlagMultipart != 0
	if multipart {
		for _, name := range []string{AttrName, AttrType} {
			if _, ok := getAs[string](h, name); !ok {
				return nil, &DecodeError{Kind: DecodeUnknownRequiredAttribute, Part: i, Attribute: name, Err: ErrMissingRequiredAttribute}
			}
		}
	}
	typ := PartType(h.Type())
	switch {
	case typ == "" && flags&FlagTiled != 0:
		typ = PartTiled
	case typ == "" && flags&FlagDeep != 0:
		return nil, &DecodeError{Kind: DecodeUnknownRequiredAttribute, Part: i, Attribute: AttrType, Err: ErrMissingRequiredAttribute}
	case typ == "":
		typ = PartScanline
	}
	switch typ {
	case PartScanline, PartTiled, PartDeepScanline, PartDeepTiled:
	default:
		return nil, &DecodeError{Kind: DecodeMalformedHeader, Part: i, Attribute: AttrType, Err: fmt.Errorf("unknown part type %q", typ)}
	}
	if _, ok := h.Tiles(); typ.IsTiled() && !ok {
		return nil, &DecodeError{Kind: DecodeUnknownRequiredAttribute, Part: i, Attribute: AttrTiles, Err: ErrMissingRequiredAttribute}
	}
	dw := h.DataWindow()
	if dw.IsEmpty() {
		return nil, &DecodeError{Kind: DecodeMalformedHeader, Part: i, Attribute: AttrDataWindow, Err: fmt.Errorf("empty data window %s", dw)}
	}
	channels := h.Channels()
	if dup := channels.duplicate(); dup != "" {
		return nil, &DecodeError{Kind: DecodeMalformedHeader, Part: i, Attribute: AttrChannels, Err: fmt.Errorf("%w: %q", ErrDuplicateChannel, dup)}
	}
	p := &Part{
		index:    i,
		typ:      typ,
		header:   h,
		channels: channels.Sorted(),
		buffers:  make(map[string]*Buffer),
		readable: true,
		registry: opts.Registry,
		logger:   opts.Logger,
	}
	td, _ := h.Tiles()
	switch {
	case typ.IsDeep():
		p.readable, p.err = false, fmt.Errorf("%w: %s part %d is kept as stored", ErrUnsupportedLayout, typ, i)
		return p, nil
	case typ.IsTiled() && td.Mode != LevelOne:
		p.readable, p.err = false, fmt.Errorf("%w: %s tiles in part %d are kept as stored", ErrUnsupportedLayout, td, i)
		return p, nil
	}
	var bytes int64
	for _, ch := range channels {
		if err := ch.Validate(dw); err != nil {
			return nil, &DecodeError{Kind: DecodeMalformedHeader, Part: i, Attribute: AttrChannels, Err: err}
		}
		if typ.IsTiled() && ch.Subsampled() {
			return nil, &DecodeError{Kind: DecodeMalformedHeader, Part: i, Attribute: AttrChannels,
				Err: fmt.Errorf("%w: tiled channel %s is subsampled", ErrBadSampling, ch.Name)}
		}
		w, h := ch.sampleSize(dw)
		bytes += int64(w) * int64(h) * int64(ch.Type.Size())
	}
	if bytes > opts.MaxPixelBytes {
		return nil, &DecodeError{Kind: DecodeMalformedHeader, Part: i, Attribute: AttrDataWindow,
			Err: &MemoryLimitExceededError{Requested: bytes, Limit: opts.MaxPixelBytes}}
	}
	if c := h.Compression(); !opts.Registry.Supports(c) {
		p.readable, p.err = false, &CodecError{Kind: CodecUnsupported, Scheme: c}
	}
	return p, nil
}

// expectedChunks returns the length of the part's offset table.
func (p *Part) expectedChunks() (int, error) {
	n, hasCount := p.header.ChunkCount()
	if hasCount && n < 0 {
		return 0, fmt.Errorf("negative chunkCount %d", n)
	}
	var computed int
	switch {
	case p.typ.IsTiled():
		td, _ := p.header.Tiles()
		c, err := tiledChunkCount(p.DataWindow(), td)
		if err != nil {
			return 0, err
		}
		computed = c
	default:
		computed = p.geometry().count()
	}
	if hasCount && n != computed {
		return 0, fmt.Errorf("chunkCount %d, layout needs %d", n, computed)
	}
	return computed, nil
}
