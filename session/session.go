// Package session mediates every change to an open OpenEXR document so
// that dirty tracking, validation and saving stay consistent.
//
// A Session is not safe for concurrent use. Callers that keep an
// interactive surface responsive run Open and Save on a worker goroutine
// and hand the session back when they return.
package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"path/filepath"

	"github.com/go-git/go-billy/v5"

	"github.com/mrjoshuak/go-exredit/exr"
)

// Options configures a session. The zero value uses DefaultConfig, the
// default codec registry and no logging.
type Options struct {
	Config   *Config
	Logger   *slog.Logger
	Registry *exr.Registry
}

// Session owns one document.
type Session struct {
	fs       billy.Filesystem
	doc      *exr.Document
	cfg      Config
	logger   *slog.Logger
	registry *exr.Registry
}

func newSession(fsys billy.Filesystem, opts Options) *Session {
	s := &Session{fs: fsys, cfg: DefaultConfig(), logger: opts.Logger, registry: opts.Registry}
	if opts.Config != nil {
		s.cfg = *opts.Config
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// Open reads path and starts a session over it. Unreadable parts do not
// fail the open; they are reported by ListParts.
func Open(ctx context.Context, fsys billy.Filesystem, path string, opts Options) (*Session, error) {
	s := newSession(fsys, opts)
	mode, err := s.cfg.Mode()
	if err != nil {
		return nil, err
	}
	s.logger.Info("opening document", "path", path, "mode", mode)
	doc, err := exr.Open(ctx, fsys, path, exr.ReadOptions{Mode: mode, Registry: s.registry, Logger: s.logger})
	if err != nil {
		return nil, err
	}
	s.doc = doc
	for _, p := range doc.Parts() {
		if !p.Readable() {
			s.logger.Warn("part is not readable", "part", p.Index(), "name", p.Name(), "reason", p.Err())
		}
	}
	return s, nil
}

// New starts a session over an empty document with no path.
func New(fsys billy.Filesystem, opts Options) *Session {
	s := newSession(fsys, opts)
	s.doc = exr.NewDocument()
	return s
}

// Document returns the edited document. Mutating it directly bypasses
// the session's checks.
func (s *Session) Document() *exr.Document { return s.doc }

// Config returns the session settings.
func (s *Session) Config() Config { return s.cfg }

// Dirty reports whether the document changed since it was opened or
// last saved.
func (s *Session) Dirty() bool { return s.doc.Dirty() }

// Path returns the file the document is bound to, or "".
func (s *Session) Path() string { return s.doc.SourcePath() }

// Close releases the document.
func (s *Session) Close() error { return s.doc.Close() }

func (s *Session) part(i int) (*exr.Part, error) {
	p, err := s.doc.Part(i)
	if err != nil {
		return nil, classify(err, i, "", "")
	}
	return p, nil
}

// SetPixelValue stores v at pixel (x, y) of a channel, in data window
// coordinates. Loads the part if needed.
func (s *Session) SetPixelValue(part int, channel string, x, y int, v float64) error {
	p, err := s.part(part)
	if err != nil {
		return err
	}
	if _, ok := p.Channel(channel); !ok {
		return classify(fmt.Errorf("%w: %q", exr.ErrNoSuchChannel, channel), part, channel, "")
	}
	return classify(p.SetSample(channel, x, y, v), part, channel, "")
}

// SetAttribute changes an existing attribute. The value must match the
// attribute's type; ints and floats are converted to the attribute's
// numeric width and strings are parsed for non-string types.
func (s *Session) SetAttribute(part int, name string, value any) error {
	p, err := s.part(part)
	if err != nil {
		return err
	}
	old, ok := p.Attribute(name)
	if !ok {
		return classify(fmt.Errorf("%w: %s", ErrUntyped, name), part, "", name)
	}
	v, err := coerce(old, value)
	if err != nil {
		return classify(err, part, "", name)
	}
	return classify(p.SetAttribute(exr.Attribute{Name: name, Type: old.Type, Value: v}), part, "", name)
}

// SetAttributeTyped sets an attribute with an explicit type. It is the
// only way to create a custom attribute.
func (s *Session) SetAttributeTyped(part int, a exr.Attribute) error {
	p, err := s.part(part)
	if err != nil {
		return err
	}
	return classify(p.SetAttribute(a), part, "", a.Name)
}

// SetAttributeText parses text as a value of the attribute's current type
// and stores it.
func (s *Session) SetAttributeText(part int, name, text string) error {
	p, err := s.part(part)
	if err != nil {
		return err
	}
	old, ok := p.Attribute(name)
	if !ok {
		return classify(fmt.Errorf("%w: %s", ErrUntyped, name), part, "", name)
	}
	v, err := exr.ParseValue(old.Type, text)
	if err != nil {
		return classify(err, part, "", name)
	}
	return classify(p.SetAttribute(exr.Attribute{Name: name, Type: old.Type, Value: v}), part, "", name)
}

// RemoveAttribute deletes an optional attribute.
func (s *Session) RemoveAttribute(part int, name string) error {
	p, err := s.part(part)
	if err != nil {
		return err
	}
	ok, err := p.RemoveAttribute(name)
	if err != nil {
		return classify(err, part, "", name)
	}
	if !ok {
		return classify(ErrNoAttribute, part, "", name)
	}
	return nil
}

func coerce(old exr.Attribute, value any) (any, error) {
	if (exr.Attribute{Name: old.Name, Type: old.Type, Value: value}).Validate() == nil {
		return value, nil
	}
	mismatch := fmt.Errorf("%w: %s is %s, value is %T", exr.ErrTypeMismatch, old.Name, old.Type, value)
	switch v := value.(type) {
	case string:
		return exr.ParseValue(old.Type, v)
	case int:
		switch old.Type {
		case exr.TypeInt:
			if v < math.MinInt32 || v > math.MaxInt32 {
				return nil, fmt.Errorf("%w: %d overflows int", exr.ErrOutOfBounds, v)
			}
			return int32(v), nil
		case exr.TypeFloat:
			return float32(v), nil
		case exr.TypeDouble:
			return float64(v), nil
		}
	case float64:
		if old.Type == exr.TypeFloat {
			return float32(v), nil
		}
	case float32:
		if old.Type == exr.TypeDouble {
			return float64(v), nil
		}
	}
	return nil, mismatch
}

// AddChannel appends a channel to a part, filled with fill.
func (s *Session) AddChannel(part int, ch exr.Channel, fill float64) error {
	p, err := s.part(part)
	if err != nil {
		return err
	}
	return classify(p.AddChannel(ch, fill), part, ch.Name, "")
}

// RemoveChannel deletes a channel. Removing the last full resolution
// channel while subsampled channels remain needs a replacement data
// window, which is then applied to the remaining channels.
func (s *Session) RemoveChannel(part int, name string, window *exr.Box2i) error {
	p, err := s.part(part)
	if err != nil {
		return err
	}
	ch, ok := p.Channel(name)
	if !ok {
		return classify(fmt.Errorf("%w: %q", exr.ErrNoSuchChannel, name), part, name, "")
	}
	var rest []exr.Channel
	full := false
	for _, c := range p.Channels() {
		if c.Name == name {
			continue
		}
		rest = append(rest, c)
		full = full || !c.Subsampled()
	}
	if window == nil && !ch.Subsampled() && !full && len(rest) > 0 {
		return &EditError{Kind: EditIncompleteState, Part: part, Channel: name,
			Err: errors.New("removing the last full resolution channel needs a replacement data window")}
	}
	if window != nil {
		if window.IsEmpty() {
			return classify(fmt.Errorf("%w: empty data window %s", exr.ErrOutOfBounds, *window), part, name, "")
		}
		for _, c := range rest {
			if err := c.Validate(*window); err != nil {
				return classify(err, part, c.Name, "")
			}
		}
	}
	if err := p.RemoveChannel(name); err != nil {
		return classify(err, part, name, "")
	}
	if window != nil {
		if err := p.SetDataWindow(*window); err != nil {
			return classify(err, part, name, exr.AttrDataWindow)
		}
	}
	return nil
}

// SetCompression selects the scheme used for the part on the next save.
func (s *Session) SetCompression(part int, c exr.Compression) error {
	p, err := s.part(part)
	if err != nil {
		return err
	}
	return classify(p.SetCompression(c), part, "", exr.AttrCompression)
}

// DefaultPartSpec returns a scanline spec over dw using the configured
// compression.
func (s *Session) DefaultPartSpec(dw exr.Box2i, channels ...exr.Channel) exr.PartSpec {
	comp, _ := s.cfg.DefaultCompression()
	return exr.PartSpec{Type: exr.PartScanline, DataWindow: dw, Compression: comp, Channels: channels}
}

// AddPart appends a new zero filled part and returns its index.
func (s *Session) AddPart(name string, spec exr.PartSpec) (int, error) {
	i := s.doc.Len()
	p, err := exr.NewPart(name, spec)
	if err != nil {
		return -1, classify(err, i, "", "")
	}
	if err := s.doc.AddPart(p); err != nil {
		return -1, classify(err, i, "", exr.AttrName)
	}
	return p.Index(), nil
}

// RemovePart deletes a part.
func (s *Session) RemovePart(part int) error {
	return classify(s.doc.RemovePart(part), part, "", "")
}

// MovePart reorders the parts.
func (s *Session) MovePart(from, to int) error {
	return classify(s.doc.MovePart(from, to), from, "", "")
}

// PartSummary describes a part for navigation.
type PartSummary struct {
	Index         int
	Name          string
	Type          exr.PartType
	DataWindow    exr.Box2i
	DisplayWindow exr.Box2i
	Compression   exr.Compression
	Channels      []string
	Layers        []string
	Readable      bool
	Loaded        bool
	Err           error // why the part is unreadable
}

// ListParts summarizes every part without decoding pixels.
func (s *Session) ListParts() []PartSummary {
	parts := s.doc.Parts()
	out := make([]PartSummary, 0, len(parts))
	for _, p := range parts {
		sum := PartSummary{
			Index:         p.Index(),
			Name:          p.Name(),
			Type:          p.Type(),
			DataWindow:    p.DataWindow(),
			DisplayWindow: p.DisplayWindow(),
			Compression:   p.Compression(),
			Channels:      p.Channels().Names(),
			Readable:      p.Readable(),
			Loaded:        p.Loaded(),
		}
		if !sum.Readable {
			sum.Err = p.Err()
		}
		for _, l := range p.Layers() {
			sum.Layers = append(sum.Layers, l.Label())
		}
		out = append(out, sum)
	}
	return out
}

// AttributeView is one row of a part's metadata.
type AttributeView struct {
	Name     string
	Type     exr.AttributeType
	Value    any
	Text     string
	Required bool // cannot be removed
	ReadOnly bool // derived from part state
}

// GetAttributes returns the header of a part in file order.
func (s *Session) GetAttributes(part int) ([]AttributeView, error) {
	p, err := s.part(part)
	if err != nil {
		return nil, err
	}
	attrs := p.Header().Attributes()
	out := make([]AttributeView, len(attrs))
	for i, a := range attrs {
		out[i] = AttributeView{
			Name:     a.Name,
			Type:     a.Type,
			Value:    a.Value,
			Text:     exr.FormatValue(a),
			Required: exr.IsRequired(a.Name),
			ReadOnly: exr.IsDerived(a.Name),
		}
	}
	return out, nil
}

// Layers returns the layers derived from a part's channel names.
func (s *Session) Layers(part int) ([]exr.Layer, error) {
	p, err := s.part(part)
	if err != nil {
		return nil, err
	}
	return p.Layers(), nil
}

// Save writes the document. An empty path saves over the current file.
// Saving to an existing file requires overwrite. The original file is
// never left partially written, and the document only binds to path once
// the write succeeded.
func (s *Session) Save(ctx context.Context, path string, overwrite bool) error {
	if path == "" {
		path = s.doc.SourcePath()
		if path == "" {
			return ErrNoPath
		}
		overwrite = true
	}
	exists := false
	if _, err := s.fs.Stat(path); err == nil {
		exists = true
	} else if !errors.Is(err, fs.ErrNotExist) {
		return &exr.EncodeError{Kind: exr.EncodeIOFailure, Part: -1, Err: err}
	}
	if exists && !overwrite {
		return fmt.Errorf("%w: %s", ErrExists, path)
	}
	opts := exr.WriteOptions{Registry: s.registry, Logger: s.logger, EmbedPreview: s.cfg.EmbedPreview}
	if exists {
		return exr.WriteFileAtomic(ctx, s.fs, path, s.doc, opts)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return &exr.EncodeError{Kind: exr.EncodeIOFailure, Part: -1, Err: err}
		}
	}
	return exr.WriteFile(ctx, s.fs, path, s.doc, opts)
}
