package exr

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/go-git/go-billy/v5"
)

var discardLogger = slog.New(slog.DiscardHandler)

// Document is an ordered set of parts and the file they came from.
// A Document is not safe for concurrent mutation.
type Document struct {
	parts []*Part
	fs    billy.Filesystem
	path  string
	dirty bool
}

// NewDocument returns an empty document with no source file.
func NewDocument() *Document {
	return &Document{}
}

// Len returns the number of parts.
func (d *Document) Len() int { return len(d.parts) }

// Parts returns the parts in order.
func (d *Document) Parts() []*Part { return slices.Clone(d.parts) }

// Part returns the part at index i.
func (d *Document) Part(i int) (*Part, error) {
	if i < 0 || i >= len(d.parts) {
		return nil, fmt.Errorf("%w: index %d of %d", ErrNoSuchPart, i, len(d.parts))
	}
	return d.parts[i], nil
}

// PartByName returns the part with the given name attribute, or nil.
func (d *Document) PartByName(name string) *Part {
	for _, p := range d.parts {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// SourcePath returns the file the document was read from or last saved
// to, or "".
func (d *Document) SourcePath() string { return d.path }

// Filesystem returns the filesystem of SourcePath.
func (d *Document) Filesystem() billy.Filesystem { return d.fs }

// Dirty reports whether the document changed since it was read or saved.
func (d *Document) Dirty() bool { return d.dirty }

// MarkDirty flags the document as changed.
func (d *Document) MarkDirty() { d.dirty = true }

// AddPart appends p. Part names must be unique.
func (d *Document) AddPart(p *Part) error {
	if p.doc != nil {
		return fmt.Errorf("exr: part already belongs to a document")
	}
	if name := p.Name(); name != "" && d.PartByName(name) != nil {
		return fmt.Errorf("%w: %q", ErrDuplicatePart, name)
	}
	p.doc = d
	d.parts = append(d.parts, p)
	d.reindex()
	d.dirty = true
	return nil
}

// RemovePart deletes the part at index i.
func (d *Document) RemovePart(i int) error {
	p, err := d.Part(i)
	if err != nil {
		return err
	}
	d.parts = slices.Delete(d.parts, i, i+1)
	p.doc = nil
	d.reindex()
	d.dirty = true
	return nil
}

// MovePart moves the part at index from to index to.
func (d *Document) MovePart(from, to int) error {
	p, err := d.Part(from)
	if err != nil {
		return err
	}
	if to < 0 || to >= len(d.parts) {
		return fmt.Errorf("%w: index %d of %d", ErrNoSuchPart, to, len(d.parts))
	}
	if from == to {
		return nil
	}
	d.parts = slices.Delete(d.parts, from, from+1)
	d.parts = slices.Insert(d.parts, to, p)
	d.reindex()
	d.dirty = true
	return nil
}

func (d *Document) reindex() {
	for i, p := range d.parts {
		p.index = i
	}
}

// Close drops all pixel data. The document cannot be used afterwards.
func (d *Document) Close() error {
	for _, p := range d.parts {
		p.release()
	}
	d.parts = nil
	return nil
}
