package exrutil

import (
	"context"
	"fmt"

	"github.com/go-git/go-billy/v5"

	"github.com/mrjoshuak/go-exredit/exr"
)

// Thresholds above which ValidateFile warns.
const (
	LargeDimension    = 32768
	LargeChannelCount = 100
)

// Problem is a validation finding. Part is -1 for file level findings.
type Problem struct {
	Part    int
	Message string
}

func (p Problem) String() string {
	if p.Part < 0 {
		return p.Message
	}
	return fmt.Sprintf("part %d: %s", p.Part, p.Message)
}

// ValidationResult collects the findings of ValidateFile.
type ValidationResult struct {
	Errors   []Problem
	Warnings []Problem
}

// Valid reports whether no errors were found.
func (r *ValidationResult) Valid() bool { return len(r.Errors) == 0 }

func (r *ValidationResult) errorf(part int, format string, args ...any) {
	r.Errors = append(r.Errors, Problem{Part: part, Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResult) warnf(part int, format string, args ...any) {
	r.Warnings = append(r.Warnings, Problem{Part: part, Message: fmt.Sprintf(format, args...)})
}

// ValidateFile opens path and decodes every readable part. Problems with
// the file are reported in the result; the error is reserved for
// cancellation and for a file that cannot be accessed at all.
func ValidateFile(ctx context.Context, fsys billy.Filesystem, path string, opts exr.ReadOptions) (*ValidationResult, error) {
	res := &ValidationResult{}
	if _, err := fsys.Stat(path); err != nil {
		return nil, err
	}
	opts.Mode = exr.LoadLazy
	doc, err := exr.Open(ctx, fsys, path, opts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		res.errorf(-1, "cannot open: %v", err)
		return res, nil
	}
	defer doc.Close()
	for _, p := range doc.Parts() {
		i := p.Index()
		if !p.Readable() {
			res.warnf(i, "pixels kept as stored: %v", p.Err())
			continue
		}
		dw := p.DataWindow()
		if dw.Width() > LargeDimension || dw.Height() > LargeDimension {
			res.warnf(i, "very large data window %s", dw)
		}
		if n := len(p.Channels()); n == 0 {
			res.warnf(i, "no channels")
		} else if n > LargeChannelCount {
			res.warnf(i, "%d channels", n)
		}
		if !p.DisplayWindow().Contains(int(dw.Min.X), int(dw.Min.Y)) || !p.DisplayWindow().Contains(int(dw.Max.X), int(dw.Max.Y)) {
			res.warnf(i, "data window %s extends outside display window %s", dw, p.DisplayWindow())
		}
		if err := p.Load(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			res.errorf(i, "cannot decode pixels: %v", err)
		}
	}
	return res, nil
}
