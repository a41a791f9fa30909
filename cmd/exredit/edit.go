package main

import (
	"context"
	"fmt"
	"io"

	"github.com/scott-cotton/cli"

	"github.com/mrjoshuak/go-exredit/exr"
	"github.com/mrjoshuak/go-exredit/session"
)

func (cfg *SetAttrConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 3 {
		return fmt.Errorf("%w: set-attr needs a file, a name and a value", cli.ErrUsage)
	}
	s, err := cfg.open(args[0])
	if err != nil {
		return err
	}
	defer s.Close()
	if err := setAttr(s, cfg.Part, args[1], exr.AttributeType(cfg.Type), args[2]); err != nil {
		return err
	}
	return save(cfg.ctx, cc.Out, s, cfg.Out, cfg.Force)
}

// setAttr parses text as the attribute's current type, or as t when t is
// given.
func setAttr(s *session.Session, part int, name string, t exr.AttributeType, text string) error {
	if t == "" {
		return s.SetAttributeText(part, name, text)
	}
	v, err := exr.ParseValue(t, text)
	if err != nil {
		return &session.EditError{Kind: session.EditTypeMismatch, Part: part, Attribute: name, Err: err}
	}
	return s.SetAttributeTyped(part, exr.Attribute{Name: name, Type: t, Value: v})
}

func (cfg *CompressConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: compress needs one file", cli.ErrUsage)
	}
	comp, err := exr.ParseCompression(cfg.Compression)
	if err != nil {
		return fmt.Errorf("%w: %w", cli.ErrUsage, err)
	}
	s, err := cfg.open(args[0])
	if err != nil {
		return err
	}
	defer s.Close()
	if err := compress(s, cfg.Part, comp); err != nil {
		return err
	}
	return save(cfg.ctx, cc.Out, s, cfg.Out, cfg.Force)
}

// compress sets comp on one part, or on every readable part when part
// is negative.
func compress(s *session.Session, part int, comp exr.Compression) error {
	if part >= 0 {
		return s.SetCompression(part, comp)
	}
	for _, p := range s.ListParts() {
		if !p.Readable {
			continue
		}
		if err := s.SetCompression(p.Index, comp); err != nil {
			return err
		}
	}
	return nil
}

// save writes to out, or over the opened file when out is empty.
func save(ctx context.Context, w io.Writer, s *session.Session, out string, force bool) error {
	if out != "" {
		out = abs(out)
	}
	if err := s.Save(ctx, out, force); err != nil {
		return err
	}
	fmt.Fprintf(w, "wrote %s\n", s.Path())
	return nil
}
