package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/scott-cotton/cli"

	"github.com/mrjoshuak/go-exredit/exrutil"
	"github.com/mrjoshuak/go-exredit/session"
)

var (
	headColor = color.New(color.Bold)
	nameColor = color.New(color.FgCyan)
	badColor  = color.New(color.FgRed)
	warnColor = color.New(color.FgYellow)
	addColor  = color.New(color.FgGreen)
)

func (cfg *InfoConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: info needs at least one file", cli.ErrUsage)
	}
	for _, path := range args {
		info, err := exrutil.GetFileInfo(cfg.ctx, cfg.fs, abs(path))
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		info.Path = path
		writeInfo(cc.Out, info)
	}
	return nil
}

func writeInfo(w io.Writer, info *exrutil.FileInfo) {
	kind := "single-part"
	if info.Multipart {
		kind = "multi-part"
	}
	headColor.Fprintf(w, "%s", info.Path)
	fmt.Fprintf(w, " (%d bytes, %s, %d parts)\n", info.FileSize, kind, len(info.Parts))
	for _, p := range info.Parts {
		fmt.Fprintf(w, "  part %d", p.Index)
		if p.Name != "" {
			fmt.Fprint(w, " ")
			nameColor.Fprintf(w, "%q", p.Name)
		}
		fmt.Fprintf(w, ": %s %dx%d %s, %s\n", p.Type, p.Width, p.Height, p.DataWindow, p.Compression)
		if p.View != "" {
			fmt.Fprintf(w, "    view: %s\n", p.View)
		}
		if p.Tiles != nil {
			fmt.Fprintf(w, "    tiles: %s\n", p.Tiles)
		}
		fmt.Fprintf(w, "    channels: %s\n", strings.Join(p.Channels, ", "))
		fmt.Fprintf(w, "    layers: %s\n", strings.Join(p.Layers, ", "))
		if len(p.Cryptomattes) > 0 {
			fmt.Fprintf(w, "    cryptomatte: %s\n", strings.Join(p.Cryptomattes, ", "))
		}
		if p.HasPreview {
			fmt.Fprintln(w, "    preview: yes")
		}
		if !p.Readable {
			badColor.Fprintf(w, "    unreadable: %s\n", p.Reason)
		}
	}
}

func (cfg *AttrsConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: attrs needs one file", cli.ErrUsage)
	}
	s, err := cfg.open(args[0])
	if err != nil {
		return err
	}
	defer s.Close()
	attrs, err := s.GetAttributes(cfg.Part)
	if err != nil {
		return err
	}
	writeAttrs(cc.Out, attrs)
	return nil
}

func writeAttrs(w io.Writer, attrs []session.AttributeView) {
	width := 0
	for _, a := range attrs {
		width = max(width, len(a.Name))
	}
	for _, a := range attrs {
		c := nameColor
		if a.ReadOnly {
			c = headColor
		}
		c.Fprintf(w, "%-*s", width, a.Name)
		fmt.Fprintf(w, "  %-16s %s\n", a.Type, a.Text)
	}
}
