package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/scott-cotton/cli"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/mrjoshuak/go-exredit/exrutil"
	"github.com/mrjoshuak/go-exredit/session"
)

func (cfg *DiffConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: diff needs two files", cli.ErrUsage)
	}
	a, err := cfg.open(args[0])
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	defer a.Close()
	b, err := cfg.open(args[1])
	if err != nil {
		return fmt.Errorf("%s: %w", args[1], err)
	}
	defer b.Close()
	differs, err := diffSessions(cc.Out, a, b, !cfg.NoPixels, exrutil.CompareOptions{Tolerance: cfg.Tolerance})
	if err != nil {
		return err
	}
	if differs {
		return cli.ExitCodeErr(1)
	}
	return nil
}

// headerText renders a part's attributes one per line for diffing.
func headerText(s *session.Session, part int) (string, error) {
	attrs, err := s.GetAttributes(part)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, a := range attrs {
		fmt.Fprintf(&b, "%s %s %s\n", a.Name, a.Type, a.Text)
	}
	return b.String(), nil
}

// lineDiff returns the changed lines of two texts, prefixed with - and +.
func lineDiff(from, to string) []string {
	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(from, to)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)
	var out []string
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		default:
			continue
		}
		for _, l := range strings.SplitAfter(d.Text, "\n") {
			if l != "" {
				out = append(out, prefix+strings.TrimSuffix(l, "\n"))
			}
		}
	}
	return out
}

func diffSessions(w io.Writer, a, b *session.Session, pixels bool, opts exrutil.CompareOptions) (bool, error) {
	pa, pb := a.ListParts(), b.ListParts()
	differs := len(pa) != len(pb)
	if differs {
		fmt.Fprintf(w, "part count: %d != %d\n", len(pa), len(pb))
	}
	for i := range min(len(pa), len(pb)) {
		ta, err := headerText(a, i)
		if err != nil {
			return false, err
		}
		tb, err := headerText(b, i)
		if err != nil {
			return false, err
		}
		lines := lineDiff(ta, tb)
		var notes []string
		if pixels && pa[i].Readable && pb[i].Readable {
			da, _ := a.Document().Part(i)
			db, _ := b.Document().Part(i)
			diffs, err := exrutil.ComparePixels(da, db, opts)
			if err != nil {
				notes = append(notes, err.Error())
			}
			for _, d := range diffs {
				notes = append(notes, d.String())
			}
		}
		if len(lines) == 0 && len(notes) == 0 {
			continue
		}
		differs = true
		headColor.Fprintf(w, "part %d\n", i)
		for _, l := range lines {
			c := addColor
			if strings.HasPrefix(l, "-") {
				c = badColor
			}
			c.Fprintln(w, l)
		}
		for _, n := range notes {
			warnColor.Fprintln(w, n)
		}
	}
	return differs, nil
}
