package main

import (
	"fmt"
	"io"

	"github.com/scott-cotton/cli"

	"github.com/mrjoshuak/go-exredit/exr"
	"github.com/mrjoshuak/go-exredit/exrmeta"
	"github.com/mrjoshuak/go-exredit/exrutil"
)

func (cfg *CheckConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: check needs at least one file", cli.ErrUsage)
	}
	valid := 0
	for _, path := range args {
		res, err := exrutil.ValidateFile(cfg.ctx, cfg.fs, abs(path), exr.ReadOptions{Logger: cfg.logger})
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if cfg.ACES && res.Valid() {
			if err := cfg.checkACES(path, res); err != nil {
				return err
			}
		}
		if res.Valid() {
			valid++
		}
		writeResult(cc.Out, path, res, cfg.Quiet)
	}
	if len(args) > 1 && !cfg.Quiet {
		fmt.Fprintf(cc.Out, "\nSummary: %d of %d files valid\n", valid, len(args))
	}
	if valid != len(args) {
		return cli.ExitCodeErr(1)
	}
	return nil
}

// checkACES adds one error per part that breaks the ACES container rules.
func (cfg *CheckConfig) checkACES(path string, res *exrutil.ValidationResult) error {
	s, err := cfg.open(path)
	if err != nil {
		return err
	}
	defer s.Close()
	for _, p := range s.Document().Parts() {
		if err := exrmeta.CheckACES(p); err != nil {
			res.Errors = append(res.Errors, exrutil.Problem{Part: p.Index(), Message: err.Error()})
		}
	}
	return nil
}

func writeResult(w io.Writer, path string, res *exrutil.ValidationResult, quiet bool) {
	if res.Valid() {
		if !quiet {
			fmt.Fprintf(w, "%s: ", path)
			addColor.Fprintln(w, "OK")
		}
	} else {
		fmt.Fprintf(w, "%s: ", path)
		badColor.Fprintln(w, "INVALID")
	}
	for _, p := range res.Errors {
		badColor.Fprintf(w, "  [ERROR] %s\n", p)
	}
	if quiet {
		return
	}
	for _, p := range res.Warnings {
		warnColor.Fprintf(w, "  [WARNING] %s\n", p)
	}
}
