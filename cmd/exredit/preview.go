package main

import (
	"fmt"
	"image"
	"image/png"

	"github.com/scott-cotton/cli"

	"github.com/mrjoshuak/go-exredit/session"
	"github.com/mrjoshuak/go-exredit/thumbnail"
)

func (cfg *PreviewConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 1 || cfg.Out == "" {
		return fmt.Errorf("%w: preview needs one file and -o", cli.ErrUsage)
	}
	params := cfg.params()
	var img image.Image
	if cfg.Size > 0 {
		c, err := thumbnail.New(thumbnail.Options{MaxSize: cfg.Size, Logger: cfg.logger})
		if err != nil {
			return err
		}
		img, err = c.Get(cfg.ctx, cfg.fs, abs(args[0]), thumbnail.Request{Part: cfg.Part, Selection: cfg.Selection, Params: params})
		if err != nil {
			return err
		}
	} else {
		s, err := cfg.open(args[0])
		if err != nil {
			return err
		}
		defer s.Close()
		sel := cfg.Selection
		if sel == "" {
			layers, err := s.Layers(cfg.Part)
			if err != nil {
				return err
			}
			if len(layers) == 0 {
				return fmt.Errorf("part %d has no channels", cfg.Part)
			}
			sel = layers[0].Label()
		}
		if img, err = s.GetPreview(cfg.Part, sel, params); err != nil {
			return err
		}
	}
	f, err := cfg.fs.Create(abs(cfg.Out))
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	b := img.Bounds()
	fmt.Fprintf(cc.Out, "wrote %s (%dx%d)\n", cfg.Out, b.Dx(), b.Dy())
	return nil
}

// params merges the flags over the configured adjustments. Negative
// gamma and contrast mean unset.
func (cfg *PreviewConfig) params() session.PreviewParams {
	p := cfg.cfg.PreviewParams()
	if cfg.Exposure != 0 {
		p.Exposure = cfg.Exposure
	}
	if cfg.Gamma >= 0 {
		p.Gamma = cfg.Gamma
	}
	if cfg.Brightness != 0 {
		p.Brightness = cfg.Brightness
	}
	if cfg.Contrast >= 0 {
		p.Contrast = cfg.Contrast
	}
	return p
}
