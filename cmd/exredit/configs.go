package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/fatih/color"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/scott-cotton/cli"

	"github.com/mrjoshuak/go-exredit/session"
)

type MainConfig struct {
	ConfigFile string `cli:"name=config desc='session configuration file (yaml)'"`
	LogLevel   string `cli:"name=logLevel desc='log level: debug, info, warn or error'"`
	NoColor    bool   `cli:"name=noColor desc='disable colored output'"`

	Main *cli.Command

	ctx    context.Context
	fs     billy.Filesystem
	cfg    session.Config
	logger *slog.Logger
}

// setup loads the configuration and builds the logger. Flags override
// the configuration file.
func (cfg *MainConfig) setup() error {
	if cfg.fs == nil {
		cfg.fs = osfs.New("/")
	}
	cfg.cfg = session.DefaultConfig()
	if cfg.ConfigFile != "" {
		c, err := session.LoadConfig(cfg.fs, abs(cfg.ConfigFile))
		if err != nil {
			return err
		}
		cfg.cfg = c
	}
	if cfg.LogLevel != "" {
		cfg.cfg.LogLevel = cfg.LogLevel
	}
	level, err := cfg.cfg.Level()
	if err != nil {
		return fmt.Errorf("%w: %w", cli.ErrUsage, err)
	}
	cfg.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	if cfg.NoColor {
		color.NoColor = true
	}
	return nil
}

func (cfg *MainConfig) open(path string) (*session.Session, error) {
	return session.Open(cfg.ctx, cfg.fs, abs(path), session.Options{Config: &cfg.cfg, Logger: cfg.logger})
}

// abs makes path absolute; the filesystem is rooted at /.
func abs(path string) string {
	p, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return p
}

// floatOpt binds a float flag to *dst.
func floatOpt(name, desc string, dst *float64) *cli.Opt {
	return &cli.Opt{
		Name:        name,
		Description: desc,
		Type: cli.NamedFuncOpt(func(_ *cli.Context, a string) (any, error) {
			v, err := strconv.ParseFloat(a, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: -%s: %w", cli.ErrUsage, name, err)
			}
			*dst = v
			return v, nil
		}, "(number)"),
	}
}

type InfoConfig struct {
	*cli.Command
	*MainConfig
}

type AttrsConfig struct {
	*cli.Command
	*MainConfig
	Part int `cli:"name=part aliases=p desc='part index'"`
}

type SetAttrConfig struct {
	*cli.Command
	*MainConfig
	Part  int    `cli:"name=part aliases=p desc='part index'"`
	Type  string `cli:"name=type aliases=t desc='attribute type, required for new attributes'"`
	Out   string `cli:"name=o desc='output file (default: overwrite the input)'"`
	Force bool   `cli:"name=f aliases=force desc='replace an existing output file'"`
}

type CompressConfig struct {
	*cli.Command
	*MainConfig
	Compression string `cli:"name=c aliases=compression desc='compression scheme (none, rle, zips, zip, pxr24, htj2k256, htj2k32)'"`
	Part        int    `cli:"name=part aliases=p desc='part index, -1 for all parts'"`
	Out         string `cli:"name=o desc='output file (default: overwrite the input)'"`
	Force       bool   `cli:"name=f aliases=force desc='replace an existing output file'"`
}

type PreviewConfig struct {
	*cli.Command
	*MainConfig
	Part      int    `cli:"name=part aliases=p desc='part index'"`
	Selection string `cli:"name=layer aliases=l desc='layer or channel name (default: first layer)'"`
	Size      int    `cli:"name=size desc='longest side of the output in pixels, 0 for full size'"`
	Out       string `cli:"name=o desc='output PNG file'"`

	Exposure, Gamma, Brightness, Contrast float64
}

type DiffConfig struct {
	*cli.Command
	*MainConfig
	NoPixels bool `cli:"name=headers desc='compare headers only'"`

	Tolerance float64
}

type CheckConfig struct {
	*cli.Command
	*MainConfig
	Quiet bool `cli:"name=q aliases=quiet desc='only print errors'"`
	ACES  bool `cli:"name=aces desc='also check ACES container rules'"`
}
