package session

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/goccy/go-yaml"

	"github.com/mrjoshuak/go-exredit/exr"
)

// Config holds the user settings of an editing session.
type Config struct {
	LoadMode           string  `yaml:"loadMode"`
	Exposure           float64 `yaml:"exposure"`
	Gamma              float64 `yaml:"gamma"`
	Brightness         float64 `yaml:"brightness"`
	Contrast           float64 `yaml:"contrast"`
	ThumbnailCacheSize int     `yaml:"thumbnailCacheSize"`
	ThumbnailMaxSize   int     `yaml:"thumbnailMaxSize"`
	LogLevel           string  `yaml:"logLevel"`
	Compression        string  `yaml:"compression"`
	EmbedPreview       bool    `yaml:"embedPreview"`
}

// Adjustment ranges.
const (
	MinExposure   = -5.0
	MaxExposure   = 5.0
	MinGamma      = 0.5
	MaxGamma      = 5.0
	MinBrightness = -1.0
	MaxBrightness = 1.0
	MinContrast   = 0.0
	MaxContrast   = 3.0
)

// DefaultConfig returns the settings used when no file is given.
func DefaultConfig() Config {
	return Config{
		LoadMode:           "lazy",
		Gamma:              2.2,
		Contrast:           1,
		ThumbnailCacheSize: 64,
		ThumbnailMaxSize:   256,
		LogLevel:           "info",
		Compression:        "zip",
	}
}

// LoadConfig reads a YAML file over the defaults. Unknown keys are
// rejected.
func LoadConfig(fsys billy.Filesystem, path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := util.ReadFile(fsys, path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.UnmarshalWithOptions(data, &cfg, yaml.Strict()); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Marshal renders the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate reports every out-of-range or unknown setting.
func (c Config) Validate() error {
	var errs []error
	if _, err := c.Mode(); err != nil {
		errs = append(errs, err)
	}
	check := func(name string, v, lo, hi float64) {
		if v < lo || v > hi {
			errs = append(errs, fmt.Errorf("%s %g outside [%g, %g]", name, v, lo, hi))
		}
	}
	check("exposure", c.Exposure, MinExposure, MaxExposure)
	check("gamma", c.Gamma, MinGamma, MaxGamma)
	check("brightness", c.Brightness, MinBrightness, MaxBrightness)
	check("contrast", c.Contrast, MinContrast, MaxContrast)
	if c.ThumbnailCacheSize < 0 {
		errs = append(errs, fmt.Errorf("thumbnailCacheSize %d is negative", c.ThumbnailCacheSize))
	}
	if c.ThumbnailMaxSize < 1 {
		errs = append(errs, fmt.Errorf("thumbnailMaxSize %d must be positive", c.ThumbnailMaxSize))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.DefaultCompression(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Mode returns the configured load mode.
func (c Config) Mode() (exr.LoadMode, error) {
	switch strings.ToLower(c.LoadMode) {
	case "", "lazy":
		return exr.LoadLazy, nil
	case "eager":
		return exr.LoadEager, nil
	}
	return exr.LoadLazy, fmt.Errorf("loadMode %q is not lazy or eager", c.LoadMode)
}

// Level returns the configured log level.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("logLevel: %w", err)
	}
	return l, nil
}

// DefaultCompression returns the compression given to new parts.
func (c Config) DefaultCompression() (exr.Compression, error) {
	if c.Compression == "" {
		return exr.CompressionZIP, nil
	}
	comp, err := exr.ParseCompression(c.Compression)
	if err != nil {
		return exr.CompressionZIP, fmt.Errorf("compression: %w", err)
	}
	return comp, nil
}

// PreviewParams returns the configured display adjustments.
func (c Config) PreviewParams() PreviewParams {
	return PreviewParams{Exposure: c.Exposure, Gamma: c.Gamma, Brightness: c.Brightness, Contrast: c.Contrast}
}
