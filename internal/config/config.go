// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads the configuration of the qrshaped service.
//
// Configuration is read from a single YAML file named by the --config
// flag or the QRSHAPE_CONFIG environment variable.  There is no
// discovery: without either, the defaults apply.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/unixdj/qrshape"
	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable holding the config path.
const EnvVar = "QRSHAPE_CONFIG"

// Config is the service configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen   string         `yaml:"listen"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	// Defaults apply to generate requests that omit an option.
	Defaults DefaultsConfig `yaml:"defaults"`
	Limits   LimitsConfig   `yaml:"limits"`
}

// StorageConfig configures the artifact store.
type StorageConfig struct {
	// Dir is the root of the artifact tree.
	Dir string `yaml:"dir"`
	// CompressVectors stores SVG artifacts gzipped as .svgz.
	CompressVectors bool `yaml:"compress_vectors"`
}

// DatabaseConfig configures the render catalog.
type DatabaseConfig struct {
	// Path is the SQLite database file.
	Path string `yaml:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// DefaultsConfig holds render defaults.
type DefaultsConfig struct {
	Size    int    `yaml:"size"`
	ECC     string `yaml:"ecc"`
	FgColor string `yaml:"fg_color"`
	BgColor string `yaml:"bg_color"`
	Margin  int    `yaml:"margin"`
}

// LimitsConfig bounds request sizes.
type LimitsConfig struct {
	// MaxUploadBytes bounds a multipart generate or decode request.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
	// MaxSize bounds the raster side in pixels.
	MaxSize int `yaml:"max_size"`
	// MaxMargin bounds the quiet zone in modules.
	MaxMargin int `yaml:"max_margin"`
	// MaxImagePixels bounds the pixel count of an uploaded image,
	// checked before it is decoded.
	MaxImagePixels int `yaml:"max_image_pixels"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen:   "127.0.0.1:8080",
		Storage:  StorageConfig{Dir: "media"},
		Database: DatabaseConfig{Path: "qrshape.db"},
		Log:      LogConfig{Level: "info"},
		Defaults: DefaultsConfig{
			Size:    400,
			ECC:     "H",
			FgColor: "#000000",
			BgColor: "#FFFFFF",
			Margin:  4,
		},
		Limits: LimitsConfig{
			MaxUploadBytes: 10 << 20,
			MaxSize:        4096,
			MaxMargin:      64,
			MaxImagePixels: 16 << 20,
		},
	}
}

// Load loads the file at path, or at $QRSHAPE_CONFIG if path is empty.
// Without either it returns Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads the YAML file at path over the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error
	if c.Listen == "" {
		errs = append(errs, errors.New("listen is required"))
	}
	if c.Storage.Dir == "" {
		errs = append(errs, errors.New("storage.dir is required"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Defaults.Size <= 0 {
		errs = append(errs, fmt.Errorf("defaults.size must be positive, got %d", c.Defaults.Size))
	}
	if _, err := qrshape.ParseLevel(c.Defaults.ECC); err != nil {
		errs = append(errs, fmt.Errorf("defaults.ecc: %w", err))
	}
	if _, err := qrshape.ParseColor(c.Defaults.FgColor); err != nil {
		errs = append(errs, fmt.Errorf("defaults.fg_color: %w", err))
	}
	if _, err := qrshape.ParseColor(c.Defaults.BgColor); err != nil {
		errs = append(errs, fmt.Errorf("defaults.bg_color: %w", err))
	}
	if c.Defaults.Margin < 0 {
		errs = append(errs, fmt.Errorf("defaults.margin must not be negative, got %d", c.Defaults.Margin))
	}
	if c.Limits.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("limits.max_upload_bytes must be positive, got %d",
			c.Limits.MaxUploadBytes))
	}
	if c.Limits.MaxSize <= 0 {
		errs = append(errs, fmt.Errorf("limits.max_size must be positive, got %d", c.Limits.MaxSize))
	} else if c.Defaults.Size > c.Limits.MaxSize {
		errs = append(errs, fmt.Errorf("defaults.size %d exceeds limits.max_size %d",
			c.Defaults.Size, c.Limits.MaxSize))
	}
	if c.Limits.MaxMargin <= 0 {
		errs = append(errs, fmt.Errorf("limits.max_margin must be positive, got %d", c.Limits.MaxMargin))
	} else if c.Defaults.Margin > c.Limits.MaxMargin {
		errs = append(errs, fmt.Errorf("defaults.margin %d exceeds limits.max_margin %d",
			c.Defaults.Margin, c.Limits.MaxMargin))
	}
	if c.Limits.MaxImagePixels <= 0 {
		errs = append(errs, fmt.Errorf("limits.max_image_pixels must be positive, got %d",
			c.Limits.MaxImagePixels))
	}
	return errors.Join(errs...)
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(c.Log.Level))); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}

// Request returns a render request for payload with the configured
// defaults.  The defaults must be valid.
func (c *Config) Request(payload []byte) *qrshape.Request {
	req := qrshape.NewRequest(payload)
	req.Size = c.Defaults.Size
	req.Margin = c.Defaults.Margin
	if l, err := qrshape.ParseLevel(c.Defaults.ECC); err == nil {
		req.Level = l
	}
	if fg, err := qrshape.ParseColor(c.Defaults.FgColor); err == nil {
		req.Foreground = fg
	}
	if bg, err := qrshape.ParseColor(c.Defaults.BgColor); err == nil {
		req.Background = bg
	}
	return req
}

// RenderLimits returns the limits applied to each render.
func (c *Config) RenderLimits() qrshape.Limits {
	return qrshape.Limits{
		MaxSize:        c.Limits.MaxSize,
		MaxMargin:      c.Limits.MaxMargin,
		MaxImagePixels: c.Limits.MaxImagePixels,
	}
}
