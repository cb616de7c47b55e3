package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"golift.io/rollerr"
	"golift.io/rollerr/sizerotator"
	"golift.io/rollerr/timerotator"
)

// Custom errors returned for bad config files.
var (
	ErrUnknownFormat = errors.New("config file must end in .yaml, .yml or .json")
	ErrUnknownPolicy = errors.New(`policy type must be "size" or "time"`)
)

// Config mirrors the file handed to --config.
//
//	file: /var/log/myapp.log
//	policy:
//	  type: time
//	  unit: midnight
//	  utc: true
//	  max_backups: 7
type Config struct {
	File   string       `koanf:"file"`
	Policy PolicyConfig `koanf:"policy"`
}

// PolicyConfig picks and parameterizes the rotation policy.
type PolicyConfig struct {
	Type       string `koanf:"type"`        // size or time.
	MaxSize    int64  `koanf:"max_size"`    // size: rotate before this many bytes.
	MaxBackups int    `koanf:"max_backups"` // backups kept.
	Every      int    `koanf:"every"`       // time: units per rotation window.
	Unit       string `koanf:"unit"`        // time: s, m, h, d or midnight.
	UTC        bool   `koanf:"utc"`         // time: schedule against UTC.
}

// loadConfig reads and parses a config file, picking the parser from the
// file extension.
func loadConfig(path string) (*Config, error) {
	var parser koanf.Parser

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	koanfig := koanf.New(".")
	if err := koanfig.Load(rawbytes.Provider(data), parser); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config := &Config{}
	if err := koanfig.Unmarshal("", config); err != nil {
		return nil, fmt.Errorf("reading config values: %w", err)
	}

	return config, nil
}

// sink turns the parsed config into an unopened Sink.
func (c *Config) sink(logger hclog.Logger) (*rollerr.Sink, error) {
	switch c.Policy.Type {
	case "size":
		return rollerr.New(&rollerr.Config{
			Filepath: c.File,
			Policy: sizerotator.New(&sizerotator.Config{
				MaxFileSize: c.Policy.MaxSize,
				MaxBackups:  c.Policy.MaxBackups,
				Logger:      logger,
			}),
		})
	case "time":
		unit, err := timerotator.ParseUnit(c.Policy.Unit)
		if err != nil {
			return nil, err
		}

		policy, err := timerotator.New(c.File, &timerotator.Config{
			Every:      c.Policy.Every,
			Unit:       unit,
			UTC:        c.Policy.UTC,
			MaxBackups: c.Policy.MaxBackups,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}

		return rollerr.New(&rollerr.Config{Filepath: c.File, Policy: policy})
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, c.Policy.Type)
}
