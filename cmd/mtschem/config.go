package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/mtschem/schematic"
	"github.com/klauspost/compress/zlib"
	"gopkg.in/yaml.v3"
)

const (
	defaultDB      = "mtschem.db"
	defaultWorkers = 10
)

type config struct {
	DB      string `yaml:"db"`
	Level   int    `yaml:"level"`
	Packing string `yaml:"packing"`
	Workers int    `yaml:"workers"`
}

func defaults(dir string) config {
	return config{
		DB:      filepath.Join(dir, defaultDB),
		Level:   schematic.DefaultLevel,
		Packing: schematic.ForceHighBit.String(),
		Workers: defaultWorkers,
	}
}

// loadConfig reads the YAML file at path over the defaults. An empty path
// just returns the defaults.
func loadConfig(path, dir string) (config, error) {
	cfg := defaults(dir)
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	// Relative database paths are relative to the config file
	if cfg.DB != "" && !filepath.IsAbs(cfg.DB) {
		cfg.DB = filepath.Join(filepath.Dir(path), cfg.DB)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c config) validate() error {
	if c.DB == "" {
		return errors.New("db must be set")
	}
	if c.Level < zlib.DefaultCompression || c.Level > zlib.BestCompression {
		return fmt.Errorf("level %d out of range %d to %d", c.Level, zlib.DefaultCompression, zlib.BestCompression)
	}
	if _, err := schematic.ParsePacking(c.Packing); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	return nil
}

func (c config) packing() schematic.Packing {
	p, _ := schematic.ParsePacking(c.Packing)
	return p
}
