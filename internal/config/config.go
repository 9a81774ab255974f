// Package config loads the depict YAML configuration: internal-symbol markers,
// category aliases and backend settings.
package config

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"depict/internal/symbols"

	"gopkg.in/yaml.v2"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// SDE holds the settings of the emulator backend.
type SDE struct {
	Path      string `yaml:"path"`
	TopBlocks int    `yaml:"top_blocks"`
}

// Markers holds the internal-symbol markers of each backend.
type Markers struct {
	Stream []symbols.Marker `yaml:"stream"`
	Report []symbols.Marker `yaml:"report"`
}

// Config is the depict configuration.
type Config struct {
	TagPrefix       string            `yaml:"tag_prefix"`
	CategoryAliases map[string]string `yaml:"category_aliases"`
	SDE             SDE               `yaml:"sde"`
	InternalMarkers Markers           `yaml:"internal_markers"`
}

// Default returns the embedded default configuration.
func Default() Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		panic(fmt.Sprintf("embedded default configuration is invalid: %v", err))
	}
	return cfg
}

// Load reads the configuration file at path. Settings missing from the file
// keep their default values. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	slog.Debug("loading configuration", slog.String("path", path))
	yamlFile, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return cfg, fmt.Errorf("failed to read configuration file: %w", err)
	}
	if err := Parse(yamlFile, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse overlays the YAML document onto cfg and validates the result.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return fmt.Errorf("failed to parse configuration: %w", err)
	}
	return cfg.Validate()
}

// Validate checks the configuration values.
func (cfg Config) Validate() error {
	if cfg.TagPrefix == "" {
		return fmt.Errorf("tag_prefix cannot be empty")
	}
	if cfg.SDE.TopBlocks <= 0 {
		return fmt.Errorf("sde.top_blocks must be greater than 0, got %d", cfg.SDE.TopBlocks)
	}
	for name, markers := range map[string][]symbols.Marker{"stream": cfg.InternalMarkers.Stream, "report": cfg.InternalMarkers.Report} {
		for i, marker := range markers {
			if err := marker.Validate(); err != nil {
				return fmt.Errorf("internal_markers.%s[%d]: %w", name, i, err)
			}
		}
	}
	for alias, category := range cfg.CategoryAliases {
		if alias == "" || category == "" {
			return fmt.Errorf("category alias %q -> %q cannot be empty", alias, category)
		}
	}
	return nil
}
