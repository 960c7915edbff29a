// Package project reads the optional mirra.yaml manifest: the source files
// of a project plus tool settings the CLI honors.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level mirra.yaml configuration.
type Config struct {
	// Sources lists the project's source files, relative to the manifest.
	Sources []string `yaml:"sources"`

	// Strict makes the checker treat ambiguous Dereference access sites
	// as errors instead of notes.
	Strict bool `yaml:"strict,omitempty"`

	// HistoryFile overrides the REPL history location. Defaults to
	// ~/.mirra_history.
	HistoryFile string `yaml:"history_file,omitempty"`

	// Dir is the directory containing the manifest. Not part of the yaml;
	// set by Load so relative source paths can be resolved.
	Dir string `yaml:"-"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.Dir = filepath.Dir(path)
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// Find walks from dir upward looking for a manifest. Returns nil without
// error when none exists; the CLI works manifest-less.
func Find(dir string) (*Config, error) {
	cur, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	for {
		candidate := filepath.Join(cur, "mirra.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return Load(candidate)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return nil, nil
		}
		cur = parent
	}
}

func (c *Config) validate() error {
	for _, src := range c.Sources {
		if filepath.IsAbs(src) {
			return fmt.Errorf("source path %s must be relative to the manifest", src)
		}
	}
	return nil
}

// SourcePaths returns the manifest's sources resolved against its
// directory.
func (c *Config) SourcePaths() []string {
	out := make([]string, len(c.Sources))
	for i, src := range c.Sources {
		out[i] = filepath.Join(c.Dir, src)
	}
	return out
}
