package cli

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the optional debugger configuration file. Every field has a
// usable default; an absent file means all defaults.
type Config struct {
	// Executor is the external sandbox command, argv style. The first
	// element is the binary, the rest are fixed arguments.
	Executor []string `yaml:"executor,omitempty"`

	// Compiler is the external actor-source compiler command, argv style.
	Compiler []string `yaml:"compiler,omitempty"`

	// Journal is the SQLite journal path. Empty disables journaling.
	Journal string `yaml:"journal,omitempty"`

	// RunLimit caps drain length. Zero keeps the engine default.
	RunLimit int `yaml:"run_limit,omitempty"`

	// Script is the reorder script loaded at session start.
	Script string `yaml:"script,omitempty"`
}

// LoadConfig reads a yaml config file. Unknown fields are rejected so a
// typo never silently reverts an option to its default. A missing file is
// not an error when optional is true.
func LoadConfig(path string, optional bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	if len(cfg.Executor) > 0 && cfg.Executor[0] == "" {
		return nil, fmt.Errorf("config: executor command is empty")
	}
	if len(cfg.Compiler) > 0 && cfg.Compiler[0] == "" {
		return nil, fmt.Errorf("config: compiler command is empty")
	}
	if cfg.RunLimit < 0 {
		return nil, fmt.Errorf("config: run_limit must be non-negative")
	}
	return &cfg, nil
}
