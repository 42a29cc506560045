// Package config loads stepgraph settings.
//
// Settings are layered, higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  3. Environment Variables   │  ← STEPGRAPH_*
//	├─────────────────────────────┤
//	│  2. Config File             │  ← stepgraph.toml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │
//	└─────────────────────────────┘
//
// Command line flags are applied by the caller after Load.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/stepgraph/internal/config/loader"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "STEPGRAPH_"

// DefaultPrompt is the command prompt shown on interactive terminals.
const DefaultPrompt = "Enter a command, type h for help. Type r to run. > "

// Config holds all stepgraph settings.
type Config struct {
	Logging  LoggingConfig  `toml:"logging"`
	Shell    ShellConfig    `toml:"shell"`
	Executor ExecutorConfig `toml:"executor"`
	Program  ProgramConfig  `toml:"program"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error, off.
	Level string `toml:"level"`
}

// ShellConfig configures the command loop.
type ShellConfig struct {
	Prompt string `toml:"prompt"`
	// MemoryFormat is "table" or "plain".
	MemoryFormat string `toml:"memoryFormat"`
}

// ExecutorConfig configures the reference executor.
type ExecutorConfig struct {
	// MaxSteps bounds the statements one continue may execute.
	MaxSteps int `toml:"maxSteps"`
}

// ProgramConfig configures program loading.
type ProgramConfig struct {
	// Watch logs a warning when the program file changes on disk.
	Watch bool `toml:"watch"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Logging:  LoggingConfig{Level: "info"},
		Shell:    ShellConfig{Prompt: DefaultPrompt, MemoryFormat: "table"},
		Executor: ExecutorConfig{MaxSteps: 100_000},
	}
}

// Load reads the configuration at path over the defaults and applies
// environment overrides. An empty path skips the file layer; a missing file
// is only an error when required is true.
func Load(path string, required bool) (*Config, error) {
	return load(loader.DefaultFS(), path, required, loader.NewEnvLoader(EnvPrefix))
}

func load(fsys loader.FileSystem, path string, required bool, env loader.Loader) (*Config, error) {
	merged := make(map[string]any)

	if path != "" {
		if _, err := fsys.Stat(path); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("stat config file %s: %w", path, err)
			}
			if required {
				return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
			}
		}
		file, err := loader.NewTOMLLoaderWithFS(fsys, path).Load()
		if err != nil {
			return nil, err
		}
		merged = loader.DeepMerge(merged, file)
	}

	if env != nil {
		overrides, err := env.Load()
		if err != nil {
			return nil, fmt.Errorf("loading environment: %w", err)
		}
		merged = loader.DeepMerge(merged, overrides)
	}

	cfg := Default()
	if len(merged) > 0 {
		if err := decode(merged, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode applies a merged settings map onto cfg by round-tripping it
// through TOML.
func decode(settings map[string]any, cfg *Config) error {
	data, err := toml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return &ValidationError{Path: "config", Message: err.Error(), Value: string(data)}
	}
	return nil
}

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "off": true}

// Validate checks every setting.
func (c *Config) Validate() error {
	if !logLevels[c.Logging.Level] {
		return &ValidationError{Path: "logging.level", Message: "must be debug, info, warn, error or off", Value: c.Logging.Level}
	}
	if c.Shell.MemoryFormat != "table" && c.Shell.MemoryFormat != "plain" {
		return &ValidationError{Path: "shell.memoryFormat", Message: "must be table or plain", Value: c.Shell.MemoryFormat}
	}
	if c.Executor.MaxSteps <= 0 {
		return &ValidationError{Path: "executor.maxSteps", Message: "must be positive", Value: c.Executor.MaxSteps}
	}
	return nil
}
