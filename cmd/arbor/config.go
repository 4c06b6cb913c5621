package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/samcharles93/arbor/internal/compiler"
)

// Config holds the CLI-level settings of the arbor config file
// (~/.config/arbor/config.yaml). Compile parameters in the same file are
// read by compiler.LoadConfig.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
	MaxBuilds     *int   `yaml:"max_builds"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "arbor", "config.yaml")
}

// LoadConfig reads the CLI settings from path. A missing file yields a zero
// Config.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// applyLoggingConfig applies config file defaults to the logging flags
// when they were not explicitly set.
func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string, maxBuilds *int) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	if cfg.MaxBuilds != nil && !c.IsSet("max-builds") {
		*maxBuilds = *cfg.MaxBuilds
	}
}

// compileConfig loads the compile parameters from the config file and lets
// explicitly set limit flags override them.
func compileConfig(c *cli.Command) (compiler.Config, error) {
	cfg, err := compiler.LoadConfig(configFile)
	if err != nil {
		return cfg, err
	}
	if c.IsSet("buffer-length") {
		cfg.BufferLength = bufferLength
	}
	if c.IsSet("ports") {
		cfg.Ports = ports
	}
	if c.IsSet("mults") {
		cfg.Mults = mults
	}
	if c.IsSet("debug-program") {
		cfg.Debug = debugProgram
	}
	return cfg, cfg.Validate()
}
