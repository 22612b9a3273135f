// Package config loads the watch tool's debounce.yml.
package config

import (
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

type Config struct {
	Watch   WatchConfig   `koanf:"watch"`
	Quiet   time.Duration `koanf:"quiet"`
	Command string        `koanf:"command"`
	Shell   string        `koanf:"shell"`
}

type WatchConfig struct {
	Paths  []string `koanf:"paths"`
	Ignore []string `koanf:"ignore"`
}

func (c *Config) SetDefaults() {
	if len(c.Watch.Paths) == 0 {
		c.Watch.Paths = []string{"."}
	}
	if c.Quiet == 0 {
		c.Quiet = 300 * time.Millisecond
	}
	if c.Shell == "" {
		c.Shell = "/usr/bin/env bash"
	}
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "failed to read config at %s", path)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config at %s", path)
	}

	cfg.SetDefaults()
	return &cfg, nil
}
