// Package config loads the optional TOML configuration file of the pio tool.
package config

import (
	"os"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// Config is the on-disk configuration. Every field may be omitted.
type Config struct {
	LogLevel    string `toml:"log_level"`
	MetricsFile string `toml:"metrics_file"`

	Append AppendConfig `toml:"append"`
	Clone  CloneConfig  `toml:"clone"`
}

// AppendConfig tunes the append engine.
type AppendConfig struct {
	ChunkWords int64  `toml:"chunk_words"` // stream copy chunk, 0 = max(numcell, 1Mi)
	Template   string `toml:"template"`    // template array key, "" = automatic
	OutBase    string `toml:"out_base"`    // output base name
	NoProject  bool   `toml:"no_project"`  // skip the .pio project file
}

// CloneConfig tunes clone estimates.
type CloneConfig struct {
	NProcs      []int `toml:"nprocs"`
	Concurrency int   `toml:"concurrency"`
}

// Load reads path. An empty path returns the defaults.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrap(err, "read config file")
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "parse config file %s", path)
		}
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Append.OutBase == "" {
		c.Append.OutBase = "tmp"
	}
	if c.Clone.Concurrency <= 0 {
		c.Clone.Concurrency = 4
	}
}
