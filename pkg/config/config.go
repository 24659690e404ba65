// Package config loads the settings shared by the icf commands from a YAML
// file and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/icf/pkg/icf"
	"github.com/dd0wney/icf/pkg/logging"
)

// Config is the top-level configuration file.
type Config struct {
	Container ContainerConfig `yaml:"container"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Archive   ArchiveConfig   `yaml:"archive"`
}

// ContainerConfig holds the options applied to newly created containers.
type ContainerConfig struct {
	Format         string `yaml:"format" validate:"oneof=simple bunch"`
	BunchThreshold int64  `yaml:"bunch_threshold" validate:"gte=0"`
	Compression    string `yaml:"compression" validate:"oneof=none snappy"`
	SubIdentifier  string `yaml:"sub_identifier" validate:"max=4"`
	SyncWrites     bool   `yaml:"sync_writes"`
	BunchCache     int    `yaml:"bunch_cache" validate:"gte=1"`
}

// LoggingConfig controls the JSON logger.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn warning error"`
}

// MetricsConfig controls the Prometheus endpoint of the capture command.
type MetricsConfig struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// ArchiveConfig describes where closed containers are uploaded.
type ArchiveConfig struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint" validate:"omitempty,url"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Container: ContainerConfig{
			Format:         "bunch",
			BunchThreshold: icf.DefaultBunchThreshold,
			Compression:    "none",
			SyncWrites:     true,
			BunchCache:     icf.DefaultBunchCacheSize,
		},
		Logging: LoggingConfig{Level: "info"},
		Archive: ArchiveConfig{Prefix: "icf"},
	}
}

// Load reads path on top of the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from ICF_* variables, LOG_LEVEL and AWS_REGION.
func (c *Config) ApplyEnv() error {
	if level := logging.LevelFromEnv(); level != "" {
		c.Logging.Level = level
	}
	setString(&c.Container.Format, "ICF_FORMAT")
	setString(&c.Container.Compression, "ICF_COMPRESSION")
	setString(&c.Container.SubIdentifier, "ICF_SUB_IDENTIFIER")
	setString(&c.Metrics.Addr, "ICF_METRICS_ADDR")
	setString(&c.Archive.Bucket, "ICF_ARCHIVE_BUCKET")
	setString(&c.Archive.Prefix, "ICF_ARCHIVE_PREFIX")
	setString(&c.Archive.Endpoint, "ICF_ARCHIVE_ENDPOINT")
	setString(&c.Archive.Region, "AWS_REGION")

	if v := os.Getenv("ICF_BUNCH_THRESHOLD"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("ICF_BUNCH_THRESHOLD: %w", err)
		}
		c.Container.BunchThreshold = n
	}
	if v := os.Getenv("ICF_SYNC_WRITES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ICF_SYNC_WRITES: %w", err)
		}
		c.Container.SyncWrites = b
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// ContainerOptions converts the container section to icf options.
func (c *Config) ContainerOptions() ([]icf.Option, error) {
	format, err := icf.ParseFormat(c.Container.Format)
	if err != nil {
		return nil, err
	}
	compression, err := icf.ParseCompression(c.Container.Compression)
	if err != nil {
		return nil, err
	}

	opts := []icf.Option{
		icf.WithFormat(format),
		icf.WithCompression(compression),
		icf.WithBunchThreshold(c.Container.BunchThreshold),
		icf.WithSyncWrites(c.Container.SyncWrites),
		icf.WithBunchCache(c.Container.BunchCache),
	}
	if c.Container.SubIdentifier != "" {
		opts = append(opts, icf.WithSubIdentifier([]byte(c.Container.SubIdentifier)))
	}
	return opts, nil
}

// Logger builds a JSON logger at the configured level.
func (c *Config) Logger() logging.Logger {
	return logging.NewJSONLogger(os.Stderr, logging.ParseLevel(c.Logging.Level))
}
