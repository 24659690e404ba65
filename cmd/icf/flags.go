package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dd0wney/icf/pkg/config"
	"github.com/dd0wney/icf/pkg/icf"
	"github.com/dd0wney/icf/pkg/logging"
)

// commonFlags are shared by every command.
type commonFlags struct {
	configPath string
	logLevel   string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", os.Getenv("ICF_CONFIG"), "YAML configuration file")
	fs.StringVar(&c.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

func (c *commonFlags) load() (*config.Config, logging.Logger, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, nil, err
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}
	return cfg, cfg.Logger(), nil
}

// containerFlags override the container section of the configuration for
// commands that may create a file.
type containerFlags struct {
	format      string
	compression string
	threshold   int64
	subID       string
	ext         string
	noSync      bool
}

func (c *containerFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.format, "format", "", "Layout of a new container (simple, bunch)")
	fs.StringVar(&c.compression, "compression", "", "Bunch compression (none, snappy)")
	fs.Int64Var(&c.threshold, "threshold", -1, "Buffered bytes that trigger a bunch flush")
	fs.StringVar(&c.subID, "sub-id", "", "Sub-identifier of a new container (up to 4 bytes)")
	fs.StringVar(&c.ext, "ext", "", "Header extension bytes of a new container")
	fs.BoolVar(&c.noSync, "no-sync", false, "Do not fsync on flush")
}

func (c *containerFlags) options(cfg *config.Config, logger logging.Logger) ([]icf.Option, error) {
	if c.format != "" {
		cfg.Container.Format = c.format
	}
	if c.compression != "" {
		cfg.Container.Compression = c.compression
	}
	if c.threshold >= 0 {
		cfg.Container.BunchThreshold = c.threshold
	}
	if c.subID != "" {
		cfg.Container.SubIdentifier = c.subID
	}
	if c.noSync {
		cfg.Container.SyncWrites = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts, err := cfg.ContainerOptions()
	if err != nil {
		return nil, err
	}
	if c.ext != "" {
		opts = append(opts, icf.WithHeaderExtension([]byte(c.ext)))
	}
	return append(opts, icf.WithLogger(logger)), nil
}

func newFlagSet(name, args string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: icf %s [options] %s\n\nOptions:\n", name, args)
		fs.PrintDefaults()
	}
	return fs
}

// container returns the single positional container argument.
func container(fs *flag.FlagSet) (string, error) {
	if fs.NArg() < 1 {
		fs.Usage()
		return "", fmt.Errorf("missing container path")
	}
	return fs.Arg(0), nil
}

// openForRead opens an existing container without write access.
func openForRead(path string, logger logging.Logger, mapped bool) (*icf.Container, error) {
	opts := []icf.Option{icf.WithReadOnly(), icf.WithLogger(logger)}
	if mapped {
		opts = append(opts, icf.WithMappedReads())
	}
	return icf.Open(path, icf.ModeRead, opts...)
}
