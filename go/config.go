package main

import (
	"flag"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/rmmh/cubeoccluder/go/region"
)

// fakeWorld as a region directory generates terrain instead of reading files.
const fakeWorld = "fake"

type Config struct {
	// Worlds maps world names to their region directories.
	Worlds       map[string]string `yaml:"worlds"`
	Store        string            `yaml:"store"`
	Workers      int               `yaml:"workers"`
	Listen       string            `yaml:"listen"`
	ReadTimeout  time.Duration     `yaml:"read_timeout"`
	WriteTimeout time.Duration     `yaml:"write_timeout"`
	LogLevel     string            `yaml:"log_level"`
	LogFormat    string            `yaml:"log_format"`
	BlockTable   string            `yaml:"block_table"`
	Verify       bool              `yaml:"verify"`
	FakeRadius   int               `yaml:"fake_radius"`
}

func defaults() *Config {
	return &Config{
		Worlds:       map[string]string{},
		Store:        "cull.db",
		Workers:      runtime.NumCPU(),
		Listen:       "127.0.0.1:9999",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
		LogLevel:     "info",
		LogFormat:    "text",
		FakeRadius:   2,
	}
}

func loadConfig(path string) (*Config, error) {
	cfg := defaults()
	if path == "" {
		return cfg, nil
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}
	if err := yaml.Unmarshal(buf, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}
	return cfg, nil
}

// commandFlags are the flags shared by every subcommand. They override the
// config file when given.
type commandFlags struct {
	fs        *flag.FlagSet
	config    string
	world     string
	regionDir string
	cfg       Config
}

func newCommandFlags(name string) *commandFlags {
	f := &commandFlags{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	d := defaults()
	f.fs.StringVar(&f.config, "config", "", "YAML config file")
	f.fs.StringVar(&f.world, "world", "overworld", "world name")
	f.fs.StringVar(&f.regionDir, "regions", "", "region directory of the world, or \"fake\" for generated terrain")
	f.fs.StringVar(&f.cfg.Store, "store", d.Store, "sqlite database for cull data")
	f.fs.IntVar(&f.cfg.Workers, "workers", d.Workers, "number of compile workers")
	f.fs.StringVar(&f.cfg.Listen, "listen", d.Listen, "HTTP listen address")
	f.fs.StringVar(&f.cfg.LogLevel, "log-level", d.LogLevel, "debug, info, warn or error")
	f.fs.StringVar(&f.cfg.LogFormat, "log-format", d.LogFormat, "text or json")
	f.fs.StringVar(&f.cfg.BlockTable, "blocks", d.BlockTable, "block classification table (YAML)")
	f.fs.BoolVar(&f.cfg.Verify, "verify", d.Verify, "check every compiled section")
	f.fs.IntVar(&f.cfg.FakeRadius, "fake-radius", d.FakeRadius, "regions of generated terrain around the origin")
	return f
}

func (f *commandFlags) parse(args []string) (*Config, error) {
	if err := f.fs.Parse(args); err != nil {
		return nil, err
	}
	cfg, err := loadConfig(f.config)
	if err != nil {
		return nil, err
	}
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "store":
			cfg.Store = f.cfg.Store
		case "workers":
			cfg.Workers = f.cfg.Workers
		case "listen":
			cfg.Listen = f.cfg.Listen
		case "log-level":
			cfg.LogLevel = f.cfg.LogLevel
		case "log-format":
			cfg.LogFormat = f.cfg.LogFormat
		case "blocks":
			cfg.BlockTable = f.cfg.BlockTable
		case "verify":
			cfg.Verify = f.cfg.Verify
		case "fake-radius":
			cfg.FakeRadius = f.cfg.FakeRadius
		}
	})
	if cfg.Worlds == nil {
		cfg.Worlds = map[string]string{}
	}
	if f.regionDir != "" {
		cfg.Worlds[f.world] = f.regionDir
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return cfg, nil
}

func (c *Config) logger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, errors.Wrap(err, "bad log level")
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(c.LogFormat) {
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	}
	return nil, errors.Errorf("unknown log format %q", c.LogFormat)
}

func (c *Config) blockMapper() (*region.BlockMapper, error) {
	if c.BlockTable == "" {
		return region.DefaultBlockMapper(), nil
	}
	buf, err := os.ReadFile(c.BlockTable)
	if err != nil {
		return nil, errors.Wrap(err, "reading block table")
	}
	return region.LoadBlockMapper(buf)
}

func (c *Config) world(name string, bm *region.BlockMapper) (*region.World, error) {
	dir, ok := c.Worlds[name]
	if !ok {
		return nil, errors.Errorf("unknown world %q", name)
	}
	if dir == fakeWorld {
		return region.NewFakeWorld(bm, c.FakeRadius), nil
	}
	return region.NewWorld(dir, bm), nil
}
