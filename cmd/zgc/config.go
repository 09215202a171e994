// ABOUTME: CLI configuration loaded from a TOML file and overridden by flags
// ABOUTME: Capacity accepts human sizes such as "2MB"; the catalog defaults to the embedded demo

package main

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/inhies/go-bytesize"
	"github.com/urfave/cli/v2"

	"github.com/prateek/zgc/catalog"
)

//go:embed catalog.yaml
var demoCatalog string

type zgcConfig struct {
	Capacity     string // arena size, e.g. "2MB"
	Catalog      string // manifest path, empty for the demo catalog
	ChunkHeaders bool
	Objects      int
	Seed         int64
}

var defaultConfig = zgcConfig{
	Capacity: "2MB",
	Objects:  1000000,
	Seed:     1,
}

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	capacityFlag = &cli.StringFlag{
		Name:  "capacity",
		Usage: "arena capacity (e.g. 512KB, 2MB)",
	}
	catalogFlag = &cli.StringFlag{
		Name:  "catalog",
		Usage: "YAML type manifest (default: built-in demo catalog)",
	}
	chunkHeadersFlag = &cli.BoolFlag{
		Name:  "chunk-headers",
		Usage: "store finalization flags in every 64th handle instead of a side bitmap",
	}
	objectsFlag = &cli.IntFlag{
		Name:  "objects",
		Usage: "number of allocation rounds",
	}
	seedFlag = &cli.Int64Flag{
		Name:  "seed",
		Usage: "random seed for generated heaps",
	}
	configFlags = []cli.Flag{configFileFlag, capacityFlag, catalogFlag, chunkHeadersFlag, objectsFlag, seedFlag}
)

// loadConfig applies defaults, then the config file, then set flags.
func loadConfig(ctx *cli.Context) (zgcConfig, error) {
	cfg := defaultConfig
	if file := ctx.String(configFileFlag.Name); file != "" {
		md, err := toml.DecodeFile(file, &cfg)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", file, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return cfg, fmt.Errorf("%s: unknown settings %s", file, strings.Join(keys, ", "))
		}
	}
	if ctx.IsSet(capacityFlag.Name) {
		cfg.Capacity = ctx.String(capacityFlag.Name)
	}
	if ctx.IsSet(catalogFlag.Name) {
		cfg.Catalog = ctx.String(catalogFlag.Name)
	}
	if ctx.IsSet(chunkHeadersFlag.Name) {
		cfg.ChunkHeaders = ctx.Bool(chunkHeadersFlag.Name)
	}
	if ctx.IsSet(objectsFlag.Name) {
		cfg.Objects = ctx.Int(objectsFlag.Name)
	}
	if ctx.IsSet(seedFlag.Name) {
		cfg.Seed = ctx.Int64(seedFlag.Name)
	}
	if cfg.Objects < 0 {
		return cfg, errors.New("objects must not be negative")
	}
	return cfg, nil
}

// capacityBytes parses Capacity.
func (c zgcConfig) capacityBytes() (int, error) {
	b, err := bytesize.Parse(c.Capacity)
	if err != nil {
		return 0, fmt.Errorf("invalid capacity %q: %w", c.Capacity, err)
	}
	return int(b), nil
}

// manifest loads the configured catalog.
func (c zgcConfig) manifest() (*catalog.Manifest, error) {
	if c.Catalog == "" {
		return catalog.Parse(strings.NewReader(demoCatalog))
	}
	return catalog.Load(c.Catalog)
}
