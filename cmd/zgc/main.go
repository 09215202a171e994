// ABOUTME: zgc command line tool: stress the collector, dump arena snapshots, analyse dumps
// ABOUTME: Sets up the urfave/cli application and the shared logrus logger

// zgc exercises the arena collector from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/prateek/zgc"
	"github.com/prateek/zgc/arena"
	"github.com/prateek/zgc/catalog"
)

var log = logrus.New()

var verbosityFlag = &cli.BoolFlag{
	Name:  "verbose",
	Usage: "log every collection",
}

var app = &cli.App{
	Name:    "zgc",
	Usage:   "compacting arena collector toolkit",
	Version: zgc.Version,
	Flags:   []cli.Flag{verbosityFlag},
	Before: func(ctx *cli.Context) error {
		log.SetOutput(os.Stderr)
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		log.SetLevel(logrus.InfoLevel)
		if ctx.Bool(verbosityFlag.Name) {
			log.SetLevel(logrus.DebugLevel)
		}
		return nil
	},
	Commands: []*cli.Command{
		stressCommand,
		dumpCommand,
		analyzeCommand,
		statsCommand,
	},
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newArena builds the configured catalog and arena.
func newArena(cfg zgcConfig, hooks catalog.Hooks) (*arena.Arena, *catalog.Manifest, error) {
	capacity, err := cfg.capacityBytes()
	if err != nil {
		return nil, nil, err
	}
	m, err := cfg.manifest()
	if err != nil {
		return nil, nil, err
	}
	a, err := zgc.New(m, hooks, arena.Config{
		Capacity:     capacity,
		ChunkHeaders: cfg.ChunkHeaders,
		Logger:       log,
	})
	if err != nil {
		return nil, nil, err
	}
	return a, m, nil
}
