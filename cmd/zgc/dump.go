// ABOUTME: The dump and analyze commands: write arena snapshots as JSON and inspect them
// ABOUTME: Analysis reports garbage, top retainers by dominator tree and paths to registers

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/inhies/go-bytesize"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/prateek/zgc/graph"
	"github.com/prateek/zgc/heapdump"
)

var (
	outFlag = &cli.StringFlag{
		Name:  "out",
		Usage: "dump file (default: stdout)",
	}
	collectFlag = &cli.BoolFlag{
		Name:  "collect",
		Usage: "collect before taking the snapshot",
	}
	topFlag = &cli.IntFlag{
		Name:  "top",
		Value: 10,
		Usage: "number of retainers to list",
	}
	pathFlag = &cli.Uint64Flag{
		Name:  "path",
		Usage: "print paths from this handle to the registers",
	}
)

var dumpCommand = &cli.Command{
	Name:   "dump",
	Usage:  "run the stress workload and write a JSON heap snapshot",
	Flags:  append([]cli.Flag{outFlag, collectFlag}, configFlags...),
	Action: dumpAction,
}

var analyzeCommand = &cli.Command{
	Name:      "analyze",
	Usage:     "summarise a heap dump",
	ArgsUsage: "[--top N] [--path H] <dump.json>",
	Flags:     []cli.Flag{topFlag, pathFlag},
	Action:    analyzeAction,
}

func dumpAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if !ctx.IsSet(objectsFlag.Name) && ctx.String(configFileFlag.Name) == "" {
		cfg.Objects = 5000
	}
	a, m, err := newArena(cfg, nil)
	if err != nil {
		return err
	}
	w, err := newWorkload(a, m, cfg.Seed)
	if err != nil {
		return err
	}
	w.run(cfg.Objects)
	if ctx.Bool(collectFlag.Name) {
		a.Collect()
	}

	out := io.Writer(os.Stdout)
	if path := ctx.String(outFlag.Name); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	g := heapdump.Snapshot(a, nil)
	if err := heapdump.WriteJSON(out, g); err != nil {
		return err
	}
	log.WithField("objects", g.NumObjects()).Info("Wrote heap snapshot")
	return nil
}

func analyzeAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("analyze takes exactly one dump file")
	}
	f, err := os.Open(ctx.Args().First())
	if err != nil {
		return err
	}
	defer f.Close()
	g, err := heapdump.Open(f)
	if err != nil {
		return fmt.Errorf("%s: %w", ctx.Args().First(), err)
	}

	garbage := graph.Garbage(g)
	var garbageBytes uint64
	for _, id := range garbage {
		garbageBytes += g.GetObject(id).Size
	}
	fmt.Printf("objects: %d (%s), roots: %d, garbage: %d (%s)\n\n",
		g.NumObjects(), bytesize.New(float64(graph.TotalSize(g))),
		len(g.GetRoots().IDs), len(garbage), bytesize.New(float64(garbageBytes)))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Handle", "Type", "Size", "Retained"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, r := range graph.TopRetainers(g, ctx.Int(topFlag.Name)) {
		table.Append([]string{
			strconv.FormatUint(uint64(r.ID), 10),
			r.Type,
			strconv.FormatUint(r.Size, 10),
			strconv.FormatUint(r.Retained, 10),
		})
	}
	table.Render()

	if ctx.IsSet(pathFlag.Name) {
		from := graph.ObjID(ctx.Uint64(pathFlag.Name))
		paths := graph.PathsToRoots(g, from, 3)
		if len(paths) == 0 {
			fmt.Printf("\n%d is not reachable from any register\n", from)
		}
		for _, p := range paths {
			ids := make([]string, len(p.IDs))
			for i, id := range p.IDs {
				ids[i] = fmt.Sprintf("%d:%s", id, g.GetObject(id).Type)
			}
			fmt.Printf("\n%s", strings.Join(ids, " <- "))
		}
		fmt.Println()
	}
	return nil
}
