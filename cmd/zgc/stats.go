// ABOUTME: The stats command and table rendering of collector statistics
// ABOUTME: Uses tablewriter for geometry, counters and catalog listings

package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/inhies/go-bytesize"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/prateek/zgc/arena"
	"github.com/prateek/zgc/catalog"
)

var statsCommand = &cli.Command{
	Name:   "stats",
	Usage:  "show the geometry of a fresh arena and its type catalog",
	Flags:  configFlags,
	Action: statsAction,
}

func statsAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	a, m, err := newArena(cfg, nil)
	if err != nil {
		return err
	}
	printStats(os.Stdout, a.Stats())
	fmt.Println()
	printCatalog(os.Stdout, a.Catalog(), m)
	return nil
}

func printStats(w io.Writer, s arena.Stats) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Statistic", "Value"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	u := func(v uint64) string { return strconv.FormatUint(v, 10) }
	table.AppendBulk([][]string{
		{"capacity", bytesize.New(float64(s.NumSlots * s.SlotSize)).String()},
		{"slots", u(s.NumSlots)},
		{"slot size", u(s.SlotSize)},
		{"next handle", u(uint64(s.NextHandle))},
		{"next slot", u(s.NextSlot)},
		{"free slots", u(s.FreeSlots)},
		{"collections", u(s.Collections)},
		{"allocations", u(s.Allocations)},
		{"bytes allocated", bytesize.New(float64(s.BytesAllocated)).String()},
		{"slots allocated", u(s.SlotsAllocated)},
		{"indirection shifts", u(s.IndirectionShifts)},
		{"slot shifts", u(s.SlotShifts)},
		{"reference rewrites", u(s.ReferenceRewrites)},
		{"finalizers run", u(s.FinalizersRun)},
		{"pending finalizers", strconv.Itoa(s.PendingFinalizers)},
		{"longest collection", s.LongestCollection.String()},
		{"total collection", s.TotalCollection.String()},
	})
	table.Render()
}

func printCatalog(w io.Writer, cat *arena.Catalog, m *catalog.Manifest) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Tag", "Type", "Kind", "Size"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, l := range m.Layouts() {
		tag := cat.MustTag(l.Name)
		kind, size := "object", strconv.Itoa(l.FixedSize())
		switch {
		case l.Unique:
			kind, size = "unique", "-"
		case l.Variable():
			size += "+"
		}
		if !l.Unique && l.FixedSize() <= cat.InlineCapacity() && !l.Variable() {
			kind = "immediate"
		}
		table.Append([]string{strconv.Itoa(int(tag)), l.Name, kind, size})
	}
	table.Render()
}
