// ABOUTME: The stress command: drives the demo catalog through many allocation rounds
// ABOUTME: Builds cons chains across registers, drops some at random and reports collector stats

package main

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/prateek/zgc/arena"
	"github.com/prateek/zgc/catalog"
)

var stressCommand = &cli.Command{
	Name:   "stress",
	Usage:  "allocate many small objects and report collector statistics",
	Flags:  configFlags,
	Action: stressAction,
}

func stressAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	a, m, err := newArena(cfg, nil)
	if err != nil {
		return err
	}
	w, err := newWorkload(a, m, cfg.Seed)
	if err != nil {
		return err
	}

	log.WithField("rounds", cfg.Objects).Info("Starting stress run")
	start := time.Now()
	w.run(cfg.Objects)
	a.Collect()
	log.WithField("elapsed", time.Since(start)).Info("Stress run finished")

	printStats(os.Stdout, a.Stats())
	return nil
}

// workload is the demo mutator. The last register is scratch; the others
// hold cons chains whose cars are small strings.
type workload struct {
	a    *arena.Arena
	rng  *rand.Rand
	nilH arena.Handle

	word, small, cons, str                *catalog.Layout
	wordTag, smallTag, consTag, stringTag arena.Tag
}

func newWorkload(a *arena.Arena, m *catalog.Manifest, seed int64) (*workload, error) {
	if a.NumRegisters() < 2 {
		return nil, errors.New("workload needs at least two registers")
	}
	w := &workload{a: a, rng: rand.New(rand.NewSource(seed))}
	var ok bool
	if w.nilH, ok = a.Catalog().Reserved("Nil"); !ok {
		return nil, errors.New("catalog has no unique Nil type")
	}
	layouts := []struct {
		name   string
		layout **catalog.Layout
		tag    *arena.Tag
	}{
		{"Word", &w.word, &w.wordTag},
		{"SmallString", &w.small, &w.smallTag},
		{"Cons", &w.cons, &w.consTag},
		{"String", &w.str, &w.stringTag},
	}
	for _, l := range layouts {
		layout, ok := m.Layout(l.name)
		if !ok || layout.Unique {
			return nil, fmt.Errorf("catalog has no concrete %s type", l.name)
		}
		*l.layout = layout
		*l.tag = a.Catalog().MustTag(l.name)
	}
	for r := 0; r < a.NumRegisters(); r++ {
		a.SetRegister(r, w.nilH)
	}
	return w, nil
}

func (w *workload) run(rounds int) {
	chains := w.a.NumRegisters() - 1
	scratch := chains
	for i := 0; i < rounds; i++ {
		// garbage word, like a temporary that never escapes
		w.a.AllocateWith(w.wordTag, w.word.FixedSize(), func(d []byte) {
			w.word.SetUint(d, "value", uint64(i))
		})

		text := fmt.Sprintf("%07d", i%10000000)
		s := w.a.AllocateWith(w.smallTag, w.small.FixedSize(), func(d []byte) {
			w.small.SetUint(d, "len", uint64(len(text)))
			copy(w.small.Bytes(d, "data"), text)
		})
		w.a.SetRegister(scratch, s)

		r := i % chains
		c := w.a.AllocateWith(w.consTag, w.cons.FixedSize(), func(d []byte) {
			w.cons.SetRef(d, "car", w.a.Register(scratch))
			w.cons.SetRef(d, "cdr", w.a.Register(r))
		})
		w.a.SetRegister(r, c)
		w.a.SetRegister(scratch, w.nilH)

		if w.rng.Intn(64) == 0 {
			w.a.SetRegister(w.rng.Intn(chains), w.nilH)
		}
		if w.rng.Intn(1000) == 0 {
			n := w.rng.Intn(200)
			w.a.AllocateWith(w.stringTag, w.str.SizeFor(n), func(d []byte) {
				w.str.SetUint(d, "len", uint64(n))
			})
		}
	}
}
