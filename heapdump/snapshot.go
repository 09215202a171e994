// ABOUTME: Converts a live arena into an object graph for analysis and dumping
// ABOUTME: Includes objects that are garbage but not yet collected; roots are the register contents

package heapdump

import (
	"github.com/prateek/zgc/arena"
	"github.com/prateek/zgc/graph"
)

// Snapshot records every allocated object of a. names maps tags to type
// names; nil uses the arena's catalog. Registers holding null or a reserved
// singleton are not roots since neither is an object.
func Snapshot(a *arena.Arena, names func(arena.Tag) string) *graph.MemGraph {
	cat := a.Catalog()
	if names == nil {
		names = cat.Name
	}

	g := graph.NewMemGraph()
	a.Objects(func(o arena.Object) bool {
		obj := &graph.Object{
			ID:        graph.ObjID(o.Handle),
			Type:      names(o.Tag),
			Size:      uint64(o.Size),
			Slots:     o.Slots,
			Immediate: o.Immediate,
			Finalize:  o.Finalize,
		}
		for _, c := range o.Refs {
			obj.Ptrs = append(obj.Ptrs, graph.ObjID(c))
		}
		g.AddObject(obj)
		return true
	})

	var roots graph.Roots
	for _, h := range a.Registers() {
		if int(h) > cat.NumUnique() {
			roots.IDs = append(roots.IDs, graph.ObjID(h))
		}
	}
	g.SetRoots(roots)
	return g
}
