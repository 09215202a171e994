// ABOUTME: Graph interface and in-memory implementation
// ABOUTME: Stores snapshot objects by ID and iterates them in ascending ID order

package graph

import (
	"sort"
	"sync"
)

// Graph is a read/write view of an object graph.
type Graph interface {
	// AddObject adds or replaces an object
	AddObject(obj *Object)

	// GetObject returns the object with id, or nil
	GetObject(id ObjID) *Object

	NumObjects() int

	// ForEachObject visits objects in ascending ID order
	ForEachObject(fn func(*Object))

	SetRoots(roots Roots)
	GetRoots() Roots
}

// MemGraph is an in-memory Graph.
type MemGraph struct {
	mu      sync.RWMutex
	objects map[ObjID]*Object
	order   []ObjID // sorted lazily
	sorted  bool
	roots   Roots
}

// NewMemGraph creates an empty graph.
func NewMemGraph() *MemGraph {
	return &MemGraph{
		objects: make(map[ObjID]*Object),
		sorted:  true,
	}
}

func (g *MemGraph) AddObject(obj *Object) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.objects[obj.ID]; !ok {
		if n := len(g.order); n > 0 && g.order[n-1] > obj.ID {
			g.sorted = false
		}
		g.order = append(g.order, obj.ID)
	}
	g.objects[obj.ID] = obj
}

func (g *MemGraph) GetObject(id ObjID) *Object {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.objects[id]
}

func (g *MemGraph) NumObjects() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.objects)
}

func (g *MemGraph) ForEachObject(fn func(*Object)) {
	g.mu.Lock()
	if !g.sorted {
		sort.Slice(g.order, func(i, j int) bool { return g.order[i] < g.order[j] })
		g.sorted = true
	}
	objs := make([]*Object, len(g.order))
	for i, id := range g.order {
		objs[i] = g.objects[id]
	}
	g.mu.Unlock()

	for _, obj := range objs {
		fn(obj)
	}
}

func (g *MemGraph) SetRoots(roots Roots) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.roots = roots
}

func (g *MemGraph) GetRoots() Roots {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.roots
}

// TotalSize sums the payload bytes of every object.
func TotalSize(g Graph) uint64 {
	var total uint64
	g.ForEachObject(func(obj *Object) { total += obj.Size })
	return total
}

// Reachable returns the objects reachable from the roots. Pointers to IDs
// that are not in the graph (null, reserved handles) are ignored.
func Reachable(g Graph) map[ObjID]bool {
	seen := make(map[ObjID]bool)
	stack := append([]ObjID(nil), g.GetRoots().IDs...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		obj := g.GetObject(id)
		if obj == nil {
			continue
		}
		seen[id] = true
		stack = append(stack, obj.Ptrs...)
	}
	return seen
}

// Garbage returns, in ascending order, the objects the next collection will
// reclaim.
func Garbage(g Graph) []ObjID {
	live := Reachable(g)
	var dead []ObjID
	g.ForEachObject(func(obj *Object) {
		if !live[obj.ID] {
			dead = append(dead, obj.ID)
		}
	})
	return dead
}

// ReverseEdges maps each object to the objects that point to it.
type ReverseEdges map[ObjID][]ObjID

// BuildReverseEdges indexes referrers. An object pointing at the same child
// twice is listed once.
func BuildReverseEdges(g Graph) ReverseEdges {
	reverse := make(ReverseEdges)
	g.ForEachObject(func(obj *Object) {
		for i, target := range obj.Ptrs {
			if target == 0 || dupBefore(obj.Ptrs, i) {
				continue
			}
			reverse[target] = append(reverse[target], obj.ID)
		}
	})
	return reverse
}

func dupBefore(ids []ObjID, i int) bool {
	for _, id := range ids[:i] {
		if id == ids[i] {
			return true
		}
	}
	return false
}
