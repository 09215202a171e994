// ABOUTME: Tests for the snapshot graph store, reachability and reverse edges
// ABOUTME: Uses arena-shaped graphs where 0 is the null handle and 1..K are reserved singletons

package graph

import (
	"reflect"
	"testing"
)

// lispGraph models a snapshot of (1 2) plus a dropped symbol. Handle 1 is
// the reserved Nil singleton and never appears as an object.
func lispGraph() *MemGraph {
	g := NewMemGraph()
	g.AddObject(&Object{ID: 7, Type: "Cons", Size: 8, Ptrs: []ObjID{4, 1}})
	g.AddObject(&Object{ID: 3, Type: "Fixnum", Size: 8, Immediate: true})
	g.AddObject(&Object{ID: 5, Type: "Cons", Size: 8, Ptrs: []ObjID{3, 7}})
	g.AddObject(&Object{ID: 4, Type: "Fixnum", Size: 8, Immediate: true})
	g.AddObject(&Object{ID: 6, Type: "Symbol", Size: 21, Slots: 3})
	g.SetRoots(Roots{IDs: []ObjID{5}})
	return g
}

func TestMemGraphOrder(t *testing.T) {
	g := lispGraph()
	if g.NumObjects() != 5 {
		t.Fatalf("NumObjects() = %d, want 5", g.NumObjects())
	}

	var ids []ObjID
	g.ForEachObject(func(obj *Object) { ids = append(ids, obj.ID) })
	if want := []ObjID{3, 4, 5, 6, 7}; !reflect.DeepEqual(ids, want) {
		t.Errorf("iteration order = %v, want %v", ids, want)
	}

	// replacing keeps a single entry
	g.AddObject(&Object{ID: 6, Type: "Symbol", Size: 4})
	if g.NumObjects() != 5 {
		t.Errorf("NumObjects() after replace = %d, want 5", g.NumObjects())
	}
	if got := g.GetObject(6).Size; got != 4 {
		t.Errorf("replaced size = %d, want 4", got)
	}
	if g.GetObject(1) != nil {
		t.Error("reserved handle should not be an object")
	}
}

func TestTotalSize(t *testing.T) {
	if got := TotalSize(lispGraph()); got != 53 {
		t.Errorf("TotalSize() = %d, want 53", got)
	}
	if got := TotalSize(NewMemGraph()); got != 0 {
		t.Errorf("TotalSize(empty) = %d, want 0", got)
	}
}

func TestReachableAndGarbage(t *testing.T) {
	g := lispGraph()
	live := Reachable(g)
	want := map[ObjID]bool{3: true, 4: true, 5: true, 7: true}
	if !reflect.DeepEqual(live, want) {
		t.Errorf("Reachable() = %v, want %v", live, want)
	}
	if got := Garbage(g); !reflect.DeepEqual(got, []ObjID{6}) {
		t.Errorf("Garbage() = %v, want [6]", got)
	}

	g.SetRoots(Roots{})
	if got := Garbage(g); len(got) != 5 {
		t.Errorf("with no roots everything is garbage, got %v", got)
	}
}

func TestBuildReverseEdges(t *testing.T) {
	g := NewMemGraph()
	g.AddObject(&Object{ID: 2, Ptrs: []ObjID{3, 3, 0}})
	g.AddObject(&Object{ID: 3, Ptrs: []ObjID{2}})
	g.AddObject(&Object{ID: 4, Ptrs: []ObjID{3}})

	rev := BuildReverseEdges(g)
	tests := []struct {
		id   ObjID
		want []ObjID
	}{
		{2, []ObjID{3}},
		{3, []ObjID{2, 4}},
		{4, nil},
		{0, nil},
	}
	for _, tt := range tests {
		if got := rev[tt.id]; !reflect.DeepEqual(got, tt.want) {
			t.Errorf("referrers of %d = %v, want %v", tt.id, got, tt.want)
		}
	}
}
