// ABOUTME: Tests for the paths-to-roots search
// ABOUTME: Validates shortest-first ordering, cycles, multiple registers and limits

package graph

import (
	"reflect"
	"testing"
)

func TestPathsToRoots(t *testing.T) {
	// 2 (root) -> 3 -> 4
	//          -> 5 -> 4
	// 6 (root) -> 4
	g := buildGraph([]ObjID{2, 6}, map[ObjID][]ObjID{
		2: {3, 5},
		3: {4},
		4: nil,
		5: {4, 1},
		6: {4},
		7: {2},
	})

	tests := []struct {
		name     string
		from     ObjID
		maxPaths int
		want     []Path
	}{
		{"root itself", 2, 5, []Path{{IDs: []ObjID{2}}}},
		{"one hop", 3, 5, []Path{{IDs: []ObjID{3, 2}}}},
		{"shortest first", 4, 5, []Path{
			{IDs: []ObjID{4, 6}},
			{IDs: []ObjID{4, 3, 2}},
			{IDs: []ObjID{4, 5, 2}},
		}},
		{"limited", 4, 2, []Path{
			{IDs: []ObjID{4, 6}},
			{IDs: []ObjID{4, 3, 2}},
		}},
		{"garbage", 7, 5, nil},
		{"zero limit", 4, 0, nil},
		{"unknown object", 42, 5, nil},
		{"reserved handle", 1, 5, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PathsToRoots(g, tt.from, tt.maxPaths)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("PathsToRoots(%d) = %v, want %v", tt.from, got, tt.want)
			}
		})
	}
}

func TestPathsToRootsCycle(t *testing.T) {
	g := buildGraph([]ObjID{2}, map[ObjID][]ObjID{2: {3}, 3: {4}, 4: {3, 4}})
	got := PathsToRoots(g, 4, 10)
	want := []Path{{IDs: []ObjID{4, 3, 2}}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PathsToRoots() = %v, want %v", got, want)
	}
}
