// ABOUTME: Retained sizes from the dominator tree
// ABOUTME: Answers how many payload bytes a collection would free if an object became unreachable
package graph

import "sort"

// RetainedSize returns, for every reachable object, its own size plus the
// sizes of everything it dominates.
func RetainedSize(g Graph) map[ObjID]uint64 {
	retained := retainedSizes(g)
	delete(retained, 0)
	return retained
}

// RetainedSizeSubsets returns retained sizes for the reachable members of ids.
func RetainedSizeSubsets(g Graph, ids []ObjID) map[ObjID]uint64 {
	result := make(map[ObjID]uint64)
	if len(ids) == 0 {
		return result
	}
	all := retainedSizes(g)
	for _, id := range ids {
		if size, ok := all[id]; ok && id != 0 {
			result[id] = size
		}
	}
	return result
}

// Retainer is one row of a retained-size ranking.
type Retainer struct {
	ID       ObjID
	Type     string
	Size     uint64
	Retained uint64
}

// TopRetainers ranks reachable objects by retained size, largest first,
// breaking ties by ID.
func TopRetainers(g Graph, n int) []Retainer {
	var rows []Retainer
	for id, size := range RetainedSize(g) {
		obj := g.GetObject(id)
		rows = append(rows, Retainer{ID: id, Type: obj.Type, Size: obj.Size, Retained: size})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Retained != rows[j].Retained {
			return rows[i].Retained > rows[j].Retained
		}
		return rows[i].ID < rows[j].ID
	})
	if n >= 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

// retainedSizes sums sizes bottom-up over the dominator tree, including
// the super-root.
func retainedSizes(g Graph) map[ObjID]uint64 {
	tree := DominatorTree(Dominators(g))

	// preorder, then accumulate in reverse so children finish first
	order := []ObjID{0}
	for i := 0; i < len(order); i++ {
		order = append(order, tree[order[i]]...)
	}
	retained := make(map[ObjID]uint64, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		var size uint64
		if obj := g.GetObject(id); obj != nil && id != 0 {
			size = obj.Size
		}
		for _, child := range tree[id] {
			size += retained[child]
		}
		retained[id] = size
	}
	return retained
}

func sortIDs(ids []ObjID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

// DominatorDepth returns each node's depth in the dominator tree; the
// super-root has depth 0.
func DominatorDepth(tree map[ObjID][]ObjID) map[ObjID]int {
	depth := map[ObjID]int{0: 0}
	queue := []ObjID{0}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, child := range tree[node] {
			depth[child] = depth[node] + 1
			queue = append(queue, child)
		}
	}
	return depth
}
