// ABOUTME: Shortest referrer chains from an object back to a register root
// ABOUTME: Breadth-first over reverse edges with per-path cycle detection

package graph

// Path is a chain of handles from a target object to a root, inclusive.
type Path struct {
	IDs []ObjID
}

// PathsToRoots returns up to maxPaths shortest simple paths from an object
// to the roots. A root reaches itself with a one-element path; the search
// does not continue past a root.
func PathsToRoots(g Graph, from ObjID, maxPaths int) []Path {
	if maxPaths <= 0 || g.GetObject(from) == nil {
		return nil
	}

	rootSet := make(map[ObjID]bool)
	for _, id := range g.GetRoots().IDs {
		rootSet[id] = true
	}
	if rootSet[from] {
		return []Path{{IDs: []ObjID{from}}}
	}

	reverse := BuildReverseEdges(g)
	var result []Path
	queue := [][]ObjID{{from}}
	for len(queue) > 0 && len(result) < maxPaths {
		path := queue[0]
		queue = queue[1:]

		for _, ref := range reverse[path[len(path)-1]] {
			if contains(path, ref) {
				continue
			}
			next := make([]ObjID, len(path)+1)
			copy(next, path)
			next[len(path)] = ref

			if rootSet[ref] {
				result = append(result, Path{IDs: next})
				if len(result) == maxPaths {
					break
				}
				continue
			}
			queue = append(queue, next)
		}
	}
	return result
}

func contains(ids []ObjID, id ObjID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
