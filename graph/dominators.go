// ABOUTME: Lengauer-Tarjan immediate dominators over a snapshot graph
// ABOUTME: Dense DFS numbering and iterative traversal so long arena lists do not recurse deeply
package graph

// Dominators computes the immediate dominator of every reachable object.
// A virtual super-root (ID 0, which is never an object since 0 is the null
// handle) points at every root, so roots map to 0.
func Dominators(g Graph) map[ObjID]ObjID {
	d := newDomState(g)
	d.compute()

	idom := make(map[ObjID]ObjID, len(d.vertex)-1)
	for w := 1; w < len(d.vertex); w++ {
		idom[d.vertex[w]] = d.vertex[d.idom[w]]
	}
	return idom
}

// domState holds per-vertex arrays indexed by DFS number. Vertex 0 is the
// super-root.
type domState struct {
	vertex   []ObjID
	parent   []int
	semi     []int
	ancestor []int
	label    []int
	idom     []int
	preds    [][]int
}

func successors(g Graph, id ObjID) []ObjID {
	if id == 0 {
		return g.GetRoots().IDs
	}
	if obj := g.GetObject(id); obj != nil {
		return obj.Ptrs
	}
	return nil
}

func newDomState(g Graph) *domState {
	d := &domState{}
	dfn := map[ObjID]int{}

	visit := func(id ObjID, parent int) {
		dfn[id] = len(d.vertex)
		d.vertex = append(d.vertex, id)
		d.parent = append(d.parent, parent)
	}

	type frame struct {
		id   ObjID
		next int
	}
	visit(0, -1)
	stack := []frame{{id: 0}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		succ := successors(g, top.id)
		if top.next == len(succ) {
			stack = stack[:len(stack)-1]
			continue
		}
		w := succ[top.next]
		top.next++
		if _, seen := dfn[w]; seen || w == 0 || g.GetObject(w) == nil {
			continue
		}
		visit(w, dfn[top.id])
		stack = append(stack, frame{id: w})
	}

	n := len(d.vertex)
	d.semi = make([]int, n)
	d.ancestor = make([]int, n)
	d.label = make([]int, n)
	d.idom = make([]int, n)
	d.preds = make([][]int, n)
	for v := 0; v < n; v++ {
		d.semi[v] = v
		d.ancestor[v] = -1
		d.label[v] = v
		for _, w := range successors(g, d.vertex[v]) {
			if wn, ok := dfn[w]; ok && w != 0 {
				d.preds[wn] = append(d.preds[wn], v)
			}
		}
	}
	return d
}

func (d *domState) compute() {
	n := len(d.vertex)
	bucket := make([][]int, n)
	for w := n - 1; w > 0; w-- {
		for _, v := range d.preds[w] {
			if u := d.eval(v); d.semi[u] < d.semi[w] {
				d.semi[w] = d.semi[u]
			}
		}
		bucket[d.semi[w]] = append(bucket[d.semi[w]], w)

		p := d.parent[w]
		d.ancestor[w] = p
		for _, v := range bucket[p] {
			if u := d.eval(v); d.semi[u] < d.semi[v] {
				d.idom[v] = u
			} else {
				d.idom[v] = p
			}
		}
		bucket[p] = nil
	}
	for w := 1; w < n; w++ {
		if d.idom[w] != d.semi[w] {
			d.idom[w] = d.idom[d.idom[w]]
		}
	}
}

func (d *domState) eval(v int) int {
	if d.ancestor[v] < 0 {
		return v
	}
	d.compress(v)
	return d.label[v]
}

// compress performs path compression from v toward its forest root,
// deepest ancestor first.
func (d *domState) compress(v int) {
	var path []int
	for u := v; d.ancestor[d.ancestor[u]] >= 0; u = d.ancestor[u] {
		path = append(path, u)
	}
	for i := len(path) - 1; i >= 0; i-- {
		u := path[i]
		a := d.ancestor[u]
		if d.semi[d.label[a]] < d.semi[d.label[u]] {
			d.label[u] = d.label[a]
		}
		d.ancestor[u] = d.ancestor[a]
	}
}

// DominatorTree inverts an idom map into children lists. The super-root
// (0) is always present.
func DominatorTree(idom map[ObjID]ObjID) map[ObjID][]ObjID {
	tree := map[ObjID][]ObjID{0: {}}
	for node, dom := range idom {
		tree[dom] = append(tree[dom], node)
	}
	for _, kids := range tree {
		sortIDs(kids)
	}
	return tree
}

// DominatorPath returns node followed by its dominators up to and
// including the super-root.
func DominatorPath(idom map[ObjID]ObjID, node ObjID) []ObjID {
	path := []ObjID{node}
	for node != 0 {
		dom, ok := idom[node]
		if !ok {
			dom = 0
		}
		path = append(path, dom)
		node = dom
	}
	return path
}

// IsDominated reports whether every path from the roots to node passes
// through dominator. A node dominates itself.
func IsDominated(idom map[ObjID]ObjID, node, dominator ObjID) bool {
	for {
		if node == dominator {
			return true
		}
		dom, ok := idom[node]
		if !ok {
			return dominator == 0
		}
		node = dom
	}
}
