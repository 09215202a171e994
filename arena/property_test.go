// ABOUTME: Property-based tests for the collector over random object graphs
// ABOUTME: Checks reachability, unreachability, compaction, root rewriting and the safe-point discipline

package arena

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// model is the expected shape of a random graph: node i has id i and
// points at kids[i] (indices of earlier nodes, -1 for Null).
type model struct {
	kids  [][]int
	roots []int // per register, -1 for Null
}

func randomModel(rng *rand.Rand, nodes, registers int) model {
	m := model{kids: make([][]int, nodes), roots: make([]int, registers)}
	for i := range m.kids {
		n := rng.Intn(5)
		for j := 0; j < n; j++ {
			if i == 0 || rng.Intn(6) == 0 {
				m.kids[i] = append(m.kids[i], -1)
			} else {
				m.kids[i] = append(m.kids[i], rng.Intn(i))
			}
		}
	}
	for r := range m.roots {
		if rng.Intn(4) == 0 {
			m.roots[r] = -1
		} else {
			m.roots[r] = rng.Intn(nodes)
		}
	}
	return m
}

func (m model) reachable() map[uint32]bool {
	seen := make(map[uint32]bool)
	var stack []int
	for _, r := range m.roots {
		if r >= 0 {
			stack = append(stack, r)
		}
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[uint32(i)] {
			continue
		}
		seen[uint32(i)] = true
		for _, k := range m.kids[i] {
			if k >= 0 {
				stack = append(stack, k)
			}
		}
	}
	return seen
}

// build allocates the model into a fresh arena, interleaving garbage blobs.
// The arena is large enough that no collection happens while building, so
// handles held in the local slice stay valid.
func build(t *testing.T, rng *rand.Rand, m model, chunked bool) (*fixture, int) {
	f := newFixture(t, len(m.roots), 16*MinSlots, chunked)
	handles := make([]Handle, len(m.kids))
	for i, kids := range m.kids {
		if rng.Intn(3) == 0 {
			f.newBlob(byte(i), rng.Intn(40))
		}
		if rng.Intn(4) == 0 {
			f.newResource(uint32(100000 + i))
		}
		handles[i] = f.newNode(uint32(i), len(kids), func(j int) Handle {
			if kids[j] < 0 {
				return Null
			}
			return handles[kids[j]]
		})
	}
	for r, i := range m.roots {
		if i >= 0 {
			f.a.SetRegister(r, handles[i])
		}
	}
	require.Zero(t, f.a.Stats().Collections, "building must not collect")

	pending := 0
	f.a.Objects(func(o Object) bool {
		if o.Finalize {
			pending++
		}
		return true
	})
	return f, pending
}

// walk verifies every node reachable from the registers against the model
// and returns the ids it visited.
func walk(t *testing.T, f *fixture, m model) map[uint32]bool {
	seen := make(map[uint32]bool)
	var stack []Handle
	for r := range m.roots {
		h := f.a.Register(r)
		if m.roots[r] < 0 {
			assert.Equal(t, Null, h, "null register %d changed", r)
			continue
		}
		require.NotEqual(t, Null, h)
		assert.Equal(t, uint32(m.roots[r]), f.nodeID(h), "register %d", r)
		stack = append(stack, h)
	}
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		require.Equal(t, f.node, f.a.TypeOf(h))
		id := f.nodeID(h)
		if seen[id] {
			continue
		}
		seen[id] = true
		kids := f.nodeKids(h)
		require.Len(t, kids, len(m.kids[id]))
		for j, k := range kids {
			if m.kids[id][j] < 0 {
				assert.Equal(t, Null, k)
				continue
			}
			assert.Equal(t, uint32(m.kids[id][j]), f.nodeID(k), "node %d kid %d", id, j)
			stack = append(stack, k)
		}
	}
	return seen
}

// Property: everything reachable survives with identical contents, and
// nothing else does.
func TestPropertyReachability(t *testing.T) {
	for i := 0; i < 60; i++ {
		rng := rand.New(rand.NewSource(int64(i)))
		m := randomModel(rng, 20+rng.Intn(200), 1+rng.Intn(6))
		f, _ := build(t, rng, m, i%2 == 1)

		f.a.Collect()

		want := m.reachable()
		assert.Equal(t, want, walk(t, f, m), "seed %d", i)

		live := 0
		f.a.Objects(func(o Object) bool {
			live++
			return true
		})
		assert.Equal(t, len(want), live, "seed %d: unreachable objects survived", i)
	}
}

// Property: payload usage never grows and numbering is dense above the
// reserved range, apart from the chunk header handles.
func TestPropertyCompactionMonotonic(t *testing.T) {
	for _, chunked := range []bool{false, true} {
		for i := 0; i < 40; i++ {
			rng := rand.New(rand.NewSource(int64(1000 + i)))
			m := randomModel(rng, 50+rng.Intn(150), 3)
			f, _ := build(t, rng, m, chunked)

			before := f.a.Stats()
			f.a.Collect()
			after := f.a.Stats()
			assert.LessOrEqual(t, after.NextSlot, before.NextSlot)
			assert.LessOrEqual(t, after.NextHandle, before.NextHandle)

			var got []Handle
			f.a.Objects(func(o Object) bool {
				got = append(got, o.Handle)
				return true
			})
			want := Handle(f.cat.NumUnique() + 1)
			for _, h := range got {
				if chunked && isChunkHeader(want) {
					want++
				}
				assert.Equal(t, want, h, "seed %d chunked %v", i, chunked)
				want++
			}

			// A second collection over an already compact heap moves nothing.
			f.a.Collect()
			again := f.a.Stats()
			assert.Equal(t, after.NextSlot, again.NextSlot)
			assert.Equal(t, after.SlotShifts, again.SlotShifts)
			assert.Equal(t, after.IndirectionShifts, again.IndirectionShifts)
		}
	}
}

// Property: each flagged object is finalized exactly once, in the collection
// where it first becomes unreachable.
func TestPropertyFinalizeExactlyOnce(t *testing.T) {
	for i := 0; i < 30; i++ {
		rng := rand.New(rand.NewSource(int64(2000 + i)))
		m := randomModel(rng, 30+rng.Intn(100), 2)
		f, pending := build(t, rng, m, i%2 == 0)

		f.a.Collect()
		// Resources are never referenced, so all of them die now.
		assert.Len(t, f.finalized, pending, "seed %d", i)
		for id, n := range f.finalized {
			assert.Equal(t, 1, n, "resource %d", id)
		}

		f.a.Collect()
		for id, n := range f.finalized {
			assert.Equal(t, 1, n, "resource %d finalized again", id)
		}
	}
}

// Property: registers are rewritten to the new handles of their objects;
// registers sharing an object still share it.
func TestPropertyRootRewrite(t *testing.T) {
	for _, chunked := range []bool{false, true} {
		for i := 0; i < 40; i++ {
			rng := rand.New(rand.NewSource(int64(3000 + i)))
			m := randomModel(rng, 40, 8)
			f, _ := build(t, rng, m, chunked)

			f.a.Collect()

			byID := map[int]Handle{}
			for r, idx := range m.roots {
				h := f.a.Register(r)
				if idx < 0 {
					assert.Equal(t, Null, h)
					continue
				}
				if prev, ok := byID[idx]; ok {
					assert.Equal(t, prev, h, "registers sharing node %d diverged", idx)
				}
				byID[idx] = h
				assert.Less(t, h, f.a.Stats().NextHandle)
				if chunked {
					assert.False(t, isChunkHeader(h), "register %d holds a chunk header", r)
				}
			}
		}
	}
}

// Property: the safe-point discipline. Building a list through the register
// (re-reading it after every allocation) survives any number of implicit
// collections.
func TestPropertySafePointDiscipline(t *testing.T) {
	for _, chunked := range []bool{false, true} {
		f := newFixture(t, 2, 8*MinSlots, chunked)
		rng := rand.New(rand.NewSource(42))

		const n = 3000
		for i := 0; i < n; i++ {
			h := f.newNode(uint32(i), 1, func(int) Handle { return f.a.Register(0) })
			f.a.SetRegister(0, h)
			f.newBlob(byte(i), rng.Intn(80))
			f.a.SetRegister(1, f.a.Register(0))
		}
		require.NotZero(t, f.a.Stats().Collections)
		assert.Equal(t, f.a.Register(0), f.a.Register(1))

		var ids []int
		for h := f.a.Register(0); h != Null; h = f.nodeKids(h)[0] {
			ids = append(ids, int(f.nodeID(h)))
		}
		require.Len(t, ids, n)
		assert.True(t, sort.SliceIsSorted(ids, func(a, b int) bool { return ids[a] > ids[b] }))
		assert.Equal(t, n-1, ids[0])
	}
}

// A handle kept in a local across a collection no longer names its object.
func TestStaleHandleAfterCollection(t *testing.T) {
	f := newFixture(t, 1, MinSlots, false)
	f.newBlob('g', 50) // garbage below the survivor
	h := f.newSmallString("ok")
	f.a.SetRegister(0, h)

	f.a.Collect()

	fresh := f.a.Register(0)
	require.NotEqual(t, h, fresh)
	assert.Equal(t, "ok", f.smallStringValue(fresh))
	requireFatal(t, ErrBounds, func() { f.a.Data(h) })
}
