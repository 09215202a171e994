// ABOUTME: Shared test catalog and helpers for arena tests
// ABOUTME: Defines Mu, SmallString, Cons, Node, Blob and Resource types plus fatal-panic assertions

package arena

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

const testSlotSize = 16 // inline capacity 12

// fixture bundles an arena with the tags of the test catalog and a record of
// finalizer calls keyed by the finalized object's id.
type fixture struct {
	a         *Arena
	cat       *Catalog
	finalized map[uint32]int

	mu, smallString, cons, node, blob, resource Tag
}

func testTypes(finalized map[uint32]int) []Type {
	return []Type{
		{Name: "Mu", Unique: true},
		// size:u8 data:[7]byte
		{Name: "SmallString", Size: 8},
		// car:ref cdr:ref
		{Name: "Cons", Size: 8, Trace: func(data []byte, yield func(int)) {
			yield(0)
			yield(4)
		}},
		// id:u32 count:u32 refs:[count]ref
		{
			Name: "Node",
			Size: 8,
			SizeOf: func(data []byte) int {
				return 8 + 4*int(binary.LittleEndian.Uint32(data[4:8]))
			},
			Trace: func(data []byte, yield func(int)) {
				n := int(binary.LittleEndian.Uint32(data[4:8]))
				for i := 0; i < n; i++ {
					yield(8 + 4*i)
				}
			},
		},
		// len:u32 data:[len]byte
		{Name: "Blob", Size: 4, SizeOf: func(data []byte) int {
			return 4 + int(binary.LittleEndian.Uint32(data[0:4]))
		}},
		// id:u32
		{Name: "Resource", Size: 4, Finalize: func(h Handle, data []byte) {
			finalized[binary.LittleEndian.Uint32(data)]++
		}},
		{Name: "Nil", Unique: true},
	}
}

func newFixture(t *testing.T, registers, slots int, chunked bool) *fixture {
	t.Helper()
	f := &fixture{finalized: make(map[uint32]int)}
	cat, err := NewCatalog(registers, testSlotSize, testTypes(f.finalized)...)
	require.NoError(t, err)
	f.cat = cat
	f.a, err = New(cat, Config{Capacity: slots * testSlotSize, ChunkHeaders: chunked})
	require.NoError(t, err)
	f.mu = cat.MustTag("Mu")
	f.smallString = cat.MustTag("SmallString")
	f.cons = cat.MustTag("Cons")
	f.node = cat.MustTag("Node")
	f.blob = cat.MustTag("Blob")
	f.resource = cat.MustTag("Resource")
	return f
}

func (f *fixture) newSmallString(s string) Handle {
	return f.a.AllocateWith(f.smallString, 8, func(data []byte) {
		data[0] = byte(len(s))
		copy(data[1:], s)
	})
}

func (f *fixture) smallStringValue(h Handle) string {
	data := f.a.Data(h)
	return string(data[1 : 1+data[0]])
}

func (f *fixture) newCons(car, cdr Handle) Handle {
	return f.a.AllocateWith(f.cons, 8, func(data []byte) {
		WriteHandle(data, 0, car)
		WriteHandle(data, 4, cdr)
	})
}

// newNode allocates a Node whose children are produced by kids after any
// collection the allocation triggers, so kids may read registers.
func (f *fixture) newNode(id uint32, n int, kids func(i int) Handle) Handle {
	return f.a.AllocateWith(f.node, 8+4*n, func(data []byte) {
		binary.LittleEndian.PutUint32(data[0:4], id)
		binary.LittleEndian.PutUint32(data[4:8], uint32(n))
		for i := 0; i < n; i++ {
			WriteHandle(data, 8+4*i, kids(i))
		}
	})
}

func (f *fixture) nodeID(h Handle) uint32 {
	return binary.LittleEndian.Uint32(f.a.Data(h)[0:4])
}

func (f *fixture) nodeKids(h Handle) []Handle {
	data := f.a.Data(h)
	n := int(binary.LittleEndian.Uint32(data[4:8]))
	kids := make([]Handle, n)
	for i := range kids {
		kids[i] = ReadHandle(data, 8+4*i)
	}
	return kids
}

func (f *fixture) newBlob(fill byte, n int) Handle {
	return f.a.AllocateWith(f.blob, 4+n, func(data []byte) {
		binary.LittleEndian.PutUint32(data[0:4], uint32(n))
		for i := 4; i < len(data); i++ {
			data[i] = fill
		}
	})
}

func (f *fixture) newResource(id uint32) Handle {
	return f.a.AllocateWith(f.resource, 4, func(data []byte) {
		binary.LittleEndian.PutUint32(data, id)
	})
}

// requireFatal asserts that fn panics with a *FatalError of the given kind.
func requireFatal(t *testing.T, kind error, fn func()) {
	t.Helper()
	var got interface{}
	func() {
		defer func() { got = recover() }()
		fn()
	}()
	require.NotNil(t, got, "expected a fatal panic")
	err, ok := got.(error)
	require.True(t, ok, "panic value %v is not an error", got)
	require.ErrorIs(t, err, kind)
	var fe *FatalError
	require.ErrorAs(t, err, &fe)
}
