// ABOUTME: Finalization flag bookkeeping: a side bitmap or masks stored in chunk header records
// ABOUTME: Both are scanned a 64-handle chunk at a time and re-keyed to new handles during compaction

package arena

import (
	"math/bits"

	"github.com/bits-and-blooms/bitset"
)

// finalizers tracks which handles still owe a finalizer call.
//
// During a collection the collector calls sweep once (old numbering), then
// begin, move for every surviving handle in ascending old order, and commit.
type finalizers interface {
	flag(h Handle)
	flagged(h Handle) bool
	pending() int
	sweep(limit Handle, live func(Handle) bool, run func(Handle))
	begin()
	move(from, to Handle)
	commit(next Handle)
}

// sideFinalizers keeps flags in a bitmap outside the arena.
type sideFinalizers struct {
	cur, next *bitset.BitSet
}

func newSideFinalizers() *sideFinalizers {
	return &sideFinalizers{cur: bitset.New(ChunkSize), next: bitset.New(ChunkSize)}
}

func (s *sideFinalizers) flag(h Handle)         { s.cur.Set(uint(h)) }
func (s *sideFinalizers) flagged(h Handle) bool { return s.cur.Test(uint(h)) }
func (s *sideFinalizers) pending() int          { return int(s.cur.Count()) }

func (s *sideFinalizers) sweep(limit Handle, live func(Handle) bool, run func(Handle)) {
	// NextSet skips whole zero words, so flag-free chunks cost one compare.
	for i, ok := s.cur.NextSet(0); ok && i < uint(limit); i, ok = s.cur.NextSet(i + 1) {
		h := Handle(i)
		if !live(h) {
			run(h)
			s.cur.Clear(i)
		}
	}
}

func (s *sideFinalizers) begin() { s.next.ClearAll() }

func (s *sideFinalizers) move(from, to Handle) {
	if s.cur.Test(uint(from)) {
		s.next.Set(uint(to))
	}
}

func (s *sideFinalizers) commit(Handle) { s.cur, s.next = s.next, s.cur }

// chunkFinalizers keeps flags in the records of chunk header handles. Handle
// c*64 holds a mask whose bit i means handle c*64+i is pending. Old and new
// numberings share the same header positions, so move captures an old mask
// before the header is reset for the new numbering; renumbering never moves a
// handle into a later chunk, which keeps that order safe.
type chunkFinalizers struct {
	a *Arena

	started  bool
	oldChunk Handle
	oldMask  uint64
	newChunk Handle
}

func (c *chunkFinalizers) flag(h Handle) {
	r := c.a.record(chunkOf(h))
	r.setMask(r.mask() | 1<<(h%ChunkSize))
}

func (c *chunkFinalizers) flagged(h Handle) bool {
	return c.a.record(chunkOf(h)).mask()&(1<<(h%ChunkSize)) != 0
}

func (c *chunkFinalizers) pending() int {
	n := 0
	for h := uint64(0); h < uint64(c.a.nextII); h += ChunkSize {
		n += bits.OnesCount64(c.a.record(Handle(h)).mask())
	}
	return n
}

func (c *chunkFinalizers) sweep(limit Handle, live func(Handle) bool, run func(Handle)) {
	for base := uint64(0); base < uint64(limit); base += ChunkSize {
		r := c.a.record(Handle(base))
		mask := r.mask()
		if mask == 0 {
			continue
		}
		for m := mask; m != 0; m &= m - 1 {
			b := bits.TrailingZeros64(m)
			h := Handle(base) + Handle(b)
			if !live(h) {
				run(h)
				mask &^= 1 << b
			}
		}
		r.setMask(mask)
	}
}

func (c *chunkFinalizers) begin() { c.started = false }

func (c *chunkFinalizers) move(from, to Handle) {
	if oc := chunkOf(from); !c.started || oc != c.oldChunk {
		c.oldChunk = oc
		c.oldMask = c.a.record(oc).mask()
	}
	if nc := chunkOf(to); !c.started || nc != c.newChunk {
		c.newChunk = nc
		c.a.record(nc).setMask(0)
	}
	c.started = true
	if c.oldMask&(1<<(from%ChunkSize)) != 0 {
		r := c.a.record(c.newChunk)
		r.setMask(r.mask() | 1<<(to%ChunkSize))
	}
}

// commit clears the header of the chunk new allocations continue in when no
// survivor landed there, so stale old-numbering bits cannot leak into it.
func (c *chunkFinalizers) commit(next Handle) {
	if nc := chunkOf(next); !c.started || c.newChunk != nc {
		c.a.record(nc).setMask(0)
	}
}
