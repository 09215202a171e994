// ABOUTME: Mark-and-compact collector over the indirection table and payload region
// ABOUTME: Scratch bitmap and rewrite table are carved from the arena's free gap for one collection

package arena

import (
	"encoding/binary"
	"math/bits"
	"time"

	"github.com/sirupsen/logrus"
)

// liveMap is the per-collection liveness bitmap, one bit per handle.
type liveMap []byte

func (m liveMap) mark(h Handle)        { m[h/8] |= 1 << (h % 8) }
func (m liveMap) marked(h Handle) bool { return m[h/8]&(1<<(h%8)) != 0 }

// each calls fn for every marked handle above the reserved range, in
// ascending order, skipping empty 64-handle words.
func (m liveMap) each(reserved Handle, fn func(Handle)) {
	for w := 0; w*8 < len(m); w++ {
		word := binary.LittleEndian.Uint64(m[w*8:])
		for ; word != 0; word &= word - 1 {
			h := Handle(w*64 + bits.TrailingZeros64(word))
			if h > reserved {
				fn(h)
			}
		}
	}
}

// rewriteTable maps old handle to new handle. Before renumbering it serves
// as the mark work stack; the stack is empty by the time the first mapping is
// written.
type rewriteTable []byte

func (t rewriteTable) get(i Handle) Handle {
	return Handle(binary.LittleEndian.Uint32(t[uint64(i)*HandleSize:]))
}

func (t rewriteTable) set(i, h Handle) {
	binary.LittleEndian.PutUint32(t[uint64(i)*HandleSize:], uint32(h))
}

// Collect forces a full collection. Afterwards only handles re-read from the
// registers are valid.
func (a *Arena) Collect() {
	a.outsideCollection("collection request")
	a.collect()
}

func (a *Arena) collect() {
	start := time.Now()
	a.busy = true
	defer func() { a.busy = false }()

	n := uint64(a.nextII)
	reserved := Handle(a.cat.unique)
	if a.scratchSlots(n) > a.freeSlots() {
		a.fatal(ErrOutOfMemory, "no room for collection scratch: need %d slots, have %d", a.scratchSlots(n), a.freeSlots())
	}

	// Prepare.
	base := a.nextSI * a.slotSize
	lmLen := bitmapBytes(n)
	live := liveMap(a.mem[base : base+lmLen])
	rwBase := base + a.slotsFor(lmLen)*a.slotSize
	rw := rewriteTable(a.mem[rwBase : rwBase+n*HandleSize])
	clear(live)
	clear(rw)

	// Seed roots.
	for h := Handle(1); h <= reserved; h++ {
		live.mark(h)
	}
	var top Handle
	push := func(h Handle) {
		live.mark(h)
		rw.set(top, h)
		top++
	}
	for i, h := range a.registers {
		if h <= reserved {
			continue
		}
		if !a.allocated(h) {
			a.fatal(ErrCorruption, "register %d holds unallocated handle %d", i, h)
		}
		if !live.marked(h) {
			push(h)
		}
	}

	// Trace closure.
	var parent Handle
	var pdata []byte
	mark := func(off int) {
		c := ReadHandle(pdata, off)
		if c <= reserved {
			return
		}
		if !a.allocated(c) {
			a.fatal(ErrCorruption, "handle %d refers to unallocated handle %d at offset %d", parent, c, off)
		}
		if !live.marked(c) {
			push(c)
		}
	}
	for top > 0 {
		top--
		parent = rw.get(top)
		r := a.record(parent)
		trace := a.traceOf(parent, r)
		if trace == nil {
			continue
		}
		pdata, _ = a.payload(parent, r)
		trace(pdata, mark)
	}

	// Renumber.
	next := reserved + 1
	var survivors uint64
	live.each(reserved, func(h Handle) {
		if a.chunked && isChunkHeader(next) {
			next++
		}
		rw.set(h, next)
		next++
		survivors++
	})
	for h := Handle(0); h <= reserved; h++ {
		rw.set(h, h)
	}

	// Finalize the flagged dead while their payloads are still in place.
	a.fin.sweep(a.nextII, live.marked, func(h Handle) {
		r := a.record(h)
		tag := r.tag()
		if !a.cat.concrete(tag) || a.cat.finalize[tag] == nil {
			a.fatal(ErrCorruption, "handle %d flagged for finalization has type %d without a finalizer", h, tag)
		}
		data, _ := a.payload(h, r)
		a.cat.finalize[tag](h, data)
		a.stats.FinalizersRun++
	})

	// Compact.
	a.fin.begin()
	var cursor uint64
	var cur []byte
	rewrite := func(off int) {
		c := ReadHandle(cur, off)
		if c <= reserved {
			return
		}
		WriteHandle(cur, off, rw.get(c))
		a.stats.ReferenceRewrites++
	}
	live.each(reserved, func(h Handle) {
		nh := rw.get(h)
		if nh != h {
			copy(a.record(nh), a.record(h))
			a.stats.IndirectionShifts++
		}
		a.fin.move(h, nh)

		r := a.record(nh)
		if !r.immediate() {
			cursor += a.compactPayload(nh, r, cursor)
		}
		if trace := a.traceOf(nh, r); trace != nil {
			cur, _ = a.payload(nh, r)
			trace(cur, rewrite)
		}
	})

	// Rewrite roots.
	for i, h := range a.registers {
		if h > reserved {
			a.registers[i] = rw.get(h)
		}
	}

	// Commit.
	a.fin.commit(next)
	freedHandles := uint64(a.nextII) - uint64(next)
	freedSlots := a.nextSI - cursor
	a.nextII = next
	a.nextSI = cursor

	elapsed := time.Since(start)
	a.stats.Collections++
	a.stats.TotalCollection += elapsed
	if elapsed > a.stats.LongestCollection {
		a.stats.LongestCollection = elapsed
	}
	a.log.WithFields(logrus.Fields{
		"collection": a.stats.Collections,
		"live":       survivors,
		"freed":      freedHandles,
		"slots":      cursor,
		"reclaimed":  freedSlots,
		"elapsed":    elapsed,
	}).Debug("collection finished")
}

// compactPayload moves the payload of the record r (already at its new
// handle nh) down to cursor when it is not there yet, and returns the number
// of slots it occupies afterwards.
func (a *Arena) compactPayload(nh Handle, r record, cursor uint64) uint64 {
	si := r.slotIndex()
	data, used := a.payload(nh, r)
	if si == cursor {
		return used
	}
	if si < cursor {
		a.fatal(ErrCorruption, "handle %d payload at slot %d below compaction cursor %d", nh, si, cursor)
	}

	tag := r.tag()
	ss := a.slotSize
	src := a.mem[si*ss : (si+used)*ss]
	dst := a.mem[cursor*ss : cursor*ss+uint64(len(src))]
	var size int
	if move := a.cat.relocate[tag]; move != nil {
		size = move(dst, src)
	} else {
		size = copy(dst, data)
	}
	if size < 0 || size > len(src) {
		a.fatal(ErrCorruption, "relocating handle %d (%s) reported size %d of %d bytes", nh, a.cat.Name(tag), size, len(src))
	}
	r.setSlotIndex(cursor)
	a.stats.SlotShifts++
	return a.slotsFor(uint64(size))
}

// traceOf resolves the trace routine of a record, failing on unknown tags.
func (a *Arena) traceOf(h Handle, r record) TraceFunc {
	tag := r.tag()
	if !a.cat.concrete(tag) {
		a.fatal(ErrCorruption, "unknown type %d at handle %d", tag, h)
	}
	return a.cat.trace[tag]
}

// allocated reports whether h is a real object handle below the high-water
// mark.
func (a *Arena) allocated(h Handle) bool {
	if h == Null || h >= a.nextII {
		return false
	}
	return !a.chunked || !isChunkHeader(h)
}
