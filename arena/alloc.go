// ABOUTME: Allocator: immediate inlining, payload slot reservation and the collection trigger
// ABOUTME: Every allocation keeps enough headroom for the scratch space of a future collection

package arena

// Allocate creates an object of type tag with a zeroed payload of size
// bytes. It may collect, which invalidates every handle not held in a
// register.
func (a *Arena) Allocate(tag Tag, size int) Handle {
	return a.AllocateWith(tag, size, nil)
}

// AllocateWith is Allocate followed by init on exactly size payload bytes.
// init runs after any collection, so handles it reads from registers are
// current; it must not allocate.
func (a *Arena) AllocateWith(tag Tag, size int, init func(data []byte)) Handle {
	a.outsideCollection("allocation")
	if !a.cat.concrete(tag) {
		a.fatal(ErrCorruption, "cannot allocate type %d (%q)", tag, a.cat.Name(tag))
	}
	if size < 0 {
		a.fatal(ErrBounds, "negative allocation size %d", size)
	}
	if size < a.cat.size[tag] {
		a.fatal(ErrBounds, "%s needs %d bytes, got %d", a.cat.Name(tag), a.cat.size[tag], size)
	}

	immediate := size <= a.cat.InlineCapacity()
	var slots uint64
	if !immediate {
		slots = a.slotsFor(uint64(size))
	}

	if a.required(slots) > a.freeSlots() {
		a.collect()
		if need := a.required(slots); need > a.freeSlots() {
			a.fatal(ErrOutOfMemory, "could not free sufficient space for %d bytes of %s: need %d slots, have %d",
				size, a.cat.Name(tag), need, a.freeSlots())
		}
	}

	h := a.nextII
	if a.chunked && isChunkHeader(h) {
		a.record(h).setMask(0)
		h++
	}
	a.nextII = h + 1

	r := a.record(h)
	r.setTag(tag)
	r.setImmediate(immediate)
	var data []byte
	if immediate {
		in := r.inline()
		clear(in)
		data = in[:size]
	} else {
		si := a.nextSI
		a.nextSI += slots
		r.setSlotIndex(si)
		buf := a.mem[si*a.slotSize : a.nextSI*a.slotSize]
		clear(buf)
		data = buf[:size]
	}

	a.stats.Allocations++
	a.stats.BytesAllocated += uint64(size)
	a.stats.SlotsAllocated += slots
	if a.cat.finalize[tag] != nil {
		a.fin.flag(h)
	}

	if init != nil {
		init(data)
	}
	return h
}

// required is the number of free slots an allocation of slots payload slots
// must find: its record (two if a chunk header is skipped), its payload, and
// the scratch a collection over the enlarged handle range would need.
func (a *Arena) required(slots uint64) uint64 {
	records := uint64(1)
	if a.chunked && isChunkHeader(a.nextII) {
		records++
	}
	return records + slots + a.scratchSlots(uint64(a.nextII)+records)
}
