// ABOUTME: Collector statistics and object introspection
// ABOUTME: Counters accumulate over the arena's lifetime; geometry reflects the current state

package arena

import "time"

// Stats is a snapshot of the arena's counters and geometry.
type Stats struct {
	Collections       uint64
	Allocations       uint64
	BytesAllocated    uint64
	SlotsAllocated    uint64
	IndirectionShifts uint64
	SlotShifts        uint64
	ReferenceRewrites uint64
	FinalizersRun     uint64
	LongestCollection time.Duration
	TotalCollection   time.Duration

	NumSlots          uint64
	SlotSize          uint64
	NextHandle        Handle
	NextSlot          uint64
	FreeSlots         uint64
	PendingFinalizers int
}

// Stats returns the current counters.
func (a *Arena) Stats() Stats {
	s := a.stats
	s.NextHandle = a.nextII
	s.NextSlot = a.nextSI
	s.FreeSlots = a.freeSlots()
	s.PendingFinalizers = a.fin.pending()
	return s
}

// Object describes one allocated handle for introspection.
type Object struct {
	Handle    Handle
	Tag       Tag
	Immediate bool
	Size      int      // payload bytes by the type's size rule
	Slots     uint64   // payload slots, 0 for immediates
	Refs      []Handle // non-null child handles, in trace order
	Finalize  bool     // still flagged for finalization
}

// Objects calls fn for every handle allocated since the last collection or
// surviving it, in handle order, until fn returns false. Objects that became
// unreachable since the last collection are included. fn must not allocate.
func (a *Arena) Objects(fn func(Object) bool) {
	a.outsideCollection("object walk")
	for h := Handle(a.cat.unique) + 1; h < a.nextII; h++ {
		if a.chunked && isChunkHeader(h) {
			continue
		}
		r := a.record(h)
		data, slots := a.payload(h, r)
		o := Object{
			Handle:    h,
			Tag:       r.tag(),
			Immediate: r.immediate(),
			Size:      len(data),
			Slots:     slots,
			Finalize:  a.fin.flagged(h),
		}
		if trace := a.cat.trace[o.Tag]; trace != nil {
			trace(data, func(off int) {
				if c := ReadHandle(data, off); c != Null {
					o.Refs = append(o.Refs, c)
				}
			})
		}
		if !fn(o) {
			return
		}
	}
}

// Registers returns a copy of the root set.
func (a *Arena) Registers() []Handle {
	return append([]Handle(nil), a.registers...)
}
