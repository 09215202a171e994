// ABOUTME: Arena creation, slot geometry, register root set and payload access
// ABOUTME: Indirections grow down from the top of the slot array, payloads grow up from slot 0

package arena

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Config holds the creation-time settings of an arena.
type Config struct {
	// Capacity is the size of the backing memory in bytes.
	Capacity int

	// ChunkHeaders stores finalization flags inside the handle space: every
	// 64th handle is reserved and its record holds the pending mask of its
	// chunk. When false, flags live in a side bitmap.
	ChunkHeaders bool

	// Logger receives collection and fatal-error entries. Nil discards them.
	Logger logrus.FieldLogger
}

// Arena is one fixed-capacity collector instance. It is not safe for
// concurrent use.
type Arena struct {
	cat      *Catalog
	slotSize uint64
	numSlots uint64
	mem      []byte

	nextII Handle // next handle to hand out
	nextSI uint64 // next free payload slot

	registers []Handle
	fin       finalizers
	chunked   bool
	busy      bool // inside a collection

	stats Stats
	log   logrus.FieldLogger
}

// New allocates and zeroes the arena's backing memory.
func New(cat *Catalog, cfg Config) (*Arena, error) {
	if cat == nil {
		return nil, configErr("nil catalog")
	}
	if cfg.Capacity < 0 {
		return nil, configErr("negative capacity %d", cfg.Capacity)
	}
	ss := uint64(cat.slotSize)
	numSlots := uint64(cfg.Capacity) / ss
	if numSlots < MinSlots {
		return nil, configErr("you cannot specify a collector of fewer than %d slots (capacity %d bytes gives %d)",
			MinSlots, cfg.Capacity, numSlots)
	}
	if numSlots > maxSlots {
		return nil, configErr("capacity %d bytes exceeds %d slots", cfg.Capacity, uint64(maxSlots))
	}
	if cfg.ChunkHeaders && cat.unique+1 >= ChunkSize {
		return nil, configErr("%d unique types do not fit below the first chunk header", cat.unique)
	}

	log := cfg.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	a := &Arena{
		cat:       cat,
		slotSize:  ss,
		numSlots:  numSlots,
		mem:       make([]byte, numSlots*ss),
		nextII:    Handle(cat.unique + 1),
		registers: make([]Handle, cat.registers),
		chunked:   cfg.ChunkHeaders,
		log:       log,
	}
	for t := 1; t <= cat.unique; t++ {
		a.record(Handle(t)).setTag(Tag(t))
	}
	if a.chunked {
		a.fin = &chunkFinalizers{a: a}
	} else {
		a.fin = newSideFinalizers()
	}
	a.stats.NumSlots = numSlots
	a.stats.SlotSize = ss

	a.log.WithFields(logrus.Fields{
		"slots":     numSlots,
		"slot_size": ss,
		"registers": cat.registers,
		"unique":    cat.unique,
		"chunked":   cfg.ChunkHeaders,
	}).Debug("arena created")
	return a, nil
}

// MustNew is New for callers that treat configuration errors as fatal.
func MustNew(cat *Catalog, cfg Config) *Arena {
	a, err := New(cat, cfg)
	if err != nil {
		panic(err)
	}
	return a
}

// Catalog returns the catalog the arena was created with.
func (a *Arena) Catalog() *Catalog { return a.cat }

// NumRegisters returns the size of the root set.
func (a *Arena) NumRegisters() int { return len(a.registers) }

// Register returns the handle held in register i.
func (a *Arena) Register(i int) Handle {
	a.outsideCollection("register read")
	if i < 0 || i >= len(a.registers) {
		a.fatal(ErrBounds, "bad register %d (have %d)", i, len(a.registers))
	}
	return a.registers[i]
}

// SetRegister stores h in register i. Registers are the only roots: anything
// that must survive a collection has to be reachable from one.
func (a *Arena) SetRegister(i int, h Handle) {
	a.outsideCollection("register write")
	if i < 0 || i >= len(a.registers) {
		a.fatal(ErrBounds, "bad register %d (have %d)", i, len(a.registers))
	}
	if h >= a.nextII || (a.chunked && h != Null && isChunkHeader(h)) {
		a.fatal(ErrBounds, "register %d: handle %d is not allocated", i, h)
	}
	a.registers[i] = h
}

// TypeOf returns the tag of h. Null has tag 0.
func (a *Arena) TypeOf(h Handle) Tag {
	a.outsideCollection("type lookup")
	if h == Null {
		return 0
	}
	a.checkHandle(h)
	return a.record(h).tag()
}

// Data returns the payload of h: the inline bytes of an immediate object, or
// its span in the payload region. The slice is only valid until the next call
// that may collect. Null and reserved handles have no payload.
func (a *Arena) Data(h Handle) []byte {
	a.outsideCollection("payload access")
	if h == Null || int(h) <= a.cat.unique {
		return nil
	}
	a.checkHandle(h)
	data, _ := a.payload(h, a.record(h))
	return data
}

// outsideCollection rejects calls made from a finalizer or other routine
// running inside a collection.
func (a *Arena) outsideCollection(op string) {
	if a.busy {
		a.fatal(ErrBounds, "%s during a collection", op)
	}
}

func (a *Arena) checkHandle(h Handle) {
	if h >= a.nextII || (a.chunked && isChunkHeader(h)) {
		a.fatal(ErrBounds, "handle %d is not allocated (next %d)", h, a.nextII)
	}
}

// record returns the indirection slot of h.
func (a *Arena) record(h Handle) record {
	off := (a.numSlots - 1 - uint64(h)) * a.slotSize
	return record(a.mem[off : off+a.slotSize : off+a.slotSize])
}

// slots returns the payload region starting at slot si and running to the
// payload cursor.
func (a *Arena) slots(si uint64) []byte {
	return a.mem[si*a.slotSize : a.nextSI*a.slotSize]
}

// payload resolves the payload of a live record, sized by its type's size
// rule. The second result is the number of slots the payload occupies (0 for
// immediates).
func (a *Arena) payload(h Handle, r record) ([]byte, uint64) {
	tag := r.tag()
	if !a.cat.concrete(tag) {
		a.fatal(ErrCorruption, "unknown type %d at handle %d", tag, h)
	}
	var region []byte
	if r.immediate() {
		region = r.inline()
	} else {
		si := r.slotIndex()
		if si >= a.nextSI {
			a.fatal(ErrCorruption, "handle %d points past the payload cursor (slot %d, cursor %d)", h, si, a.nextSI)
		}
		region = a.slots(si)
	}
	n := a.cat.payloadSize(tag, region)
	if n < 0 || n > len(region) {
		a.fatal(ErrCorruption, "handle %d (%s) reports payload size %d beyond %d bytes",
			h, a.cat.Name(tag), n, len(region))
	}
	if r.immediate() {
		return region[:n:n], 0
	}
	return region[:n:n], a.slotsFor(uint64(n))
}

func (a *Arena) slotsFor(bytes uint64) uint64 { return ceilDiv(bytes, a.slotSize) }

// freeSlots is the gap between the payload region and the indirection table.
func (a *Arena) freeSlots() uint64 {
	used := uint64(a.nextII) + a.nextSI
	if used > a.numSlots {
		return 0
	}
	return a.numSlots - used
}

// bitmapBytes is the liveness bitmap size for n handles, rounded to whole
// 64-bit words so the renumbering scan can read one chunk at a time.
func bitmapBytes(n uint64) uint64 { return ceilDiv(n, 64) * 8 }

// scratchSlots is the worst-case scratch a collection over n handles needs:
// the liveness bitmap plus the rewrite table (which doubles as work stack).
func (a *Arena) scratchSlots(n uint64) uint64 {
	return a.slotsFor(bitmapBytes(n)) + a.slotsFor(n*HandleSize)
}
