// ABOUTME: Handle and type tag definitions plus the indirection record layout
// ABOUTME: Records are one slot: tag, immediate flag, then inline bytes or a slot index

package arena

import "encoding/binary"

// Handle identifies an object by its position in the indirection table.
// Handles are stable only between collections.
type Handle uint32

// Null is the permanent "no object" handle.
const Null Handle = 0

// HandleSize is the number of bytes a handle field occupies inside a payload.
const HandleSize = 4

// Tag is a numeric object type. Tag 0 is the null type; unique types use the
// same value as their reserved handle.
type Tag uint16

const (
	// MinSlots is the smallest arena, in slots, that New accepts.
	MinSlots = 1024

	// DefaultSlotSize is the slot size used when a catalog does not set one.
	DefaultSlotSize = 8

	// ChunkSize is the number of handles covered by one finalization mask.
	ChunkSize = 64

	recordHeader = 4 // tag(2) immediate(1) reserved(1)
	maxSlots     = 1<<32 - 1
)

// ReadHandle decodes the handle stored at off in a payload.
func ReadHandle(data []byte, off int) Handle {
	return Handle(binary.LittleEndian.Uint32(data[off : off+HandleSize]))
}

// WriteHandle stores h at off in a payload.
func WriteHandle(data []byte, off int, h Handle) {
	binary.LittleEndian.PutUint32(data[off:off+HandleSize], uint32(h))
}

// record is a view of one indirection slot.
type record []byte

func (r record) tag() Tag          { return Tag(binary.LittleEndian.Uint16(r[0:2])) }
func (r record) setTag(t Tag)      { binary.LittleEndian.PutUint16(r[0:2], uint16(t)) }
func (r record) immediate() bool   { return r[2] != 0 }
func (r record) inline() []byte    { return r[recordHeader:] }
func (r record) slotIndex() uint64 { return uint64(binary.LittleEndian.Uint32(r[4:8])) }

func (r record) setImmediate(v bool) {
	if v {
		r[2] = 1
	} else {
		r[2] = 0
	}
}

func (r record) setSlotIndex(si uint64) {
	binary.LittleEndian.PutUint32(r[4:8], uint32(si))
}

// mask and setMask reinterpret a chunk header record as a finalization mask.
func (r record) mask() uint64     { return binary.LittleEndian.Uint64(r[0:8]) }
func (r record) setMask(m uint64) { binary.LittleEndian.PutUint64(r[0:8], m) }

func isChunkHeader(h Handle) bool { return h%ChunkSize == 0 }

func chunkOf(h Handle) Handle { return h &^ (ChunkSize - 1) }

func ceilDiv(n, d uint64) uint64 { return (n + d - 1) / d }
