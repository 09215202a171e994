// ABOUTME: Package documentation for the arena collector, including the safe-point contract
// ABOUTME: Read this before holding a Handle across any call that may allocate

// Package arena implements a single-arena, compacting, stop-the-world garbage
// collector for a closed catalog of object types.
//
// The arena is one fixed block of equally sized slots. Object records
// (indirections) are addressed by Handle and grow down from the top of the
// block; out-of-line payloads grow up from slot 0. Payloads that fit inside a
// record (Catalog.InlineCapacity bytes) are stored inline and never use
// payload slots.
//
// # Roots
//
// The register array is the only root set. Collect marks everything reachable
// from the registers through each type's TraceFunc, renumbers the survivors
// into a dense handle range just above the reserved handles, slides payloads
// down, rewrites every reference and every register, and runs the finalizers
// of flagged objects that died.
//
// # Safe points
//
// Every call that may allocate may collect, and every collection may
// renumber every handle and move every payload. After Allocate,
// AllocateWith or Collect returns:
//
//   - handles held in local variables are invalid;
//   - handles read out of payloads before the call are invalid;
//   - slices returned by Data are invalid.
//
// The only values guaranteed to survive are those re-read from the registers.
// The arena does not detect violations; they silently corrupt the heap.
//
// # Errors
//
// New returns configuration errors. Every other failure (bad register index,
// out of memory, unknown type tag) logs and panics with a *FatalError whose
// Kind is one of ErrBounds, ErrOutOfMemory or ErrCorruption. The arena must
// not be used after such a panic.
//
// An Arena is not safe for concurrent use.
package arena
