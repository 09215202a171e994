// ABOUTME: Type catalog and per-tag dispatch tables for trace, relocate and finalize
// ABOUTME: The catalog is closed: tags are assigned once and resolved into slices indexed by tag

package arena

// TraceFunc enumerates the handle fields of one payload by calling yield with
// the byte offset of each field. The collector calls it twice per object:
// once to mark children and once to rewrite them in place.
type TraceFunc func(data []byte, yield func(off int))

// RelocateFunc copies a payload from src to dst and returns its new size in
// bytes. The two spans may overlap (dst is never above src), so
// implementations must move data the way copy does.
type RelocateFunc func(dst, src []byte) int

// SizeFunc computes a variable-size payload's length from its contents.
type SizeFunc func(data []byte) int

// FinalizeFunc runs once when a flagged object is found unreachable. data is
// the dead object's payload and is only valid for the duration of the call.
// It must not call back into the arena.
type FinalizeFunc func(h Handle, data []byte)

// Type describes one entry of the catalog.
type Type struct {
	Name string

	// Unique types are payload-free singletons occupying a reserved handle.
	// They are always live and never traced, moved or finalized.
	Unique bool

	// Size is the fixed payload size. SizeOf, when set, overrides it for
	// variable-size payloads, and Size is then the smallest allocation.
	Size   int
	SizeOf SizeFunc

	Trace    TraceFunc
	Relocate RelocateFunc
	Finalize FinalizeFunc
}

// Catalog is the resolved, immutable set of types an arena understands.
type Catalog struct {
	registers int
	slotSize  int
	unique    int

	names  []string
	byName map[string]Tag

	// Dispatch tables, indexed by tag. Entries for the null tag and unique
	// tags are never consulted.
	size     []int
	sizeOf   []SizeFunc
	trace    []TraceFunc
	relocate []RelocateFunc
	finalize []FinalizeFunc
}

// NewCatalog validates types and assigns their tags: unique types first in
// declaration order (1..K, matching their reserved handles), then concrete
// types. A slotSize of 0 selects DefaultSlotSize.
func NewCatalog(registers, slotSize int, types ...Type) (*Catalog, error) {
	if registers <= 0 {
		return nil, configErr("cannot create a collector with %d registers", registers)
	}
	if slotSize == 0 {
		slotSize = DefaultSlotSize
	}
	if slotSize < 8 || slotSize > 1<<16 {
		return nil, configErr("slot size %d out of range [8, 65536]", slotSize)
	}

	ordered := make([]Type, 0, len(types))
	for _, t := range types {
		if t.Unique {
			ordered = append(ordered, t)
		}
	}
	unique := len(ordered)
	for _, t := range types {
		if !t.Unique {
			ordered = append(ordered, t)
		}
	}
	if len(ordered)+1 > 1<<16 {
		return nil, configErr("too many types: %d", len(ordered))
	}

	n := len(ordered) + 1
	c := &Catalog{
		registers: registers,
		slotSize:  slotSize,
		unique:    unique,
		names:     make([]string, n),
		byName:    make(map[string]Tag, n),
		size:      make([]int, n),
		sizeOf:    make([]SizeFunc, n),
		trace:     make([]TraceFunc, n),
		relocate:  make([]RelocateFunc, n),
		finalize:  make([]FinalizeFunc, n),
	}
	c.names[0] = "Null"

	for i, t := range ordered {
		tag := Tag(i + 1)
		if t.Name == "" {
			return nil, configErr("type %d has no name", tag)
		}
		if _, dup := c.byName[t.Name]; dup {
			return nil, configErr("cannot redefine type %q", t.Name)
		}
		if t.Unique && (t.Size != 0 || t.SizeOf != nil || t.Trace != nil || t.Relocate != nil || t.Finalize != nil) {
			return nil, configErr("unique type %q cannot carry a payload or routines", t.Name)
		}
		if t.Size < 0 {
			return nil, configErr("type %q has negative size %d", t.Name, t.Size)
		}
		c.names[tag] = t.Name
		c.byName[t.Name] = tag
		c.size[tag] = t.Size
		c.sizeOf[tag] = t.SizeOf
		c.trace[tag] = t.Trace
		c.relocate[tag] = t.Relocate
		c.finalize[tag] = t.Finalize
	}
	return c, nil
}

// Registers returns the size of the root set.
func (c *Catalog) Registers() int { return c.registers }

// SlotSize returns the bytes per slot and per indirection record.
func (c *Catalog) SlotSize() int { return c.slotSize }

// InlineCapacity is the largest payload stored inside an indirection record.
func (c *Catalog) InlineCapacity() int { return c.slotSize - recordHeader }

// NumUnique returns K, the number of reserved handles above Null.
func (c *Catalog) NumUnique() int { return c.unique }

// NumTypes returns the number of declared types, unique ones included.
func (c *Catalog) NumTypes() int { return len(c.names) - 1 }

// Tag looks up a type by name.
func (c *Catalog) Tag(name string) (Tag, bool) {
	t, ok := c.byName[name]
	return t, ok
}

// MustTag is Tag for names known to exist; it panics otherwise.
func (c *Catalog) MustTag(name string) Tag {
	t, ok := c.byName[name]
	if !ok {
		panic("zgc: unknown type " + name)
	}
	return t
}

// Reserved returns the fixed handle of a unique type.
func (c *Catalog) Reserved(name string) (Handle, bool) {
	t, ok := c.byName[name]
	if !ok || !c.isUnique(t) {
		return Null, false
	}
	return Handle(t), true
}

// Name returns the type name for tag, or "" if the tag is unknown.
func (c *Catalog) Name(tag Tag) string {
	if int(tag) >= len(c.names) {
		return ""
	}
	return c.names[tag]
}

func (c *Catalog) isUnique(t Tag) bool { return t >= 1 && int(t) <= c.unique }

// concrete reports whether tag names a payload-carrying type.
func (c *Catalog) concrete(t Tag) bool { return int(t) > c.unique && int(t) < len(c.names) }

// payloadSize applies the size rule of tag to data.
func (c *Catalog) payloadSize(t Tag, data []byte) int {
	if f := c.sizeOf[t]; f != nil {
		return f(data)
	}
	return c.size[t]
}
