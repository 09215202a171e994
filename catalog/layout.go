// ABOUTME: Field layouts compiled from manifest types: offsets, size rules and generated trace routines
// ABOUTME: Also provides typed accessors so callers can read and write payload fields by name

package catalog

import (
	"encoding/binary"
	"fmt"

	"github.com/prateek/zgc/arena"
)

// Kind is the storage class of a field.
type Kind string

const (
	KindU8    Kind = "u8"
	KindU16   Kind = "u16"
	KindU32   Kind = "u32"
	KindU64   Kind = "u64"
	KindRef   Kind = "ref"
	KindBytes Kind = "bytes"
	KindRefs  Kind = "refs"
)

// elemSize is the size of one element of a kind.
func (k Kind) elemSize() int {
	switch k {
	case KindU8, KindBytes:
		return 1
	case KindU16:
		return 2
	case KindU32, KindRef, KindRefs:
		return 4
	case KindU64:
		return 8
	}
	return 0
}

func (k Kind) integer() bool {
	return k == KindU8 || k == KindU16 || k == KindU32 || k == KindU64
}

// Field is one laid-out member of a payload.
type Field struct {
	Name   string
	Kind   Kind
	Offset int
	Len    int    // element count for fixed arrays, 1 for scalars, 0 when variable
	Count  string // name of the integer field holding a variable element count
}

// Layout is the compiled shape of one type.
type Layout struct {
	Name   string
	Unique bool
	Fields []Field

	fixed  int // bytes up to the trailing variable field, or the whole size
	tail   *Field
	count  *Field
	refs   []int // offsets of fixed handle fields
	byName map[string]int
}

// Variable reports whether the payload size depends on its contents.
func (l *Layout) Variable() bool { return l.tail != nil }

// FixedSize is the size of everything but the trailing variable field.
func (l *Layout) FixedSize() int { return l.fixed }

// SizeFor returns the payload size of an object with n trailing elements.
func (l *Layout) SizeFor(n int) int {
	if l.tail == nil {
		return l.fixed
	}
	return l.fixed + n*l.tail.Kind.elemSize()
}

// sizeOf is the arena size rule for variable layouts.
func (l *Layout) sizeOf(data []byte) int {
	return l.SizeFor(int(getUint(data, *l.count)))
}

// trace yields fixed ref fields, then trailing refs.
func (l *Layout) trace(data []byte, yield func(off int)) {
	for _, off := range l.refs {
		yield(off)
	}
	if l.tail != nil && l.tail.Kind == KindRefs {
		n := int(getUint(data, *l.count))
		for i := 0; i < n; i++ {
			yield(l.tail.Offset + i*arena.HandleSize)
		}
	}
}

func (l *Layout) traced() bool {
	return len(l.refs) > 0 || (l.tail != nil && l.tail.Kind == KindRefs)
}

// Field looks up a field by name.
func (l *Layout) Field(name string) (Field, bool) {
	i, ok := l.byName[name]
	if !ok {
		return Field{}, false
	}
	return l.Fields[i], true
}

func (l *Layout) mustField(name string, kinds ...Kind) Field {
	f, ok := l.Field(name)
	if !ok {
		panic(fmt.Sprintf("catalog: %s has no field %q", l.Name, name))
	}
	for _, k := range kinds {
		if f.Kind == k {
			return f
		}
	}
	panic(fmt.Sprintf("catalog: field %s.%s is %s, want one of %v", l.Name, name, f.Kind, kinds))
}

// Uint reads an integer field.
func (l *Layout) Uint(data []byte, name string) uint64 {
	return getUint(data, l.mustField(name, KindU8, KindU16, KindU32, KindU64))
}

// SetUint writes an integer field, truncating v to the field's width.
func (l *Layout) SetUint(data []byte, name string, v uint64) {
	putUint(data, l.mustField(name, KindU8, KindU16, KindU32, KindU64), v)
}

// Ref reads a handle field, or element i of a refs array.
func (l *Layout) Ref(data []byte, name string, i ...int) arena.Handle {
	f := l.mustField(name, KindRef, KindRefs)
	return arena.ReadHandle(data, f.Offset+index(i)*arena.HandleSize)
}

// SetRef writes a handle field, or element i of a refs array.
func (l *Layout) SetRef(data []byte, name string, h arena.Handle, i ...int) {
	f := l.mustField(name, KindRef, KindRefs)
	arena.WriteHandle(data, f.Offset+index(i)*arena.HandleSize, h)
}

// Bytes returns the span of a bytes field. A trailing variable field runs to
// the end of data.
func (l *Layout) Bytes(data []byte, name string) []byte {
	f := l.mustField(name, KindBytes)
	if f.Len == 0 {
		n := int(getUint(data, *l.count))
		return data[f.Offset : f.Offset+n]
	}
	return data[f.Offset : f.Offset+f.Len]
}

func index(i []int) int {
	if len(i) == 0 {
		return 0
	}
	return i[0]
}

func getUint(data []byte, f Field) uint64 {
	b := data[f.Offset:]
	switch f.Kind {
	case KindU8:
		return uint64(b[0])
	case KindU16:
		return uint64(binary.LittleEndian.Uint16(b))
	case KindU32:
		return uint64(binary.LittleEndian.Uint32(b))
	default:
		return binary.LittleEndian.Uint64(b)
	}
}

func putUint(data []byte, f Field, v uint64) {
	b := data[f.Offset:]
	switch f.Kind {
	case KindU8:
		b[0] = byte(v)
	case KindU16:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case KindU32:
		binary.LittleEndian.PutUint32(b, uint32(v))
	default:
		binary.LittleEndian.PutUint64(b, v)
	}
}
