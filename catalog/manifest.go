// ABOUTME: YAML type manifest parser that compiles declared types into an arena catalog
// ABOUTME: Validates field kinds, count fields and trailing variable fields before building layouts

package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/prateek/zgc/arena"
)

// ErrInvalid is wrapped by every manifest validation error.
var ErrInvalid = errors.New("invalid manifest")

// Manifest is a parsed type manifest.
type Manifest struct {
	Registers int        `yaml:"registers"`
	SlotSize  int        `yaml:"slotSize"`
	Types     []TypeSpec `yaml:"types"`

	layouts []*Layout
	byName  map[string]*Layout
}

// TypeSpec declares one type. A type with no fields is a unique singleton,
// as is any type declared with type: Unique.
type TypeSpec struct {
	Name   string      `yaml:"name"`
	Type   string      `yaml:"type"`
	Fields []FieldSpec `yaml:"fields"`
}

// FieldSpec declares one field. Len gives a fixed element count for bytes
// and refs; CountField makes the field a trailing variable array whose
// length lives in an earlier integer field.
type FieldSpec struct {
	Name       string `yaml:"name"`
	Kind       Kind   `yaml:"kind"`
	Len        int    `yaml:"len"`
	CountField string `yaml:"countField"`
}

// Hook holds the optional routines a manifest type cannot express in YAML.
type Hook struct {
	Finalize arena.FinalizeFunc
	Relocate arena.RelocateFunc
}

// Hooks attaches routines to manifest types by name.
type Hooks map[string]Hook

// Load reads a manifest file.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes and validates a manifest.
func Parse(r io.Reader) (*Manifest, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m := &Manifest{Registers: 1, SlotSize: arena.DefaultSlotSize}
	if err := yaml.UnmarshalStrict(raw, m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	if err := m.compile(); err != nil {
		return nil, err
	}
	return m, nil
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func (m *Manifest) compile() error {
	if len(m.Types) == 0 {
		return invalid("no types declared")
	}
	m.byName = make(map[string]*Layout, len(m.Types))
	for _, ts := range m.Types {
		if ts.Name == "" {
			return invalid("type without a name")
		}
		if _, dup := m.byName[ts.Name]; dup {
			return invalid("cannot redefine name %q", ts.Name)
		}
		l, err := compileType(ts)
		if err != nil {
			return err
		}
		m.layouts = append(m.layouts, l)
		m.byName[ts.Name] = l
	}
	return nil
}

func compileType(ts TypeSpec) (*Layout, error) {
	l := &Layout{Name: ts.Name, byName: make(map[string]int)}
	switch ts.Type {
	case "Unique":
		if len(ts.Fields) > 0 {
			return nil, invalid("unique type %q cannot have fields", ts.Name)
		}
		l.Unique = true
		return l, nil
	case "":
		if len(ts.Fields) == 0 {
			l.Unique = true
			return l, nil
		}
	default:
		return nil, invalid("type %q: unknown type class %q", ts.Name, ts.Type)
	}

	off := 0
	for i, fs := range ts.Fields {
		if fs.Name == "" {
			return nil, invalid("%s: field %d has no name", ts.Name, i)
		}
		if _, dup := l.byName[fs.Name]; dup {
			return nil, invalid("%s: duplicate field %q", ts.Name, fs.Name)
		}
		if fs.Kind.elemSize() == 0 {
			return nil, invalid("%s.%s: unknown kind %q", ts.Name, fs.Name, fs.Kind)
		}
		if l.tail != nil {
			return nil, invalid("%s.%s: variable field %q must be last", ts.Name, fs.Name, l.tail.Name)
		}

		f := Field{Name: fs.Name, Kind: fs.Kind, Offset: off, Len: 1}
		array := fs.Kind == KindBytes || fs.Kind == KindRefs
		switch {
		case fs.CountField != "":
			if !array {
				return nil, invalid("%s.%s: countField only applies to bytes and refs", ts.Name, fs.Name)
			}
			ci, ok := l.byName[fs.CountField]
			if !ok || !l.Fields[ci].Kind.integer() {
				return nil, invalid("%s.%s: count field %q must be an earlier integer field", ts.Name, fs.Name, fs.CountField)
			}
			f.Len = 0
			f.Count = fs.CountField
		case array:
			if fs.Len <= 0 {
				return nil, invalid("%s.%s: %s needs len or countField", ts.Name, fs.Name, fs.Kind)
			}
			f.Len = fs.Len
		case fs.Len != 0:
			return nil, invalid("%s.%s: len only applies to bytes and refs", ts.Name, fs.Name)
		}

		l.byName[fs.Name] = len(l.Fields)
		l.Fields = append(l.Fields, f)
		if f.Len == 0 {
			tail := l.Fields[len(l.Fields)-1]
			count := l.Fields[l.byName[f.Count]]
			l.tail, l.count = &tail, &count
			continue
		}
		if f.Kind == KindRef || f.Kind == KindRefs {
			for j := 0; j < f.Len; j++ {
				l.refs = append(l.refs, off+j*arena.HandleSize)
			}
		}
		off += f.Len * f.Kind.elemSize()
	}
	l.fixed = off
	return l, nil
}

// Layout returns the compiled layout of a type.
func (m *Manifest) Layout(name string) (*Layout, bool) {
	l, ok := m.byName[name]
	return l, ok
}

// Layouts returns every layout in declaration order.
func (m *Manifest) Layouts() []*Layout {
	return append([]*Layout(nil), m.layouts...)
}

// Catalog builds the arena catalog, attaching hooks by type name.
func (m *Manifest) Catalog(hooks Hooks) (*arena.Catalog, error) {
	for name := range hooks {
		l, ok := m.byName[name]
		if !ok {
			return nil, invalid("finalizer for unknown type %q", name)
		}
		if l.Unique {
			return nil, invalid("unique type %q cannot have a finalizer", name)
		}
	}

	types := make([]arena.Type, 0, len(m.layouts))
	for _, l := range m.layouts {
		t := arena.Type{Name: l.Name, Unique: l.Unique}
		if !l.Unique {
			t.Size = l.fixed
			if l.Variable() {
				t.SizeOf = l.sizeOf
			}
			if l.traced() {
				t.Trace = l.trace
			}
			h := hooks[l.Name]
			t.Finalize = h.Finalize
			t.Relocate = h.Relocate
		}
		types = append(types, t)
	}
	return arena.NewCatalog(m.Registers, m.SlotSize, types...)
}
