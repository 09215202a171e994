// ABOUTME: JSON heap dump format: writer for arena snapshots and registered parser
// ABOUTME: Dumps lead with a format marker so detection works on a truncated preview

package heapdump

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/prateek/zgc/graph"
)

// FormatJSON is the value of the leading "format" key.
const FormatJSON = "zgc-heap/1"

// JSONParser reads dumps written by WriteJSON.
type JSONParser struct{}

type jsonDump struct {
	Format  string        `json:"format"`
	Roots   []graph.ObjID `json:"roots"`
	Objects []jsonObject  `json:"objects"`
}

type jsonObject struct {
	ID        graph.ObjID   `json:"id"`
	Type      string        `json:"type"`
	Size      uint64        `json:"size"`
	Slots     uint64        `json:"slots,omitempty"`
	Immediate bool          `json:"immediate,omitempty"`
	Finalize  bool          `json:"finalize,omitempty"`
	Ptrs      []graph.ObjID `json:"ptrs,omitempty"`
}

// WriteJSON writes g in ascending ID order.
func WriteJSON(w io.Writer, g graph.Graph) error {
	dump := jsonDump{
		Format:  FormatJSON,
		Roots:   g.GetRoots().IDs,
		Objects: make([]jsonObject, 0, g.NumObjects()),
	}
	if dump.Roots == nil {
		dump.Roots = []graph.ObjID{}
	}
	g.ForEachObject(func(obj *graph.Object) {
		dump.Objects = append(dump.Objects, jsonObject{
			ID:        obj.ID,
			Type:      obj.Type,
			Size:      obj.Size,
			Slots:     obj.Slots,
			Immediate: obj.Immediate,
			Finalize:  obj.Finalize,
			Ptrs:      obj.Ptrs,
		})
	})
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	if err := enc.Encode(&dump); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// CanParse checks that the first key is "format" with our marker.
func (p *JSONParser) CanParse(r io.Reader) bool {
	dec := json.NewDecoder(r)
	want := []json.Token{json.Delim('{'), "format", FormatJSON}
	for _, w := range want {
		tok, err := dec.Token()
		if err != nil || tok != w {
			return false
		}
	}
	return true
}

// Parse reads the JSON dump and builds a graph.
func (p *JSONParser) Parse(r io.Reader) (graph.Graph, error) {
	var dump jsonDump
	if err := json.NewDecoder(r).Decode(&dump); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}
	if dump.Format != FormatJSON {
		return nil, fmt.Errorf("unsupported dump format %q", dump.Format)
	}

	g := graph.NewMemGraph()
	for i, obj := range dump.Objects {
		if obj.ID == 0 {
			return nil, fmt.Errorf("object at index %d has the null handle", i)
		}
		if g.GetObject(obj.ID) != nil {
			return nil, fmt.Errorf("object %d listed twice", obj.ID)
		}
		g.AddObject(&graph.Object{
			ID:        obj.ID,
			Type:      obj.Type,
			Size:      obj.Size,
			Slots:     obj.Slots,
			Immediate: obj.Immediate,
			Finalize:  obj.Finalize,
			Ptrs:      obj.Ptrs,
		})
	}
	g.SetRoots(graph.Roots{IDs: dump.Roots})
	return g, nil
}

func init() {
	Register(&JSONParser{})
}
