// ABOUTME: Tests for the parser registry
// ABOUTME: Validates registration order, format detection and large inputs

package heapdump

import (
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/prateek/zgc/graph"
)

// mockParser accepts dumps whose preview mentions its name and reports the
// number of bytes it was handed as the object count.
type mockParser struct {
	name string
}

func (p *mockParser) CanParse(r io.Reader) bool {
	buf, _ := io.ReadAll(r)
	return strings.Contains(string(buf), p.name)
}

func (p *mockParser) Parse(r io.Reader) (graph.Graph, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	g := graph.NewMemGraph()
	g.AddObject(&graph.Object{ID: graph.ObjID(len(buf)), Type: p.name})
	return g, nil
}

func withRegistry(t *testing.T, parsers ...Parser) {
	t.Helper()
	saved := registry
	registry = &parserRegistry{}
	for _, p := range parsers {
		Register(p)
	}
	t.Cleanup(func() { registry = saved })
}

func TestOpen(t *testing.T) {
	withRegistry(t, &mockParser{name: "alpha"}, &mockParser{name: "beta"}, &mockParser{name: "al"})

	tests := []struct {
		name     string
		content  string
		wantType string
		wantErr  bool
	}{
		{"first match", "alpha dump", "alpha", false},
		{"second", "beta dump", "beta", false},
		{"registration order wins", "al and alpha", "alpha", false},
		{"unknown", "gamma dump", "", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Open(strings.NewReader(tt.content))
			if tt.wantErr {
				if err != ErrNoParser {
					t.Errorf("Open() error = %v, want ErrNoParser", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			var got string
			g.ForEachObject(func(o *graph.Object) { got = o.Type })
			if got != tt.wantType {
				t.Errorf("parsed by %q, want %q", got, tt.wantType)
			}
		})
	}
}

// The parser sees the whole stream, not just the preview.
func TestOpenLargeInput(t *testing.T) {
	withRegistry(t, &mockParser{name: "alpha"})

	content := "alpha" + strings.Repeat("x", 3*previewSize)
	g, err := Open(strings.NewReader(content))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if g.GetObject(graph.ObjID(len(content))) == nil {
		t.Errorf("parser did not receive all %d bytes", len(content))
	}
}

func TestThreadSafeRegistry(t *testing.T) {
	withRegistry(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			Register(&mockParser{name: string(rune('a' + id))})
		}(i)
	}
	wg.Wait()

	if len(registry.parsers) != 10 {
		t.Errorf("got %d parsers after concurrent registration, want 10", len(registry.parsers))
	}
}
