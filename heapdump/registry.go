// ABOUTME: Registry for heap dump parsers
// ABOUTME: Selects the first registered parser that recognises a dump preview

package heapdump

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/prateek/zgc/graph"
)

var (
	// ErrNoParser is returned when no parser can handle the dump format
	ErrNoParser = errors.New("no parser found for dump format")
)

const previewSize = 4096

type parserRegistry struct {
	mu      sync.RWMutex
	parsers []Parser
}

var registry = &parserRegistry{}

// Register adds a parser. Parsers are tried in registration order.
func Register(p Parser) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.parsers = append(registry.parsers, p)
}

// Open detects the dump format and parses it.
func Open(r io.Reader) (graph.Graph, error) {
	br := bufio.NewReaderSize(r, previewSize)
	preview, err := br.Peek(previewSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, err
	}

	registry.mu.RLock()
	parsers := append([]Parser(nil), registry.parsers...)
	registry.mu.RUnlock()

	for _, p := range parsers {
		if p.CanParse(bytes.NewReader(preview)) {
			return p.Parse(br)
		}
	}
	return nil, ErrNoParser
}
