// ABOUTME: Parser interface for heap dump formats
// ABOUTME: Defines the contract for pluggable dump parsers

package heapdump

import (
	"io"

	"github.com/prateek/zgc/graph"
)

// Parser reads one heap dump format.
type Parser interface {
	// CanParse inspects a preview of the dump. The reader holds at most
	// previewSize bytes and may end mid-record.
	CanParse(r io.Reader) bool

	// Parse reads the whole dump from its start.
	Parse(r io.Reader) (graph.Graph, error)
}
