// ABOUTME: Root zgc package providing version information and a manifest-driven constructor
// ABOUTME: Ties a parsed type manifest to a new arena in one call

// Package zgc is an embeddable compacting arena collector. Objects live in
// a fixed byte arena and are named by integer handles; a register root set
// keeps them alive and collection compacts survivors to the bottom of the
// arena, renumbering handles densely.
//
// The arena itself is in package arena. Package catalog describes object
// layouts in YAML, and packages heapdump and graph snapshot and analyse a
// live heap.
package zgc

import (
	"fmt"

	"github.com/prateek/zgc/arena"
	"github.com/prateek/zgc/catalog"
)

// Version is the semantic version of zgc
const Version = "0.1.0-dev"

// New builds the manifest's catalog with hooks and creates an arena for it.
func New(m *catalog.Manifest, hooks catalog.Hooks, cfg arena.Config) (*arena.Arena, error) {
	cat, err := m.Catalog(hooks)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return arena.New(cat, cfg)
}

// Open loads a manifest file and creates an arena for it.
func Open(path string, hooks catalog.Hooks, cfg arena.Config) (*arena.Arena, *catalog.Manifest, error) {
	m, err := catalog.Load(path)
	if err != nil {
		return nil, nil, err
	}
	a, err := New(m, hooks, cfg)
	if err != nil {
		return nil, nil, err
	}
	return a, m, nil
}
