package library

import (
	"context"
	"sync/atomic"
	"time"
)

// Catalog is an immutable scan result. Readers get a consistent view
// while a rescan builds its replacement.
type Catalog struct {
	entries   []CatalogEntry
	byID      map[string]int
	scannedAt time.Time
}

func newCatalog(entries []CatalogEntry) *Catalog {
	byID := make(map[string]int, len(entries))
	for i, e := range entries {
		// First root wins on cross-root ID collisions, matching
		// streaming resolution order.
		if _, ok := byID[e.ID]; !ok {
			byID[e.ID] = i
		}
	}
	return &Catalog{entries: entries, byID: byID, scannedAt: time.Now()}
}

// Entries returns all catalog entries in scan order.
func (c *Catalog) Entries() []CatalogEntry {
	return c.entries
}

// ByID returns the entry with the given identifier.
func (c *Catalog) ByID(id string) (CatalogEntry, bool) {
	i, ok := c.byID[id]
	if !ok {
		return CatalogEntry{}, false
	}
	return c.entries[i], true
}

// Len returns the number of indexed entries.
func (c *Catalog) Len() int { return len(c.entries) }

// ScannedAt returns when this snapshot was produced.
func (c *Catalog) ScannedAt() time.Time { return c.scannedAt }

// Library couples a scanner with the current catalog snapshot.
// Snapshot swaps are atomic; list requests never observe a
// half-built scan.
type Library struct {
	scanner *Scanner
	current atomic.Pointer[Catalog]
}

// NewLibrary creates a Library with an empty initial catalog.
func NewLibrary(scanner *Scanner) *Library {
	l := &Library{scanner: scanner}
	l.current.Store(newCatalog(nil))
	return l
}

// Snapshot returns the current catalog.
func (l *Library) Snapshot() *Catalog {
	return l.current.Load()
}

// Rescan walks all roots and atomically publishes the new catalog.
func (l *Library) Rescan(ctx context.Context) (*Catalog, error) {
	cat, err := l.scanner.Scan(ctx)
	if err != nil {
		return nil, err
	}
	l.current.Store(cat)
	return cat, nil
}

// LookupFile resolves one file by relative path, bypassing the
// snapshot so unsupported extensions still resolve.
func (l *Library) LookupFile(relativePath string) (*CatalogEntry, error) {
	return l.scanner.LookupFile(relativePath)
}

// Resolver exposes the underlying path resolver for streaming.
func (l *Library) Resolver() *Resolver {
	return l.scanner.resolver
}
