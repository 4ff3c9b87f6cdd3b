// Package catalog holds the raw layer catalog (services.json) in memory.
package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/joeblew999/plat-portal/internal/layertree"
)

// Catalog is an immutable, indexed list of catalog entries. It implements
// layertree.Catalog.
type Catalog struct {
	entries []*layertree.CatalogEntry
	byID    map[string]*layertree.CatalogEntry
}

var _ layertree.Catalog = (*Catalog)(nil)

// New indexes entries. For duplicate ids the first entry wins.
func New(entries []*layertree.CatalogEntry) *Catalog {
	c := &Catalog{
		entries: entries,
		byID:    make(map[string]*layertree.CatalogEntry, len(entries)),
	}
	for _, e := range entries {
		if _, ok := c.byID[e.ID]; !ok {
			c.byID[e.ID] = e
		}
	}
	return c
}

// Entry returns the entry with the given id.
func (c *Catalog) Entry(id string) (*layertree.CatalogEntry, bool) {
	e, ok := c.byID[id]
	return e, ok
}

// Entries returns all entries in catalog order.
func (c *Catalog) Entries() []*layertree.CatalogEntry {
	return c.entries
}

func (c *Catalog) Len() int {
	return len(c.entries)
}

// Parse decodes a services.json document, a JSON array of entries.
// Entries that cannot be decoded are logged and skipped.
func Parse(data []byte, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	entries := make([]*layertree.CatalogEntry, 0, len(raw))
	for i, r := range raw {
		e, err := layertree.DecodeCatalogEntry(r)
		if err != nil {
			logger.Warn("skipping catalog entry", "index", i, "error", err)
			continue
		}
		entries = append(entries, e)
	}
	return New(entries), nil
}
