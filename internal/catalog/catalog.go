package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Entry is a single card in the catalog.
//
// Entries are read-only after load. ID doubles as the output filename stem,
// so it must stay filesystem-safe (enforced by the schema).
type Entry struct {
	// ID uniquely identifies the card (e.g. "042", "B02", "XC5").
	ID string `yaml:"id" json:"id"`

	// Name is the card title, the dominant subject of its illustration.
	Name string `yaml:"name" json:"name"`

	// Type is the card category: automated, active, event, corporation, prelude.
	Type string `yaml:"type" json:"type"`

	// Tags carry light thematic context (e.g. "building", "space").
	Tags []string `yaml:"tags,omitempty" json:"tags,omitempty"`

	// Description is the card's rules text, mixing game mechanics with
	// flavor sentences. May be empty.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Catalog is an ordered, immutable collection of entries.
// Order is the file order and defines range-selection semantics.
type Catalog struct {
	entries []Entry
	index   map[string]int
}

// New builds a Catalog from entries, preserving order.
// Returns an error on empty or duplicate ids.
//
// The entries slice is copied to prevent external mutation.
func New(entries []Entry) (*Catalog, error) {
	c := &Catalog{
		entries: make([]Entry, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	copy(c.entries, entries)

	for i, e := range c.entries {
		if e.ID == "" {
			return nil, fmt.Errorf("card at index %d: empty id", i)
		}
		if prev, dup := c.index[e.ID]; dup {
			return nil, fmt.Errorf("duplicate card id %q (indexes %d and %d)", e.ID, prev, i)
		}
		c.index[e.ID] = i
	}

	return c, nil
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Find returns the entry with the given id.
// Returns *NotFoundError if no entry has that id.
func (c *Catalog) Find(id string) (Entry, error) {
	i, ok := c.index[id]
	if !ok {
		return Entry{}, &NotFoundError{ID: id}
	}
	return c.entries[i], nil
}

// All returns every entry in catalog order.
// The returned slice is a copy.
func (c *Catalog) All() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Missing returns the entries whose output file does not exist yet,
// in catalog order. The output file for an entry is
// <outputDir>/<id>.<ext>; its presence is the only completion marker
// consulted. A stat failure counts as missing.
func (c *Catalog) Missing(outputDir, ext string) []Entry {
	var out []Entry
	for _, e := range c.entries {
		path := filepath.Join(outputDir, e.ID+"."+ext)
		if _, err := os.Stat(path); err != nil {
			out = append(out, e)
		}
	}
	return out
}

// Range returns the entries from startID through endID inclusive,
// by catalog order. Returns *NotFoundError if either endpoint is
// unknown, and an error if startID comes after endID.
func (c *Catalog) Range(startID, endID string) ([]Entry, error) {
	start, ok := c.index[startID]
	if !ok {
		return nil, &NotFoundError{ID: startID}
	}
	end, ok := c.index[endID]
	if !ok {
		return nil, &NotFoundError{ID: endID}
	}
	if start > end {
		return nil, fmt.Errorf("range start %q comes after end %q in catalog order", startID, endID)
	}

	out := make([]Entry, end-start+1)
	copy(out, c.entries[start:end+1])
	return out, nil
}

// NotFoundError reports a card id that is not in the catalog.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("card %q not found in catalog", e.ID)
}

// IsNotFound returns true if the error is a NotFoundError.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}
