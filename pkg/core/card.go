// Package core holds the card store, the deduplicating inserter and the sync
// engine. It is independent of how snapshots are stored and of how source
// documents are read; both are reached through the ports in ports.go.
package core

// DefaultWorkbench is the name of the workbench that always exists.
const DefaultWorkbench = "default"

// Card is an extracted snapshot of a heading from a source document.
//
// Cards are values. The store replaces a card as a whole (sync) but never
// edits one field in place.
type Card struct {
	// Key is the store-assigned slot key. It survives sync and is what
	// removal, reorder and sync target.
	Key string `json:"key" yaml:"key"`
	// ID is the optional stable identifier of the source heading.
	ID      string `json:"id,omitempty" yaml:"id,omitempty"`
	Title   string `json:"title" yaml:"title"`
	Content string `json:"content" yaml:"content"`
	// Level is the original nesting depth. Rendering always flattens it.
	Level int `json:"level" yaml:"level"`
	// File is the absolute path of the origin document, if it has one.
	File string `json:"file,omitempty" yaml:"file,omitempty"`
}

// HasID reports whether the card can be traced back to its source.
func (c Card) HasID() bool {
	return c.ID != ""
}

// sameRecord compares every field except Key.
func (c Card) sameRecord(o Card) bool {
	return c.ID == o.ID &&
		c.Title == o.Title &&
		c.Content == o.Content &&
		c.Level == o.Level &&
		c.File == o.File
}

// Location addresses a line inside a source document.
type Location struct {
	File string
	// Line is 1-based. Any line inside a heading's section resolves to that heading.
	Line int
}

// Snapshot is the flat persisted form of the whole store.
type Snapshot struct {
	Current     string            `json:"current" yaml:"current"`
	Workbenches map[string][]Card `json:"workbenches" yaml:"workbenches"`
}

// NewSnapshot returns a snapshot holding only the empty default workbench.
func NewSnapshot() Snapshot {
	return Snapshot{
		Current:     DefaultWorkbench,
		Workbenches: map[string][]Card{DefaultWorkbench: {}},
	}
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Current:     s.Current,
		Workbenches: make(map[string][]Card, len(s.Workbenches)),
	}
	for name, cards := range s.Workbenches {
		out.Workbenches[name] = cloneCards(cards)
	}
	return out
}

func cloneCards(cards []Card) []Card {
	out := make([]Card, len(cards))
	copy(out, cards)
	return out
}
