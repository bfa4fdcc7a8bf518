// Package ports defines the interfaces (contracts) that adapters must implement.
// These are the boundaries of the hexagonal architecture. Domain logic depends
// only on these interfaces, never on concrete implementations.
package ports

import "time"

// SetStore persists named pattern sets to durable storage.
// The backing store (bbolt) keeps one record per set name. Concurrent reads
// are safe; writes are serialized by the adapter.
//
// Crash safety: SaveSet must be transactional. A crash mid-write must not
// corrupt previously committed sets.
type SetStore interface {
	// SaveSet persists a pattern set, overwriting any set with the same name.
	SaveSet(set *StoredSet) error

	// LoadSet retrieves a set by name.
	// Returns nil, nil if no set with that name exists.
	LoadSet(name string) (*StoredSet, error)

	// ListSets returns all stored set names in ascending order.
	ListSets() ([]string, error)

	// DeleteSet removes a set. Idempotent: deleting a missing set is not an error.
	DeleteSet(name string) error
}

// StoredSet is the persisted form of a pattern set.
type StoredSet struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Alphabet    string    `json:"alphabet,omitempty"` // alphabet name, see automaton.AlphabetByName
	Fold        bool      `json:"fold,omitempty"`     // ASCII case folding of patterns and text
	Patterns    []string  `json:"patterns"`
	Source      string    `json:"source,omitempty"` // file the set was imported from
	UpdatedAt   time.Time `json:"updated_at"`
}
