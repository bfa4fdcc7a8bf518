// Package bbolt implements the ports.SetStore interface using bbolt (embedded B+ tree).
// All pattern sets live in one top-level "sets" bucket, keyed by set name, with
// JSON-serialized values. Writes are transactional: a crash mid-write cannot
// corrupt previously committed data.
package bbolt

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/corey/multimatch/internal/ports"
)

// Bucket keys
var (
	bucketSets = []byte("sets")
)

// Store implements ports.SetStore backed by bbolt.
type Store struct {
	db *bolt.DB
}

// NewStore opens (or creates) a bbolt database at the given path.
func NewStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSet persists a pattern set, overwriting any set with the same name.
func (s *Store) SaveSet(set *ports.StoredSet) error {
	if set == nil {
		return fmt.Errorf("nil pattern set")
	}
	if set.Name == "" {
		return fmt.Errorf("pattern set has no name")
	}

	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("marshal set %q: %w", set.Name, err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketSets)
		if err != nil {
			return err
		}
		return b.Put([]byte(set.Name), data)
	})
}

// LoadSet retrieves a pattern set by name.
// Returns nil, nil if no such set exists.
func (s *Store) LoadSet(name string) (*ports.StoredSet, error) {
	var data []byte

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSets)
		if b == nil {
			return nil
		}
		// Copy bytes out of the transaction (bbolt slices are only valid within tx)
		if v := b.Get([]byte(name)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if data == nil {
		return nil, nil
	}

	var set ports.StoredSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("unmarshal set %q: %w", name, err)
	}
	return &set, nil
}

// ListSets returns all stored set names in ascending order.
// bbolt iterates keys in byte order, which is the order returned.
func (s *Store) ListSets() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSets)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// DeleteSet removes a pattern set.
// Idempotent: deleting a nonexistent set is not an error.
func (s *Store) DeleteSet(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSets)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(name))
	})
}

var _ ports.SetStore = (*Store)(nil)
