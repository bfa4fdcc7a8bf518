package app

import (
	"errors"
	"fmt"

	"github.com/corey/multimatch/internal/domain/patternset"
	"github.com/corey/multimatch/internal/ports"
	"github.com/corey/multimatch/sets"
)

// ErrSetNotFound is returned when a set name resolves to nothing.
var ErrSetNotFound = errors.New("pattern set not found")

// Builtins loads the sets embedded in the binary.
func Builtins() ([]*patternset.Set, error) {
	return patternset.LoadFS(sets.FS, ".")
}

// ResolveSet finds a set by name. A stored set shadows a built-in of the same
// name. store may be nil, in which case only built-ins are searched. The
// returned origin is OriginStore or OriginBuiltin.
func ResolveSet(store ports.SetStore, name string) (*patternset.Set, string, error) {
	if store != nil {
		st, err := store.LoadSet(name)
		if err != nil {
			return nil, "", fmt.Errorf("load set %q: %w", name, err)
		}
		if st != nil {
			return patternset.FromStored(st), OriginStore, nil
		}
	}

	builtins, err := Builtins()
	if err != nil {
		return nil, "", err
	}
	for _, b := range builtins {
		if b.Name == name {
			return b, OriginBuiltin, nil
		}
	}
	return nil, "", fmt.Errorf("%w: %s", ErrSetNotFound, name)
}

// ListAll returns the names of every built-in and stored set, sorted and
// deduplicated. store may be nil.
func ListAll(store ports.SetStore) ([]string, error) {
	builtins, err := Builtins()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var names []string
	for _, b := range builtins {
		seen[b.Name] = true
		names = append(names, b.Name)
	}
	if store != nil {
		stored, err := store.ListSets()
		if err != nil {
			return nil, err
		}
		for _, n := range stored {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return patternset.Filter(names, ""), nil
}
