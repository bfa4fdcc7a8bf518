// Package patternset loads, validates and converts named pattern sets.
// A set is a list of patterns plus the alphabet and case policy they are
// matched under. Sets come from YAML files, plain pattern lists (one per
// line), the embedded built-ins, or the bbolt store.
package patternset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/match"
	"gopkg.in/yaml.v3"

	"github.com/corey/multimatch/internal/domain/automaton"
	"github.com/corey/multimatch/internal/ports"
)

var (
	ErrNoName     = errors.New("pattern set has no name")
	ErrDuplicate  = errors.New("duplicate pattern set")
	ErrNoPatterns = errors.New("pattern set has no patterns")
)

// Set is a named pattern set.
type Set struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Alphabet    string   `yaml:"alphabet,omitempty"`
	Fold        bool     `yaml:"fold,omitempty"`
	Patterns    []string `yaml:"patterns"`

	// Source is the file the set was read from; empty for built-ins.
	Source string `yaml:"-"`
}

// Parse decodes a single YAML set.
func Parse(data []byte) (*Set, error) {
	var s Set
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse pattern set: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// ParseLines reads a plain pattern list: one pattern per line, surrounding
// whitespace trimmed, blank lines and lines starting with '#' ignored.
func ParseLines(name string, data []byte) *Set {
	s := &Set{Name: name}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s.Patterns = append(s.Patterns, line)
	}
	return s
}

// LoadFile reads a set from disk. Files ending in .yaml or .yml are parsed as
// YAML; anything else is a plain pattern list named after the file.
func LoadFile(filePath string) (*Set, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read pattern file: %w", err)
	}

	var s *Set
	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".yaml", ".yml":
		s, err = Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filePath, err)
		}
	default:
		base := filepath.Base(filePath)
		s = ParseLines(strings.TrimSuffix(base, filepath.Ext(base)), data)
	}
	s.Source = filePath
	return s, nil
}

// LoadFS loads every .yaml set in dir of fsys, sorted by file name.
// Set names must be unique.
func LoadFS(fsys fs.FS, dir string) ([]*Set, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read sets dir %q: %w", dir, err)
	}

	// Sort for deterministic load order
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	var sets []*Set
	seen := make(map[string]string) // name → source file
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		s, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		if prev, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("%w %q (first in %s, again in %s)", ErrDuplicate, s.Name, prev, entry.Name())
		}
		seen[s.Name] = entry.Name()
		sets = append(sets, s)
	}
	return sets, nil
}

// Validate checks that the set is named and its alphabet resolves.
func (s *Set) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrNoName
	}
	if s.Alphabet != "" {
		if _, err := automaton.AlphabetByName(s.Alphabet); err != nil {
			return fmt.Errorf("set %q: %w", s.Name, err)
		}
	}
	return nil
}

// Options returns the automaton options for this set. fallbackAlphabet is
// used when the set does not name one.
func (s *Set) Options(fallbackAlphabet string) ([]automaton.Option, error) {
	name := s.Alphabet
	if name == "" {
		name = fallbackAlphabet
	}
	var opts []automaton.Option
	if name != "" {
		alpha, err := automaton.AlphabetByName(name)
		if err != nil {
			return nil, fmt.Errorf("set %q: %w", s.Name, err)
		}
		opts = append(opts, automaton.WithAlphabet(alpha))
	}
	if s.Fold {
		opts = append(opts, automaton.WithNormalizer(automaton.FoldASCII))
	}
	return opts, nil
}

// Build compiles the set into an automaton.
func (s *Set) Build(fallbackAlphabet string) (*automaton.Automaton, error) {
	opts, err := s.Options(fallbackAlphabet)
	if err != nil {
		return nil, err
	}
	return automaton.New(s.Patterns, opts...), nil
}

// Stored converts the set to its persisted form.
func (s *Set) Stored(now time.Time) *ports.StoredSet {
	return &ports.StoredSet{
		Name:        s.Name,
		Description: s.Description,
		Alphabet:    s.Alphabet,
		Fold:        s.Fold,
		Patterns:    append([]string(nil), s.Patterns...),
		Source:      s.Source,
		UpdatedAt:   now,
	}
}

// FromStored converts a persisted set back to a Set.
func FromStored(st *ports.StoredSet) *Set {
	return &Set{
		Name:        st.Name,
		Description: st.Description,
		Alphabet:    st.Alphabet,
		Fold:        st.Fold,
		Patterns:    append([]string(nil), st.Patterns...),
		Source:      st.Source,
	}
}

// Filter returns the names matching glob ('*' and '?' wildcards), sorted.
// An empty glob matches everything.
func Filter(names []string, glob string) []string {
	var out []string
	for _, n := range names {
		if glob == "" || match.Match(n, glob) {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}
