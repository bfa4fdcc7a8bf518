package app

import (
	"fmt"
	"sort"
	"sync"

	"github.com/corey/multimatch/internal/adapters/socket"
	"github.com/corey/multimatch/internal/domain/automaton"
	"github.com/corey/multimatch/internal/domain/patternset"
	"github.com/corey/multimatch/internal/ports"
)

// Origins of a registered set, lowest precedence first.
const (
	OriginBuiltin = "builtin"
	OriginStore   = "store"
	OriginFile    = "file"
)

// Compiled is one set together with its matcher. It is immutable once built.
type Compiled struct {
	Set     *patternset.Set
	Matcher ports.Matcher
	Origin  string
	Info    socket.SetInfo
}

// Registry holds the compiled matcher of every loaded set. Matchers are
// never mutated: a changed set is compiled into a new matcher and swapped in
// under the write lock, so in-flight searches finish on the old one.
type Registry struct {
	engine   Engine
	alphabet string

	mu      sync.RWMutex
	entries map[string]*Compiled
}

// NewRegistry creates an empty registry compiling with engine, using
// fallbackAlphabet for sets that name none.
func NewRegistry(engine Engine, fallbackAlphabet string) *Registry {
	return &Registry{
		engine:   engine,
		alphabet: fallbackAlphabet,
		entries:  make(map[string]*Compiled),
	}
}

// Compile builds a set without registering it.
func (r *Registry) Compile(set *patternset.Set, origin string) (*Compiled, error) {
	m, err := Compile(set, r.engine, r.alphabet)
	if err != nil {
		return nil, err
	}

	alpha := set.Alphabet
	if alpha == "" {
		alpha = r.alphabet
	}
	if r.engine == EngineLibrary {
		alpha = automaton.Bytes.Name()
	}
	source := set.Source
	if source == "" {
		source = origin
	}

	return &Compiled{
		Set:     set,
		Matcher: m,
		Origin:  origin,
		Info: socket.SetInfo{
			Name:        set.Name,
			Description: set.Description,
			Alphabet:    alpha,
			Fold:        set.Fold,
			Patterns:    m.PatternCount(),
			Source:      source,
			Engine:      string(r.engine),
		},
	}, nil
}

// Put compiles set and swaps it in, replacing any set of the same name.
// Compilation happens outside the lock.
func (r *Registry) Put(set *patternset.Set, origin string) error {
	c, err := r.Compile(set, origin)
	if err != nil {
		return fmt.Errorf("compile set %q: %w", set.Name, err)
	}
	r.mu.Lock()
	r.entries[set.Name] = c
	r.mu.Unlock()
	return nil
}

// Replace swaps in a whole new generation of sets at once.
func (r *Registry) Replace(entries map[string]*Compiled) {
	if entries == nil {
		entries = make(map[string]*Compiled)
	}
	r.mu.Lock()
	r.entries = entries
	r.mu.Unlock()
}

// Remove drops a set. Removing an unknown set is a no-op.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	delete(r.entries, name)
	r.mu.Unlock()
}

// Get returns the compiled entry for name.
func (r *Registry) Get(name string) (*Compiled, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.entries[name]
	return c, ok
}

// Matcher returns the matcher for name.
func (r *Registry) Matcher(name string) (ports.Matcher, bool) {
	c, ok := r.Get(name)
	if !ok {
		return nil, false
	}
	return c.Matcher, true
}

// Names returns the registered set names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// SetInfos summarizes every registered set, sorted by name.
func (r *Registry) SetInfos() []socket.SetInfo {
	r.mu.RLock()
	infos := make([]socket.SetInfo, 0, len(r.entries))
	for _, c := range r.entries {
		infos = append(infos, c.Info)
	}
	r.mu.RUnlock()
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Len returns the number of registered sets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// EngineName returns the engine sets are compiled with.
func (r *Registry) EngineName() string {
	return string(r.engine)
}
