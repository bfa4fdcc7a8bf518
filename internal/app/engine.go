package app

import (
	"fmt"

	"github.com/corey/multimatch/internal/adapters/ahocorasick"
	"github.com/corey/multimatch/internal/domain/automaton"
	"github.com/corey/multimatch/internal/domain/patternset"
	"github.com/corey/multimatch/internal/ports"
)

// Engine names a ports.Matcher implementation.
type Engine string

const (
	// EngineAutomaton is the in-house automaton. It honours the set's alphabet.
	EngineAutomaton Engine = "automaton"
	// EngineLibrary is petar-dambovaliev/aho-corasick. It matches raw bytes
	// and ignores the alphabet; case folding still applies.
	EngineLibrary Engine = "library"
)

// ParseEngine validates an engine name. Empty means EngineAutomaton.
func ParseEngine(name string) (Engine, error) {
	switch Engine(name) {
	case "", EngineAutomaton:
		return EngineAutomaton, nil
	case EngineLibrary:
		return EngineLibrary, nil
	}
	return "", fmt.Errorf("unknown engine %q (want %q or %q)", name, EngineAutomaton, EngineLibrary)
}

// Compile builds a matcher for set with the given engine.
func Compile(set *patternset.Set, engine Engine, fallbackAlphabet string) (ports.Matcher, error) {
	switch engine {
	case "", EngineAutomaton:
		a, err := set.Build(fallbackAlphabet)
		if err != nil {
			return nil, err
		}
		return a, nil
	case EngineLibrary:
		// Validate the alphabet anyway so a bad set fails the same way on both engines.
		if _, err := set.Options(fallbackAlphabet); err != nil {
			return nil, err
		}
		var opts []ahocorasick.Option
		if set.Fold {
			opts = append(opts, ahocorasick.WithNormalizer(automaton.FoldASCII))
		}
		return ahocorasick.New(set.Patterns, opts...), nil
	}
	return nil, fmt.Errorf("unknown engine %q", engine)
}
