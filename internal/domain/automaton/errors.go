package automaton

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyPattern is recorded for a zero-length pattern. Empty patterns
	// are rejected rather than matching at every position.
	ErrEmptyPattern = errors.New("empty pattern")
	// ErrNoValidSymbols is recorded for a pattern whose bytes all fall outside
	// the alphabet. It would otherwise terminate at the root.
	ErrNoValidSymbols = errors.New("pattern has no symbols in alphabet")
	// ErrFrozen is returned by Builder.Add after Build has been called.
	ErrFrozen = errors.New("automaton already built")

	ErrEmptyAlphabet   = errors.New("empty alphabet")
	ErrDuplicateSymbol = errors.New("duplicate alphabet symbol")
	ErrUnknownAlphabet = errors.New("unknown alphabet")
)

// PatternError describes a pattern that was rejected at build time.
// The pattern keeps its index but never matches.
type PatternError struct {
	Index   int
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("pattern %d %q: %v", e.Index, e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}
