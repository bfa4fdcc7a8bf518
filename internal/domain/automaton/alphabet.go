package automaton

import (
	"fmt"
	"strings"
)

// Reject is returned by Alphabet.Symbol for bytes outside the alphabet.
const Reject = -1

// Alphabet maps bytes to dense symbol indices in [0, Size()).
// Symbols are numbered in declaration order.
type Alphabet struct {
	name    string
	index   [256]int16
	symbols []byte
}

// Built-in alphabets.
var (
	Lowercase = MustAlphabet("lower", "abcdefghijklmnopqrstuvwxyz")
	DNA       = MustAlphabet("dna", "ACGT")
	Printable = MustAlphabet("printable", printableASCII())
	Bytes     = MustAlphabet("bytes", allBytes())
)

var builtinAlphabets = map[string]*Alphabet{
	Lowercase.name: Lowercase,
	DNA.name:       DNA,
	Printable.name: Printable,
	Bytes.name:     Bytes,
}

// NewAlphabet builds an alphabet from the given symbol bytes.
func NewAlphabet(name, symbols string) (*Alphabet, error) {
	if len(symbols) == 0 {
		return nil, ErrEmptyAlphabet
	}
	a := &Alphabet{name: name, symbols: make([]byte, 0, len(symbols))}
	for i := range a.index {
		a.index[i] = Reject
	}
	for i := 0; i < len(symbols); i++ {
		c := symbols[i]
		if a.index[c] != Reject {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSymbol, c)
		}
		a.index[c] = int16(len(a.symbols))
		a.symbols = append(a.symbols, c)
	}
	return a, nil
}

// MustAlphabet is like NewAlphabet but panics on error.
func MustAlphabet(name, symbols string) *Alphabet {
	a, err := NewAlphabet(name, symbols)
	if err != nil {
		panic(err)
	}
	return a
}

// AlphabetByName resolves a built-in alphabet name, or a literal symbol
// list written as "chars:<symbols>".
func AlphabetByName(name string) (*Alphabet, error) {
	if symbols, ok := strings.CutPrefix(name, "chars:"); ok {
		return NewAlphabet(name, symbols)
	}
	if a, ok := builtinAlphabets[strings.ToLower(name)]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAlphabet, name)
}

// Name returns the name the alphabet was declared with.
func (a *Alphabet) Name() string { return a.name }

// Size returns K, the number of symbols.
func (a *Alphabet) Size() int { return len(a.symbols) }

// Symbol returns the dense index of c, or Reject.
func (a *Alphabet) Symbol(c byte) int { return int(a.index[c]) }

// Contains reports whether c is in the alphabet.
func (a *Alphabet) Contains(c byte) bool { return a.index[c] != Reject }

// Byte returns the byte for symbol index sym.
func (a *Alphabet) Byte(sym int) byte { return a.symbols[sym] }

func (a *Alphabet) String() string {
	if len(a.symbols) > 32 {
		return fmt.Sprintf("%s(%d symbols)", a.name, len(a.symbols))
	}
	return fmt.Sprintf("%s[%s]", a.name, a.symbols)
}

func printableASCII() string {
	var sb strings.Builder
	for c := byte(0x20); c <= 0x7e; c++ {
		sb.WriteByte(c)
	}
	return sb.String()
}

func allBytes() string {
	b := make([]byte, 256)
	for i := range b {
		b[i] = byte(i)
	}
	return string(b)
}
