package automaton

import "github.com/corey/multimatch/internal/ports"

// Match is one occurrence of a pattern in a text.
type Match struct {
	Pattern int // index into the automaton's patterns
	Start   int // byte offset start (inclusive)
	End     int // byte offset end (exclusive)
}

// Each runs the automaton over text and calls fn for every occurrence, in
// order of end position. Occurrences ending at the same position are reported
// longest first. Scanning stops early if fn returns false.
//
// Bytes outside the alphabet send the automaton back to the root, so no
// occurrence spans one.
func (a *Automaton) Each(text string, fn func(Match) bool) {
	if a.normalize != nil {
		text = a.normalize(text)
	}
	v := int32(root)
	for i := 0; i < len(text); i++ {
		c := a.alpha.Symbol(text[i])
		if c == Reject {
			v = root
			continue
		}
		v = a.next[int(v)*a.k+c]

		w := v
		if len(a.ends[w]) == 0 {
			w = a.dict[w]
		}
		for ; w != root; w = a.dict[w] {
			for _, p := range a.ends[w] {
				m := Match{Pattern: int(p), Start: i + 1 - a.patterns[p].Length, End: i + 1}
				if !fn(m) {
					return
				}
			}
		}
	}
}

// FindAll returns every occurrence in text, in the order Each reports them.
func (a *Automaton) FindAll(text string) []Match {
	var out []Match
	a.Each(text, func(m Match) bool {
		out = append(out, m)
		return true
	})
	return out
}

// Search returns the start positions of every occurrence keyed by pattern
// index. Positions are ascending and never repeat, since each end position is
// visited once.
func (a *Automaton) Search(text string) ports.Matches {
	out := make(ports.Matches)
	a.Each(text, func(m Match) bool {
		out[m.Pattern] = append(out[m.Pattern], m.Start)
		return true
	})
	return out
}

// Count returns the number of occurrences in text.
func (a *Automaton) Count(text string) int {
	n := 0
	a.Each(text, func(Match) bool {
		n++
		return true
	})
	return n
}

// Contains reports whether any pattern occurs in text.
func (a *Automaton) Contains(text string) bool {
	found := false
	a.Each(text, func(Match) bool {
		found = true
		return false
	})
	return found
}

// FoldASCII lowercases ASCII letters and leaves every other byte alone, so
// byte offsets are preserved. Use it with WithNormalizer for case-insensitive
// matching.
func FoldASCII(s string) string {
	for i := 0; i < len(s); i++ {
		if c := s[i]; 'A' <= c && c <= 'Z' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if 'A' <= b[j] && b[j] <= 'Z' {
					b[j] += 'a' - 'A'
				}
			}
			return string(b)
		}
	}
	return s
}

var _ ports.Matcher = (*Automaton)(nil)
