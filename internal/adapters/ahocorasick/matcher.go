// Package ahocorasick provides a ports.Matcher backed by the
// petar-dambovaliev/aho-corasick library. It is the "library" engine: a
// second, independent implementation used to cross-check the in-house
// automaton and selectable from the CLI.
package ahocorasick

import (
	aho "github.com/petar-dambovaliev/aho-corasick"

	"github.com/corey/multimatch/internal/ports"
)

// Matcher implements ports.Matcher over raw bytes. Unlike the in-house
// automaton it has no alphabet: every byte participates in matching.
// Empty patterns keep their index but are not compiled, so they never match.
type Matcher struct {
	automaton aho.AhoCorasick
	patterns  []string
	compiled  []int // library pattern id -> caller's pattern index
	normalize func(string) string
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithNormalizer applies fn to patterns at build time and to text at search
// time. fn must preserve byte length.
func WithNormalizer(fn func(string) string) Option {
	return func(m *Matcher) { m.normalize = fn }
}

// New compiles the automaton from the given patterns.
func New(patterns []string, opts ...Option) *Matcher {
	m := &Matcher{patterns: make([]string, len(patterns))}
	copy(m.patterns, patterns)
	for _, opt := range opts {
		opt(m)
	}

	keep := make([]string, 0, len(patterns))
	for i, p := range m.patterns {
		if m.normalize != nil {
			p = m.normalize(p)
		}
		if p == "" {
			continue
		}
		keep = append(keep, p)
		m.compiled = append(m.compiled, i)
	}

	if len(keep) > 0 {
		builder := aho.NewAhoCorasickBuilder(aho.Opts{
			DFA: true,
		})
		m.automaton = builder.Build(keep)
	}
	return m
}

// Search returns every occurrence, overlapping ones included, keyed by
// pattern index.
func (m *Matcher) Search(text string) ports.Matches {
	out := make(ports.Matches)
	for _, tm := range m.Scan([]byte(text)) {
		out[tm.PatternIndex] = append(out[tm.PatternIndex], tm.Start)
	}
	for idx, starts := range out {
		out[idx] = sortedUnique(starts)
	}
	return out
}

// TextMatch represents a match with byte offsets.
type TextMatch struct {
	PatternIndex int // index into the original patterns slice
	Start        int // byte offset start (inclusive)
	End          int // byte offset end (exclusive)
}

// Scan finds all pattern matches in content and returns them with byte offsets.
func (m *Matcher) Scan(content []byte) []TextMatch {
	if len(m.compiled) == 0 {
		return nil
	}
	if m.normalize != nil {
		content = []byte(m.normalize(string(content)))
	}
	iter := m.automaton.IterOverlappingByte(content)
	var matches []TextMatch
	for next := iter.Next(); next != nil; next = iter.Next() {
		lm := *next
		matches = append(matches, TextMatch{
			PatternIndex: m.compiled[lm.Pattern()],
			Start:        lm.Start(),
			End:          lm.End(),
		})
	}
	return matches
}

// PatternCount returns the number of patterns in the automaton.
func (m *Matcher) PatternCount() int {
	return len(m.patterns)
}

// Pattern returns the pattern string at the given index.
func (m *Matcher) Pattern(idx int) string {
	if idx < 0 || idx >= len(m.patterns) {
		return ""
	}
	return m.patterns[idx]
}

// sortedUnique sorts starts in place (insertion sort; the library reports
// matches nearly in order) and drops repeats.
func sortedUnique(starts []int) []int {
	for i := 1; i < len(starts); i++ {
		for j := i; j > 0 && starts[j] < starts[j-1]; j-- {
			starts[j], starts[j-1] = starts[j-1], starts[j]
		}
	}
	out := starts[:0]
	for _, s := range starts {
		if n := len(out); n == 0 || out[n-1] != s {
			out = append(out, s)
		}
	}
	return out
}

var _ ports.Matcher = (*Matcher)(nil)
