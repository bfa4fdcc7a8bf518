// Package automaton implements an Aho-Corasick automaton over a fixed byte
// alphabet. Patterns are inserted into a trie, failure links and the total
// transition function are precomputed breadth-first, and a single left to
// right pass over a text reports every occurrence of every pattern,
// including patterns that end at the same position as a longer one.
//
// States live in flat slices indexed by state id; the root is state 0. An
// Automaton is immutable once built and is safe for concurrent use.
package automaton

// Automaton is a built, read-only pattern matching automaton.
type Automaton struct {
	alpha     *Alphabet
	k         int
	normalize func(string) string

	patterns []Pattern
	rejected []*PatternError

	parent   []int32
	symbol   []int16
	depth    []int32
	children []int32 // trie edges, children[id*k+sym]
	ends     [][]int32

	link []int32 // failure link
	dict []int32 // nearest failure-chain state with ends, root if none
	next []int32 // total transition, next[id*k+sym]
}

// Alphabet returns the alphabet the automaton was built over.
func (a *Automaton) Alphabet() *Alphabet { return a.alpha }

// Len returns the number of states, root included.
func (a *Automaton) Len() int { return len(a.parent) }

// Root returns the start state id.
func (a *Automaton) Root() int { return root }

// PatternCount returns the number of patterns added, rejected ones included.
func (a *Automaton) PatternCount() int { return len(a.patterns) }

// Pattern returns the pattern text at idx, or "" if out of range.
func (a *Automaton) Pattern(idx int) string {
	if idx < 0 || idx >= len(a.patterns) {
		return ""
	}
	return a.patterns[idx].Text
}

// Patterns returns the recorded patterns in index order.
func (a *Automaton) Patterns() []Pattern {
	out := make([]Pattern, len(a.patterns))
	copy(out, a.patterns)
	return out
}

// Rejected returns the patterns that were refused at build time.
func (a *Automaton) Rejected() []*PatternError {
	out := make([]*PatternError, len(a.rejected))
	copy(out, a.rejected)
	return out
}

// Child returns the trie child of state under symbol sym.
func (a *Automaton) Child(state, sym int) (int, bool) {
	c := a.children[state*a.k+sym]
	return int(c), c != none
}

// Parent returns the parent of state and the symbol on the edge into it.
// ok is false for the root.
func (a *Automaton) Parent(state int) (parent, sym int, ok bool) {
	if state == root {
		return none, none, false
	}
	return int(a.parent[state]), int(a.symbol[state]), true
}

// Depth returns the length of the path from the root to state.
func (a *Automaton) Depth(state int) int { return int(a.depth[state]) }

// Link returns the failure link of state. The root links to itself.
func (a *Automaton) Link(state int) int { return int(a.link[state]) }

// Ends returns the indices of patterns that terminate exactly at state.
func (a *Automaton) Ends(state int) []int {
	out := make([]int, len(a.ends[state]))
	for i, p := range a.ends[state] {
		out[i] = int(p)
	}
	return out
}

// Transition returns the next state after reading symbol sym in state.
// sym may be Reject, which leads back to the root.
func (a *Automaton) Transition(state, sym int) int {
	if sym == Reject {
		return root
	}
	return int(a.next[state*a.k+sym])
}

// Next is Transition for a raw byte.
func (a *Automaton) Next(state int, c byte) int {
	return a.Transition(state, a.alpha.Symbol(c))
}

// Path returns the bytes spelled from the root to state.
func (a *Automaton) Path(state int) string {
	buf := make([]byte, a.depth[state])
	for v := int32(state); v != root; v = a.parent[v] {
		buf[a.depth[v]-1] = a.alpha.Byte(int(a.symbol[v]))
	}
	return string(buf)
}
