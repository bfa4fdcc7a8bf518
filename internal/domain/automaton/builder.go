package automaton

// none marks an absent trie edge and the root's missing parent.
const none = -1

// root is the id of the start state. It is created once and never carries
// pattern ends.
const root = 0

// Pattern is an input pattern as recorded by the builder.
type Pattern struct {
	Index   int    // position in insertion order
	Text    string // as supplied by the caller, before normalization
	Length  int    // number of in-alphabet symbols inserted into the trie
	Dropped int    // out-of-alphabet bytes skipped during insertion
}

// Option configures a Builder.
type Option func(*Builder)

// WithAlphabet sets the alphabet. The default is Lowercase.
func WithAlphabet(a *Alphabet) Option {
	return func(b *Builder) {
		if a != nil {
			b.alpha = a
		}
	}
}

// WithNormalizer applies fn to every pattern at Add time and to every text at
// search time. fn must preserve byte length, otherwise reported positions
// refer to the normalized text rather than the caller's.
func WithNormalizer(fn func(string) string) Option {
	return func(b *Builder) { b.normalize = fn }
}

// Builder inserts patterns into a trie. Build freezes it and derives the
// failure links and the total transition function.
type Builder struct {
	alpha     *Alphabet
	k         int
	normalize func(string) string

	// State arena, indexed by state id.
	parent   []int32
	symbol   []int16
	depth    []int32
	children []int32 // children[id*k+sym], none if absent
	ends     [][]int32

	patterns []Pattern
	rejected []*PatternError
	frozen   bool
}

// NewBuilder returns a builder holding only the root state.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{alpha: Lowercase}
	for _, opt := range opts {
		opt(b)
	}
	b.k = b.alpha.Size()
	b.newState(none, none)
	return b
}

func (b *Builder) newState(parent int32, sym int16) int32 {
	id := int32(len(b.parent))
	b.parent = append(b.parent, parent)
	b.symbol = append(b.symbol, sym)
	d := int32(0)
	if parent != none {
		d = b.depth[parent] + 1
	}
	b.depth = append(b.depth, d)
	b.ends = append(b.ends, nil)
	for i := 0; i < b.k; i++ {
		b.children = append(b.children, none)
	}
	return id
}

// Add inserts pattern and returns its index. Bytes outside the alphabet are
// skipped. A pattern that is empty, or empty after skipping, is rejected: it
// still consumes an index so later indices line up with the caller's input,
// but it never matches. The returned error is then a *PatternError.
func (b *Builder) Add(pattern string) (int, error) {
	if b.frozen {
		return -1, ErrFrozen
	}
	idx := len(b.patterns)
	p := Pattern{Index: idx, Text: pattern}

	norm := pattern
	if b.normalize != nil {
		norm = b.normalize(pattern)
	}

	var reject error
	if len(norm) == 0 {
		reject = ErrEmptyPattern
	}

	v := int32(root)
	for i := 0; i < len(norm) && reject == nil; i++ {
		c := b.alpha.Symbol(norm[i])
		if c == Reject {
			p.Dropped++
			continue
		}
		next := b.children[int(v)*b.k+c]
		if next == none {
			next = b.newState(v, int16(c))
			b.children[int(v)*b.k+c] = next
		}
		v = next
		p.Length++
	}
	if reject == nil && p.Length == 0 {
		reject = ErrNoValidSymbols
	}

	b.patterns = append(b.patterns, p)
	if reject != nil {
		perr := &PatternError{Index: idx, Pattern: pattern, Err: reject}
		b.rejected = append(b.rejected, perr)
		return idx, perr
	}
	b.ends[v] = append(b.ends[v], int32(idx))
	return idx, nil
}

// Len returns the number of trie states created so far.
func (b *Builder) Len() int { return len(b.parent) }
