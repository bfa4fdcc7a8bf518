package automaton

// Build freezes the builder and returns the finished automaton. Failure links,
// dictionary links and the total transition table are computed in one
// breadth-first pass over the trie: a state's link always points to a
// shallower state, so it is final before any of the state's children need it.
//
// Build may be called more than once; later calls return an equivalent
// automaton sharing the same trie.
func (b *Builder) Build() *Automaton {
	b.frozen = true

	n := len(b.parent)
	k := b.k
	a := &Automaton{
		alpha:     b.alpha,
		k:         k,
		normalize: b.normalize,
		patterns:  b.patterns,
		rejected:  b.rejected,
		parent:    b.parent,
		symbol:    b.symbol,
		depth:     b.depth,
		children:  b.children,
		ends:      b.ends,
		link:      make([]int32, n),
		dict:      make([]int32, n),
		next:      make([]int32, n*k),
	}

	queue := make([]int32, 1, n)
	queue[0] = root
	for head := 0; head < len(queue); head++ {
		v := queue[head]
		row := int(v) * k
		for c := 0; c < k; c++ {
			u := a.children[row+c]
			if u == none {
				if v == root {
					a.next[row+c] = root
				} else {
					a.next[row+c] = a.next[int(a.link[v])*k+c]
				}
				continue
			}
			a.next[row+c] = u
			if v == root {
				a.link[u] = root
			} else {
				a.link[u] = a.next[int(a.link[v])*k+c]
			}
			f := a.link[u]
			if len(a.ends[f]) > 0 {
				a.dict[u] = f
			} else {
				a.dict[u] = a.dict[f]
			}
			queue = append(queue, u)
		}
	}
	return a
}

// New builds an automaton from patterns in one call. It never fails: rejected
// patterns are reported by Automaton.Rejected, and an empty pattern list yields
// an automaton that matches nothing.
func New(patterns []string, opts ...Option) *Automaton {
	b := NewBuilder(opts...)
	for _, p := range patterns {
		b.Add(p) // rejections are kept on the builder
	}
	return b.Build()
}
