package ports

import "sort"

// Matcher finds every occurrence of a fixed pattern set in a text using
// multi-pattern matching (Aho-Corasick). A single pass over the text reports
// all patterns simultaneously, including patterns that are suffixes of one
// another and end at the same position.
//
// A Matcher is built once from its pattern set and never mutated afterwards;
// callers rebuild a fresh Matcher when the set changes. Search must be safe
// for concurrent use. Text is matched as-is unless the implementation was
// configured with a normalizer, in which case the same normalizer is applied
// to patterns and text.
type Matcher interface {
	// Search returns the start positions of every occurrence, keyed by
	// pattern index. Returns an empty (non-nil) map if nothing matches.
	Search(text string) Matches

	// PatternCount returns the number of patterns the matcher was built from,
	// including rejected ones (their indices are preserved).
	PatternCount() int

	// Pattern returns the pattern string at idx, or "" if out of range.
	Pattern(idx int) string
}

// Matches maps a pattern index to the ascending byte offsets at which that
// pattern starts. An occurrence of pattern p starting at s ends at
// s + len(p) - 1.
type Matches map[int][]int

// Total returns the number of occurrences across all patterns.
func (m Matches) Total() int {
	n := 0
	for _, pos := range m {
		n += len(pos)
	}
	return n
}

// Indices returns the matched pattern indices in ascending order.
func (m Matches) Indices() []int {
	idx := make([]int, 0, len(m))
	for i := range m {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// ByText re-keys the matches by pattern string. Patterns that appear more than
// once in the set share one entry; their positions are merged and deduplicated.
func (m Matches) ByText(pattern func(int) string) map[string][]int {
	out := make(map[string][]int, len(m))
	for _, idx := range m.Indices() {
		p := pattern(idx)
		out[p] = mergeSorted(out[p], m[idx])
	}
	return out
}

// mergeSorted merges two ascending slices, dropping duplicates.
func mergeSorted(a, b []int) []int {
	if len(a) == 0 {
		return append([]int(nil), b...)
	}
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		var v int
		switch {
		case j >= len(b) || (i < len(a) && a[i] < b[j]):
			v = a[i]
			i++
		case i >= len(a) || b[j] < a[i]:
			v = b[j]
			j++
		default:
			v = a[i]
			i++
			j++
		}
		if n := len(out); n == 0 || out[n-1] != v {
			out = append(out, v)
		}
	}
	return out
}
