// Package detorder provides deterministic map iteration, adapted from
// util.CanonicalMapIter: Go's map iteration order is randomized per-process,
// which would make canon's encoder nondeterministic across runs if it ever
// ranged over a map directly instead of sorting keys first.
package detorder

import (
	"iter"
	"sort"
)

// Keys returns an iterator that yields map entries in sorted key order.
func Keys[T any](m map[string]T) iter.Seq2[string, T] {
	return func(yield func(string, T) bool) {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			if !yield(k, m[k]) {
				return
			}
		}
	}
}
