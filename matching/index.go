package matching

import (
	"sort"
	"strings"
)

// DefaultFallbackScan is how many catalog entries outside the token bucket an
// indexed lookup still scores.
const DefaultFallbackScan = 200

// Index pre-computes normalized names and buckets a catalog by first
// significant token. Build one per validation call and reuse it for every
// incoming row.
type Index[T Named] struct {
	items      []T
	normalized []string
	exact      map[string]int
	byToken    map[string][]int
	fallback   int
}

// NewIndex builds an index over catalog. fallback bounds the extra entries
// scored outside the incoming name's token bucket; a negative value scans the
// whole catalog, which makes ClassifyIndexed equivalent to Classify.
func NewIndex[T Named](catalog []T, fallback int) *Index[T] {
	idx := &Index[T]{
		items:      catalog,
		normalized: make([]string, len(catalog)),
		exact:      make(map[string]int, len(catalog)),
		byToken:    make(map[string][]int),
		fallback:   fallback,
	}
	for i, c := range catalog {
		name := c.GetName()
		if _, ok := idx.exact[name]; !ok {
			idx.exact[name] = i
		}
		n := Normalize(name)
		idx.normalized[i] = n
		tok := firstToken(n)
		idx.byToken[tok] = append(idx.byToken[tok], i)
	}
	return idx
}

func (idx *Index[T]) Len() int {
	return len(idx.items)
}

// candidates returns the bucket for token merged with the fallback window, in
// catalog order so ties still resolve to the earliest entry.
func (idx *Index[T]) candidates(token string) []int {
	if idx.fallback < 0 || idx.fallback >= len(idx.items) {
		all := make([]int, len(idx.items))
		for i := range all {
			all[i] = i
		}
		return all
	}
	seen := make(map[int]struct{}, idx.fallback+len(idx.byToken[token]))
	out := make([]int, 0, idx.fallback+len(idx.byToken[token]))
	for _, i := range idx.byToken[token] {
		seen[i] = struct{}{}
		out = append(out, i)
	}
	for i := 0; i < idx.fallback; i++ {
		if _, ok := seen[i]; !ok {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

// ClassifyIndexed is ClassifyWithThreshold restricted to the same-token
// bucket plus the fallback window.
func ClassifyIndexed[T Named](name string, idx *Index[T], threshold float64) Verdict[T] {
	if strings.TrimSpace(name) == "" {
		return Verdict[T]{Kind: VerdictInvalid}
	}
	if i, ok := idx.exact[name]; ok {
		return exactVerdict(idx.items[i])
	}

	in := newIncoming(name)
	best := candidateScore{index: -1}
	bestPlain := 0.0
	for _, i := range idx.candidates(in.token) {
		cs := in.score(i, idx.normalized[i])
		bestPlain = max(bestPlain, cs.plain)
		if cs.score > best.score {
			best = cs
		}
	}
	if best.index < 0 {
		return Verdict[T]{Kind: VerdictNew, Action: ActionCreate}
	}
	return decide(idx.items[best.index], best, bestPlain, threshold)
}
