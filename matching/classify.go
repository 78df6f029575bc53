package matching

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultThreshold = 0.75

	// FirstTokenScore is assigned to any candidate sharing the incoming name's
	// first significant token.
	FirstTokenScore = 0.95

	// a shared token must be longer than this to count ("co", "ab" never do)
	minSignificantTokenLen = 2
)

type VerdictKind string

const (
	VerdictExact      VerdictKind = "exact"
	VerdictFirstToken VerdictKind = "first-token"
	VerdictFuzzy      VerdictKind = "fuzzy"
	VerdictNew        VerdictKind = "new"
	VerdictInvalid    VerdictKind = "invalid"
)

type Action string

const (
	ActionUpdate Action = "update"
	ActionMatch  Action = "match"
	ActionCreate Action = "create"
)

// Named is anything the classifier can match against.
type Named interface {
	GetName() string
}

// Verdict is the outcome of classifying one incoming name. Match holds the
// zero value of T unless HasMatch reports true.
type Verdict[T Named] struct {
	Kind   VerdictKind
	Action Action
	Match  T
	Score  float64
}

func (v Verdict[T]) HasMatch() bool {
	switch v.Kind {
	case VerdictExact, VerdictFirstToken, VerdictFuzzy:
		return true
	}
	return false
}

// Classify runs ClassifyWithThreshold at DefaultThreshold.
func Classify[T Named](name string, catalog []T) Verdict[T] {
	return ClassifyWithThreshold(name, catalog, DefaultThreshold)
}

// ClassifyWithThreshold compares name against every catalog entry and returns
// the global best match. It never fails: a blank name is invalid.
func ClassifyWithThreshold[T Named](name string, catalog []T, threshold float64) Verdict[T] {
	if strings.TrimSpace(name) == "" {
		return Verdict[T]{Kind: VerdictInvalid}
	}
	for _, c := range catalog {
		if c.GetName() == name {
			return exactVerdict(c)
		}
	}

	in := newIncoming(name)
	best := candidateScore{index: -1}
	bestPlain := 0.0
	for i, c := range catalog {
		cs := in.score(i, Normalize(c.GetName()))
		bestPlain = max(bestPlain, cs.plain)
		if cs.score > best.score {
			best = cs
		}
	}
	if best.index < 0 {
		return Verdict[T]{Kind: VerdictNew, Action: ActionCreate}
	}
	return decide(catalog[best.index], best, bestPlain, threshold)
}

// candidateScore is one catalog entry as seen by the scan: score is what
// ranks it, plain is its edit-distance similarity either way.
type candidateScore struct {
	index   int
	score   float64
	plain   float64
	byToken bool
}

func exactVerdict[T Named](c T) Verdict[T] {
	return Verdict[T]{Kind: VerdictExact, Action: ActionUpdate, Match: c, Score: 1}
}

// incoming holds the derived forms of the incoming name so each candidate costs
// one normalize and at most one edit distance.
type incoming struct {
	normalized string
	token      string
}

func newIncoming(name string) incoming {
	n := Normalize(name)
	return incoming{normalized: n, token: firstToken(n)}
}

// score scores the normalized candidate at catalog position i. A name that
// normalizes to "" scores nothing.
func (p incoming) score(i int, candidate string) candidateScore {
	cs := candidateScore{index: i}
	if p.normalized == "" {
		return cs
	}
	cs.plain = Similarity(p.normalized, candidate)
	cs.score = cs.plain
	if utf8.RuneCountInString(p.token) > minSignificantTokenLen && firstToken(candidate) == p.token {
		cs.score, cs.byToken = max(FirstTokenScore, cs.plain), true
	}
	return cs
}

// decide labels the winner. A token winner is reported as fuzzy only when
// its own similarity clears the threshold and no other candidate had a higher
// similarity; otherwise it stays first-token at FirstTokenScore.
func decide[T Named](c T, best candidateScore, bestPlain float64, threshold float64) Verdict[T] {
	if best.score < threshold {
		return Verdict[T]{Kind: VerdictNew, Action: ActionCreate}
	}
	if best.byToken {
		if best.plain >= threshold && best.plain >= bestPlain {
			return Verdict[T]{Kind: VerdictFuzzy, Action: ActionMatch, Match: c, Score: best.plain}
		}
		return Verdict[T]{Kind: VerdictFirstToken, Action: ActionMatch, Match: c, Score: best.score}
	}
	return Verdict[T]{Kind: VerdictFuzzy, Action: ActionMatch, Match: c, Score: best.score}
}

// firstToken is FirstSignificantToken over an already normalized name.
func firstToken(normalized string) string {
	tokens := strings.Split(normalized, " ")
	if len(tokens) > 0 && tokens[0] == stopWordThe {
		tokens = tokens[1:]
	}
	if len(tokens) == 0 {
		return ""
	}
	return tokens[0]
}
