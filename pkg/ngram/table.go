package ngram

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	// KeySeparator joins the tokens of an n-gram into its canonical key.
	KeySeparator = " "
	// DefaultSmoothingK is the pseudo-count given to unseen n-grams when
	// smoothing is enabled without an explicit constant.
	DefaultSmoothingK = 0.01
	// DefaultMaxSmoothedKeys bounds the arrangement enumeration done by
	// Table.Smoothed when the caller passes a non-positive limit.
	DefaultMaxSmoothedKeys = 100_000
)

// ErrSmoothingTooLarge is returned when materialising a smoothed table would
// enumerate more arrangements than the caller allowed.
var ErrSmoothingTooLarge = errors.New("smoothed table exceeds enumeration limit")

// Key returns the canonical key of an n-gram.
func Key(tokens []string) string {
	return strings.Join(tokens, KeySeparator)
}

// isDegenerate reports whether key is one of the whitespace or dash keys
// that are never stored in a table.
func isDegenerate(key string) bool {
	switch key {
	case "", " ", "\n", "-":
		return true
	}
	return false
}

// Vocabulary returns the distinct non-degenerate tokens in order of first
// occurrence.
func Vocabulary(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	vocab := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if isDegenerate(tok) {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		vocab = append(vocab, tok)
	}
	return vocab
}

// Candidate is a possible next token for a sampling context, together with
// the full key it completes and its (pseudo-)count.
type Candidate struct {
	Token  string
	Key    string
	Weight float64
}

// Table maps n-gram keys of a single order to their counts. A Table is
// immutable once BuildTable returns it.
//
// When smoothing is enabled, keys that were never observed but are ordered
// arrangements of the corpus tokens (respecting how often each token occurs)
// report the smoothing constant from Count. They are answered lazily and are
// only materialised by Smoothed.
type Table struct {
	order     int
	keys      []string
	counts    map[string]float64
	total     float64
	smoothing float64
	vocab     []string
	multiset  map[string]int
}

// tableOptions Is used by BuildTable to configure default options.
type tableOptions struct {
	smoothing bool
	k         float64
}

// TableOption is a function that configures how BuildTable counts n-grams.
type TableOption func(*tableOptions)

// WithSmoothing enables additive floor smoothing with the pseudo-count k.
// A non-positive k selects DefaultSmoothingK.
func WithSmoothing(k float64) TableOption {
	return func(o *tableOptions) {
		if k <= 0 {
			k = DefaultSmoothingK
		}
		o.smoothing = true
		o.k = k
	}
}

// BuildTable counts every window of n consecutive tokens. Windows that
// contain a degenerate token, such as the empty token left by a blank line,
// are skipped.
//
// Order 0 is the empty context: the table holds a single entry keyed by the
// empty string whose count is the number of non-degenerate tokens. A
// negative order, or one larger than the token count, yields an empty table
// of that order.
func BuildTable(tokens []string, n int, opts ...TableOption) *Table {
	options := &tableOptions{}
	for _, opt := range opts {
		opt(options)
	}

	t := &Table{
		order:  n,
		counts: make(map[string]float64),
	}

	if n == 0 {
		var size int
		for _, tok := range tokens {
			if !isDegenerate(tok) {
				size++
			}
		}
		t.keys = []string{""}
		t.counts[""] = float64(size)
		t.total = float64(size)
		return t
	}

	if options.smoothing && n > 0 {
		t.smoothing = options.k
		t.vocab = Vocabulary(tokens)
		t.multiset = make(map[string]int, len(t.vocab))
		for _, tok := range tokens {
			if !isDegenerate(tok) {
				t.multiset[tok]++
			}
		}
	}

	if n < 0 || n > len(tokens) {
		return t
	}

	for i := 0; i+n <= len(tokens); i++ {
		window := tokens[i : i+n]
		if slices.ContainsFunc(window, isDegenerate) {
			continue
		}
		key := Key(window)
		if _, ok := t.counts[key]; !ok {
			t.keys = append(t.keys, key)
		}
		t.counts[key]++
		t.total++
	}
	return t
}

// Order returns the n-gram order of the table.
func (t *Table) Order() int {
	if t == nil {
		return 0
	}
	return t.order
}

// Len returns the number of observed keys.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// Keys returns the observed keys in order of first occurrence.
func (t *Table) Keys() []string {
	if t == nil {
		return nil
	}
	keys := make([]string, len(t.keys))
	copy(keys, t.keys)
	return keys
}

// Total returns the sum of all observed counts.
func (t *Table) Total() float64 {
	if t == nil {
		return 0
	}
	return t.total
}

// Smoothing returns the smoothing constant, or 0 when smoothing is off.
func (t *Table) Smoothing() float64 {
	if t == nil {
		return 0
	}
	return t.smoothing
}

// Count returns the count for key. With smoothing enabled an unseen key that
// is an arrangement of corpus tokens reports the smoothing constant.
// A nil table has no entries.
func (t *Table) Count(key string) (float64, bool) {
	if t == nil {
		return 0, false
	}
	if c, ok := t.counts[key]; ok {
		return c, true
	}
	if t.smoothing > 0 && t.isArrangement(key) {
		return t.smoothing, true
	}
	return 0, false
}

// isArrangement reports whether key splits into exactly order corpus tokens
// without using any token more often than the corpus does.
func (t *Table) isArrangement(key string) bool {
	if isDegenerate(key) {
		return false
	}
	parts := strings.Split(key, KeySeparator)
	if len(parts) != t.order {
		return false
	}
	used := make(map[string]int, len(parts))
	for _, p := range parts {
		used[p]++
		if used[p] > t.multiset[p] {
			return false
		}
	}
	return true
}

// Continuations returns every key whose first order-1 tokens equal context,
// observed keys first in table order, followed by smoothed unseen
// completions in vocabulary order. The match is on whole leading tokens,
// never on a substring in the middle of a key.
func (t *Table) Continuations(context []string) []Candidate {
	if t == nil || t.order < 1 || len(context) != t.order-1 {
		return nil
	}

	prefix := ""
	if len(context) > 0 {
		prefix = Key(context) + KeySeparator
	}

	var candidates []Candidate
	for _, key := range t.keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		candidates = append(candidates, Candidate{
			Token:  key[len(prefix):],
			Key:    key,
			Weight: t.counts[key],
		})
	}

	if t.smoothing > 0 {
		for _, tok := range t.vocab {
			key := prefix + tok
			if _, seen := t.counts[key]; seen {
				continue
			}
			if t.isArrangement(key) {
				candidates = append(candidates, Candidate{Token: tok, Key: key, Weight: t.smoothing})
			}
		}
	}
	return candidates
}

// Smoothed materialises the table the way the permutation smoothing pass
// defines it: every observed key keeps its count and every other ordered
// arrangement of order corpus tokens receives the smoothing constant.
//
// The enumeration grows factorially with the corpus, so it is refused with
// ErrSmoothingTooLarge when the number of arrangements to visit exceeds
// limit. A non-positive limit selects DefaultMaxSmoothedKeys. Without
// smoothing the observed counts are returned as is.
func (t *Table) Smoothed(limit int) (map[string]float64, error) {
	if t == nil {
		return map[string]float64{}, nil
	}
	out := make(map[string]float64, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}
	if t.smoothing <= 0 || t.order < 1 {
		return out, nil
	}
	if limit <= 0 {
		limit = DefaultMaxSmoothedKeys
	}

	size := 0
	for _, c := range t.multiset {
		size += c
	}
	if !permutationsWithin(size, t.order, limit) {
		return nil, fmt.Errorf("%w: order %d over %d tokens (limit %d)", ErrSmoothingTooLarge, t.order, size, limit)
	}

	remaining := make(map[string]int, len(t.multiset))
	for k, v := range t.multiset {
		remaining[k] = v
	}
	arrangement := make([]string, 0, t.order)

	var walk func()
	walk = func() {
		if len(arrangement) == t.order {
			key := Key(arrangement)
			if _, ok := out[key]; !ok && !isDegenerate(key) {
				out[key] = t.smoothing
			}
			return
		}
		for _, tok := range t.vocab {
			if remaining[tok] == 0 {
				continue
			}
			remaining[tok]--
			arrangement = append(arrangement, tok)
			walk()
			arrangement = arrangement[:len(arrangement)-1]
			remaining[tok]++
		}
	}
	walk()

	return out, nil
}

// permutationsWithin reports whether size!/(size-k)! is at most limit,
// stopping before the product can overflow.
func permutationsWithin(size, k, limit int) bool {
	if k > size {
		return true
	}
	total := 1
	for i := 0; i < k; i++ {
		total *= size - i
		if total > limit {
			return false
		}
	}
	return true
}
