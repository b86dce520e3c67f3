package ngram

// Pruned returns a copy of the table without the observed n-grams whose
// count is less than or equal to minCount. Rare n-grams are often noise in a
// small corpus. The smoothing settings carry over, so a pruned key that is
// still an arrangement of corpus tokens reports the smoothing constant.
// Order-0 tables are returned unchanged.
func (t *Table) Pruned(minCount float64) *Table {
	if t == nil {
		return nil
	}
	if t.order == 0 {
		return t
	}

	p := &Table{
		order:     t.order,
		counts:    make(map[string]float64, len(t.counts)),
		smoothing: t.smoothing,
		vocab:     t.vocab,
		multiset:  t.multiset,
	}
	for _, key := range t.keys {
		c := t.counts[key]
		if c <= minCount {
			continue
		}
		p.keys = append(p.keys, key)
		p.counts[key] = c
		p.total += c
	}
	return p
}
