package ngram

// OrderStats holds aggregated statistics for the table of one order.
type OrderStats struct {
	Order        int     // The n-gram order.
	DistinctKeys int     // The number of unique observed n-grams.
	Windows      float64 // The sum of all counts; the number of counted windows.
}

// ModelStats holds aggregated statistics for a Model.
type ModelStats struct {
	Tokens     int          // The number of corpus tokens, degenerate ones included.
	Vocabulary int          // The number of distinct non-degenerate tokens.
	Orders     []OrderStats // One entry per requested order, ascending.
}

// Stats returns a snapshot of corpus statistics for orders 1 through
// maxOrder.
func (m *Model) Stats(maxOrder int) ModelStats {
	stats := ModelStats{
		Tokens:     len(m.tokens),
		Vocabulary: len(m.vocab),
	}
	for n := 1; n <= maxOrder; n++ {
		t := m.Table(n)
		stats.Orders = append(stats.Orders, OrderStats{
			Order:        n,
			DistinctKeys: t.Len(),
			Windows:      t.Total(),
		})
	}
	return stats
}
