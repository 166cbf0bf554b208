package analysis

import "sort"

// RankedEntry is a derived view of one class; Rank is its 0-based position.
type RankedEntry struct {
	Label    string  `json:"label"`
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	Rank     int     `json:"rank"`
}

// Rank orders every entry of set by descending mean. Ties keep insertion order.
func Rank(set *PredictionSet) []RankedEntry {
	ranked := make([]RankedEntry, 0, set.Len())
	for _, label := range set.Labels() {
		e, _ := set.Entry(label)
		ranked = append(ranked, RankedEntry{Label: label, Mean: e.Mean, Variance: e.Variance})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Mean > ranked[j].Mean
	})
	for i := range ranked {
		ranked[i].Rank = i
	}
	return ranked
}

// TableSlice returns what the table shows: the first limit entries, or all of
// them when expanded.
func TableSlice(ranked []RankedEntry, expanded bool, limit int) []RankedEntry {
	if expanded || limit <= 0 || len(ranked) <= limit {
		return ranked
	}
	return ranked[:limit]
}
