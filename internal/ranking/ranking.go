// Package ranking assigns Dean's List ranks by GWA.
package ranking

import "sort"

type Entry struct {
	StudentID int64
	GWA       float64
	Units     int
}

type Ranked struct {
	Entry
	Rank int
}

// Rank orders entries by ascending GWA and assigns standard competition ranks:
// equal GWAs share a rank and the next distinct GWA takes its 1-based position
// (1, 2, 2, 4). Input order is kept among ties.
func Rank(entries []Entry) []Ranked {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].GWA < sorted[j].GWA })

	out := make([]Ranked, len(sorted))
	for i, e := range sorted {
		rank := i + 1
		if i > 0 && e.GWA == sorted[i-1].GWA {
			rank = out[i-1].Rank
		}
		out[i] = Ranked{Entry: e, Rank: rank}
	}
	return out
}
