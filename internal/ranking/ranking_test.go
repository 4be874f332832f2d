package ranking

import "testing"

func TestRankCompetitionStyle(t *testing.T) {
	in := []Entry{
		{StudentID: 4, GWA: 1.50},
		{StudentID: 2, GWA: 1.25},
		{StudentID: 1, GWA: 1.00},
		{StudentID: 3, GWA: 1.25},
	}
	got := Rank(in)
	wantIDs := []int64{1, 2, 3, 4}
	wantRanks := []int{1, 2, 2, 4}
	for i := range got {
		if got[i].StudentID != wantIDs[i] || got[i].Rank != wantRanks[i] {
			t.Fatalf("position %d: got student %d rank %d, want student %d rank %d",
				i, got[i].StudentID, got[i].Rank, wantIDs[i], wantRanks[i])
		}
	}
	if in[0].StudentID != 4 {
		t.Fatal("input slice must not be reordered")
	}
}

func TestRankEdgeCases(t *testing.T) {
	if got := Rank(nil); len(got) != 0 {
		t.Fatalf("empty input: %v", got)
	}

	all := Rank([]Entry{{StudentID: 1, GWA: 1.5}, {StudentID: 2, GWA: 1.5}, {StudentID: 3, GWA: 1.5}})
	for _, r := range all {
		if r.Rank != 1 {
			t.Fatalf("all tied should share rank 1, got %+v", all)
		}
	}

	tail := Rank([]Entry{{StudentID: 1, GWA: 1.0}, {StudentID: 2, GWA: 1.2}, {StudentID: 3, GWA: 1.2}, {StudentID: 4, GWA: 1.2}, {StudentID: 5, GWA: 1.7}})
	want := []int{1, 2, 2, 2, 5}
	for i, r := range tail {
		if r.Rank != want[i] {
			t.Fatalf("ranks = %+v, want %v", tail, want)
		}
	}
}
