package grading

import (
	"testing"

	"github.com/Spok95/acadify-records/internal/apperr"
	"github.com/Spok95/acadify-records/internal/models"
)

func ptr(v float64) *float64 { return &v }

func TestEquivalentThresholds(t *testing.T) {
	cases := []struct {
		avg    float64
		eq     float64
		remark string
	}{
		{100, 1.00, "Excellent"},
		{98.00, 1.00, "Excellent"},
		{97.99, 1.25, "Outstanding"},
		{95, 1.25, "Outstanding"},
		{92, 1.50, "Superior"},
		{89, 1.75, "Very Good"},
		{88.99, 2.00, "Good"},
		{86, 2.00, "Good"},
		{83, 2.25, "Satisfactory"},
		{80, 2.50, "Fairly Satisfactory"},
		{76, 2.75, "Fair"},
		{75.99, 3.00, "Passed"},
		{75.00, 3.00, "Passed"},
		{74.99, 5.00, "Failed"},
		{0, 5.00, "Failed"},
	}
	for _, tc := range cases {
		eq, remark := Equivalent(tc.avg)
		if eq != tc.eq || remark != tc.remark {
			t.Fatalf("Equivalent(%v) = %v %q, want %v %q", tc.avg, eq, remark, tc.eq, tc.remark)
		}
	}
}

func TestFinalAverage(t *testing.T) {
	if got := FinalAverage(ptr(90), ptr(85), nil); got != nil {
		t.Fatalf("missing score must yield nil, got %v", *got)
	}
	got := FinalAverage(ptr(90), ptr(85), ptr(88))
	if got == nil || *got != 87.67 {
		t.Fatalf("FinalAverage = %v, want 87.67", got)
	}
	// idempotent
	for i := 0; i < 3; i++ {
		again := FinalAverage(ptr(90), ptr(85), ptr(88))
		if *again != *got {
			t.Fatalf("recompute changed result: %v != %v", *again, *got)
		}
	}
}

func TestParseScore(t *testing.T) {
	v, err := ParseScore("prelim", " 88.5 ")
	if err != nil || v == nil || *v != 88.5 {
		t.Fatalf("ParseScore = %v, %v", v, err)
	}
	v, err = ParseScore("prelim", "")
	if err != nil || v != nil {
		t.Fatalf("empty should be nil, got %v %v", v, err)
	}
	for _, raw := range []string{"abc", "101", "-1", "NaN"} {
		if _, err := ParseScore("final", raw); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("ParseScore(%q) err = %v, want validation", raw, err)
		}
	}
}

func TestParseScoreRoundsToStoredPrecision(t *testing.T) {
	cases := map[string]float64{
		"97.994":  97.99,
		"88.5":    88.5,
		"99.9999": 100,
	}
	for raw, want := range cases {
		v, err := ParseScore("prelim", raw)
		if err != nil || v == nil || *v != want {
			t.Fatalf("ParseScore(%q) = %v, %v; want %v", raw, v, err, want)
		}
	}

	p, _ := ParseScore("prelim", "97.994")
	m, _ := ParseScore("midterm", "97.994")
	f, _ := ParseScore("final", "98")
	g := models.Grade{Prelim: p, Midterm: m, Final: f}
	Apply(&g, "")
	saved := *g.Equivalent

	stored := models.Grade{Prelim: ptr(97.99), Midterm: ptr(97.99), Final: ptr(98.00)}
	Recompute(&stored)
	if *g.FinalAverage != 97.99 || *stored.FinalAverage != *g.FinalAverage || *stored.Equivalent != saved {
		t.Fatalf("derived fields drift from stored scores: saved avg %v eq %v, recomputed avg %v eq %v",
			*g.FinalAverage, saved, *stored.FinalAverage, *stored.Equivalent)
	}
	if saved != 1.25 {
		t.Fatalf("equivalent = %v, want 1.25", saved)
	}
}

func TestApply(t *testing.T) {
	t.Run("complete", func(t *testing.T) {
		g := models.Grade{Prelim: ptr(98), Midterm: ptr(98), Final: ptr(98)}
		Apply(&g, "")
		if !g.IsComplete || *g.FinalAverage != 98 || *g.Equivalent != 1.00 || *g.Remarks != "Excellent" {
			t.Fatalf("unexpected %+v", g)
		}
	})
	t.Run("partial clears derived fields", func(t *testing.T) {
		eq := 1.0
		g := models.Grade{Prelim: ptr(98), Equivalent: &eq}
		Apply(&g, "")
		if g.IsComplete || g.Equivalent != nil || g.FinalAverage != nil || g.Remarks != nil {
			t.Fatalf("unexpected %+v", g)
		}
	})
	t.Run("special remark", func(t *testing.T) {
		g := models.Grade{Prelim: ptr(80)}
		Apply(&g, "inc")
		if !g.IsComplete || g.FinalAverage != nil || g.Equivalent != nil || *g.Remarks != RemarkIncomplete {
			t.Fatalf("unexpected %+v", g)
		}
		if !IsSpecial(g) {
			t.Fatal("expected special")
		}
		Recompute(&g)
		if *g.Remarks != RemarkIncomplete || !g.IsComplete {
			t.Fatalf("recompute lost remark: %+v", g)
		}
	})
	t.Run("passed average is not special", func(t *testing.T) {
		g := models.Grade{Prelim: ptr(75), Midterm: ptr(75), Final: ptr(75)}
		Apply(&g, "")
		if IsSpecial(g) {
			t.Fatal("a computed Passed remark is not an override")
		}
	})
}

func TestIsBlockingMark(t *testing.T) {
	for _, r := range []string{"INC", "aw", "UW"} {
		r := r
		if _, ok := IsBlockingMark(&r); !ok {
			t.Fatalf("%s should block", r)
		}
	}
	passed := "Passed"
	if _, ok := IsBlockingMark(&passed); ok {
		t.Fatal("Passed must not block")
	}
	if _, ok := IsBlockingMark(nil); ok {
		t.Fatal("nil must not block")
	}
}
