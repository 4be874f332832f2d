// Package grading converts period scores into final averages and GPA equivalents.
package grading

import (
	"math"
	"strconv"
	"strings"

	"github.com/Spok95/acadify-records/internal/apperr"
)

type band struct {
	min        float64
	equivalent float64
	remark     string
}

// descending; the first band whose min is <= average wins
var table = []band{
	{98, 1.00, "Excellent"},
	{95, 1.25, "Outstanding"},
	{92, 1.50, "Superior"},
	{89, 1.75, "Very Good"},
	{86, 2.00, "Good"},
	{83, 2.25, "Satisfactory"},
	{80, 2.50, "Fairly Satisfactory"},
	{76, 2.75, "Fair"},
	{75, 3.00, "Passed"},
}

const (
	FailingEquivalent = 5.00
	FailingRemark     = "Failed"
)

// Equivalent maps a numeric average to its equivalent grade and remark.
func Equivalent(average float64) (float64, string) {
	for _, b := range table {
		if average >= b.min {
			return b.equivalent, b.remark
		}
	}
	return FailingEquivalent, FailingRemark
}

// FinalAverage is the mean of the three period scores rounded to two decimals,
// or nil when any score is missing.
func FinalAverage(prelim, midterm, final *float64) *float64 {
	if prelim == nil || midterm == nil || final == nil {
		return nil
	}
	avg := Round2((*prelim + *midterm + *final) / 3)
	return &avg
}

func Round2(x float64) float64 { return math.Round(x*100) / 100 }

const (
	MinScore = 0
	MaxScore = 100
)

// ParseScore reads one raw score cell. Empty input means "no score". The value
// is rounded to two decimals, the precision the grades table stores.
func ParseScore(field, raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, apperr.Invalid(field, raw, "not a number")
	}
	if v < MinScore || v > MaxScore {
		return nil, apperr.Invalid(field, raw, "must be between 0 and 100")
	}
	v = Round2(v)
	return &v, nil
}
