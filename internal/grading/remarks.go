package grading

import (
	"strings"

	"github.com/Spok95/acadify-records/internal/models"
)

// Special remarks replace numeric scores and complete a grade on their own.
const (
	RemarkIncomplete      = "INC"
	RemarkAuthorizedWD    = "AW"
	RemarkUnauthorizedWD  = "UW"
	RemarkConditionalPass = "Passed"
)

var specialRemarks = map[string]string{
	"inc":    RemarkIncomplete,
	"aw":     RemarkAuthorizedWD,
	"uw":     RemarkUnauthorizedWD,
	"passed": RemarkConditionalPass,
}

// NormalizeRemark returns the canonical spelling of a recognized special remark.
func NormalizeRemark(s string) (string, bool) {
	r, ok := specialRemarks[strings.ToLower(strings.TrimSpace(s))]
	return r, ok
}

// IsBlockingMark reports remarks that disqualify a student from the Dean's List.
func IsBlockingMark(remark *string) (string, bool) {
	if remark == nil {
		return "", false
	}
	switch r, _ := NormalizeRemark(*remark); r {
	case RemarkIncomplete, RemarkAuthorizedWD, RemarkUnauthorizedWD:
		return r, true
	}
	return "", false
}

// IsSpecial reports whether a stored remark is a special override rather than
// a label derived from the equivalence table. "Passed" is ambiguous here: a
// 75.00 average also yields "Passed", so a row with a numeric average is not special.
func IsSpecial(g models.Grade) bool {
	if g.Remarks == nil {
		return false
	}
	if _, ok := NormalizeRemark(*g.Remarks); !ok {
		return false
	}
	return g.FinalAverage == nil
}

// Apply recomputes every derived field of g from its scores and remark.
// special is the remark override requested for this write, if any.
func Apply(g *models.Grade, special string) {
	if r, ok := NormalizeRemark(special); ok {
		g.Remarks = &r
		g.FinalAverage = nil
		g.Equivalent = nil
		g.IsComplete = true
		return
	}
	avg := FinalAverage(g.Prelim, g.Midterm, g.Final)
	if avg == nil {
		g.FinalAverage = nil
		g.Equivalent = nil
		g.Remarks = nil
		g.IsComplete = false
		return
	}
	eq, remark := Equivalent(*avg)
	g.FinalAverage = avg
	g.Equivalent = &eq
	g.Remarks = &remark
	g.IsComplete = true
}

// Recompute refreshes derived fields while keeping an existing special remark.
func Recompute(g *models.Grade) {
	if IsSpecial(*g) {
		Apply(g, *g.Remarks)
		return
	}
	Apply(g, "")
}
