// Package eligibility decides Dean's List qualification from a student's term grades.
package eligibility

import (
	"fmt"
	"math"

	"github.com/Spok95/acadify-records/internal/grading"
	"github.com/Spok95/acadify-records/internal/models"
)

const (
	MinUnits = 18
	MaxGWA   = 1.75
	// MaxSubjectEquivalent is the worst per-subject equivalent still allowed.
	MaxSubjectEquivalent = 2.00
)

const (
	ReasonNotBlockSection = "Not a block section student"
	ReasonNoGrades        = "No grades found"
	ReasonIncomplete      = "Incomplete grades"
	ReasonFailing         = "Has failing grades"
	ReasonBelowTwo        = "Has grades below 2.00"
	ReasonEligible        = "Eligible for Dean's List"
)

// Result is the outcome of one evaluation. Callers must read Qualifies and Reason;
// GWA and TotalUnits are partial (often zero) on early rejections.
type Result struct {
	StudentID  int64   `json:"student_id"`
	Qualifies  bool    `json:"qualifies"`
	GWA        float64 `json:"gwa"`
	TotalUnits int     `json:"total_units"`
	Reason     string  `json:"reason"`
}

func reject(studentID int64, gwa float64, units int, reason string) Result {
	return Result{StudentID: studentID, GWA: gwa, TotalUnits: units, Reason: reason}
}

// Evaluate applies the Dean's List rules to the student's grade rows for one term.
func Evaluate(student models.Student, rows []models.GradeRow) Result {
	if !student.IsBlockSection() {
		return reject(student.ID, 0, 0, ReasonNotBlockSection)
	}
	if len(rows) == 0 {
		return reject(student.ID, 0, 0, ReasonNoGrades)
	}

	complete := make([]models.GradeRow, 0, len(rows))
	for _, r := range rows {
		if r.HasAllScores() {
			complete = append(complete, r)
		}
	}
	if len(complete) == 0 {
		return reject(student.ID, 0, 0, ReasonIncomplete)
	}

	totalUnits := 0
	for _, r := range complete {
		totalUnits += r.Units
	}
	if totalUnits < MinUnits {
		return reject(student.ID, 0, totalUnits,
			fmt.Sprintf("Insufficient units (%d/%d required)", totalUnits, MinUnits))
	}

	var weighted float64
	academicUnits := 0
	for _, r := range complete {
		if r.SubjectType != models.SubjectAcademic {
			continue
		}
		if r.Equivalent == nil || *r.Equivalent >= grading.FailingEquivalent {
			return reject(student.ID, 0, 0, ReasonFailing)
		}
		if *r.Equivalent > MaxSubjectEquivalent {
			return reject(student.ID, 0, 0, ReasonBelowTwo)
		}
		if mark, ok := grading.IsBlockingMark(r.Remarks); ok {
			return reject(student.ID, 0, 0, fmt.Sprintf("Has %s mark", mark))
		}
		weighted += *r.Equivalent * float64(r.Units)
		academicUnits += r.Units
	}

	gwa := 0.0
	if academicUnits > 0 {
		gwa = round4(weighted / float64(academicUnits))
	}
	if gwa > MaxGWA {
		return reject(student.ID, gwa, totalUnits, fmt.Sprintf("GWA too high (%.2f > %.2f)", gwa, MaxGWA))
	}
	return Result{StudentID: student.ID, Qualifies: true, GWA: gwa, TotalUnits: totalUnits, Reason: ReasonEligible}
}

// GWA is kept at four decimals so identical standings compare equal when ranked.
func round4(x float64) float64 { return math.Round(x*1e4) / 1e4 }
