package models

import (
	"fmt"
	"time"
)

// Term identifies an academic year and semester, e.g. {"2025-2026", 1}.
type Term struct {
	AcademicYear string `json:"academic_year"`
	Semester     int    `json:"semester"`
}

func (t Term) String() string { return fmt.Sprintf("%s/%d", t.AcademicYear, t.Semester) }

type GradeState string

const (
	GradeDraft     GradeState = "draft"
	GradeComplete  GradeState = "complete"
	GradeSubmitted GradeState = "submitted"
	GradeApproved  GradeState = "approved"
)

type Grade struct {
	ID           int64      `db:"id" json:"id"`
	StudentID    int64      `db:"student_id" json:"student_id"`
	SubjectID    int64      `db:"subject_id" json:"subject_id"`
	AcademicYear string     `db:"academic_year" json:"academic_year"`
	Semester     int        `db:"semester" json:"semester"`
	Prelim       *float64   `db:"prelim" json:"prelim"`
	Midterm      *float64   `db:"midterm" json:"midterm"`
	Final        *float64   `db:"final" json:"final"`
	FinalAverage *float64   `db:"final_average" json:"final_average"`
	Equivalent   *float64   `db:"equivalent" json:"equivalent"`
	Remarks      *string    `db:"remarks" json:"remarks"`
	IsComplete   bool       `db:"is_complete" json:"is_complete"`
	IsLocked     bool       `db:"is_locked" json:"is_locked"`
	SubmittedAt  *time.Time `db:"submitted_at" json:"submitted_at"`
	ApprovedAt   *time.Time `db:"approved_at" json:"approved_at"`
	ApprovedBy   *int64     `db:"approved_by" json:"approved_by"`
	IsHistorical bool       `db:"is_historical" json:"is_historical"`
	ImportSource *string    `db:"import_source" json:"import_source,omitempty"`
	ImportedAt   *time.Time `db:"imported_at" json:"imported_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

func (g Grade) Term() Term { return Term{AcademicYear: g.AcademicYear, Semester: g.Semester} }

func (g Grade) State() GradeState {
	switch {
	case g.ApprovedAt != nil:
		return GradeApproved
	case g.IsLocked && g.SubmittedAt != nil:
		return GradeSubmitted
	case g.IsComplete:
		return GradeComplete
	default:
		return GradeDraft
	}
}

// PendingApproval reports a submitted grade the registrar has not yet approved.
func (g Grade) PendingApproval() bool {
	return g.IsLocked && g.SubmittedAt != nil && g.ApprovedAt == nil
}

func (g Grade) HasAllScores() bool {
	return g.Prelim != nil && g.Midterm != nil && g.Final != nil
}

// Score returns the stored score for a single grading period.
func (g Grade) Score(p GradingPeriod) *float64 {
	switch p {
	case PeriodPrelim:
		return g.Prelim
	case PeriodMidterm:
		return g.Midterm
	case PeriodFinal:
		return g.Final
	default:
		return nil
	}
}

// GradeRow is a grade joined with the student and subject it belongs to.
type GradeRow struct {
	Grade
	StudentNo   string      `db:"student_no" json:"student_no"`
	StudentName string      `db:"student_name" json:"student_name"`
	SubjectCode string      `db:"subject_code" json:"subject_code"`
	SubjectType SubjectType `db:"subject_type" json:"subject_type"`
	Units       int         `db:"units" json:"units"`
}
