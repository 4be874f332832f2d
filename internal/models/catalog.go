package models

import (
	"strings"
	"time"
)

type SubjectType string

const (
	SubjectAcademic    SubjectType = "Academic"
	SubjectNonAcademic SubjectType = "Non-Academic"
)

type Subject struct {
	ID           int64       `db:"id" json:"id"`
	Code         string      `db:"code" json:"code"`
	Name         string      `db:"name" json:"name"`
	Type         SubjectType `db:"subject_type" json:"subject_type"`
	Units        int         `db:"units" json:"units"`
	Department   string      `db:"department" json:"department"`
	YearLevel    int         `db:"year_level" json:"year_level"`
	Semester     int         `db:"semester" json:"semester"`
	AcademicYear string      `db:"academic_year" json:"academic_year"`
	InstructorID *int64      `db:"instructor_id" json:"instructor_id"`
}

func (s Subject) Term() Term { return Term{AcademicYear: s.AcademicYear, Semester: s.Semester} }

type Student struct {
	ID          int64  `db:"id" json:"id"`
	StudentNo   string `db:"student_no" json:"student_no"`
	FirstName   string `db:"first_name" json:"first_name"`
	LastName    string `db:"last_name" json:"last_name"`
	Department  string `db:"department" json:"department"`
	YearLevel   int    `db:"year_level" json:"year_level"`
	Section     string `db:"section" json:"section"`
	SectionType string `db:"section_type" json:"section_type"`
}

func (s Student) FullName() string {
	return strings.TrimSpace(s.LastName + ", " + s.FirstName)
}

// IsBlockSection reports the regular cohort classification required for the Dean's List.
func (s Student) IsBlockSection() bool {
	return strings.EqualFold(strings.TrimSpace(s.SectionType), "block section")
}

type DeansListRecord struct {
	ID           int64     `db:"id" json:"id"`
	StudentID    int64     `db:"student_id" json:"student_id"`
	StudentNo    string    `db:"student_no" json:"student_no"`
	StudentName  string    `db:"student_name" json:"student_name"`
	Department   string    `db:"department" json:"department"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	Semester     int       `db:"semester" json:"semester"`
	GWA          float64   `db:"gwa" json:"gwa"`
	TotalUnits   int       `db:"total_units" json:"total_units"`
	Qualifies    bool      `db:"qualifies" json:"qualifies"`
	Reason       string    `db:"reason" json:"reason"`
	Rank         *int      `db:"rank" json:"rank"`
	ComputedAt   time.Time `db:"computed_at" json:"computed_at"`
}
