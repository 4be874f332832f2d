package models

import (
	"fmt"
	"time"
)

type GradingPeriod string

const (
	PeriodPrelim  GradingPeriod = "prelim"
	PeriodMidterm GradingPeriod = "midterm"
	PeriodFinal   GradingPeriod = "final"
	PeriodAll     GradingPeriod = "all"
)

// ScoredPeriods are the periods that carry a score; PeriodAll is only a schedule scope.
var ScoredPeriods = []GradingPeriod{PeriodPrelim, PeriodMidterm, PeriodFinal}

func ParseGradingPeriod(s string) (GradingPeriod, error) {
	switch p := GradingPeriod(s); p {
	case PeriodPrelim, PeriodMidterm, PeriodFinal, PeriodAll:
		return p, nil
	}
	return "", fmt.Errorf("unknown grading period %q", s)
}

type ScheduleStatus string

const (
	StatusUpcoming  ScheduleStatus = "upcoming"
	StatusActive    ScheduleStatus = "active"
	StatusCompleted ScheduleStatus = "completed"
)

// Clock is a time of day in minutes since midnight.
type Clock int

func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("bad time %q: %w", s, err)
	}
	return Clock(t.Hour()*60 + t.Minute()), nil
}

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60) }

type EncodingSchedule struct {
	ID            int64          `db:"id" json:"id"`
	AcademicYear  string         `db:"academic_year" json:"academic_year"`
	Semester      int            `db:"semester" json:"semester"`
	Department    *string        `db:"department" json:"department"`
	GradingPeriod GradingPeriod  `db:"grading_period" json:"grading_period"`
	StartDate     time.Time      `db:"start_date" json:"start_date"`
	EndDate       time.Time      `db:"end_date" json:"end_date"`
	StartClock    *Clock         `db:"start_minute" json:"start_time,omitempty"`
	EndClock      *Clock         `db:"end_minute" json:"end_time,omitempty"`
	Status        ScheduleStatus `db:"status" json:"status"`
	CreatedBy     int64          `db:"created_by" json:"created_by"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

func (s EncodingSchedule) Term() Term { return Term{AcademicYear: s.AcademicYear, Semester: s.Semester} }

// HasClock reports whether the window is bounded by clock times rather than whole days.
func (s EncodingSchedule) HasClock() bool { return s.StartClock != nil && s.EndClock != nil }

// Bounds returns the inclusive instants covered by the schedule in loc.
// Date-only schedules run from 00:00:00 on the start date to 23:59:59 on the end date.
func (s EncodingSchedule) Bounds(loc *time.Location) (time.Time, time.Time) {
	sy, sm, sd := s.StartDate.Date()
	ey, em, ed := s.EndDate.Date()
	start := time.Date(sy, sm, sd, 0, 0, 0, 0, loc)
	end := time.Date(ey, em, ed, 23, 59, 59, 0, loc)
	if s.HasClock() {
		start = start.Add(time.Duration(*s.StartClock) * time.Minute)
		end = time.Date(ey, em, ed, 0, 0, 59, 0, loc).Add(time.Duration(*s.EndClock) * time.Minute)
	}
	return start, end
}

// Covers reports whether now falls inside the schedule's window.
func (s EncodingSchedule) Covers(now time.Time, loc *time.Location) bool {
	start, end := s.Bounds(loc)
	now = now.In(loc)
	return !now.Before(start) && !now.After(end)
}

// SameScope reports whether both schedules govern the same term, period and department.
func (s EncodingSchedule) SameScope(o EncodingSchedule) bool {
	return s.AcademicYear == o.AcademicYear &&
		s.Semester == o.Semester &&
		s.GradingPeriod == o.GradingPeriod &&
		deptKey(s.Department) == deptKey(o.Department)
}

func deptKey(d *string) string {
	if d == nil {
		return ""
	}
	return *d
}

type EncodingException struct {
	ID            int64         `db:"id" json:"id"`
	InstructorID  int64         `db:"instructor_id" json:"instructor_id"`
	AcademicYear  string        `db:"academic_year" json:"academic_year"`
	Semester      int           `db:"semester" json:"semester"`
	GradingPeriod GradingPeriod `db:"grading_period" json:"grading_period"`
	ExpiresAt     time.Time     `db:"expires_at" json:"expires_at"`
	Reason        string        `db:"reason" json:"reason"`
	GrantedBy     int64         `db:"granted_by" json:"granted_by"`
	GrantedAt     time.Time     `db:"granted_at" json:"granted_at"`
	IsActive      bool          `db:"is_active" json:"is_active"`
	RevokedAt     *time.Time    `db:"revoked_at" json:"revoked_at"`
}

// Grants reports whether the exception is usable at now. The stored flag alone is not trusted.
func (e EncodingException) Grants(now time.Time) bool {
	return e.IsActive && !e.ExpiresAt.Before(now)
}
