// Package term works with academic year labels such as "2025-2026".
package term

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Spok95/acadify-records/internal/models"
)

// The first semester opens in August; January through July belongs to the second.
const yearStartMonth = time.August

// AcademicYearStart returns the first day of the academic year containing t.
func AcademicYearStart(t time.Time) time.Time {
	return time.Date(StartYear(t), yearStartMonth, 1, 0, 0, 0, 0, t.Location())
}

// StartYear is the calendar year the academic year of t began in (2026-03-01 -> 2025).
func StartYear(t time.Time) int {
	if t.Month() < yearStartMonth {
		return t.Year() - 1
	}
	return t.Year()
}

// Label formats an academic year: "2025-2026".
func Label(startYear int) string {
	return fmt.Sprintf("%d-%d", startYear, startYear+1)
}

// ParseLabel validates a label and returns its start year.
func ParseLabel(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return 0, fmt.Errorf("academic year %q: want YYYY-YYYY", s)
	}
	from, err1 := strconv.Atoi(parts[0])
	to, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || len(parts[0]) != 4 {
		return 0, fmt.Errorf("academic year %q: want YYYY-YYYY", s)
	}
	if to != from+1 {
		return 0, fmt.Errorf("academic year %q must span consecutive years", s)
	}
	return from, nil
}

// Current returns the term containing t.
func Current(t time.Time) models.Term {
	sem := 2
	if t.Month() >= yearStartMonth {
		sem = 1
	}
	return models.Term{AcademicYear: Label(StartYear(t)), Semester: sem}
}

// Validate checks both parts of a term.
func Validate(t models.Term) error {
	if _, err := ParseLabel(t.AcademicYear); err != nil {
		return err
	}
	if t.Semester != 1 && t.Semester != 2 {
		return fmt.Errorf("semester %d: want 1 or 2", t.Semester)
	}
	return nil
}
