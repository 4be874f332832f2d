package window

import (
	"time"

	"github.com/Spok95/acadify-records/internal/models"
)

// DeriveStatus computes a schedule's status at now. It is pure, and a
// completed schedule stays completed.
func DeriveStatus(s models.EncodingSchedule, now time.Time, loc *time.Location) models.ScheduleStatus {
	if s.Status == models.StatusCompleted {
		return models.StatusCompleted
	}
	now = now.In(loc)
	if s.HasClock() {
		start, end := s.Bounds(loc)
		now = now.Truncate(time.Minute)
		switch {
		case now.Before(start):
			return models.StatusUpcoming
		case now.After(end):
			return models.StatusCompleted
		default:
			return models.StatusActive
		}
	}

	today := dateOf(now, loc)
	switch {
	case dateOf(s.EndDate, loc).Before(today):
		return models.StatusCompleted
	case dateOf(s.StartDate, loc).After(today):
		return models.StatusUpcoming
	default:
		return models.StatusActive
	}
}

// dateOf drops the clock part, keeping the calendar date as stored.
func dateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// RefreshSummary reports one pass of status derivation over open schedules.
type RefreshSummary struct {
	Checked   int            `json:"checked"`
	Activated int            `json:"activated"`
	Completed int            `json:"completed"`
	Failures  []ItemFailure  `json:"failures,omitempty"`
	Changed   []StatusChange `json:"changed,omitempty"`
}

type StatusChange struct {
	ScheduleID int64                 `json:"schedule_id"`
	From       models.ScheduleStatus `json:"from"`
	To         models.ScheduleStatus `json:"to"`
}

type ItemFailure struct {
	ID    int64  `json:"id"`
	Error string `json:"error"`
}
