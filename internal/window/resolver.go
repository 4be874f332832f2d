package window

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/acadify-records/internal/apperr"
	"github.com/Spok95/acadify-records/internal/models"
)

// Access is the resolver's answer for one actor and subject at one instant.
type Access struct {
	CanEncode    bool       `json:"can_encode"`
	Prelim       bool       `json:"prelim"`
	Midterm      bool       `json:"midterm"`
	Final        bool       `json:"final"`
	ViaException bool       `json:"via_exception"`
	Reason       string     `json:"reason,omitempty"`
	OpensAt      *time.Time `json:"opens_at,omitempty"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
}

func (a Access) Open(p models.GradingPeriod) bool {
	switch p {
	case models.PeriodPrelim:
		return a.Prelim
	case models.PeriodMidterm:
		return a.Midterm
	case models.PeriodFinal:
		return a.Final
	case models.PeriodAll:
		return a.Prelim && a.Midterm && a.Final
	}
	return false
}

func (a *Access) open(p models.GradingPeriod) {
	switch p {
	case models.PeriodPrelim:
		a.Prelim = true
	case models.PeriodMidterm:
		a.Midterm = true
	case models.PeriodFinal:
		a.Final = true
	case models.PeriodAll:
		a.Prelim, a.Midterm, a.Final = true, true, true
	}
	a.CanEncode = a.Prelim || a.Midterm || a.Final
}

// Err converts a denial into a WindowClosedError.
func (a Access) Err() error {
	if a.CanEncode {
		return nil
	}
	return apperr.WindowClosedError{Reason: a.Reason, OpensAt: a.OpensAt, ClosedAt: a.ClosedAt}
}

func allOpen() Access {
	var a Access
	a.open(models.PeriodAll)
	return a
}

// Resolve reports which grading periods the actor may encode for subject right now.
func (s *Service) Resolve(ctx context.Context, actor models.Actor, subject models.Subject) (Access, error) {
	if actor == nil {
		return Access{}, apperr.AuthorizationError{Role: "anonymous", Action: "encode grades"}
	}
	switch actor.Role() {
	case models.RoleRegistrar, models.RoleAdmin:
		return allOpen(), nil
	case models.RoleInstructor:
		return s.resolveInstructor(ctx, actor.ID(), subject)
	case models.RoleStudent, models.RoleDean:
		return Access{}, apperr.Forbidden(actor.Role(), "encode grades")
	default:
		return Access{}, apperr.Forbidden(actor.Role(), "encode grades")
	}
}

func (s *Service) resolveInstructor(ctx context.Context, instructorID int64, subject models.Subject) (Access, error) {
	now := s.now()
	s.refreshLazily(ctx, now)

	term := subject.Term()
	schedules, err := s.store.ListDepartmentSchedules(ctx, term, subject.Department)
	if err != nil {
		return Access{}, fmt.Errorf("list schedules: %w", err)
	}

	var acc Access
	for _, p := range []models.GradingPeriod{models.PeriodAll, models.PeriodPrelim, models.PeriodMidterm, models.PeriodFinal} {
		if sch := pick(schedules, p, subject.Department); sch != nil && sch.Covers(now, s.loc) {
			acc.open(p)
		}
	}

	exceptions, err := s.store.ListInstructorExceptions(ctx, instructorID, term)
	if err != nil {
		return Access{}, fmt.Errorf("list exceptions: %w", err)
	}
	for _, e := range exceptions {
		if !e.Grants(now) {
			continue
		}
		if !acc.Open(e.GradingPeriod) {
			acc.ViaException = true
		}
		acc.open(e.GradingPeriod)
	}

	if !acc.CanEncode {
		s.explainDenial(&acc, schedules, now)
	}
	return acc, nil
}

// pick returns the active schedule governing period for department: the
// department's own schedule if one exists, else the department-less fallback.
func pick(schedules []models.EncodingSchedule, period models.GradingPeriod, department string) *models.EncodingSchedule {
	var fallback *models.EncodingSchedule
	for i := range schedules {
		sch := &schedules[i]
		if sch.GradingPeriod != period || sch.Status != models.StatusActive {
			continue
		}
		if sch.Department == nil {
			if fallback == nil {
				fallback = sch
			}
			continue
		}
		if *sch.Department == department {
			return sch
		}
	}
	return fallback
}

func (s *Service) explainDenial(acc *Access, schedules []models.EncodingSchedule, now time.Time) {
	var opens, closed *time.Time
	for _, sch := range schedules {
		start, end := sch.Bounds(s.loc)
		switch {
		case start.After(now) && sch.Status != models.StatusCompleted:
			if opens == nil || start.Before(*opens) {
				opens = &start
			}
		case !end.After(now) || sch.Status == models.StatusCompleted:
			if closed == nil || end.After(*closed) {
				closed = &end
			}
		}
	}
	switch {
	case opens != nil:
		acc.OpensAt = opens
		acc.Reason = "encoding opens on " + opens.Format("Jan 2, 2006 15:04")
	case closed != nil:
		acc.ClosedAt = closed
		acc.Reason = "encoding closed on " + closed.Format("Jan 2, 2006 15:04")
	default:
		acc.Reason = "no encoding schedule configured"
	}
}

// refreshLazily brings stored statuses and exception flags up to date before a read.
// Failures are logged; the caller still evaluates instants itself.
func (s *Service) refreshLazily(ctx context.Context, now time.Time) {
	if _, err := s.store.ExpireExceptions(ctx, now); err != nil {
		s.log.Warn("expire exceptions", zap.Error(err))
	}
	sum, err := s.refresh(ctx, now)
	if err != nil {
		s.log.Warn("refresh schedule statuses", zap.Error(err))
		return
	}
	for _, f := range sum.Failures {
		s.log.Warn("refresh schedule status", zap.Int64("schedule_id", f.ID), zap.String("error", f.Error))
	}
}
