package window

import (
	"context"
	"fmt"
	"time"

	"github.com/Spok95/acadify-records/internal/apperr"
	"github.com/Spok95/acadify-records/internal/authz"
	"github.com/Spok95/acadify-records/internal/events"
	"github.com/Spok95/acadify-records/internal/models"
	"github.com/Spok95/acadify-records/internal/term"
)

// ScheduleInput describes a schedule to create or replace.
type ScheduleInput struct {
	Term          models.Term
	Department    *string
	GradingPeriod models.GradingPeriod
	StartDate     time.Time
	EndDate       time.Time
	StartClock    *models.Clock
	EndClock      *models.Clock
}

// RefreshStatuses re-derives the status of every open schedule.
func (s *Service) RefreshStatuses(ctx context.Context) (RefreshSummary, error) {
	return s.refresh(ctx, s.now())
}

func (s *Service) refresh(ctx context.Context, now time.Time) (RefreshSummary, error) {
	var sum RefreshSummary
	open, err := s.store.ListOpenSchedules(ctx)
	if err != nil {
		return sum, fmt.Errorf("list open schedules: %w", err)
	}
	for _, sch := range open {
		sum.Checked++
		next := DeriveStatus(sch, now, s.loc)
		if next == sch.Status {
			continue
		}
		if err := s.store.SetScheduleStatus(ctx, sch.ID, next); err != nil {
			sum.Failures = append(sum.Failures, ItemFailure{ID: sch.ID, Error: err.Error()})
			continue
		}
		switch next {
		case models.StatusActive:
			sum.Activated++
		case models.StatusCompleted:
			sum.Completed++
		}
		sum.Changed = append(sum.Changed, StatusChange{ScheduleID: sch.ID, From: sch.Status, To: next})
	}
	return sum, nil
}

func (s *Service) ListSchedules(ctx context.Context, actor models.Actor, t *models.Term) ([]models.EncodingSchedule, error) {
	if err := authz.Require(actor, authz.ManageSchedules); err != nil {
		return nil, err
	}
	s.refreshLazily(ctx, s.now())
	return s.store.ListSchedules(ctx, t)
}

func (s *Service) CreateSchedule(ctx context.Context, actor models.Actor, in ScheduleInput) (*models.EncodingSchedule, error) {
	if err := authz.Require(actor, authz.ManageSchedules); err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.validate(in, now, true); err != nil {
		return nil, err
	}
	if err := s.checkConflicts(ctx, in, 0); err != nil {
		return nil, err
	}

	sch := &models.EncodingSchedule{
		AcademicYear:  in.Term.AcademicYear,
		Semester:      in.Term.Semester,
		Department:    in.Department,
		GradingPeriod: in.GradingPeriod,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		StartClock:    in.StartClock,
		EndClock:      in.EndClock,
		Status:        models.StatusUpcoming,
		CreatedBy:     actor.ID(),
	}
	sch.Status = DeriveStatus(*sch, now, s.loc)
	if err := s.store.InsertSchedule(ctx, sch); err != nil {
		return nil, fmt.Errorf("insert schedule: %w", err)
	}
	s.notify.Notify(ctx, events.New(events.ScheduleCreated, actor, "schedule", sch.ID,
		fmt.Sprintf("%s schedule for %s (%s)", sch.GradingPeriod, sch.Term(), sch.Status)))
	return sch, nil
}

func (s *Service) UpdateSchedule(ctx context.Context, actor models.Actor, id int64, in ScheduleInput) (*models.EncodingSchedule, error) {
	if err := authz.Require(actor, authz.ManageSchedules); err != nil {
		return nil, err
	}
	cur, err := s.store.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur.Status == models.StatusCompleted {
		return nil, apperr.Conflict("schedule %d is completed and cannot be edited", id)
	}
	now := s.now()
	startMoved := !sameDate(cur.StartDate, in.StartDate)
	if err := s.validate(in, now, startMoved); err != nil {
		return nil, err
	}
	if err := s.checkConflicts(ctx, in, id); err != nil {
		return nil, err
	}

	cur.AcademicYear = in.Term.AcademicYear
	cur.Semester = in.Term.Semester
	cur.Department = in.Department
	cur.GradingPeriod = in.GradingPeriod
	cur.StartDate = in.StartDate
	cur.EndDate = in.EndDate
	cur.StartClock = in.StartClock
	cur.EndClock = in.EndClock
	cur.Status = DeriveStatus(*cur, now, s.loc)
	if err := s.store.UpdateSchedule(ctx, cur); err != nil {
		return nil, fmt.Errorf("update schedule: %w", err)
	}
	s.notify.Notify(ctx, events.New(events.ScheduleUpdated, actor, "schedule", id,
		fmt.Sprintf("%s schedule for %s updated (%s)", cur.GradingPeriod, cur.Term(), cur.Status)))
	return cur, nil
}

// CloseSchedule ends a schedule immediately.
func (s *Service) CloseSchedule(ctx context.Context, actor models.Actor, id int64) error {
	if err := authz.Require(actor, authz.ManageSchedules); err != nil {
		return err
	}
	cur, err := s.store.GetSchedule(ctx, id)
	if err != nil {
		return err
	}
	if cur.Status == models.StatusCompleted {
		return apperr.Conflict("schedule %d is already completed", id)
	}
	if err := s.store.SetScheduleStatus(ctx, id, models.StatusCompleted); err != nil {
		return fmt.Errorf("close schedule: %w", err)
	}
	s.notify.Notify(ctx, events.New(events.ScheduleClosed, actor, "schedule", id,
		fmt.Sprintf("%s schedule for %s closed", cur.GradingPeriod, cur.Term())))
	return nil
}

func (s *Service) DeleteSchedule(ctx context.Context, actor models.Actor, id int64) error {
	if err := authz.Require(actor, authz.ManageSchedules); err != nil {
		return err
	}
	cur, err := s.store.GetSchedule(ctx, id)
	if err != nil {
		return err
	}
	if cur.Status == models.StatusActive {
		return apperr.Conflict("schedule %d is active; close it before deleting", id)
	}
	if err := s.store.DeleteSchedule(ctx, id); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	s.notify.Notify(ctx, events.New(events.ScheduleDeleted, actor, "schedule", id,
		fmt.Sprintf("%s schedule for %s deleted", cur.GradingPeriod, cur.Term())))
	return nil
}

func (s *Service) validate(in ScheduleInput, now time.Time, checkPast bool) error {
	if err := term.Validate(in.Term); err != nil {
		return apperr.Invalid("term", in.Term.String(), err.Error())
	}
	if _, err := models.ParseGradingPeriod(string(in.GradingPeriod)); err != nil {
		return apperr.Invalid("grading_period", in.GradingPeriod, err.Error())
	}
	if in.Department != nil && *in.Department == "" {
		return apperr.Invalid("department", "", "use null for all departments")
	}
	if (in.StartClock == nil) != (in.EndClock == nil) {
		return apperr.Invalid("time", nil, "start and end times must be given together")
	}
	start, end := dateOf(in.StartDate, s.loc), dateOf(in.EndDate, s.loc)
	if end.Before(start) {
		return apperr.Invalid("end_date", in.EndDate.Format(time.DateOnly), "end date cannot be before start date")
	}
	if start.Equal(end) && in.StartClock != nil && *in.EndClock <= *in.StartClock {
		return apperr.Invalid("end_time", in.EndClock.String(), "end time must be after start time")
	}
	if checkPast && start.Before(dateOf(now.In(s.loc), s.loc)) {
		return apperr.Invalid("start_date", in.StartDate.Format(time.DateOnly), "start date cannot be in the past")
	}
	return nil
}

// checkConflicts rejects exact duplicates and overlapping windows among the
// term's open schedules for the same period. A department-less schedule
// conflicts with every department and vice versa.
func (s *Service) checkConflicts(ctx context.Context, in ScheduleInput, selfID int64) error {
	existing, err := s.store.ListSchedules(ctx, &in.Term)
	if err != nil {
		return fmt.Errorf("list schedules: %w", err)
	}
	candidate := models.EncodingSchedule{
		StartDate: in.StartDate, EndDate: in.EndDate,
		StartClock: in.StartClock, EndClock: in.EndClock,
	}
	cStart, cEnd := candidate.Bounds(s.loc)
	for _, e := range existing {
		if e.ID == selfID || e.Status == models.StatusCompleted || e.GradingPeriod != in.GradingPeriod {
			continue
		}
		if !departmentsMatch(e.Department, in.Department) {
			continue
		}
		if sameDept(e.Department, in.Department) && sameDate(e.StartDate, in.StartDate) && sameDate(e.EndDate, in.EndDate) {
			return apperr.Conflict("an identical %s schedule already exists (#%d)", in.GradingPeriod, e.ID)
		}
		eStart, eEnd := e.Bounds(s.loc)
		if !cStart.After(eEnd) && !eStart.After(cEnd) {
			return apperr.Conflict("overlaps %s schedule #%d (%s to %s)", e.GradingPeriod, e.ID,
				e.StartDate.Format(time.DateOnly), e.EndDate.Format(time.DateOnly))
		}
	}
	return nil
}

func departmentsMatch(a, b *string) bool {
	return a == nil || b == nil || *a == *b
}

func sameDept(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
