package window

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Spok95/acadify-records/internal/apperr"
	"github.com/Spok95/acadify-records/internal/authz"
	"github.com/Spok95/acadify-records/internal/events"
	"github.com/Spok95/acadify-records/internal/models"
	"github.com/Spok95/acadify-records/internal/term"
)

type ExceptionInput struct {
	InstructorID  int64
	Term          models.Term
	GradingPeriod models.GradingPeriod
	ExpiresAt     time.Time
	Reason        string
}

// ParseExpiry builds an expiration instant from a date ("2006-01-02") and/or a
// clock time ("15:04"). A date alone means the end of that day; a time alone
// means today and must still be ahead of now.
func ParseExpiry(date, clock string, now time.Time, loc *time.Location) (time.Time, error) {
	date, clock = strings.TrimSpace(date), strings.TrimSpace(clock)
	now = now.In(loc)
	switch {
	case date != "" && clock != "":
		t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
		if err != nil {
			return time.Time{}, apperr.Invalid("expires_at", date+" "+clock, "want YYYY-MM-DD and HH:MM")
		}
		return t, nil
	case date != "":
		d, err := time.ParseInLocation(time.DateOnly, date, loc)
		if err != nil {
			return time.Time{}, apperr.Invalid("expiration_date", date, "want YYYY-MM-DD")
		}
		return d.Add(23*time.Hour + 59*time.Minute + 59*time.Second), nil
	case clock != "":
		c, err := models.ParseClock(clock)
		if err != nil {
			return time.Time{}, apperr.Invalid("expiration_time", clock, "want HH:MM")
		}
		y, m, d := now.Date()
		t := time.Date(y, m, d, 0, 0, 0, 0, loc).Add(time.Duration(c) * time.Minute)
		if !t.After(now) {
			return time.Time{}, apperr.Invalid("expiration_time", clock, "time has already passed today")
		}
		return t, nil
	default:
		return time.Time{}, apperr.Invalid("expires_at", "", "expiration date or time is required")
	}
}

// ExpireExceptions deactivates every exception whose expiration has passed.
func (s *Service) ExpireExceptions(ctx context.Context) (int, error) {
	return s.store.ExpireExceptions(ctx, s.now())
}

func (s *Service) ListExceptions(ctx context.Context, actor models.Actor, t *models.Term) ([]models.EncodingException, error) {
	if err := authz.Require(actor, authz.ManageExceptions); err != nil {
		return nil, err
	}
	if _, err := s.ExpireExceptions(ctx); err != nil {
		return nil, fmt.Errorf("expire exceptions: %w", err)
	}
	return s.store.ListExceptions(ctx, t)
}

func (s *Service) GrantException(ctx context.Context, actor models.Actor, in ExceptionInput) (*models.EncodingException, error) {
	if err := authz.Require(actor, authz.ManageExceptions); err != nil {
		return nil, err
	}
	now := s.now()
	if _, err := s.store.ExpireExceptions(ctx, now); err != nil {
		return nil, fmt.Errorf("expire exceptions: %w", err)
	}
	if err := term.Validate(in.Term); err != nil {
		return nil, apperr.Invalid("term", in.Term.String(), err.Error())
	}
	if _, err := models.ParseGradingPeriod(string(in.GradingPeriod)); err != nil {
		return nil, apperr.Invalid("grading_period", in.GradingPeriod, err.Error())
	}
	if !in.ExpiresAt.After(now) {
		return nil, apperr.Invalid("expires_at", in.ExpiresAt.In(s.loc).Format(time.DateTime), "expiration must be in the future")
	}

	instructor, err := s.store.GetUser(ctx, in.InstructorID)
	if err != nil {
		return nil, err
	}
	if instructor.Role != models.RoleInstructor || !instructor.IsActive {
		return nil, apperr.Invalid("instructor_id", in.InstructorID, "not an active instructor")
	}

	current, err := s.store.ListInstructorExceptions(ctx, in.InstructorID, in.Term)
	if err != nil {
		return nil, fmt.Errorf("list exceptions: %w", err)
	}
	for _, e := range current {
		if e.GradingPeriod == in.GradingPeriod && e.Grants(now) {
			return nil, apperr.Conflict("%s already has an active %s exception for %s (#%d)",
				instructor.FullName, in.GradingPeriod, in.Term, e.ID)
		}
	}

	exc := &models.EncodingException{
		InstructorID:  in.InstructorID,
		AcademicYear:  in.Term.AcademicYear,
		Semester:      in.Term.Semester,
		GradingPeriod: in.GradingPeriod,
		ExpiresAt:     in.ExpiresAt,
		Reason:        strings.TrimSpace(in.Reason),
		GrantedBy:     actor.ID(),
		GrantedAt:     now,
		IsActive:      true,
	}
	if err := s.store.InsertException(ctx, exc); err != nil {
		return nil, fmt.Errorf("insert exception: %w", err)
	}
	s.notify.Notify(ctx, events.New(events.ExceptionGranted, actor, "exception", exc.ID,
		fmt.Sprintf("%s may encode %s grades for %s until %s", instructor.FullName, exc.GradingPeriod, in.Term,
			exc.ExpiresAt.In(s.loc).Format(time.DateTime))).
		With("instructor_id", exc.InstructorID))
	return exc, nil
}

func (s *Service) RevokeException(ctx context.Context, actor models.Actor, id int64) error {
	if err := authz.Require(actor, authz.ManageExceptions); err != nil {
		return err
	}
	now := s.now()
	if _, err := s.store.ExpireExceptions(ctx, now); err != nil {
		return fmt.Errorf("expire exceptions: %w", err)
	}
	exc, err := s.store.GetException(ctx, id)
	if err != nil {
		return err
	}
	if !exc.IsActive {
		return apperr.Conflict("exception %d is already inactive", id)
	}
	ok, err := s.store.RevokeException(ctx, id, now)
	if err != nil {
		return fmt.Errorf("revoke exception: %w", err)
	}
	if !ok {
		return apperr.Conflict("exception %d is already inactive", id)
	}
	s.notify.Notify(ctx, events.New(events.ExceptionRevoked, actor, "exception", id, "exception revoked").
		With("instructor_id", exc.InstructorID))
	return nil
}
