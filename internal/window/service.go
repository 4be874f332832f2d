// Package window decides when grades may be encoded: schedules, their
// statuses, and per-instructor exceptions.
package window

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/acadify-records/internal/events"
	"github.com/Spok95/acadify-records/internal/models"
)

type Store interface {
	GetSchedule(ctx context.Context, id int64) (*models.EncodingSchedule, error)
	ListSchedules(ctx context.Context, term *models.Term) ([]models.EncodingSchedule, error)
	// ListOpenSchedules returns every schedule that is not completed, oldest start first.
	ListOpenSchedules(ctx context.Context) ([]models.EncodingSchedule, error)
	// ListDepartmentSchedules returns the term's schedules for department plus the department-less ones.
	ListDepartmentSchedules(ctx context.Context, term models.Term, department string) ([]models.EncodingSchedule, error)
	// InsertSchedule, UpdateSchedule and SetScheduleStatus complete other
	// active schedules in the same scope when the result is active, in one transaction.
	InsertSchedule(ctx context.Context, s *models.EncodingSchedule) error
	UpdateSchedule(ctx context.Context, s *models.EncodingSchedule) error
	SetScheduleStatus(ctx context.Context, id int64, status models.ScheduleStatus) error
	DeleteSchedule(ctx context.Context, id int64) error

	GetException(ctx context.Context, id int64) (*models.EncodingException, error)
	ListExceptions(ctx context.Context, term *models.Term) ([]models.EncodingException, error)
	ListInstructorExceptions(ctx context.Context, instructorID int64, term models.Term) ([]models.EncodingException, error)
	InsertException(ctx context.Context, e *models.EncodingException) error
	// RevokeException flips an active exception off; false if it was already inactive.
	RevokeException(ctx context.Context, id int64, at time.Time) (bool, error)
	ExpireExceptions(ctx context.Context, now time.Time) (int, error)

	GetUser(ctx context.Context, id int64) (*models.User, error)
}

type Service struct {
	store  Store
	notify events.Notifier
	loc    *time.Location
	log    *zap.Logger
	now    func() time.Time
}

func NewService(store Store, notify events.Notifier, loc *time.Location, log *zap.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, notify: notify, loc: loc, log: log, now: time.Now}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Location() *time.Location { return s.loc }
