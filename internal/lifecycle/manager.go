// Package lifecycle moves grades through draft, complete, submitted and approved.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/acadify-records/internal/apperr"
	"github.com/Spok95/acadify-records/internal/authz"
	"github.com/Spok95/acadify-records/internal/events"
	"github.com/Spok95/acadify-records/internal/models"
	"github.com/Spok95/acadify-records/internal/window"
)

type Store interface {
	GetSubject(ctx context.Context, id int64) (*models.Subject, error)
	IsAssigned(ctx context.Context, subjectID, instructorID int64, term models.Term) (bool, error)
	// ListSubjectGrades returns the subject's grades for term ordered by student name.
	ListSubjectGrades(ctx context.Context, subjectID int64, term models.Term) ([]models.GradeRow, error)
	GetStudents(ctx context.Context, ids []int64) (map[int64]models.Student, error)
	// SaveGrades upserts all rows in one transaction and fills in their ids.
	SaveGrades(ctx context.Context, grades []models.Grade) error
	// LockGrades stores recomputed rows as submitted at the given instant, in one transaction.
	LockGrades(ctx context.Context, grades []models.Grade, at time.Time) error
	// ApproveGrades approves the submitted, unapproved rows among ids and returns those it changed.
	ApproveGrades(ctx context.Context, ids []int64, approver int64, at time.Time) ([]int64, error)
	UnlockGrades(ctx context.Context, subjectID int64, term models.Term) (int, error)
}

type Resolver interface {
	Resolve(ctx context.Context, actor models.Actor, subject models.Subject) (window.Access, error)
}

type Manager struct {
	store    Store
	resolver Resolver
	notify   events.Notifier
	log      *zap.Logger
	now      func() time.Time
	locks    *subjectLocks
}

func NewManager(store Store, resolver Resolver, notify events.Notifier, log *zap.Logger) *Manager {
	return &Manager{store: store, resolver: resolver, notify: notify, log: log, now: time.Now, locks: newSubjectLocks()}
}

// WithClock replaces the time source.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// subjectFor loads the subject and, for instructors, checks the assignment.
func (m *Manager) subjectFor(ctx context.Context, actor models.Actor, subjectID int64, action authz.Action) (*models.Subject, error) {
	if err := authz.Require(actor, action); err != nil {
		return nil, err
	}
	subject, err := m.store.GetSubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if actor.Role() != models.RoleInstructor {
		return subject, nil
	}
	ok, err := m.store.IsAssigned(ctx, subject.ID, actor.ID(), subject.Term())
	if err != nil {
		return nil, fmt.Errorf("check assignment: %w", err)
	}
	if !ok {
		return nil, apperr.Forbidden(actor.Role(), fmt.Sprintf("%s grades for %s (not assigned)", action, subject.Code))
	}
	return subject, nil
}

// ListGrades returns the subject's grade sheet for its term.
func (m *Manager) ListGrades(ctx context.Context, actor models.Actor, subjectID int64) (*models.Subject, []models.GradeRow, error) {
	subject, err := m.subjectFor(ctx, actor, subjectID, authz.ViewGrades)
	if err != nil {
		return nil, nil, err
	}
	rows, err := m.store.ListSubjectGrades(ctx, subject.ID, subject.Term())
	if err != nil {
		return nil, nil, fmt.Errorf("list grades: %w", err)
	}
	return subject, rows, nil
}

// Access reports the caller's encoding window for a subject.
func (m *Manager) Access(ctx context.Context, actor models.Actor, subjectID int64) (window.Access, error) {
	subject, err := m.subjectFor(ctx, actor, subjectID, authz.EncodeGrades)
	if err != nil {
		return window.Access{}, err
	}
	return m.resolver.Resolve(ctx, actor, *subject)
}
