package eligibility

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Spok95/acadify-records/internal/apperr"
	"github.com/Spok95/acadify-records/internal/authz"
	"github.com/Spok95/acadify-records/internal/metrics"
	"github.com/Spok95/acadify-records/internal/models"
)

type Store interface {
	GetStudent(ctx context.Context, id int64) (*models.Student, error)
	ListStudentGrades(ctx context.Context, studentID int64, term models.Term) ([]models.GradeRow, error)
}

type Engine struct {
	store Store
	log   *zap.Logger
}

func NewEngine(store Store, log *zap.Logger) *Engine {
	return &Engine{store: store, log: log}
}

// Check evaluates one student. Students may only check themselves.
func (e *Engine) Check(ctx context.Context, actor models.Actor, studentID int64, term models.Term) (Result, error) {
	if err := authz.Require(actor, authz.CheckEligibility); err != nil {
		return Result{}, err
	}
	switch a := actor.(type) {
	case models.StudentActor:
		if a.StudentID != studentID {
			return Result{}, apperr.Forbidden(a.Role(), "check another student's eligibility")
		}
	case models.StaffActor:
	}

	st, err := e.store.GetStudent(ctx, studentID)
	if err != nil {
		return Result{}, fmt.Errorf("load student: %w", err)
	}
	rows, err := e.store.ListStudentGrades(ctx, studentID, term)
	if err != nil {
		return Result{}, fmt.Errorf("load grades: %w", err)
	}
	res := Evaluate(*st, rows)
	metrics.ObserveEligibility(res.Qualifies)
	e.log.Debug("eligibility evaluated",
		zap.Int64("student_id", studentID),
		zap.String("term", term.String()),
		zap.Bool("qualifies", res.Qualifies),
		zap.String("reason", res.Reason))
	return res, nil
}
