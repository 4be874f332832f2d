package lifecycle

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/acadify-records/internal/apperr"
	"github.com/Spok95/acadify-records/internal/authz"
	"github.com/Spok95/acadify-records/internal/events"
	"github.com/Spok95/acadify-records/internal/grading"
	"github.com/Spok95/acadify-records/internal/metrics"
	"github.com/Spok95/acadify-records/internal/models"
)

type SubmitResult struct {
	Submitted   int       `json:"submitted"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Submit locks every grade of the subject's term for registrar approval.
func (m *Manager) Submit(ctx context.Context, actor models.Actor, subjectID int64) (SubmitResult, error) {
	subject, err := m.subjectFor(ctx, actor, subjectID, authz.SubmitGrades)
	if err != nil {
		return SubmitResult{}, err
	}
	defer m.locks.lock(subject.ID)()
	rows, err := m.store.ListSubjectGrades(ctx, subject.ID, subject.Term())
	if err != nil {
		return SubmitResult{}, fmt.Errorf("list grades: %w", err)
	}
	if len(rows) == 0 {
		return SubmitResult{}, apperr.IncompleteDataError{Message: fmt.Sprintf("no grades to submit for %s", subject.Code)}
	}
	for _, r := range rows {
		if r.PendingApproval() {
			return SubmitResult{}, apperr.Conflict("grades for %s are already submitted and pending approval", subject.Code)
		}
		if r.IsLocked {
			return SubmitResult{}, apperr.Conflict("grades for %s are already approved; ask an administrator to unlock them", subject.Code)
		}
	}
	for _, r := range rows {
		if !grading.IsSpecial(r.Grade) && !r.HasAllScores() {
			return SubmitResult{}, apperr.IncompleteDataError{
				StudentID:   r.StudentID,
				StudentName: r.StudentName,
				Message:     "incomplete grades",
			}
		}
	}

	grades := make([]models.Grade, len(rows))
	for i, r := range rows {
		g := r.Grade
		grading.Recompute(&g)
		grades[i] = g
	}
	now := m.now()
	if err := m.store.LockGrades(ctx, grades, now); err != nil {
		return SubmitResult{}, fmt.Errorf("lock grades: %w", err)
	}
	metrics.ObserveTransition("submit", len(grades))
	m.notify.Notify(ctx, events.New(events.GradesSubmitted, actor, "subject", subject.ID,
		fmt.Sprintf("%d grades for %s submitted for approval", len(grades), subject.Code)).
		With("rows", len(grades)))
	m.log.Info("grades submitted", zap.Int64("subject_id", subject.ID), zap.String("actor", actor.Key()), zap.Int("rows", len(grades)))
	return SubmitResult{Submitted: len(grades), SubmittedAt: now}, nil
}

type ApproveResult struct {
	Requested int     `json:"requested"`
	Approved  int     `json:"approved"`
	Skipped   int     `json:"skipped"`
	IDs       []int64 `json:"approved_ids"`
}

// Approve marks submitted grades as approved. Ids that are not awaiting approval are skipped.
func (m *Manager) Approve(ctx context.Context, actor models.Actor, gradeIDs []int64) (ApproveResult, error) {
	if err := authz.Require(actor, authz.ApproveGrades); err != nil {
		return ApproveResult{}, err
	}
	ids := dedupe(gradeIDs)
	if len(ids) == 0 {
		return ApproveResult{}, apperr.Invalid("grade_ids", nil, "select at least one grade")
	}
	approved, err := m.store.ApproveGrades(ctx, ids, actor.ID(), m.now())
	if err != nil {
		return ApproveResult{}, fmt.Errorf("approve grades: %w", err)
	}
	res := ApproveResult{Requested: len(ids), Approved: len(approved), Skipped: len(ids) - len(approved), IDs: approved}
	if res.Approved > 0 {
		metrics.ObserveTransition("approve", res.Approved)
		m.notify.Notify(ctx, events.New(events.GradesApproved, actor, "grade", 0,
			fmt.Sprintf("%d grades approved", res.Approved)).
			With("grade_ids", approved))
	}
	m.log.Info("grades approved", zap.String("actor", actor.Key()), zap.Int("approved", res.Approved), zap.Int("skipped", res.Skipped))
	return res, nil
}

// Unlock returns a subject's grades to editable state, keeping the scores.
func (m *Manager) Unlock(ctx context.Context, actor models.Actor, subjectID int64) (int, error) {
	subject, err := m.subjectFor(ctx, actor, subjectID, authz.UnlockGrades)
	if err != nil {
		return 0, err
	}
	defer m.locks.lock(subject.ID)()
	n, err := m.store.UnlockGrades(ctx, subject.ID, subject.Term())
	if err != nil {
		return 0, fmt.Errorf("unlock grades: %w", err)
	}
	metrics.ObserveTransition("unlock", n)
	m.notify.Notify(ctx, events.New(events.GradesUnlocked, actor, "subject", subject.ID,
		fmt.Sprintf("%d grades for %s unlocked", n, subject.Code)).
		With("rows", n))
	m.log.Info("grades unlocked", zap.Int64("subject_id", subject.ID), zap.String("actor", actor.Key()), zap.Int("rows", n))
	return n, nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
