package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Spok95/acadify-records/internal/apperr"
	"github.com/Spok95/acadify-records/internal/authz"
	"github.com/Spok95/acadify-records/internal/events"
	"github.com/Spok95/acadify-records/internal/grading"
	"github.com/Spok95/acadify-records/internal/metrics"
	"github.com/Spok95/acadify-records/internal/models"
)

// Entry is one student's row in a grade write. A nil score leaves the stored
// value alone and an empty string clears it. Remark follows the same rule.
type Entry struct {
	StudentID int64
	Prelim    *string
	Midterm   *string
	Final     *string
	Remark    *string
}

func (e Entry) raw(p models.GradingPeriod) *string {
	switch p {
	case models.PeriodPrelim:
		return e.Prelim
	case models.PeriodMidterm:
		return e.Midterm
	case models.PeriodFinal:
		return e.Final
	}
	return nil
}

type RowFailure struct {
	StudentID int64       `json:"student_id"`
	Kind      apperr.Kind `json:"kind"`
	Error     string      `json:"error"`
}

type SaveResult struct {
	Saved     int          `json:"saved"`
	Completed int          `json:"completed"`
	Failures  []RowFailure `json:"failures,omitempty"`
}

// SaveGrades writes a batch of scores for one subject. The whole batch is refused
// when the encoding window is closed; otherwise bad rows are skipped and reported
// while the valid ones are stored together.
func (m *Manager) SaveGrades(ctx context.Context, actor models.Actor, subjectID int64, entries []Entry) (SaveResult, error) {
	var res SaveResult
	subject, err := m.subjectFor(ctx, actor, subjectID, authz.EncodeGrades)
	if err != nil {
		return res, err
	}
	defer m.locks.lock(subject.ID)()
	access, err := m.resolver.Resolve(ctx, actor, *subject)
	if err != nil {
		return res, err
	}
	if !access.CanEncode {
		metrics.WindowDenials.WithLabelValues(denialLabel(access.Reason)).Inc()
		return res, access.Err()
	}
	if len(entries) == 0 {
		return res, apperr.Invalid("grades", nil, "no grade rows given")
	}

	term := subject.Term()
	existing, err := m.store.ListSubjectGrades(ctx, subject.ID, term)
	if err != nil {
		return res, fmt.Errorf("list grades: %w", err)
	}
	byStudent := make(map[int64]models.Grade, len(existing))
	for _, r := range existing {
		byStudent[r.StudentID] = r.Grade
	}

	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.StudentID)
	}
	students, err := m.store.GetStudents(ctx, ids)
	if err != nil {
		return res, fmt.Errorf("load students: %w", err)
	}

	restricted := actor.Role() == models.RoleInstructor
	seen := make(map[int64]bool, len(entries))
	toSave := make([]models.Grade, 0, len(entries))
	var completed []int
	for _, e := range entries {
		fail := func(err error) {
			res.Failures = append(res.Failures, RowFailure{StudentID: e.StudentID, Kind: apperr.KindOf(err), Error: err.Error()})
		}
		if _, ok := students[e.StudentID]; !ok {
			fail(apperr.NotFound("student", e.StudentID))
			continue
		}
		if seen[e.StudentID] {
			fail(apperr.Invalid("student_id", e.StudentID, "appears more than once in the batch"))
			continue
		}
		seen[e.StudentID] = true

		prev, had := byStudent[e.StudentID]
		g := prev
		if !had {
			g = models.Grade{StudentID: e.StudentID, SubjectID: subject.ID, AcademicYear: term.AcademicYear, Semester: term.Semester}
		}
		if g.IsLocked {
			fail(apperr.Conflict("grade for student %d is locked (%s)", e.StudentID, g.State()))
			continue
		}
		if err := applyEntry(&g, e, access.Open, restricted); err != nil {
			fail(err)
			continue
		}
		if g.IsComplete && !prev.IsComplete {
			completed = append(completed, len(toSave))
		}
		toSave = append(toSave, g)
	}

	if len(toSave) > 0 {
		if err := m.store.SaveGrades(ctx, toSave); err != nil {
			return SaveResult{}, fmt.Errorf("save grades: %w", err)
		}
	}
	res.Saved = len(toSave)
	res.Completed = len(completed)
	metrics.GradeRows.WithLabelValues("saved").Add(float64(res.Saved))
	metrics.GradeRows.WithLabelValues("failed").Add(float64(len(res.Failures)))

	for _, i := range completed {
		g := toSave[i]
		ev := events.New(events.GradeCompleted, actor, "grade", g.ID,
			fmt.Sprintf("grade for student %d in %s is complete", g.StudentID, subject.Code)).
			With("subject_id", subject.ID).
			With("student_id", g.StudentID)
		if g.Remarks != nil {
			ev = ev.With("remarks", *g.Remarks)
		}
		m.notify.Notify(ctx, ev)
	}
	m.log.Info("grades saved",
		zap.Int64("subject_id", subject.ID),
		zap.String("actor", actor.Key()),
		zap.Int("saved", res.Saved),
		zap.Int("completed", res.Completed),
		zap.Int("failed", len(res.Failures)))
	return res, nil
}

// applyEntry parses the row's values into g and recomputes its derived fields.
// Instructors may not change a score whose grading period is closed. An entry
// without a remark keeps a stored override until its scores fill all three
// periods; from then on the grade is computed from the scores.
func applyEntry(g *models.Grade, e Entry, open func(models.GradingPeriod) bool, restricted bool) error {
	scored := false
	for _, p := range models.ScoredPeriods {
		raw := e.raw(p)
		if raw == nil {
			continue
		}
		v, err := grading.ParseScore(string(p), *raw)
		if err != nil {
			var ve apperr.ValidationError
			if errors.As(err, &ve) {
				ve.StudentID = e.StudentID
				return ve
			}
			return err
		}
		if restricted && !open(p) && !sameScore(g.Score(p), v) {
			return apperr.WindowClosedError{Reason: fmt.Sprintf("%s encoding is closed", p)}
		}
		setScore(g, p, v)
		scored = true
	}

	switch {
	case e.Remark == nil && scored && g.HasAllScores():
		grading.Apply(g, "")
	case e.Remark == nil:
		grading.Recompute(g)
	case strings.TrimSpace(*e.Remark) == "":
		grading.Apply(g, "")
	default:
		r, ok := grading.NormalizeRemark(*e.Remark)
		if !ok {
			return apperr.ValidationError{Field: "remark", Value: *e.Remark, Message: "use INC, AW, UW or Passed", StudentID: e.StudentID}
		}
		grading.Apply(g, r)
	}
	return nil
}

func setScore(g *models.Grade, p models.GradingPeriod, v *float64) {
	switch p {
	case models.PeriodPrelim:
		g.Prelim = v
	case models.PeriodMidterm:
		g.Midterm = v
	case models.PeriodFinal:
		g.Final = v
	}
}

func sameScore(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func denialLabel(reason string) string {
	switch {
	case strings.HasPrefix(reason, "encoding opens"):
		return "not_started"
	case strings.HasPrefix(reason, "encoding closed"):
		return "ended"
	default:
		return "no_schedule"
	}
}
