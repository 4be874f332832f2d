package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Spok95/acadify-records/internal/ctxutil"
	"github.com/Spok95/acadify-records/internal/models"
)

const scheduleColumns = `id, academic_year, semester, department, grading_period, start_date, end_date,
	start_minute, end_minute, status, COALESCE(created_by, 0), created_at, updated_at`

func scanSchedule(r scanner) (models.EncodingSchedule, error) {
	var (
		s              models.EncodingSchedule
		dept           sql.NullString
		period, status string
		startM, endM   sql.NullInt32
	)
	err := r.Scan(&s.ID, &s.AcademicYear, &s.Semester, &dept, &period, &s.StartDate, &s.EndDate,
		&startM, &endM, &status, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return s, err
	}
	s.Department = stringPtr(dept)
	s.GradingPeriod = models.GradingPeriod(period)
	s.Status = models.ScheduleStatus(status)
	if startM.Valid {
		c := models.Clock(startM.Int32)
		s.StartClock = &c
	}
	if endM.Valid {
		c := models.Clock(endM.Int32)
		s.EndClock = &c
	}
	return s, nil
}

func clockArg(c *models.Clock) sql.NullInt32 {
	if c == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*c), Valid: true}
}

// dateArg drops the clock and zone so the DATE column keeps the calendar day.
func dateArg(t time.Time) string { return t.Format("2006-01-02") }

func (s *Store) querySchedules(ctx context.Context, query string, args ...any) ([]models.EncodingSchedule, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.EncodingSchedule
	for rows.Next() {
		sch, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sch)
	}
	return out, rows.Err()
}

func (s *Store) GetSchedule(ctx context.Context, id int64) (*models.EncodingSchedule, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	sch, err := scanSchedule(s.db.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM encoding_schedules WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err, "schedule", id)
	}
	return &sch, nil
}

// ListSchedules returns all schedules, or one term's, newest term first.
func (s *Store) ListSchedules(ctx context.Context, term *models.Term) ([]models.EncodingSchedule, error) {
	if term == nil {
		return s.querySchedules(ctx, `SELECT `+scheduleColumns+` FROM encoding_schedules
			ORDER BY academic_year DESC, semester DESC, start_date, id`)
	}
	return s.querySchedules(ctx, `SELECT `+scheduleColumns+` FROM encoding_schedules
		WHERE academic_year = $1 AND semester = $2
		ORDER BY start_date, id`, term.AcademicYear, term.Semester)
}

func (s *Store) ListOpenSchedules(ctx context.Context) ([]models.EncodingSchedule, error) {
	return s.querySchedules(ctx, `SELECT `+scheduleColumns+` FROM encoding_schedules
		WHERE status <> 'completed'
		ORDER BY start_date, id`)
}

func (s *Store) ListDepartmentSchedules(ctx context.Context, term models.Term, department string) ([]models.EncodingSchedule, error) {
	return s.querySchedules(ctx, `SELECT `+scheduleColumns+` FROM encoding_schedules
		WHERE academic_year = $1 AND semester = $2 AND (department IS NULL OR department = $3)
		ORDER BY start_date, id`, term.AcademicYear, term.Semester, department)
}

// completeOthers ends every other active schedule in sch's scope. It runs
// before the write so the partial unique index never sees two active rows.
func completeOthers(ctx context.Context, tx *sql.Tx, sch models.EncodingSchedule) error {
	if sch.Status != models.StatusActive {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE encoding_schedules
		SET status = 'completed', updated_at = now()
		WHERE academic_year = $1 AND semester = $2 AND grading_period = $3
		  AND COALESCE(department, '') = COALESCE($4, '')
		  AND status = 'active' AND id <> $5
	`, sch.AcademicYear, sch.Semester, string(sch.GradingPeriod), nullString(sch.Department), sch.ID)
	return err
}

func (s *Store) InsertSchedule(ctx context.Context, sch *models.EncodingSchedule) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := completeOthers(ctx, tx, *sch); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `
			INSERT INTO encoding_schedules (academic_year, semester, department, grading_period,
			                                start_date, end_date, start_minute, end_minute, status, created_by)
			VALUES ($1, $2, $3, $4, $5::date, $6::date, $7, $8, $9, NULLIF($10::bigint, 0))
			RETURNING id, created_at, updated_at
		`, sch.AcademicYear, sch.Semester, nullString(sch.Department), string(sch.GradingPeriod),
			dateArg(sch.StartDate), dateArg(sch.EndDate), clockArg(sch.StartClock), clockArg(sch.EndClock),
			string(sch.Status), sch.CreatedBy,
		).Scan(&sch.ID, &sch.CreatedAt, &sch.UpdatedAt)
	})
	return translate(err, "schedule", nil)
}

func (s *Store) UpdateSchedule(ctx context.Context, sch *models.EncodingSchedule) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := completeOthers(ctx, tx, *sch); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `
			UPDATE encoding_schedules
			SET academic_year = $2, semester = $3, department = $4, grading_period = $5,
			    start_date = $6::date, end_date = $7::date, start_minute = $8, end_minute = $9,
			    status = $10, updated_at = now()
			WHERE id = $1
			RETURNING updated_at
		`, sch.ID, sch.AcademicYear, sch.Semester, nullString(sch.Department), string(sch.GradingPeriod),
			dateArg(sch.StartDate), dateArg(sch.EndDate), clockArg(sch.StartClock), clockArg(sch.EndClock),
			string(sch.Status),
		).Scan(&sch.UpdatedAt)
	})
	return translate(err, "schedule", sch.ID)
}

func (s *Store) SetScheduleStatus(ctx context.Context, id int64, status models.ScheduleStatus) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		sch, err := scanSchedule(tx.QueryRowContext(ctx,
			`SELECT `+scheduleColumns+` FROM encoding_schedules WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		sch.Status = status
		if err := completeOthers(ctx, tx, sch); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE encoding_schedules SET status = $2, updated_at = now() WHERE id = $1`, id, string(status))
		return err
	})
	return translate(err, "schedule", id)
}

func (s *Store) DeleteSchedule(ctx context.Context, id int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM encoding_schedules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return translate(sql.ErrNoRows, "schedule", id)
	}
	return nil
}

const exceptionColumns = `id, instructor_id, academic_year, semester, grading_period, expires_at, reason,
	granted_by, granted_at, is_active, revoked_at`

func scanException(r scanner) (models.EncodingException, error) {
	var (
		e       models.EncodingException
		period  string
		revoked sql.NullTime
	)
	err := r.Scan(&e.ID, &e.InstructorID, &e.AcademicYear, &e.Semester, &period, &e.ExpiresAt, &e.Reason,
		&e.GrantedBy, &e.GrantedAt, &e.IsActive, &revoked)
	e.GradingPeriod = models.GradingPeriod(period)
	e.RevokedAt = timePtr(revoked)
	return e, err
}

func (s *Store) queryExceptions(ctx context.Context, query string, args ...any) ([]models.EncodingException, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.EncodingException
	for rows.Next() {
		e, err := scanException(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) GetException(ctx context.Context, id int64) (*models.EncodingException, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	e, err := scanException(s.db.QueryRowContext(ctx, `SELECT `+exceptionColumns+` FROM encoding_exceptions WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err, "exception", id)
	}
	return &e, nil
}

func (s *Store) ListExceptions(ctx context.Context, term *models.Term) ([]models.EncodingException, error) {
	if term == nil {
		return s.queryExceptions(ctx, `SELECT `+exceptionColumns+` FROM encoding_exceptions ORDER BY granted_at DESC, id DESC`)
	}
	return s.queryExceptions(ctx, `SELECT `+exceptionColumns+` FROM encoding_exceptions
		WHERE academic_year = $1 AND semester = $2
		ORDER BY granted_at DESC, id DESC`, term.AcademicYear, term.Semester)
}

// ListInstructorExceptions returns the instructor's exceptions still flagged active for term.
func (s *Store) ListInstructorExceptions(ctx context.Context, instructorID int64, term models.Term) ([]models.EncodingException, error) {
	return s.queryExceptions(ctx, `SELECT `+exceptionColumns+` FROM encoding_exceptions
		WHERE instructor_id = $1 AND academic_year = $2 AND semester = $3 AND is_active
		ORDER BY expires_at`, instructorID, term.AcademicYear, term.Semester)
}

func (s *Store) InsertException(ctx context.Context, e *models.EncodingException) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO encoding_exceptions (instructor_id, academic_year, semester, grading_period,
		                                 expires_at, reason, granted_by, granted_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, e.InstructorID, e.AcademicYear, e.Semester, string(e.GradingPeriod),
		e.ExpiresAt, e.Reason, e.GrantedBy, e.GrantedAt, e.IsActive,
	).Scan(&e.ID)
	return translate(err, "exception", nil)
}

// RevokeException flips an active exception off; false if it was already inactive.
func (s *Store) RevokeException(ctx context.Context, id int64, at time.Time) (bool, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
		UPDATE encoding_exceptions SET is_active = FALSE, revoked_at = $2
		WHERE id = $1 AND is_active
	`, id, at)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

func (s *Store) ExpireExceptions(ctx context.Context, now time.Time) (int, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
		UPDATE encoding_exceptions SET is_active = FALSE, revoked_at = $1
		WHERE is_active AND expires_at < $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("expire exceptions: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}
