package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/Spok95/acadify-records/internal/apperr"
	"github.com/Spok95/acadify-records/internal/ctxutil"
	"github.com/Spok95/acadify-records/internal/models"
)

const gradeRowSelect = `
	SELECT g.id, g.student_id, g.subject_id, g.academic_year, g.semester,
	       g.prelim::float8, g.midterm::float8, g.final::float8,
	       g.final_average::float8, g.equivalent::float8, g.remarks,
	       g.is_complete, g.is_locked, g.submitted_at, g.approved_at, g.approved_by,
	       g.is_historical, g.import_source, g.imported_at, g.created_at, g.updated_at,
	       st.student_no, st.last_name || ', ' || st.first_name,
	       sub.code, sub.subject_type, sub.units
	FROM grades g
	JOIN students st ON st.id = g.student_id
	JOIN subjects sub ON sub.id = g.subject_id
`

func scanGradeRow(r scanner) (models.GradeRow, error) {
	var (
		row                                 models.GradeRow
		prelim, midterm, final, avg, eq     sql.NullFloat64
		remarks, importSource               sql.NullString
		submittedAt, approvedAt, importedAt sql.NullTime
		approvedBy                          sql.NullInt64
		subjectType                         string
	)
	err := r.Scan(&row.ID, &row.StudentID, &row.SubjectID, &row.AcademicYear, &row.Semester,
		&prelim, &midterm, &final,
		&avg, &eq, &remarks,
		&row.IsComplete, &row.IsLocked, &submittedAt, &approvedAt, &approvedBy,
		&row.IsHistorical, &importSource, &importedAt, &row.CreatedAt, &row.UpdatedAt,
		&row.StudentNo, &row.StudentName,
		&row.SubjectCode, &subjectType, &row.Units)
	if err != nil {
		return row, err
	}
	row.Prelim = float64Ptr(prelim)
	row.Midterm = float64Ptr(midterm)
	row.Final = float64Ptr(final)
	row.FinalAverage = float64Ptr(avg)
	row.Equivalent = float64Ptr(eq)
	row.Remarks = stringPtr(remarks)
	row.SubmittedAt = timePtr(submittedAt)
	row.ApprovedAt = timePtr(approvedAt)
	row.ApprovedBy = int64Ptr(approvedBy)
	row.ImportSource = stringPtr(importSource)
	row.ImportedAt = timePtr(importedAt)
	row.SubjectType = models.SubjectType(subjectType)
	return row, nil
}

func (s *Store) queryGradeRows(ctx context.Context, query string, args ...any) ([]models.GradeRow, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.GradeRow
	for rows.Next() {
		r, err := scanGradeRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListSubjectGrades returns the subject's grades for term ordered by student name.
func (s *Store) ListSubjectGrades(ctx context.Context, subjectID int64, term models.Term) ([]models.GradeRow, error) {
	return s.queryGradeRows(ctx, gradeRowSelect+`
		WHERE g.subject_id = $1 AND g.academic_year = $2 AND g.semester = $3
		ORDER BY st.last_name, st.first_name, st.id
	`, subjectID, term.AcademicYear, term.Semester)
}

func (s *Store) ListStudentGrades(ctx context.Context, studentID int64, term models.Term) ([]models.GradeRow, error) {
	return s.queryGradeRows(ctx, gradeRowSelect+`
		WHERE g.student_id = $1 AND g.academic_year = $2 AND g.semester = $3
		ORDER BY sub.code
	`, studentID, term.AcademicYear, term.Semester)
}

func (s *Store) ListTermGrades(ctx context.Context, term models.Term) (map[int64][]models.GradeRow, error) {
	rows, err := s.queryGradeRows(ctx, gradeRowSelect+`
		WHERE g.academic_year = $1 AND g.semester = $2
		ORDER BY g.student_id, sub.code
	`, term.AcademicYear, term.Semester)
	if err != nil {
		return nil, err
	}
	out := make(map[int64][]models.GradeRow)
	for _, r := range rows {
		out[r.StudentID] = append(out[r.StudentID], r)
	}
	return out, nil
}

const upsertGrade = `
	INSERT INTO grades (student_id, subject_id, academic_year, semester,
	                    prelim, midterm, final, final_average, equivalent, remarks, is_complete)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (student_id, subject_id, academic_year, semester) DO UPDATE SET
		prelim = EXCLUDED.prelim,
		midterm = EXCLUDED.midterm,
		final = EXCLUDED.final,
		final_average = EXCLUDED.final_average,
		equivalent = EXCLUDED.equivalent,
		remarks = EXCLUDED.remarks,
		is_complete = EXCLUDED.is_complete,
		updated_at = now()
	WHERE NOT grades.is_locked
	RETURNING id
`

// SaveGrades upserts all rows in one transaction and fills in their ids.
// A row that became locked since it was read aborts the batch with a conflict.
func (s *Store) SaveGrades(ctx context.Context, grades []models.Grade) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertGrade)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		for i := range grades {
			g := &grades[i]
			err := stmt.QueryRowContext(ctx,
				g.StudentID, g.SubjectID, g.AcademicYear, g.Semester,
				nullFloat(g.Prelim), nullFloat(g.Midterm), nullFloat(g.Final),
				nullFloat(g.FinalAverage), nullFloat(g.Equivalent), nullString(g.Remarks), g.IsComplete,
			).Scan(&g.ID)
			if err == sql.ErrNoRows {
				return lockedConflict(g.StudentID)
			}
			if err != nil {
				return translate(err, "grade", g.StudentID)
			}
		}
		return nil
	})
}

// LockGrades stores the recomputed rows as submitted at the given instant.
func (s *Store) LockGrades(ctx context.Context, grades []models.Grade, at time.Time) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			UPDATE grades
			SET final_average = $2, equivalent = $3, remarks = $4, is_complete = $5,
			    is_locked = TRUE, submitted_at = $6,
			    approved_at = NULL, approved_by = NULL,
			    updated_at = now()
			WHERE id = $1 AND NOT is_locked
		`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		for _, g := range grades {
			res, err := stmt.ExecContext(ctx, g.ID, nullFloat(g.FinalAverage), nullFloat(g.Equivalent), nullString(g.Remarks), g.IsComplete, at)
			if err != nil {
				return translate(err, "grade", g.ID)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return lockedConflict(g.StudentID)
			}
		}
		return nil
	})
}

// ApproveGrades approves the submitted, unapproved rows among ids and returns those it changed.
func (s *Store) ApproveGrades(ctx context.Context, ids []int64, approver int64, at time.Time) ([]int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var approved []int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			UPDATE grades
			SET approved_at = $2, approved_by = $3, updated_at = now()
			WHERE id = ANY($1) AND is_locked AND submitted_at IS NOT NULL AND approved_at IS NULL
			RETURNING id
		`, pq.Array(ids), at, approver)
		if err != nil {
			return translate(err, "grade", nil)
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return err
			}
			approved = append(approved, id)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

// UnlockGrades clears the workflow fields of the subject's locked grades for term. Scores stay.
func (s *Store) UnlockGrades(ctx context.Context, subjectID int64, term models.Term) (int, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
		UPDATE grades
		SET is_locked = FALSE, submitted_at = NULL, approved_at = NULL, approved_by = NULL, updated_at = now()
		WHERE subject_id = $1 AND academic_year = $2 AND semester = $3 AND is_locked
	`, subjectID, term.AcademicYear, term.Semester)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func lockedConflict(studentID int64) error {
	return apperr.Conflict("grade for student %d was locked by another request", studentID)
}
