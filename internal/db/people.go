package db

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/Spok95/acadify-records/internal/ctxutil"
	"github.com/Spok95/acadify-records/internal/models"
)

const studentColumns = `s.id, s.student_no, s.first_name, s.last_name, s.department, s.year_level, s.section, s.section_type`

func scanStudent(r scanner) (models.Student, error) {
	var st models.Student
	err := r.Scan(&st.ID, &st.StudentNo, &st.FirstName, &st.LastName, &st.Department, &st.YearLevel, &st.Section, &st.SectionType)
	return st, err
}

func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var (
		u    models.User
		role string
		dept sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, full_name, role, department, is_active
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Username, &u.FullName, &role, &dept, &u.IsActive)
	if err != nil {
		return nil, translate(err, "user", id)
	}
	if u.Role, err = models.ParseRole(role); err != nil {
		return nil, err
	}
	u.Department = dept.String
	return &u, nil
}

func (s *Store) GetStudent(ctx context.Context, id int64) (*models.Student, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	st, err := scanStudent(s.db.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students s WHERE s.id = $1`, id))
	if err != nil {
		return nil, translate(err, "student", id)
	}
	return &st, nil
}

func (s *Store) GetStudents(ctx context.Context, ids []int64) (map[int64]models.Student, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT `+studentColumns+` FROM students s WHERE s.id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[int64]models.Student, len(ids))
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out[st.ID] = st
	}
	return out, rows.Err()
}

// ListTermStudents returns students holding at least one grade in term, by name.
func (s *Store) ListTermStudents(ctx context.Context, term models.Term) ([]models.Student, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+studentColumns+`
		FROM students s
		WHERE EXISTS (
			SELECT 1 FROM grades g
			WHERE g.student_id = s.id AND g.academic_year = $1 AND g.semester = $2
		)
		ORDER BY s.last_name, s.first_name, s.id
	`, term.AcademicYear, term.Semester)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) GetSubject(ctx context.Context, id int64) (*models.Subject, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var (
		sub        models.Subject
		typ        string
		instructor sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, code, name, subject_type, units, department, year_level, semester, academic_year, instructor_id
		FROM subjects WHERE id = $1
	`, id).Scan(&sub.ID, &sub.Code, &sub.Name, &typ, &sub.Units, &sub.Department, &sub.YearLevel, &sub.Semester, &sub.AcademicYear, &instructor)
	if err != nil {
		return nil, translate(err, "subject", id)
	}
	sub.Type = models.SubjectType(typ)
	sub.InstructorID = int64Ptr(instructor)
	return &sub, nil
}

// IsAssigned reports whether the instructor teaches the subject in term, either
// as its instructor of record or through a class assignment.
func (s *Store) IsAssigned(ctx context.Context, subjectID, instructorID int64, term models.Term) (bool, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var ok bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM subjects WHERE id = $1 AND instructor_id = $2
			UNION ALL
			SELECT 1 FROM class_assignments
			WHERE subject_id = $1 AND instructor_id = $2 AND academic_year = $3 AND semester = $4
		)
	`, subjectID, instructorID, term.AcademicYear, term.Semester).Scan(&ok)
	return ok, err
}
