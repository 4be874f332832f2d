//go:build testutil
// +build testutil

package testdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Spok95/acadify-records/internal/models"
)

// CreateUser inserts a staff or student account and returns its id.
func CreateUser(ctx context.Context, database *sql.DB, u models.User) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `
		INSERT INTO users (username, full_name, role, department, is_active)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		RETURNING id
	`, u.Username, u.FullName, string(u.Role), u.Department, u.IsActive).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create user %s: %w", u.Username, err)
	}
	return id, nil
}

func CreateStudent(ctx context.Context, database *sql.DB, st models.Student) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `
		INSERT INTO students (student_no, first_name, last_name, department, year_level, section, section_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, st.StudentNo, st.FirstName, st.LastName, st.Department, st.YearLevel, st.Section, st.SectionType).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create student %s: %w", st.StudentNo, err)
	}
	return id, nil
}

func CreateSubject(ctx context.Context, database *sql.DB, sub models.Subject) (int64, error) {
	if sub.Type == "" {
		sub.Type = models.SubjectAcademic
	}
	var instructor sql.NullInt64
	if sub.InstructorID != nil {
		instructor = sql.NullInt64{Int64: *sub.InstructorID, Valid: true}
	}
	var id int64
	err := database.QueryRowContext(ctx, `
		INSERT INTO subjects (code, name, subject_type, units, department, year_level, academic_year, semester, instructor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, sub.Code, sub.Name, string(sub.Type), sub.Units, sub.Department, sub.YearLevel, sub.AcademicYear, sub.Semester, instructor).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create subject %s: %w", sub.Code, err)
	}
	return id, nil
}

// AssignInstructor adds a co-instructor to a subject for its term. Repeats are ignored.
func AssignInstructor(ctx context.Context, database *sql.DB, subjectID, instructorID int64) error {
	var exists bool
	if err := database.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM subjects WHERE id = $1)`, subjectID).Scan(&exists); err != nil {
		return fmt.Errorf("assign instructor: %w", err)
	}
	if !exists {
		return fmt.Errorf("assign instructor: subject %d not found", subjectID)
	}
	_, err := database.ExecContext(ctx, `
		INSERT INTO class_assignments (subject_id, instructor_id, academic_year, semester)
		SELECT id, $2, academic_year, semester FROM subjects WHERE id = $1
		ON CONFLICT DO NOTHING
	`, subjectID, instructorID)
	if err != nil {
		return fmt.Errorf("assign instructor: %w", err)
	}
	return nil
}

// AuditEntries returns the newest audit rows for a resource.
func AuditEntries(ctx context.Context, database *sql.DB, resource string, resourceID int64) ([]models.AuditEntry, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT id, event_id::text, action, actor, resource, resource_id, summary, COALESCE(details::text, ''), created_at
		FROM audit_logs
		WHERE resource = $1 AND resource_id = $2
		ORDER BY created_at DESC, id DESC
	`, resource, resourceID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.AuditEntry
	for rows.Next() {
		var (
			e       models.AuditEntry
			details string
		)
		if err := rows.Scan(&e.ID, &e.EventID, &e.Action, &e.Actor, &e.Resource, &e.ResourceID, &e.Summary, &details, &e.CreatedAt); err != nil {
			return nil, err
		}
		if details != "" {
			e.Details = []byte(details)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
