package db

import (
	"context"
	"database/sql"

	"github.com/Spok95/acadify-records/internal/ctxutil"
	"github.com/Spok95/acadify-records/internal/models"
)

// ReplaceDeansList swaps the term's snapshot for records in one transaction.
func (s *Store) ReplaceDeansList(ctx context.Context, term models.Term, records []models.DeansListRecord) error {
	ctx, cancel := ctxutil.WithTimeout(ctx, 4*ctxutil.DefaultDBTimeout)
	defer cancel()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM deans_list_records WHERE academic_year = $1 AND semester = $2`,
			term.AcademicYear, term.Semester); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO deans_list_records (student_id, academic_year, semester, gwa, total_units, qualifies, reason, rank, computed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		for _, r := range records {
			var rank sql.NullInt32
			if r.Rank != nil {
				rank = sql.NullInt32{Int32: int32(*r.Rank), Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, r.StudentID, term.AcademicYear, term.Semester,
				r.GWA, r.TotalUnits, r.Qualifies, r.Reason, rank, r.ComputedAt); err != nil {
				return translate(err, "dean's list record", r.StudentID)
			}
		}
		return nil
	})
}

func (s *Store) ListDeansList(ctx context.Context, term models.Term) ([]models.DeansListRecord, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.student_id, st.student_no, st.last_name || ', ' || st.first_name, st.department,
		       d.academic_year, d.semester, d.gwa::float8, d.total_units, d.qualifies, d.reason, d.rank, d.computed_at
		FROM deans_list_records d
		JOIN students st ON st.id = d.student_id
		WHERE d.academic_year = $1 AND d.semester = $2
		ORDER BY d.rank NULLS LAST, st.last_name, st.first_name
	`, term.AcademicYear, term.Semester)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.DeansListRecord
	for rows.Next() {
		var (
			r    models.DeansListRecord
			rank sql.NullInt32
		)
		if err := rows.Scan(&r.ID, &r.StudentID, &r.StudentNo, &r.StudentName, &r.Department,
			&r.AcademicYear, &r.Semester, &r.GWA, &r.TotalUnits, &r.Qualifies, &r.Reason, &rank, &r.ComputedAt); err != nil {
			return nil, err
		}
		if rank.Valid {
			v := int(rank.Int32)
			r.Rank = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertAuditLog records one event. A repeated event id is ignored.
func (s *Store) InsertAuditLog(ctx context.Context, e models.AuditEntry) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var details any
	if len(e.Details) > 0 {
		details = string(e.Details)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (event_id, action, actor, resource, resource_id, summary, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8)
		ON CONFLICT (event_id) DO NOTHING
	`, e.EventID, e.Action, e.Actor, e.Resource, e.ResourceID, e.Summary, details, e.CreatedAt)
	return err
}
