package db

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/Spok95/acadify-records/internal/apperr"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

var uniqueMessages = map[string]string{
	"uq_encoding_schedules_active":             "another schedule is already active for this term, period and department",
	"subjects_code_academic_year_semester_key": "subject code already used in this term",
	"students_student_no_key":                  "student number already registered",
	"users_username_key":                       "username already taken",
}

// translate maps driver errors onto apperr kinds. Unknown errors pass through.
func translate(err error, resource string, id any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(resource, id)
	}
	code, constraint := pgCode(err)
	switch code {
	case codeUniqueViolation:
		msg, ok := uniqueMessages[constraint]
		if !ok {
			msg = resource + " already exists"
		}
		return apperr.ConflictError{Message: msg, Err: err}
	case codeForeignKeyViolation:
		return apperr.NotFoundError{Resource: "referenced row of " + resource, ID: constraint}
	case codeCheckViolation:
		return apperr.ValidationError{Field: constraint, Message: "value rejected by the database"}
	}
	return err
}

// pgCode reads the SQLSTATE from either driver's error type.
func pgCode(err error) (string, string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint
	}
	return "", ""
}
