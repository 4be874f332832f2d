package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Spok95/acadify-records/internal/apperr"
	"github.com/Spok95/acadify-records/internal/logging"
	"github.com/Spok95/acadify-records/internal/models"
	"github.com/Spok95/acadify-records/internal/observability"
	"github.com/Spok95/acadify-records/internal/term"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const maxBody = 1 << 20

type errorBody struct {
	Kind        apperr.Kind `json:"kind"`
	Message     string      `json:"message"`
	Field       string      `json:"field,omitempty"`
	StudentID   int64       `json:"student_id,omitempty"`
	StudentName string      `json:"student_name,omitempty"`
	Resource    string      `json:"resource,omitempty"`
	Reason      string      `json:"reason,omitempty"`
	OpensAt     *time.Time  `json:"opens_at,omitempty"`
	ClosedAt    *time.Time  `json:"closed_at,omitempty"`
}

func statusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindAuthorization:
		return http.StatusForbidden
	case apperr.KindWindowClosed:
		return http.StatusLocked
	case apperr.KindIncomplete:
		return http.StatusUnprocessableEntity
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a service error to its status and body. Internal errors are
// logged and reported; their text never reaches the client.
func (a *api) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	body := errorBody{Kind: kind, Message: err.Error()}

	var (
		closed   apperr.WindowClosedError
		incomp   apperr.IncompleteDataError
		invalid  apperr.ValidationError
		notFound apperr.NotFoundError
	)
	switch {
	case errors.As(err, &closed):
		body.Reason, body.OpensAt, body.ClosedAt = closed.Reason, closed.OpensAt, closed.ClosedAt
	case errors.As(err, &incomp):
		body.StudentID, body.StudentName = incomp.StudentID, incomp.StudentName
	case errors.As(err, &invalid):
		body.Field, body.StudentID = invalid.Field, invalid.StudentID
	case errors.As(err, &notFound):
		body.Resource = notFound.Resource
	}

	status := statusFor(kind)
	log := logging.FromContext(r.Context(), a.Log)
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
		observability.CaptureCtx(r.Context(), err)
		body.Message = "internal error"
	} else {
		log.Info("request rejected", zap.String("kind", string(kind)), zap.Error(err))
	}
	writeJSON(w, status, map[string]errorBody{"error": body})
}

func (a *api) unauthorized(w http.ResponseWriter, r *http.Request, err error) {
	writeJSON(w, http.StatusUnauthorized, map[string]errorBody{
		"error": {Kind: "unauthenticated", Message: err.Error()},
	})
}

func writeFile(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and validates it.
func (a *api) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.ValidationError{Message: "malformed JSON body: " + err.Error()}
	}
	if err := a.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperr.ValidationError{
				Field:   fe.Field(),
				Value:   fe.Value(),
				Message: fmt.Sprintf("failed %q check", fe.Tag()),
			}
		}
		return apperr.ValidationError{Message: err.Error()}
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid(name, raw, "must be a positive integer")
	}
	return id, nil
}

// queryTerm reads academic_year and semester. Both absent yields nil.
func queryTerm(r *http.Request) (*models.Term, error) {
	q := r.URL.Query()
	ay, sem := strings.TrimSpace(q.Get("academic_year")), strings.TrimSpace(q.Get("semester"))
	if ay == "" && sem == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(sem)
	if err != nil {
		return nil, apperr.Invalid("semester", sem, "want 1 or 2")
	}
	t := models.Term{AcademicYear: ay, Semester: n}
	if err := term.Validate(t); err != nil {
		return nil, apperr.Invalid("term", t.String(), err.Error())
	}
	return &t, nil
}

// termOrCurrent falls back to the term containing now.
func (a *api) termOrCurrent(r *http.Request) (models.Term, error) {
	t, err := queryTerm(r)
	if err != nil {
		return models.Term{}, err
	}
	if t != nil {
		return *t, nil
	}
	return term.Current(a.Now().In(a.Windows.Location())), nil
}
