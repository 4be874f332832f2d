package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/Spok95/acadify-records/internal/apperr"
	"github.com/Spok95/acadify-records/internal/auth"
	"github.com/Spok95/acadify-records/internal/authz"
	"github.com/Spok95/acadify-records/internal/models"
	"github.com/Spok95/acadify-records/internal/window"
)

type scheduleRequest struct {
	AcademicYear  string  `json:"academic_year" validate:"required"`
	Semester      int     `json:"semester" validate:"required,oneof=1 2"`
	Department    *string `json:"department"`
	GradingPeriod string  `json:"grading_period" validate:"required,oneof=prelim midterm final all"`
	StartDate     string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate       string  `json:"end_date" validate:"required,datetime=2006-01-02"`
	StartTime     *string `json:"start_time" validate:"omitempty,datetime=15:04"`
	EndTime       *string `json:"end_time" validate:"omitempty,datetime=15:04"`
}

type exceptionRequest struct {
	InstructorID   int64  `json:"instructor_id" validate:"required,gt=0"`
	AcademicYear   string `json:"academic_year" validate:"required"`
	Semester       int    `json:"semester" validate:"required,oneof=1 2"`
	GradingPeriod  string `json:"grading_period" validate:"required,oneof=prelim midterm final all"`
	ExpirationDate string `json:"expiration_date" validate:"omitempty,datetime=2006-01-02"`
	ExpirationTime string `json:"expiration_time" validate:"omitempty,datetime=15:04"`
	Reason         string `json:"reason" validate:"max=500"`
}

func (req scheduleRequest) input(loc *time.Location) (window.ScheduleInput, error) {
	in := window.ScheduleInput{
		Term:          models.Term{AcademicYear: strings.TrimSpace(req.AcademicYear), Semester: req.Semester},
		GradingPeriod: models.GradingPeriod(req.GradingPeriod),
	}
	if req.Department != nil {
		if d := strings.TrimSpace(*req.Department); d != "" {
			in.Department = &d
		}
	}
	var err error
	if in.StartDate, err = time.ParseInLocation(time.DateOnly, req.StartDate, loc); err != nil {
		return in, apperr.Invalid("start_date", req.StartDate, "want YYYY-MM-DD")
	}
	if in.EndDate, err = time.ParseInLocation(time.DateOnly, req.EndDate, loc); err != nil {
		return in, apperr.Invalid("end_date", req.EndDate, "want YYYY-MM-DD")
	}
	if in.StartClock, err = clockPtr("start_time", req.StartTime); err != nil {
		return in, err
	}
	if in.EndClock, err = clockPtr("end_time", req.EndTime); err != nil {
		return in, err
	}
	return in, nil
}

func clockPtr(field string, s *string) (*models.Clock, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	c, err := models.ParseClock(strings.TrimSpace(*s))
	if err != nil {
		return nil, apperr.Invalid(field, *s, "want HH:MM")
	}
	return &c, nil
}

func (a *api) listSchedules(w http.ResponseWriter, r *http.Request) {
	t, err := queryTerm(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	list, err := a.Windows.ListSchedules(r.Context(), auth.ActorFrom(r.Context()), t)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.EncodingSchedule{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"schedules": list})
}

func (a *api) createSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := a.decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	in, err := req.input(a.Windows.Location())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	sch, err := a.Windows.CreateSchedule(r.Context(), auth.ActorFrom(r.Context()), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sch)
}

func (a *api) updateSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req scheduleRequest
	if err := a.decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	in, err := req.input(a.Windows.Location())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	sch, err := a.Windows.UpdateSchedule(r.Context(), auth.ActorFrom(r.Context()), id, in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sch)
}

func (a *api) closeSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.Windows.CloseSchedule(r.Context(), auth.ActorFrom(r.Context()), id); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) deleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.Windows.DeleteSchedule(r.Context(), auth.ActorFrom(r.Context()), id); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// refreshSchedules runs the same pass as the background job, on demand.
func (a *api) refreshSchedules(w http.ResponseWriter, r *http.Request) {
	if err := authz.Require(auth.ActorFrom(r.Context()), authz.ManageSchedules); err != nil {
		a.writeError(w, r, err)
		return
	}
	sum, err := a.Windows.RefreshStatuses(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (a *api) listExceptions(w http.ResponseWriter, r *http.Request) {
	t, err := queryTerm(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	list, err := a.Windows.ListExceptions(r.Context(), auth.ActorFrom(r.Context()), t)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.EncodingException{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"exceptions": list})
}

func (a *api) grantException(w http.ResponseWriter, r *http.Request) {
	var req exceptionRequest
	if err := a.decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	expires, err := window.ParseExpiry(req.ExpirationDate, req.ExpirationTime, a.Now(), a.Windows.Location())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	exc, err := a.Windows.GrantException(r.Context(), auth.ActorFrom(r.Context()), window.ExceptionInput{
		InstructorID:  req.InstructorID,
		Term:          models.Term{AcademicYear: strings.TrimSpace(req.AcademicYear), Semester: req.Semester},
		GradingPeriod: models.GradingPeriod(req.GradingPeriod),
		ExpiresAt:     expires,
		Reason:        req.Reason,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, exc)
}

func (a *api) revokeException(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.Windows.RevokeException(r.Context(), auth.ActorFrom(r.Context()), id); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
