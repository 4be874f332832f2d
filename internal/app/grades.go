package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Spok95/acadify-records/internal/auth"
	"github.com/Spok95/acadify-records/internal/export"
	"github.com/Spok95/acadify-records/internal/lifecycle"
)

// score accepts a JSON number or string; the manager parses and range-checks it.
type score string

func (s *score) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = score(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("score must be a number or string")
	}
	*s = score(n.String())
	return nil
}

// gradeEntryRequest is one row of PUT /subjects/{id}/grades. Absent fields keep
// the stored value and "" clears it. Scores are rounded to two decimals. Without
// "remarks", a stored INC/AW/UW/Passed stays until the row has all three scores.
type gradeEntryRequest struct {
	StudentID int64   `json:"student_id" validate:"required,gt=0"`
	Prelim    *score  `json:"prelim"`
	Midterm   *score  `json:"midterm"`
	Final     *score  `json:"final"`
	Remark    *string `json:"remarks"`
}

type saveGradesRequest struct {
	Entries []gradeEntryRequest `json:"entries" validate:"required,min=1,dive"`
}

type approveRequest struct {
	GradeIDs []int64 `json:"grade_ids" validate:"required,min=1"`
}

func (s *score) ptr() *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

func (a *api) encodingAccess(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	acc, err := a.Grades.Access(r.Context(), auth.ActorFrom(r.Context()), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (a *api) listGrades(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	subject, rows, err := a.Grades.ListGrades(r.Context(), auth.ActorFrom(r.Context()), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	type row struct {
		ID           int64    `json:"id"`
		StudentID    int64    `json:"student_id"`
		StudentNo    string   `json:"student_no"`
		StudentName  string   `json:"student_name"`
		Prelim       *float64 `json:"prelim"`
		Midterm      *float64 `json:"midterm"`
		Final        *float64 `json:"final"`
		FinalAverage *float64 `json:"final_average"`
		Equivalent   *float64 `json:"equivalent"`
		Remarks      *string  `json:"remarks"`
		Status       string   `json:"status"`
	}
	out := make([]row, 0, len(rows))
	for _, g := range rows {
		out = append(out, row{
			ID: g.ID, StudentID: g.StudentID, StudentNo: g.StudentNo, StudentName: g.StudentName,
			Prelim: g.Prelim, Midterm: g.Midterm, Final: g.Final,
			FinalAverage: g.FinalAverage, Equivalent: g.Equivalent, Remarks: g.Remarks,
			Status: string(g.State()),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"subject": subject, "grades": out})
}

func (a *api) saveGrades(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req saveGradesRequest
	if err := a.decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	entries := make([]lifecycle.Entry, 0, len(req.Entries))
	for _, e := range req.Entries {
		entries = append(entries, lifecycle.Entry{
			StudentID: e.StudentID,
			Prelim:    e.Prelim.ptr(),
			Midterm:   e.Midterm.ptr(),
			Final:     e.Final.ptr(),
			Remark:    e.Remark,
		})
	}
	res, err := a.Grades.SaveGrades(r.Context(), auth.ActorFrom(r.Context()), id, entries)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *api) submitGrades(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	res, err := a.Grades.Submit(r.Context(), auth.ActorFrom(r.Context()), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *api) unlockGrades(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	n, err := a.Grades.Unlock(r.Context(), auth.ActorFrom(r.Context()), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unlocked": n})
}

func (a *api) approveGrades(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := a.decode(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	res, err := a.Grades.Approve(r.Context(), auth.ActorFrom(r.Context()), req.GradeIDs)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *api) exportGrades(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	subject, rows, err := a.Grades.ListGrades(r.Context(), auth.ActorFrom(r.Context()), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	wb, err := export.GradeSheet(*subject, rows, a.Now().In(a.Windows.Location()))
	if err != nil {
		a.writeError(w, r, fmt.Errorf("build grade sheet: %w", err))
		return
	}
	defer func() { _ = wb.Close() }()
	data, err := wb.Bytes()
	if err != nil {
		a.writeError(w, r, fmt.Errorf("write grade sheet: %w", err))
		return
	}
	w.Header().Set("X-Grade-Rows", strconv.Itoa(len(rows)))
	writeFile(w, export.GradeSheetFilename(*subject), data)
}
