package app

import (
	"net/http"
	"strings"

	"github.com/Spok95/acadify-records/internal/auth"
	"github.com/Spok95/acadify-records/internal/models"
)

func (a *api) checkEligibility(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	t, err := a.termOrCurrent(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	res, err := a.Eligibility.Check(r.Context(), auth.ActorFrom(r.Context()), id, t)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"term": t, "result": res})
}

func (a *api) computeDeansList(w http.ResponseWriter, r *http.Request) {
	t, err := a.termOrCurrent(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	sum, err := a.DeansList.Compute(r.Context(), auth.ActorFrom(r.Context()), t)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (a *api) listDeansList(w http.ResponseWriter, r *http.Request) {
	t, err := a.termOrCurrent(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	dept := strings.TrimSpace(r.URL.Query().Get("department"))
	records, err := a.DeansList.List(r.Context(), auth.ActorFrom(r.Context()), t, dept)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if records == nil {
		records = []models.DeansListRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"term": t, "department": dept, "records": records})
}

func (a *api) exportDeansList(w http.ResponseWriter, r *http.Request) {
	t, err := a.termOrCurrent(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	dept := strings.TrimSpace(r.URL.Query().Get("department"))
	rep, err := a.DeansList.Export(r.Context(), auth.ActorFrom(r.Context()), t, dept)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if rep.Location != "" {
		w.Header().Set("X-Archive-Location", rep.Location)
	}
	writeFile(w, rep.Filename, rep.Data)
}
