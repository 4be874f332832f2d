// Package deanslist computes, stores and exports per-term Dean's List snapshots.
package deanslist

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/acadify-records/internal/authz"
	"github.com/Spok95/acadify-records/internal/eligibility"
	"github.com/Spok95/acadify-records/internal/events"
	"github.com/Spok95/acadify-records/internal/export"
	"github.com/Spok95/acadify-records/internal/models"
	"github.com/Spok95/acadify-records/internal/ranking"
	"github.com/Spok95/acadify-records/internal/storage"
)

type Store interface {
	// ListTermStudents returns every student holding at least one grade in term.
	ListTermStudents(ctx context.Context, term models.Term) ([]models.Student, error)
	// ListTermGrades returns the term's grade rows keyed by student id.
	ListTermGrades(ctx context.Context, term models.Term) (map[int64][]models.GradeRow, error)
	// ReplaceDeansList swaps the term's snapshot for records in one transaction.
	ReplaceDeansList(ctx context.Context, term models.Term, records []models.DeansListRecord) error
	ListDeansList(ctx context.Context, term models.Term) ([]models.DeansListRecord, error)
}

// Archiver keeps a copy of exported workbooks. Optional.
type Archiver interface {
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
}

type Service struct {
	store   Store
	notify  events.Notifier
	archive Archiver
	log     *zap.Logger
	now     func() time.Time
}

func NewService(store Store, notify events.Notifier, archive Archiver, log *zap.Logger) *Service {
	return &Service{store: store, notify: notify, archive: archive, log: log, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type Summary struct {
	Term       models.Term `json:"term"`
	Evaluated  int         `json:"evaluated"`
	Qualified  int         `json:"qualified"`
	ComputedAt time.Time   `json:"computed_at"`
}

// Compute evaluates every student with grades in term, ranks the qualifiers and
// replaces the stored snapshot. A nil actor means the scheduled job.
func (s *Service) Compute(ctx context.Context, actor models.Actor, term models.Term) (Summary, error) {
	if actor != nil {
		if err := authz.Require(actor, authz.ComputeDeansList); err != nil {
			return Summary{}, err
		}
	}
	students, err := s.store.ListTermStudents(ctx, term)
	if err != nil {
		return Summary{}, fmt.Errorf("list students: %w", err)
	}
	grades, err := s.store.ListTermGrades(ctx, term)
	if err != nil {
		return Summary{}, fmt.Errorf("list grades: %w", err)
	}

	now := s.now()
	records := make([]models.DeansListRecord, 0, len(students))
	index := make(map[int64]int, len(students))
	var qualifiers []ranking.Entry
	for _, st := range students {
		res := eligibility.Evaluate(st, grades[st.ID])
		index[st.ID] = len(records)
		records = append(records, models.DeansListRecord{
			StudentID:    st.ID,
			StudentNo:    st.StudentNo,
			StudentName:  st.FullName(),
			Department:   st.Department,
			AcademicYear: term.AcademicYear,
			Semester:     term.Semester,
			GWA:          res.GWA,
			TotalUnits:   res.TotalUnits,
			Qualifies:    res.Qualifies,
			Reason:       res.Reason,
			ComputedAt:   now,
		})
		if res.Qualifies {
			qualifiers = append(qualifiers, ranking.Entry{StudentID: st.ID, GWA: res.GWA, Units: res.TotalUnits})
		}
	}
	for _, r := range ranking.Rank(qualifiers) {
		rank := r.Rank
		records[index[r.StudentID]].Rank = &rank
	}

	if err := s.store.ReplaceDeansList(ctx, term, records); err != nil {
		return Summary{}, fmt.Errorf("store snapshot: %w", err)
	}
	sum := Summary{Term: term, Evaluated: len(records), Qualified: len(qualifiers), ComputedAt: now}
	s.notify.Notify(ctx, events.New(events.DeansListComputed, actor, "deans_list", 0,
		fmt.Sprintf("Dean's List for %s: %d of %d students qualify", term, sum.Qualified, sum.Evaluated)).
		With("academic_year", term.AcademicYear).
		With("semester", term.Semester).
		With("qualified", sum.Qualified))
	s.log.Info("dean's list computed",
		zap.String("term", term.String()),
		zap.Int("evaluated", sum.Evaluated),
		zap.Int("qualified", sum.Qualified))
	return sum, nil
}

// List returns the qualifying rows of the stored snapshot ordered by rank,
// optionally restricted to one department.
func (s *Service) List(ctx context.Context, actor models.Actor, term models.Term, department string) ([]models.DeansListRecord, error) {
	if err := authz.Require(actor, authz.ViewDeansList); err != nil {
		return nil, err
	}
	all, err := s.store.ListDeansList(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("list snapshot: %w", err)
	}
	out := make([]models.DeansListRecord, 0, len(all))
	for _, r := range all {
		if !r.Qualifies || r.Rank == nil {
			continue
		}
		if department != "" && !strings.EqualFold(r.Department, department) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return *out[i].Rank < *out[j].Rank })
	return out, nil
}

type Report struct {
	Filename string
	Data     []byte
	// Location is set when the workbook was archived.
	Location string
}

// Export renders the snapshot as a workbook and archives a copy when an archiver is configured.
// Archive failures are logged and do not fail the export.
func (s *Service) Export(ctx context.Context, actor models.Actor, term models.Term, department string) (Report, error) {
	records, err := s.List(ctx, actor, term, department)
	if err != nil {
		return Report{}, err
	}
	wb, err := export.DeansList(term, records)
	if err != nil {
		return Report{}, fmt.Errorf("build workbook: %w", err)
	}
	defer func() { _ = wb.Close() }()
	data, err := wb.Bytes()
	if err != nil {
		return Report{}, fmt.Errorf("write workbook: %w", err)
	}
	rep := Report{Filename: export.DeansListFilename(term, department), Data: data}
	if s.archive == nil {
		return rep, nil
	}
	key := fmt.Sprintf("deans-list/%s/%d/%s", term.AcademicYear, term.Semester, archiveName(department, s.now()))
	loc, err := s.archive.Put(ctx, key, storage.XLSXContentType, data)
	if err != nil {
		s.log.Warn("archive dean's list", zap.String("key", key), zap.Error(err))
		return rep, nil
	}
	rep.Location = loc
	return rep, nil
}

func archiveName(department string, at time.Time) string {
	scope := "all"
	if department != "" {
		scope = strings.ToLower(strings.Join(strings.Fields(department), "-"))
	}
	return fmt.Sprintf("%s-%s.xlsx", scope, at.UTC().Format("20060102T150405Z"))
}
