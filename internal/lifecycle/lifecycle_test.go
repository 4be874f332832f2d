package lifecycle

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/acadify-records/internal/apperr"
	"github.com/Spok95/acadify-records/internal/events"
	"github.com/Spok95/acadify-records/internal/models"
	"github.com/Spok95/acadify-records/internal/window"
)

var (
	instructor = models.StaffActor{UserID: 50, StaffRole: models.RoleInstructor, Name: "Prof. Reyes"}
	other      = models.StaffActor{UserID: 51, StaffRole: models.RoleInstructor, Name: "Prof. Santos"}
	registrar  = models.StaffActor{UserID: 2, StaffRole: models.RoleRegistrar, Name: "Registrar"}
	admin      = models.StaffActor{UserID: 1, StaffRole: models.RoleAdmin, Name: "Admin"}
	student    = models.StudentActor{StudentID: 100, Name: "Abad, Ana"}
)

type fakeStore struct {
	mu       sync.Mutex
	nextID   int64
	subjects map[int64]models.Subject
	assigned map[[2]int64]bool
	students map[int64]models.Student
	grades   map[int64]models.Grade
}

func newFakeStore() *fakeStore {
	s := &fakeStore{
		subjects: map[int64]models.Subject{},
		assigned: map[[2]int64]bool{},
		students: map[int64]models.Student{},
		grades:   map[int64]models.Grade{},
	}
	s.subjects[7] = models.Subject{ID: 7, Code: "MATH101", Type: models.SubjectAcademic, Units: 3, Department: "CS", AcademicYear: "2025-2026", Semester: 1}
	s.assigned[[2]int64{7, instructor.UserID}] = true
	s.students[100] = models.Student{ID: 100, StudentNo: "2025-0100", FirstName: "Ana", LastName: "Abad"}
	s.students[101] = models.Student{ID: 101, StudentNo: "2025-0101", FirstName: "Ben", LastName: "Bautista"}
	s.students[102] = models.Student{ID: 102, StudentNo: "2025-0102", FirstName: "Carla", LastName: "Cruz"}
	return s
}

func (s *fakeStore) GetSubject(_ context.Context, id int64) (*models.Subject, error) {
	sub, ok := s.subjects[id]
	if !ok {
		return nil, apperr.NotFound("subject", id)
	}
	return &sub, nil
}

func (s *fakeStore) IsAssigned(_ context.Context, subjectID, instructorID int64, _ models.Term) (bool, error) {
	return s.assigned[[2]int64{subjectID, instructorID}], nil
}

func (s *fakeStore) ListSubjectGrades(_ context.Context, subjectID int64, t models.Term) ([]models.GradeRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.GradeRow
	for _, g := range s.grades {
		if g.SubjectID != subjectID || g.Term() != t {
			continue
		}
		st := s.students[g.StudentID]
		out = append(out, models.GradeRow{Grade: g, StudentNo: st.StudentNo, StudentName: st.FullName()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentName < out[j].StudentName })
	return out, nil
}

func (s *fakeStore) GetStudents(_ context.Context, ids []int64) (map[int64]models.Student, error) {
	out := map[int64]models.Student{}
	for _, id := range ids {
		if st, ok := s.students[id]; ok {
			out[id] = st
		}
	}
	return out, nil
}

func (s *fakeStore) SaveGrades(_ context.Context, grades []models.Grade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range grades {
		if grades[i].ID == 0 {
			s.nextID++
			grades[i].ID = s.nextID
		}
		s.grades[grades[i].ID] = grades[i]
	}
	return nil
}

func (s *fakeStore) LockGrades(_ context.Context, grades []models.Grade, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range grades {
		g.IsLocked = true
		g.SubmittedAt = &at
		g.ApprovedAt, g.ApprovedBy = nil, nil
		s.grades[g.ID] = g
	}
	return nil
}

func (s *fakeStore) ApproveGrades(_ context.Context, ids []int64, approver int64, at time.Time) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int64
	for _, id := range ids {
		g, ok := s.grades[id]
		if !ok || !g.PendingApproval() {
			continue
		}
		g.ApprovedAt = &at
		g.ApprovedBy = &approver
		s.grades[id] = g
		out = append(out, id)
	}
	return out, nil
}

func (s *fakeStore) UnlockGrades(_ context.Context, subjectID int64, t models.Term) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, g := range s.grades {
		if g.SubjectID != subjectID || g.Term() != t || !g.IsLocked {
			continue
		}
		g.IsLocked = false
		g.SubmittedAt, g.ApprovedAt, g.ApprovedBy = nil, nil, nil
		s.grades[id] = g
		n++
	}
	return n, nil
}

func (s *fakeStore) byStudent(id int64) models.Grade {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.grades {
		if g.StudentID == id {
			return g
		}
	}
	return models.Grade{}
}

type fixedResolver struct{ access window.Access }

func (r *fixedResolver) Resolve(_ context.Context, actor models.Actor, _ models.Subject) (window.Access, error) {
	if actor.Role() == models.RoleRegistrar || actor.Role() == models.RoleAdmin {
		return window.Access{CanEncode: true, Prelim: true, Midterm: true, Final: true}, nil
	}
	return r.access, nil
}

type recorder struct {
	mu  sync.Mutex
	got []events.Event
}

func (r *recorder) Notify(_ context.Context, ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, ev)
}

func (r *recorder) count(t events.Type) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.got {
		if e.Type == t {
			n++
		}
	}
	return n
}

type fixture struct {
	store    *fakeStore
	resolver *fixedResolver
	notes    *recorder
	mgr      *Manager
	now      time.Time
	ctx      context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    newFakeStore(),
		resolver: &fixedResolver{access: window.Access{CanEncode: true, Prelim: true, Midterm: true, Final: true}},
		notes:    &recorder{},
		now:      time.Date(2025, 12, 10, 9, 0, 0, 0, time.UTC),
		ctx:      context.Background(),
	}
	f.mgr = NewManager(f.store, f.resolver, f.notes, zap.NewNop()).WithClock(func() time.Time { return f.now })
	return f
}

func str(s string) *string { return &s }

func full(id int64, p, m, fin string) Entry {
	return Entry{StudentID: id, Prelim: str(p), Midterm: str(m), Final: str(fin)}
}

func TestSaveGradesComputesDerivedFields(t *testing.T) {
	f := newFixture(t)
	res, err := f.mgr.SaveGrades(f.ctx, instructor, 7, []Entry{full(100, "85", "88", "90")})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if res.Saved != 1 || res.Completed != 1 || len(res.Failures) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	g := f.store.byStudent(100)
	if g.FinalAverage == nil || *g.FinalAverage != 87.67 {
		t.Fatalf("average = %v, want 87.67", g.FinalAverage)
	}
	if g.Equivalent == nil || *g.Equivalent != 2.00 || *g.Remarks != "Good" || !g.IsComplete {
		t.Fatalf("derived fields wrong: %+v", g)
	}
	if f.notes.count(events.GradeCompleted) != 1 {
		t.Fatal("expected one completion event")
	}
}

func TestSaveGradesPartialThenClear(t *testing.T) {
	f := newFixture(t)
	if _, err := f.mgr.SaveGrades(f.ctx, instructor, 7, []Entry{{StudentID: 100, Prelim: str("80")}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	g := f.store.byStudent(100)
	if g.IsComplete || g.FinalAverage != nil || g.Remarks != nil {
		t.Fatalf("partial row should be draft: %+v", g)
	}
	if _, err := f.mgr.SaveGrades(f.ctx, instructor, 7, []Entry{{StudentID: 100, Midterm: str("82"), Final: str("84")}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	g = f.store.byStudent(100)
	if !g.IsComplete || *g.Prelim != 80 {
		t.Fatalf("second write should keep prelim and complete: %+v", g)
	}
	if _, err := f.mgr.SaveGrades(f.ctx, instructor, 7, []Entry{{StudentID: 100, Final: str("")}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	g = f.store.byStudent(100)
	if g.Final != nil || g.IsComplete || g.Equivalent != nil {
		t.Fatalf("clearing final should reset derived fields: %+v", g)
	}
}

func TestSaveGradesRowFailures(t *testing.T) {
	f := newFixture(t)
	res, err := f.mgr.SaveGrades(f.ctx, instructor, 7, []Entry{
		full(100, "90", "90", "90"),
		full(101, "101", "90", "90"),
		full(999, "90", "90", "90"),
		full(100, "80", "80", "80"),
		{StudentID: 102, Remark: str("dropped")},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if res.Saved != 1 {
		t.Fatalf("saved = %d, want 1", res.Saved)
	}
	want := map[int64]apperr.Kind{101: apperr.KindValidation, 999: apperr.KindNotFound, 102: apperr.KindValidation}
	if len(res.Failures) != 4 {
		t.Fatalf("failures = %+v", res.Failures)
	}
	for _, fl := range res.Failures {
		if k, ok := want[fl.StudentID]; ok && k != fl.Kind {
			t.Errorf("student %d: kind %s, want %s", fl.StudentID, fl.Kind, k)
		}
	}
	if g := f.store.byStudent(100); *g.Prelim != 90 {
		t.Fatalf("duplicate row must not overwrite the first: %+v", g)
	}
}

func TestSaveGradesSpecialRemark(t *testing.T) {
	f := newFixture(t)
	if _, err := f.mgr.SaveGrades(f.ctx, instructor, 7, []Entry{{StudentID: 100, Prelim: str("70"), Remark: str("inc")}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	g := f.store.byStudent(100)
	if !g.IsComplete || g.FinalAverage != nil || g.Equivalent != nil || *g.Remarks != "INC" {
		t.Fatalf("INC row wrong: %+v", g)
	}
	// A later score write keeps the override.
	if _, err := f.mgr.SaveGrades(f.ctx, instructor, 7, []Entry{{StudentID: 100, Midterm: str("75")}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if g := f.store.byStudent(100); *g.Remarks != "INC" || !g.IsComplete {
		t.Fatalf("remark lost: %+v", g)
	}
	// The missing final arrives without a remark: the grade is computed from scores.
	if _, err := f.mgr.SaveGrades(f.ctx, instructor, 7, []Entry{{StudentID: 100, Final: str("80")}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	g = f.store.byStudent(100)
	if g.FinalAverage == nil || *g.FinalAverage != 75 || *g.Remarks != "Passed" || *g.Equivalent != 3.00 {
		t.Fatalf("complete scores should replace INC: %+v", g)
	}
	if _, err := f.mgr.SaveGrades(f.ctx, instructor, 7, []Entry{{StudentID: 100, Remark: str("inc")}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := f.mgr.SaveGrades(f.ctx, instructor, 7, []Entry{{StudentID: 100, Remark: str("")}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if g := f.store.byStudent(100); g.Remarks == nil || *g.Remarks != "Passed" || g.FinalAverage == nil {
		t.Fatalf("cleared remark should fall back to the computed grade: %+v", g)
	}
}

func TestSaveGradesRoundsScoresBeforeDeriving(t *testing.T) {
	f := newFixture(t)
	if _, err := f.mgr.SaveGrades(f.ctx, instructor, 7, []Entry{full(100, "97.994", "97.994", "98")}); err != nil {
		t.Fatalf("save: %v", err)
	}
	saved := f.store.byStudent(100)
	if *saved.Prelim != 97.99 || *saved.FinalAverage != 97.99 || *saved.Equivalent != 1.25 {
		t.Fatalf("saved row does not match its stored scores: %+v", saved)
	}

	// An instructor may resend the original text for a closed period.
	f.resolver.access = window.Access{CanEncode: true, Final: true}
	res, err := f.mgr.SaveGrades(f.ctx, instructor, 7, []Entry{{StudentID: 100, Prelim: str("97.994"), Final: str("98")}})
	if err != nil || res.Saved != 1 || len(res.Failures) != 0 {
		t.Fatalf("resent closed-period score rejected: %+v %v", res, err)
	}

	if _, err := f.mgr.Submit(f.ctx, instructor, 7); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if g := f.store.byStudent(100); *g.Equivalent != *saved.Equivalent || *g.Remarks != *saved.Remarks {
		t.Fatalf("submit changed the grade: saved %v %q, submitted %v %q", *saved.Equivalent, *saved.Remarks, *g.Equivalent, *g.Remarks)
	}
}

func TestSaveGradesWindowClosed(t *testing.T) {
	f := newFixture(t)
	f.resolver.access = window.Access{Reason: "encoding closed on Dec 1, 2025 23:59"}
	_, err := f.mgr.SaveGrades(f.ctx, instructor, 7, []Entry{full(100, "90", "90", "90")})
	var wc apperr.WindowClosedError
	if !errors.As(err, &wc) || wc.Reason == "" {
		t.Fatalf("want WindowClosedError, got %v", err)
	}
	if len(f.store.grades) != 0 {
		t.Fatal("nothing should be written")
	}
	// Registrars are not bound by the schedule.
	if _, err := f.mgr.SaveGrades(f.ctx, registrar, 7, []Entry{full(100, "90", "90", "90")}); err != nil {
		t.Fatalf("registrar save: %v", err)
	}
}

func TestSaveGradesClosedPeriodRow(t *testing.T) {
	f := newFixture(t)
	if _, err := f.mgr.SaveGrades(f.ctx, instructor, 7, []Entry{{StudentID: 100, Prelim: str("80")}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	f.resolver.access = window.Access{CanEncode: true, Midterm: true}
	res, err := f.mgr.SaveGrades(f.ctx, instructor, 7, []Entry{
		{StudentID: 100, Prelim: str("95"), Midterm: str("85")},
		{StudentID: 100 + 1, Midterm: str("88")},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if res.Saved != 1 || len(res.Failures) != 1 || res.Failures[0].Kind != apperr.KindWindowClosed {
		t.Fatalf("unexpected result %+v", res)
	}
	// Resending an unchanged closed-period score is fine.
	res, err = f.mgr.SaveGrades(f.ctx, instructor, 7, []Entry{{StudentID: 100, Prelim: str("80"), Midterm: str("85")}})
	if err != nil || res.Saved != 1 {
		t.Fatalf("unchanged prelim rejected: %+v %v", res, err)
	}
}

func TestSaveGradesAuthorization(t *testing.T) {
	f := newFixture(t)
	for _, a := range []models.Actor{other, student, admin} {
		_, err := f.mgr.SaveGrades(f.ctx, a, 7, []Entry{full(100, "90", "90", "90")})
		if !apperr.Is(err, apperr.KindAuthorization) {
			t.Errorf("%s: want authorization error, got %v", a.Key(), err)
		}
	}
	_, err := f.mgr.SaveGrades(f.ctx, instructor, 8, []Entry{full(100, "90", "90", "90")})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("unknown subject: %v", err)
	}
}

func TestSubmitApproveUnlock(t *testing.T) {
	f := newFixture(t)
	if _, err := f.mgr.SaveGrades(f.ctx, instructor, 7, []Entry{
		full(100, "90", "92", "94"),
		{StudentID: 101, Prelim: str("80")},
		{StudentID: 102, Remark: str("AW")},
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	_, err := f.mgr.Submit(f.ctx, instructor, 7)
	var inc apperr.IncompleteDataError
	if !errors.As(err, &inc) || inc.StudentID != 101 || inc.StudentName != "Bautista, Ben" {
		t.Fatalf("want incomplete error naming Bautista, got %v", err)
	}

	if _, err := f.mgr.SaveGrades(f.ctx, instructor, 7, []Entry{{StudentID: 101, Midterm: str("82"), Final: str("84")}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	sub, err := f.mgr.Submit(f.ctx, instructor, 7)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sub.Submitted != 3 || !sub.SubmittedAt.Equal(f.now) {
		t.Fatalf("unexpected submit result %+v", sub)
	}
	if g := f.store.byStudent(100); g.State() != models.GradeSubmitted {
		t.Fatalf("state = %s", g.State())
	}

	if _, err := f.mgr.Submit(f.ctx, instructor, 7); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("second submit: want conflict, got %v", err)
	}
	res, err := f.mgr.SaveGrades(f.ctx, instructor, 7, []Entry{full(100, "70", "70", "70")})
	if err != nil || res.Saved != 0 || res.Failures[0].Kind != apperr.KindConflict {
		t.Fatalf("locked row should fail per row: %+v %v", res, err)
	}

	if _, err := f.mgr.Approve(f.ctx, instructor, []int64{1}); !apperr.Is(err, apperr.KindAuthorization) {
		t.Fatalf("instructor approve: %v", err)
	}
	g100 := f.store.byStudent(100)
	ap, err := f.mgr.Approve(f.ctx, registrar, []int64{g100.ID, g100.ID, 999})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if ap.Requested != 2 || ap.Approved != 1 || ap.Skipped != 1 {
		t.Fatalf("unexpected approve result %+v", ap)
	}
	g100 = f.store.byStudent(100)
	if g100.State() != models.GradeApproved || *g100.ApprovedBy != registrar.UserID {
		t.Fatalf("not approved: %+v", g100)
	}
	ap, err = f.mgr.Approve(f.ctx, registrar, []int64{g100.ID})
	if err != nil || ap.Approved != 0 {
		t.Fatalf("re-approve should be a no-op: %+v %v", ap, err)
	}

	if _, err := f.mgr.Unlock(f.ctx, registrar, 7); !apperr.Is(err, apperr.KindAuthorization) {
		t.Fatalf("registrar unlock: %v", err)
	}
	n, err := f.mgr.Unlock(f.ctx, admin, 7)
	if err != nil || n != 3 {
		t.Fatalf("unlock: %d %v", n, err)
	}
	g100 = f.store.byStudent(100)
	if g100.IsLocked || g100.SubmittedAt != nil || g100.ApprovedAt != nil || g100.ApprovedBy != nil {
		t.Fatalf("unlock left workflow fields: %+v", g100)
	}
	if *g100.Prelim != 90 || *g100.FinalAverage != 92 || !g100.IsComplete {
		t.Fatalf("unlock should keep scores: %+v", g100)
	}
	if g := f.store.byStudent(102); *g.Remarks != "AW" {
		t.Fatalf("special remark lost: %+v", g)
	}

	for _, typ := range []events.Type{events.GradesSubmitted, events.GradesApproved, events.GradesUnlocked} {
		if f.notes.count(typ) != 1 {
			t.Errorf("%s events = %d, want 1", typ, f.notes.count(typ))
		}
	}
}

func TestSubmitEmpty(t *testing.T) {
	f := newFixture(t)
	if _, err := f.mgr.Submit(f.ctx, instructor, 7); !apperr.Is(err, apperr.KindIncomplete) {
		t.Fatalf("want incomplete data, got %v", err)
	}
}

func TestApproveRequiresIDs(t *testing.T) {
	f := newFixture(t)
	if _, err := f.mgr.Approve(f.ctx, registrar, nil); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestSubjectLocksSerialize(t *testing.T) {
	l := newSubjectLocks()
	unlock := l.lock(7)

	acquired := make(chan struct{})
	go func() {
		defer l.lock(7)()
		close(acquired)
	}()
	select {
	case <-acquired:
		t.Fatal("second lock on the same subject should wait")
	case <-time.After(20 * time.Millisecond):
	}

	// other subjects are independent
	l.lock(8)()

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock was not released")
	}
}
