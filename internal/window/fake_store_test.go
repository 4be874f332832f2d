package window

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Spok95/acadify-records/internal/apperr"
	"github.com/Spok95/acadify-records/internal/events"
	"github.com/Spok95/acadify-records/internal/models"
)

type memStore struct {
	mu         sync.Mutex
	nextID     int64
	schedules  map[int64]models.EncodingSchedule
	exceptions map[int64]models.EncodingException
	users      map[int64]models.User
}

func newMemStore() *memStore {
	return &memStore{
		schedules:  map[int64]models.EncodingSchedule{},
		exceptions: map[int64]models.EncodingException{},
		users:      map[int64]models.User{},
	}
}

func (m *memStore) id() int64 { m.nextID++; return m.nextID }

func (m *memStore) sorted(keep func(models.EncodingSchedule) bool) []models.EncodingSchedule {
	var out []models.EncodingSchedule
	for _, s := range m.schedules {
		if keep(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memStore) GetSchedule(_ context.Context, id int64) (*models.EncodingSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return nil, apperr.NotFound("schedule", id)
	}
	return &s, nil
}

func (m *memStore) ListSchedules(_ context.Context, t *models.Term) ([]models.EncodingSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(s models.EncodingSchedule) bool { return t == nil || s.Term() == *t }), nil
}

func (m *memStore) ListOpenSchedules(context.Context) ([]models.EncodingSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(s models.EncodingSchedule) bool { return s.Status != models.StatusCompleted }), nil
}

func (m *memStore) ListDepartmentSchedules(_ context.Context, t models.Term, dept string) ([]models.EncodingSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(s models.EncodingSchedule) bool {
		return s.Term() == t && (s.Department == nil || *s.Department == dept)
	}), nil
}

func (m *memStore) activateExclusive(s models.EncodingSchedule) {
	if s.Status != models.StatusActive {
		return
	}
	for id, o := range m.schedules {
		if id != s.ID && o.Status == models.StatusActive && o.SameScope(s) {
			o.Status = models.StatusCompleted
			m.schedules[id] = o
		}
	}
}

func (m *memStore) InsertSchedule(_ context.Context, s *models.EncodingSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.id()
	m.activateExclusive(*s)
	m.schedules[s.ID] = *s
	return nil
}

func (m *memStore) UpdateSchedule(_ context.Context, s *models.EncodingSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[s.ID]; !ok {
		return apperr.NotFound("schedule", s.ID)
	}
	m.activateExclusive(*s)
	m.schedules[s.ID] = *s
	return nil
}

func (m *memStore) SetScheduleStatus(_ context.Context, id int64, st models.ScheduleStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return apperr.NotFound("schedule", id)
	}
	s.Status = st
	m.activateExclusive(s)
	m.schedules[id] = s
	return nil
}

func (m *memStore) DeleteSchedule(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.schedules, id)
	return nil
}

func (m *memStore) GetException(_ context.Context, id int64) (*models.EncodingException, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exceptions[id]
	if !ok {
		return nil, apperr.NotFound("exception", id)
	}
	return &e, nil
}

func (m *memStore) ListExceptions(_ context.Context, t *models.Term) ([]models.EncodingException, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.EncodingException
	for _, e := range m.exceptions {
		if t == nil || (e.AcademicYear == t.AcademicYear && e.Semester == t.Semester) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListInstructorExceptions(ctx context.Context, instructorID int64, t models.Term) ([]models.EncodingException, error) {
	all, _ := m.ListExceptions(ctx, &t)
	var out []models.EncodingException
	for _, e := range all {
		if e.InstructorID == instructorID && e.IsActive {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) InsertException(_ context.Context, e *models.EncodingException) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = m.id()
	m.exceptions[e.ID] = *e
	return nil
}

func (m *memStore) RevokeException(_ context.Context, id int64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exceptions[id]
	if !ok || !e.IsActive {
		return false, nil
	}
	e.IsActive = false
	e.RevokedAt = &at
	m.exceptions[id] = e
	return true, nil
}

func (m *memStore) ExpireExceptions(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, e := range m.exceptions {
		if e.IsActive && e.ExpiresAt.Before(now) {
			e.IsActive = false
			at := now
			e.RevokedAt = &at
			m.exceptions[id] = e
			n++
		}
	}
	return n, nil
}

func (m *memStore) GetUser(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.NotFound("user", id)
	}
	return &u, nil
}

type notifyRecorder struct {
	mu  sync.Mutex
	got []events.Event
}

func (n *notifyRecorder) Notify(_ context.Context, ev events.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, ev)
}

func (n *notifyRecorder) types() []events.Type {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]events.Type, len(n.got))
	for i, e := range n.got {
		out[i] = e.Type
	}
	return out
}
