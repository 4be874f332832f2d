package lifecycle

import "sync"

// subjectLocks serializes writes to one subject's grade sheet within this process,
// so a submit cannot interleave with a save of the same sheet. Cross-process
// ordering still comes from the database.
type subjectLocks struct {
	mu   sync.Mutex
	byID map[int64]*sync.Mutex
}

func newSubjectLocks() *subjectLocks {
	return &subjectLocks{byID: make(map[int64]*sync.Mutex)}
}

func (l *subjectLocks) lock(subjectID int64) func() {
	l.mu.Lock()
	m, ok := l.byID[subjectID]
	if !ok {
		m = &sync.Mutex{}
		l.byID[subjectID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
