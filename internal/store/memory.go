package store

import (
	"context"
	"sync"

	"github.com/attendd/attendd/internal/model"
)

// Mem is an in-process Store. It backs the unit tests of the
// orchestration packages and the daemon's database-less development
// mode. Documents are copied on the way in and out so callers never
// share mutable state with the store.
type Mem struct {
	mu       sync.RWMutex
	students []*model.Student
	missing  []*model.MissingStudent
	counters map[string]*model.Counter
	captures []*model.CaptureLog
}

var _ Store = (*Mem)(nil)

// NewMem returns an empty in-process store.
func NewMem() *Mem {
	return &Mem{counters: make(map[string]*model.Counter)}
}

func (m *Mem) InsertStudent(_ context.Context, s *model.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students = append(m.students, cloneStudent(s))
	return nil
}

func (m *Mem) SaveStudent(_ context.Context, s *model.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, have := range m.students {
		if have.UID == s.UID {
			m.students[i] = cloneStudent(s)
			return nil
		}
	}
	m.students = append(m.students, cloneStudent(s))
	return nil
}

func (m *Mem) StudentByUID(_ context.Context, uid int) (*model.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.students {
		if s.UID == uid {
			return cloneStudent(s), nil
		}
	}
	return nil, nil
}

func (m *Mem) StudentByStudentID(_ context.Context, studentID string) (*model.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.students {
		if s.StudentID == studentID {
			return cloneStudent(s), nil
		}
	}
	return nil, nil
}

func (m *Mem) DeleteStudent(_ context.Context, uid int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.students {
		if s.UID == uid {
			m.students = append(m.students[:i], m.students[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *Mem) ListStudents(_ context.Context, skip, limit int64) ([]*model.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.Student, 0, len(m.students))
	for i := len(m.students) - 1; i >= 0; i-- {
		out = append(out, cloneStudent(m.students[i]))
	}
	if skip >= int64(len(out)) {
		return nil, nil
	}
	out = out[skip:]
	if limit > 0 && limit < int64(len(out)) {
		out = out[:limit]
	}
	return out, nil
}

func (m *Mem) EachStudent(_ context.Context, fn func(*model.Student) error) error {
	m.mu.RLock()
	snapshot := make([]*model.Student, len(m.students))
	for i, s := range m.students {
		snapshot[i] = cloneStudent(s)
	}
	m.mu.RUnlock()

	// fn runs outside the lock so it may call back into the store.
	for _, s := range snapshot {
		if err := fn(s); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mem) InsertMissing(_ context.Context, ms *model.MissingStudent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.missing = append(m.missing, cloneMissing(ms))
	return nil
}

func (m *Mem) SaveMissing(_ context.Context, ms *model.MissingStudent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, have := range m.missing {
		if have.UID == ms.UID {
			m.missing[i] = cloneMissing(ms)
			return nil
		}
	}
	m.missing = append(m.missing, cloneMissing(ms))
	return nil
}

func (m *Mem) MissingByUID(_ context.Context, uid int) (*model.MissingStudent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ms := range m.missing {
		if ms.UID == uid {
			return cloneMissing(ms), nil
		}
	}
	return nil, nil
}

func (m *Mem) DeleteMissing(_ context.Context, uid int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, ms := range m.missing {
		if ms.UID == uid {
			m.missing = append(m.missing[:i], m.missing[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *Mem) MissingStudents(_ context.Context) ([]*model.MissingStudent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.MissingStudent, len(m.missing))
	for i, ms := range m.missing {
		out[i] = cloneMissing(ms)
	}
	return out, nil
}

func (m *Mem) Counter(_ context.Context, name string) (*model.Counter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.counters[name]
	if !ok {
		return nil, nil
	}
	clone := *c
	return &clone, nil
}

func (m *Mem) SaveCounter(_ context.Context, c *model.Counter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *c
	m.counters[c.Name] = &clone
	return nil
}

func (m *Mem) AppendCapture(_ context.Context, entry *model.CaptureLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *entry
	m.captures = append(m.captures, &clone)
	return nil
}

// Captures returns the audit trail in append order. Inspection helper
// for tests; not part of the Store interface.
func (m *Mem) Captures() []*model.CaptureLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.CaptureLog, len(m.captures))
	for i, c := range m.captures {
		clone := *c
		out[i] = &clone
	}
	return out
}

func (m *Mem) Ping(context.Context) error  { return nil }
func (m *Mem) Close(context.Context) error { return nil }

func cloneStudent(s *model.Student) *model.Student {
	clone := *s
	clone.Attendance = make(map[string]any, len(s.Attendance))
	for k, v := range s.Attendance {
		clone.Attendance[k] = v
	}
	return &clone
}

func cloneMissing(ms *model.MissingStudent) *model.MissingStudent {
	clone := *ms
	if ms.LastSyncAttempt != nil {
		t := *ms.LastSyncAttempt
		clone.LastSyncAttempt = &t
	}
	if ms.SyncedAt != nil {
		t := *ms.SyncedAt
		clone.SyncedAt = &t
	}
	return &clone
}
