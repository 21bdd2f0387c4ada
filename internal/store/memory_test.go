package store

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/attendd/attendd/internal/model"
)

func student(uid int, first, last string) *model.Student {
	return &model.Student{
		UID:         uid,
		StudentID:   strconv.Itoa(uid),
		FirstName:   first,
		LastName:    last,
		PhoneNumber: "01000000000",
		Gender:      "male",
		Level:       2,
		Attendance:  map[string]any{},
	}
}

func TestMemStudentLookup(t *testing.T) {
	ctx := context.Background()
	m := NewMem()

	if err := m.InsertStudent(ctx, student(10018, "Ahmed", "Hassan")); err != nil {
		t.Fatalf("InsertStudent failed: %v", err)
	}

	got, err := m.StudentByUID(ctx, 10018)
	if err != nil {
		t.Fatalf("StudentByUID failed: %v", err)
	}
	if got == nil || got.FirstName != "Ahmed" {
		t.Fatalf("StudentByUID = %+v", got)
	}

	got, err = m.StudentByStudentID(ctx, "10018")
	if err != nil || got == nil || got.UID != 10018 {
		t.Fatalf("StudentByStudentID = %+v, %v", got, err)
	}

	got, err = m.StudentByUID(ctx, 99999)
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil for unknown uid, got %+v, %v", got, err)
	}
}

func TestMemStudentIsolation(t *testing.T) {
	ctx := context.Background()
	m := NewMem()

	if err := m.InsertStudent(ctx, student(10018, "Ahmed", "Hassan")); err != nil {
		t.Fatalf("InsertStudent failed: %v", err)
	}
	first, _ := m.StudentByUID(ctx, 10018)
	first.Attendance["day1"] = true
	first.FirstName = "changed"

	second, _ := m.StudentByUID(ctx, 10018)
	if len(second.Attendance) != 0 || second.FirstName != "Ahmed" {
		t.Errorf("caller mutation leaked into the store: %+v", second)
	}
}

func TestMemSaveStudentUpsert(t *testing.T) {
	ctx := context.Background()
	m := NewMem()

	s := student(10018, "Ahmed", "Hassan")
	if err := m.SaveStudent(ctx, s); err != nil {
		t.Fatalf("SaveStudent insert failed: %v", err)
	}

	s.Attendance["day1"] = true
	if err := m.SaveStudent(ctx, s); err != nil {
		t.Fatalf("SaveStudent update failed: %v", err)
	}

	got, _ := m.StudentByUID(ctx, 10018)
	if !model.ValidatedDay(got.Attendance["day1"]) {
		t.Errorf("attendance not persisted: %+v", got.Attendance)
	}
	if list, _ := m.ListStudents(ctx, 0, 0); len(list) != 1 {
		t.Errorf("upsert duplicated the row, %d students", len(list))
	}
}

func TestMemDeleteStudent(t *testing.T) {
	ctx := context.Background()
	m := NewMem()

	if err := m.InsertStudent(ctx, student(10018, "Ahmed", "Hassan")); err != nil {
		t.Fatalf("InsertStudent failed: %v", err)
	}
	if err := m.DeleteStudent(ctx, 10018); err != nil {
		t.Fatalf("DeleteStudent failed: %v", err)
	}
	if got, _ := m.StudentByUID(ctx, 10018); got != nil {
		t.Errorf("student survived delete: %+v", got)
	}
	if err := m.DeleteStudent(ctx, 10018); err != nil {
		t.Errorf("second delete errored: %v", err)
	}
}

func TestMemListStudents(t *testing.T) {
	ctx := context.Background()
	m := NewMem()
	for uid := 10018; uid <= 10020; uid++ {
		if err := m.InsertStudent(ctx, student(uid, "Student", "X")); err != nil {
			t.Fatalf("InsertStudent failed: %v", err)
		}
	}

	all, err := m.ListStudents(ctx, 0, 0)
	if err != nil {
		t.Fatalf("ListStudents failed: %v", err)
	}
	if len(all) != 3 || all[0].UID != 10020 || all[2].UID != 10018 {
		t.Fatalf("expected newest first, got %v", uids(all))
	}

	page, err := m.ListStudents(ctx, 1, 1)
	if err != nil {
		t.Fatalf("ListStudents page failed: %v", err)
	}
	if len(page) != 1 || page[0].UID != 10019 {
		t.Errorf("skip=1 limit=1 = %v", uids(page))
	}

	empty, err := m.ListStudents(ctx, 10, 5)
	if err != nil || len(empty) != 0 {
		t.Errorf("skip past end = %v, %v", uids(empty), err)
	}
}

func uids(students []*model.Student) []int {
	out := make([]int, len(students))
	for i, s := range students {
		out[i] = s.UID
	}
	return out
}

func TestMemEachStudent(t *testing.T) {
	ctx := context.Background()
	m := NewMem()
	for uid := 10018; uid <= 10020; uid++ {
		if err := m.InsertStudent(ctx, student(uid, "Student", "X")); err != nil {
			t.Fatalf("InsertStudent failed: %v", err)
		}
	}

	var seen []int
	err := m.EachStudent(ctx, func(s *model.Student) error {
		seen = append(seen, s.UID)
		return nil
	})
	if err != nil {
		t.Fatalf("EachStudent failed: %v", err)
	}
	if len(seen) != 3 {
		t.Errorf("visited %v", seen)
	}

	boom := errors.New("boom")
	var visited int
	err = m.EachStudent(ctx, func(*model.Student) error {
		visited++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected fn error back, got %v", err)
	}
	if visited != 1 {
		t.Errorf("iteration continued after error, visited %d", visited)
	}
}

func TestMemMissingLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMem()

	row := model.MissingFromStudent(student(10018, "Ahmed", "Hassan"), time.Now())
	if err := m.InsertMissing(ctx, row); err != nil {
		t.Fatalf("InsertMissing failed: %v", err)
	}

	got, err := m.MissingByUID(ctx, 10018)
	if err != nil || got == nil {
		t.Fatalf("MissingByUID = %+v, %v", got, err)
	}
	if got.SyncStatus != model.SyncPending {
		t.Errorf("new row status = %q", got.SyncStatus)
	}

	now := time.Now()
	got.SyncStatus = model.SyncFailed
	got.SyncAttempts = 2
	got.LastSyncAttempt = &now
	got.SyncError = "remote returned 500"
	if err := m.SaveMissing(ctx, got); err != nil {
		t.Fatalf("SaveMissing failed: %v", err)
	}

	rows, err := m.MissingStudents(ctx)
	if err != nil || len(rows) != 1 {
		t.Fatalf("MissingStudents = %d rows, %v", len(rows), err)
	}
	if rows[0].SyncAttempts != 2 || rows[0].LastSyncAttempt == nil {
		t.Errorf("bookkeeping lost: %+v", rows[0])
	}

	if err := m.DeleteMissing(ctx, 10018); err != nil {
		t.Fatalf("DeleteMissing failed: %v", err)
	}
	if got, _ := m.MissingByUID(ctx, 10018); got != nil {
		t.Errorf("row survived delete: %+v", got)
	}
}

func TestMemCounter(t *testing.T) {
	ctx := context.Background()
	m := NewMem()

	if c, err := m.Counter(ctx, "student_sequence"); err != nil || c != nil {
		t.Fatalf("expected nil, nil for unknown counter, got %+v, %v", c, err)
	}

	if err := m.SaveCounter(ctx, &model.Counter{Name: "student_sequence", Value: 10018}); err != nil {
		t.Fatalf("SaveCounter failed: %v", err)
	}
	c, err := m.Counter(ctx, "student_sequence")
	if err != nil || c == nil || c.Value != 10018 {
		t.Fatalf("Counter = %+v, %v", c, err)
	}

	c.Value++
	if err := m.SaveCounter(ctx, c); err != nil {
		t.Fatalf("SaveCounter update failed: %v", err)
	}
	c, _ = m.Counter(ctx, "student_sequence")
	if c.Value != 10019 {
		t.Errorf("counter value = %d", c.Value)
	}
}

func TestMemCaptures(t *testing.T) {
	ctx := context.Background()
	m := NewMem()

	for i := 0; i < 2; i++ {
		err := m.AppendCapture(ctx, &model.CaptureLog{StudentUID: 10018 + i, Timestamp: time.Now()})
		if err != nil {
			t.Fatalf("AppendCapture failed: %v", err)
		}
	}
	got := m.Captures()
	if len(got) != 2 || got[0].StudentUID != 10018 || got[1].StudentUID != 10019 {
		t.Errorf("captures = %+v", got)
	}
}
