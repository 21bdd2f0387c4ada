// Package store is the persistence boundary for the coordinator. It
// exposes one narrow interface over the edge database so the
// orchestration packages never touch driver types directly, plus two
// implementations: Mongo for deployments and Mem for tests and
// database-less development runs.
package store

import (
	"context"

	"github.com/attendd/attendd/internal/model"
)

// Collection names in the edge database. They predate this
// implementation and are shared with the tooling that inspects edge
// dumps, so they are not configurable.
const (
	CollStudents = "students"
	CollMissing  = "missing_students"
	CollCounters = "counters"
	CollCaptures = "fingerprint_sessions"
)

// Store is the coordinator's view of the edge database. Lookups return
// nil with a nil error when no document matches; Save methods upsert.
// Guarantees are per document only. Anything that has to stay
// consistent across documents is repaired by the sync worker, not the
// store.
type Store interface {
	// Students.
	InsertStudent(ctx context.Context, s *model.Student) error
	SaveStudent(ctx context.Context, s *model.Student) error
	StudentByUID(ctx context.Context, uid int) (*model.Student, error)
	StudentByStudentID(ctx context.Context, studentID string) (*model.Student, error)
	DeleteStudent(ctx context.Context, uid int) error
	// ListStudents returns students newest first. A limit of zero
	// means no limit.
	ListStudents(ctx context.Context, skip, limit int64) ([]*model.Student, error)
	// EachStudent streams every student through fn. Iteration stops at
	// the first error fn returns.
	EachStudent(ctx context.Context, fn func(*model.Student) error) error

	// Offline registration queue.
	InsertMissing(ctx context.Context, m *model.MissingStudent) error
	SaveMissing(ctx context.Context, m *model.MissingStudent) error
	MissingByUID(ctx context.Context, uid int) (*model.MissingStudent, error)
	DeleteMissing(ctx context.Context, uid int) error
	MissingStudents(ctx context.Context) ([]*model.MissingStudent, error)

	// Named sequences.
	Counter(ctx context.Context, name string) (*model.Counter, error)
	SaveCounter(ctx context.Context, c *model.Counter) error

	// Append-only capture audit trail.
	AppendCapture(ctx context.Context, entry *model.CaptureLog) error

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
