// Package syncer is the background worker that drains the deferred
// queue: students registered offline and attendance captured offline
// are replayed against the remote once it is reachable again. Replay
// is idempotent (existence check before create, uid uniqueness on the
// remote) and bounded (three failed attempts park a row for operator
// intervention).
package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/attendd/attendd/internal/model"
	"github.com/attendd/attendd/internal/remote"
	"github.com/attendd/attendd/internal/store"
)

// DefaultInterval is the worker period.
const DefaultInterval = 60 * time.Second

// Broadcaster pushes sync outcomes to the operator consoles.
type Broadcaster interface {
	Broadcast(message string)
}

// Report summarizes one sync pass.
type Report struct {
	// Online is false when the pass was skipped because the remote
	// was unreachable.
	Online bool `json:"online"`

	StudentsSynced  int `json:"students_synced"`
	StudentsExisted int `json:"students_existed"`
	StudentsFailed  int `json:"students_failed"`
	RowsSwept       int `json:"rows_swept"`

	AttendancePromoted int `json:"attendance_promoted"`
	AttendanceDropped  int `json:"attendance_dropped"`
}

// Worker replays the deferred queue. One Worker runs per process.
type Worker struct {
	store    store.Store
	client   *remote.Client
	probe    *remote.Probe
	hub      Broadcaster
	interval time.Duration

	// authorization is forwarded on student creation; the attendance
	// replay endpoint is unauthenticated.
	authorization string

	log *logrus.Logger
}

// NewWorker builds a sync worker. hub may be nil; a zero interval
// applies the default period.
func NewWorker(st store.Store, client *remote.Client, probe *remote.Probe, hub Broadcaster, interval time.Duration, authorization string, log *logrus.Logger) *Worker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Worker{
		store:         st,
		client:        client,
		probe:         probe,
		hub:           hub,
		interval:      interval,
		authorization: authorization,
		log:           log,
	}
}

// Run loops until ctx ends, one pass per period. The first pass runs
// immediately so a restart with a backlog does not wait a full period.
func (w *Worker) Run(ctx context.Context) {
	w.log.WithField("interval", w.interval).Info("sync worker started")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.RunOnce(ctx)
		select {
		case <-ctx.Done():
			w.log.Info("sync worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce executes a single pass: probe, replay queued students, sweep
// rows stuck at synced, drain offline attendance.
func (w *Worker) RunOnce(ctx context.Context) *Report {
	report := &Report{}
	if !w.probe.Online(ctx) {
		w.log.Debug("remote unreachable, sync pass skipped")
		return report
	}
	report.Online = true

	w.syncMissing(ctx, report)

	swept, err := w.CleanupSynced(ctx)
	if err != nil {
		w.log.WithError(err).Error("synced-row sweep failed")
	}
	report.RowsSwept = swept

	w.drainOfflineAttendance(ctx, report)

	if report.StudentsSynced+report.StudentsExisted+report.AttendancePromoted+report.AttendanceDropped > 0 {
		w.log.WithFields(logrus.Fields{
			"students_synced":     report.StudentsSynced,
			"students_existed":    report.StudentsExisted,
			"students_failed":     report.StudentsFailed,
			"attendance_promoted": report.AttendancePromoted,
			"attendance_dropped":  report.AttendanceDropped,
		}).Info("sync pass complete")
	}
	return report
}

// syncMissing replays every retryable queue row. A transport failure
// aborts the pass; everything left over is picked up next period.
func (w *Worker) syncMissing(ctx context.Context, report *Report) {
	rows, err := w.store.MissingStudents(ctx)
	if err != nil {
		w.log.WithError(err).Error("queue read failed")
		return
	}

	for _, m := range rows {
		if !m.Retryable() {
			continue
		}
		if err := w.syncOne(ctx, m, report); remote.Unreachable(err) {
			w.log.WithError(err).Warn("remote lost mid-pass")
			return
		}
	}
}

// syncOne pushes a single queued student. The existence check first
// makes the create idempotent across crashes and repeated passes.
func (w *Worker) syncOne(ctx context.Context, m *model.MissingStudent, report *Report) error {
	log := w.log.WithField("uid", m.UID)

	now := time.Now()
	m.SyncStatus = model.SyncSyncing
	m.LastSyncAttempt = &now
	if err := w.store.SaveMissing(ctx, m); err != nil {
		log.WithError(err).Error("queue row not updatable")
		return nil
	}

	existing, err := w.client.GetStudent(ctx, m.UID)
	if err != nil {
		// Verdict unknown. Put the row back so the next pass retries
		// without burning an attempt.
		m.SyncStatus = model.SyncPending
		_ = w.store.SaveMissing(ctx, m)
		return err
	}
	if existing != nil {
		log.Info("student already on remote")
		report.StudentsExisted++
		return w.markSynced(ctx, m, now)
	}

	err = w.client.CreateStudent(ctx, w.authorization, w.studentFrom(m))
	switch {
	case err == nil:
		log.Info("student synced to remote")
		report.StudentsSynced++
		if w.hub != nil {
			w.hub.Broadcast(fmt.Sprintf("SYNCED: %s %s UID=%d", m.FirstName, m.LastName, m.UID))
		}
		return w.markSynced(ctx, m, now)
	case remote.Unreachable(err):
		m.SyncStatus = model.SyncPending
		_ = w.store.SaveMissing(ctx, m)
		return err
	default:
		log.WithError(err).Warn("remote refused queued student")
		m.SyncStatus = model.SyncFailed
		m.SyncError = err.Error()
		m.SyncAttempts++
		report.StudentsFailed++
		if err := w.store.SaveMissing(ctx, m); err != nil {
			log.WithError(err).Error("failure not recorded on queue row")
		}
		return nil
	}
}

// markSynced records the acknowledgement and removes the row. A crash
// between the save and the delete leaves a synced row behind, which
// CleanupSynced removes on a later pass.
func (w *Worker) markSynced(ctx context.Context, m *model.MissingStudent, now time.Time) error {
	m.SyncStatus = model.SyncSynced
	m.SyncedAt = &now
	if err := w.store.SaveMissing(ctx, m); err != nil {
		return nil
	}
	if err := w.store.DeleteMissing(ctx, m.UID); err != nil {
		w.log.WithField("uid", m.UID).WithError(err).Error("synced row not deleted")
	}
	return nil
}

// CleanupSynced removes queue rows stuck at synced and returns how
// many it swept.
func (w *Worker) CleanupSynced(ctx context.Context) (int, error) {
	rows, err := w.store.MissingStudents(ctx)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, m := range rows {
		if m.SyncStatus != model.SyncSynced {
			continue
		}
		if err := w.store.DeleteMissing(ctx, m.UID); err != nil {
			w.log.WithField("uid", m.UID).WithError(err).Error("stuck row not deleted")
			continue
		}
		swept++
	}
	return swept, nil
}

// drainOfflineAttendance replays every unsynced offline day key. A
// success promotes the key to its validated form; a schedule rejection
// drops the entry, which is the documented policy for stale offline
// captures; a transport failure ends the drain.
func (w *Worker) drainOfflineAttendance(ctx context.Context, report *Report) {
	err := w.store.EachStudent(ctx, func(s *model.Student) error {
		changed := false
		for key, value := range s.Attendance {
			if !model.IsOfflineKey(key) {
				continue
			}
			rec, ok := model.RecordFrom(value)
			if !ok || rec.Synced {
				continue
			}

			log := w.log.WithFields(logrus.Fields{"uid": s.UID, "key": key})
			_, err := w.client.PostAttendance(ctx, s.UID, rec.Timestamp, false)
			switch {
			case err == nil:
				delete(s.Attendance, key)
				s.Attendance[model.PlainKey(key)] = true
				changed = true
				report.AttendancePromoted++
				log.Info("offline attendance promoted")
			case remote.Unreachable(err):
				if changed {
					w.saveDrained(ctx, s)
				}
				return err
			case remote.PolicyReject(err):
				delete(s.Attendance, key)
				changed = true
				report.AttendanceDropped++
				log.WithError(err).Warn("offline attendance dropped on policy rejection")
			default:
				// Remote server trouble; leave the entry for a later
				// pass.
				log.WithError(err).Warn("offline attendance not accepted")
			}
		}
		if changed {
			w.saveDrained(ctx, s)
		}
		return nil
	})
	if err != nil && !remote.Unreachable(err) {
		w.log.WithError(err).Error("offline attendance drain failed")
	}
}

func (w *Worker) saveDrained(ctx context.Context, s *model.Student) {
	if err := w.store.SaveStudent(ctx, s); err != nil {
		w.log.WithField("uid", s.UID).WithError(err).Error("drained attendance not persisted")
	}
}

// studentFrom rebuilds the remote creation payload from a queue row.
func (w *Worker) studentFrom(m *model.MissingStudent) *model.Student {
	return &model.Student{
		UID:                 m.UID,
		StudentID:           m.StudentID,
		FirstName:           m.FirstName,
		LastName:            m.LastName,
		Email:               m.Email,
		PhoneNumber:         m.PhoneNumber,
		GuardianNumber:      m.GuardianNumber,
		BirthDate:           m.BirthDate,
		NationalID:          m.NationalID,
		Gender:              m.Gender,
		Level:               m.Level,
		SchoolName:          m.SchoolName,
		IsSubscription:      m.IsSubscription,
		FingerprintTemplate: m.FingerprintTemplate,
		Attendance:          map[string]any{},
	}
}
