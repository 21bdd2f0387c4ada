// Package attendance is the capture pipeline. The Orchestrator
// consumes live fingerprint events from the device pool, routes each
// one through the remote validator or the offline ledger, and pushes
// the outcome to the operator consoles. The Arbiter holds remote
// policy rejections until an assistant rules on them.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/attendd/attendd/internal/device"
	"github.com/attendd/attendd/internal/model"
	"github.com/attendd/attendd/internal/remote"
	"github.com/attendd/attendd/internal/store"
	"github.com/attendd/attendd/pkg/zk"
)

// Broadcaster pushes capture outcomes to the operator consoles. Plain
// progress lines go out as text, decision traffic as JSON.
type Broadcaster interface {
	Broadcast(message string)
	BroadcastJSON(v any)
}

// Orchestrator runs the per-device capture loops. One Capture call per
// connected scanner; the pool supervises them.
type Orchestrator struct {
	store   store.Store
	client  *remote.Client
	probe   *remote.Probe
	arbiter *Arbiter
	hub     Broadcaster
	loc     *time.Location
	log     *logrus.Logger
}

// NewOrchestrator wires the capture pipeline. A nil location stamps
// events in the local zone.
func NewOrchestrator(st store.Store, client *remote.Client, probe *remote.Probe, arb *Arbiter, hub Broadcaster, loc *time.Location, log *logrus.Logger) *Orchestrator {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Orchestrator{
		store:   st,
		client:  client,
		probe:   probe,
		arbiter: arb,
		hub:     hub,
		loc:     loc,
		log:     log,
	}
}

// Capture is the pool's capture function: it drains one scanner's live
// event stream until ctx ends or the stream breaks. Events are handled
// inline, so per-device ordering is the scanner's own ordering.
func (o *Orchestrator) Capture(ctx context.Context, dev device.Snapshot, conn zk.Conn) error {
	events, err := conn.LiveCapture(ctx)
	if err != nil {
		return fmt.Errorf("live capture on %s: %w", dev.DeviceID, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("capture stream on %s closed", dev.DeviceID)
			}
			o.HandleCapture(ctx, dev, ev)
		}
	}
}

// HandleCapture processes one swipe. The audit row is written no
// matter what happens downstream; the validation outcome only decides
// how the attendance map changes and what the consoles see.
func (o *Orchestrator) HandleCapture(ctx context.Context, dev device.Snapshot, ev zk.CaptureEvent) {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	ts = ts.In(o.loc)

	log := o.log.WithFields(logrus.Fields{"device": dev.DeviceID, "uid": ev.UID})

	if err := o.store.AppendCapture(ctx, &model.CaptureLog{StudentUID: ev.UID, Timestamp: ts}); err != nil {
		log.WithError(err).Error("capture audit write failed")
	}

	student, err := o.store.StudentByUID(ctx, ev.UID)
	if err != nil {
		log.WithError(err).Error("student lookup failed")
		o.hub.Broadcast(fmt.Sprintf("CAPTURE ERROR: UID=%d on %s: student lookup failed", ev.UID, dev.Name))
		return
	}
	if student == nil {
		log.Warn("swipe from unknown uid")
		o.hub.Broadcast(fmt.Sprintf("UNKNOWN FINGERPRINT: UID=%d on %s", ev.UID, dev.Name))
		return
	}

	if !o.probe.Online(ctx) {
		o.recordOffline(ctx, dev, student, ts)
		return
	}

	_, err = o.client.PostAttendance(ctx, student.UID, ts, false)
	switch {
	case err == nil:
		o.recordValidated(ctx, dev, student)
	case remote.Unreachable(err):
		// The remote's verdict is unknown; the sync worker retries
		// this event from the offline ledger.
		log.WithError(err).Warn("validation transport failure, recording offline")
		o.recordOffline(ctx, dev, student, ts)
	case remote.PolicyReject(err):
		o.escalate(dev, student, ts, err)
	default:
		log.WithError(err).Warn("attendance rejected")
		o.hub.Broadcast(fmt.Sprintf("ATTENDANCE REJECTED: %s UID=%d on %s: %v",
			student.FullName(), student.UID, dev.Name, err))
	}
}

// recordValidated appends the next plain day key. A store failure
// after the remote said yes is reported but never un-approves the
// event: the remote is authoritative.
func (o *Orchestrator) recordValidated(ctx context.Context, dev device.Snapshot, student *model.Student) {
	n := model.NextDayIndex(student.Attendance)
	if student.Attendance == nil {
		student.Attendance = map[string]any{}
	}
	student.Attendance[model.DayKey(n)] = true

	if err := o.store.SaveStudent(ctx, student); err != nil {
		o.log.WithField("uid", student.UID).WithError(err).Error("validated attendance not persisted")
		o.hub.Broadcast(fmt.Sprintf("STORE ERROR: UID=%d attendance approved but not saved locally", student.UID))
	}
	o.hub.Broadcast(fmt.Sprintf("ATTENDANCE APPROVED: %s UID=%d %s (%s)",
		student.FullName(), student.UID, model.DayKey(n), dev.Name))
}

// recordOffline appends the next offline day key with enough device
// context for the sync worker to replay it later.
func (o *Orchestrator) recordOffline(ctx context.Context, dev device.Snapshot, student *model.Student, ts time.Time) {
	n := model.NextDayIndex(student.Attendance)
	if student.Attendance == nil {
		student.Attendance = map[string]any{}
	}
	student.Attendance[model.OfflineDayKey(n)] = model.AttendanceRecord{
		Status:         true,
		Timestamp:      ts,
		Synced:         false,
		DeviceID:       dev.DeviceID,
		DeviceName:     dev.Name,
		DeviceLocation: dev.Location,
	}

	if err := o.store.SaveStudent(ctx, student); err != nil {
		o.log.WithField("uid", student.UID).WithError(err).Error("offline attendance not persisted")
		o.hub.Broadcast(fmt.Sprintf("STORE ERROR: UID=%d offline attendance not saved", student.UID))
		return
	}
	o.hub.Broadcast(fmt.Sprintf("OFFLINE ATTENDANCE RECORDED: %s UID=%d %s (%s), will sync",
		student.FullName(), student.UID, model.OfflineDayKey(n), dev.Name))
}

// escalate parks a schedule rejection with the arbiter and asks the
// consoles for a ruling.
func (o *Orchestrator) escalate(dev device.Snapshot, student *model.Student, ts time.Time, cause error) {
	reason := cause.Error()
	var re *remote.RemoteError
	if errors.As(cause, &re) {
		reason = re.Body
	}
	pd := o.arbiter.Create(student, ts, reason, dev)
	o.log.WithFields(logrus.Fields{
		"uid":         student.UID,
		"decision_id": pd.DecisionID,
	}).Info("attendance escalated for assistant decision")
	o.hub.BroadcastJSON(pd.Request())
}
