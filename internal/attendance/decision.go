package attendance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/attendd/attendd/internal/device"
	"github.com/attendd/attendd/internal/model"
	"github.com/attendd/attendd/internal/remote"
	"github.com/attendd/attendd/internal/store"
)

// Arbiter errors.
var (
	// ErrDecisionNotFound reports an unknown or already resolved
	// decision id.
	ErrDecisionNotFound = errors.New("decision not found")

	// ErrBadVerdict reports a verdict other than approve or reject.
	ErrBadVerdict = errors.New("decision must be approve or reject")
)

// Assistant verdicts.
const (
	VerdictApprove = "approve"
	VerdictReject  = "reject"
)

// PendingDecision is one schedule rejection waiting for an assistant
// ruling. Pending decisions live in memory only: a restart discards
// them and the student simply swipes again.
type PendingDecision struct {
	DecisionID     string    `json:"decision_id"`
	UID            int       `json:"uid"`
	StudentName    string    `json:"student_name"`
	Timestamp      time.Time `json:"timestamp"`
	Reason         string    `json:"reason"`
	DeviceID       string    `json:"device_id"`
	DeviceName     string    `json:"device_name"`
	DeviceLocation string    `json:"device_location"`
	CreatedAt      time.Time `json:"created_at"`
}

// DecisionRequest is the envelope broadcast to consoles when a capture
// needs an assistant ruling.
type DecisionRequest struct {
	Type string `json:"type"`
	PendingDecision
}

// Request wraps the decision in its broadcast envelope.
func (p *PendingDecision) Request() DecisionRequest {
	return DecisionRequest{Type: "decision_request", PendingDecision: *p}
}

// Outcome is what a resolved decision reports back to the caller and
// the submitting console.
type Outcome struct {
	Success    bool   `json:"success"`
	DecisionID string `json:"decision_id"`
	Decision   string `json:"decision"`
	UID        int    `json:"uid"`
	Message    string `json:"message"`
}

// Arbiter holds pending assistant decisions and applies verdicts. All
// methods are safe for concurrent use.
type Arbiter struct {
	store  store.Store
	client *remote.Client
	hub    Broadcaster
	log    *logrus.Logger

	mu      sync.Mutex
	pending map[string]*PendingDecision
}

// NewArbiter builds an empty arbiter.
func NewArbiter(st store.Store, client *remote.Client, hub Broadcaster, log *logrus.Logger) *Arbiter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Arbiter{
		store:   st,
		client:  client,
		hub:     hub,
		log:     log,
		pending: make(map[string]*PendingDecision),
	}
}

// Create parks a rejection for arbitration and returns its record. The
// id is uid plus capture time, so the same student re-swiping later
// produces a distinct decision.
func (a *Arbiter) Create(student *model.Student, ts time.Time, reason string, dev device.Snapshot) *PendingDecision {
	pd := &PendingDecision{
		DecisionID:     fmt.Sprintf("%d_%d", student.UID, ts.Unix()),
		UID:            student.UID,
		StudentName:    student.FullName(),
		Timestamp:      ts,
		Reason:         reason,
		DeviceID:       dev.DeviceID,
		DeviceName:     dev.Name,
		DeviceLocation: dev.Location,
		CreatedAt:      time.Now(),
	}

	a.mu.Lock()
	a.pending[pd.DecisionID] = pd
	a.mu.Unlock()
	return pd
}

// Pending returns every unresolved decision.
func (a *Arbiter) Pending() []*PendingDecision {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]*PendingDecision, 0, len(a.pending))
	for _, pd := range a.pending {
		clone := *pd
		out = append(out, &clone)
	}
	return out
}

// Resolve applies an assistant verdict. The entry is removed whether
// the verdict is approve or reject; an approval appends the validated
// day locally first and then tells the remote, flagged so the remote
// skips its schedule check.
func (a *Arbiter) Resolve(ctx context.Context, decisionID, verdict string) (*Outcome, error) {
	if verdict != VerdictApprove && verdict != VerdictReject {
		return nil, fmt.Errorf("%w: got %q", ErrBadVerdict, verdict)
	}

	a.mu.Lock()
	pd, ok := a.pending[decisionID]
	if ok {
		delete(a.pending, decisionID)
	}
	a.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDecisionNotFound, decisionID)
	}

	log := a.log.WithFields(logrus.Fields{"decision_id": decisionID, "uid": pd.UID})

	if verdict == VerdictReject {
		log.Info("assistant rejected attendance")
		a.hub.Broadcast(fmt.Sprintf("ASSISTANT REJECTED: %s UID=%d (%s)", pd.StudentName, pd.UID, pd.DeviceName))
		return &Outcome{
			Success:    true,
			DecisionID: decisionID,
			Decision:   VerdictReject,
			UID:        pd.UID,
			Message:    fmt.Sprintf("Attendance rejected for %s", pd.StudentName),
		}, nil
	}

	day := a.approveLocally(ctx, pd, log)

	// The local record is authoritative once the assistant ruled; a
	// transport failure here is retried by nobody, but the capture log
	// keeps the evidence.
	if _, err := a.client.PostAttendance(ctx, pd.UID, pd.Timestamp, true); err != nil {
		log.WithError(err).Warn("assistant approval not delivered to remote")
	}

	log.Info("assistant approved attendance")
	a.hub.Broadcast(fmt.Sprintf("ASSISTANT APPROVED: %s UID=%d %s (%s)", pd.StudentName, pd.UID, day, pd.DeviceName))
	return &Outcome{
		Success:    true,
		DecisionID: decisionID,
		Decision:   VerdictApprove,
		UID:        pd.UID,
		Message:    fmt.Sprintf("Attendance approved for %s", pd.StudentName),
	}, nil
}

// approveLocally appends the validated day for an approved decision
// and returns the key it used.
func (a *Arbiter) approveLocally(ctx context.Context, pd *PendingDecision, log *logrus.Entry) string {
	student, err := a.store.StudentByUID(ctx, pd.UID)
	if err != nil || student == nil {
		log.WithError(err).Error("approved student not loadable")
		return ""
	}

	n := model.NextDayIndex(student.Attendance)
	if student.Attendance == nil {
		student.Attendance = map[string]any{}
	}
	student.Attendance[model.DayKey(n)] = true
	if err := a.store.SaveStudent(ctx, student); err != nil {
		log.WithError(err).Error("approved attendance not persisted")
		a.hub.Broadcast(fmt.Sprintf("STORE ERROR: UID=%d assistant approval not saved locally", pd.UID))
	}
	return model.DayKey(n)
}
