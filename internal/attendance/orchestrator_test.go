package attendance_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"github.com/attendd/attendd/internal/attendance"
	"github.com/attendd/attendd/internal/device"
	"github.com/attendd/attendd/internal/device/mocks"
	"github.com/attendd/attendd/internal/model"
	"github.com/attendd/attendd/internal/remote"
	"github.com/attendd/attendd/internal/store"
	"github.com/attendd/attendd/pkg/zk"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// hubRecorder captures everything the pipeline broadcasts.
type hubRecorder struct {
	mu    sync.Mutex
	lines []string
	jsons [][]byte
}

func (h *hubRecorder) Broadcast(message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lines = append(h.lines, message)
}

func (h *hubRecorder) BroadcastJSON(v any) {
	data, _ := json.Marshal(v)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.jsons = append(h.jsons, data)
}

func (h *hubRecorder) lineContaining(substrs ...string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
outer:
	for _, line := range h.lines {
		for _, sub := range substrs {
			if !strings.Contains(line, sub) {
				continue outer
			}
		}
		return line
	}
	return ""
}

func testDevice() device.Snapshot {
	return device.Snapshot{DeviceID: "lab-a", Name: "Lab A", Location: "Room 1", IP: "10.0.0.11", Port: 4370}
}

func seedStudent(t *testing.T, st store.Store, uid int) *model.Student {
	t.Helper()
	sub := true
	s := model.NewStudent(uid, &model.RegisterPayload{
		FirstName: "A", LastName: "B", PhoneNumber: "0",
		Gender: "male", Level: 1, IsSubscription: &sub,
	})
	if err := st.InsertStudent(context.Background(), s); err != nil {
		t.Fatalf("seed student: %v", err)
	}
	return s
}

// backend is a fake remote that answers the probe and scripts the
// attendance endpoint.
type backend struct {
	t *testing.T

	mu              sync.Mutex
	attendanceCalls []map[string]any
	attendanceFn    func(payload map[string]any, w http.ResponseWriter)
}

func (b *backend) serve() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /students/next-ids", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"uid": 1, "student_id": "1"}`))
	})
	mux.HandleFunc("POST /attendance/", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			b.t.Errorf("attendance payload does not decode: %v", err)
		}
		b.mu.Lock()
		b.attendanceCalls = append(b.attendanceCalls, payload)
		fn := b.attendanceFn
		b.mu.Unlock()
		if fn != nil {
			fn(payload, w)
			return
		}
		_, _ = w.Write([]byte(`{"group": "G1"}`))
	})
	return httptest.NewServer(mux)
}

func (b *backend) calls() []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]any(nil), b.attendanceCalls...)
}

type pipeline struct {
	store *store.Mem
	hub   *hubRecorder
	orch  *attendance.Orchestrator
	arb   *attendance.Arbiter
}

func newPipeline(t *testing.T, baseURL string) *pipeline {
	t.Helper()
	mem := store.NewMem()
	hub := &hubRecorder{}
	log := quietLogger()
	client := remote.NewClient(baseURL, log)
	probe := remote.NewProbe(baseURL, log)
	arb := attendance.NewArbiter(mem, client, hub, log)
	orch := attendance.NewOrchestrator(mem, client, probe, arb, hub, time.UTC, log)
	return &pipeline{store: mem, hub: hub, orch: orch, arb: arb}
}

func TestCaptureApprovedOnline(t *testing.T) {
	b := &backend{t: t}
	srv := b.serve()
	defer srv.Close()

	p := newPipeline(t, srv.URL)
	seedStudent(t, p.store, 10019)

	ts := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	p.orch.HandleCapture(context.Background(), testDevice(), zk.CaptureEvent{UID: 10019, Timestamp: ts})

	s, _ := p.store.StudentByUID(context.Background(), 10019)
	if v, ok := s.Attendance["day1"]; !ok || !model.ValidatedDay(v) {
		t.Fatalf("attendance = %v, want day1: true", s.Attendance)
	}
	if logs := p.store.Captures(); len(logs) != 1 || logs[0].StudentUID != 10019 {
		t.Fatalf("capture log = %+v", logs)
	}
	if line := p.hub.lineContaining("APPROVED", "UID=10019"); line == "" {
		t.Fatalf("no APPROVED broadcast, lines = %v", p.hub.lines)
	}
	if calls := b.calls(); len(calls) != 1 {
		t.Fatalf("attendance POSTs = %d, want 1", len(calls))
	}
}

func TestCaptureOfflineRecordsDeferred(t *testing.T) {
	// A closed server refuses connections, so the probe reports
	// offline and no validation is attempted.
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	p := newPipeline(t, srv.URL)
	seedStudent(t, p.store, 10019)

	ts := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	p.orch.HandleCapture(context.Background(), testDevice(), zk.CaptureEvent{UID: 10019, Timestamp: ts})

	s, _ := p.store.StudentByUID(context.Background(), 10019)
	rec, ok := model.RecordFrom(s.Attendance["day1_offline"])
	if !ok {
		t.Fatalf("attendance = %v, want day1_offline record", s.Attendance)
	}
	if !rec.Status || rec.Synced {
		t.Fatalf("record = %+v, want status true synced false", rec)
	}
	if rec.DeviceID != "lab-a" || rec.DeviceName != "Lab A" || rec.DeviceLocation != "Room 1" {
		t.Fatalf("record device context = %+v", rec)
	}
	if !rec.Timestamp.Equal(ts) {
		t.Fatalf("record timestamp = %v, want %v", rec.Timestamp, ts)
	}
	if len(p.store.Captures()) != 1 {
		t.Fatal("capture log missing for offline event")
	}
	if line := p.hub.lineContaining("OFFLINE", "UID=10019"); line == "" {
		t.Fatalf("no offline broadcast, lines = %v", p.hub.lines)
	}
}

func TestCaptureTransportFailureRoutesOffline(t *testing.T) {
	// Probe succeeds but the validation POST dies mid-flight. The
	// event must land in the offline ledger, not as a rejection.
	b := &backend{t: t}
	b.attendanceFn = func(_ map[string]any, w http.ResponseWriter) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Fatal("recorder does not hijack")
		}
		conn, _, err := hj.Hijack()
		if err != nil {
			t.Fatalf("hijack: %v", err)
		}
		conn.Close()
	}
	srv := b.serve()
	defer srv.Close()

	p := newPipeline(t, srv.URL)
	seedStudent(t, p.store, 10019)

	p.orch.HandleCapture(context.Background(), testDevice(), zk.CaptureEvent{UID: 10019, Timestamp: time.Now()})

	s, _ := p.store.StudentByUID(context.Background(), 10019)
	if _, ok := s.Attendance["day1_offline"]; !ok {
		t.Fatalf("attendance = %v, want day1_offline", s.Attendance)
	}
	if line := p.hub.lineContaining("REJECTED"); line != "" {
		t.Fatalf("transport failure broadcast as rejection: %q", line)
	}
}

func TestCapturePolicyRejectionEscalates(t *testing.T) {
	b := &backend{t: t}
	b.attendanceFn = func(payload map[string]any, w http.ResponseWriter) {
		if approved, _ := payload["assistant_approved"].(bool); approved {
			_, _ = w.Write([]byte(`{"group": "G1"}`))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`Attendance not allowed on Monday`))
	}
	srv := b.serve()
	defer srv.Close()

	p := newPipeline(t, srv.URL)
	seedStudent(t, p.store, 10019)

	ts := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	p.orch.HandleCapture(context.Background(), testDevice(), zk.CaptureEvent{UID: 10019, Timestamp: ts})

	pending := p.arb.Pending()
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	pd := pending[0]
	if pd.UID != 10019 || !strings.Contains(pd.Reason, "not allowed on") {
		t.Fatalf("pending decision = %+v", pd)
	}

	if len(p.hub.jsons) != 1 {
		t.Fatalf("decision broadcasts = %d, want 1", len(p.hub.jsons))
	}
	var req map[string]any
	if err := json.Unmarshal(p.hub.jsons[0], &req); err != nil {
		t.Fatalf("decision request does not decode: %v", err)
	}
	if req["type"] != "decision_request" || req["decision_id"] != pd.DecisionID {
		t.Fatalf("decision request = %v", req)
	}

	// No attendance was recorded before the ruling.
	s, _ := p.store.StudentByUID(context.Background(), 10019)
	if len(s.Attendance) != 0 {
		t.Fatalf("attendance before verdict = %v", s.Attendance)
	}

	outcome, err := p.arb.Resolve(context.Background(), pd.DecisionID, "approve")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !outcome.Success || outcome.Decision != "approve" {
		t.Fatalf("outcome = %+v", outcome)
	}

	s, _ = p.store.StudentByUID(context.Background(), 10019)
	if v, ok := s.Attendance["day1"]; !ok || !model.ValidatedDay(v) {
		t.Fatalf("attendance after approval = %v", s.Attendance)
	}

	// Exactly one assistant-approved POST went out, after the
	// original rejected one.
	var approved int
	for _, call := range b.calls() {
		if ok, _ := call["assistant_approved"].(bool); ok {
			approved++
		}
	}
	if approved != 1 {
		t.Fatalf("assistant_approved POSTs = %d, want 1", approved)
	}

	if line := p.hub.lineContaining("ASSISTANT APPROVED", "UID=10019"); line == "" {
		t.Fatalf("no ASSISTANT APPROVED broadcast, lines = %v", p.hub.lines)
	}
	if len(p.arb.Pending()) != 0 {
		t.Fatal("decision not removed after verdict")
	}
}

func TestCaptureHardRejectionBroadcasts(t *testing.T) {
	b := &backend{t: t}
	b.attendanceFn = func(_ map[string]any, w http.ResponseWriter) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`Student subscription expired`))
	}
	srv := b.serve()
	defer srv.Close()

	p := newPipeline(t, srv.URL)
	seedStudent(t, p.store, 10019)

	p.orch.HandleCapture(context.Background(), testDevice(), zk.CaptureEvent{UID: 10019, Timestamp: time.Now()})

	s, _ := p.store.StudentByUID(context.Background(), 10019)
	if len(s.Attendance) != 0 {
		t.Fatalf("attendance = %v, want none", s.Attendance)
	}
	if len(p.arb.Pending()) != 0 {
		t.Fatal("hard rejection escalated to arbiter")
	}
	if line := p.hub.lineContaining("REJECTED", "UID=10019"); line == "" {
		t.Fatalf("no REJECTED broadcast, lines = %v", p.hub.lines)
	}
}

func TestCaptureUnknownUID(t *testing.T) {
	b := &backend{t: t}
	srv := b.serve()
	defer srv.Close()

	p := newPipeline(t, srv.URL)

	p.orch.HandleCapture(context.Background(), testDevice(), zk.CaptureEvent{UID: 4242, Timestamp: time.Now()})

	// The audit row is written even though nobody matches the swipe.
	if logs := p.store.Captures(); len(logs) != 1 || logs[0].StudentUID != 4242 {
		t.Fatalf("capture log = %+v", logs)
	}
	if line := p.hub.lineContaining("UNKNOWN", "UID=4242"); line == "" {
		t.Fatalf("no unknown-uid broadcast, lines = %v", p.hub.lines)
	}
	if calls := b.calls(); len(calls) != 0 {
		t.Fatalf("validation attempted for unknown uid: %v", calls)
	}
}

func TestCaptureDayKeysInterleave(t *testing.T) {
	// Offline then online captures must extend the key sequence, not
	// overwrite each other.
	b := &backend{t: t}
	srv := b.serve()

	p := newPipeline(t, srv.URL)
	seedStudent(t, p.store, 10019)

	srv.Close()
	p.orch.HandleCapture(context.Background(), testDevice(), zk.CaptureEvent{UID: 10019, Timestamp: time.Now()})

	// Rebuild the pipeline on the same store against a fresh backend.
	srv2 := b.serve()
	defer srv2.Close()
	log := quietLogger()
	client := remote.NewClient(srv2.URL, log)
	probe := remote.NewProbe(srv2.URL, log)
	arb := attendance.NewArbiter(p.store, client, p.hub, log)
	orch := attendance.NewOrchestrator(p.store, client, probe, arb, p.hub, time.UTC, log)
	orch.HandleCapture(context.Background(), testDevice(), zk.CaptureEvent{UID: 10019, Timestamp: time.Now()})

	s, _ := p.store.StudentByUID(context.Background(), 10019)
	if _, ok := s.Attendance["day1_offline"]; !ok {
		t.Fatalf("attendance = %v, want day1_offline kept", s.Attendance)
	}
	if v, ok := s.Attendance["day2"]; !ok || !model.ValidatedDay(v) {
		t.Fatalf("attendance = %v, want day2: true", s.Attendance)
	}
}

func TestCaptureLoopConsumesStream(t *testing.T) {
	b := &backend{t: t}
	srv := b.serve()
	defer srv.Close()

	p := newPipeline(t, srv.URL)
	seedStudent(t, p.store, 10019)

	ch := make(chan zk.CaptureEvent, 1)
	ch <- zk.CaptureEvent{UID: 10019, Timestamp: time.Now()}
	close(ch)

	conn := mocks.NewMockConn(t)
	conn.EXPECT().LiveCapture(mock.Anything).Return((<-chan zk.CaptureEvent)(ch), nil).Once()

	err := p.orch.Capture(context.Background(), testDevice(), conn)
	if err == nil || !strings.Contains(err.Error(), "closed") {
		t.Fatalf("Capture err = %v, want stream-closed error", err)
	}

	s, _ := p.store.StudentByUID(context.Background(), 10019)
	if v, ok := s.Attendance["day1"]; !ok || !model.ValidatedDay(v) {
		t.Fatalf("attendance = %v, want day1 from streamed event", s.Attendance)
	}
}

func TestCaptureLoopStopsOnCancel(t *testing.T) {
	p := newPipeline(t, "http://127.0.0.1:1")

	ch := make(chan zk.CaptureEvent)
	conn := mocks.NewMockConn(t)
	conn.EXPECT().LiveCapture(mock.Anything).Return((<-chan zk.CaptureEvent)(ch), nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.orch.Capture(ctx, testDevice(), conn) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Capture err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("capture loop did not observe cancellation")
	}
}

func TestResolveUnknownDecision(t *testing.T) {
	p := newPipeline(t, "http://127.0.0.1:1")

	_, err := p.arb.Resolve(context.Background(), "10019_99", "approve")
	if !errors.Is(err, attendance.ErrDecisionNotFound) {
		t.Fatalf("err = %v, want ErrDecisionNotFound", err)
	}
}

func TestResolveBadVerdict(t *testing.T) {
	p := newPipeline(t, "http://127.0.0.1:1")

	_, err := p.arb.Resolve(context.Background(), "whatever", "maybe")
	if !errors.Is(err, attendance.ErrBadVerdict) {
		t.Fatalf("err = %v, want ErrBadVerdict", err)
	}
}

func TestResolveReject(t *testing.T) {
	b := &backend{t: t}
	srv := b.serve()
	defer srv.Close()

	p := newPipeline(t, srv.URL)
	s := seedStudent(t, p.store, 10019)

	pd := p.arb.Create(s, time.Now(), "Group schedule mismatch", testDevice())

	outcome, err := p.arb.Resolve(context.Background(), pd.DecisionID, "reject")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !outcome.Success || outcome.Decision != "reject" {
		t.Fatalf("outcome = %+v", outcome)
	}

	got, _ := p.store.StudentByUID(context.Background(), 10019)
	if len(got.Attendance) != 0 {
		t.Fatalf("rejected verdict persisted attendance: %v", got.Attendance)
	}
	if calls := b.calls(); len(calls) != 0 {
		t.Fatalf("rejected verdict reached the remote: %v", calls)
	}
	if line := p.hub.lineContaining("ASSISTANT REJECTED", "UID=10019"); line == "" {
		t.Fatalf("no ASSISTANT REJECTED broadcast, lines = %v", p.hub.lines)
	}

	// A second verdict on the same id must fail.
	if _, err := p.arb.Resolve(context.Background(), pd.DecisionID, "reject"); !errors.Is(err, attendance.ErrDecisionNotFound) {
		t.Fatalf("second Resolve err = %v", err)
	}
}
