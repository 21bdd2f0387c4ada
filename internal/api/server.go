// Package api is the coordinator's HTTP surface: student registration
// and management under /students, capture control and the operator
// channel under /fingerprint. Handlers stay thin; every decision of
// consequence lives in the orchestration packages.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/attendd/attendd/internal/attendance"
	"github.com/attendd/attendd/internal/device"
	"github.com/attendd/attendd/internal/enroll"
	"github.com/attendd/attendd/internal/ident"
	"github.com/attendd/attendd/internal/model"
	"github.com/attendd/attendd/internal/operator"
	"github.com/attendd/attendd/internal/remote"
	"github.com/attendd/attendd/internal/store"
	"github.com/attendd/attendd/internal/syncer"
	"github.com/attendd/attendd/pkg/zk"
)

// Authorizer validates the credentials on a registration request. The
// credential scheme belongs to the deployment, not to this package;
// the default authorizer accepts everything and forwards the header.
type Authorizer func(r *http.Request) error

// Deps is everything the HTTP surface delegates to.
type Deps struct {
	Store        store.Store
	Alloc        *ident.Allocator
	Enroller     *enroll.Enroller
	Registry     *device.Registry
	Pool         *device.Pool
	Orchestrator *attendance.Orchestrator
	Arbiter      *attendance.Arbiter
	Syncer       *syncer.Worker
	Hub          *operator.Hub
	Probe        *remote.Probe
	Authorize    Authorizer

	// AllowedOrigins lists the operator UI origins for CORS. Empty
	// allows every origin, which matches the lab deployments.
	AllowedOrigins []string

	Log *logrus.Logger
}

// Server routes HTTP traffic into the orchestration layer.
type Server struct {
	deps   Deps
	log    *logrus.Logger
	router chi.Router
}

// NewServer builds the router and wires the operator channel's
// decision replies into the arbiter.
func NewServer(deps Deps) *Server {
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	if deps.Authorize == nil {
		deps.Authorize = func(*http.Request) error { return nil }
	}

	s := &Server{deps: deps, log: deps.Log}

	if deps.Hub != nil && deps.Arbiter != nil {
		deps.Hub.OnDecision(s.resolveDecision)
	}

	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/students", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Delete("/delete_fingerprint/{uid}", s.handleDeleteFingerprint)
		r.Delete("/delete_from_all_devices/{uid}", s.handleDeleteFromDevices)
		r.Get("/", s.handleListStudents)
		r.Post("/init-counter", s.handleInitCounter)
		r.Get("/connectivity-status", s.handleConnectivity)
		r.Get("/fingerprint-device-status", s.handleDeviceStatus)
		r.Get("/missing-students", s.handleMissingStudents)
		r.Post("/sync-missing-students", s.handleSyncMissing)
		r.Post("/cleanup-synced-students", s.handleCleanupSynced)
	})

	r.Route("/fingerprint", func(r chi.Router) {
		r.Post("/start_attendance", s.handleStartAttendance)
		r.Post("/stop_attendance", s.handleStopAttendance)
		r.Get("/attendance-status", s.handleAttendanceStatus)
		r.Get("/devices", s.handleDevices)
		r.Get("/devices/{id}", s.handleDevice)
		r.Post("/devices/{id}/test-connection", s.handleTestConnection)
		r.Get("/student-attendance/{uid}", s.handleStudentAttendance)
		r.Get("/pending-decisions", s.handlePendingDecisions)
		r.Post("/assistant-decision/{decision_id}", s.handleAssistantDecision)
		r.Get("/ws", s.handleWS)
	})

	s.router = r
	return s
}

// Handler returns the assembled router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Error("response encoding failed")
	}
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	s.respond(w, status, map[string]any{"success": false, "error": err.Error()})
}

func uidParam(r *http.Request) (int, error) {
	uid, err := strconv.Atoi(chi.URLParam(r, "uid"))
	if err != nil || uid <= 0 {
		return 0, errors.New("uid must be a positive integer")
	}
	return uid, nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Authorize(r); err != nil {
		s.fail(w, http.StatusUnauthorized, err)
		return
	}

	var payload model.RegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.fail(w, http.StatusBadRequest, errors.New("request body is not valid JSON"))
		return
	}

	res, err := s.deps.Enroller.Register(r.Context(), r.Header.Get("Authorization"), &payload)
	if err != nil {
		s.fail(w, registerStatus(err), err)
		return
	}
	s.respond(w, http.StatusCreated, map[string]any{
		"success":   true,
		"message":   res.Message,
		"student":   res.Student,
		"deferred":  res.Deferred,
		"device_id": res.DeviceID,
	})
}

// registerStatus maps a registration failure onto an HTTP status.
func registerStatus(err error) int {
	switch {
	case errors.Is(err, model.ErrMissingName),
		errors.Is(err, model.ErrInvalidGender),
		errors.Is(err, model.ErrInvalidLevel),
		errors.Is(err, model.ErrMissingContact):
		return http.StatusBadRequest
	case errors.Is(err, enroll.ErrBlacklisted):
		return http.StatusForbidden
	case errors.Is(err, enroll.ErrNoDevices):
		return http.StatusServiceUnavailable
	case errors.Is(err, device.ErrDeviceBusy):
		return http.StatusConflict
	case errors.Is(err, zk.ErrEnrollTimeout):
		return http.StatusRequestTimeout
	case errors.Is(err, ident.ErrCounterExhausted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleDeleteFingerprint(w http.ResponseWriter, r *http.Request) {
	uid, err := uidParam(r)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}

	report, err := s.deps.Enroller.DeleteFingerprint(r.Context(), uid)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"success": true, "uid": uid, "devices": report})
}

func (s *Server) handleDeleteFromDevices(w http.ResponseWriter, r *http.Request) {
	uid, err := uidParam(r)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}

	report := s.deps.Enroller.DeleteFromAllDevices(r.Context(), uid)
	s.respond(w, http.StatusOK, map[string]any{"success": true, "uid": uid, "devices": report})
}

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	skip, _ := strconv.ParseInt(r.URL.Query().Get("skip"), 10, 64)
	limit, _ := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)
	if limit <= 0 {
		limit = 100
	}

	students, err := s.deps.Store.ListStudents(r.Context(), skip, limit)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	if students == nil {
		students = []*model.Student{}
	}
	s.respond(w, http.StatusOK, map[string]any{"students": students, "count": len(students), "skip": skip, "limit": limit})
}

func (s *Server) handleInitCounter(w http.ResponseWriter, r *http.Request) {
	value, err := strconv.Atoi(r.URL.Query().Get("start_value"))
	if err != nil || value < 0 || value > ident.MaxUID {
		s.fail(w, http.StatusBadRequest, errors.New("start_value must be an integer between 0 and 60000"))
		return
	}

	if err := s.deps.Alloc.Initialize(r.Context(), value); err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.log.WithField("value", value).Warn("identity counter force-set")
	s.respond(w, http.StatusOK, map[string]any{"success": true, "value": value, "next_uid": value + 1})
}

func (s *Server) handleConnectivity(w http.ResponseWriter, r *http.Request) {
	online := s.deps.Probe.Online(r.Context())
	s.respond(w, http.StatusOK, map[string]any{
		"online":     online,
		"checked_at": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleDeviceStatus(w http.ResponseWriter, _ *http.Request) {
	devices := s.deps.Registry.Devices()
	enabled, connected := 0, 0
	for _, d := range devices {
		if d.Enabled {
			enabled++
		}
		if d.Connected {
			connected++
		}
	}
	s.respond(w, http.StatusOK, map[string]any{
		"total":     len(devices),
		"enabled":   enabled,
		"connected": connected,
		"devices":   devices,
	})
}

func (s *Server) handleMissingStudents(w http.ResponseWriter, r *http.Request) {
	rows, err := s.deps.Store.MissingStudents(r.Context())
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}

	breakdown := map[string]int{}
	for _, m := range rows {
		breakdown[string(m.SyncStatus)]++
	}
	if rows == nil {
		rows = []*model.MissingStudent{}
	}
	s.respond(w, http.StatusOK, map[string]any{
		"total":            len(rows),
		"status_breakdown": breakdown,
		"students":         rows,
	})
}

func (s *Server) handleSyncMissing(w http.ResponseWriter, r *http.Request) {
	report := s.deps.Syncer.RunOnce(r.Context())
	status := http.StatusOK
	if !report.Online {
		status = http.StatusServiceUnavailable
	}
	s.respond(w, status, report)
}

func (s *Server) handleCleanupSynced(w http.ResponseWriter, r *http.Request) {
	swept, err := s.deps.Syncer.CleanupSynced(r.Context())
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"success": true, "rows_swept": swept})
}

func (s *Server) handleStartAttendance(w http.ResponseWriter, r *http.Request) {
	report := s.deps.Pool.StartAll(r.Context(), s.deps.Orchestrator.Capture)
	if !report.Success && report.Message != "Already running" {
		// Legacy fallback: one scanner is better than none.
		s.log.WithField("reason", report.Message).Warn("multi-device start failed, trying single-device capture")
		report = s.deps.Pool.StartSingle(r.Context(), s.deps.Orchestrator.Capture)
	}

	status := http.StatusOK
	switch {
	case report.Success:
	case report.Message == "Already running":
		status = http.StatusConflict
	default:
		status = http.StatusServiceUnavailable
	}
	s.respond(w, status, report)
}

func (s *Server) handleStopAttendance(w http.ResponseWriter, _ *http.Request) {
	report := s.deps.Pool.StopAll()
	status := http.StatusOK
	if !report.Success {
		status = http.StatusConflict
	}
	s.respond(w, status, report)
}

func (s *Server) handleAttendanceStatus(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, map[string]any{
		"running":      s.deps.Pool.IsRunning(),
		"mode":         s.deps.Pool.Mode(),
		"active_tasks": s.deps.Pool.ActiveTasks(),
		"subscribers":  s.deps.Hub.SubscriberCount(),
	})
}

func (s *Server) handleDevices(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, map[string]any{"devices": s.deps.Registry.Devices()})
}

func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.deps.Registry.Device(chi.URLParam(r, "id"))
	if !ok {
		s.fail(w, http.StatusNotFound, device.ErrUnknownDevice)
		return
	}
	s.respond(w, http.StatusOK, snap)
}

func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.deps.Registry.TestConnection(r.Context(), id)
	switch {
	case err == nil:
		s.respond(w, http.StatusOK, map[string]any{"success": true, "device_id": id})
	case errors.Is(err, device.ErrUnknownDevice):
		s.fail(w, http.StatusNotFound, err)
	default:
		s.respond(w, http.StatusOK, map[string]any{"success": false, "device_id": id, "error": err.Error()})
	}
}

func (s *Server) handleStudentAttendance(w http.ResponseWriter, r *http.Request) {
	uid, err := uidParam(r)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}

	student, err := s.deps.Store.StudentByUID(r.Context(), uid)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	if student == nil {
		s.fail(w, http.StatusNotFound, errors.New("student not found"))
		return
	}

	validated, offline := 0, 0
	for key, v := range student.Attendance {
		switch {
		case model.IsOfflineKey(key):
			offline++
		case model.ValidatedDay(v):
			validated++
		}
	}
	s.respond(w, http.StatusOK, map[string]any{
		"uid":            student.UID,
		"student_name":   student.FullName(),
		"attendance":     student.Attendance,
		"validated_days": validated,
		"offline_days":   offline,
		"total_days":     validated + offline,
	})
}

func (s *Server) handlePendingDecisions(w http.ResponseWriter, _ *http.Request) {
	pending := s.deps.Arbiter.Pending()
	s.respond(w, http.StatusOK, map[string]any{"total": len(pending), "pending": pending})
}

func (s *Server) handleAssistantDecision(w http.ResponseWriter, r *http.Request) {
	decisionID := chi.URLParam(r, "decision_id")
	verdict := r.URL.Query().Get("decision")

	outcome, err := s.deps.Arbiter.Resolve(r.Context(), decisionID, verdict)
	switch {
	case err == nil:
		s.respond(w, http.StatusOK, outcome)
	case errors.Is(err, attendance.ErrDecisionNotFound),
		errors.Is(err, attendance.ErrBadVerdict):
		s.fail(w, http.StatusBadRequest, err)
	default:
		s.fail(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.deps.Hub.ServeWS(w, r)
}

// resolveDecision adapts the arbiter for the operator channel: the
// outcome or a structured error goes back to the submitting console.
func (s *Server) resolveDecision(ctx context.Context, decisionID, verdict string) any {
	outcome, err := s.deps.Arbiter.Resolve(ctx, decisionID, verdict)
	if err != nil {
		return map[string]any{"success": false, "decision_id": decisionID, "error": err.Error()}
	}
	return outcome
}
