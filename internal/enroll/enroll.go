// Package enroll registers students: it reserves an identity from the
// remote or the local counter, drives the biometric enrollment across
// the scanner fleet, and persists the result on the online or the
// deferred path. The package is the single writer of the identity
// counter, which is what keeps Peek/Increment safe without a lock.
package enroll

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/attendd/attendd/internal/device"
	"github.com/attendd/attendd/internal/ident"
	"github.com/attendd/attendd/internal/model"
	"github.com/attendd/attendd/internal/remote"
	"github.com/attendd/attendd/internal/store"
	"github.com/attendd/attendd/pkg/zk"
)

// Enrollment errors.
var (
	// ErrNoDevices means no scanner was available to capture a
	// template.
	ErrNoDevices = errors.New("no scanner available for enrollment")

	// ErrBlacklisted means the remote refused the registration and the
	// fingerprint was removed from the scanners again.
	ErrBlacklisted = errors.New("student rejected by remote blacklist")
)

// MultiDeviceError aggregates per-scanner failures when enrollment
// succeeded nowhere.
type MultiDeviceError struct {
	Failures map[string]error
}

// Error lists the failures in device order.
func (e *MultiDeviceError) Error() string {
	ids := make([]string, 0, len(e.Failures))
	for id := range e.Failures {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString("enrollment failed on every scanner:")
	for _, id := range ids {
		fmt.Fprintf(&b, " %s: %v;", id, e.Failures[id])
	}
	return strings.TrimSuffix(b.String(), ";")
}

// Unwrap exposes the per-scanner causes to errors.Is and errors.As.
func (e *MultiDeviceError) Unwrap() []error {
	out := make([]error, 0, len(e.Failures))
	for _, err := range e.Failures {
		out = append(out, err)
	}
	return out
}

// Broadcaster pushes registration outcomes to the operator consoles.
type Broadcaster interface {
	Broadcast(message string)
}

// Result reports a completed registration.
type Result struct {
	Student *model.Student `json:"student"`

	// Deferred is true when the student went into the sync queue
	// instead of being created remotely.
	Deferred bool `json:"deferred"`

	// DeviceID names the scanner that captured the template.
	DeviceID string `json:"device_id"`

	Message string `json:"message"`
}

// Enroller is the registration orchestrator.
type Enroller struct {
	registry *device.Registry
	alloc    *ident.Allocator
	client   *remote.Client
	probe    *remote.Probe
	store    store.Store
	hub      Broadcaster
	log      *logrus.Logger
}

// NewEnroller wires the registration pipeline. hub may be nil.
func NewEnroller(reg *device.Registry, alloc *ident.Allocator, client *remote.Client, probe *remote.Probe, st store.Store, hub Broadcaster, log *logrus.Logger) *Enroller {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Enroller{
		registry: reg,
		alloc:    alloc,
		client:   client,
		probe:    probe,
		store:    st,
		hub:      hub,
		log:      log,
	}
}

// Register runs one registration end to end. The identity counter is
// only advanced after the student is durably stored, so a failure at
// any earlier step leaves no hole in the sequence.
func (e *Enroller) Register(ctx context.Context, authorization string, p *model.RegisterPayload) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	online := e.probe.Online(ctx)
	uid, studentID, online, err := e.reserveIdentity(ctx, authorization, online)
	if err != nil {
		return nil, err
	}

	log := e.log.WithFields(logrus.Fields{"uid": uid, "online": online})
	log.Info("registration started")

	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	template, deviceID, err := e.enrollFingerprint(ctx, uid, name)
	if err != nil {
		log.WithError(err).Warn("biometric enrollment failed, counter untouched")
		return nil, err
	}

	student := model.NewStudent(uid, p)
	student.StudentID = studentID
	student.FingerprintTemplate = template

	if online {
		switch err := e.client.CreateStudent(ctx, authorization, student); {
		case err == nil:
		case remote.Blacklisted(err):
			log.Warn("remote blacklist, removing fingerprint from scanners")
			e.DeleteFromAllDevices(ctx, uid)
			return nil, fmt.Errorf("%w: %v", ErrBlacklisted, err)
		case remote.Unreachable(err):
			// The remote vanished between the probe and the create.
			// Degrade to the deferred path for this registration.
			log.WithError(err).Warn("remote lost mid-registration, deferring")
			online = false
		default:
			return nil, err
		}
	}

	if err := e.store.InsertStudent(ctx, student); err != nil {
		return nil, fmt.Errorf("persist student: %w", err)
	}
	if !online {
		missing := model.MissingFromStudent(student, time.Now())
		if err := e.store.InsertMissing(ctx, missing); err != nil {
			return nil, fmt.Errorf("queue student for sync: %w", err)
		}
	}

	// The student is durable; burn the identity.
	if err := e.alloc.Increment(ctx); err != nil {
		log.WithError(err).Error("counter increment failed after commit")
	}

	res := &Result{
		Student:  student,
		Deferred: !online,
		DeviceID: deviceID,
		Message:  fmt.Sprintf("Student %s registered with UID %d", student.FullName(), uid),
	}
	if res.Deferred {
		res.Message += " (queued for sync)"
	}
	if e.hub != nil {
		e.hub.Broadcast(fmt.Sprintf("STUDENT REGISTERED: %s UID=%d deferred=%t", student.FullName(), uid, res.Deferred))
	}
	log.Info("registration complete")
	return res, nil
}

// reserveIdentity picks the uid/student_id pair. Online it follows the
// remote allocator and re-aims the local counter underneath the handed
// out uid; offline it peeks the local counter without burning it.
func (e *Enroller) reserveIdentity(ctx context.Context, authorization string, online bool) (int, string, bool, error) {
	if online {
		ids, err := e.client.NextIDs(ctx, authorization)
		switch {
		case err == nil:
			if err := e.alloc.Sync(ctx, ids.UID-1); err != nil {
				return 0, "", false, err
			}
			return ids.UID, ids.StudentID, true, nil
		case remote.Unreachable(err):
			// Fall through to local allocation.
		default:
			return 0, "", false, err
		}
	}

	uid, studentID, err := e.alloc.Peek(ctx)
	return uid, studentID, false, err
}

// enrollFingerprint runs the multi-device algorithm: every enabled
// scanner in table order, delete-and-retry once when a scanner holds a
// stale template for the uid, then the legacy single-device path.
func (e *Enroller) enrollFingerprint(ctx context.Context, uid int, name string) (string, string, error) {
	enabled := e.registry.Enabled()

	template, deviceID, err := e.enrollAcross(ctx, enabled, uid, name)
	if err == nil {
		return template, deviceID, nil
	}

	if errors.Is(err, zk.ErrUserExists) {
		e.log.WithField("uid", uid).Info("stale template on scanner, deleting and retrying")
		e.DeleteFromAllDevices(ctx, uid)
		if template, deviceID, err = e.enrollAcross(ctx, enabled, uid, name); err == nil {
			return template, deviceID, nil
		}
	}

	// Legacy single-device path: one more attempt against the first
	// scanner, for transient failures the sweep hit on every device.
	if len(enabled) > 1 {
		if template, deviceID, err2 := e.enrollAcross(ctx, enabled[:1], uid, name); err2 == nil {
			return template, deviceID, nil
		}
	}
	return "", "", err
}

// enrollAcross tries each scanner in order and returns the first
// captured template. ErrUserExists aborts the sweep so the caller can
// clean up and retry; other failures move on to the next scanner.
func (e *Enroller) enrollAcross(ctx context.Context, devices []device.Snapshot, uid int, name string) (string, string, error) {
	if len(devices) == 0 {
		return "", "", ErrNoDevices
	}

	failures := make(map[string]error, len(devices))
	for _, dev := range devices {
		template, err := e.enrollOn(ctx, dev, uid, name)
		if err == nil {
			return template, dev.DeviceID, nil
		}
		if errors.Is(err, zk.ErrUserExists) {
			return "", "", err
		}
		failures[dev.DeviceID] = err
		e.log.WithFields(logrus.Fields{"device": dev.DeviceID, "uid": uid}).WithError(err).Warn("enrollment failed on scanner")
	}
	return "", "", &MultiDeviceError{Failures: failures}
}

// enrollOn captures a template on one scanner over a per-operation
// session: disable, write the user record, enroll, read the template
// back, enable.
func (e *Enroller) enrollOn(ctx context.Context, dev device.Snapshot, uid int, name string) (string, error) {
	conn, err := e.registry.Acquire(ctx, dev.DeviceID)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if err := conn.Disable(ctx); err != nil {
		return "", fmt.Errorf("disable: %w", err)
	}
	defer func() {
		if err := conn.Enable(ctx); err != nil {
			e.log.WithField("device", dev.DeviceID).WithError(err).Warn("scanner left disabled")
		}
	}()

	user := zk.User{UID: uint16(uid), Name: name, UserID: strconv.Itoa(uid)}
	if err := conn.SetUser(ctx, user); err != nil {
		return "", fmt.Errorf("set user: %w", err)
	}

	template, err := conn.Enroll(ctx, uint16(uid), 0)
	if errors.Is(err, zk.ErrEnrollTimeout) {
		return "", fmt.Errorf("%w: no finger detected, ask the student to press the scanner", err)
	}
	if err != nil {
		return "", err
	}
	if template == nil {
		if template, err = conn.UserTemplate(ctx, uint16(uid), 0); err != nil {
			return "", fmt.Errorf("read template back: %w", err)
		}
		if template == nil {
			return "", errors.New("scanner stored no template after enrollment")
		}
	}
	return base64.StdEncoding.EncodeToString(template.Data), nil
}

// CleanupReport is the per-scanner outcome of a fingerprint removal.
type CleanupReport struct {
	Deleted []string          `json:"deleted,omitempty"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// DeleteFromAllDevices removes the uid's record and templates from
// every enabled scanner, best effort.
func (e *Enroller) DeleteFromAllDevices(ctx context.Context, uid int) *CleanupReport {
	report := &CleanupReport{}
	for _, dev := range e.registry.Enabled() {
		if err := e.deleteOn(ctx, dev, uid); err != nil {
			if report.Failed == nil {
				report.Failed = make(map[string]string)
			}
			report.Failed[dev.DeviceID] = err.Error()
			e.log.WithFields(logrus.Fields{"device": dev.DeviceID, "uid": uid}).WithError(err).Warn("device cleanup failed")
			continue
		}
		report.Deleted = append(report.Deleted, dev.DeviceID)
	}
	return report
}

// DeleteFingerprint removes the student from the scanners and then
// from the local store, including a queued sync row if one exists.
func (e *Enroller) DeleteFingerprint(ctx context.Context, uid int) (*CleanupReport, error) {
	report := e.DeleteFromAllDevices(ctx, uid)
	if err := e.store.DeleteStudent(ctx, uid); err != nil {
		return report, fmt.Errorf("delete student: %w", err)
	}
	if err := e.store.DeleteMissing(ctx, uid); err != nil {
		return report, fmt.Errorf("delete sync row: %w", err)
	}
	return report, nil
}

func (e *Enroller) deleteOn(ctx context.Context, dev device.Snapshot, uid int) error {
	conn, err := e.registry.Acquire(ctx, dev.DeviceID)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.Disable(ctx); err != nil {
		return fmt.Errorf("disable: %w", err)
	}
	defer func() {
		if err := conn.Enable(ctx); err != nil {
			e.log.WithField("device", dev.DeviceID).WithError(err).Warn("scanner left disabled")
		}
	}()

	if err := conn.DeleteUser(ctx, uint16(uid)); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
