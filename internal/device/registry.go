// Package device tracks the scanner fleet. The Registry holds per
// scanner connection state, the Pool runs one capture goroutine per
// connected scanner and fans live fingerprint events into a single
// handler.
package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/attendd/attendd/internal/config"
	"github.com/attendd/attendd/pkg/zk"
)

// ErrUnknownDevice reports a device id that is not in the table.
var ErrUnknownDevice = errors.New("unknown device")

// ErrDeviceBusy reports a scanner currently owned by a capture task.
// Per-operation work must pick another scanner or wait for capture to
// stop; a scanner session is never shared between tasks.
var ErrDeviceBusy = errors.New("device busy with capture")

// Status is a scanner's connection state.
type Status string

const (
	StatusOffline    Status = "offline"
	StatusConnecting Status = "connecting"
	StatusOnline     Status = "online"
	StatusError      Status = "error"
)

// Snapshot is a point-in-time view of one scanner. LastHeartbeat is
// nil until the scanner has connected at least once.
type Snapshot struct {
	DeviceID      string     `json:"device_id"`
	Name          string     `json:"name"`
	Location      string     `json:"location"`
	IP            string     `json:"ip"`
	Port          int        `json:"port"`
	Enabled       bool       `json:"enabled"`
	Status        Status     `json:"status"`
	LastHeartbeat *time.Time `json:"last_heartbeat"`
	ErrorMessage  string     `json:"error_message"`
	Connected     bool       `json:"connected"`
}

// Addr returns the scanner's TCP dial address.
func (s Snapshot) Addr() string {
	return fmt.Sprintf("%s:%d", s.IP, s.Port)
}

// managed is the registry's mutable record for one scanner.
type managed struct {
	cfg           config.Device
	status        Status
	lastHeartbeat time.Time
	errMsg        string
	conn          zk.Conn
}

// Registry tracks every configured scanner and owns their sessions.
// All methods are safe for concurrent use.
type Registry struct {
	driver  zk.Driver
	timeout time.Duration
	log     *logrus.Logger

	mu      sync.RWMutex
	devices map[string]*managed
	order   []string
}

// NewRegistry builds a registry over an explicit device table. A zero
// timeout applies the default dial timeout.
func NewRegistry(driver zk.Driver, table []config.Device, timeout time.Duration, log *logrus.Logger) *Registry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if timeout <= 0 {
		timeout = config.DefaultDeviceTimeout
	}
	r := &Registry{
		driver:  driver,
		timeout: timeout,
		log:     log,
		devices: make(map[string]*managed, len(table)),
	}
	for _, cfg := range table {
		r.devices[cfg.DeviceID] = &managed{cfg: cfg, status: StatusOffline}
		r.order = append(r.order, cfg.DeviceID)
	}
	return r
}

// LoadRegistry reads the scanner table from path and builds a registry
// over it. A missing file falls back to the built-in single-device
// table; a malformed one yields an empty registry so nothing dials a
// half-configured scanner.
func LoadRegistry(driver zk.Driver, path string, timeout time.Duration, log *logrus.Logger) *Registry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	table, err := config.LoadDevices(path)
	if err != nil {
		log.WithField("path", path).WithError(err).Error("device table unreadable, starting with no scanners")
		table = nil
	}
	return NewRegistry(driver, table, timeout, log)
}

// Devices returns a snapshot of every scanner in table order.
func (r *Registry) Devices() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Snapshot, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.snapshotLocked(r.devices[id]))
	}
	return out
}

// Device returns a snapshot of one scanner.
func (r *Registry) Device(id string) (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok {
		return Snapshot{}, false
	}
	return r.snapshotLocked(d), true
}

// Enabled returns the enabled scanners in table order.
func (r *Registry) Enabled() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Snapshot
	for _, id := range r.order {
		if d := r.devices[id]; d.cfg.Enabled {
			out = append(out, r.snapshotLocked(d))
		}
	}
	return out
}

// Connect dials a scanner and stores the session. Connecting an
// already connected scanner is a no-op. The registry lock is not held
// during the dial, so status reads stay cheap while a scanner times
// out.
func (r *Registry) Connect(ctx context.Context, id string) error {
	r.mu.Lock()
	d, ok := r.devices[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownDevice, id)
	}
	if d.conn != nil {
		r.mu.Unlock()
		return nil
	}
	d.status = StatusConnecting
	addr := d.cfg.Addr()
	r.mu.Unlock()

	r.log.WithFields(logrus.Fields{"device": id, "addr": addr}).Info("connecting to scanner")
	conn, err := r.driver.Connect(ctx, addr, r.timeout)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		d.status = StatusError
		d.errMsg = err.Error()
		r.log.WithFields(logrus.Fields{"device": id, "addr": addr}).WithError(err).Warn("scanner connect failed")
		return fmt.Errorf("connect %s: %w", id, err)
	}
	d.conn = conn
	d.status = StatusOnline
	d.lastHeartbeat = time.Now()
	d.errMsg = ""
	r.log.WithField("device", id).Info("scanner online")
	return nil
}

// Disconnect closes a scanner session if one is open and marks the
// scanner offline.
func (r *Registry) Disconnect(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, id)
	}
	r.closeLocked(d)
	return nil
}

// DisconnectAll closes every open session.
func (r *Registry) DisconnectAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.order {
		r.closeLocked(r.devices[id])
	}
}

// Acquire dials a fresh per-operation session for enrollment or
// deletion work. The caller owns the returned session and must close
// it. A scanner whose long-lived session is held by a capture task is
// refused with ErrDeviceBusy.
func (r *Registry) Acquire(ctx context.Context, id string) (zk.Conn, error) {
	r.mu.RLock()
	d, ok := r.devices[id]
	if !ok {
		r.mu.RUnlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, id)
	}
	if d.conn != nil {
		r.mu.RUnlock()
		return nil, fmt.Errorf("%w: %s", ErrDeviceBusy, id)
	}
	addr := d.cfg.Addr()
	r.mu.RUnlock()

	conn, err := r.driver.Connect(ctx, addr, r.timeout)
	if err != nil {
		r.setError(id, err)
		return nil, fmt.Errorf("connect %s: %w", id, err)
	}
	return conn, nil
}

// TestConnection dials a scanner with a throwaway session and closes
// it again. The registry's own session, if any, is left untouched so a
// probe cannot break a running capture.
func (r *Registry) TestConnection(ctx context.Context, id string) error {
	r.mu.RLock()
	d, ok := r.devices[id]
	if !ok {
		r.mu.RUnlock()
		return fmt.Errorf("%w: %s", ErrUnknownDevice, id)
	}
	addr := d.cfg.Addr()
	r.mu.RUnlock()

	conn, err := r.driver.Connect(ctx, addr, r.timeout)
	if err != nil {
		return fmt.Errorf("connect %s: %w", id, err)
	}
	if err := conn.Close(); err != nil {
		r.log.WithField("device", id).WithError(err).Debug("scanner close failed")
	}
	return nil
}

func (r *Registry) closeLocked(d *managed) {
	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			r.log.WithField("device", d.cfg.DeviceID).WithError(err).Debug("scanner close failed")
		}
		d.conn = nil
	}
	d.status = StatusOffline
}

func (r *Registry) snapshotLocked(d *managed) Snapshot {
	s := Snapshot{
		DeviceID:     d.cfg.DeviceID,
		Name:         d.cfg.Name,
		Location:     d.cfg.Location,
		IP:           d.cfg.IP,
		Port:         d.cfg.Port,
		Enabled:      d.cfg.Enabled,
		Status:       d.status,
		ErrorMessage: d.errMsg,
		Connected:    d.conn != nil,
	}
	if !d.lastHeartbeat.IsZero() {
		t := d.lastHeartbeat
		s.LastHeartbeat = &t
	}
	return s
}

// conn returns the live session for a scanner, or nil.
func (r *Registry) conn(id string) zk.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if d, ok := r.devices[id]; ok {
		return d.conn
	}
	return nil
}

// setError marks a scanner failed without touching its session.
func (r *Registry) setError(id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.devices[id]; ok {
		d.status = StatusError
		d.errMsg = err.Error()
	}
}
