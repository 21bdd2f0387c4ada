package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/attendd/attendd/pkg/zk"
)

// CaptureFunc consumes live fingerprint events from one scanner. It
// runs until ctx ends or the stream breaks; the pool does not restart
// a capture that returns.
type CaptureFunc func(ctx context.Context, dev Snapshot, conn zk.Conn) error

// StartReport describes the outcome of a start request.
type StartReport struct {
	Success         bool     `json:"success"`
	Message         string   `json:"message"`
	DevicesStarted  []string `json:"devices_started,omitempty"`
	DevicesFailed   []string `json:"devices_failed,omitempty"`
	TotalDevices    int      `json:"total_devices,omitempty"`
	TotalConfigured int      `json:"total_configured,omitempty"`
}

// StopReport describes the outcome of a stop request.
type StopReport struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	TasksStopped int    `json:"tasks_stopped,omitempty"`
}

// Capture modes reported by Mode.
const (
	ModeMultiDevice  = "multi_device"
	ModeSingleDevice = "single_device"
)

// Pool runs one capture goroutine per connected scanner. Start and
// stop are idempotent; a second start while running is refused.
type Pool struct {
	registry *Registry
	log      *logrus.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	running atomic.Bool
	single  atomic.Bool
	tasks   atomic.Int32
}

// NewPool builds a pool over a registry.
func NewPool(registry *Registry, log *logrus.Logger) *Pool {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pool{registry: registry, log: log}
}

// StartAll connects every enabled scanner and starts a capture
// goroutine for each one that came up. ctx bounds the connection
// dials only; capture itself runs on the pool's own context until
// StopAll.
func (p *Pool) StartAll(ctx context.Context, fn CaptureFunc) *StartReport {
	if p.running.Swap(true) {
		return &StartReport{Success: false, Message: "Already running"}
	}

	enabled := p.registry.Enabled()
	if len(enabled) == 0 {
		p.running.Store(false)
		return &StartReport{Success: false, Message: "No enabled devices found"}
	}

	var started, failed []string
	var live []string
	for _, dev := range enabled {
		if err := p.registry.Connect(ctx, dev.DeviceID); err != nil {
			failed = append(failed, dev.Name)
			continue
		}
		live = append(live, dev.DeviceID)
	}
	if len(live) == 0 {
		p.running.Store(false)
		return &StartReport{Success: false, Message: "No devices connected successfully"}
	}

	p.ctx, p.cancel = context.WithCancel(context.Background())
	for _, id := range live {
		dev, ok := p.registry.Device(id)
		conn := p.registry.conn(id)
		if !ok || conn == nil {
			continue
		}
		p.wg.Add(1)
		p.tasks.Add(1)
		go p.run(dev, conn, fn)
		started = append(started, dev.Name)
	}
	p.single.Store(false)

	p.log.WithFields(logrus.Fields{
		"started":    len(started),
		"configured": len(enabled),
	}).Info("multi-device capture started")

	return &StartReport{
		Success:         true,
		Message:         fmt.Sprintf("Multi-device attendance started on %d/%d devices", len(started), len(enabled)),
		DevicesStarted:  started,
		DevicesFailed:   failed,
		TotalDevices:    len(started),
		TotalConfigured: len(enabled),
	}
}

// StartSingle is the legacy one-scanner capture path, used when the
// multi-device start connects nothing. It runs one capture goroutine
// against the first enabled scanner that comes up.
func (p *Pool) StartSingle(ctx context.Context, fn CaptureFunc) *StartReport {
	if p.running.Swap(true) {
		return &StartReport{Success: false, Message: "Already running"}
	}

	enabled := p.registry.Enabled()
	if len(enabled) == 0 {
		p.running.Store(false)
		return &StartReport{Success: false, Message: "No enabled devices found"}
	}

	var failed []string
	for _, dev := range enabled {
		if err := p.registry.Connect(ctx, dev.DeviceID); err != nil {
			failed = append(failed, dev.Name)
			continue
		}
		snap, ok := p.registry.Device(dev.DeviceID)
		conn := p.registry.conn(dev.DeviceID)
		if !ok || conn == nil {
			failed = append(failed, dev.Name)
			continue
		}

		p.ctx, p.cancel = context.WithCancel(context.Background())
		p.wg.Add(1)
		p.tasks.Add(1)
		go p.run(snap, conn, fn)
		p.single.Store(true)

		p.log.WithField("device", snap.DeviceID).Info("single-device capture started")
		return &StartReport{
			Success:         true,
			Message:         fmt.Sprintf("Attendance started on %s", snap.Name),
			DevicesStarted:  []string{snap.Name},
			DevicesFailed:   failed,
			TotalDevices:    1,
			TotalConfigured: len(enabled),
		}
	}

	p.running.Store(false)
	return &StartReport{
		Success:       false,
		Message:       "No devices connected successfully",
		DevicesFailed: failed,
	}
}

// Mode reports how capture was started: multi_device, single_device,
// or empty when stopped.
func (p *Pool) Mode() string {
	if !p.running.Load() {
		return ""
	}
	if p.single.Load() {
		return ModeSingleDevice
	}
	return ModeMultiDevice
}

// StopAll cancels every capture goroutine, waits for them to finish
// and disconnects all scanners.
func (p *Pool) StopAll() *StopReport {
	if !p.running.Swap(false) {
		return &StopReport{Success: false, Message: "Not currently running"}
	}

	stopped := int(p.tasks.Load())
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.tasks.Store(0)
	p.single.Store(false)
	p.registry.DisconnectAll()

	p.log.WithField("stopped", stopped).Info("multi-device capture stopped")

	return &StopReport{
		Success:      true,
		Message:      fmt.Sprintf("Stopped attendance on %d devices", stopped),
		TasksStopped: stopped,
	}
}

// IsRunning reports whether at least one capture goroutine is live.
// When every task has died the pool reports stopped even before an
// explicit StopAll; the stop is still needed to clear the running
// flag and close the sessions.
func (p *Pool) IsRunning() bool {
	return p.running.Load() && p.tasks.Load() > 0
}

// ActiveTasks returns the number of capture goroutines currently live.
func (p *Pool) ActiveTasks() int {
	return int(p.tasks.Load())
}

func (p *Pool) run(dev Snapshot, conn zk.Conn, fn CaptureFunc) {
	defer p.wg.Done()
	defer p.tasks.Add(-1)

	log := p.log.WithFields(logrus.Fields{"device": dev.DeviceID, "name": dev.Name})
	log.Info("capture started")

	err := fn(p.ctx, dev, conn)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		log.Info("capture stopped")
	default:
		p.registry.setError(dev.DeviceID, err)
		log.WithError(err).Error("capture failed")
	}
}
