package zk

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/attendd/attendd/pkg/prototrace"
	"github.com/attendd/attendd/pkg/zk/zkproto"
)

// Default driver timeouts.
const (
	// DefaultConnectTimeout bounds dial plus handshake.
	DefaultConnectTimeout = 10 * time.Second

	// DefaultCommandTimeout bounds one command round trip.
	DefaultCommandTimeout = 8 * time.Second

	// DefaultEnrollStageTimeout bounds one enrollment stage. The scanner
	// waits for a finger press between stages, so this is generous.
	DefaultEnrollStageTimeout = 60 * time.Second
)

// Options configures a TCPDriver.
type Options struct {
	// CommKey is the device communication password. Zero disables the
	// CmdAuth exchange unless the device demands one.
	CommKey uint32

	// ConnectTimeout bounds Connect when neither the caller's context
	// nor the timeout argument carries a deadline (default: 10s).
	ConnectTimeout time.Duration

	// CommandTimeout bounds each command round trip (default: 8s).
	CommandTimeout time.Duration

	// EnrollStageTimeout bounds each enrollment stage (default: 60s).
	EnrollStageTimeout time.Duration

	// Tracer receives protocol trace events. Nil disables tracing.
	Tracer prototrace.Logger

	// TraceDeviceID tags trace events with a device identity.
	TraceDeviceID string
}

// TCPDriver connects to scanners over TCP.
type TCPDriver struct {
	opts Options
}

// NewTCPDriver creates a driver with the given options.
func NewTCPDriver(opts Options) *TCPDriver {
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.CommandTimeout == 0 {
		opts.CommandTimeout = DefaultCommandTimeout
	}
	if opts.EnrollStageTimeout == 0 {
		opts.EnrollStageTimeout = DefaultEnrollStageTimeout
	}
	return &TCPDriver{opts: opts}
}

var _ Driver = (*TCPDriver)(nil)

// Connect dials a scanner and performs the connect handshake, including
// the CmdAuth exchange when the device demands one.
func (d *TCPDriver) Connect(ctx context.Context, addr string, timeout time.Duration) (Conn, error) {
	if timeout == 0 {
		timeout = d.opts.ConnectTimeout
	}

	// Apply timeout from options if context doesn't have one
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	dialer := &net.Dialer{}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectError{Addr: addr, Err: err}
	}

	c := &conn{
		netConn: netConn,
		framer:  zkproto.NewFramer(netConn),
		addr:    addr,
		opts:    d.opts,
		connID:  uuid.New().String(),
		replyID: initialReplyID,
		closeCh: make(chan struct{}),
	}
	if d.opts.Tracer != nil {
		c.framer.SetTracer(d.opts.Tracer, c.connID)
	}

	if err := c.handshake(ctx); err != nil {
		netConn.Close()
		return nil, &ConnectError{Addr: addr, Err: err}
	}

	c.traceState(prototrace.StateEntityConnection, "", "connected",
		fmt.Sprintf("session %d", c.sessionID))
	return c, nil
}
