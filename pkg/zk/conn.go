package zk

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/attendd/attendd/pkg/prototrace"
	"github.com/attendd/attendd/pkg/zk/zkproto"
)

// initialReplyID seeds the reply counter so the first command carries a
// wire counter of zero.
const initialReplyID uint16 = 0xFFFE

// eventAckReplyID is the fixed counter used to ack realtime pushes.
// Pushes sit outside the reply sequence.
const eventAckReplyID uint16 = 0xFFFE

// capturePollInterval is the read deadline inside the live capture
// loop. Short deadlines keep context cancellation observable between
// pushes.
const capturePollInterval = time.Second

// captureBuffer is the capture channel depth. A slow consumer stalls
// the stream rather than dropping matches.
const captureBuffer = 16

// conn is a live scanner session over TCP.
type conn struct {
	netConn net.Conn
	framer  *zkproto.Framer
	addr    string
	opts    Options
	connID  string

	sessionID uint16
	replyID   uint16

	// cmdMu serializes command exchanges. A live capture holds it for
	// the stream's lifetime.
	cmdMu     sync.Mutex
	capturing atomic.Bool

	closeCh   chan struct{}
	closeOnce sync.Once
}

var _ Conn = (*conn)(nil)

// RemoteAddr returns the scanner address this session is bound to.
func (c *conn) RemoteAddr() string {
	return c.addr
}

// handshake performs the connect exchange, answering an AckUnauth
// challenge with the configured comm key.
func (c *conn) handshake(ctx context.Context) error {
	if err := c.setDeadline(ctx, c.opts.CommandTimeout); err != nil {
		return err
	}
	defer c.netConn.SetDeadline(time.Time{})

	if err := c.sendLocked(zkproto.CmdConnect, nil); err != nil {
		return err
	}
	pkt, err := c.readReplyLocked("connect")
	if err != nil {
		return err
	}

	// The connect reply carries the session id for everything after it.
	c.sessionID = pkt.SessionID

	if pkt.Command == zkproto.AckUnauth {
		if err := c.sendLocked(zkproto.CmdAuth, makeCommKey(c.opts.CommKey, c.sessionID)); err != nil {
			return err
		}
		pkt, err = c.readReplyLocked("auth")
		if err != nil {
			return err
		}
		if !pkt.OK() {
			return ErrUnauthorized
		}
		return nil
	}
	if !pkt.OK() {
		return fmt.Errorf("connect: %w", ErrCommandRejected)
	}
	return nil
}

// Disable locks the scanner UI for privileged work.
func (c *conn) Disable(ctx context.Context) error {
	_, err := c.run(ctx, zkproto.CmdDisableDevice, nil, "disable device")
	return err
}

// Enable releases the scanner UI.
func (c *conn) Enable(ctx context.Context) error {
	_, err := c.run(ctx, zkproto.CmdEnableDevice, nil, "enable device")
	return err
}

// CancelCapture aborts an in-progress enrollment or verification.
func (c *conn) CancelCapture(ctx context.Context) error {
	_, err := c.run(ctx, zkproto.CmdCancelCapture, nil, "cancel capture")
	return err
}

// Version reads the firmware version string.
func (c *conn) Version(ctx context.Context) (string, error) {
	data, err := c.run(ctx, zkproto.CmdDeviceVersion, nil, "read version")
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\x00"), nil
}

// Capacity reads record usage counters.
func (c *conn) Capacity(ctx context.Context) (Capacity, error) {
	if err := c.acquire(); err != nil {
		return Capacity{}, err
	}
	defer c.cmdMu.Unlock()
	return c.capacityLocked(ctx)
}

// Users reads the scanner's user table.
func (c *conn) Users(ctx context.Context) ([]User, error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.cmdMu.Unlock()

	sizes, err := c.capacityLocked(ctx)
	if err != nil {
		return nil, err
	}
	if sizes.Users == 0 {
		return []User{}, nil
	}

	data, err := c.bulkReadLocked(ctx, zkproto.CmdDBRrq, []byte{zkproto.FctUser}, "read users")
	if err != nil {
		return nil, err
	}
	records, err := zkproto.DecodeUserTable(data)
	if err != nil {
		return nil, fmt.Errorf("read users: %w", err)
	}
	users := make([]User, 0, len(records))
	for _, r := range records {
		users = append(users, User{
			UID:       r.UID,
			Name:      r.Name,
			Privilege: r.Privilege,
			Password:  r.Password,
			Group:     r.Group,
			UserID:    r.UserID,
			Card:      r.Card,
		})
	}
	return users, nil
}

// SetUser writes a user record and commits it to flash.
func (c *conn) SetUser(ctx context.Context, u User) error {
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.cmdMu.Unlock()
	return c.setUserLocked(ctx, u)
}

func (c *conn) setUserLocked(ctx context.Context, u User) error {
	userID := u.UserID
	if userID == "" {
		userID = strconv.Itoa(int(u.UID))
	}
	record := zkproto.UserRecord{
		UID:       u.UID,
		Privilege: u.Privilege,
		Password:  u.Password,
		Name:      u.Name,
		Card:      u.Card,
		Group:     u.Group,
		UserID:    userID,
	}
	if _, err := c.commandLocked(ctx, zkproto.CmdUserWrq, zkproto.EncodeUser(record), "write user"); err != nil {
		return err
	}
	_, err := c.commandLocked(ctx, zkproto.CmdRefreshData, nil, "refresh data")
	return err
}

// DeleteUser removes a user and their templates.
func (c *conn) DeleteUser(ctx context.Context, uid uint16) error {
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.cmdMu.Unlock()

	var payload [2]byte
	binary.LittleEndian.PutUint16(payload[:], uid)
	if _, err := c.commandLocked(ctx, zkproto.CmdDeleteUser, payload[:], "delete user"); err != nil {
		return err
	}
	_, err := c.commandLocked(ctx, zkproto.CmdRefreshData, nil, "refresh data")
	return err
}

// UserTemplate reads one stored template. Returns (nil, nil) when the
// user has no template for that finger.
func (c *conn) UserTemplate(ctx context.Context, uid uint16, finger uint8) (*Template, error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.cmdMu.Unlock()
	return c.userTemplateLocked(ctx, uid, finger)
}

// templatePad is the padding some firmware appends before the trailing
// size byte of a template transfer.
var templatePad [6]byte

func (c *conn) userTemplateLocked(ctx context.Context, uid uint16, finger uint8) (*Template, error) {
	req := make([]byte, 3)
	binary.LittleEndian.PutUint16(req, uid)
	req[2] = finger

	data, err := c.bulkReadLocked(ctx, zkproto.CmdGetUserTemp, req, "read template")
	if err != nil {
		if errors.Is(err, ErrCommandRejected) {
			// The device answers AckError when no template is stored.
			return nil, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	// The transfer carries one trailing size byte; some firmware pads
	// with six NULs before it.
	data = data[:len(data)-1]
	if len(data) >= 6 && bytes.Equal(data[len(data)-6:], templatePad[:]) {
		data = data[:len(data)-6]
	}
	if len(data) == 0 {
		return nil, nil
	}
	return &Template{UID: uid, Finger: finger, Data: data}, nil
}

// Enroll drives an interactive enrollment. The connection is owned by
// the enrollment until it resolves; the scanner is returned to
// identification mode afterwards regardless of outcome.
func (c *conn) Enroll(ctx context.Context, uid uint16, finger uint8) (*Template, error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.cmdMu.Unlock()

	c.traceState(prototrace.StateEntityEnrollment, "", "started",
		fmt.Sprintf("uid %d finger %d", uid, finger))

	// A stuck verify or capture keeps the sensor busy; clear it first.
	c.commandLocked(ctx, zkproto.CmdCancelCapture, nil, "cancel capture")

	if err := c.startEnrollLocked(ctx, uid, finger); err != nil {
		c.traceState(prototrace.StateEntityEnrollment, "started", "failed", err.Error())
		return nil, err
	}

	enrollEvents := uint32(zkproto.EventEnrollFinger) | uint32(zkproto.EventFingerPress)
	if _, err := c.commandLocked(ctx, zkproto.CmdRegEvent, eventFlags(enrollEvents), "register events"); err != nil {
		return nil, err
	}

	err := c.enrollWaitLocked(ctx)

	// Restore the scanner to identification mode whatever happened.
	c.commandLocked(ctx, zkproto.CmdRegEvent, eventFlags(0), "deregister events")
	c.commandLocked(ctx, zkproto.CmdStartVerify, nil, "start verify")

	if err != nil {
		c.traceState(prototrace.StateEntityEnrollment, "started", "failed", err.Error())
		return nil, err
	}
	c.traceState(prototrace.StateEntityEnrollment, "started", "succeeded", "")

	return c.userTemplateLocked(ctx, uid, finger)
}

// startEnrollLocked issues CmdStartEnroll, falling back to the legacy
// numeric form on firmware that rejects the string form.
func (c *conn) startEnrollLocked(ctx context.Context, uid uint16, finger uint8) error {
	form := make([]byte, 26)
	copy(form[:24], strconv.Itoa(int(uid)))
	form[24] = finger
	form[25] = 1

	_, err := c.commandLocked(ctx, zkproto.CmdStartEnroll, form, "start enroll")
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrCommandRejected) {
		return err
	}

	legacy := make([]byte, 5)
	binary.LittleEndian.PutUint32(legacy, uint32(uid))
	legacy[4] = finger
	if _, err := c.commandLocked(ctx, zkproto.CmdStartEnroll, legacy, "start enroll"); err != nil {
		if errors.Is(err, ErrCommandRejected) {
			return fmt.Errorf("start enroll: %w", ErrEnrollFailed)
		}
		return err
	}
	return nil
}

// enrollWaitLocked consumes realtime pushes until the enrollment
// resolves. The session field of a realtime packet carries the event
// code; EventEnrollFinger carries the final result.
func (c *conn) enrollWaitLocked(ctx context.Context) error {
	defer c.netConn.SetDeadline(time.Time{})

	stage := 0
	for {
		if err := c.setDeadline(ctx, c.opts.EnrollStageTimeout); err != nil {
			return err
		}
		pkt, err := c.readPacketLocked("enroll")
		if err != nil {
			if errors.Is(err, ErrTimeout) {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return ErrEnrollTimeout
			}
			return err
		}
		if pkt.Command != zkproto.CmdRegEvent {
			// Stray ack from the setup exchange.
			continue
		}
		c.ackEventLocked()

		switch pkt.SessionID {
		case zkproto.EventFingerPress:
			stage++
			c.traceState(prototrace.StateEntityEnrollment, "", fmt.Sprintf("stage %d", stage), "")
		case zkproto.EventEnrollFinger:
			if len(pkt.Data) < 2 {
				return fmt.Errorf("enroll: %w", ErrBadReply)
			}
			switch result := binary.LittleEndian.Uint16(pkt.Data); result {
			case 0:
				return nil
			case 6:
				return ErrUserExists
			default:
				return fmt.Errorf("%w: device result %d", ErrEnrollFailed, result)
			}
		}
	}
}

// LiveCapture subscribes to fingerprint matches. The stream goroutine
// owns the connection until ctx ends or the connection closes.
func (c *conn) LiveCapture(ctx context.Context) (<-chan CaptureEvent, error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}

	if err := c.captureSetupLocked(ctx); err != nil {
		c.cmdMu.Unlock()
		return nil, err
	}
	c.capturing.Store(true)
	c.traceState(prototrace.StateEntityCapture, "", "started", "")

	ch := make(chan CaptureEvent, captureBuffer)
	go c.captureLoop(ctx, ch)
	return ch, nil
}

// captureSetupLocked clears any stuck enrollment, returns the sensor to
// identification mode and subscribes to attendance pushes.
func (c *conn) captureSetupLocked(ctx context.Context) error {
	c.commandLocked(ctx, zkproto.CmdCancelCapture, nil, "cancel capture")
	if _, err := c.commandLocked(ctx, zkproto.CmdStartVerify, nil, "start verify"); err != nil {
		return err
	}
	if _, err := c.commandLocked(ctx, zkproto.CmdEnableDevice, nil, "enable device"); err != nil {
		return err
	}
	if _, err := c.commandLocked(ctx, zkproto.CmdRegEvent, eventFlags(uint32(zkproto.EventAttLog)), "register events"); err != nil {
		return err
	}
	return nil
}

func (c *conn) captureLoop(ctx context.Context, ch chan<- CaptureEvent) {
	defer func() {
		c.captureTeardownLocked()
		c.capturing.Store(false)
		c.cmdMu.Unlock()
		close(ch)
		c.traceState(prototrace.StateEntityCapture, "started", "stopped", "")
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		select {
		case <-c.closeCh:
			return
		default:
		}

		c.netConn.SetReadDeadline(time.Now().Add(capturePollInterval))
		payload, err := c.framer.ReadFrame()
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				continue
			}
			c.traceError("live capture", err)
			return
		}
		pkt, err := zkproto.ParsePacket(payload)
		if err != nil {
			continue
		}
		c.tracePacket(prototrace.DirectionIn, pkt)
		if pkt.Command != zkproto.CmdRegEvent || pkt.SessionID != zkproto.EventAttLog {
			continue
		}
		c.ackEventLocked()

		for _, lg := range zkproto.ParseAttLogs(pkt.Data) {
			ev := CaptureEvent{UserID: lg.UserID, Timestamp: lg.Timestamp}
			if uid, err := strconv.Atoi(lg.UserID); err == nil {
				ev.UID = uid
			}
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			case <-c.closeCh:
				return
			}
		}
	}
}

// captureTeardownLocked deregisters pushes so a later command exchange
// is not interleaved with stray events.
func (c *conn) captureTeardownLocked() {
	select {
	case <-c.closeCh:
		return
	default:
	}

	c.netConn.SetDeadline(time.Now().Add(2 * time.Second))
	defer c.netConn.SetDeadline(time.Time{})
	if err := c.sendLocked(zkproto.CmdRegEvent, eventFlags(0)); err != nil {
		return
	}
	c.readReplyLocked("deregister events")
}

// Identify waits for a single fingerprint match and resolves it against
// the scanner's user table. Returns (nil, nil) when nobody pressed a
// finger within the wait window.
func (c *conn) Identify(ctx context.Context) (*User, error) {
	var (
		waitCtx context.Context
		cancel  context.CancelFunc
	)
	if _, ok := ctx.Deadline(); !ok {
		waitCtx, cancel = context.WithTimeout(ctx, c.opts.EnrollStageTimeout)
	} else {
		waitCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	events, err := c.LiveCapture(waitCtx)
	if err != nil {
		return nil, err
	}

	var hit *CaptureEvent
	for ev := range events {
		if hit == nil {
			first := ev
			hit = &first
			cancel()
		}
	}
	if hit == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	users, err := c.Users(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		u := &users[i]
		if u.UserID == hit.UserID || (hit.UID != 0 && int(u.UID) == hit.UID) {
			return u, nil
		}
	}

	// The scanner matched a record the table read does not carry.
	out := &User{UserID: hit.UserID}
	if hit.UID > 0 && hit.UID <= 0xFFFF {
		out.UID = uint16(hit.UID)
	}
	return out, nil
}

// Close ends the session. Safe to call multiple times.
func (c *conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)

		// Best-effort goodbye so the scanner frees the session slot.
		c.netConn.SetWriteDeadline(time.Now().Add(time.Second))
		c.framer.WriteFrame(zkproto.BuildCommand(zkproto.CmdExit, c.sessionID, eventAckReplyID, nil))

		err = c.netConn.Close()
		c.traceState(prototrace.StateEntityConnection, "connected", "closed", "")
	})
	return err
}

// acquire serializes command exchanges. It fails fast while a live
// capture owns the connection instead of queueing behind it.
func (c *conn) acquire() error {
	if c.capturing.Load() {
		return ErrCaptureActive
	}
	select {
	case <-c.closeCh:
		return ErrConnectionClosed
	default:
	}
	c.cmdMu.Lock()
	return nil
}

// run executes one command round trip under the connection lock.
func (c *conn) run(ctx context.Context, cmd uint16, data []byte, op string) ([]byte, error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.cmdMu.Unlock()
	return c.commandLocked(ctx, cmd, data, op)
}

func (c *conn) capacityLocked(ctx context.Context) (Capacity, error) {
	data, err := c.commandLocked(ctx, zkproto.CmdGetFreeSizes, nil, "read sizes")
	if err != nil {
		return Capacity{}, err
	}
	sizes, err := zkproto.DecodeCapacity(data)
	if err != nil {
		return Capacity{}, fmt.Errorf("read sizes: %w", err)
	}
	return sizes, nil
}

// commandLocked runs one exchange and maps the ack to an error.
func (c *conn) commandLocked(ctx context.Context, cmd uint16, data []byte, op string) ([]byte, error) {
	pkt, err := c.roundTripLocked(ctx, cmd, data, op)
	if err != nil {
		return nil, err
	}
	switch pkt.Command {
	case zkproto.AckOK, zkproto.AckData:
		return pkt.Data, nil
	case zkproto.AckError:
		return nil, fmt.Errorf("%s: %w", op, ErrCommandRejected)
	case zkproto.AckUnauth:
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	default:
		return nil, fmt.Errorf("%s: unexpected %s: %w", op, zkproto.CommandName(pkt.Command), ErrBadReply)
	}
}

func (c *conn) roundTripLocked(ctx context.Context, cmd uint16, data []byte, op string) (zkproto.Packet, error) {
	if err := c.setDeadline(ctx, c.opts.CommandTimeout); err != nil {
		return zkproto.Packet{}, err
	}
	defer c.netConn.SetDeadline(time.Time{})

	if err := c.sendLocked(cmd, data); err != nil {
		return zkproto.Packet{}, err
	}
	return c.readReplyLocked(op)
}

// bulkReadLocked runs a table read. Small tables arrive inline as
// AckData; larger ones arrive as CmdPrepareData followed by CmdData
// chunks and an AckOK trailer, after which the device-side buffer is
// released with CmdFreeData.
func (c *conn) bulkReadLocked(ctx context.Context, cmd uint16, data []byte, op string) ([]byte, error) {
	if err := c.setDeadline(ctx, c.opts.CommandTimeout); err != nil {
		return nil, err
	}
	defer c.netConn.SetDeadline(time.Time{})

	if err := c.sendLocked(cmd, data); err != nil {
		return nil, err
	}

	var (
		buf     []byte
		total   uint32
		started bool
	)
	for {
		pkt, err := c.readPacketLocked(op)
		if err != nil {
			return nil, err
		}
		switch pkt.Command {
		case zkproto.CmdRegEvent:
			c.ackEventLocked()
		case zkproto.AckData:
			return append([]byte(nil), pkt.Data...), nil
		case zkproto.CmdPrepareData:
			if len(pkt.Data) < 4 {
				return nil, fmt.Errorf("%s: %w", op, ErrBadReply)
			}
			total = binary.LittleEndian.Uint32(pkt.Data)
			buf = make([]byte, 0, total)
			started = true
		case zkproto.CmdData:
			if !started {
				return nil, fmt.Errorf("%s: %w", op, ErrBadReply)
			}
			buf = append(buf, pkt.Data...)
			// Large tables span many frames; keep the deadline moving.
			if err := c.setDeadline(ctx, c.opts.CommandTimeout); err != nil {
				return nil, err
			}
		case zkproto.AckOK:
			if !started {
				return nil, nil
			}
			if uint32(len(buf)) < total {
				return nil, fmt.Errorf("%s: %w: got %d of %d bytes", op, ErrBadReply, len(buf), total)
			}
			if err := c.freeDataLocked(); err != nil {
				return nil, err
			}
			return buf[:total], nil
		case zkproto.AckError:
			return nil, fmt.Errorf("%s: %w", op, ErrCommandRejected)
		case zkproto.AckUnauth:
			return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
		default:
			return nil, fmt.Errorf("%s: unexpected %s: %w", op, zkproto.CommandName(pkt.Command), ErrBadReply)
		}
	}
}

func (c *conn) freeDataLocked() error {
	if err := c.sendLocked(zkproto.CmdFreeData, nil); err != nil {
		return err
	}
	pkt, err := c.readReplyLocked("free data")
	if err != nil {
		return err
	}
	if !pkt.OK() {
		return fmt.Errorf("free data: %w", ErrCommandRejected)
	}
	return nil
}

// sendLocked encodes and writes one command packet.
func (c *conn) sendLocked(cmd uint16, data []byte) error {
	select {
	case <-c.closeCh:
		return ErrConnectionClosed
	default:
	}
	payload := zkproto.BuildCommand(cmd, c.sessionID, c.replyID, data)
	if err := c.framer.WriteFrame(payload); err != nil {
		return fmt.Errorf("send %s: %w", zkproto.CommandName(cmd), err)
	}
	c.tracePacket(prototrace.DirectionOut, zkproto.Packet{
		Command:   cmd,
		SessionID: c.sessionID,
		ReplyID:   c.replyID,
		Data:      data,
	})
	return nil
}

// readReplyLocked reads packets until a non-push reply arrives. Stray
// realtime pushes left over from an earlier registration are acked and
// dropped.
func (c *conn) readReplyLocked(op string) (zkproto.Packet, error) {
	for {
		pkt, err := c.readPacketLocked(op)
		if err != nil {
			return zkproto.Packet{}, err
		}
		if pkt.Command == zkproto.CmdRegEvent {
			c.ackEventLocked()
			continue
		}
		return pkt, nil
	}
}

// readPacketLocked reads one packet and advances the reply counter.
// Realtime pushes do not thread through the reply sequence and leave
// the counter untouched.
func (c *conn) readPacketLocked(op string) (zkproto.Packet, error) {
	payload, err := c.framer.ReadFrame()
	if err != nil {
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			return zkproto.Packet{}, fmt.Errorf("%s: %w", op, ErrTimeout)
		}
		select {
		case <-c.closeCh:
			return zkproto.Packet{}, ErrConnectionClosed
		default:
		}
		return zkproto.Packet{}, fmt.Errorf("%s: %w", op, err)
	}
	pkt, err := zkproto.ParsePacket(payload)
	if err != nil {
		return zkproto.Packet{}, fmt.Errorf("%s: %w: %v", op, ErrBadReply, err)
	}
	if pkt.Command != zkproto.CmdRegEvent {
		c.replyID = pkt.ReplyID
	}
	c.tracePacket(prototrace.DirectionIn, pkt)
	return pkt, nil
}

// ackEventLocked acks one realtime push. Write failures surface on the
// next read, so they are ignored here.
func (c *conn) ackEventLocked() {
	c.framer.WriteFrame(zkproto.BuildCommand(zkproto.AckOK, c.sessionID, eventAckReplyID, nil))
}

// setDeadline arms the socket deadline from the shorter of the given
// duration and the context deadline.
func (c *conn) setDeadline(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline := time.Now().Add(d)
	if cd, ok := ctx.Deadline(); ok && cd.Before(deadline) {
		deadline = cd
	}
	return c.netConn.SetDeadline(deadline)
}

func eventFlags(flags uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, flags)
	return b
}

func (c *conn) tracePacket(dir prototrace.Direction, pkt zkproto.Packet) {
	if c.opts.Tracer == nil {
		return
	}
	category := prototrace.CategoryMessage
	if pkt.Command == zkproto.CmdRegEvent {
		category = prototrace.CategoryPush
	}
	c.opts.Tracer.Log(prototrace.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Direction:    dir,
		Layer:        prototrace.LayerPacket,
		Category:     category,
		DeviceID:     c.opts.TraceDeviceID,
		RemoteAddr:   c.addr,
		Packet: &prototrace.PacketEvent{
			Command:   pkt.Command,
			SessionID: pkt.SessionID,
			ReplyID:   pkt.ReplyID,
			DataSize:  len(pkt.Data),
		},
	})
}

func (c *conn) traceState(entity prototrace.StateEntity, oldState, newState, reason string) {
	if c.opts.Tracer == nil {
		return
	}
	c.opts.Tracer.Log(prototrace.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Layer:        prototrace.LayerDriver,
		Category:     prototrace.CategoryState,
		DeviceID:     c.opts.TraceDeviceID,
		RemoteAddr:   c.addr,
		StateChange: &prototrace.StateChangeEvent{
			Entity:   entity,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

func (c *conn) traceError(opCtx string, err error) {
	if c.opts.Tracer == nil {
		return
	}
	c.opts.Tracer.Log(prototrace.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Layer:        prototrace.LayerDriver,
		Category:     prototrace.CategoryError,
		DeviceID:     c.opts.TraceDeviceID,
		RemoteAddr:   c.addr,
		Error: &prototrace.ErrorEventData{
			Layer:   prototrace.LayerDriver,
			Message: err.Error(),
			Context: opCtx,
		},
	})
}
