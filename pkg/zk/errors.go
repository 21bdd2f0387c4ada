package zk

import (
	"errors"
	"fmt"
)

// Driver errors.
var (
	// ErrConnectionClosed indicates the connection was closed.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrTimeout indicates the device did not answer in time.
	ErrTimeout = errors.New("device timed out")

	// ErrCommandRejected indicates the device answered AckError.
	ErrCommandRejected = errors.New("device rejected command")

	// ErrUnauthorized indicates the device demands a comm key the
	// driver does not hold (or the configured key is wrong).
	ErrUnauthorized = errors.New("device refused comm key")

	// ErrBadReply indicates a reply that does not decode.
	ErrBadReply = errors.New("malformed device reply")

	// ErrEnrollTimeout indicates no finger was placed within the
	// enrollment stage window.
	ErrEnrollTimeout = errors.New("enrollment timed out waiting for finger")

	// ErrEnrollFailed indicates the device aborted the enrollment.
	ErrEnrollFailed = errors.New("enrollment failed")

	// ErrUserExists indicates the device already holds a template for
	// the user and refused to enroll another.
	ErrUserExists = errors.New("user already enrolled on device")

	// ErrCaptureActive indicates a live capture owns the connection.
	ErrCaptureActive = errors.New("live capture in progress")
)

// ConnectError reports a failed connection attempt. It wraps the
// underlying dial or handshake error.
type ConnectError struct {
	Addr string
	Err  error
}

// Error implements the error interface.
func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Addr, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConnectError) Unwrap() error {
	return e.Err
}
