package zk

import (
	"context"
	"time"

	"github.com/attendd/attendd/pkg/zk/zkproto"
)

// User is a user record held by a scanner.
type User struct {
	UID       uint16
	Name      string
	Privilege byte
	Password  string
	Group     string
	UserID    string
	Card      uint32
}

// Template is a stored fingerprint template.
type Template struct {
	UID    uint16
	Finger uint8
	Data   []byte
}

// CaptureEvent is one fingerprint match pushed by a scanner during
// live capture.
type CaptureEvent struct {
	// UID is the numeric user identifier, 0 when the scanner-side
	// user id is not numeric.
	UID int

	// UserID is the user identifier exactly as the scanner stores it.
	UserID string

	// Timestamp is the scanner clock at match time.
	Timestamp time.Time
}

// Capacity reports a scanner's record usage.
type Capacity = zkproto.Capacity

// Conn is one live scanner session. Implementations are safe for
// concurrent use; commands are serialized per connection.
type Conn interface {
	// RemoteAddr returns the scanner address this session is bound to.
	RemoteAddr() string

	// Disable locks the scanner UI for privileged work.
	Disable(ctx context.Context) error

	// Enable releases the scanner UI.
	Enable(ctx context.Context) error

	// Users reads the scanner's user table.
	Users(ctx context.Context) ([]User, error)

	// SetUser writes a user record.
	SetUser(ctx context.Context, u User) error

	// DeleteUser removes a user and their templates.
	DeleteUser(ctx context.Context, uid uint16) error

	// Enroll drives an interactive enrollment for the given finger and
	// returns the stored template. ErrEnrollTimeout means no finger was
	// placed; ErrUserExists means the device refused a duplicate.
	Enroll(ctx context.Context, uid uint16, finger uint8) (*Template, error)

	// UserTemplate reads one stored template. Returns (nil, nil) when
	// the user has no template for that finger.
	UserTemplate(ctx context.Context, uid uint16, finger uint8) (*Template, error)

	// LiveCapture subscribes to fingerprint matches. The stream owns
	// the connection until ctx ends; the channel closes when the
	// stream stops for any reason.
	LiveCapture(ctx context.Context) (<-chan CaptureEvent, error)

	// Identify waits for a single fingerprint match and returns the
	// matching user record. Returns (nil, nil) when nobody pressed a
	// finger within the wait window.
	Identify(ctx context.Context) (*User, error)

	// CancelCapture aborts an in-progress enrollment or verification.
	CancelCapture(ctx context.Context) error

	// Version reads the firmware version string.
	Version(ctx context.Context) (string, error)

	// Capacity reads record usage counters.
	Capacity(ctx context.Context) (Capacity, error)

	// Close ends the session. Safe to call multiple times.
	Close() error
}

// Driver produces scanner connections. Implementations hold
// configuration only; all session state hangs off the Conn.
type Driver interface {
	// Connect dials a scanner and performs the session handshake.
	// A zero timeout applies the driver default.
	Connect(ctx context.Context, addr string, timeout time.Duration) (Conn, error)
}
