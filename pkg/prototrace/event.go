package prototrace

import (
	"time"
)

// Event represents one traced protocol event. CBOR encoding uses
// integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the device connection (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow relative to this process.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// DeviceID is the configured scanner identifier.
	DeviceID string `cbor:"6,keyasint,omitempty"`

	// RemoteAddr is the scanner address (IP:port).
	RemoteAddr string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (exactly one is set).
	Frame       *FrameEvent       `cbor:"8,keyasint,omitempty"`
	Packet      *PacketEvent      `cbor:"9,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"10,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"11,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates bytes received from the scanner.
	DirectionIn Direction = 0
	// DirectionOut indicates bytes sent to the scanner.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerTransport is the framing layer (raw bytes).
	LayerTransport Layer = 0
	// LayerPacket is the command codec layer (decoded headers).
	LayerPacket Layer = 1
	// LayerDriver is the driver lifecycle layer.
	LayerDriver Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerPacket:
		return "PACKET"
	case LayerDriver:
		return "DRIVER"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a command/reply exchange.
	CategoryMessage Category = 0
	// CategoryPush indicates an unsolicited realtime packet from the
	// scanner (live capture traffic).
	CategoryPush Category = 1
	// CategoryState indicates a lifecycle state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryPush:
		return "PUSH"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the full frame size in bytes including the TCP header.
	Size int `cbor:"1,keyasint"`

	// Data is the frame payload (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates whether Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// PacketEvent captures a decoded command packet.
type PacketEvent struct {
	// Command is the numeric command or ack code.
	Command uint16 `cbor:"1,keyasint"`

	// SessionID is the device session the packet belongs to.
	SessionID uint16 `cbor:"2,keyasint"`

	// ReplyID is the packet's reply counter value.
	ReplyID uint16 `cbor:"3,keyasint"`

	// DataSize is the payload size in bytes.
	DataSize int `cbor:"4,keyasint"`
}

// StateChangeEvent captures connection and capture lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityConnection indicates a device connection state change.
	StateEntityConnection StateEntity = 0
	// StateEntityCapture indicates a live-capture stream state change.
	StateEntityCapture StateEntity = 1
	// StateEntityEnrollment indicates an enrollment sequence state change.
	StateEntityEnrollment StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntityCapture:
		return "CAPTURE"
	case StateEntityEnrollment:
		return "ENROLLMENT"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
