package zkproto

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/attendd/attendd/pkg/prototrace"
)

// Framing constants.
const (
	// TCPHeaderSize is the size of the frame header in bytes.
	TCPHeaderSize = 8

	// DefaultMaxPayloadSize is the default maximum payload size (1 MB).
	// Bulk template transfers arrive in frames well under this.
	DefaultMaxPayloadSize = 1 << 20

	// MaxTraceFrameDataSize is the maximum payload size included in
	// trace events. Larger payloads are truncated in the trace.
	MaxTraceFrameDataSize = 4096
)

// tcpMagic opens every frame.
var tcpMagic = [4]byte{0x50, 0x50, 0x82, 0x7D}

// Framing errors.
var (
	// ErrBadMagic indicates the stream is not speaking this protocol.
	ErrBadMagic = errors.New("bad frame magic")

	// ErrFrameTooLarge indicates the payload exceeds the maximum size.
	ErrFrameTooLarge = errors.New("frame too large")

	// ErrFrameEmpty indicates a zero-length payload.
	ErrFrameEmpty = errors.New("frame is empty")

	// ErrFrameTruncated indicates the stream ended mid-frame.
	ErrFrameTruncated = errors.New("frame truncated")
)

// FrameWriter writes protocol frames to an underlying writer.
type FrameWriter struct {
	w              io.Writer
	maxPayloadSize uint32
	mu             sync.Mutex

	// Tracing support (optional)
	tracer prototrace.Logger
	connID string
}

// NewFrameWriter creates a new frame writer.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{
		w:              w,
		maxPayloadSize: DefaultMaxPayloadSize,
	}
}

// SetTracer configures tracing for this writer.
// Pass nil to disable tracing.
func (fw *FrameWriter) SetTracer(tracer prototrace.Logger, connID string) {
	fw.tracer = tracer
	fw.connID = connID
}

// WriteFrame writes one frame carrying the given payload.
// Thread-safe: can be called from multiple goroutines.
func (fw *FrameWriter) WriteFrame(payload []byte) error {
	if len(payload) == 0 {
		return ErrFrameEmpty
	}
	if uint32(len(payload)) > fw.maxPayloadSize {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, len(payload), fw.maxPayloadSize)
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	var header [TCPHeaderSize]byte
	copy(header[:4], tcpMagic[:])
	binary.LittleEndian.PutUint32(header[4:], uint32(len(payload)))

	if _, err := fw.w.Write(header[:]); err != nil {
		return fmt.Errorf("failed to write frame header: %w", err)
	}
	if _, err := fw.w.Write(payload); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}

	if fw.tracer != nil {
		fw.tracer.Log(makeFrameEvent(fw.connID, payload, prototrace.DirectionOut))
	}

	return nil
}

// FrameReader reads protocol frames from an underlying reader.
type FrameReader struct {
	r              io.Reader
	maxPayloadSize uint32
	headerBuf      [TCPHeaderSize]byte

	// Tracing support (optional)
	tracer prototrace.Logger
	connID string
}

// NewFrameReader creates a new frame reader.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{
		r:              r,
		maxPayloadSize: DefaultMaxPayloadSize,
	}
}

// SetTracer configures tracing for this reader.
// Pass nil to disable tracing.
func (fr *FrameReader) SetTracer(tracer prototrace.Logger, connID string) {
	fr.tracer = tracer
	fr.connID = connID
}

// SetMaxPayloadSize updates the maximum payload size.
func (fr *FrameReader) SetMaxPayloadSize(size uint32) {
	fr.maxPayloadSize = size
}

// ReadFrame reads one frame and returns its payload.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	if _, err := io.ReadFull(fr.r, fr.headerBuf[:]); err != nil {
		if err == io.EOF {
			return nil, err
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("failed to read frame header: %w", err)
	}

	if !bytes.Equal(fr.headerBuf[:4], tcpMagic[:]) {
		return nil, ErrBadMagic
	}

	length := binary.LittleEndian.Uint32(fr.headerBuf[4:])
	if length == 0 {
		return nil, ErrFrameEmpty
	}
	if length > fr.maxPayloadSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, length, fr.maxPayloadSize)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(fr.r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || err == io.EOF {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	if fr.tracer != nil {
		fr.tracer.Log(makeFrameEvent(fr.connID, payload, prototrace.DirectionIn))
	}

	return payload, nil
}

// makeFrameEvent creates a trace event for a frame.
func makeFrameEvent(connID string, payload []byte, direction prototrace.Direction) prototrace.Event {
	frameData := payload
	truncated := false
	if len(payload) > MaxTraceFrameDataSize {
		frameData = payload[:MaxTraceFrameDataSize]
		truncated = true
	}

	return prototrace.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    direction,
		Layer:        prototrace.LayerTransport,
		Category:     prototrace.CategoryMessage,
		Frame: &prototrace.FrameEvent{
			Size:      TCPHeaderSize + len(payload),
			Data:      frameData,
			Truncated: truncated,
		},
	}
}

// Framer combines frame reading and writing over one connection.
type Framer struct {
	*FrameReader
	*FrameWriter
}

// NewFramer creates a framer for bidirectional communication.
func NewFramer(rw io.ReadWriter) *Framer {
	return &Framer{
		FrameReader: NewFrameReader(rw),
		FrameWriter: NewFrameWriter(rw),
	}
}

// SetTracer configures tracing for both reader and writer.
// Pass nil to disable tracing.
func (f *Framer) SetTracer(tracer prototrace.Logger, connID string) {
	f.FrameReader.SetTracer(tracer, connID)
	f.FrameWriter.SetTracer(tracer, connID)
}
