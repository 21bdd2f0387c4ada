package zkproto

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/attendd/attendd/pkg/prototrace"
)

// collectTracer records events for assertions.
type collectTracer struct {
	mu     sync.Mutex
	events []prototrace.Event
}

func (c *collectTracer) Log(e prototrace.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := BuildCommand(CmdConnect, 0, 65534, nil)

	if err := NewFrameWriter(&buf).WriteFrame(payload); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	// Header: magic + little-endian length
	raw := buf.Bytes()
	if !bytes.Equal(raw[:4], []byte{0x50, 0x50, 0x82, 0x7D}) {
		t.Errorf("bad magic: % X", raw[:4])
	}
	if raw[4] != byte(len(payload)) || raw[5] != 0 || raw[6] != 0 || raw[7] != 0 {
		t.Errorf("bad length field: % X", raw[4:8])
	}

	got, err := NewFrameReader(&buf).ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload = % X, want % X", got, payload)
	}
}

func TestFrameReaderBadMagic(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0x00, 0x01, 0x02, 0x03, 0x01, 0x00, 0x00, 0x00, 0xFF})
	_, err := NewFrameReader(buf).ReadFrame()
	if !errors.Is(err, ErrBadMagic) {
		t.Errorf("expected ErrBadMagic, got %v", err)
	}
}

func TestFrameReaderTruncated(t *testing.T) {
	t.Run("mid header", func(t *testing.T) {
		buf := bytes.NewBuffer([]byte{0x50, 0x50, 0x82})
		_, err := NewFrameReader(buf).ReadFrame()
		if !errors.Is(err, ErrFrameTruncated) {
			t.Errorf("expected ErrFrameTruncated, got %v", err)
		}
	})

	t.Run("mid payload", func(t *testing.T) {
		buf := bytes.NewBuffer([]byte{0x50, 0x50, 0x82, 0x7D, 0x08, 0x00, 0x00, 0x00, 0x01, 0x02})
		_, err := NewFrameReader(buf).ReadFrame()
		if !errors.Is(err, ErrFrameTruncated) {
			t.Errorf("expected ErrFrameTruncated, got %v", err)
		}
	})

	t.Run("clean EOF", func(t *testing.T) {
		_, err := NewFrameReader(bytes.NewBuffer(nil)).ReadFrame()
		if err != io.EOF {
			t.Errorf("expected io.EOF, got %v", err)
		}
	})
}

func TestFrameSizeLimits(t *testing.T) {
	t.Run("write empty", func(t *testing.T) {
		var buf bytes.Buffer
		err := NewFrameWriter(&buf).WriteFrame(nil)
		if !errors.Is(err, ErrFrameEmpty) {
			t.Errorf("expected ErrFrameEmpty, got %v", err)
		}
	})

	t.Run("read oversized", func(t *testing.T) {
		buf := bytes.NewBuffer([]byte{0x50, 0x50, 0x82, 0x7D, 0xFF, 0xFF, 0xFF, 0x7F})
		_, err := NewFrameReader(buf).ReadFrame()
		if !errors.Is(err, ErrFrameTooLarge) {
			t.Errorf("expected ErrFrameTooLarge, got %v", err)
		}
	})

	t.Run("read zero length", func(t *testing.T) {
		buf := bytes.NewBuffer([]byte{0x50, 0x50, 0x82, 0x7D, 0x00, 0x00, 0x00, 0x00})
		_, err := NewFrameReader(buf).ReadFrame()
		if !errors.Is(err, ErrFrameEmpty) {
			t.Errorf("expected ErrFrameEmpty, got %v", err)
		}
	})
}

func TestFramerTracing(t *testing.T) {
	var buf bytes.Buffer
	tracer := &collectTracer{}

	framer := NewFramer(&buf)
	framer.SetTracer(tracer, "conn-test")

	payload := BuildCommand(CmdExit, 3, 10, nil)
	if err := framer.WriteFrame(payload); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	if _, err := framer.ReadFrame(); err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}

	if len(tracer.events) != 2 {
		t.Fatalf("expected 2 trace events, got %d", len(tracer.events))
	}

	out, in := tracer.events[0], tracer.events[1]
	if out.Direction != prototrace.DirectionOut || in.Direction != prototrace.DirectionIn {
		t.Error("trace directions wrong")
	}
	for _, e := range tracer.events {
		if e.ConnectionID != "conn-test" {
			t.Errorf("trace conn id = %q", e.ConnectionID)
		}
		if e.Layer != prototrace.LayerTransport {
			t.Errorf("trace layer = %v", e.Layer)
		}
		if e.Frame == nil || e.Frame.Size != TCPHeaderSize+len(payload) {
			t.Errorf("trace frame size wrong: %+v", e.Frame)
		}
	}
}

func TestFrameTraceTruncation(t *testing.T) {
	var buf bytes.Buffer
	tracer := &collectTracer{}

	w := NewFrameWriter(&buf)
	w.SetTracer(tracer, "conn-big")

	big := make([]byte, MaxTraceFrameDataSize+100)
	if err := w.WriteFrame(big); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	if len(tracer.events) != 1 {
		t.Fatalf("expected 1 trace event, got %d", len(tracer.events))
	}
	frame := tracer.events[0].Frame
	if frame == nil {
		t.Fatal("no frame event")
	}
	if !frame.Truncated {
		t.Error("expected truncated trace data")
	}
	if len(frame.Data) != MaxTraceFrameDataSize {
		t.Errorf("trace data = %d bytes, want %d", len(frame.Data), MaxTraceFrameDataSize)
	}
}
