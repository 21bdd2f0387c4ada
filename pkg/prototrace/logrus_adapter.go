package prototrace

import (
	"github.com/sirupsen/logrus"
)

// LogrusAdapter mirrors trace events into an operational logrus logger.
// Useful for development when you want protocol traffic on the console.
type LogrusAdapter struct {
	logger *logrus.Logger
}

// NewLogrusAdapter creates a LogrusAdapter writing to the given logger.
func NewLogrusAdapter(logger *logrus.Logger) *LogrusAdapter {
	return &LogrusAdapter{logger: logger}
}

// Log writes the event at Debug level.
func (a *LogrusAdapter) Log(event Event) {
	fields := logrus.Fields{
		"conn_id":   event.ConnectionID,
		"direction": event.Direction.String(),
		"layer":     event.Layer.String(),
		"category":  event.Category.String(),
	}

	if event.DeviceID != "" {
		fields["device_id"] = event.DeviceID
	}
	if event.RemoteAddr != "" {
		fields["remote_addr"] = event.RemoteAddr
	}

	switch {
	case event.Frame != nil:
		fields["frame_size"] = event.Frame.Size
		if event.Frame.Truncated {
			fields["truncated"] = true
		}
	case event.Packet != nil:
		fields["command"] = event.Packet.Command
		fields["session_id"] = event.Packet.SessionID
		fields["reply_id"] = event.Packet.ReplyID
		fields["data_size"] = event.Packet.DataSize
	case event.StateChange != nil:
		fields["entity"] = event.StateChange.Entity.String()
		fields["old_state"] = event.StateChange.OldState
		fields["new_state"] = event.StateChange.NewState
		if event.StateChange.Reason != "" {
			fields["reason"] = event.StateChange.Reason
		}
	case event.Error != nil:
		fields["error_layer"] = event.Error.Layer.String()
		fields["error_msg"] = event.Error.Message
		if event.Error.Context != "" {
			fields["error_context"] = event.Error.Context
		}
	}

	a.logger.WithFields(fields).Debug("protocol")
}

// Compile-time interface satisfaction check.
var _ Logger = (*LogrusAdapter)(nil)
