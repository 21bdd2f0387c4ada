package zkproto

import (
	"encoding/binary"
	"strconv"
	"time"
)

// AttLog is one realtime attendance push decoded from a CmdRegEvent
// packet payload.
type AttLog struct {
	// UserID is the user identifier as the scanner stores it.
	UserID string

	// Status is the firmware attendance state code.
	Status byte

	// Punch is the firmware punch type code.
	Punch byte

	// Timestamp is the scanner clock at match time.
	Timestamp time.Time
}

// ParseAttLogs decodes the payload of a realtime attendance push.
// Firmware generations pack entries in several widths; the width is
// inferred from the remaining payload length. Entries with widths
// outside the known set end the parse.
func ParseAttLogs(data []byte) []AttLog {
	var logs []AttLog
	for len(data) >= 10 {
		var entry AttLog
		switch {
		case len(data) == 10:
			entry.UserID = uitoa(uint32(binary.LittleEndian.Uint16(data[0:])))
			entry.Status = data[2]
			entry.Punch = data[3]
			entry.Timestamp = decodeTimeHex(data[4:10])
			data = data[10:]
		case len(data) == 12:
			entry.UserID = uitoa(binary.LittleEndian.Uint32(data[0:]))
			entry.Status = data[4]
			entry.Punch = data[5]
			entry.Timestamp = decodeTimeHex(data[6:12])
			data = data[12:]
		case len(data) == 14:
			entry.UserID = uitoa(uint32(binary.LittleEndian.Uint16(data[0:])))
			entry.Status = data[2]
			entry.Punch = data[3]
			entry.Timestamp = decodeTimeHex(data[4:10])
			data = data[14:]
		case len(data) >= 36:
			entry.UserID = trimPadded(data[0:24])
			entry.Status = data[24]
			entry.Punch = data[25]
			entry.Timestamp = decodeTimeHex(data[26:32])
			data = data[36:]
		case len(data) >= 32:
			entry.UserID = trimPadded(data[0:24])
			entry.Status = data[24]
			entry.Punch = data[25]
			entry.Timestamp = decodeTimeHex(data[26:32])
			data = data[32:]
		default:
			return logs
		}
		logs = append(logs, entry)
	}
	return logs
}

// decodeTimeHex decodes the six-byte scanner clock encoding:
// year-2000, month, day, hour, minute, second.
func decodeTimeHex(b []byte) time.Time {
	return time.Date(2000+int(b[0]), time.Month(b[1]), int(b[2]),
		int(b[3]), int(b[4]), int(b[5]), 0, time.Local)
}

// EncodeTimeHex encodes a timestamp into the six-byte scanner clock
// form. Used by tests and the console's clock tooling.
func EncodeTimeHex(t time.Time) []byte {
	return []byte{
		byte(t.Year() - 2000),
		byte(t.Month()),
		byte(t.Day()),
		byte(t.Hour()),
		byte(t.Minute()),
		byte(t.Second()),
	}
}

func uitoa(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}
