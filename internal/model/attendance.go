package model

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OfflineSuffix tags attendance day keys recorded without remote
// validation.
const OfflineSuffix = "_offline"

// AttendanceRecord is the value stored under an offline day key. It
// carries enough device context to replay the capture against the
// remote later.
type AttendanceRecord struct {
	Status         bool      `bson:"status" json:"status"`
	Timestamp      time.Time `bson:"timestamp" json:"timestamp"`
	Synced         bool      `bson:"synced" json:"synced"`
	DeviceID       string    `bson:"device_id" json:"device_id"`
	DeviceName     string    `bson:"device_name" json:"device_name"`
	DeviceLocation string    `bson:"device_location" json:"device_location"`
}

// DayKey returns the validated-day key for index n, e.g. "day3".
func DayKey(n int) string {
	return fmt.Sprintf("day%d", n)
}

// OfflineDayKey returns the offline-day key for index n, e.g.
// "day3_offline".
func OfflineDayKey(n int) string {
	return DayKey(n) + OfflineSuffix
}

// IsOfflineKey reports whether key carries the offline tag.
func IsOfflineKey(key string) bool {
	return strings.HasSuffix(key, OfflineSuffix)
}

// PlainKey strips the offline tag, turning "day3_offline" into "day3".
func PlainKey(key string) string {
	return strings.TrimSuffix(key, OfflineSuffix)
}

// NextDayIndex returns the first day index not yet present in the
// attendance map in either plain or offline form. Counting starts from
// the map length so indexes stay contiguous per capture mode.
func NextDayIndex(attendance map[string]any) int {
	n := len(attendance) + 1
	for {
		_, plain := attendance[DayKey(n)]
		_, offline := attendance[OfflineDayKey(n)]
		if !plain && !offline {
			return n
		}
		n++
	}
}

// RecordFrom converts a raw attendance value into an AttendanceRecord.
// Values written by this process are AttendanceRecord already; values
// read back through the BSON decoder arrive as maps. The second return
// is false for plain boolean days.
func RecordFrom(v any) (AttendanceRecord, bool) {
	switch rec := v.(type) {
	case AttendanceRecord:
		return rec, true
	case *AttendanceRecord:
		return *rec, true
	case primitive.M:
		return recordFromMap(map[string]any(rec)), true
	case map[string]any:
		return recordFromMap(rec), true
	default:
		return AttendanceRecord{}, false
	}
}

func recordFromMap(m map[string]any) AttendanceRecord {
	rec := AttendanceRecord{}
	if v, ok := m["status"].(bool); ok {
		rec.Status = v
	}
	if v, ok := m["synced"].(bool); ok {
		rec.Synced = v
	}
	if v, ok := m["device_id"].(string); ok {
		rec.DeviceID = v
	}
	if v, ok := m["device_name"].(string); ok {
		rec.DeviceName = v
	}
	if v, ok := m["device_location"].(string); ok {
		rec.DeviceLocation = v
	}
	rec.Timestamp = timeFrom(m["timestamp"])
	return rec
}

// timeFrom normalizes the timestamp representations the decoder can
// hand back: native time, BSON datetime, or an RFC 3339 string written
// by an older edge build.
func timeFrom(v any) time.Time {
	switch ts := v.(type) {
	case time.Time:
		return ts
	case primitive.DateTime:
		return ts.Time()
	case string:
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ValidatedDay reports whether the raw attendance value marks a
// remote-validated day (the plain boolean form).
func ValidatedDay(v any) bool {
	b, ok := v.(bool)
	return ok && b
}
