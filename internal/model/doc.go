// Package model defines the documents the coordinator persists locally
// and the payloads it exchanges with the edge API.
//
// # Collections
//
// Four MongoDB collections back the coordinator:
//
//	students             canonical local student records
//	missing_students     students created offline, queued for sync
//	counters             named monotonic counters (uid allocation)
//	fingerprint_sessions append-only capture audit log
//
// # Attendance Map
//
// A student's attendance is a map from day keys to values. A plain key
// ("day3") holds the boolean true and means the remote validated the
// day. An offline key ("day3_offline") holds an AttendanceRecord and
// means the day was captured while the remote was unreachable; the sync
// worker later promotes it to the plain form or drops it.
//
// Values read back from BSON arrive as bool, bson.M, or time wrappers
// depending on who wrote them, so callers go through the conversion
// helpers instead of type-asserting directly.
package model
