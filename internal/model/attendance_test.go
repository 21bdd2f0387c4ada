package model

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDayKeys(t *testing.T) {
	if got := DayKey(3); got != "day3" {
		t.Errorf("expected day3, got %s", got)
	}
	if got := OfflineDayKey(3); got != "day3_offline" {
		t.Errorf("expected day3_offline, got %s", got)
	}
	if !IsOfflineKey("day7_offline") {
		t.Error("expected day7_offline to be an offline key")
	}
	if IsOfflineKey("day7") {
		t.Error("expected day7 to be a plain key")
	}
	if got := PlainKey("day7_offline"); got != "day7" {
		t.Errorf("expected day7, got %s", got)
	}
	if got := PlainKey("day7"); got != "day7" {
		t.Errorf("expected day7 unchanged, got %s", got)
	}
}

func TestNextDayIndex(t *testing.T) {
	tests := []struct {
		name       string
		attendance map[string]any
		want       int
	}{
		{"empty", map[string]any{}, 1},
		{"one validated day", map[string]any{"day1": true}, 2},
		{"mixed modes", map[string]any{"day1": true, "day2_offline": AttendanceRecord{}}, 3},
		{"promoted pair occupies one index", map[string]any{"day1": true, "day1_offline": AttendanceRecord{}}, 3},
		{"sparse map skips taken index", map[string]any{"day2": true}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextDayIndex(tt.attendance); got != tt.want {
				t.Errorf("expected index %d, got %d", tt.want, got)
			}
		})
	}
}

func TestNextDayIndexNeverCollides(t *testing.T) {
	att := map[string]any{}
	for i := 0; i < 20; i++ {
		n := NextDayIndex(att)
		key := DayKey(n)
		if i%2 == 1 {
			key = OfflineDayKey(n)
		}
		if _, taken := att[key]; taken {
			t.Fatalf("index %d already taken at iteration %d", n, i)
		}
		att[key] = true
	}
}

func TestRecordFrom(t *testing.T) {
	ts := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

	t.Run("native record", func(t *testing.T) {
		rec, ok := RecordFrom(AttendanceRecord{Status: true, Timestamp: ts, DeviceID: "lab-1"})
		if !ok {
			t.Fatal("expected a record")
		}
		if !rec.Status || rec.DeviceID != "lab-1" || !rec.Timestamp.Equal(ts) {
			t.Errorf("record fields lost: %+v", rec)
		}
	})

	t.Run("decoded bson map", func(t *testing.T) {
		raw := primitive.M{
			"status":          true,
			"timestamp":       primitive.NewDateTimeFromTime(ts),
			"synced":          false,
			"device_id":       "lab-2",
			"device_name":     "Main Entrance",
			"device_location": "Building A",
		}
		rec, ok := RecordFrom(raw)
		if !ok {
			t.Fatal("expected a record")
		}
		if rec.DeviceName != "Main Entrance" {
			t.Errorf("expected device name Main Entrance, got %s", rec.DeviceName)
		}
		if !rec.Timestamp.Equal(ts) {
			t.Errorf("expected timestamp %v, got %v", ts, rec.Timestamp)
		}
		if rec.Synced {
			t.Error("expected synced=false")
		}
	})

	t.Run("string timestamp", func(t *testing.T) {
		rec, ok := RecordFrom(map[string]any{"status": true, "timestamp": ts.Format(time.RFC3339)})
		if !ok {
			t.Fatal("expected a record")
		}
		if !rec.Timestamp.Equal(ts) {
			t.Errorf("expected timestamp %v, got %v", ts, rec.Timestamp)
		}
	})

	t.Run("validated day is not a record", func(t *testing.T) {
		if _, ok := RecordFrom(true); ok {
			t.Error("expected plain bool to be rejected")
		}
	})
}

func TestValidatedDay(t *testing.T) {
	if !ValidatedDay(true) {
		t.Error("expected true to validate")
	}
	if ValidatedDay(false) {
		t.Error("expected false to not validate")
	}
	if ValidatedDay(primitive.M{"status": true}) {
		t.Error("expected offline record to not validate")
	}
}
