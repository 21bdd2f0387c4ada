package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SyncStatus is the lifecycle state of a missing-student row.
type SyncStatus string

// Sync lifecycle states. A row is created pending, moves through
// syncing on every attempt, and ends synced (deleted shortly after),
// failed (retryable until the attempt cap) or invalid (operator data
// problem, never retried automatically).
const (
	SyncPending SyncStatus = "pending"
	SyncSyncing SyncStatus = "syncing"
	SyncSynced  SyncStatus = "synced"
	SyncFailed  SyncStatus = "failed"
	SyncInvalid SyncStatus = "invalid"
)

// Valid reports whether s is one of the known lifecycle states.
func (s SyncStatus) Valid() bool {
	switch s {
	case SyncPending, SyncSyncing, SyncSynced, SyncFailed, SyncInvalid:
		return true
	}
	return false
}

// MaxSyncAttempts caps automatic replay of a failed row. Beyond it the
// row stays failed until an operator intervenes.
const MaxSyncAttempts = 3

// MissingStudent mirrors a Student created while the remote was
// unreachable, extended with sync bookkeeping. The row exists exactly
// as long as the remote has not acknowledged the student.
type MissingStudent struct {
	OID                 primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UID                 int                `bson:"uid" json:"uid"`
	StudentID           string             `bson:"student_id" json:"student_id"`
	FirstName           string             `bson:"first_name" json:"first_name"`
	LastName            string             `bson:"last_name" json:"last_name"`
	Email               string             `bson:"email" json:"email"`
	PhoneNumber         string             `bson:"phone_number" json:"phone_number"`
	GuardianNumber      string             `bson:"guardian_number" json:"guardian_number"`
	BirthDate           string             `bson:"birth_date" json:"birth_date"`
	NationalID          string             `bson:"national_id" json:"national_id"`
	Gender              string             `bson:"gender" json:"gender"`
	Level               int                `bson:"level" json:"level"`
	SchoolName          string             `bson:"school_name" json:"school_name"`
	IsSubscription      bool               `bson:"is_subscription" json:"is_subscription"`
	FingerprintTemplate string             `bson:"fingerprint_template,omitempty" json:"fingerprint_template,omitempty"`
	CreatedOfflineAt    time.Time          `bson:"created_offline_at" json:"created_offline_at"`
	SyncStatus          SyncStatus         `bson:"sync_status" json:"sync_status"`
	SyncAttempts        int                `bson:"sync_attempts" json:"sync_attempts"`
	LastSyncAttempt     *time.Time         `bson:"last_sync_attempt,omitempty" json:"last_sync_attempt,omitempty"`
	SyncError           string             `bson:"sync_error,omitempty" json:"sync_error,omitempty"`
	SyncedAt            *time.Time         `bson:"synced_at,omitempty" json:"synced_at,omitempty"`
}

// MissingFromStudent derives the queue row for a student persisted
// offline at the given time.
func MissingFromStudent(s *Student, now time.Time) *MissingStudent {
	return &MissingStudent{
		UID:                 s.UID,
		StudentID:           s.StudentID,
		FirstName:           s.FirstName,
		LastName:            s.LastName,
		Email:               s.Email,
		PhoneNumber:         s.PhoneNumber,
		GuardianNumber:      s.GuardianNumber,
		BirthDate:           s.BirthDate,
		NationalID:          s.NationalID,
		Gender:              s.Gender,
		Level:               s.Level,
		SchoolName:          s.SchoolName,
		IsSubscription:      s.IsSubscription,
		FingerprintTemplate: s.FingerprintTemplate,
		CreatedOfflineAt:    now,
		SyncStatus:          SyncPending,
	}
}

// Retryable reports whether the automatic worker may attempt the row
// again: pending rows always, failed rows while under the attempt cap.
func (m *MissingStudent) Retryable() bool {
	switch m.SyncStatus {
	case SyncPending:
		return true
	case SyncFailed:
		return m.SyncAttempts < MaxSyncAttempts
	}
	return false
}
