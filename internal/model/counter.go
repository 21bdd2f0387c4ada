package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Counter is a named monotonic sequence document. Value only moves
// forward through normal operation; Sync during reconciliation may set
// it to whatever the remote handed out.
type Counter struct {
	OID   primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Name  string             `bson:"name" json:"name"`
	Value int                `bson:"value" json:"value"`
}

// CaptureLog is one append-only audit row per raw fingerprint capture,
// written before any validation outcome is known.
type CaptureLog struct {
	OID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	StudentUID int                `bson:"student_uid" json:"student_uid"`
	Timestamp  time.Time          `bson:"timestamp" json:"timestamp"`
}
