package model

import (
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Validation errors for inbound student payloads.
var (
	ErrMissingName    = errors.New("first_name and last_name are required")
	ErrInvalidGender  = errors.New("gender must be male or female")
	ErrInvalidLevel   = errors.New("level must be 1, 2 or 3")
	ErrMissingContact = errors.New("phone_number is required")
)

// Student is the canonical local record for an enrolled student.
//
// UID is globally unique across local and remote namespaces and is never
// reused. StudentID is the decimal string form of UID and is what the
// remote exposes to humans.
type Student struct {
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
	Attendance          map[string]any     `bson:"attendance" json:"attendance"`
}

// FullName returns "First Last" with surrounding whitespace trimmed.
func (s *Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// RegisterPayload is the operator-supplied part of a registration.
// UID, StudentID and the fingerprint template are assigned by the
// coordinator, never by the caller.
type RegisterPayload struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	PhoneNumber    string `json:"phone_number"`
	GuardianNumber string `json:"guardian_number"`
	BirthDate      string `json:"birth_date"`
	NationalID     string `json:"national_id"`
	Gender         string `json:"gender"`
	Level          int    `json:"level"`
	SchoolName     string `json:"school_name"`
	IsSubscription *bool  `json:"is_subscription,omitempty"`
}

// Validate checks the payload's closed-set fields.
func (p *RegisterPayload) Validate() error {
	if strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "" {
		return ErrMissingName
	}
	if p.Gender != "male" && p.Gender != "female" {
		return fmt.Errorf("%w: got %q", ErrInvalidGender, p.Gender)
	}
	if p.Level < 1 || p.Level > 3 {
		return fmt.Errorf("%w: got %d", ErrInvalidLevel, p.Level)
	}
	if strings.TrimSpace(p.PhoneNumber) == "" {
		return ErrMissingContact
	}
	return nil
}

// NewStudent builds a Student from a validated payload and an assigned
// identity. Subscription defaults to true when the payload leaves it
// unset.
func NewStudent(uid int, p *RegisterPayload) *Student {
	sub := true
	if p.IsSubscription != nil {
		sub = *p.IsSubscription
	}
	return &Student{
		UID:            uid,
		StudentID:      fmt.Sprintf("%d", uid),
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		Email:          p.Email,
		PhoneNumber:    p.PhoneNumber,
		GuardianNumber: p.GuardianNumber,
		BirthDate:      p.BirthDate,
		NationalID:     p.NationalID,
		Gender:         p.Gender,
		Level:          p.Level,
		SchoolName:     p.SchoolName,
		IsSubscription: sub,
		Attendance:     map[string]any{},
	}
}
