package models

import (
	"time"

	"github.com/google/uuid"
)

// User mirrors an identity of the external auth provider. SchoolID is the
// stored tenant association used when the host carries no subdomain.
type User struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Email     string     `json:"email" db:"email"`
	FullName  string     `json:"full_name" db:"full_name"`
	SchoolID  *uuid.UUID `json:"school_id,omitempty" db:"school_id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// Profile is a role-specific row. Admins, teachers, students and parents share
// this shape; role-only fields are optional.
type Profile struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	SchoolID  uuid.UUID  `json:"school_id" db:"school_id"`
	UserID    *uuid.UUID `json:"user_id,omitempty" db:"user_id"`
	FullName  string     `json:"full_name" db:"full_name"`
	Email     *string    `json:"email,omitempty" db:"email"`
	Phone     *string    `json:"phone,omitempty" db:"phone"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// Student is a learner enrolled in at most one class.
type Student struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	SchoolID    uuid.UUID  `json:"school_id" db:"school_id"`
	UserID      *uuid.UUID `json:"user_id,omitempty" db:"user_id"`
	FullName    string     `json:"full_name" db:"full_name"`
	Email       *string    `json:"email,omitempty" db:"email"`
	ClassID     *uuid.UUID `json:"class_id,omitempty" db:"class_id"`
	AdmissionNo *string    `json:"admission_no,omitempty" db:"admission_no"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty" db:"date_of_birth"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// Parent is a guardian linked to one or more students.
type Parent struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	SchoolID  uuid.UUID  `json:"school_id" db:"school_id"`
	UserID    *uuid.UUID `json:"user_id,omitempty" db:"user_id"`
	FullName  string     `json:"full_name" db:"full_name"`
	Email     *string    `json:"email,omitempty" db:"email"`
	Phone     *string    `json:"phone,omitempty" db:"phone"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// Teacher is a staff member who may teach subjects and own assignments.
type Teacher struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	SchoolID       uuid.UUID  `json:"school_id" db:"school_id"`
	UserID         *uuid.UUID `json:"user_id,omitempty" db:"user_id"`
	FullName       string     `json:"full_name" db:"full_name"`
	Email          *string    `json:"email,omitempty" db:"email"`
	Specialization *string    `json:"specialization,omitempty" db:"specialization"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// WhitelistedTeacher is a pre-approved email permitted to self-register as a
// teacher of the school.
type WhitelistedTeacher struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	SchoolID  uuid.UUID  `json:"school_id" db:"school_id"`
	Email     string     `json:"email" db:"email"`
	InvitedBy *uuid.UUID `json:"invited_by,omitempty" db:"invited_by"`
	UsedAt    *time.Time `json:"used_at,omitempty" db:"used_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}
