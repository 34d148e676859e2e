package assignment

import (
	"time"

	"github.com/google/uuid"
)

// Assignment maps to the nurse_assignment table. One row per assignment
// episode; rows are never deleted, ending an assignment flips is_active
// and stamps ended_at.
type Assignment struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	NurseID    uuid.UUID  `db:"nurse_id" json:"nurse_id"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	AssignedBy uuid.UUID  `db:"assigned_by" json:"assigned_by"`
	AssignedAt time.Time  `db:"assigned_at" json:"assigned_at"`
	IsActive   bool       `db:"is_active" json:"is_active"`
	EndedAt    *time.Time `db:"ended_at" json:"ended_at,omitempty"`
}
