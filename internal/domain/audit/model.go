package audit

import (
	"time"

	"github.com/google/uuid"
)

// Event is one entry in the access audit trail: who touched which resource,
// from where, and how the request ended. Rows are append-only; nothing in
// the API updates or deletes them.
type Event struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	ActorID    *uuid.UUID `db:"actor_id" json:"actor_id,omitempty"`
	ActorRole  string     `db:"actor_role" json:"actor_role,omitempty"`
	Action     string     `db:"action" json:"action"`
	Resource   string     `db:"resource" json:"resource"`
	PatientID  *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	Method     string     `db:"method" json:"method"`
	Path       string     `db:"path" json:"path"`
	Status     int        `db:"status" json:"status"`
	RemoteAddr string     `db:"remote_addr" json:"remote_addr"`
	UserAgent  string     `db:"user_agent" json:"user_agent"`
	RequestID  string     `db:"request_id" json:"request_id"`
	Recorded   time.Time  `db:"recorded" json:"recorded"`
}
