package assignment

import (
	"context"

	"github.com/google/uuid"
)

// Filter narrows List queries.
type Filter struct {
	NurseID    *uuid.UUID
	ActiveOnly bool
}

// AssignmentRepository is the storage contract for the registry. CreateActive
// is an atomic conditional insert: it succeeds only while the patient has no
// active assignment and reports ErrConflict otherwise. The conflict comes
// from a storage-level constraint, never from a separate read, so the
// exclusivity rule holds under concurrent writers on separate connections or
// processes.
type AssignmentRepository interface {
	CreateActive(ctx context.Context, a *Assignment) error
	// End deactivates the assignment iff it is still active. The second of
	// two concurrent End calls on the same id gets ErrNotFound.
	End(ctx context.Context, id uuid.UUID) error
	IsAssigned(ctx context.Context, nurseID, patientID uuid.UUID) (bool, error)
	ActiveNurseForPatient(ctx context.Context, patientID uuid.UUID) (uuid.UUID, bool, error)
	PatientsForNurse(ctx context.Context, nurseID uuid.UUID) ([]uuid.UUID, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Assignment, int, error)
	CountActive(ctx context.Context) (int, error)
}
