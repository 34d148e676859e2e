package assignment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nurselink/nurselink/internal/domain/directory"
	"github.com/nurselink/nurselink/internal/platform/auth"
)

// UserDirectory is the slice of the user directory the registry consults for
// role validation.
type UserDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*directory.User, error)
}

// Service is the assignment registry. All mutation of nurse-patient state
// goes through Create and End; reads run lock-free against committed state.
type Service struct {
	assignments AssignmentRepository
	users       UserDirectory
}

func NewService(assignments AssignmentRepository, users UserDirectory) *Service {
	return &Service{assignments: assignments, users: users}
}

func (s *Service) resolveRole(ctx context.Context, id uuid.UUID, want auth.Role) error {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return fmt.Errorf("%w: %s %s does not exist", ErrNotFound, want, id)
		}
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if u.Role != want {
		return fmt.Errorf("%w: user %s does not have role %s", ErrValidation, id, want)
	}
	return nil
}

// Create assigns a nurse to a patient. Both ids must resolve to users with
// the matching role. The insert itself is conditional at the storage layer,
// so of N concurrent calls for one patient exactly one succeeds and the rest
// get ErrConflict.
func (s *Service) Create(ctx context.Context, nurseID, patientID, assignedBy uuid.UUID) (*Assignment, error) {
	if nurseID == uuid.Nil || patientID == uuid.Nil {
		return nil, fmt.Errorf("%w: nurse_id and patient_id are required", ErrValidation)
	}
	if err := s.resolveRole(ctx, nurseID, auth.RoleNurse); err != nil {
		return nil, err
	}
	if err := s.resolveRole(ctx, patientID, auth.RolePatient); err != nil {
		return nil, err
	}
	a := &Assignment{NurseID: nurseID, PatientID: patientID, AssignedBy: assignedBy}
	if err := s.assignments.CreateActive(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// End closes an active assignment. A second End on the same id reports
// ErrNotFound, including under concurrency.
func (s *Service) End(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("%w: assignment id is required", ErrValidation)
	}
	return s.assignments.End(ctx, id)
}

// IsAssigned reports whether the nurse currently holds the active assignment
// for the patient. It backs relationship authorization.
func (s *Service) IsAssigned(ctx context.Context, nurseID, patientID uuid.UUID) (bool, error) {
	return s.assignments.IsAssigned(ctx, nurseID, patientID)
}

// NurseForPatient returns the active nurse for a patient, with ok reporting
// whether one exists.
func (s *Service) NurseForPatient(ctx context.Context, patientID uuid.UUID) (uuid.UUID, bool, error) {
	return s.assignments.ActiveNurseForPatient(ctx, patientID)
}

// PatientsForNurse returns the patients actively assigned to a nurse.
func (s *Service) PatientsForNurse(ctx context.Context, nurseID uuid.UUID) ([]uuid.UUID, error) {
	return s.assignments.PatientsForNurse(ctx, nurseID)
}

// List is a reporting query over assignment history.
func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Assignment, int, error) {
	return s.assignments.List(ctx, f, limit, offset)
}

// CountActive returns the number of currently active assignments.
func (s *Service) CountActive(ctx context.Context) (int, error) {
	return s.assignments.CountActive(ctx)
}
