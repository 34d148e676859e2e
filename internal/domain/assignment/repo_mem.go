package assignment

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// assignmentRepoMem mirrors the postgres repository's conflict semantics in
// process memory. The mutex plays the role of the partial unique index. Used
// by tests and local tooling in place of a database.
type assignmentRepoMem struct {
	mu              sync.RWMutex
	byID            map[uuid.UUID]*Assignment
	activeByPatient map[uuid.UUID]uuid.UUID // patient id -> active assignment id
}

func NewAssignmentRepoMem() AssignmentRepository {
	return &assignmentRepoMem{
		byID:            make(map[uuid.UUID]*Assignment),
		activeByPatient: make(map[uuid.UUID]uuid.UUID),
	}
}

func copyAssignment(a *Assignment) *Assignment {
	out := *a
	if a.EndedAt != nil {
		t := *a.EndedAt
		out.EndedAt = &t
	}
	return &out
}

func (r *assignmentRepoMem) CreateActive(_ context.Context, a *Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.activeByPatient[a.PatientID]; taken {
		return fmt.Errorf("%w: patient %s", ErrConflict, a.PatientID)
	}
	a.ID = uuid.New()
	a.AssignedAt = time.Now().UTC()
	a.IsActive = true
	a.EndedAt = nil
	r.byID[a.ID] = copyAssignment(a)
	r.activeByPatient[a.PatientID] = a.ID
	return nil
}

func (r *assignmentRepoMem) End(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok || !rec.IsActive {
		return ErrNotFound
	}
	now := time.Now().UTC()
	rec.IsActive = false
	rec.EndedAt = &now
	delete(r.activeByPatient, rec.PatientID)
	return nil
}

func (r *assignmentRepoMem) IsAssigned(_ context.Context, nurseID, patientID uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.activeByPatient[patientID]
	if !ok {
		return false, nil
	}
	return r.byID[id].NurseID == nurseID, nil
}

func (r *assignmentRepoMem) ActiveNurseForPatient(_ context.Context, patientID uuid.UUID) (uuid.UUID, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.activeByPatient[patientID]
	if !ok {
		return uuid.Nil, false, nil
	}
	return r.byID[id].NurseID, true, nil
}

func (r *assignmentRepoMem) PatientsForNurse(_ context.Context, nurseID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var active []*Assignment
	for _, id := range r.activeByPatient {
		if rec := r.byID[id]; rec.NurseID == nurseID {
			active = append(active, rec)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].AssignedAt.Before(active[j].AssignedAt) })
	ids := []uuid.UUID{}
	for _, rec := range active {
		ids = append(ids, rec.PatientID)
	}
	return ids, nil
}

func (r *assignmentRepoMem) List(_ context.Context, f Filter, limit, offset int) ([]*Assignment, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []*Assignment
	for _, rec := range r.byID {
		if f.NurseID != nil && rec.NurseID != *f.NurseID {
			continue
		}
		if f.ActiveOnly && !rec.IsActive {
			continue
		}
		matched = append(matched, rec)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].AssignedAt.After(matched[j].AssignedAt) })
	total := len(matched)
	if offset >= total {
		return []*Assignment{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	items := make([]*Assignment, 0, end-offset)
	for _, rec := range matched[offset:end] {
		items = append(items, copyAssignment(rec))
	}
	return items, total, nil
}

func (r *assignmentRepoMem) CountActive(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.activeByPatient), nil
}
