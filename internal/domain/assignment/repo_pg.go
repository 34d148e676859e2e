package assignment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type assignmentRepoPG struct{ pool *pgxpool.Pool }

func NewAssignmentRepoPG(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepoPG{pool: pool}
}

const assignmentCols = `id, nurse_id, patient_id, assigned_by, assigned_at, is_active, ended_at`

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStorage, err)
}

func (r *assignmentRepoPG) scanAssignment(row pgx.Row) (*Assignment, error) {
	var a Assignment
	err := row.Scan(&a.ID, &a.NurseID, &a.PatientID, &a.AssignedBy,
		&a.AssignedAt, &a.IsActive, &a.EndedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateActive inserts the new active row in a single statement. The partial
// unique index on (patient_id) WHERE is_active makes the exclusivity rule hold
// under concurrent inserts; a 23505 from that index is the conflict signal.
func (r *assignmentRepoPG) CreateActive(ctx context.Context, a *Assignment) error {
	a.ID = uuid.New()
	a.AssignedAt = time.Now().UTC()
	a.IsActive = true
	a.EndedAt = nil
	_, err := r.pool.Exec(ctx, `
		INSERT INTO nurse_assignment (id, nurse_id, patient_id, assigned_by, assigned_at, is_active)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		a.ID, a.NurseID, a.PatientID, a.AssignedBy, a.AssignedAt, a.IsActive)
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: patient %s", ErrConflict, a.PatientID)
		case "23503":
			return fmt.Errorf("%w: unknown referenced user (%s)", ErrValidation, pgErr.ConstraintName)
		}
	}
	return storageErr(err)
}

// End is a conditional update guarded on is_active, so two racing End calls
// on the same id resolve to one success and one ErrNotFound.
func (r *assignmentRepoPG) End(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE nurse_assignment SET is_active = FALSE, ended_at = NOW()
		WHERE id = $1 AND is_active`, id)
	if err != nil {
		return storageErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *assignmentRepoPG) IsAssigned(ctx context.Context, nurseID, patientID uuid.UUID) (bool, error) {
	var assigned bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM nurse_assignment
			WHERE nurse_id = $1 AND patient_id = $2 AND is_active
		)`, nurseID, patientID).Scan(&assigned)
	if err != nil {
		return false, storageErr(err)
	}
	return assigned, nil
}

func (r *assignmentRepoPG) ActiveNurseForPatient(ctx context.Context, patientID uuid.UUID) (uuid.UUID, bool, error) {
	var nurseID uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT nurse_id FROM nurse_assignment
		WHERE patient_id = $1 AND is_active`, patientID).Scan(&nurseID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, storageErr(err)
	}
	return nurseID, true, nil
}

func (r *assignmentRepoPG) PatientsForNurse(ctx context.Context, nurseID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT patient_id FROM nurse_assignment
		WHERE nurse_id = $1 AND is_active
		ORDER BY assigned_at`, nurseID)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()
	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, storageErr(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	return ids, nil
}

func (r *assignmentRepoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Assignment, int, error) {
	var conds []string
	var args []interface{}
	if f.NurseID != nil {
		args = append(args, *f.NurseID)
		conds = append(conds, fmt.Sprintf("nurse_id = $%d", len(args)))
	}
	if f.ActiveOnly {
		conds = append(conds, "is_active")
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM nurse_assignment`+where, args...).Scan(&total); err != nil {
		return nil, 0, storageErr(err)
	}

	pageArgs := append(args, limit, offset)
	rows, err := r.pool.Query(ctx,
		`SELECT `+assignmentCols+` FROM nurse_assignment`+where+
			fmt.Sprintf(" ORDER BY assigned_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2),
		pageArgs...)
	if err != nil {
		return nil, 0, storageErr(err)
	}
	defer rows.Close()
	items := []*Assignment{}
	for rows.Next() {
		a, err := r.scanAssignment(rows)
		if err != nil {
			return nil, 0, storageErr(err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storageErr(err)
	}
	return items, total, nil
}

func (r *assignmentRepoPG) CountActive(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM nurse_assignment WHERE is_active`).Scan(&n); err != nil {
		return 0, storageErr(err)
	}
	return n, nil
}
