package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type eventRepoPG struct{ pool *pgxpool.Pool }

func NewEventRepoPG(pool *pgxpool.Pool) EventRepository {
	return &eventRepoPG{pool: pool}
}

const eventCols = `id, actor_id, actor_role, action, resource, patient_id,
	method, path, status, remote_addr, user_agent, request_id, recorded`

func (r *eventRepoPG) scanEvent(row pgx.Row) (*Event, error) {
	var ev Event
	err := row.Scan(&ev.ID, &ev.ActorID, &ev.ActorRole, &ev.Action, &ev.Resource,
		&ev.PatientID, &ev.Method, &ev.Path, &ev.Status, &ev.RemoteAddr,
		&ev.UserAgent, &ev.RequestID, &ev.Recorded)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (r *eventRepoPG) Insert(ctx context.Context, ev *Event) error {
	ev.ID = uuid.New()
	if ev.Recorded.IsZero() {
		ev.Recorded = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_event (id, actor_id, actor_role, action, resource, patient_id,
			method, path, status, remote_addr, user_agent, request_id, recorded)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		ev.ID, ev.ActorID, ev.ActorRole, ev.Action, ev.Resource, ev.PatientID,
		ev.Method, ev.Path, ev.Status, ev.RemoteAddr, ev.UserAgent, ev.RequestID, ev.Recorded)
	if err != nil {
		return fmt.Errorf("inserting audit event: %w", err)
	}
	return nil
}

func (r *eventRepoPG) Search(ctx context.Context, f Filter, limit, offset int) ([]*Event, int, error) {
	var conds []string
	var args []interface{}
	if f.ActorID != nil {
		args = append(args, *f.ActorID)
		conds = append(conds, fmt.Sprintf("actor_id = $%d", len(args)))
	}
	if f.PatientID != nil {
		args = append(args, *f.PatientID)
		conds = append(conds, fmt.Sprintf("patient_id = $%d", len(args)))
	}
	if f.Action != "" {
		args = append(args, f.Action)
		conds = append(conds, fmt.Sprintf("action = $%d", len(args)))
	}
	if f.Since != nil {
		args = append(args, *f.Since)
		conds = append(conds, fmt.Sprintf("recorded >= $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM audit_event`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting audit events: %w", err)
	}

	pageArgs := append(args, limit, offset)
	rows, err := r.pool.Query(ctx,
		`SELECT `+eventCols+` FROM audit_event`+where+
			fmt.Sprintf(" ORDER BY recorded DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2),
		pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("searching audit events: %w", err)
	}
	defer rows.Close()
	items := []*Event{}
	for rows.Next() {
		ev, err := r.scanEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning audit event: %w", err)
		}
		items = append(items, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("reading audit events: %w", err)
	}
	return items, total, nil
}
