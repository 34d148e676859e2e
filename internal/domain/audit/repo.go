package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter narrows a trail search. Zero-value fields are ignored.
type Filter struct {
	ActorID   *uuid.UUID
	PatientID *uuid.UUID
	Action    string
	Since     *time.Time
}

type EventRepository interface {
	Insert(ctx context.Context, ev *Event) error
	Search(ctx context.Context, f Filter, limit, offset int) ([]*Event, int, error)
}
