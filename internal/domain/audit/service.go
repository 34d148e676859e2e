package audit

import (
	"context"

	"github.com/google/uuid"

	"github.com/nurselink/nurselink/internal/platform/middleware"
)

type Service struct {
	events EventRepository
}

func NewService(events EventRepository) *Service {
	return &Service{events: events}
}

// RecordAccess satisfies middleware.AuditRecorder: it turns the middleware's
// entry into a trail event and persists it. uuid.Nil actor and patient ids
// become NULL columns.
func (s *Service) RecordAccess(ctx context.Context, entry middleware.AuditEntry) error {
	ev := &Event{
		ActorRole:  entry.ActorRole,
		Action:     entry.Action,
		Resource:   entry.Resource,
		Method:     entry.Method,
		Path:       entry.Path,
		Status:     entry.Status,
		RemoteAddr: entry.RemoteAddr,
		UserAgent:  entry.UserAgent,
		RequestID:  entry.RequestID,
		Recorded:   entry.Recorded,
	}
	if entry.ActorID != uuid.Nil {
		id := entry.ActorID
		ev.ActorID = &id
	}
	if entry.PatientID != uuid.Nil {
		id := entry.PatientID
		ev.PatientID = &id
	}
	return s.events.Insert(ctx, ev)
}

func (s *Service) Search(ctx context.Context, f Filter, limit, offset int) ([]*Event, int, error) {
	return s.events.Search(ctx, f, limit, offset)
}
