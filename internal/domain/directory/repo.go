package directory

import (
	"context"

	"github.com/google/uuid"
)

// UserDirectory is the lookup surface for user accounts. Create exists for
// bootstrap tooling; users are not managed over HTTP.
type UserDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u *User) error
}
