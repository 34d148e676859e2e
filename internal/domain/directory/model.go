package directory

import (
	"time"

	"github.com/google/uuid"

	"github.com/nurselink/nurselink/internal/platform/auth"
)

// User maps to the app_user table. One row per person in the system,
// regardless of role; the role determines what the user may do, not which
// table they live in.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Name         string    `db:"name" json:"name"`
	Role         auth.Role `db:"role" json:"role"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
