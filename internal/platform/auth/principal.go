package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Role is the closed set of roles a user can hold. Every principal carries
// exactly one role; there is no hierarchy and no custom roles.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RoleNurse   Role = "nurse"
	RolePatient Role = "patient"
)

// Roles lists every valid role, in the order they are documented.
var Roles = []Role{RoleAdmin, RoleDoctor, RoleNurse, RolePatient}

// ParseRole converts a string to a Role, rejecting anything outside the
// closed set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleDoctor, RoleNurse, RolePatient:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) String() string { return string(r) }

// Principal is an authenticated caller: who they are and the role they act
// under. Handlers retrieve it from the request context after the auth
// middleware has run.
type Principal struct {
	UserID uuid.UUID
	Role   Role
	Email  string
}

type contextKey string

const principalKey contextKey = "principal"

// ContextWithPrincipal returns a copy of ctx carrying the principal.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the principal stored by the auth middleware.
// The second return is false when the request was not authenticated.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok
}

// UserIDFromContext returns the authenticated user's id, or uuid.Nil when
// the request was not authenticated.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	if p, ok := PrincipalFromContext(ctx); ok {
		return p.UserID
	}
	return uuid.Nil
}
