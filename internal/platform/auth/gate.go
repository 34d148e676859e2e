package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nurselink/nurselink/internal/platform/token"
)

var (
	// ErrUnauthenticated covers every credential failure. Missing,
	// malformed, expired, and forged tokens all collapse to this one error
	// so callers cannot probe which case they hit.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden is returned when an authenticated principal lacks the
	// role or patient relationship a resource requires.
	ErrForbidden = errors.New("forbidden")
)

// TokenVerifier checks a bearer credential and returns its claims.
// *token.Service satisfies it.
type TokenVerifier interface {
	Verify(credential string) (*token.Claims, error)
}

// AssignmentChecker reports whether a nurse currently holds an active
// assignment to a patient. The assignment domain provides the
// implementation; the interface lives here so the gate does not depend on
// that package.
type AssignmentChecker interface {
	IsAssigned(ctx context.Context, nurseID, patientID uuid.UUID) (bool, error)
}

// Gate is the single authority for authentication and authorization
// decisions. Middleware and handlers go through it rather than inspecting
// tokens or roles themselves.
type Gate struct {
	tokens      TokenVerifier
	assignments AssignmentChecker
}

func NewGate(tokens TokenVerifier, assignments AssignmentChecker) *Gate {
	return &Gate{tokens: tokens, assignments: assignments}
}

// Authenticate verifies a bearer credential and resolves it to a Principal.
// The wrapped detail is suitable for logs only; the sentinel is always
// ErrUnauthenticated.
func (g *Gate) Authenticate(credential string) (*Principal, error) {
	if credential == "" {
		return nil, fmt.Errorf("%w: missing credential", ErrUnauthenticated)
	}

	claims, err := g.tokens.Verify(credential)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a valid id", ErrUnauthenticated)
	}

	role, err := ParseRole(claims.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	return &Principal{UserID: userID, Role: role, Email: claims.Email}, nil
}

// Authorize checks that the principal's role is a member of the allowed
// set. An empty set denies everyone.
func (g *Gate) Authorize(p *Principal, allowed ...Role) error {
	if p == nil {
		return ErrUnauthenticated
	}
	for _, r := range allowed {
		if p.Role == r {
			return nil
		}
	}
	return fmt.Errorf("%w: role %s not allowed", ErrForbidden, p.Role)
}

// AuthorizeRelationship checks that the principal may act on the given
// patient's records. Admins and doctors always may; a nurse only while an
// active assignment to the patient exists; a patient only for their own
// records. A failure from the assignment checker propagates as-is so that
// storage trouble surfaces as an internal error, never as a denial.
func (g *Gate) AuthorizeRelationship(ctx context.Context, p *Principal, patientID uuid.UUID) error {
	if p == nil {
		return ErrUnauthenticated
	}

	switch p.Role {
	case RoleAdmin, RoleDoctor:
		return nil

	case RoleNurse:
		assigned, err := g.assignments.IsAssigned(ctx, p.UserID, patientID)
		if err != nil {
			return fmt.Errorf("checking assignment: %w", err)
		}
		if !assigned {
			return fmt.Errorf("%w: nurse %s has no active assignment to patient %s",
				ErrForbidden, p.UserID, patientID)
		}
		return nil

	case RolePatient:
		if p.UserID == patientID {
			return nil
		}
		return fmt.Errorf("%w: patients may only access their own records", ErrForbidden)
	}

	return fmt.Errorf("%w: role %s has no relationship rule", ErrForbidden, p.Role)
}
