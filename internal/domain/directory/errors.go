package directory

import "errors"

var (
	// ErrNotFound is returned when no user exists for the given id or email.
	ErrNotFound = errors.New("user not found")

	// ErrDuplicateEmail is returned when creating a user whose email is
	// already registered.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidCredentials is returned for every login failure. Unknown
	// email, wrong password, and deactivated account are indistinguishable
	// from outside.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
