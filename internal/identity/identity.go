// Package identity defines the contract this system expects from the
// external identity provider: user lifecycle by id plus get/set of the opaque
// authorization claims attached to a user.
package identity

import (
	"context"
	"errors"
)

// ErrUserNotFound is returned when the provider knows no user with the id.
var ErrUserNotFound = errors.New("identity user not found")

// User is an identity-provider user with its attached claims.
type User struct {
	UID    string         `json:"uid"`
	Claims map[string]any `json:"claims"`
}

// Provider is the identity provider surface used by this system.
type Provider interface {
	User(ctx context.Context, uid string) (*User, error)
	SetClaims(ctx context.Context, uid string, claims map[string]any) error
	DeleteUser(ctx context.Context, uid string) error
}
