package authz

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

const (
	RoleAdmin  = "admin"
	RoleCoach  = "coach"
	RoleParent = "parent"
)

type AuthUser struct {
	ID       int64
	PublicID string
	Email    string
	Role     string
}

type userContextKey struct{}

func ContextWithUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext retrieves the AuthUser stored in ctx.
// It returns nil if ctx is nil, if no user is stored, or if the stored
// value has a different type.
func UserFromContext(ctx context.Context) *AuthUser {
	if ctx == nil {
		return nil
	}

	user, ok := ctx.Value(userContextKey{}).(*AuthUser)
	if !ok {
		return nil
	}

	return user
}

// HasRole reports whether user is non-nil and holds any of the given roles
// (case-insensitive).
func HasRole(user *AuthUser, roles ...string) bool {
	if user == nil {
		return false
	}
	for _, role := range roles {
		if strings.EqualFold(user.Role, role) {
			return true
		}
	}
	return false
}

// IsStaff reports whether the user is a coach or admin. Staff users are the
// mention-eligible directory and may post team messages.
func IsStaff(user *AuthUser) bool {
	return HasRole(user, RoleAdmin, RoleCoach)
}

// RequireRole returns ErrUnauthenticated when no user is in ctx and
// ErrForbidden when the user holds none of the given roles.
func RequireRole(ctx context.Context, roles ...string) error {
	user := UserFromContext(ctx)
	if user == nil {
		return ErrUnauthenticated
	}
	if !HasRole(user, roles...) {
		return ErrForbidden
	}
	return nil
}
