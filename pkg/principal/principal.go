// Package principal carries the authenticated caller through request
// context. The identity service issues tokens; this service only consumes
// the verified {employee number, role} pair and trusts it verbatim for
// authorization gates.
package principal

import (
	"context"

	"github.com/skillmatrix/skillmatrix-backend/pkg/errors"
)

// Role is an access-control role assigned to a user account.
type Role string

// Recognized roles
const (
	RoleAdmin    Role = "ADMIN"
	RoleHR       Role = "HR"
	RoleManager  Role = "Manager"
	RoleHOD      Role = "HOD"
	RoleEmployee Role = "Employee"
)

// Principal represents the authenticated caller.
type Principal struct {
	// EmployeeNumber is the caller's login identifier. For most accounts
	// it matches an Employee row; system accounts (e.g. "admin") have none.
	EmployeeNumber string `json:"employee_number"`
	Role           Role   `json:"role"`
}

type contextKey string

const principalContextKey contextKey = "principal"

// FromContext retrieves the Principal from the context. Returns nil when
// no principal is present.
func FromContext(ctx context.Context) *Principal {
	if ctx == nil {
		return nil
	}
	p, ok := ctx.Value(principalContextKey).(*Principal)
	if !ok {
		return nil
	}
	return p
}

// WithPrincipal returns a new context with the Principal attached.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// Require returns the caller's principal if their role is in the allowed
// set, and an access-denial error otherwise. The error never reveals which
// roles would have been accepted.
func Require(ctx context.Context, allowed ...Role) (*Principal, error) {
	p := FromContext(ctx)
	if p == nil {
		return nil, errors.NoAccess()
	}
	for _, role := range allowed {
		if p.Role == role {
			return p, nil
		}
	}
	return nil, errors.NoAccess()
}

// Current returns the caller's principal regardless of role, or an
// access-denial error when the request carries none.
func Current(ctx context.Context) (*Principal, error) {
	p := FromContext(ctx)
	if p == nil {
		return nil, errors.NoAccess()
	}
	return p, nil
}
