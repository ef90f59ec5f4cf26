package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/RockaiDev/bariqe-dashboard/internal/apperr"
)

type contextKey string

const organizationIDKey contextKey = "organizationID"

// ContextWithOrganizationID returns a new context that carries the tenant scope.
func ContextWithOrganizationID(ctx context.Context, id uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, organizationIDKey, id)
}

// OrganizationIDFromContext retrieves the tenant scope from the context, if any.
func OrganizationIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	id, ok := ctx.Value(organizationIDKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// RequireOrganizationID returns the tenant scope or an InvalidInput error when the
// request carries none.
func RequireOrganizationID(ctx context.Context) (uuid.UUID, error) {
	id, ok := OrganizationIDFromContext(ctx)
	if !ok {
		return uuid.Nil, apperr.InvalidInput("organization scope is required", nil)
	}
	return id, nil
}

// ParseOrganizationID parses a tenant id supplied by a client.
func ParseOrganizationID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.InvalidInput("organization id must be a valid UUID", err)
	}
	if id == uuid.Nil {
		return uuid.Nil, apperr.InvalidInput("organization id is required", nil)
	}
	return id, nil
}
