// Package guard decides whether an actor may touch a tenant's passes.
package guard

import (
	"context"
	"fmt"

	"vpass/src/types"
)

type Guard interface {
	AssertTenantAccess(ctx context.Context, actor *types.Claims, tenantID uint) error
}

// ClaimsGuard trusts the tenant carried in the verified token. An actor
// only ever reaches its own tenant.
type ClaimsGuard struct{}

func NewClaimsGuard() ClaimsGuard {
	return ClaimsGuard{}
}

func (ClaimsGuard) AssertTenantAccess(_ context.Context, actor *types.Claims, tenantID uint) error {
	if actor == nil {
		return fmt.Errorf("no credential: %w", types.ErrTenantAccessDenied)
	}
	if actor.TenantID != tenantID {
		return fmt.Errorf("user %d of tenant %d on tenant %d: %w", actor.UserID, actor.TenantID, tenantID, types.ErrTenantAccessDenied)
	}
	return nil
}
