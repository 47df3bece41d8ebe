package authorize

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultPolicies grants session generation to tenant admins. Owners
// inherit everything admins may do.
var DefaultPolicies = []PermissionPolicy{
	{RoleTenantAdmin, WildcardDomain, ResourceSessionBatch, ActionExecute, EffectAllow},
	{RoleTenantAdmin, WildcardDomain, ResourceSession, WildcardAction, EffectAllow},
	{RoleTenantTutor, WildcardDomain, ResourceSession, ActionRead, EffectAllow},
	{RoleTenantStaff, WildcardDomain, ResourceSession, ActionRead, EffectAllow},
}

var defaultInheritance = [][2]Role{
	{RoleTenantOwner, RoleTenantAdmin},
}

// SeedDefaultPolicies loads the baseline RBAC policies.
func SeedDefaultPolicies(ctx context.Context, auth IAuthorization, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	var added int
	for _, p := range DefaultPolicies {
		ok, err := auth.AddPermission(ctx, p)
		if err != nil {
			return fmt.Errorf("seed policy %v: %w", p, err)
		}
		if ok {
			added++
		}
	}
	for _, pair := range defaultInheritance {
		if _, err := auth.AddRoleInheritance(ctx, pair[0], pair[1]); err != nil {
			return fmt.Errorf("seed inheritance %s -> %s: %w", pair[0], pair[1], err)
		}
	}

	logger.Debug("authorization policies seeded", "policies", added)
	return nil
}
