package authorize

import (
	"context"
	"log/slog"
	"time"

	"github.com/tutorly/tutorly_backend/pkg/reqctx"
)

// AuditedAuthorization logs every decision and policy change.
type AuditedAuthorization struct {
	inner  IAuthorization
	logger *slog.Logger
}

func NewAuditedAuthorization(inner IAuthorization, logger *slog.Logger) IAuthorization {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditedAuthorization{inner: inner, logger: logger}
}

func (a *AuditedAuthorization) Enforce(ctx context.Context, role Role, domain Domain, object Resource, action Action) (bool, error) {
	start := time.Now()
	allowed, err := a.inner.Enforce(ctx, role, domain, object, action)

	attrs := append([]any{
		"role", string(role),
		"domain", string(domain),
		"resource", string(object),
		"action", string(action),
		"allowed", allowed,
		"duration_ms", time.Since(start).Milliseconds(),
	}, reqctx.LogAttrs(ctx)...)

	switch {
	case err != nil:
		attrs = append(attrs, "error", err.Error())
		a.logger.ErrorContext(ctx, "authz_decision", attrs...)
	case allowed:
		a.logger.InfoContext(ctx, "authz_decision", attrs...)
	default:
		a.logger.WarnContext(ctx, "authz_decision", attrs...)
	}

	return allowed, err
}

func (a *AuditedAuthorization) MustEnforce(ctx context.Context, role Role, domain Domain, object Resource, action Action) error {
	return mustEnforce(ctx, a, role, domain, object, action)
}

func (a *AuditedAuthorization) AddPermission(ctx context.Context, p PermissionPolicy) (bool, error) {
	added, err := a.inner.AddPermission(ctx, p)
	a.logChange(ctx, "add_permission", added, err,
		"role", string(p.Subject),
		"domain", string(p.Domain),
		"resource", string(p.Object),
		"action", string(p.Action),
		"effect", string(p.Effect),
	)
	return added, err
}

func (a *AuditedAuthorization) AddRoleInheritance(ctx context.Context, child, parent Role) (bool, error) {
	added, err := a.inner.AddRoleInheritance(ctx, child, parent)
	a.logChange(ctx, "add_role_inheritance", added, err, "child", string(child), "parent", string(parent))
	return added, err
}

func (a *AuditedAuthorization) logChange(ctx context.Context, op string, changed bool, err error, attrs ...any) {
	attrs = append([]any{"operation", op, "changed", changed}, attrs...)
	if err != nil {
		a.logger.ErrorContext(ctx, "authz_policy_change", append(attrs, "error", err.Error())...)
		return
	}
	a.logger.DebugContext(ctx, "authz_policy_change", attrs...)
}
