// Package reqctx carries request-scoped values through context.Context.
//
// HTTP middleware sets RequestMeta for every request and Actor once the
// caller is authenticated and bound to a tenant. Services read them back
// for logging and auditing:
//
//	if a, ok := reqctx.ActorFromContext(ctx); ok {
//	    log.Info("...", "tenant_id", a.TenantID)
//	}
//
// All keys are unexported so only this package can set them.
package reqctx
