package httpx

import "context"

type ctxKey string

const (
	CtxKeyPrincipal ctxKey = "principal"
	CtxKeyRole      ctxKey = "role"
)

// PrincipalFromCtx returns the authenticated principal id, or empty.
func PrincipalFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyPrincipal).(string); ok {
		return v
	}
	return ""
}

// RoleFromCtx returns the authenticated principal's role, or empty.
func RoleFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyRole).(string); ok {
		return v
	}
	return ""
}
