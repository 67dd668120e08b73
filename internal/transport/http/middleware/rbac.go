package middleware

import (
	"context"
	"net/http"

	"agencyerp/internal/transport/http/api"
)

// PermissionStore answers whether a role carries a permission key. The auth
// store implements it against role_permissions.
type PermissionStore interface {
	HasPermission(ctx context.Context, roleID, permission string) (bool, error)
}

// RequirePermission gates a route on a single permission key.
func RequirePermission(permission string, store PermissionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if status, code, msg := permissionDenial(r, permission, store); status != 0 {
				api.Fail(w, status, code, msg, GetRequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// permissionDenial returns a zero status when the request may proceed.
func permissionDenial(r *http.Request, permission string, store PermissionStore) (int, string, string) {
	user, ok := GetUser(r.Context())
	if !ok {
		return http.StatusUnauthorized, "unauthorized", "authentication required"
	}
	allowed, err := store.HasPermission(r.Context(), user.RoleID, permission)
	if err != nil {
		return http.StatusInternalServerError, "permission_error", "permission check failed"
	}
	if !allowed {
		return http.StatusForbidden, "forbidden", "insufficient permissions"
	}
	return 0, "", ""
}
