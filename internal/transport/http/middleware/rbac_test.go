package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"agencyerp/internal/domain/auth"
)

type stubPerms struct {
	allowed map[string]bool
}

func (s stubPerms) HasPermission(_ context.Context, _, permission string) (bool, error) {
	return s.allowed[permission], nil
}

func TestRequirePermission(t *testing.T) {
	perms := stubPerms{allowed: map[string]bool{auth.PermLeaveRead: true}}
	userCtx := context.WithValue(context.Background(), ctxKeyUser, auth.UserContext{
		TenantID: "t1",
		UserID:   "u1",
		RoleID:   "r1",
	})

	cases := []struct {
		name       string
		permission string
		ctx        context.Context
		want       int
	}{
		{"granted", auth.PermLeaveRead, userCtx, http.StatusNoContent},
		{"denied", auth.PermAdminSystem, userCtx, http.StatusForbidden},
		{"anonymous", auth.PermLeaveRead, context.Background(), http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := RequirePermission(tc.permission, perms)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(tc.ctx)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}
