package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestVerifyRoundTrip(t *testing.T) {
	v := NewVerifier("test-secret")
	token, err := v.Sign(&Claims{UserID: "user-1", Role: RoleMember, ExpiresAt: time.Now().Add(time.Hour).Unix()})
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	claims, err := v.Verify(token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if claims.UserID != "user-1" || claims.Role != RoleMember {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	signer := NewVerifier("secret-a")
	token, _ := signer.Sign(&Claims{UserID: "user-1", Role: RoleMember})

	if _, err := NewVerifier("secret-b").Verify(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	v := NewVerifier("test-secret")
	token, _ := v.Sign(&Claims{UserID: "user-1", Role: RoleMember, ExpiresAt: time.Now().Add(-time.Minute).Unix()})

	if _, err := v.Verify(token); err != ErrTokenExpired {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	v := NewVerifier("test-secret")
	for _, token := range []string{"", "no-dot", "a.b", "!!!.zzz"} {
		if _, err := v.Verify(token); err == nil {
			t.Fatalf("expected error for token %q", token)
		}
	}
}

func runMiddleware(t *testing.T, v *Verifier, authHeader string, extra ...echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set(echo.HeaderAuthorization, authHeader)
	}
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	handler := func(ctx echo.Context) error { return ctx.NoContent(http.StatusOK) }
	for i := len(extra) - 1; i >= 0; i-- {
		handler = extra[i](handler)
	}
	handler = v.RequireBearer()(handler)

	if err := handler(ctx); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func TestRequireBearerRejectsMissingHeader(t *testing.T) {
	rec := runMiddleware(t, NewVerifier("test-secret"), "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireRolesForbidsWrongRole(t *testing.T) {
	v := NewVerifier("test-secret")
	token, _ := v.Sign(&Claims{UserID: "user-1", Role: RoleMember})

	rec := runMiddleware(t, v, "Bearer "+token, RequireRoles(RoleCourier, RoleGosat, RoleAdmin))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestRequireRolesAllowsMatchingRole(t *testing.T) {
	v := NewVerifier("test-secret")
	token, _ := v.Sign(&Claims{UserID: "courier-1", Role: RoleCourier})

	rec := runMiddleware(t, v, "Bearer "+token, RequireRoles(RoleCourier, RoleGosat, RoleAdmin))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
