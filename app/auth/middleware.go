package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const claimsContextKey = "auth.claims"

type echoErrorBody struct {
	Error string `json:"error"`
}

// RequireBearer authenticates the request and stashes the claims on the echo
// context for ClaimsFromContext.
func (v *Verifier) RequireBearer() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			header := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderAuthorization))
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				return ctx.JSON(http.StatusUnauthorized, &echoErrorBody{Error: "bearer token is required"})
			}

			claims, err := v.Verify(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				if errors.Is(err, ErrTokenExpired) {
					return ctx.JSON(http.StatusUnauthorized, &echoErrorBody{Error: "token expired"})
				}
				return ctx.JSON(http.StatusUnauthorized, &echoErrorBody{Error: "invalid token"})
			}

			ctx.Set(claimsContextKey, claims)
			return next(ctx)
		}
	}
}

// RequireRoles rejects authenticated callers whose role is not in the allow
// list. Must run after RequireBearer.
func RequireRoles(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims := ClaimsFromContext(ctx)
			if claims == nil {
				return ctx.JSON(http.StatusUnauthorized, &echoErrorBody{Error: "bearer token is required"})
			}
			if _, ok := allowed[claims.Role]; !ok {
				return ctx.JSON(http.StatusForbidden, &echoErrorBody{Error: "insufficient role"})
			}
			return next(ctx)
		}
	}
}

func ClaimsFromContext(ctx echo.Context) *Claims {
	claims, _ := ctx.Get(claimsContextKey).(*Claims)
	return claims
}
