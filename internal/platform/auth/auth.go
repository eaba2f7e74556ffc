// Package auth provides JWT bearer authentication and role-based route
// gating. Tokens are HMAC-signed; the practice claim feeds the practice
// (tenant) resolution middleware.
package auth

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	RolesKey  = "user_roles"
	UserIDKey = "user_id"
)

type Claims struct {
	jwt.RegisteredClaims
	PracticeID string   `json:"practice_id"`
	Roles      []string `json:"roles"`
}

type Config struct {
	Secret []byte
}

// Middleware validates the Authorization bearer token and stores the user id,
// roles, and practice claim on the echo context.
func Middleware(cfg Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return cfg.Secret, nil
			})
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(UserIDKey, claims.Subject)
			c.Set(RolesKey, claims.Roles)
			c.Set("jwt_practice_id", claims.PracticeID)
			return next(c)
		}
	}
}

// DevMiddleware grants every request admin access. Development only; the
// config loader refuses to start production without a secret.
func DevMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(UserIDKey, "dev-user")
			c.Set(RolesKey, []string{"admin"})
			return next(c)
		}
	}
}

// RequireRole rejects the request unless the caller carries at least one of
// the given roles. Admin always passes.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles)+1)
	allowed["admin"] = true
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRoles, _ := c.Get(RolesKey).([]string)
			for _, r := range userRoles {
				if allowed[r] {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
		}
	}
}
