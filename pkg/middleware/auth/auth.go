package authmw

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/tradezone/marketplace/pkg/authclient"
	"github.com/tradezone/marketplace/pkg/moderation"
	"github.com/tradezone/marketplace/pkg/tokens"
)

const (
	CtxUserID   = "user_id"
	CtxRole     = "role"
	CtxUsername = "username"
)

type Refresher interface {
	RefreshTokens(ctx context.Context, refreshToken, accessToken string) (*authclient.RefreshResponse, error)
}

// Authenticator accepts a bearer token or the accessToken cookie. Expired
// cookies are refreshed through Refresher when one is set; expired bearer
// tokens are rejected so the caller refreshes on its own.
type Authenticator struct {
	JWTSecret []byte
	Refresher Refresher
}

func New(secret []byte, refresher Refresher) *Authenticator {
	return &Authenticator{JWTSecret: secret, Refresher: refresher}
}

type ValidatorFunc func(claims *tokens.AccessClaims) error

func (a *Authenticator) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return a.requireAuthWithValidator(next, nil)
}

func (a *Authenticator) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return a.requireAuthWithValidator(next, func(claims *tokens.AccessClaims) error {
		if claims.Role != string(moderation.RoleAdmin) {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}
		return nil
	})
}

func (a *Authenticator) requireAuthWithValidator(next echo.HandlerFunc, validator ValidatorFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if bearer := BearerToken(c.Request()); bearer != "" {
			claims, err := tokens.AccessClaimsFromToken(bearer, a.JWTSecret)
			if err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					return echo.NewHTTPError(http.StatusUnauthorized, "access token expired")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
			}
			return a.admit(c, next, claims, validator)
		}

		accessCookie, err := c.Cookie(tokens.AccessCookie)
		if err != nil || accessCookie.Value == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		claims, err := tokens.AccessClaimsFromToken(accessCookie.Value, a.JWTSecret)
		if err == nil {
			return a.admit(c, next, claims, validator)
		}

		if !errors.Is(err, jwt.ErrTokenExpired) || a.Refresher == nil {
			clearAuthCookies(c)
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}

		refreshCookie, rErr := c.Cookie(tokens.RefreshCookie)
		if rErr != nil || refreshCookie.Value == "" {
			clearAuthCookies(c)
			return echo.NewHTTPError(http.StatusUnauthorized, "refresh token missing")
		}

		refreshed, refErr := a.Refresher.RefreshTokens(c.Request().Context(), refreshCookie.Value, accessCookie.Value)
		if refErr != nil {
			clearAuthCookies(c)
			return echo.NewHTTPError(http.StatusUnauthorized, "refresh failed")
		}

		c.SetCookie(tokens.CreateCookie(tokens.AccessCookie, refreshed.AccessToken, "/", time.Unix(refreshed.AccessExp, 0)))
		c.SetCookie(tokens.CreateCookie(tokens.RefreshCookie, refreshed.RefreshToken, "/", time.Unix(refreshed.RefreshExp, 0)))

		newClaims, pErr := tokens.AccessClaimsFromToken(refreshed.AccessToken, a.JWTSecret)
		if pErr != nil {
			clearAuthCookies(c)
			return echo.NewHTTPError(http.StatusUnauthorized, "new access token invalid")
		}
		return a.admit(c, next, newClaims, validator)
	}
}

func (a *Authenticator) admit(c echo.Context, next echo.HandlerFunc, claims *tokens.AccessClaims, validator ValidatorFunc) error {
	if validator != nil {
		if err := validator(claims); err != nil {
			return err
		}
	}
	c.Set(CtxUserID, claims.Subject)
	c.Set(CtxRole, claims.Role)
	c.Set(CtxUsername, claims.Username)
	return next(c)
}

func BearerToken(r *http.Request) string {
	h := r.Header.Get(echo.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Principal reads the identity set by RequireAuth.
func Principal(c echo.Context) moderation.Principal {
	id, _ := c.Get(CtxUserID).(string)
	role, _ := c.Get(CtxRole).(string)
	username, _ := c.Get(CtxUsername).(string)
	return moderation.Principal{ID: id, Username: username, Role: moderation.Role(role)}
}

func clearAuthCookies(c echo.Context) {
	c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/"))
	c.SetCookie(tokens.DeleteCookie(tokens.RefreshCookie, "/"))
}
