package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tradezone/marketplace/pkg/apperr"
	"github.com/tradezone/marketplace/pkg/authclient"
	"github.com/tradezone/marketplace/pkg/logging"
	authmw "github.com/tradezone/marketplace/pkg/middleware/auth"
	"github.com/tradezone/marketplace/pkg/tokens"
	"github.com/tradezone/marketplace/services/auth/internal/service"
	"github.com/tradezone/marketplace/services/auth/internal/transport"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Register(ctx, service.RegisterInput{
		Username:       req.Username,
		Email:          req.Email,
		Password:       req.Password,
		ContactDetails: req.ContactDetails,
		Role:           req.Role,
		AdminKey:       req.AdminKey,
	})
	if err != nil {
		return failedPayload(c, err)
	}

	setAuthCookies(c, res)
	return c.JSON(http.StatusCreated, successPayload("Registration successful", res))
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		return failedPayload(c, err)
	}

	setAuthCookies(c, res)
	return c.JSON(http.StatusOK, successPayload("Login successful", res))
}

// Refresh takes the refresh token from the JSON body or the refresh cookie.
func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	var req transport.RefreshRequest
	_ = c.Bind(&req)
	if req.RefreshToken == "" {
		if ck, err := c.Cookie(tokens.RefreshCookie); err == nil {
			req.RefreshToken = ck.Value
		}
	}
	if req.RefreshToken == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh token missing")
	}

	res, err := h.Svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		clearAuthCookies(c)
		l.Warn("refresh_error", "status", apperr.HTTPStatus(err), "error", err)
		return apperr.HTTPError(err)
	}

	setAuthCookies(c, res)
	return c.JSON(http.StatusOK, authclient.RefreshResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		AccessExp:    res.AccessExp.Unix(),
		RefreshExp:   res.RefreshExp.Unix(),
		Role:         string(res.Account.Role),
	})
}

func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	var req transport.RefreshRequest
	_ = c.Bind(&req)
	if req.RefreshToken == "" {
		if ck, err := c.Cookie(tokens.RefreshCookie); err == nil {
			req.RefreshToken = ck.Value
		}
	}

	clearAuthCookies(c)
	if err := h.Svc.LogOut(ctx, req.RefreshToken); err != nil {
		l.Error("logout_failed", "status", 500, "reason", "cannot revoke refreshToken", "error", err)
		return apperr.HTTPError(err)
	}

	l.Info("successful_logout")
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	acc, err := h.Svc.Me(c.Request().Context(), authmw.Principal(c).ID)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, transport.ToView(acc))
}

func successPayload(msg string, res *service.AuthResult) transport.AuthPayload {
	return transport.AuthPayload{
		Success:      true,
		Message:      msg,
		Token:        res.AccessToken,
		RefreshToken: res.RefreshToken,
		AccessExp:    res.AccessExp.Unix(),
		RefreshExp:   res.RefreshExp.Unix(),
		User:         transport.ToView(res.Account),
	}
}

func failedPayload(c echo.Context, err error) error {
	code := apperr.HTTPStatus(err)
	msg := apperr.Message(err)
	if code == http.StatusInternalServerError {
		logging.FromContext(c.Request().Context()).Error("auth_error", "error", err)
		msg = "internal error"
	}
	return c.JSON(code, transport.AuthPayload{
		Success: false,
		Message: msg,
		Reason:  service.LoginReason(err),
	})
}

func setAuthCookies(c echo.Context, res *service.AuthResult) {
	c.SetCookie(tokens.CreateCookie(tokens.AccessCookie, res.AccessToken, "/", res.AccessExp))
	c.SetCookie(tokens.CreateCookie(tokens.RefreshCookie, res.RefreshToken, "/", res.RefreshExp))
}

func clearAuthCookies(c echo.Context) {
	c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/"))
	c.SetCookie(tokens.DeleteCookie(tokens.RefreshCookie, "/"))
}
