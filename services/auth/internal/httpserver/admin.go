package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tradezone/marketplace/pkg/apperr"
	"github.com/tradezone/marketplace/pkg/logging"
	authmw "github.com/tradezone/marketplace/pkg/middleware/auth"
	"github.com/tradezone/marketplace/pkg/moderation"
	"github.com/tradezone/marketplace/services/auth/internal/transport"
)

func (h *AuthHTTP) ListAccounts(c echo.Context) error {
	list, err := h.Svc.ListAccounts(c.Request().Context(), authmw.Principal(c))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, transport.ToViews(list))
}

func (h *AuthHTTP) GetAccount(c echo.Context) error {
	acc, err := h.Svc.GetAccount(c.Request().Context(), authmw.Principal(c), c.Param("id"))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, transport.ToView(acc))
}

func (h *AuthHTTP) Ban(c echo.Context) error { return h.setStatus(c, moderation.StatusBanned) }
func (h *AuthHTTP) Unban(c echo.Context) error { return h.setStatus(c, moderation.StatusActive) }

func (h *AuthHTTP) setStatus(c echo.Context, status moderation.Status) error {
	ctx := c.Request().Context()
	acc, err := h.Svc.SetAccountStatus(ctx, authmw.Principal(c), c.Param("id"), status)
	if err != nil {
		logging.FromContext(ctx).Warn("set_status_error", "status", apperr.HTTPStatus(err), "error", err)
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, transport.ToView(acc))
}

func (h *AuthHTTP) DeleteAccount(c echo.Context) error {
	if err := h.Svc.DeleteAccount(c.Request().Context(), authmw.Principal(c), c.Param("id")); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
