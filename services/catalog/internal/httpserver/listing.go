package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tradezone/marketplace/pkg/apperr"
	"github.com/tradezone/marketplace/pkg/logging"
	authmw "github.com/tradezone/marketplace/pkg/middleware/auth"
	"github.com/tradezone/marketplace/pkg/moderation"
	"github.com/tradezone/marketplace/services/catalog/internal/service"
	"github.com/tradezone/marketplace/services/catalog/internal/transport"
)

type CatalogHTTP struct {
	Svc *service.CatalogService
}

func fail(c echo.Context, event string, err error) error {
	l := logging.FromContext(c.Request().Context())
	code := apperr.HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		l.Error(event, "status", code, "error", err)
	} else {
		l.Warn(event, "status", code, "error", err)
	}
	return apperr.HTTPError(err)
}

func (h *CatalogHTTP) ListActive(c echo.Context) error {
	items, err := h.Svc.ListActive(c.Request().Context())
	if err != nil {
		return fail(c, "list_listings_error", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *CatalogHTTP) ListAll(c echo.Context) error {
	items, err := h.Svc.ListAll(c.Request().Context(), authmw.Principal(c))
	if err != nil {
		return fail(c, "list_all_listings_error", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *CatalogHTTP) ListMine(c echo.Context) error {
	items, err := h.Svc.ListMine(c.Request().Context(), authmw.Principal(c))
	if err != nil {
		return fail(c, "list_my_listings_error", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *CatalogHTTP) ListSeller(c echo.Context) error {
	items, err := h.Svc.ListSeller(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, "list_seller_listings_error", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *CatalogHTTP) Get(c echo.Context) error {
	item, err := h.Svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, "get_listing_error", err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *CatalogHTTP) Create(c echo.Context) error {
	var req transport.CreateListingRequest
	if err := c.Bind(&req); err != nil {
		logging.FromContext(c.Request().Context()).Warn("create_listing_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	item, err := h.Svc.Create(c.Request().Context(), authmw.Principal(c), req)
	if err != nil {
		return fail(c, "create_listing_error", err)
	}
	logging.FromContext(c.Request().Context()).Info("create_listing_success", "listing_id", item.ID)
	return c.JSON(http.StatusCreated, item)
}

func (h *CatalogHTTP) Patch(c echo.Context) error {
	var req transport.PatchListingRequest
	if err := c.Bind(&req); err != nil {
		logging.FromContext(c.Request().Context()).Warn("patch_listing_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	item, err := h.Svc.Update(c.Request().Context(), authmw.Principal(c), c.Param("id"), req)
	if err != nil {
		return fail(c, "patch_listing_error", err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *CatalogHTTP) Delete(c echo.Context) error {
	if err := h.Svc.Delete(c.Request().Context(), authmw.Principal(c), c.Param("id")); err != nil {
		return fail(c, "delete_listing_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CatalogHTTP) Ban(c echo.Context) error {
	return h.setStatus(c, moderation.StatusBanned)
}

func (h *CatalogHTTP) Unban(c echo.Context) error {
	return h.setStatus(c, moderation.StatusActive)
}

func (h *CatalogHTTP) setStatus(c echo.Context, status moderation.Status) error {
	item, err := h.Svc.SetStatus(c.Request().Context(), authmw.Principal(c), c.Param("id"), status)
	if err != nil {
		return fail(c, "set_listing_status_error", err)
	}
	return c.JSON(http.StatusOK, item)
}
