package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tradezone/marketplace/pkg/apperr"
	"github.com/tradezone/marketplace/pkg/logging"
	authmw "github.com/tradezone/marketplace/pkg/middleware/auth"
	"github.com/tradezone/marketplace/services/order/internal/service"
	"github.com/tradezone/marketplace/services/order/internal/transport"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type OrderHTTP struct {
	Svc *service.OrderService
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

func (h *OrderHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()

	var req transport.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		logging.FromContext(ctx).Warn("create_order_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, created, err := h.Svc.CreateOrder(ctx, authmw.Principal(c), req, c.Request().Header.Get(HeaderIdempotencyKey))
	if err != nil {
		return fail(c, "create_order_error", err)
	}
	if !created {
		return c.JSON(http.StatusOK, order)
	}
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHTTP) ListMine(c echo.Context) error {
	orders, err := h.Svc.ListMine(c.Request().Context(), authmw.Principal(c))
	if err != nil {
		return fail(c, "list_my_orders_error", err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHTTP) ListAll(c echo.Context) error {
	orders, err := h.Svc.ListAll(c.Request().Context(), authmw.Principal(c))
	if err != nil {
		return fail(c, "list_orders_error", err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHTTP) ListByUser(c echo.Context) error {
	orders, err := h.Svc.ListByUser(c.Request().Context(), authmw.Principal(c), c.Param("id"))
	if err != nil {
		return fail(c, "list_user_orders_error", err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	order, err := h.Svc.Get(c.Request().Context(), authmw.Principal(c), c.Param("id"))
	if err != nil {
		return fail(c, "get_order_error", err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()

	var req transport.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		logging.FromContext(ctx).Warn("update_order_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.UpdateStatus(ctx, authmw.Principal(c), c.Param("id"), req.Status)
	if err != nil {
		return fail(c, "update_order_error", err)
	}
	logging.FromContext(ctx).Info("update_order_success", "order_id", order.OrderID, "order_status", order.Status)
	return c.JSON(http.StatusOK, order)
}
