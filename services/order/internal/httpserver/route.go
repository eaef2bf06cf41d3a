package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/tradezone/marketplace/pkg/apperr"
	authmw "github.com/tradezone/marketplace/pkg/middleware/auth"
	loggingmw "github.com/tradezone/marketplace/pkg/middleware/logging"
)

type Deps struct {
	OrderHandler *OrderHTTP
	JWTSecret    []byte
	Refresher    authmw.Refresher
	Logger       *slog.Logger
}

func Register(e *echo.Echo, d *Deps) {
	e.HTTPErrorHandler = apperr.ErrorHandler
	e.Use(echomw.Recover(), echomw.RequestID())
	if d.Logger != nil {
		e.Use(loggingmw.RequestLogger(d.Logger))
	}

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	mw := authmw.New(d.JWTSecret, d.Refresher)

	orders := e.Group("/orders")
	orders.POST("", d.OrderHandler.CreateOrder, mw.RequireAuth)
	orders.GET("/mine", d.OrderHandler.ListMine, mw.RequireAuth)
	orders.GET("/:id", d.OrderHandler.GetOrder, mw.RequireAuth)

	orders.GET("", d.OrderHandler.ListAll, mw.RequireAdmin)
	orders.GET("/users/:id", d.OrderHandler.ListByUser, mw.RequireAdmin)
	orders.PATCH("/:id/status", d.OrderHandler.UpdateStatus, mw.RequireAdmin)
}
