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
	CatalogHandler *CatalogHTTP
	JWTSecret      []byte
	Refresher      authmw.Refresher
	Logger         *slog.Logger
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

	catalog := e.Group("/catalog")
	catalog.GET("/listings", d.CatalogHandler.ListActive)
	catalog.GET("/listings/all", d.CatalogHandler.ListAll, mw.RequireAdmin)
	catalog.GET("/listings/mine", d.CatalogHandler.ListMine, mw.RequireAuth)
	catalog.GET("/listings/:id", d.CatalogHandler.Get)
	catalog.GET("/sellers/:id/listings", d.CatalogHandler.ListSeller)

	catalog.POST("/listings", d.CatalogHandler.Create, mw.RequireAuth)
	catalog.PATCH("/listings/:id", d.CatalogHandler.Patch, mw.RequireAuth)
	catalog.DELETE("/listings/:id", d.CatalogHandler.Delete, mw.RequireAuth)
	catalog.POST("/listings/:id/ban", d.CatalogHandler.Ban, mw.RequireAdmin)
	catalog.POST("/listings/:id/unban", d.CatalogHandler.Unban, mw.RequireAdmin)
}
