package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tradezone/marketplace/gateway/internal/middleware"
	"github.com/tradezone/marketplace/pkg/apperr"
	"github.com/tradezone/marketplace/pkg/middleware/csrf"
)

const APIPrefix = "/api/v1"

type Deps struct {
	AuthURL    string
	CatalogURL string
	OrderURL   string

	CSRFConfig csrf.Config
	Logger     *slog.Logger
}

// Register mounts the health probes and the reverse proxies. Services
// authenticate requests themselves; the gateway only strips the API prefix
// and enforces CSRF for cookie sessions.
func Register(e *echo.Echo, d *Deps) error {
	e.HTTPErrorHandler = apperr.ErrorHandler

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	for _, m := range middleware.Common(d.Logger) {
		e.Use(m)
	}

	authProxy, err := newProxy(d.AuthURL, APIPrefix)
	if err != nil {
		return err
	}
	catalogProxy, err := newProxy(d.CatalogURL, APIPrefix)
	if err != nil {
		return err
	}
	orderProxy, err := newProxy(d.OrderURL, APIPrefix)
	if err != nil {
		return err
	}

	api := e.Group(APIPrefix, csrf.Middleware(d.CSRFConfig))
	api.Any("/auth/*", authProxy)
	api.Any("/catalog/*", catalogProxy)
	api.Any("/orders", orderProxy)
	api.Any("/orders/*", orderProxy)

	return nil
}
