package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tradezone/marketplace/pkg/apperr"
	authmw "github.com/tradezone/marketplace/pkg/middleware/auth"
	loggingmw "github.com/tradezone/marketplace/pkg/middleware/logging"
)

type Deps struct {
	AuthHandler *AuthHTTP
	JWTSecret   []byte
	Logger      *slog.Logger
}

func Register(e *echo.Echo, d *Deps) {
	e.HTTPErrorHandler = apperr.ErrorHandler
	e.Use(middleware.Recover(), middleware.RequestID())
	if d.Logger != nil {
		e.Use(loggingmw.RequestLogger(d.Logger))
	}

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	mw := authmw.New(d.JWTSecret, nil)

	g := e.Group("/auth")
	g.POST("/register", d.AuthHandler.Register)
	g.POST("/login", d.AuthHandler.Login)
	g.POST("/refresh", d.AuthHandler.Refresh)
	g.POST("/logout", d.AuthHandler.LogOut)
	g.GET("/me", d.AuthHandler.Me, mw.RequireAuth)

	admin := g.Group("/users", mw.RequireAdmin)
	admin.GET("", d.AuthHandler.ListAccounts)
	admin.GET("/:id", d.AuthHandler.GetAccount)
	admin.POST("/:id/ban", d.AuthHandler.Ban)
	admin.POST("/:id/unban", d.AuthHandler.Unban)
	admin.DELETE("/:id", d.AuthHandler.DeleteAccount)
}
