package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tradezone/marketplace/gateway/internal/config"
	"github.com/tradezone/marketplace/gateway/internal/httpserver"
	"github.com/tradezone/marketplace/pkg/logging"
	"github.com/tradezone/marketplace/pkg/middleware/csrf"
)

func main() {
	cfg := config.Load()

	logger := logging.New(cfg.LogLevel).With("service", "gateway")
	slog.SetDefault(logger)

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	csrfCfg := csrf.DefaultConfig()
	csrfCfg.Secure = cfg.SecureCSRF
	csrfCfg.SkipPaths = []string{
		httpserver.APIPrefix + "/auth/login",
		httpserver.APIPrefix + "/auth/register",
		httpserver.APIPrefix + "/auth/refresh",
	}

	if err := httpserver.Register(e, &httpserver.Deps{
		AuthURL:    cfg.AuthURL,
		CatalogURL: cfg.CatalogURL,
		OrderURL:   cfg.OrderURL,
		CSRFConfig: csrfCfg,
		Logger:     logger,
	}); err != nil {
		logger.Error("register routes", "error", err)
		os.Exit(1)
	}

	go func() {
		logger.Info("gateway listening", "addr", cfg.ListenAddr)
		if err := e.Start(cfg.ListenAddr); err != nil && err != http.ErrServerClosed {
			logger.Error("start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}
