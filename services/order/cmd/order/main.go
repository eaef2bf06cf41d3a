package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tradezone/marketplace/pkg/authclient"
	"github.com/tradezone/marketplace/pkg/catalogclient"
	pkgdb "github.com/tradezone/marketplace/pkg/db"
	"github.com/tradezone/marketplace/pkg/events"
	"github.com/tradezone/marketplace/pkg/logging"
	authmw "github.com/tradezone/marketplace/pkg/middleware/auth"

	ordercfg "github.com/tradezone/marketplace/services/order/internal/config"
	"github.com/tradezone/marketplace/services/order/internal/httpserver"
	"github.com/tradezone/marketplace/services/order/internal/repo"
	"github.com/tradezone/marketplace/services/order/internal/service"
)

func main() {
	cfg := ordercfg.Load()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		logger.Error("db open", "error", err)
		os.Exit(1)
	}
	defer pkgdb.Close(gdb)

	orders := repo.New(gdb)
	if err := orders.Migrate(); err != nil {
		logger.Error("migrate", "error", err)
		os.Exit(1)
	}

	pub := events.New(cfg.KafkaBrokers)
	defer pub.Close()

	var refresher authmw.Refresher
	if cfg.AuthHTTPURL != "" {
		refresher = authclient.NewClient(cfg.AuthHTTPURL)
	}

	e := echo.New()
	e.HideBanner = true
	httpserver.Register(e, &httpserver.Deps{
		OrderHandler: &httpserver.OrderHTTP{Svc: &service.OrderService{
			Repo:    orders,
			Catalog: catalogclient.NewClient(cfg.CatalogHTTPURL),
			Events:  pub,
		}},
		JWTSecret: cfg.JWTAccessSecret,
		Refresher: refresher,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		logger.Info("order listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)

	logger.Info("order stopped")
}
