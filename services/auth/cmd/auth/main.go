package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tradezone/marketplace/pkg/db"
	"github.com/tradezone/marketplace/pkg/events"
	"github.com/tradezone/marketplace/pkg/logging"
	"github.com/tradezone/marketplace/services/auth/internal/config"
	"github.com/tradezone/marketplace/services/auth/internal/httpserver"
	"github.com/tradezone/marketplace/services/auth/internal/repo"
	"github.com/tradezone/marketplace/services/auth/internal/service"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Error("db init error", "error", err)
		os.Exit(1)
	}
	defer db.Close(gdb)

	rp := repo.New(gdb)
	if err := rp.Migrate(); err != nil {
		log.Error("migrate error", "error", err)
		os.Exit(1)
	}

	pub := events.New(cfg.KafkaBrokers)
	defer pub.Close()

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{
			Svc: &service.AuthService{
				Repo:           rp,
				JWTSecret:      cfg.JWTAccessSecret,
				RefreshSecret:  cfg.JWTRefreshSecret,
				AccessTTL:      cfg.AccessTokenTTL,
				RefreshTTL:     cfg.RefreshTokenTTL,
				AdminInviteKey: cfg.AdminInviteKey,
				Events:         pub,
			},
		},
		JWTSecret: cfg.JWTAccessSecret,
		Logger:    log,
	})

	go func() {
		if err := e.Start(fmt.Sprintf(":%d", cfg.ServerPort)); err != nil && err != http.ErrServerClosed {
			log.Error("echo start", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("echo shutdown", "error", err)
	}
}
