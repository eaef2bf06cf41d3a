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
	pkgconfig "github.com/tradezone/marketplace/pkg/config"
	pkgdb "github.com/tradezone/marketplace/pkg/db"
	"github.com/tradezone/marketplace/pkg/events"
	"github.com/tradezone/marketplace/pkg/logging"
	authmw "github.com/tradezone/marketplace/pkg/middleware/auth"
	"github.com/tradezone/marketplace/pkg/mongodb"

	catalogcfg "github.com/tradezone/marketplace/services/catalog/internal/config"
	"github.com/tradezone/marketplace/services/catalog/internal/httpserver"
	"github.com/tradezone/marketplace/services/catalog/internal/repo"
	"github.com/tradezone/marketplace/services/catalog/internal/service"
)

func main() {
	cfg := catalogcfg.Load()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	store, closeStore, err := openStore(cfg)
	if err != nil {
		logger.Error("store open", "store", cfg.CatalogStore, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	pub := events.New(cfg.KafkaBrokers)
	defer pub.Close()

	var refresher authmw.Refresher
	if cfg.AuthHTTPURL != "" {
		refresher = authclient.NewClient(cfg.AuthHTTPURL)
	}

	e := echo.New()
	e.HideBanner = true
	httpserver.Register(e, &httpserver.Deps{
		CatalogHandler: &httpserver.CatalogHTTP{Svc: &service.CatalogService{Repo: store, Events: pub}},
		JWTSecret:      cfg.JWTAccessSecret,
		Refresher:      refresher,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		logger.Info("catalog listening", "addr", srv.Addr, "store", cfg.CatalogStore)
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

	logger.Info("catalog stopped")
}

func openStore(cfg pkgconfig.Config) (repo.Repo, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if cfg.CatalogStore == catalogcfg.StoreMongo {
		mdb, err := mongodb.Connect(ctx, cfg.MongoURL, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		r := repo.NewMongo(mdb)
		if err := r.EnsureIndexes(ctx); err != nil {
			return nil, nil, err
		}
		return r, func() { _ = mongodb.Disconnect(context.Background(), mdb) }, nil
	}

	gdb, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	r := repo.NewGorm(gdb)
	if err := r.Migrate(); err != nil {
		return nil, nil, err
	}
	return r, func() { _ = pkgdb.Close(gdb) }, nil
}
