package config

import (
	pkgconfig "github.com/tradezone/marketplace/pkg/config"
)

func Load() pkgconfig.Config {
	cfg := pkgconfig.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "auth"
	}
	pkgconfig.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	pkgconfig.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")
	pkgconfig.MustNonEmptyBytes(cfg.JWTRefreshSecret, "JWT_REFRESH_SECRET")
	return cfg
}
