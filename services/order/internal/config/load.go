package config

import pkgconfig "github.com/tradezone/marketplace/pkg/config"

func Load() pkgconfig.Config {
	cfg := pkgconfig.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "order"
	}

	pkgconfig.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	pkgconfig.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")
	pkgconfig.MustNonEmpty(cfg.CatalogHTTPURL, "CATALOG_URL")

	return cfg
}
