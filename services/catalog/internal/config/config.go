package config

import (
	pkgconfig "github.com/tradezone/marketplace/pkg/config"
)

const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

func Load() pkgconfig.Config {
	cfg := pkgconfig.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "catalog"
	}
	pkgconfig.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")
	pkgconfig.MustOneOf(cfg.CatalogStore, "CATALOG_STORE", StorePostgres, StoreMongo)
	if cfg.CatalogStore == StoreMongo {
		pkgconfig.MustNonEmpty(cfg.MongoURL, "MONGO_URL")
	} else {
		pkgconfig.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	}
	return cfg
}
