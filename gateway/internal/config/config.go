package config

import pkgconfig "github.com/tradezone/marketplace/pkg/config"

type Config struct {
	ListenAddr string
	AuthURL    string
	CatalogURL string
	OrderURL   string
	LogLevel   string
	SecureCSRF bool
}

func Load() *Config {
	cfg := pkgconfig.Load()

	pkgconfig.MustNonEmpty(cfg.AuthHTTPURL, "AUTH_URL")
	pkgconfig.MustNonEmpty(cfg.CatalogHTTPURL, "CATALOG_URL")
	pkgconfig.MustNonEmpty(cfg.OrderHTTPURL, "ORDER_URL")

	return &Config{
		ListenAddr: cfg.GatewayAddr,
		AuthURL:    cfg.AuthHTTPURL,
		CatalogURL: cfg.CatalogHTTPURL,
		OrderURL:   cfg.OrderHTTPURL,
		LogLevel:   cfg.LogLevel,
		SecureCSRF: pkgconfig.EnvDefault("CSRF_SECURE_COOKIE", "false") == "true",
	}
}
