package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string

	DatabaseURL string

	JWTAccessSecret  []byte
	JWTRefreshSecret []byte
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration

	AuthHTTPURL    string
	CatalogHTTPURL string
	OrderHTTPURL   string
	GatewayAddr    string

	KafkaBrokers []string

	CatalogStore  string
	MongoURL      string
	MongoDatabase string

	AdminInviteKey string
}

// Load reads the process environment. A .env file in the working directory
// (or the one named by ENV_FILE) is applied first when present.
func Load() Config {
	envFile := EnvDefault("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		log.Printf("notice: %s not loaded: %v", envFile, err)
	}

	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", ""),
		ServerPort:  EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTAccessSecret:  []byte(os.Getenv("JWT_SECRET")),
		JWTRefreshSecret: []byte(os.Getenv("JWT_REFRESH_SECRET")),
		AccessTokenTTL:   EnvDurationDefault("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:  EnvDurationDefault("REFRESH_TOKEN_TTL", 7*24*time.Hour),

		AuthHTTPURL:    os.Getenv("AUTH_URL"),
		CatalogHTTPURL: os.Getenv("CATALOG_URL"),
		OrderHTTPURL:   os.Getenv("ORDER_URL"),
		GatewayAddr:    EnvDefault("GATEWAY_ADDR", ":8080"),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		CatalogStore:  strings.ToLower(EnvDefault("CATALOG_STORE", "postgres")),
		MongoURL:      os.Getenv("MONGO_URL"),
		MongoDatabase: EnvDefault("MONGO_DATABASE", "tradezone"),

		AdminInviteKey: os.Getenv("ADMIN_INVITE_KEY"),
	}
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
