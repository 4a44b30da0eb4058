// Package config loads application configuration from the environment. A
// .env file in the working directory is read first when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

// DBConfig holds the MySQL connection settings.
type DBConfig struct {
	User string
	Pass string
	Host string
	Port string
	Name string
}

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
	Env             string   // APP_ENV (dev, test, prod)
	Port            string   // APP_PORT
	StoreDriver     string   // STORE_DRIVER: mysql or memory
	DB              DBConfig // DB_*
	Migrate         bool     // DB_MIGRATE: apply embedded migrations at startup
	JWTSecret       string   // JWT_SECRET
	AccessTTLMin    int      // ACCESS_TOKEN_TTL_MIN
	RefreshTTLDays  int      // REFRESH_TOKEN_TTL_DAYS
	BcryptCost      int      // BCRYPT_COST
	LogLevel        string   // LOG_LEVEL
	SearchRadiusKm  float64  // SEARCH_DEFAULT_RADIUS_KM
	UploadDir       string   // UPLOAD_DIR
	MaxCertificates int      // MAX_CERTIFICATES
	CORSOrigins     []string // CORS_ORIGINS, comma separated
	ShutdownTimeout time.Duration
	Admin           AdminConfig
}

// AdminConfig seeds the bootstrap administrator at startup. Seeding is off
// while Email is empty.
type AdminConfig struct {
	Email    string // ADMIN_EMAIL
	Username string // ADMIN_USERNAME, defaults to the email's local part
	Password string // ADMIN_PASSWORD
}

// Load reads configuration values from the environment. With the mysql
// driver every DB_* variable except DB_PASS is required; JWT_SECRET is
// always required.
func Load() (Config, error) {
	_ = godotenv.Load() // a missing .env is fine

	var missing []string
	must := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := Config{
		Env:             envStr("APP_ENV", "dev"),
		Port:            envStr("APP_PORT", "8080"),
		StoreDriver:     strings.ToLower(envStr("STORE_DRIVER", DriverMySQL)),
		Migrate:         envBool("DB_MIGRATE", true),
		JWTSecret:       must("JWT_SECRET"),
		AccessTTLMin:    envInt("ACCESS_TOKEN_TTL_MIN", 15),
		RefreshTTLDays:  envInt("REFRESH_TOKEN_TTL_DAYS", 7),
		BcryptCost:      envInt("BCRYPT_COST", 10),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		SearchRadiusKm:  envFloat("SEARCH_DEFAULT_RADIUS_KM", 10),
		UploadDir:       envStr("UPLOAD_DIR", "uploads"),
		MaxCertificates: envInt("MAX_CERTIFICATES", 5),
		CORSOrigins:     splitList(envStr("CORS_ORIGINS", "*")),
		ShutdownTimeout: envDur("SHUTDOWN_TIMEOUT", 10*time.Second),
		Admin: AdminConfig{
			Email:    strings.TrimSpace(os.Getenv("ADMIN_EMAIL")),
			Username: strings.TrimSpace(os.Getenv("ADMIN_USERNAME")),
			Password: os.Getenv("ADMIN_PASSWORD"),
		},
	}

	switch cfg.StoreDriver {
	case DriverMySQL:
		cfg.Env = must("APP_ENV")
		cfg.Port = must("APP_PORT")
		cfg.DB = DBConfig{
			User: must("DB_USER"),
			Pass: os.Getenv("DB_PASS"),
			Host: must("DB_HOST"),
			Port: must("DB_PORT"),
			Name: must("DB_NAME"),
		}
	case DriverMemory:
	default:
		return Config{}, fmt.Errorf("config: unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("config: missing required env vars: %s", strings.Join(missing, ", "))
	}
	if cfg.AccessTTLMin <= 0 || cfg.RefreshTTLDays <= 0 {
		return Config{}, fmt.Errorf("config: token TTLs must be positive")
	}
	if cfg.Admin.Email != "" && cfg.Admin.Password == "" {
		return Config{}, fmt.Errorf("config: ADMIN_PASSWORD is required when ADMIN_EMAIL is set")
	}
	if cfg.SearchRadiusKm <= 0 {
		cfg.SearchRadiusKm = 10
	}
	return cfg, nil
}

// IsProd reports whether APP_ENV selects production behaviour.
func (c Config) IsProd() bool { return strings.EqualFold(c.Env, "prod") || strings.EqualFold(c.Env, "production") }

func envFloat(k string, d float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
