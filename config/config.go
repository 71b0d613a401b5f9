// Package config loads service settings from .env.local and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr string

	BoundaryCacheDir     string
	BoundaryAPIURL       string
	BoundaryRelease      string
	BoundaryFetchTimeout time.Duration
	BoundaryRPS          float64

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CountryOnlineLookup bool
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// Load reads .env.local when present (existing variables win) and then the
// environment.
func Load() (Config, error) {
	_ = godotenv.Load(".env.local")

	timeout, err := time.ParseDuration(getenv("BOUNDARY_FETCH_TIMEOUT", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("BOUNDARY_FETCH_TIMEOUT: %w", err)
	}

	cfg := Config{
		ListenAddr:           getenv("LISTEN_ADDR", ":8080"),
		BoundaryCacheDir:     getenv("BOUNDARY_CACHE_DIR", defaultCacheDir()),
		BoundaryAPIURL:       getenv("BOUNDARY_API_URL", "https://www.geoboundaries.org/api/current"),
		BoundaryRelease:      getenv("BOUNDARY_RELEASE", "gbOpen"),
		BoundaryFetchTimeout: timeout,
		BoundaryRPS:          getenvFloat("BOUNDARY_RPS", 2),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              getenvInt("REDIS_DB", 0),
		CountryOnlineLookup:  getenvBool("COUNTRY_ONLINE_LOOKUP", false),
	}
	if cfg.RedisDB < 0 {
		return cfg, fmt.Errorf("REDIS_DB must not be negative, got %d", cfg.RedisDB)
	}
	if cfg.BoundaryRPS < 0 {
		return cfg, fmt.Errorf("BOUNDARY_RPS must not be negative, got %v", cfg.BoundaryRPS)
	}
	return cfg, nil
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir + string(os.PathSeparator) + "border-snapper"
	}
	return ".boundary-cache"
}
