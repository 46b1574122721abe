package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all runtime settings, read from the environment
type Config struct {
	Port      string
	MongoURI  string
	MongoDB   string
	RedisAddr string
	JWTSecret string
	LogLevel  string
}

// Load reads .env if present and resolves settings with defaults
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment")
	}

	cfg := &Config{
		Port:      getEnv("PORT", "8080"),
		MongoURI:  getEnv("MONGO_URI", "mongodb://localhost:27017/sinfiltro"),
		MongoDB:   getEnv("MONGO_DB", "sinfiltro"),
		RedisAddr: getEnv("REDIS_URI", "localhost:6379"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
	}

	// Strip scheme so the address works with go-redis
	cfg.RedisAddr = strings.TrimPrefix(cfg.RedisAddr, "redis://")

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
