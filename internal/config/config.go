package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	MaxMatchesPerRead int
	MaxErrors         int
	WorkerCount       int
	BatchSize         int
	DatabaseURL       string
	Neo4jURI          string
	Neo4jUser         string
	Neo4jPassword     string
	MetricsAddr       string
}

// Load reads .env (if any) and the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment alone.
func FromEnv() *Config {
	return &Config{
		MaxMatchesPerRead: getEnvInt("MAX_MATCHES_PER_READ", 100),
		MaxErrors:         getEnvInt("MAX_ERRORS", 1000),
		WorkerCount:       getEnvInt("WORKER_COUNT", 8),
		BatchSize:         getEnvInt("BATCH_SIZE", 5000),
		DatabaseURL:       getEnv("DATABASE_URL", "postgres://localhost:5432/alnstream?sslmode=disable"),
		Neo4jURI:          getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:         getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:     getEnv("NEO4J_PASSWORD", "password"),
		MetricsAddr:       getEnv("METRICS_ADDR", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		log.Warn().Str("key", key).Str("value", v).Int("fallback", fallback).Msg("Ignoring invalid integer setting")
		return fallback
	}
	return n
}
