package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"MAX_MATCHES_PER_READ", "MAX_ERRORS", "WORKER_COUNT", "BATCH_SIZE", "METRICS_ADDR", "NEO4J_URI"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()
	assert.Equal(t, 100, cfg.MaxMatchesPerRead)
	assert.Equal(t, 1000, cfg.MaxErrors)
	assert.Equal(t, 8, cfg.WorkerCount)
	assert.Equal(t, 5000, cfg.BatchSize)
	assert.Equal(t, "bolt://localhost:7687", cfg.Neo4jURI)
	assert.Empty(t, cfg.MetricsAddr)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MAX_MATCHES_PER_READ", "25")
	t.Setenv("MAX_ERRORS", "0")
	t.Setenv("WORKER_COUNT", "many")
	t.Setenv("METRICS_ADDR", ":9090")

	cfg := FromEnv()
	assert.Equal(t, 25, cfg.MaxMatchesPerRead)
	assert.Equal(t, 1000, cfg.MaxErrors, "non-positive falls back")
	assert.Equal(t, 8, cfg.WorkerCount, "garbage falls back")
	assert.Equal(t, ":9090", cfg.MetricsAddr)
}
