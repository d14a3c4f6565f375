package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8004, cfg.HTTPPort)
	assert.Equal(t, "localhost", cfg.PostgresHost)
	assert.Equal(t, "catalog_db", cfg.PostgresDB)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 300, cfg.OptionsCacheTTLSecs)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.RedisEnabled())
	assert.False(t, cfg.OTELEnabled)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CATALOG_HTTP_PORT", "9000")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.RedisEnabled())
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("CATALOG_HTTP_PORT", "99999")

	_, err := Load()

	assert.Error(t, err)
}

func TestLoad_PoolBoundsInverted(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "2")
	t.Setenv("DB_MIN_CONNS", "10")

	_, err := Load()

	assert.Error(t, err)
}

func TestLoad_InvalidSampleRate(t *testing.T) {
	t.Setenv("OTEL_SAMPLE_RATE", "1.5")

	_, err := Load()

	assert.Error(t, err)
}
