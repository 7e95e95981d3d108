package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("APP_ENV", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, 5*time.Minute, cfg.ActiveThreshold)
	assert.Equal(t, time.Minute, cfg.ActivityDebounce)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	assert.False(t, cfg.SecureCookies)
	assert.Equal(t, "/login", cfg.LoginPath)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("STORE_BACKEND", "mongo")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("ACADEMIC_DOMAINS", "epfl.ch,,ethz.ch")
	t.Setenv("ACTIVE_THRESHOLD", "2m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []string{"epfl.ch", "ethz.ch"}, cfg.AcademicDomains)
	assert.Equal(t, 2*time.Minute, cfg.ActiveThreshold)
	assert.True(t, cfg.SecureCookies)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("STORE_BACKEND", "mongo")
	t.Setenv("MONGO_URI", "")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("NOTIFY_TIMEOUT", "soon")
	_, err = Load()
	assert.ErrorContains(t, err, "NOTIFY_TIMEOUT")
}
