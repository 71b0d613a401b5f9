package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"LISTEN_ADDR", "BOUNDARY_API_URL", "BOUNDARY_RELEASE", "BOUNDARY_FETCH_TIMEOUT",
		"BOUNDARY_RPS", "REDIS_ADDR", "REDIS_DB", "COUNTRY_ONLINE_LOOKUP"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "gbOpen", cfg.BoundaryRelease)
	assert.Equal(t, 60*time.Second, cfg.BoundaryFetchTimeout)
	assert.Equal(t, 2.0, cfg.BoundaryRPS)
	assert.Empty(t, cfg.RedisAddr)
	assert.False(t, cfg.CountryOnlineLookup)
	assert.NotEmpty(t, cfg.BoundaryCacheDir)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("BOUNDARY_RELEASE", "gbHumanitarian")
	t.Setenv("BOUNDARY_FETCH_TIMEOUT", "5s")
	t.Setenv("BOUNDARY_RPS", "0.5")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("COUNTRY_ONLINE_LOOKUP", "true")
	t.Setenv("BOUNDARY_CACHE_DIR", "/tmp/boundaries")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "gbHumanitarian", cfg.BoundaryRelease)
	assert.Equal(t, 5*time.Second, cfg.BoundaryFetchTimeout)
	assert.Equal(t, 0.5, cfg.BoundaryRPS)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.True(t, cfg.CountryOnlineLookup)
	assert.Equal(t, "/tmp/boundaries", cfg.BoundaryCacheDir)
}

func TestLoadErrors(t *testing.T) {
	var tests = []struct {
		key, value string
	}{
		0: {key: "BOUNDARY_FETCH_TIMEOUT", value: "soon"},
		1: {key: "REDIS_DB", value: "-1"},
		2: {key: "BOUNDARY_RPS", value: "-2"},
	}

	for i, tt := range tests {
		t.Setenv("BOUNDARY_FETCH_TIMEOUT", "")
		t.Setenv("REDIS_DB", "")
		t.Setenv("BOUNDARY_RPS", "")
		t.Setenv(tt.key, tt.value)

		_, err := Load()
		assert.Error(t, err, "test %d", i)
		assert.Contains(t, err.Error(), tt.key, "test %d", i)
	}
}
