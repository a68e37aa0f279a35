package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 100, cfg.PanelSize)
	assert.Equal(t, uint64(42), cfg.HistorySeed)
	assert.Equal(t, 30*time.Second, cfg.RefreshInterval)
	assert.Equal(t, "fanmetrics_session", cfg.SessionCookie)
	assert.Equal(t, 120, cfg.RateLimit)
	start, err := cfg.HistoryStart()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC), start)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("PANEL_SIZE", "250")
	t.Setenv("MARKET_SEED", "99")
	t.Setenv("MARKET_START", "2021-06")
	t.Setenv("REFRESH_INTERVAL", "5s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 250, cfg.PanelSize)
	assert.Equal(t, uint64(99), cfg.SessionSeed)
	assert.Equal(t, 5*time.Second, cfg.RefreshInterval)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"bad start":    {"MARKET_START", "2021/06"},
		"zero panel":   {"PANEL_SIZE", "0"},
		"zero cap":     {"SESSION_CAPACITY", "0"},
		"fast refresh": {"REFRESH_INTERVAL", "10ms"},
		"not a number": {"PANEL_SIZE", "many"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(env[0], env[1])
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
