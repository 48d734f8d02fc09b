package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"edge-tradesim/internal/money"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaults(t *testing.T) {
	c, err := LoadFrom(envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, "edge.db", c.DBDSN)
	assert.Equal(t, time.Second, c.SettleInterval)
	assert.Equal(t, 1500*time.Millisecond, c.QuoteInterval)
	assert.Equal(t, money.FromInt(10), c.MinAmount)
	assert.Equal(t, money.FromInt(10000), c.DemoDeposit)
	assert.Equal(t, "0.8", c.WinPayoutRate.String())
	assert.Equal(t, int64(4), c.WinEvery)
	assert.Error(t, c.RequireServer())
}

func TestLoadEnvOverrides(t *testing.T) {
	c, err := LoadFrom(envMap(map[string]string{
		"DB_DRIVER":          "postgres",
		"DB_DSN":             "postgres://edge@localhost/edge",
		"INTERNAL_API_TOKEN": "secret",
		"SETTLE_INTERVAL":    "250ms",
		"MIN_AMOUNT":         "5.5",
		"WIN_EVERY":          "3",
		"MIRROR_URL":         "https://mirror.example.com/events",
	}))
	require.NoError(t, err)
	assert.Equal(t, "postgres", c.DBDriver)
	assert.Equal(t, 250*time.Millisecond, c.SettleInterval)
	assert.Equal(t, "5.50", c.MinAmount.String())
	assert.Equal(t, int64(3), c.WinEvery)
	assert.NoError(t, c.RequireServer())
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := LoadFrom(envMap(map[string]string{"SETTLE_INTERVAL": "soon", "MIN_AMOUNT": "ten"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SETTLE_INTERVAL")
	assert.Contains(t, err.Error(), "MIN_AMOUNT")

	_, err = LoadFrom(envMap(map[string]string{"DB_DRIVER": "postgres"}))
	assert.ErrorContains(t, err, "DBDSN")

	_, err = LoadFrom(envMap(map[string]string{"MIRROR_URL": "not a url"}))
	assert.ErrorContains(t, err, "MirrorURL")
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_addr: \":9090\"\nwin_every: 5\ndemo_trading: \"250.00\"\nquote_interval: 2s\n"), 0o600))

	c, err := LoadFrom(envMap(map[string]string{"CONFIG_FILE": path, "WIN_EVERY": "6"}))
	require.NoError(t, err)
	assert.Equal(t, ":9090", c.HTTPAddr)
	assert.Equal(t, int64(6), c.WinEvery)
	assert.Equal(t, money.FromInt(250), c.DemoTrading)
	assert.Equal(t, 2*time.Second, c.QuoteInterval)
}
