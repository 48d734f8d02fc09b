package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"edge-tradesim/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		openDeposit, openTrading = "", ""
		dbDriver, dbDSN = "", ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestAccountAndDepositCommands(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "edgectl.db")
	t.Setenv("CONFIG_FILE", "")

	out, err := run(t, "migrate", "--db", dsn)
	require.NoError(t, err)
	assert.Contains(t, out, "schema up to date (sqlite)")

	out, err = run(t, "open-account", "acc-1", "--db", dsn, "--deposit", "40", "--trading", "60")
	require.NoError(t, err)
	var b model.Balance
	require.NoError(t, json.Unmarshal([]byte(out), &b))
	assert.Equal(t, "100.00", b.Total.String())

	_, err = run(t, "open-account", "acc-1", "--db", dsn)
	assert.Error(t, err)

	out, err = run(t, "adjust", "--db", dsn, "--", "acc-1", "trading", "-100")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &b))
	assert.Equal(t, "0.00", b.Trading.String())

	out, err = run(t, "sweep", "--db", dsn)
	require.NoError(t, err)
	assert.Contains(t, out, "settled 0 account(s)")

	_, err = run(t, "deposits", "approve", "missing-id", "--db", dsn)
	assert.Error(t, err)

	out, err = run(t, "deposits", "list", "--db", dsn)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}
