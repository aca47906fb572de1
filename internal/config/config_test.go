package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
accounts:
  - login: 12345678
    password: secret
    server: Broker-Demo
symbol_rates:
  EURUSD: 100000
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plreport.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MinimalWithDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	require.Len(t, cfg.Accounts, 1)
	assert.Equal(t, int64(12345678), cfg.Accounts[0].Login)
	assert.Equal(t, "Broker-Demo", cfg.Accounts[0].Server)

	assert.Equal(t, 3, cfg.Processing.MaxConnectionAttempts)
	assert.Equal(t, 3, cfg.Processing.MaxAccountFailures)
	assert.Equal(t, time.Second, cfg.ConnectionRetryDelay())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "output", cfg.Output.JSONDirectory)
	assert.Equal(t, "http://127.0.0.1:6542", cfg.Bridge.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.BridgeTimeout())
	assert.Equal(t, 8787, cfg.ReportServer.Port)
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_MT5_PASSWORD", "hunter2")

	cfg, err := Load(writeConfig(t, `
accounts:
  - login: 1
    password: "${TEST_MT5_PASSWORD}"
    server: Broker-Demo
symbol_rates:
  EURUSD: 100000
`))
	require.NoError(t, err)
	assert.Equal(t, "hunter2", cfg.Accounts[0].Password)
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	_, err := Load(writeConfig(t, minimalYAML+`
proccessing:
  account_delay: 5s
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"no accounts", `
accounts: []
symbol_rates:
  EURUSD: 100000
`, "no accounts"},
		{"missing password", `
accounts:
  - login: 1
    server: Broker-Demo
symbol_rates:
  EURUSD: 100000
`, "password"},
		{"missing server", `
accounts:
  - login: 1
    password: x
symbol_rates:
  EURUSD: 100000
`, "server"},
		{"no rates", `
accounts:
  - login: 1
    password: x
    server: s
`, "symbol_rates"},
		{"negative rate", `
accounts:
  - login: 1
    password: x
    server: s
symbol_rates:
  EURUSD: -5
`, "positive finite"},
		{"bad delay", minimalYAML + `
processing:
  account_delay: banana
`, "account_delay"},
		{"bad log level", minimalYAML + `
logging:
  level: loud
`, "logging.level"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestAccountDelay(t *testing.T) {
	cfg := &Config{Processing: ProcessingConfig{
		EnableAccountDelay: true,
		AccountDelay:       "250ms",
	}}
	assert.Equal(t, 250*time.Millisecond, cfg.AccountDelay())

	cfg.Processing.EnableAccountDelay = false
	assert.Zero(t, cfg.AccountDelay())
}

func TestFilterMatches(t *testing.T) {
	f := FilterConfig{}
	assert.True(t, f.Matches(123))

	f = FilterConfig{EnableMagicFilter: true, MagicNumbers: []int64{777, 888}}
	assert.True(t, f.Matches(777))
	assert.False(t, f.Matches(123))

	// Enabled with an empty list passes everything rather than nothing.
	f = FilterConfig{EnableMagicFilter: true}
	assert.True(t, f.Matches(123))
}

func TestFindAccount(t *testing.T) {
	cfg := &Config{Accounts: []Account{{Login: 1}, {Login: 2, Name: "second"}}}

	acct, ok := cfg.FindAccount(2)
	require.True(t, ok)
	assert.Equal(t, "second", acct.Name)

	_, ok = cfg.FindAccount(99)
	assert.False(t, ok)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "main", Account{Login: 1, Name: "main"}.DisplayName())
	assert.Equal(t, "Account 1", Account{Login: 1}.DisplayName())
}
