// Package config provides configuration management for the profit/loss
// reporter. The configuration is loaded once at startup, validated, and
// treated as immutable for the rest of the run.
package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

const (
	// defaultAccountDelay is used when processing.account_delay is unset.
	defaultAccountDelay = 5 * time.Second
	// defaultConnectionRetryDelay is used when processing.connection_retry_delay is unset.
	defaultConnectionRetryDelay = 1 * time.Second
	// defaultMaxConnectionAttempts is used when processing.max_connection_attempts is unset.
	defaultMaxConnectionAttempts = 3
	// defaultMaxAccountFailures is used when processing.max_account_failures is unset.
	defaultMaxAccountFailures = 3
	// defaultBridgeTimeout is used when bridge.timeout is unset.
	defaultBridgeTimeout = 10 * time.Second
)

// Config represents the complete application configuration.
type Config struct {
	Accounts     []Account          `yaml:"accounts"`
	SymbolRates  map[string]float64 `yaml:"symbol_rates"`
	Processing   ProcessingConfig   `yaml:"processing"`
	Validation   ValidationConfig   `yaml:"validation"`
	Filter       FilterConfig       `yaml:"filter"`
	Output       OutputConfig       `yaml:"output"`
	Logging      LoggingConfig      `yaml:"logging"`
	Bridge       BridgeConfig       `yaml:"bridge"`
	ReportServer ReportServerConfig `yaml:"report_server"`
}

// Account identifies one terminal account. Immutable once loaded.
type Account struct {
	Login        int64  `yaml:"login"`
	Password     string `yaml:"password"`
	Server       string `yaml:"server"`
	TerminalPath string `yaml:"terminal_path"`
	Name         string `yaml:"name"`
}

// DisplayName returns the configured name, falling back to the login.
func (a Account) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return fmt.Sprintf("Account %d", a.Login)
}

// ProcessingConfig defines the sequential processing behavior.
type ProcessingConfig struct {
	EnableAccountDelay       bool   `yaml:"enable_account_delay"`
	AccountDelay             string `yaml:"account_delay"`           // e.g. "5s"
	ConnectionRetryDelay     string `yaml:"connection_retry_delay"`  // e.g. "1s"
	MaxConnectionAttempts    int    `yaml:"max_connection_attempts"` // per account
	ContinueOnAccountFailure bool   `yaml:"continue_on_account_failure"`
	MaxAccountFailures       int    `yaml:"max_account_failures"`
}

// ValidationConfig controls how missing symbol rates are handled.
//
// Skip takes precedence at the record level: a record whose symbol has no
// rate is dropped. ValidateSymbolConfig controls whether such a record is
// instead fatal for the whole account (strict mode).
type ValidationConfig struct {
	ValidateSymbolConfig     bool `yaml:"validate_symbol_config"`
	SkipMissingSymbolConfig  bool `yaml:"skip_missing_symbol_config"`
	LogMissingSymbolWarnings bool `yaml:"log_missing_symbol_warnings"`
}

// FilterConfig defines the optional magic-number filter applied to fetched
// records before validation.
type FilterConfig struct {
	EnableMagicFilter bool    `yaml:"enable_magic_filter"`
	MagicNumbers      []int64 `yaml:"magic_numbers"`
}

// Matches reports whether a record with the given magic number passes the
// filter. An empty filter list passes everything.
func (f FilterConfig) Matches(magic int64) bool {
	if !f.EnableMagicFilter || len(f.MagicNumbers) == 0 {
		return true
	}
	for _, m := range f.MagicNumbers {
		if m == magic {
			return true
		}
	}
	return false
}

// OutputConfig defines the report output surfaces.
type OutputConfig struct {
	EnableConsole   bool   `yaml:"enable_console"`
	EnableJSON      bool   `yaml:"enable_json"`
	JSONDirectory   string `yaml:"json_directory"`
	DetailedResults bool   `yaml:"detailed_results"`
}

// LoggingConfig defines the logging settings.
type LoggingConfig struct {
	Level     string `yaml:"level"` // debug | info | warn | error
	ToFile    bool   `yaml:"to_file"`
	Directory string `yaml:"directory"`
}

// BridgeConfig defines how to reach the local terminal bridge.
type BridgeConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"` // e.g. "10s"
}

// ReportServerConfig defines the optional HTTP server that exposes the
// finished run snapshot.
type ReportServerConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"auth_token"`
}

// Load reads and parses the configuration file from the specified path.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "plreport.yaml"
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- configPath is a user-provided config file path
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables so credentials can live outside the file
	expanded := os.ExpandEnv(string(data))

	var config Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Processing.AccountDelay == "" {
		c.Processing.AccountDelay = defaultAccountDelay.String()
	}
	if c.Processing.ConnectionRetryDelay == "" {
		c.Processing.ConnectionRetryDelay = defaultConnectionRetryDelay.String()
	}
	if c.Processing.MaxConnectionAttempts == 0 {
		c.Processing.MaxConnectionAttempts = defaultMaxConnectionAttempts
	}
	if c.Processing.MaxAccountFailures == 0 {
		c.Processing.MaxAccountFailures = defaultMaxAccountFailures
	}
	if c.Output.JSONDirectory == "" {
		c.Output.JSONDirectory = "output"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Directory == "" {
		c.Logging.Directory = "logs"
	}
	if c.Bridge.BaseURL == "" {
		c.Bridge.BaseURL = "http://127.0.0.1:6542"
	}
	if c.Bridge.Timeout == "" {
		c.Bridge.Timeout = defaultBridgeTimeout.String()
	}
	if c.ReportServer.Port == 0 {
		c.ReportServer.Port = 8787
	}
}

// Validate checks that all configuration values are valid and consistent.
// A failure here is fatal and aborts the run before any account is contacted.
func (c *Config) Validate() error {
	if len(c.Accounts) == 0 {
		return fmt.Errorf("no accounts configured")
	}
	for i, acct := range c.Accounts {
		if acct.Login <= 0 {
			return fmt.Errorf("accounts[%d]: login must be a positive integer", i)
		}
		if acct.Password == "" {
			return fmt.Errorf("accounts[%d] (login %d): password is required", i, acct.Login)
		}
		if acct.Server == "" {
			return fmt.Errorf("accounts[%d] (login %d): server is required", i, acct.Login)
		}
	}

	if len(c.SymbolRates) == 0 {
		return fmt.Errorf("symbol_rates cannot be empty")
	}
	for symbol, value := range c.SymbolRates {
		if value <= 0 || math.IsInf(value, 0) || math.IsNaN(value) {
			return fmt.Errorf("symbol_rates[%s]: %v is not a positive finite number", symbol, value)
		}
	}

	if _, err := time.ParseDuration(c.Processing.AccountDelay); err != nil {
		return fmt.Errorf("processing.account_delay invalid: %w", err)
	}
	if _, err := time.ParseDuration(c.Processing.ConnectionRetryDelay); err != nil {
		return fmt.Errorf("processing.connection_retry_delay invalid: %w", err)
	}
	if c.Processing.MaxConnectionAttempts < 1 {
		return fmt.Errorf("processing.max_connection_attempts must be >= 1")
	}
	if c.Processing.MaxAccountFailures < 1 {
		return fmt.Errorf("processing.max_account_failures must be >= 1")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}

	if _, err := time.ParseDuration(c.Bridge.Timeout); err != nil {
		return fmt.Errorf("bridge.timeout invalid: %w", err)
	}
	if c.ReportServer.Port < 1 || c.ReportServer.Port > 65535 {
		return fmt.Errorf("report_server.port must be in [1,65535]")
	}

	return nil
}

// AccountDelay returns the configured inter-account delay, or zero when the
// delay is disabled.
func (c *Config) AccountDelay() time.Duration {
	if !c.Processing.EnableAccountDelay {
		return 0
	}
	d, err := time.ParseDuration(c.Processing.AccountDelay)
	if err != nil {
		return defaultAccountDelay
	}
	return d
}

// ConnectionRetryDelay returns the delay between connection attempts.
func (c *Config) ConnectionRetryDelay() time.Duration {
	d, err := time.ParseDuration(c.Processing.ConnectionRetryDelay)
	if err != nil {
		return defaultConnectionRetryDelay
	}
	return d
}

// BridgeTimeout returns the HTTP timeout for bridge requests.
func (c *Config) BridgeTimeout() time.Duration {
	d, err := time.ParseDuration(c.Bridge.Timeout)
	if err != nil {
		return defaultBridgeTimeout
	}
	return d
}

// FindAccount returns the account with the given login, if configured.
func (c *Config) FindAccount(login int64) (Account, bool) {
	for _, acct := range c.Accounts {
		if acct.Login == login {
			return acct, true
		}
	}
	return Account{}, false
}
