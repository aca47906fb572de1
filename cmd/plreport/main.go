// plreport - read-only profit and loss reporting across MT5 accounts.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mt5-pnl-reporter/internal/config"
	"mt5-pnl-reporter/internal/processor"
	"mt5-pnl-reporter/internal/rates"
	"mt5-pnl-reporter/internal/report"
	"mt5-pnl-reporter/internal/runner"
	"mt5-pnl-reporter/internal/terminal"
)

var version = "dev"

var (
	configPath string
	account    int64
	logLevel   string
	noConsole  bool
	jsonOnly   bool
	serve      bool
)

// exitCode is set by the run command and applied after Execute returns, so
// deferred cleanup still runs.
var exitCode int

func main() {
	rootCmd := &cobra.Command{
		Use:           "plreport",
		Short:         "Multi-account MT5 profit and loss reporter",
		Long:          "plreport connects to each configured MT5 account in turn, fetches open positions\nand pending orders, and produces combined profit and loss reports.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "plreport.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override configured log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Process all configured accounts and report",
		RunE:  runReport,
	}
	runCmd.Flags().Int64Var(&account, "account", 0, "Process only the account with this login")
	runCmd.Flags().BoolVar(&noConsole, "no-console", false, "Suppress the console report")
	runCmd.Flags().BoolVar(&jsonOnly, "json-only", false, "Write only the JSON summary file")
	runCmd.Flags().BoolVar(&serve, "serve", false, "Keep running and serve the result over HTTP")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration file and exit",
		RunE:  validateConfig,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("plreport version %s\n", version)
		},
	}

	rootCmd.AddCommand(runCmd, validateCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}

func runReport(_ *cobra.Command, _ []string) error {
	// Environment file is optional; config values reference it via ${VAR}.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	logger.Infof("plreport %s starting: %d accounts, %d symbols configured",
		version, len(cfg.Accounts), len(cfg.SymbolRates))

	table, err := rates.New(cfg.SymbolRates)
	if err != nil {
		return fmt.Errorf("symbol rates: %w", err)
	}

	accounts := cfg.Accounts
	if account != 0 {
		acct, ok := cfg.FindAccount(account)
		if !ok {
			return fmt.Errorf("account %d is not configured", account)
		}
		accounts = []config.Account{acct}
	}

	bridge := terminal.NewBridgeClient(cfg.Bridge.BaseURL, cfg.BridgeTimeout(), logger)
	term := terminal.NewCircuitBreakerTerminal(bridge, logger)
	proc := processor.New(term, table, cfg, logger)
	run := runner.New(proc, cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if serve && cfg.ReportServer.Enabled {
		return serveLoop(ctx, cfg, logger, run, accounts)
	}

	res := run.Run(ctx, accounts)
	writeOutputs(cfg, logger, res)

	exitCode = res.ExitCode()
	if ctx.Err() != nil {
		exitCode = 130
	}
	return nil
}

// serveLoop runs one pass, publishes the result on the report server, and
// keeps serving until the process is signalled.
func serveLoop(ctx context.Context, cfg *config.Config, logger *logrus.Logger, run *runner.Runner, accounts []config.Account) error {
	srv := report.NewServer(report.ServerConfig{
		Port:      cfg.ReportServer.Port,
		AuthToken: cfg.ReportServer.AuthToken,
	}, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		res := run.Run(gctx, accounts)
		writeOutputs(cfg, logger, res)
		srv.SetResult(res)
		exitCode = res.ExitCode()

		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if ctx.Err() != nil && exitCode == 0 {
		exitCode = 130
	}
	return nil
}

func writeOutputs(cfg *config.Config, logger *logrus.Logger, res runner.Result) {
	if cfg.Output.EnableConsole && !noConsole && !jsonOnly {
		report.WriteConsole(os.Stdout, res, cfg.Output.DetailedResults)
	}
	if cfg.Output.EnableJSON {
		path, err := report.WriteJSON(cfg.Output.JSONDirectory, report.NewDocument(res, cfg.Output.DetailedResults))
		if err != nil {
			logger.WithError(err).Error("failed to write JSON summary")
		} else {
			logger.Infof("JSON summary written to %s", path)
		}
	}
}

func validateConfig(_ *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if _, err := rates.New(cfg.SymbolRates); err != nil {
		return fmt.Errorf("symbol rates: %w", err)
	}

	fmt.Printf("Configuration OK: %d accounts, %d symbols\n", len(cfg.Accounts), len(cfg.SymbolRates))
	for _, acct := range cfg.Accounts {
		fmt.Printf("  %s (login %d, server %s)\n", acct.DisplayName(), acct.Login, acct.Server)
	}
	return nil
}

// newLogger builds the logrus logger from config, optionally teeing into a
// timestamped file under the configured log directory.
func newLogger(cfg *config.Config) (*logrus.Logger, func(), error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger.SetLevel(parsed)

	closeLog := func() {}
	if cfg.Logging.ToFile {
		if err := os.MkdirAll(cfg.Logging.Directory, 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		name := fmt.Sprintf("plreport_%s.log", time.Now().Format("20060102_150405"))
		f, err := os.OpenFile(filepath.Join(cfg.Logging.Directory, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		logger.SetOutput(io.MultiWriter(os.Stderr, f))
		closeLog = func() { _ = f.Close() }
	} else {
		logger.SetOutput(os.Stderr)
	}
	return logger, closeLog, nil
}
