package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/goldsim/config"
	"github.com/rustyeddy/goldsim/journal"
	"github.com/rustyeddy/goldsim/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "goldsim",
	Short: "A gold trading portfolio simulator",
	Long: `Goldsim simulates a gold trading account.

It provides:
  - A synthetic spot price driven by a drifting random walk
  - Rolling 5M, 1H and 4H chart windows
  - Long and short positions settled into a Trading wallet
  - Deposits, withdrawals and physical bullion quotes
  - An HTTP API with a live websocket price stream
  - Settlement journals in CSV or SQLite`,
	SilenceUsage: true,
}

var (
	cfgFile  string
	logLevel string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); defaults are used when empty")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config")
}

// loadConfig reads the config file if one was given, then applies .env
// and GOLDSIM_* overrides, then the --log-level flag.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if cfgFile != "" {
		var err error
		if cfg, err = config.LoadFromFile(cfgFile); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("apply env: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	logger.SetGlobalLogger(log)
	return log
}

func openJournal(jc config.JournalConfig) (journal.Journal, error) {
	switch jc.Type {
	case "csv":
		j, err := journal.NewCSV(jc.SettlementsFile, jc.TransactionsFile)
		if err != nil {
			return nil, fmt.Errorf("create csv journal: %w", err)
		}
		return j, nil
	case "sqlite":
		j, err := journal.NewSQLite(jc.DBPath)
		if err != nil {
			return nil, fmt.Errorf("create sqlite journal: %w", err)
		}
		return j, nil
	default:
		return journal.Nop{}, nil
	}
}
