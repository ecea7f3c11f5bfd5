package config

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/goldsim/broker"
	"github.com/rustyeddy/goldsim/market"
)

// Config represents the complete simulator configuration
type Config struct {
	Account    AccountConfig    `json:"account" yaml:"account"`
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`
	Charts     ChartsConfig     `json:"charts" yaml:"charts"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
	Log        LogConfig        `json:"log" yaml:"log"`
	Server     ServerConfig     `json:"server" yaml:"server"`
}

// AccountConfig seeds the two wallets and the visible history
type AccountConfig struct {
	ID            string         `json:"id" yaml:"id" env:"ACCOUNT_ID"`
	PhysicalGrams float64        `json:"physical_grams" yaml:"physical_grams"`
	PhysicalUSD   float64        `json:"physical_usd" yaml:"physical_usd"`
	TradingUSD    float64        `json:"trading_usd" yaml:"trading_usd" env:"TRADING_USD"`
	History       []HistoryEntry `json:"history,omitempty" yaml:"history,omitempty"`
}

// HistoryEntry is a pre-existing transaction, oldest first
type HistoryEntry struct {
	ID          string   `json:"id" yaml:"id"`
	Kind        string   `json:"kind" yaml:"kind"`
	Wallet      string   `json:"wallet" yaml:"wallet"`
	AmountGrams *float64 `json:"amount_grams,omitempty" yaml:"amount_grams,omitempty"`
	AmountUSD   float64  `json:"amount_usd" yaml:"amount_usd"`
	Timestamp   string   `json:"timestamp" yaml:"timestamp"`
	Status      string   `json:"status" yaml:"status"`
}

// SimulationConfig contains the price walk parameters
type SimulationConfig struct {
	InitialPrice   float64 `json:"initial_price" yaml:"initial_price" env:"INITIAL_PRICE"`
	Volatility     float64 `json:"volatility" yaml:"volatility" env:"VOLATILITY"`
	Bias           float64 `json:"bias" yaml:"bias"`
	DriftResetProb float64 `json:"drift_reset_prob" yaml:"drift_reset_prob"`
	DriftBound     float64 `json:"drift_bound" yaml:"drift_bound"`
	TickInterval   string  `json:"tick_interval" yaml:"tick_interval" env:"TICK_INTERVAL"` // e.g. "2s"
	Seed           int64   `json:"seed" yaml:"seed" env:"SEED"`                            // 0 means time based
}

// ParseTickInterval converts the tick interval string to time.Duration
func (s SimulationConfig) ParseTickInterval() (time.Duration, error) {
	if s.TickInterval == "" {
		return 0, nil
	}
	return time.ParseDuration(s.TickInterval)
}

// Generator returns the price generator settings
func (s SimulationConfig) Generator() market.GeneratorConfig {
	return market.GeneratorConfig{
		InitialPrice:   s.InitialPrice,
		Volatility:     s.Volatility,
		Bias:           s.Bias,
		DriftResetProb: s.DriftResetProb,
		DriftBound:     s.DriftBound,
	}
}

// Rand returns the seeded random source for a session.
func (s SimulationConfig) Rand() *rand.Rand {
	seed := s.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// WindowConfig configures one chart horizon
type WindowConfig struct {
	Capacity   int     `json:"capacity" yaml:"capacity"`
	BaseOffset float64 `json:"base_offset" yaml:"base_offset"`
	Volatility float64 `json:"volatility" yaml:"volatility"`
	Prefix     string  `json:"prefix" yaml:"prefix"`
}

// ChartsConfig holds the three rolling windows
type ChartsConfig struct {
	FiveMinute WindowConfig `json:"5m" yaml:"5m"`
	OneHour    WindowConfig `json:"1h" yaml:"1h"`
	FourHour   WindowConfig `json:"4h" yaml:"4h"`
}

// Specs converts the chart settings for market.NewChartStore
func (c ChartsConfig) Specs() map[market.Horizon]market.WindowSpec {
	conv := func(w WindowConfig) market.WindowSpec {
		return market.WindowSpec{Capacity: w.Capacity, BaseOffset: w.BaseOffset, Volatility: w.Volatility, Prefix: w.Prefix}
	}
	return map[market.Horizon]market.WindowSpec{
		market.Horizon5M: conv(c.FiveMinute),
		market.Horizon1H: conv(c.OneHour),
		market.Horizon4H: conv(c.FourHour),
	}
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type             string `json:"type" yaml:"type" env:"JOURNAL_TYPE"` // "none", "csv" or "sqlite"
	SettlementsFile  string `json:"settlements_file,omitempty" yaml:"settlements_file,omitempty"`
	TransactionsFile string `json:"transactions_file,omitempty" yaml:"transactions_file,omitempty"`
	DBPath           string `json:"db_path,omitempty" yaml:"db_path,omitempty" env:"JOURNAL_DB"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level" env:"LOG_LEVEL"`
	Pretty bool   `json:"pretty" yaml:"pretty" env:"LOG_PRETTY"`
}

type ServerConfig struct {
	Addr       string `json:"addr" yaml:"addr" env:"ADDR"`
	CORSOrigin string `json:"cors_origin" yaml:"cors_origin" env:"CORS_ORIGIN"`
}

// LoadFromFile loads configuration from a file (YAML or JSON)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Start from defaults so a partial file only overrides what it names
	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.PhysicalGrams < 0 || c.Account.PhysicalUSD < 0 {
		return fmt.Errorf("account physical balances must not be negative")
	}
	if c.Account.TradingUSD < 0 {
		return fmt.Errorf("account.trading_usd must not be negative")
	}
	for i, h := range c.Account.History {
		if _, err := h.Transaction(); err != nil {
			return fmt.Errorf("account.history[%d]: %w", i, err)
		}
	}

	s := c.Simulation
	if !market.IsFinite(s.InitialPrice) || s.InitialPrice <= 0 {
		return fmt.Errorf("simulation.initial_price must be positive")
	}
	if s.Volatility <= 0 {
		return fmt.Errorf("simulation.volatility must be positive")
	}
	if s.Bias < 0 || s.Bias > 1 {
		return fmt.Errorf("simulation.bias must be between 0 and 1")
	}
	if s.DriftResetProb < 0 || s.DriftResetProb > 1 {
		return fmt.Errorf("simulation.drift_reset_prob must be between 0 and 1")
	}
	if s.DriftBound < 0 {
		return fmt.Errorf("simulation.drift_bound must not be negative")
	}
	d, err := s.ParseTickInterval()
	if err != nil {
		return fmt.Errorf("simulation.tick_interval: %w", err)
	}
	if d < 0 {
		return fmt.Errorf("simulation.tick_interval must not be negative")
	}

	for name, w := range map[string]WindowConfig{"5m": c.Charts.FiveMinute, "1h": c.Charts.OneHour, "4h": c.Charts.FourHour} {
		if w.Capacity < 1 {
			return fmt.Errorf("charts.%s.capacity must be positive", name)
		}
		if w.Volatility < 0 {
			return fmt.Errorf("charts.%s.volatility must not be negative", name)
		}
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.SettlementsFile == "" || c.Journal.TransactionsFile == "" {
			return fmt.Errorf("journal settlements_file and transactions_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}
	return nil
}

// Transaction converts a configured history row.
func (h HistoryEntry) Transaction() (broker.Transaction, error) {
	tx := broker.Transaction{
		ID:          h.ID,
		Kind:        broker.TxKind(h.Kind),
		Wallet:      broker.WalletKind(h.Wallet),
		AmountGrams: h.AmountGrams,
		AmountUSD:   h.AmountUSD,
		Timestamp:   h.Timestamp,
		Status:      broker.TxStatus(h.Status),
	}
	if tx.ID == "" {
		return tx, fmt.Errorf("id is required")
	}
	switch tx.Kind {
	case broker.TxBuy, broker.TxSell, broker.TxDeposit, broker.TxWithdrawal:
	default:
		return tx, fmt.Errorf("unknown kind %q", h.Kind)
	}
	switch tx.Wallet {
	case broker.Physical, broker.Trading:
	default:
		return tx, fmt.Errorf("unknown wallet %q", h.Wallet)
	}
	switch tx.Status {
	case broker.Completed, broker.Pending:
	case "":
		tx.Status = broker.Completed
	default:
		return tx, fmt.Errorf("unknown status %q", h.Status)
	}
	if h.AmountUSD < 0 {
		return tx, fmt.Errorf("amount_usd must not be negative")
	}
	return tx, nil
}

// BrokerAccount builds the account the settlement engine starts from
func (c *Config) BrokerAccount() (broker.Account, error) {
	acct := broker.Account{
		ID:            c.Account.ID,
		PhysicalGrams: c.Account.PhysicalGrams,
		PhysicalUSD:   c.Account.PhysicalUSD,
		TradingUSD:    c.Account.TradingUSD,
	}
	for i, h := range c.Account.History {
		tx, err := h.Transaction()
		if err != nil {
			return broker.Account{}, fmt.Errorf("account.history[%d]: %w", i, err)
		}
		acct.History = append(acct.History, tx)
	}
	return acct, nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	grams := func(g float64) *float64 { return &g }

	return &Config{
		Account: AccountConfig{
			ID:            "SIM-001",
			PhysicalGrams: 50.1234,
			PhysicalUSD:   11528.38,
			TradingUSD:    25000,
			History: []HistoryEntry{
				{ID: "tx_seed_3", Kind: "Sell", Wallet: "Physical", AmountGrams: grams(5), AmountUSD: 1145.00, Timestamp: "10/25/23, 12:00 AM", Status: "Completed"},
				{ID: "tx_seed_2", Kind: "Deposit", Wallet: "Trading", AmountUSD: 5000.00, Timestamp: "10/26/23, 12:00 AM", Status: "Completed"},
				{ID: "tx_seed_1", Kind: "Buy", Wallet: "Physical", AmountGrams: grams(10), AmountUSD: 2300.00, Timestamp: "10/27/23, 12:00 AM", Status: "Completed"},
			},
		},
		Simulation: SimulationConfig{
			InitialPrice:   3884.00,
			Volatility:     0.5,
			Bias:           0.48,
			DriftResetProb: 0.10,
			DriftBound:     0.05,
			TickInterval:   "2s",
		},
		Charts: ChartsConfig{
			FiveMinute: WindowConfig{Capacity: 60, BaseOffset: 0, Volatility: 0.5, Prefix: "T"},
			OneHour:    WindowConfig{Capacity: 72, BaseOffset: -5, Volatility: 1.5, Prefix: "H"},
			FourHour:   WindowConfig{Capacity: 84, BaseOffset: -20, Volatility: 4, Prefix: "D"},
		},
		Journal: JournalConfig{
			Type: "none",
		},
		Log: LogConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Addr:       ":8080",
			CORSOrigin: "*",
		},
	}
}
