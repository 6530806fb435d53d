// Package config loads the server configuration from a YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Payroll  PayrollConfig  `yaml:"payroll"`
	Treasury TreasuryConfig `yaml:"treasury"`
	Oracle   OracleConfig   `yaml:"oracle"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Port               int           `yaml:"port"`
	AllowedOrigins     []string      `yaml:"allowed_origins"`
	ReadTimeout        time.Duration `yaml:"-"`
	WriteTimeout       time.Duration `yaml:"-"`
	ShutdownTimeout    time.Duration `yaml:"-"`
	ReadTimeoutRaw     string        `yaml:"read_timeout"`
	WriteTimeoutRaw    string        `yaml:"write_timeout"`
	ShutdownTimeoutRaw string        `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// PayrollConfig configures the engine. Manager is required.
type PayrollConfig struct {
	Manager        string        `yaml:"manager"`
	StableDecimals int32         `yaml:"stable_decimals"`
	NativeDecimals int32         `yaml:"native_decimals"`
	MaxRateAge     time.Duration `yaml:"-"`
	MaxRateAgeRaw  string        `yaml:"max_rate_age"`
}

// TreasuryConfig holds the funds the in-process vault starts with.
type TreasuryConfig struct {
	InitialStable decimal.Decimal `yaml:"-"`
	InitialNative decimal.Decimal `yaml:"-"`
	StableRaw     string          `yaml:"initial_stable"`
	NativeRaw     string          `yaml:"initial_native"`
}

// OracleConfig selects the price reference: a rates file when RatesFile is
// set, a fixed price otherwise.
type OracleConfig struct {
	Price     decimal.Decimal `yaml:"-"`
	PriceRaw  string          `yaml:"price"`
	RatesFile string          `yaml:"rates_file"`
}

type MonitorConfig struct {
	Interval    time.Duration `yaml:"-"`
	IntervalRaw string        `yaml:"interval"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when no file is given.
// Payroll.Manager is left empty and must be supplied.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:               8080,
			AllowedOrigins:     []string{"http://localhost:*", "http://127.0.0.1:*"},
			ReadTimeoutRaw:     "15s",
			WriteTimeoutRaw:    "15s",
			ShutdownTimeoutRaw: "10s",
		},
		Database: DatabaseConfig{Path: "./payroll.db"},
		Payroll: PayrollConfig{
			StableDecimals: 6,
			NativeDecimals: 18,
		},
		Oracle:  OracleConfig{PriceRaw: "2000"},
		Monitor: MonitorConfig{IntervalRaw: "1m"},
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads the YAML file at path over the defaults, applies overrides in
// order and validates the result. An empty path starts from Default.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	cfg := Default()
	if path != "" {
		read, err := Read(path)
		if err != nil {
			return nil, err
		}
		cfg = *read
	}

	for _, override := range overrides {
		override(&cfg)
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Read reads the YAML file at path over the defaults without validating,
// for callers that override fields before calling Normalize.
func Read(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	return &cfg, nil
}

// Normalize validates the raw fields and fills in the parsed ones. Call it
// again after overriding fields from flags.
func (c *Config) Normalize() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if err := c.Server.validateAndNormalize(); err != nil {
		return err
	}
	if c.Database.Path == "" {
		return fmt.Errorf("config: database.path must be set")
	}
	if err := c.Payroll.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.Treasury.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.Oracle.validateAndNormalize(); err != nil {
		return err
	}

	interval, err := parseDurationAllowEmpty(c.Monitor.IntervalRaw)
	if err != nil {
		return fmt.Errorf("config: monitor.interval: %w", err)
	}
	c.Monitor.Interval = interval

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	return nil
}

func (s *ServerConfig) validateAndNormalize() error {
	var err error
	if s.ReadTimeout, err = parseDurationAllowEmpty(s.ReadTimeoutRaw); err != nil {
		return fmt.Errorf("config: server.read_timeout: %w", err)
	}
	if s.WriteTimeout, err = parseDurationAllowEmpty(s.WriteTimeoutRaw); err != nil {
		return fmt.Errorf("config: server.write_timeout: %w", err)
	}
	if s.ShutdownTimeout, err = parseDurationAllowEmpty(s.ShutdownTimeoutRaw); err != nil {
		return fmt.Errorf("config: server.shutdown_timeout: %w", err)
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = 10 * time.Second
	}
	return nil
}

func (p *PayrollConfig) validateAndNormalize() error {
	if p.Manager == "" {
		return fmt.Errorf("config: payroll.manager must be set")
	}
	if p.StableDecimals < 0 || p.StableDecimals > 18 {
		return fmt.Errorf("config: payroll.stable_decimals must be between 0 and 18")
	}
	if p.NativeDecimals < 0 {
		return fmt.Errorf("config: payroll.native_decimals must not be negative")
	}

	age, err := parseDurationAllowEmpty(p.MaxRateAgeRaw)
	if err != nil {
		return fmt.Errorf("config: payroll.max_rate_age: %w", err)
	}
	p.MaxRateAge = age
	return nil
}

func (t *TreasuryConfig) validateAndNormalize() error {
	var err error
	if t.InitialStable, err = parseDecimalAllowEmpty(t.StableRaw); err != nil {
		return fmt.Errorf("config: treasury.initial_stable: %w", err)
	}
	if t.InitialNative, err = parseDecimalAllowEmpty(t.NativeRaw); err != nil {
		return fmt.Errorf("config: treasury.initial_native: %w", err)
	}
	if t.InitialStable.IsNegative() || t.InitialNative.IsNegative() {
		return fmt.Errorf("config: treasury funding must not be negative")
	}
	return nil
}

func (o *OracleConfig) validateAndNormalize() error {
	if o.RatesFile != "" {
		return nil
	}
	price, err := parseDecimalAllowEmpty(o.PriceRaw)
	if err != nil {
		return fmt.Errorf("config: oracle.price: %w", err)
	}
	if !price.IsPositive() {
		return fmt.Errorf("config: oracle.price or oracle.rates_file must be set")
	}
	o.Price = price
	return nil
}

// Logger builds the zap logger described by the log section.
func (l LogConfig) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	return time.ParseDuration(raw)
}

func parseDecimalAllowEmpty(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}
