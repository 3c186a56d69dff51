package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"
)

// DefaultProgramID is used when no program id is configured.
const DefaultProgramID = "F1ashSwap1111111111111111111111111111111111"

// Config holds all configuration for the application
type Config struct {
	Program ProgramConfig `mapstructure:"program"`
	Clock   ClockConfig   `mapstructure:"clock"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Storage StorageConfig `mapstructure:"storage"`
}

// ProgramConfig identifies the deployed program
type ProgramConfig struct {
	ID string `mapstructure:"id"`
}

// ClockConfig controls the chain time seen by instructions
type ClockConfig struct {
	// UnixTimestamp pins the clock; zero means wall clock.
	UnixTimestamp int64 `mapstructure:"unix_timestamp"`
	Slot          uint64 `mapstructure:"slot"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

// MetricsConfig selects metric sinks
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Log       bool   `mapstructure:"log"`
}

// StorageConfig selects where ledger snapshots live
type StorageConfig struct {
	Driver string      `mapstructure:"driver"` // file or redis
	Path   string      `mapstructure:"path"`
	Redis  RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds redis connection settings
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Program: ProgramConfig{
			ID: DefaultProgramID,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Namespace: "flashswap",
		},
		Storage: StorageConfig{
			Driver: "file",
			Path:   "ledger.yaml",
			Redis: RedisConfig{
				Addr:    "localhost:6379",
				Prefix:  "flashswap",
				Timeout: 5 * time.Second,
			},
		},
	}
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	return LoadWith(viper.New(), configPath)
}

// LoadWith loads configuration through v, which may already carry bound flags.
func LoadWith(v *viper.Viper, configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(".flashswap")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	// Environment variables
	v.SetEnvPrefix("FLASHSWAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v, cfg)

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindEnv registers every key so AutomaticEnv is consulted during Unmarshal
// even when the key is absent from the config file.
func bindEnv(v *viper.Viper, cfg *Config) {
	v.SetDefault("program.id", cfg.Program.ID)
	v.SetDefault("clock.unix_timestamp", cfg.Clock.UnixTimestamp)
	v.SetDefault("clock.slot", cfg.Clock.Slot)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.namespace", cfg.Metrics.Namespace)
	v.SetDefault("metrics.log", cfg.Metrics.Log)
	v.SetDefault("storage.driver", cfg.Storage.Driver)
	v.SetDefault("storage.path", cfg.Storage.Path)
	v.SetDefault("storage.redis.addr", cfg.Storage.Redis.Addr)
	v.SetDefault("storage.redis.password", cfg.Storage.Redis.Password)
	v.SetDefault("storage.redis.db", cfg.Storage.Redis.DB)
	v.SetDefault("storage.redis.prefix", cfg.Storage.Redis.Prefix)
	v.SetDefault("storage.redis.timeout", cfg.Storage.Redis.Timeout)
}

// Validate checks values viper cannot type-check
func (c *Config) Validate() error {
	if _, err := c.ProgramID(); err != nil {
		return err
	}
	switch c.Storage.Driver {
	case "file", "redis":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

// ProgramID parses the configured program id
func (c *Config) ProgramID() (solana.PublicKey, error) {
	id, err := solana.PublicKeyFromBase58(c.Program.ID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid program id %q: %w", c.Program.ID, err)
	}
	return id, nil
}

// Now returns the configured chain time
func (c *ClockConfig) Now() int64 {
	if c.UnixTimestamp != 0 {
		return c.UnixTimestamp
	}
	return time.Now().Unix()
}
