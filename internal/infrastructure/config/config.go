package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/ledger"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/validation"
	"github.com/spf13/viper"
)

// DefaultAdminPIN is the supervisor PIN used when the store has none configured
const DefaultAdminPIN = "1234"

// Config holds all application configuration
type Config struct {
	App     AppConfig
	Store   StoreConfig
	Log     LogConfig
	Import  ImportConfig
	Session SessionConfig
	Ledger  LedgerConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// StoreConfig holds settings for the local embedded store
type StoreConfig struct {
	Path        string        // sqlite file path, or ":memory:"
	BusyTimeout time.Duration // how long a locked store is retried
	WAL         bool          // enable write-ahead journaling
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level         string // debug, info, warn, error
	Format        string // json, console
	Output        string // stdout, stderr, or file path
	GormLevel     string // silent, error, warn, info
	SlowThreshold time.Duration
}

// ImportConfig holds settings for catalog and delivery note imports
type ImportConfig struct {
	StagingDir string // where copies of external sources are kept
	KeepStaged int    // staged copies retained after each import
	YieldEvery int    // rows between cooperative yields
	BatchSize  int    // rows per insert statement
	MaxErrors  int    // row errors kept in a result
}

// SessionConfig holds reconciliation session settings
type SessionConfig struct {
	DebounceWindow time.Duration // duplicate scans of the same key inside this window are dropped
}

// LedgerConfig holds ledger settings
type LedgerConfig struct {
	Groups     []ledger.Group `mapstructure:"groups" validate:"required,min=1,dive"`
	DefaultPIN string         `mapstructure:"default_pin" validate:"required,numeric,len=4"`
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with ALB_ prefix (e.g., ALB_STORE_PATH)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper builds the configuration from an already populated viper instance
func FromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("ALB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Store: StoreConfig{
			Path:        v.GetString("store.path"),
			BusyTimeout: v.GetDuration("store.busy_timeout"),
			WAL:         !v.IsSet("store.wal") || v.GetBool("store.wal"),
		},
		Log: LogConfig{
			Level:         v.GetString("log.level"),
			Format:        v.GetString("log.format"),
			Output:        v.GetString("log.output"),
			GormLevel:     v.GetString("log.gorm_level"),
			SlowThreshold: v.GetDuration("log.slow_threshold"),
		},
		Import: ImportConfig{
			StagingDir: v.GetString("import.staging_dir"),
			KeepStaged: v.GetInt("import.keep_staged"),
			YieldEvery: v.GetInt("import.yield_every"),
			BatchSize:  v.GetInt("import.batch_size"),
			MaxErrors:  v.GetInt("import.max_errors"),
		},
		Session: SessionConfig{
			DebounceWindow: v.GetDuration("session.debounce_window"),
		},
		Ledger: LedgerConfig{
			DefaultPIN: v.GetString("ledger.default_pin"),
		},
	}

	if err := v.UnmarshalKey("ledger.groups", &cfg.Ledger.Groups); err != nil {
		return nil, fmt.Errorf("error reading ledger.groups: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the built-in configuration
func Default() *Config {
	cfg := &Config{}
	cfg.Store.WAL = true
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "repaso-albaranes"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "albaranes.db"
	}
	if cfg.Store.BusyTimeout == 0 {
		cfg.Store.BusyTimeout = 5 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Log.GormLevel == "" {
		cfg.Log.GormLevel = "warn"
	}
	if cfg.Log.SlowThreshold == 0 {
		cfg.Log.SlowThreshold = 200 * time.Millisecond
	}
	if cfg.Import.StagingDir == "" {
		cfg.Import.StagingDir = "staging"
	}
	if cfg.Import.KeepStaged == 0 {
		cfg.Import.KeepStaged = 2
	}
	if cfg.Import.YieldEvery == 0 {
		cfg.Import.YieldEvery = 500
	}
	if cfg.Import.BatchSize == 0 {
		cfg.Import.BatchSize = 200
	}
	if cfg.Import.MaxErrors == 0 {
		cfg.Import.MaxErrors = 100
	}
	if cfg.Session.DebounceWindow == 0 {
		cfg.Session.DebounceWindow = 200 * time.Millisecond
	}
	if len(cfg.Ledger.Groups) == 0 {
		cfg.Ledger.Groups = ledger.DefaultGroups()
	}
	if cfg.Ledger.DefaultPIN == "" {
		cfg.Ledger.DefaultPIN = DefaultAdminPIN
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if strings.TrimSpace(c.Store.Path) == "" {
		return fmt.Errorf("store.path is required")
	}
	if c.Import.KeepStaged < 1 {
		return fmt.Errorf("import.keep_staged must be at least 1")
	}
	if c.Import.BatchSize <= 0 {
		return fmt.Errorf("import.batch_size must be positive")
	}
	if c.Import.YieldEvery <= 0 {
		return fmt.Errorf("import.yield_every must be positive")
	}
	if c.Session.DebounceWindow < 0 {
		return fmt.Errorf("session.debounce_window cannot be negative")
	}

	if err := validation.Struct(c.Ledger); err != nil {
		return fmt.Errorf("invalid ledger configuration: %w", err)
	}
	if _, err := ledger.NewCatalog(c.Ledger.Groups); err != nil {
		return fmt.Errorf("invalid ledger.groups: %w", err)
	}

	if c.App.Env == "production" && c.Ledger.DefaultPIN == DefaultAdminPIN {
		return fmt.Errorf("ledger.default_pin must be changed in production")
	}

	return nil
}

// GroupCatalog returns the configured ledger groups as a catalog
func (c *Config) GroupCatalog() (*ledger.Catalog, error) {
	return ledger.NewCatalog(c.Ledger.Groups)
}
