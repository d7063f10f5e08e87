package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jask/papertriage/internal/gesture"
	"github.com/jask/papertriage/internal/logging"
)

// Config holds application configuration.
type Config struct {
	Database    DatabaseConfig
	Collections CollectionsConfig
	Store       StoreConfig
	Triage      TriageConfig
	Export      ExportConfig
	Log         LogConfig
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// CollectionsConfig says where source files live. When Files is empty every .xlsx and
// .csv file in Dir is a collection.
type CollectionsConfig struct {
	Dir   string
	Files []string
}

// StoreConfig selects where session snapshots are kept.
type StoreConfig struct {
	Backend string
	Dir     string
}

// TriageConfig holds gesture tuning.
type TriageConfig struct {
	Threshold float64
	Margin    float64
	Step      float64
	Interval  time.Duration
	CellUnits float64 `mapstructure:"cell_units"`
}

// ExportConfig holds export defaults.
type ExportConfig struct {
	Dir      string
	Encoding string
}

// LogConfig holds log file settings.
type LogConfig struct {
	Path   string
	Level  string
	Format string
}

const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

func home() string { return os.Getenv("HOME") }

// Path returns the config file location. Env var PAPERTRIAGE_CONFIG overrides it.
func Path() string {
	if p := os.Getenv("PAPERTRIAGE_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(home(), ".config", "papertriage", "config.toml")
}

func setDefaults(v *viper.Viper) {
	g := gesture.DefaultConfig()
	v.SetDefault("database.path", filepath.Join(home(), ".local", "share", "papertriage", "papertriage.db"))
	v.SetDefault("collections.dir", "papers")
	v.SetDefault("collections.files", []string{})
	v.SetDefault("store.backend", BackendSQLite)
	v.SetDefault("store.dir", filepath.Join(home(), ".local", "share", "papertriage", "snapshots"))
	v.SetDefault("triage.threshold", g.Threshold)
	v.SetDefault("triage.margin", g.Margin)
	v.SetDefault("triage.step", g.Step)
	v.SetDefault("triage.interval", g.Interval)
	v.SetDefault("triage.cell_units", 12.0)
	v.SetDefault("export.dir", ".")
	v.SetDefault("export.encoding", "utf-8")
	v.SetDefault("log.path", filepath.Join(home(), ".local", "state", "papertriage", "papertriage.log"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads configuration from file and env. Env var overrides use prefix PAPERTRIAGE_.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")
	v.SetConfigFile(Path())

	v.SetEnvPrefix("PAPERTRIAGE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(Path()); statErr == nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings the app cannot run with.
func (c Config) Validate() error {
	if c.Triage.Threshold <= 0 {
		return fmt.Errorf("config: triage.threshold must be positive")
	}
	if c.Triage.Step <= 0 {
		return fmt.Errorf("config: triage.step must be positive")
	}
	if c.Triage.Interval <= 0 {
		return fmt.Errorf("config: triage.interval must be positive")
	}
	if c.Triage.Margin < 0 {
		return fmt.Errorf("config: triage.margin must not be negative")
	}
	switch c.Store.Backend {
	case BackendSQLite, BackendFile:
	default:
		return fmt.Errorf("config: unknown store.backend %q", c.Store.Backend)
	}
	switch strings.ToLower(c.Export.Encoding) {
	case "", "utf-8", "utf8", "cp949", "euc-kr", "euckr":
	default:
		return fmt.Errorf("config: unknown export.encoding %q", c.Export.Encoding)
	}
	if err := c.Logging().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Gesture returns the interpreter tuning.
func (c Config) Gesture() gesture.Config {
	return gesture.Config{
		Threshold: c.Triage.Threshold,
		Margin:    c.Triage.Margin,
		Step:      c.Triage.Step,
		Interval:  c.Triage.Interval,
	}
}

// Logging returns the log settings.
func (c Config) Logging() logging.Config {
	return logging.Config{Path: c.Log.Path, Level: c.Log.Level, Format: c.Log.Format}
}

// Save writes the provided config to disk, creating the config directory if needed.
func Save(cfg Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("collections.dir", cfg.Collections.Dir)
	v.Set("collections.files", cfg.Collections.Files)
	v.Set("store.backend", cfg.Store.Backend)
	v.Set("store.dir", cfg.Store.Dir)
	v.Set("triage.threshold", cfg.Triage.Threshold)
	v.Set("triage.margin", cfg.Triage.Margin)
	v.Set("triage.step", cfg.Triage.Step)
	v.Set("triage.interval", cfg.Triage.Interval.String())
	v.Set("triage.cell_units", cfg.Triage.CellUnits)
	v.Set("export.dir", cfg.Export.Dir)
	v.Set("export.encoding", cfg.Export.Encoding)
	v.Set("log.path", cfg.Log.Path)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
