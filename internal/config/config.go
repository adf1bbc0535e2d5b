package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default file names inside the per-user configuration directory.
const (
	AppDirName      = "screentime"
	ConfigFileName  = "config.yaml"
	DataFileName    = "screen-time-data.json"
	BackupFileName  = "screen-time-data-backup.json"
	DefaultRedisKey = "screentime"
)

// Config holds the complete application configuration
type Config struct {
	API           APIConfig           `mapstructure:"api"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Tracking      TrackingConfig      `mapstructure:"tracking"`
	AutoSave      AutoSaveConfig      `mapstructure:"autosave"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
}

// APIConfig defines the local command API listener
type APIConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BindAddress string `mapstructure:"bind_address"`
	Port        int    `mapstructure:"port"`
}

// MetricsConfig defines the Prometheus metrics listener
type MetricsConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BindAddress string `mapstructure:"bind_address"`
	Port        int    `mapstructure:"port"`
}

// StorageConfig defines storage backend settings
type StorageConfig struct {
	Type       string      `mapstructure:"type"` // "file" or "redis"
	Path       string      `mapstructure:"path"`
	BackupPath string      `mapstructure:"backup_path"`
	Redis      RedisConfig `mapstructure:"redis"`
}

// RedisConfig defines the redis backend connection
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	KeyPrefix    string `mapstructure:"key_prefix"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TrackingConfig defines foreground sampling settings
type TrackingConfig struct {
	SampleInterval string            `mapstructure:"sample_interval"`
	StaleAfter     string            `mapstructure:"stale_after"`
	QueryTimeout   string            `mapstructure:"query_timeout"`
	MaxResults     int               `mapstructure:"max_results"`
	MaxTracked     int               `mapstructure:"max_tracked"`
	SelfNames      []string          `mapstructure:"self_names"`
	Aliases        map[string]string `mapstructure:"aliases"` // keys are matched case-insensitively
}

// AutoSaveConfig defines the periodic flush of usage counters
type AutoSaveConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Interval        string `mapstructure:"interval"`
	ShutdownTimeout string `mapstructure:"shutdown_timeout"`
}

// NotificationsConfig defines the startup summary notification
type NotificationsConfig struct {
	StartupSummary bool   `mapstructure:"startup_summary"`
	StartupDelay   string `mapstructure:"startup_delay"`
	Desktop        bool   `mapstructure:"desktop"`
}

// Dir returns the per-user configuration directory for screentime.
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		base = "."
	}
	return filepath.Join(base, AppDirName)
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	return filepath.Join(Dir(), ConfigFileName)
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate config
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Settings returns the effective configuration as a flat key map, defaults
// and environment overrides included.
func Settings(configPath string) (map[string]any, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}
	return v.AllSettings(), nil
}

// DefaultSettings returns the built-in defaults as a nested key map.
func DefaultSettings() map[string]any {
	v := viper.New()
	setDefaults(v)
	return v.AllSettings()
}

// IsKnownKey reports whether key is a recognised configuration key.
func IsKnownKey(key string) bool {
	if strings.HasPrefix(key, "tracking.aliases.") {
		return true
	}

	v := viper.New()
	setDefaults(v)
	return v.IsSet(key)
}

func newViper(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("SCREENTIME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	return v, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	dir := Dir()

	// API defaults
	v.SetDefault("api.enabled", true)
	v.SetDefault("api.bind_address", "127.0.0.1")
	v.SetDefault("api.port", 7420)

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.bind_address", "127.0.0.1")
	v.SetDefault("metrics.port", 7421)

	// Storage defaults
	v.SetDefault("storage.type", "file")
	v.SetDefault("storage.path", filepath.Join(dir, DataFileName))
	v.SetDefault("storage.backup_path", "")
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.pool_size", 4)
	v.SetDefault("storage.redis.min_idle_conns", 1)
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")
	v.SetDefault("storage.redis.key_prefix", DefaultRedisKey)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Tracking defaults
	v.SetDefault("tracking.sample_interval", "5s")
	v.SetDefault("tracking.stale_after", "5m")
	v.SetDefault("tracking.query_timeout", "2s")
	v.SetDefault("tracking.max_results", 15)
	v.SetDefault("tracking.max_tracked", 512)
	v.SetDefault("tracking.self_names", []string{"screentime", "screen-time-monitor"})
	v.SetDefault("tracking.aliases", map[string]string{
		"code":      "Visual Studio Code",
		"chrome":    "Google Chrome",
		"firefox":   "Firefox",
		"msedge":    "Microsoft Edge",
		"notepad++": "Notepad++",
		"explorer":  "Windows Explorer",
	})

	// Autosave defaults
	v.SetDefault("autosave.enabled", true)
	v.SetDefault("autosave.interval", "1m")
	v.SetDefault("autosave.shutdown_timeout", "5s")

	// Notification defaults
	v.SetDefault("notifications.startup_summary", true)
	v.SetDefault("notifications.startup_delay", "2s")
	v.SetDefault("notifications.desktop", false)
}

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.API.Enabled && (cfg.API.Port <= 0 || cfg.API.Port > 65535) {
		return fmt.Errorf("invalid API port: %d", cfg.API.Port)
	}
	if cfg.Metrics.Enabled && (cfg.Metrics.Port <= 0 || cfg.Metrics.Port > 65535) {
		return fmt.Errorf("invalid metrics port: %d", cfg.Metrics.Port)
	}

	// Validate durations
	durations := map[string]string{
		"tracking.sample_interval":    cfg.Tracking.SampleInterval,
		"tracking.stale_after":        cfg.Tracking.StaleAfter,
		"tracking.query_timeout":      cfg.Tracking.QueryTimeout,
		"autosave.interval":           cfg.AutoSave.Interval,
		"autosave.shutdown_timeout":   cfg.AutoSave.ShutdownTimeout,
		"notifications.startup_delay": cfg.Notifications.StartupDelay,
	}
	for key, value := range durations {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
		if d < 0 || (d == 0 && key != "notifications.startup_delay") {
			return fmt.Errorf("%s must be positive, got %s", key, value)
		}
	}

	if cfg.Tracking.MaxResults <= 0 {
		return fmt.Errorf("tracking.max_results must be positive, got %d", cfg.Tracking.MaxResults)
	}
	if cfg.Tracking.MaxTracked <= 0 {
		return fmt.Errorf("tracking.max_tracked must be positive, got %d", cfg.Tracking.MaxTracked)
	}

	// Normalise alias keys so lookups are case-insensitive
	aliases := make(map[string]string, len(cfg.Tracking.Aliases))
	for k, name := range cfg.Tracking.Aliases {
		aliases[strings.ToLower(k)] = name
	}
	cfg.Tracking.Aliases = aliases

	switch cfg.Storage.Type {
	case "":
		cfg.Storage.Type = "file"
		fallthrough
	case "file":
		return validateFileStorage(&cfg.Storage)
	case "redis":
		if cfg.Storage.Redis.Host == "" {
			return fmt.Errorf("storage.redis.host is required for redis storage")
		}
		if cfg.Storage.Redis.KeyPrefix == "" {
			cfg.Storage.Redis.KeyPrefix = DefaultRedisKey
		}
		return nil
	default:
		return fmt.Errorf("unknown storage type: %q (want file or redis)", cfg.Storage.Type)
	}
}

func validateFileStorage(cfg *StorageConfig) error {
	// Validate storage path
	if cfg.Path == "" {
		return fmt.Errorf("storage path is required")
	}
	if cfg.BackupPath == "" {
		cfg.BackupPath = filepath.Join(filepath.Dir(cfg.Path), BackupFileName)
	}
	if cfg.BackupPath == cfg.Path {
		return fmt.Errorf("storage backup_path must differ from path")
	}

	// Ensure storage directory exists
	storageDir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(storageDir, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	return nil
}
