package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"movies-db/internal/logging"
)

// Catalog backends selectable with the backend setting.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// ConfigEnvVar names the environment variable that points at a config file.
const ConfigEnvVar = "MOVIES_DB_CONFIG"

// PreviewConfig tunes preview generation.
type PreviewConfig struct {
	// MaxWidth bounds both sides of generated previews; 0 keeps the
	// extracted frame size.
	MaxWidth int `yaml:"max_width"`
}

// CacheConfig sizes the entry cache in front of the catalog backend.
type CacheConfig struct {
	// Size is the number of cached entries; 0 disables the cache.
	Size int           `yaml:"size"`
	TTL  time.Duration `yaml:"ttl"`
}

// Config holds all application configuration
type Config struct {
	Port            string        `yaml:"port"`
	MetricsPort     string        `yaml:"metrics_port"`
	MetricsEnabled  bool          `yaml:"metrics_enabled"`
	MetricsInterval time.Duration `yaml:"metrics_interval"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// RootDir holds the blob store and, for the sqlite backend, the
	// database file.
	RootDir     string `yaml:"root_dir"`
	Backend     string `yaml:"backend"`
	PostgresDSN string `yaml:"postgres_dsn"`

	// FFmpegDir is the directory holding ffmpeg and ffprobe. Empty means
	// look them up on PATH.
	FFmpegDir string `yaml:"ffmpeg_dir"`

	LogLevel        string `yaml:"log_level"`
	LogHealthChecks bool   `yaml:"log_health_checks"`

	// CORSOrigins lists the origins browser front ends may call the API
	// from. "*" allows any; an empty list turns CORS off.
	CORSOrigins []string `yaml:"cors_origins"`

	Preview PreviewConfig `yaml:"preview"`
	Cache   CacheConfig   `yaml:"cache"`

	// Derived paths
	StoreDir     string `yaml:"-"`
	DatabasePath string `yaml:"-"`
}

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() Config {
	return Config{
		Port:            "8080",
		MetricsPort:     "9090",
		MetricsEnabled:  true,
		MetricsInterval: time.Minute,
		ShutdownTimeout: 30 * time.Second,
		RootDir:         "./data",
		Backend:         BackendSQLite,
		LogLevel:        "info",
		LogHealthChecks: true,
		CORSOrigins:     []string{"*"},
		Preview:         PreviewConfig{MaxWidth: 640},
		Cache:           CacheConfig{Size: 1024, TTL: 5 * time.Minute},
	}
}

// LoadConfig builds the configuration from defaults, the YAML file at path
// (skipped when path is empty), and environment overrides, in that order.
// The result is validated and its derived paths are filled in.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %q: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	root, err := filepath.Abs(cfg.RootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root directory path: %w", err)
	}
	cfg.RootDir = root
	cfg.StoreDir = filepath.Join(root, "movies")
	if cfg.Backend == BackendSQLite {
		cfg.DatabasePath = filepath.Join(root, "movies.db")
	}

	return &cfg, nil
}

// applyEnv overrides cfg with any environment variables that are set.
// Malformed numbers and durations are errors rather than silently ignored.
func applyEnv(cfg *Config) error {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.MetricsPort = getEnv("METRICS_PORT", cfg.MetricsPort)
	cfg.MetricsEnabled = getEnvBool("METRICS_ENABLED", cfg.MetricsEnabled)
	cfg.RootDir = getEnv("ROOT_DIR", cfg.RootDir)
	cfg.Backend = strings.ToLower(getEnv("BACKEND", cfg.Backend))
	cfg.PostgresDSN = getEnv("POSTGRES_DSN", cfg.PostgresDSN)
	cfg.FFmpegDir = getEnv("FFMPEG_DIR", cfg.FFmpegDir)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogHealthChecks = getEnvBool("LOG_HEALTH_CHECKS", cfg.LogHealthChecks)
	cfg.CORSOrigins = getEnvList("CORS_ORIGINS", cfg.CORSOrigins)

	var err error
	if cfg.Preview.MaxWidth, err = getEnvInt("PREVIEW_MAX_WIDTH", cfg.Preview.MaxWidth); err != nil {
		return err
	}
	if cfg.Cache.Size, err = getEnvInt("CACHE_SIZE", cfg.Cache.Size); err != nil {
		return err
	}
	if cfg.Cache.TTL, err = getEnvDuration("CACHE_TTL", cfg.Cache.TTL); err != nil {
		return err
	}
	if cfg.MetricsInterval, err = getEnvDuration("METRICS_INTERVAL", cfg.MetricsInterval); err != nil {
		return err
	}
	if cfg.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return err
	}
	return nil
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendSQLite:
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("backend %q requires postgres_dsn (POSTGRES_DSN)", c.Backend)
		}
	default:
		return fmt.Errorf("unknown backend %q (want %s, %s or %s)", c.Backend, BackendMemory, BackendSQLite, BackendPostgres)
	}

	if c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	if c.MetricsEnabled && c.MetricsPort == "" {
		return fmt.Errorf("metrics_port must not be empty when metrics are enabled")
	}
	if c.RootDir == "" {
		return fmt.Errorf("root_dir must not be empty")
	}
	if c.Preview.MaxWidth < 0 {
		return fmt.Errorf("preview.max_width must not be negative, got %d", c.Preview.MaxWidth)
	}
	if c.Cache.Size < 0 {
		return fmt.Errorf("cache.size must not be negative, got %d", c.Cache.Size)
	}
	if c.MetricsInterval <= 0 {
		return fmt.Errorf("metrics_interval must be positive, got %v", c.MetricsInterval)
	}
	for _, origin := range c.CORSOrigins {
		if origin != "*" && !strings.Contains(origin, "://") {
			return fmt.Errorf("cors_origins: %q is not an origin (want \"*\" or scheme://host[:port])", origin)
		}
	}
	if c.LogLevel != "" {
		if _, err := logging.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
	}
	return nil
}

// FindConfigFile returns the path of the first config file found, or ""
// if there is none.
//
// Search order:
//  1. MOVIES_DB_CONFIG environment variable
//  2. ./movies-db.yaml
//  3. ~/.config/movies-db/config.yaml
func FindConfigFile() string {
	if p := os.Getenv(ConfigEnvVar); p != "" {
		return p
	}

	if _, err := os.Stat("movies-db.yaml"); err == nil {
		return "movies-db.yaml"
	}

	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, ".config", "movies-db", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// LogConfig writes the configuration section of the startup log.
func (c *Config) LogConfig(source string) {
	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	if source != "" {
		logging.Info("  Config file:         %s", source)
	} else {
		logging.Info("  Config file:         (none, defaults and environment)")
	}
	logging.Info("  ROOT_DIR:            %s", c.RootDir)
	logging.Info("  BACKEND:             %s", c.Backend)
	if c.Backend == BackendPostgres {
		logging.Info("  POSTGRES_DSN:        %s", redactDSN(c.PostgresDSN))
	}
	logging.Info("  PORT:                %s", c.Port)
	logging.Info("  METRICS_PORT:        %s", c.MetricsPort)
	logging.Info("  METRICS_ENABLED:     %v", c.MetricsEnabled)
	logging.Info("  FFMPEG_DIR:          %s", valueOr(c.FFmpegDir, "(PATH)"))
	logging.Info("  PREVIEW_MAX_WIDTH:   %d", c.Preview.MaxWidth)
	logging.Info("  CACHE_SIZE:          %d", c.Cache.Size)
	logging.Info("  CACHE_TTL:           %v", c.Cache.TTL)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", c.LogHealthChecks)
	logging.Info("  CORS_ORIGINS:        %s", valueOr(strings.Join(c.CORSOrigins, ","), "(disabled)"))
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())
	logging.Info("")
}

// redactDSN hides the password of a URL-form DSN.
func redactDSN(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return "(set)"
	}
	userinfo, host, ok := strings.Cut(rest, "@")
	if !ok {
		return dsn
	}
	user, _, hasPassword := strings.Cut(userinfo, ":")
	if !hasPassword {
		return dsn
	}
	return scheme + "://" + user + ":****@" + host
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma-separated value. Blank items are skipped, so
// a value of "," clears the list.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	list := []string{}
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %q", key, value)
	}
	return parsed, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q", key, value)
	}
	return parsed, nil
}
