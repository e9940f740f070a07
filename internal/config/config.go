// Package config loads runtime configuration.
//
// Values are layered, later sources overriding earlier ones:
//   - built-in defaults (Default)
//   - an optional YAML file, named by --config or PRIMARILY_CONFIG
//   - a .env file and PRIMARILY_* environment variables
//   - command-line flags
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config is the complete runtime configuration.
type Config struct {
	// Environment is "development" or "production". It selects the log
	// encoding.
	Environment string `yaml:"environment"`

	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
	Media    MediaConfig    `yaml:"media"`
	Events   EventsConfig   `yaml:"events"`
	Alerts   AlertsConfig   `yaml:"alerts"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig configures the SQLite database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig configures token issuance.
type AuthConfig struct {
	// JWTSecret signs tokens. When empty, a secret is generated once and
	// persisted in the database.
	JWTSecret  string        `yaml:"jwt_secret"`
	Issuer     string        `yaml:"issuer"`
	AccessTTL  time.Duration `yaml:"access_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// MediaConfig configures item image storage.
type MediaConfig struct {
	Dir            string `yaml:"dir"`
	URLPrefix      string `yaml:"url_prefix"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	MaxDimension   int    `yaml:"max_dimension"`
}

// EventsConfig configures the event dispatcher.
type EventsConfig struct {
	HandlerTimeout time.Duration `yaml:"handler_timeout"`
}

// AlertsConfig configures alert retention.
type AlertsConfig struct {
	Retention     time.Duration `yaml:"retention"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{Path: "primarily.sqlite3"},
		Auth: AuthConfig{
			Issuer:     "primarily",
			AccessTTL:  4 * time.Hour,
			RefreshTTL: 14 * 24 * time.Hour,
			BcryptCost: 10,
		},
		Log: LogConfig{Level: "info"},
		Media: MediaConfig{
			Dir:            "storage/uploads",
			URLPrefix:      "/uploads",
			MaxUploadBytes: 10 << 20,
			MaxDimension:   1024,
		},
		Events: EventsConfig{HandlerTimeout: 5 * time.Second},
		Alerts: AlertsConfig{
			Retention:     30 * 24 * time.Hour,
			SweepInterval: time.Hour,
		},
	}
}

// Load builds the configuration from args (without the program name) and
// the process environment. It returns pflag.ErrHelp when --help was given.
func Load(args []string) (*Config, error) {
	return load(args, os.LookupEnv)
}

type lookupFunc func(string) (string, bool)

type flagValues struct {
	config   string
	envFile  string
	addr     string
	env      string
	db       string
	logLevel string
	logFile  string
	mediaDir string
}

func newFlagSet(v *flagValues) *pflag.FlagSet {
	fs := pflag.NewFlagSet("primarily", pflag.ContinueOnError)
	fs.StringVarP(&v.config, "config", "c", "", "YAML configuration file")
	fs.StringVar(&v.envFile, "env-file", ".env", "dotenv file to read variables from")
	fs.StringVarP(&v.addr, "addr", "a", "", "listen address (default :8080)")
	fs.StringVar(&v.env, "env", "", "environment: development or production")
	fs.StringVarP(&v.db, "db", "d", "", "SQLite database path")
	fs.StringVar(&v.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVarP(&v.logFile, "log", "l", "", "also write logs to this file")
	fs.StringVar(&v.mediaDir, "media-dir", "", "directory for uploaded images")
	fs.SetOutput(io.Discard)
	return fs
}

// Usage returns the flag help text.
func Usage() string {
	return newFlagSet(&flagValues{}).FlagUsages()
}

func load(args []string, lookup lookupFunc) (*Config, error) {
	var fv flagValues
	fs := newFlagSet(&fv)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	dotenv, err := godotenv.Read(fv.envFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", fv.envFile, err)
		}
		dotenv = map[string]string{}
	}
	env := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	cfg := Default()

	path := fv.config
	if path == "" {
		path, _ = env("PRIMARILY_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(env); err != nil {
		return nil, err
	}

	if fs.Changed("addr") {
		cfg.Server.Addr = fv.addr
	}
	if fs.Changed("env") {
		cfg.Environment = fv.env
	}
	if fs.Changed("db") {
		cfg.Database.Path = fv.db
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = fv.logLevel
	}
	if fs.Changed("log") {
		cfg.Log.File = fv.logFile
	}
	if fs.Changed("media-dir") {
		cfg.Media.Dir = fv.mediaDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(env lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := env(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	var errs []error
	dur := func(key string, dst *time.Duration) {
		if v, ok := env(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	integer := func(key string, dst *int64) {
		if v, ok := env(key); ok && v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	str("PRIMARILY_ENV", &c.Environment)
	str("PRIMARILY_ADDR", &c.Server.Addr)
	if v, ok := env("PRIMARILY_CORS_ORIGINS"); ok {
		c.Server.CORSOrigins = parseCSV(v)
	}
	dur("PRIMARILY_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)
	str("PRIMARILY_DB_PATH", &c.Database.Path)
	str("PRIMARILY_JWT_SECRET", &c.Auth.JWTSecret)
	str("PRIMARILY_JWT_ISSUER", &c.Auth.Issuer)
	dur("PRIMARILY_ACCESS_TTL", &c.Auth.AccessTTL)
	dur("PRIMARILY_REFRESH_TTL", &c.Auth.RefreshTTL)
	str("PRIMARILY_LOG_LEVEL", &c.Log.Level)
	str("PRIMARILY_LOG_FILE", &c.Log.File)
	str("PRIMARILY_MEDIA_DIR", &c.Media.Dir)
	str("PRIMARILY_MEDIA_URL_PREFIX", &c.Media.URLPrefix)
	integer("PRIMARILY_MAX_UPLOAD_BYTES", &c.Media.MaxUploadBytes)
	dur("PRIMARILY_EVENT_HANDLER_TIMEOUT", &c.Events.HandlerTimeout)
	dur("PRIMARILY_ALERT_RETENTION", &c.Alerts.Retention)
	dur("PRIMARILY_ALERT_SWEEP_INTERVAL", &c.Alerts.SweepInterval)

	return errors.Join(errs...)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	if c.Environment != "development" && c.Environment != "production" {
		errs = append(errs, fmt.Errorf("environment must be development or production, got %q", c.Environment))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		errs = append(errs, errors.New("auth token lifetimes must be positive"))
	}
	if c.Auth.RefreshTTL < c.Auth.AccessTTL {
		errs = append(errs, errors.New("auth.refresh_ttl must not be shorter than auth.access_ttl"))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("auth.bcrypt_cost must be between 4 and 31, got %d", c.Auth.BcryptCost))
	}
	if c.Media.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("media.max_upload_bytes must be positive"))
	}
	if c.Events.HandlerTimeout <= 0 {
		errs = append(errs, errors.New("events.handler_timeout must be positive"))
	}
	if c.Alerts.Retention <= 0 || c.Alerts.SweepInterval <= 0 {
		errs = append(errs, errors.New("alerts.retention and alerts.sweep_interval must be positive"))
	}
	return errors.Join(errs...)
}

// LogFields describes the configuration for a startup log line. Secrets
// are never included.
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("environment", c.Environment),
		zap.String("addr", c.Server.Addr),
		zap.String("db_path", c.Database.Path),
		zap.String("log_level", c.Log.Level),
		zap.String("media_dir", c.Media.Dir),
		zap.Bool("jwt_secret_configured", c.Auth.JWTSecret != ""),
		zap.Duration("alert_retention", c.Alerts.Retention),
	}
}

func parseCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if value := strings.TrimSpace(part); value != "" {
			items = append(items, value)
		}
	}
	return items
}
