// Package config handles application configuration loading from a YAML file and environment variables.
package config

import (
	"errors"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	contextutils "learnverse/internal/utils"

	"gopkg.in/yaml.v3"
)

// Storage drivers understood by the key-value store factory.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server" yaml:"server"`

	// Key-value store backend
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Progress rules (time zone, XP, themes)
	Progress ProgressConfig `json:"progress" yaml:"progress"`

	// Badge / skill catalog source
	Catalog CatalogConfig `json:"catalog" yaml:"catalog"`

	// Motivational quote upstream
	Quotes QuotesConfig `json:"quotes" yaml:"quotes"`

	// OpenTelemetry Configuration
	OpenTelemetry OpenTelemetryConfig `json:"open_telemetry" yaml:"open_telemetry"`

	// Internal fields
	IsTest bool `json:"is_test" yaml:"is_test"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port          string   `json:"port" yaml:"port"`
	SessionSecret string   `json:"session_secret" yaml:"session_secret"`
	Debug         bool     `json:"debug" yaml:"debug"`
	LogLevel      string   `json:"log_level" yaml:"log_level"`
	CORSOrigins   []string `json:"cors_origins" yaml:"cors_origins"`
	// SecureCookies marks the session cookie Secure; enable behind HTTPS.
	SecureCookies bool `json:"secure_cookies" yaml:"secure_cookies"`
}

// StorageConfig selects and tunes the key-value store backend
type StorageConfig struct {
	Driver          string        `json:"driver" yaml:"driver"` // memory, postgres, sqlite or mysql
	DSN             string        `json:"dsn" yaml:"dsn"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	AutoMigrate     bool          `json:"auto_migrate" yaml:"auto_migrate"`
}

// ProgressConfig holds the tunables of the progress rules
type ProgressConfig struct {
	// Timezone decides which calendar day "today" is for streaks.
	Timezone           string   `json:"timezone" yaml:"timezone"`
	XPPerModule        int      `json:"xp_per_module" yaml:"xp_per_module"`
	ReconcileOnStartup bool     `json:"reconcile_on_startup" yaml:"reconcile_on_startup"`
	DefaultUserName    string   `json:"default_user_name" yaml:"default_user_name"`
	Themes             []string `json:"themes" yaml:"themes"`
}

// CatalogConfig points at an optional catalog file replacing the embedded one
type CatalogConfig struct {
	Path string `json:"path" yaml:"path"`
}

// QuotesConfig configures the motivational quote upstream
type QuotesConfig struct {
	URL     string        `json:"url" yaml:"url"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// OpenTelemetryConfig holds all OpenTelemetry-related configuration
type OpenTelemetryConfig struct {
	Endpoint       string            `json:"endpoint" yaml:"endpoint"`               // Default: "localhost:4317"
	Protocol       string            `json:"protocol" yaml:"protocol"`               // "grpc" or "http", default: "grpc"
	Insecure       bool              `json:"insecure" yaml:"insecure"`               // Default: true (for localhost)
	Headers        map[string]string `json:"headers" yaml:"headers"`                 // For authenticated endpoints
	ServiceName    string            `json:"service_name" yaml:"service_name"`       // Default: "learnverse-server"
	ServiceVersion string            `json:"service_version" yaml:"service_version"` // From version package
	EnableTracing  bool              `json:"enable_tracing" yaml:"enable_tracing"`
	EnableMetrics  bool              `json:"enable_metrics" yaml:"enable_metrics"`
	EnableLogging  bool              `json:"enable_logging" yaml:"enable_logging"`
	SamplingRate   float64           `json:"sampling_rate" yaml:"sampling_rate"` // Default: 1.0 (100%)
	UseAutoSDK     bool              `json:"use_auto_sdk" yaml:"use_auto_sdk"`
}

// NewConfig loads configuration from YAML file first, then overrides with environment variables
func NewConfig() (result0 *Config, err error) {
	config, err := loadConfigWithOverrides()
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidConfig, "failed to load config: %w", err)
	}

	config.overrideFromEnv()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Default returns a configuration with every default applied and no file or env input
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// applyDefaults fills zero values with the defaults
func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.SessionSecret == "" {
		c.Server.SessionSecret = DefaultSessionSecret
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverMemory
	}
	if c.Storage.MaxOpenConns == 0 {
		c.Storage.MaxOpenConns = DefaultMaxOpenConns
	}
	if c.Storage.MaxIdleConns == 0 {
		c.Storage.MaxIdleConns = DefaultMaxIdleConns
	}
	if c.Storage.ConnMaxLifetime == 0 {
		c.Storage.ConnMaxLifetime = DatabaseConnMaxLifetime
	}
	if c.Progress.Timezone == "" {
		c.Progress.Timezone = "UTC"
	}
	if c.Progress.XPPerModule == 0 {
		c.Progress.XPPerModule = DefaultXPPerModule
	}
	if c.Progress.DefaultUserName == "" {
		c.Progress.DefaultUserName = DefaultUserName
	}
	if len(c.Progress.Themes) == 0 {
		c.Progress.Themes = append([]string(nil), DefaultThemes...)
	}
	if c.Quotes.Timeout == 0 {
		c.Quotes.Timeout = QuoteHTTPTimeout
	}
	if c.OpenTelemetry.Protocol == "" {
		c.OpenTelemetry.Protocol = "grpc"
	}
	if c.OpenTelemetry.ServiceName == "" {
		c.OpenTelemetry.ServiceName = "learnverse-server"
	}
	if c.OpenTelemetry.SamplingRate == 0 {
		c.OpenTelemetry.SamplingRate = 1.0
	}
}

// Validate reports configuration that cannot be served
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverPostgres, DriverSQLite, DriverMySQL:
		if c.Storage.DSN == "" {
			return contextutils.NewAppError(contextutils.ErrorCodeInvalidConfig, contextutils.SeverityFatal,
				"storage.dsn is required", "driver "+c.Storage.Driver)
		}
	default:
		return contextutils.NewAppError(contextutils.ErrorCodeInvalidConfig, contextutils.SeverityFatal,
			"unsupported storage driver", c.Storage.Driver)
	}

	if _, err := time.LoadLocation(c.Progress.Timezone); err != nil {
		return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeInvalidConfig, contextutils.SeverityFatal,
			"invalid progress.timezone", c.Progress.Timezone, err)
	}
	if c.Progress.XPPerModule < 1 {
		return contextutils.NewAppError(contextutils.ErrorCodeInvalidConfig, contextutils.SeverityFatal,
			"progress.xp_per_module must be positive", strconv.Itoa(c.Progress.XPPerModule))
	}
	switch c.OpenTelemetry.Protocol {
	case "grpc", "http":
	default:
		return contextutils.NewAppError(contextutils.ErrorCodeInvalidConfig, contextutils.SeverityFatal,
			"unsupported open_telemetry.protocol", c.OpenTelemetry.Protocol)
	}
	return nil
}

// HasTheme reports whether theme is one of the configured themes
func (c *Config) HasTheme(theme string) bool {
	for _, t := range c.Progress.Themes {
		if t == theme {
			return true
		}
	}
	return false
}

// overrideFromEnv overrides config values with environment variables using reflection
func (c *Config) overrideFromEnv() {
	overrideStructFromEnvWithPrefix(c, "")
}

// overrideStructFromEnvWithPrefix recursively overrides struct fields with environment variables.
// The variable name is the upper-cased yaml tag path, e.g. STORAGE_DSN.
func overrideStructFromEnvWithPrefix(v interface{}, prefix string) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		if !field.CanSet() {
			continue
		}

		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}

		envKey := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
		if prefix != "" {
			envKey = prefix + "_" + envKey
		}

		// time.Duration is an int64 kind but is configured as "5s"
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			if envVal := os.Getenv(envKey); envVal != "" {
				if d, err := time.ParseDuration(envVal); err == nil {
					field.SetInt(int64(d))
				}
			}
			continue
		}

		switch field.Kind() {
		case reflect.String:
			if envVal := os.Getenv(envKey); envVal != "" {
				field.SetString(envVal)
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if intVal, err := strconv.ParseInt(envVal, 10, 64); err == nil {
					field.SetInt(intVal)
				}
			}
		case reflect.Float32, reflect.Float64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if floatVal, err := strconv.ParseFloat(envVal, 64); err == nil {
					field.SetFloat(floatVal)
				}
			}
		case reflect.Bool:
			if envVal := os.Getenv(envKey); envVal != "" {
				if boolVal, err := strconv.ParseBool(envVal); err == nil {
					field.SetBool(boolVal)
				}
			}
		case reflect.Slice:
			if envVal := os.Getenv(envKey); envVal != "" {
				if field.Type().Elem().Kind() == reflect.String {
					field.Set(reflect.ValueOf(strings.Split(envVal, ",")))
				}
			}
		case reflect.Struct:
			if field.CanAddr() {
				fieldPrefix := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
				if prefix != "" {
					fieldPrefix = prefix + "_" + fieldPrefix
				}
				overrideStructFromEnvWithPrefix(field.Addr().Interface(), fieldPrefix)
			}
		}
	}
}

// loadConfigWithOverrides loads the file named by LEARNVERSE_CONFIG_FILE, or config.yaml when present
func loadConfigWithOverrides() (result0 *Config, err error) {
	if envPath := os.Getenv(ConfigFileEnv); envPath != "" {
		config, err := loadConfigFromFile(envPath)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInvalidConfig, "failed to load config from %s: %w", envPath, err)
		}
		return config, nil
	}

	config, err := loadConfigFromFile("config.yaml")
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil
	}
	return config, err
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (result0 *Config, err error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(yamlFile, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
