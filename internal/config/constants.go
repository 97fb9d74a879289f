package config

import "time"

// ConfigFileEnv names the environment variable holding the config file path
const ConfigFileEnv = "LEARNVERSE_CONFIG_FILE"

// Timeout constants
const (
	// HTTP timeouts
	DefaultHTTPTimeout      = 60 * time.Second
	ServerShutdownTimeout   = 30 * time.Second
	ServerReadHeaderTimeout = 10 * time.Second
	QuoteHTTPTimeout        = 3 * time.Second

	// Database timeouts
	DatabaseConnMaxLifetime = 5 * time.Minute
	DatabasePingTimeout     = 10 * time.Second

	// Session timeouts
	SessionMaxAge = 365 * 24 * time.Hour
)

// Storage pool defaults
const (
	DefaultMaxOpenConns = 25
	DefaultMaxIdleConns = 5
)

// Progress defaults
const (
	DefaultXPPerModule = 100
	DefaultUserName    = "Learner"
)

// DefaultThemes are the visual themes a profile may pick
var DefaultThemes = []string{"solar", "kingdom", "terminal"}

// Session configuration constants
const (
	SessionPath     = "/"
	SessionHTTPOnly = true

	// Session name
	SessionName = "learnverse-session"

	// DefaultSessionSecret is only suitable for local development
	DefaultSessionSecret = "learnverse-dev-session-secret-change-me"
)

// Security configuration constants
const (
	// Content Security Policy
	DefaultCSP = "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:;"
)
