package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker" validate:"required"`
	Plugins  PluginsConfig  `mapstructure:"plugins"`
	Relay    RelayConfig    `mapstructure:"relay" validate:"required"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Library  LibraryConfig  `mapstructure:"library"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	// Driver is the database/sql driver name: "pgx" for PostgreSQL or "sqlite3".
	Driver string `mapstructure:"driver" validate:"required,oneof=pgx sqlite3"`
	URL    string `mapstructure:"url" validate:"required"`
}

// WorkerConfig configures the queue worker.
// ShareLocation is checked by the worker itself at startup, since only the
// worker needs it.
type WorkerConfig struct {
	ShareLocation        string        `mapstructure:"share_location"`
	MaxConcurrentThreads int           `mapstructure:"max_concurrent_threads" validate:"gt=0"`
	PollInterval         time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
}

// PluginsConfig configures handler discovery.
type PluginsConfig struct {
	Dir string `mapstructure:"dir"`
	// DirectOrigins lists origins served by the built-in direct file handler.
	DirectOrigins []string `mapstructure:"direct_origins" validate:"dive,url"`
}

// RelayConfig configures delivery of status messages to the observer.
type RelayConfig struct {
	URL            string        `mapstructure:"url" validate:"omitempty,url"`
	MaxRetries     int           `mapstructure:"max_retries" validate:"gt=0"`
	RetryDelay     time.Duration `mapstructure:"retry_delay" validate:"gte=0"`
	CircuitTimeout time.Duration `mapstructure:"circuit_timeout" validate:"gt=0"`
	BufferSize     int           `mapstructure:"buffer_size" validate:"gt=0"`
	DrainInterval  time.Duration `mapstructure:"drain_interval" validate:"gt=0"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
}

// NotifyConfig configures push notifications.
type NotifyConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// LibraryConfig configures the post-download library scan.
// The scan is disabled when BaseURL is empty.
type LibraryConfig struct {
	BaseURL    string        `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey     string        `mapstructure:"api_key" validate:"required_with=BaseURL"`
	PluginName string        `mapstructure:"plugin_name"`
	LibraryID  int           `mapstructure:"library_id" validate:"gte=0"`
	ForceScan  bool          `mapstructure:"force_scan"`
	ScanDelay  time.Duration `mapstructure:"scan_delay" validate:"gte=0"`
}

// AuthConfig contains operator authentication settings.
// Authentication is disabled when JWTSecret is empty.
type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret" validate:"omitempty,min=32"`
	TokenLifetime time.Duration `mapstructure:"token_lifetime" validate:"gt=0"`
}
