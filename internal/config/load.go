package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "ARCHIVER"

// legacyEnv maps configuration keys to the environment variable names used
// by earlier deployments. The prefixed name always takes precedence.
var legacyEnv = map[string]string{
	"worker.share_location":         "ShareLocation",
	"worker.max_concurrent_threads": "MaxConcurrentThreads",
	"plugins.dir":                   "PluginsLocation",
	"notify.url":                    "NotificationUrl",
	"relay.url":                     "MonitorUrl",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.driver", "pgx")
	v.SetDefault("database.url", "")

	v.SetDefault("worker.share_location", "")
	v.SetDefault("worker.max_concurrent_threads", 10)
	v.SetDefault("worker.poll_interval", 10*time.Second)

	v.SetDefault("plugins.dir", "./Plugins")
	v.SetDefault("plugins.direct_origins", []string{})

	v.SetDefault("relay.url", "")
	v.SetDefault("relay.max_retries", 3)
	v.SetDefault("relay.retry_delay", 2*time.Second)
	v.SetDefault("relay.circuit_timeout", 60*time.Second)
	v.SetDefault("relay.buffer_size", 1000)
	v.SetDefault("relay.drain_interval", 5*time.Second)
	v.SetDefault("relay.request_timeout", 30*time.Second)

	v.SetDefault("notify.url", "")

	v.SetDefault("library.base_url", "")
	v.SetDefault("library.api_key", "")
	v.SetDefault("library.plugin_name", "archiver")
	v.SetDefault("library.library_id", 0)
	v.SetDefault("library.force_scan", false)
	v.SetDefault("library.scan_delay", 30*time.Second)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_lifetime", 720*time.Hour)
}

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from the config file.
// Pass an empty configFile to read the environment only.
// Returns a populated Config struct or an error if loading/validation fails.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("error binding environment for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Plugins.DirectOrigins = compact(cfg.Plugins.DirectOrigins)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("config validation failed: %s: %w", strings.Join(fields, ", "), err)
		}
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, s := range values {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
