package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

// ValidateConfig validates configuration values and returns an error if any are invalid.
// This function should be called after viper has loaded the configuration.
func ValidateConfig() error {
	var errors []string

	if scale := viper.GetFloat64("simulation.time_scale"); scale <= 0 {
		errors = append(errors, fmt.Sprintf("simulation.time_scale must be positive, got: %v", scale))
	}

	if viper.IsSet("metrics_port") {
		port := viper.GetInt("metrics_port")
		if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("metrics_port must be between 1 and 65535, got: %d", port))
		}
	}

	if addr := viper.GetString("server.addr"); addr != "" {
		if i := strings.LastIndex(addr, ":"); i < 0 {
			errors = append(errors, fmt.Sprintf("server.addr must be host:port, got: %q", addr))
		}
	}

	switch strings.ToLower(viper.GetString("store.type")) {
	case "", "memory", "sqlite", "sqlite3":
	case "postgres", "postgresql":
		if viper.GetString("store.dsn") == "" {
			errors = append(errors, "store.dsn is required for the postgres store")
		}
	default:
		errors = append(errors, fmt.Sprintf("store.type must be memory, sqlite or postgres, got: %q", viper.GetString("store.type")))
	}

	if raw := viper.GetString("api.url"); raw != "" {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("api.url must be an absolute URL, got: %q", raw))
		}
	}

	if viper.IsSet("api.timeout") {
		if d := viper.GetDuration("api.timeout"); d <= 0 {
			errors = append(errors, fmt.Sprintf("api.timeout must be positive, got: %v", d))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  %s", strings.Join(errors, "\n  "))
	}

	return nil
}
