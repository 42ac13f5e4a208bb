package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// SCANDEMO_SERVER_ADDR.
const EnvPrefix = "SCANDEMO"

// Load initializes the configuration from file and environment variables.
func Load(cfgFile string) {
	// .env is optional
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	SetDefaults()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Warning: failed to read config file %s: %v\n", cfgFile, err)
	}
}

// SetDefaults registers every default value.
func SetDefaults() {
	viper.SetDefault("verbose", false)
	viper.SetDefault("log_file", "")

	viper.SetDefault("server.addr", "127.0.0.1:3000")
	viper.SetDefault("server.gzip", true)
	viper.SetDefault("metrics_port", 2112)
	viper.SetDefault("metrics.enabled", true)

	viper.SetDefault("store.type", "memory")
	viper.SetDefault("store.dsn", "")

	viper.SetDefault("simulation.time_scale", 1.0)

	// Fall back to the front end's API_URL when SCANDEMO_API_URL is unset
	apiURL := "http://localhost:8000"
	if os.Getenv(EnvPrefix+"_API_URL") == "" && os.Getenv("API_URL") != "" {
		apiURL = os.Getenv("API_URL")
	}
	viper.SetDefault("api.url", apiURL)
	viper.SetDefault("api.timeout", "30s")
	viper.SetDefault("api.token_file", defaultTokenFile())

	viper.SetDefault("auth.required", false)

	// Notification Defaults
	webhook := os.Getenv("SLACK_WEBHOOK_URL")
	viper.SetDefault("notifications.slack.enabled", webhook != "")
	viper.SetDefault("notifications.slack.webhook_url", webhook)
	viper.SetDefault("notifications.slack.events.on_start", true)
	viper.SetDefault("notifications.slack.events.on_complete", true)
	viper.SetDefault("notifications.slack.events.on_cancel", true)
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".scandemo", "token")
	}
	return filepath.Join(home, ".scandemo", "token")
}
