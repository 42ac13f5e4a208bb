package config

import (
	"time"

	"github.com/spf13/viper"
)

// Settings is a typed snapshot of the configuration.
type Settings struct {
	Verbose bool
	LogFile string

	ServerAddr     string
	Gzip           bool
	MetricsEnabled bool
	MetricsPort    int

	StoreType string
	StoreDSN  string

	TimeScale float64

	APIURL       string
	APITimeout   time.Duration
	APITokenFile string

	AuthRequired bool
}

// Current reads the settings from viper.
func Current() Settings {
	return Settings{
		Verbose:        viper.GetBool("verbose"),
		LogFile:        viper.GetString("log_file"),
		ServerAddr:     viper.GetString("server.addr"),
		Gzip:           viper.GetBool("server.gzip"),
		MetricsEnabled: viper.GetBool("metrics.enabled"),
		MetricsPort:    viper.GetInt("metrics_port"),
		StoreType:      viper.GetString("store.type"),
		StoreDSN:       viper.GetString("store.dsn"),
		TimeScale:      viper.GetFloat64("simulation.time_scale"),
		APIURL:         viper.GetString("api.url"),
		APITimeout:     viper.GetDuration("api.timeout"),
		APITokenFile:   viper.GetString("api.token_file"),
		AuthRequired:   viper.GetBool("auth.required"),
	}
}
