package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "handoff.cfg.json"

// SoakConfig holds the soak runner settings.
type SoakConfig struct {
	Producers        int           `json:"producers" mapstructure:"producers"`
	ItemsPerProducer int           `json:"itemsPerProducer" mapstructure:"itemsPerProducer"`
	Consumers        int           `json:"consumers" mapstructure:"consumers"`
	Capacity         int           `json:"capacity" mapstructure:"capacity"`
	RecvTimeout      time.Duration `json:"recvTimeout" mapstructure:"recvTimeout"`
	ViaDispatcher    bool          `json:"viaDispatcher" mapstructure:"viaDispatcher"`
	ProgressInterval time.Duration `json:"progressInterval" mapstructure:"progressInterval"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled        bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName    string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout   time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint       string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure       bool          `json:"insecure" mapstructure:"insecure"`
	MetricInterval time.Duration `json:"metricInterval" mapstructure:"metricInterval"`
}

// SetDefaults registers the default value of every known key.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logFormat", "console")
	viper.SetDefault("logsDir", "")

	viper.SetDefault("soak.producers", 10)
	viper.SetDefault("soak.itemsPerProducer", 100)
	viper.SetDefault("soak.consumers", 1)
	viper.SetDefault("soak.capacity", 0)
	viper.SetDefault("soak.recvTimeout", "5s")
	viper.SetDefault("soak.viaDispatcher", false)
	viper.SetDefault("soak.progressInterval", "0s")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "handoff")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
	viper.SetDefault("otel.metricInterval", "10s")
}

// Load sets default values and reads the JSON config file from configDir.
// A missing file leaves the defaults in place; a malformed one is an error.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetSoakConfig returns the soak settings.
func GetSoakConfig() SoakConfig {
	return SoakConfig{
		Producers:        viper.GetInt("soak.producers"),
		ItemsPerProducer: viper.GetInt("soak.itemsPerProducer"),
		Consumers:        viper.GetInt("soak.consumers"),
		Capacity:         viper.GetInt("soak.capacity"),
		RecvTimeout:      viper.GetDuration("soak.recvTimeout"),
		ViaDispatcher:    viper.GetBool("soak.viaDispatcher"),
		ProgressInterval: viper.GetDuration("soak.progressInterval"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:        viper.GetBool("otel.enabled"),
		ServiceName:    viper.GetString("otel.serviceName"),
		BatchTimeout:   viper.GetDuration("otel.batchTimeout"),
		Endpoint:       viper.GetString("otel.endpoint"),
		Insecure:       viper.GetBool("otel.insecure"),
		MetricInterval: viper.GetDuration("otel.metricInterval"),
	}
}
