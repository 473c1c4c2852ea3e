package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"soak": { "producers": 4, "capacity": 16 }
	}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, 4, viper.GetInt("soak.producers"))
	assert.Equal(t, 16, viper.GetInt("soak.capacity"))
	// untouched keys keep their defaults
	assert.Equal(t, 100, viper.GetInt("soak.itemsPerProducer"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "console", viper.GetString("logFormat"))
	assert.Equal(t, "", viper.GetString("logsDir"))
	assert.Equal(t, 10, viper.GetInt("soak.producers"))
	assert.Equal(t, 100, viper.GetInt("soak.itemsPerProducer"))
	assert.Equal(t, 1, viper.GetInt("soak.consumers"))
	assert.Equal(t, 0, viper.GetInt("soak.capacity"))
	assert.Equal(t, "5s", viper.GetString("soak.recvTimeout"))
	assert.Equal(t, false, viper.GetBool("otel.enabled"))
	assert.Equal(t, "handoff", viper.GetString("otel.serviceName"))
	assert.Equal(t, "5s", viper.GetString("otel.batchTimeout"))
	assert.Equal(t, "", viper.GetString("otel.endpoint"))
	assert.Equal(t, true, viper.GetBool("otel.insecure"))
	assert.Equal(t, "10s", viper.GetString("otel.metricInterval"))
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 10, viper.GetInt("soak.producers"))
}

func TestLoad_MalformedFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load(writeConfig(t, `{"soak": `))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestGetString(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	assert.Equal(t, "testValue", GetString("testKey"))
}

func TestGetSoakConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetSoakConfig()
	assert.Equal(t, SoakConfig{
		Producers:        10,
		ItemsPerProducer: 100,
		Consumers:        1,
		Capacity:         0,
		RecvTimeout:      5 * time.Second,
	}, cfg)
}

func TestGetSoakConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"soak": {
			"producers": 3,
			"itemsPerProducer": 7,
			"consumers": 2,
			"capacity": 8,
			"recvTimeout": "250ms",
			"viaDispatcher": true,
			"progressInterval": "2s"
		}
	}`)))

	cfg := GetSoakConfig()
	assert.Equal(t, 3, cfg.Producers)
	assert.Equal(t, 7, cfg.ItemsPerProducer)
	assert.Equal(t, 2, cfg.Consumers)
	assert.Equal(t, 8, cfg.Capacity)
	assert.Equal(t, 250*time.Millisecond, cfg.RecvTimeout)
	assert.True(t, cfg.ViaDispatcher)
	assert.Equal(t, 2*time.Second, cfg.ProgressInterval)
}

func TestGetSoakConfig_ExplicitSetWins(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{"soak": {"producers": 3}}`)))

	// flags bound through viper.Set override the file
	viper.Set("soak.producers", 12)
	assert.Equal(t, 12, GetSoakConfig().Producers)
}

func TestGetOTelConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetOTelConfig()
	assert.Equal(t, false, cfg.Enabled)
	assert.Equal(t, "handoff", cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
	assert.Equal(t, "", cfg.Endpoint)
	assert.Equal(t, true, cfg.Insecure)
	assert.Equal(t, 10*time.Second, cfg.MetricInterval)
}

func TestGetOTelConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"otel": {
			"enabled": true,
			"serviceName": "my-service",
			"batchTimeout": "30s",
			"endpoint": "localhost:4318",
			"insecure": false,
			"metricInterval": "1m"
		}
	}`)))

	oc := GetOTelConfig()
	assert.Equal(t, true, oc.Enabled)
	assert.Equal(t, "my-service", oc.ServiceName)
	assert.Equal(t, 30*time.Second, oc.BatchTimeout)
	assert.Equal(t, "localhost:4318", oc.Endpoint)
	assert.Equal(t, false, oc.Insecure)
	assert.Equal(t, time.Minute, oc.MetricInterval)
}
