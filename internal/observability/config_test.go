package observability

import (
	"testing"

	"github.com/smallbiznis/accreditation/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigMapsServiceConfig(t *testing.T) {
	cfg := LoadConfig(config.Config{
		AppVersion:        "1.2.0",
		Environment:       "production",
		LogLevel:          "WARN",
		OTelEnabled:       true,
		OTLPEndpoint:      " collector:4317 ",
		OTLPProtocol:      "GRPC",
		OTelSamplingRatio: 2,
	})

	assert.Equal(t, "accreditation", cfg.ServiceName)
	assert.Equal(t, "1.2.0", cfg.Version)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "collector:4317", cfg.OtelExporterEndpoint)
	assert.Equal(t, "grpc", cfg.OtelExporterProtocol)
	assert.Equal(t, 0.1, cfg.OtelSamplingRatio)
	assert.False(t, cfg.Debug())
}

func TestDebugInDevelopment(t *testing.T) {
	assert.True(t, LoadConfig(config.Config{Environment: "development"}).Debug())
	assert.True(t, LoadConfig(config.Config{LogLevel: "debug", Environment: "production"}).Debug())
}
