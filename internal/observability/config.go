package observability

import (
	"strings"

	"github.com/smallbiznis/accreditation/internal/config"
)

// Config holds observability configuration derived from the service config.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "accreditation"
	}
	logFormat := strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	if logFormat == "" {
		logFormat = "json"
	}
	ratio := cfg.OTelSamplingRatio
	if ratio < 0 || ratio > 1 {
		ratio = 0.1
	}

	return Config{
		ServiceName:          serviceName,
		Environment:          strings.TrimSpace(cfg.Environment),
		Version:              strings.TrimSpace(cfg.AppVersion),
		LogLevel:             strings.ToLower(strings.TrimSpace(cfg.LogLevel)),
		LogFormat:            logFormat,
		OtelEnabled:          cfg.OTelEnabled,
		OtelExporterEndpoint: strings.TrimSpace(cfg.OTLPEndpoint),
		OtelExporterProtocol: strings.ToLower(strings.TrimSpace(cfg.OTLPProtocol)),
		OtelSamplingRatio:    ratio,
	}
}

func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}
