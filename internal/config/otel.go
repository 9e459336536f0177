package config

import (
	"fmt"

	env "github.com/netflix/go-env"
)

// OTelConfig mirrors the standard OTEL_* environment variables.
type OTelConfig struct {
	Enabled              bool    `env:"OTEL_ENABLED,default=false"`
	ServiceName          string  `env:"OTEL_SERVICE_NAME,default=greetbot"`
	ExporterOTLPEndpoint string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ExporterOTLPProtocol string  `env:"OTEL_EXPORTER_OTLP_PROTOCOL,default=http/protobuf"`
	ResourceAttributes   string  `env:"OTEL_RESOURCE_ATTRIBUTES"`
	TracesSampler        string  `env:"OTEL_TRACES_SAMPLER,default=always_on"`
	TracesSamplerArg     float64 `env:"OTEL_TRACES_SAMPLER_ARG,default=1.0"`
}

// LoadOTel loads OpenTelemetry settings from environment variables
func LoadOTel() (*OTelConfig, error) {
	var cfg OTelConfig
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse OTEL environment variables: %w", err)
	}
	return &cfg, nil
}
