package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-transfer-api/pkg/config"
)

func TestSetup_Deshabilitado(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TelemetryConfig{ServiceName: "test"}, "dev")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		raw          string
		wantEndpoint string
		wantInsecure bool
	}{
		{"otel-collector:4318", "otel-collector:4318", true},
		{"http://otel-collector:4318/", "otel-collector:4318", true},
		{"https://otlp.example.com", "otlp.example.com", false},
		{"  localhost:4318 ", "localhost:4318", true},
	}
	for _, tt := range tests {
		endpoint, insecure := parseEndpoint(tt.raw)
		assert.Equal(t, tt.wantEndpoint, endpoint, tt.raw)
		assert.Equal(t, tt.wantInsecure, insecure, tt.raw)
	}
}
