// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package telemetry

import (
	"context"
	"os"
	"sync"
	"testing"
)

func withCleanEnv(t *testing.T, keys ...string) {
	t.Helper()
	saved := make(map[string]string, len(keys))
	for _, k := range keys {
		saved[k] = os.Getenv(k)
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		for k, v := range saved {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	})
}

var otelEnvKeys = []string{
	"OTEL_ENABLED", "OTEL_SERVICE_NAME", "OTEL_SERVICE_VERSION",
	"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_HEADERS",
	"OTEL_EXPORTER_OTLP_INSECURE", "OTEL_TRACES_SAMPLER",
	"OTEL_TRACES_SAMPLER_ARG", "OTEL_RESOURCE_ATTRIBUTES",
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	withCleanEnv(t, otelEnvKeys...)

	cfg := LoadFromEnv()
	if cfg.Enabled {
		t.Error("expected Enabled to be false by default")
	}
	if cfg.ServiceName != "finroc-runtime" {
		t.Errorf("ServiceName = %q, want finroc-runtime", cfg.ServiceName)
	}
	if cfg.ServiceVersion != "unknown" {
		t.Errorf("ServiceVersion = %q, want unknown", cfg.ServiceVersion)
	}
}

func TestLoadFromEnv_EnabledCaseInsensitive(t *testing.T) {
	withCleanEnv(t, otelEnvKeys...)
	os.Setenv("OTEL_ENABLED", "TRUE")

	if !LoadFromEnv().Enabled {
		t.Error("expected Enabled to be true for 'TRUE'")
	}
}

func TestLoadFromEnv_CustomValues(t *testing.T) {
	withCleanEnv(t, otelEnvKeys...)
	os.Setenv("OTEL_SERVICE_NAME", "my-service")
	os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "https://collector.example.com:4317")
	os.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "true")

	cfg := LoadFromEnv()
	if cfg.ServiceName != "my-service" {
		t.Errorf("ServiceName = %q, want my-service", cfg.ServiceName)
	}
	if cfg.Endpoint != "https://collector.example.com:4317" {
		t.Errorf("Endpoint = %q", cfg.Endpoint)
	}
	if !cfg.Insecure {
		t.Error("expected Insecure to be true")
	}
}

func TestLoadFromEnv_HeadersParsing(t *testing.T) {
	withCleanEnv(t, otelEnvKeys...)
	os.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "Authorization=Bearer token123,X-Custom=value")

	cfg := LoadFromEnv()
	if len(cfg.Headers) != 2 {
		t.Fatalf("len(Headers) = %d, want 2", len(cfg.Headers))
	}
	if cfg.Headers["Authorization"] != "Bearer token123" {
		t.Errorf("Headers[Authorization] = %q", cfg.Headers["Authorization"])
	}
}

func TestParseKeyValuePairs(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected map[string]string
	}{
		{"empty", "", map[string]string{}},
		{"single_pair", "key=value", map[string]string{"key": "value"}},
		{"multiple_pairs", "key1=value1,key2=value2", map[string]string{"key1": "value1", "key2": "value2"}},
		{"value_with_equals", "Authorization=Bearer token=abc", map[string]string{"Authorization": "Bearer token=abc"}},
		{"invalid_no_equals", "invalid", map[string]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseKeyValuePairs(tt.input)
			if len(result) != len(tt.expected) {
				t.Fatalf("len(result) = %d, want %d", len(result), len(tt.expected))
			}
			for k, v := range tt.expected {
				if result[k] != v {
					t.Errorf("result[%s] = %q, want %q", k, result[k], v)
				}
			}
		})
	}
}

func TestInit_DisabledReturnsNoopShutdown(t *testing.T) {
	withCleanEnv(t, otelEnvKeys...)
	configOnce = sync.Once{}
	t.Cleanup(func() { configOnce = sync.Once{} })

	shutdown, err := Init(context.Background())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
