// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package telemetry bootstraps OpenTelemetry tracing and metrics from
// standard environment variables, installing a no-op provider when
// disabled so every span/meter call elsewhere in this module (rpc's
// per-call spans, port's aggregated-edge counters) is free whether or
// not an OTLP collector is configured.
//
// Environment variables:
//
//	OTEL_ENABLED                    - enable trace export (default: false); metrics are never exported, the installed MeterProvider has no reader
//	OTEL_SERVICE_NAME               - service name (default: finroc-runtime)
//	OTEL_SERVICE_VERSION            - service version (default: unknown)
//	OTEL_EXPORTER_OTLP_ENDPOINT     - OTLP collector endpoint
//	OTEL_EXPORTER_OTLP_INSECURE     - use an insecure gRPC connection (default: false)
//	OTEL_EXPORTER_OTLP_HEADERS      - extra exporter headers, "k1=v1,k2=v2"
//	OTEL_TRACES_SAMPLER             - always_on, always_off, traceidratio, parentbased_* (default: always_on)
//	OTEL_TRACES_SAMPLER_ARG         - ratio for a traceidratio sampler
//	OTEL_RESOURCE_ATTRIBUTES        - extra resource attributes, "k1=v1,k2=v2"
package telemetry
