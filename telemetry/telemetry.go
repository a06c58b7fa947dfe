// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	metricsdk "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
)

var (
	globalConfig *Config
	configOnce   sync.Once
)

// ShutdownFunc shuts down the installed providers, flushing any
// buffered spans.
type ShutdownFunc func(ctx context.Context) error

func noopShutdown(context.Context) error { return nil }

// Init installs the global TracerProvider and MeterProvider from
// environment configuration. If OTEL_ENABLED is not "true" it leaves
// the default no-op providers in place and returns a no-op shutdown
// (spec.md's ambient stack: rpc's per-call spans and port's
// aggregated-edge counters must be free whether or not telemetry is
// configured). Grounded on
// junjiewwang/perf-analysis/pkg/telemetry/telemetry.go.
func Init(ctx context.Context) (ShutdownFunc, error) {
	cfg := loadConfig()
	if !cfg.Enabled {
		return noopShutdown, nil
	}

	res, err := buildResource(ctx, cfg)
	if err != nil {
		return noopShutdown, err
	}

	exporter, err := createExporter(ctx, cfg)
	if err != nil {
		return noopShutdown, err
	}

	tp := trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithBatcher(exporter),
		trace.WithSampler(createSampler(cfg)),
	)
	otel.SetTracerProvider(tp)

	mp := metricsdk.NewMeterProvider(metricsdk.WithResource(res))
	otel.SetMeterProvider(mp)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func(ctx context.Context) error {
		if err := tp.Shutdown(ctx); err != nil {
			return err
		}
		return mp.Shutdown(ctx)
	}, nil
}

// Enabled reports whether telemetry export is enabled.
func Enabled() bool { return loadConfig().Enabled }

// GetConfig returns the process's loaded telemetry configuration.
func GetConfig() *Config { return loadConfig() }

func loadConfig() *Config {
	configOnce.Do(func() { globalConfig = LoadFromEnv() })
	return globalConfig
}
