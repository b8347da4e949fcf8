/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package lifecycle wires process-wide concerns (logging, telemetry export)
// for the agent binaries.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/carverauto/guardian/pkg/logger"
	"github.com/carverauto/guardian/pkg/version"
)

// CreateComponentLogger creates a logger for a specific component. When the
// config enables OTel, every line is also exported as an OTLP log record.
func CreateComponentLogger(ctx context.Context, component string, config *logger.Config) (logger.Logger, error) {
	if config == nil {
		config = logger.DefaultConfig()
	}

	level, err := config.ParseLevel()
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	logger.SetTimeFormat(config.TimeFormat)

	var output io.Writer = config.Writer()

	if config.OTel.Enabled && config.OTel.Endpoint != "" {
		otelWriter, err := logger.NewOTELWriter(ctx, config.OTel)
		if err != nil {
			return nil, err
		}

		output = logger.NewMultiWriter(output, otelWriter)
	}

	return logger.New(output, level).WithComponent(component), nil
}

// InitializeTelemetry starts the OTel metric and trace pipelines. Metrics
// stay on the no-op provider when exporting is disabled; that is not an error.
func InitializeTelemetry(ctx context.Context, serviceName string, config *logger.Config, log logger.Logger) error {
	if config == nil {
		config = logger.DefaultConfig()
	}

	build := version.Get()

	_, err := logger.InitializeMetrics(ctx, logger.MetricsConfig{
		ServiceName:    serviceName,
		ServiceVersion: build.Version,
		OTel:           &config.OTel,
	})
	if err != nil && !errors.Is(err, logger.ErrOTelMetricsDisabled) {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	if _, err := logger.InitializeTracing(ctx, logger.TracingConfig{
		ServiceName:    serviceName,
		ServiceVersion: build.Version,
		Logger:         log,
		OTel:           &config.OTel,
	}); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	return nil
}

// ShutdownLogger shuts down the logger, flushing any pending logs.
func ShutdownLogger() error {
	return logger.Shutdown()
}
