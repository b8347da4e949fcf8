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

package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/carverauto/guardian/pkg/logger"
)

func TestCreateComponentLogger(t *testing.T) {
	log, err := CreateComponentLogger(context.Background(), "guardian-agent", &logger.Config{Level: "debug"})
	require.NoError(t, err)
	require.NotNil(t, log)

	_, err = CreateComponentLogger(context.Background(), "guardian-agent", &logger.Config{Level: "chatty"})
	require.Error(t, err)
}

func TestCreateComponentLoggerOTelWithoutEndpoint(t *testing.T) {
	cfg := &logger.Config{Level: "info", OTel: logger.OTelConfig{Enabled: true}}

	// Enabled without an endpoint falls back to console-only logging.
	log, err := CreateComponentLogger(context.Background(), "guardian-agent", cfg)
	require.NoError(t, err)
	require.NotNil(t, log)
}

func TestInitializeTelemetryDisabled(t *testing.T) {
	cfg := &logger.Config{Level: "info"}

	require.NoError(t, InitializeTelemetry(context.Background(), "guardian-agent", cfg, logger.NewTestLogger()))
	require.NoError(t, ShutdownLogger())
}
