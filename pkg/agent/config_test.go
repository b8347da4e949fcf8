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

package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/guardian/pkg/models"
)

func TestServerConfigDefaults(t *testing.T) {
	cfg := ServerConfig{
		NATS: models.NATSConfig{URL: "nats://127.0.0.1:4222", Domain: "edge"},
	}

	require.NoError(t, cfg.Validate())

	assert.Equal(t, StoreNATS, cfg.Store)
	assert.Equal(t, defaultBucket, cfg.KV.Bucket)
	assert.Equal(t, "edge", cfg.KV.Domain)
	assert.Equal(t, defaultCommandSubjectPrefix, cfg.CommandSubjectPrefix)
	assert.Equal(t, defaultPairingFile, cfg.PairingFile)
	assert.Equal(t, defaultMarkerFile, cfg.MarkerFile)
	assert.Equal(t, defaultStatusFile, cfg.Device.StatusFile)
	assert.Equal(t, defaultRestartDelay, cfg.RestartInterval())
	assert.Equal(t, 5*time.Minute, cfg.Telemetry.heartbeatInterval())
	assert.Equal(t, 15*time.Minute, cfg.Telemetry.snapshotInterval())
	assert.False(t, cfg.Events.Enabled)
}

func TestServerConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServerConfig
		wantErr bool
	}{
		{name: "nats needs url", cfg: ServerConfig{Store: StoreNATS}, wantErr: true},
		{name: "unknown store", cfg: ServerConfig{Store: "firebase"}, wantErr: true},
		{name: "memory needs nothing", cfg: ServerConfig{Store: StoreMemory}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
		})
	}

	cfg := ServerConfig{Store: "firebase"}
	require.ErrorIs(t, cfg.Validate(), errInvalidStoreKind)
}

func TestServerConfigEventsDefaults(t *testing.T) {
	cfg := ServerConfig{
		Store:        StoreMemory,
		Events:       models.EventsConfig{Enabled: true},
		RestartDelay: models.Duration(time.Second),
	}

	require.NoError(t, cfg.Validate())

	assert.Equal(t, "GUARDIAN_EVENTS", cfg.Events.StreamName)
	assert.Equal(t, "guardian.events", cfg.Events.SubjectPrefix)
	assert.Equal(t, time.Second, cfg.RestartInterval())
}
