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

package natsutil

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/guardian/pkg/logger"
	"github.com/carverauto/guardian/pkg/models"
	"github.com/carverauto/guardian/pkg/natsutil/natstest"
)

func TestTLSConfigRejectsPlaintextModes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		sec  *models.SecurityConfig
		want error
	}{
		{name: "nil config", sec: nil, want: ErrTLSRequired},
		{name: "mode none", sec: &models.SecurityConfig{Mode: models.SecurityModeNone}, want: ErrTLSRequired},
		{name: "empty mode", sec: &models.SecurityConfig{}, want: ErrTLSRequired},
		{name: "unknown mode", sec: &models.SecurityConfig{Mode: "spiffe"}, want: ErrUnknownSecurityMode},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := TLSConfig(tc.sec)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestTLSConfigServerOnly(t *testing.T) {
	t.Parallel()

	conf, err := TLSConfig(&models.SecurityConfig{Mode: models.SecurityModeTLS, ServerName: "nats.local"})
	require.NoError(t, err)

	assert.Equal(t, "nats.local", conf.ServerName)
	assert.Equal(t, uint16(tls.VersionTLS13), conf.MinVersion)
	assert.Nil(t, conf.RootCAs)
	assert.Empty(t, conf.Certificates)
}

func TestTLSConfigBadCA(t *testing.T) {
	t.Parallel()

	caFile := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(caFile, []byte("not a certificate"), 0o600))

	_, err := TLSConfig(&models.SecurityConfig{
		Mode: models.SecurityModeTLS,
		TLS:  models.TLSConfig{CAFile: caFile},
	})
	require.ErrorIs(t, err, ErrCAParsingFailed)

	_, err = TLSConfig(&models.SecurityConfig{
		Mode: models.SecurityModeTLS,
		TLS:  models.TLSConfig{CAFile: filepath.Join(t.TempDir(), "missing.pem")},
	})
	require.Error(t, err)
}

func TestTLSConfigMTLSRequiresClientCert(t *testing.T) {
	t.Parallel()

	_, err := TLSConfig(&models.SecurityConfig{
		Mode: models.SecurityModeMTLS,
		TLS: models.TLSConfig{
			CertFile: filepath.Join(t.TempDir(), "client.pem"),
			KeyFile:  filepath.Join(t.TempDir(), "client-key.pem"),
		},
	})
	require.ErrorContains(t, err, "failed to load client certificate")
}

func TestSecurityOptions(t *testing.T) {
	t.Parallel()

	opts, err := SecurityOptions(nil)
	require.NoError(t, err)
	assert.Empty(t, opts)

	opts, err = SecurityOptions(&models.SecurityConfig{Mode: models.SecurityModeNone, CredsFile: "/etc/guardian/agent.creds"})
	require.NoError(t, err)
	assert.Len(t, opts, 1)

	opts, err = SecurityOptions(&models.SecurityConfig{Mode: models.SecurityModeTLS})
	require.NoError(t, err)
	assert.Len(t, opts, 1)
}

func TestConnectWithSecurityPlaintext(t *testing.T) {
	srv := natstest.RunJetStreamServer(t)

	nc, err := ConnectWithSecurity(srv.ClientURL(), "guardian-test", nil, logger.NewTestLogger())
	require.NoError(t, err)

	defer nc.Close()

	assert.True(t, nc.IsConnected())
}

func TestEventPublisherPublishesCloudEvent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	srv := natstest.RunJetStreamServer(t)
	nc := natstest.Connect(t, srv)

	cfg := models.EventsConfig{Enabled: true}
	require.NoError(t, cfg.Validate())

	pub, err := CreateEventPublisher(ctx, nc, "", cfg, logger.NewTestLogger())
	require.NoError(t, err)

	// a second publisher binds the existing stream
	_, err = CreateEventPublisher(ctx, nc, "", cfg, logger.NewTestLogger())
	require.NoError(t, err)

	require.NoError(t, pub.PublishAgentEvent(ctx, models.AgentEventRestarted, models.AgentEventData{
		ControllerID: "parent",
		DeviceID:     "child",
		InstanceID:   "instance-1",
		Attempt:      2,
		Reason:       "subscription lost",
	}))

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	stream, err := js.Stream(ctx, cfg.StreamName)
	require.NoError(t, err)

	msg, err := stream.GetLastMsgForSubject(ctx, "guardian.events.parent.child")
	require.NoError(t, err)

	var event struct {
		models.CloudEvent
		Data models.AgentEventData `json:"data"`
	}

	require.NoError(t, json.Unmarshal(msg.Data, &event))
	assert.Equal(t, "1.0", event.SpecVersion)
	assert.Equal(t, models.AgentEventRestarted, event.Type)
	assert.Equal(t, "guardian/agent", event.Source)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, 2, event.Data.Attempt)
	assert.Equal(t, "subscription lost", event.Data.Reason)
	assert.False(t, event.Data.Timestamp.IsZero())
}
