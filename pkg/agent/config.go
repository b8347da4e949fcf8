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
	"fmt"
	"time"

	"github.com/carverauto/guardian/pkg/device"
	"github.com/carverauto/guardian/pkg/kv"
	"github.com/carverauto/guardian/pkg/logger"
	"github.com/carverauto/guardian/pkg/media"
	"github.com/carverauto/guardian/pkg/models"
)

const (
	StoreNATS   = "nats"
	StoreMemory = "memory"

	defaultBucket               = "guardian-devices"
	defaultCommandSubjectPrefix = "guardian.commands"
	defaultPairingFile          = "/etc/guardian/pairing.json"
	defaultMarkerFile           = "/var/lib/guardian/agent.marker"
	defaultStatusFile           = "/run/guardian/status.json"

	defaultHeartbeatInterval = 5 * time.Minute
	defaultSnapshotDelay     = 5 * time.Second
	defaultSnapshotInterval  = 15 * time.Minute
	defaultRestartDelay      = 5 * time.Second

	// vibrateDuration is how long vibrateDevice runs the vibrator.
	vibrateDuration = 500 * time.Millisecond
)

// TelemetryConfig sets the periods of the two telemetry tasks.
type TelemetryConfig struct {
	HeartbeatInterval models.Duration `json:"heartbeat_interval,omitempty" yaml:"heartbeat_interval,omitempty"`
	SnapshotDelay     models.Duration `json:"snapshot_delay,omitempty" yaml:"snapshot_delay,omitempty"`
	SnapshotInterval  models.Duration `json:"snapshot_interval,omitempty" yaml:"snapshot_interval,omitempty"`
}

func (c TelemetryConfig) heartbeatInterval() time.Duration {
	return c.HeartbeatInterval.OrDefault(defaultHeartbeatInterval)
}

func (c TelemetryConfig) snapshotDelay() time.Duration {
	return c.SnapshotDelay.OrDefault(defaultSnapshotDelay)
}

func (c TelemetryConfig) snapshotInterval() time.Duration {
	return c.SnapshotInterval.OrDefault(defaultSnapshotInterval)
}

// ServerConfig is the configuration file of the guardian agent.
type ServerConfig struct {
	Store                string              `json:"store" yaml:"store"`
	NATS                 models.NATSConfig   `json:"nats" yaml:"nats"`
	KV                   kv.StoreConfig      `json:"kv" yaml:"kv"`
	CommandSubjectPrefix string              `json:"command_subject_prefix" yaml:"command_subject_prefix"`
	PairingFile          string              `json:"pairing_file" yaml:"pairing_file"`
	MarkerFile           string              `json:"marker_file" yaml:"marker_file"`
	RestartDelay         models.Duration     `json:"restart_delay,omitempty" yaml:"restart_delay,omitempty"`
	Telemetry            TelemetryConfig     `json:"telemetry" yaml:"telemetry"`
	Media                media.Config        `json:"media" yaml:"media"`
	Device               device.Config       `json:"device" yaml:"device"`
	Events               models.EventsConfig `json:"events" yaml:"events"`
	Logging              *logger.Config      `json:"logging,omitempty" yaml:"logging,omitempty"`
}

// Validate fills in defaults and checks the configuration.
func (c *ServerConfig) Validate() error {
	if c.Store == "" {
		c.Store = StoreNATS
	}

	switch c.Store {
	case StoreNATS:
		if err := c.NATS.Validate(); err != nil {
			return err
		}
	case StoreMemory:
	default:
		return fmt.Errorf("%w: %q (expected %q or %q)", errInvalidStoreKind, c.Store, StoreNATS, StoreMemory)
	}

	if c.KV.Bucket == "" {
		c.KV.Bucket = defaultBucket
	}

	if c.KV.Domain == "" {
		c.KV.Domain = c.NATS.Domain
	}

	if c.CommandSubjectPrefix == "" {
		c.CommandSubjectPrefix = defaultCommandSubjectPrefix
	}

	if c.PairingFile == "" {
		c.PairingFile = defaultPairingFile
	}

	if c.MarkerFile == "" {
		c.MarkerFile = defaultMarkerFile
	}

	if c.Device.StatusFile == "" {
		c.Device.StatusFile = defaultStatusFile
	}

	return c.Events.Validate()
}

// RestartInterval is the pause between a failed control-plane run and the next.
func (c *ServerConfig) RestartInterval() time.Duration {
	return c.RestartDelay.OrDefault(defaultRestartDelay)
}
